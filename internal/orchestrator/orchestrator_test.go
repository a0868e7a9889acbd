package orchestrator

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tonimelisma/internxt-backup/internal/config"
	"github.com/tonimelisma/internxt-backup/internal/remoteclient"
	"github.com/tonimelisma/internxt-backup/internal/testsupport"
)

func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.ScanConcurrency = 0

	return cfg
}

func TestSyncOnceFirstRunUploadsAllFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("test content"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sub", "b.bin"), []byte("12345"), 0o644))

	var createFolders, uploads []string

	fake := &testsupport.FakeClient{
		CreateFolderFn: func(_ context.Context, remote string) remoteclient.Result {
			createFolders = append(createFolders, remote)

			return remoteclient.Result{Success: true}
		},
		UploadStreamFn: func(_ context.Context, _, remote string, _ remoteclient.PercentFunc) remoteclient.Result {
			uploads = append(uploads, remote)

			return remoteclient.Result{Success: true}
		},
	}

	var buf bytes.Buffer

	o := New(fake, testConfig(), nil, WithOutput(&buf))

	result, err := o.SyncOnce(context.Background(), dir, "/Backups/X")
	require.NoError(t, err)
	require.Equal(t, 2, result.Succeeded)
	require.Equal(t, 0, result.Failed)
	require.False(t, result.UpToDate)

	require.Contains(t, createFolders, "/Backups/X")
	require.Contains(t, createFolders, "/Backups/X/sub")
	require.Contains(t, uploads, "/Backups/X/a.txt")
	require.Contains(t, uploads, "/Backups/X/sub/b.bin")
}

func TestSyncOnceSecondRunUpToDate(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("test content"), 0o644))

	fake := &testsupport.FakeClient{}

	var buf bytes.Buffer

	o := New(fake, testConfig(), nil, WithOutput(&buf))

	_, err := o.SyncOnce(context.Background(), dir, "/Backups/X")
	require.NoError(t, err)

	uploadsAfterFirstRun := fake.CallCount("UploadFileStreamed")

	result, err := o.SyncOnce(context.Background(), dir, "/Backups/X")
	require.NoError(t, err)
	require.True(t, result.UpToDate)
	require.Equal(t, uploadsAfterFirstRun, fake.CallCount("UploadFileStreamed"), "second run must not upload")
}

func TestSyncOnceForceReuploadsEverything(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("test content"), 0o644))

	fake := &testsupport.FakeClient{}

	var buf bytes.Buffer

	cfg := testConfig()

	o := New(fake, cfg, nil, WithOutput(&buf))

	_, err := o.SyncOnce(context.Background(), dir, "/Backups/X")
	require.NoError(t, err)

	cfg.Force = true

	result, err := o.SyncOnce(context.Background(), dir, "/Backups/X")
	require.NoError(t, err)
	require.Equal(t, 1, result.Succeeded)
}

func TestSyncOnceUnavailableClientIsPrecondition(t *testing.T) {
	fake := &testsupport.FakeClient{
		AvailabilityFn: func(_ context.Context) remoteclient.AvailabilityResult {
			return remoteclient.AvailabilityResult{Installed: false}
		},
	}

	var buf bytes.Buffer

	o := New(fake, testConfig(), nil, WithOutput(&buf))

	_, err := o.SyncOnce(context.Background(), t.TempDir(), "/Backups/X")
	require.Error(t, err)
}

func TestSyncOnceEmptyDirectoryIsUpToDate(t *testing.T) {
	fake := &testsupport.FakeClient{}

	var buf bytes.Buffer

	o := New(fake, testConfig(), nil, WithOutput(&buf))

	result, err := o.SyncOnce(context.Background(), t.TempDir(), "/Backups/X")
	require.NoError(t, err)
	require.True(t, result.UpToDate)
}

func TestSyncOnceFailedUploadRecordedAsFailure(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("test content"), 0o644))

	fake := &testsupport.FakeClient{
		UploadStreamFn: func(_ context.Context, _, _ string, _ remoteclient.PercentFunc) remoteclient.Result {
			return remoteclient.Result{Success: false, Message: "network error"}
		},
	}

	var buf bytes.Buffer

	o := New(fake, testConfig(), nil, WithOutput(&buf))

	result, err := o.SyncOnce(context.Background(), dir, "/Backups/X")
	require.NoError(t, err)
	require.Equal(t, 0, result.Succeeded)
	require.Equal(t, 1, result.Failed)
}

func TestRestoreOnceDownloadsIntoEmptyDestination(t *testing.T) {
	dest := t.TempDir()

	fake := &testsupport.FakeClient{
		ListFilesFn: func(_ context.Context, remote string) remoteclient.ListResult {
			switch remote {
			case "/Backups/X":
				return remoteclient.ListResult{Files: []remoteclient.RemoteFileEntry{
					{Name: "a.txt", Path: "/Backups/X/a.txt", SizeBytes: 13},
					{Name: "sub", Path: "/Backups/X/sub", IsFolder: true},
				}}
			case "/Backups/X/sub":
				return remoteclient.ListResult{Files: []remoteclient.RemoteFileEntry{
					{Name: "b.bin", Path: "/Backups/X/sub/b.bin", SizeBytes: 5},
				}}
			default:
				return remoteclient.ListResult{}
			}
		},
		DownloadStreamFn: func(_ context.Context, remote, local string, _ remoteclient.PercentFunc) remoteclient.Result {
			var content []byte

			switch remote {
			case "/Backups/X/a.txt":
				content = []byte("test content")
			case "/Backups/X/sub/b.bin":
				content = []byte("12345")
			}

			if err := os.WriteFile(local, content, 0o644); err != nil {
				return remoteclient.Result{Success: false, Message: err.Error()}
			}

			return remoteclient.Result{Success: true}
		},
	}

	var buf bytes.Buffer

	o := New(fake, testConfig(), nil, WithOutput(&buf))

	result, err := o.RestoreOnce(context.Background(), "/Backups/X", dest)
	require.NoError(t, err)
	require.Equal(t, 2, result.Succeeded)

	data, err := os.ReadFile(filepath.Join(dest, "a.txt"))
	require.NoError(t, err)
	require.Equal(t, "test content", string(data))

	data, err = os.ReadFile(filepath.Join(dest, "sub", "b.bin"))
	require.NoError(t, err)
	require.Equal(t, "12345", string(data))
}

func TestRestoreOnceSkipsUpToDateFiles(t *testing.T) {
	dest := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dest, "a.txt"), []byte("test content"), 0o644))

	fake := &testsupport.FakeClient{
		ListFilesFn: func(_ context.Context, _ string) remoteclient.ListResult {
			return remoteclient.ListResult{Files: []remoteclient.RemoteFileEntry{
				{Name: "a.txt", Path: "/Backups/X/a.txt", SizeBytes: 12},
			}}
		},
	}

	var buf bytes.Buffer

	o := New(fake, testConfig(), nil, WithOutput(&buf))

	result, err := o.RestoreOnce(context.Background(), "/Backups/X", dest)
	require.NoError(t, err)
	require.True(t, result.UpToDate)
	require.Equal(t, 0, fake.CallCount("DownloadFileStreamed"))
}

func TestSchedulerRunsOnceImmediately(t *testing.T) {
	var calls atomic.Int32

	release := make(chan struct{})

	s := NewScheduler(nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		_ = s.RunDaemon(ctx, "* * * * * *", func(_ context.Context) error {
			calls.Add(1)
			<-release
			cancel()

			return nil
		})
	}()

	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, time.Millisecond)

	close(release)
}

func TestSchedulerRejectsInvalidCron(t *testing.T) {
	s := NewScheduler(nil)

	err := s.RunDaemon(context.Background(), "not a cron expr", func(_ context.Context) error { return nil })
	require.Error(t, err)
}
