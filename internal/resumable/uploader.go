// Package resumable implements the large-file upload path: retry with
// exponential backoff, checksum-verified resume, and per-file state.
package resumable

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/tonimelisma/internxt-backup/internal/engineerr"
	"github.com/tonimelisma/internxt-backup/internal/remoteclient"
)

const (
	defaultChunkSizeBytes     = 50 * 1024 * 1024
	resumableThresholdBytes   = 100 * 1024 * 1024
	defaultMaxRetryAttempts   = 3
	defaultBaseDelay          = 1000 * time.Millisecond
	defaultMaxDelay           = 10000 * time.Millisecond
)

// Outcome is UploadLargeFile's return value.
type Outcome struct {
	Success       bool
	BytesUploaded int64
	Err           error
}

// PercentFunc receives a composed 0-100 progress value.
type PercentFunc = remoteclient.PercentFunc

// Uploader owns the resumable-upload state machine for one sync run.
type Uploader struct {
	client     remoteclient.Client
	logger     *slog.Logger
	stateDir   string
	chunkSize  int64
	maxRetries int
	baseDelay  time.Duration
	maxDelay   time.Duration
	sleep      func(ctx context.Context, d time.Duration)
}

// Option configures New.
type Option func(*Uploader)

// WithStateDir overrides the default state directory.
func WithStateDir(dir string) Option {
	return func(u *Uploader) { u.stateDir = dir }
}

// WithChunkSize overrides the default 50 MiB chunk size.
func WithChunkSize(bytes int64) Option {
	return func(u *Uploader) {
		if bytes > 0 {
			u.chunkSize = bytes
		}
	}
}

// WithRetryPolicy overrides the default retry ceiling and backoff bounds.
func WithRetryPolicy(maxRetries int, baseDelay, maxDelay time.Duration) Option {
	return func(u *Uploader) {
		if maxRetries > 0 {
			u.maxRetries = maxRetries
		}

		if baseDelay > 0 {
			u.baseDelay = baseDelay
		}

		if maxDelay > 0 {
			u.maxDelay = maxDelay
		}
	}
}

// WithSleepFunc overrides the backoff sleep, letting tests substitute a
// no-op (or instrumented) sleep instead of waiting in real time.
func WithSleepFunc(fn func(ctx context.Context, d time.Duration)) Option {
	return func(u *Uploader) { u.sleep = fn }
}

// DefaultStateDir returns the conventional resumable-upload state directory
// inside the OS temp area.
func DefaultStateDir() string {
	return filepath.Join(os.TempDir(), "internxt-uploads")
}

// New creates an Uploader. The state directory is created lazily on first
// write, not here, since most uploads never need it.
func New(client remoteclient.Client, logger *slog.Logger, opts ...Option) *Uploader {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	u := &Uploader{
		client:     client,
		logger:     logger,
		stateDir:   DefaultStateDir(),
		chunkSize:  defaultChunkSizeBytes,
		maxRetries: defaultMaxRetryAttempts,
		baseDelay:  defaultBaseDelay,
		maxDelay:   defaultMaxDelay,
		sleep:      sleepCtx,
	}

	for _, opt := range opts {
		opt(u)
	}

	return u
}

// ShouldUseResumable reports whether size requires the resumable path.
func (u *Uploader) ShouldUseResumable(size int64) bool {
	return size > resumableThresholdBytes
}

// UploadLargeFile uploads localPath to remotePath, using the resumable
// state machine for files above the threshold and a plain streamed upload
// otherwise.
func (u *Uploader) UploadLargeFile(
	ctx context.Context, localPath, remotePath string, onPercent PercentFunc,
) (Outcome, error) {
	info, err := os.Stat(localPath)
	if err != nil {
		return Outcome{}, &engineerr.IOError{Path: localPath, Err: err}
	}

	size := info.Size()

	if !u.ShouldUseResumable(size) {
		result := u.client.UploadFileStreamed(ctx, localPath, remotePath, onPercent)
		if result.Success {
			return Outcome{Success: true, BytesUploaded: size}, nil
		}

		return Outcome{Success: false, BytesUploaded: 0, Err: &engineerr.RemoteError{RemotePath: remotePath, Message: result.Message}}, nil
	}

	return u.uploadResumable(ctx, localPath, remotePath, size, onPercent)
}

func (u *Uploader) uploadResumable(
	ctx context.Context, localPath, remotePath string, size int64, onPercent PercentFunc,
) (Outcome, error) {
	checksum, err := sha256File(localPath)
	if err != nil {
		return Outcome{}, &engineerr.IOError{Path: localPath, Err: err}
	}

	st, err := loadUploadState(u.stateDir, localPath)
	if err != nil {
		u.logger.Warn("resumable: failed to load prior state, starting fresh",
			slog.String("path", localPath), slog.Any("error", err))

		st = nil
	}

	if st != nil && st.FileChecksum != checksum {
		// [persisted] --resume: checksum mismatch--> [no state].
		if err := clearUploadState(u.stateDir, localPath); err != nil {
			u.logger.Warn("resumable: failed to discard stale state",
				slog.String("path", localPath), slog.Any("error", err))
		}

		st = nil
	}

	if st == nil {
		st = &UploadState{
			LocalPath:      localPath,
			RemotePath:     remotePath,
			ChunkSizeBytes: u.chunkSize,
			TotalChunks:    totalChunks(size, u.chunkSize),
			UploadedChunks: []int{},
			FileChecksum:   checksum,
		}
	}

	var lastErr error

	for attempt := 1; attempt <= u.maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return Outcome{}, err
		}

		st.Timestamp = nowISO()

		result := u.client.UploadFileStreamed(ctx, localPath, remotePath, func(percent int) {
			if onPercent != nil {
				onPercent(st.percentComplete(percent))
			}
		})

		if result.Success {
			if err := clearUploadState(u.stateDir, localPath); err != nil {
				u.logger.Warn("resumable: failed to clear state after success",
					slog.String("path", localPath), slog.Any("error", err))
			}

			return Outcome{Success: true, BytesUploaded: size}, nil
		}

		lastErr = &engineerr.TransientRemoteError{Attempt: attempt, Err: errors.New(result.Message)}

		u.logger.Warn("resumable: upload attempt failed",
			slog.String("path", localPath), slog.Int("attempt", attempt), slog.Any("error", lastErr))

		if attempt < u.maxRetries {
			u.sleep(ctx, backoffDelay(attempt, u.baseDelay, u.maxDelay))

			continue
		}

		// [uploading] --failure, attempts=3--> [persisted].
		if err := saveUploadState(u.stateDir, st); err != nil {
			return Outcome{}, fmt.Errorf("resumable: persisting state after exhausted retries: %w", err)
		}

		return Outcome{
			Success:       false,
			BytesUploaded: st.bytesUploaded(size),
			Err:           &engineerr.RemoteError{RemotePath: remotePath, Message: "upload failed after exhausting retries"},
		}, nil
	}

	return Outcome{}, lastErr
}

// GetProgress reads persisted state, if any, and returns the whole-chunk
// progress percentage.
func (u *Uploader) GetProgress(localPath string) int {
	st, err := loadUploadState(u.stateDir, localPath)
	if err != nil || st == nil {
		return 0
	}

	return st.percentComplete(0)
}

// CanResume reports whether a resumable state file exists with chunks still
// outstanding.
func (u *Uploader) CanResume(localPath string) bool {
	st, err := loadUploadState(u.stateDir, localPath)
	if err != nil || st == nil {
		return false
	}

	return len(st.UploadedChunks) < st.TotalChunks
}

// ClearState idempotently deletes localPath's state file.
func (u *Uploader) ClearState(localPath string) error {
	return clearUploadState(u.stateDir, localPath)
}

// totalChunks returns ceil(size/chunkSize), minimum 1.
func totalChunks(size, chunkSize int64) int {
	if chunkSize <= 0 {
		return 1
	}

	n := int(math.Ceil(float64(size) / float64(chunkSize)))
	if n < 1 {
		n = 1
	}

	return n
}

// backoffDelay computes exponential backoff:
// min(base*2^attempt, max), where attempt is the 1-indexed failed
// attempt number.
func backoffDelay(attempt int, base, maxDelay time.Duration) time.Duration {
	d := base * time.Duration(math.Pow(2, float64(attempt)))
	if d > maxDelay {
		return maxDelay
	}

	return d
}

// sleepCtx sleeps for d or returns early if ctx is canceled.
func sleepCtx(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
	case <-ctx.Done():
	}
}

// sha256File hashes a file's contents, used to verify resumed state still
// matches the file on disk.
func sha256File(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}

	return fmt.Sprintf("%x", h.Sum(nil)), nil
}
