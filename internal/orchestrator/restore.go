package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"runtime"
	"runtime/debug"
	"strings"
	"time"

	"github.com/tonimelisma/internxt-backup/internal/engineerr"
	"github.com/tonimelisma/internxt-backup/internal/progress"
	"github.com/tonimelisma/internxt-backup/internal/remoteclient"
	"github.com/tonimelisma/internxt-backup/internal/transferqueue"
)

// restoreTask is one file pending download.
type restoreTask struct {
	remotePath string
	localPath  string
	size       int64
}

// RestoreOnce mirrors the remote tree at remotePath into destDir.
func (o *Orchestrator) RestoreOnce(ctx context.Context, remotePath, destDir string) (result Result, err error) {
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			err = &engineerr.InvariantViolation{Message: fmt.Sprintf("%v\n%s", r, debug.Stack())}
		}
	}()

	runLog, _ := runLogger(o.logger)
	runLog.Info("orchestrator: starting restore run", slog.String("remote", remotePath), slog.String("dest", destDir))

	avail := o.client.CheckAvailability(ctx)
	if !avail.Installed || !avail.Authenticated {
		return Result{}, &engineerr.PreconditionFailure{Message: availabilityMessage(avail)}
	}

	remotePath = strings.TrimRight(remotePath, "/")

	entries, err := o.listRemoteTree(ctx, remotePath)
	if err != nil {
		return Result{}, fmt.Errorf("orchestrator: listing remote tree %s: %w", remotePath, err)
	}

	var tasks []restoreTask

	for _, e := range entries {
		rel := strings.TrimPrefix(e.Path, remotePath+"/")
		local := filepath.Join(destDir, filepath.FromSlash(rel))

		if !o.cfg.Force && isFileUpToDate(local, e.SizeBytes) {
			continue
		}

		tasks = append(tasks, restoreTask{remotePath: e.Path, localPath: local, size: e.SizeBytes})
	}

	result = Result{Duration: time.Since(start)}

	if len(tasks) == 0 {
		runLog.Info("All files are up to date.")

		result.UpToDate = true

		return result, nil
	}

	for _, t := range tasks {
		if err := os.MkdirAll(filepath.Dir(t.localPath), 0o755); err != nil { //nolint:mnd // restore-tree directory convention
			return Result{}, &engineerr.IOError{Path: filepath.Dir(t.localPath), Err: err}
		}
	}

	reporter := progress.New(o.out, int64(len(tasks)), "download")
	reporter.StartUpdates(0)

	defer reporter.StopUpdates()

	concurrency := resolveConcurrency(o.cfg, runtime.NumCPU())

	queue := transferqueue.New(concurrency, o.downloadHandler(reporter, runLog), runLog)
	queue.SetQueue(tasks)

	<-queue.Start(ctx, nil)

	result.Succeeded = int(reporter.Succeeded())
	result.Failed = int(reporter.Failed())

	reporter.RenderSummary(0, time.Since(start))

	return result, nil
}

func (o *Orchestrator) downloadHandler(
	reporter *progress.Reporter, runLog *slog.Logger,
) transferqueue.Handler[restoreTask] {
	return func(ctx context.Context, t restoreTask) transferqueue.Outcome {
		result := o.client.DownloadFileStreamed(ctx, t.remotePath, t.localPath, nil)

		if result.Success {
			reporter.RecordSuccess()

			return transferqueue.Outcome{Success: true, Identifier: t.remotePath}
		}

		reporter.RecordFailure()

		runLog.Warn("orchestrator: download failed",
			slog.String("path", t.remotePath), slog.String("message", result.Message))

		return transferqueue.Outcome{
			Success:    false,
			Identifier: t.remotePath,
			Err:        &engineerr.RemoteError{RemotePath: t.remotePath, Message: result.Message},
		}
	}
}

// listRemoteTree recursively lists every file under root.
func (o *Orchestrator) listRemoteTree(ctx context.Context, root string) ([]remoteclient.RemoteFileEntry, error) {
	listing := o.client.ListFiles(ctx, root)
	if listing.Error != nil {
		return nil, listing.Error
	}

	var files []remoteclient.RemoteFileEntry

	for _, e := range listing.Files {
		entryPath := e.Path
		if entryPath == "" {
			entryPath = path.Join(root, e.Name)
		}

		if e.IsFolder {
			sub, err := o.listRemoteTree(ctx, entryPath)
			if err != nil {
				return nil, err
			}

			files = append(files, sub...)

			continue
		}

		e.Path = entryPath
		files = append(files, e)
	}

	return files, nil
}

// isFileUpToDate compares local file size against the remote size. The
// remote CLI does not expose a content hash for downloaded entries, so
// size is the only signal available without downloading the file.
func isFileUpToDate(localPath string, remoteSize int64) bool {
	info, err := os.Stat(localPath)
	if err != nil {
		return false
	}

	return info.Size() == remoteSize
}
