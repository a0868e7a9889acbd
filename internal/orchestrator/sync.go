package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"runtime"
	"runtime/debug"
	"strings"
	"time"

	"github.com/tonimelisma/internxt-backup/internal/engineerr"
	"github.com/tonimelisma/internxt-backup/internal/progress"
	"github.com/tonimelisma/internxt-backup/internal/remoteclient"
	"github.com/tonimelisma/internxt-backup/internal/resumable"
	"github.com/tonimelisma/internxt-backup/internal/scanner"
	"github.com/tonimelisma/internxt-backup/internal/transferqueue"
)

// SyncOnce runs one backup pass of sourceDir to targetRoot on the remote
// store.
func (o *Orchestrator) SyncOnce(ctx context.Context, sourceDir, targetRoot string) (result Result, err error) {
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			err = &engineerr.InvariantViolation{Message: fmt.Sprintf("%v\n%s", r, debug.Stack())}
		}
	}()

	runLog, _ := runLogger(o.logger)
	runLog.Info("orchestrator: starting backup run", slog.String("source", sourceDir), slog.String("target", targetRoot))

	avail := o.client.CheckAvailability(ctx)
	if !avail.Installed || !avail.Authenticated {
		return Result{}, &engineerr.PreconditionFailure{Message: availabilityMessage(avail)}
	}

	sc := scanner.New(sourceDir, runLog, o.cfg.Force, scanner.WithScanConcurrency(o.cfg.ScanConcurrency))

	var uploader *resumable.Uploader
	if o.cfg.Resume {
		uploader = resumable.New(o.client, runLog, resumable.WithChunkSize(o.cfg.ChunkSizeBytes()),
			resumable.WithRetryPolicy(o.cfg.MaxRetries, o.cfg.RetryBaseDelay, o.cfg.RetryMaxDelay))
	}

	scanRes, scanErr := sc.Scan(ctx)
	if scanErr != nil {
		return Result{}, fmt.Errorf("orchestrator: scanning %s: %w", sourceDir, scanErr)
	}

	defer func() {
		sc.RecordCompletion()

		if err := sc.SaveState(); err != nil {
			runLog.Warn("orchestrator: failed to save scanner state", slog.Any("error", err))
		}

		if !sc.Cache().Save() {
			runLog.Warn("orchestrator: failed to save hash cache")
		}

		result.Duration = time.Since(start)
	}()

	if len(scanRes.FilesToUpload) == 0 {
		runLog.Info("All files are up to date.")

		result.UpToDate = true

		return result, nil
	}

	defer func() {
		runLog.Info("orchestrator: backup run finished",
			slog.Int("succeeded", result.Succeeded), slog.Int("failed", result.Failed))
	}()

	targetRoot = strings.TrimRight(targetRoot, "/")

	created := map[string]bool{}

	for _, dir := range collectRemoteDirs(scanRes.FilesToUpload, targetRoot) {
		if created[dir] {
			continue
		}

		res := o.client.CreateFolder(ctx, dir)
		created[dir] = true

		if !res.Success {
			runLog.Warn("orchestrator: create-folder failed, continuing",
				slog.String("remote", dir), slog.String("message", res.Message))
		}
	}

	reporter := progress.New(o.out, int64(len(scanRes.FilesToUpload)), "upload")
	reporter.StartUpdates(0)

	defer reporter.StopUpdates()

	concurrency := resolveConcurrency(o.cfg, runtime.NumCPU())

	handler := o.uploadHandler(sc, uploader, targetRoot, reporter, runLog)

	queue := transferqueue.New(concurrency, handler, runLog)
	queue.SetQueue(scanRes.FilesToUpload)

	<-queue.Start(ctx, nil)

	result.Succeeded = int(reporter.Succeeded())
	result.Failed = int(reporter.Failed())
	result.TotalBytes = scanRes.TotalBytes

	reporter.RenderSummary(scanRes.TotalBytes, time.Since(start))

	return result, nil
}

// uploadHandler builds the per-file transfer handler shared by the
// transfer queue.
func (o *Orchestrator) uploadHandler(
	sc *scanner.Scanner, uploader *resumable.Uploader, targetRoot string, reporter *progress.Reporter,
	runLog *slog.Logger,
) transferqueue.Handler[scanner.FileRecord] {
	return func(ctx context.Context, f scanner.FileRecord) transferqueue.Outcome {
		remotePath := targetRoot + "/" + f.RelativePath

		var result remoteclient.Result

		switch {
		case uploader != nil && uploader.ShouldUseResumable(f.SizeBytes):
			out, err := uploader.UploadLargeFile(ctx, f.AbsolutePath, remotePath, nil)
			if err != nil {
				result = remoteclient.Result{Success: false, Message: err.Error()}
			} else {
				result = remoteclient.Result{Success: out.Success}
				if !out.Success && out.Err != nil {
					result.Message = out.Err.Error()
				}
			}
		default:
			result = o.client.UploadFileStreamed(ctx, f.AbsolutePath, remotePath, nil)
		}

		if result.Success {
			sc.UpdateFileState(f.RelativePath, f.ContentDigest)
			reporter.RecordSuccess()

			return transferqueue.Outcome{Success: true, Identifier: f.RelativePath}
		}

		reporter.RecordFailure()

		runLog.Warn("orchestrator: upload failed",
			slog.String("path", f.RelativePath), slog.String("message", result.Message))

		return transferqueue.Outcome{
			Success:    false,
			Identifier: f.RelativePath,
			Err:        &engineerr.RemoteError{RemotePath: remotePath, Message: result.Message},
		}
	}
}

// collectRemoteDirs returns every remote directory implied by files, in an
// order where each directory's parent precedes it, with targetRoot itself
// first.
func collectRemoteDirs(files []scanner.FileRecord, targetRoot string) []string {
	if targetRoot == "" {
		targetRoot = "/"
	}

	seen := make(map[string]bool)

	var ordered []string

	var ensure func(dir string)

	ensure = func(dir string) {
		if dir == "" || seen[dir] {
			return
		}

		if dir != targetRoot {
			ensure(path.Dir(dir))
		}

		seen[dir] = true
		ordered = append(ordered, dir)
	}

	ensure(targetRoot)

	for _, f := range files {
		rel := path.Dir(f.RelativePath)

		full := targetRoot
		if rel != "." {
			full = strings.TrimSuffix(targetRoot, "/") + "/" + rel
		}

		ensure(full)
	}

	return ordered
}

func availabilityMessage(avail remoteclient.AvailabilityResult) string {
	if avail.Error != nil {
		return avail.Error.Error()
	}

	if !avail.Installed {
		return "remote CLI not installed"
	}

	return "remote CLI not authenticated"
}
