// Package remoteclient invokes the external "internxt" CLI and
// parses its stdout/stderr. It never aborts the process on a single
// operation's failure; every outcome is returned as data.
package remoteclient

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strings"
)

// DefaultBinary is the external CLI name looked up on PATH.
const DefaultBinary = "internxt"

// CLIClient is the production Client, shelling out to the external CLI.
//
// Path arguments are passed as individual exec.Command argv entries, never
// concatenated into a shell string, so CLIClient never has to worry about
// quote escaping.
type CLIClient struct {
	binary string
	logger *slog.Logger
}

// New creates a CLIClient invoking binary (DefaultBinary if empty).
func New(binary string, logger *slog.Logger) *CLIClient {
	if binary == "" {
		binary = DefaultBinary
	}

	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &CLIClient{binary: binary, logger: logger}
}

var _ Client = (*CLIClient)(nil)

// CheckAvailability runs "--version" first; empty output means not
// installed. A cheap authenticated call (listing the remote root) then
// distinguishes installed-but-unauthenticated.
func (c *CLIClient) CheckAvailability(ctx context.Context) AvailabilityResult {
	out, err := c.run(ctx, "--version")
	version := strings.TrimSpace(out)

	if version == "" {
		return AvailabilityResult{Installed: false, Error: err}
	}

	list := c.ListFiles(ctx, "/")
	if list.Error != nil {
		return AvailabilityResult{Installed: true, Authenticated: false, Version: version, Error: list.Error}
	}

	return AvailabilityResult{Installed: true, Authenticated: true, Version: version}
}

// UploadFile runs "upload-file" to completion with no progress reporting.
func (c *CLIClient) UploadFile(ctx context.Context, local, remote string) Result {
	return c.runResult(ctx, false, "upload-file", local, remote)
}

// UploadFileStreamed runs "upload-file" while forwarding percent matches
// from the CLI's combined output to onPercent as they arrive.
func (c *CLIClient) UploadFileStreamed(ctx context.Context, local, remote string, onPercent PercentFunc) Result {
	return c.runStreamed(ctx, false, onPercent, "upload-file", local, remote)
}

// DownloadFile runs "download-file" to completion with no progress reporting.
func (c *CLIClient) DownloadFile(ctx context.Context, remote, local string) Result {
	return c.runResult(ctx, false, "download-file", remote, local)
}

// DownloadFileStreamed runs "download-file" while forwarding percent
// matches from the CLI's combined output to onPercent as they arrive.
func (c *CLIClient) DownloadFileStreamed(ctx context.Context, remote, local string, onPercent PercentFunc) Result {
	return c.runStreamed(ctx, false, onPercent, "download-file", remote, local)
}

// CreateFolder runs "create-folder". "already exists" in the output is
// treated as success rather than failure.
func (c *CLIClient) CreateFolder(ctx context.Context, remote string) Result {
	return c.runResult(ctx, true, "create-folder", remote)
}

// ListFiles runs "list-files --format=json" and parses the result,
// falling back to line-based parsing on JSON failure.
func (c *CLIClient) ListFiles(ctx context.Context, remote string) ListResult {
	out, err := c.run(ctx, "list-files", remote, "--format=json")
	if err != nil && out == "" {
		return ListResult{Error: fmt.Errorf("list-files %s: %w", remote, err)}
	}

	if looksLikeFailure(out, false) {
		return ListResult{Error: fmt.Errorf("list-files %s: %s", remote, strings.TrimSpace(out))}
	}

	return ListResult{Files: parseListFiles(out)}
}

// FileExists reports whether remote exists by listing it; any failure
// (including "not found" style CLI output) is treated as non-existence.
func (c *CLIClient) FileExists(ctx context.Context, remote string) bool {
	res := c.ListFiles(ctx, remote)

	return res.Error == nil && len(res.Files) > 0
}

// DeleteFile runs "delete --permanent".
func (c *CLIClient) DeleteFile(ctx context.Context, remote string) bool {
	res := c.runResult(ctx, false, "delete", remote, "--permanent")

	return res.Success
}

// run invokes the CLI with args and returns its combined stdout+stderr.
func (c *CLIClient) run(ctx context.Context, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, c.binary, args...)

	out, err := cmd.CombinedOutput()

	c.logger.Debug("remoteclient: invoked CLI",
		slog.String("binary", c.binary),
		slog.Any("args", args),
		slog.Int("output_len", len(out)),
	)

	return string(out), err
}

// runResult invokes the CLI and classifies the combined output using the
// error/failed substring rule.
func (c *CLIClient) runResult(ctx context.Context, isCreateFolder bool, args ...string) Result {
	out, _ := c.run(ctx, args...)

	if looksLikeFailure(out, isCreateFolder) {
		return Result{Success: false, Message: strings.TrimSpace(out)}
	}

	return Result{Success: true, Message: strings.TrimSpace(out)}
}

// runStreamed invokes the CLI, scanning its combined output line by line so
// percent matches can be forwarded to onPercent as they occur, then
// classifies the full output the same way runResult does.
func (c *CLIClient) runStreamed(
	ctx context.Context, isCreateFolder bool, onPercent PercentFunc, args ...string,
) Result {
	cmd := exec.CommandContext(ctx, c.binary, args...)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return Result{Success: false, Message: err.Error()}
	}

	cmd.Stderr = cmd.Stdout

	if err := cmd.Start(); err != nil {
		return Result{Success: false, Message: err.Error()}
	}

	var full strings.Builder

	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, 4096), 1024*1024)

	for scanner.Scan() {
		line := scanner.Text()
		full.WriteString(line)
		full.WriteByte('\n')

		if onPercent != nil {
			for _, p := range extractPercents(line) {
				onPercent(p)
			}
		}
	}

	waitErr := cmd.Wait()
	out := full.String()

	c.logger.Debug("remoteclient: streamed CLI invocation complete",
		slog.String("binary", c.binary),
		slog.Any("args", args),
		slog.Bool("wait_error", waitErr != nil),
	)

	if looksLikeFailure(out, isCreateFolder) {
		return Result{Success: false, Message: strings.TrimSpace(out)}
	}

	return Result{Success: true, Message: strings.TrimSpace(out)}
}
