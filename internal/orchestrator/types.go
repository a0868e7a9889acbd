// Package orchestrator wires the scanner, hash cache, transfer queue,
// resumable uploader, and progress reporter into the backup and restore
// pipelines, and hosts the cron-driven daemon loop.
package orchestrator

import (
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/tonimelisma/internxt-backup/internal/config"
	"github.com/tonimelisma/internxt-backup/internal/remoteclient"
)

// Result reports one run's outcome, whether backup or restore.
type Result struct {
	Succeeded  int
	Failed     int
	TotalBytes int64
	Duration   time.Duration
	UpToDate   bool
}

// Orchestrator owns one run's component lifecycle.
type Orchestrator struct {
	client remoteclient.Client
	cfg    *config.Config
	logger *slog.Logger
	out    io.Writer
}

// New creates an Orchestrator for one configured run. Progress bars render
// to os.Stderr by default; use WithOutput in tests to capture them.
func New(client remoteclient.Client, cfg *config.Config, logger *slog.Logger, opts ...Option) *Orchestrator {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	o := &Orchestrator{client: client, cfg: cfg, logger: logger, out: os.Stderr}

	for _, opt := range opts {
		opt(o)
	}

	return o
}

// Option configures New.
type Option func(*Orchestrator)

// WithOutput overrides where the progress bar and summary render.
func WithOutput(w io.Writer) Option {
	return func(o *Orchestrator) { o.out = w }
}

// runLogger tags every log line of one run with a short correlation ID, so
// concurrent or sequential runs' interleaved output (daemon mode especially)
// can be told apart in a shared log stream.
func runLogger(base *slog.Logger) (*slog.Logger, string) {
	runID := uuid.New().String()

	return base.With(slog.String("run_id", runID)), runID
}

// resolveConcurrency picks config.cores if set, otherwise
// max(1, floor(cpuCount*2/3)).
func resolveConcurrency(cfg *config.Config, numCPU int) int {
	if cfg.Cores > 0 {
		return cfg.Cores
	}

	c := numCPU * 2 / 3
	if c < 1 {
		c = 1
	}

	return c
}
