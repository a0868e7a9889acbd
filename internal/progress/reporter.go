// Package progress renders a single-line progress bar that coexists with
// incidental log output without corrupting the terminal.
package progress

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
)

const (
	barWidth              = 40
	filledCell            = "█"
	emptyCell             = "░"
	defaultUpdateInterval = 250 * time.Millisecond
	eraseSeq              = "\r\x1b[K"
)

// Reporter tracks success/failure counts against a known total and renders
// a bar reflecting progress. Safe for concurrent use by multiple transfer
// workers calling RecordSuccess/RecordFailure.
type Reporter struct {
	mu sync.Mutex

	total     int64
	succeeded int64
	failed    int64

	out      io.Writer
	isTTY    bool
	visible  bool
	updating bool
	inWrite  bool

	label string

	stop chan struct{}
	done chan struct{}
}

// New creates a Reporter for a batch of total items, writing to out (a real
// terminal file descriptor is assumed when isatty reports true). label
// prefixes the rendered line, e.g. "upload" or "download".
func New(out io.Writer, total int64, label string) *Reporter {
	r := &Reporter{
		total: total,
		out:   out,
		label: label,
	}

	if f, ok := out.(interface{ Fd() uintptr }); ok {
		r.isTTY = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}

	return r
}

// Writer exposes the Reporter as an io.Writer suitable for a logger's
// output so log lines never land in the middle of a visible bar.
func (r *Reporter) Writer() io.Writer { return r }

// Write implements io.Writer. A log line arriving while the bar is visible
// erases the bar, emits the line, and schedules a redraw. Writes made from
// inside Write itself (e.g. a logger call triggered by the redraw) are
// passed through unchanged by the re-entrancy guard below.
func (r *Reporter) Write(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.inWrite {
		return r.out.Write(p)
	}

	r.inWrite = true
	defer func() { r.inWrite = false }()

	if r.visible {
		r.eraseLocked()
	}

	n, err := r.out.Write(p)
	if err != nil {
		return n, err
	}

	if len(p) > 0 && p[len(p)-1] != '\n' {
		if _, werr := r.out.Write([]byte("\n")); werr != nil {
			return n, werr
		}
	}

	if r.updating {
		r.renderLocked()
	}

	return n, nil
}

// RecordSuccess increments the success counter.
func (r *Reporter) RecordSuccess() {
	r.record(true)
}

// RecordFailure increments the failure counter.
func (r *Reporter) RecordFailure() {
	r.record(false)
}

func (r *Reporter) record(success bool) {
	r.mu.Lock()

	if success {
		r.succeeded++
	} else {
		r.failed++
	}

	processed := r.succeeded + r.failed
	reachedTotal := r.total > 0 && processed >= r.total

	if r.updating {
		r.renderLocked()
	}

	r.mu.Unlock()

	if reachedTotal {
		// Reaching processed == total emits a trailing newline and auto-stops.
		r.StopUpdates()
	}
}

// StartUpdates begins a periodic rerender on a timer.
func (r *Reporter) StartUpdates(interval time.Duration) {
	if interval <= 0 {
		interval = defaultUpdateInterval
	}

	r.mu.Lock()
	if r.updating {
		r.mu.Unlock()

		return
	}

	r.updating = true
	r.stop = make(chan struct{})
	r.done = make(chan struct{})
	r.renderLocked()
	stop, done := r.stop, r.done
	r.mu.Unlock()

	go r.updateLoop(interval, stop, done)
}

func (r *Reporter) updateLoop(interval time.Duration, stop, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			r.mu.Lock()
			if r.updating {
				r.renderLocked()
			}
			r.mu.Unlock()
		}
	}
}

// StopUpdates cancels the timer and uninstalls interceptors.
// Idempotent.
func (r *Reporter) StopUpdates() {
	r.mu.Lock()

	if !r.updating {
		r.mu.Unlock()

		return
	}

	r.updating = false

	if r.visible {
		r.eraseLocked()

		if _, err := r.out.Write([]byte("\n")); err != nil {
			r.mu.Unlock()

			return
		}

		r.visible = false
	}

	stop, done := r.stop, r.done
	r.mu.Unlock()

	close(stop)
	<-done
}

// renderLocked draws the bar; caller must hold r.mu. No-op when the output
// is not a terminal — a non-interactive run still tracks counters but
// never writes carriage-return-driven lines that would corrupt a redirected
// log or pipe.
func (r *Reporter) renderLocked() {
	if !r.isTTY {
		return
	}

	processed := r.succeeded + r.failed

	percent := 100
	if r.total > 0 {
		percent = int(float64(processed) / float64(r.total) * 100) //nolint:mnd // floor via int truncation
	}

	filled := percent * barWidth / 100
	if filled > barWidth {
		filled = barWidth
	}

	bar := strings.Repeat(filledCell, filled) + strings.Repeat(emptyCell, barWidth-filled)

	line := fmt.Sprintf("\r[%s] %3d%% (%d/%d) %s", bar, percent, processed, r.total, r.label)

	if _, err := fmt.Fprint(r.out, line); err != nil {
		return
	}

	r.visible = true
}

func (r *Reporter) eraseLocked() {
	fmt.Fprint(r.out, eraseSeq) //nolint:errcheck // best-effort terminal control
	r.visible = false
}

// RenderSummary prints a final one-line outcome.
func (r *Reporter) RenderSummary(totalBytes int64, elapsed time.Duration) {
	r.mu.Lock()
	succeeded, failed := r.succeeded, r.failed
	r.mu.Unlock()

	successColor := color.New(color.FgGreen)
	failureColor := color.New(color.FgRed)

	summary := fmt.Sprintf("%s, %s, %s transferred in %s",
		successColor.Sprintf("%d succeeded", succeeded),
		failureColor.Sprintf("%d failed", failed),
		humanize.Bytes(uint64(totalBytes)), //nolint:gosec // totalBytes is never negative in practice
		elapsed.Round(time.Second),
	)

	fmt.Fprintln(r.out, summary) //nolint:errcheck // best-effort terminal output
}

// Handler returns an slog.Handler that writes through the reporter so log
// lines never collide with a visible bar.
func (r *Reporter) Handler(level slog.Leveler) slog.Handler {
	return slog.NewTextHandler(r, &slog.HandlerOptions{Level: level})
}

// Succeeded and Failed expose current counters, e.g. for orchestrator exit
// codes.
func (r *Reporter) Succeeded() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.succeeded
}

func (r *Reporter) Failed() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.failed
}
