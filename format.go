package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"

	"github.com/tonimelisma/internxt-backup/internal/orchestrator"
)

// successColor, warnColor, and errorColor render the green, yellow, and red
// summary lines: green on full success, yellow on partial failure, red on
// a fatal error.
func successColor() func(string) string { return color.New(color.FgGreen).SprintFunc() }
func warnColor() func(string) string    { return color.New(color.FgYellow).SprintFunc() }
func errorColor() func(string) string   { return color.New(color.FgRed).SprintFunc() }

// printRunSummary renders one run's outcome to stdout, colored by whether
// every attempted transfer succeeded.
// Quiet mode suppresses it; the run's exit code is decided independently
// by the caller.
func printRunSummary(out io.Writer, result orchestrator.Result, verb string) {
	if flagQuiet {
		return
	}

	if result.UpToDate {
		fmt.Fprintln(out, successColor()(fmt.Sprintf("%s: all files are up to date.", verb)))

		return
	}

	line := fmt.Sprintf("%s: %d succeeded, %d failed, %s transferred in %s",
		verb, result.Succeeded, result.Failed, humanize.Bytes(uint64(result.TotalBytes)), result.Duration.Round(time.Millisecond))

	if result.Failed > 0 {
		fmt.Fprintln(out, warnColor()(line))

		return
	}

	fmt.Fprintln(out, successColor()(line))
}

// printTable writes aligned columns to w. headers and each row must have
// the same length.
func printTable(w io.Writer, headers []string, rows [][]string) {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = len(h)
	}

	for _, row := range rows {
		for i, cell := range row {
			if len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	printRow(w, headers, widths)

	for _, row := range rows {
		printRow(w, row, widths)
	}
}

func printRow(w io.Writer, cells []string, widths []int) {
	parts := make([]string, len(cells))
	for i, cell := range cells {
		parts[i] = fmt.Sprintf("%-*s", widths[i], cell)
	}

	fmt.Fprintln(w, strings.Join(parts, "  "))
}
