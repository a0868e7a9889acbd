package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/tonimelisma/internxt-backup/internal/orchestrator"
)

func TestPrintTable(t *testing.T) {
	var buf bytes.Buffer

	headers := []string{"NAME", "SIZE", "MODIFIED"}
	rows := [][]string{
		{"file.txt", "1.2 MB", "Jan 15 10:30"},
		{"folder/", "0 B", "Feb  1 09:00"},
	}

	printTable(&buf, headers, rows)
	output := buf.String()

	assert.Contains(t, output, "NAME")
	assert.Contains(t, output, "SIZE")
	assert.Contains(t, output, "MODIFIED")
	assert.Contains(t, output, "file.txt")
	assert.Contains(t, output, "folder/")
}

func TestPrintRunSummaryUpToDate(t *testing.T) {
	old := flagQuiet
	t.Cleanup(func() { flagQuiet = old })

	flagQuiet = false

	var buf bytes.Buffer

	printRunSummary(&buf, orchestrator.Result{UpToDate: true}, "backup")

	assert.Contains(t, buf.String(), "up to date")
}

func TestPrintRunSummaryReportsCounts(t *testing.T) {
	old := flagQuiet
	t.Cleanup(func() { flagQuiet = old })

	flagQuiet = false

	var buf bytes.Buffer

	printRunSummary(&buf, orchestrator.Result{
		Succeeded: 3, Failed: 1, TotalBytes: 5242880, Duration: 2 * time.Second,
	}, "restore")

	out := buf.String()
	assert.Contains(t, out, "3 succeeded")
	assert.Contains(t, out, "1 failed")
	assert.Contains(t, out, "restore")
}

func TestPrintRunSummarySuppressedWhenQuiet(t *testing.T) {
	old := flagQuiet
	t.Cleanup(func() { flagQuiet = old })

	flagQuiet = true

	var buf bytes.Buffer

	printRunSummary(&buf, orchestrator.Result{Succeeded: 1}, "backup")

	assert.Empty(t, buf.String())
}
