// Package report renders human-readable and CSV summaries of a finished
// copy-run or verify-run. It never mutates engine state; it only reads the
// results the Supervisor already returned.
package report

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/syncopasoft/hashcopy/internal/manifest"
	"github.com/syncopasoft/hashcopy/internal/supervisor"
)

// CopyRun is a read-only view over a finished copy-run, built by the CLI
// from the Supervisor's CopyResult plus the timing it observed around the
// call.
type CopyRun struct {
	Result       supervisor.CopyResult
	HashLines    []manifest.Line
	ErroredPaths []string
	StartedAt    time.Time
	CompletedAt  time.Time
}

// VerifyRun is a read-only view over a finished verify-run.
type VerifyRun struct {
	Result      supervisor.VerifySummary
	StartedAt   time.Time
	CompletedAt time.Time
}

func (r CopyRun) duration() time.Duration {
	if r.CompletedAt.IsZero() || r.StartedAt.IsZero() {
		return 0
	}
	return r.CompletedAt.Sub(r.StartedAt)
}

func (r VerifyRun) duration() time.Duration {
	if r.CompletedAt.IsZero() || r.StartedAt.IsZero() {
		return 0
	}
	return r.CompletedAt.Sub(r.StartedAt)
}

// Summary renders a short human-readable summary of a copy-run.
func (r CopyRun) Summary() string {
	status := "complete"
	if r.Result.Partial {
		status = "partial (cancelled)"
	}
	return fmt.Sprintf(
		"copy %s: %d/%d succeeded, %d failed, manifest %s (%s)",
		status, r.Result.Succeeded, r.Result.Total, r.Result.Failed, r.Result.ManifestPath, r.duration(),
	)
}

// Summary renders a short human-readable summary of a verify-run.
func (r VerifyRun) Summary() string {
	status := "complete"
	if r.Result.Partial {
		status = "partial (cancelled)"
	}
	return fmt.Sprintf(
		"verify %s: %d/%d ok, %d mismatched, %d errors (%s)",
		status, r.Result.OK, r.Result.Total, r.Result.Mismatched, r.Result.Errors, r.duration(),
	)
}

// WriteCopyCSV writes a deterministic CSV export: a summary block, a blank
// separator row, then one row per hashed and one row per errored path.
func WriteCopyCSV(w io.Writer, r CopyRun) error {
	if w == nil {
		return errors.New("writer is nil")
	}
	cw := csv.NewWriter(w)

	summary := [][]string{
		{"summary", "started_at", formatTimestamp(r.StartedAt)},
		{"summary", "completed_at", formatTimestamp(r.CompletedAt)},
		{"summary", "duration_seconds", strconv.FormatFloat(r.duration().Seconds(), 'f', 3, 64)},
		{"summary", "total", strconv.Itoa(r.Result.Total)},
		{"summary", "succeeded", strconv.Itoa(r.Result.Succeeded)},
		{"summary", "failed", strconv.Itoa(r.Result.Failed)},
		{"summary", "partial", strconv.FormatBool(r.Result.Partial)},
	}
	for _, row := range summary {
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	if err := cw.Write(nil); err != nil {
		return err
	}

	header := []string{"status", "path", "digest"}
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, l := range r.HashLines {
		if err := cw.Write([]string{"copied", l.Path, l.DigestHex}); err != nil {
			return err
		}
	}
	for _, p := range r.ErroredPaths {
		if err := cw.Write([]string{"errored", p, ""}); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

// WriteVerifyCSV writes a deterministic CSV export for a verify-run.
func WriteVerifyCSV(w io.Writer, r VerifyRun) error {
	if w == nil {
		return errors.New("writer is nil")
	}
	cw := csv.NewWriter(w)

	summary := [][]string{
		{"summary", "started_at", formatTimestamp(r.StartedAt)},
		{"summary", "completed_at", formatTimestamp(r.CompletedAt)},
		{"summary", "duration_seconds", strconv.FormatFloat(r.duration().Seconds(), 'f', 3, 64)},
		{"summary", "total", strconv.Itoa(r.Result.Total)},
		{"summary", "ok", strconv.Itoa(r.Result.OK)},
		{"summary", "mismatched", strconv.Itoa(r.Result.Mismatched)},
		{"summary", "errors", strconv.Itoa(r.Result.Errors)},
		{"summary", "partial", strconv.FormatBool(r.Result.Partial)},
	}
	for _, row := range summary {
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	if err := cw.Write(nil); err != nil {
		return err
	}

	header := []string{"status", "path"}
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, p := range r.Result.MismatchedPaths {
		if err := cw.Write([]string{"mismatched", p}); err != nil {
			return err
		}
	}
	for _, p := range r.Result.ErrorPaths {
		if err := cw.Write([]string{"error", p}); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}
