package supervisor

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/syncopasoft/hashcopy/internal/cancel"
	"github.com/syncopasoft/hashcopy/internal/manifest"
	"github.com/syncopasoft/hashcopy/internal/progress"
)

func writeList(t *testing.T, dir string, lines ...string) string {
	t.Helper()
	p := filepath.Join(dir, "list.txt")
	if err := os.WriteFile(p, []byte(strings.Join(lines, "\n")), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

// S1 — basic copy.
func TestCopyFromListBasicCopy(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "a.txt")
	if err := os.WriteFile(src, []byte("hello\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	dest := filepath.Join(dir, "out")
	list := writeList(t, dir, src)

	res, err := CopyFromList(list, dest, Options{Workers: 2})
	if err != nil {
		t.Fatal(err)
	}
	if res.Succeeded != 1 || res.Failed != 0 {
		t.Fatalf("unexpected result: %+v", res)
	}

	wantDest := filepath.Join(dest, strings.TrimPrefix(src, "/"))
	got, err := os.ReadFile(wantDest)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "hello\n" {
		t.Fatalf("destination contents differ: %q", got)
	}

	lines, err := manifest.Parse(res.ManifestPath)
	if err != nil {
		t.Fatal(err)
	}
	if len(lines) != 1 || lines[0].DigestHex != "f572d396fae9206628714fb2ce00f72e94f2258f" {
		t.Fatalf("unexpected manifest: %+v", lines)
	}
}

// S2 — multi-file with directory filter.
func TestCopyFromListSkipsDirectoriesAndBlankLines(t *testing.T) {
	dir := t.TempDir()
	subdir := filepath.Join(dir, "x")
	if err := os.Mkdir(subdir, 0o755); err != nil {
		t.Fatal(err)
	}
	bin := filepath.Join(dir, "b.bin")
	if err := os.WriteFile(bin, []byte{0x00, 0x01, 0x02, 0x03}, 0o644); err != nil {
		t.Fatal(err)
	}
	dest := filepath.Join(dir, "out")
	list := writeList(t, dir, subdir, "", bin)

	var fileDones int
	res, err := CopyFromList(list, dest, Options{
		Workers: 2,
		OnProgress: func(e progress.Event) {
			if e.Kind == progress.KindFileDone {
				fileDones++
			}
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	if fileDones != 1 {
		t.Fatalf("expected exactly one FileDone, got %d", fileDones)
	}

	lines, err := manifest.Parse(res.ManifestPath)
	if err != nil {
		t.Fatal(err)
	}
	if len(lines) != 1 || lines[0].DigestHex != "a02a05b025b928c039cf1ae7e8ee04e7c190c0db" {
		t.Fatalf("unexpected manifest: %+v", lines)
	}
	if filepath.Base(lines[0].Path) != "b.bin" {
		t.Fatalf("unexpected manifest path: %s", lines[0].Path)
	}
}

// S3 — absolute path mirroring.
func TestCopyFromListMirrorsAbsolutePaths(t *testing.T) {
	dir := t.TempDir()
	srcDir := filepath.Join(dir, "tmp", "src")
	if err := os.MkdirAll(srcDir, 0o755); err != nil {
		t.Fatal(err)
	}
	src := filepath.Join(srcDir, "c.dat")
	if err := os.WriteFile(src, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	dest := filepath.Join(dir, "out")
	list := writeList(t, dir, src)

	res, err := CopyFromList(list, dest, Options{Workers: 1})
	if err != nil {
		t.Fatal(err)
	}
	if res.Succeeded != 1 {
		t.Fatalf("expected one success, got %+v", res)
	}

	want := filepath.Join(dest, strings.TrimPrefix(src, "/"))
	if _, err := os.Stat(want); err != nil {
		t.Fatalf("expected mirrored path %s to exist: %v", want, err)
	}
}

// S4 — round-trip verify.
func TestRoundTripVerifyAfterCopy(t *testing.T) {
	dir := t.TempDir()
	bin := filepath.Join(dir, "b.bin")
	if err := os.WriteFile(bin, []byte{0x00, 0x01, 0x02, 0x03}, 0o644); err != nil {
		t.Fatal(err)
	}
	dest := filepath.Join(dir, "out")
	list := writeList(t, dir, bin)

	res, err := CopyFromList(list, dest, Options{Workers: 2})
	if err != nil {
		t.Fatal(err)
	}

	summary, err := VerifyFromManifest(res.ManifestPath, Options{Workers: 2})
	if err != nil {
		t.Fatal(err)
	}
	if summary.Total != 1 || summary.OK != 1 || summary.Mismatched != 0 || summary.Errors != 0 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
}

// S5 — mismatch detection.
func TestVerifyFromManifestDetectsMismatch(t *testing.T) {
	dir := t.TempDir()
	bin := filepath.Join(dir, "b.bin")
	if err := os.WriteFile(bin, []byte{0x00, 0x01, 0x02, 0x03}, 0o644); err != nil {
		t.Fatal(err)
	}
	dest := filepath.Join(dir, "out")
	list := writeList(t, dir, bin)

	res, err := CopyFromList(list, dest, Options{Workers: 1})
	if err != nil {
		t.Fatal(err)
	}

	mirrored := filepath.Join(dest, strings.TrimPrefix(bin, "/"))
	if err := os.WriteFile(mirrored, []byte{0x00, 0x01, 0x02, 0x04}, 0o644); err != nil {
		t.Fatal(err)
	}

	summary, err := VerifyFromManifest(res.ManifestPath, Options{Workers: 1})
	if err != nil {
		t.Fatal(err)
	}
	if summary.Total != 1 || summary.OK != 0 || summary.Mismatched != 1 || summary.Errors != 0 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if len(summary.MismatchedPaths) != 1 || summary.MismatchedPaths[0] != mirrored {
		t.Fatalf("unexpected mismatch list: %+v", summary.MismatchedPaths)
	}
}

// S6 — missing target during verify.
func TestVerifyFromManifestReportsMissingTarget(t *testing.T) {
	dir := t.TempDir()
	manifestPath := filepath.Join(dir, "hashes.sha1")
	content := "da39a3ee5e6b4b0d3255bfef95601890afd80709  " + filepath.Join(dir, "gone.txt") + "\n"
	if err := os.WriteFile(manifestPath, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	summary, err := VerifyFromManifest(manifestPath, Options{Workers: 1})
	if err != nil {
		t.Fatal(err)
	}
	if summary.Errors != 1 || summary.OK != 0 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if len(summary.ErrorPaths) != 1 || summary.ErrorPaths[0] != filepath.Join(dir, "gone.txt") {
		t.Fatalf("unexpected error paths: %+v", summary.ErrorPaths)
	}
}

func TestVerifyFromManifestEmptyManifestIsFatal(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "hashes.sha1")
	if err := os.WriteFile(p, []byte("\n\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := VerifyFromManifest(p, Options{}); err != manifest.ErrEmpty {
		t.Fatalf("expected ErrEmpty, got %v", err)
	}
}

func TestVerifyFromManifestMissingFileIsFatal(t *testing.T) {
	if _, err := VerifyFromManifest(filepath.Join(t.TempDir(), "nope.sha1"), Options{}); err == nil {
		t.Fatal("expected an error for a missing manifest file")
	}
}

// Invariant: completed_files is monotonically non-decreasing across the
// emitted Overall events.
func TestOverallCounterNeverRegresses(t *testing.T) {
	dir := t.TempDir()
	var lines []string
	for i := 0; i < 12; i++ {
		p := filepath.Join(dir, fmt.Sprintf("f%d.txt", i))
		if err := os.WriteFile(p, []byte(fmt.Sprintf("contents-%d", i)), 0o644); err != nil {
			t.Fatal(err)
		}
		lines = append(lines, p)
	}
	dest := filepath.Join(dir, "out")
	list := writeList(t, dir, lines...)

	last := -1
	_, err := CopyFromList(list, dest, Options{
		Workers: 4,
		OnProgress: func(e progress.Event) {
			if e.Kind != progress.KindOverall {
				return
			}
			if e.CompletedFiles < last {
				t.Fatalf("completed_files regressed: %d after %d", e.CompletedFiles, last)
			}
			last = e.CompletedFiles
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	if last != 12 {
		t.Fatalf("expected final completed_files == 12, got %d", last)
	}
}

// Invariant 5 in §8: cancellation before any dispatch emits only the
// initial Overall{0, N}, writes no manifest lines, and returns promptly.
func TestCancellationBeforeDispatchWritesNoLines(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "a.txt")
	if err := os.WriteFile(src, []byte("hello\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	dest := filepath.Join(dir, "out")
	list := writeList(t, dir, src)

	token := cancel.New()
	token.Cancel()

	var overallSeen []progress.Event
	done := make(chan struct{})
	var res CopyResult
	var err error
	go func() {
		res, err = CopyFromList(list, dest, Options{
			Workers: 2,
			Cancel:  token,
			OnProgress: func(e progress.Event) {
				overallSeen = append(overallSeen, e)
			},
		})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("CopyFromList did not return promptly after pre-dispatch cancellation")
	}
	if err != nil {
		t.Fatal(err)
	}
	if res.Succeeded != 0 {
		t.Fatalf("expected zero successes, got %+v", res)
	}
	lines, parseErr := manifest.Parse(res.ManifestPath)
	if parseErr != manifest.ErrEmpty {
		t.Fatalf("expected an empty manifest, got %v (%v)", lines, parseErr)
	}
	if len(overallSeen) == 0 {
		t.Fatal("expected at least the initial Overall{0, N} event")
	}
	if overallSeen[0].Kind != progress.KindOverall || overallSeen[0].CompletedFiles != 0 || overallSeen[0].TotalFiles != 1 {
		t.Fatalf("expected the first event to be Overall{0, 1}, got %+v", overallSeen[0])
	}
}

func TestManifestLinesMatchFormat(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "a.txt")
	if err := os.WriteFile(src, []byte("hello\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	dest := filepath.Join(dir, "out")
	list := writeList(t, dir, src)

	res, err := CopyFromList(list, dest, Options{Workers: 1})
	if err != nil {
		t.Fatal(err)
	}
	raw, err := os.ReadFile(res.ManifestPath)
	if err != nil {
		t.Fatal(err)
	}
	line := string(raw)
	if !strings.Contains(line, "  ") {
		t.Fatalf("manifest line missing two-space separator: %q", line)
	}
	digest := strings.SplitN(line, "  ", 2)[0]
	if len(digest) != 40 {
		t.Fatalf("expected a 40-char digest, got %q", digest)
	}
}
