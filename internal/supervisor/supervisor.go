// Package supervisor is the control core: one Supervisor per copy-run or
// verify-run. It owns the task queue, the idle-worker set, progress
// aggregation, cancellation, and finalization. The worker pool below it
// never accumulates state of its own beyond its inbox handle.
package supervisor

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/syncopasoft/hashcopy/internal/cancel"
	"github.com/syncopasoft/hashcopy/internal/manifest"
	"github.com/syncopasoft/hashcopy/internal/progress"
	"github.com/syncopasoft/hashcopy/internal/task"
	"github.com/syncopasoft/hashcopy/internal/worker"
)

const manifestName = "hashes.sha1"

// Options configures one run. Workers <= 0 means "use runtime.NumCPU()" and
// is resolved by the Supervisor when it spawns the pool.
type Options struct {
	Workers    int
	SaveLists  bool
	OnProgress func(progress.Event)
	Cancel     *cancel.Token
	Log        *logrus.Logger
}

func (o Options) logger() *logrus.Logger {
	if o.Log != nil {
		return o.Log
	}
	return logrus.StandardLogger()
}

func (o Options) emit(e progress.Event) {
	if o.OnProgress != nil {
		o.OnProgress(e)
	}
}

func (o Options) token() *cancel.Token {
	if o.Cancel != nil {
		return o.Cancel
	}
	return cancel.New()
}

// CopyResult is the outcome of CopyFromList.
type CopyResult struct {
	Total        int
	Succeeded    int
	Failed       int
	ManifestPath string
	Partial      bool
}

// VerifySummary is the outcome of VerifyFromManifest.
type VerifySummary struct {
	Total           int
	OK              int
	Mismatched      int
	Errors          int
	MismatchedPaths []string
	ErrorPaths      []string
	Partial         bool
}

// CopyFromList reads listPath (one source path per line), mirrors every
// entry under destDir, and writes destDir/hashes.sha1 at finalization.
func CopyFromList(listPath, destDir string, opts Options) (CopyResult, error) {
	log := opts.logger()
	tasks, err := readCopyList(listPath, destDir)
	if err != nil {
		return CopyResult{}, err
	}

	total := len(tasks)
	opts.emit(progress.Overall(0, total))

	manifestPath := filepath.Join(destDir, manifestName)
	os.Remove(manifestPath)

	if total == 0 {
		f, err := os.Create(manifestPath)
		if err != nil {
			return CopyResult{}, err
		}
		f.Close()
		return CopyResult{Total: 0, ManifestPath: manifestPath}, nil
	}

	for _, t := range tasks {
		if err := os.MkdirAll(filepath.Dir(t.Dest), 0o755); err != nil {
			return CopyResult{}, err
		}
	}

	queue := make([]worker.Command, total)
	for i, t := range tasks {
		tt := t
		queue[i] = worker.Command{Kind: worker.CmdTask, Copy: &tt}
	}

	var hashLines []manifest.Line
	var copiedPaths []string
	var erroredSources []string

	cancelled, completed := runDispatchLoop(opts, queue, total,
		func(line manifest.Line) {
			hashLines = append(hashLines, line)
			copiedPaths = append(copiedPaths, line.Path)
		},
		nil,
		func(source string, err error) {
			erroredSources = append(erroredSources, source)
			log.WithError(err).WithField("source", source).Warn("copy task failed")
		},
	)

	f, err := os.Create(manifestPath)
	if err != nil {
		return CopyResult{}, err
	}
	if err := manifest.Render(f, hashLines); err != nil {
		f.Close()
		return CopyResult{}, err
	}
	if err := f.Close(); err != nil {
		return CopyResult{}, err
	}

	if opts.SaveLists {
		if err := writeLines(filepath.Join(destDir, "copied.txt"), copiedPaths); err != nil {
			return CopyResult{}, err
		}
		if err := writeLines(filepath.Join(destDir, "errored.txt"), erroredSources); err != nil {
			return CopyResult{}, err
		}
	}

	if cancelled {
		log.WithField("completed", completed).WithField("total", total).
			Warn("copy run cancelled; artifacts reflect a partial run")
	}

	return CopyResult{
		Total:        total,
		Succeeded:    len(hashLines),
		Failed:       len(erroredSources),
		ManifestPath: manifestPath,
		Partial:      cancelled,
	}, nil
}

// VerifyFromManifest re-hashes every file a manifest names and compares the
// digest to the recorded one. It writes no files.
func VerifyFromManifest(manifestPath string, opts Options) (VerifySummary, error) {
	log := opts.logger()
	lines, err := manifest.Parse(manifestPath)
	if err != nil {
		return VerifySummary{}, err
	}

	total := len(lines)
	opts.emit(progress.Overall(0, total))

	queue := make([]worker.Command, total)
	for i, l := range lines {
		queue[i] = worker.Command{Kind: worker.CmdTask, Verify: &task.VerifyTask{
			Path:        l.Path,
			ExpectedHex: l.DigestHex,
		}}
	}

	summary := VerifySummary{Total: total}

	cancelled, _ := runDispatchLoop(opts, queue, total,
		nil,
		func(path, expected, actual string, match bool) {
			if match {
				summary.OK++
			} else {
				summary.Mismatched++
				summary.MismatchedPaths = append(summary.MismatchedPaths, path)
			}
		},
		func(source string, err error) {
			summary.Errors++
			summary.ErrorPaths = append(summary.ErrorPaths, source)
			log.WithError(err).WithField("path", source).Warn("verify task failed")
		},
	)

	summary.Partial = cancelled
	return summary, nil
}

// runDispatchLoop owns the Worker Pool for the duration of one run. It
// spawns Workers, dispatches queue entries to idle workers exactly once per
// loop iteration, and aggregates results until the queue drains or the
// token is tripped. onHash is nil for verify-runs; onVerified is nil for
// copy-runs.
func runDispatchLoop(
	opts Options,
	queue []worker.Command,
	total int,
	onHash func(manifest.Line),
	onVerified func(path, expected, actual string, match bool),
	onError func(source string, err error),
) (cancelled bool, completed int) {
	workers := opts.Workers
	if workers <= 0 {
		workers = defaultWorkerCount()
	}
	token := opts.token()

	ctx, stop := context.WithCancel(context.Background())
	defer stop()
	go func() {
		select {
		case <-token.Done():
			stop()
		case <-ctx.Done():
		}
	}()

	results := make(chan worker.Event)
	group, gctx := errgroup.WithContext(ctx)
	for i := 0; i < workers; i++ {
		group.Go(func() error {
			worker.Run(gctx, results)
			return nil
		})
	}

	var idle []chan worker.Command
	var active int

	dispatch := func() {
		for !token.Cancelled() && len(queue) > 0 && len(idle) > 0 {
			cmd := queue[0]
			w := idle[0]
			select {
			case w <- cmd:
				queue = queue[1:]
				idle = idle[1:]
				active++
			case <-ctx.Done():
				return
			}
		}
	}

	drain := func() {
		for {
			select {
			case e := <-results:
				handleEvent(e, &idle, &active, &completed, total, opts, onHash, onVerified, onError)
			default:
				return
			}
		}
	}

	// shutdownIdleAfterCancel tells every idle worker to exit, but a worker
	// may have already returned on its own ctx.Done() case without ever
	// reaching its inbox select again, so the send must not block.
	shutdownIdleAfterCancel := func() {
		for _, w := range idle {
			select {
			case w <- worker.Command{Kind: worker.CmdShutdown}:
			default:
			}
		}
	}

	// shutdownIdleOnCompletion tells every idle worker to exit once the
	// queue has drained normally. ctx is still live here (it is cancelled
	// by stop() just before group.Wait()), so every worker in idle is
	// genuinely waiting on its inbox select and a plain blocking send is
	// safe — and necessary, since a non-blocking send could race a worker
	// that posted EvtDone but has not yet re-entered its select, dropping
	// the Shutdown and hanging group.Wait(). Workers that never got to
	// announce EvtReady are not in idle; the stop() before group.Wait()
	// releases them.
	shutdownIdleOnCompletion := func() {
		for _, w := range idle {
			w <- worker.Command{Kind: worker.CmdShutdown}
		}
	}

loop:
	for {
		dispatch()

		if token.Cancelled() {
			drain()
			shutdownIdleAfterCancel()
			cancelled = true
			break loop
		}

		if len(queue) == 0 && active == 0 {
			shutdownIdleOnCompletion()
			break loop
		}

		select {
		case <-token.Done():
			drain()
			shutdownIdleAfterCancel()
			cancelled = true
			break loop
		case e := <-results:
			handleEvent(e, &idle, &active, &completed, total, opts, onHash, onVerified, onError)
		}
	}

	stop()
	group.Wait()
	return cancelled, completed
}

func handleEvent(
	e worker.Event,
	idle *[]chan worker.Command,
	active *int,
	completed *int,
	total int,
	opts Options,
	onHash func(manifest.Line),
	onVerified func(path, expected, actual string, match bool),
	onError func(source string, err error),
) {
	switch e.Kind {
	case worker.EvtReady:
		*idle = append(*idle, e.Inbox)
	case worker.EvtProgress:
		opts.emit(e.Progress)
	case worker.EvtHash:
		if onHash != nil {
			onHash(e.Hash)
		}
	case worker.EvtVerified:
		if onVerified != nil {
			onVerified(e.VerifyPath, e.ExpectedDigest, e.ActualDigest, e.Match)
		}
	case worker.EvtError:
		if onError != nil {
			onError(e.Source, e.Err)
		}
	case worker.EvtDone:
		*completed++
		*active--
		*idle = append(*idle, e.Inbox)
		opts.emit(progress.FileDone(e.Source, *completed, total))
		opts.emit(progress.Overall(*completed, total))
	}
}

// readCopyList parses a list file into CopyTasks, skipping blank lines and
// paths that resolve to existing directories, and computing each
// destination by stripping a leading "/" and joining under destDir.
func readCopyList(listPath, destDir string) ([]task.CopyTask, error) {
	raw, err := os.ReadFile(listPath)
	if err != nil {
		return nil, err
	}

	var tasks []task.CopyTask
	for _, line := range strings.Split(string(raw), "\n") {
		source := strings.TrimSpace(line)
		if source == "" {
			continue
		}
		if info, err := os.Stat(source); err == nil && info.IsDir() {
			continue
		}
		dest := filepath.Join(destDir, strings.TrimPrefix(source, "/"))
		tasks = append(tasks, task.CopyTask{Source: source, Dest: dest})
	}
	return tasks, nil
}

func defaultWorkerCount() int {
	if n := runtime.NumCPU(); n > 0 {
		return n
	}
	return 1
}

func writeLines(path string, lines []string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	for _, l := range lines {
		if _, err := f.WriteString(l + "\n"); err != nil {
			return err
		}
	}
	return nil
}
