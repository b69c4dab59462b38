// Package cli wires the hashcopy engine to two cobra subcommands, printing
// plain single-line progress text and owning process exit codes. It does
// not render ANSI progress bars — that remains the out-of-scope rendering
// concern the engine itself never depends on.
package cli

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/syncopasoft/hashcopy/internal/cancel"
	"github.com/syncopasoft/hashcopy/internal/config"
	"github.com/syncopasoft/hashcopy/internal/manifest"
	"github.com/syncopasoft/hashcopy/internal/progress"
	"github.com/syncopasoft/hashcopy/internal/report"
	"github.com/syncopasoft/hashcopy/internal/supervisor"
)

// NewRootCommand builds the hashcopy command tree: `copy` and `verify`.
func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "hashcopy",
		Short: "Copy and verify files with integrated SHA-1 manifests",
	}
	root.AddCommand(newCopyCommand(), newVerifyCommand())
	return root
}

func newCopyCommand() *cobra.Command {
	var (
		list       string
		dest       string
		workers    int
		saveLists  bool
		reportCSV  string
		configPath string
	)
	cmd := &cobra.Command{
		Use:   "copy",
		Short: "Copy every path in a list file into a destination, hashing as it goes",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadRunConfig(configPath, workers, saveLists)
			if err != nil {
				return err
			}
			log := newLogger(cfg.LogLevel)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			token := cancel.New()
			go func() {
				<-ctx.Done()
				token.Cancel()
			}()

			started := time.Now()
			res, err := supervisor.CopyFromList(list, dest, supervisor.Options{
				Workers:    cfg.Workers,
				SaveLists:  cfg.SaveLists,
				OnProgress: newProgressPrinter(),
				Cancel:     token,
				Log:        log,
			})
			if err != nil {
				return err
			}
			run := report.CopyRun{Result: res, StartedAt: started, CompletedAt: time.Now()}
			if lines, err := manifest.Parse(res.ManifestPath); err == nil {
				run.HashLines = lines
			}
			if cfg.SaveLists {
				if raw, err := os.ReadFile(filepath.Join(dest, "errored.txt")); err == nil {
					run.ErroredPaths = splitNonEmptyLines(string(raw))
				}
			}
			fmt.Println(run.Summary())

			if reportCSV != "" {
				if err := writeCopyReportCSV(reportCSV, run); err != nil {
					return err
				}
			}
			if res.Failed > 0 {
				return fmt.Errorf("%d of %d files failed to copy", res.Failed, res.Total)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&list, "list", "", "path to the input list file (required)")
	cmd.Flags().StringVar(&dest, "dest", "", "destination directory (required)")
	cmd.Flags().IntVar(&workers, "workers", 0, "worker count (0 = runtime.NumCPU())")
	cmd.Flags().BoolVar(&saveLists, "save-lists", false, "write copied.txt/errored.txt alongside the manifest")
	cmd.Flags().StringVar(&reportCSV, "report-csv", "", "optional path to write a CSV report")
	cmd.Flags().StringVar(&configPath, "config", "", "optional JSON config file")
	cmd.MarkFlagRequired("list")
	cmd.MarkFlagRequired("dest")
	return cmd
}

func newVerifyCommand() *cobra.Command {
	var (
		manifestPath string
		workers      int
		reportCSV    string
		configPath   string
	)
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Re-hash every file a manifest names and report matches/mismatches",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadRunConfig(configPath, workers, false)
			if err != nil {
				return err
			}
			log := newLogger(cfg.LogLevel)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			token := cancel.New()
			go func() {
				<-ctx.Done()
				token.Cancel()
			}()

			started := time.Now()
			summary, err := supervisor.VerifyFromManifest(manifestPath, supervisor.Options{
				Workers:    cfg.Workers,
				OnProgress: newProgressPrinter(),
				Cancel:     token,
				Log:        log,
			})
			if err != nil {
				return err
			}
			run := report.VerifyRun{Result: summary, StartedAt: started, CompletedAt: time.Now()}
			fmt.Println(run.Summary())

			if reportCSV != "" {
				if err := writeVerifyReportCSV(reportCSV, run); err != nil {
					return err
				}
			}
			if summary.Mismatched > 0 || summary.Errors > 0 {
				return fmt.Errorf("%d mismatched, %d errored out of %d", summary.Mismatched, summary.Errors, summary.Total)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&manifestPath, "manifest", "", "path to the hashes.sha1 manifest (required)")
	cmd.Flags().IntVar(&workers, "workers", 0, "worker count (0 = runtime.NumCPU())")
	cmd.Flags().StringVar(&reportCSV, "report-csv", "", "optional path to write a CSV report")
	cmd.Flags().StringVar(&configPath, "config", "", "optional JSON config file")
	cmd.MarkFlagRequired("manifest")
	return cmd
}

func loadRunConfig(path string, workersFlag int, saveListsFlag bool) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.LoadEnvDefaults(".env"); err != nil {
		return nil, err
	}
	if workersFlag != 0 {
		cfg.Workers = workersFlag
	}
	if saveListsFlag {
		cfg.SaveLists = true
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newLogger(level string) *logrus.Logger {
	log := logrus.New()
	if lvl, err := logrus.ParseLevel(level); err == nil {
		log.SetLevel(lvl)
	}
	return log
}

// newProgressPrinter renders a ProgressEvent as one plain line (no ANSI
// bars). FileProgress lines are suppressed when stdout is not a terminal,
// since a redirected run has no one watching them scroll by; FileDone and
// Overall are always printed.
func newProgressPrinter() func(progress.Event) {
	interactive := term.IsTerminal(int(os.Stdout.Fd()))
	return func(e progress.Event) {
		switch e.Kind {
		case progress.KindFileProgress:
			if interactive {
				fmt.Printf("progress %s %d/%d\n", e.Path, e.BytesSoFar, e.BytesTotal)
			}
		case progress.KindFileDone:
			fmt.Printf("done %s (%d/%d)\n", e.Path, e.CompletedFiles, e.TotalFiles)
		case progress.KindOverall:
			fmt.Printf("overall %d/%d\n", e.CompletedFiles, e.TotalFiles)
		}
	}
}

func writeCopyReportCSV(path string, run report.CopyRun) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return report.WriteCopyCSV(f, run)
}

func writeVerifyReportCSV(path string, run report.VerifyRun) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return report.WriteVerifyCSV(f, run)
}

func splitNonEmptyLines(s string) []string {
	var out []string
	for _, l := range strings.Split(s, "\n") {
		if l != "" {
			out = append(out, l)
		}
	}
	return out
}
