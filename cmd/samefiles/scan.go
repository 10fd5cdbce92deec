package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"samefiles/internal/config"
	"samefiles/internal/model"
	"samefiles/internal/notify"
	"samefiles/internal/progress"
	"samefiles/internal/report"
	"samefiles/internal/scanner"
	"samefiles/internal/session"
)

type scanOptions struct {
	configPath string
	output     string
	keepFirst  bool
	verbose    bool
	quiet      bool
}

func addScanFlags(fs *pflag.FlagSet, o *scanOptions) {
	fs.StringVarP(&o.configPath, "config", "c", "samefiles.yaml", "Config file path")
	fs.StringVarP(&o.output, "output", "o", "", "Write a JSON report to this file")
	fs.BoolVar(&o.keepFirst, "keep-first", false, "Delete every duplicate except the first file of each group")
	fs.BoolVarP(&o.verbose, "verbose", "v", false, "Log every tree change")
	fs.BoolVarP(&o.quiet, "quiet", "q", false, "Do not show the progress counter")
}

func newScanCmd() *cobra.Command {
	var opts scanOptions
	cmd := &cobra.Command{
		Use:   "scan <directory>",
		Short: "Scan a directory tree and group files by content",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScan(cmd.Context(), args[0], opts, cmd.OutOrStdout())
		},
	}
	addScanFlags(cmd.Flags(), &opts)
	return cmd
}

// scanDone forwards progress to the terminal counter and signals the end
// of the scan.
type scanDone struct {
	notify.Nop
	counter *progress.Counter
	done    chan int
}

func (d *scanDone) ScanProgress(count int) {
	d.counter.ScanProgress(count)
}

func (d *scanDone) ScanComplete(count int) {
	d.counter.ScanComplete(count)
	d.done <- count
}

func newLogger(level string, verbose bool) (*slog.Logger, error) {
	lvl, err := config.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	if verbose {
		lvl = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})), nil
}

func runScan(ctx context.Context, directory string, opts scanOptions, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := config.LoadConfig(opts.configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if opts.output == "" {
		opts.output = cfg.OutputFile
	}

	logger, err := newLogger(cfg.LogLevel, opts.verbose)
	if err != nil {
		return err
	}

	absDirectory, err := filepath.Abs(directory)
	if err != nil {
		return fmt.Errorf("failed to get absolute path: %w", err)
	}

	counter := progress.New(os.Stderr)
	if opts.quiet || !progress.IsTerminal(os.Stderr) {
		counter.Disable()
	}
	done := &scanDone{counter: counter, done: make(chan int, 1)}

	sess := session.New(session.Options{
		Listener: notify.Multi{notify.Log{Logger: logger}, done},
		Worker: scanner.New(scanner.Options{
			Exclude: cfg.Exclude,
			Buffer:  cfg.EventBuffer,
			Logger:  logger,
		}),
		Logger: logger,
	})

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	runErr := make(chan error, 1)
	go func() { runErr <- sess.Run(runCtx) }()

	if err := sess.StartScan(ctx, absDirectory); err != nil {
		return err
	}

	interrupts := make(chan os.Signal, 1)
	signal.Notify(interrupts, os.Interrupt)
	defer signal.Stop(interrupts)

	var count int
	select {
	case count = <-done.done:
	case <-interrupts:
		logger.Info("interrupted, stopping scan")
		sess.StopScan()
		count = <-done.done
	case err := <-runErr:
		return err
	}
	logger.Debug("scan finished", "files", count)

	if opts.keepFirst {
		if err := keepFirst(ctx, sess, logger); err != nil {
			logger.Warn("some files could not be removed", "error", err)
		}
	}

	var r *report.Report
	var buildErr error
	if err := sess.Do(ctx, func(e *model.Engine) {
		r, buildErr = report.Build(e, absDirectory)
	}); err != nil {
		return err
	}
	if buildErr != nil {
		return buildErr
	}

	report.Print(out, r)

	if opts.output != "" {
		if err := os.MkdirAll(filepath.Dir(opts.output), 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
		if err := report.Save(r, opts.output); err != nil {
			return fmt.Errorf("failed to save report: %w", err)
		}
		fmt.Fprintf(out, "  Output: %s\n", opts.output)
	}

	return nil
}

// keepFirst removes every file but the first of each group.
func keepFirst(ctx context.Context, sess *session.Session, logger *slog.Logger) error {
	var keep []model.NodeID
	if err := sess.Do(ctx, func(e *model.Engine) {
		for _, g := range e.Groups() {
			keep = append(keep, g.Files[0].ID)
		}
	}); err != nil {
		return err
	}

	var errs []error
	for _, id := range keep {
		if err := sess.DeleteGroupExceptOne(ctx, id); err != nil {
			errs = append(errs, err)
		}
	}
	logger.Info("removed duplicates", "groups", len(keep), "failures", len(errs))
	return errors.Join(errs...)
}
