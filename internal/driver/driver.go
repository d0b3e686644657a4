// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package driver runs the feed conversion batch: it validates the
// configuration, prepares the output directory, and invokes the converter
// once per feed, in file order, one at a time.
package driver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pdiddy/feed2pdf/internal/converter"
	"github.com/pdiddy/feed2pdf/internal/feedlist"
	"github.com/pdiddy/feed2pdf/internal/report"
	"github.com/pdiddy/feed2pdf/pkg/types"
)

// lockFile is created inside the output directory for the duration of a run.
const lockFile = ".feed2pdf.lock"

// Recorder persists a finished run.
type Recorder interface {
	RecordRun(ctx context.Context, summary types.RunSummary) error
}

// Option configures a Driver.
type Option func(*Driver)

// WithOutput sends banners to w instead of os.Stdout.
func WithOutput(w io.Writer) Option {
	return func(d *Driver) { d.out = w }
}

// WithLogger sets the diagnostic logger.
func WithLogger(l *zap.Logger) Option {
	return func(d *Driver) { d.log = l }
}

// WithRecorder records every run that reaches the running state.
func WithRecorder(r Recorder) Option {
	return func(d *Driver) { d.recorder = r }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(d *Driver) { d.now = now }
}

// Driver owns the iteration and invocation loop. A Driver runs once.
type Driver struct {
	cfg      types.DriverConfig
	conv     converter.Converter
	out      io.Writer
	log      *zap.Logger
	recorder Recorder
	now      func() time.Time
	state    types.RunState
}

// New creates a driver for cfg that converts feeds with conv.
func New(cfg types.DriverConfig, conv converter.Converter, opts ...Option) *Driver {
	d := &Driver{
		cfg:   cfg,
		conv:  conv,
		out:   os.Stdout,
		log:   zap.NewNop(),
		now:   time.Now,
		state: types.StateNotStarted,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// State reports where the driver is in its lifecycle.
func (d *Driver) State() types.RunState {
	return d.state
}

// Run processes every feed in the feeds file. A missing feeds file fails the
// run before the output directory is touched or the converter is called.
// What a failed conversion does to the run depends on the failure policy.
func (d *Driver) Run(ctx context.Context) (types.RunSummary, error) {
	summary := types.RunSummary{
		RunID:         uuid.NewString(),
		FeedsFile:     d.cfg.FeedsFilePath,
		OutputDir:     d.cfg.OutputDirectoryPath,
		FailurePolicy: d.cfg.FailurePolicy,
		State:         d.state,
		StartedAt:     d.now(),
	}
	if d.state != types.StateNotStarted {
		return summary, fmt.Errorf("driver already ran (state %s)", d.state)
	}

	policy, err := Validate(d.cfg)
	if err != nil {
		return d.fail(summary, err)
	}
	summary.FailurePolicy = policy

	outDir := d.cfg.OutputDirectoryPath
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return d.fail(summary, &ConfigurationError{Field: "output_directory_path", Path: outDir, Err: err})
	}

	lock := flock.New(filepath.Join(outDir, lockFile))
	locked, err := lock.TryLock()
	if err != nil {
		return d.fail(summary, fmt.Errorf("locking output directory %s: %w", outDir, err))
	}
	if !locked {
		return d.fail(summary, fmt.Errorf("%s: %w", outDir, ErrOutputLocked))
	}
	defer d.release(lock)

	feeds, err := feedlist.Open(d.cfg.FeedsFilePath)
	if err != nil {
		return d.fail(summary, &ConfigurationError{Field: "feeds_file_path", Path: d.cfg.FeedsFilePath, Err: err})
	}
	defer feeds.Close()

	d.state = types.StateRunning
	d.log.Info("run started",
		zap.String("run_id", summary.RunID),
		zap.String("feeds", d.cfg.FeedsFilePath),
		zap.String("output", outDir),
		zap.String("policy", string(policy)))
	fmt.Fprintf(d.out, "==> Converting feeds from %s into %s\n\n", d.cfg.FeedsFilePath, outDir)

	runErr := d.loop(ctx, feeds.Source, policy, &summary)
	summary.Blank = feeds.Blank()
	summary.FinishedAt = d.now()

	if runErr == nil {
		d.state = types.StateDone
		fmt.Fprintf(d.out, "==> Finished: %d feed(s) processed\n", summary.Invoked)
		if policy == types.PolicyReport && summary.HasFailures() {
			d.printFailures(summary)
			runErr = &BatchError{Policy: policy, Failed: summary.Failed}
		}
	} else {
		d.state = types.StateFailed
		fmt.Fprintf(d.out, "==> Stopped after %d feed(s): %v\n", summary.Invoked, runErr)
	}
	summary.State = d.state

	d.log.Info("run finished",
		zap.String("run_id", summary.RunID),
		zap.String("state", string(summary.State)),
		zap.Int("invoked", summary.Invoked),
		zap.Int("failed", summary.Failed),
		zap.Int("blank", summary.Blank),
		zap.Duration("elapsed", summary.FinishedAt.Sub(summary.StartedAt)))

	d.persist(ctx, summary)
	return summary, runErr
}

// Validate checks cfg without touching the output directory and returns the
// effective failure policy. Run calls it first, and the CLI calls it before
// constructing a converter backend. A missing feeds file is reported as a
// *ConfigurationError wrapping os.ErrNotExist.
func Validate(cfg types.DriverConfig) (types.FailurePolicy, error) {
	policy := cfg.FailurePolicy
	if policy == "" {
		policy = types.PolicyIgnore
	}
	if err := policy.Validate(); err != nil {
		return "", &ConfigurationError{Field: "failure_policy", Err: err}
	}
	if cfg.OutputDirectoryPath == "" {
		return "", &ConfigurationError{Field: "output_directory_path", Err: errors.New("not set")}
	}

	path := cfg.FeedsFilePath
	if path == "" {
		return "", &ConfigurationError{Field: "feeds_file_path", Err: errors.New("not set")}
	}
	info, err := os.Stat(path)
	if err != nil {
		return "", &ConfigurationError{Field: "feeds_file_path", Path: path, Err: err}
	}
	if info.IsDir() {
		return "", &ConfigurationError{Field: "feeds_file_path", Path: path, Err: errors.New("is a directory")}
	}
	return policy, nil
}

// loop converts each feed in order. It returns nil when the source is
// exhausted; under PolicyAbort it returns the first conversion failure.
func (d *Driver) loop(ctx context.Context, src *feedlist.Source, policy types.FailurePolicy, summary *types.RunSummary) error {
	for entry, err := range src.Entries() {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		fmt.Fprintf(d.out, "--> Processing feed %d: %s\n", summary.Invoked+1, entry.URL)
		inv, convErr := d.invoke(ctx, entry)
		fmt.Fprintln(d.out)

		summary.Invocations = append(summary.Invocations, inv)
		summary.Invoked++
		if convErr == nil {
			summary.Succeeded++
			continue
		}
		summary.Failed++

		if err := ctx.Err(); err != nil {
			return err
		}

		fields := []zap.Field{
			zap.Int("line", entry.Line),
			zap.String("url", entry.URL),
			zap.Int("exit_code", inv.ExitCode),
			zap.Error(convErr),
		}
		switch policy {
		case types.PolicyAbort:
			d.log.Error("conversion failed, aborting run", fields...)
			return &BatchError{Policy: policy, Failed: summary.Failed, Err: convErr}
		case types.PolicyReport:
			d.log.Warn("conversion failed", fields...)
		default:
			d.log.Debug("conversion failed", fields...)
		}
	}
	return nil
}

// invoke calls the converter for one feed and records the outcome.
func (d *Driver) invoke(ctx context.Context, entry feedlist.Entry) (types.Invocation, error) {
	inv := types.Invocation{
		Line:      entry.Line,
		URL:       entry.URL,
		OutputDir: d.cfg.OutputDirectoryPath,
		StartedAt: d.now(),
	}
	err := d.conv.Convert(ctx, entry.URL, d.cfg.OutputDirectoryPath)
	inv.Duration = d.now().Sub(inv.StartedAt)
	inv.ExitCode = converter.ExitCode(err)
	if err != nil {
		inv.Error = err.Error()
	}
	return inv, err
}

// release removes the lock file while it is still held, then unlocks it, so
// the output directory holds only converter output after a run.
func (d *Driver) release(lock *flock.Flock) {
	if err := os.Remove(lock.Path()); err != nil && !errors.Is(err, os.ErrNotExist) {
		d.log.Warn("failed to remove output lock file", zap.String("path", lock.Path()), zap.Error(err))
	}
	if err := lock.Unlock(); err != nil {
		d.log.Warn("failed to release output lock", zap.String("path", lock.Path()), zap.Error(err))
	}
}

func (d *Driver) printFailures(summary types.RunSummary) {
	fmt.Fprintf(d.out, "\n==> %d feed(s) failed:\n", summary.Failed)
	for _, inv := range summary.Failures() {
		fmt.Fprintf(d.out, "    line %d: %s (%s)\n", inv.Line, inv.URL, inv.Error)
	}
}

// fail moves the driver to the failed state before any feed is processed.
func (d *Driver) fail(summary types.RunSummary, err error) (types.RunSummary, error) {
	d.state = types.StateFailed
	summary.State = d.state
	summary.FinishedAt = d.now()
	d.log.Error("run failed before processing", zap.Error(err))
	return summary, err
}

// persist hands the summary to the recorder and the report file. Neither
// changes the outcome of the run.
func (d *Driver) persist(ctx context.Context, summary types.RunSummary) {
	ctx = context.WithoutCancel(ctx)
	if d.recorder != nil {
		if err := d.recorder.RecordRun(ctx, summary); err != nil {
			d.log.Error("failed to record run history", zap.String("run_id", summary.RunID), zap.Error(err))
		}
	}
	if d.cfg.ReportFile != "" {
		if err := report.Write(d.cfg.ReportFile, summary); err != nil {
			d.log.Error("failed to write run report", zap.String("path", d.cfg.ReportFile), zap.Error(err))
		} else {
			d.log.Info("wrote run report", zap.String("path", d.cfg.ReportFile))
		}
	}
}
