// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"io"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/pdiddy/feed2pdf/internal/converter"
	"github.com/pdiddy/feed2pdf/internal/driver"
	"github.com/pdiddy/feed2pdf/internal/history"
	"github.com/pdiddy/feed2pdf/pkg/types"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Convert every feed in the feeds file to PDF",
	Long: `Run reads the feeds file and invokes the converter once per non-blank
line with two arguments: the feed URL and the output directory. The output
directory is created if it does not exist. A missing feeds file aborts the
run before anything is converted.

--on-failure selects what a failed conversion does:
  ignore  keep going and exit 0 (default)
  report  keep going, list the failures, and exit 1
  abort   stop at the first failure and exit 1`,
	Args: cobra.NoArgs,
	RunE: runRun,
}

func init() {
	f := runCmd.Flags()
	f.String("feeds", defaultFeedsFile, "file listing one feed URL per line")
	f.String("output-dir", defaultOutputDir, "directory the converter writes PDFs into")
	f.String("on-failure", string(types.PolicyIgnore), "failure policy: ignore, report, or abort")
	f.String("report", "", "write a YAML run report to this path")
	f.Bool("dry-run", false, "print converter invocations without running them")
	f.String("backend", string(types.BackendCommand), "converter backend: command or container")
	f.String("converter", defaultConverter, "converter binary for the command backend")
	f.String("image", defaultImage, "converter image for the container backend")

	bindFlags(viper.GetViper(), f, map[string]string{
		keyFeedsFile:     "feeds",
		keyOutputDir:     "output-dir",
		keyFailurePolicy: "on-failure",
		keyReportFile:    "report",
		keyDryRun:        "dry-run",
		keyBackend:       "backend",
		keyCommand:       "converter",
		keyImage:         "image",
	})

	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(viper.GetViper())
	if err != nil {
		return err
	}
	logger, err := newLogger(viper.GetViper(), cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer logger.Sync()

	return runFeeds(cmd.Context(), cfg, logger, cmd.OutOrStdout(), cmd.ErrOrStderr())
}

// runFeeds wires the converter, the optional history store, and the driver
// for one run. The configuration is validated before any converter backend
// is built, so a missing feeds file never starts a container runtime.
func runFeeds(ctx context.Context, cfg types.DriverConfig, logger *zap.Logger, stdout, stderr io.Writer) error {
	if _, err := driver.Validate(cfg); err != nil {
		logger.Error("run failed before processing", zap.Error(err))
		return err
	}

	var conv converter.Converter
	if cfg.DryRun {
		conv = &converter.DryRun{Describe: converter.Describe(cfg.Converter), W: stdout}
	} else {
		c, err := converter.New(cfg.Converter, stdout, stderr, logger)
		if err != nil {
			return err
		}
		conv = c
	}

	opts := []driver.Option{
		driver.WithOutput(stdout),
		driver.WithLogger(logger),
	}
	if cfg.HistoryDB != "" {
		store, err := history.Open(cfg.HistoryDB)
		if err != nil {
			return err
		}
		defer store.Close()
		opts = append(opts, driver.WithRecorder(store))
	}

	_, err := driver.New(cfg, conv, opts...).Run(ctx)
	return err
}
