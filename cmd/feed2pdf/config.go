// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"io"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/pdiddy/feed2pdf/internal/logging"
	"github.com/pdiddy/feed2pdf/internal/merge"
	"github.com/pdiddy/feed2pdf/pkg/types"
)

// Configuration keys. The two path keys keep the names operators already
// use in their config files.
const (
	keyFeedsFile      = "feeds_file_path"
	keyOutputDir      = "output_directory_path"
	keyFailurePolicy  = "failure_policy"
	keyReportFile     = "report_file"
	keyHistoryDB      = "history_db"
	keyDryRun         = "dry_run"
	keyBackend        = "converter.backend"
	keyCommand        = "converter.command"
	keyArgs           = "converter.args"
	keyImage          = "converter.image"
	keyEnvDir         = "converter.env_dir"
	keyLogLevel       = "log.level"
	keyLogFormat      = "log.format"
	keyMergeOutput    = "merge.output"
	keyMergePattern   = "merge.pattern"
	keyMergeMaxPages  = "merge.max_pages"
	keyMergeEncrypted = "merge.skip_encrypted"
	defaultFeedsFile  = "feeds.txt"
	defaultOutputDir  = "pdfs"
	defaultConverter  = "rss2pdf"
	defaultImage      = "rss2pdf:latest"
	defaultSecretsDir = ".secrets/"
)

// setDefaults registers the built-in value of every key.
func setDefaults(v *viper.Viper) {
	v.SetDefault(keyFeedsFile, defaultFeedsFile)
	v.SetDefault(keyOutputDir, defaultOutputDir)
	v.SetDefault(keyFailurePolicy, string(types.PolicyIgnore))
	v.SetDefault(keyReportFile, "")
	v.SetDefault(keyHistoryDB, "")
	v.SetDefault(keyDryRun, false)
	v.SetDefault(keyBackend, string(types.BackendCommand))
	v.SetDefault(keyCommand, defaultConverter)
	v.SetDefault(keyArgs, []string{})
	v.SetDefault(keyImage, defaultImage)
	v.SetDefault(keyEnvDir, defaultSecretsDir)
	v.SetDefault(keyLogLevel, "info")
	v.SetDefault(keyLogFormat, "console")
	v.SetDefault(keyMergeOutput, merge.DefaultOutput)
	v.SetDefault(keyMergePattern, merge.DefaultPattern)
	v.SetDefault(keyMergeMaxPages, merge.DefaultMaxPages)
	v.SetDefault(keyMergeEncrypted, false)
}

// bindFlags binds each config key to the named flag in fs.
func bindFlags(v *viper.Viper, fs *pflag.FlagSet, keys map[string]string) {
	for key, flag := range keys {
		if err := v.BindPFlag(key, fs.Lookup(flag)); err != nil {
			panic(fmt.Sprintf("binding flag --%s to %s: %v", flag, key, err))
		}
	}
}

// defaultDriverConfig is the configuration written by "feed2pdf init".
func defaultDriverConfig() types.DriverConfig {
	return types.DriverConfig{
		FeedsFilePath:       defaultFeedsFile,
		OutputDirectoryPath: defaultOutputDir,
		FailurePolicy:       types.PolicyIgnore,
		Converter: types.ConverterConfig{
			Backend: types.BackendCommand,
			Command: defaultConverter,
			Image:   defaultImage,
			EnvDir:  defaultSecretsDir,
		},
	}
}

// loadConfig builds the driver configuration from v.
func loadConfig(v *viper.Viper) (types.DriverConfig, error) {
	policy, err := types.ParseFailurePolicy(v.GetString(keyFailurePolicy))
	if err != nil {
		return types.DriverConfig{}, fmt.Errorf("%s: %w", keyFailurePolicy, err)
	}

	backend := types.ConverterBackend(v.GetString(keyBackend))
	switch backend {
	case types.BackendCommand, types.BackendContainer:
	default:
		return types.DriverConfig{}, fmt.Errorf("%s: unknown backend %q: use command or container", keyBackend, backend)
	}

	return types.DriverConfig{
		FeedsFilePath:       v.GetString(keyFeedsFile),
		OutputDirectoryPath: v.GetString(keyOutputDir),
		FailurePolicy:       policy,
		ReportFile:          v.GetString(keyReportFile),
		HistoryDB:           v.GetString(keyHistoryDB),
		DryRun:              v.GetBool(keyDryRun),
		Converter: types.ConverterConfig{
			Backend: backend,
			Command: v.GetString(keyCommand),
			Args:    v.GetStringSlice(keyArgs),
			Image:   v.GetString(keyImage),
			EnvDir:  v.GetString(keyEnvDir),
		},
	}, nil
}

// loadMergeOptions builds the merge options from v. dir defaults to the
// configured output directory.
func loadMergeOptions(v *viper.Viper, dir string) (merge.Options, error) {
	if dir == "" {
		dir = v.GetString(keyOutputDir)
	}
	maxPages := v.GetInt(keyMergeMaxPages)
	if maxPages < 1 {
		return merge.Options{}, fmt.Errorf("%s: must be at least 1, got %d", keyMergeMaxPages, maxPages)
	}
	return merge.Options{
		Dir:           dir,
		Output:        v.GetString(keyMergeOutput),
		Pattern:       v.GetString(keyMergePattern),
		MaxPages:      maxPages,
		SkipEncrypted: v.GetBool(keyMergeEncrypted),
	}, nil
}

// newLogger builds the diagnostic logger from the log.* keys.
func newLogger(v *viper.Viper, w io.Writer) (*zap.Logger, error) {
	return logging.New(logging.Options{
		Level:  v.GetString(keyLogLevel),
		Format: v.GetString(keyLogFormat),
		Output: w,
	})
}
