// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/pdiddy/feed2pdf/internal/driver"
	"github.com/pdiddy/feed2pdf/internal/history"
	"github.com/pdiddy/feed2pdf/internal/merge"
	"github.com/pdiddy/feed2pdf/pkg/types"
)

func newTestViper(t *testing.T) *viper.Viper {
	t.Helper()
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("FEED2PDF")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := loadConfig(newTestViper(t))
	require.NoError(t, err)
	assert.Equal(t, defaultDriverConfig().FeedsFilePath, cfg.FeedsFilePath)
	assert.Equal(t, "pdfs", cfg.OutputDirectoryPath)
	assert.Equal(t, types.PolicyIgnore, cfg.FailurePolicy)
	assert.Equal(t, types.BackendCommand, cfg.Converter.Backend)
	assert.Equal(t, "rss2pdf", cfg.Converter.Command)
	assert.Empty(t, cfg.Converter.Args)
	assert.False(t, cfg.DryRun)
}

func TestLoadConfig_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "feed2pdf.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
feeds_file_path: /etc/feeds.txt
output_directory_path: /srv/pdfs
failure_policy: Report
converter:
  command: wkfeed
  args: ["--paper", "a4"]
`), 0o644))

	t.Setenv("FEED2PDF_OUTPUT_DIRECTORY_PATH", "/mnt/pdfs")
	t.Setenv("FEED2PDF_CONVERTER_IMAGE", "ghcr.io/acme/rss2pdf:1")

	v := newTestViper(t)
	v.SetConfigFile(path)
	require.NoError(t, v.ReadInConfig())

	cfg, err := loadConfig(v)
	require.NoError(t, err)
	assert.Equal(t, "/etc/feeds.txt", cfg.FeedsFilePath)
	assert.Equal(t, "/mnt/pdfs", cfg.OutputDirectoryPath, "environment beats the config file")
	assert.Equal(t, types.PolicyReport, cfg.FailurePolicy)
	assert.Equal(t, "wkfeed", cfg.Converter.Command)
	assert.Equal(t, []string{"--paper", "a4"}, cfg.Converter.Args)
	assert.Equal(t, "ghcr.io/acme/rss2pdf:1", cfg.Converter.Image)
}

func TestLoadConfig_Invalid(t *testing.T) {
	v := newTestViper(t)
	v.Set(keyFailurePolicy, "retry")
	_, err := loadConfig(v)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failure_policy")

	v = newTestViper(t)
	v.Set(keyBackend, "lambda")
	_, err = loadConfig(v)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "converter.backend")
}

func writeFeeds(t *testing.T, content string) types.DriverConfig {
	t.Helper()
	dir := t.TempDir()
	feeds := filepath.Join(dir, "feeds.txt")
	require.NoError(t, os.WriteFile(feeds, []byte(content), 0o644))
	cfg := defaultDriverConfig()
	cfg.FeedsFilePath = feeds
	cfg.OutputDirectoryPath = filepath.Join(dir, "pdfs")
	cfg.Converter.EnvDir = ""
	return cfg
}

func TestRunFeeds_DryRun(t *testing.T) {
	cfg := writeFeeds(t, "http://a.example/rss\n\nhttp://b.example/rss\n")
	cfg.DryRun = true
	var stdout bytes.Buffer

	require.NoError(t, runFeeds(context.Background(), cfg, zap.NewNop(), &stdout, &bytes.Buffer{}))
	text := stdout.String()
	assert.Contains(t, text, "dry-run: rss2pdf http://a.example/rss "+cfg.OutputDirectoryPath)
	assert.Contains(t, text, "dry-run: rss2pdf http://b.example/rss "+cfg.OutputDirectoryPath)
	assert.Contains(t, text, "==> Finished: 2 feed(s) processed")
}

func TestRunFeeds_MissingFeedsFile(t *testing.T) {
	tests := []struct {
		name    string
		backend types.ConverterBackend
		dryRun  bool
	}{
		{name: "command", backend: types.BackendCommand},
		{name: "container", backend: types.BackendContainer},
		{name: "dry run", backend: types.BackendContainer, dryRun: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := writeFeeds(t, "")
			cfg.FeedsFilePath += ".gone"
			cfg.Converter.Backend = tt.backend
			cfg.Converter.Image = "feed2pdf-test-image-that-does-not-exist:never"
			cfg.DryRun = tt.dryRun
			var stdout bytes.Buffer

			err := runFeeds(context.Background(), cfg, zap.NewNop(), &stdout, &bytes.Buffer{})
			var cfgErr *driver.ConfigurationError
			require.ErrorAs(t, err, &cfgErr)
			assert.Equal(t, "feeds_file_path", cfgErr.Field)
			assert.ErrorIs(t, err, os.ErrNotExist)
			assert.Empty(t, stdout.String())
			assert.NoDirExists(t, cfg.OutputDirectoryPath)
		})
	}
}

func TestRunFeeds_RealConverterWithHistory(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
	cfg := writeFeeds(t, "ok-feed\nbad-feed\n")
	script := filepath.Join(t.TempDir(), "convert.sh")
	require.NoError(t, os.WriteFile(script, []byte(`#!/bin/sh
[ "$1" = "bad-feed" ] && exit 4
touch "$2/$1.pdf"
`), 0o755))
	cfg.Converter.Command = "sh"
	cfg.Converter.Args = []string{script}
	cfg.FailurePolicy = types.PolicyReport
	cfg.HistoryDB = filepath.Join(t.TempDir(), "history.db")

	var stdout bytes.Buffer
	err := runFeeds(context.Background(), cfg, zap.NewNop(), &stdout, &bytes.Buffer{})
	var batchErr *driver.BatchError
	require.ErrorAs(t, err, &batchErr)
	assert.Equal(t, 1, batchErr.Failed)

	_, statErr := os.Stat(filepath.Join(cfg.OutputDirectoryPath, "ok-feed.pdf"))
	assert.NoError(t, statErr)

	store, err := history.Open(cfg.HistoryDB)
	require.NoError(t, err)
	defer store.Close()
	runs, err := store.Recent(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, 1, runs[0].Failed)

	var out bytes.Buffer
	require.NoError(t, showHistory(context.Background(), store, &out, runs[0].RunID, true, 0))
	assert.Contains(t, out.String(), "bad-feed")
	assert.NotContains(t, out.String(), "ok-feed")
}

func TestShowHistory_Empty(t *testing.T) {
	store, err := history.Open(filepath.Join(t.TempDir(), "h.db"))
	require.NoError(t, err)
	defer store.Close()

	var out bytes.Buffer
	require.NoError(t, showHistory(context.Background(), store, &out, "", false, 10))
	assert.Equal(t, "No runs recorded.\n", out.String())

	out.Reset()
	require.NoError(t, showHistory(context.Background(), store, &out, "nope", false, 10))
	assert.Contains(t, out.String(), "No conversions recorded for run nope")
}

func TestRenderRuns(t *testing.T) {
	start := time.Now().Add(-time.Hour)
	out := renderRuns([]history.RunRow{{
		RunID:         "abc",
		StartedAt:     start,
		FinishedAt:    start.Add(90 * time.Second),
		State:         types.StateDone,
		FailurePolicy: types.PolicyIgnore,
		Invoked:       4,
		Failed:        1,
		FeedsFile:     "feeds.txt",
	}})
	for _, want := range []string{"abc", "1 hour ago", "1m30s", "done", "ignore", "feeds.txt"} {
		assert.Contains(t, out, want)
	}
}

func TestInitProject(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "project")
	var out bytes.Buffer
	require.NoError(t, initProject(dir, &out))
	assert.Contains(t, out.String(), "created: "+filepath.Join(dir, configFileName))

	v := newTestViper(t)
	v.SetConfigFile(filepath.Join(dir, configFileName))
	require.NoError(t, v.ReadInConfig())
	cfg, err := loadConfig(v)
	require.NoError(t, err)
	assert.Equal(t, defaultDriverConfig().FeedsFilePath, cfg.FeedsFilePath)
	assert.Equal(t, "rss2pdf", cfg.Converter.Command)

	feeds, err := os.ReadFile(filepath.Join(dir, "feeds.txt"))
	require.NoError(t, err)
	assert.Empty(t, feeds)

	// A second init leaves edited files alone.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "feeds.txt"), []byte("http://a.example/rss\n"), 0o644))
	out.Reset()
	require.NoError(t, initProject(dir, &out))
	assert.Contains(t, out.String(), "skipped: "+filepath.Join(dir, "feeds.txt"))
	feeds, err = os.ReadFile(filepath.Join(dir, "feeds.txt"))
	require.NoError(t, err)
	assert.Equal(t, "http://a.example/rss\n", string(feeds))
}

func TestLoadMergeOptions(t *testing.T) {
	v := newTestViper(t)
	opts, err := loadMergeOptions(v, "")
	require.NoError(t, err)
	assert.Equal(t, merge.Options{
		Dir:      "pdfs",
		Output:   "merged.pdf",
		Pattern:  "*.pdf",
		MaxPages: 1000,
	}, opts)

	t.Setenv("FEED2PDF_MERGE_MAX_PAGES", "250")
	t.Setenv("FEED2PDF_MERGE_SKIP_ENCRYPTED", "true")
	v = newTestViper(t)
	v.Set(keyMergeOutput, "digest.pdf")
	opts, err = loadMergeOptions(v, "/srv/archive")
	require.NoError(t, err)
	assert.Equal(t, "/srv/archive", opts.Dir)
	assert.Equal(t, "digest.pdf", opts.Output)
	assert.Equal(t, 250, opts.MaxPages)
	assert.True(t, opts.SkipEncrypted)

	v.Set(keyMergeMaxPages, 0)
	_, err = loadMergeOptions(v, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "merge.max_pages")
}
