// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package report writes run summaries to disk as YAML.
package report

import (
	"fmt"
	"os"
	"path/filepath"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/feed2pdf/pkg/types"
)

// Write marshals summary to path. The file is written to a temporary name in
// the same directory and renamed into place, so readers never see a partial
// report.
func Write(path string, summary types.RunSummary) error {
	data, err := yaml.Marshal(&summary)
	if err != nil {
		return fmt.Errorf("marshaling report: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating report directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".report-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()

	_, writeErr := tmp.Write(data)
	closeErr := tmp.Close()
	if writeErr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("writing report: %w", writeErr)
	}
	if closeErr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing temp file: %w", closeErr)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}

// Read loads a report written by Write.
func Read(path string) (types.RunSummary, error) {
	var s types.RunSummary
	data, err := os.ReadFile(path)
	if err != nil {
		return s, fmt.Errorf("reading report: %w", err)
	}
	if err := yaml.Unmarshal(data, &s); err != nil {
		return s, fmt.Errorf("parsing report: %w", err)
	}
	return s, nil
}
