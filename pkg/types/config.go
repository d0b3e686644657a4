// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types holds the configuration and record types shared by the
// driver, the converter backends, and the CLI.
package types

import (
	"fmt"
	"strings"
)

// FailurePolicy decides what the driver does when a single conversion fails.
type FailurePolicy string

const (
	// PolicyIgnore keeps going and exits zero regardless of converter outcomes.
	PolicyIgnore FailurePolicy = "ignore"
	// PolicyReport keeps going, prints a failure summary, and fails the run.
	PolicyReport FailurePolicy = "report"
	// PolicyAbort stops at the first failed conversion.
	PolicyAbort FailurePolicy = "abort"
)

// ParseFailurePolicy normalizes s into a FailurePolicy. An empty string
// selects PolicyIgnore.
func ParseFailurePolicy(s string) (FailurePolicy, error) {
	p := FailurePolicy(strings.ToLower(strings.TrimSpace(s)))
	if p == "" {
		return PolicyIgnore, nil
	}
	if err := p.Validate(); err != nil {
		return "", err
	}
	return p, nil
}

// Validate reports whether p is one of the known policies.
func (p FailurePolicy) Validate() error {
	switch p {
	case PolicyIgnore, PolicyReport, PolicyAbort:
		return nil
	}
	return fmt.Errorf("unknown failure policy %q: use ignore, report, or abort", string(p))
}

// ConverterBackend selects how the external converter is launched.
type ConverterBackend string

const (
	BackendCommand   ConverterBackend = "command"
	BackendContainer ConverterBackend = "container"
)

// ConverterConfig describes the external feed-to-PDF program.
type ConverterConfig struct {
	// Backend is "command" (local binary) or "container" (docker/podman image).
	Backend ConverterBackend `json:"backend" yaml:"backend"`

	// Command is the converter binary for the command backend.
	Command string `json:"command" yaml:"command"`

	// Args are placed before the feed URL and output directory.
	Args []string `json:"args,omitempty" yaml:"args,omitempty"`

	// Image is the container image for the container backend.
	Image string `json:"image" yaml:"image"`

	// EnvDir is a directory of key files exported to the converter's environment.
	EnvDir string `json:"env_dir,omitempty" yaml:"env_dir,omitempty"`
}

// DriverConfig is everything the driver needs for one run.
type DriverConfig struct {
	// FeedsFilePath is the plain-text list of feed URLs, one per line.
	FeedsFilePath string `json:"feeds_file_path" yaml:"feeds_file_path"`

	// OutputDirectoryPath receives the converter's PDFs. Created if absent.
	OutputDirectoryPath string `json:"output_directory_path" yaml:"output_directory_path"`

	FailurePolicy FailurePolicy `json:"failure_policy" yaml:"failure_policy"`

	// ReportFile, when set, receives a YAML summary of the run.
	ReportFile string `json:"report_file,omitempty" yaml:"report_file,omitempty"`

	// HistoryDB, when set, is the SQLite ledger of past runs.
	HistoryDB string `json:"history_db,omitempty" yaml:"history_db,omitempty"`

	// DryRun prints the invocations instead of executing them.
	DryRun bool `json:"dry_run" yaml:"dry_run"`

	Converter ConverterConfig `json:"converter" yaml:"converter"`
}
