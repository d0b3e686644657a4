// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// RunState is the driver's lifecycle position.
type RunState string

const (
	StateNotStarted RunState = "not_started"
	StateRunning    RunState = "running"
	StateDone       RunState = "done"
	StateFailed     RunState = "failed"
)

// Invocation records one call of the external converter.
type Invocation struct {
	// Line is the 1-based line number of the feed in the feeds file.
	Line int `json:"line" yaml:"line"`

	URL       string `json:"url" yaml:"url"`
	OutputDir string `json:"output_dir" yaml:"output_dir"`

	StartedAt time.Time     `json:"started_at" yaml:"started_at"`
	Duration  time.Duration `json:"duration" yaml:"duration"`

	// ExitCode is the converter's exit status, or -1 if it never started
	// or was killed.
	ExitCode int `json:"exit_code" yaml:"exit_code"`

	// Error is empty on success.
	Error string `json:"error,omitempty" yaml:"error,omitempty"`
}

// Failed reports whether the conversion did not succeed.
func (i Invocation) Failed() bool {
	return i.Error != ""
}

// RunSummary is the outcome of one driver run.
type RunSummary struct {
	RunID         string        `json:"run_id" yaml:"run_id"`
	FeedsFile     string        `json:"feeds_file" yaml:"feeds_file"`
	OutputDir     string        `json:"output_dir" yaml:"output_dir"`
	FailurePolicy FailurePolicy `json:"failure_policy" yaml:"failure_policy"`
	State         RunState      `json:"state" yaml:"state"`
	StartedAt     time.Time     `json:"started_at" yaml:"started_at"`
	FinishedAt    time.Time     `json:"finished_at" yaml:"finished_at"`

	Invoked   int `json:"invoked" yaml:"invoked"`
	Succeeded int `json:"succeeded" yaml:"succeeded"`
	Failed    int `json:"failed" yaml:"failed"`
	// Blank counts lines skipped because they were empty after trimming.
	Blank int `json:"blank" yaml:"blank"`

	Invocations []Invocation `json:"invocations" yaml:"invocations"`
}

// Failures returns the invocations that did not succeed, in file order.
func (s RunSummary) Failures() []Invocation {
	var out []Invocation
	for _, inv := range s.Invocations {
		if inv.Failed() {
			out = append(out, inv)
		}
	}
	return out
}

// HasFailures reports whether any conversion failed.
func (s RunSummary) HasFailures() bool {
	return s.Failed > 0
}
