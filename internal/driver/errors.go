// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package driver

import (
	"errors"
	"fmt"

	"github.com/pdiddy/feed2pdf/pkg/types"
)

// ErrOutputLocked is returned when another run holds the output directory.
var ErrOutputLocked = errors.New("output directory is locked by another run")

// ConfigurationError is a fatal problem found before any feed is processed.
type ConfigurationError struct {
	// Field is the configuration key at fault, e.g. "feeds_file_path".
	Field string
	Path  string
	Err   error
}

func (e *ConfigurationError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("configuration: %s: %v", e.Field, e.Err)
	}
	return fmt.Sprintf("configuration: %s %s: %v", e.Field, e.Path, e.Err)
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// BatchError is the aggregate outcome of a run under the report or abort
// failure policies.
type BatchError struct {
	Policy types.FailurePolicy
	Failed int
	// Err is the conversion that stopped the run under PolicyAbort.
	Err error
}

func (e *BatchError) Error() string {
	if e.Policy == types.PolicyAbort && e.Err != nil {
		return fmt.Sprintf("run aborted: %v", e.Err)
	}
	return fmt.Sprintf("%d feed(s) failed conversion", e.Failed)
}

func (e *BatchError) Unwrap() error { return e.Err }
