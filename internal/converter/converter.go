// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package converter wraps the external feed-to-PDF program. The driver sees
// only the Converter interface; backends run a local binary, a container
// image, or nothing at all (dry run).
package converter

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"

	"go.uber.org/zap"

	"github.com/pdiddy/feed2pdf/internal/container"
	"github.com/pdiddy/feed2pdf/internal/secrets"
	"github.com/pdiddy/feed2pdf/pkg/types"
)

// Converter turns one feed into PDF output inside outputDir. Convert blocks
// until the conversion finishes.
type Converter interface {
	Convert(ctx context.Context, feedURL, outputDir string) error
}

// InvocationError reports a failed conversion of a single feed.
type InvocationError struct {
	URL string
	// ExitCode is the converter's exit status, or -1 if it never started
	// or was killed by a signal.
	ExitCode int
	Err      error
}

func (e *InvocationError) Error() string {
	if e.ExitCode > 0 {
		return fmt.Sprintf("converting %s: exit status %d", e.URL, e.ExitCode)
	}
	return fmt.Sprintf("converting %s: %v", e.URL, e.Err)
}

func (e *InvocationError) Unwrap() error { return e.Err }

// ExitCode extracts the process exit status from err. It returns 0 for a
// nil error and -1 when no exit status is available.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var ie *InvocationError
	if errors.As(err, &ie) {
		return ie.ExitCode
	}
	var ee *exec.ExitError
	if errors.As(err, &ee) {
		return ee.ExitCode()
	}
	return -1
}

func invocationError(feedURL string, err error) *InvocationError {
	return &InvocationError{URL: feedURL, ExitCode: ExitCode(err), Err: err}
}

// New builds the converter selected by cfg.Backend. Converter output is
// passed through to stdout and stderr. Secret loading warnings go to logger.
func New(cfg types.ConverterConfig, stdout, stderr io.Writer, logger *zap.Logger) (Converter, error) {
	s, err := secrets.Load(cfg.EnvDir, logger)
	if err != nil {
		return nil, err
	}
	env := secrets.Environ(s)

	switch cfg.Backend {
	case types.BackendCommand, "":
		if cfg.Command == "" {
			return nil, fmt.Errorf("converter command is not configured")
		}
		return &Command{
			Name:   cfg.Command,
			Args:   cfg.Args,
			Env:    env,
			Stdout: stdout,
			Stderr: stderr,
		}, nil
	case types.BackendContainer:
		rt, err := container.DetectRuntime()
		if err != nil {
			return nil, err
		}
		return NewContainer(rt, cfg.Image, cfg.Args, env, stdout, stderr)
	default:
		return nil, fmt.Errorf("unknown converter backend %q: use command or container", cfg.Backend)
	}
}
