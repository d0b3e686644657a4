// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package converter

import (
	"context"
	"io"
	"os"
	"os/exec"
	"strings"
)

// process is one external program invocation.
type process struct {
	Name   string
	Args   []string
	Env    []string
	Stdout io.Writer
	Stderr io.Writer
}

// executor abstracts process execution for testing.
type executor interface {
	Run(ctx context.Context, p process) error
}

// osExecutor is the production executor backed by os/exec.
type osExecutor struct{}

func (osExecutor) Run(ctx context.Context, p process) error {
	cmd := exec.CommandContext(ctx, p.Name, p.Args...)
	cmd.Stdout = p.Stdout
	cmd.Stderr = p.Stderr
	if len(p.Env) > 0 {
		cmd.Env = append(os.Environ(), p.Env...)
	}
	return cmd.Run()
}

// Command runs a local converter binary as
// "<Name> [Args...] <feedURL> <outputDir>".
type Command struct {
	Name string
	Args []string
	// Env is appended to the inherited environment.
	Env    []string
	Stdout io.Writer
	Stderr io.Writer

	exec executor
}

// Convert runs the converter and waits for it to exit. A non-zero exit or a
// failure to start is returned as *InvocationError.
func (c *Command) Convert(ctx context.Context, feedURL, outputDir string) error {
	args := make([]string, 0, len(c.Args)+2)
	args = append(args, c.Args...)
	args = append(args, feedURL, outputDir)

	ex := c.exec
	if ex == nil {
		ex = osExecutor{}
	}
	err := ex.Run(ctx, process{
		Name:   c.Name,
		Args:   args,
		Env:    c.Env,
		Stdout: c.Stdout,
		Stderr: c.Stderr,
	})
	if err != nil {
		return invocationError(feedURL, err)
	}
	return nil
}

// String describes the command line without the per-feed arguments.
func (c *Command) String() string {
	return strings.Join(append([]string{c.Name}, c.Args...), " ")
}
