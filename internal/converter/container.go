// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package converter

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"github.com/pdiddy/feed2pdf/internal/container"
)

// containerOutputDir is where the output directory is mounted inside the
// converter container.
const containerOutputDir = "/out"

// Container runs the converter from a container image, bind-mounting the
// output directory at /out. It depends on a container.Runtime (docker or
// podman) injected at construction time.
type Container struct {
	runtime container.Runtime
	image   string
	args    []string
	env     []string
	stdout  io.Writer
	stderr  io.Writer
}

// NewContainer creates a converter that runs image through rt. It verifies
// that the image exists locally before returning.
func NewContainer(rt container.Runtime, image string, args, env []string, stdout, stderr io.Writer) (*Container, error) {
	if image == "" {
		return nil, fmt.Errorf("converter image is not configured")
	}
	if err := rt.ImageExists(image); err != nil {
		return nil, fmt.Errorf("converter image not available in %s: %w", rt.Name(), err)
	}
	return &Container{
		runtime: rt,
		image:   image,
		args:    args,
		env:     env,
		stdout:  stdout,
		stderr:  stderr,
	}, nil
}

// Convert runs one container for feedURL and waits for it to exit.
func (c *Container) Convert(ctx context.Context, feedURL, outputDir string) error {
	abs, err := filepath.Abs(outputDir)
	if err != nil {
		return invocationError(feedURL, fmt.Errorf("resolving output directory: %w", err))
	}

	args := make([]string, 0, len(c.args)+2)
	args = append(args, c.args...)
	args = append(args, feedURL, containerOutputDir)

	err = c.runtime.Run(ctx, container.RunSpec{
		Image:  c.image,
		Args:   args,
		Mounts: []container.Mount{{Source: abs, Target: containerOutputDir}},
		Env:    c.env,
		Stdout: c.stdout,
		Stderr: c.stderr,
	})
	if err != nil {
		return invocationError(feedURL, err)
	}
	return nil
}

// String describes the container invocation without the per-feed arguments.
func (c *Container) String() string {
	return fmt.Sprintf("%s run %s", c.runtime.Name(), c.image)
}
