// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package converter

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/pdiddy/feed2pdf/pkg/types"
)

// DryRun prints what would be executed and always succeeds.
type DryRun struct {
	// Describe names the converter that would run, e.g. "rss2pdf".
	Describe string
	W        io.Writer
}

func (d *DryRun) Convert(_ context.Context, feedURL, outputDir string) error {
	fmt.Fprintf(d.W, "dry-run: %s %s %s\n", d.Describe, feedURL, outputDir)
	return nil
}

// Describe renders the converter selected by cfg for dry-run output
// without resolving a container runtime.
func Describe(cfg types.ConverterConfig) string {
	if cfg.Backend == types.BackendContainer {
		return strings.TrimSpace("container " + cfg.Image + " " + strings.Join(cfg.Args, " "))
	}
	return strings.TrimSpace(cfg.Command + " " + strings.Join(cfg.Args, " "))
}
