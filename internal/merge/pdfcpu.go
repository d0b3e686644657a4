// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package merge

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// PDFCPU is the Engine backed by pdfcpu.
type PDFCPU struct{}

// NewPDFCPU returns the pdfcpu engine.
func NewPDFCPU() *PDFCPU {
	return &PDFCPU{}
}

func (p *PDFCPU) config() *model.Configuration {
	return model.NewDefaultConfiguration()
}

// Inspect reads path and reports its page count. A file that needs a user
// password to open is reported as encrypted rather than as an error.
func (p *PDFCPU) Inspect(path string) (Document, error) {
	ctx, err := api.ReadContextFile(path)
	if err != nil {
		if strings.Contains(err.Error(), "password") {
			return Document{Encrypted: true}, nil
		}
		return Document{}, fmt.Errorf("reading %s: %w", path, err)
	}
	if ctx.Encrypt != nil {
		return Document{Encrypted: true}, nil
	}

	pages, err := api.PageCountFile(path)
	if err != nil {
		return Document{}, fmt.Errorf("counting pages of %s: %w", path, err)
	}
	return Document{Pages: pages}, nil
}

// Write assembles out from ranges. Partial ranges are first cut into
// temporary files beside out; the result is renamed into place.
func (p *PDFCPU) Write(out string, ranges []PageRange) error {
	if len(ranges) == 0 {
		return fmt.Errorf("no pages to write")
	}
	tmp, err := os.MkdirTemp(filepath.Dir(out), ".merge-*")
	if err != nil {
		return fmt.Errorf("creating work directory: %w", err)
	}
	defer os.RemoveAll(tmp)

	merged := filepath.Join(tmp, "merged.pdf")
	if len(ranges) == 1 {
		if err := p.trim(ranges[0], merged); err != nil {
			return err
		}
		return os.Rename(merged, out)
	}

	inputs := make([]string, 0, len(ranges))
	for i, r := range ranges {
		if r.Whole {
			inputs = append(inputs, r.File)
			continue
		}
		cut := filepath.Join(tmp, fmt.Sprintf("range-%03d.pdf", i))
		if err := p.trim(r, cut); err != nil {
			return err
		}
		inputs = append(inputs, cut)
	}
	if err := api.MergeCreateFile(inputs, merged, false, p.config()); err != nil {
		return fmt.Errorf("merging %d file(s): %w", len(inputs), err)
	}
	return os.Rename(merged, out)
}

func (p *PDFCPU) trim(r PageRange, out string) error {
	pages := []string{fmt.Sprintf("%d-%d", r.From, r.To)}
	if err := api.TrimFile(r.File, out, pages, p.config()); err != nil {
		return fmt.Errorf("selecting pages %d-%d of %s: %w", r.From, r.To, r.File, err)
	}
	return nil
}
