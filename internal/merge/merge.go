// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package merge combines the PDFs in a directory into one or more output
// parts of at most a fixed number of pages. Sources are taken in natural
// name order ("feed2" before "feed10"), and outputs of earlier merges are
// never merged again.
package merge

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"go.uber.org/zap"
)

// Defaults applied to a zero Options value.
const (
	DefaultOutput   = "merged.pdf"
	DefaultPattern  = "*.pdf"
	DefaultMaxPages = 1000
)

var (
	// ErrNoSources is returned when no file matches the pattern.
	ErrNoSources = errors.New("no PDFs found")
	// ErrNothingMerged is returned when every source was skipped.
	ErrNothingMerged = errors.New("nothing merged")
)

// EncryptedError reports an encrypted source when encrypted files are not
// being skipped.
type EncryptedError struct {
	Path string
}

func (e *EncryptedError) Error() string {
	return fmt.Sprintf("%s is encrypted", e.Path)
}

// Document describes one source PDF.
type Document struct {
	Pages     int
	Encrypted bool
}

// PageRange selects pages From through To (1-based, inclusive) of File.
// Whole is set when the range covers every page of the file.
type PageRange struct {
	File  string
	From  int
	To    int
	Whole bool
}

// Source is a readable input with its page count.
type Source struct {
	Path  string
	Pages int
}

// Engine reads and writes PDF files.
type Engine interface {
	// Inspect reports the page count and encryption of the PDF at path.
	Inspect(path string) (Document, error)
	// Write creates out from the given page ranges, in order.
	Write(out string, ranges []PageRange) error
}

// Options selects what to merge and how to split it.
type Options struct {
	// Dir holds the source PDFs.
	Dir string
	// Output is the base file name. Parts are written next to it as
	// "<stem> - Part N.pdf". A relative Output is resolved against Dir.
	Output        string
	Pattern       string
	MaxPages      int
	SkipEncrypted bool
}

func (o Options) withDefaults() Options {
	if o.Dir == "" {
		o.Dir = "."
	}
	if o.Output == "" {
		o.Output = DefaultOutput
	}
	if o.Pattern == "" {
		o.Pattern = DefaultPattern
	}
	if o.MaxPages < 1 {
		o.MaxPages = DefaultMaxPages
	}
	return o
}

// Result lists what a merge read, skipped, and wrote.
type Result struct {
	Merged  []string
	Skipped []string
	Parts   []string
	Pages   int
}

// Option configures a Merger.
type Option func(*Merger)

// WithOutput sends progress lines to w instead of os.Stdout.
func WithOutput(w io.Writer) Option {
	return func(m *Merger) { m.out = w }
}

// WithLogger sets the diagnostic logger.
func WithLogger(l *zap.Logger) Option {
	return func(m *Merger) { m.log = l }
}

// Merger merges a directory of PDFs through an Engine.
type Merger struct {
	engine Engine
	out    io.Writer
	log    *zap.Logger
}

// New creates a Merger that reads and writes PDFs with engine.
func New(engine Engine, opts ...Option) *Merger {
	m := &Merger{engine: engine, out: os.Stdout, log: zap.NewNop()}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Merge collects the sources in opts.Dir, inspects each one, and writes the
// parts. An unreadable source is skipped. An encrypted source is skipped
// under SkipEncrypted and is an *EncryptedError otherwise.
func (m *Merger) Merge(ctx context.Context, opts Options) (Result, error) {
	opts = opts.withDefaults()
	var res Result

	base, err := filepath.Abs(outputPath(opts.Dir, opts.Output))
	if err != nil {
		return res, fmt.Errorf("resolving output %s: %w", opts.Output, err)
	}
	files, err := Sources(opts.Dir, opts.Pattern, base)
	if err != nil {
		return res, err
	}
	if len(files) == 0 {
		return res, fmt.Errorf("%s matching %s: %w", opts.Dir, opts.Pattern, ErrNoSources)
	}

	sources := make([]Source, 0, len(files))
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		name := filepath.Base(path)
		doc, err := m.engine.Inspect(path)
		if err != nil {
			m.log.Warn("skipping unreadable PDF", zap.String("file", path), zap.Error(err))
			fmt.Fprintf(m.out, "Skipping %s: %v\n", name, err)
			res.Skipped = append(res.Skipped, path)
			continue
		}
		if doc.Encrypted {
			if !opts.SkipEncrypted {
				return res, &EncryptedError{Path: path}
			}
			fmt.Fprintf(m.out, "Skipping encrypted: %s\n", name)
			res.Skipped = append(res.Skipped, path)
			continue
		}
		sources = append(sources, Source{Path: path, Pages: doc.Pages})
		res.Merged = append(res.Merged, path)
		res.Pages += doc.Pages
	}
	if len(res.Merged) == 0 {
		return res, ErrNothingMerged
	}

	parts := Plan(sources, opts.MaxPages)
	if len(parts) == 0 {
		return res, fmt.Errorf("%w: the merged files have no pages", ErrNothingMerged)
	}
	for i, ranges := range parts {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		path := PartPath(base, i+1)
		if err := m.engine.Write(path, ranges); err != nil {
			return res, fmt.Errorf("writing %s: %w", path, err)
		}
		m.log.Debug("wrote part", zap.String("path", path), zap.Int("ranges", len(ranges)))
		res.Parts = append(res.Parts, path)
	}

	fmt.Fprintf(m.out, "Merged %d file(s) into %d part(s):\n", len(res.Merged), len(res.Parts))
	for _, p := range res.Parts {
		fmt.Fprintf(m.out, "   %s\n", p)
	}
	m.log.Info("merge finished",
		zap.Int("merged", len(res.Merged)),
		zap.Int("skipped", len(res.Skipped)),
		zap.Int("parts", len(res.Parts)),
		zap.Int("pages", res.Pages))
	return res, nil
}

// Sources returns the regular files in dir matching pattern, in natural name
// order, leaving out base and any "<stem> - Part N.pdf" written next to it.
func Sources(dir, pattern, base string) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, pattern))
	if err != nil {
		return nil, fmt.Errorf("pattern %q: %w", pattern, err)
	}

	files := make([]string, 0, len(matches))
	for _, path := range matches {
		info, err := os.Stat(path)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		previous, err := isPreviousOutput(path, base)
		if err != nil {
			return nil, err
		}
		if !previous {
			files = append(files, path)
		}
	}
	slices.SortStableFunc(files, func(a, b string) int {
		return compareNatural(filepath.Base(a), filepath.Base(b))
	})
	return files, nil
}

// Plan splits sources into parts of at most maxPages pages. A source larger
// than the remaining room is split across parts.
func Plan(sources []Source, maxPages int) [][]PageRange {
	if maxPages < 1 {
		maxPages = 1
	}
	var parts [][]PageRange
	var cur []PageRange
	n := 0
	for _, s := range sources {
		for from := 1; from <= s.Pages; {
			take := min(s.Pages-from+1, maxPages-n)
			to := from + take - 1
			cur = append(cur, PageRange{File: s.Path, From: from, To: to, Whole: from == 1 && to == s.Pages})
			n += take
			from = to + 1
			if n == maxPages {
				parts = append(parts, cur)
				cur, n = nil, 0
			}
		}
	}
	if n > 0 {
		parts = append(parts, cur)
	}
	return parts
}

// PartPath names part n of base.
func PartPath(base string, n int) string {
	return filepath.Join(filepath.Dir(base), fmt.Sprintf("%s - Part %d.pdf", stem(base), n))
}

func outputPath(dir, output string) string {
	if filepath.IsAbs(output) {
		return output
	}
	return filepath.Join(dir, output)
}

func stem(path string) string {
	name := filepath.Base(path)
	return strings.TrimSuffix(name, filepath.Ext(name))
}

func isPreviousOutput(path, base string) (bool, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return false, fmt.Errorf("resolving %s: %w", path, err)
	}
	if abs == base {
		return true, nil
	}
	if filepath.Dir(abs) != filepath.Dir(base) {
		return false, nil
	}
	name := filepath.Base(abs)
	return strings.HasPrefix(name, stem(base)+" - Part ") && strings.HasSuffix(name, ".pdf"), nil
}
