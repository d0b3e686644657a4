// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package feedlist reads the feeds file: one URL per line, blank lines
// ignored, no comments or quoting.
package feedlist

import (
	"bufio"
	"fmt"
	"io"
	"iter"
	"os"
	"strings"
)

// maxLineBytes bounds a single line. Longer lines are a read error.
const maxLineBytes = 1 << 20

// Entry is a non-blank line from the feeds file.
type Entry struct {
	// Line is the 1-based line number in the file.
	Line int
	URL  string
}

// Source yields feed entries lazily from a reader. A Source can be ranged
// over once; restarting means opening the file again.
type Source struct {
	r     io.Reader
	blank int
}

// Scan returns a Source over r.
func Scan(r io.Reader) *Source {
	return &Source{r: r}
}

// Entries yields each non-blank line in order. A line is blank when it is
// empty after trimming whitespace. If the underlying reader fails, the
// error is yielded once as the final element.
func (s *Source) Entries() iter.Seq2[Entry, error] {
	return func(yield func(Entry, error) bool) {
		sc := bufio.NewScanner(s.r)
		sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

		line := 0
		for sc.Scan() {
			line++
			text := strings.TrimSpace(sc.Text())
			if len(text) == 0 {
				s.blank++
				continue
			}
			if !yield(Entry{Line: line, URL: text}, nil) {
				return
			}
		}
		if err := sc.Err(); err != nil {
			yield(Entry{}, fmt.Errorf("reading feeds after line %d: %w", line, err))
		}
	}
}

// Blank returns how many blank lines have been skipped so far.
func (s *Source) Blank() int {
	return s.blank
}

// File is a Source backed by an open feeds file.
type File struct {
	*Source
	f *os.File
}

// Open opens the feeds file at path for a single pass.
func Open(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening feeds file %s: %w", path, err)
	}
	return &File{Source: Scan(f), f: f}, nil
}

// Close releases the underlying file.
func (f *File) Close() error {
	return f.f.Close()
}
