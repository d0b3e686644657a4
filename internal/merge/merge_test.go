// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package merge

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeEngine serves documents by base name and records written parts.
type fakeEngine struct {
	docs    map[string]Document
	errs    map[string]error
	written map[string][]PageRange
	order   []string
}

func (f *fakeEngine) Inspect(path string) (Document, error) {
	name := filepath.Base(path)
	if err, ok := f.errs[name]; ok {
		return Document{}, err
	}
	return f.docs[name], nil
}

func (f *fakeEngine) Write(out string, ranges []PageRange) error {
	if f.written == nil {
		f.written = map[string][]PageRange{}
	}
	f.written[out] = ranges
	f.order = append(f.order, filepath.Base(out))
	return nil
}

func touch(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, name := range names {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0o644))
	}
}

func bases(paths []string) []string {
	out := make([]string, len(paths))
	for i, p := range paths {
		out[i] = filepath.Base(p)
	}
	return out
}

func TestSources_NaturalOrderAndPreviousOutputs(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir,
		"feed10.pdf", "feed2.pdf", "Feed1.pdf", "notes.txt",
		"merged.pdf", "merged - Part 1.pdf", "merged - Part 12.pdf",
		"other - Part 1.pdf", ".feed2pdf.lock",
	)
	require.NoError(t, os.Mkdir(filepath.Join(dir, "dir.pdf"), 0o755))

	base, err := filepath.Abs(filepath.Join(dir, "merged.pdf"))
	require.NoError(t, err)
	files, err := Sources(dir, "*.pdf", base)
	require.NoError(t, err)
	assert.Equal(t, []string{"Feed1.pdf", "feed2.pdf", "feed10.pdf", "other - Part 1.pdf"}, bases(files))
}

func TestSources_BadPattern(t *testing.T) {
	_, err := Sources(t.TempDir(), "[", "/tmp/merged.pdf")
	require.Error(t, err)
}

func TestCompareNatural(t *testing.T) {
	names := []string{"b10.pdf", "a.pdf", "b2.pdf", "B1.pdf", "b02x.pdf", "10.pdf", "9.pdf"}
	slices.SortFunc(names, compareNatural)
	assert.Equal(t, []string{"9.pdf", "10.pdf", "a.pdf", "B1.pdf", "b2.pdf", "b02x.pdf", "b10.pdf"}, names)
}

func TestPlan(t *testing.T) {
	tests := []struct {
		name     string
		sources  []Source
		maxPages int
		want     [][]PageRange
	}{
		{
			name:     "everything fits in one part",
			sources:  []Source{{"a", 2}, {"b", 3}},
			maxPages: 10,
			want: [][]PageRange{{
				{File: "a", From: 1, To: 2, Whole: true},
				{File: "b", From: 1, To: 3, Whole: true},
			}},
		},
		{
			name:     "file split across parts",
			sources:  []Source{{"a", 2}, {"b", 3}, {"c", 1}},
			maxPages: 4,
			want: [][]PageRange{
				{{File: "a", From: 1, To: 2, Whole: true}, {File: "b", From: 1, To: 2}},
				{{File: "b", From: 3, To: 3}, {File: "c", From: 1, To: 1, Whole: true}},
			},
		},
		{
			name:     "exact fill starts no empty part",
			sources:  []Source{{"a", 3}, {"b", 3}},
			maxPages: 3,
			want: [][]PageRange{
				{{File: "a", From: 1, To: 3, Whole: true}},
				{{File: "b", From: 1, To: 3, Whole: true}},
			},
		},
		{
			name:     "large file spans several parts",
			sources:  []Source{{"a", 5}},
			maxPages: 2,
			want: [][]PageRange{
				{{File: "a", From: 1, To: 2}},
				{{File: "a", From: 3, To: 4}},
				{{File: "a", From: 5, To: 5}},
			},
		},
		{
			name:     "zero-page files contribute nothing",
			sources:  []Source{{"a", 0}},
			maxPages: 2,
			want:     nil,
		},
		{
			name:     "max pages below one means one",
			sources:  []Source{{"a", 2}},
			maxPages: 0,
			want: [][]PageRange{
				{{File: "a", From: 1, To: 1}},
				{{File: "a", From: 2, To: 2}},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Plan(tt.sources, tt.maxPages))
		})
	}
}

func TestPartPath(t *testing.T) {
	assert.Equal(t, filepath.Join("/srv/pdfs", "digest - Part 3.pdf"), PartPath("/srv/pdfs/digest.pdf", 3))
}

func TestMerge_WritesParts(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "feed1.pdf", "feed2.pdf", "feed10.pdf", "merged - Part 1.pdf")
	engine := &fakeEngine{docs: map[string]Document{
		"feed1.pdf":  {Pages: 3},
		"feed2.pdf":  {Pages: 2},
		"feed10.pdf": {Pages: 4},
	}}
	var out bytes.Buffer

	res, err := New(engine, WithOutput(&out)).Merge(context.Background(), Options{Dir: dir, MaxPages: 4})
	require.NoError(t, err)

	assert.Equal(t, []string{"feed1.pdf", "feed2.pdf", "feed10.pdf"}, bases(res.Merged))
	assert.Equal(t, 9, res.Pages)
	assert.Equal(t, []string{"merged - Part 1.pdf", "merged - Part 2.pdf", "merged - Part 3.pdf"}, engine.order)
	assert.Equal(t, []string{"merged - Part 1.pdf", "merged - Part 2.pdf", "merged - Part 3.pdf"}, bases(res.Parts))

	part2 := engine.written[res.Parts[1]]
	require.Len(t, part2, 2)
	assert.Equal(t, "feed2.pdf", filepath.Base(part2[0].File))
	assert.Equal(t, PageRange{File: part2[1].File, From: 1, To: 3}, part2[1])
	assert.Equal(t, "feed10.pdf", filepath.Base(part2[1].File))

	assert.Contains(t, out.String(), "Merged 3 file(s) into 3 part(s):")
}

func TestMerge_Encrypted(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "a.pdf", "locked.pdf")
	engine := &fakeEngine{docs: map[string]Document{
		"a.pdf":      {Pages: 1},
		"locked.pdf": {Encrypted: true},
	}}

	_, err := New(engine, WithOutput(&bytes.Buffer{})).Merge(context.Background(), Options{Dir: dir})
	var encErr *EncryptedError
	require.ErrorAs(t, err, &encErr)
	assert.Equal(t, "locked.pdf", filepath.Base(encErr.Path))
	assert.Empty(t, engine.order, "nothing is written when an encrypted file aborts the merge")

	var out bytes.Buffer
	res, err := New(engine, WithOutput(&out)).Merge(context.Background(), Options{Dir: dir, SkipEncrypted: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"locked.pdf"}, bases(res.Skipped))
	assert.Contains(t, out.String(), "Skipping encrypted: locked.pdf")
}

func TestMerge_SkipsUnreadable(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "a.pdf", "broken.pdf")
	engine := &fakeEngine{
		docs: map[string]Document{"a.pdf": {Pages: 1}},
		errs: map[string]error{"broken.pdf": errors.New("malformed xref")},
	}
	var out bytes.Buffer

	res, err := New(engine, WithOutput(&out)).Merge(context.Background(), Options{Dir: dir})
	require.NoError(t, err)
	assert.Equal(t, []string{"a.pdf"}, bases(res.Merged))
	assert.Equal(t, []string{"broken.pdf"}, bases(res.Skipped))
	assert.Contains(t, out.String(), "Skipping broken.pdf: malformed xref")
}

func TestMerge_NothingToDo(t *testing.T) {
	dir := t.TempDir()
	_, err := New(&fakeEngine{}, WithOutput(&bytes.Buffer{})).Merge(context.Background(), Options{Dir: dir})
	assert.ErrorIs(t, err, ErrNoSources)

	touch(t, dir, "broken.pdf")
	engine := &fakeEngine{errs: map[string]error{"broken.pdf": errors.New("not a PDF")}}
	_, err = New(engine, WithOutput(&bytes.Buffer{})).Merge(context.Background(), Options{Dir: dir})
	assert.ErrorIs(t, err, ErrNothingMerged)
}

func TestMerge_Canceled(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "a.pdf")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	engine := &fakeEngine{docs: map[string]Document{"a.pdf": {Pages: 1}}}
	_, err := New(engine, WithOutput(&bytes.Buffer{})).Merge(ctx, Options{Dir: dir})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, engine.order)
}
