// Copyright 2025 walteh LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package operation

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/walteh/replacepr/pkg/status"
	"github.com/walteh/replacepr/pkg/text"
	"github.com/walteh/replacepr/pkg/walk"
)

func writeFiles(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		path := filepath.Join(dir, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
}

func readFile(t *testing.T, dir, rel string) string {
	t.Helper()
	content, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(rel)))
	require.NoError(t, err)
	return string(content)
}

func newOperator(t *testing.T, dir string, filter walk.FilterSpec, spec text.SearchSpec) (*Operator, *status.Manager) {
	t.Helper()
	w, err := walk.New(dir, filter)
	require.NoError(t, err)
	m, err := text.Compile(spec)
	require.NoError(t, err)
	mgr := status.New(w.Root(), nil)
	op, err := New(Options{Walker: w, Matcher: m, Files: mgr, Status: mgr})
	require.NoError(t, err)
	return op, mgr
}

func testContext() context.Context {
	logger := zerolog.Nop()
	return logger.WithContext(context.Background())
}

func TestNew(t *testing.T) {
	_, err := New(Options{})
	assert.Error(t, err)

	w, err := walk.New(t.TempDir(), walk.DefaultFilterSpec())
	require.NoError(t, err)
	_, err = New(Options{Walker: w})
	assert.Error(t, err)

	m, err := text.Compile(text.SearchSpec{Pattern: "x"})
	require.NoError(t, err)
	op, err := New(Options{Walker: w, Matcher: m})
	require.NoError(t, err)
	assert.NotNil(t, op.files)
	assert.NotNil(t, op.status)
}

func TestOperator_Scan(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"a.txt":               "hello world",
		"b.md":                "world world",
		"c.txt":               "nothing here",
		"node_modules/d.txt":  "world",
		"bin.dat":             "world\x00",
		"sub/e.go":            "// world",
		"sub/deeper/f.txt":    "WORLD",
		"sub/deeper/ignore.x": "world",
	})

	tests := []struct {
		name         string
		filter       walk.FilterSpec
		spec         text.SearchSpec
		wantScanned  int
		wantMatched  map[string]int
		wantWarnings int
	}{
		{
			name:         "defaults",
			filter:       walk.DefaultFilterSpec(),
			spec:         text.SearchSpec{Pattern: "world"},
			wantScanned:  7,
			wantMatched:  map[string]int{"a.txt": 1, "b.md": 2, "sub/e.go": 1, "sub/deeper/ignore.x": 1},
			wantWarnings: 1,
		},
		{
			name:         "extension_filter",
			filter:       walk.FilterSpec{Extensions: []string{".txt"}, ExcludeDirs: walk.DefaultExcludeDirs},
			spec:         text.SearchSpec{Pattern: "world"},
			wantScanned:  3,
			wantMatched:  map[string]int{"a.txt": 1},
			wantWarnings: 0,
		},
		{
			name:         "ignore_case",
			filter:       walk.FilterSpec{Extensions: []string{"txt"}, ExcludeDirs: walk.DefaultExcludeDirs},
			spec:         text.SearchSpec{Pattern: "world", IgnoreCase: true},
			wantScanned:  3,
			wantMatched:  map[string]int{"a.txt": 1, "sub/deeper/f.txt": 1},
			wantWarnings: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			op, _ := newOperator(t, dir, tt.filter, tt.spec)

			result, err := op.Scan(testContext())
			require.NoError(t, err)

			assert.Equal(t, tt.wantScanned, result.FilesScanned)
			assert.Len(t, result.Warnings, tt.wantWarnings)

			got := make(map[string]int, len(result.Matches))
			for _, m := range result.Matches {
				got[m.Path] = m.Count
			}
			assert.Equal(t, tt.wantMatched, got)
		})
	}
}

func TestOperator_ScanBinaryWarning(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{"bin.dat": "x\x00y"})

	op, mgr := newOperator(t, dir, walk.DefaultFilterSpec(), text.SearchSpec{Pattern: "x"})

	result, err := op.Scan(testContext())
	require.NoError(t, err)
	require.Len(t, result.Warnings, 1)
	assert.ErrorIs(t, result.Warnings[0], text.ErrBinary)
	assert.Equal(t, "bin.dat", result.Warnings[0].Path)
	assert.Empty(t, result.Matches)

	info, err := mgr.GetFileInfo(context.Background(), "bin.dat")
	require.NoError(t, err)
	assert.Equal(t, status.StatusSkipped, info.Status)
}

func TestOperator_ScanLimit(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{"a.txt": "x", "b.txt": "x", "c.txt": "x"})

	op, _ := newOperator(t, dir, walk.FilterSpec{MaxFiles: 2}, text.SearchSpec{Pattern: "x"})

	result, err := op.Scan(testContext())
	require.NoError(t, err)
	assert.True(t, result.LimitReached)
	assert.Equal(t, 2, result.FilesScanned)
	assert.Equal(t, 2, result.TotalMatches())
}

func TestOperator_ScanCancelled(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{"a.txt": "x"})

	op, _ := newOperator(t, dir, walk.DefaultFilterSpec(), text.SearchSpec{Pattern: "x"})

	ctx, cancel := context.WithCancel(testContext())
	cancel()

	_, err := op.Scan(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestOperator_Apply(t *testing.T) {
	tests := []struct {
		name        string
		files       map[string]string
		spec        text.SearchSpec
		dryRun      bool
		wantSummary Summary
		wantContent map[string]string
	}{
		{
			name:        "literal_replace",
			files:       map[string]string{"a.txt": "hello world"},
			spec:        text.SearchSpec{Pattern: "world", Replacement: "there"},
			wantSummary: Summary{FilesProcessed: 1, FilesChanged: 1, TotalReplacements: 1},
			wantContent: map[string]string{"a.txt": "hello there"},
		},
		{
			name:        "dry_run_leaves_disk_alone",
			files:       map[string]string{"a.txt": "hello world"},
			spec:        text.SearchSpec{Pattern: "world", Replacement: "there"},
			dryRun:      true,
			wantSummary: Summary{FilesProcessed: 1, FilesChanged: 1, TotalReplacements: 1},
			wantContent: map[string]string{"a.txt": "hello world"},
		},
		{
			name:        "regex_replace",
			files:       map[string]string{"v.yaml": "version: 1.2.3\n", "other.txt": "none"},
			spec:        text.SearchSpec{Pattern: `version: \d+\.\d+\.\d+`, Replacement: "version: 2.0.0", IsRegex: true},
			wantSummary: Summary{FilesProcessed: 2, FilesChanged: 1, TotalReplacements: 1},
			wantContent: map[string]string{"v.yaml": "version: 2.0.0\n", "other.txt": "none"},
		},
		{
			name:        "equal_replacement_is_not_a_change",
			files:       map[string]string{"a.txt": "same same"},
			spec:        text.SearchSpec{Pattern: "same", Replacement: "same"},
			wantSummary: Summary{FilesProcessed: 1, FilesChanged: 0, TotalReplacements: 0},
			wantContent: map[string]string{"a.txt": "same same"},
		},
		{
			name:        "crlf_preserved",
			files:       map[string]string{"win.txt": "one\r\ntwo\r\n"},
			spec:        text.SearchSpec{Pattern: "one", Replacement: "uno\ndos"},
			wantSummary: Summary{FilesProcessed: 1, FilesChanged: 1, TotalReplacements: 1},
			wantContent: map[string]string{"win.txt": "uno\r\ndos\r\ntwo\r\n"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			writeFiles(t, dir, tt.files)
			ctx := testContext()

			op, _ := newOperator(t, dir, walk.DefaultFilterSpec(), tt.spec)

			scan, err := op.Scan(ctx)
			require.NoError(t, err)

			applied, err := op.Apply(ctx, scan.Matches, tt.dryRun)
			require.NoError(t, err)

			assert.Equal(t, tt.wantSummary, Summarize(scan.FilesScanned, applied.Results))
			for rel, want := range tt.wantContent {
				assert.Equal(t, want, readFile(t, dir, rel), rel)
			}
			for _, res := range applied.Results {
				assert.Equal(t, !tt.dryRun && res.Replacements > 0, res.Written, res.Path)
			}
		})
	}
}

func TestOperator_DryRunMatchesRealRun(t *testing.T) {
	files := map[string]string{
		"a.txt":     "foo foo\nbar foo\n",
		"b/c.md":    "FOO foo",
		"b/d.go":    "package d // foo",
		"e.txt":     "no match",
		"f/bin.bin": "foo\x00",
	}
	spec := text.SearchSpec{Pattern: `fo+`, Replacement: "baz", IsRegex: true}

	run := func(dryRun bool) Summary {
		dir := t.TempDir()
		writeFiles(t, dir, files)
		ctx := testContext()

		op, _ := newOperator(t, dir, walk.DefaultFilterSpec(), spec)
		scan, err := op.Scan(ctx)
		require.NoError(t, err)
		applied, err := op.Apply(ctx, scan.Matches, dryRun)
		require.NoError(t, err)
		return Summarize(scan.FilesScanned, applied.Results)
	}

	dry := run(true)
	real := run(false)
	assert.Equal(t, dry, real)
	assert.Equal(t, Summary{FilesProcessed: 5, FilesChanged: 3, TotalReplacements: 5}, real)
}

func TestOperator_ApplyConverges(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{"a.txt": "colour colour", "b.txt": "colourful"})
	ctx := testContext()

	op, _ := newOperator(t, dir, walk.DefaultFilterSpec(), text.SearchSpec{Pattern: "colour", Replacement: "color"})

	scan, err := op.Scan(ctx)
	require.NoError(t, err)
	_, err = op.Apply(ctx, scan.Matches, false)
	require.NoError(t, err)

	again, err := op.Scan(ctx)
	require.NoError(t, err)
	assert.Empty(t, again.Matches)
}

func TestOperator_ApplyFailures(t *testing.T) {
	if runtime.GOOS == "windows" || os.Getuid() == 0 {
		t.Skip("permission bits are not enforced")
	}

	t.Run("partial_failure_is_a_warning", func(t *testing.T) {
		dir := t.TempDir()
		writeFiles(t, dir, map[string]string{"ok.txt": "x", "locked/no.txt": "x"})
		ctx := testContext()

		op, mgr := newOperator(t, dir, walk.DefaultFilterSpec(), text.SearchSpec{Pattern: "x", Replacement: "y"})
		scan, err := op.Scan(ctx)
		require.NoError(t, err)
		require.Len(t, scan.Matches, 2)

		locked := filepath.Join(dir, "locked")
		require.NoError(t, os.Chmod(locked, 0o555))
		t.Cleanup(func() { _ = os.Chmod(locked, 0o755) })

		applied, err := op.Apply(ctx, scan.Matches, false)
		require.NoError(t, err)
		assert.Equal(t, 1, applied.Failed)
		require.Len(t, applied.Warnings, 1)
		assert.Equal(t, "locked/no.txt", applied.Warnings[0].Path)
		assert.Equal(t, []string{"ok.txt"}, applied.ChangedPaths())

		info, err := mgr.GetFileInfo(ctx, "locked/no.txt")
		require.NoError(t, err)
		assert.Equal(t, status.StatusFailed, info.Status)
	})

	t.Run("all_files_fail", func(t *testing.T) {
		dir := t.TempDir()
		writeFiles(t, dir, map[string]string{"a.txt": "x", "b.txt": "x"})
		ctx := testContext()

		op, _ := newOperator(t, dir, walk.DefaultFilterSpec(), text.SearchSpec{Pattern: "x", Replacement: "y"})
		scan, err := op.Scan(ctx)
		require.NoError(t, err)

		require.NoError(t, os.Remove(filepath.Join(dir, "a.txt")))
		require.NoError(t, os.Remove(filepath.Join(dir, "b.txt")))

		applied, err := op.Apply(ctx, scan.Matches, false)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrAllFilesFailed)
		assert.Equal(t, 2, applied.Failed)
	})
}

func TestDryRunReporter(t *testing.T) {
	r := NewDryRunReporter(10)
	r.AddAll([]ReplacementResult{
		{Path: "a.txt", Replacements: 2},
		{Path: "b.txt", Replacements: 0},
		{Path: "c.txt", Replacements: 5},
	})

	assert.Equal(t, Summary{FilesProcessed: 10, FilesChanged: 2, TotalReplacements: 7}, r.Summary())

	var paths []string
	for _, res := range r.Results() {
		paths = append(paths, res.Path)
	}
	sort.Strings(paths)
	assert.Equal(t, []string{"a.txt", "b.txt", "c.txt"}, paths, "matched files without changes are still reported")
}

func TestOperator_Preview(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"a.txt": "keep\nhello world\nkeep too\n",
		"b.txt": "untouched\n",
	})
	ctx := testContext()

	op, _ := newOperator(t, dir, walk.DefaultFilterSpec(), text.SearchSpec{Pattern: "world", Replacement: "there"})

	diff, err := op.Preview(ctx, "a.txt")
	require.NoError(t, err)
	assert.Equal(t, "--- a.txt\n+++ a.txt\n-hello world\n+hello there\n", diff)
	assert.Equal(t, "keep\nhello world\nkeep too\n", readFile(t, dir, "a.txt"))

	diff, err = op.Preview(ctx, "b.txt")
	require.NoError(t, err)
	assert.Empty(t, diff)

	_, err = op.Preview(ctx, "missing.txt")
	assert.Error(t, err)
}

func TestLineDiff(t *testing.T) {
	assert.Empty(t, LineDiff("x", "same", "same"))
	assert.Equal(t,
		"--- x\n+++ x\n-a\n-b\n+c\n",
		LineDiff("x", "a\nb\n", "c\n"),
	)
}
