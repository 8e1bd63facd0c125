package operation

import (
	"context"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
	"github.com/walteh/replacepr/pkg/text"
	"gitlab.com/tozd/go/errors"
)

// 📊 Summary is the aggregate of one scan plus apply pass
type Summary struct {
	FilesProcessed    int `json:"files_processed" yaml:"files_processed"`
	FilesChanged      int `json:"files_changed" yaml:"files_changed"`
	TotalReplacements int `json:"total_replacements" yaml:"total_replacements"`
}

// 🧮 DryRunReporter folds per-file results into a Summary. It only sees
// results, so it cannot touch the filesystem.
type DryRunReporter struct {
	summary Summary
	results []ReplacementResult
}

// NewDryRunReporter starts a report for a scan that looked at filesScanned files
func NewDryRunReporter(filesScanned int) *DryRunReporter {
	return &DryRunReporter{summary: Summary{FilesProcessed: filesScanned}}
}

// Add records one file result
func (r *DryRunReporter) Add(res ReplacementResult) {
	r.results = append(r.results, res)
	if res.Replacements > 0 {
		r.summary.FilesChanged++
		r.summary.TotalReplacements += res.Replacements
	}
}

// AddAll records every result of an apply pass
func (r *DryRunReporter) AddAll(results []ReplacementResult) {
	for _, res := range results {
		r.Add(res)
	}
}

// Summary returns the totals so far
func (r *DryRunReporter) Summary() Summary {
	return r.summary
}

// Results returns every recorded file with at least one match. Files whose
// matches were all identity replacements report zero replacements.
func (r *DryRunReporter) Results() []ReplacementResult {
	return append([]ReplacementResult(nil), r.results...)
}

// Summarize is the same fold as DryRunReporter for a finished apply pass
func Summarize(filesScanned int, results []ReplacementResult) Summary {
	r := NewDryRunReporter(filesScanned)
	r.AddAll(results)
	return r.Summary()
}

// 👀 Preview renders a line diff of what Apply would write to path
func (o *Operator) Preview(ctx context.Context, path string) (string, error) {
	content, err := o.files.ReadFile(ctx, path)
	if err != nil {
		return "", err
	}

	before, err := text.Decode(content)
	if err != nil {
		return "", errors.Errorf("decoding %s: %w", path, err)
	}

	transformed, err := o.matcher.Apply(content)
	if err != nil {
		return "", errors.Errorf("transforming %s: %w", path, err)
	}
	if !transformed.Changed {
		return "", nil
	}

	after, err := text.Decode(transformed.Content)
	if err != nil {
		return "", errors.Errorf("decoding result for %s: %w", path, err)
	}

	return LineDiff(path, before, after), nil
}

// LineDiff renders the changed lines between before and after, prefixed with
// "-" and "+" under a "--- path" / "+++ path" header
func LineDiff(path, before, after string) string {
	if before == after {
		return ""
	}

	dmp := diffmatchpatch.New()
	a, b, lines := dmp.DiffLinesToChars(before, after)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lines)

	var sb strings.Builder
	sb.WriteString("--- " + path + "\n")
	sb.WriteString("+++ " + path + "\n")

	for _, d := range diffs {
		var prefix string
		switch d.Type {
		case diffmatchpatch.DiffDelete:
			prefix = "-"
		case diffmatchpatch.DiffInsert:
			prefix = "+"
		default:
			continue
		}
		for _, line := range splitLines(d.Text) {
			sb.WriteString(prefix + line + "\n")
		}
	}

	return sb.String()
}

func splitLines(s string) []string {
	s = strings.TrimSuffix(s, "\n")
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\r")
	}
	return lines
}
