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
	"fmt"

	"github.com/rs/zerolog"
	"github.com/walteh/replacepr/pkg/status"
	"github.com/walteh/replacepr/pkg/text"
	"github.com/walteh/replacepr/pkg/walk"
	"gitlab.com/tozd/go/errors"
)

// ErrAllFilesFailed is returned by Apply when not a single matched file could
// be processed
var ErrAllFilesFailed = errors.New("all matched files failed")

// ⚠️ Warning is a non-fatal problem with one file
type Warning struct {
	Path string `json:"path,omitempty" yaml:"path,omitempty"`
	Err  error  `json:"-" yaml:"-"`
}

func (w Warning) Error() string {
	if w.Path == "" {
		return w.Err.Error()
	}
	return fmt.Sprintf("%s: %v", w.Path, w.Err)
}

func (w Warning) Unwrap() error {
	return w.Err
}

// 📋 ReplacementResult is the outcome for one matched file
type ReplacementResult struct {
	Path         string `json:"path" yaml:"path"`
	Replacements int    `json:"replacements" yaml:"replacements"`
	BytesBefore  int64  `json:"bytes_before" yaml:"bytes_before"`
	BytesAfter   int64  `json:"bytes_after" yaml:"bytes_after"`
	Written      bool   `json:"written" yaml:"written"`
}

// 🔍 ScanResult holds every file with at least one match
type ScanResult struct {
	FilesScanned int
	Matches      []text.FileMatch
	Warnings     []Warning
	LimitReached bool
}

// TotalMatches sums the raw match count over all matched files
func (s *ScanResult) TotalMatches() int {
	total := 0
	for _, m := range s.Matches {
		total += m.Count
	}
	return total
}

// 📝 ApplyResult holds one ReplacementResult per matched file that could be
// processed
type ApplyResult struct {
	Results  []ReplacementResult
	Warnings []Warning
	Failed   int
}

// ChangedPaths returns the files with at least one replacement
func (a *ApplyResult) ChangedPaths() []string {
	paths := make([]string, 0, len(a.Results))
	for _, r := range a.Results {
		if r.Replacements > 0 {
			paths = append(paths, r.Path)
		}
	}
	return paths
}

// 🔧 Options wires the collaborators a scan or apply step needs
type Options struct {
	Walker  *walk.Walker
	Matcher *text.Matcher
	Files   status.FileManager
	Status  status.StatusReporter
}

// 🏭 Operator runs the scan and apply steps over one directory
type Operator struct {
	walker  *walk.Walker
	matcher *text.Matcher
	files   status.FileManager
	status  status.StatusReporter
}

// 🏭 New creates a new operator with the given options
func New(opts Options) (*Operator, error) {
	if opts.Walker == nil {
		return nil, errors.Errorf("walker is required")
	}
	if opts.Matcher == nil {
		return nil, errors.Errorf("matcher is required")
	}
	if opts.Files == nil || opts.Status == nil {
		mgr := status.New(opts.Walker.Root(), nil)
		if opts.Files == nil {
			opts.Files = mgr
		}
		if opts.Status == nil {
			opts.Status = mgr
		}
	}
	return &Operator{
		walker:  opts.Walker,
		matcher: opts.Matcher,
		files:   opts.Files,
		status:  opts.Status,
	}, nil
}

// 🔍 Scan walks the tree and counts matches per file. Files that cannot be
// read or decoded become warnings.
func (o *Operator) Scan(ctx context.Context) (*ScanResult, error) {
	logger := zerolog.Ctx(ctx)
	result := &ScanResult{}

	for file, err := range o.walker.Files(ctx) {
		if err != nil {
			if errors.Is(err, walk.ErrFileLimitReached) {
				result.LimitReached = true
			}
			result.Warnings = append(result.Warnings, Warning{Path: file.RelPath, Err: err})
			continue
		}

		if err := ctx.Err(); err != nil {
			return nil, errors.Errorf("scanning: %w", err)
		}

		result.FilesScanned++

		content, err := o.files.ReadFile(ctx, file.RelPath)
		if err != nil {
			result.Warnings = append(result.Warnings, Warning{Path: file.RelPath, Err: err})
			o.status.TrackFile(ctx, file.RelPath, status.FileInfo{Status: status.StatusFailed, Error: err})
			continue
		}

		body, err := text.Decode(content)
		if err != nil {
			logger.Debug().Str("path", file.RelPath).Err(err).Msg("skipping undecodable file")
			result.Warnings = append(result.Warnings, Warning{Path: file.RelPath, Err: err})
			o.status.TrackFile(ctx, file.RelPath, status.FileInfo{Status: status.StatusSkipped, Error: err})
			continue
		}

		match := o.matcher.Match(file.RelPath, body, false)
		if match.Count == 0 {
			continue
		}

		logger.Debug().Str("path", file.RelPath).Int("matches", match.Count).Msg("file matched")
		result.Matches = append(result.Matches, match)
	}

	if err := ctx.Err(); err != nil {
		return nil, errors.Errorf("scanning: %w", err)
	}

	logger.Debug().
		Int("files_scanned", result.FilesScanned).
		Int("files_matched", len(result.Matches)).
		Int("warnings", len(result.Warnings)).
		Msg("scan complete")

	return result, nil
}

// 🔄 Apply rewrites every matched file. With dryRun set nothing is written but
// the counts are computed the same way, so both modes report identical
// numbers. Per-file failures are warnings; ErrAllFilesFailed is returned when
// every matched file failed.
func (o *Operator) Apply(ctx context.Context, matches []text.FileMatch, dryRun bool) (*ApplyResult, error) {
	logger := zerolog.Ctx(ctx)
	result := &ApplyResult{Results: make([]ReplacementResult, 0, len(matches))}

	o.status.StartOperation(ctx, len(matches))
	defer o.status.FinishOperation(ctx)

	for i, match := range matches {
		if err := ctx.Err(); err != nil {
			return nil, errors.Errorf("applying replacements: %w", err)
		}

		res, err := o.applyFile(ctx, match.Path, dryRun)
		if err != nil {
			logger.Warn().Str("path", match.Path).Err(err).Msg("replacement failed")
			result.Warnings = append(result.Warnings, Warning{Path: match.Path, Err: err})
			result.Failed++
		} else {
			result.Results = append(result.Results, *res)
		}

		o.status.UpdateProgress(ctx, i+1)
	}

	if len(matches) > 0 && result.Failed == len(matches) {
		return result, errors.Errorf("%w: %d of %d", ErrAllFilesFailed, result.Failed, len(matches))
	}

	return result, nil
}

func (o *Operator) applyFile(ctx context.Context, path string, dryRun bool) (*ReplacementResult, error) {
	content, err := o.files.ReadFile(ctx, path)
	if err != nil {
		o.status.TrackFile(ctx, path, status.FileInfo{Status: status.StatusFailed, Error: err})
		return nil, err
	}

	transformed, err := o.matcher.Apply(content)
	if err != nil {
		o.status.TrackFile(ctx, path, status.FileInfo{Status: status.StatusSkipped, Error: err})
		return nil, errors.Errorf("transforming: %w", err)
	}

	res := &ReplacementResult{
		Path:         path,
		Replacements: transformed.Count,
		BytesBefore:  int64(len(content)),
		BytesAfter:   int64(len(transformed.Content)),
	}

	info := status.FileInfo{
		Replacements: res.Replacements,
		BytesBefore:  res.BytesBefore,
		BytesAfter:   res.BytesAfter,
	}

	switch {
	case !transformed.Changed:
		info.Status = status.StatusUnchanged
	case dryRun:
		info.Status = status.StatusMatched
	default:
		if err := o.files.WriteFileAtomic(ctx, path, transformed.Content); err != nil {
			o.status.TrackFile(ctx, path, status.FileInfo{Status: status.StatusFailed, Error: err})
			return nil, err
		}
		res.Written = true
		info.Status = status.StatusModified
	}

	o.status.TrackFile(ctx, path, info)
	return res, nil
}
