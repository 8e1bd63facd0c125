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

// Package walk enumerates candidate files under a directory tree.
package walk

import (
	"context"
	"io/fs"
	"iter"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
)

var (
	// ErrDirectoryNotFound is returned when the walk root does not exist
	ErrDirectoryNotFound = errors.New("directory not found")

	// ErrFileLimitReached is yielded once when MaxFiles stops the walk early
	ErrFileLimitReached = errors.New("file limit reached")
)

// DefaultExcludeDirs are skipped unless a FilterSpec says otherwise
var DefaultExcludeDirs = []string{".git", "node_modules", "dist", "build", ".next", "__pycache__"}

// DefaultMaxFiles caps a scan when no limit is configured
const DefaultMaxFiles = 10000

// 🔧 FilterSpec decides which files are candidates
type FilterSpec struct {
	// Extensions is an allow-list such as ".go" or "md"; empty allows all
	Extensions []string `json:"extensions,omitempty" yaml:"extensions,omitempty"`

	// ExcludeDirs are directory names skipped at any depth
	ExcludeDirs []string `json:"exclude_dirs,omitempty" yaml:"exclude_dirs,omitempty"`

	// IgnorePatterns are doublestar globs matched against slash separated
	// paths relative to the root
	IgnorePatterns []string `json:"ignore_patterns,omitempty" yaml:"ignore_patterns,omitempty"`

	// SkipHidden skips every file or directory whose name starts with a dot
	SkipHidden bool `json:"skip_hidden,omitempty" yaml:"skip_hidden,omitempty"`

	// MaxFiles is the ceiling on candidate files; zero means DefaultMaxFiles
	MaxFiles int `json:"max_files,omitempty" yaml:"max_files,omitempty" validate:"gte=0"`
}

// DefaultFilterSpec returns the filter used when nothing is configured
func DefaultFilterSpec() FilterSpec {
	return FilterSpec{
		ExcludeDirs: append([]string(nil), DefaultExcludeDirs...),
		SkipHidden:  true,
		MaxFiles:    DefaultMaxFiles,
	}
}

// File is a candidate file produced by the walker
type File struct {
	Path    string // absolute path
	RelPath string // slash separated path relative to the root
	Size    int64
	Mode    fs.FileMode
}

// 🚶 Walker enumerates candidate files below a root directory. It keeps no
// state between walks, so every call to Files starts over.
type Walker struct {
	root       string
	filter     FilterSpec
	extensions map[string]struct{}
	excluded   map[string]struct{}
}

// 🏭 New checks that root is a directory and prepares the filter
func New(root string, filter FilterSpec) (*Walker, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, errors.Errorf("resolving root: %w", err)
	}

	info, err := os.Stat(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Errorf("%w: %s", ErrDirectoryNotFound, abs)
		}
		return nil, errors.Errorf("checking root: %w", err)
	}
	if !info.IsDir() {
		return nil, errors.Errorf("%w: %s is not a directory", ErrDirectoryNotFound, abs)
	}

	for _, pattern := range filter.IgnorePatterns {
		if _, err := doublestar.Match(pattern, ""); err != nil {
			return nil, errors.Errorf("invalid ignore pattern %q: %w", pattern, err)
		}
	}

	if filter.MaxFiles <= 0 {
		filter.MaxFiles = DefaultMaxFiles
	}

	w := &Walker{
		root:       abs,
		filter:     filter,
		extensions: make(map[string]struct{}, len(filter.Extensions)),
		excluded:   make(map[string]struct{}, len(filter.ExcludeDirs)),
	}
	for _, ext := range filter.Extensions {
		if ext = NormalizeExtension(ext); ext != "" {
			w.extensions[ext] = struct{}{}
		}
	}
	for _, dir := range filter.ExcludeDirs {
		w.excluded[dir] = struct{}{}
	}

	return w, nil
}

// Root returns the absolute walk root
func (w *Walker) Root() string {
	return w.root
}

// NormalizeExtension lower-cases ext and makes sure it starts with a dot
func NormalizeExtension(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext == "" {
		return ""
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}

// 🔍 Files returns a lazy sequence of candidate files. A non-nil error in the
// sequence is a warning about one entry (or ErrFileLimitReached as the final
// element); the walk carries on after a warning unless the consumer stops.
func (w *Walker) Files(ctx context.Context) iter.Seq2[File, error] {
	return func(yield func(File, error) bool) {
		logger := zerolog.Ctx(ctx)
		count := 0
		stopped := false

		_ = filepath.WalkDir(w.root, func(path string, d fs.DirEntry, err error) error {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}

			if err != nil {
				if path == w.root {
					stopped = !yield(File{Path: path}, errors.Errorf("reading root: %w", err))
					return filepath.SkipAll
				}
				if !yield(File{Path: path}, errors.Errorf("skipping unreadable entry %s: %w", path, err)) {
					stopped = true
					return filepath.SkipAll
				}
				if d != nil && d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}

			if path == w.root {
				return nil
			}

			rel, relErr := filepath.Rel(w.root, path)
			if relErr != nil {
				return nil
			}
			rel = filepath.ToSlash(rel)

			if d.IsDir() {
				if w.skipDir(d.Name(), rel) {
					logger.Trace().Str("dir", rel).Msg("skipping excluded directory")
					return filepath.SkipDir
				}
				return nil
			}

			// symlinks and other special files are never followed or read
			if !d.Type().IsRegular() {
				return nil
			}

			if !w.include(d.Name(), rel) {
				return nil
			}

			if count >= w.filter.MaxFiles {
				logger.Warn().Int("max_files", w.filter.MaxFiles).Msg("reached maximum file limit")
				stopped = !yield(File{}, errors.Errorf("%w: %d files", ErrFileLimitReached, w.filter.MaxFiles))
				return filepath.SkipAll
			}

			info, infoErr := d.Info()
			if infoErr != nil {
				if !yield(File{Path: path, RelPath: rel}, errors.Errorf("stat %s: %w", rel, infoErr)) {
					stopped = true
					return filepath.SkipAll
				}
				return nil
			}

			count++
			if !yield(File{Path: path, RelPath: rel, Size: info.Size(), Mode: info.Mode()}, nil) {
				stopped = true
				return filepath.SkipAll
			}
			return nil
		})

		if !stopped {
			logger.Debug().Int("files", count).Str("root", w.root).Msg("walk complete")
		}
	}
}

func (w *Walker) skipDir(name, rel string) bool {
	if _, ok := w.excluded[name]; ok {
		return true
	}
	if w.filter.SkipHidden && strings.HasPrefix(name, ".") {
		return true
	}
	return w.ignored(rel)
}

func (w *Walker) include(name, rel string) bool {
	if w.filter.SkipHidden && strings.HasPrefix(name, ".") {
		return false
	}
	if len(w.extensions) > 0 {
		if _, ok := w.extensions[strings.ToLower(filepath.Ext(name))]; !ok {
			return false
		}
	}
	return !w.ignored(rel)
}

func (w *Walker) ignored(rel string) bool {
	for _, pattern := range w.filter.IgnorePatterns {
		if matched, _ := doublestar.Match(pattern, rel); matched {
			return true
		}
	}
	return false
}
