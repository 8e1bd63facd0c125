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

package log

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/walteh/replacepr/pkg/status"
	"github.com/walteh/replacepr/pkg/workflow"
)

// 📦 JobOperation describes a job for the console header
type JobOperation struct {
	Directory   string
	Pattern     string
	Replacement string
	Regex       bool
	DryRun      bool
}

// 🎯 Logger writes human readable console lines and mirrors each one into zerolog
type Logger struct {
	zlog    zerolog.Logger
	console io.Writer
	mu      sync.Mutex
	current *JobOperation
	files   []status.FileInfo
}

// 🏭 New creates a new logger
func New(console io.Writer, zlog zerolog.Logger) *Logger {
	return &Logger{
		zlog:    zlog,
		console: console,
	}
}

// 🔑 contextKey is the type for context values
type contextKey struct{}

// 🎯 FromContext gets the logger from context
func FromContext(ctx context.Context) *Logger {
	logger, ok := ctx.Value(contextKey{}).(*Logger)
	if !ok {
		panic("logger not found in context")
	}
	return logger
}

// 🎯 NewContext adds the logger to context
func NewContext(ctx context.Context, l *Logger) context.Context {
	return context.WithValue(ctx, contextKey{}, l)
}

// 📝 StartJob prints the header for a job
func (l *Logger) StartJob(ctx context.Context, op JobOperation) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.current = &op
	l.files = nil

	verb := "replacing in"
	if op.DryRun {
		verb = "previewing"
	}
	mode := "literal"
	if op.Regex {
		mode = "regex"
	}

	fmt.Fprintf(l.console, "[%s %s]\n", verb, color.New(color.FgCyan).Sprint(op.Directory))
	fmt.Fprintf(l.console, "%s %s → %s %s %s\n",
		color.New(color.FgMagenta).Sprint("◆"),
		color.New(color.Bold).Sprintf("%q", op.Pattern),
		color.New(color.Bold).Sprintf("%q", op.Replacement),
		color.New(color.Faint).Sprint("•"),
		color.New(color.FgYellow).Sprint(mode))

	l.zlog.Info().
		Str("directory", op.Directory).
		Str("pattern", op.Pattern).
		Bool("regex", op.Regex).
		Bool("dry_run", op.DryRun).
		Msg("starting job")
}

// 📝 LogFile prints one file line with its replacement count
func (l *Logger) LogFile(ctx context.Context, info status.FileInfo) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.files = append(l.files, info)
	fmt.Fprintln(l.console, status.FormatFileLine(info))

	ev := l.zlog.Info()
	if info.Error != nil {
		ev = l.zlog.Warn().Err(info.Error)
	}
	ev.Str("file", info.Path).
		Str("status", info.Status.String()).
		Int("replacements", info.Replacements).
		Msg("file")
}

// 📝 LogResults prints a line for every file in a finished job
func (l *Logger) LogResults(ctx context.Context, summary *workflow.JobSummary) {
	st := status.StatusModified
	if summary.DryRun {
		st = status.StatusMatched
	}
	for _, f := range summary.Files {
		fst := st
		if f.Replacements == 0 {
			fst = status.StatusUnchanged
		}
		l.LogFile(ctx, status.FileInfo{
			Path:         f.Path,
			Status:       fst,
			Replacements: f.Replacements,
			BytesBefore:  f.BytesBefore,
			BytesAfter:   f.BytesAfter,
		})
	}
}

// 📝 EndJob prints the outcome of the current job
func (l *Logger) EndJob(ctx context.Context, summary *workflow.JobSummary) {
	l.mu.Lock()
	op := l.current
	logged := len(l.files)
	l.current = nil
	l.files = nil
	l.mu.Unlock()

	if summary == nil {
		return
	}

	for _, w := range summary.Warnings {
		l.Warning(w)
	}

	switch {
	case summary.Status != workflow.StatusCompleted:
		l.Errorf("%s: %s", summary.Status, summary.Error)
	case summary.DryRun:
		l.Successf("would change %d files (%d replacements, %d scanned)", summary.FilesChanged, summary.TotalReplacements, summary.FilesProcessed)
	default:
		l.Successf("changed %d files (%d replacements, %d scanned)", summary.FilesChanged, summary.TotalReplacements, summary.FilesProcessed)
	}

	switch summary.PRStatus {
	case workflow.PROpened:
		l.Successf("pull request %s", summary.PRURL)
	case workflow.PRSkipped:
		l.Warning("no token available, pull request skipped")
	case workflow.PRFailed:
		if summary.PRURL != "" {
			l.Warningf("existing pull request %s", summary.PRURL)
		}
	}

	dir := ""
	if op != nil {
		dir = op.Directory
	}
	l.zlog.Info().
		Str("directory", dir).
		Int("files_logged", logged).
		Str("status", string(summary.Status)).
		Int("files_changed", summary.FilesChanged).
		Int("total_replacements", summary.TotalReplacements).
		Msg("job complete")
}

// 🔭 Observer prints every state change of a run as it happens
func (l *Logger) Observer() workflow.Observer {
	return func(ev workflow.Event) {
		l.mu.Lock()
		defer l.mu.Unlock()

		c := color.New(color.Faint)
		if ev.State == workflow.StateFailed {
			c = color.New(color.FgRed)
		}
		line := fmt.Sprintf("  → %s", ev.State)
		if ev.Message != "" {
			line += " " + ev.Message
		}
		fmt.Fprintln(l.console, c.Sprint(line))

		l.zlog.Debug().Str("from", ev.From.String()).Str("state", ev.State.String()).Msg("state change")
	}
}

// 📝 LogNewline logs a newline
func (l *Logger) LogNewline() {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintln(l.console)
}

// 📝 Header logs a header
func (l *Logger) Header(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	name := color.New(color.Bold, color.FgCyan).Sprint("replacepr")
	fmt.Fprintf(l.console, "\n%s %s\n\n", name, color.New(color.Faint).Sprint("• "+msg))
	l.zlog.Info().Msg(msg)
}

// 📝 Success logs a success message
func (l *Logger) Success(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.console, "✅ %s\n", color.New(color.FgGreen).Sprint(msg))
	l.zlog.Info().Msg(msg)
}

// 📝 Warning logs a warning message
func (l *Logger) Warning(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.console, "⚠️  %s\n", color.New(color.FgYellow).Sprint(msg))
	l.zlog.Warn().Msg(msg)
}

// 📝 Error logs an error message
func (l *Logger) Error(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.console, "❌ %s\n", color.New(color.FgRed).Sprint(msg))
	l.zlog.Error().Msg(msg)
}

// 📝 Info logs an info message
func (l *Logger) Info(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.console, "ℹ️  %s\n", color.New(color.FgCyan).Sprint(msg))
	l.zlog.Info().Msg(msg)
}

// 📝 Infof logs a formatted info message
func (l *Logger) Infof(format string, args ...any) {
	l.Info(fmt.Sprintf(format, args...))
}

// 📝 Warningf logs a formatted warning message
func (l *Logger) Warningf(format string, args ...any) {
	l.Warning(fmt.Sprintf(format, args...))
}

// 📝 Errorf logs a formatted error message
func (l *Logger) Errorf(format string, args ...any) {
	l.Error(fmt.Sprintf(format, args...))
}

// 📝 Successf logs a formatted success message
func (l *Logger) Successf(format string, args ...any) {
	l.Success(fmt.Sprintf(format, args...))
}
