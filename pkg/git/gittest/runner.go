// Package gittest provides a scripted CommandRunner for tests.
package gittest

import (
	"context"
	"strings"
	"sync"

	"gitlab.com/tozd/go/errors"
)

// StatusCommand is the status invocation used to find dirty files
const StatusCommand = "status --porcelain -z --untracked-files=all"

// StatusOutput joins porcelain entries the way -z prints them
func StatusOutput(entries ...string) string {
	if len(entries) == 0 {
		return ""
	}
	return strings.Join(entries, "\x00") + "\x00"
}

// Runner answers git invocations from tables keyed by the space joined args,
// e.g. "rev-parse --show-toplevel". Unknown commands succeed with no output.
type Runner struct {
	Outputs map[string]string
	Errors  map[string]error

	mu    sync.Mutex
	calls []string
}

// NewRunner returns an empty scripted runner
func NewRunner() *Runner {
	return &Runner{
		Outputs: make(map[string]string),
		Errors:  make(map[string]error),
	}
}

// Repo scripts the commands a resolver issues for a healthy repository
func (r *Runner) Repo(root, remoteURL, branch string) *Runner {
	r.Outputs["rev-parse --show-toplevel"] = root + "\n"
	r.Outputs["remote get-url origin"] = remoteURL + "\n"
	r.Outputs["branch --show-current"] = branch + "\n"
	r.Outputs["symbolic-ref --short refs/remotes/origin/HEAD"] = "origin/main\n"
	r.Outputs["rev-parse HEAD"] = "0123456789abcdef0123456789abcdef01234567\n"
	return r
}

// Fail makes command return an error
func (r *Runner) Fail(command, msg string) *Runner {
	r.Errors[command] = errors.New(msg)
	return r
}

func (r *Runner) Run(ctx context.Context, dir string, args ...string) (string, error) {
	command := strings.Join(args, " ")

	r.mu.Lock()
	r.calls = append(r.calls, command)
	r.mu.Unlock()

	if err, ok := r.Errors[command]; ok && err != nil {
		return r.Outputs[command], err
	}
	return r.Outputs[command], nil
}

// Calls returns every command run so far, in order
func (r *Runner) Calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

// Called reports whether any command starting with prefix ran
func (r *Runner) Called(prefix string) bool {
	for _, c := range r.Calls() {
		if strings.HasPrefix(c, prefix) {
			return true
		}
	}
	return false
}
