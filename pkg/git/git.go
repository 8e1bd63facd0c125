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

// Package git drives the local git binary: repository discovery, branch,
// commit and push.
package git

import (
	"bytes"
	"context"
	"net/url"
	"os/exec"
	"strings"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
)

// ErrNotARepository is returned when a directory is not inside a git work tree
var ErrNotARepository = errors.New("not a git repository")

// DefaultRemote is used when no remote name is configured
const DefaultRemote = "origin"

// 🏃 CommandRunner runs git with args inside dir and returns stdout
type CommandRunner interface {
	Run(ctx context.Context, dir string, args ...string) (string, error)
}

// ExecRunner runs the real git binary
type ExecRunner struct {
	// Binary overrides the executable name, "git" when empty
	Binary string
}

func (r ExecRunner) Run(ctx context.Context, dir string, args ...string) (string, error) {
	bin := r.Binary
	if bin == "" {
		bin = "git"
	}

	zerolog.Ctx(ctx).Trace().Str("dir", dir).Strs("args", args).Msg("running git")

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Dir = dir
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = strings.TrimSpace(stdout.String())
		}
		return stdout.String(), errors.Errorf("git %s: %w: %s", strings.Join(args, " "), err, msg)
	}

	return stdout.String(), nil
}

// 🌐 Remote is the parsed form of a remote URL
type Remote struct {
	Host  string `json:"host" yaml:"host"`
	Owner string `json:"owner" yaml:"owner"`
	Name  string `json:"name" yaml:"name"`
}

// ParseRemoteURL understands https, scp-like ssh and ssh:// remote URLs on
// any host
func ParseRemoteURL(raw string) (Remote, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Remote{}, errors.Errorf("empty remote url")
	}

	var host, path string

	switch {
	case strings.Contains(raw, "://"):
		u, err := url.Parse(raw)
		if err != nil {
			return Remote{}, errors.Errorf("parsing remote url %q: %w", raw, err)
		}
		switch u.Scheme {
		case "https", "http", "ssh", "git":
		default:
			return Remote{}, errors.Errorf("unsupported remote url scheme %q", u.Scheme)
		}
		host = u.Hostname()
		path = u.Path
	case strings.Contains(raw, ":"):
		// scp-like: [user@]host:owner/name
		at := strings.LastIndex(raw, "@")
		colon := strings.Index(raw[at+1:], ":") + at + 1
		host = raw[at+1 : colon]
		path = raw[colon+1:]
	default:
		return Remote{}, errors.Errorf("unsupported remote url %q", raw)
	}

	path = strings.TrimSuffix(strings.Trim(path, "/"), ".git")
	parts := strings.Split(path, "/")
	if host == "" || len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return Remote{}, errors.Errorf("unsupported remote url %q", raw)
	}

	return Remote{Host: host, Owner: parts[0], Name: parts[1]}, nil
}
