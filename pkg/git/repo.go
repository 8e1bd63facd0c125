package git

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
)

// FallbackBranch is the base branch when neither the current branch nor the
// remote HEAD can be determined
const FallbackBranch = "main"

// 📁 RepoInfo describes the work tree a directory belongs to
type RepoInfo struct {
	IsGitRepo     bool   `json:"is_git_repo" yaml:"is_git_repo"`
	Root          string `json:"root,omitempty" yaml:"root,omitempty"`
	RemoteURL     string `json:"remote_url,omitempty" yaml:"remote_url,omitempty"`
	RemoteHost    string `json:"remote_host,omitempty" yaml:"remote_host,omitempty"`
	RemoteOwner   string `json:"remote_owner,omitempty" yaml:"remote_owner,omitempty"`
	RemoteName    string `json:"remote_name,omitempty" yaml:"remote_name,omitempty"`
	DefaultBranch string `json:"default_branch,omitempty" yaml:"default_branch,omitempty"`
	CurrentBranch string `json:"current_branch,omitempty" yaml:"current_branch,omitempty"`
}

// BaseBranch picks the current branch, then the remote default branch
func (r *RepoInfo) BaseBranch() string {
	if r.CurrentBranch != "" {
		return r.CurrentBranch
	}
	if r.DefaultBranch != "" {
		return r.DefaultBranch
	}
	return FallbackBranch
}

// 🔍 RepoContext resolves repository details for a directory
type RepoContext interface {
	Resolve(ctx context.Context, dir string) (*RepoInfo, error)
}

// Resolver implements RepoContext on top of a CommandRunner
type Resolver struct {
	Runner CommandRunner
	Remote string
}

var _ RepoContext = (*Resolver)(nil)

// NewResolver returns a resolver for the named remote. A nil runner uses the
// git binary.
func NewResolver(runner CommandRunner, remote string) *Resolver {
	if runner == nil {
		runner = ExecRunner{}
	}
	if remote == "" {
		remote = DefaultRemote
	}
	return &Resolver{Runner: runner, Remote: remote}
}

// Resolve returns ErrNotARepository when dir is outside a work tree. A missing
// or unparsable remote is not an error; the remote fields stay empty.
func (r *Resolver) Resolve(ctx context.Context, dir string) (*RepoInfo, error) {
	logger := zerolog.Ctx(ctx)

	top, err := r.Runner.Run(ctx, dir, "rev-parse", "--show-toplevel")
	if err != nil {
		return &RepoInfo{}, errors.Errorf("%w: %s: %w", ErrNotARepository, dir, err)
	}

	info := &RepoInfo{
		IsGitRepo: true,
		Root:      filepath.Clean(strings.TrimSpace(top)),
	}

	if out, err := r.Runner.Run(ctx, dir, "remote", "get-url", r.Remote); err != nil {
		logger.Debug().Str("remote", r.Remote).Err(err).Msg("no remote url")
	} else {
		info.RemoteURL = strings.TrimSpace(out)
		if remote, err := ParseRemoteURL(info.RemoteURL); err != nil {
			logger.Warn().Str("url", info.RemoteURL).Err(err).Msg("could not detect repository from remote")
		} else {
			info.RemoteHost = remote.Host
			info.RemoteOwner = remote.Owner
			info.RemoteName = remote.Name
		}
	}

	if out, err := r.Runner.Run(ctx, dir, "branch", "--show-current"); err == nil {
		info.CurrentBranch = strings.TrimSpace(out)
	}

	info.DefaultBranch = FallbackBranch
	if out, err := r.Runner.Run(ctx, dir, "symbolic-ref", "--short", "refs/remotes/"+r.Remote+"/HEAD"); err == nil {
		if branch := strings.TrimPrefix(strings.TrimSpace(out), r.Remote+"/"); branch != "" {
			info.DefaultBranch = branch
		}
	}

	logger.Debug().
		Str("root", info.Root).
		Str("owner", info.RemoteOwner).
		Str("repo", info.RemoteName).
		Str("current_branch", info.CurrentBranch).
		Str("default_branch", info.DefaultBranch).
		Msg("resolved repository")

	return info, nil
}
