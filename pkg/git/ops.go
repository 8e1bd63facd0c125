package git

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
)

// 🔧 Operations mutates the repository. Every call is synchronous.
type Operations interface {
	// CreateBranch switches to name, creating it from HEAD when missing
	CreateBranch(ctx context.Context, name string) error
	// StageFiles stages exactly the given paths
	StageFiles(ctx context.Context, paths []string) error
	// Commit records exactly paths, leaving anything else in the index
	// untouched, and returns the new commit id
	Commit(ctx context.Context, message string, paths []string) (string, error)
	// Push pushes branch and sets its upstream
	Push(ctx context.Context, branch string) error
	// DirtyFiles lists absolute paths with uncommitted changes, including
	// every file inside untracked directories
	DirtyFiles(ctx context.Context) ([]string, error)
}

// Client implements Operations for one work tree
type Client struct {
	runner CommandRunner
	dir    string
	root   string
	remote string
}

var _ Operations = (*Client)(nil)

// 🏭 NewClient runs git in dir. root is the top of the work tree, used to turn
// status output into absolute paths.
func NewClient(runner CommandRunner, dir, root, remote string) *Client {
	if runner == nil {
		runner = ExecRunner{}
	}
	if remote == "" {
		remote = DefaultRemote
	}
	if root == "" {
		root = dir
	}
	return &Client{runner: runner, dir: dir, root: root, remote: remote}
}

func (c *Client) run(ctx context.Context, args ...string) (string, error) {
	return c.runner.Run(ctx, c.dir, args...)
}

func (c *Client) CreateBranch(ctx context.Context, name string) error {
	logger := zerolog.Ctx(ctx)

	if _, err := c.run(ctx, "rev-parse", "--verify", "--quiet", "refs/heads/"+name); err == nil {
		logger.Debug().Str("branch", name).Msg("reusing existing branch")
		if _, err := c.run(ctx, "checkout", name); err != nil {
			return errors.Errorf("checking out branch %s: %w", name, err)
		}
		return nil
	}

	if _, err := c.run(ctx, "checkout", "-b", name); err != nil {
		return errors.Errorf("creating branch %s: %w", name, err)
	}
	logger.Debug().Str("branch", name).Msg("created branch")
	return nil
}

func (c *Client) StageFiles(ctx context.Context, paths []string) error {
	if len(paths) == 0 {
		return errors.Errorf("staging files: no paths given")
	}
	args := append([]string{"add", "--"}, paths...)
	if _, err := c.run(ctx, args...); err != nil {
		return errors.Errorf("staging files: %w", err)
	}
	return nil
}

func (c *Client) Commit(ctx context.Context, message string, paths []string) (string, error) {
	if len(paths) == 0 {
		return "", errors.Errorf("committing: no paths given")
	}
	args := append([]string{"commit", "--only", "-m", message, "--"}, paths...)
	if _, err := c.run(ctx, args...); err != nil {
		return "", errors.Errorf("committing: %w", err)
	}
	out, err := c.run(ctx, "rev-parse", "HEAD")
	if err != nil {
		return "", errors.Errorf("reading commit id: %w", err)
	}
	return strings.TrimSpace(out), nil
}

func (c *Client) Push(ctx context.Context, branch string) error {
	if _, err := c.run(ctx, "push", "--set-upstream", c.remote, branch); err != nil {
		return errors.Errorf("pushing %s to %s: %w", branch, c.remote, err)
	}
	return nil
}

func (c *Client) DirtyFiles(ctx context.Context) ([]string, error) {
	out, err := c.run(ctx, "status", "--porcelain", "-z", "--untracked-files=all")
	if err != nil {
		return nil, errors.Errorf("reading status: %w", err)
	}

	var files []string
	entries := strings.Split(out, "\x00")
	for i := 0; i < len(entries); i++ {
		entry := entries[i]
		if len(entry) < 4 {
			continue
		}
		// renames and copies are followed by their source path
		if strings.ContainsAny(entry[:2], "RC") {
			i++
		}
		files = append(files, filepath.Join(c.root, filepath.FromSlash(entry[3:])))
	}
	return files, nil
}
