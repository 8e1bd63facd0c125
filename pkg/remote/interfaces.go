package remote

import (
	"context"
	"sort"
	"strings"
	"sync"

	"gitlab.com/tozd/go/errors"
)

// ErrNoToken means no credentials were available, so the request was never sent
var ErrNoToken = errors.New("no token")

// ErrPullRequestExists means the hosting service already has an open pull
// request for the head branch. Providers return the existing one alongside it
// when they can find it.
var ErrPullRequestExists = errors.New("pull request already exists")

// Options configures a provider instance
type Options struct {
	// APIURL points at a GitHub-compatible API; empty means the public one
	APIURL string
}

// Factory builds a provider from options
type Factory func(opts Options) (PullRequestClient, error)

var (
	registryMu sync.RWMutex
	registry   = map[string]Factory{}
)

// RegisterProvider makes a provider available by name
func RegisterProvider(name string, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[name] = factory
}

// NewProvider builds the named provider
func NewProvider(name string, opts Options) (PullRequestClient, error) {
	registryMu.RLock()
	factory, ok := registry[name]
	registryMu.RUnlock()

	if !ok {
		return nil, errors.Errorf("provider %s not found, options: %s", name, strings.Join(Providers(), ", "))
	}
	return factory(opts)
}

// Providers lists registered provider names
func Providers() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	names := make([]string, 0, len(registry))
	for k := range registry {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// PullRequest is everything needed to open a pull request
type PullRequest struct {
	Owner       string `validate:"required"`
	Repo        string `validate:"required"`
	Head        string `validate:"required"`
	Base        string `validate:"required"`
	Title       string `validate:"required"`
	Description string
	Token       string
}

// PullRequestResult identifies an opened pull request
type PullRequestResult struct {
	URL    string `json:"url" yaml:"url"`
	Number int    `json:"number" yaml:"number"`
}

// PullRequestClient opens pull requests on a hosting service (e.g. GitHub)
type PullRequestClient interface {
	// Name returns the name of the provider (e.g. "github")
	Name() string
	// OpenPullRequest returns ErrNoToken without a network call when pr.Token
	// is empty, and ErrPullRequestExists when one is already open for pr.Head
	OpenPullRequest(ctx context.Context, pr PullRequest) (*PullRequestResult, error)
}
