// Package github opens pull requests through the GitHub REST API.
package github

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/go-github/v60/github"
	"github.com/rs/zerolog"
	"github.com/walteh/replacepr/pkg/remote"
	"gitlab.com/tozd/go/errors"
)

// Name is the registry key of this provider
const Name = "github"

// GitHubClient defines the GitHub API operations we need
type GitHubClient interface {
	CreatePullRequest(ctx context.Context, owner, repo string, pr *github.NewPullRequest) (*github.PullRequest, *github.Response, error)
	ListPullRequests(ctx context.Context, owner, repo string, opts *github.PullRequestListOptions) ([]*github.PullRequest, *github.Response, error)
}

// ClientFactory builds an authenticated client for one token
type ClientFactory func(token string) (GitHubClient, error)

// Provider implements remote.PullRequestClient for GitHub and GitHub Enterprise
type Provider struct {
	newClient ClientFactory
}

var _ remote.PullRequestClient = (*Provider)(nil)

func init() {
	remote.RegisterProvider(Name, func(opts remote.Options) (remote.PullRequestClient, error) {
		return NewProvider(opts.APIURL)
	})
}

// NewProvider creates a provider for apiURL. An empty URL or the public API
// URL targets github.com; anything else is treated as an Enterprise server.
func NewProvider(apiURL string) (*Provider, error) {
	apiURL = strings.TrimSpace(apiURL)
	public := apiURL == "" || strings.TrimSuffix(apiURL, "/") == "https://api.github.com"

	if !public {
		if _, err := github.NewClient(nil).WithEnterpriseURLs(apiURL, apiURL); err != nil {
			return nil, errors.Errorf("invalid api url %q: %w", apiURL, err)
		}
	}

	return NewProviderWithFactory(func(token string) (GitHubClient, error) {
		client := github.NewClient(nil).WithAuthToken(token)
		if !public {
			var err error
			client, err = client.WithEnterpriseURLs(apiURL, apiURL)
			if err != nil {
				return nil, errors.Errorf("configuring enterprise urls: %w", err)
			}
		}
		return &githubClientWrapper{client: client}, nil
	}), nil
}

// NewProviderWithFactory lets tests swap the API client
func NewProviderWithFactory(factory ClientFactory) *Provider {
	return &Provider{newClient: factory}
}

// githubClientWrapper wraps the GitHub client to implement our interface
type githubClientWrapper struct {
	client *github.Client
}

func (w *githubClientWrapper) CreatePullRequest(ctx context.Context, owner, repo string, pr *github.NewPullRequest) (*github.PullRequest, *github.Response, error) {
	return w.client.PullRequests.Create(ctx, owner, repo, pr)
}

func (w *githubClientWrapper) ListPullRequests(ctx context.Context, owner, repo string, opts *github.PullRequestListOptions) ([]*github.PullRequest, *github.Response, error) {
	return w.client.PullRequests.List(ctx, owner, repo, opts)
}

// Name returns the name of the provider
func (p *Provider) Name() string {
	return Name
}

// 🚀 OpenPullRequest creates a pull request from pr.Head into pr.Base. When
// GitHub reports that one already exists for the head branch, the error wraps
// remote.ErrPullRequestExists and the open one is returned next to it.
func (p *Provider) OpenPullRequest(ctx context.Context, pr remote.PullRequest) (*remote.PullRequestResult, error) {
	logger := zerolog.Ctx(ctx)

	if pr.Token == "" {
		return nil, remote.ErrNoToken
	}
	if pr.Owner == "" || pr.Repo == "" {
		return nil, errors.Errorf("repository owner and name are required")
	}
	if pr.Head == "" || pr.Base == "" {
		return nil, errors.Errorf("head and base branches are required")
	}

	if err := ctx.Err(); err != nil {
		return nil, errors.Errorf("context error: %w", err)
	}

	client, err := p.newClient(pr.Token)
	if err != nil {
		return nil, err
	}

	logger.Debug().
		Str("repo", pr.Owner+"/"+pr.Repo).
		Str("head", pr.Head).
		Str("base", pr.Base).
		Msg("creating pull request")

	created, resp, err := client.CreatePullRequest(ctx, pr.Owner, pr.Repo, &github.NewPullRequest{
		Title: github.String(pr.Title),
		Head:  github.String(pr.Head),
		Base:  github.String(pr.Base),
		Body:  github.String(pr.Description),
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, errors.Errorf("context error: %w", ctx.Err())
		}
		if alreadyExists(err) {
			return p.findExisting(ctx, client, pr)
		}
		if resp != nil && resp.StatusCode == http.StatusForbidden {
			if _, ok := err.(*github.RateLimitError); ok {
				return nil, errors.Errorf("rate limit exceeded: %w", err)
			}
		}
		return nil, errors.Errorf("creating pull request on GitHub: %w", err)
	}

	logger.Info().Str("url", created.GetHTMLURL()).Int("number", created.GetNumber()).Msg("pull request created")

	return &remote.PullRequestResult{
		URL:    created.GetHTMLURL(),
		Number: created.GetNumber(),
	}, nil
}

func (p *Provider) findExisting(ctx context.Context, client GitHubClient, pr remote.PullRequest) (*remote.PullRequestResult, error) {
	open, _, err := client.ListPullRequests(ctx, pr.Owner, pr.Repo, &github.PullRequestListOptions{
		State: "open",
		Head:  fmt.Sprintf("%s:%s", pr.Owner, pr.Head),
		Base:  pr.Base,
	})
	if err != nil {
		return nil, errors.Errorf("%w for %s, listing it: %w", remote.ErrPullRequestExists, pr.Head, err)
	}
	if len(open) == 0 {
		return nil, errors.Errorf("%w for %s", remote.ErrPullRequestExists, pr.Head)
	}

	existing := &remote.PullRequestResult{
		URL:    open[0].GetHTMLURL(),
		Number: open[0].GetNumber(),
	}
	zerolog.Ctx(ctx).Warn().Str("url", existing.URL).Msg("pull request already open")

	return existing, errors.Errorf("%w: #%d %s", remote.ErrPullRequestExists, existing.Number, existing.URL)
}

func alreadyExists(err error) bool {
	var ghErr *github.ErrorResponse
	if !errors.As(err, &ghErr) {
		return false
	}
	if ghErr.Response == nil || ghErr.Response.StatusCode != http.StatusUnprocessableEntity {
		return false
	}
	for _, e := range ghErr.Errors {
		if strings.Contains(strings.ToLower(e.Message), "already exists") {
			return true
		}
	}
	return strings.Contains(strings.ToLower(ghErr.Message), "already exists")
}
