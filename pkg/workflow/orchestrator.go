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

// Package workflow sequences a run: validate, scan, replace, commit, push and
// open a pull request.
package workflow

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/walteh/replacepr/pkg/git"
	"github.com/walteh/replacepr/pkg/operation"
	"github.com/walteh/replacepr/pkg/remote"
	"github.com/walteh/replacepr/pkg/status"
	"github.com/walteh/replacepr/pkg/text"
	"github.com/walteh/replacepr/pkg/walk"
	"gitlab.com/tozd/go/errors"
)

// BranchTimeLayout formats the timestamp of generated branch names
const BranchTimeLayout = "20060102_150405"

// GitFactory builds git operations for a resolved repository
type GitFactory func(dir string, info *git.RepoInfo, cfg Config) git.Operations

// Option configures an Orchestrator
type Option func(*Orchestrator)

// WithRunner sets the command runner used by the default repo context and git
// factory
func WithRunner(runner git.CommandRunner) Option {
	return func(o *Orchestrator) { o.runner = runner }
}

// WithRepoContext replaces repository discovery
func WithRepoContext(rc git.RepoContext) Option {
	return func(o *Orchestrator) { o.repo = rc }
}

// WithGitFactory replaces how git operations are built
func WithGitFactory(f GitFactory) Option {
	return func(o *Orchestrator) { o.newGit = f }
}

// WithPullRequestClient sets the client used to open pull requests. Without
// one the provider named in the Config is built from the remote registry.
func WithPullRequestClient(c remote.PullRequestClient) Option {
	return func(o *Orchestrator) { o.pr = c }
}

// WithClock sets the time source for generated branch names and events
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// WithObserver receives every state transition
func WithObserver(obs Observer) Option {
	return func(o *Orchestrator) { o.observer = obs }
}

// 🎼 Orchestrator runs jobs. It holds no per-run state and is safe to share
// between goroutines.
type Orchestrator struct {
	runner   git.CommandRunner
	repo     git.RepoContext
	newGit   GitFactory
	pr       remote.PullRequestClient
	now      func() time.Time
	observer Observer
}

// 🏭 New creates an orchestrator that talks to the real git binary unless
// told otherwise
func New(opts ...Option) *Orchestrator {
	o := &Orchestrator{
		runner: git.ExecRunner{},
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.newGit == nil {
		runner := o.runner
		o.newGit = func(dir string, info *git.RepoInfo, cfg Config) git.Operations {
			return git.NewClient(runner, dir, info.Root, cfg.Remote)
		}
	}
	return o
}

// run is the mutable state of one Run call
type run struct {
	o       *Orchestrator
	cfg     Config
	summary *JobSummary
	state   State
	last    State
	obs     Observer

	walker  *walk.Walker
	matcher *text.Matcher
	files   *status.Manager
	op      *operation.Operator
	info    *git.RepoInfo
	git     git.Operations
}

// 🚀 Run executes one job. The summary is always returned; the error is a
// *StepError when the run did not complete.
func (o *Orchestrator) Run(ctx context.Context, cfg Config) (*JobSummary, error) {
	return o.RunWithObserver(ctx, cfg, nil)
}

// RunWithObserver is Run with an extra per-call observer
func (o *Orchestrator) RunWithObserver(ctx context.Context, cfg Config, obs Observer) (*JobSummary, error) {
	r := &run{
		o:   o,
		cfg: cfg.WithDefaults(),
		obs: obs,
		summary: &JobSummary{
			DryRun:   cfg.DryRun,
			PRStatus: PRNotAttempted,
		},
	}

	logger := zerolog.Ctx(ctx).With().Str("directory", r.cfg.Directory).Bool("dry_run", r.cfg.DryRun).Logger()
	ctx = logger.WithContext(ctx)

	err := r.execute(ctx)
	if err != nil {
		var stepErr *StepError
		if !errors.As(err, &stepErr) {
			stepErr = newStepError(ErrGitOperation, r.state, r.last, err)
		}
		r.summary.Status = stepErr.SummaryStatus()
		r.summary.Success = false
		r.summary.Error = stepErr.Error()
		r.summary.LastState = stepErr.LastState
		r.transition(ctx, StateFailed, stepErr.Error(), stepErr)
		logger.Error().Err(stepErr).Str("state", stepErr.State.String()).Msg("run failed")
		return r.summary, stepErr
	}

	r.summary.Status = StatusCompleted
	r.summary.Success = true
	r.summary.LastState = StateCompleted
	r.transition(ctx, StateCompleted, "", nil)
	return r.summary, nil
}

func (r *run) transition(ctx context.Context, to State, msg string, err error) {
	from := r.state
	if !CanTransition(from, to) {
		zerolog.Ctx(ctx).Warn().Str("from", from.String()).Str("to", to.String()).Msg("unexpected state transition")
	}
	if from != "" && to != StateFailed {
		r.last = from
	}
	r.state = to

	ev := Event{From: from, State: to, Time: r.o.now(), Message: msg, Err: err}
	zerolog.Ctx(ctx).Debug().Str("from", from.String()).Str("to", to.String()).Msg(msg)

	if r.o.observer != nil {
		r.o.observer(ev)
	}
	if r.obs != nil {
		r.obs(ev)
	}
}

func (r *run) fail(kind error, err error) *StepError {
	return newStepError(kind, r.state, r.last, err)
}

func (r *run) execute(ctx context.Context) error {
	if err := r.validate(ctx); err != nil {
		return err
	}

	scan, err := r.scan(ctx)
	if err != nil {
		return err
	}
	if len(scan.Matches) == 0 {
		r.summary.setCounts(operation.Summary{FilesProcessed: scan.FilesScanned})
		zerolog.Ctx(ctx).Info().Int("files_scanned", scan.FilesScanned).Msg("no matches found")
		return nil
	}

	if r.cfg.DryRun {
		return r.dryRun(ctx, scan)
	}

	changed, err := r.replace(ctx, scan)
	if err != nil {
		return err
	}
	if len(changed) == 0 {
		zerolog.Ctx(ctx).Info().Msg("matches found but nothing changed")
		return nil
	}

	if err := r.commit(ctx, changed); err != nil {
		return err
	}
	if err := r.push(ctx); err != nil {
		return err
	}
	return r.openPullRequest(ctx)
}

func (r *run) validate(ctx context.Context) error {
	r.transition(ctx, StateValidating, "validating configuration", nil)

	if err := r.cfg.Validate(); err != nil {
		return r.fail(ErrConfiguration, err)
	}

	matcher, err := text.Compile(r.cfg.Search)
	if err != nil {
		return r.fail(ErrConfiguration, err)
	}
	r.matcher = matcher

	walker, err := walk.New(r.cfg.Directory, r.cfg.Filter)
	if err != nil {
		if errors.Is(err, walk.ErrDirectoryNotFound) {
			return r.fail(ErrValidation, err)
		}
		return r.fail(ErrConfiguration, err)
	}
	r.walker = walker

	repo := r.o.repo
	if repo == nil {
		repo = git.NewResolver(r.o.runner, r.cfg.Remote)
	}
	info, err := repo.Resolve(ctx, walker.Root())
	if err != nil {
		return r.fail(ErrValidation, err)
	}
	if !info.IsGitRepo {
		return r.fail(ErrValidation, errors.Errorf("%w: %s", git.ErrNotARepository, walker.Root()))
	}
	r.info = info

	if r.cfg.Owner == "" {
		r.cfg.Owner = info.RemoteOwner
	}
	if r.cfg.Repo == "" {
		r.cfg.Repo = info.RemoteName
	}
	if r.cfg.BaseBranch == "" {
		r.cfg.BaseBranch = info.BaseBranch()
	}
	if r.cfg.Branch == "" {
		r.cfg.Branch = "text-replace-" + r.o.now().Format(BranchTimeLayout)
	}
	if r.cfg.Branch == r.cfg.BaseBranch {
		return r.fail(ErrValidation, errors.Errorf("branch %q is the base branch", r.cfg.Branch))
	}

	r.summary.BaseBranch = r.cfg.BaseBranch

	logger := zerolog.Ctx(ctx)
	r.files = status.New(walker.Root(), logger)
	op, err := operation.New(operation.Options{
		Walker:  walker,
		Matcher: matcher,
		Files:   r.files,
		Status:  r.files,
	})
	if err != nil {
		return r.fail(ErrConfiguration, err)
	}
	r.op = op

	if !r.cfg.DryRun {
		r.git = r.o.newGit(walker.Root(), info, r.cfg)
	}

	logger.Debug().
		Str("owner", r.cfg.Owner).
		Str("repo", r.cfg.Repo).
		Str("base", r.cfg.BaseBranch).
		Str("branch", r.cfg.Branch).
		Msg("configuration validated")

	return nil
}

func (r *run) scan(ctx context.Context) (*operation.ScanResult, error) {
	r.transition(ctx, StateScanning, "scanning files", nil)

	result, err := r.op.Scan(ctx)
	if err != nil {
		return nil, r.fail(ErrFileAccess, err)
	}
	r.summary.addWarnings(result.Warnings)
	r.summary.LimitReached = result.LimitReached

	if r.cfg.DryRun || len(result.Matches) == 0 {
		return result, nil
	}

	if err := r.checkDirty(ctx, result.Matches); err != nil {
		return nil, err
	}
	return result, nil
}

// checkDirty refuses to touch matched files that already carry uncommitted
// changes, since they would end up in the commit
func (r *run) checkDirty(ctx context.Context, matches []text.FileMatch) error {
	dirty, err := r.git.DirtyFiles(ctx)
	if err != nil {
		return r.fail(ErrGitOperation, err)
	}
	if len(dirty) == 0 {
		return nil
	}

	dirtySet := make(map[string]struct{}, len(dirty))
	for _, p := range dirty {
		dirtySet[canonical(p)] = struct{}{}
	}

	root := canonical(r.walker.Root())
	var conflicts []string
	for _, m := range matches {
		if _, ok := dirtySet[filepath.Join(root, filepath.FromSlash(m.Path))]; ok {
			conflicts = append(conflicts, m.Path)
		}
	}
	if len(conflicts) > 0 {
		return r.fail(ErrGitOperation, errors.Errorf("matched files have uncommitted changes: %v", conflicts))
	}
	return nil
}

func canonical(p string) string {
	if resolved, err := filepath.EvalSymlinks(p); err == nil {
		return resolved
	}
	dir, base := filepath.Split(p)
	if resolved, err := filepath.EvalSymlinks(dir); err == nil {
		return filepath.Join(resolved, base)
	}
	return filepath.Clean(p)
}

func (r *run) dryRun(ctx context.Context, scan *operation.ScanResult) error {
	r.transition(ctx, StateDryRunning, "computing replacements without writing", nil)

	applied, err := r.op.Apply(ctx, scan.Matches, true)
	if applied != nil {
		r.summary.addWarnings(applied.Warnings)
	}
	if err != nil && !errors.Is(err, operation.ErrAllFilesFailed) {
		return r.fail(ErrFileAccess, err)
	}

	reporter := operation.NewDryRunReporter(scan.FilesScanned)
	if applied != nil {
		reporter.AddAll(applied.Results)
	}
	r.summary.setCounts(reporter.Summary())
	r.summary.Files = reporter.Results()
	return nil
}

func (r *run) replace(ctx context.Context, scan *operation.ScanResult) ([]string, error) {
	r.transition(ctx, StateReplacing, "applying replacements", nil)

	applied, err := r.op.Apply(ctx, scan.Matches, false)
	if applied != nil {
		r.summary.addWarnings(applied.Warnings)
	}
	if err != nil {
		return nil, r.fail(ErrFileAccess, err)
	}

	sum := operation.Summarize(scan.FilesScanned, applied.Results)
	r.summary.setCounts(sum)
	r.summary.Files = applied.Results

	return applied.ChangedPaths(), nil
}

func (r *run) commit(ctx context.Context, changed []string) error {
	r.transition(ctx, StateCommitting, fmt.Sprintf("committing %d files on %s", len(changed), r.cfg.Branch), nil)

	if err := r.git.CreateBranch(ctx, r.cfg.Branch); err != nil {
		return r.fail(ErrGitOperation, err)
	}
	r.summary.Branch = r.cfg.Branch

	if err := r.git.StageFiles(ctx, changed); err != nil {
		return r.fail(ErrGitOperation, err)
	}

	msg := r.cfg.CommitMessage
	if msg == "" {
		msg = DefaultCommitMessage(len(changed))
	}
	id, err := r.git.Commit(ctx, msg, changed)
	if err != nil {
		return r.fail(ErrGitOperation, err)
	}
	r.summary.CommitID = id
	return nil
}

func (r *run) push(ctx context.Context) error {
	r.transition(ctx, StatePushing, fmt.Sprintf("pushing %s to %s", r.cfg.Branch, r.cfg.Remote), nil)

	if err := r.git.Push(ctx, r.cfg.Branch); err != nil {
		return r.fail(ErrGitOperation, err)
	}
	return nil
}

func (r *run) openPullRequest(ctx context.Context) error {
	r.transition(ctx, StateOpeningPR, "opening pull request", nil)
	logger := zerolog.Ctx(ctx)

	if r.cfg.Token == "" {
		logger.Info().Msg("no token available, skipping pull request")
		r.summary.PRStatus = PRSkipped
		return nil
	}

	if r.cfg.Owner == "" || r.cfg.Repo == "" {
		r.summary.PRStatus = PRFailed
		return r.fail(ErrPullRequest, errors.Errorf("repository owner and name could not be detected from remote %q", r.cfg.Remote))
	}

	client := r.o.pr
	if client == nil {
		var err error
		client, err = remote.NewProvider(r.cfg.Provider, remote.Options{APIURL: r.cfg.APIURL})
		if err != nil {
			r.summary.PRStatus = PRFailed
			return r.fail(ErrPullRequest, err)
		}
	}

	title := r.cfg.PRTitle
	if title == "" {
		title = DefaultPRTitle(r.summary.FilesChanged)
	}
	body := r.cfg.PRDescription
	if body == "" {
		body = DefaultPRDescription(r.summary.Files)
	}

	res, err := client.OpenPullRequest(ctx, remote.PullRequest{
		Owner:       r.cfg.Owner,
		Repo:        r.cfg.Repo,
		Head:        r.cfg.Branch,
		Base:        r.cfg.BaseBranch,
		Title:       title,
		Description: body,
		Token:       r.cfg.Token,
	})
	if err != nil {
		if errors.Is(err, remote.ErrNoToken) {
			r.summary.PRStatus = PRSkipped
			return nil
		}
		r.summary.PRStatus = PRFailed
		if res != nil {
			r.summary.PRURL = res.URL
			r.summary.PRNumber = res.Number
		}
		return r.fail(ErrPullRequest, err)
	}

	r.summary.PRStatus = PROpened
	r.summary.PRURL = res.URL
	r.summary.PRNumber = res.Number
	return nil
}
