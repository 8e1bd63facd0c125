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

package jobs

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/walteh/replacepr/pkg/workflow"
	"gitlab.com/tozd/go/errors"
)

// ErrJobNotFound is returned for an unknown job id
var ErrJobNotFound = errors.New("job not found")

// 🏃 Runner executes one workflow run. *workflow.Orchestrator implements it.
type Runner interface {
	RunWithObserver(ctx context.Context, cfg workflow.Config, obs workflow.Observer) (*workflow.JobSummary, error)
}

// 📸 Snapshot is a point-in-time copy of a job
type Snapshot struct {
	ID          string               `json:"id" yaml:"id"`
	Directory   string               `json:"directory" yaml:"directory"`
	DryRun      bool                 `json:"dry_run" yaml:"dry_run"`
	State       workflow.State       `json:"state" yaml:"state"`
	Done        bool                 `json:"done" yaml:"done"`
	Events      []workflow.Event     `json:"events,omitempty" yaml:"events,omitempty"`
	Summary     *workflow.JobSummary `json:"summary,omitempty" yaml:"summary,omitempty"`
	Error       string               `json:"error,omitempty" yaml:"error,omitempty"`
	SubmittedAt time.Time            `json:"submitted_at" yaml:"submitted_at"`
	FinishedAt  time.Time            `json:"finished_at,omitempty" yaml:"finished_at,omitempty"`
}

type job struct {
	id        string
	cfg       workflow.Config
	state     workflow.State
	events    []workflow.Event
	summary   *workflow.JobSummary
	err       error
	submitted time.Time
	finished  time.Time
	cancel    context.CancelFunc
	done      chan struct{}
}

// 🗃️ Store keeps every job submitted through it. Jobs never share state;
// the store only adds bookkeeping and the optional directory lock.
type Store struct {
	runner Runner
	locker *Locker
	now    func() time.Time

	mu   sync.RWMutex
	jobs map[string]*job
}

// StoreOption configures a Store
type StoreOption func(*Store)

// WithLocker rejects jobs whose directory is already held by another job
func WithLocker(l *Locker) StoreOption {
	return func(s *Store) { s.locker = l }
}

// WithStoreClock replaces time.Now for submission and finish times
func WithStoreClock(now func() time.Time) StoreOption {
	return func(s *Store) { s.now = now }
}

// 🏗️ NewStore creates an empty store
func NewStore(runner Runner, opts ...StoreOption) *Store {
	s := &Store{
		runner: runner,
		now:    time.Now,
		jobs:   map[string]*job{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// 📥 Submit starts a job in the background and returns its id. The job runs
// with a context derived from ctx; Cancel stops it early.
func (s *Store) Submit(ctx context.Context, cfg workflow.Config) (string, error) {
	var lock *DirLock
	if s.locker != nil {
		l, err := s.locker.TryLock(cfg.Directory)
		if err != nil {
			return "", errors.Errorf("submitting job: %w", err)
		}
		lock = l
	}

	jobCtx, cancel := context.WithCancel(ctx)
	j := &job{
		id:        uuid.NewString(),
		cfg:       cfg,
		submitted: s.now(),
		cancel:    cancel,
		done:      make(chan struct{}),
	}

	s.mu.Lock()
	s.jobs[j.id] = j
	s.mu.Unlock()

	logger := zerolog.Ctx(ctx).With().Str("job_id", j.id).Logger()
	jobCtx = logger.WithContext(jobCtx)
	logger.Debug().Str("directory", cfg.Directory).Msg("job submitted")

	go func() {
		defer close(j.done)
		defer cancel()
		if lock != nil {
			defer func() {
				if err := lock.Unlock(); err != nil {
					logger.Warn().Err(err).Msg("releasing directory lock")
				}
			}()
		}

		summary, err := s.runner.RunWithObserver(jobCtx, cfg, func(ev workflow.Event) {
			s.mu.Lock()
			defer s.mu.Unlock()
			j.state = ev.State
			j.events = append(j.events, ev)
		})

		s.mu.Lock()
		j.summary = summary
		j.err = err
		j.finished = s.now()
		if summary != nil && j.state == "" {
			j.state = summary.LastState
		}
		s.mu.Unlock()

		logger.Debug().Err(err).Msg("job finished")
	}()

	return j.id, nil
}

// 🔍 Get returns a snapshot of one job
func (s *Store) Get(id string) (Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	j, ok := s.jobs[id]
	if !ok {
		return Snapshot{}, errors.Errorf("%w: %s", ErrJobNotFound, id)
	}
	return j.snapshot(), nil
}

// 📋 List returns every job, oldest first
func (s *Store) List() []Snapshot {
	s.mu.RLock()
	out := make([]Snapshot, 0, len(s.jobs))
	for _, j := range s.jobs {
		out = append(out, j.snapshot())
	}
	s.mu.RUnlock()

	sort.SliceStable(out, func(i, k int) bool {
		if out[i].SubmittedAt.Equal(out[k].SubmittedAt) {
			return out[i].ID < out[k].ID
		}
		return out[i].SubmittedAt.Before(out[k].SubmittedAt)
	})
	return out
}

// ⏳ Wait blocks until the job finishes or ctx is done
func (s *Store) Wait(ctx context.Context, id string) (Snapshot, error) {
	s.mu.RLock()
	j, ok := s.jobs[id]
	s.mu.RUnlock()
	if !ok {
		return Snapshot{}, errors.Errorf("%w: %s", ErrJobNotFound, id)
	}

	select {
	case <-ctx.Done():
		snap, _ := s.Get(id)
		return snap, errors.Errorf("waiting for job %s: %w", id, ctx.Err())
	case <-j.done:
		return s.Get(id)
	}
}

// 🛑 Cancel cancels a running job. Cancelling a finished job does nothing.
func (s *Store) Cancel(id string) error {
	s.mu.RLock()
	j, ok := s.jobs[id]
	s.mu.RUnlock()
	if !ok {
		return errors.Errorf("%w: %s", ErrJobNotFound, id)
	}
	j.cancel()
	return nil
}

// must be called with the store lock held
func (j *job) snapshot() Snapshot {
	snap := Snapshot{
		ID:          j.id,
		Directory:   j.cfg.Directory,
		DryRun:      j.cfg.DryRun,
		State:       j.state,
		Events:      append([]workflow.Event(nil), j.events...),
		Summary:     j.summary,
		SubmittedAt: j.submitted,
		FinishedAt:  j.finished,
	}
	select {
	case <-j.done:
		snap.Done = true
	default:
	}
	if j.err != nil {
		snap.Error = j.err.Error()
	}
	return snap
}
