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

	"github.com/rs/zerolog"
	"github.com/walteh/replacepr/pkg/workflow"
	"gitlab.com/tozd/go/errors"
	"golang.org/x/sync/errgroup"
)

// 📦 Result is the outcome of one job started by RunAll
type Result struct {
	Snapshot Snapshot
	// Err is set when the job could not be submitted at all
	Err error
}

// Completed reports whether the job ran to the completed status
func (r Result) Completed() bool {
	return r.Err == nil && r.Snapshot.Summary != nil && r.Snapshot.Summary.Status == workflow.StatusCompleted
}

// 🏃 Run submits one job and waits for it
func (s *Store) Run(ctx context.Context, cfg workflow.Config) (Snapshot, error) {
	id, err := s.Submit(ctx, cfg)
	if err != nil {
		return Snapshot{}, err
	}
	return s.Wait(ctx, id)
}

// ⚡ RunAll runs every config through the store, at most limit at a time
// (zero means no limit). Results keep the order of cfgs. A job that fails
// only shows up in its Result; the returned error is reserved for ctx being
// cancelled.
func RunAll(ctx context.Context, s *Store, cfgs []workflow.Config, limit int) ([]Result, error) {
	results := make([]Result, len(cfgs))

	var g errgroup.Group
	if limit > 0 {
		g.SetLimit(limit)
	}

	for i, cfg := range cfgs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				results[i].Err = errors.Errorf("job not started: %w", err)
				return nil
			}

			snap, err := s.Run(ctx, cfg)
			results[i] = Result{Snapshot: snap}
			if err == nil {
				return nil
			}
			if snap.ID == "" {
				zerolog.Ctx(ctx).Warn().Err(err).Str("directory", cfg.Directory).Msg("job rejected")
				results[i].Err = err
				return nil
			}
			return err
		})
	}

	if err := g.Wait(); err != nil {
		return results, errors.Errorf("running jobs: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return results, errors.Errorf("running jobs: %w", err)
	}
	return results, nil
}
