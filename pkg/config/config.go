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

package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/walteh/replacepr/pkg/text"
	"github.com/walteh/replacepr/pkg/walk"
	"github.com/walteh/replacepr/pkg/workflow"
	"gitlab.com/tozd/go/errors"
)

// DefaultFileName is tried as YAML first and then as HCL
const DefaultFileName = ".replacepr"

// 🔌 Parser is the interface for job file parsers
type Parser interface {
	// 📝 Parse parses a job file from bytes
	Parse(ctx context.Context, data []byte) (*JobFile, error)

	// 🔍 CanParse checks if this parser can handle the given file
	CanParse(filename string) bool
}

var (
	// 🗺️ parsers is a list of available parsers
	parsers []Parser
)

// 📝 Register registers a parser
func Register(p Parser) {
	parsers = append(parsers, p)
}

// 🎯 GetParser returns a parser that can handle the given file
func GetParser(filename string) Parser {
	for _, p := range parsers {
		if p.CanParse(filename) {
			return p
		}
	}
	return nil
}

// 🔎 SearchBlock is the find/replace part of a job file
type SearchBlock struct {
	Pattern     string `json:"pattern" yaml:"pattern" hcl:"pattern"`
	Replacement string `json:"replacement" yaml:"replacement" hcl:"replacement,optional"`
	Regex       bool   `json:"regex,omitempty" yaml:"regex,omitempty" hcl:"regex,optional"`
	IgnoreCase  bool   `json:"ignore_case,omitempty" yaml:"ignore_case,omitempty" hcl:"ignore_case,optional"`
}

// 🧹 FilterBlock narrows the files a job looks at. Unset values fall back to
// the walker defaults.
type FilterBlock struct {
	Extensions     []string `json:"extensions,omitempty" yaml:"extensions,omitempty" hcl:"extensions,optional"`
	ExcludeDirs    []string `json:"exclude_dirs,omitempty" yaml:"exclude_dirs,omitempty" hcl:"exclude_dirs,optional"`
	IgnorePatterns []string `json:"ignore_patterns,omitempty" yaml:"ignore_patterns,omitempty" hcl:"ignore_patterns,optional"`
	SkipHidden     *bool    `json:"skip_hidden,omitempty" yaml:"skip_hidden,omitempty" hcl:"skip_hidden,optional"`
	MaxFiles       int      `json:"max_files,omitempty" yaml:"max_files,omitempty" hcl:"max_files,optional"`
}

// 🌿 GitBlock controls the branch and commit
type GitBlock struct {
	Branch        string `json:"branch,omitempty" yaml:"branch,omitempty" hcl:"branch,optional"`
	BaseBranch    string `json:"base_branch,omitempty" yaml:"base_branch,omitempty" hcl:"base_branch,optional"`
	CommitMessage string `json:"commit_message,omitempty" yaml:"commit_message,omitempty" hcl:"commit_message,optional"`
	Remote        string `json:"remote,omitempty" yaml:"remote,omitempty" hcl:"remote,optional"`
}

// 📬 PullRequestBlock controls the pull request. The token is never read from
// a job file, only from the environment.
type PullRequestBlock struct {
	Title       string `json:"title,omitempty" yaml:"title,omitempty" hcl:"title,optional"`
	Description string `json:"description,omitempty" yaml:"description,omitempty" hcl:"description,optional"`
	Owner       string `json:"owner,omitempty" yaml:"owner,omitempty" hcl:"owner,optional"`
	Repo        string `json:"repo,omitempty" yaml:"repo,omitempty" hcl:"repo,optional"`
	Provider    string `json:"provider,omitempty" yaml:"provider,omitempty" hcl:"provider,optional"`
	APIURL      string `json:"api_url,omitempty" yaml:"api_url,omitempty" hcl:"api_url,optional"`
}

// 📚 JobFile is the on-disk description of one replacement job
type JobFile struct {
	Directory   string            `json:"directory" yaml:"directory" hcl:"directory"`
	DryRun      bool              `json:"dry_run,omitempty" yaml:"dry_run,omitempty" hcl:"dry_run,optional"`
	Search      SearchBlock       `json:"search" yaml:"search" hcl:"search,block"`
	Filter      *FilterBlock      `json:"filter,omitempty" yaml:"filter,omitempty" hcl:"filter,block"`
	Git         *GitBlock         `json:"git,omitempty" yaml:"git,omitempty" hcl:"git,block"`
	PullRequest *PullRequestBlock `json:"pull_request,omitempty" yaml:"pull_request,omitempty" hcl:"pull_request,block"`

	location string
}

// Location is the path the job file was loaded from, empty for parsed bytes
func (j *JobFile) Location() string {
	return j.location
}

// 📝 String returns a short description of the job
func (j *JobFile) String() string {
	mode := "literal"
	if j.Search.Regex {
		mode = "regex"
	}
	return fmt.Sprintf("%s: %q -> %q (%s)", j.Directory, j.Search.Pattern, j.Search.Replacement, mode)
}

// 🔄 Workflow converts the job into a run configuration. A relative
// directory is resolved against the directory holding the job file.
func (j *JobFile) Workflow(env Env) workflow.Config {
	dir := j.Directory
	if dir != "" && !filepath.IsAbs(dir) && j.location != "" {
		dir = filepath.Join(filepath.Dir(j.location), dir)
	}

	cfg := workflow.Config{
		Directory: dir,
		DryRun:    j.DryRun,
		Search: text.SearchSpec{
			Pattern:     j.Search.Pattern,
			Replacement: j.Search.Replacement,
			IsRegex:     j.Search.Regex,
			IgnoreCase:  j.Search.IgnoreCase,
		},
		Filter: walk.DefaultFilterSpec(),
		Token:  env.Token,
		APIURL: env.APIURL,
	}

	if f := j.Filter; f != nil {
		cfg.Filter.Extensions = f.Extensions
		cfg.Filter.IgnorePatterns = f.IgnorePatterns
		if f.ExcludeDirs != nil {
			cfg.Filter.ExcludeDirs = f.ExcludeDirs
		}
		if f.SkipHidden != nil {
			cfg.Filter.SkipHidden = *f.SkipHidden
		}
		if f.MaxFiles != 0 {
			cfg.Filter.MaxFiles = f.MaxFiles
		}
	}

	if g := j.Git; g != nil {
		cfg.Branch = g.Branch
		cfg.BaseBranch = g.BaseBranch
		cfg.CommitMessage = g.CommitMessage
		cfg.Remote = g.Remote
	}

	if pr := j.PullRequest; pr != nil {
		cfg.PRTitle = pr.Title
		cfg.PRDescription = pr.Description
		cfg.Owner = pr.Owner
		cfg.Repo = pr.Repo
		cfg.Provider = pr.Provider
		if pr.APIURL != "" {
			cfg.APIURL = pr.APIURL
		}
	}

	return cfg.WithDefaults()
}

// 🎯 Load reads and parses a job file. The format is picked from the file
// extension; a file named .replacepr may hold YAML or HCL.
func Load(ctx context.Context, path string) (*JobFile, error) {
	logger := zerolog.Ctx(ctx)
	logger.Debug().Str("path", path).Msg("loading job file")

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Errorf("reading job file: %w", err)
	}

	var job *JobFile
	if filepath.Base(path) == DefaultFileName {
		job, err = parseEither(ctx, data)
	} else {
		p := GetParser(path)
		if p == nil {
			return nil, errors.Errorf("no parser found for file: %s", path)
		}
		job, err = p.Parse(ctx, data)
	}
	if err != nil {
		return nil, errors.Errorf("parsing job file %s: %w", path, err)
	}

	job.location = path
	return job, nil
}

func parseEither(ctx context.Context, data []byte) (*JobFile, error) {
	job, yamlErr := (&YAMLParser{}).Parse(ctx, data)
	if yamlErr == nil {
		return job, nil
	}
	job, hclErr := (&HCLParser{}).Parse(ctx, data)
	if hclErr == nil {
		return job, nil
	}
	return nil, errors.Errorf("not valid YAML (%v) or HCL: %w", yamlErr, hclErr)
}

// 📦 LoadWorkflow loads a job file and returns its validated run configuration
func LoadWorkflow(ctx context.Context, path string, env Env) (workflow.Config, error) {
	job, err := Load(ctx, path)
	if err != nil {
		return workflow.Config{}, err
	}

	cfg := job.Workflow(env)
	if err := cfg.Validate(); err != nil {
		return workflow.Config{}, errors.Errorf("validating job file %s: %w", path, err)
	}
	return cfg, nil
}
