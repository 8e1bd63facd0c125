package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/walteh/replacepr/pkg/operation"
	"github.com/walteh/replacepr/pkg/text"
	"github.com/walteh/replacepr/pkg/walk"
	"gitlab.com/tozd/go/errors"
)

func TestConfig_WithDefaults(t *testing.T) {
	cfg := Config{Directory: "."}.WithDefaults()

	assert.Equal(t, "origin", cfg.Remote)
	assert.Equal(t, "github", cfg.Provider)
	assert.Equal(t, walk.DefaultMaxFiles, cfg.Filter.MaxFiles)
	assert.Equal(t, walk.DefaultExcludeDirs, cfg.Filter.ExcludeDirs)

	custom := Config{Remote: "upstream", Filter: walk.FilterSpec{MaxFiles: 5, ExcludeDirs: []string{}}}.WithDefaults()
	assert.Equal(t, "upstream", custom.Remote)
	assert.Equal(t, 5, custom.Filter.MaxFiles)
	assert.Empty(t, custom.Filter.ExcludeDirs, "explicit empty list is kept")
}

func TestConfig_Validate(t *testing.T) {
	valid := Config{Directory: ".", Search: text.SearchSpec{Pattern: "x"}}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantMsg string
	}{
		{name: "valid", mutate: func(c *Config) {}},
		{name: "missing_pattern", mutate: func(c *Config) { c.Search.Pattern = "" }, wantMsg: "Search.Pattern is required"},
		{name: "negative_max_files", mutate: func(c *Config) { c.Filter.MaxFiles = -1 }, wantMsg: "Filter.MaxFiles failed gte"},
		{name: "bad_api_url", mutate: func(c *Config) { c.APIURL = "not a url" }, wantMsg: "APIURL \"not a url\" is not a valid url"},
		{name: "good_api_url", mutate: func(c *Config) { c.APIURL = "https://ghe.example.com/api/v3" }},
		{name: "bad_base_branch", mutate: func(c *Config) { c.BaseBranch = "a..b" }, wantMsg: "not a valid branch name"},
		{name: "repo_without_owner", mutate: func(c *Config) { c.Repo = "r" }, wantMsg: "Owner is required when Repo is set"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.wantMsg == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrConfiguration)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestValidBranchName(t *testing.T) {
	for _, name := range []string{"main", "feature/x", "text-replace-20250101_120000", "v1.2"} {
		assert.True(t, ValidBranchName(name), name)
	}
	for _, name := range []string{"", "@", "-x", "/x", "x/", "x.", "x.lock", "a..b", "a b", "a~b", "a^b", "a:b", "a?b", "a*b", "a[b", "a\\b", "a@{b", "a//b"} {
		assert.False(t, ValidBranchName(name), name)
	}
}

func TestCanTransition(t *testing.T) {
	assert.True(t, CanTransition("", StateValidating))
	assert.True(t, CanTransition(StateScanning, StateCompleted))
	assert.True(t, CanTransition(StateScanning, StateDryRunning))
	assert.True(t, CanTransition(StatePushing, StateFailed))
	assert.False(t, CanTransition(StateDryRunning, StateCommitting))
	assert.False(t, CanTransition(StateCompleted, StateFailed))
	assert.False(t, CanTransition(StateFailed, StateValidating))
	assert.False(t, CanTransition("", StateFailed))
}

func TestStepError(t *testing.T) {
	cause := errors.New("boom")
	err := newStepError(ErrGitOperation, StatePushing, StateCommitting, cause)

	assert.ErrorIs(t, err, ErrGitOperation)
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, ErrPullRequest)
	assert.Equal(t, "pushing failed: git operation error: boom", err.Error())
	assert.Equal(t, StatusFailed, err.SummaryStatus())

	cfgErr := newStepError(ErrConfiguration, StateValidating, "", errors.Errorf("%w: x is required", ErrConfiguration))
	assert.Equal(t, "validating failed: configuration error: x is required", cfgErr.Error())
	assert.Equal(t, StatusError, cfgErr.SummaryStatus())
	assert.Equal(t, StatusError, newStepError(ErrValidation, StateValidating, "", cause).SummaryStatus())
}

func TestDefaultMessages(t *testing.T) {
	assert.Equal(t, "Replace text: 3 files modified", DefaultCommitMessage(3))
	assert.Equal(t, "Text replacement: 3 files modified", DefaultPRTitle(3))

	body := DefaultPRDescription([]operation.ReplacementResult{
		{Path: "a.txt", Replacements: 2},
		{Path: "same.txt", Replacements: 0},
		{Path: "dir/b.go", Replacements: 1},
	})
	assert.Contains(t, body, "across 2 files")
	assert.Contains(t, body, "- a.txt (2 replacements)\n- dir/b.go (1 replacements)\n")
	assert.NotContains(t, body, "same.txt")
}
