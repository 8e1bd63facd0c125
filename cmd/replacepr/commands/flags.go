package commands

import (
	"github.com/spf13/cobra"
	"github.com/walteh/replacepr/pkg/workflow"
)

// jobFlags are the per-job flags shared by run and preview. A flag only
// overrides a job file value when it was set on the command line.
type jobFlags struct {
	regex         bool
	ignoreCase    bool
	extensions    []string
	excludeDirs   []string
	ignore        []string
	includeHidden bool
	maxFiles      int

	branch        string
	base          string
	commitMessage string
	prTitle       string
	prDescription string
	owner         string
	repo          string
	remote        string
	provider      string
	apiURL        string
	token         string

	dryRun   bool
	diff     bool
	output   string
	files    []string
	parallel int
}

func (f *jobFlags) register(cmd *cobra.Command, preview bool) {
	fl := cmd.Flags()
	fl.BoolVar(&f.regex, "regex", false, "treat the search string as a regular expression")
	fl.BoolVar(&f.ignoreCase, "ignore-case", false, "match case-insensitively")
	fl.StringSliceVar(&f.extensions, "ext", nil, "only process files with these extensions (e.g. .go,.md)")
	fl.StringSliceVar(&f.excludeDirs, "exclude-dir", nil, "directory names to skip at any depth (replaces the defaults)")
	fl.StringSliceVar(&f.ignore, "ignore", nil, "doublestar globs of paths to skip (e.g. **/*_test.go)")
	fl.BoolVar(&f.includeHidden, "include-hidden", false, "also process dot files and dot directories")
	fl.IntVar(&f.maxFiles, "max-files", 0, "maximum number of files to scan (default 10000)")

	fl.StringVar(&f.branch, "branch", "", "branch to commit to (default text-replace-<timestamp>)")
	fl.StringVar(&f.base, "base", "", "pull request base branch (default current branch)")
	fl.StringVar(&f.commitMessage, "commit-message", "", "commit message")
	fl.StringVar(&f.prTitle, "pr-title", "", "pull request title")
	fl.StringVar(&f.prDescription, "pr-description", "", "pull request description")
	fl.StringVar(&f.owner, "owner", "", "repository owner (default from the remote url)")
	fl.StringVar(&f.repo, "repo", "", "repository name (default from the remote url)")
	fl.StringVar(&f.remote, "remote", "", "git remote to push to (default origin)")
	fl.StringVar(&f.provider, "provider", "", "pull request provider (default github)")
	fl.StringVar(&f.apiURL, "api-url", "", "API base url for GitHub Enterprise")
	fl.StringVar(&f.token, "token", "", "API token (default $GITHUB_TOKEN)")

	if !preview {
		fl.BoolVar(&f.dryRun, "dry-run", false, "report what would change without writing")
	}
	fl.BoolVar(&f.diff, "diff", false, "print a diff of every change in dry runs")
	fl.StringVarP(&f.output, "output", "o", "text", "output format: text, json or yaml")
	fl.StringSliceVarP(&f.files, "file", "f", nil, "job files to run (repeatable); positional arguments are ignored")
	fl.IntVar(&f.parallel, "parallel", 4, "maximum number of jobs running at once")
}

// apply copies every flag that was set onto cfg
func (f *jobFlags) apply(cmd *cobra.Command, cfg *workflow.Config) {
	changed := cmd.Flags().Changed

	if changed("regex") {
		cfg.Search.IsRegex = f.regex
	}
	if changed("ignore-case") {
		cfg.Search.IgnoreCase = f.ignoreCase
	}
	if changed("ext") {
		cfg.Filter.Extensions = f.extensions
	}
	if changed("exclude-dir") {
		cfg.Filter.ExcludeDirs = f.excludeDirs
	}
	if changed("ignore") {
		cfg.Filter.IgnorePatterns = f.ignore
	}
	if changed("include-hidden") {
		cfg.Filter.SkipHidden = !f.includeHidden
	}
	if changed("max-files") {
		cfg.Filter.MaxFiles = f.maxFiles
	}

	strs := []struct {
		flag string
		val  string
		dst  *string
	}{
		{"branch", f.branch, &cfg.Branch},
		{"base", f.base, &cfg.BaseBranch},
		{"commit-message", f.commitMessage, &cfg.CommitMessage},
		{"pr-title", f.prTitle, &cfg.PRTitle},
		{"pr-description", f.prDescription, &cfg.PRDescription},
		{"owner", f.owner, &cfg.Owner},
		{"repo", f.repo, &cfg.Repo},
		{"remote", f.remote, &cfg.Remote},
		{"provider", f.provider, &cfg.Provider},
		{"api-url", f.apiURL, &cfg.APIURL},
		{"token", f.token, &cfg.Token},
	}
	for _, s := range strs {
		if changed(s.flag) {
			*s.dst = s.val
		}
	}

	if f.dryRun {
		cfg.DryRun = true
	}
}
