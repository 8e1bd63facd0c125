package commands

import (
	"context"

	"github.com/spf13/cobra"
	"github.com/walteh/replacepr/cmd/replacepr/opts"
	"github.com/walteh/replacepr/pkg/config"
	"github.com/walteh/replacepr/pkg/jobs"
	"github.com/walteh/replacepr/pkg/log"
	"github.com/walteh/replacepr/pkg/text"
	"github.com/walteh/replacepr/pkg/walk"
	"github.com/walteh/replacepr/pkg/workflow"
	"gitlab.com/tozd/go/errors"
)

// NewRunCmd creates the run command
func NewRunCmd(o *opts.RootOpts) *cobra.Command {
	return newJobCmd(o, false)
}

// NewPreviewCmd creates the preview command, a run that never writes
func NewPreviewCmd(o *opts.RootOpts) *cobra.Command {
	return newJobCmd(o, true)
}

func newJobCmd(o *opts.RootOpts, preview bool) *cobra.Command {
	f := &jobFlags{}

	cmd := &cobra.Command{
		Use:   "run <dir> <search> <replace>",
		Short: "Replace text, commit, push and open a pull request",
		Long: `Run replaces every match of <search> with <replace> in the files below
<dir>, commits the changed files on a new branch, pushes the branch and opens
a pull request when a token is available.

Jobs can also be described in YAML, HCL or JSON files and passed with -f;
several files run concurrently.`,
		Example: `  replacepr run . 'colour' 'color' --ext .md
  replacepr run . 'version: \d+\.\d+\.\d+' 'version: 2.0.0' --regex --dry-run --diff
  replacepr run -f bump.yaml -f rename.hcl -o json`,
		Args: func(cmd *cobra.Command, args []string) error {
			if len(f.files) > 0 {
				return nil
			}
			if len(args) != 3 {
				return errors.Errorf("expected <dir> <search> <replace> or --file, got %d arguments", len(args))
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			if err := checkOutput(f.output); err != nil {
				return err
			}

			cfgs, err := buildConfigs(ctx, cmd, o, f, args, preview)
			if err != nil {
				return err
			}

			return runJobs(ctx, o, f, cfgs)
		},
	}

	if preview {
		cmd.Use = "preview <dir> <search> <replace>"
		cmd.Short = "Show what run would change without writing anything"
		cmd.Long = `Preview scans and counts exactly like run but never writes files or
touches git. Use --diff to print every change.`
		cmd.Example = `  replacepr preview . 'colour' 'color' --diff`
	}

	f.register(cmd, preview)
	return cmd
}

func buildConfigs(ctx context.Context, cmd *cobra.Command, o *opts.RootOpts, f *jobFlags, args []string, preview bool) ([]workflow.Config, error) {
	var cfgs []workflow.Config

	if len(f.files) > 0 {
		for _, path := range f.files {
			job, err := config.Load(ctx, path)
			if err != nil {
				return nil, err
			}
			cfgs = append(cfgs, job.Workflow(o.Env))
		}
	} else {
		cfgs = append(cfgs, workflow.Config{
			Directory: args[0],
			Search:    text.SearchSpec{Pattern: args[1], Replacement: args[2]},
			Filter:    walk.DefaultFilterSpec(),
			Token:     o.Env.Token,
			APIURL:    o.Env.APIURL,
		}.WithDefaults())
	}

	for i := range cfgs {
		f.apply(cmd, &cfgs[i])
		if preview {
			cfgs[i].DryRun = true
		}
	}
	return cfgs, nil
}

func runJobs(ctx context.Context, o *opts.RootOpts, f *jobFlags, cfgs []workflow.Config) error {
	live := len(cfgs) == 1 && f.output == outputText

	var extra []workflow.Option
	if live {
		o.Logger.StartJob(ctx, jobOperation(cfgs[0]))
		extra = append(extra, workflow.WithObserver(o.Logger.Observer()))
	}

	store := jobs.NewStore(o.Orchestrator(extra...), jobs.WithLocker(&jobs.Locker{}))

	results, err := jobs.RunAll(ctx, store, cfgs, f.parallel)
	if err != nil {
		return err
	}

	if err := render(ctx, o, f, cfgs, results, live); err != nil {
		return err
	}

	return exitFor(results)
}

func jobOperation(cfg workflow.Config) log.JobOperation {
	return log.JobOperation{
		Directory:   cfg.Directory,
		Pattern:     cfg.Search.Pattern,
		Replacement: cfg.Search.Replacement,
		Regex:       cfg.Search.IsRegex,
		DryRun:      cfg.DryRun,
	}
}

// exitFor turns job outcomes into an exit code: rejected or invalid jobs
// win over failed ones
func exitFor(results []jobs.Result) error {
	code := 0
	for _, r := range results {
		switch {
		case r.Err != nil:
			code = CodeError
		case r.Snapshot.Summary == nil:
			code = max(code, CodeFailed)
		case r.Snapshot.Summary.Status == workflow.StatusError:
			code = CodeError
		case r.Snapshot.Summary.Status != workflow.StatusCompleted:
			code = max(code, CodeFailed)
		}
	}
	if code == 0 {
		return nil
	}
	return &ExitError{Code: code}
}
