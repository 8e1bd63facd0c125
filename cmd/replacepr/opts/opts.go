package opts

import (
	"io"

	"github.com/walteh/replacepr/pkg/config"
	"github.com/walteh/replacepr/pkg/git"
	"github.com/walteh/replacepr/pkg/log"
	"github.com/walteh/replacepr/pkg/workflow"
)

// RootOpts contains shared options used by all commands. It is filled in by
// the root command before any subcommand runs.
type RootOpts struct {
	Logger *log.Logger
	// Out receives machine readable output and tables
	Out io.Writer
	Env config.Env

	// GitRunner replaces the git binary; nil means exec
	GitRunner git.CommandRunner
	// Workflow options appended to every orchestrator
	Workflow []workflow.Option
}

// Orchestrator builds a workflow orchestrator with the shared options first
func (o *RootOpts) Orchestrator(extra ...workflow.Option) *workflow.Orchestrator {
	opts := make([]workflow.Option, 0, len(o.Workflow)+len(extra)+1)
	if o.GitRunner != nil {
		opts = append(opts, workflow.WithRunner(o.GitRunner))
	}
	opts = append(opts, o.Workflow...)
	opts = append(opts, extra...)
	return workflow.New(opts...)
}

// Runner returns the configured git runner or the git binary
func (o *RootOpts) Runner() git.CommandRunner {
	if o.GitRunner != nil {
		return o.GitRunner
	}
	return git.ExecRunner{}
}
