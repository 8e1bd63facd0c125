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

package main

import (
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/pterm/pterm"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/walteh/replacepr/cmd/replacepr/commands"
	"github.com/walteh/replacepr/cmd/replacepr/opts"
	"github.com/walteh/replacepr/pkg/config"
	"github.com/walteh/replacepr/pkg/log"
	"gitlab.com/tozd/go/errors"
)

type rootFlags struct {
	debug     bool
	logFormat string
	envFiles  []string
	noColor   bool
}

// newRootCmd wires every subcommand to the shared options
func newRootCmd(o *opts.RootOpts) *cobra.Command {
	flags := &rootFlags{}

	cmd := &cobra.Command{
		Use:   "replacepr",
		Short: "Find and replace text across a repository and open a pull request",
		Long: `replacepr searches a git work tree for a literal string or regular
expression, replaces every match, commits the changed files on a new branch,
pushes it and opens a pull request. Dry runs report what would change
without touching the files or git.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return setup(cmd, o, flags)
		},
	}

	addRootFlags(cmd, flags)

	cmd.AddCommand(
		commands.NewRunCmd(o),
		commands.NewPreviewCmd(o),
		commands.NewValidateCmd(o),
		newVersionCmd(o),
	)

	return cmd
}

// addRootFlags adds shared flags to the root command
func addRootFlags(cmd *cobra.Command, flags *rootFlags) {
	cmd.PersistentFlags().BoolVarP(&flags.debug, "debug", "d", false, "enable debug logging")
	cmd.PersistentFlags().StringVar(&flags.logFormat, "log-format", "console", "structured log format: console or json")
	cmd.PersistentFlags().StringSliceVar(&flags.envFiles, "env-file", []string{".env"}, "dotenv files to load when present")
	cmd.PersistentFlags().BoolVar(&flags.noColor, "no-color", false, "disable coloured output")
}

func setup(cmd *cobra.Command, o *opts.RootOpts, flags *rootFlags) error {
	if o.Out == nil {
		o.Out = cmd.OutOrStdout()
	}

	colour := !flags.noColor && isTerminal(o.Out)
	color.NoColor = !colour
	if !colour {
		pterm.DisableColor()
	}

	zlog, err := setupLogging(cmd.ErrOrStderr(), flags.debug, flags.logFormat, colour)
	if err != nil {
		return err
	}
	ctx := zlog.WithContext(cmd.Context())

	if o.Logger == nil {
		o.Logger = log.New(cmd.ErrOrStderr(), zlog)
	}
	ctx = log.NewContext(ctx, o.Logger)

	env, err := config.LoadEnv(ctx, flags.envFiles...)
	if err != nil {
		return errors.Errorf("loading environment: %w", err)
	}
	o.Env = env

	cmd.SetContext(ctx)
	return nil
}

// setupLogging builds the structured logger. Console lines already cover
// progress, so only warnings are logged unless debug is set.
func setupLogging(w io.Writer, debug bool, format string, colour bool) (zerolog.Logger, error) {
	level := zerolog.WarnLevel
	if debug {
		level = zerolog.DebugLevel
	}

	var out io.Writer
	switch format {
	case "console", "":
		out = zerolog.ConsoleWriter{Out: w, NoColor: !colour}
	case "json":
		out = w
	default:
		return zerolog.Nop(), errors.Errorf("unknown log format %q, options: console, json", format)
	}

	return zerolog.New(out).Level(level).With().Timestamp().Logger(), nil
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
