package commands

import (
	"encoding/json"
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"github.com/walteh/replacepr/cmd/replacepr/opts"
	"github.com/walteh/replacepr/pkg/git"
	"github.com/walteh/replacepr/pkg/walk"
	"gitlab.com/tozd/go/errors"
	"gopkg.in/yaml.v3"
)

// validation is the result of checking a directory
type validation struct {
	Directory  string        `json:"directory" yaml:"directory"`
	Valid      bool          `json:"valid" yaml:"valid"`
	Repository *git.RepoInfo `json:"repository,omitempty" yaml:"repository,omitempty"`
	BaseBranch string        `json:"base_branch,omitempty" yaml:"base_branch,omitempty"`
	Error      string        `json:"error,omitempty" yaml:"error,omitempty"`
}

// NewValidateCmd creates the validate command
func NewValidateCmd(o *opts.RootOpts) *cobra.Command {
	var remote, output string

	cmd := &cobra.Command{
		Use:   "validate <dir>",
		Short: "Check that a directory is inside a git repository",
		Long: `Validate checks that <dir> exists and belongs to a git work tree, and
prints the repository owner, name and branches that run would use.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			if err := checkOutput(output); err != nil {
				return err
			}

			res := validation{Directory: args[0]}
			if w, err := walk.New(args[0], walk.DefaultFilterSpec()); err != nil {
				res.Error = err.Error()
			} else {
				res.Directory = w.Root()
				info, err := git.NewResolver(o.Runner(), remote).Resolve(ctx, w.Root())
				if err != nil {
					res.Error = err.Error()
				} else {
					res.Valid = true
					res.Repository = info
					res.BaseBranch = info.BaseBranch()
				}
			}

			if err := renderValidation(o, output, res); err != nil {
				return err
			}
			if !res.Valid {
				return &ExitError{Code: CodeError}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&remote, "remote", git.DefaultRemote, "git remote used to detect the repository")
	cmd.Flags().StringVarP(&output, "output", "o", outputText, "output format: text, json or yaml")
	return cmd
}

func renderValidation(o *opts.RootOpts, output string, res validation) error {
	switch output {
	case outputJSON:
		enc := json.NewEncoder(o.Out)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	case outputYAML:
		enc := yaml.NewEncoder(o.Out)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(res)
	}

	if !res.Valid {
		o.Logger.Errorf("%s is not usable: %s", res.Directory, res.Error)
		return nil
	}

	o.Logger.Successf("%s is a git repository", res.Directory)
	info := res.Repository
	data := pterm.TableData{
		{"Root", info.Root},
		{"Remote", info.RemoteURL},
		{"Repository", fmt.Sprintf("%s/%s", info.RemoteOwner, info.RemoteName)},
		{"Current branch", info.CurrentBranch},
		{"Default branch", info.DefaultBranch},
		{"Base branch", res.BaseBranch},
	}
	table, err := pterm.DefaultTable.WithData(data).Srender()
	if err != nil {
		return errors.Errorf("rendering table: %w", err)
	}
	_, err = fmt.Fprintln(o.Out, table)
	return err
}
