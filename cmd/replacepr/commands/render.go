package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/pterm/pterm"
	"github.com/walteh/replacepr/cmd/replacepr/opts"
	"github.com/walteh/replacepr/pkg/jobs"
	"github.com/walteh/replacepr/pkg/operation"
	"github.com/walteh/replacepr/pkg/text"
	"github.com/walteh/replacepr/pkg/walk"
	"github.com/walteh/replacepr/pkg/workflow"
	"gitlab.com/tozd/go/errors"
	"gopkg.in/yaml.v3"
)

const (
	outputText = "text"
	outputJSON = "json"
	outputYAML = "yaml"
)

func checkOutput(format string) error {
	switch format {
	case outputText, outputJSON, outputYAML:
		return nil
	default:
		return errors.Errorf("unknown output format %q, options: text, json, yaml", format)
	}
}

// jobOutput is one entry of the machine readable output
type jobOutput struct {
	ID        string               `json:"id,omitempty" yaml:"id,omitempty"`
	Directory string               `json:"directory" yaml:"directory"`
	Summary   *workflow.JobSummary `json:"summary" yaml:"summary"`
}

// summaryOf returns the job summary, or an error summary for a job that
// never started
func summaryOf(r jobs.Result) *workflow.JobSummary {
	if r.Snapshot.Summary != nil {
		return r.Snapshot.Summary
	}
	msg := r.Snapshot.Error
	if r.Err != nil {
		msg = r.Err.Error()
	}
	return &workflow.JobSummary{
		Status:   workflow.StatusError,
		PRStatus: workflow.PRNotAttempted,
		Error:    msg,
	}
}

func render(ctx context.Context, o *opts.RootOpts, f *jobFlags, cfgs []workflow.Config, results []jobs.Result, live bool) error {
	switch f.output {
	case outputJSON:
		enc := json.NewEncoder(o.Out)
		enc.SetIndent("", "  ")
		return enc.Encode(structured(cfgs, results))
	case outputYAML:
		enc := yaml.NewEncoder(o.Out)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(structured(cfgs, results))
	}

	for i, r := range results {
		cfg := cfgs[i]
		if !live {
			o.Logger.StartJob(ctx, jobOperation(cfg))
		}
		if r.Err != nil {
			o.Logger.Error(r.Err.Error())
			o.Logger.LogNewline()
			continue
		}

		summary := summaryOf(r)
		o.Logger.LogResults(ctx, summary)
		if f.diff && summary.DryRun {
			if err := writeDiffs(ctx, o.Out, cfg, summary); err != nil {
				o.Logger.Warningf("rendering diff: %v", err)
			}
		}
		o.Logger.EndJob(ctx, summary)
		if !live {
			o.Logger.LogNewline()
		}
	}

	if len(results) > 1 {
		return writeTable(o.Out, cfgs, results)
	}
	return nil
}

// structured is a single summary for one job and a list otherwise
func structured(cfgs []workflow.Config, results []jobs.Result) any {
	if len(results) == 1 {
		return summaryOf(results[0])
	}
	out := make([]jobOutput, 0, len(results))
	for i, r := range results {
		out = append(out, jobOutput{
			ID:        r.Snapshot.ID,
			Directory: cfgs[i].Directory,
			Summary:   summaryOf(r),
		})
	}
	return out
}

func writeDiffs(ctx context.Context, w io.Writer, cfg workflow.Config, summary *workflow.JobSummary) error {
	walker, err := walk.New(cfg.Directory, cfg.Filter)
	if err != nil {
		return err
	}
	matcher, err := text.Compile(cfg.Search)
	if err != nil {
		return err
	}
	op, err := operation.New(operation.Options{Walker: walker, Matcher: matcher})
	if err != nil {
		return err
	}

	for _, file := range summary.Files {
		diff, err := op.Preview(ctx, file.Path)
		if err != nil {
			return errors.Errorf("previewing %s: %w", file.Path, err)
		}
		if _, err := fmt.Fprint(w, diff); err != nil {
			return err
		}
	}
	return nil
}

func writeTable(w io.Writer, cfgs []workflow.Config, results []jobs.Result) error {
	data := pterm.TableData{{"Directory", "Status", "Scanned", "Changed", "Replacements", "PR", "Branch"}}
	for i, r := range results {
		s := summaryOf(r)
		pr := string(s.PRStatus)
		if s.PRURL != "" {
			pr = s.PRURL
		}
		data = append(data, []string{
			cfgs[i].Directory,
			string(s.Status),
			strconv.Itoa(s.FilesProcessed),
			strconv.Itoa(s.FilesChanged),
			strconv.Itoa(s.TotalReplacements),
			pr,
			s.Branch,
		})
	}

	table, err := pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
	if err != nil {
		return errors.Errorf("rendering table: %w", err)
	}
	_, err = fmt.Fprintln(w, table)
	return err
}
