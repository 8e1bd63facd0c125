package workflow

import (
	"github.com/walteh/replacepr/pkg/operation"
)

// Status is the overall outcome of a run
type Status string

const (
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusError     Status = "error"
)

// PRStatus says what happened to the pull request step
type PRStatus string

const (
	PROpened       PRStatus = "opened"
	PRSkipped      PRStatus = "skipped"
	PRFailed       PRStatus = "failed"
	PRNotAttempted PRStatus = "not_attempted"
)

// 📊 JobSummary is the caller-facing result of one run
type JobSummary struct {
	Status            Status   `json:"status" yaml:"status"`
	FilesProcessed    int      `json:"files_processed" yaml:"files_processed"`
	FilesChanged      int      `json:"files_changed" yaml:"files_changed"`
	TotalReplacements int      `json:"total_replacements" yaml:"total_replacements"`
	Success           bool     `json:"success" yaml:"success"`
	DryRun            bool     `json:"dry_run" yaml:"dry_run"`
	PRURL             string   `json:"pr_url,omitempty" yaml:"pr_url,omitempty"`
	PRNumber          int      `json:"pr_number,omitempty" yaml:"pr_number,omitempty"`
	PRStatus          PRStatus `json:"pr_status" yaml:"pr_status"`
	Error             string   `json:"error,omitempty" yaml:"error,omitempty"`
	Warnings          []string `json:"warnings,omitempty" yaml:"warnings,omitempty"`
	Branch            string   `json:"branch,omitempty" yaml:"branch,omitempty"`
	BaseBranch        string   `json:"base_branch,omitempty" yaml:"base_branch,omitempty"`
	CommitID          string   `json:"commit_id,omitempty" yaml:"commit_id,omitempty"`
	LastState         State    `json:"last_state" yaml:"last_state"`
	LimitReached      bool     `json:"limit_reached,omitempty" yaml:"limit_reached,omitempty"`

	Files []operation.ReplacementResult `json:"files,omitempty" yaml:"files,omitempty"`
}

func (s *JobSummary) setCounts(sum operation.Summary) {
	s.FilesProcessed = sum.FilesProcessed
	s.FilesChanged = sum.FilesChanged
	s.TotalReplacements = sum.TotalReplacements
}

func (s *JobSummary) addWarnings(warnings []operation.Warning) {
	for _, w := range warnings {
		s.Warnings = append(s.Warnings, w.Error())
	}
}
