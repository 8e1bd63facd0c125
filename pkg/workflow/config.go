package workflow

import (
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/walteh/replacepr/pkg/git"
	"github.com/walteh/replacepr/pkg/text"
	"github.com/walteh/replacepr/pkg/walk"
	"gitlab.com/tozd/go/errors"
)

// DefaultProvider is the pull request provider used when none is configured
const DefaultProvider = "github"

// ⚙️ Config is one run. It is not modified once a run starts.
type Config struct {
	Directory string          `json:"directory" yaml:"directory" validate:"required"`
	Search    text.SearchSpec `json:"search" yaml:"search"`
	Filter    walk.FilterSpec `json:"filter" yaml:"filter"`
	DryRun    bool            `json:"dry_run,omitempty" yaml:"dry_run,omitempty"`

	// Branch is generated as text-replace-YYYYMMDD_HHMMSS when empty
	Branch string `json:"branch,omitempty" yaml:"branch,omitempty" validate:"omitempty,branchname"`
	// BaseBranch defaults to the current branch
	BaseBranch string `json:"base_branch,omitempty" yaml:"base_branch,omitempty" validate:"omitempty,branchname"`

	CommitMessage string `json:"commit_message,omitempty" yaml:"commit_message,omitempty"`
	PRTitle       string `json:"pr_title,omitempty" yaml:"pr_title,omitempty"`
	PRDescription string `json:"pr_description,omitempty" yaml:"pr_description,omitempty"`

	// Owner and Repo are each detected from the remote when empty. A Repo
	// without an Owner is rejected.
	Owner  string `json:"owner,omitempty" yaml:"owner,omitempty" validate:"required_with=Repo"`
	Repo   string `json:"repo,omitempty" yaml:"repo,omitempty"`
	Remote string `json:"remote,omitempty" yaml:"remote,omitempty"`

	Provider string `json:"provider,omitempty" yaml:"provider,omitempty"`
	APIURL   string `json:"api_url,omitempty" yaml:"api_url,omitempty" validate:"omitempty,url"`
	Token    string `json:"-" yaml:"-"`
}

// WithDefaults fills every optional field that has a fixed default
func (c Config) WithDefaults() Config {
	if c.Remote == "" {
		c.Remote = git.DefaultRemote
	}
	if c.Provider == "" {
		c.Provider = DefaultProvider
	}
	if c.Filter.MaxFiles == 0 {
		c.Filter.MaxFiles = walk.DefaultMaxFiles
	}
	if c.Filter.ExcludeDirs == nil {
		c.Filter.ExcludeDirs = append([]string(nil), walk.DefaultExcludeDirs...)
	}
	return c
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func configValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		_ = validate.RegisterValidation("branchname", func(fl validator.FieldLevel) bool {
			return ValidBranchName(fl.Field().String())
		})
	})
	return validate
}

// ✅ Validate checks required fields and formats. Problems wrap
// ErrConfiguration.
func (c Config) Validate() error {
	err := configValidator().Struct(c)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return errors.Errorf("%w: %w", ErrConfiguration, err)
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, describeFieldError(fe))
	}
	return errors.Errorf("%w: %s", ErrConfiguration, strings.Join(msgs, "; "))
}

func describeFieldError(fe validator.FieldError) string {
	field := strings.TrimPrefix(fe.Namespace(), "Config.")
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "required_with":
		return fmt.Sprintf("%s is required when %s is set", field, fe.Param())
	case "branchname":
		return fmt.Sprintf("%s %q is not a valid branch name", field, fe.Value())
	case "url":
		return fmt.Sprintf("%s %q is not a valid url", field, fe.Value())
	default:
		return fmt.Sprintf("%s failed %s", field, fe.Tag())
	}
}

// ValidBranchName applies the subset of git-check-ref-format rules that
// matter for names typed by a user
func ValidBranchName(name string) bool {
	if name == "" || name == "@" {
		return false
	}
	if strings.HasPrefix(name, "-") || strings.HasPrefix(name, "/") || strings.HasSuffix(name, "/") {
		return false
	}
	if strings.HasSuffix(name, ".") || strings.HasSuffix(name, ".lock") {
		return false
	}
	if strings.Contains(name, "..") || strings.Contains(name, "@{") || strings.Contains(name, "//") {
		return false
	}
	for _, r := range name {
		if r < 0x20 || r == 0x7f || strings.ContainsRune(" ~^:?*[\\", r) {
			return false
		}
	}
	return true
}
