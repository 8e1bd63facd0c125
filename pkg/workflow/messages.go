package workflow

import (
	"fmt"
	"strings"

	"github.com/walteh/replacepr/pkg/operation"
)

// DefaultCommitMessage is used when no commit message is configured
func DefaultCommitMessage(files int) string {
	return fmt.Sprintf("Replace text: %d files modified", files)
}

// DefaultPRTitle is used when no pull request title is configured
func DefaultPRTitle(files int) string {
	return fmt.Sprintf("Text replacement: %d files modified", files)
}

// DefaultPRDescription lists every changed file with its replacement count.
// Files without replacements are left out.
func DefaultPRDescription(files []operation.ReplacementResult) string {
	changed := make([]operation.ReplacementResult, 0, len(files))
	for _, f := range files {
		if f.Replacements > 0 {
			changed = append(changed, f)
		}
	}

	var sb strings.Builder
	sb.WriteString("## Text Replacement Summary\n\n")
	fmt.Fprintf(&sb, "This PR contains automated text replacements across %d files.\n\n", len(changed))
	sb.WriteString("### Files Modified:\n")
	for _, f := range changed {
		fmt.Fprintf(&sb, "- %s (%d replacements)\n", f.Path, f.Replacements)
	}
	return sb.String()
}
