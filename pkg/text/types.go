package text

import (
	"gitlab.com/tozd/go/errors"
)

var (
	// ErrInvalidPattern is returned when a search spec cannot be compiled
	ErrInvalidPattern = errors.New("invalid pattern")

	// ErrBinary is returned for content that is not valid UTF-8 text
	ErrBinary = errors.New("binary or undecodable content")
)

// SearchSpec defines a single find/replace operation
type SearchSpec struct {
	// Pattern is the text (or regular expression) to search for
	Pattern string `json:"pattern" yaml:"pattern" validate:"required"`

	// Replacement is the text matches are replaced with. In regex mode it may
	// reference capture groups ($1, ${name} or \1).
	Replacement string `json:"replacement" yaml:"replacement"`

	// IsRegex switches Pattern from a literal string to a regular expression
	IsRegex bool `json:"regex,omitempty" yaml:"regex,omitempty"`

	// IgnoreCase makes matching case-insensitive. Matching is case-sensitive by default.
	IgnoreCase bool `json:"ignore_case,omitempty" yaml:"ignore_case,omitempty"`
}

// Position locates a single match inside a file
type Position struct {
	Line   int `json:"line"`   // 1-based line number
	Column int `json:"column"` // 1-based byte column
	Offset int `json:"offset"` // byte offset from the start of the content
	Length int `json:"length"` // length of the match in bytes
}

// FileMatch contains the matches found in one file
type FileMatch struct {
	// Path is the file path the content came from
	Path string `json:"path"`

	// Count is the number of non-overlapping matches
	Count int `json:"count"`

	// Positions is only populated when requested
	Positions []Position `json:"positions,omitempty"`
}

// Transformed contains the result of applying a search spec to file content
type Transformed struct {
	// Content is the new file content, byte-order mark and line endings preserved
	Content []byte

	// Count is the number of replacements that changed the text
	Count int

	// Changed reports whether Content differs from the input
	Changed bool
}
