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

package text

import (
	"regexp"
	"strings"

	"gitlab.com/tozd/go/errors"
)

// 🎯 Matcher is a compiled SearchSpec. It holds no per-file state and is safe
// for concurrent use.
type Matcher struct {
	spec SearchSpec
	re   *regexp.Regexp // nil for case-sensitive literal search

	// replacement normalized to each line-ending style
	replLF   string
	replCRLF string
}

// 🏭 Compile validates the spec and prepares it for matching. Regex patterns are
// compiled exactly once here so that a bad pattern fails before any file I/O.
func Compile(spec SearchSpec) (*Matcher, error) {
	if spec.Pattern == "" {
		return nil, errors.Errorf("%w: pattern is required", ErrInvalidPattern)
	}

	m := &Matcher{spec: spec}

	replacement := spec.Replacement
	switch {
	case spec.IsRegex:
		expr := spec.Pattern
		if spec.IgnoreCase {
			expr = "(?i)" + expr
		}
		re, err := regexp.Compile(expr)
		if err != nil {
			return nil, errors.Errorf("%w: %q: %w", ErrInvalidPattern, spec.Pattern, err)
		}
		m.re = re
		replacement = translateBackrefs(replacement)
	case spec.IgnoreCase:
		m.re = regexp.MustCompile("(?i)" + regexp.QuoteMeta(spec.Pattern))
	}

	m.replLF = toLineEnding(replacement, "\n")
	m.replCRLF = toLineEnding(replacement, "\r\n")

	return m, nil
}

// Spec returns the spec the matcher was compiled from
func (m *Matcher) Spec() SearchSpec {
	return m.spec
}

// 🔍 Count returns the number of non-overlapping matches in content
func (m *Matcher) Count(content string) int {
	if m.re == nil {
		return strings.Count(content, m.spec.Pattern)
	}
	return len(m.re.FindAllStringIndex(content, -1))
}

// 🔍 Match scans content left to right and reports every non-overlapping match.
// Positions are only collected when withPositions is set.
func (m *Matcher) Match(path, content string, withPositions bool) FileMatch {
	fm := FileMatch{Path: path}
	if !withPositions {
		fm.Count = m.Count(content)
		return fm
	}

	locs := m.find(content)
	fm.Count = len(locs)
	fm.Positions = make([]Position, 0, len(locs))

	line, lineStart, scanned := 1, 0, 0
	for _, loc := range locs {
		for i := scanned; i < loc[0]; i++ {
			if content[i] == '\n' {
				line++
				lineStart = i + 1
			}
		}
		scanned = loc[0]
		fm.Positions = append(fm.Positions, Position{
			Line:   line,
			Column: loc[0] - lineStart + 1,
			Offset: loc[0],
			Length: loc[1] - loc[0],
		})
	}

	return fm
}

// 🔄 Replace substitutes every match in content. Only substitutions that
// change the text are counted; when none do, content is returned unchanged.
func (m *Matcher) Replace(content string) (string, int) {
	return m.replace(content, m.replLF)
}

func (m *Matcher) replace(content, replacement string) (string, int) {
	locs := m.find(content)
	if len(locs) == 0 {
		return content, 0
	}

	var b strings.Builder
	b.Grow(len(content))

	count, last := 0, 0
	for _, loc := range locs {
		matched := content[loc[0]:loc[1]]
		repl := replacement
		if m.spec.IsRegex {
			repl = string(m.re.ExpandString(nil, replacement, content, loc))
		}

		b.WriteString(content[last:loc[0]])
		b.WriteString(repl)
		last = loc[1]

		if repl != matched {
			count++
		}
	}

	if count == 0 {
		return content, 0
	}

	b.WriteString(content[last:])
	return b.String(), count
}

// find returns submatch index slices for every non-overlapping match, each
// search resuming at the end of the previous match.
func (m *Matcher) find(content string) [][]int {
	if m.re != nil {
		return m.re.FindAllStringSubmatchIndex(content, -1)
	}

	var locs [][]int
	n := len(m.spec.Pattern)
	for offset := 0; offset <= len(content)-n; {
		i := strings.Index(content[offset:], m.spec.Pattern)
		if i < 0 {
			break
		}
		start := offset + i
		locs = append(locs, []int{start, start + n})
		offset = start + n
	}
	return locs
}

var backrefPattern = regexp.MustCompile(`\\(\\|\d+|g<(\w+)>)`)

// translateBackrefs rewrites \1 and \g<name> references into the ${1} and
// ${name} form understood by regexp.Expand. \\ becomes a single backslash.
func translateBackrefs(replacement string) string {
	if !strings.Contains(replacement, `\`) {
		return replacement
	}
	return backrefPattern.ReplaceAllStringFunc(replacement, func(ref string) string {
		sub := backrefPattern.FindStringSubmatch(ref)
		switch {
		case sub[1] == `\`:
			return `\`
		case sub[2] != "":
			return "${" + sub[2] + "}"
		default:
			return "${" + sub[1] + "}"
		}
	})
}

func toLineEnding(s, eol string) string {
	if !strings.ContainsAny(s, "\r\n") {
		return s
	}
	s = strings.ReplaceAll(s, "\r\n", "\n")
	if eol == "\n" {
		return s
	}
	return strings.ReplaceAll(s, "\n", eol)
}
