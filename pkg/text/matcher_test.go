package text

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompile(t *testing.T) {
	tests := []struct {
		name      string
		spec      SearchSpec
		wantError string
	}{
		{
			name: "literal",
			spec: SearchSpec{Pattern: "world", Replacement: "there"},
		},
		{
			name: "regex",
			spec: SearchSpec{Pattern: `version: \d+\.\d+\.\d+`, IsRegex: true},
		},
		{
			name:      "empty_pattern",
			spec:      SearchSpec{Replacement: "x"},
			wantError: "pattern is required",
		},
		{
			name:      "bad_regex",
			spec:      SearchSpec{Pattern: "(unclosed", IsRegex: true},
			wantError: "invalid pattern",
		},
		{
			name: "regex_chars_in_literal_mode",
			spec: SearchSpec{Pattern: "(unclosed"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := Compile(tt.spec)
			if tt.wantError != "" {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrInvalidPattern)
				assert.Contains(t, err.Error(), tt.wantError)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.spec, m.Spec())
		})
	}
}

func TestMatcher_Count(t *testing.T) {
	tests := []struct {
		name    string
		spec    SearchSpec
		content string
		want    int
	}{
		{
			name:    "literal_single",
			spec:    SearchSpec{Pattern: "world"},
			content: "hello world",
			want:    1,
		},
		{
			name:    "literal_non_overlapping",
			spec:    SearchSpec{Pattern: "aa"},
			content: "aaaa a aaa",
			want:    3,
		},
		{
			name:    "literal_case_sensitive_by_default",
			spec:    SearchSpec{Pattern: "World"},
			content: "world WORLD World",
			want:    1,
		},
		{
			name:    "literal_ignore_case",
			spec:    SearchSpec{Pattern: "World", IgnoreCase: true},
			content: "world WORLD World",
			want:    3,
		},
		{
			name:    "literal_metacharacters",
			spec:    SearchSpec{Pattern: "a.b"},
			content: "a.b axb a.b",
			want:    2,
		},
		{
			name:    "regex",
			spec:    SearchSpec{Pattern: `\d+`, IsRegex: true},
			content: "1 22 333",
			want:    3,
		},
		{
			name:    "no_match",
			spec:    SearchSpec{Pattern: "missing"},
			content: "hello world",
			want:    0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := Compile(tt.spec)
			require.NoError(t, err)
			assert.Equal(t, tt.want, m.Count(tt.content))
		})
	}
}

func TestMatcher_MatchPositions(t *testing.T) {
	m, err := Compile(SearchSpec{Pattern: "foo"})
	require.NoError(t, err)

	fm := m.Match("a.txt", "foo bar\nbaz foo\n\nfoofoo", true)

	assert.Equal(t, "a.txt", fm.Path)
	assert.Equal(t, 4, fm.Count)
	assert.Equal(t, []Position{
		{Line: 1, Column: 1, Offset: 0, Length: 3},
		{Line: 2, Column: 5, Offset: 12, Length: 3},
		{Line: 4, Column: 1, Offset: 17, Length: 3},
		{Line: 4, Column: 4, Offset: 20, Length: 3},
	}, fm.Positions)

	withoutPositions := m.Match("a.txt", "foo bar\nbaz foo\n\nfoofoo", false)
	assert.Equal(t, 4, withoutPositions.Count)
	assert.Nil(t, withoutPositions.Positions)
}

func TestMatcher_Replace(t *testing.T) {
	tests := []struct {
		name      string
		spec      SearchSpec
		content   string
		want      string
		wantCount int
	}{
		{
			name:      "scenario_a_literal",
			spec:      SearchSpec{Pattern: "world", Replacement: "there"},
			content:   "hello world",
			want:      "hello there",
			wantCount: 1,
		},
		{
			name:      "scenario_c_regex",
			spec:      SearchSpec{Pattern: `version: \d+\.\d+\.\d+`, Replacement: "version: 2.0.0", IsRegex: true},
			content:   "version: 1.2.3",
			want:      "version: 2.0.0",
			wantCount: 1,
		},
		{
			name:      "literal_replacement_is_verbatim",
			spec:      SearchSpec{Pattern: "name", Replacement: "$1 ${x} \\1"},
			content:   "name",
			want:      "$1 ${x} \\1",
			wantCount: 1,
		},
		{
			name:      "regex_dollar_backreference",
			spec:      SearchSpec{Pattern: `(\w+)@(\w+)`, Replacement: "$2 at ${1}", IsRegex: true},
			content:   "alice@example",
			want:      "example at alice",
			wantCount: 1,
		},
		{
			name:      "regex_backslash_backreference",
			spec:      SearchSpec{Pattern: `v(\d+)`, Replacement: `version-\1`, IsRegex: true},
			content:   "v1 v22",
			want:      "version-1 version-22",
			wantCount: 2,
		},
		{
			name:      "regex_named_backreference",
			spec:      SearchSpec{Pattern: `(?P<word>\w+)!`, Replacement: `\g<word>?`, IsRegex: true},
			content:   "hey!",
			want:      "hey?",
			wantCount: 1,
		},
		{
			name:      "ignore_case_literal",
			spec:      SearchSpec{Pattern: "hello", Replacement: "bye", IgnoreCase: true},
			content:   "Hello HELLO hello",
			want:      "bye bye bye",
			wantCount: 3,
		},
		{
			name:      "equal_search_and_replace",
			spec:      SearchSpec{Pattern: "same", Replacement: "same"},
			content:   "same same",
			want:      "same same",
			wantCount: 0,
		},
		{
			name:      "no_match",
			spec:      SearchSpec{Pattern: "x", Replacement: "y"},
			content:   "abc",
			want:      "abc",
			wantCount: 0,
		},
		{
			name:      "empty_content",
			spec:      SearchSpec{Pattern: "x", Replacement: "y"},
			content:   "",
			want:      "",
			wantCount: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := Compile(tt.spec)
			require.NoError(t, err)

			got, count := m.Replace(tt.content)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantCount, count)
		})
	}
}

func TestMatcher_ReplaceConverges(t *testing.T) {
	m, err := Compile(SearchSpec{Pattern: "colour", Replacement: "color"})
	require.NoError(t, err)

	once, count := m.Replace("colour colour\ncolourful")
	require.Equal(t, 3, count)

	assert.Zero(t, m.Count(once), "original pattern should no longer match")

	twice, count := m.Replace(once)
	assert.Equal(t, once, twice)
	assert.Zero(t, count, "second pass should report no replacements")
}

func TestMatcher_Apply(t *testing.T) {
	tests := []struct {
		name        string
		spec        SearchSpec
		content     string
		want        string
		wantCount   int
		wantChanged bool
		wantErr     error
	}{
		{
			name:        "lf_file",
			spec:        SearchSpec{Pattern: "world", Replacement: "there"},
			content:     "hello world\n",
			want:        "hello there\n",
			wantCount:   1,
			wantChanged: true,
		},
		{
			name:        "crlf_multiline_replacement",
			spec:        SearchSpec{Pattern: "a", Replacement: "x\ny"},
			content:     "a\r\nb\r\n",
			want:        "x\r\ny\r\nb\r\n",
			wantCount:   1,
			wantChanged: true,
		},
		{
			name:        "trailing_newline_kept",
			spec:        SearchSpec{Pattern: "end\n", Replacement: "end"},
			content:     "the end\n",
			want:        "the end\n",
			wantCount:   0,
			wantChanged: false,
		},
		{
			name:        "no_trailing_newline_kept",
			spec:        SearchSpec{Pattern: "end", Replacement: "end\n"},
			content:     "the end",
			want:        "the end",
			wantCount:   0,
			wantChanged: false,
		},
		{
			name:        "bom_preserved",
			spec:        SearchSpec{Pattern: "old", Replacement: "new"},
			content:     "\xEF\xBB\xBFold",
			want:        "\xEF\xBB\xBFnew",
			wantCount:   1,
			wantChanged: true,
		},
		{
			name:        "unchanged",
			spec:        SearchSpec{Pattern: "zzz", Replacement: "new"},
			content:     "old",
			want:        "old",
			wantCount:   0,
			wantChanged: false,
		},
		{
			name:    "binary",
			spec:    SearchSpec{Pattern: "a", Replacement: "b"},
			content: "a\x00b",
			wantErr: ErrBinary,
		},
		{
			name:    "invalid_utf8",
			spec:    SearchSpec{Pattern: "a", Replacement: "b"},
			content: "a\xff\xfe",
			wantErr: ErrBinary,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := Compile(tt.spec)
			require.NoError(t, err)

			result, err := m.Apply([]byte(tt.content))
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(result.Content))
			assert.Equal(t, tt.wantCount, result.Count)
			assert.Equal(t, tt.wantChanged, result.Changed)
		})
	}
}

func TestTranslateBackrefs(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "plain", want: "plain"},
		{in: `\1-\2`, want: "${1}-${2}"},
		{in: `\g<name>`, want: "${name}"},
		{in: `a\\b`, want: `a\b`},
		{in: "$1 stays", want: "$1 stays"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, translateBackrefs(tt.in))
		})
	}
}
