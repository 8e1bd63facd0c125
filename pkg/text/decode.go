package text

import (
	"bytes"
	"unicode/utf8"

	"gitlab.com/tozd/go/errors"
)

// sniffLen is how much of a file is inspected for NUL bytes
const sniffLen = 8000

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Decode returns content as text with any UTF-8 byte-order mark removed.
// Content containing NUL bytes or invalid UTF-8 returns ErrBinary.
func Decode(content []byte) (string, error) {
	body := bytes.TrimPrefix(content, utf8BOM)

	sniff := body
	if len(sniff) > sniffLen {
		sniff = sniff[:sniffLen]
	}
	if bytes.IndexByte(sniff, 0) >= 0 {
		return "", errors.Errorf("%w: contains NUL bytes", ErrBinary)
	}
	if !utf8.Valid(body) {
		return "", errors.Errorf("%w: not valid UTF-8", ErrBinary)
	}

	return string(body), nil
}

// 🔄 Apply decodes content, substitutes every match and encodes the result
// again. The byte-order mark, the dominant line-ending style and the presence
// of a trailing newline are preserved.
func (m *Matcher) Apply(content []byte) (*Transformed, error) {
	body, err := Decode(content)
	if err != nil {
		return nil, err
	}

	eol := lineEnding(body)
	replacement := m.replLF
	if eol == "\r\n" {
		replacement = m.replCRLF
	}

	out, count := m.replace(body, replacement)
	if count == 0 {
		return &Transformed{Content: content}, nil
	}

	out = keepTrailingNewline(body, out, eol)

	var buf bytes.Buffer
	buf.Grow(len(out) + len(utf8BOM))
	if bytes.HasPrefix(content, utf8BOM) {
		buf.Write(utf8BOM)
	}
	buf.WriteString(out)

	// line-ending fixups can cancel out the substitution entirely
	if bytes.Equal(buf.Bytes(), content) {
		return &Transformed{Content: content}, nil
	}

	return &Transformed{
		Content: buf.Bytes(),
		Count:   count,
		Changed: true,
	}, nil
}

// lineEnding reports "\r\n" when CRLF line endings dominate, "\n" otherwise
func lineEnding(s string) string {
	crlf, lf := 0, 0
	for i := 0; i < len(s); i++ {
		if s[i] != '\n' {
			continue
		}
		if i > 0 && s[i-1] == '\r' {
			crlf++
		} else {
			lf++
		}
	}
	if crlf > lf {
		return "\r\n"
	}
	return "\n"
}

func keepTrailingNewline(before, after, eol string) string {
	had := len(before) > 0 && before[len(before)-1] == '\n'
	has := len(after) > 0 && after[len(after)-1] == '\n'

	switch {
	case had && !has:
		return after + eol
	case !had && has:
		after = after[:len(after)-1]
		if len(after) > 0 && after[len(after)-1] == '\r' {
			after = after[:len(after)-1]
		}
		return after
	default:
		return after
	}
}
