// # internal/pattern/pattern.go

// Package pattern expands ivy-style path patterns. Tokens are written as
// [name] and substituted from an attribute map; segments wrapped in
// parentheses are optional and disappear entirely when any token inside
// them has no value.
package pattern

import (
	"fmt"
	"strings"
)

// Pattern is a parsed path pattern, e.g.
// "reports/[project](-[revision])/[pass].[ext]".
type Pattern struct {
	raw string
}

func New(raw string) Pattern {
	return Pattern{raw: raw}
}

func (p Pattern) String() string {
	return p.raw
}

// Substitute expands the pattern with the given attributes. Unknown tokens
// outside optional segments are an error; inside an optional segment they
// drop the segment.
func (p Pattern) Substitute(attrs map[string]string) (string, error) {
	var out strings.Builder
	s := p.raw

	for len(s) > 0 {
		switch {
		case s[0] == '(':
			end := strings.IndexByte(s, ')')
			if end < 0 {
				return "", fmt.Errorf("pattern %q: unclosed optional segment", p.raw)
			}
			segment, ok := substituteSegment(s[1:end], attrs)
			if ok {
				out.WriteString(segment)
			}
			s = s[end+1:]
		case s[0] == '[':
			end := strings.IndexByte(s, ']')
			if end < 0 {
				return "", fmt.Errorf("pattern %q: unclosed token", p.raw)
			}
			name := s[1:end]
			value, ok := attrs[name]
			if !ok || value == "" {
				return "", fmt.Errorf("pattern %q: no value for token [%s]", p.raw, name)
			}
			out.WriteString(value)
			s = s[end+1:]
		default:
			out.WriteByte(s[0])
			s = s[1:]
		}
	}

	return out.String(), nil
}

// substituteSegment expands an optional segment. It reports false when any
// token inside has no value, which drops the whole segment.
func substituteSegment(segment string, attrs map[string]string) (string, bool) {
	var out strings.Builder

	for len(segment) > 0 {
		if segment[0] == '[' {
			end := strings.IndexByte(segment, ']')
			if end < 0 {
				return "", false
			}
			value, ok := attrs[segment[1:end]]
			if !ok || value == "" {
				return "", false
			}
			out.WriteString(value)
			segment = segment[end+1:]
			continue
		}
		out.WriteByte(segment[0])
		segment = segment[1:]
	}

	return out.String(), true
}
