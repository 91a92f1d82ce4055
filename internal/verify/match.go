package verify

import (
	"strings"

	"github.com/pmezard/go-difflib/difflib"
	"golang.org/x/text/cases"
)

// matcher compares values under one policy. A matcher holds a case folder
// and belongs to a single verification call.
type matcher struct {
	substring     bool
	caseSensitive bool
	fold          cases.Caser
}

func newMatcher(substring, caseSensitive bool) *matcher {
	return &matcher{substring: substring, caseSensitive: caseSensitive, fold: cases.Fold()}
}

// match reports whether actual satisfies expected: containment in
// substring mode, equality otherwise. Without case sensitivity both sides
// are Unicode case-folded first.
func (m *matcher) match(actual, expected string) bool {
	if !m.caseSensitive {
		actual = m.fold.String(actual)
		expected = m.fold.String(expected)
	}
	if m.substring {
		return strings.Contains(actual, expected)
	}
	return actual == expected
}

// diff returns a unified diff of two multi-line values, or "" when both
// fit on one line.
func diff(expected, actual string) string {
	if !strings.Contains(expected, "\n") && !strings.Contains(actual, "\n") {
		return ""
	}
	text, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(expected),
		B:        difflib.SplitLines(actual),
		FromFile: "expected",
		ToFile:   "actual",
		Context:  1,
	})
	if err != nil {
		return ""
	}
	return text
}

// ignoredBy reports whether key equals one of prefixes or lies below one.
func ignoredBy(key string, prefixes []string) bool {
	for _, p := range prefixes {
		if p == "" {
			continue
		}
		if key == p || strings.HasPrefix(key, p+".") {
			return true
		}
	}
	return false
}
