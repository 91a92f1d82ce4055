package varstore

import (
	"context"
	"strings"
)

const (
	refStart = "${"
	refEnd   = "}"
)

// Interpolate replaces every ${name} in text with the value src holds for
// name. References src cannot resolve are left as written. A nil src
// returns text unchanged.
func Interpolate(ctx context.Context, src ValueSource, text string) (string, error) {
	if src == nil || !strings.Contains(text, refStart) {
		return text, nil
	}

	var b strings.Builder
	rest := text
	for {
		start := strings.Index(rest, refStart)
		if start < 0 {
			break
		}
		end := strings.Index(rest[start+len(refStart):], refEnd)
		if end < 0 {
			break
		}
		end += start + len(refStart)
		name := rest[start+len(refStart) : end]

		b.WriteString(rest[:start])
		value, ok := "", false
		if name != "" {
			var err error
			if value, ok, err = src.Get(ctx, name); err != nil {
				return "", err
			}
		}
		if ok {
			b.WriteString(value)
		} else {
			b.WriteString(rest[start : end+len(refEnd)])
		}
		rest = rest[end+len(refEnd):]
	}
	b.WriteString(rest)
	return b.String(), nil
}
