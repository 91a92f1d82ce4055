package verify

import (
	"fmt"
	"strings"
)

// Mismatch is one failed comparison.
type Mismatch struct {
	Key      string
	Actual   string
	Expected string

	// Missing is true when the actual object has no value for Key.
	Missing bool

	// Diff is a unified diff for multi-line values.
	Diff string
}

func (m Mismatch) String() string {
	if m.Missing {
		return fmt.Sprintf("Cannot find the actual value for field '%s'!", m.Key)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "'%s' did not match!\nactual: %s\nexpected: %s", m.Key, m.Actual, m.Expected)
	if m.Diff != "" {
		b.WriteString("\n")
		b.WriteString(strings.TrimRight(m.Diff, "\n"))
	}
	return b.String()
}

// Report describes one verification run.
type Report struct {
	ID        string
	Benchmark string

	// Checked lists the benchmark keys that were compared, in benchmark
	// order.
	Checked []string

	// Ignored lists benchmark keys skipped by an ignore prefix.
	Ignored []string

	Mismatches []Mismatch

	// Extra lists actual keys the benchmark did not mention. Only filled
	// when every field must match.
	Extra []string

	// Warnings are recovered problems from decoding the benchmark.
	Warnings []string
}

// Passed reports whether the run found no discrepancy.
func (r *Report) Passed() bool {
	return len(r.Mismatches) == 0 && len(r.Extra) == 0
}

// Diagnostics returns one description per discrepancy.
func (r *Report) Diagnostics() []string {
	out := make([]string, 0, len(r.Mismatches)+1)
	for _, m := range r.Mismatches {
		out = append(out, m.String())
	}
	if len(r.Extra) > 0 {
		out = append(out, "Missing fields in benchmark file:\n["+strings.Join(r.Extra, ", ")+"]")
	}
	return out
}
