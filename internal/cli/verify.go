package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/persistor/internal/model"
	"github.com/roach88/persistor/internal/persist"
	"github.com/roach88/persistor/internal/verify"
)

// VerifyOptions holds flags for the verify command.
type VerifyOptions struct {
	*RootOptions
	ActualFormat  string
	BenchFormat   string
	MatchAll      bool
	Substring     bool
	CaseSensitive bool
	Ignore        []string
	IgnoreFields  []string // "Type.Field"
	Alternatives  map[string]string
	ResolveVars   bool
	Store         storeFlags
}

// VerifyResult is the JSON payload of the verify command.
type VerifyResult struct {
	ID         string   `json:"id"`
	Actual     string   `json:"actual"`
	Benchmark  string   `json:"benchmark"`
	Passed     bool     `json:"passed"`
	Checked    int      `json:"checked"`
	Ignored    []string `json:"ignored,omitempty"`
	Mismatches []string `json:"mismatches,omitempty"`
	Extra      []string `json:"extra,omitempty"`
	Warnings   []string `json:"warnings,omitempty"`
}

// NewVerifyCommand creates the verify command.
func NewVerifyCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &VerifyOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "verify <actual> <benchmark>",
		Short: "Verify a document against a benchmark",
		Long: `Decode the actual document into its object graph and compare every field
of the benchmark with it. All mismatches are reported together.

Exit codes:
  0 - Verification passed
  1 - Mismatches or unexpected fields
  2 - Command error (unreadable or malformed documents)

Examples:
  persistor verify out/response.json bench/response.xml
  persistor verify out/response.json bench/response.xml --match-all --ignore Response.Request
  persistor verify out/response.json bench/response.properties --vars --db vars.db`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVerify(cmd, opts, args[0], args[1])
		},
	}

	cmd.Flags().StringVar(&opts.ActualFormat, "actual-format", "", "actual document format (json|xml), default from extension")
	cmd.Flags().StringVar(&opts.BenchFormat, "bench-format", "", "benchmark format (json|xml|properties), default from extension")
	cmd.Flags().BoolVar(&opts.MatchAll, "match-all", false, "fail on actual fields the benchmark does not mention")
	cmd.Flags().BoolVar(&opts.Substring, "substring", false, "pass when the actual value contains the expected one")
	cmd.Flags().BoolVar(&opts.CaseSensitive, "case-sensitive", false, "compare values case-sensitively")
	cmd.Flags().StringArrayVar(&opts.Ignore, "ignore", nil, "flat key prefix to leave out (repeatable)")
	cmd.Flags().StringArrayVar(&opts.IgnoreFields, "ignore-field", nil, "Type.Field the benchmark decoder leaves unassigned (repeatable)")
	cmd.Flags().StringToStringVar(&opts.Alternatives, "alt", nil, "replace an actual value before comparison, key=value (repeatable)")
	cmd.Flags().BoolVar(&opts.ResolveVars, "vars", false, "resolve ${name} benchmark values from the variable store")
	addStoreFlags(cmd, &opts.Store, false)

	return cmd
}

func runVerify(cmd *cobra.Command, opts *VerifyOptions, actualPath, benchPath string) error {
	ctx := cmd.Context()
	f := opts.formatter(cmd)

	ignored, err := parseIgnoreFields(opts.IgnoreFields)
	if err != nil {
		return f.Fail(string(model.CodeValidation), err)
	}

	actual, err := opts.decodeFile(ctx, actualPath, opts.documentFormat(opts.ActualFormat, actualPath), nil)
	if err != nil {
		return f.Fail(errorCode(err), err)
	}

	v := &verify.Verifier{Registry: opts.Registry, Logger: opts.Logger()}
	if opts.ResolveVars {
		store, err := opts.openStore(ctx, &opts.Store)
		if err != nil {
			return f.Fail(ErrCodeStore, err)
		}
		defer store.Close()
		v.Values = store
	}

	report, verr := v.Verify(ctx, actual.Root, persist.FileSource{Path: benchPath}, opts.documentFormat(opts.BenchFormat, benchPath), verify.Options{
		MatchAllFields:           opts.MatchAll,
		SubstringMatch:           opts.Substring,
		CaseSensitive:            opts.CaseSensitive,
		IgnoredPrefixes:          opts.Ignore,
		IgnoredFields:            ignored,
		ElementAlternativeValues: opts.Alternatives,
	})
	if report == nil {
		return f.Fail(errorCode(verr), verr)
	}

	result := VerifyResult{
		ID:         report.ID,
		Actual:     actualPath,
		Benchmark:  benchPath,
		Passed:     report.Passed(),
		Checked:    len(report.Checked),
		Ignored:    report.Ignored,
		Mismatches: report.Diagnostics(),
		Extra:      report.Extra,
		Warnings:   append(actual.Warnings, report.Warnings...),
	}

	if opts.Format == "json" {
		if err := f.Success(result); err != nil {
			return err
		}
	} else {
		writeVerifyText(f, result)
	}

	if verr != nil {
		return &ExitError{Code: GetExitCode(verr), Err: verr, Reported: true}
	}
	return nil
}

func writeVerifyText(f *OutputFormatter, r VerifyResult) {
	if r.Passed {
		fmt.Fprintf(f.Writer, "✓ %s (%d fields checked, %d ignored)\n", r.Benchmark, r.Checked, len(r.Ignored))
	} else {
		fmt.Fprintf(f.Writer, "✗ %s (%d fields checked, %d ignored)\n", r.Benchmark, r.Checked, len(r.Ignored))
		for _, m := range r.Mismatches {
			fmt.Fprintf(f.Writer, "  %s\n", strings.ReplaceAll(m, "\n", "\n  "))
		}
	}
	for _, w := range r.Warnings {
		fmt.Fprintf(f.Writer, "  warning: %s\n", w)
	}
	f.VerboseLog("run %s", r.ID)
}

// parseIgnoreFields turns "Type.Field" entries into the decoder's ignore
// map. The type part may itself be qualified ("rest.SimpleAuth.Password").
func parseIgnoreFields(entries []string) (map[string][]string, error) {
	if len(entries) == 0 {
		return nil, nil
	}
	out := make(map[string][]string)
	for _, e := range entries {
		i := strings.LastIndex(e, ".")
		if i <= 0 || i == len(e)-1 {
			return nil, fmt.Errorf("invalid --ignore-field %q: want Type.Field", e)
		}
		out[e[:i]] = append(out[e[:i]], e[i+1:])
	}
	return out, nil
}
