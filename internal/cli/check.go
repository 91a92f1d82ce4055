package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/roach88/persistor/internal/plan"
	"github.com/roach88/persistor/internal/verify"
)

// CheckOptions holds flags for the check command.
type CheckOptions struct {
	*RootOptions
	Parallel int    // concurrent plans, default from config
	Filter   string // plan name filter (glob pattern)
}

// PlanResult holds the result of a single plan.
type PlanResult struct {
	Name       string   `json:"name"`
	Status     string   `json:"status"` // "pass" | "fail" | "error"
	RunID      string   `json:"run_id,omitempty"`
	Checked    int      `json:"checked"`
	DurationMS int64    `json:"duration_ms"`
	Errors     []string `json:"errors,omitempty"`
}

// CheckResult holds the overall result.
type CheckResult struct {
	Plans []PlanResult `json:"plans"`
	plan.Summary
}

// NewCheckCommand creates the check command.
func NewCheckCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CheckOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "check <plans-dir>",
		Short: "Run verification plans",
		Long: `Run every verification plan (YAML or CUE) found below a directory.

Plans run concurrently; each reports pass, fail (mismatches) or error
(unreadable or malformed documents).

Exit codes:
  0 - All plans passed
  1 - One or more plans failed
  2 - Command error, or a plan could not be checked

Examples:
  persistor check ./plans
  persistor check ./plans --filter "status-*" --parallel 8
  persistor check ./plans --format json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd, opts, args[0])
		},
	}

	cmd.Flags().IntVar(&opts.Parallel, "parallel", 0, "plans to run concurrently (default from config)")
	cmd.Flags().StringVar(&opts.Filter, "filter", "", "filter plans by name glob pattern")

	return cmd
}

func runCheck(cmd *cobra.Command, opts *CheckOptions, dir string) error {
	f := opts.formatter(cmd)

	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return f.Fail(ErrCodeNotFound, NewExitError(ExitCommandError, fmt.Sprintf("plans directory not found: %s", dir)))
	}

	plans, err := plan.LoadDir(dir)
	if err != nil {
		return f.Fail(ErrCodeGeneric, WrapExitError(ExitCommandError, "failed to load plans", err))
	}
	plans, err = filterPlans(plans, opts.Filter)
	if err != nil {
		return f.Fail(ErrCodeGeneric, WrapExitError(ExitCommandError, "invalid filter", err))
	}

	parallel := opts.Parallel
	if parallel < 1 {
		parallel = opts.Config().GetInt(checkParallelKey)
	}
	runner := &plan.Runner{
		Verifier: &verify.Verifier{Registry: opts.Registry, Logger: opts.Logger()},
		Logger:   opts.Logger(),
		Parallel: parallel,
	}
	outcomes := runner.Run(cmd.Context(), plans)

	result := CheckResult{Plans: make([]PlanResult, 0, len(outcomes)), Summary: plan.Summarize(outcomes)}
	for _, o := range outcomes {
		result.Plans = append(result.Plans, planResult(o))
	}

	if opts.Format == "json" {
		if err := f.Success(result); err != nil {
			return err
		}
	} else {
		writeCheckText(f, result)
	}

	switch {
	case result.Errors > 0:
		return &ExitError{Code: ExitCommandError, Message: fmt.Sprintf("%d plan(s) could not be checked", result.Errors), Reported: true}
	case result.Failed > 0:
		return &ExitError{Code: ExitFailure, Message: fmt.Sprintf("%d plan(s) failed", result.Failed), Reported: true}
	}
	return nil
}

func planResult(o plan.Outcome) PlanResult {
	r := PlanResult{
		Name:       o.Plan.Name,
		Status:     o.Status(),
		DurationMS: o.Duration.Milliseconds(),
	}
	if o.Report != nil {
		r.RunID = o.Report.ID
		r.Checked = len(o.Report.Checked)
		if !o.Report.Passed() {
			r.Errors = o.Report.Diagnostics()
		}
	}
	if o.Err != nil && r.Errors == nil {
		r.Errors = []string{o.Err.Error()}
	}
	return r
}

func writeCheckText(f *OutputFormatter, result CheckResult) {
	if result.Total == 0 {
		fmt.Fprintln(f.Writer, "No plans found.")
		return
	}

	rows := make([][]string, 0, len(result.Plans))
	for _, p := range result.Plans {
		rows = append(rows, []string{p.Name, p.Status, strconv.Itoa(p.Checked), fmt.Sprintf("%dms", p.DurationMS)})
	}
	f.Table([]string{"Plan", "Status", "Checked", "Duration"}, rows)

	for _, p := range result.Plans {
		if len(p.Errors) == 0 {
			continue
		}
		fmt.Fprintf(f.Writer, "\n✗ %s\n", p.Name)
		for _, e := range p.Errors {
			fmt.Fprintf(f.Writer, "  %s\n", e)
		}
	}
	fmt.Fprintf(f.Writer, "\n%d passed, %d failed, %d errors (%d total)\n", result.Passed, result.Failed, result.Errors, result.Total)
}

// filterPlans keeps the plans whose name matches the glob pattern.
func filterPlans(plans []*plan.Plan, pattern string) ([]*plan.Plan, error) {
	if pattern == "" {
		return plans, nil
	}
	var out []*plan.Plan
	for _, p := range plans {
		matched, err := filepath.Match(pattern, p.Name)
		if err != nil {
			return nil, fmt.Errorf("invalid filter pattern: %w", err)
		}
		if matched {
			out = append(out, p)
		}
	}
	return out, nil
}
