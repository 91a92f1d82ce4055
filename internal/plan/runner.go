package plan

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/roach88/persistor/internal/codec"
	"github.com/roach88/persistor/internal/model"
	"github.com/roach88/persistor/internal/persist"
	"github.com/roach88/persistor/internal/verify"
)

// DefaultParallel bounds concurrent plans when Runner.Parallel is unset.
const DefaultParallel = 4

// Outcome is the result of one plan.
type Outcome struct {
	Plan     *Plan
	Report   *verify.Report
	Err      error
	Duration time.Duration
}

// Passed reports whether the plan ran and found no discrepancy.
func (o Outcome) Passed() bool {
	return o.Err == nil && o.Report != nil && o.Report.Passed()
}

// Status is "pass", "fail" for a verification failure or "error" when the
// plan could not be checked at all.
func (o Outcome) Status() string {
	switch {
	case o.Passed():
		return "pass"
	case model.IsVerificationFailure(o.Err):
		return "fail"
	default:
		return "error"
	}
}

// Runner executes plans.
//
// Thread-safety: a Runner may run several batches concurrently; it keeps no
// state between calls.
type Runner struct {
	Verifier *verify.Verifier
	Logger   *slog.Logger

	// Parallel bounds the number of plans in flight. Values below one use
	// DefaultParallel.
	Parallel int
}

// Run executes plans and returns one outcome per plan, in input order.
// Cancelling ctx stops plans that have not started; their outcomes carry
// the context error.
func (r *Runner) Run(ctx context.Context, plans []*Plan) []Outcome {
	logger := r.Logger
	if logger == nil {
		logger = slog.Default()
	}
	limit := r.Parallel
	if limit < 1 {
		limit = DefaultParallel
	}

	outcomes := make([]Outcome, len(plans))
	g := new(errgroup.Group)
	g.SetLimit(limit)
	for i, p := range plans {
		i, p := i, p
		g.Go(func() error {
			outcomes[i] = r.runOne(ctx, p, logger)
			return nil
		})
	}
	_ = g.Wait() // runOne never returns an error to the group

	return outcomes
}

func (r *Runner) runOne(ctx context.Context, p *Plan, logger *slog.Logger) Outcome {
	start := time.Now()
	out := Outcome{Plan: p}
	if err := ctx.Err(); err != nil {
		out.Err = err
		return out
	}

	actual, err := persist.Decode(ctx, persist.FileSource{Path: p.Actual}, model.FormatForPath(p.Actual, logger), codec.DecodeOptions{
		Registry: r.Verifier.Registry,
		Logger:   logger,
	})
	if err != nil {
		out.Err = err
		out.Duration = time.Since(start)
		return out
	}

	out.Report, out.Err = r.Verifier.Verify(ctx, actual.Root, persist.FileSource{Path: p.Benchmark}, p.BenchmarkFormat(), p.Options())
	out.Duration = time.Since(start)

	attrs := []any{"plan", p.Name, "status", out.Status(), "duration", out.Duration}
	if out.Report != nil {
		attrs = append(attrs, "run", out.Report.ID)
	}
	if out.Err != nil && !model.IsVerificationFailure(out.Err) {
		attrs = append(attrs, "error", out.Err)
	}
	logger.Info("plan finished", attrs...)
	return out
}

// Summary counts outcomes by status.
type Summary struct {
	Total  int `json:"total"`
	Passed int `json:"passed"`
	Failed int `json:"failed"`
	Errors int `json:"errors"`
}

// Summarize tallies outcomes.
func Summarize(outcomes []Outcome) Summary {
	s := Summary{Total: len(outcomes)}
	for _, o := range outcomes {
		switch o.Status() {
		case "pass":
			s.Passed++
		case "fail":
			s.Failed++
		default:
			s.Errors++
		}
	}
	return s
}
