// Package verify compares a live object graph against a benchmark document
// field by field.
//
// Both sides are flattened into dotted keys ("Response.Request.Method").
// Every benchmark key is looked up in the actual object and compared under
// the configured policy; all discrepancies are collected before the run
// fails, so one run reports every difference.
package verify

import (
	"context"
	"log/slog"
	"sort"

	"github.com/google/uuid"

	"github.com/roach88/persistor/internal/codec"
	"github.com/roach88/persistor/internal/model"
	"github.com/roach88/persistor/internal/persist"
	"github.com/roach88/persistor/internal/varstore"
)

// Options selects the matching policy.
type Options struct {
	// MatchAllFields treats the benchmark as exhaustive: actual fields it
	// does not mention fail the run.
	MatchAllFields bool

	// SubstringMatch passes when the actual value contains the expected
	// one.
	SubstringMatch bool

	CaseSensitive bool

	// IgnoredPrefixes excludes keys equal to or below any entry.
	IgnoredPrefixes []string

	// IgnoredFields maps type names to fields left out of the comparison
	// on both sides.
	IgnoredFields map[string][]string

	// ElementAlternativeValues replaces actual values by flat key before
	// comparison.
	ElementAlternativeValues map[string]string
}

// IDGenerator names verification runs.
type IDGenerator interface {
	Generate() string
}

// Verifier checks objects against benchmarks. A Verifier keeps no state
// between calls and may be shared by concurrent verifications.
type Verifier struct {
	Registry *model.Registry
	Logger   *slog.Logger

	// Values resolves ${name} references in benchmark values. Optional.
	Values varstore.ValueSource

	// IDs names each report. Defaults to UUIDv7.
	IDs IDGenerator
}

func (v *Verifier) logger() *slog.Logger {
	if v.Logger == nil {
		return slog.Default()
	}
	return v.Logger
}

// uuidV7 generates time-ordered report IDs.
type uuidV7 struct{}

func (uuidV7) Generate() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// verification is the state of one Verify call.
type verification struct {
	actual  map[string]string
	ignored []string
	checked map[string]bool
	matcher *matcher
	report  *Report
	values  varstore.ValueSource
	logger  *slog.Logger
}

// Verify compares actual with the benchmark read from bench.
//
// It returns a VALIDATION error when actual is nil or disabled, a
// RESOURCE error when bench cannot be read and a DECODE_STRUCTURE error
// when it cannot be decoded. When the comparison itself fails the report is
// returned together with a VERIFICATION_FAILED error carrying every
// discrepancy.
func (v *Verifier) Verify(ctx context.Context, actual model.Persistable, bench persist.TextSource, format model.FileFormat, opts Options) (*Report, error) {
	if err := model.Validate(actual); err != nil {
		return nil, err
	}
	logger := v.logger()
	ids := v.IDs
	if ids == nil {
		ids = uuidV7{}
	}

	actualFlat, err := codec.Flatten(actual, codec.FlattenOptions{
		Registry:      v.Registry,
		Logger:        logger,
		Alternatives:  opts.ElementAlternativeValues,
		IgnoredFields: opts.IgnoredFields,
	})
	if err != nil {
		return nil, err
	}

	report := &Report{ID: ids.Generate(), Benchmark: bench.Name()}
	expected, err := v.expected(ctx, bench, format, opts, report)
	if err != nil {
		return nil, err
	}

	run := &verification{
		actual:  actualFlat.Map(),
		ignored: append(append([]string(nil), opts.IgnoredPrefixes...), actualFlat.IgnoredPrefixes...),
		checked: make(map[string]bool),
		matcher: newMatcher(opts.SubstringMatch, opts.CaseSensitive),
		report:  report,
		values:  v.Values,
		logger:  logger.With("run", report.ID),
	}
	if err := run.compare(ctx, expected); err != nil {
		return nil, err
	}
	if len(report.Mismatches) == 0 && opts.MatchAllFields {
		run.collectExtra()
	}

	if !report.Passed() {
		logger.Debug("verification failed", "run", report.ID, "benchmark", report.Benchmark,
			"mismatches", len(report.Mismatches), "extra", len(report.Extra))
		failure := model.NewVerificationFailure(report.Benchmark, report.Diagnostics())
		for _, w := range report.Warnings {
			failure.Diagnostics = append(failure.Diagnostics, "warning: "+w)
		}
		return report, failure
	}
	logger.Debug("verification passed", "run", report.ID, "benchmark", report.Benchmark, "checked", len(report.Checked))
	return report, nil
}

// expected flattens the benchmark. Hierarchical documents are decoded into
// objects first so both sides go through the same flattening, keeping only
// the fields the document sets. Flat documents are read as they are.
func (v *Verifier) expected(ctx context.Context, bench persist.TextSource, format model.FileFormat, opts Options, report *Report) ([]codec.FlatEntry, error) {
	if format == model.FormatProperties {
		r, err := bench.Open()
		if err != nil {
			return nil, err
		}
		defer r.Close()
		flat, err := codec.ParseFlat(r)
		if err != nil {
			return nil, model.NewDecodeError(bench.Name(), "malformed flat document", err)
		}
		return flat.Entries, nil
	}

	decoded, err := persist.Decode(ctx, bench, format, codec.DecodeOptions{
		Registry:      v.Registry,
		Logger:        v.logger(),
		IgnoredFields: opts.IgnoredFields,
		Resource:      bench.Name(),
	})
	if err != nil {
		return nil, err
	}
	report.Warnings = decoded.Warnings

	flat, err := codec.Flatten(decoded.Root, codec.FlattenOptions{
		Registry:      v.Registry,
		Logger:        v.logger(),
		Present:       decoded.Present,
		IgnoredFields: opts.IgnoredFields,
	})
	if err != nil {
		return nil, err
	}
	return flat.Entries, nil
}

func (r *verification) compare(ctx context.Context, expected []codec.FlatEntry) error {
	for _, e := range expected {
		if ignoredBy(e.Key, r.ignored) {
			r.logger.Debug("ignoring field", "key", e.Key)
			r.report.Ignored = append(r.report.Ignored, e.Key)
			continue
		}
		r.checked[e.Key] = true
		r.report.Checked = append(r.report.Checked, e.Key)

		want, err := varstore.Interpolate(ctx, r.values, e.Value)
		if err != nil {
			return model.NewResourceError(e.Key, "cannot resolve variable reference", err)
		}

		got, ok := r.actual[e.Key]
		if !ok {
			r.report.Mismatches = append(r.report.Mismatches, Mismatch{Key: e.Key, Expected: want, Missing: true})
			continue
		}
		if !r.matcher.match(got, want) {
			r.report.Mismatches = append(r.report.Mismatches, Mismatch{
				Key:      e.Key,
				Actual:   got,
				Expected: want,
				Diff:     diff(want, got),
			})
		}
	}
	return nil
}

func (r *verification) collectExtra() {
	for key := range r.actual {
		if !r.checked[key] && !ignoredBy(key, r.ignored) {
			r.report.Extra = append(r.report.Extra, key)
		}
	}
	sort.Strings(r.report.Extra)
}
