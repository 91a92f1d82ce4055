package verify_test

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/roach88/persistor/internal/model"
	"github.com/roach88/persistor/internal/persist"
	"github.com/roach88/persistor/internal/testutil"
	"github.com/roach88/persistor/internal/varstore"
	"github.com/roach88/persistor/internal/verify"
)

type Request struct {
	model.Base
	Method string `persist:"Method"`
	URL    string `persist:"URL"`
}

type Response struct {
	model.Base
	StatusCode  string   `persist:"StatusCode"`
	ContentType string   `persist:"ContentType"`
	Body        string   `persist:"Body"`
	Request     *Request `persist:"Request"`
}

func newRegistry(t *testing.T) *model.Registry {
	t.Helper()
	r := model.NewRegistry()
	require.NoError(t, r.RegisterName("web.Request", func() model.Persistable { return &Request{} }))
	require.NoError(t, r.RegisterName("web.Response", func() model.Persistable { return &Response{} }))
	return r
}

func fixture() *Response {
	return &Response{
		StatusCode:  "200",
		ContentType: "application/json",
		Body:        `{"ok":true}`,
		Request:     &Request{Method: "GET", URL: "/status"},
	}
}

func newVerifier(t *testing.T) *verify.Verifier {
	t.Helper()
	return &verify.Verifier{
		Registry: newRegistry(t),
		Logger:   testutil.DiscardLogger(),
		IDs:      testutil.NewSequentialIDs("verify"),
	}
}

// benchmark persists p in format and returns the text as a source.
func benchmark(t *testing.T, p model.Persistable, format model.FileFormat) persist.StringSource {
	t.Helper()
	sp := persist.NewString(format, newRegistry(t))
	require.NoError(t, sp.Persist(context.Background(), p))
	return persist.StringSource{Label: "bench" + format.Extension(), Text: sp.String()}
}

func TestVerify_PassesAgainstOwnBenchmark(t *testing.T) {
	formats := []model.FileFormat{model.FormatJSON, model.FormatXML, model.FormatProperties}
	for _, format := range formats {
		t.Run(string(format), func(t *testing.T) {
			v := newVerifier(t)
			bench := benchmark(t, fixture(), format)

			report, err := v.Verify(context.Background(), fixture(), bench, format, verify.Options{MatchAllFields: true, CaseSensitive: true})
			require.NoError(t, err)
			assert.True(t, report.Passed())
			assert.Equal(t, "verify-000001", report.ID)
			assert.Equal(t, bench.Label, report.Benchmark)
			assert.Equal(t, []string{
				"Response.StatusCode",
				"Response.ContentType",
				"Response.Body",
				"Response.Request.Method",
				"Response.Request.URL",
			}, report.Checked)
			assert.Empty(t, report.Diagnostics())
		})
	}
}

func TestVerify_SubstringMatch(t *testing.T) {
	actual := fixture()
	actual.ContentType = "application/json; charset=utf-8"
	bench := benchmark(t, fixture(), model.FormatJSON)

	report, err := newVerifier(t).Verify(context.Background(), actual, bench, model.FormatJSON, verify.Options{CaseSensitive: true})
	require.Error(t, err)
	assert.True(t, model.IsVerificationFailure(err))
	require.Len(t, report.Mismatches, 1)
	assert.Equal(t, "Response.ContentType", report.Mismatches[0].Key)
	assert.Equal(t, "'Response.ContentType' did not match!\nactual: application/json; charset=utf-8\nexpected: application/json",
		report.Mismatches[0].String())

	report, err = newVerifier(t).Verify(context.Background(), actual, bench, model.FormatJSON, verify.Options{SubstringMatch: true, CaseSensitive: true})
	require.NoError(t, err)
	assert.True(t, report.Passed())
}

func TestVerify_CaseFolding(t *testing.T) {
	tests := []struct {
		name          string
		actual        string
		expected      string
		caseSensitive bool
		wantPass      bool
	}{
		{"insensitive", "get", "GET", false, true},
		{"sensitive", "get", "GET", true, false},
		{"full folding", "STRASSE", "stra\u00dfe", false, true},
		{"still different", "POST", "get", false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			actual := fixture()
			actual.Request.Method = tt.actual
			expected := fixture()
			expected.Request.Method = tt.expected

			_, err := newVerifier(t).Verify(context.Background(), actual, benchmark(t, expected, model.FormatJSON),
				model.FormatJSON, verify.Options{CaseSensitive: tt.caseSensitive})
			if tt.wantPass {
				assert.NoError(t, err)
			} else {
				assert.True(t, model.IsVerificationFailure(err), "got %v", err)
			}
		})
	}
}

func TestVerify_AggregatesMismatches(t *testing.T) {
	actual := fixture()
	actual.StatusCode = "500"
	actual.Request = nil
	bench := benchmark(t, fixture(), model.FormatJSON)

	report, err := newVerifier(t).Verify(context.Background(), actual, bench, model.FormatJSON, verify.Options{MatchAllFields: true})
	require.Error(t, err)
	assert.True(t, model.IsVerificationFailure(err))

	keys := make([]string, 0, len(report.Mismatches))
	for _, m := range report.Mismatches {
		keys = append(keys, m.Key)
	}
	assert.Equal(t, []string{"Response.StatusCode", "Response.Request.Method", "Response.Request.URL"}, keys)
	assert.False(t, report.Mismatches[0].Missing)
	assert.True(t, report.Mismatches[1].Missing)

	msg := err.Error()
	assert.Contains(t, msg, "3 verification failure(s)")
	assert.Contains(t, msg, "'Response.StatusCode' did not match!")
	assert.Contains(t, msg, "Cannot find the actual value for field 'Response.Request.Method'!")
	assert.Contains(t, msg, "Cannot find the actual value for field 'Response.Request.URL'!")

	// Extra fields are only reported once every benchmark field matched.
	assert.Empty(t, report.Extra)
}

func TestVerify_MatchAllFields(t *testing.T) {
	bench := persist.StringSource{Label: "partial", Text: "Response.StatusCode=200\nResponse.Request.Method=GET\n"}

	report, err := newVerifier(t).Verify(context.Background(), fixture(), bench, model.FormatProperties, verify.Options{})
	require.NoError(t, err)
	assert.True(t, report.Passed())

	report, err = newVerifier(t).Verify(context.Background(), fixture(), bench, model.FormatProperties, verify.Options{MatchAllFields: true})
	require.Error(t, err)
	assert.True(t, model.IsVerificationFailure(err))
	assert.Empty(t, report.Mismatches)
	assert.Equal(t, []string{"Response.Body", "Response.ContentType", "Response.Request.URL"}, report.Extra)
	assert.Equal(t, []string{"Missing fields in benchmark file:\n[Response.Body, Response.ContentType, Response.Request.URL]"},
		report.Diagnostics())
}

func TestVerify_ExtrasOnActualObject(t *testing.T) {
	actual := fixture()
	actual.PutExtra("Trace", "abc")
	bench := benchmark(t, fixture(), model.FormatXML)

	_, err := newVerifier(t).Verify(context.Background(), actual, bench, model.FormatXML, verify.Options{MatchAllFields: true})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "[Response.Trace]")
}

func TestVerify_IgnoredPrefixes(t *testing.T) {
	actual := fixture()
	actual.Request.Method = "POST"
	bench := benchmark(t, fixture(), model.FormatJSON)

	report, err := newVerifier(t).Verify(context.Background(), actual, bench, model.FormatJSON, verify.Options{
		MatchAllFields:  true,
		IgnoredPrefixes: []string{"Response.Request"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"Response.Request.Method", "Response.Request.URL"}, report.Ignored)
	assert.NotContains(t, report.Checked, "Response.Request.Method")

	// A prefix only covers whole path segments.
	_, err = newVerifier(t).Verify(context.Background(), actual, bench, model.FormatJSON, verify.Options{
		IgnoredPrefixes: []string{"Response.Req"},
	})
	assert.True(t, model.IsVerificationFailure(err))
}

func TestVerify_DisabledContainerIsIgnored(t *testing.T) {
	actual := fixture()
	actual.Request.Method = "DELETE"
	actual.Request.SetEnabled(false)
	bench := benchmark(t, fixture(), model.FormatJSON)

	report, err := newVerifier(t).Verify(context.Background(), actual, bench, model.FormatJSON, verify.Options{MatchAllFields: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"Response.Request.Method", "Response.Request.URL"}, report.Ignored)
}

func TestVerify_MultilineDiff(t *testing.T) {
	actual := fixture()
	actual.Body = "first\nsecond\nthird"
	expected := fixture()
	expected.Body = "first\nSECOND\nthird"
	expected.StatusCode = "201"

	report, err := newVerifier(t).Verify(context.Background(), actual, benchmark(t, expected, model.FormatXML),
		model.FormatXML, verify.Options{CaseSensitive: true})
	require.Error(t, err)
	require.Len(t, report.Mismatches, 2)

	assert.Empty(t, report.Mismatches[0].Diff, "single-line values carry no diff")

	d := report.Mismatches[1].Diff
	assert.Contains(t, d, "--- expected\n")
	assert.Contains(t, d, "+++ actual\n")
	assert.Contains(t, d, "-SECOND\n")
	assert.Contains(t, d, "+second\n")
	assert.Contains(t, report.Mismatches[1].String(), "-SECOND")
}

func TestVerify_Variables(t *testing.T) {
	v := newVerifier(t)
	v.Values = varstore.MapSource{"status": "200", "path": "/status"}
	bench := persist.StringSource{Text: "Response.StatusCode=${status}\nResponse.Request.URL=${path}\n"}

	report, err := v.Verify(context.Background(), fixture(), bench, model.FormatProperties, verify.Options{CaseSensitive: true})
	require.NoError(t, err)
	assert.True(t, report.Passed())

	bench = persist.StringSource{Text: "Response.StatusCode=${unset}\n"}
	report, err = v.Verify(context.Background(), fixture(), bench, model.FormatProperties, verify.Options{})
	require.Error(t, err)
	require.Len(t, report.Mismatches, 1)
	assert.Equal(t, "${unset}", report.Mismatches[0].Expected)
}

func TestVerify_VariablesFromStore(t *testing.T) {
	ctx := context.Background()
	store, err := varstore.OpenSQLite(filepath.Join(t.TempDir(), "vars.db"))
	require.NoError(t, err)
	defer store.Close()
	require.NoError(t, store.Set(ctx, "expected.method", "GET"))

	v := newVerifier(t)
	v.Values = store
	bench := persist.StringSource{Text: "Response.Request.Method=${expected.method}\n"}
	_, err = v.Verify(ctx, fixture(), bench, model.FormatProperties, verify.Options{})
	require.NoError(t, err)
}

type failingSource struct{}

func (failingSource) Get(context.Context, string) (string, bool, error) {
	return "", false, errors.New("store offline")
}

func TestVerify_VariableSourceFailure(t *testing.T) {
	v := newVerifier(t)
	v.Values = failingSource{}
	bench := persist.StringSource{Text: "Response.StatusCode=${status}\n"}

	_, err := v.Verify(context.Background(), fixture(), bench, model.FormatProperties, verify.Options{})
	require.Error(t, err)
	assert.True(t, model.IsResource(err))
	assert.Contains(t, err.Error(), "store offline")
}

func TestVerify_Alternatives(t *testing.T) {
	actual := fixture()
	actual.StatusCode = "503"
	bench := benchmark(t, fixture(), model.FormatJSON)

	_, err := newVerifier(t).Verify(context.Background(), actual, bench, model.FormatJSON, verify.Options{
		ElementAlternativeValues: map[string]string{"Response.StatusCode": "200"},
	})
	require.NoError(t, err)
}

func TestVerify_UnresolvedBenchmarkChildIsWarning(t *testing.T) {
	bench := benchmark(t, fixture(), model.FormatXML)
	bench.Text = strings.Replace(bench.Text, `classname="web.Request"`, `classname="web.Gone"`, 1)

	actual := fixture()
	actual.Request = nil

	report, err := newVerifier(t).Verify(context.Background(), actual, bench, model.FormatXML, verify.Options{})
	require.NoError(t, err)
	require.Len(t, report.Warnings, 1)
	assert.Contains(t, report.Warnings[0], "cannot resolve type")

	// The skipped element sets nothing, so an exhaustive run reports the
	// actual field as extra and carries the warning in the failure.
	report, err = newVerifier(t).Verify(context.Background(), actual, bench, model.FormatXML, verify.Options{MatchAllFields: true})
	require.Error(t, err)
	assert.Equal(t, []string{"Response.Request"}, report.Extra)

	var me *model.Error
	require.True(t, errors.As(err, &me))
	assert.Contains(t, err.Error(), "1 verification failure(s)")
	require.Len(t, me.Diagnostics, 2)
	assert.Contains(t, me.Diagnostics[1], "warning: cannot resolve type")
}

func TestVerify_PartialBenchmark(t *testing.T) {
	benches := []struct {
		format model.FileFormat
		text   string
	}{
		{model.FormatJSON, `{"Response": {"$classname": "web.Response", "StatusCode": "200"}}`},
		{model.FormatXML, `<Response classname="web.Response"><StatusCode>200</StatusCode></Response>`},
	}
	for _, b := range benches {
		t.Run(string(b.format), func(t *testing.T) {
			bench := persist.StringSource{Label: "partial" + b.format.Extension(), Text: b.text}

			report, err := newVerifier(t).Verify(context.Background(), fixture(), bench, b.format, verify.Options{})
			require.NoError(t, err)
			assert.Equal(t, []string{"Response.StatusCode"}, report.Checked)

			report, err = newVerifier(t).Verify(context.Background(), fixture(), bench, b.format, verify.Options{MatchAllFields: true})
			require.Error(t, err)
			assert.True(t, model.IsVerificationFailure(err))
			assert.Empty(t, report.Mismatches)
			assert.Equal(t, []string{
				"Response.Body",
				"Response.ContentType",
				"Response.Request.Method",
				"Response.Request.URL",
			}, report.Extra)
		})
	}
}

func TestVerify_PartialNestedBenchmark(t *testing.T) {
	bench := persist.StringSource{Text: `{"Response": {"$classname": "web.Response",
		"Request": {"$classname": "web.Request", "Method": "POST"}}}`}

	report, err := newVerifier(t).Verify(context.Background(), fixture(), bench, model.FormatJSON, verify.Options{CaseSensitive: true})
	require.Error(t, err)
	require.Len(t, report.Mismatches, 1)
	assert.Equal(t, "Response.Request.Method", report.Mismatches[0].Key)
	assert.Equal(t, []string{"Response.Request.Method"}, report.Checked)
}

func TestVerify_IgnoredFields(t *testing.T) {
	actual := fixture()
	actual.Request.URL = "/elsewhere"
	ignored := map[string][]string{"Request": {"URL"}}

	for _, format := range []model.FileFormat{model.FormatJSON, model.FormatXML, model.FormatProperties} {
		t.Run(string(format), func(t *testing.T) {
			report, err := newVerifier(t).Verify(context.Background(), actual, benchmark(t, fixture(), format), format,
				verify.Options{MatchAllFields: true, IgnoredFields: ignored})
			require.NoError(t, err)
			assert.True(t, report.Passed())
			assert.NotContains(t, report.Checked, "Response.Request.URL")
			assert.Contains(t, report.Checked, "Response.Request.Method")
		})
	}

	_, err := newVerifier(t).Verify(context.Background(), actual, benchmark(t, fixture(), model.FormatJSON), model.FormatJSON,
		verify.Options{})
	assert.True(t, model.IsVerificationFailure(err))
}

func TestVerify_Errors(t *testing.T) {
	ctx := context.Background()
	v := newVerifier(t)
	good := benchmark(t, fixture(), model.FormatJSON)

	_, err := v.Verify(ctx, nil, good, model.FormatJSON, verify.Options{})
	assert.True(t, model.IsValidation(err), "nil root: %v", err)

	disabled := fixture()
	disabled.SetEnabled(false)
	_, err = v.Verify(ctx, disabled, good, model.FormatJSON, verify.Options{})
	assert.True(t, model.IsValidation(err), "disabled root: %v", err)

	missing := persist.FileSource{Path: filepath.Join(t.TempDir(), "absent.json")}
	for _, format := range []model.FileFormat{model.FormatJSON, model.FormatProperties} {
		_, err = v.Verify(ctx, fixture(), missing, format, verify.Options{})
		assert.True(t, model.IsResource(err), "missing %s benchmark: %v", format, err)
	}

	_, err = v.Verify(ctx, fixture(), persist.StringSource{Label: "broken", Text: `{"Response": `}, model.FormatJSON, verify.Options{})
	assert.True(t, model.IsDecodeStructure(err), "malformed JSON: %v", err)
	assert.Contains(t, err.Error(), "broken")

	_, err = v.Verify(ctx, fixture(), persist.StringSource{Text: "no separator\n"}, model.FormatProperties, verify.Options{})
	assert.True(t, model.IsDecodeStructure(err), "malformed flat document: %v", err)
}

func TestVerify_LogsOutcome(t *testing.T) {
	logger, buf := testutil.CaptureLogger()
	v := newVerifier(t)
	v.Logger = logger
	actual := fixture()
	actual.Body = "changed"

	_, err := v.Verify(context.Background(), actual, benchmark(t, fixture(), model.FormatJSON), model.FormatJSON, verify.Options{})
	require.Error(t, err)
	assert.Contains(t, buf.String(), "verification failed")
	assert.Contains(t, buf.String(), "run=verify-000001")
}

func TestVerifier_ConcurrentCalls(t *testing.T) {
	v := newVerifier(t)
	bench := benchmark(t, fixture(), model.FormatJSON)

	var g errgroup.Group
	for i := 0; i < 16; i++ {
		g.Go(func() error {
			_, err := v.Verify(context.Background(), fixture(), bench, model.FormatJSON, verify.Options{MatchAllFields: true})
			return err
		})
	}
	require.NoError(t, g.Wait())
}
