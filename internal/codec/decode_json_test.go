package codec_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/persistor/internal/codec"
	"github.com/roach88/persistor/internal/model"
	"github.com/roach88/persistor/internal/testutil"
)

func decodeJSON(t *testing.T, text string, opts codec.DecodeOptions) (*codec.Decoded, error) {
	t.Helper()
	if opts.Registry == nil {
		opts.Registry = newRegistry(t)
	}
	if opts.Logger == nil {
		opts.Logger = testutil.DiscardLogger()
	}
	return codec.DecodeJSON(strings.NewReader(text), opts)
}

func TestDecodeJSON_RoundTrip(t *testing.T) {
	original := fixtureResponse()
	text := encode(t, codec.JSONFormat{}, original)

	decoded, err := decodeJSON(t, text, codec.DecodeOptions{})
	require.NoError(t, err)
	assert.Empty(t, decoded.Warnings)

	got, ok := decoded.Root.(*Response)
	require.True(t, ok, "root is %T", decoded.Root)
	assert.True(t, model.Equal(original, got))
	assert.Equal(t, "line1\nline2 \"quoted\"", got.Request.Body)
	assert.Same(t, got, got.Request.Parent())
}

func TestDecodeJSON_ArrayOfPersistables(t *testing.T) {
	original := &Batch{
		Name: "batch",
		Requests: []*Request{
			{Method: "GET", URL: "/a"},
			{Method: "POST", URL: "/b", Body: "{\"k\": [1, 2]}"},
		},
	}
	decoded, err := decodeJSON(t, encode(t, codec.JSONFormat{}, original), codec.DecodeOptions{})
	require.NoError(t, err)

	got := decoded.Root.(*Batch)
	assert.True(t, model.Equal(original, got))
	require.Len(t, got.Requests, 2)
	for _, req := range got.Requests {
		assert.Same(t, got, req.Parent())
	}
}

func TestDecodeJSON_StructureErrors(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"two top-level properties", `{"Response": {"$classname": "example.Response"}, "Other": {}}`},
		{"empty top-level object", `{}`},
		{"top-level array", `[{"Response": {}}]`},
		{"root not an object", `{"Response": "200"}`},
		{"root without class name", `{"Response": {"StatusCode": "200"}}`},
		{"unresolved root type", `{"Response": {"$classname": "example.Missing"}}`},
		{"malformed", `{"Response": {"$classname": "example.Response",}`},
		{"trailing data", `{"Response": {"$classname": "example.Response"}} {}`},
		{"empty input", ``},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := decodeJSON(t, tt.text, codec.DecodeOptions{Resource: "bench.json"})
			require.Error(t, err)
			assert.True(t, model.IsDecodeStructure(err), "got %v", err)
			assert.Contains(t, err.Error(), "bench.json")
		})
	}
}

func TestDecodeJSON_UnresolvedNestedTypeIsWarning(t *testing.T) {
	text := `{
"Response" : {
"$classname" : "example.Response",
"StatusCode" : "404",
"Request" : {
"$classname" : "example.Missing",
"Method" : "GET"
},
"Retries" : 2
}
}`
	logger, logs := testutil.CaptureLogger()
	decoded, err := decodeJSON(t, text, codec.DecodeOptions{Logger: logger})
	require.NoError(t, err)

	got := decoded.Root.(*Response)
	assert.Equal(t, "404", got.StatusCode)
	assert.Nil(t, got.Request)
	assert.Equal(t, 2, got.Retries)
	require.Len(t, decoded.Warnings, 1)
	assert.Contains(t, decoded.Warnings[0], "Response.Request")
	assert.Equal(t, 1, countWarnings(logs))
}

func TestDecodeJSON_UnknownValuesBecomeZero(t *testing.T) {
	text := `{"Response": {"$classname": "example.Response", "Headers": "UNKNOWN", "Request": "UNKNOWN", "Tags": "UNKNOWN", "Retries": "UNKNOWN"}}`
	decoded, err := decodeJSON(t, text, codec.DecodeOptions{})
	require.NoError(t, err)
	assert.Empty(t, decoded.Warnings)

	got := decoded.Root.(*Response)
	assert.Nil(t, got.Headers)
	assert.Nil(t, got.Request)
	assert.Nil(t, got.Tags)
	assert.Zero(t, got.Retries)
}

func TestDecodeJSON_AssignmentFailureIsWarning(t *testing.T) {
	text := `{"Response": {"$classname": "example.Response", "Retries": "many", "StatusCode": "500"}}`
	decoded, err := decodeJSON(t, text, codec.DecodeOptions{})
	require.NoError(t, err)

	got := decoded.Root.(*Response)
	assert.Equal(t, "500", got.StatusCode)
	require.Len(t, decoded.Warnings, 1)
	assert.Contains(t, decoded.Warnings[0], "Response.Retries")
}

func TestDecodeJSON_IgnoredFields(t *testing.T) {
	text := encode(t, codec.JSONFormat{}, fixtureResponse())
	decoded, err := decodeJSON(t, text, codec.DecodeOptions{
		IgnoredFields: map[string][]string{
			"Response":        {"retries"},
			"example.Request": {"Body"},
		},
	})
	require.NoError(t, err)

	got := decoded.Root.(*Response)
	assert.Zero(t, got.Retries)
	assert.Empty(t, got.Request.Body)
	assert.Equal(t, "GET", got.Request.Method)
}

func TestDecodeJSON_UndeclaredKeysKeptAsExtras(t *testing.T) {
	text := `{"Request": {"$classname": "example.Request", "Method": "PUT", "Timeout": 30, "Meta": {"a": "b"}}}`
	decoded, err := decodeJSON(t, text, codec.DecodeOptions{})
	require.NoError(t, err)

	got := decoded.Root.(*Request)
	assert.Equal(t, "PUT", got.Method)
	extras := got.Extras()
	require.Len(t, extras, 2)
	assert.Equal(t, "Timeout", extras[0].Key)
	assert.Equal(t, "30", extras[0].Value.(interface{ String() string }).String())
	assert.Equal(t, map[string]any{"a": "b"}, extras[1].Value)
}

func TestDecodeJSON_CaseInsensitiveKeys(t *testing.T) {
	text := `{"Request": {"$classname": "example.Request", "method": "DELETE", "url": "/x"}}`
	decoded, err := decodeJSON(t, text, codec.DecodeOptions{})
	require.NoError(t, err)

	got := decoded.Root.(*Request)
	assert.Equal(t, "DELETE", got.Method)
	assert.Equal(t, "/x", got.URL)
	assert.Empty(t, got.Extras())
}
