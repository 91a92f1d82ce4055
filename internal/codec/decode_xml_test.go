package codec_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/persistor/internal/codec"
	"github.com/roach88/persistor/internal/model"
	"github.com/roach88/persistor/internal/testutil"
)

func decodeXML(t *testing.T, text string) (*codec.Decoded, error) {
	t.Helper()
	return codec.DecodeXML(strings.NewReader(text), codec.DecodeOptions{
		Registry: newRegistry(t),
		Logger:   testutil.DiscardLogger(),
		Resource: "bench.xml",
	})
}

func TestDecodeXML_RoundTrip(t *testing.T) {
	original := fixtureResponse()
	decoded, err := decodeXML(t, encode(t, codec.XMLFormat{}, original))
	require.NoError(t, err)
	assert.Empty(t, decoded.Warnings)

	got := decoded.Root.(*Response)
	assert.True(t, model.Equal(original, got), model.Dump(got, 0))
	assert.Equal(t, "http://x/a?b=1&c=2", got.Request.URL)
	assert.Same(t, got, got.Request.Parent())
}

func TestDecodeXML_ArrayOfPersistables(t *testing.T) {
	original := &Batch{
		Name: "b & c",
		Requests: []*Request{
			{Method: "GET", URL: "/a?x=1&y=2"},
			{Method: "POST", URL: "/b"},
		},
	}
	decoded, err := decodeXML(t, encode(t, codec.XMLFormat{}, original))
	require.NoError(t, err)
	assert.Empty(t, decoded.Warnings)

	got := decoded.Root.(*Batch)
	assert.True(t, model.Equal(original, got), model.Dump(got, 0))
	for _, req := range got.Requests {
		assert.Same(t, got, req.Parent())
	}
}

func TestDecodeXML_UnresolvedChildIsIgnored(t *testing.T) {
	text := `<?xml version="1.0" encoding="UTF-8"?>
<Response classname="example.Response">
<StatusCode>200</StatusCode>
<Request classname="example.Missing">
<Method>GET</Method>
</Request>
<Retries>2</Retries>
</Response>
`
	decoded, err := decodeXML(t, text)
	require.NoError(t, err)

	got := decoded.Root.(*Response)
	assert.Equal(t, "200", got.StatusCode)
	assert.Nil(t, got.Request)
	assert.Equal(t, 2, got.Retries)
	require.Len(t, decoded.Warnings, 1)
	assert.Contains(t, decoded.Warnings[0], "cannot resolve type")
	assert.Empty(t, got.Extras())
}

func TestDecodeXML_PackageAttribute(t *testing.T) {
	text := `<Request package="example"><Method>GET</Method><URL>/p</URL></Request>`
	decoded, err := decodeXML(t, text)
	require.NoError(t, err)

	got := decoded.Root.(*Request)
	assert.Equal(t, "GET", got.Method)
	assert.Equal(t, "/p", got.URL)
}

func TestDecodeXML_TagMismatchIsWarning(t *testing.T) {
	text := `<Response classname="example.Response"><StatusCode>201</Status></Response>`
	decoded, err := decodeXML(t, text)
	require.NoError(t, err)

	assert.Equal(t, "201", decoded.Root.(*Response).StatusCode)
	require.Len(t, decoded.Warnings, 1)
	assert.Contains(t, decoded.Warnings[0], "tag name mismatch")
}

func TestDecodeXML_UnclosedElementIsWarning(t *testing.T) {
	text := `<Response classname="example.Response"><StatusCode>201</StatusCode>`
	decoded, err := decodeXML(t, text)
	require.NoError(t, err)

	assert.Equal(t, "201", decoded.Root.(*Response).StatusCode)
	require.Len(t, decoded.Warnings, 1)
	assert.Contains(t, decoded.Warnings[0], "not closed")
}

func TestDecodeXML_StructureErrors(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"no persistable element", `<foo><bar>1</bar></foo>`},
		{"only unresolved types", `<Response classname="example.Missing"><StatusCode>1</StatusCode></Response>`},
		{"empty document", ``},
		{"malformed markup", `<Response classname="example.Response"><StatusCode>200</StatusCode`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := decodeXML(t, tt.text)
			require.Error(t, err)
			assert.True(t, model.IsDecodeStructure(err), "got %v", err)
		})
	}
}

func TestDecodeXML_LegacyFragmentList(t *testing.T) {
	text := `<Batch classname="example.Batch">
<Name>legacy</Name>
<Requests><![CDATA[[<Request classname="example.Request"><Method>GET</Method></Request>, <Request classname="example.Request"><Method>POST</Method><Body>a, b</Body></Request>]]]></Requests>
</Batch>`
	decoded, err := decodeXML(t, text)
	require.NoError(t, err)

	got := decoded.Root.(*Batch)
	assert.Equal(t, "legacy", got.Name)
	require.Len(t, got.Requests, 2)
	assert.Equal(t, "GET", got.Requests[0].Method)
	assert.Equal(t, "POST", got.Requests[1].Method)
	assert.Equal(t, "a, b", got.Requests[1].Body)
	assert.Same(t, got, got.Requests[1].Parent())
}

func TestDecodeXML_UnmarkedJSONArray(t *testing.T) {
	text := `<Response classname="example.Response"><Tags>["x", "y"]</Tags></Response>`
	decoded, err := decodeXML(t, text)
	require.NoError(t, err)
	assert.Equal(t, []string{"x", "y"}, decoded.Root.(*Response).Tags)
}

func TestDecodeXML_InvalidArrayIsWarning(t *testing.T) {
	text := `<Response classname="example.Response"><Tags array="true">not an array</Tags><Retries>1</Retries></Response>`
	decoded, err := decodeXML(t, text)
	require.NoError(t, err)

	got := decoded.Root.(*Response)
	assert.Nil(t, got.Tags)
	assert.Equal(t, 1, got.Retries)
	require.Len(t, decoded.Warnings, 1)
	assert.Contains(t, decoded.Warnings[0], "Response.Tags")
}

func TestDecodeXML_FatalErrorKeepsWarnings(t *testing.T) {
	text := `<Response classname="example.Missing"><StatusCode>1</StatusCode></Response>`
	_, err := decodeXML(t, text)
	require.Error(t, err)

	var me *model.Error
	require.True(t, errors.As(err, &me))
	assert.Equal(t, model.CodeDecodeStructure, me.Code)
	require.NotEmpty(t, me.Diagnostics)
	assert.Contains(t, me.Diagnostics[0], "cannot resolve type")
	assert.Contains(t, err.Error(), "cannot resolve type")
}
