package codec_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/persistor/internal/codec"
)

func TestEscapeJSON(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{`plain`, `plain`},
		{`say "hi"`, `say \"hi\"`},
		{"a\\b", `a\\b`},
		{"line1\nline2\ttab\r", `line1\nline2\ttab\r`},
		{"\x01", `\u0001`},
		{"<a & b>", "<a & b>"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, codec.EscapeJSON(tt.in), tt.in)
	}
}

func TestQuoteJSON_IsValidJSONString(t *testing.T) {
	for _, s := range []string{"", "x", "\"\\\n\x1f", "\u00e9\u2028"} {
		var back string
		require.NoError(t, json.Unmarshal([]byte(codec.QuoteJSON(s)), &back))
		assert.Equal(t, s, back)
	}
}

func TestEscapeXML(t *testing.T) {
	tests := []struct {
		name, in, want string
	}{
		{"no markup", "plain text", "plain text"},
		{"ampersand", "a&b", "<![CDATA[a&b]]>"},
		{"angle brackets", "<x>", "<![CDATA[<x>]]>"},
		{"already wrapped", "<![CDATA[a<b]]>", "<![CDATA[a<b]]>"},
		{"embedded terminator", "a]]>b<", "<![CDATA[a]]]]><![CDATA[>b<]]>"},
		{"carriage return", "a\r\nb", "a&#xD;\nb"},
		{"carriage return with markup", "<a>\r\n&", "<![CDATA[<a>]]>&#xD;<![CDATA[\n&]]>"},
		{"lone carriage return", "\r", "&#xD;"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, codec.EscapeXML(tt.in))
		})
	}
}

func TestIsCDATA(t *testing.T) {
	assert.True(t, codec.IsCDATA("<![CDATA[x]]>"))
	assert.False(t, codec.IsCDATA("x"))
	assert.False(t, codec.IsCDATA("<![CDATA[a]]>b<![CDATA[c]]>"))
}

func TestEscapeXML_SurvivesDecode(t *testing.T) {
	body := "if a < b && c ]]> d"
	decoded, err := decodeXML(t, encode(t, codec.XMLFormat{}, &Request{Method: "GET", Body: body}))
	require.NoError(t, err)
	assert.Equal(t, body, decoded.Root.(*Request).Body)
}

func TestEscapeXML_CarriageReturnSurvivesDecode(t *testing.T) {
	for _, body := range []string{"a\r\nb", "a\rb", "<x>\r\n</x>\r", "\r\n\r\n"} {
		decoded, err := decodeXML(t, encode(t, codec.XMLFormat{}, &Request{Method: "GET", Body: body}))
		require.NoError(t, err)
		assert.Equal(t, body, decoded.Root.(*Request).Body, "%q", body)
	}
}
