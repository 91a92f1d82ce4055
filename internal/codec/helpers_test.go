package codec_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/persistor/internal/model"
)

type Request struct {
	model.Base
	Method string `persist:"Method"`
	URL    string `persist:"URL"`
	Body   string `persist:"Body"`
}

type Response struct {
	model.Base
	StatusCode string            `persist:"StatusCode"`
	Headers    map[string]string `persist:"Headers"`
	Request    *Request          `persist:"Request"`
	Tags       []string          `persist:"Tags"`
	Retries    int               `persist:"Retries"`
	Cached     bool              `persist:"Cached"`
}

type Batch struct {
	model.Base
	Name     string     `persist:"Name"`
	Requests []*Request `persist:"Requests"`
}

// Trailer has a provider whose last entry is nil.
type Trailer struct {
	model.Base
}

func (t *Trailer) PersistContents() []model.Entry {
	return []model.Entry{{Key: "First", Value: "1"}, {Key: "Second", Value: nil}}
}

type Simple struct {
	model.Base
	StatusCode string            `persist:"StatusCode"`
	Headers    map[string]string `persist:"Headers"`
}

func newRegistry(t *testing.T) *model.Registry {
	t.Helper()
	r := model.NewRegistry()
	require.NoError(t, r.RegisterName("example.Request", func() model.Persistable { return &Request{} }))
	require.NoError(t, r.RegisterName("example.Response", func() model.Persistable { return &Response{} }))
	require.NoError(t, r.RegisterName("example.Batch", func() model.Persistable { return &Batch{} }))
	require.NoError(t, r.RegisterName("example.Trailer", func() model.Persistable { return &Trailer{} }))
	require.NoError(t, r.RegisterName("example.Simple", func() model.Persistable { return &Simple{} }))
	return r
}

func fixtureResponse() *Response {
	return &Response{
		StatusCode: "200",
		Headers:    map[string]string{"Content-Type": "application/json"},
		Request: &Request{
			Method: "GET",
			URL:    "http://x/a?b=1&c=2",
			Body:   "line1\nline2 \"quoted\"",
		},
		Tags:    []string{"a", "b"},
		Retries: 3,
	}
}

func countWarnings(buf *bytes.Buffer) int {
	return strings.Count(buf.String(), "level=WARN")
}
