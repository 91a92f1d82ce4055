package persist

import (
	"context"
	"io"
	"os"
	"strings"

	"github.com/roach88/persistor/internal/codec"
	"github.com/roach88/persistor/internal/model"
)

// TextSource supplies document text. Every Open returns a fresh reader
// positioned at the start, so one source can feed several decoders in turn.
type TextSource interface {
	Open() (io.ReadCloser, error)

	// Name identifies the source in errors and logs.
	Name() string
}

// FileSource reads a file on disk.
type FileSource struct {
	Path string
}

// Open opens the file. Failures are RESOURCE errors naming the path.
func (s FileSource) Open() (io.ReadCloser, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, model.NewResourceError(s.Path, "cannot open file", err)
	}
	return f, nil
}

func (s FileSource) Name() string { return s.Path }

// StringSource serves an in-memory document.
type StringSource struct {
	Label string
	Text  string
}

// Open returns a reader over the text.
func (s StringSource) Open() (io.ReadCloser, error) {
	return io.NopCloser(strings.NewReader(s.Text)), nil
}

func (s StringSource) Name() string {
	if s.Label == "" {
		return "string"
	}
	return s.Label
}

// ReadAll returns the complete text of src.
func ReadAll(src TextSource) (string, error) {
	r, err := src.Open()
	if err != nil {
		return "", err
	}
	defer r.Close()

	b, err := io.ReadAll(r)
	if err != nil {
		return "", model.NewResourceError(src.Name(), "cannot read", err)
	}
	return string(b), nil
}

// Decode opens src, decodes it with the decoder for format and closes it
// on every path. PROPERTIES documents carry no type information and cannot
// be decoded into objects.
func Decode(ctx context.Context, src TextSource, format model.FileFormat, opts codec.DecodeOptions) (*codec.Decoded, error) {
	if format == model.FormatProperties {
		return nil, model.NewUnsupportedError("cannot unpickle a " + string(format) + " document")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r, err := src.Open()
	if err != nil {
		return nil, err
	}
	defer r.Close()

	if opts.Resource == "" {
		opts.Resource = src.Name()
	}
	if format == model.FormatXML {
		return codec.DecodeXML(r, opts)
	}
	return codec.DecodeJSON(r, opts)
}
