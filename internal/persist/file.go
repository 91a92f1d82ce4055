package persist

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/roach88/persistor/internal/codec"
	"github.com/roach88/persistor/internal/model"
)

// FilePersistor writes the encoded document to a file.
type FilePersistor struct {
	base
}

func (f *FilePersistor) Type() model.PersistenceType { return model.TypeFile }

// Persist encodes p and replaces the file atomically: the text goes to a
// temporary file in the same directory which is then renamed over the
// target.
func (f *FilePersistor) Persist(_ context.Context, p model.Persistable) error {
	text, err := f.encoder().Encode(p)
	if err != nil {
		return err
	}
	if err := writeFileAtomic(f.name, []byte(text)); err != nil {
		return model.NewResourceError(f.name, "cannot write file", err)
	}
	f.logger.Debug("persisted to file", "path", f.name, "format", f.format, "bytes", len(text))
	return nil
}

// Unpersist deletes the file. A missing file is not an error.
func (f *FilePersistor) Unpersist(context.Context) error {
	if err := os.Remove(f.name); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return model.NewResourceError(f.name, "cannot delete file", err)
	}
	return nil
}

// Unpickle decodes the file.
func (f *FilePersistor) Unpickle(ctx context.Context, ignored map[string][]string) (*codec.Decoded, error) {
	return Decode(ctx, FileSource{Path: f.name}, f.format, f.decodeOptions(ignored))
}

func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
