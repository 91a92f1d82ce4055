package persist

import (
	"context"
	"sync"

	"github.com/roach88/persistor/internal/codec"
	"github.com/roach88/persistor/internal/model"
)

// StringPersistor keeps the encoded document in memory.
type StringPersistor struct {
	base

	mu   sync.Mutex
	text string
}

// NewString creates a STRING persistor for format.
func NewString(format model.FileFormat, registry *model.Registry) *StringPersistor {
	p, _ := New(Config{Type: model.TypeString, Format: format, Registry: registry})
	return p.(*StringPersistor)
}

func (s *StringPersistor) Type() model.PersistenceType { return model.TypeString }

// Persist replaces the held text with the encoding of p.
func (s *StringPersistor) Persist(_ context.Context, p model.Persistable) error {
	text, err := s.encoder().Encode(p)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.text = text
	s.mu.Unlock()
	s.logger.Debug("persisted to string", "format", s.format, "bytes", len(text))
	return nil
}

// Unpersist clears the held text.
func (s *StringPersistor) Unpersist(context.Context) error {
	s.SetString("")
	return nil
}

// Unpickle decodes the held text.
func (s *StringPersistor) Unpickle(ctx context.Context, ignored map[string][]string) (*codec.Decoded, error) {
	return Decode(ctx, StringSource{Label: s.Name(), Text: s.String()}, s.format, s.decodeOptions(ignored))
}

// String returns the held text.
func (s *StringPersistor) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.text
}

// SetString replaces the held text, e.g. with a benchmark to unpickle.
func (s *StringPersistor) SetString(text string) {
	s.mu.Lock()
	s.text = text
	s.mu.Unlock()
}
