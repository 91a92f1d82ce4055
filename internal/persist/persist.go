// Package persist writes Persistable object graphs to a medium (an
// in-memory string, a file, or runtime variables) and reads them back.
package persist

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roach88/persistor/internal/codec"
	"github.com/roach88/persistor/internal/model"
	"github.com/roach88/persistor/internal/varstore"
)

// Persistor stores one object graph on one medium.
type Persistor interface {
	// Persist writes p, replacing whatever the medium held before. It
	// fails with a VALIDATION error when p is nil or disabled.
	Persist(ctx context.Context, p model.Persistable) error

	// Unpersist removes what Persist wrote.
	Unpersist(ctx context.Context) error

	// Unpickle reads the medium back into an object graph. ignored maps a
	// type name to fields that are left unassigned.
	Unpickle(ctx context.Context, ignored map[string][]string) (*codec.Decoded, error)

	Type() model.PersistenceType
	Name() string
	Format() model.FileFormat
}

// Config selects and configures a Persistor.
type Config struct {
	Type   model.PersistenceType
	Format model.FileFormat

	// Name is the file path for FILE, the variable prefix for VARIABLE and
	// a label for STRING.
	Name string

	// Store backs VARIABLE persistors.
	Store varstore.Store

	Registry *model.Registry
	Logger   *slog.Logger
}

// New creates the Persistor cfg describes.
func New(cfg Config) (Persistor, error) {
	if cfg.Format == "" {
		cfg.Format = model.DefaultFileFormat
	}
	b := base{format: cfg.Format, name: cfg.Name, registry: cfg.Registry, logger: cfg.Logger}
	if b.logger == nil {
		b.logger = slog.Default()
	}
	if b.registry == nil {
		b.registry = model.DefaultRegistry()
	}

	switch cfg.Type {
	case model.TypeString:
		return &StringPersistor{base: b}, nil
	case model.TypeFile:
		if cfg.Name == "" {
			return nil, model.NewValidationError("file persistor needs a file name")
		}
		return &FilePersistor{base: b}, nil
	case model.TypeVariable, "":
		if cfg.Store == nil {
			return nil, model.NewValidationError("variable persistor needs a variable store")
		}
		return &VariablePersistor{base: b, store: cfg.Store}, nil
	default:
		return nil, model.NewValidationError(fmt.Sprintf("unknown persistence type %q", cfg.Type))
	}
}

// base holds what every medium shares.
type base struct {
	format   model.FileFormat
	name     string
	registry *model.Registry
	logger   *slog.Logger
}

func (b *base) Format() model.FileFormat { return b.format }
func (b *base) Name() string             { return b.name }

func (b *base) encoder() *codec.Encoder {
	return &codec.Encoder{Format: codec.ForFileFormat(b.format), Registry: b.registry, Logger: b.logger}
}

func (b *base) decodeOptions(ignored map[string][]string) codec.DecodeOptions {
	return codec.DecodeOptions{Registry: b.registry, Logger: b.logger, IgnoredFields: ignored, Resource: b.name}
}
