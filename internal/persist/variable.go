package persist

import (
	"context"
	"sync"

	"github.com/roach88/persistor/internal/codec"
	"github.com/roach88/persistor/internal/model"
	"github.com/roach88/persistor/internal/varstore"
)

// VariablePersistor writes each flattened field of the object graph as a
// runtime variable. With a name of "run1", the field Response.StatusCode
// becomes the variable "run1.Response.StatusCode"; without a name it is
// stored as "Response.StatusCode".
type VariablePersistor struct {
	base
	store varstore.Store

	mu      sync.Mutex
	written string
}

func (v *VariablePersistor) Type() model.PersistenceType { return model.TypeVariable }

// Persist replaces the variables under the graph's prefix with the
// flattened fields of p.
func (v *VariablePersistor) Persist(ctx context.Context, p model.Persistable) error {
	flat, err := codec.Flatten(p, codec.FlattenOptions{Registry: v.registry, Logger: v.logger})
	if err != nil {
		return err
	}

	prefix := v.qualify(model.SimpleName(p))
	if _, err := v.store.DeletePrefix(ctx, prefix); err != nil {
		return model.NewResourceError(prefix, "cannot clear variables", err)
	}
	vars := make([]varstore.Variable, 0, len(flat.Entries))
	for _, e := range flat.Entries {
		vars = append(vars, varstore.Variable{Name: v.qualify(e.Key), Value: e.Value})
	}
	if err := v.store.SetAll(ctx, vars); err != nil {
		return model.NewResourceError(prefix, "cannot write variables", err)
	}

	v.mu.Lock()
	v.written = prefix
	v.mu.Unlock()
	v.logger.Debug("persisted to variables", "prefix", prefix, "count", len(vars))
	return nil
}

// Unpersist deletes the variables written by the last Persist, or every
// variable under the configured name when nothing was written yet.
func (v *VariablePersistor) Unpersist(ctx context.Context) error {
	v.mu.Lock()
	prefix := v.written
	v.written = ""
	v.mu.Unlock()

	if prefix == "" {
		prefix = v.name
	}
	if prefix == "" {
		return nil
	}
	n, err := v.store.DeletePrefix(ctx, prefix)
	if err != nil {
		return model.NewResourceError(prefix, "cannot delete variables", err)
	}
	v.logger.Debug("deleted variables", "prefix", prefix, "count", n)
	return nil
}

// Unpickle is not supported: variables hold no type names.
func (v *VariablePersistor) Unpickle(context.Context, map[string][]string) (*codec.Decoded, error) {
	return nil, model.NewUnsupportedError("cannot unpickle from runtime variables")
}

func (v *VariablePersistor) qualify(key string) string {
	if v.name == "" {
		return key
	}
	return v.name + codec.KeySeparator + key
}
