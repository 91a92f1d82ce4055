// Package varstore keeps runtime variables: named string values that
// persisted objects are written into and that benchmark documents may
// reference as ${name}.
//
// Names are dotted paths. A prefix selects a name equal to it or any name
// below it ("Response" selects "Response.StatusCode" but not
// "ResponseCode").
//
// Two backends are provided:
//   - SQLiteStore: a local database file, WAL mode
//   - RedisStore: one Redis hash per namespace
package varstore

import (
	"context"
	"sort"
	"strings"
)

// Variable is one stored name/value pair.
type Variable struct {
	Name  string
	Value string
}

// ValueSource resolves a variable by name. ok is false when the variable
// does not exist.
type ValueSource interface {
	Get(ctx context.Context, name string) (value string, ok bool, err error)
}

// Store is a read/write variable store.
type Store interface {
	ValueSource

	// Set stores one variable, replacing any earlier value.
	Set(ctx context.Context, name, value string) error

	// SetAll stores every variable in one atomic write.
	SetAll(ctx context.Context, vars []Variable) error

	// DeletePrefix removes every variable selected by prefix and returns
	// how many were removed.
	DeletePrefix(ctx context.Context, prefix string) (int, error)

	// List returns the variables selected by prefix sorted by name. An
	// empty prefix selects everything.
	List(ctx context.Context, prefix string) ([]Variable, error)

	Close() error
}

// MatchesPrefix reports whether name is selected by prefix.
func MatchesPrefix(name, prefix string) bool {
	if prefix == "" || name == prefix {
		return true
	}
	return strings.HasPrefix(name, prefix+".")
}

// MapSource is a ValueSource over a fixed map. Useful in tests and for
// values given on the command line.
type MapSource map[string]string

// Get returns the value for name.
func (m MapSource) Get(_ context.Context, name string) (string, bool, error) {
	v, ok := m[name]
	return v, ok, nil
}

func sortVariables(vars []Variable) {
	sort.Slice(vars, func(i, j int) bool { return vars[i].Name < vars[j].Name })
}
