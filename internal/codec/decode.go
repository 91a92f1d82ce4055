package codec

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/roach88/persistor/internal/model"
)

// DecodeOptions configures a decode call.
type DecodeOptions struct {
	// Registry resolves type names. Defaults to model.DefaultRegistry.
	Registry *model.Registry

	// Logger receives warnings. Defaults to slog.Default.
	Logger *slog.Logger

	// IgnoredFields lists, per type name, fields that are not assigned.
	// Keys may be registered names or simple type names.
	IgnoredFields map[string][]string

	// Resource names the document in errors and warnings.
	Resource string
}

// Decoded is the result of a decode call.
type Decoded struct {
	// Root is the reconstructed object graph.
	Root model.Persistable

	// Warnings lists every recovered problem: unresolved types, failed
	// assignments, tag mismatches.
	Warnings []string

	// Present records the fields assigned from the document. Passing it
	// to Flatten keeps only those fields.
	Present *Presence
}

// Presence records, per decoded object, the fields the document assigned.
// A nil Presence holds every field.
type Presence struct {
	fields map[model.Persistable]map[string]bool
}

func newPresence() *Presence {
	return &Presence{fields: make(map[model.Persistable]map[string]bool)}
}

// mark records key of p. Declared fields are recorded under their persist
// key whichever spelling the document used.
func (pr *Presence) mark(p model.Persistable, key string) {
	for _, f := range model.Fields(p) {
		if strings.EqualFold(f.Key, key) || strings.EqualFold(f.Name, key) {
			key = f.Key
			break
		}
	}
	set := pr.fields[p]
	if set == nil {
		set = make(map[string]bool)
		pr.fields[p] = set
	}
	set[strings.ToLower(key)] = true
}

// Has reports whether the document assigned key of p.
func (pr *Presence) Has(p model.Persistable, key string) bool {
	if pr == nil {
		return true
	}
	return pr.fields[p][strings.ToLower(key)]
}

// decodeState accumulates warnings for one decode call.
type decodeState struct {
	opts     DecodeOptions
	registry *model.Registry
	logger   *slog.Logger
	warnings []string
	present  *Presence
}

func newDecodeState(opts DecodeOptions) *decodeState {
	s := &decodeState{opts: opts, registry: opts.Registry, logger: opts.Logger, present: newPresence()}
	if s.registry == nil {
		s.registry = model.DefaultRegistry()
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

func (s *decodeState) warn(msg string, args ...any) {
	var b strings.Builder
	b.WriteString(msg)
	for i := 0; i+1 < len(args); i += 2 {
		b.WriteString(" ")
		b.WriteString(fmt.Sprint(args[i]))
		b.WriteString("=")
		b.WriteString(fmt.Sprint(args[i+1]))
	}
	s.warnings = append(s.warnings, b.String())
	s.logger.Warn(msg, append([]any{"resource", s.opts.Resource}, args...)...)
}

// fatal returns a decode error that keeps the warnings gathered so far.
func (s *decodeState) fatal(message string, err error) error {
	e := model.NewDecodeError(s.opts.Resource, message, err)
	e.Diagnostics = s.warnings
	return e
}

func (s *decodeState) ignored(p model.Persistable, typeName, field string) bool {
	return FieldIgnored(s.opts.IgnoredFields, p, typeName, field)
}

// FieldIgnored reports whether ignored names field of p. Keys of ignored
// may be the registered type name or the simple type name; fields compare
// case-insensitively.
func FieldIgnored(ignored map[string][]string, p model.Persistable, typeName, field string) bool {
	if len(ignored) == 0 {
		return false
	}
	for _, name := range []string{typeName, model.SimpleName(p)} {
		for _, f := range ignored[name] {
			if strings.EqualFold(f, field) {
				return true
			}
		}
	}
	return false
}
