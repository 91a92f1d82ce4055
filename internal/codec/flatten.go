package codec

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/roach88/persistor/internal/model"
)

// FlatEntry is one (dotted key, value) pair of a flattened object graph.
type FlatEntry struct {
	Key   string
	Value string
}

// Flattened is the dotted-path view of an object graph.
type Flattened struct {
	// Entries in encoding order.
	Entries []FlatEntry

	// IgnoredPrefixes lists keys of disabled containers; their subtrees
	// take no part in comparison.
	IgnoredPrefixes []string
}

// Map returns the entries keyed by flat key.
func (f *Flattened) Map() map[string]string {
	m := make(map[string]string, len(f.Entries))
	for _, e := range f.Entries {
		m[e.Key] = e.Value
	}
	return m
}

// FlattenOptions configures Flatten.
type FlattenOptions struct {
	Registry *model.Registry
	Logger   *slog.Logger

	// Alternatives replaces the value of the given flat keys.
	Alternatives map[string]string

	// Present, when set, keeps only the fields a decoded document
	// assigned.
	Present *Presence

	// IgnoredFields lists, per type name, fields reported as ignored
	// prefixes instead of entries.
	IgnoredFields map[string][]string
}

// Flatten walks root with the same rules as the encoder and returns one
// entry per scalar or array field. Keys are dotted paths starting at the
// root's simple type name, e.g. "Response.Request.Headers". Values are the
// unescaped text the encoder would write; arrays use the "[a, b]" grammar
// and maps collapse to canonical JSON.
func Flatten(root model.Persistable, opts FlattenOptions) (*Flattened, error) {
	if err := model.Validate(root); err != nil {
		return nil, err
	}
	w := newWalker(opts.Registry, opts.Logger)
	out := &Flattened{}
	w.flatten(out, root, []string{model.SimpleName(root)}, &opts)
	return out, nil
}

func (w *walker) flatten(out *Flattened, p model.Persistable, path []string, opts *FlattenOptions) {
	typeName := w.registry.TypeName(p)
	for _, entry := range model.Contents(p) {
		if !opts.Present.Has(p, entry.Key) {
			continue
		}
		key := FlatKey(path, entry.Key)
		if FieldIgnored(opts.IgnoredFields, p, typeName, entry.Key) {
			out.IgnoredPrefixes = append(out.IgnoredPrefixes, key)
			continue
		}
		if entry.Value == nil || isNilValue(entry.Value) {
			w.logger.Warn("value is nil, skipping", "key", key)
			continue
		}
		if nested, ok := entry.Value.(model.Persistable); ok {
			if !nested.Enabled() {
				w.logger.Warn("skipping disabled persistable", "key", key, "error", model.ErrNotEnabled)
				out.IgnoredPrefixes = append(out.IgnoredPrefixes, key)
				continue
			}
			w.flatten(out, nested, append(append([]string(nil), path...), entry.Key), opts)
			continue
		}
		text, _ := w.scalarText(key, entry.Value)
		if alt, ok := opts.Alternatives[key]; ok {
			w.logger.Debug("using alternative value", "key", key, "value", alt)
			text = alt
		}
		out.Entries = append(out.Entries, FlatEntry{Key: key, Value: text})
	}
}

// ParseFlat reads a flat "key=value" document. Blank lines and lines
// starting with '#' or '!' are skipped. A line without '=' continues the
// previous value on a new line.
//
// Continuation is ambiguous for multi-line values: a value line holding
// '=' reads as a new key, and blank or comment-like value lines are
// dropped. Multi-line values that must survive intact belong in JSON or
// XML benchmarks.
func ParseFlat(r io.Reader) (*Flattened, error) {
	out := &Flattened{}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSuffix(scanner.Text(), "\r")
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") || strings.HasPrefix(trimmed, "!") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			if len(out.Entries) == 0 {
				return nil, fmt.Errorf("line %d: expected key=value", lineNo)
			}
			out.Entries[len(out.Entries)-1].Value += "\n" + line
			continue
		}
		out.Entries = append(out.Entries, FlatEntry{Key: strings.TrimSpace(key), Value: value})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
