package codec

import (
	"fmt"
	"io"
	"log/slog"
	"reflect"
	"strings"

	"github.com/roach88/persistor/internal/canon"
	"github.com/roach88/persistor/internal/model"
)

// Outcome is the result of the per-node encoding step.
type Outcome int

const (
	// Emitted means the node produced output.
	Emitted Outcome = iota
	// SkippedDisabled means a nested Persistable was disabled.
	SkippedDisabled
	// SkippedNull means the value was nil.
	SkippedNull
)

func (o Outcome) String() string {
	switch o {
	case Emitted:
		return "emitted"
	case SkippedDisabled:
		return "skipped-disabled"
	case SkippedNull:
		return "skipped-null"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

// Encoder walks a Persistable tree depth-first and renders it through a
// Format. An Encoder holds no per-call state and is safe for concurrent use.
type Encoder struct {
	Format   Format
	Registry *model.Registry
	Logger   *slog.Logger
}

// NewEncoder creates an encoder for format using the default registry and
// logger.
func NewEncoder(format Format) *Encoder {
	return &Encoder{Format: format}
}

// Encode renders root as a complete document. It fails only when root is
// nil or disabled; disabled or nil descendants are skipped with a warning.
func (e *Encoder) Encode(root model.Persistable) (string, error) {
	if err := model.Validate(root); err != nil {
		return "", err
	}
	w := e.walker()
	tag := model.SimpleName(root)
	body, _ := w.container(e.Format, root, tag, nil, true)
	return e.Format.Header() + body + e.Format.Trailer(), nil
}

// EncodeTo writes the encoded document to out.
func (e *Encoder) EncodeTo(out io.Writer, root model.Persistable) error {
	text, err := e.Encode(root)
	if err != nil {
		return err
	}
	if _, err := io.WriteString(out, text); err != nil {
		return model.NewResourceError("", "failed to write encoded document", err)
	}
	return nil
}

func (e *Encoder) walker() *walker {
	return newWalker(e.Registry, e.Logger)
}

// walker carries the collaborators of one encoding call.
type walker struct {
	registry *model.Registry
	logger   *slog.Logger
}

func newWalker(registry *model.Registry, logger *slog.Logger) *walker {
	if registry == nil {
		registry = model.DefaultRegistry()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &walker{registry: registry, logger: logger}
}

// container renders p with the given tag. path holds the tags of the
// enclosing containers.
func (w *walker) container(f Format, p model.Persistable, tag string, path []string, needLeadingName bool) (string, Outcome) {
	if p == nil || isNilValue(p) {
		return "", SkippedNull
	}
	if !p.Enabled() {
		w.logger.Warn("skipping disabled persistable",
			"tag", tag, "type", w.registry.TypeName(p), "error", model.ErrNotEnabled)
		return "", SkippedDisabled
	}

	childPath := append(append([]string(nil), path...), tag)
	var pieces []string
	for _, entry := range model.Contents(p) {
		piece, outcome := w.child(f, entry, childPath)
		if outcome == Emitted {
			pieces = append(pieces, piece)
		}
	}

	var b strings.Builder
	b.WriteString(f.ContainerBegin(tag, w.registry.TypeName(p), needLeadingName, len(pieces) > 0))
	for i, piece := range pieces {
		b.WriteString(piece)
		b.WriteString(f.ChildEnd(i == len(pieces)-1))
	}
	b.WriteString(f.ContainerEnd(tag))
	return b.String(), Emitted
}

func (w *walker) child(f Format, entry model.Entry, path []string) (string, Outcome) {
	if entry.Value == nil || isNilValue(entry.Value) {
		w.logger.Warn("value is nil, skipping", "key", FlatKey(path, entry.Key))
		return "", SkippedNull
	}
	if nested, ok := entry.Value.(model.Persistable); ok {
		return w.container(f, nested, entry.Key, path, true)
	}

	switch classify(entry.Value) {
	case kindArray:
		text := w.array(entry.Value)
		// The array grammar is JSON, so quoting formats take it verbatim.
		if !f.QuoteStrings() {
			text = f.Escape(text)
		}
		return f.ChildBegin(path, entry.Key, text, true), Emitted
	default:
		return f.ChildBegin(path, entry.Key, w.scalar(f, FlatKey(path, entry.Key), entry.Value), false), Emitted
	}
}

// scalar renders a non-container, non-array value for format f.
func (w *walker) scalar(f Format, key string, value any) string {
	text, kind := w.scalarText(key, value)
	if kind == kindString || kind == kindMap || kind == kindOther {
		text = f.Escape(text)
		if f.QuoteStrings() {
			text = `"` + text + `"`
		}
	}
	return text
}

// scalarText renders a value as unescaped text. Maps collapse to canonical
// JSON so only Persistables nest structurally.
func (w *walker) scalarText(key string, value any) (string, valueKind) {
	kind := classify(value)
	switch kind {
	case kindString:
		return reflect.ValueOf(value).String(), kind
	case kindNumber, kindBool:
		return fmt.Sprint(value), kind
	case kindMap:
		text, err := canon.MarshalString(value)
		if err != nil {
			w.logger.Warn("cannot render map as JSON, using default formatting", "key", key, "error", err)
			return fmt.Sprint(value), kindOther
		}
		return text, kind
	case kindArray:
		return w.array(value), kind
	default:
		w.logger.Warn("unsupported value type, using default formatting",
			"key", key, "type", fmt.Sprintf("%T", value))
		return fmt.Sprint(value), kindOther
	}
}

// array renders a sequence with the JSON sub-grammar used by every format:
// "[a, b, c]". Persistable elements render as anonymous JSON containers.
func (w *walker) array(value any) string {
	rv := reflect.ValueOf(value)
	var b strings.Builder
	b.WriteString("[")
	for i := 0; i < rv.Len(); i++ {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(w.element(rv.Index(i).Interface()))
	}
	b.WriteString("]")
	return b.String()
}

func (w *walker) element(value any) string {
	if value == nil || isNilValue(value) {
		return "null"
	}
	if p, ok := value.(model.Persistable); ok {
		text, outcome := w.container(JSONFormat{}, p, model.SimpleName(p), nil, false)
		if outcome != Emitted {
			return "null"
		}
		return text
	}
	if classify(value) == kindArray {
		return w.array(value)
	}
	return w.scalar(JSONFormat{}, "", value)
}

type valueKind int

const (
	kindString valueKind = iota
	kindNumber
	kindBool
	kindArray
	kindMap
	kindPersistable
	kindOther
)

func classify(value any) valueKind {
	if _, ok := value.(model.Persistable); ok {
		return kindPersistable
	}
	rv := reflect.ValueOf(value)
	if rv.Type() == jsonNumberType {
		return kindNumber
	}
	switch rv.Kind() {
	case reflect.String:
		return kindString
	case reflect.Bool:
		return kindBool
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return kindNumber
	case reflect.Slice, reflect.Array:
		return kindArray
	case reflect.Map:
		return kindMap
	default:
		return kindOther
	}
}

func isNilValue(value any) bool {
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice:
		return rv.IsNil()
	}
	return !rv.IsValid()
}
