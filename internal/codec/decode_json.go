package codec

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"reflect"
	"strings"

	"github.com/roach88/persistor/internal/model"
)

var jsonNumberType = reflect.TypeOf(json.Number(""))

// jsonObject is a parsed JSON object that keeps property order.
type jsonObject struct {
	keys   []string
	values map[string]any
}

func (o *jsonObject) get(key string) (any, bool) {
	v, ok := o.values[key]
	return v, ok
}

// toMap converts o and its descendants into plain Go maps.
func (o *jsonObject) toMap() map[string]any {
	m := make(map[string]any, len(o.keys))
	for _, k := range o.keys {
		m[k] = plain(o.values[k])
	}
	return m
}

func plain(v any) any {
	switch val := v.(type) {
	case *jsonObject:
		return val.toMap()
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = plain(item)
		}
		return out
	default:
		return v
	}
}

// parseJSON reads exactly one JSON value from r, preserving object key
// order. Numbers are kept as json.Number.
func parseJSON(r io.Reader) (any, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	v, err := parseJSONValue(dec)
	if err != nil {
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		if err == nil {
			return nil, fmt.Errorf("unexpected data after top-level value")
		}
		return nil, err
	}
	return v, nil
}

func parseJSONValue(dec *json.Decoder) (any, error) {
	tok, err := dec.Token()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.ErrUnexpectedEOF
		}
		return nil, err
	}
	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			obj := &jsonObject{values: make(map[string]any)}
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return nil, err
				}
				key, ok := keyTok.(string)
				if !ok {
					return nil, fmt.Errorf("expected object key, got %v", keyTok)
				}
				val, err := parseJSONValue(dec)
				if err != nil {
					return nil, err
				}
				if _, dup := obj.values[key]; !dup {
					obj.keys = append(obj.keys, key)
				}
				obj.values[key] = val
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return obj, nil
		case '[':
			arr := []any{}
			for dec.More() {
				val, err := parseJSONValue(dec)
				if err != nil {
					return nil, err
				}
				arr = append(arr, val)
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return arr, nil
		default:
			return nil, fmt.Errorf("unexpected delimiter %v", t)
		}
	default:
		return tok, nil
	}
}

// DecodeJSON reconstructs a Persistable from a JSON document whose
// top-level object has exactly one property, the root tag.
func DecodeJSON(r io.Reader, opts DecodeOptions) (*Decoded, error) {
	s := newDecodeState(opts)

	doc, err := parseJSON(r)
	if err != nil {
		return nil, s.fatal("malformed JSON document", err)
	}
	top, ok := doc.(*jsonObject)
	if !ok {
		return nil, s.fatal("top-level JSON value is not an object", nil)
	}
	if len(top.keys) != 1 {
		return nil, s.fatal(fmt.Sprintf("top-level JSON object must contain exactly one property, found %d", len(top.keys)), nil)
	}
	rootTag := top.keys[0]
	body, ok := top.values[rootTag].(*jsonObject)
	if !ok {
		return nil, s.fatal(fmt.Sprintf("root property %q is not an object", rootTag), nil)
	}

	root, err := s.decodeObject(body)
	if err != nil {
		return nil, s.fatal(fmt.Sprintf("cannot decode root %q", rootTag), err)
	}
	s.logger.Debug("decoded JSON document", "resource", opts.Resource, "root", rootTag, "warnings", len(s.warnings))
	return &Decoded{Root: root, Warnings: s.warnings, Present: s.present}, nil
}

// decodeObject instantiates the type named by the object's $classname and
// assigns every other property. Problems below this object become warnings.
func (s *decodeState) decodeObject(obj *jsonObject) (model.Persistable, error) {
	rawName, ok := obj.get(ClassNameKey)
	if !ok {
		return nil, fmt.Errorf("missing %s", ClassNameKey)
	}
	typeName, ok := rawName.(string)
	if !ok {
		return nil, fmt.Errorf("%s is not a string", ClassNameKey)
	}
	p, err := s.registry.New(typeName)
	if err != nil {
		return nil, err
	}

	for _, key := range obj.keys {
		if key == ClassNameKey {
			continue
		}
		if s.ignored(p, typeName, key) {
			s.logger.Debug("ignoring field", "type", typeName, "field", key)
			continue
		}
		value, ok := s.decodeValue(p, typeName, key, obj.values[key])
		if !ok {
			continue
		}
		if err := model.SetField(p, key, value); err != nil {
			s.warn("failed to set field", "field", model.SimpleName(p)+"."+key, "error", err)
			continue
		}
		s.present.mark(p, key)
	}
	return p, nil
}

// decodeValue turns a parsed JSON value into an assignable value. Nested
// objects carrying a type name become child Persistables with their parent
// linked; other objects become plain maps.
func (s *decodeState) decodeValue(parent model.Persistable, typeName, key string, raw any) (any, bool) {
	switch val := raw.(type) {
	case *jsonObject:
		if _, typed := val.get(ClassNameKey); !typed {
			return val.toMap(), true
		}
		child, err := s.decodeObject(val)
		if err != nil {
			s.warn("cannot decode nested object, skipping", "field", typeName+"."+key, "error", err)
			return nil, false
		}
		child.SetParent(parent)
		return child, true
	case []any:
		return s.decodeArray(parent, typeName, key, val), true
	default:
		return raw, true
	}
}

// decodeArray decodes every object element when the first element is an
// object; otherwise the elements are returned as plain values.
func (s *decodeState) decodeArray(parent model.Persistable, typeName, key string, arr []any) []any {
	if len(arr) == 0 {
		return arr
	}
	if _, objects := arr[0].(*jsonObject); !objects {
		return plain(arr).([]any)
	}
	out := make([]any, 0, len(arr))
	for i, item := range arr {
		obj, ok := item.(*jsonObject)
		if !ok {
			out = append(out, plain(item))
			continue
		}
		if _, typed := obj.get(ClassNameKey); !typed {
			out = append(out, obj.toMap())
			continue
		}
		child, err := s.decodeObject(obj)
		if err != nil {
			s.warn("cannot decode array element, skipping", "field", fmt.Sprintf("%s.%s[%d]", typeName, key, i), "error", err)
			continue
		}
		child.SetParent(parent)
		out = append(out, child)
	}
	return out
}

// decodeJSONArrayText parses text as a JSON array and decodes its elements.
func (s *decodeState) decodeJSONArrayText(parent model.Persistable, typeName, key, text string) ([]any, error) {
	doc, err := parseJSON(bytes.NewReader([]byte(strings.TrimSpace(text))))
	if err != nil {
		return nil, err
	}
	arr, ok := doc.([]any)
	if !ok {
		return nil, fmt.Errorf("value is not a JSON array")
	}
	return s.decodeArray(parent, typeName, key, arr), nil
}
