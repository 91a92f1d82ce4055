package model

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
)

// SetField assigns a decoded value to the field of p whose persist key
// matches key, ignoring case.
//
// Values are converted to the field type where a lossless conversion
// exists: strings parse into numbers and booleans, json.Number into any
// numeric kind, []any into slices, map[string]any or a JSON object string
// into maps, and a JSON array string into slices. Keys the type does not
// declare are kept as extras when p embeds Base, otherwise ErrUnknownField
// is returned.
func SetField(p Persistable, key string, value any) error {
	if isNil(p) {
		return NewValidationError("cannot set field on nil persistable")
	}
	if fs, ok := p.(FieldSetter); ok {
		err := fs.SetPersistField(key, value)
		if !errors.Is(err, ErrUnknownField) {
			return err
		}
	}

	v := structValue(p)
	if !v.IsValid() {
		return fmt.Errorf("%T is not a struct pointer", p)
	}

	f, ok := lookupField(v.Type(), key)
	if !ok {
		if eh, ok := p.(extrasHolder); ok {
			eh.PutExtra(key, value)
			return nil
		}
		return fmt.Errorf("%w: %s.%s", ErrUnknownField, SimpleName(p), key)
	}

	if err := assign(v.FieldByIndex(f.Index), value); err != nil {
		return fmt.Errorf("field %s.%s: %w", SimpleName(p), f.Key, err)
	}
	return nil
}

func assign(dst reflect.Value, value any) error {
	if value == nil {
		dst.Set(reflect.Zero(dst.Type()))
		return nil
	}
	if s, ok := value.(string); ok && s == Unknown && dst.Kind() != reflect.String {
		dst.Set(reflect.Zero(dst.Type()))
		return nil
	}

	src := reflect.ValueOf(value)
	if src.Type().AssignableTo(dst.Type()) {
		dst.Set(src)
		return nil
	}

	switch dst.Kind() {
	case reflect.String:
		return assignString(dst, value)
	case reflect.Bool:
		return assignBool(dst, value)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return assignInt(dst, value)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return assignUint(dst, value)
	case reflect.Float32, reflect.Float64:
		return assignFloat(dst, value)
	case reflect.Slice:
		return assignSlice(dst, value)
	case reflect.Map:
		return assignMap(dst, value)
	case reflect.Pointer:
		elem := reflect.New(dst.Type().Elem())
		if err := assign(elem.Elem(), value); err != nil {
			return err
		}
		dst.Set(elem)
		return nil
	case reflect.Interface:
		if src.Type().Implements(dst.Type()) {
			dst.Set(src)
			return nil
		}
	}
	return fmt.Errorf("cannot assign %T to %s", value, dst.Type())
}

func assignString(dst reflect.Value, value any) error {
	switch val := value.(type) {
	case string:
		dst.SetString(val)
	case json.Number:
		dst.SetString(val.String())
	case bool, int, int64, float64:
		dst.SetString(fmt.Sprint(val))
	case []any, map[string]any:
		b, err := json.Marshal(val)
		if err != nil {
			return err
		}
		dst.SetString(string(b))
	default:
		return fmt.Errorf("cannot assign %T to %s", value, dst.Type())
	}
	return nil
}

func assignBool(dst reflect.Value, value any) error {
	switch val := value.(type) {
	case bool:
		dst.SetBool(val)
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(val))
		if err != nil {
			return fmt.Errorf("invalid boolean %q", val)
		}
		dst.SetBool(b)
	default:
		return fmt.Errorf("cannot assign %T to %s", value, dst.Type())
	}
	return nil
}

func assignInt(dst reflect.Value, value any) error {
	var n int64
	switch val := value.(type) {
	case json.Number:
		i, err := val.Int64()
		if err != nil {
			return fmt.Errorf("invalid integer %q", val)
		}
		n = i
	case string:
		i, err := strconv.ParseInt(strings.TrimSpace(val), 10, 64)
		if err != nil {
			return fmt.Errorf("invalid integer %q", val)
		}
		n = i
	case float64:
		if val != math.Trunc(val) {
			return fmt.Errorf("value %v is not an integer", val)
		}
		n = int64(val)
	default:
		rv := reflect.ValueOf(value)
		switch {
		case rv.CanInt():
			n = rv.Int()
		case rv.CanUint():
			n = int64(rv.Uint())
		default:
			return fmt.Errorf("cannot assign %T to %s", value, dst.Type())
		}
	}
	if dst.OverflowInt(n) {
		return fmt.Errorf("value %d overflows %s", n, dst.Type())
	}
	dst.SetInt(n)
	return nil
}

func assignUint(dst reflect.Value, value any) error {
	var n uint64
	switch val := value.(type) {
	case json.Number:
		u, err := strconv.ParseUint(val.String(), 10, 64)
		if err != nil {
			return fmt.Errorf("invalid unsigned integer %q", val)
		}
		n = u
	case string:
		u, err := strconv.ParseUint(strings.TrimSpace(val), 10, 64)
		if err != nil {
			return fmt.Errorf("invalid unsigned integer %q", val)
		}
		n = u
	case float64:
		if val < 0 || val != math.Trunc(val) {
			return fmt.Errorf("value %v is not an unsigned integer", val)
		}
		n = uint64(val)
	default:
		rv := reflect.ValueOf(value)
		switch {
		case rv.CanUint():
			n = rv.Uint()
		case rv.CanInt() && rv.Int() >= 0:
			n = uint64(rv.Int())
		default:
			return fmt.Errorf("cannot assign %T to %s", value, dst.Type())
		}
	}
	if dst.OverflowUint(n) {
		return fmt.Errorf("value %d overflows %s", n, dst.Type())
	}
	dst.SetUint(n)
	return nil
}

func assignFloat(dst reflect.Value, value any) error {
	var f float64
	switch val := value.(type) {
	case json.Number:
		x, err := val.Float64()
		if err != nil {
			return fmt.Errorf("invalid number %q", val)
		}
		f = x
	case string:
		x, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err != nil {
			return fmt.Errorf("invalid number %q", val)
		}
		f = x
	default:
		rv := reflect.ValueOf(value)
		switch {
		case rv.CanFloat():
			f = rv.Float()
		case rv.CanInt():
			f = float64(rv.Int())
		case rv.CanUint():
			f = float64(rv.Uint())
		default:
			return fmt.Errorf("cannot assign %T to %s", value, dst.Type())
		}
	}
	dst.SetFloat(f)
	return nil
}

func assignSlice(dst reflect.Value, value any) error {
	var items []any
	switch val := value.(type) {
	case []any:
		items = val
	case string:
		decoded, err := decodeJSONText(val)
		if err != nil {
			return err
		}
		arr, ok := decoded.([]any)
		if !ok {
			return fmt.Errorf("value %q is not an array", val)
		}
		items = arr
	default:
		src := reflect.ValueOf(value)
		if src.Kind() != reflect.Slice && src.Kind() != reflect.Array {
			return fmt.Errorf("cannot assign %T to %s", value, dst.Type())
		}
		items = make([]any, src.Len())
		for i := range items {
			items[i] = src.Index(i).Interface()
		}
	}

	out := reflect.MakeSlice(dst.Type(), len(items), len(items))
	for i, item := range items {
		if err := assign(out.Index(i), item); err != nil {
			return fmt.Errorf("[%d]: %w", i, err)
		}
	}
	dst.Set(out)
	return nil
}

func assignMap(dst reflect.Value, value any) error {
	var obj map[string]any
	switch val := value.(type) {
	case map[string]any:
		obj = val
	case string:
		decoded, err := decodeJSONText(val)
		if err != nil {
			return err
		}
		m, ok := decoded.(map[string]any)
		if !ok {
			return fmt.Errorf("value %q is not an object", val)
		}
		obj = m
	default:
		return fmt.Errorf("cannot assign %T to %s", value, dst.Type())
	}

	if dst.Type().Key().Kind() != reflect.String {
		return fmt.Errorf("unsupported map key type %s", dst.Type().Key())
	}
	out := reflect.MakeMapWithSize(dst.Type(), len(obj))
	for k, item := range obj {
		ev := reflect.New(dst.Type().Elem()).Elem()
		if err := assign(ev, item); err != nil {
			return fmt.Errorf("[%q]: %w", k, err)
		}
		out.SetMapIndex(reflect.ValueOf(k).Convert(dst.Type().Key()), ev)
	}
	dst.Set(out)
	return nil
}

func decodeJSONText(s string) (any, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(strings.TrimSpace(s))))
	dec.UseNumber()
	var out any
	if err := dec.Decode(&out); err != nil {
		return nil, fmt.Errorf("invalid JSON value %q: %w", s, err)
	}
	return out, nil
}
