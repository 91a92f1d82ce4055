package model

import (
	"reflect"
)

// Contents returns the ordered (key, value) pairs of p.
//
// Types implementing ContentsProvider supply their own list. Otherwise the
// tagged fields are read in declaration order, followed by any extras kept
// from decoding. Nil field values are reported as Unknown.
func Contents(p Persistable) []Entry {
	if isNil(p) {
		return nil
	}
	if cp, ok := p.(ContentsProvider); ok {
		return cp.PersistContents()
	}

	v := structValue(p)
	if !v.IsValid() {
		return nil
	}

	fields := fieldsOf(v.Type())
	entries := make([]Entry, 0, len(fields))
	for _, f := range fields {
		entries = append(entries, Entry{Key: f.Key, Value: fieldValue(v.FieldByIndex(f.Index))})
	}
	if eh, ok := p.(extrasHolder); ok {
		for _, e := range eh.Extras() {
			if e.Value == nil {
				e.Value = Unknown
			}
			entries = append(entries, e)
		}
	}
	return entries
}

func fieldValue(fv reflect.Value) any {
	switch fv.Kind() {
	case reflect.Pointer:
		if fv.IsNil() {
			return Unknown
		}
		if fv.Type().Implements(persistableIf) {
			return fv.Interface()
		}
		return fieldValue(fv.Elem())
	case reflect.Interface:
		if fv.IsNil() {
			return Unknown
		}
		return fieldValue(fv.Elem())
	case reflect.Map, reflect.Slice:
		if fv.IsNil() {
			return Unknown
		}
	}
	if fv.CanAddr() && fv.Addr().Type().Implements(persistableIf) && fv.Kind() == reflect.Struct {
		return fv.Addr().Interface()
	}
	return fv.Interface()
}
