package model

import (
	"reflect"
	"strings"
	"sync"
)

const persistTagKey = "persist"

// FieldInfo maps a Go struct field to its persist key.
type FieldInfo struct {
	Name  string // Go field name
	Key   string // persist key
	Index []int
	Type  reflect.Type
}

var (
	baseType      = reflect.TypeOf(Base{})
	persistableIf = reflect.TypeOf((*Persistable)(nil)).Elem()
)

var fieldCache sync.Map // map[reflect.Type][]FieldInfo

// Fields returns the field map of p in declaration order.
func Fields(p Persistable) []FieldInfo {
	t := structType(p)
	if t == nil {
		return nil
	}
	return fieldsOf(t)
}

func fieldsOf(t reflect.Type) []FieldInfo {
	if cached, ok := fieldCache.Load(t); ok {
		return cached.([]FieldInfo)
	}

	fields := make([]FieldInfo, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if f.Anonymous && f.Type == baseType {
			continue
		}
		if f.PkgPath != "" {
			// Unexported, skip.
			continue
		}
		tag := strings.TrimSpace(f.Tag.Get(persistTagKey))
		if tag == "-" {
			continue
		}
		key := f.Name
		if name, _, _ := strings.Cut(tag, ","); name != "" {
			key = name
		}
		fields = append(fields, FieldInfo{Name: f.Name, Key: key, Index: f.Index, Type: f.Type})
	}

	fieldCache.Store(t, fields)
	return fields
}

// lookupField finds a field by persist key or Go name, ignoring case.
func lookupField(t reflect.Type, key string) (FieldInfo, bool) {
	for _, f := range fieldsOf(t) {
		if strings.EqualFold(f.Key, key) || strings.EqualFold(f.Name, key) {
			return f, true
		}
	}
	return FieldInfo{}, false
}

func structType(p Persistable) reflect.Type {
	if isNil(p) {
		return nil
	}
	t := reflect.TypeOf(p)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil
	}
	return t
}

func structValue(p Persistable) reflect.Value {
	v := reflect.ValueOf(p)
	for v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return reflect.Value{}
		}
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return reflect.Value{}
	}
	return v
}

func isNil(p Persistable) bool {
	if p == nil {
		return true
	}
	v := reflect.ValueOf(p)
	return v.Kind() == reflect.Pointer && v.IsNil()
}

// IsPersistable reports whether v is a non-nil Persistable.
func IsPersistable(v any) bool {
	p, ok := v.(Persistable)
	return ok && !isNil(p)
}
