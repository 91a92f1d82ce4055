package model

import (
	"fmt"
	"reflect"
	"strings"
)

// Equal reports whether a and b have the same type, enabled state and
// contents. Nested objects are compared recursively; parents are ignored.
func Equal(a, b Persistable) bool {
	if isNil(a) || isNil(b) {
		return isNil(a) && isNil(b)
	}
	if reflect.TypeOf(a) != reflect.TypeOf(b) || a.Enabled() != b.Enabled() {
		return false
	}
	ca, cb := Contents(a), Contents(b)
	if len(ca) != len(cb) {
		return false
	}
	for i := range ca {
		if ca[i].Key != cb[i].Key || !valuesEqual(ca[i].Value, cb[i].Value) {
			return false
		}
	}
	return true
}

func valuesEqual(x, y any) bool {
	px, okx := x.(Persistable)
	py, oky := y.(Persistable)
	if okx || oky {
		return okx && oky && Equal(px, py)
	}
	vx, vy := reflect.ValueOf(x), reflect.ValueOf(y)
	if vx.IsValid() && vy.IsValid() && vx.Kind() == reflect.Slice && vy.Kind() == reflect.Slice {
		if vx.Type() != vy.Type() || vx.Len() != vy.Len() {
			return false
		}
		for i := 0; i < vx.Len(); i++ {
			if !valuesEqual(vx.Index(i).Interface(), vy.Index(i).Interface()) {
				return false
			}
		}
		return true
	}
	return reflect.DeepEqual(x, y)
}

// Dump renders p as an indented tree of "key: value" lines. Scalar values
// longer than threshold runes are truncated; threshold <= 0 disables
// truncation.
func Dump(p Persistable, threshold int) string {
	var b strings.Builder
	dump(&b, p, SimpleName(p), 0, threshold)
	return b.String()
}

func dump(b *strings.Builder, p Persistable, label string, depth, threshold int) {
	indent := strings.Repeat("  ", depth)
	if isNil(p) {
		fmt.Fprintf(b, "%s%s: %s\n", indent, label, Unknown)
		return
	}
	state := ""
	if !p.Enabled() {
		state = " (disabled)"
	}
	fmt.Fprintf(b, "%s%s%s\n", indent, label, state)
	for _, e := range Contents(p) {
		dumpValue(b, e.Key, e.Value, depth+1, threshold)
	}
}

func dumpValue(b *strings.Builder, key string, value any, depth, threshold int) {
	if child, ok := value.(Persistable); ok {
		dump(b, child, key, depth, threshold)
		return
	}
	rv := reflect.ValueOf(value)
	if rv.IsValid() && (rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array) && rv.Type().Elem().Implements(persistableIf) {
		for i := 0; i < rv.Len(); i++ {
			dumpValue(b, fmt.Sprintf("%s[%d]", key, i), rv.Index(i).Interface(), depth, threshold)
		}
		return
	}
	fmt.Fprintf(b, "%s%s: %s\n", strings.Repeat("  ", depth), key, truncate(fmt.Sprint(value), threshold))
}

func truncate(s string, threshold int) string {
	if threshold <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= threshold {
		return s
	}
	return string(runes[:threshold]) + "..."
}
