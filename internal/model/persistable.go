package model

import "strings"

// Unknown is the value reported for a field whose source value is nil.
const Unknown = "UNKNOWN"

// Persistable is an object that can be encoded to and decoded from a
// hierarchical document. Implementations embed Base.
type Persistable interface {
	Enabled() bool
	SetEnabled(enabled bool)
	Parent() Persistable
	SetParent(parent Persistable)
}

// ContentsProvider lets a type supply its own ordered contents instead of
// the tag-derived default. Entries with nil values are skipped by encoders.
type ContentsProvider interface {
	PersistContents() []Entry
}

// FieldSetter lets a type take over assignment of decoded values. Returning
// ErrUnknownField hands the key back to the default tag-based assignment.
type FieldSetter interface {
	SetPersistField(key string, value any) error
}

// Entry is one (persist key, value) pair of an object's contents.
type Entry struct {
	Key   string
	Value any
}

// Base holds the state every Persistable carries. The zero value is enabled
// and parentless.
type Base struct {
	disabled bool
	parent   Persistable
	extras   []Entry
}

// Enabled reports whether the object takes part in encoding.
func (b *Base) Enabled() bool { return !b.disabled }

// SetEnabled toggles participation in encoding.
func (b *Base) SetEnabled(enabled bool) { b.disabled = !enabled }

// Parent returns the containing object set during decoding, or nil.
func (b *Base) Parent() Persistable { return b.parent }

// SetParent records the containing object.
func (b *Base) SetParent(parent Persistable) { b.parent = parent }

// Extras returns fields decoded from a document that the type does not
// declare, in the order they were seen.
func (b *Base) Extras() []Entry { return b.extras }

// PutExtra stores an undeclared field. A repeated key (compared
// case-insensitively) replaces the earlier value in place.
func (b *Base) PutExtra(key string, value any) {
	for i := range b.extras {
		if strings.EqualFold(b.extras[i].Key, key) {
			b.extras[i].Value = value
			return
		}
	}
	b.extras = append(b.extras, Entry{Key: key, Value: value})
}

// extrasHolder is satisfied by every type embedding Base.
type extrasHolder interface {
	Extras() []Entry
	PutExtra(key string, value any)
}

// Validate returns a validation error when p is nil or disabled.
func Validate(p Persistable) error {
	if isNil(p) {
		return NewValidationError("persistable object is nil")
	}
	if !p.Enabled() {
		return NewValidationError("persistable object " + SimpleName(p) + " is not enabled")
	}
	return nil
}
