// Package model defines the persistable object graph.
//
// A Persistable is a pointer to a struct that embeds Base. Its field map is
// derived from `persist` struct tags:
//
//	type Response struct {
//		model.Base
//		StatusCode int               `persist:"StatusCode"`
//		Headers    map[string]string `persist:"Headers"`
//		Internal   string            `persist:"-"`
//	}
//
// Exported fields without a tag persist under their Go field name. Contents
// are produced in declaration order; fields decoded from a document that the
// type does not declare are kept as extras and follow the declared fields.
//
// # Invariants
//
//   - Contents never carry nil. A nil pointer, interface, map or slice is
//     reported as the Unknown sentinel, and decoding Unknown into a non-string
//     field leaves the zero value.
//   - The parent reference is set only by decoders and is never traversed
//     when encoding.
//   - Types are resolved by name through a Registry; there is no dynamic
//     class loading.
//
// The package also carries the error taxonomy shared by the codec, persist
// and verify packages.
package model
