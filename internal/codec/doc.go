// Package codec encodes Persistable trees to hierarchical text and decodes
// them back.
//
// # Encoding
//
// Encoder is a single depth-first driver. A Format supplies the tokens for
// one grammar (JSONFormat, XMLFormat, FlatFormat); the walk, the skip rules
// and the separator decisions are shared. Each node step reports an Outcome
// so that skipped children never leave a dangling separator: separators are
// decided over the list of emitted children, not over declared positions.
//
// Value rules, identical for every format:
//
//   - strings are escaped by the format and quoted where it requires
//   - numbers and booleans are written verbatim
//   - nested Persistables become containers tagged with their field key
//   - slices and arrays use the JSON sub-grammar "[a, b, c]"
//   - raw maps collapse to a canonical JSON string scalar
//
// In XML, array-valued fields carry array="true" so the decoder never has
// to guess whether bracketed text is a list.
//
// # Decoding
//
// DecodeJSON is a tree-walk over a parsed document; DecodeXML is a
// streaming tag-event decoder with an explicit stack of open tags. Both
// resolve types through a model.Registry, relink parent references, and
// degrade below the root: unresolved types, failed assignments and tag
// mismatches become warnings on the returned Decoded value.
//
// # Flattening
//
// Flatten turns a tree into dotted-path entries for verification. ParseFlat
// reads the flat "key=value" grammar written by FlatFormat.
package codec
