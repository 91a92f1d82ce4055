package codec

import (
	"fmt"
	"strings"

	"github.com/roach88/persistor/internal/model"
)

// Format supplies the tokens the encoder emits for one document grammar.
// The tree walk itself lives in Encoder; a Format only decides spelling.
type Format interface {
	// Name is the file format this grammar writes.
	Name() model.FileFormat

	// Header and Trailer wrap the whole document.
	Header() string
	Trailer() string

	// ContainerBegin opens a Persistable. needLeadingName is false when the
	// container is an element of an array. hasChildren reports whether at
	// least one child will be emitted.
	ContainerBegin(tag, typeName string, needLeadingName, hasChildren bool) string

	// ContainerEnd closes a Persistable.
	ContainerEnd(tag string) string

	// ChildBegin renders a scalar or array child. path holds the tags of
	// the enclosing containers, root first. value is already escaped.
	ChildBegin(path []string, key, value string, array bool) string

	// ChildEnd follows every emitted child; last is true for the final
	// emitted child of a container.
	ChildEnd(last bool) string

	// Escape prepares a string scalar for this grammar.
	Escape(s string) string

	// QuoteStrings reports whether escaped string scalars are quoted.
	QuoteStrings() bool
}

// ForFileFormat returns the grammar for a file format.
func ForFileFormat(f model.FileFormat) Format {
	switch f {
	case model.FormatXML:
		return XMLFormat{}
	case model.FormatProperties:
		return FlatFormat{}
	default:
		return JSONFormat{}
	}
}

// JSONFormat writes
//
//	{
//	"Response" : {
//	"$classname" : "rest.Response",
//	"StatusCode" : "200"
//	}
//	}
type JSONFormat struct{}

// ClassNameKey is the JSON property carrying a container's type name.
const ClassNameKey = "$classname"

func (JSONFormat) Name() model.FileFormat { return model.FormatJSON }
func (JSONFormat) Header() string         { return "{\n" }
func (JSONFormat) Trailer() string        { return "\n}\n" }

func (JSONFormat) ContainerBegin(tag, typeName string, needLeadingName, hasChildren bool) string {
	var b strings.Builder
	if needLeadingName {
		b.WriteString(QuoteJSON(tag))
		b.WriteString(" : ")
	}
	b.WriteString("{\n")
	b.WriteString(QuoteJSON(ClassNameKey))
	b.WriteString(" : ")
	b.WriteString(QuoteJSON(typeName))
	if hasChildren {
		b.WriteString(",")
	}
	b.WriteString("\n")
	return b.String()
}

func (JSONFormat) ContainerEnd(string) string { return "}" }

func (JSONFormat) ChildBegin(_ []string, key, value string, _ bool) string {
	return QuoteJSON(key) + " : " + value
}

func (JSONFormat) ChildEnd(last bool) string {
	if last {
		return "\n"
	}
	return ",\n"
}

func (JSONFormat) Escape(s string) string { return EscapeJSON(s) }
func (JSONFormat) QuoteStrings() bool     { return true }

// XMLFormat writes
//
//	<?xml version="1.0" encoding="UTF-8"?>
//	<Response classname="rest.Response">
//	<StatusCode>200</StatusCode>
//	<Tags array="true">["a", "b"]</Tags>
//	</Response>
type XMLFormat struct{}

// XML attribute names.
const (
	ClassNameAttr = "classname"
	PackageAttr   = "package"
	ArrayAttr     = "array"
)

func (XMLFormat) Name() model.FileFormat { return model.FormatXML }
func (XMLFormat) Header() string         { return "<?xml version=\"1.0\" encoding=\"UTF-8\"?>\n" }
func (XMLFormat) Trailer() string        { return "\n" }

func (XMLFormat) ContainerBegin(tag, typeName string, _, _ bool) string {
	return fmt.Sprintf("<%s %s=\"%s\">\n", tag, ClassNameAttr, escapeXMLAttr(typeName))
}

func (XMLFormat) ContainerEnd(tag string) string { return "</" + tag + ">" }

func (XMLFormat) ChildBegin(_ []string, key, value string, array bool) string {
	if array {
		return fmt.Sprintf("<%s %s=\"true\">%s</%s>", key, ArrayAttr, value, key)
	}
	return "<" + key + ">" + value + "</" + key + ">"
}

func (XMLFormat) ChildEnd(bool) string   { return "\n" }
func (XMLFormat) Escape(s string) string { return EscapeXML(s) }
func (XMLFormat) QuoteStrings() bool     { return false }

// FlatFormat writes one "path.key=value" line per scalar. Containers emit
// no tokens of their own.
type FlatFormat struct{}

func (FlatFormat) Name() model.FileFormat                          { return model.FormatProperties }
func (FlatFormat) Header() string                                  { return "" }
func (FlatFormat) Trailer() string                                 { return "\n" }
func (FlatFormat) ContainerBegin(string, string, bool, bool) string { return "" }
func (FlatFormat) ContainerEnd(string) string                      { return "" }

func (FlatFormat) ChildBegin(path []string, key, value string, _ bool) string {
	return FlatKey(path, key) + "=" + value
}

// ChildEnd separates lines; the line break after the last child comes from
// the enclosing container or the trailer.
func (FlatFormat) ChildEnd(last bool) string {
	if last {
		return ""
	}
	return "\n"
}

func (FlatFormat) Escape(s string) string { return s }
func (FlatFormat) QuoteStrings() bool     { return false }

// KeySeparator joins the segments of a flat key.
const KeySeparator = "."

// FlatKey joins path and key into a dotted flat key.
func FlatKey(path []string, key string) string {
	if len(path) == 0 {
		return key
	}
	return strings.Join(path, KeySeparator) + KeySeparator + key
}
