package codec

import (
	"strings"
)

const (
	cdataStart = "<![CDATA["
	cdataEnd   = "]]>"
)

// EscapeJSON escapes s for use inside a JSON string literal: quote,
// backslash, and control characters. Markup characters are left alone.
func EscapeJSON(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch r {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		case '\b':
			b.WriteString(`\b`)
		case '\f':
			b.WriteString(`\f`)
		default:
			if r < 0x20 {
				b.WriteString(`\u00`)
				b.WriteByte("0123456789abcdef"[r>>4])
				b.WriteByte("0123456789abcdef"[r&0xf])
				continue
			}
			b.WriteRune(r)
		}
	}
	return b.String()
}

// QuoteJSON returns s as a quoted JSON string literal.
func QuoteJSON(s string) string {
	return `"` + EscapeJSON(s) + `"`
}

// NeedsXMLEscape reports whether s contains markup-significant characters.
func NeedsXMLEscape(s string) bool {
	return strings.ContainsAny(s, "<>&")
}

// IsCDATA reports whether s is already wrapped in a single CDATA section.
func IsCDATA(s string) bool {
	return strings.HasPrefix(s, cdataStart) && strings.HasSuffix(s, cdataEnd) &&
		!strings.Contains(s[len(cdataStart):len(s)-len(cdataEnd)], cdataEnd)
}

// xmlCR is a carriage return as a character reference. XML parsers turn a
// literal CR, inside CDATA too, into a line feed; the reference is kept.
const xmlCR = "&#xD;"

// EscapeXML wraps s in a CDATA section when it contains markup-significant
// characters. A value that is already CDATA-wrapped is returned unchanged.
// An embedded "]]>" is split across two sections. Carriage returns are
// written as character references between sections.
func EscapeXML(s string) string {
	if IsCDATA(s) {
		return s
	}
	if !strings.Contains(s, "\r") {
		return wrapCDATA(s)
	}
	parts := strings.Split(s, "\r")
	var b strings.Builder
	b.Grow(len(s) + len(parts)*len(xmlCR))
	for i, part := range parts {
		if i > 0 {
			b.WriteString(xmlCR)
		}
		b.WriteString(wrapCDATA(part))
	}
	return b.String()
}

func wrapCDATA(s string) string {
	if !NeedsXMLEscape(s) {
		return s
	}
	return cdataStart + strings.ReplaceAll(s, cdataEnd, "]]"+cdataEnd+cdataStart+">") + cdataEnd
}

var xmlAttrEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&apos;",
)

func escapeXMLAttr(s string) string {
	return xmlAttrEscaper.Replace(s)
}
