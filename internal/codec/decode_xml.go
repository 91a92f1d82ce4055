package codec

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/roach88/persistor/internal/model"
)

// parseTag is the decoder state for one open element.
type parseTag struct {
	name      string
	typeName  string
	container model.Persistable
	ignored   bool
	array     bool
}

// xmlDecoder drives one streaming decode. The tag stack and value buffer
// live here, not on any shared object.
type xmlDecoder struct {
	*decodeState
	stack []*parseTag
	value strings.Builder
	root  model.Persistable
	depth int
}

// DecodeXML reconstructs a Persistable from a markup document using a
// streaming tag-event parse.
//
// The first element whose type name resolves becomes the root. Elements
// whose type cannot be resolved are ignored together with their subtree and
// reported as warnings. Tag-name mismatches are warnings too; only malformed
// markup or a document without any resolvable element fails.
func DecodeXML(r io.Reader, opts DecodeOptions) (*Decoded, error) {
	return decodeXML(r, newDecodeState(opts), 0)
}

// maxFragmentDepth bounds recursive decoding of legacy array fragments.
const maxFragmentDepth = 8

func decodeXML(r io.Reader, state *decodeState, depth int) (*Decoded, error) {
	d := &xmlDecoder{decodeState: state, depth: depth}
	dec := xml.NewDecoder(r)

	for {
		tok, err := dec.RawToken()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, state.fatal("malformed markup", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			d.open(t)
		case xml.CharData:
			d.text(t)
		case xml.EndElement:
			d.close(t)
		}
	}

	for _, tag := range d.stack {
		d.warn("element was not closed", "tag", tag.name)
	}
	if d.root == nil {
		return nil, state.fatal("document contains no persistable element", nil)
	}
	state.logger.Debug("decoded XML document", "resource", state.opts.Resource, "warnings", len(state.warnings))
	return &Decoded{Root: d.root, Warnings: state.warnings, Present: state.present}, nil
}

func (d *xmlDecoder) top() *parseTag {
	if len(d.stack) == 0 {
		return nil
	}
	return d.stack[len(d.stack)-1]
}

func (d *xmlDecoder) open(el xml.StartElement) {
	d.value.Reset()

	tag := &parseTag{name: el.Name.Local}
	var pkg string
	hasPkg := false
	for _, attr := range el.Attr {
		switch attr.Name.Local {
		case ClassNameAttr:
			tag.typeName = attr.Value
		case PackageAttr:
			pkg, hasPkg = attr.Value, true
		case ArrayAttr:
			tag.array = strings.EqualFold(attr.Value, "true")
		}
	}
	if tag.typeName == "" && hasPkg {
		if pkg == "" {
			tag.typeName = tag.name
		} else {
			tag.typeName = pkg + "." + tag.name
		}
	}

	parent := d.top()
	switch {
	case parent != nil && parent.ignored:
		tag.ignored = true
	case tag.typeName != "":
		p, err := d.registry.New(tag.typeName)
		if err != nil {
			d.warn("cannot resolve type, ignoring element and its children", "tag", tag.name, "error", err)
			tag.ignored = true
			break
		}
		if d.root == nil {
			d.root = p
		}
		tag.container = p
	case parent == nil || parent.container == nil:
		d.warn("element has no persistable parent, ignoring", "tag", tag.name)
		tag.ignored = true
	default:
		tag.ignored = d.ignored(parent.container, parent.typeName, tag.name)
	}

	d.stack = append(d.stack, tag)
}

func (d *xmlDecoder) text(data xml.CharData) {
	if tag := d.top(); tag != nil && !tag.ignored {
		d.value.Write(data)
	}
}

func (d *xmlDecoder) close(el xml.EndElement) {
	text := d.value.String()
	d.value.Reset()

	me := d.top()
	if me == nil {
		d.warn("unexpected closing tag", "tag", el.Name.Local)
		return
	}
	d.stack = d.stack[:len(d.stack)-1]

	if me.name != el.Name.Local {
		d.warn("tag name mismatch", "open", me.name, "close", el.Name.Local)
	}
	if me.ignored {
		return
	}
	parent := d.top()
	if parent == nil || parent.ignored || parent.container == nil {
		return
	}

	if me.container != nil {
		me.container.SetParent(parent.container)
		d.set(parent, me.name, me.container, "failed to set field")
		return
	}
	d.assignScalar(parent, me, text)
}

// set assigns value to field key of parent and records it as present.
func (d *xmlDecoder) set(parent *parseTag, key string, value any, failure string) {
	if err := model.SetField(parent.container, key, value); err != nil {
		d.warn(failure, "field", parent.name+"."+key, "error", err)
		return
	}
	d.present.mark(parent.container, key)
}

// assignScalar assigns element text to a field of parent. Array-marked
// elements parse as JSON arrays. Unmarked bracketed text that fails plain
// assignment is retried as a JSON array, then as comma-separated markup
// fragments each decoded on its own.
func (d *xmlDecoder) assignScalar(parent, me *parseTag, text string) {
	field := parent.name + "." + me.name

	if me.array {
		items, err := d.decodeJSONArrayText(parent.container, parent.typeName, me.name, text)
		if err != nil {
			d.warn("invalid array value", "field", field, "error", err)
			return
		}
		d.set(parent, me.name, items, "failed to set array field")
		return
	}

	err := model.SetField(parent.container, me.name, text)
	if err == nil {
		d.present.mark(parent.container, me.name)
		return
	}
	d.warn("failed to set field", "field", field, "error", err)

	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "[") || !strings.HasSuffix(trimmed, "]") {
		return
	}
	if items, jerr := d.decodeJSONArrayText(parent.container, parent.typeName, me.name, trimmed); jerr == nil {
		d.set(parent, me.name, items, "failed to set array field")
		return
	}

	items, ferr := d.decodeFragments(parent.container, trimmed[1:len(trimmed)-1])
	if ferr != nil {
		d.warn("cannot decode array fragments", "field", field, "error", ferr)
		return
	}
	d.set(parent, me.name, items, "failed to set array field")
}

func (d *xmlDecoder) decodeFragments(parent model.Persistable, body string) ([]any, error) {
	if d.depth >= maxFragmentDepth {
		return nil, fmt.Errorf("fragment nesting exceeds %d levels", maxFragmentDepth)
	}
	fragments := splitMarkupList(body)
	items := make([]any, 0, len(fragments))
	for _, fragment := range fragments {
		sub := &decodeState{opts: d.opts, registry: d.registry, logger: d.logger, present: d.present}
		decoded, err := decodeXML(strings.NewReader(fragment), sub, d.depth+1)
		d.warnings = append(d.warnings, sub.warnings...)
		if err != nil {
			return nil, err
		}
		decoded.Root.SetParent(parent)
		items = append(items, decoded.Root)
	}
	return items, nil
}

// splitMarkupList splits a comma-separated list of markup fragments at
// commas that sit outside any element or tag.
func splitMarkupList(s string) []string {
	var (
		parts []string
		start int
		depth int
	)
	for i := 0; i < len(s); i++ {
		switch {
		case strings.HasPrefix(s[i:], cdataStart):
			end := strings.Index(s[i:], cdataEnd)
			if end < 0 {
				i = len(s)
				continue
			}
			i += end + len(cdataEnd) - 1
		case s[i] == '<':
			end := strings.IndexByte(s[i:], '>')
			if end < 0 {
				i = len(s)
				continue
			}
			tag := s[i : i+end+1]
			switch {
			case strings.HasPrefix(tag, "</"):
				depth--
			case strings.HasPrefix(tag, "<?"), strings.HasPrefix(tag, "<!"), strings.HasSuffix(tag, "/>"):
			default:
				depth++
			}
			i += end
		case s[i] == ',' && depth == 0:
			parts = appendFragment(parts, s[start:i])
			start = i + 1
		}
	}
	return appendFragment(parts, s[start:])
}

func appendFragment(parts []string, fragment string) []string {
	if f := strings.TrimSpace(fragment); f != "" {
		return append(parts, f)
	}
	return parts
}
