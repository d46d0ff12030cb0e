// Package xmldoc loads an XML document into a navigable element tree and
// writes back edited leaf values without disturbing any other byte of the
// original input.
package xmldoc

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
)

// Document is an in-memory XML document. It is not safe for concurrent use;
// load one Document per request.
type Document struct {
	src      *source
	raw      []byte
	root     *Element
	elements []*Element
}

// Element is one element of a Document
type Element struct {
	doc      *Document
	name     xml.Name
	attrs    []xml.Attr
	parent   *Element
	children []*Element

	index int // position in doc.elements
	last  int // index of the last descendant, == index for childless elements

	tagStart     int
	tagEnd       int
	contentStart int
	contentEnd   int
	selfClosing  bool

	text    string
	pending *string
}

// Load parses raw XML bytes. The returned error is a *ParseError when the
// input is not well-formed or its encoding cannot be decoded.
func Load(raw []byte) (*Document, error) {
	src, err := decodeSource(raw)
	if err != nil {
		return nil, &ParseError{Offset: 0, Err: err}
	}

	doc := &Document{
		src: src,
		raw: append([]byte(nil), raw...),
	}
	if err := doc.parse(); err != nil {
		return nil, err
	}
	return doc, nil
}

func (d *Document) parse() error {
	text := d.src.text
	dec := xml.NewDecoder(bytes.NewReader(text))
	dec.Strict = true
	// The buffer is already UTF-8; the declaration is kept only for round-tripping.
	dec.CharsetReader = func(_ string, input io.Reader) (io.Reader, error) {
		return input, nil
	}

	var stack []*Element
	var textBuf []*strings.Builder

	for {
		start := dec.InputOffset()
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return &ParseError{Offset: start, Err: err}
		}

		switch t := tok.(type) {
		case xml.StartElement:
			end := int(dec.InputOffset())
			if len(stack) == 0 && d.root != nil {
				return &ParseError{Offset: start, Err: errors.New("multiple root elements")}
			}

			el := &Element{
				doc:          d,
				name:         t.Name,
				attrs:        append([]xml.Attr(nil), t.Attr...),
				index:        len(d.elements),
				tagStart:     int(start),
				tagEnd:       end,
				contentStart: end,
				selfClosing:  end-int(start) >= 2 && text[end-2] == '/' && text[end-1] == '>',
			}
			el.last = el.index
			d.elements = append(d.elements, el)

			if len(stack) == 0 {
				d.root = el
			} else {
				parent := stack[len(stack)-1]
				el.parent = parent
				parent.children = append(parent.children, el)
			}
			stack = append(stack, el)
			textBuf = append(textBuf, &strings.Builder{})

		case xml.EndElement:
			el := stack[len(stack)-1]
			el.contentEnd = int(start)
			el.last = len(d.elements) - 1
			el.text = textBuf[len(textBuf)-1].String()
			stack = stack[:len(stack)-1]
			textBuf = textBuf[:len(textBuf)-1]

		case xml.CharData:
			if len(stack) > 0 {
				textBuf[len(textBuf)-1].Write(t)
			} else if len(bytes.TrimSpace(t)) > 0 {
				return &ParseError{Offset: start, Err: errors.New("character data outside root element")}
			}
		}
	}

	if d.root == nil {
		return &ParseError{Offset: dec.InputOffset(), Err: errors.New("no root element")}
	}
	return nil
}

// Root returns the document element
func (d *Document) Root() *Element {
	return d.root
}

// Encoding returns the encoding label declared by the document, UTF-8 when absent
func (d *Document) Encoding() string {
	return d.src.label
}

// FindAll returns every element with the given local name, in document order,
// regardless of nesting depth or namespace prefix
func (d *Document) FindAll(tag string) []*Element {
	return matchLocal(d.elements, tag)
}

// Find returns the first element with the given local name or nil
func (d *Document) Find(tag string) *Element {
	for _, el := range d.elements {
		if el.name.Local == tag {
			return el
		}
	}
	return nil
}

// FindByAttr returns every element carrying the attribute with the given
// local name and value, in document order
func (d *Document) FindByAttr(attr, value string) []*Element {
	var out []*Element
	for _, el := range d.elements {
		if v, ok := el.Attr(attr); ok && v == value {
			out = append(out, el)
		}
	}
	return out
}

// Modified reports whether any element has a pending text edit
func (d *Document) Modified() bool {
	for _, el := range d.elements {
		if el.edited() {
			return true
		}
	}
	return false
}

// Serialize returns the document bytes with pending edits applied. Without
// edits the original input is returned byte for byte.
func (d *Document) Serialize() ([]byte, error) {
	var edited []*Element
	for _, el := range d.elements {
		if el.edited() {
			edited = append(edited, el)
		}
	}
	if len(edited) == 0 {
		return append([]byte(nil), d.raw...), nil
	}

	sort.Slice(edited, func(i, j int) bool {
		return edited[i].tagStart < edited[j].tagStart
	})

	text := d.src.text
	var out bytes.Buffer
	out.Grow(len(text) + 64)
	cursor := 0
	for _, el := range edited {
		if el.selfClosing {
			out.Write(text[cursor:el.tagStart])
			out.WriteString(el.expandedTag(*el.pending))
			cursor = el.tagEnd
			continue
		}
		out.Write(text[cursor:el.contentStart])
		out.WriteString(el.replacementContent(*el.pending))
		cursor = el.contentEnd
	}
	out.Write(text[cursor:])

	return d.src.encode(out.Bytes())
}

// Name returns the element's local name
func (e *Element) Name() string {
	return e.name.Local
}

// Attr returns the value of the attribute with the given local name
func (e *Element) Attr(name string) (string, bool) {
	for _, a := range e.attrs {
		if a.Name.Local == name {
			return a.Value, true
		}
	}
	return "", false
}

// Position returns the element's rank in document order
func (e *Element) Position() int {
	return e.index
}

// Parent returns the enclosing element, nil for the root
func (e *Element) Parent() *Element {
	return e.parent
}

// Children returns the direct child elements
func (e *Element) Children() []*Element {
	return e.children
}

// IsLeaf reports whether the element has no child elements
func (e *Element) IsLeaf() bool {
	return len(e.children) == 0
}

// FindAll returns every descendant with the given local name in document order
func (e *Element) FindAll(tag string) []*Element {
	return matchLocal(e.doc.elements[e.index+1:e.last+1], tag)
}

// Find returns the first descendant with the given local name or nil
func (e *Element) Find(tag string) *Element {
	for _, el := range e.doc.elements[e.index+1 : e.last+1] {
		if el.name.Local == tag {
			return el
		}
	}
	return nil
}

// Child returns the first direct child with the given local name or nil
func (e *Element) Child(tag string) *Element {
	for _, c := range e.children {
		if c.name.Local == tag {
			return c
		}
	}
	return nil
}

// HasAncestor reports whether an element named tag encloses e, looking no
// further up than stop (exclusive). A nil stop searches up to the root.
func (e *Element) HasAncestor(tag string, stop *Element) bool {
	for p := e.parent; p != nil && p != stop; p = p.parent {
		if p.name.Local == tag {
			return true
		}
	}
	return false
}

// Text returns the element's character data with surrounding whitespace removed
func (e *Element) Text() string {
	if e.pending != nil {
		return *e.pending
	}
	return strings.TrimSpace(e.text)
}

// SetText replaces the value of a leaf element. Markup around the value,
// including whitespace padding inside the element, is preserved.
func (e *Element) SetText(value string) error {
	if !e.IsLeaf() {
		return fmt.Errorf("%w: <%s>", ErrNotLeaf, e.name.Local)
	}
	if value == strings.TrimSpace(e.text) && e.pending == nil {
		return nil
	}
	v := value
	e.pending = &v
	return nil
}

func (e *Element) edited() bool {
	return e.pending != nil && *e.pending != strings.TrimSpace(e.text)
}

func (e *Element) replacementContent(value string) string {
	content := string(e.doc.src.text[e.contentStart:e.contentEnd])
	trimmed := strings.TrimSpace(content)
	var lead, trail string
	if trimmed != "" {
		i := strings.Index(content, trimmed)
		lead = content[:i]
		trail = content[i+len(trimmed):]
	}
	return lead + escapeText(value) + trail
}

func (e *Element) expandedTag(value string) string {
	tag := string(e.doc.src.text[e.tagStart:e.tagEnd])
	open := strings.TrimRight(strings.TrimSuffix(tag, "/>"), " \t\r\n") + ">"
	return open + escapeText(value) + "</" + rawName(tag) + ">"
}

// rawName returns the qualified name exactly as written in a start tag
func rawName(tag string) string {
	name := strings.TrimPrefix(tag, "<")
	if i := strings.IndexAny(name, " \t\r\n/>"); i >= 0 {
		name = name[:i]
	}
	return name
}

func escapeText(s string) string {
	var buf bytes.Buffer
	_ = xml.EscapeText(&buf, []byte(s))
	return buf.String()
}

func matchLocal(elements []*Element, tag string) []*Element {
	var out []*Element
	for _, el := range elements {
		if el.name.Local == tag {
			out = append(out, el)
		}
	}
	return out
}
