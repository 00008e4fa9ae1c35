// Copyright 2025 Tamás Gulácsi.
//
// SPDX-License-Identifier: Apache-2.0

package ooxml

import (
	"bytes"
	"encoding/xml"
	"strings"
)

// EventKind tags the variants of Event.
type EventKind uint8

const (
	// StartEvent is an opening tag; Empty is set for self-closing elements,
	// in which case no matching EndEvent follows.
	StartEvent EventKind = iota + 1
	// EndEvent is a closing tag.
	EndEvent
	// TextEvent is character data (unescaped).
	TextEvent
	// CommentEvent is a <!-- --> comment.
	CommentEvent
	// ProcInstEvent is a processing instruction, including the XML declaration.
	ProcInstEvent
	// DirectiveEvent is a <!DOCTYPE ...>-style directive.
	DirectiveEvent
)

// Event is one parsed XML event.
type Event struct {
	Kind   EventKind
	Name   xml.Name   // StartEvent, EndEvent
	Attr   []xml.Attr // StartEvent
	Empty  bool       // StartEvent: the element was self-closing
	Text   []byte     // TextEvent, CommentEvent, DirectiveEvent; ProcInstEvent body
	Target string     // ProcInstEvent
}

// Scanner is a pull parser over an XML document. It reports self-closing
// elements as a single StartEvent with Empty set, so that writers can
// round-trip the document shape.
//
// Names are kept raw (prefixes are not resolved to namespace URLs).
type Scanner struct {
	d       *xml.Decoder
	pending xml.Token
	err     error
}

// NewScanner returns a Scanner over the given document.
func NewScanner(doc []byte) *Scanner {
	return &Scanner{d: xml.NewDecoder(bytes.NewReader(doc))}
}

// Next returns the next event, or io.EOF after the last one.
func (sc *Scanner) Next() (Event, error) {
	tok := sc.pending
	sc.pending = nil
	if tok == nil {
		if sc.err != nil {
			err := sc.err
			sc.err = nil
			return Event{}, err
		}
		t, err := sc.d.RawToken()
		if err != nil {
			return Event{}, err
		}
		tok = xml.CopyToken(t)
	}
	start, ok := tok.(xml.StartElement)
	if !ok {
		return tokenEvent(tok), nil
	}

	// A self-closing element makes the decoder synthesize an EndElement
	// without consuming input; detect it by the unchanged offset. The
	// lookahead runs for buffered start tags too, which have not moved
	// the offset since they were read.
	ev := Event{Kind: StartEvent, Name: start.Name, Attr: start.Attr}
	off := sc.d.InputOffset()
	next, err := sc.d.RawToken()
	if err != nil {
		sc.err = err
		return ev, nil
	}
	if end, ok := next.(xml.EndElement); ok &&
		sc.d.InputOffset() == off && end.Name == start.Name {
		ev.Empty = true
		return ev, nil
	}
	sc.pending = xml.CopyToken(next)
	return ev, nil
}

func tokenEvent(tok xml.Token) Event {
	switch t := tok.(type) {
	case xml.StartElement:
		return Event{Kind: StartEvent, Name: t.Name, Attr: t.Attr}
	case xml.EndElement:
		return Event{Kind: EndEvent, Name: t.Name}
	case xml.CharData:
		return Event{Kind: TextEvent, Text: t}
	case xml.Comment:
		return Event{Kind: CommentEvent, Text: t}
	case xml.ProcInst:
		return Event{Kind: ProcInstEvent, Target: t.Target, Text: t.Inst}
	case xml.Directive:
		return Event{Kind: DirectiveEvent, Text: t}
	}
	return Event{}
}

// Attr returns the value of the named attribute. Prefixed names
// ("r:id") match on both prefix and local part.
func Attr(attrs []xml.Attr, name string) (string, bool) {
	space, local := "", name
	if i := strings.IndexByte(name, ':'); i >= 0 {
		space, local = name[:i], name[i+1:]
	}
	for _, a := range attrs {
		if a.Name.Space == space && a.Name.Local == local {
			return a.Value, true
		}
	}
	return "", false
}

// SetAttr replaces the named attribute's value, appending it if absent.
func SetAttr(attrs []xml.Attr, name, value string) []xml.Attr {
	for i, a := range attrs {
		if a.Name.Space == "" && a.Name.Local == name {
			attrs[i].Value = value
			return attrs
		}
	}
	return append(attrs, A(name, value))
}

// A constructs an unprefixed attribute.
func A(name, value string) xml.Attr {
	return xml.Attr{Name: xml.Name{Local: name}, Value: value}
}

// Emitter writes XML events, escaping text and attribute values uniformly.
// Whitespace in character data is kept literal so that indented documents
// round-trip unchanged.
type Emitter struct {
	buf bytes.Buffer
}

// Bytes returns the emitted document.
func (e *Emitter) Bytes() []byte { return e.buf.Bytes() }

// Event writes a scanned event back out.
func (e *Emitter) Event(ev Event) {
	switch ev.Kind {
	case StartEvent:
		e.start(ev.Name, ev.Attr, ev.Empty)
	case EndEvent:
		e.end(ev.Name)
	case TextEvent:
		e.escapeText(ev.Text)
	case CommentEvent:
		e.buf.WriteString("<!--")
		e.buf.Write(ev.Text)
		e.buf.WriteString("-->")
	case ProcInstEvent:
		e.buf.WriteString("<?")
		e.buf.WriteString(ev.Target)
		if len(ev.Text) != 0 {
			e.buf.WriteByte(' ')
			e.buf.Write(ev.Text)
		}
		e.buf.WriteString("?>")
	case DirectiveEvent:
		e.buf.WriteString("<!")
		e.buf.Write(ev.Text)
		e.buf.WriteByte('>')
	}
}

// Open writes an opening tag.
func (e *Emitter) Open(name string, attrs ...xml.Attr) {
	e.start(xml.Name{Local: name}, attrs, false)
}

// Empty writes a self-closing element.
func (e *Emitter) Empty(name string, attrs ...xml.Attr) {
	e.start(xml.Name{Local: name}, attrs, true)
}

// Close writes a closing tag.
func (e *Emitter) Close(name string) {
	e.end(xml.Name{Local: name})
}

// Text writes escaped character data.
func (e *Emitter) Text(s string) {
	e.escapeText([]byte(s))
}

// Raw writes pre-serialized XML verbatim.
func (e *Emitter) Raw(s string) {
	e.buf.WriteString(s)
}

func (e *Emitter) start(name xml.Name, attrs []xml.Attr, empty bool) {
	e.buf.WriteByte('<')
	e.writeName(name)
	for _, a := range attrs {
		e.buf.WriteByte(' ')
		e.writeName(a.Name)
		e.buf.WriteString(`="`)
		e.escapeAttr(a.Value)
		e.buf.WriteByte('"')
	}
	if empty {
		e.buf.WriteByte('/')
	}
	e.buf.WriteByte('>')
}

func (e *Emitter) end(name xml.Name) {
	e.buf.WriteString("</")
	e.writeName(name)
	e.buf.WriteByte('>')
}

func (e *Emitter) writeName(n xml.Name) {
	if n.Space != "" {
		e.buf.WriteString(n.Space)
		e.buf.WriteByte(':')
	}
	e.buf.WriteString(n.Local)
}

func (e *Emitter) escapeText(s []byte) {
	for _, c := range s {
		switch c {
		case '&':
			e.buf.WriteString("&amp;")
		case '<':
			e.buf.WriteString("&lt;")
		case '>':
			e.buf.WriteString("&gt;")
		default:
			e.buf.WriteByte(c)
		}
	}
}

func (e *Emitter) escapeAttr(s string) {
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '&':
			e.buf.WriteString("&amp;")
		case '<':
			e.buf.WriteString("&lt;")
		case '>':
			e.buf.WriteString("&gt;")
		case '"':
			e.buf.WriteString("&quot;")
		default:
			e.buf.WriteByte(s[i])
		}
	}
}
