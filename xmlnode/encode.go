// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package xmlnode

import (
	"encoding/xml"
	"strings"

	"mellium.im/xmlstream"
)

// TokenReader satisfies the xmlstream.Marshaler interface.
func (e *Element) TokenReader() xml.TokenReader {
	return e.tokenReader("")
}

// TokenReaderIn is like TokenReader except that the element is encoded as if
// it were a child of an element whose default namespace is space.
// Elements in the default namespace are written without an xmlns attribute.
func (e *Element) TokenReaderIn(space string) xml.TokenReader {
	return e.tokenReader(space)
}

func (e *Element) tokenReader(inherited string) xml.TokenReader {
	start := xml.StartElement{
		Name: xml.Name{Local: e.Name.Local},
		Attr: e.Attrs(),
	}
	switch {
	case e.Name.Space == inherited:
	case e.Name.Space == "":
		start.Attr = append(start.Attr, xml.Attr{Name: xml.Name{Local: "xmlns"}})
	default:
		start.Name.Space = e.Name.Space
	}

	inner := make([]xml.TokenReader, 0, len(e.children)+1)
	if e.text != "" {
		inner = append(inner, xmlstream.Token(xml.CharData(e.text)))
	}
	for _, c := range e.children {
		inner = append(inner, c.tokenReader(e.Name.Space))
	}
	return xmlstream.Wrap(xmlstream.MultiReader(inner...), start)
}

// WriteXML satisfies the xmlstream.WriterTo interface.
// It is like MarshalXML except it writes tokens to w.
func (e *Element) WriteXML(w xmlstream.TokenWriter) (int, error) {
	return xmlstream.Copy(w, e.TokenReader())
}

// MarshalXML satisfies the xml.Marshaler interface.
func (e *Element) MarshalXML(enc *xml.Encoder, _ xml.StartElement) error {
	_, err := e.WriteXML(enc)
	return err
}

// String returns the serialized form of e.
func (e *Element) String() string {
	var b strings.Builder
	enc := xml.NewEncoder(&b)
	if _, err := e.WriteXML(enc); err != nil {
		return ""
	}
	if err := enc.Flush(); err != nil {
		return ""
	}
	return b.String()
}
