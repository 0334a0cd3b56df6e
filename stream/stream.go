// Copyright 2020 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package stream

import (
	"bufio"
	"encoding/xml"
	"fmt"
	"io"

	"github.com/adhearsion/blather-sub001/internal/ns"
	"github.com/adhearsion/blather-sub001/jid"
)

// XMLHeader is an XML header like the one in encoding/xml but without a
// newline at the end.
const XMLHeader = `<?xml version="1.0" encoding="UTF-8"?>`

// CloseTag closes a stream opened with Info.Send.
const CloseTag = `</stream:stream>`

// Info contains metadata extracted from, or used to write, a stream header.
type Info struct {
	Name    xml.Name
	XMLNS   string
	To      jid.JID
	From    jid.JID
	ID      string
	Version Version
	Lang    string
}

// FromStartElement sets the data in Info from the provided StartElement.
// Any error returned is a stream Error.
func (i *Info) FromStartElement(s xml.StartElement) error {
	switch {
	case s.Name.Local != "stream":
		return BadFormat
	case s.Name.Space != NS:
		return InvalidNamespace
	}
	i.Name = s.Name
	for _, attr := range s.Attr {
		switch attr.Name {
		case xml.Name{Local: "to"}:
			if err := (&i.To).UnmarshalXMLAttr(attr); err != nil {
				return ImproperAddressing
			}
		case xml.Name{Local: "from"}:
			if err := (&i.From).UnmarshalXMLAttr(attr); err != nil {
				return ImproperAddressing
			}
		case xml.Name{Local: "id"}:
			i.ID = attr.Value
		case xml.Name{Local: "version"}:
			if err := (&i.Version).UnmarshalXMLAttr(attr); err != nil {
				return BadFormat
			}
		case xml.Name{Local: "xmlns"}:
			switch attr.Value {
			case ns.Client, ns.Server, ns.Component:
			default:
				return InvalidNamespace
			}
			i.XMLNS = attr.Value
		case xml.Name{Space: "xmlns", Local: "stream"}:
			if attr.Value != NS {
				return InvalidNamespace
			}
		case xml.Name{Space: ns.XML, Local: "lang"}:
			i.Lang = attr.Value
		}
	}
	return nil
}

// Send writes an XML declaration followed by a stream header built from i.
// A zero Version omits the version attribute, as component streams do.
//
// An xml.Encoder is not used because the stream header is never closed by
// the same encoder and the stream prefix must be preserved on the wire.
func (i Info) Send(w io.Writer) error {
	b := bufio.NewWriter(w)
	fmt.Fprint(b, XMLHeader+`<stream:stream`)
	writeAttr(b, "id", i.ID)
	if !i.To.IsZero() {
		writeAttr(b, "to", i.To.String())
	}
	if !i.From.IsZero() {
		writeAttr(b, "from", i.From.String())
	}
	if i.Version != (Version{}) {
		writeAttr(b, "version", i.Version.String())
	}
	writeAttr(b, "xml:lang", i.Lang)
	xmlns := i.XMLNS
	if xmlns == "" {
		xmlns = ns.Client
	}
	writeAttr(b, "xmlns", xmlns)
	fmt.Fprintf(b, ` xmlns:stream='%s'>`, NS)
	return b.Flush()
}

func writeAttr(b *bufio.Writer, name, value string) {
	if value == "" {
		return
	}
	b.WriteString(" " + name + "='")
	// EscapeText only fails if the underlying writer fails; the bufio.Writer
	// remembers the error and reports it on Flush.
	_ = xml.EscapeText(b, []byte(value))
	b.WriteString("'")
}
