// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package xmlnode

import (
	"encoding/xml"
	"errors"
	"io"
	"strings"
)

// ErrNoElement is returned by Parse if the input contains no element.
var ErrNoElement = errors.New("xmlnode: no element found")

// Decode reads tokens from r until the end of the element started by start
// and returns the resulting tree.
func Decode(r xml.TokenReader, start xml.StartElement) (*Element, error) {
	e := FromStart(start)
	var text strings.Builder
	for {
		tok, err := r.Token()
		if tok != nil {
			switch t := tok.(type) {
			case xml.StartElement:
				child, err := Decode(r, t)
				if err != nil {
					return nil, err
				}
				e.AppendChild(child)
			case xml.CharData:
				text.Write(t)
			case xml.EndElement:
				e.text = text.String()
				return e, nil
			}
		}
		switch {
		case err == io.EOF:
			return nil, io.ErrUnexpectedEOF
		case err != nil:
			return nil, err
		}
	}
}

// Parse decodes the first element in s.
func Parse(s string) (*Element, error) {
	d := xml.NewDecoder(strings.NewReader(s))
	for {
		tok, err := d.Token()
		if err == io.EOF {
			return nil, ErrNoElement
		}
		if err != nil {
			return nil, err
		}
		if start, ok := tok.(xml.StartElement); ok {
			return Decode(d, start)
		}
	}
}

// MustParse is like Parse but panics on error.
// It simplifies building elements from known good constant strings.
func MustParse(s string) *Element {
	e, err := Parse(s)
	if err != nil {
		panic("xmlnode: MustParse: " + err.Error())
	}
	return e
}
