// Copyright 2017 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

// Package attr contains helpers for working with lists of XML attributes and
// for generating stanza identifiers.
package attr // import "github.com/adhearsion/blather-sub001/internal/attr"

import (
	"encoding/xml"
)

// Get returns the index and value of the first attribute with the provided
// local name from a list of attributes, or -1 and an empty string if no such
// attribute exists.
func Get(attr []xml.Attr, local string) (int, string) {
	for i, a := range attr {
		if a.Name.Local == local {
			return i, a.Value
		}
	}
	return -1, ""
}

// GetNS is like Get except that the namespace of the attribute must also
// match.
func GetNS(attr []xml.Attr, space, local string) (int, string) {
	for i, a := range attr {
		if a.Name.Local == local && a.Name.Space == space {
			return i, a.Value
		}
	}
	return -1, ""
}

// Set replaces the value of the first attribute with the given name or
// appends a new attribute if none exists. The order of existing attributes is
// preserved.
func Set(attr []xml.Attr, name xml.Name, value string) []xml.Attr {
	for i, a := range attr {
		if a.Name == name {
			attr[i].Value = value
			return attr
		}
	}
	return append(attr, xml.Attr{Name: name, Value: value})
}

// Remove deletes every attribute with the given name.
func Remove(attr []xml.Attr, name xml.Name) []xml.Attr {
	out := attr[:0]
	for _, a := range attr {
		if a.Name != name {
			out = append(out, a)
		}
	}
	return out
}

// IsNSDecl reports whether a is a namespace declaration (xmlns or xmlns:*).
func IsNSDecl(a xml.Attr) bool {
	return a.Name.Space == "xmlns" || (a.Name.Space == "" && a.Name.Local == "xmlns")
}
