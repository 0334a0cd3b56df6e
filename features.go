// Copyright 2016 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package xmpp

import (
	"encoding/xml"
	"strings"

	"github.com/adhearsion/blather-sub001/internal/ns"
	"github.com/adhearsion/blather-sub001/xmlnode"
)

// Features is the list of stream features advertised by the server in a
// <stream:features/> element.
type Features struct {
	StartTLS    bool
	TLSRequired bool

	// Mechanisms is the list of SASL mechanisms offered, in server order.
	Mechanisms []string

	Bind bool

	// Session is set if the legacy session feature was offered.
	// If the server marks it as optional the session step is skipped.
	Session         bool
	SessionOptional bool

	// Other lists the names of any features the session does not negotiate.
	Other []xml.Name
}

// ParseFeatures reads the features advertised in a <stream:features/>
// element.
func ParseFeatures(el *xmlnode.Element) Features {
	var f Features
	for _, c := range el.Children() {
		switch c.Name {
		case xml.Name{Space: ns.StartTLS, Local: "starttls"}:
			f.StartTLS = true
			f.TLSRequired = c.FirstChild(ns.StartTLS, "required") != nil
		case xml.Name{Space: ns.SASL, Local: "mechanisms"}:
			for _, m := range c.FindAll(ns.SASL, "mechanism") {
				if name := strings.TrimSpace(m.Text()); name != "" {
					f.Mechanisms = append(f.Mechanisms, name)
				}
			}
		case xml.Name{Space: ns.Bind, Local: "bind"}:
			f.Bind = true
		case xml.Name{Space: ns.Session, Local: "session"}:
			f.Session = true
			f.SessionOptional = c.FirstChild(ns.Session, "optional") != nil
		default:
			f.Other = append(f.Other, c.Name)
		}
	}
	return f
}

// Has reports whether the server advertised a feature with the given name
// that is not otherwise negotiated by the session.
func (f Features) Has(name xml.Name) bool {
	for _, n := range f.Other {
		if n == name {
			return true
		}
	}
	return false
}
