// Copyright 2016 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

// Package ns provides namespace constants that are used by the xmpp package and
// other internal packages.
package ns // import "github.com/adhearsion/blather-sub001/internal/ns"

// List of commonly used namespaces.
const (
	Bind      = "urn:ietf:params:xml:ns:xmpp-bind"
	Client    = "jabber:client"
	Component = "jabber:component:accept"
	SASL      = "urn:ietf:params:xml:ns:xmpp-sasl"
	Server    = "jabber:server"
	Session   = "urn:ietf:params:xml:ns:xmpp-session"
	Stanza    = "urn:ietf:params:xml:ns:xmpp-stanzas"
	StartTLS  = "urn:ietf:params:xml:ns:xmpp-tls"
	Stream    = "http://etherx.jabber.org/streams"
	Streams   = "urn:ietf:params:xml:ns:xmpp-streams"
	XML       = "http://www.w3.org/XML/1998/namespace"
	XMLNS     = "xmlns"
)

// IsContent reports whether space is one of the namespaces in which the
// top level stanzas of a stream are qualified.
func IsContent(space string) bool {
	switch space {
	case Client, Server, Component, "":
		return true
	}
	return false
}
