// Copyright 2015 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package stream

import (
	"encoding/xml"

	"github.com/adhearsion/blather-sub001/xmlnode"
	"mellium.im/xmlstream"
)

// A list of stream errors defined in RFC 6120 §4.9.3
var (
	// BadFormat is used when the entity has sent XML that cannot be processed.
	BadFormat = Error{Err: "bad-format"}

	// BadNamespacePrefix is sent when an entity has sent a namespace prefix that
	// is unsupported, or has sent no namespace prefix, on an element that needs
	// such a prefix.
	BadNamespacePrefix = Error{Err: "bad-namespace-prefix"}

	// Conflict is sent when the server is closing the existing stream for this
	// entity because a new stream has been initiated that conflicts with it.
	Conflict = Error{Err: "conflict"}

	// ConnectionTimeout results when one party is closing the stream because it
	// has reason to believe that the other party has permanently lost the ability
	// to communicate over the stream.
	ConnectionTimeout = Error{Err: "connection-timeout"}

	// HostGone is sent when the 'to' address of the stream header is no longer
	// serviced by the receiving entity.
	HostGone = Error{Err: "host-gone"}

	// HostUnknown is sent when the 'to' address of the stream header is not
	// serviced by the receiving entity.
	HostUnknown = Error{Err: "host-unknown"}

	// ImproperAddressing is used when a stanza lacks a required 'to' or 'from'
	// attribute or the value violates the rules for XMPP addresses.
	ImproperAddressing = Error{Err: "improper-addressing"}

	// InternalServerError is sent when the server has experienced a
	// misconfiguration or other internal error.
	InternalServerError = Error{Err: "internal-server-error"}

	// InvalidFrom is sent when the 'from' attribute does not match an
	// authorized JID.
	InvalidFrom = Error{Err: "invalid-from"}

	// InvalidNamespace is sent when the stream namespace or the content
	// namespace of the stream is not supported.
	InvalidNamespace = Error{Err: "invalid-namespace"}

	// InvalidXML may be sent when the entity has sent invalid XML over the stream.
	InvalidXML = Error{Err: "invalid-xml"}

	// NotAuthorized may be sent when the entity has attempted to send XML
	// stanzas before the stream has been authenticated.
	NotAuthorized = Error{Err: "not-authorized"}

	// NotWellFormed may be sent when the initiating entity has sent XML that
	// violates the well-formedness rules of XML or XML namespaces.
	NotWellFormed = Error{Err: "not-well-formed"}

	// PolicyViolation may be sent when an entity has violated some local service
	// policy (e.g., a stanza exceeds a configured size limit).
	PolicyViolation = Error{Err: "policy-violation"}

	// RemoteConnectionFailed may be sent when the server is unable to connect to
	// a remote entity that is needed for authentication or authorization.
	RemoteConnectionFailed = Error{Err: "remote-connection-failed"}

	// Reset is sent when the server is closing the stream because it has new
	// features to offer or the security context of the stream has expired.
	Reset = Error{Err: "reset"}

	// ResourceConstraint may be sent when the server lacks the system resources
	// necessary to service the stream.
	ResourceConstraint = Error{Err: "resource-constraint"}

	// RestrictedXML may be sent when the entity has attempted to send restricted
	// XML features such as a comment, processing instruction, DTD subset, or XML
	// entity reference.
	RestrictedXML = Error{Err: "restricted-xml"}

	// SeeOtherHost is sent when the server will not provide service to the
	// initiating entity but is redirecting traffic to another host.
	SeeOtherHost = Error{Err: "see-other-host"}

	// SystemShutdown may be sent when server is being shut down and all active
	// streams are being closed.
	SystemShutdown = Error{Err: "system-shutdown"}

	// UndefinedCondition may be sent when the error condition is not one of those
	// defined by the other conditions in this list.
	UndefinedCondition = Error{Err: "undefined-condition"}

	// UnsupportedEncoding may be sent when initiating entity has encoded the
	// stream in an encoding that is not UTF-8.
	UnsupportedEncoding = Error{Err: "unsupported-encoding"}

	// UnsupportedFeature may be sent when receiving entity has advertised a
	// mandatory-to-negotiate stream feature that the initiating entity does not
	// support.
	UnsupportedFeature = Error{Err: "unsupported-feature"}

	// UnsupportedStanzaType may be sent when an entity has sent a first-level
	// child of the stream that is not understood in the current context.
	UnsupportedStanzaType = Error{Err: "unsupported-stanza-type"}

	// UnsupportedVersion may be sent when the 'version' attribute provided in
	// the stream header specifies a version of XMPP that is not supported.
	UnsupportedVersion = Error{Err: "unsupported-version"}
)

// A Error represents an unrecoverable stream-level error that may include
// descriptive text and an application specific condition.
type Error struct {
	Err  string
	Text string
	Lang string
	App  *xmlnode.Element
}

// Error satisfies the builtin error interface and returns the name of the
// condition. For instance, given the error:
//
//	<stream:error>
//	  <restricted-xml xmlns="urn:ietf:params:xml:ns:xmpp-streams"/>
//	</stream:error>
//
// Error() would return "restricted-xml".
func (s Error) Error() string {
	if s.Text != "" {
		return s.Err + ": " + s.Text
	}
	return s.Err
}

// Is reports whether target is a stream error with the same condition.
// It allows errors.Is(err, stream.NotWellFormed) to match errors that carry
// text or an application condition.
func (s Error) Is(target error) bool {
	switch t := target.(type) {
	case Error:
		return s.Err == t.Err
	case *Error:
		return t != nil && s.Err == t.Err
	}
	return false
}

// FromElement reads a stream error from an <error/> element in the stream
// namespace. Unknown conditions become UndefinedCondition.
func FromElement(el *xmlnode.Element) Error {
	e := UndefinedCondition
	var cond bool
	for _, c := range el.Children() {
		switch {
		case c.Name.Space == ErrorNS && c.Name.Local == "text":
			e.Text = c.Text()
			e.Lang = c.Lang()
		case c.Name.Space == ErrorNS && !cond:
			e.Err = c.Name.Local
			cond = true
		case c.Name.Space != ErrorNS && e.App == nil:
			e.App = c.Copy()
		}
	}
	return e
}

// IsError reports whether el is a stream error element.
func IsError(el *xmlnode.Element) bool {
	return el.Name.Space == NS && el.Name.Local == "error"
}

// Element returns a new element representing the error.
func (s Error) Element() *xmlnode.Element {
	el := xmlnode.New(NS, "error")
	el.AppendChild(xmlnode.New(ErrorNS, s.Err))
	if s.Text != "" {
		text := el.AppendChild(xmlnode.New(ErrorNS, "text"))
		text.SetText(s.Text)
		text.SetLang(s.Lang)
	}
	if s.App != nil {
		el.AppendChild(s.App.Copy())
	}
	return el
}

// TokenReader returns a new xml.TokenReader that returns an encoding of
// the error.
func (s Error) TokenReader() xml.TokenReader {
	return s.Element().TokenReader()
}

// WriteXML satisfies the xmlstream.WriterTo interface.
// It is like MarshalXML except it writes tokens to w.
func (s Error) WriteXML(w xmlstream.TokenWriter) (int, error) {
	return xmlstream.Copy(w, s.TokenReader())
}

// MarshalXML satisfies the xml package's Marshaler interface and allows
// stream errors to be correctly marshaled back into XML.
func (s Error) MarshalXML(e *xml.Encoder, _ xml.StartElement) error {
	_, err := s.WriteXML(e)
	return err
}

// UnmarshalXML satisfies the xml package's Unmarshaler interface and allows
// stream errors to be correctly unmarshaled from XML.
func (s *Error) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	el, err := xmlnode.Decode(d, start)
	if err != nil {
		return err
	}
	*s = FromElement(el)
	return nil
}
