// Copyright 2016 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package stanza

import (
	"github.com/adhearsion/blather-sub001/internal/attr"
	"github.com/adhearsion/blather-sub001/internal/ns"
	"github.com/adhearsion/blather-sub001/jid"
	"github.com/adhearsion/blather-sub001/xmlnode"
)

// Stanza is a classified element.
// The element is shared, so setters modify the underlying tree.
type Stanza struct {
	el       *xmlnode.Element
	kind     Kind
	variant  Variant
	payloads []Payload
}

// Wrap returns an unclassified stanza for el.
// Its kind is derived from the element name and its variant is the base
// variant for that kind.
func Wrap(el *xmlnode.Element) Stanza {
	k := KindOf(el.Name)
	return Stanza{el: el, kind: k, variant: baseVariant(k, el)}
}

// Element returns the underlying element.
func (s Stanza) Element() *xmlnode.Element {
	return s.el
}

// Kind returns the top level kind of the stanza.
func (s Stanza) Kind() Kind {
	return s.kind
}

// Variant returns the most specific variant the stanza was classified as.
func (s Stanza) Variant() Variant {
	return s.variant
}

// Payloads returns the extension payloads found during classification in
// document order.
func (s Stanza) Payloads() []Payload {
	return s.payloads
}

// Payload returns the first extension payload in the given namespace.
func (s Stanza) Payload(space string) (Payload, bool) {
	for _, p := range s.payloads {
		if p.Element.Name.Space == space {
			return p, true
		}
	}
	return Payload{}, false
}

// Has reports whether the stanza carries an extension payload of variant v.
func (s Stanza) Has(v Variant) bool {
	for _, p := range s.payloads {
		if p.Variant == v {
			return true
		}
	}
	return false
}

// ID returns the id attribute of the stanza.
func (s Stanza) ID() string {
	return s.el.Attr("id")
}

// SetID sets the id attribute of the stanza.
func (s Stanza) SetID(id string) {
	s.el.SetAttr("id", id)
}

// To returns the parsed to attribute, or the zero JID if it is absent or
// invalid.
func (s Stanza) To() jid.JID {
	return parseAddr(s.el.Attr("to"))
}

// From returns the parsed from attribute, or the zero JID if it is absent or
// invalid.
func (s Stanza) From() jid.JID {
	return parseAddr(s.el.Attr("from"))
}

func parseAddr(v string) jid.JID {
	if v == "" {
		return jid.JID{}
	}
	j, err := jid.Parse(v)
	if err != nil {
		return jid.JID{}
	}
	return j
}

// SetTo sets the to attribute. The zero JID removes it.
func (s Stanza) SetTo(j jid.JID) {
	setAddr(s.el, "to", j)
}

// SetFrom sets the from attribute. The zero JID removes it.
func (s Stanza) SetFrom(j jid.JID) {
	setAddr(s.el, "from", j)
}

func setAddr(el *xmlnode.Element, name string, j jid.JID) {
	if j.IsZero() {
		el.RemoveAttr(name)
		return
	}
	el.SetAttr(name, j.String())
}

// Type returns the raw type attribute.
func (s Stanza) Type() string {
	return s.el.Attr("type")
}

// SetType validates typ against the allowed types for the stanza's kind and
// sets it. An invalid type returns a *ValidationError and leaves the stanza
// unmodified. An empty type removes the attribute.
func (s Stanza) SetType(typ string) error {
	if err := checkType(s.kind, typ); err != nil {
		return err
	}
	if typ == "" {
		s.el.RemoveAttr("type")
		return nil
	}
	s.el.SetAttr("type", typ)
	return nil
}

// Lang returns the xml:lang attribute of the stanza.
func (s Stanza) Lang() string {
	return s.el.Lang()
}

// IsError reports whether the stanza has type error.
func (s Stanza) IsError() bool {
	return s.el.Attr("type") == "error"
}

// IsRequest reports whether the stanza is an IQ of type get or set, which
// must be answered.
func (s Stanza) IsRequest() bool {
	if s.kind != KindIQ {
		return false
	}
	t := IQType(s.Type())
	return t == GetIQ || t == SetIQ
}

// StanzaError decodes the first <error/> child of the stanza.
func (s Stanza) StanzaError() (Error, error) {
	el := s.el.FirstChild("", "error")
	if el == nil || !ns.IsContent(el.Name.Space) {
		return Error{}, ErrNoError
	}
	return ErrorFromElement(el)
}

// Reply returns a new stanza addressed back to the sender with the same id.
// Replies to IQs have type result and no children; other stanzas keep a copy
// of their children.
func (s Stanza) Reply() Stanza {
	el := s.el.Copy()
	swapAddrs(el)
	if s.kind == KindIQ {
		el.SetAttr("type", string(ResultIQ))
		el.RemoveChildren()
		el.SetText("")
	}
	return Wrap(el)
}

// ErrorReply returns a copy of the stanza with type error, swapped addresses,
// and se appended.
func (s Stanza) ErrorReply(se Error) Stanza {
	el := s.el.Copy()
	swapAddrs(el)
	el.SetAttr("type", "error")
	el.AppendChild(se.Element(el.Name.Space))
	return Wrap(el)
}

func swapAddrs(el *xmlnode.Element) {
	to, from := el.Attr("to"), el.Attr("from")
	el.RemoveAttr("to")
	el.RemoveAttr("from")
	if from != "" {
		el.SetAttr("to", from)
	}
	if to != "" {
		el.SetAttr("from", to)
	}
}

// String returns the serialized form of the stanza.
func (s Stanza) String() string {
	return s.el.String()
}

func newStanza(k Kind, local, typ string, to jid.JID) (Stanza, error) {
	if err := checkType(k, typ); err != nil {
		return Stanza{}, err
	}
	el := xmlnode.New(ns.Client, local)
	if typ != "" {
		el.SetAttr("type", typ)
	}
	setAddr(el, "to", to)
	return Wrap(el), nil
}

// NewIQ returns a new IQ of the given type.
// Requests (get and set) are assigned a random id.
func NewIQ(typ IQType, to jid.JID) (Stanza, error) {
	s, err := newStanza(KindIQ, "iq", string(typ), to)
	if err != nil {
		return s, err
	}
	if typ == GetIQ || typ == SetIQ {
		s.SetID(attr.RandomID())
	}
	return s, nil
}

// NewMessage returns a new message with an optional body.
func NewMessage(typ MessageType, to jid.JID, body string) (Stanza, error) {
	s, err := newStanza(KindMessage, "message", string(typ), to)
	if err != nil {
		return s, err
	}
	if body != "" {
		s.el.NewChild("body").SetText(body)
	}
	return s, nil
}

// NewPresence returns a new presence.
func NewPresence(typ PresenceType, to jid.JID) (Stanza, error) {
	return newStanza(KindPresence, "presence", string(typ), to)
}
