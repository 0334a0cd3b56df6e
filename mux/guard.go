// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package mux

import (
	"encoding/xml"

	"github.com/adhearsion/blather-sub001/stanza"
)

// Guard selects the stanzas a registration applies to.
// Zero valued fields match anything.
type Guard struct {
	Kind    stanza.Kind
	Type    string
	Variant stanza.Variant

	// Payload matches stanzas with a child of the given name.
	// If either the namespace or the localname is left off, any namespace or
	// localname will be matched.
	Payload xml.Name

	// ID matches the stanza id exactly.
	ID string

	// Func is an additional predicate checked after all other fields.
	Func func(stanza.Stanza) bool
}

// Match reports whether s satisfies every condition of g.
func (g Guard) Match(s stanza.Stanza) bool {
	switch {
	case g.Kind != 0 && s.Kind() != g.Kind:
		return false
	case g.Type != "" && s.Type() != g.Type:
		return false
	case g.Variant != "" && s.Variant() != g.Variant:
		return false
	case g.ID != "" && s.ID() != g.ID:
		return false
	}
	if g.Payload != (xml.Name{}) && s.Element().FirstChild(g.Payload.Space, g.Payload.Local) == nil {
		return false
	}
	if g.Func != nil && !g.Func(s) {
		return false
	}
	return true
}

// IQ returns a guard matching IQs of the given type with a payload named
// payload.
func IQ(typ stanza.IQType, payload xml.Name) Guard {
	return Guard{Kind: stanza.KindIQ, Type: string(typ), Payload: payload}
}

// Message returns a guard matching messages of the given type.
func Message(typ stanza.MessageType) Guard {
	return Guard{Kind: stanza.KindMessage, Type: string(typ)}
}

// Presence returns a guard matching presences of the given type.
// Because available presence has no type, Presence("") matches all presence.
func Presence(typ stanza.PresenceType) Guard {
	return Guard{Kind: stanza.KindPresence, Type: string(typ)}
}
