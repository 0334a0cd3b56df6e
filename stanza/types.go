// Copyright 2016 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package stanza

import (
	"encoding/xml"
	"fmt"

	"github.com/adhearsion/blather-sub001/internal/ns"
)

// Kind is the top level kind of a stanza.
type Kind uint8

// A list of stanza kinds.
// The zero value is not a valid kind and is used by filters to mean "any".
const (
	KindGeneric Kind = iota + 1
	KindIQ
	KindMessage
	KindPresence
)

// KindOf returns the kind of a top level element with the given name.
// Elements that are not iq, message, or presence in a content namespace are
// generic.
func KindOf(name xml.Name) Kind {
	if !ns.IsContent(name.Space) {
		return KindGeneric
	}
	switch name.Local {
	case "iq":
		return KindIQ
	case "message":
		return KindMessage
	case "presence":
		return KindPresence
	}
	return KindGeneric
}

// Is tests whether name is a valid stanza based on name and space.
func Is(name xml.Name) bool {
	return KindOf(name) != KindGeneric
}

// IQType is the type of an IQ stanza.
// It should normally be one of the constants defined in this package.
type IQType string

const (
	// GetIQ is used to query another entity for information.
	GetIQ IQType = "get"

	// SetIQ is used to provide data to another entity, set new values, and
	// replace existing values.
	SetIQ IQType = "set"

	// ResultIQ is sent in response to a successful get or set IQ.
	ResultIQ IQType = "result"

	// ErrorIQ is sent to report that an error occurred during the delivery or
	// processing of a get or set IQ.
	ErrorIQ IQType = "error"
)

// Valid reports whether t is one of the IQ types.
func (t IQType) Valid() bool {
	switch t {
	case GetIQ, SetIQ, ResultIQ, ErrorIQ:
		return true
	}
	return false
}

// MessageType is the type of a message stanza.
// It should normally be one of the constants defined in this package.
type MessageType string

const (
	// NormalMessage is a standalone message that is sent outside the context of
	// a one-to-one conversation or groupchat, and to which it is expected that
	// the recipient will reply.
	NormalMessage MessageType = "normal"

	// ChatMessage represents a message sent in the context of a one-to-one chat
	// session.
	ChatMessage MessageType = "chat"

	// ErrorMessage is generated by an entity that experiences an error when
	// processing a message received from another entity.
	ErrorMessage MessageType = "error"

	// GroupChatMessage is sent in the context of a multi-user chat environment.
	GroupChatMessage MessageType = "groupchat"

	// HeadlineMessage provides an alert, a notification, or other transient
	// information to which no reply is expected.
	HeadlineMessage MessageType = "headline"
)

// Valid reports whether t is one of the message types.
// The empty type is valid and is treated as NormalMessage.
func (t MessageType) Valid() bool {
	switch t {
	case "", NormalMessage, ChatMessage, ErrorMessage, GroupChatMessage, HeadlineMessage:
		return true
	}
	return false
}

// PresenceType is the type of a presence stanza.
// It should normally be one of the constants defined in this package.
type PresenceType string

const (
	// AvailablePresence is a special case that signals that the entity is
	// available for communication. It is the absence of a type attribute.
	AvailablePresence PresenceType = ""

	// ErrorPresence indicates that an error has occurred regarding processing of
	// a previously sent presence stanza.
	ErrorPresence PresenceType = "error"

	// ProbePresence is a request for an entity's current presence.
	ProbePresence PresenceType = "probe"

	// SubscribePresence is sent when the sender wishes to subscribe to the
	// recipient's presence.
	SubscribePresence PresenceType = "subscribe"

	// SubscribedPresence indicates that the sender has allowed the recipient to
	// receive future presence broadcasts.
	SubscribedPresence PresenceType = "subscribed"

	// UnavailablePresence indicates that the sender is no longer available for
	// communication.
	UnavailablePresence PresenceType = "unavailable"

	// UnsubscribePresence indicates that the sender is unsubscribing from the
	// receiver's presence.
	UnsubscribePresence PresenceType = "unsubscribe"

	// UnsubscribedPresence indicates that the subscription request has been
	// denied, or a previously granted subscription has been revoked.
	UnsubscribedPresence PresenceType = "unsubscribed"
)

// Valid reports whether t is one of the presence types.
func (t PresenceType) Valid() bool {
	switch t {
	case AvailablePresence, ErrorPresence, ProbePresence, SubscribePresence,
		SubscribedPresence, UnavailablePresence, UnsubscribePresence,
		UnsubscribedPresence:
		return true
	}
	return false
}

// ValidationError is returned when a value that is not one of the allowed
// values is assigned to a constrained stanza field.
type ValidationError struct {
	Kind  string
	Field string
	Value string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("stanza: invalid %s %q for %s", e.Field, e.Value, e.Kind)
}

// ValidType reports whether typ is an allowed value of the type attribute
// for stanzas of kind k. Generic stanzas accept any type.
func ValidType(k Kind, typ string) bool {
	switch k {
	case KindIQ:
		return IQType(typ).Valid()
	case KindMessage:
		return MessageType(typ).Valid()
	case KindPresence:
		return PresenceType(typ).Valid()
	}
	return true
}

func checkType(k Kind, typ string) error {
	if !ValidType(k, typ) {
		return &ValidationError{Kind: kindName(k), Field: "type", Value: typ}
	}
	return nil
}

func kindName(k Kind) string {
	switch k {
	case KindIQ:
		return "iq"
	case KindMessage:
		return "message"
	case KindPresence:
		return "presence"
	}
	return "stanza"
}
