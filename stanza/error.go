// Copyright 2016 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package stanza

import (
	"encoding/xml"
	"errors"

	"github.com/adhearsion/blather-sub001/internal/ns"
	"github.com/adhearsion/blather-sub001/jid"
	"github.com/adhearsion/blather-sub001/xmlnode"
	"mellium.im/xmlstream"
)

// ErrNoError is returned by Stanza.StanzaError if the stanza has no <error/>
// child.
var ErrNoError = errors.New("stanza: no error payload")

// ErrorType is the type of an stanza error payloads.
// It should normally be one of the constants defined in this package.
type ErrorType string

const (
	// Cancel indicates that the error cannot be remedied and the operation should
	// not be retried.
	Cancel ErrorType = "cancel"

	// Auth indicates that an operation should be retried after providing
	// credentials.
	Auth ErrorType = "auth"

	// Continue indicates that the operation can proceed (the condition was only a
	// warning).
	Continue ErrorType = "continue"

	// Modify indicates that the operation can be retried after changing the data
	// sent.
	Modify ErrorType = "modify"

	// Wait is indicates that an error is temporary and may be retried.
	Wait ErrorType = "wait"
)

// Valid reports whether t is one of the error types.
func (t ErrorType) Valid() bool {
	switch t {
	case Cancel, Auth, Continue, Modify, Wait:
		return true
	}
	return false
}

// Condition represents a more specific stanza error condition that can be
// encapsulated by an <error/> element.
type Condition string

// A list of stanza error conditions defined in RFC 6120 §8.3.3
const (
	BadRequest            Condition = "bad-request"
	Conflict              Condition = "conflict"
	FeatureNotImplemented Condition = "feature-not-implemented"
	Forbidden             Condition = "forbidden"
	Gone                  Condition = "gone"
	InternalServerError   Condition = "internal-server-error"
	ItemNotFound          Condition = "item-not-found"
	JIDMalformed          Condition = "jid-malformed"
	NotAcceptable         Condition = "not-acceptable"
	NotAllowed            Condition = "not-allowed"
	NotAuthorized         Condition = "not-authorized"
	PolicyViolation       Condition = "policy-violation"
	RecipientUnavailable  Condition = "recipient-unavailable"
	Redirect              Condition = "redirect"
	RegistrationRequired  Condition = "registration-required"
	RemoteServerNotFound  Condition = "remote-server-not-found"
	RemoteServerTimeout   Condition = "remote-server-timeout"
	ResourceConstraint    Condition = "resource-constraint"
	ServiceUnavailable    Condition = "service-unavailable"
	SubscriptionRequired  Condition = "subscription-required"
	UndefinedCondition    Condition = "undefined-condition"
	UnexpectedRequest     Condition = "unexpected-request"
)

// Error is a stanza level error. It is recoverable and never terminates the
// stream.
type Error struct {
	By        jid.JID
	Type      ErrorType
	Condition Condition
	Text      string
	Lang      string

	// App is an optional application specific condition element.
	App *xmlnode.Element
}

// Error satisfies the error interface by returning the condition and any
// descriptive text.
func (se Error) Error() string {
	if se.Text != "" {
		return string(se.Condition) + ": " + se.Text
	}
	return string(se.Condition)
}

// Is reports whether target is a stanza error with the same condition.
func (se Error) Is(target error) bool {
	switch t := target.(type) {
	case Error:
		return se.Condition == t.Condition
	case *Error:
		return t != nil && se.Condition == t.Condition
	}
	return false
}

// ErrorFromElement reads a stanza error from an <error/> element.
// An invalid error type is reported as a *ValidationError. A missing or
// unknown condition becomes UndefinedCondition.
func ErrorFromElement(el *xmlnode.Element) (Error, error) {
	se := Error{
		Type:      ErrorType(el.Attr("type")),
		Condition: UndefinedCondition,
	}
	if by := el.Attr("by"); by != "" {
		j, err := jid.Parse(by)
		if err != nil {
			return se, err
		}
		se.By = j
	}
	var cond bool
	for _, c := range el.Children() {
		switch {
		case c.Name.Space == ns.Stanza && c.Name.Local == "text":
			se.Text = c.Text()
			se.Lang = c.Lang()
		case c.Name.Space == ns.Stanza && !cond:
			se.Condition = Condition(c.Name.Local)
			cond = true
		case c.Name.Space != ns.Stanza && se.App == nil:
			se.App = c.Copy()
		}
	}
	if !se.Type.Valid() {
		return se, &ValidationError{Kind: "error", Field: "type", Value: string(se.Type)}
	}
	return se, nil
}

// Element returns an <error/> element in the given stanza namespace.
func (se Error) Element(space string) *xmlnode.Element {
	el := xmlnode.New(space, "error")
	if se.Type != "" {
		el.SetAttr("type", string(se.Type))
	}
	if !se.By.IsZero() {
		el.SetAttr("by", se.By.String())
	}
	el.AppendChild(xmlnode.New(ns.Stanza, string(se.Condition)))
	if se.Text != "" {
		text := el.AppendChild(xmlnode.New(ns.Stanza, "text"))
		text.SetText(se.Text)
		text.SetLang(se.Lang)
	}
	if se.App != nil {
		el.AppendChild(se.App.Copy())
	}
	return el
}

// TokenReader satisfies the xmlstream.Marshaler interface for Error.
func (se Error) TokenReader() xml.TokenReader {
	return se.Element("").TokenReader()
}

// WriteXML satisfies the xmlstream.WriterTo interface.
// It is like MarshalXML except it writes tokens to w.
func (se Error) WriteXML(w xmlstream.TokenWriter) (n int, err error) {
	return xmlstream.Copy(w, se.TokenReader())
}

// MarshalXML satisfies the xml.Marshaler interface for Error.
func (se Error) MarshalXML(e *xml.Encoder, _ xml.StartElement) error {
	_, err := se.WriteXML(e)
	return err
}

// UnmarshalXML satisfies the xml.Unmarshaler interface for Error.
func (se *Error) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	el, err := xmlnode.Decode(d, start)
	if err != nil {
		return err
	}
	*se, err = ErrorFromElement(el)
	return err
}
