// Copyright 2016 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package xmpp

import (
	"github.com/adhearsion/blather-sub001/internal/ns"
	"github.com/adhearsion/blather-sub001/xmlnode"
	"golang.org/x/text/language"
)

// SASLCondition is a SASL error condition that can be encapsulated by a
// <failure/> element.
type SASLCondition string

// Standard SASL error conditions defined by RFC 6120 §6.5.
const (
	Aborted              SASLCondition = "aborted"
	AccountDisabled      SASLCondition = "account-disabled"
	CredentialsExpired   SASLCondition = "credentials-expired"
	EncryptionRequired   SASLCondition = "encryption-required"
	IncorrectEncoding    SASLCondition = "incorrect-encoding"
	InvalidAuthzID       SASLCondition = "invalid-authzid"
	InvalidMechanism     SASLCondition = "invalid-mechanism"
	MalformedRequest     SASLCondition = "malformed-request"
	MechanismTooWeak     SASLCondition = "mechanism-too-weak"
	NotAuthorized        SASLCondition = "not-authorized"
	TemporaryAuthFailure SASLCondition = "temporary-auth-failure"
)

// SASLError is an authentication failure reported by the server.
type SASLError struct {
	Mechanism string
	Condition SASLCondition
	Lang      language.Tag
	Text      string
}

// Error satisfies the error interface for a SASLError. It returns the text
// string if set, or the condition otherwise.
func (e *SASLError) Error() string {
	msg := string(e.Condition)
	if e.Text != "" {
		msg = e.Text
	}
	if e.Mechanism != "" {
		return "xmpp: SASL " + e.Mechanism + " failed: " + msg
	}
	return "xmpp: SASL failed: " + msg
}

// saslErrorFromElement decodes a <failure/> element.
// If multiple text elements are present the one with an xml:lang attribute
// that most closely matches lang is selected.
func saslErrorFromElement(el *xmlnode.Element, lang language.Tag) *SASLError {
	e := &SASLError{}
	var (
		tags []language.Tag
		data = make(map[language.Tag]string)
	)
	for _, c := range el.Children() {
		if c.Name.Space != ns.SASL {
			continue
		}
		if c.Name.Local != "text" {
			if e.Condition == "" {
				e.Condition = SASLCondition(c.Name.Local)
			}
			continue
		}
		// Tags that cannot be parsed are treated as undetermined.
		tag, err := language.Parse(c.Lang())
		if err != nil {
			tag = language.Und
		}
		if _, ok := data[tag]; !ok {
			tags = append(tags, tag)
		}
		data[tag] = c.Text()
	}
	if e.Condition == "" {
		e.Condition = NotAuthorized
	}
	if len(tags) > 0 {
		_, idx, _ := language.NewMatcher(tags).Match(lang)
		e.Lang = tags[idx]
		e.Text = data[e.Lang]
	}
	return e
}
