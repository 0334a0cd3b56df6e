// Copyright 2016 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package xmpp

import (
	"errors"
	"fmt"
	"strings"

	"github.com/adhearsion/blather-sub001/internal/ns"
	"github.com/adhearsion/blather-sub001/jid"
	"github.com/adhearsion/blather-sub001/stanza"
	"github.com/adhearsion/blather-sub001/xmlnode"
)

// Errors returned while binding a resource or establishing a session.
var (
	ErrBindFailed    = errors.New("xmpp: resource binding failed")
	ErrSessionFailed = errors.New("xmpp: session establishment failed")
)

// bind requests the configured resource, or a server generated one if the
// configured JID has no resourcepart.
func (s *Session) bind() error {
	iq, err := stanza.NewIQ(stanza.SetIQ, jid.JID{})
	if err != nil {
		return err
	}
	b := iq.Element().AppendChild(xmlnode.New(ns.Bind, "bind"))
	if resource := s.cfg.JID.Resourcepart(); resource != "" {
		b.NewChild("resource").SetText(resource)
	}
	s.pending = iq.ID()
	s.setState(ResourceBinding)
	return s.writeNegotiation(iq.Element())
}

// response returns the IQ if el is the response to the pending request.
func (s *Session) response(el *xmlnode.Element) (stanza.Stanza, bool) {
	iq := stanza.Wrap(el)
	if iq.Kind() != stanza.KindIQ || iq.ID() != s.pending || iq.IsRequest() {
		return iq, false
	}
	return iq, true
}

func (s *Session) handleBind(el *xmlnode.Element) error {
	iq, ok := s.response(el)
	if !ok {
		return s.unexpected(el)
	}
	if iq.IsError() {
		se, _ := iq.StanzaError()
		return &Disconnect{Reason: ReasonProtocol, Err: fmt.Errorf("%w: %w", ErrBindFailed, se)}
	}

	var addr string
	if b := el.FirstChild(ns.Bind, "bind"); b != nil {
		if j := b.FirstChild(ns.Bind, "jid"); j != nil {
			addr = strings.TrimSpace(j.Text())
		}
	}
	local, err := jid.Parse(addr)
	if err != nil {
		return &Disconnect{Reason: ReasonProtocol, Err: fmt.Errorf("%w: invalid jid %q: %w", ErrBindFailed, addr, err)}
	}
	s.mu.Lock()
	s.local = local
	s.mu.Unlock()
	s.logger.Debug("resource bound", "jid", local)

	if s.session {
		return s.establishSession()
	}
	s.pending = ""
	s.setState(Ready)
	return nil
}

func (s *Session) establishSession() error {
	iq, err := stanza.NewIQ(stanza.SetIQ, jid.JID{})
	if err != nil {
		return err
	}
	iq.Element().AppendChild(xmlnode.New(ns.Session, "session"))
	s.pending = iq.ID()
	s.setState(SessionEstablishing)
	return s.writeNegotiation(iq.Element())
}

func (s *Session) handleSession(el *xmlnode.Element) error {
	iq, ok := s.response(el)
	if !ok {
		return s.unexpected(el)
	}
	if iq.IsError() {
		se, _ := iq.StanzaError()
		return &Disconnect{Reason: ReasonProtocol, Err: fmt.Errorf("%w: %w", ErrSessionFailed, se)}
	}
	s.pending = ""
	s.setState(Ready)
	return nil
}
