// Copyright 2020 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package xmpp

import (
	/* #nosec */
	"crypto/sha1"
	"encoding/hex"
	"encoding/xml"
	"io"

	"github.com/adhearsion/blather-sub001/internal/ns"
	"github.com/adhearsion/blather-sub001/xmlnode"
)

// Handshake returns the XEP-0114 handshake value for the given stream id and
// shared secret.
func Handshake(id, secret string) string {
	/* #nosec */
	h := sha1.New()
	/* #nosec */
	io.WriteString(h, id)
	/* #nosec */
	io.WriteString(h, secret)
	return hex.EncodeToString(h.Sum(nil))
}

func (s *Session) sendHandshake(id string) error {
	el := xmlnode.New(ns.Component, "handshake")
	el.SetText(Handshake(id, s.cfg.Secret))
	s.setState(SASLNegotiating)
	return s.writeNegotiation(el)
}

func (s *Session) handleHandshake(el *xmlnode.Element) error {
	if el.Name != (xml.Name{Space: ns.Component, Local: "handshake"}) {
		return s.unexpected(el)
	}
	s.authed = true
	s.mu.Lock()
	s.local = s.cfg.JID
	s.mech = "handshake"
	s.mu.Unlock()
	s.setState(Ready)
	return nil
}
