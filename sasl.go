// Copyright 2016 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package xmpp

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/adhearsion/blather-sub001/internal/ns"
	"github.com/adhearsion/blather-sub001/stream"
	"github.com/adhearsion/blather-sub001/xmlnode"
	"mellium.im/sasl"
)

// Anonymous is a SASL mechanism that implements the ANONYMOUS mechanism as
// defined by RFC 4505.
// No trace information is sent.
var Anonymous = sasl.Mechanism{
	Name: "ANONYMOUS",
	Start: func(*sasl.Negotiator) (bool, []byte, interface{}, error) {
		return false, nil, nil, nil
	},
	Next: func(*sasl.Negotiator, []byte, interface{}) (bool, []byte, interface{}, error) {
		return false, nil, nil, sasl.ErrTooManySteps
	},
}

// ErrSASLIncomplete is returned if the server reports success before the
// mechanism has verified the server.
var ErrSASLIncomplete = errors.New("xmpp: SASL success received before the mechanism completed")

type saslState struct {
	remote     []string
	candidates []sasl.Mechanism
	client     *sasl.Negotiator
	name       string
	more       bool
}

// selectMechanisms returns the configured mechanisms that the server offered,
// preferring the client order.
// Channel binding mechanisms are skipped unless tls-unique is available.
func (s *Session) selectMechanisms(remote []string) []sasl.Mechanism {
	cs := s.ConnectionState()
	var out []sasl.Mechanism
	for _, m := range s.cfg.mechanisms() {
		if strings.HasSuffix(m.Name, "-PLUS") && len(cs.TLSUnique) == 0 {
			continue
		}
		for _, name := range remote {
			if name == m.Name {
				out = append(out, m)
				break
			}
		}
	}
	return out
}

func (s *Session) startSASL(remote []string) error {
	candidates := s.selectMechanisms(remote)
	if len(candidates) == 0 {
		return &Disconnect{Reason: ReasonAuth, Err: fmt.Errorf("%w: server offered %v", ErrNoMechanism, remote)}
	}
	s.sasl = &saslState{remote: remote, candidates: candidates}
	s.setState(SASLNegotiating)
	return s.nextMechanism()
}

func (s *Session) nextMechanism() error {
	m := s.sasl.candidates[0]
	s.sasl.candidates = s.sasl.candidates[1:]

	opts := []sasl.Option{
		sasl.Credentials(func() ([]byte, []byte, []byte) {
			return []byte(s.cfg.JID.Localpart()), []byte(s.cfg.Password), []byte(s.cfg.Identity)
		}),
		sasl.RemoteMechanisms(s.sasl.remote...),
	}
	if s.Secure() {
		opts = append(opts, sasl.TLSState(s.ConnectionState()))
	}
	client := sasl.NewClient(m, opts...)

	more, resp, err := client.Step(nil)
	if err != nil {
		return &Disconnect{Reason: ReasonAuth, Err: fmt.Errorf("xmpp: SASL %s: %w", m.Name, err)}
	}
	s.sasl.client = client
	s.sasl.name = m.Name
	s.sasl.more = more
	s.logger.Debug("starting authentication", "mechanism", m.Name)

	// RFC6120 §6.4.2:
	//     If the initiating entity needs to send a zero-length initial
	//     response, it MUST transmit the response as a single equals sign
	//     character ("="), which indicates that the response is present but
	//     contains no data.
	auth := xmlnode.New(ns.SASL, "auth")
	auth.SetAttr("mechanism", m.Name)
	if len(resp) == 0 {
		auth.SetText("=")
	} else {
		auth.SetText(base64.StdEncoding.EncodeToString(resp))
	}
	return s.writeNegotiation(auth)
}

func decodeSASLData(el *xmlnode.Element) ([]byte, error) {
	text := strings.TrimSpace(el.Text())
	if text == "" || text == "=" {
		return nil, nil
	}
	return base64.StdEncoding.DecodeString(text)
}

func (s *Session) handleSASL(el *xmlnode.Element) error {
	if el.Name.Space != ns.SASL {
		return s.unexpected(el)
	}
	name := s.sasl.name

	switch el.Name.Local {
	case "challenge":
		challenge, err := decodeSASLData(el)
		if err != nil {
			return protocolError(stream.BadFormat, fmt.Errorf("xmpp: bad SASL challenge: %w", err))
		}
		more, resp, err := s.sasl.client.Step(challenge)
		if err != nil {
			return &Disconnect{Reason: ReasonAuth, Err: fmt.Errorf("xmpp: SASL %s: %w", name, err)}
		}
		s.sasl.more = more
		r := xmlnode.New(ns.SASL, "response")
		if len(resp) > 0 {
			r.SetText(base64.StdEncoding.EncodeToString(resp))
		}
		return s.writeNegotiation(r)
	case "success":
		data, err := decodeSASLData(el)
		if err != nil {
			return protocolError(stream.BadFormat, fmt.Errorf("xmpp: bad SASL success data: %w", err))
		}
		if s.sasl.more {
			if data == nil {
				return &Disconnect{Reason: ReasonAuth, Err: ErrSASLIncomplete}
			}
			// Additional data with success is the final server challenge.
			if _, _, err = s.sasl.client.Step(data); err != nil {
				return &Disconnect{Reason: ReasonAuth, Err: fmt.Errorf("xmpp: SASL %s: %w", name, err)}
			}
		}
		s.authed = true
		s.sasl = nil
		s.mu.Lock()
		s.mech = name
		s.mu.Unlock()
		s.logger.Debug("authenticated", "mechanism", name)
		s.setState(StreamRestarting)
		return s.restart()
	case "failure":
		failure := saslErrorFromElement(el, s.cfg.Lang)
		failure.Mechanism = name
		if len(s.sasl.candidates) > 0 {
			s.logger.Debug("mechanism failed, trying next", "err", failure)
			return s.nextMechanism()
		}
		return &Disconnect{Reason: ReasonAuth, Err: failure}
	}
	return s.unexpected(el)
}
