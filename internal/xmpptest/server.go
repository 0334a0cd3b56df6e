// Copyright 2017 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

// Package xmpptest provides utilities for XMPP testing.
package xmpptest // import "github.com/adhearsion/blather-sub001/internal/xmpptest"

import (
	"bufio"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"

	"github.com/adhearsion/blather-sub001/internal/ns"
	"github.com/adhearsion/blather-sub001/jid"
	"github.com/adhearsion/blather-sub001/stream"
	"github.com/adhearsion/blather-sub001/xmlnode"
)

// Domain is the domain of the scripted server.
const Domain = "example.net"

// Common feature lists.
const (
	FeaturesStartTLS = `<stream:features><starttls xmlns='urn:ietf:params:xml:ns:xmpp-tls'><required/></starttls></stream:features>`
	FeaturesPlain    = `<stream:features><mechanisms xmlns='urn:ietf:params:xml:ns:xmpp-sasl'><mechanism>PLAIN</mechanism></mechanisms></stream:features>`
	FeaturesBind     = `<stream:features><bind xmlns='urn:ietf:params:xml:ns:xmpp-bind'/></stream:features>`
	FeaturesSession  = `<stream:features><bind xmlns='urn:ietf:params:xml:ns:xmpp-bind'/><session xmlns='urn:ietf:params:xml:ns:xmpp-session'/></stream:features>`
)

// ErrStreamClosed is returned by Next if the client closed the stream.
var ErrStreamClosed = errors.New("xmpptest: stream closed by client")

// Server is the server side of an in memory connection.
// It is driven by a test script, one call at a time.
type Server struct {
	conn   net.Conn
	r      *bufio.Reader
	parser *stream.Parser

	// Info is the most recent stream header received from the client.
	Info stream.Info
}

// NewServer returns the client end of an in memory connection and a scripted
// server that serves the other end.
func NewServer() (net.Conn, *Server) {
	client, server := net.Pipe()
	s := &Server{conn: server}
	s.r = bufio.NewReader(server)
	s.parser = stream.NewParser(s.r)
	return client, s
}

// Go runs script on a new goroutine and returns a channel that receives its
// result.
// When the script returns the server end of the connection is drained until
// the client closes it.
func (s *Server) Go(script func(*Server) error) <-chan error {
	errs := make(chan error, 1)
	go func() {
		err := script(s)
		if err != nil {
			/* #nosec */
			s.conn.Close()
		} else {
			err = s.Drain()
		}
		errs <- err
	}()
	return errs
}

// Send writes raw XML to the client.
func (s *Server) Send(raw string) error {
	_, err := io.WriteString(s.conn, raw)
	return err
}

// ReadHeader waits for the client to open a new stream.
func (s *Server) ReadHeader() (stream.Info, error) {
	ev, err := s.parser.Next()
	if err != nil {
		return stream.Info{}, err
	}
	if ev.Kind != stream.StreamOpened {
		return stream.Info{}, fmt.Errorf("xmpptest: expected stream header, got %v", ev.Kind)
	}
	s.Info = ev.Info
	return ev.Info, nil
}

// OpenStream sends a stream header in the namespace the client used.
func (s *Server) OpenStream(id string) error {
	info := stream.Info{
		ID:      id,
		From:    jid.MustParse(Domain),
		Version: stream.DefaultVersion,
		XMLNS:   s.Info.XMLNS,
	}
	if info.XMLNS == ns.Component {
		info.Version = stream.Version{}
	}
	return info.Send(s.conn)
}

// Accept reads the client's stream header and answers with a new stream and
// the given features.
func (s *Server) Accept(id, features string) error {
	if _, err := s.ReadHeader(); err != nil {
		return err
	}
	if err := s.OpenStream(id); err != nil {
		return err
	}
	if features == "" {
		return nil
	}
	return s.Send(features)
}

// Next returns the next element sent by the client.
func (s *Server) Next() (*xmlnode.Element, error) {
	ev, err := s.parser.Next()
	if err != nil {
		return nil, err
	}
	switch ev.Kind {
	case stream.StanzaReceived:
		return ev.Element, nil
	case stream.StreamClosed:
		return nil, ErrStreamClosed
	}
	return nil, fmt.Errorf("xmpptest: unexpected %v event", ev.Kind)
}

// Expect returns the next element sent by the client, and an error if its
// name does not match.
// An empty space or local name matches any.
func (s *Server) Expect(space, local string) (*xmlnode.Element, error) {
	el, err := s.Next()
	if err != nil {
		return nil, err
	}
	if !el.Matches(space, local) {
		return el, fmt.Errorf("xmpptest: expected {%s}%s, got %s", space, local, el)
	}
	return el, nil
}

// Restart resets the parser after the client has been told to restart the
// stream.
func (s *Server) Restart() {
	s.parser.Reset(s.r)
}

// StartTLS upgrades the connection to TLS using cfg.
// It must be called after sending <proceed/>.
func (s *Server) StartTLS(cfg *tls.Config) error {
	tc := tls.Server(s.conn, cfg)
	if err := tc.Handshake(); err != nil {
		return err
	}
	s.conn = tc
	s.r = bufio.NewReader(tc)
	s.parser.Reset(s.r)
	return nil
}

// Authenticate accepts a PLAIN authentication and restarts the stream.
// It reports an error if the credentials are not the expected ones.
func (s *Server) Authenticate(user, password string) error {
	auth, err := s.Expect(ns.SASL, "auth")
	if err != nil {
		return err
	}
	if mech := auth.Attr("mechanism"); mech != "PLAIN" {
		return fmt.Errorf("xmpptest: unexpected mechanism %q", mech)
	}
	want := PlainResponse("", user, password)
	if got := strings.TrimSpace(auth.Text()); got != want {
		return fmt.Errorf("xmpptest: wrong PLAIN payload: want=%q, got=%q", want, got)
	}
	if err = s.Send(`<success xmlns='urn:ietf:params:xml:ns:xmpp-sasl'/>`); err != nil {
		return err
	}
	s.Restart()
	return nil
}

// Bind answers a resource binding request with addr.
// If addr has no resourcepart the requested resource, or "test", is added.
func (s *Server) Bind(addr string) error {
	iq, err := s.Expect(ns.Client, "iq")
	if err != nil {
		return err
	}
	b := iq.FirstChild(ns.Bind, "bind")
	if b == nil {
		return fmt.Errorf("xmpptest: expected bind request, got %s", iq)
	}
	if !strings.Contains(addr, "/") {
		resource := "test"
		if r := b.FirstChild(ns.Bind, "resource"); r != nil {
			resource = r.Text()
		}
		addr += "/" + resource
	}
	return s.Send(fmt.Sprintf(`<iq type='result' id='%s'><bind xmlns='urn:ietf:params:xml:ns:xmpp-bind'><jid>%s</jid></bind></iq>`, iq.Attr("id"), addr))
}

// Negotiate runs a complete negotiation without TLS: PLAIN authentication
// followed by resource binding to addr.
func (s *Server) Negotiate(user, password, addr string) error {
	if err := s.Accept("s1", FeaturesPlain); err != nil {
		return err
	}
	if err := s.Authenticate(user, password); err != nil {
		return err
	}
	if err := s.Accept("s2", FeaturesBind); err != nil {
		return err
	}
	return s.Bind(addr)
}

// Drain reads and discards input until the client closes the stream or the
// connection.
func (s *Server) Drain() error {
	for {
		_, err := s.parser.Next()
		if err != nil {
			/* #nosec */
			s.conn.Close()
			return nil
		}
	}
}

// Close closes the server end of the connection.
func (s *Server) Close() error {
	return s.conn.Close()
}
