// Copyright 2016 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package xmpp

import (
	"bufio"
	"crypto/tls"
	"fmt"
	"net"

	"github.com/adhearsion/blather-sub001/internal/ns"
	"github.com/adhearsion/blather-sub001/xmlnode"
)

// handleTLS handles the server's response to <starttls/>.
func (s *Session) handleTLS(el *xmlnode.Element) error {
	if el.Name.Space != ns.StartTLS {
		return s.unexpected(el)
	}
	switch el.Name.Local {
	case "proceed":
		return s.upgradeTLS()
	case "failure":
		// The server closes the stream immediately after a failure.
		return &Disconnect{Reason: ReasonProtocol, Err: ErrTLSFailure}
	}
	return s.unexpected(el)
}

func (s *Session) upgradeTLS() error {
	s.mu.RLock()
	conn := s.rwc.(net.Conn)
	s.mu.RUnlock()

	tc := tls.Client(conn, s.cfg.tlsConfig())
	if err := tc.HandshakeContext(s.ctx); err != nil {
		return &Disconnect{Reason: ReasonTransport, Err: fmt.Errorf("xmpp: TLS handshake: %w", err)}
	}

	s.wmu.Lock()
	s.w = tc
	s.wmu.Unlock()
	s.mu.Lock()
	s.rwc = tc
	s.secure = true
	s.tlsState = tc.ConnectionState()
	s.mu.Unlock()
	s.r = bufio.NewReader(tc)
	s.logger.Debug("connection secured", "version", tls.VersionName(s.tlsState.Version))

	s.setState(StreamNegotiating)
	return s.restart()
}
