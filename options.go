// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package xmpp

import (
	"log/slog"
	"time"

	"github.com/adhearsion/blather-sub001/stanza"
	"github.com/benbjohnson/clock"
)

// Option configures a Session.
type Option func(*Session)

// Logger sets the logger used by the session.
// State transitions are logged at debug level and protocol failures at warn.
func Logger(l *slog.Logger) Option {
	return func(s *Session) {
		if l != nil {
			s.logger = l
		}
	}
}

// Registry sets the registry used to classify stanzas received once the
// session is ready.
// If no registry is set an empty one is used.
func Registry(r *stanza.Registry) Option {
	return func(s *Session) {
		if r != nil {
			s.reg = r
		}
	}
}

// OnState registers a function that is called every time the session changes
// state.
// It is called from the goroutine that reads the stream and must not block.
func OnState(f func(State)) Option {
	return func(s *Session) {
		s.onState = append(s.onState, f)
	}
}

// KeepAlive sends a single whitespace character every interval once the
// session is ready.
// If c is nil the system clock is used.
func KeepAlive(interval time.Duration, c clock.Clock) Option {
	return func(s *Session) {
		s.keepalive = interval
		if c != nil {
			s.clock = c
		}
	}
}

// MaxStanzaSize limits the number of bytes a single stanza may span.
// Larger stanzas terminate the session with a policy-violation stream error.
func MaxStanzaSize(n int64) Option {
	return func(s *Session) {
		s.maxStanza = n
	}
}
