// Copyright 2020 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package mux

import (
	"log/slog"

	"github.com/adhearsion/blather-sub001/stanza"
	"github.com/adhearsion/blather-sub001/xmlnode"
)

// Option configures a Mux.
type Option func(m *Mux)

// Logger sets the logger used to report handler failures.
func Logger(l *slog.Logger) Option {
	return func(m *Mux) {
		if l != nil {
			m.logger = l
		}
	}
}

// ErrorHandler sets a function that receives every *HandlerError.
// It is called synchronously from Dispatch.
func ErrorHandler(f func(error)) Option {
	return func(m *Mux) {
		m.onError = f
	}
}

// Writer sends elements to the peer.
type Writer interface {
	Write(el *xmlnode.Element) error
}

// IQFallback causes IQ get and set requests that no handler matched to be
// answered with a service-unavailable error written to w.
func IQFallback(w Writer) Option {
	return func(m *Mux) {
		m.fallback = w
	}
}

func (m *Mux) respondUnavailable(s stanza.Stanza) {
	reply := s.ErrorReply(stanza.Error{
		Type:      stanza.Cancel,
		Condition: stanza.ServiceUnavailable,
	})
	if err := m.fallback.Write(reply.Element()); err != nil {
		m.report(&HandlerError{Stanza: s, Err: err})
	}
}
