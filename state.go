// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package xmpp

import (
	"errors"
	"fmt"

	"github.com/adhearsion/blather-sub001/stream"
)

// State is the negotiation state of a session.
type State uint8

// The states a session moves through, in order.
// Every state may move to Disconnected.
const (
	Disconnected State = iota
	Connecting
	StreamNegotiating
	TLSNegotiating
	SASLNegotiating
	StreamRestarting
	ResourceBinding
	SessionEstablishing
	Ready
)

// Reason explains why a session was disconnected.
type Reason uint8

// A list of disconnect reasons.
const (
	// ReasonShutdown is a local close or a stream closed by the server after
	// the session was ready.
	ReasonShutdown Reason = iota
	ReasonTransport
	ReasonParse
	ReasonStreamError
	ReasonProtocol
	ReasonAuth
)

// Errors returned by the xmpp package.
var (
	ErrNotReady          = errors.New("xmpp: session is not ready")
	ErrSessionClosed     = errors.New("xmpp: session closed")
	ErrTLSRequired       = errors.New("xmpp: TLS is required but was not offered")
	ErrTLSFailure        = errors.New("xmpp: server failed to negotiate TLS")
	ErrTLSUnavailable    = errors.New("xmpp: STARTTLS offered but the transport cannot be upgraded")
	ErrNoMechanism       = errors.New("xmpp: no matching SASL mechanisms found")
	ErrNoBind            = errors.New("xmpp: server did not offer resource binding")
	ErrUnexpectedElement = errors.New("xmpp: unexpected element")
	ErrUnexpectedClose   = errors.New("xmpp: stream closed during negotiation")
)

// Disconnect is the terminal error of a session.
type Disconnect struct {
	Reason Reason
	Err    error

	// the stream error to send before closing the stream, if any.
	send *stream.Error
}

func (d *Disconnect) Error() string {
	if d.Err == nil {
		return "xmpp: disconnected: " + d.Reason.String()
	}
	return fmt.Sprintf("xmpp: disconnected (%s): %v", d.Reason, d.Err)
}

// Unwrap returns the cause of the disconnect.
func (d *Disconnect) Unwrap() error {
	return d.Err
}

func protocolError(se stream.Error, err error) *Disconnect {
	return &Disconnect{Reason: ReasonProtocol, Err: err, send: &se}
}
