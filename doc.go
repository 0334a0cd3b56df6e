// Copyright 2014 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

// Package xmpp negotiates XMPP client and component streams.
//
// A Session drives a single connection through the stream negotiation state
// machine described in RFC 6120: the initial stream header, STARTTLS, SASL
// authentication, the stream restart that follows it, resource binding, and
// the legacy session establishment step.
// Once the session is Ready every stanza read from the stream is classified
// using a stanza.Registry and passed to a Handler.
//
// Most users will want the higher level client package which dials the
// connection, multiplexes stanzas to handlers, and correlates requests with
// their responses.
//
// Be advised: This API is still unstable and is subject to change.
package xmpp // import "github.com/adhearsion/blather-sub001"

//go:generate go run -tags=tools golang.org/x/tools/cmd/stringer -type=State
//go:generate go run -tags=tools golang.org/x/tools/cmd/stringer -type=Reason -trimprefix=Reason
