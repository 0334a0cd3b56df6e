// Copyright 2019 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

// Package stream implements the framing layer of an XMPP stream: stream
// headers, an incremental parser that turns the bytes of a stream into
// stanza events, and the stream errors defined in RFC 6120 §4.9.
//
// Most people will want to use the facilities of the client package and not
// drive a Parser directly.
package stream // import "github.com/adhearsion/blather-sub001/stream"

//go:generate go run -tags=tools golang.org/x/tools/cmd/stringer -type=EventKind

// Namespaces used by XMPP streams and stream errors, provided as a convenience.
const (
	NS      = "http://etherx.jabber.org/streams"
	ErrorNS = "urn:ietf:params:xml:ns:xmpp-streams"
)
