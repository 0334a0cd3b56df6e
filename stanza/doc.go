// Copyright 2017 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

// Package stanza contains functionality for dealing with XMPP stanzas and
// stanza level errors.
//
// Stanzas (Message, Presence, and IQ) are the "primitives" of XMPP. Messages
// are used to send data that is fire-and-forget such as chat messages, Presence
// is used as a general broadcast and publish-subscribe mechanism and is used to
// broadcast availability on the network, and IQ (Info-Query) is used as a
// request response mechanism for data that requires a response.
//
// A Stanza is an element from the stream that has been classified by a
// Registry. Classification never fails: elements that nothing was registered
// for are still represented, they just carry the generic variant and no
// extension payloads.
package stanza // import "github.com/adhearsion/blather-sub001/stanza"

//go:generate go run -tags=tools golang.org/x/tools/cmd/stringer -type=Kind -trimprefix=Kind
