// Copyright 2014 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

// Package client provides a higher level API for creating and managing XMPP
// clients without digging down into the underlying protocol.
//
// A Client dials the server, negotiates a session, and routes every stanza it
// receives through a mux.Mux.
// Stanzas are written with Write, WriteWithHandler, or SendIQ.
// SendIQ blocks until a response arrives and must not be called from a
// handler, since handlers run on the goroutine that reads responses.
package client // import "github.com/adhearsion/blather-sub001/client"
