// Copyright 2014 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

// Package jid implements XMPP addresses (historically called "Jabber ID's" or
// "JID's") as described in RFC 7622.
//
// A JID is an immutable value. The domainpart is case insensitive and is
// always stored lower cased; the localpart and resourcepart are case
// sensitive.
package jid // import "github.com/adhearsion/blather-sub001/jid"
