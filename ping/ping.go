// Copyright 2017 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

// Package ping implements XEP-0199: XMPP Ping.
package ping // import "github.com/adhearsion/blather-sub001/ping"

import (
	"context"
	"encoding/xml"

	"github.com/adhearsion/blather-sub001/jid"
	"github.com/adhearsion/blather-sub001/mux"
	"github.com/adhearsion/blather-sub001/stanza"
	"github.com/adhearsion/blather-sub001/xmlnode"
)

// NS is the XML namespace used by XMPP pings. It is provided as a convenience.
const NS = `urn:xmpp:ping`

// Variant is the variant of IQs that carry a ping.
const Variant stanza.Variant = "ping"

// Register adds the ping payload to r so that ping requests are classified
// as Variant.
func Register(r *stanza.Registry) {
	r.Register(NS, "ping", Variant, nil)
}

// IQ returns a ping request addressed to to.
func IQ(to jid.JID) (stanza.Stanza, error) {
	iq, err := stanza.NewIQ(stanza.GetIQ, to)
	if err != nil {
		return iq, err
	}
	iq.Element().AppendChild(xmlnode.New(NS, "ping"))
	return iq, nil
}

// Handler returns a handler that answers ping requests with an empty result
// written to w.
func Handler(w mux.Writer) mux.Handler {
	return mux.HandlerFunc(func(s stanza.Stanza) error {
		return w.Write(s.Reply().Element())
	})
}

// Handle registers a ping responder on m.
func Handle(m *mux.Mux, w mux.Writer) *mux.Registration {
	return m.Handle(mux.IQ(stanza.GetIQ, xml.Name{Space: NS, Local: "ping"}), 0, Handler(w))
}

// Sender sends an IQ and waits for the response.
// It is implemented by *client.Client.
type Sender interface {
	SendIQ(ctx context.Context, iq stanza.Stanza) (stanza.Stanza, error)
}

// Send pings to and blocks until a response is received.
// An error response is returned as a stanza.Error. Per XEP-0199 a
// service-unavailable or feature-not-implemented error still shows that the
// entity is reachable, so callers may choose to treat those as success.
func Send(ctx context.Context, s Sender, to jid.JID) error {
	iq, err := IQ(to)
	if err != nil {
		return err
	}
	_, err = s.SendIQ(ctx, iq)
	return err
}
