// Copyright 2018 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

// Package roster implements contact list functionality.
package roster // import "github.com/adhearsion/blather-sub001/roster"

import (
	"context"
	"encoding/xml"
	"errors"

	"github.com/adhearsion/blather-sub001/jid"
	"github.com/adhearsion/blather-sub001/mux"
	"github.com/adhearsion/blather-sub001/stanza"
	"github.com/adhearsion/blather-sub001/xmlnode"
)

// Namespaces used by this package provided as a convenience.
const (
	NS = "jabber:iq:roster"
)

// Variant is the variant of IQs that carry a roster query.
const Variant stanza.Variant = "roster"

// ErrNoQuery is returned when a roster response has no query payload.
var ErrNoQuery = errors.New("roster: response has no roster query")

// Item represents a contact in the roster.
type Item struct {
	JID          jid.JID  `xml:"jid,attr"`
	Name         string   `xml:"name,attr,omitempty"`
	Subscription string   `xml:"subscription,attr,omitempty"`
	Ask          string   `xml:"ask,attr,omitempty"`
	Group        []string `xml:"group,omitempty"`
}

// Roster is the payload of a roster query.
type Roster struct {
	XMLName xml.Name `xml:"jabber:iq:roster query"`
	Ver     string   `xml:"ver,attr,omitempty"`
	Items   []Item   `xml:"item"`
}

// Decode reads a roster from a query element.
func Decode(el *xmlnode.Element) (Roster, error) {
	var r Roster
	d := xml.NewTokenDecoder(el.TokenReader())
	err := d.Decode(&r)
	return r, err
}

// Register adds the roster query to r so that roster IQs are classified as
// Variant with a Roster payload value.
func Register(r *stanza.Registry) {
	r.Register(NS, "query", Variant, func(el *xmlnode.Element) (interface{}, error) {
		return Decode(el)
	})
}

func query(items ...Item) *xmlnode.Element {
	q := xmlnode.New(NS, "query")
	for _, item := range items {
		el := q.NewChild("item")
		el.SetAttr("jid", item.JID.String())
		if item.Name != "" {
			el.SetAttr("name", item.Name)
		}
		if item.Subscription != "" {
			el.SetAttr("subscription", item.Subscription)
		}
		for _, g := range item.Group {
			el.NewChild("group").SetText(g)
		}
	}
	return q
}

// Sender sends an IQ and waits for the response.
// It is implemented by *client.Client.
type Sender interface {
	SendIQ(ctx context.Context, iq stanza.Stanza) (stanza.Stanza, error)
}

// Fetch requests the roster and blocks until it is received.
func Fetch(ctx context.Context, s Sender) (Roster, error) {
	iq, err := stanza.NewIQ(stanza.GetIQ, jid.JID{})
	if err != nil {
		return Roster{}, err
	}
	iq.Element().AppendChild(query())
	resp, err := s.SendIQ(ctx, iq)
	if err != nil {
		return Roster{}, err
	}
	q := resp.Element().FirstChild(NS, "query")
	if q == nil {
		return Roster{}, ErrNoQuery
	}
	return Decode(q)
}

// Set adds or updates item in the roster.
// Setting the subscription to "remove" deletes the item.
func Set(ctx context.Context, s Sender, item Item) error {
	iq, err := stanza.NewIQ(stanza.SetIQ, jid.JID{})
	if err != nil {
		return err
	}
	iq.Element().AppendChild(query(item))
	_, err = s.SendIQ(ctx, iq)
	return err
}

// Handle registers a handler on m for roster pushes.
// Pushes that do not come from the server or from the bare address returned by
// self are ignored. Valid pushes are acknowledged on w and f is called with the
// pushed item.
func Handle(m *mux.Mux, w mux.Writer, self func() jid.JID, f func(Item)) *mux.Registration {
	g := mux.IQ(stanza.SetIQ, xml.Name{Space: NS, Local: "query"})
	return m.Handle(g, 0, mux.HandlerFunc(func(s stanza.Stanza) error {
		if from := s.From(); !from.IsZero() && !from.Equal(self().Bare()) {
			return nil
		}
		r, err := Decode(s.Element().FirstChild(NS, "query"))
		if err != nil || len(r.Items) != 1 {
			return w.Write(s.ErrorReply(stanza.Error{
				Type:      stanza.Modify,
				Condition: stanza.BadRequest,
			}).Element())
		}
		f(r.Items[0])
		return w.Write(s.Reply().Element())
	}))
}
