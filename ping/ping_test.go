// Copyright 2019 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package ping_test

import (
	"context"
	"errors"
	"testing"

	"github.com/adhearsion/blather-sub001/jid"
	"github.com/adhearsion/blather-sub001/mux"
	"github.com/adhearsion/blather-sub001/ping"
	"github.com/adhearsion/blather-sub001/stanza"
	"github.com/adhearsion/blather-sub001/xmlnode"
)

type recorder []*xmlnode.Element

func (r *recorder) Write(el *xmlnode.Element) error {
	*r = append(*r, el)
	return nil
}

func TestRespond(t *testing.T) {
	var w recorder
	m := mux.New(mux.IQFallback(&w))
	ping.Handle(m, &w)

	reg := stanza.NewRegistry()
	ping.Register(reg)
	s := reg.Classify(xmlnode.MustParse(`<iq xmlns='jabber:client' type='get' id='p1' from='example.net' to='me@example.net/a'><ping xmlns='urn:xmpp:ping'/></iq>`))
	if v := s.Variant(); v != ping.Variant {
		t.Errorf("wrong variant: want=%s, got=%s", ping.Variant, v)
	}
	if !m.Dispatch(s) {
		t.Fatalf("ping was not handled")
	}
	if len(w) != 1 {
		t.Fatalf("expected one reply, got %d", len(w))
	}
	const want = `<iq xmlns="jabber:client" type="result" id="p1" to="example.net" from="me@example.net/a"></iq>`
	if got := w[0].String(); got != want {
		t.Errorf("wrong reply:\nwant=%s,\n got=%s", want, got)
	}
}

type sender struct {
	iq  stanza.Stanza
	err error
}

func (s *sender) SendIQ(_ context.Context, iq stanza.Stanza) (stanza.Stanza, error) {
	s.iq = iq
	return iq.Reply(), s.err
}

func TestSend(t *testing.T) {
	s := &sender{}
	to := jid.MustParse("example.net")
	if err := ping.Send(context.Background(), s, to); err != nil {
		t.Fatalf("unexpected error: `%v'", err)
	}
	if s.iq.Type() != string(stanza.GetIQ) || !s.iq.To().Equal(to) || s.iq.ID() == "" {
		t.Errorf("wrong request: %v", s.iq)
	}
	if s.iq.Element().FirstChild(ping.NS, "ping") == nil {
		t.Errorf("request has no ping payload: %v", s.iq)
	}

	s.err = stanza.Error{Type: stanza.Cancel, Condition: stanza.ServiceUnavailable}
	if err := ping.Send(context.Background(), s, to); !errors.Is(err, stanza.Error{Condition: stanza.ServiceUnavailable}) {
		t.Errorf("wrong error: %v", err)
	}
}
