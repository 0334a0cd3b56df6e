// Copyright 2019 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package roster_test

import (
	"context"
	"strconv"
	"testing"

	"github.com/adhearsion/blather-sub001/jid"
	"github.com/adhearsion/blather-sub001/mux"
	"github.com/adhearsion/blather-sub001/roster"
	"github.com/adhearsion/blather-sub001/stanza"
	"github.com/adhearsion/blather-sub001/xmlnode"
	"github.com/google/go-cmp/cmp"
)

type sender struct {
	req   stanza.Stanza
	reply string
}

func (s *sender) SendIQ(_ context.Context, iq stanza.Stanza) (stanza.Stanza, error) {
	s.req = iq
	return stanza.Wrap(xmlnode.MustParse(s.reply)), nil
}

var fetchTests = [...]struct {
	reply string
	items []roster.Item
	ver   string
	err   error
}{
	0: {
		reply: `<iq xmlns='jabber:client' type='result' id='1'><query xmlns='jabber:iq:roster' ver='v2'>
  <item jid='juliet@example.com' name='Juliet' subscription='both'>
    <group>Friends</group>
  </item>
  <item jid='benvolio@example.org' name='Benvolio' subscription='to'/>
</query></iq>`,
		ver: "v2",
		items: []roster.Item{{
			JID:          jid.MustParse("juliet@example.com"),
			Name:         "Juliet",
			Subscription: "both",
			Group:        []string{"Friends"},
		}, {
			JID:          jid.MustParse("benvolio@example.org"),
			Name:         "Benvolio",
			Subscription: "to",
		}},
	},
	1: {
		reply: `<iq xmlns='jabber:client' type='result' id='1'/>`,
		err:   roster.ErrNoQuery,
	},
}

func TestFetch(t *testing.T) {
	for i, tc := range fetchTests {
		t.Run(strconv.Itoa(i), func(t *testing.T) {
			s := &sender{reply: tc.reply}
			r, err := roster.Fetch(context.Background(), s)
			if err != tc.err {
				t.Fatalf("wrong error: want=%v, got=%v", tc.err, err)
			}
			if s.req.Type() != string(stanza.GetIQ) || s.req.Element().FirstChild(roster.NS, "query") == nil {
				t.Errorf("wrong request: %v", s.req)
			}
			if r.Ver != tc.ver {
				t.Errorf("wrong version: want=%q, got=%q", tc.ver, r.Ver)
			}
			if diff := cmp.Diff(tc.items, r.Items, cmp.AllowUnexported(jid.JID{})); diff != "" {
				t.Errorf("wrong items (-want +got):\n%s", diff)
			}
		})
	}
}

func TestSet(t *testing.T) {
	s := &sender{reply: `<iq xmlns='jabber:client' type='result' id='1'/>`}
	item := roster.Item{JID: jid.MustParse("nurse@example.com"), Name: "Nurse", Group: []string{"Servants"}}
	if err := roster.Set(context.Background(), s, item); err != nil {
		t.Fatalf("unexpected error: `%v'", err)
	}
	q := s.req.Element().FirstChild(roster.NS, "query")
	if q == nil {
		t.Fatalf("request has no query: %v", s.req)
	}
	r, err := roster.Decode(q)
	if err != nil {
		t.Fatalf("error decoding request: %v", err)
	}
	if diff := cmp.Diff([]roster.Item{item}, r.Items, cmp.AllowUnexported(jid.JID{})); diff != "" {
		t.Errorf("wrong items (-want +got):\n%s", diff)
	}
}

type recorder []*xmlnode.Element

func (r *recorder) Write(el *xmlnode.Element) error {
	*r = append(*r, el)
	return nil
}

var pushTests = [...]struct {
	push   string
	called bool
	reply  string
}{
	0: {
		push:   `<iq xmlns='jabber:client' type='set' id='a'><query xmlns='jabber:iq:roster'><item jid='nurse@example.com' subscription='from'/></query></iq>`,
		called: true,
		reply:  "result",
	},
	1: {
		push:  `<iq xmlns='jabber:client' type='set' id='b' from='me@example.net'><query xmlns='jabber:iq:roster'><item jid='a@example.com'/><item jid='b@example.com'/></query></iq>`,
		reply: "error",
	},
	2: {
		push: `<iq xmlns='jabber:client' type='set' id='c' from='mallory@example.org'><query xmlns='jabber:iq:roster'><item jid='a@example.com'/></query></iq>`,
	},
}

func TestPush(t *testing.T) {
	self := jid.MustParse("me@example.net/phone")
	for i, tc := range pushTests {
		t.Run(strconv.Itoa(i), func(t *testing.T) {
			var w recorder
			var called bool
			m := mux.New()
			reg := stanza.NewRegistry()
			roster.Register(reg)
			roster.Handle(m, &w, func() jid.JID { return self }, func(roster.Item) {
				called = true
			})

			s := reg.Classify(xmlnode.MustParse(tc.push))
			if v := s.Variant(); v != roster.Variant {
				t.Errorf("wrong variant: want=%s, got=%s", roster.Variant, v)
			}
			m.Dispatch(s)
			if called != tc.called {
				t.Errorf("wrong call: want=%t, got=%t", tc.called, called)
			}
			switch {
			case tc.reply == "" && len(w) != 0:
				t.Errorf("expected push to be ignored, got %v", w)
			case tc.reply != "" && (len(w) != 1 || w[0].Attr("type") != tc.reply):
				t.Errorf("expected %s reply, got %v", tc.reply, w)
			}
		})
	}
}
