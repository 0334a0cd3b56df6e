// Copyright 2017 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package stanza_test

import (
	"encoding/xml"
	"errors"
	"strconv"
	"strings"
	"testing"

	"github.com/adhearsion/blather-sub001/stanza"
	"github.com/adhearsion/blather-sub001/xmlnode"
)

var errorParseTestCases = [...]struct {
	in   string
	want stanza.Error
	err  bool
}{
	0: {
		in:   `<error type="cancel"><service-unavailable xmlns="urn:ietf:params:xml:ns:xmpp-stanzas"/></error>`,
		want: stanza.Error{Type: stanza.Cancel, Condition: stanza.ServiceUnavailable},
	},
	1: {
		in:   `<error type="modify"><bad-request xmlns="urn:ietf:params:xml:ns:xmpp-stanzas"/><text xmlns="urn:ietf:params:xml:ns:xmpp-stanzas" xml:lang="en">nope</text></error>`,
		want: stanza.Error{Type: stanza.Modify, Condition: stanza.BadRequest, Text: "nope", Lang: "en"},
	},
	2: {
		in:   `<error type="wait"/>`,
		want: stanza.Error{Type: stanza.Wait, Condition: stanza.UndefinedCondition},
	},
	3: {
		in:   `<error type="sideways"><conflict xmlns="urn:ietf:params:xml:ns:xmpp-stanzas"/></error>`,
		want: stanza.Error{Type: "sideways", Condition: stanza.Conflict},
		err:  true,
	},
}

func TestErrorFromElement(t *testing.T) {
	for i, tc := range errorParseTestCases {
		t.Run(strconv.Itoa(i), func(t *testing.T) {
			se, err := stanza.ErrorFromElement(xmlnode.MustParse(tc.in))
			switch {
			case tc.err && err == nil:
				t.Fatalf("expected error")
			case !tc.err && err != nil:
				t.Fatalf("unexpected error: `%v'", err)
			}
			if se.Type != tc.want.Type || se.Condition != tc.want.Condition ||
				se.Text != tc.want.Text || se.Lang != tc.want.Lang {
				t.Errorf("wrong error:\nwant=%+v,\n got=%+v", tc.want, se)
			}
		})
	}
}

func TestErrorIs(t *testing.T) {
	err := error(stanza.Error{Type: stanza.Auth, Condition: stanza.Forbidden, Text: "go away"})
	if !errors.Is(err, stanza.Error{Condition: stanza.Forbidden}) {
		t.Errorf("expected errors with the same condition to match")
	}
	if errors.Is(err, stanza.Error{Condition: stanza.Conflict}) {
		t.Errorf("did not expect errors with different conditions to match")
	}
	if s := err.Error(); s != "forbidden: go away" {
		t.Errorf("wrong error string: %q", s)
	}
}

func TestErrorMarshal(t *testing.T) {
	se := stanza.Error{
		Type:      stanza.Cancel,
		Condition: stanza.ItemNotFound,
		Text:      "gone",
		App:       xmlnode.New("urn:app", "thing"),
	}
	b, err := xml.Marshal(se)
	if err != nil {
		t.Fatalf("unexpected error: `%v'", err)
	}
	out := string(b)
	for _, want := range []string{
		`type="cancel"`,
		`<item-not-found xmlns="urn:ietf:params:xml:ns:xmpp-stanzas">`,
		`<thing xmlns="urn:app">`,
		`>gone</text>`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("expected output to contain %s, got=%s", want, out)
		}
	}

	var got stanza.Error
	if err = xml.Unmarshal(b, &got); err != nil {
		t.Fatalf("unexpected error: `%v'", err)
	}
	if got.Condition != se.Condition || got.Text != se.Text || got.App == nil {
		t.Errorf("round trip lost data: %+v", got)
	}
}
