// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package xmlnode_test

import (
	"encoding/xml"
	"strconv"
	"strings"
	"testing"

	"github.com/adhearsion/blather-sub001/xmlnode"
	"mellium.im/xmlstream"
)

func TestParentInvariant(t *testing.T) {
	root := xmlnode.New("jabber:client", "message")
	body := root.NewChild("body")
	if body.Parent() != root {
		t.Fatalf("new child should point at its parent")
	}
	if body.Name.Space != "jabber:client" {
		t.Errorf("new child should inherit namespace: got=%q", body.Name.Space)
	}

	other := xmlnode.New("jabber:client", "presence")
	other.AppendChild(body)
	if body.Parent() != other {
		t.Errorf("appending an attached node should move it")
	}
	if root.Len() != 0 {
		t.Errorf("moved node still listed in old parent: %d children", root.Len())
	}

	body.Detach()
	if body.Parent() != nil || other.Len() != 0 {
		t.Errorf("detach should clear the back reference and remove the child")
	}
	body.Detach()

	if other.RemoveChild(body) {
		t.Errorf("removing a node that is not a child should report false")
	}
}

func TestCopyIsDeepAndDetached(t *testing.T) {
	root := xmlnode.MustParse(`<iq xmlns='jabber:client' id='1'><query xmlns='urn:test'><item a='b'/></query></iq>`)
	query := root.FirstChild("urn:test", "query")
	c := query.Copy()
	if c.Parent() != nil {
		t.Errorf("copy should be detached")
	}
	c.FirstChild("", "item").SetAttr("a", "c")
	if v := query.FirstChild("", "item").Attr("a"); v != "b" {
		t.Errorf("mutating the copy changed the original: got=%q", v)
	}
	if c.FirstChild("", "item").Parent() != c {
		t.Errorf("copied children should point at the copied parent")
	}
}

func TestFind(t *testing.T) {
	el := xmlnode.MustParse(`<message xmlns='jabber:client'><x xmlns='urn:a'/><x xmlns='urn:b'/><body>hi</body></message>`)
	for i, tc := range [...]struct {
		space, local string
		n            int
	}{
		0: {local: "x", n: 2},
		1: {space: "urn:a", local: "x", n: 1},
		2: {space: "urn:c", local: "x", n: 0},
		3: {n: 3},
		4: {space: "jabber:client", n: 1},
	} {
		t.Run(strconv.Itoa(i), func(t *testing.T) {
			if got := len(el.FindAll(tc.space, tc.local)); got != tc.n {
				t.Errorf("wrong number of matches: want=%d, got=%d", tc.n, got)
			}
		})
	}
	if body := el.FirstChild("", "body"); body == nil || body.Text() != "hi" {
		t.Errorf("failed to find body text")
	}
}

func TestAttributes(t *testing.T) {
	el := xmlnode.New("jabber:client", "iq")
	el.SetAttr("type", "get")
	el.SetAttr("id", "1")
	el.SetAttr("type", "set")
	el.SetLang("en")
	attrs := el.Attrs()
	if len(attrs) != 3 || attrs[0].Value != "set" || attrs[1].Value != "1" {
		t.Errorf("unexpected attributes: %+v", attrs)
	}
	if el.Lang() != "en" {
		t.Errorf("wrong lang: %q", el.Lang())
	}
	el.RemoveAttr("id")
	if el.HasAttr("id") {
		t.Errorf("attribute should have been removed")
	}
	el.SetAttr("xmlns", "jabber:server")
	if el.Name.Space != "jabber:server" || el.HasAttr("xmlns") {
		t.Errorf("setting xmlns should change the namespace, got %+v", el.Name)
	}
}

func TestLangInherited(t *testing.T) {
	root := xmlnode.New("jabber:client", "stream")
	root.SetLang("en")
	msg := root.NewChild("message")
	body := msg.NewChild("body")
	fr := root.NewChild("presence")
	fr.SetLang("fr")

	if l := body.Lang(); l != "en" {
		t.Errorf("wrong lang from ancestor: want=en, got=%q", l)
	}
	msg.Detach()
	if l := msg.Lang(); l != "en" {
		t.Errorf("detached element lost its lang: want=en, got=%q", l)
	}
	if l := body.Lang(); l != "en" {
		t.Errorf("child of detached element lost its lang: want=en, got=%q", l)
	}
	if msg.HasAttr("lang") {
		t.Errorf("inherited lang should not be added as an attribute")
	}
	if l := msg.Copy().Lang(); l != "en" {
		t.Errorf("copy lost its lang: want=en, got=%q", l)
	}
	root.RemoveChildren()
	if l := fr.Lang(); l != "fr" {
		t.Errorf("own lang should win: want=fr, got=%q", l)
	}
	if l := xmlnode.New("jabber:client", "iq").Lang(); l != "" {
		t.Errorf("element without a tree should have no lang, got %q", l)
	}
}

var encodeTests = [...]struct {
	in      string
	inherit string
	out     string
}{
	0: {
		in:  `<iq xmlns='jabber:client' type='get' id='1'><query xmlns='urn:test'/></iq>`,
		out: `<iq xmlns="jabber:client" type="get" id="1"><query xmlns="urn:test"></query></iq>`,
	},
	1: {
		in:      `<iq xmlns='jabber:client' type='get' id='1'><query xmlns='urn:test'/></iq>`,
		inherit: "jabber:client",
		out:     `<iq type="get" id="1"><query xmlns="urn:test"></query></iq>`,
	},
	2: {
		in:      `<message xmlns='jabber:client' xml:lang='en'><body>a &amp; b</body></message>`,
		inherit: "jabber:client",
		out:     `<message xml:lang="en"><body>a &amp; b</body></message>`,
	},
	3: {
		in:  `<a xmlns='urn:a'><b xmlns=''/></a>`,
		out: `<a xmlns="urn:a"><b xmlns=""></b></a>`,
	},
}

func TestEncode(t *testing.T) {
	for i, tc := range encodeTests {
		t.Run(strconv.Itoa(i), func(t *testing.T) {
			el := xmlnode.MustParse(tc.in)
			var b strings.Builder
			e := xml.NewEncoder(&b)
			var err error
			if tc.inherit == "" {
				_, err = el.WriteXML(e)
			} else {
				_, err = xmlstream.Copy(e, el.TokenReaderIn(tc.inherit))
			}
			if err != nil {
				t.Fatalf("unexpected error: `%v'", err)
			}
			if err = e.Flush(); err != nil {
				t.Fatalf("unexpected error flushing: `%v'", err)
			}
			if out := b.String(); out != tc.out {
				t.Errorf("wrong output:\nwant=%s,\n got=%s", tc.out, out)
			}
		})
	}
}

func TestRoundTripString(t *testing.T) {
	el := xmlnode.New("jabber:client", "presence")
	el.SetAttr("type", "unavailable")
	el.NewChild("status").SetText("gone")
	parsed, err := xmlnode.Parse(el.String())
	if err != nil {
		t.Fatalf("unexpected error: `%v'", err)
	}
	if parsed.Attr("type") != "unavailable" || parsed.FirstChild("jabber:client", "status").Text() != "gone" {
		t.Errorf("round trip lost data: %s", parsed)
	}
}

func TestParseErrors(t *testing.T) {
	if _, err := xmlnode.Parse(""); err != xmlnode.ErrNoElement {
		t.Errorf("wrong error for empty input: %v", err)
	}
	if _, err := xmlnode.Parse("<a><b></a>"); err == nil {
		t.Errorf("expected error for malformed input")
	}
}
