// Copyright 2020 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package stream_test

import (
	"encoding/xml"
	"errors"
	"strconv"
	"strings"
	"testing"

	"github.com/adhearsion/blather-sub001/internal/ns"
	"github.com/adhearsion/blather-sub001/jid"
	"github.com/adhearsion/blather-sub001/stream"
	"github.com/adhearsion/blather-sub001/xmlnode"
)

var (
	_ error           = stream.Error{}
	_ xml.Marshaler   = stream.Error{}
	_ xml.Unmarshaler = (*stream.Error)(nil)
)

func TestSendHeader(t *testing.T) {
	for i, tc := range [...]struct {
		info stream.Info
		out  string
	}{
		0: {
			info: stream.Info{To: jid.MustParse("example.net"), Version: stream.DefaultVersion, Lang: "en"},
			out:  stream.XMLHeader + `<stream:stream to='example.net' version='1.0' xml:lang='en' xmlns='jabber:client' xmlns:stream='http://etherx.jabber.org/streams'>`,
		},
		1: {
			info: stream.Info{To: jid.MustParse("comp.example.net"), XMLNS: ns.Component},
			out:  stream.XMLHeader + `<stream:stream to='comp.example.net' xmlns='jabber:component:accept' xmlns:stream='http://etherx.jabber.org/streams'>`,
		},
		2: {
			info: stream.Info{To: jid.MustParse("example.net"), Lang: "a'b"},
			out:  stream.XMLHeader + `<stream:stream to='example.net' xml:lang='a&#39;b' xmlns='jabber:client' xmlns:stream='http://etherx.jabber.org/streams'>`,
		},
	} {
		t.Run(strconv.Itoa(i), func(t *testing.T) {
			var b strings.Builder
			if err := tc.info.Send(&b); err != nil {
				t.Fatalf("unexpected error: `%v'", err)
			}
			if b.String() != tc.out {
				t.Errorf("wrong header:\nwant=%s,\n got=%s", tc.out, b.String())
			}
		})
	}
}

func TestErrorFromElement(t *testing.T) {
	el := xmlnode.MustParse(`<error xmlns='http://etherx.jabber.org/streams'>` +
		`<conflict xmlns='urn:ietf:params:xml:ns:xmpp-streams'/>` +
		`<text xmlns='urn:ietf:params:xml:ns:xmpp-streams' xml:lang='en'>Replaced by new connection</text>` +
		`<escape-your-data xmlns='urn:example'/></error>`)
	if !stream.IsError(el) {
		t.Fatalf("element should be recognized as a stream error")
	}
	se := stream.FromElement(el)
	if !errors.Is(se, stream.Conflict) {
		t.Errorf("wrong condition: %v", se)
	}
	if se.Text != "Replaced by new connection" || se.Lang != "en" {
		t.Errorf("wrong text: %q (%q)", se.Text, se.Lang)
	}
	if se.App == nil || se.App.Name.Local != "escape-your-data" {
		t.Errorf("application condition not found")
	}

	out := stream.FromElement(se.Element())
	if out.Err != se.Err || out.Text != se.Text || out.App == nil {
		t.Errorf("round trip lost data: %+v", out)
	}
}

func TestErrorUnknownCondition(t *testing.T) {
	se := stream.FromElement(xmlnode.MustParse(`<error xmlns='http://etherx.jabber.org/streams'/>`))
	if !errors.Is(se, stream.UndefinedCondition) {
		t.Errorf("missing condition should be undefined-condition, got %v", se)
	}
}

func TestMarshalError(t *testing.T) {
	b, err := xml.Marshal(stream.NotWellFormed)
	if err != nil {
		t.Fatalf("unexpected error: `%v'", err)
	}
	const want = `<error xmlns="http://etherx.jabber.org/streams"><not-well-formed xmlns="urn:ietf:params:xml:ns:xmpp-streams"></not-well-formed></error>`
	if string(b) != want {
		t.Errorf("wrong output:\nwant=%s,\n got=%s", want, b)
	}

	var se stream.Error
	if err := xml.Unmarshal(b, &se); err != nil {
		t.Fatalf("unexpected error: `%v'", err)
	}
	if se.Err != "not-well-formed" {
		t.Errorf("wrong condition after unmarshal: %q", se.Err)
	}
}

func TestParseVersion(t *testing.T) {
	for i, tc := range [...]struct {
		in  string
		v   stream.Version
		err bool
	}{
		0: {in: "1.0", v: stream.Version{Major: 1}},
		1: {in: "0.9", v: stream.Version{Minor: 9}},
		2: {in: "1", err: true},
		3: {in: "a.b", err: true},
		4: {in: "256.0", err: true},
	} {
		t.Run(strconv.Itoa(i), func(t *testing.T) {
			v, err := stream.ParseVersion(tc.in)
			if (err != nil) != tc.err {
				t.Fatalf("unexpected error: `%v'", err)
			}
			if v != tc.v {
				t.Errorf("wrong version: want=%s, got=%s", tc.v, v)
			}
		})
	}
	if !(stream.Version{Minor: 9}).Less(stream.DefaultVersion) {
		t.Errorf("0.9 should be less than 1.0")
	}
}
