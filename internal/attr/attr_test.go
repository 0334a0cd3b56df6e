// Copyright 2017 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package attr_test

import (
	"encoding/xml"
	"strconv"
	"testing"

	"github.com/adhearsion/blather-sub001/internal/attr"
)

func TestGet(t *testing.T) {
	xmlLang := xml.Name{Space: "http://www.w3.org/XML/1998/namespace", Local: "lang"}
	attrs := []xml.Attr{
		{Name: xml.Name{Local: "type"}, Value: "chat"},
		{Name: xmlLang, Value: "en"},
		{Name: xml.Name{Local: "type"}, Value: "error"},
		{Name: xml.Name{Local: "lang"}, Value: "de"},
	}
	for i, tc := range [...]struct {
		attrs        []xml.Attr
		ns           bool
		space, local string
		idx          int
		val          string
	}{
		0: {local: "type", idx: -1},
		1: {attrs: attrs, local: "type", idx: 0, val: "chat"},
		2: {attrs: attrs, local: "lang", idx: 1, val: "en"},
		3: {attrs: attrs, ns: true, space: xmlLang.Space, local: "lang", idx: 1, val: "en"},
		4: {attrs: attrs, ns: true, local: "lang", idx: 3, val: "de"},
		5: {attrs: attrs, local: "id", idx: -1},
	} {
		t.Run(strconv.Itoa(i), func(t *testing.T) {
			var idx int
			var val string
			if tc.ns {
				idx, val = attr.GetNS(tc.attrs, tc.space, tc.local)
			} else {
				idx, val = attr.Get(tc.attrs, tc.local)
			}
			if idx != tc.idx || val != tc.val {
				t.Errorf("want=(%d, %q), got=(%d, %q)", tc.idx, tc.val, idx, val)
			}
		})
	}
}

func TestSetPreservesOrder(t *testing.T) {
	attrs := []xml.Attr{
		{Name: xml.Name{Local: "a"}, Value: "1"},
		{Name: xml.Name{Local: "b"}, Value: "2"},
	}
	attrs = attr.Set(attrs, xml.Name{Local: "a"}, "3")
	attrs = attr.Set(attrs, xml.Name{Local: "c"}, "4")
	if len(attrs) != 3 {
		t.Fatalf("wrong number of attributes: want=3, got=%d", len(attrs))
	}
	for i, want := range []string{"3", "2", "4"} {
		if attrs[i].Value != want {
			t.Errorf("attribute %d: want=%q, got=%q", i, want, attrs[i].Value)
		}
	}
	attrs = attr.Remove(attrs, xml.Name{Local: "b"})
	if idx, _ := attr.Get(attrs, "b"); idx != -1 {
		t.Errorf("expected attribute to be removed, found at %d", idx)
	}
}

func TestIsNSDecl(t *testing.T) {
	for i, tc := range [...]struct {
		attr xml.Attr
		decl bool
	}{
		0: {attr: xml.Attr{Name: xml.Name{Local: "xmlns"}}, decl: true},
		1: {attr: xml.Attr{Name: xml.Name{Space: "xmlns", Local: "stream"}}, decl: true},
		2: {attr: xml.Attr{Name: xml.Name{Local: "id"}}},
		3: {attr: xml.Attr{Name: xml.Name{Space: "http://www.w3.org/XML/1998/namespace", Local: "lang"}}},
	} {
		if got := attr.IsNSDecl(tc.attr); got != tc.decl {
			t.Errorf("%d: want=%t, got=%t", i, tc.decl, got)
		}
	}
}
