// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

// Package xmlnode implements a small mutable XML element tree.
//
// Elements are what the stream parser materializes for every stanza and what
// the rest of the library inspects and builds. Each element keeps a reference
// to its parent so that it can be detached from the tree it was parsed into.
package xmlnode // import "github.com/adhearsion/blather-sub001/xmlnode"

import (
	"encoding/xml"

	"github.com/adhearsion/blather-sub001/internal/attr"
	"github.com/adhearsion/blather-sub001/internal/ns"
)

// Element is a generic and mutable XML element.
// Name.Space holds the resolved namespace URI of the element, never a prefix.
type Element struct {
	Name xml.Name

	attr     []xml.Attr
	text     string
	children []*Element
	parent   *Element

	// lang is the language inherited from a tree the element was removed from.
	lang string
}

// New creates a detached element with the given namespace and local name.
func New(space, local string) *Element {
	return &Element{Name: xml.Name{Space: space, Local: local}}
}

// FromStart creates a detached element from a start token.
// Namespace declarations are dropped; the namespace of the element and of any
// prefixed attributes has already been resolved by the decoder.
func FromStart(start xml.StartElement) *Element {
	e := &Element{Name: start.Name}
	for _, a := range start.Attr {
		if attr.IsNSDecl(a) {
			continue
		}
		e.attr = append(e.attr, a)
	}
	return e
}

// NewChild creates a new element in the same namespace as e and appends it to
// e's children.
func (e *Element) NewChild(local string) *Element {
	return e.AppendChild(New(e.Name.Space, local))
}

// Parent returns the element that e is a child of, or nil if e is detached.
func (e *Element) Parent() *Element {
	return e.parent
}

// Attr returns the value of the first attribute with the given local name.
func (e *Element) Attr(local string) string {
	_, v := attr.Get(e.attr, local)
	return v
}

// AttrNS returns the value of the first attribute with the given namespace
// and local name.
func (e *Element) AttrNS(space, local string) string {
	_, v := attr.GetNS(e.attr, space, local)
	return v
}

// HasAttr reports whether an attribute with the local name exists.
func (e *Element) HasAttr(local string) bool {
	idx, _ := attr.Get(e.attr, local)
	return idx != -1
}

// SetAttr sets an unqualified attribute.
// Setting "xmlns" changes the namespace of the element instead.
func (e *Element) SetAttr(local, value string) {
	if local == ns.XMLNS {
		e.Name.Space = value
		return
	}
	e.attr = attr.Set(e.attr, xml.Name{Local: local}, value)
}

// SetAttrNS sets a namespaced attribute.
func (e *Element) SetAttrNS(space, local, value string) {
	e.attr = attr.Set(e.attr, xml.Name{Space: space, Local: local}, value)
}

// RemoveAttr removes all unqualified attributes with the given local name.
func (e *Element) RemoveAttr(local string) {
	e.attr = attr.Remove(e.attr, xml.Name{Local: local})
}

// Attrs returns a copy of the element's attributes in document order.
func (e *Element) Attrs() []xml.Attr {
	out := make([]xml.Attr, len(e.attr))
	copy(out, e.attr)
	return out
}

// Lang returns the language of the element.
// If e has no xml:lang attribute the language of its nearest ancestor is used.
// Elements removed from a tree keep the language they inherited from it.
func (e *Element) Lang() string {
	if l := e.AttrNS(ns.XML, "lang"); l != "" {
		return l
	}
	if e.parent != nil {
		if l := e.parent.Lang(); l != "" {
			return l
		}
	}
	return e.lang
}

// SetLang sets the xml:lang attribute of the element.
func (e *Element) SetLang(lang string) {
	if lang == "" {
		e.attr = attr.Remove(e.attr, xml.Name{Space: ns.XML, Local: "lang"})
		return
	}
	e.SetAttrNS(ns.XML, "lang", lang)
}

// Text returns the character data directly contained in e.
func (e *Element) Text() string {
	return e.text
}

// SetText replaces the character data of e.
func (e *Element) SetText(s string) {
	e.text = s
}

// Children returns the child elements of e in document order.
// The returned slice is a copy; modifying it does not modify e.
func (e *Element) Children() []*Element {
	out := make([]*Element, len(e.children))
	copy(out, e.children)
	return out
}

// Len returns the number of child elements.
func (e *Element) Len() int {
	return len(e.children)
}

// Matches reports whether the element has the given name.
// An empty space or local name matches any.
func (e *Element) Matches(space, local string) bool {
	return (space == "" || e.Name.Space == space) && (local == "" || e.Name.Local == local)
}

// FirstChild returns the first child matching the namespace and local name or
// nil. An empty space or local name matches any.
func (e *Element) FirstChild(space, local string) *Element {
	for _, c := range e.children {
		if c.Matches(space, local) {
			return c
		}
	}
	return nil
}

// FindAll returns all children matching the namespace and local name.
func (e *Element) FindAll(space, local string) []*Element {
	var out []*Element
	for _, c := range e.children {
		if c.Matches(space, local) {
			out = append(out, c)
		}
	}
	return out
}

// AppendChild appends c to the children of e and returns c.
// If c is already attached to a tree it is detached first.
func (e *Element) AppendChild(c *Element) *Element {
	if c.parent != nil {
		c.Detach()
	}
	c.parent = e
	e.children = append(e.children, c)
	return c
}

// RemoveChild removes c from the children of e.
// It reports whether c was a child of e.
func (e *Element) RemoveChild(c *Element) bool {
	for i, child := range e.children {
		if child != c {
			continue
		}
		copy(e.children[i:], e.children[i+1:])
		e.children[len(e.children)-1] = nil
		e.children = e.children[:len(e.children)-1]
		c.orphan()
		return true
	}
	return false
}

// RemoveChildren detaches every child of e.
func (e *Element) RemoveChildren() {
	for _, c := range e.children {
		c.orphan()
	}
	e.children = nil
}

func (e *Element) orphan() {
	if l := e.Lang(); l != "" {
		e.lang = l
	}
	e.parent = nil
}

// Detach removes e from its parent. It is a no-op on a detached element.
func (e *Element) Detach() {
	if e.parent != nil {
		e.parent.RemoveChild(e)
	}
}

// Copy returns a deep copy of e that is not attached to any tree.
func (e *Element) Copy() *Element {
	c := &Element{
		Name: e.Name,
		text: e.text,
		lang: e.Lang(),
	}
	if len(e.attr) > 0 {
		c.attr = make([]xml.Attr, len(e.attr))
		copy(c.attr, e.attr)
	}
	for _, child := range e.children {
		cc := child.Copy()
		cc.parent = c
		c.children = append(c.children, cc)
	}
	return c
}

// Start returns a start token for e.
func (e *Element) Start() xml.StartElement {
	return xml.StartElement{Name: e.Name, Attr: e.Attrs()}
}
