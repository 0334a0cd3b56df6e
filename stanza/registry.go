// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package stanza

import (
	"encoding/xml"
	"sync"

	"github.com/adhearsion/blather-sub001/xmlnode"
)

// Variant names the shape a stanza was classified as.
type Variant string

// Base variants. Extensions define their own.
const (
	VariantGeneric  Variant = "stanza"
	VariantIQ       Variant = "iq"
	VariantMessage  Variant = "message"
	VariantPresence Variant = "presence"
	VariantError    Variant = "error"
)

func baseVariant(k Kind, el *xmlnode.Element) Variant {
	if k != KindGeneric && el.Attr("type") == "error" {
		return VariantError
	}
	switch k {
	case KindIQ:
		return VariantIQ
	case KindMessage:
		return VariantMessage
	case KindPresence:
		return VariantPresence
	}
	return VariantGeneric
}

// A Constructor builds the typed value for an element that matched a
// registration. It must not modify the element and must be deterministic.
// A nil Constructor stores the element itself as the payload value.
type Constructor func(el *xmlnode.Element) (interface{}, error)

// Payload is an extension element carried by a stanza.
type Payload struct {
	Variant Variant
	Element *xmlnode.Element

	// Value is the result of the registration's constructor.
	Value interface{}

	// Err is the error returned by the constructor, if any.
	Err error
}

type registration struct {
	variant Variant
	ctor    Constructor
}

type rule struct {
	match func(*xmlnode.Element) bool
	registration
}

// Registry maps element names to variants.
//
// It is safe for concurrent use. Classification only takes a read lock so
// that many streams may share one registry; registration is expected to
// happen up front.
type Registry struct {
	mu    sync.RWMutex
	exact map[xml.Name]registration
	local map[string]registration
	rules []rule
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		exact: make(map[xml.Name]registration),
		local: make(map[string]registration),
	}
}

// Register associates elements with the given namespace and local name with a
// variant. If space is empty the registration matches elements with the local
// name in any namespace, but an exact registration always takes precedence.
// Registering the same name twice replaces the earlier registration.
func (r *Registry) Register(space, local string, v Variant, ctor Constructor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	reg := registration{variant: v, ctor: ctor}
	if space == "" {
		r.local[local] = reg
		return
	}
	r.exact[xml.Name{Space: space, Local: local}] = reg
}

// RegisterFunc adds a predicate rule. Rules are tried in registration order
// after name based registrations fail to match.
func (r *Registry) RegisterFunc(match func(*xmlnode.Element) bool, v Variant, ctor Constructor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rules = append(r.rules, rule{match: match, registration: registration{variant: v, ctor: ctor}})
}

// Lookup returns the variant registered for el, if any.
func (r *Registry) Lookup(el *xmlnode.Element) (Variant, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	reg, ok := r.lookup(el)
	return reg.variant, ok
}

func (r *Registry) lookup(el *xmlnode.Element) (registration, bool) {
	if reg, ok := r.exact[el.Name]; ok {
		return reg, true
	}
	if reg, ok := r.local[el.Name.Local]; ok {
		return reg, true
	}
	for _, rule := range r.rules {
		if rule.match(el) {
			return rule.registration, true
		}
	}
	return registration{}, false
}

// Classify resolves el to a stanza.
//
// The top level element determines the kind and, if registered, the variant.
// Every child that matches a registration is recorded as a payload and the
// first such child determines the most specific variant. Stanzas of type error
// always have VariantError. Classification never fails and has no side
// effects on el.
func (r *Registry) Classify(el *xmlnode.Element) Stanza {
	s := Wrap(el)

	r.mu.RLock()
	defer r.mu.RUnlock()

	if reg, ok := r.lookup(el); ok {
		s.variant = reg.variant
		if s.kind == KindGeneric {
			s.payloads = append(s.payloads, build(reg, el))
		}
	}
	var specific bool
	for _, c := range el.Children() {
		reg, ok := r.lookup(c)
		if !ok {
			continue
		}
		s.payloads = append(s.payloads, build(reg, c))
		if !specific {
			s.variant = reg.variant
			specific = true
		}
	}
	if s.IsError() && s.kind != KindGeneric {
		s.variant = VariantError
	}
	return s
}

func build(reg registration, el *xmlnode.Element) Payload {
	p := Payload{Variant: reg.variant, Element: el, Value: el}
	if reg.ctor != nil {
		p.Value, p.Err = reg.ctor(el)
	}
	return p
}
