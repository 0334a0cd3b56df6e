// Copyright 2017 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

// Package mux implements an XMPP stanza multiplexer.
//
// Handlers are registered with a guard and a priority.
// Each dispatched stanza runs through three phases: before filters, handlers,
// and after filters.
// Within a phase every registration whose guard matches is called in ascending
// priority order, ties being broken by registration order, until one of them
// returns Halt.
package mux // import "github.com/adhearsion/blather-sub001/mux"

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"sort"
	"sync"

	"github.com/adhearsion/blather-sub001/stanza"
)

// Halt may be returned by a handler or filter to stop the remaining
// registrations in the same phase from being called.
// A before filter that returns Halt drops the stanza entirely.
var Halt = errors.New("mux: halt")

// Handler responds to a stanza.
type Handler interface {
	HandleStanza(s stanza.Stanza) error
}

// The HandlerFunc type is an adapter to allow the use of ordinary functions as
// handlers. If f is a function with the appropriate signature, HandlerFunc(f)
// is a Handler that calls f.
type HandlerFunc func(s stanza.Stanza) error

// HandleStanza calls f(s).
func (f HandlerFunc) HandleStanza(s stanza.Stanza) error {
	return f(s)
}

// HandlerError is reported to the error handler when a handler returns an
// error or panics.
type HandlerError struct {
	Stanza stanza.Stanza
	Err    error
}

func (e *HandlerError) Error() string {
	return fmt.Sprintf("mux: handler for %s id=%q failed: %v", e.Stanza.Variant(), e.Stanza.ID(), e.Err)
}

// Unwrap returns the error returned by the handler.
func (e *HandlerError) Unwrap() error {
	return e.Err
}

type phase uint8

const (
	phaseBefore phase = iota
	phaseHandle
	phaseAfter
	phaseCount
)

// Registration is a handle to a registered handler.
// It can be passed to Remove.
type Registration struct {
	Guard    Guard
	Priority int
	Handler  Handler
	Once     bool

	fail  func(error)
	phase phase
	seq   uint64
}

// Mux dispatches stanzas to registered handlers.
// It is safe for concurrent use; handlers may register and remove handlers
// while a stanza is being dispatched.
// The zero value is not usable, use New.
type Mux struct {
	mu      sync.Mutex
	entries [phaseCount][]*Registration
	seq     uint64

	logger   *slog.Logger
	onError  func(error)
	fallback Writer
}

// New allocates and returns a new Mux.
func New(opt ...Option) *Mux {
	m := &Mux{
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, o := range opt {
		o(m)
	}
	return m
}

func (m *Mux) add(p phase, r *Registration) *Registration {
	if r.Handler == nil {
		panic("mux: nil handler")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	r.seq = m.seq
	r.phase = p
	entries := append(m.entries[p], r)
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Priority != entries[j].Priority {
			return entries[i].Priority < entries[j].Priority
		}
		return entries[i].seq < entries[j].seq
	})
	m.entries[p] = entries
	return r
}

// Handle registers h to be called for stanzas matching g.
// Lower priorities run first.
func (m *Mux) Handle(g Guard, priority int, h Handler) *Registration {
	return m.add(phaseHandle, &Registration{Guard: g, Priority: priority, Handler: h})
}

// HandleFunc is like Handle but takes a function.
func (m *Mux) HandleFunc(g Guard, priority int, f HandlerFunc) *Registration {
	return m.Handle(g, priority, f)
}

// HandleOnce registers h to be called for the first stanza matching g.
// The registration is removed before h is called.
func (m *Mux) HandleOnce(g Guard, priority int, h Handler) *Registration {
	return m.add(phaseHandle, &Registration{Guard: g, Priority: priority, Handler: h, Once: true})
}

// Expect registers a one-shot handler for the response to a stanza with the
// given id.
// It runs before every other handler and halts further handling of the
// response.
// Errors returned by h are reported to the error handler.
// If the registration is failed by FailPending before a response arrives, fail
// is called with the error instead.
// Expect panics if id is empty.
func (m *Mux) Expect(id string, h Handler, fail func(error)) *Registration {
	if id == "" {
		panic("mux: empty id")
	}
	g := Guard{
		ID: id,
		Func: func(s stanza.Stanza) bool {
			return !s.IsRequest()
		},
	}
	wrapped := HandlerFunc(func(s stanza.Stanza) error {
		err := m.call(h, s)
		if err != nil && !errors.Is(err, Halt) {
			m.report(&HandlerError{Stanza: s, Err: err})
		}
		return Halt
	})
	return m.add(phaseHandle, &Registration{
		Guard:    g,
		Priority: math.MinInt,
		Handler:  wrapped,
		Once:     true,
		fail:     fail,
	})
}

// Before registers a filter that runs before any handler.
func (m *Mux) Before(g Guard, h Handler) *Registration {
	return m.add(phaseBefore, &Registration{Guard: g, Handler: h})
}

// After registers a filter that runs after the handlers.
func (m *Mux) After(g Guard, h Handler) *Registration {
	return m.add(phaseAfter, &Registration{Guard: g, Handler: h})
}

// Remove unregisters r.
// It reports whether r was still registered.
func (m *Mux) Remove(r *Registration) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.remove(r)
}

func (m *Mux) remove(r *Registration) bool {
	entries := m.entries[r.phase]
	for i, e := range entries {
		if e == r {
			m.entries[r.phase] = append(entries[:i:i], entries[i+1:]...)
			return true
		}
	}
	return false
}

// Len returns the number of registrations in all phases.
func (m *Mux) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int
	for _, entries := range m.entries {
		n += len(entries)
	}
	return n
}

// FailPending removes every one-shot registration and calls the fail callback
// of each with err.
func (m *Mux) FailPending(err error) {
	var failed []*Registration
	m.mu.Lock()
	for p, entries := range m.entries {
		kept := entries[:0:0]
		for _, e := range entries {
			if e.Once {
				failed = append(failed, e)
				continue
			}
			kept = append(kept, e)
		}
		m.entries[p] = kept
	}
	m.mu.Unlock()

	for _, e := range failed {
		if e.fail != nil {
			e.fail(err)
		}
	}
}

// HandleStanza dispatches s and satisfies the Handler interface.
// It never returns an error, handler failures are reported to the error
// handler.
func (m *Mux) HandleStanza(s stanza.Stanza) error {
	m.Dispatch(s)
	return nil
}

// Dispatch runs s through the before filters, the handlers, and the after
// filters.
// It reports whether any handler (not counting filters) matched s.
func (m *Mux) Dispatch(s stanza.Stanza) (handled bool) {
	if _, halted := m.run(phaseBefore, s); halted {
		return false
	}
	handled, _ = m.run(phaseHandle, s)
	if !handled && m.fallback != nil && s.IsRequest() {
		m.respondUnavailable(s)
	}
	m.run(phaseAfter, s)
	return handled
}

func (m *Mux) snapshot(p phase) []*Registration {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*Registration, len(m.entries[p]))
	copy(out, m.entries[p])
	return out
}

func (m *Mux) run(p phase, s stanza.Stanza) (matched, halted bool) {
	for _, r := range m.snapshot(p) {
		if !r.Guard.Match(s) {
			continue
		}
		if r.Once {
			m.mu.Lock()
			ok := m.remove(r)
			m.mu.Unlock()
			if !ok {
				// Already fired, removed, or failed.
				continue
			}
		}
		matched = true
		err := m.call(r.Handler, s)
		if errors.Is(err, Halt) {
			return matched, true
		}
		if err != nil {
			m.report(&HandlerError{Stanza: s, Err: err})
		}
	}
	return matched, false
}

func (m *Mux) call(h Handler, s stanza.Stanza) (err error) {
	defer func() {
		if v := recover(); v != nil {
			err = fmt.Errorf("mux: handler panicked: %v", v)
		}
	}()
	return h.HandleStanza(s)
}

func (m *Mux) report(err error) {
	m.logger.Warn("handler failed", "err", err)
	if m.onError != nil {
		m.onError(err)
	}
}
