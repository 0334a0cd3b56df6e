// Copyright 2016 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package xmpp

import (
	"bufio"
	"context"
	"crypto/tls"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/adhearsion/blather-sub001/internal/ns"
	"github.com/adhearsion/blather-sub001/jid"
	"github.com/adhearsion/blather-sub001/stanza"
	"github.com/adhearsion/blather-sub001/stream"
	"github.com/adhearsion/blather-sub001/xmlnode"
	"github.com/benbjohnson/clock"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/language"
)

const (
	outboundQueue = 64
	closeTimeout  = 5 * time.Second
)

// Handler handles stanzas received once a session is ready.
// A non-nil error ends the session.
type Handler interface {
	HandleStanza(s stanza.Stanza) error
}

// The HandlerFunc type is an adapter to allow the use of ordinary functions as
// stanza handlers. If f is a function with the appropriate signature,
// HandlerFunc(f) is a Handler that calls f.
type HandlerFunc func(s stanza.Stanza) error

// HandleStanza calls f(s).
func (f HandlerFunc) HandleStanza(s stanza.Stanza) error {
	return f(s)
}

type outbound struct {
	el  *xmlnode.Element
	raw []byte
}

// A Session represents an XMPP session over a single connection.
//
// Reading, negotiation, and the handling of received stanzas happen on one
// goroutine so handlers observe stanzas in the order they were received.
// Stanzas sent with Send are written in order by a second goroutine.
type Session struct {
	cfg       Config
	logger    *slog.Logger
	reg       *stanza.Registry
	onState   []func(State)
	clock     clock.Clock
	keepalive time.Duration
	maxStanza int64

	// Owned by the reading goroutine.
	ctx     context.Context
	handler Handler
	r       *bufio.Reader
	parser  *stream.Parser
	authed  bool
	sasl    *saslState
	pending string
	session bool

	wmu        sync.Mutex
	w          io.Writer
	headerSent bool
	closeSent  bool

	mu       sync.RWMutex
	rwc      io.ReadWriteCloser
	state    State
	secure   bool
	tlsState tls.ConnectionState
	mech     string
	local    jid.JID
	in       stream.Info
	features Features

	out       chan outbound
	done      chan struct{}
	closeOnce sync.Once
	disc      *Disconnect
	closeErr  error
}

// NewSession returns a session that will negotiate a stream over rwc when Run
// is called.
// STARTTLS can only be negotiated if rwc is a net.Conn.
func NewSession(cfg Config, rwc io.ReadWriteCloser, opts ...Option) *Session {
	s := &Session{
		cfg:    cfg,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		reg:    stanza.NewRegistry(),
		clock:  clock.New(),
		rwc:    rwc,
		w:      rwc,
		out:    make(chan outbound, outboundQueue),
		done:   make(chan struct{}),
	}
	if _, ok := rwc.(*tls.Conn); ok {
		s.secure = true
	}
	for _, o := range opts {
		o(s)
	}
	s.r = bufio.NewReader(rwc)
	s.parser = stream.NewParser(s.r)
	s.parser.MaxStanzaSize = s.maxStanza
	return s
}

// Run negotiates the stream and then hands every received stanza to h until
// the session is disconnected.
// It returns nil if the session was shut down cleanly, either by Close or by
// the server closing the stream after negotiation finished, and a *Disconnect
// otherwise.
// Run must only be called once.
func (s *Session) Run(ctx context.Context, h Handler) error {
	if h == nil {
		h = HandlerFunc(func(stanza.Stanza) error { return nil })
	}
	s.ctx = ctx
	s.handler = h

	select {
	case <-s.done:
		return s.result()
	default:
	}
	s.setState(Connecting)
	if err := s.sendHeader(); err != nil {
		s.terminate(&Disconnect{Reason: ReasonTransport, Err: err})
		return s.result()
	}
	s.setState(StreamNegotiating)

	var ticker *clock.Ticker
	if s.keepalive > 0 {
		ticker = s.clock.Ticker(s.keepalive)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(s.readLoop)
	g.Go(s.writeLoop)
	if ticker != nil {
		g.Go(func() error {
			defer ticker.Stop()
			return s.keepaliveLoop(ticker)
		})
	}
	g.Go(func() error {
		select {
		case <-gctx.Done():
			s.terminate(&Disconnect{Reason: ReasonShutdown, Err: ctx.Err()})
		case <-s.done:
		}
		return nil
	})
	_ = g.Wait()
	return s.result()
}

func (s *Session) result() error {
	d := s.disc
	if d.Reason == ReasonShutdown && d.Err == nil {
		return nil
	}
	return d
}

func (s *Session) readLoop() error {
	for {
		ev, err := s.parser.Next()
		if err != nil {
			var perr *stream.ParseError
			if errors.As(err, &perr) {
				s.terminate(&Disconnect{Reason: ReasonParse, Err: perr, send: &perr.Cond})
			} else {
				s.terminate(&Disconnect{Reason: ReasonTransport, Err: err})
			}
			return nil
		}
		if err = s.handleEvent(ev); err != nil {
			var d *Disconnect
			if !errors.As(err, &d) {
				d = &Disconnect{Reason: ReasonTransport, Err: err}
			}
			s.terminate(d)
			return nil
		}
		select {
		case <-s.done:
			return nil
		default:
		}
	}
}

func (s *Session) writeLoop() error {
	for {
		select {
		case <-s.done:
			return nil
		case o := <-s.out:
			if err := s.write(o); err != nil {
				s.terminate(&Disconnect{Reason: ReasonTransport, Err: err})
				return nil
			}
		}
	}
}

func (s *Session) keepaliveLoop(t *clock.Ticker) error {
	for {
		select {
		case <-s.done:
			return nil
		case <-t.C:
			if s.State() != Ready {
				continue
			}
			if err := s.SendRaw(s.ctx, []byte{' '}); err != nil && !errors.Is(err, ErrSessionClosed) {
				s.logger.Debug("keepalive failed", "err", err)
			}
		}
	}
}

func (s *Session) handleEvent(ev stream.Event) error {
	switch ev.Kind {
	case stream.StreamOpened:
		return s.streamOpened(ev.Info)
	case stream.StreamClosed:
		if s.State() == Ready {
			return &Disconnect{Reason: ReasonShutdown}
		}
		return &Disconnect{Reason: ReasonProtocol, Err: ErrUnexpectedClose}
	}

	el := ev.Element
	if el.Name == (xml.Name{Space: stream.NS, Local: "error"}) {
		se := stream.FromElement(el)
		s.logger.Warn("received stream error", "condition", se.Err, "text", se.Text)
		return &Disconnect{Reason: ReasonStreamError, Err: se}
	}

	switch st := s.State(); st {
	case StreamNegotiating, StreamRestarting:
		if el.Name != (xml.Name{Space: stream.NS, Local: "features"}) {
			return s.unexpected(el)
		}
		f := ParseFeatures(el)
		s.mu.Lock()
		s.features = f
		s.mu.Unlock()
		return s.negotiate(f)
	case TLSNegotiating:
		return s.handleTLS(el)
	case SASLNegotiating:
		if s.cfg.Component {
			return s.handleHandshake(el)
		}
		return s.handleSASL(el)
	case ResourceBinding:
		return s.handleBind(el)
	case SessionEstablishing:
		return s.handleSession(el)
	case Ready:
		if err := s.handler.HandleStanza(s.reg.Classify(el)); err != nil {
			return &Disconnect{Reason: ReasonShutdown, Err: err}
		}
		return nil
	}
	return s.unexpected(el)
}

func (s *Session) unexpected(el *xmlnode.Element) error {
	err := fmt.Errorf("%w {%s}%s in state %v", ErrUnexpectedElement, el.Name.Space, el.Name.Local, s.State())
	s.logger.Warn("protocol violation", "err", err)
	return protocolError(stream.UnsupportedStanzaType, err)
}

func (s *Session) streamOpened(info stream.Info) error {
	s.mu.Lock()
	s.in = info
	s.mu.Unlock()

	if s.cfg.Component {
		return s.sendHandshake(info.ID)
	}
	if info.Version.Less(stream.DefaultVersion) {
		return protocolError(stream.UnsupportedVersion, fmt.Errorf("%w: %s", stream.ErrBadVersion, info.Version))
	}
	return nil
}

// negotiate picks the next step after a <stream:features/> element.
func (s *Session) negotiate(f Features) error {
	secure := s.Secure()
	if !secure && f.StartTLS && s.cfg.TLS != TLSDisabled {
		// Offered STARTTLS is never skipped in favor of plaintext SASL.
		if !s.canTLS() {
			return &Disconnect{Reason: ReasonProtocol, Err: ErrTLSUnavailable}
		}
		s.setState(TLSNegotiating)
		return s.writeNegotiation(xmlnode.New(ns.StartTLS, "starttls"))
	}
	if !secure && s.cfg.TLS == TLSRequired {
		return &Disconnect{Reason: ReasonProtocol, Err: ErrTLSRequired}
	}
	if !s.authed {
		return s.startSASL(f.Mechanisms)
	}
	if !f.Bind {
		return &Disconnect{Reason: ReasonProtocol, Err: ErrNoBind}
	}
	s.session = f.Session && !f.SessionOptional
	return s.bind()
}

func (s *Session) canTLS() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.rwc.(net.Conn)
	return ok
}

// restart resets the parser and sends a new stream header.
func (s *Session) restart() error {
	s.parser.Reset(s.r)
	if err := s.sendHeader(); err != nil {
		return &Disconnect{Reason: ReasonTransport, Err: err}
	}
	return nil
}

func (s *Session) sendHeader() error {
	info := stream.Info{
		To:      s.cfg.JID.Domain(),
		Version: stream.DefaultVersion,
		XMLNS:   ns.Client,
	}
	if s.cfg.Component {
		info.Version = stream.Version{}
		info.XMLNS = ns.Component
	}
	if s.cfg.Lang != language.Und {
		info.Lang = s.cfg.Lang.String()
	}
	s.wmu.Lock()
	defer s.wmu.Unlock()
	s.headerSent = true
	return info.Send(s.w)
}

// writeNegotiation writes el synchronously.
// It is used during negotiation when the outbound queue is not yet in use.
func (s *Session) writeNegotiation(el *xmlnode.Element) error {
	if err := s.write(outbound{el: el}); err != nil {
		return &Disconnect{Reason: ReasonTransport, Err: err}
	}
	return nil
}

func (s *Session) write(o outbound) error {
	s.wmu.Lock()
	defer s.wmu.Unlock()
	if s.closeSent {
		return ErrSessionClosed
	}
	return s.writeLocked(o)
}

func (s *Session) writeLocked(o outbound) error {
	if o.raw != nil {
		_, err := s.w.Write(o.raw)
		return err
	}
	e := xml.NewEncoder(s.w)
	if _, err := o.el.WriteXML(e); err != nil {
		return err
	}
	return e.Flush()
}

func (s *Session) enqueue(ctx context.Context, o outbound) error {
	select {
	case <-s.done:
		return ErrSessionClosed
	default:
	}
	if s.State() != Ready {
		return ErrNotReady
	}
	select {
	case s.out <- o:
		return nil
	case <-s.done:
		return ErrSessionClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Send queues el to be written to the stream.
// Elements are written in the order they are queued.
// If the session is not ready ErrNotReady is returned.
func (s *Session) Send(ctx context.Context, el *xmlnode.Element) error {
	return s.enqueue(ctx, outbound{el: el})
}

// SendRaw queues raw bytes to be written to the stream.
// No validation is performed on p.
func (s *Session) SendRaw(ctx context.Context, p []byte) error {
	return s.enqueue(ctx, outbound{raw: p})
}

// Close ends the stream and closes the underlying connection.
// Pending writes that have not yet been written are discarded.
func (s *Session) Close() error {
	s.terminate(&Disconnect{Reason: ReasonShutdown})
	return s.closeErr
}

func (s *Session) terminate(d *Disconnect) {
	s.closeOnce.Do(func() {
		s.disc = d
		if d.Reason == ReasonShutdown {
			s.logger.Debug("session closed", "err", d.Err)
		} else {
			s.logger.Warn("session disconnected", "reason", d.Reason, "err", d.Err)
		}

		s.mu.RLock()
		rwc := s.rwc
		s.mu.RUnlock()
		if c, ok := rwc.(net.Conn); ok {
			/* #nosec */
			c.SetWriteDeadline(time.Now().Add(closeTimeout))
		}

		var err error
		s.wmu.Lock()
		if s.headerSent && !s.closeSent {
			if d.send != nil {
				err = multierr.Append(err, s.writeLocked(outbound{el: d.send.Element()}))
			}
			_, werr := io.WriteString(s.w, stream.CloseTag)
			err = multierr.Append(err, werr)
			s.closeSent = true
		}
		s.wmu.Unlock()
		err = multierr.Append(err, rwc.Close())
		if d.Reason != ReasonShutdown {
			// Write errors are expected when the transport has already failed.
			err = nil
		}
		s.closeErr = err

		s.setState(Disconnected)
		close(s.done)
	})
}

func (s *Session) setState(st State) {
	s.mu.Lock()
	prev := s.state
	s.state = st
	s.mu.Unlock()
	if prev == st {
		return
	}
	s.logger.Debug("state changed", "from", prev, "to", st)
	for _, f := range s.onState {
		f(st)
	}
}

// State returns the current negotiation state.
func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Done returns a channel that is closed when the session is disconnected.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Err returns the reason the session was disconnected, or nil if it is still
// running.
func (s *Session) Err() *Disconnect {
	select {
	case <-s.done:
		return s.disc
	default:
		return nil
	}
}

// Secure reports whether the underlying connection is encrypted.
func (s *Session) Secure() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.secure
}

// ConnectionState returns the TLS state of the connection if it is secure.
func (s *Session) ConnectionState() tls.ConnectionState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tlsState
}

// Mechanism returns the name of the SASL mechanism that authenticated the
// session.
func (s *Session) Mechanism() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.mech
}

// LocalAddr returns the address bound to the session.
// Before resource binding completes it is the configured JID.
func (s *Session) LocalAddr() jid.JID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.local.IsZero() {
		return s.cfg.JID
	}
	return s.local
}

// RemoteAddr returns the address of the server, as sent in its stream header
// or derived from the configured JID.
func (s *Session) RemoteAddr() jid.JID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.in.From.IsZero() {
		return s.in.From
	}
	return s.cfg.JID.Domain()
}

// StreamID returns the id the server assigned to the current stream.
func (s *Session) StreamID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.in.ID
}

// Features returns the features advertised on the most recent stream.
func (s *Session) Features() Features {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.features
}
