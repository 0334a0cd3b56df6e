// Copyright 2016 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"
	"time"

	xmpp "github.com/adhearsion/blather-sub001"
	"github.com/adhearsion/blather-sub001/dial"
	"github.com/adhearsion/blather-sub001/internal/attr"
	"github.com/adhearsion/blather-sub001/jid"
	"github.com/adhearsion/blather-sub001/mux"
	"github.com/adhearsion/blather-sub001/roster"
	"github.com/adhearsion/blather-sub001/stanza"
	"github.com/adhearsion/blather-sub001/xmlnode"
	"github.com/benbjohnson/clock"
	"github.com/prometheus/client_golang/prometheus"
)

// componentPort is the port dialed for components when none is configured.
const componentPort = 5347

const errorQueue = 16

// rosterTimeout bounds the roster fetch that follows session establishment.
const rosterTimeout = 30 * time.Second

// Errors returned by the client package.
var (
	ErrClosed     = errors.New("client: closed")
	ErrRunning    = errors.New("client: already running")
	ErrNotRequest = errors.New("client: SendIQ requires an IQ of type get or set")
)

// A Client represents an XMPP client capable of making a single
// client-to-server (C2S) connection on behalf of the configured JID.
type Client struct {
	cfg        xmpp.Config
	logger     *slog.Logger
	dialer     dial.Dialer
	dialFunc   func(context.Context) (net.Conn, error)
	reg        *stanza.Registry
	mux        *mux.Mux
	keepalive  time.Duration
	clock      clock.Clock
	presence   bool
	roster     *roster.List
	registerer prometheus.Registerer
	metrics    *metrics
	errs       chan error

	mu           sync.Mutex
	session      *xmpp.Session
	running      bool
	closed       bool
	onReady      []func()
	onDisconnect []func(*xmpp.Disconnect)
}

// New creates a new XMPP client with the given options.
// Nothing is dialed until Run is called.
func New(cfg xmpp.Config, opts ...Option) *Client {
	c := &Client{
		cfg:    cfg,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		reg:    stanza.NewRegistry(),
		errs:   make(chan error, errorQueue),
	}
	for _, o := range opts {
		o(c)
	}
	c.metrics = newMetrics(c.registerer)
	c.mux = mux.New(
		mux.Logger(c.logger),
		mux.ErrorHandler(c.reportError),
		mux.IQFallback(c),
	)
	if c.roster != nil {
		roster.Register(c.reg)
		c.roster.Handle(c.mux, c, c.JID)
	}
	return c
}

// Run dials the server, negotiates a session, and dispatches received stanzas
// until the session is disconnected.
// When it returns every pending one-shot handler has been failed with
// ErrClosed.
// A session that was shut down cleanly results in a nil error.
func (c *Client) Run(ctx context.Context) error {
	c.mu.Lock()
	switch {
	case c.closed:
		c.mu.Unlock()
		return ErrClosed
	case c.running:
		c.mu.Unlock()
		return ErrRunning
	}
	c.running = true
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.running = false
		c.mu.Unlock()
	}()

	conn, err := c.dial(ctx)
	if err != nil {
		return fmt.Errorf("client: error dialing %s: %w", c.cfg.JID.Domainpart(), err)
	}

	opts := []xmpp.Option{
		xmpp.Logger(c.logger),
		xmpp.Registry(c.reg),
		xmpp.OnState(c.stateChanged),
	}
	if c.keepalive > 0 {
		opts = append(opts, xmpp.KeepAlive(c.keepalive, c.clock))
	}
	s := xmpp.NewSession(c.cfg, conn, opts...)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		/* #nosec */
		conn.Close()
		return ErrClosed
	}
	c.session = s
	c.mu.Unlock()

	err = s.Run(ctx, xmpp.HandlerFunc(c.handleStanza))
	c.mux.FailPending(ErrClosed)

	d := s.Err()
	c.metrics.disconnect(d)
	c.mu.Lock()
	hooks := append(([]func(*xmpp.Disconnect))(nil), c.onDisconnect...)
	c.mu.Unlock()
	for _, f := range hooks {
		f(d)
	}
	return err
}

func (c *Client) dial(ctx context.Context) (net.Conn, error) {
	if c.dialFunc != nil {
		return c.dialFunc(ctx)
	}
	host, port := c.cfg.Host, c.cfg.Port
	if c.cfg.Component {
		if host == "" {
			host = c.cfg.JID.Domainpart()
		}
		if port == 0 {
			port = componentPort
		}
	}
	if host != "" {
		return c.dialer.DialHost(ctx, "tcp", host, port)
	}
	return c.dialer.Dial(ctx, "tcp", c.cfg.JID)
}

func (c *Client) handleStanza(s stanza.Stanza) error {
	c.metrics.receive(s)
	c.mux.Dispatch(s)
	return nil
}

func (c *Client) stateChanged(st xmpp.State) {
	c.metrics.setState(st)
	if st != xmpp.Ready {
		return
	}
	switch {
	case c.roster != nil:
		// Handlers run on the session's read loop and must not wait on
		// responses.
		go c.fetchRoster()
	case c.presence:
		c.sendPresence()
	}
	c.mu.Lock()
	hooks := append(([]func())(nil), c.onReady...)
	c.mu.Unlock()
	for _, f := range hooks {
		f()
	}
}

func (c *Client) fetchRoster() {
	ctx, cancel := context.WithTimeout(context.Background(), rosterTimeout)
	defer cancel()
	if err := c.roster.Fetch(ctx, c); err != nil {
		c.logger.Warn("error fetching roster", "err", err)
	} else {
		c.logger.Debug("fetched roster", "items", c.roster.Len(), "ver", c.roster.Ver())
	}
	if c.presence {
		c.sendPresence()
	}
}

func (c *Client) sendPresence() {
	p, err := stanza.NewPresence(stanza.AvailablePresence, jid.JID{})
	if err == nil {
		err = c.Write(p.Element())
	}
	if err != nil {
		c.logger.Warn("error sending initial presence", "err", err)
	}
}

func (c *Client) reportError(err error) {
	c.metrics.handlerFailures.Inc()
	select {
	case c.errs <- err:
	default:
		c.logger.Debug("error channel full, dropping handler error", "err", err)
	}
}

// Handle registers h for stanzas matching g.
// Lower priorities run first.
func (c *Client) Handle(g mux.Guard, priority int, h mux.Handler) *mux.Registration {
	return c.mux.Handle(g, priority, h)
}

// HandleFunc registers f for stanzas matching g.
func (c *Client) HandleFunc(g mux.Guard, priority int, f mux.HandlerFunc) *mux.Registration {
	return c.mux.HandleFunc(g, priority, f)
}

// Before registers a filter that runs before every handler.
// A filter that returns mux.Halt drops the stanza.
func (c *Client) Before(g mux.Guard, h mux.Handler) *mux.Registration {
	return c.mux.Before(g, h)
}

// After registers a filter that runs after the handlers.
func (c *Client) After(g mux.Guard, h mux.Handler) *mux.Registration {
	return c.mux.After(g, h)
}

// OnReady registers f to be called every time a session becomes ready.
// It runs on the goroutine that reads the stream and must not block.
func (c *Client) OnReady(f func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onReady = append(c.onReady, f)
}

// OnDisconnect registers f to be called with the reason every time a session
// ends.
func (c *Client) OnDisconnect(f func(*xmpp.Disconnect)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onDisconnect = append(c.onDisconnect, f)
}

func (c *Client) current() *xmpp.Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

// Write queues el to be sent.
// Elements are written in the order Write is called.
func (c *Client) Write(el *xmlnode.Element) error {
	s := c.current()
	if s == nil {
		return xmpp.ErrNotReady
	}
	if err := s.Send(context.Background(), el); err != nil {
		return err
	}
	c.metrics.send(el)
	return nil
}

// WriteWithHandler writes el and registers h to handle the first response
// with the same id.
// If el has no id a random one is assigned.
// If the client is disconnected before a response arrives fail is called with
// ErrClosed instead. Fail may be nil.
func (c *Client) WriteWithHandler(el *xmlnode.Element, h mux.Handler, fail func(error)) error {
	id := el.Attr("id")
	if id == "" {
		id = attr.RandomID()
		el.SetAttr("id", id)
	}
	r := c.mux.Expect(id, h, fail)
	if err := c.Write(el); err != nil {
		c.mux.Remove(r)
		return err
	}
	return nil
}

type response struct {
	s   stanza.Stanza
	err error
}

// SendIQ sends a get or set IQ and blocks until the response arrives or ctx
// is done.
// If the response is of type error the stanza error is returned along with the
// response.
// Canceling ctx removes the pending handler so a late response is handled
// like any other stanza.
func (c *Client) SendIQ(ctx context.Context, iq stanza.Stanza) (stanza.Stanza, error) {
	if iq.Kind() != stanza.KindIQ || !iq.IsRequest() {
		return stanza.Stanza{}, ErrNotRequest
	}
	if iq.ID() == "" {
		iq.SetID(attr.RandomID())
	}

	ch := make(chan response, 1)
	r := c.mux.Expect(iq.ID(), mux.HandlerFunc(func(s stanza.Stanza) error {
		ch <- response{s: s}
		return nil
	}), func(err error) {
		ch <- response{err: err}
	})
	if err := c.Write(iq.Element()); err != nil {
		c.mux.Remove(r)
		return stanza.Stanza{}, err
	}

	select {
	case resp := <-ch:
		if resp.err != nil {
			return stanza.Stanza{}, resp.err
		}
		if resp.s.IsError() {
			se, err := resp.s.StanzaError()
			if err != nil {
				return resp.s, err
			}
			return resp.s, se
		}
		return resp.s, nil
	case <-ctx.Done():
		c.mux.Remove(r)
		return stanza.Stanza{}, ctx.Err()
	}
}

// Close ends the session and fails every pending one-shot handler with
// ErrClosed.
// Calling Run after Close returns ErrClosed.
func (c *Client) Close() error {
	c.mu.Lock()
	c.closed = true
	s := c.session
	c.mu.Unlock()

	var err error
	if s != nil {
		err = s.Close()
	}
	c.mux.FailPending(ErrClosed)
	return err
}

// JID returns the address of the client.
// Once a resource has been bound it is the full bound address.
func (c *Client) JID() jid.JID {
	if s := c.current(); s != nil {
		return s.LocalAddr()
	}
	return c.cfg.JID
}

// State returns the state of the current session.
func (c *Client) State() xmpp.State {
	if s := c.current(); s != nil {
		return s.State()
	}
	return xmpp.Disconnected
}

// Registry returns the registry used to classify received stanzas.
func (c *Client) Registry() *stanza.Registry {
	return c.reg
}

// Mux returns the handler mux.
func (c *Client) Mux() *mux.Mux {
	return c.mux
}

// Errors returns a channel that receives handler failures.
// Failures are dropped if the channel is not drained.
func (c *Client) Errors() <-chan error {
	return c.errs
}
