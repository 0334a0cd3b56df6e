// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package client_test

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	xmpp "github.com/adhearsion/blather-sub001"
	"github.com/adhearsion/blather-sub001/client"
	"github.com/adhearsion/blather-sub001/internal/ns"
	"github.com/adhearsion/blather-sub001/internal/xmpptest"
	"github.com/adhearsion/blather-sub001/jid"
	"github.com/adhearsion/blather-sub001/mux"
	"github.com/adhearsion/blather-sub001/roster"
	"github.com/adhearsion/blather-sub001/stanza"
	"github.com/adhearsion/blather-sub001/stream"
	"github.com/adhearsion/blather-sub001/xmlnode"
	"github.com/prometheus/client_golang/prometheus"
	"mellium.im/sasl"
)

const timeout = 5 * time.Second

func config() xmpp.Config {
	return xmpp.Config{
		JID:        jid.MustParse("user@example.net/res"),
		Password:   "pencil",
		TLS:        xmpp.TLSDisabled,
		Mechanisms: []sasl.Mechanism{sasl.Plain},
	}
}

// newClient runs a client against a scripted server.
// Setup is called before the client is started.
// It returns a channel that is closed once the session is ready, and channels
// that receive the results of Run and of the script.
func newClient(t *testing.T, script func(*xmpptest.Server) error, setup func(*client.Client), opts ...client.Option) (*client.Client, <-chan struct{}, <-chan error, <-chan error) {
	t.Helper()
	conn, srv := xmpptest.NewServer()
	opts = append(opts, client.DialFunc(func(context.Context) (net.Conn, error) {
		return conn, nil
	}))
	c := client.New(config(), opts...)
	ready := make(chan struct{})
	c.OnReady(func() { close(ready) })
	if setup != nil {
		setup(c)
	}
	scriptErr := srv.Go(func(srv *xmpptest.Server) error {
		if err := srv.Negotiate("user", "pencil", "user@example.net"); err != nil {
			return err
		}
		return script(srv)
	})
	runErr := make(chan error, 1)
	go func() {
		runErr <- c.Run(context.Background())
	}()
	return c, ready, runErr, scriptErr
}

func waitFor(t *testing.T, ch <-chan struct{}) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(timeout):
		t.Fatalf("timed out")
	}
}

func waitErr(t *testing.T, ch <-chan error) error {
	t.Helper()
	select {
	case err := <-ch:
		return err
	case <-time.After(timeout):
		t.Fatalf("timed out")
	}
	return nil
}

func TestSendIQRoutesToOneShot(t *testing.T) {
	generic := make(chan stanza.Stanza, 4)
	c, ready, runErr, scriptErr := newClient(t, func(srv *xmpptest.Server) error {
		iq, err := srv.Expect(ns.Client, "iq")
		if err != nil {
			return err
		}
		if id := iq.Attr("id"); id != "1" {
			t.Errorf("wrong id: want=1, got=%s", id)
		}
		if err = srv.Send(`<iq type='result' id='1' from='example.net'/>`); err != nil {
			return err
		}
		return srv.Send(stream.CloseTag)
	}, func(c *client.Client) {
		c.HandleFunc(mux.Guard{Kind: stanza.KindIQ}, 0, func(s stanza.Stanza) error {
			generic <- s
			return nil
		})
	})
	waitFor(t, ready)

	iq, err := stanza.NewIQ(stanza.GetIQ, jid.MustParse("example.net"))
	if err != nil {
		t.Fatalf("unexpected error: `%v'", err)
	}
	iq.SetID("1")
	iq.Element().AppendChild(xmlnode.New("urn:xmpp:ping", "ping"))
	resp, err := c.SendIQ(context.Background(), iq)
	if err != nil {
		t.Fatalf("unexpected error: `%v'", err)
	}
	if resp.ID() != "1" || resp.Type() != string(stanza.ResultIQ) {
		t.Errorf("wrong response: %v", resp)
	}
	if err = waitErr(t, runErr); err != nil {
		t.Errorf("unexpected error from run: `%v'", err)
	}
	if err = waitErr(t, scriptErr); err != nil {
		t.Errorf("server script failed: %v", err)
	}
	select {
	case s := <-generic:
		t.Errorf("generic handler received the response: %v", s)
	default:
	}
}

func TestCloseFailsPending(t *testing.T) {
	sent := make(chan struct{})
	c, ready, runErr, scriptErr := newClient(t, func(srv *xmpptest.Server) error {
		iq, err := srv.Expect(ns.Client, "iq")
		if err != nil {
			return err
		}
		if id := iq.Attr("id"); id != "xyz" {
			t.Errorf("wrong id: want=xyz, got=%s", id)
		}
		close(sent)
		return nil
	}, nil)
	waitFor(t, ready)

	iqErr := make(chan error, 1)
	go func() {
		iq, err := stanza.NewIQ(stanza.SetIQ, jid.JID{})
		if err != nil {
			iqErr <- err
			return
		}
		iq.SetID("xyz")
		_, err = c.SendIQ(context.Background(), iq)
		iqErr <- err
	}()
	waitFor(t, sent)

	if err := c.Close(); err != nil {
		t.Errorf("unexpected error closing: `%v'", err)
	}
	if err := waitErr(t, iqErr); !errors.Is(err, client.ErrClosed) {
		t.Errorf("wrong error: want=%v, got=%v", client.ErrClosed, err)
	}
	if err := waitErr(t, runErr); err != nil {
		t.Errorf("unexpected error from run: `%v'", err)
	}
	if err := waitErr(t, scriptErr); err != nil {
		t.Errorf("server script failed: %v", err)
	}
	if st := c.State(); st != xmpp.Disconnected {
		t.Errorf("wrong state: want=%v, got=%v", xmpp.Disconnected, st)
	}
	if err := c.Run(context.Background()); err != client.ErrClosed {
		t.Errorf("wrong error running closed client: want=%v, got=%v", client.ErrClosed, err)
	}
}

func TestSendIQContextRemovesHandler(t *testing.T) {
	late := make(chan stanza.Stanza, 1)
	sent := make(chan struct{})
	respond := make(chan struct{})
	c, ready, runErr, scriptErr := newClient(t, func(srv *xmpptest.Server) error {
		if _, err := srv.Expect(ns.Client, "iq"); err != nil {
			return err
		}
		close(sent)
		<-respond
		if err := srv.Send(`<iq type='result' id='late'/>`); err != nil {
			return err
		}
		return srv.Send(stream.CloseTag)
	}, func(c *client.Client) {
		c.HandleFunc(mux.Guard{ID: "late"}, 0, func(s stanza.Stanza) error {
			late <- s
			return nil
		})
	})
	waitFor(t, ready)

	ctx, cancel := context.WithCancel(context.Background())
	iqErr := make(chan error, 1)
	go func() {
		iq, _ := stanza.NewIQ(stanza.GetIQ, jid.JID{})
		iq.SetID("late")
		_, err := c.SendIQ(ctx, iq)
		iqErr <- err
	}()
	waitFor(t, sent)
	cancel()
	if err := waitErr(t, iqErr); !errors.Is(err, context.Canceled) {
		t.Errorf("wrong error: want=%v, got=%v", context.Canceled, err)
	}
	close(respond)

	select {
	case <-late:
	case <-time.After(timeout):
		t.Errorf("late response did not reach the regular handler")
	}
	if err := waitErr(t, runErr); err != nil {
		t.Errorf("unexpected error from run: `%v'", err)
	}
	if err := waitErr(t, scriptErr); err != nil {
		t.Errorf("server script failed: %v", err)
	}
}

func TestSendIQStanzaError(t *testing.T) {
	c, ready, runErr, scriptErr := newClient(t, func(srv *xmpptest.Server) error {
		iq, err := srv.Expect(ns.Client, "iq")
		if err != nil {
			return err
		}
		err = srv.Send(`<iq type='error' id='` + iq.Attr("id") + `'><error type='cancel'><item-not-found xmlns='urn:ietf:params:xml:ns:xmpp-stanzas'/></error></iq>`)
		if err != nil {
			return err
		}
		return srv.Send(stream.CloseTag)
	}, nil)
	waitFor(t, ready)

	iq, _ := stanza.NewIQ(stanza.GetIQ, jid.JID{})
	_, err := c.SendIQ(context.Background(), iq)
	var se stanza.Error
	if !errors.As(err, &se) || se.Condition != stanza.ItemNotFound {
		t.Errorf("expected item-not-found stanza error, got %v", err)
	}
	if err = waitErr(t, runErr); err != nil {
		t.Errorf("unexpected error from run: `%v'", err)
	}
	if err = waitErr(t, scriptErr); err != nil {
		t.Errorf("server script failed: %v", err)
	}
}

func TestUnhandledIQ(t *testing.T) {
	reg := prometheus.NewRegistry()
	disconnected := make(chan *xmpp.Disconnect, 1)
	_, ready, runErr, scriptErr := newClient(t, func(srv *xmpptest.Server) error {
		if _, err := srv.Expect(ns.Client, "presence"); err != nil {
			return err
		}
		if err := srv.Send(`<iq type='get' id='q1' from='example.net'><query xmlns='jabber:iq:version'/></iq>`); err != nil {
			return err
		}
		reply, err := srv.Expect(ns.Client, "iq")
		if err != nil {
			return err
		}
		s := stanza.Wrap(reply)
		se, err := s.StanzaError()
		if err != nil {
			return err
		}
		if s.ID() != "q1" || se.Condition != stanza.ServiceUnavailable {
			t.Errorf("wrong error reply: %v", s)
		}
		return srv.Send(stream.CloseTag)
	}, func(c *client.Client) {
		c.OnDisconnect(func(d *xmpp.Disconnect) { disconnected <- d })
	}, client.InitialPresence(), client.Metrics(reg))
	waitFor(t, ready)

	if err := waitErr(t, runErr); err != nil {
		t.Errorf("unexpected error from run: `%v'", err)
	}
	if err := waitErr(t, scriptErr); err != nil {
		t.Errorf("server script failed: %v", err)
	}
	select {
	case d := <-disconnected:
		if d.Reason != xmpp.ReasonShutdown {
			t.Errorf("wrong disconnect reason: %v", d.Reason)
		}
	default:
		t.Errorf("disconnect hook was not called")
	}

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("error gathering metrics: %v", err)
	}
	values := make(map[string]float64)
	for _, f := range families {
		for _, m := range f.GetMetric() {
			name := f.GetName()
			for _, l := range m.GetLabel() {
				name += "/" + l.GetValue()
			}
			switch {
			case m.GetCounter() != nil:
				values[name] = m.GetCounter().GetValue()
			case m.GetGauge() != nil:
				values[name] = m.GetGauge().GetValue()
			}
		}
	}
	for name, want := range map[string]float64{
		"xmpp_client_stanzas_received_total/IQ":    1,
		"xmpp_client_stanzas_sent_total/Presence":  1,
		"xmpp_client_stanzas_sent_total/IQ":        1,
		"xmpp_client_disconnects_total/Shutdown":   1,
		"xmpp_client_state":                        float64(xmpp.Disconnected),
	} {
		if got := values[name]; got != want {
			t.Errorf("wrong value for %s: want=%v, got=%v", name, want, got)
		}
	}
}

func TestHandlerErrors(t *testing.T) {
	boom := errors.New("boom")
	c, ready, runErr, scriptErr := newClient(t, func(srv *xmpptest.Server) error {
		if err := srv.Send(`<message id='m1'><body>boom</body></message>`); err != nil {
			return err
		}
		return srv.Send(stream.CloseTag)
	}, func(c *client.Client) {
		c.HandleFunc(mux.Message(""), 0, func(stanza.Stanza) error {
			return boom
		})
	})
	waitFor(t, ready)

	select {
	case err := <-c.Errors():
		var herr *mux.HandlerError
		if !errors.As(err, &herr) || !errors.Is(err, boom) || herr.Stanza.ID() != "m1" {
			t.Errorf("wrong handler error: %v", err)
		}
	case <-time.After(timeout):
		t.Errorf("timed out waiting for handler error")
	}
	if err := waitErr(t, runErr); err != nil {
		t.Errorf("unexpected error from run: `%v'", err)
	}
	if err := waitErr(t, scriptErr); err != nil {
		t.Errorf("server script failed: %v", err)
	}
}

func TestRosterBeforePresence(t *testing.T) {
	l := roster.NewList()
	_, _, runErr, scriptErr := newClient(t, func(srv *xmpptest.Server) error {
		iq, err := srv.Expect(ns.Client, "iq")
		if err != nil {
			return err
		}
		if iq.Attr("type") != "get" || iq.FirstChild(roster.NS, "query") == nil {
			t.Errorf("expected roster request first, got %s", iq)
		}
		err = srv.Send(`<iq type='result' id='` + iq.Attr("id") + `'><query xmlns='jabber:iq:roster' ver='v1'><item jid='juliet@example.com' subscription='both'/></query></iq>`)
		if err != nil {
			return err
		}
		if _, err = srv.Expect(ns.Client, "presence"); err != nil {
			return err
		}
		err = srv.Send(`<presence from='juliet@example.com/balcony'/>`)
		if err != nil {
			return err
		}
		err = srv.Send(`<iq type='set' id='push1'><query xmlns='jabber:iq:roster'><item jid='nurse@example.com' subscription='none'/></query></iq>`)
		if err != nil {
			return err
		}
		result, err := srv.Expect(ns.Client, "iq")
		if err != nil {
			return err
		}
		if result.Attr("id") != "push1" || result.Attr("type") != "result" {
			t.Errorf("wrong push acknowledgement: %s", result)
		}
		return srv.Send(stream.CloseTag)
	}, nil, client.Roster(l), client.InitialPresence())

	if err := waitErr(t, runErr); err != nil {
		t.Errorf("unexpected error from run: `%v'", err)
	}
	if err := waitErr(t, scriptErr); err != nil {
		t.Errorf("server script failed: %v", err)
	}
	if v := l.Ver(); v != "v1" {
		t.Errorf("wrong roster version: want=v1, got=%q", v)
	}
	if _, ok := l.Item(jid.MustParse("nurse@example.com")); !ok || l.Len() != 2 {
		t.Errorf("roster push was not applied: %v", l.Items())
	}
	if _, ok := l.Presence(jid.MustParse("juliet@example.com")); !ok {
		t.Errorf("contact presence was not recorded")
	}
}

func TestWriteBeforeRun(t *testing.T) {
	c := client.New(config())
	if err := c.Write(xmlnode.New(ns.Client, "presence")); err != xmpp.ErrNotReady {
		t.Errorf("wrong error: want=%v, got=%v", xmpp.ErrNotReady, err)
	}
	if c.JID().String() != "user@example.net/res" {
		t.Errorf("wrong address: %v", c.JID())
	}
	if c.Registry() == nil || c.Mux() == nil {
		t.Errorf("expected registry and mux to be set")
	}
	iq, _ := stanza.NewIQ(stanza.ResultIQ, jid.JID{})
	if _, err := c.SendIQ(context.Background(), iq); err != client.ErrNotRequest {
		t.Errorf("wrong error: want=%v, got=%v", client.ErrNotRequest, err)
	}
}
