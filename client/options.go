// Copyright 2016 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package client

import (
	"context"
	"log/slog"
	"net"
	"time"

	"github.com/adhearsion/blather-sub001/dial"
	"github.com/adhearsion/blather-sub001/roster"
	"github.com/adhearsion/blather-sub001/stanza"
	"github.com/benbjohnson/clock"
	"github.com/prometheus/client_golang/prometheus"
)

// Option can be used to configure the client.
type Option func(*Client)

// Logger sets the logger used by the client, its session, and its mux.
func Logger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// Dialer sets the dialer used to connect to the server.
func Dialer(d dial.Dialer) Option {
	return func(c *Client) {
		c.dialer = d
	}
}

// DialFunc replaces dialing entirely.
// It is mostly useful for tests and for connections that are not TCP.
func DialFunc(f func(ctx context.Context) (net.Conn, error)) Option {
	return func(c *Client) {
		c.dialFunc = f
	}
}

// Registry sets the registry used to classify incoming stanzas.
func Registry(r *stanza.Registry) Option {
	return func(c *Client) {
		if r != nil {
			c.reg = r
		}
	}
}

// KeepAlive sends whitespace every interval while the session is ready.
// If clk is nil the system clock is used.
func KeepAlive(interval time.Duration, clk clock.Clock) Option {
	return func(c *Client) {
		c.keepalive = interval
		c.clock = clk
	}
}

// InitialPresence causes an available presence to be sent as soon as the
// session is ready.
// If a roster list is configured the presence is sent once the roster has been
// fetched.
func InitialPresence() Option {
	return func(c *Client) {
		c.presence = true
	}
}

// Roster keeps l current for the life of the client.
// The roster is fetched into l every time the session becomes ready, and l
// follows roster pushes and the presence of contacts.
func Roster(l *roster.List) Option {
	return func(c *Client) {
		c.roster = l
	}
}

// Metrics registers the client's metrics with r.
// Without this option metrics are still collected but never exported.
func Metrics(r prometheus.Registerer) Option {
	return func(c *Client) {
		c.registerer = r
	}
}
