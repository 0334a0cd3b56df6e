// Copyright 2016 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

// Package dial contains methods and types for dialing XMPP connections.
package dial // import "github.com/adhearsion/blather-sub001/dial"

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"strconv"

	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/adhearsion/blather-sub001/internal/discover"
	"github.com/adhearsion/blather-sub001/jid"
)

// DefaultPort is the port dialed when a host is given without one.
const DefaultPort = 5222

// Client discovers and connects to the address on the named network with a
// client-to-server (c2s) connection.
//
// For more information see the Dialer type.
func Client(ctx context.Context, network string, addr jid.JID) (net.Conn, error) {
	var d Dialer
	return d.Dial(ctx, network, addr)
}

// A Dialer contains options for connecting to an XMPP address.
// After a connection is established the Dial method does not attempt to create
// an XMPP session on the connection, xmpp.NewSession should be passed the
// resulting connection.
//
// The zero value for each field is equivalent to dialing without that option.
type Dialer struct {
	net.Dialer

	// NoLookup stops the dialer from looking up SRV records for the given domain.
	// Instead it will try to connect to the domain directly.
	NoLookup bool

	// NoTLS disables implicit TLS entirely (eg. when using STARTTLS on a server
	// that does not support implicit TLS).
	NoTLS bool

	// The configuration to use when dialing with implicit TLS.
	// Setting TLSConfig has no effect if NoTLS is true.
	// The default value is interpreted as a tls.Config with the expected host set
	// to that of the connection addresses domain part.
	TLSConfig *tls.Config
}

// Dial discovers and connects to the address on the named network.
// If the context expires before the connection is complete, an error is
// returned. Once successfully connected, any expiration of the context will not
// affect the connection.
//
// Network may be any of the network types supported by net.Dial, but you most
// likely want to use one of the tcp connection types ("tcp", "tcp4", or
// "tcp6").
func (d *Dialer) Dial(ctx context.Context, network string, addr jid.JID) (net.Conn, error) {
	if d.NoLookup {
		return d.legacy(ctx, network, addr.Domainpart(), d.tlsConfig(addr))
	}
	return d.lookup(ctx, network, addr)
}

// DialHost connects to host and port without service discovery or implicit
// TLS.
// A zero port is replaced with DefaultPort.
func (d *Dialer) DialHost(ctx context.Context, network, host string, port uint16) (net.Conn, error) {
	if port == 0 {
		port = DefaultPort
	}
	return d.Dialer.DialContext(ctx, network, net.JoinHostPort(host, strconv.FormatUint(uint64(port), 10)))
}

func (d *Dialer) tlsConfig(addr jid.JID) *tls.Config {
	if d.TLSConfig != nil {
		return d.TLSConfig
	}
	// XEP-0368
	return &tls.Config{
		ServerName: addr.Domainpart(),
		MinVersion: tls.VersionTLS12,
		NextProtos: []string{"xmpp-client"},
	}
}

func (d *Dialer) lookup(ctx context.Context, network string, addr jid.JID) (net.Conn, error) {
	var tlsAddrs, plainAddrs []*net.SRV
	var g errgroup.Group
	if !d.NoTLS {
		// Implicit TLS is optional, failures only drop those records.
		g.Go(func() error {
			addrs, err := discover.LookupService(ctx, d.Resolver, discover.ServiceClientTLS, addr)
			if err == nil {
				tlsAddrs = addrs
			}
			return nil
		})
	}
	g.Go(func() error {
		var err error
		plainAddrs, err = discover.LookupService(ctx, d.Resolver, discover.ServiceClient, addr)
		return err
	})
	if err := g.Wait(); err != nil && len(tlsAddrs) == 0 {
		return nil, err
	}
	if len(tlsAddrs)+len(plainAddrs) == 0 {
		return nil, fmt.Errorf("dial: no xmpp service found at address %s", addr.Domainpart())
	}

	// Records are tried in order, implicit TLS first, until one connects.
	var errs error
	cfg := d.tlsConfig(addr)
	for _, srv := range tlsAddrs {
		c, err := d.dialTLS(ctx, network, hostport(srv), cfg)
		if err == nil {
			return c, nil
		}
		errs = multierr.Append(errs, err)
	}
	for _, srv := range plainAddrs {
		c, err := d.Dialer.DialContext(ctx, network, hostport(srv))
		if err == nil {
			return c, nil
		}
		errs = multierr.Append(errs, err)
	}
	return nil, errs
}

func hostport(srv *net.SRV) string {
	return net.JoinHostPort(srv.Target, strconv.FormatUint(uint64(srv.Port), 10))
}

func (d *Dialer) dialTLS(ctx context.Context, network, addr string, cfg *tls.Config) (net.Conn, error) {
	tlsDialer := &tls.Dialer{
		NetDialer: &d.Dialer,
		Config:    cfg,
	}
	return tlsDialer.DialContext(ctx, network, addr)
}

func (d *Dialer) legacy(ctx context.Context, network string, domain string, cfg *tls.Config) (net.Conn, error) {
	if !d.NoTLS {
		conn, err := d.dialTLS(ctx, network, net.JoinHostPort(domain, "5223"), cfg)
		if err == nil {
			return conn, nil
		}
	}
	return d.Dialer.DialContext(ctx, network, net.JoinHostPort(domain, strconv.Itoa(DefaultPort)))
}
