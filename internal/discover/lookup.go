// Copyright 2016 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

// Package discover is used to look up the address of XMPP services.
package discover // import "github.com/adhearsion/blather-sub001/internal/discover"

import (
	"context"
	"errors"
	"net"

	"github.com/adhearsion/blather-sub001/jid"
)

// Services that may be looked up.
const (
	ServiceClient    = "xmpp-client"
	ServiceClientTLS = "xmpps-client"
)

// Errors returned by this package.
var (
	ErrInvalidService = errors.New("discover: service must be one of xmpp-client or xmpps-client")
	ErrNoService      = errors.New("discover: service is decidedly not available at this domain")
)

func isNotFound(err error) bool {
	var dnsErr *net.DNSError
	return errors.As(err, &dnsErr) && dnsErr.IsNotFound
}

// FallbackRecords returns fake SRV records based on the service that can be
// used if no actual SRV records can be found but we believe that an XMPP
// service exists at the given domain.
func FallbackRecords(service, domain string) []*net.SRV {
	switch service {
	case ServiceClient:
		return []*net.SRV{{Target: domain, Port: 5222}}
	case ServiceClientTLS:
		return []*net.SRV{{Target: domain, Port: 5223}}
	}
	return nil
}

// LookupService looks for an XMPP service hosted by the domain of addr.
// It returns addresses from SRV records sorted by priority and randomized by
// weight, and if none exist returns the fallback records for the domain.
func LookupService(ctx context.Context, resolver *net.Resolver, service string, addr jid.JID) ([]*net.SRV, error) {
	return LookupServiceByDomain(ctx, resolver, service, addr.Domainpart())
}

// LookupServiceByDomain behaves like LookupService except that the domain is
// given directly.
// A nil resolver uses net.DefaultResolver.
func LookupServiceByDomain(ctx context.Context, resolver *net.Resolver, service, domain string) ([]*net.SRV, error) {
	switch service {
	case ServiceClient, ServiceClientTLS:
	default:
		return nil, ErrInvalidService
	}
	if resolver == nil {
		resolver = net.DefaultResolver
	}
	_, addrs, err := resolver.LookupSRV(ctx, service, "tcp", domain)
	if err != nil {
		if !isNotFound(err) {
			return nil, err
		}
		return FallbackRecords(service, domain), nil
	}

	// RFC 6120 §3.2.1: a single record with a target of "." means the service
	// is not available.
	if len(addrs) == 1 && addrs[0].Target == "." {
		return nil, ErrNoService
	}
	return addrs, nil
}
