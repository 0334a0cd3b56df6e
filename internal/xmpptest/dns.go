// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package xmpptest

import (
	"context"
	"encoding/binary"
	"io"
	"net"
	"sync"

	"golang.org/x/net/dns/dnsmessage"
)

// DNS is a canned DNS server.
// Names are fully qualified and end in a dot.
// Queries for names that have no records are answered with NXDOMAIN.
type DNS struct {
	SRV map[string][]net.SRV
	A   map[string]net.IP

	mu        sync.Mutex
	questions []dnsmessage.Question
}

// Resolver returns a resolver that sends every query to d.
func (d *DNS) Resolver() *net.Resolver {
	return &net.Resolver{
		PreferGo:     true,
		StrictErrors: true,
		Dial: func(context.Context, string, string) (net.Conn, error) {
			client, server := net.Pipe()
			go d.serve(server)
			return client, nil
		},
	}
}

// Questions returns every question that has been asked so far.
func (d *DNS) Questions() []dnsmessage.Question {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]dnsmessage.Question(nil), d.questions...)
}

// The resolver does not see a net.PacketConn so messages are framed as they
// would be over TCP.
func (d *DNS) serve(conn net.Conn) {
	/* #nosec */
	defer conn.Close()
	var l [2]byte
	if _, err := io.ReadFull(conn, l[:]); err != nil {
		return
	}
	req := make([]byte, binary.BigEndian.Uint16(l[:]))
	if _, err := io.ReadFull(conn, req); err != nil {
		return
	}
	resp, err := d.answer(req)
	if err != nil {
		return
	}
	out := make([]byte, 2+len(resp))
	binary.BigEndian.PutUint16(out, uint16(len(resp)))
	copy(out[2:], resp)
	/* #nosec */
	conn.Write(out)
}

func (d *DNS) answer(req []byte) ([]byte, error) {
	var p dnsmessage.Parser
	h, err := p.Start(req)
	if err != nil {
		return nil, err
	}
	q, err := p.Question()
	if err != nil {
		return nil, err
	}

	name := q.Name.String()
	d.mu.Lock()
	d.questions = append(d.questions, q)
	srvs, hasSRV := d.SRV[name]
	ip, hasA := d.A[name]
	d.mu.Unlock()

	rh := dnsmessage.Header{
		ID:                 h.ID,
		Response:           true,
		Authoritative:      true,
		RecursionDesired:   h.RecursionDesired,
		RecursionAvailable: true,
	}
	if !hasSRV && !hasA {
		rh.RCode = dnsmessage.RCodeNameError
	}
	b := dnsmessage.NewBuilder(nil, rh)
	b.EnableCompression()
	if err = b.StartQuestions(); err != nil {
		return nil, err
	}
	if err = b.Question(q); err != nil {
		return nil, err
	}
	if err = b.StartAnswers(); err != nil {
		return nil, err
	}
	rr := dnsmessage.ResourceHeader{Name: q.Name, Class: dnsmessage.ClassINET, TTL: 60}
	switch {
	case q.Type == dnsmessage.TypeSRV && hasSRV:
		for _, srv := range srvs {
			target, err := dnsmessage.NewName(srv.Target)
			if err != nil {
				return nil, err
			}
			err = b.SRVResource(rr, dnsmessage.SRVResource{
				Priority: srv.Priority,
				Weight:   srv.Weight,
				Port:     srv.Port,
				Target:   target,
			})
			if err != nil {
				return nil, err
			}
		}
	case q.Type == dnsmessage.TypeA && hasA:
		var a dnsmessage.AResource
		copy(a.A[:], ip.To4())
		if err = b.AResource(rr, a); err != nil {
			return nil, err
		}
	}
	return b.Finish()
}
