// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package client

import (
	xmpp "github.com/adhearsion/blather-sub001"
	"github.com/adhearsion/blather-sub001/stanza"
	"github.com/adhearsion/blather-sub001/xmlnode"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	namespace = "xmpp"
	subsystem = "client"
)

type metrics struct {
	received        *prometheus.CounterVec
	sent            *prometheus.CounterVec
	handlerFailures prometheus.Counter
	disconnects     *prometheus.CounterVec
	state           prometheus.Gauge
}

// newMetrics creates the client collectors.
// If r is nil they are not registered.
func newMetrics(r prometheus.Registerer) *metrics {
	f := promauto.With(r)
	return &metrics{
		received: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "stanzas_received_total",
			Help:      "Stanzas received once the session was ready, by kind.",
		}, []string{"kind"}),
		sent: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "stanzas_sent_total",
			Help:      "Stanzas queued for writing, by kind.",
		}, []string{"kind"}),
		handlerFailures: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "handler_failures_total",
			Help:      "Handlers that returned an error or panicked.",
		}),
		disconnects: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "disconnects_total",
			Help:      "Sessions that ended, by reason.",
		}, []string{"reason"}),
		state: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "state",
			Help:      "Current negotiation state of the session.",
		}),
	}
}

func (m *metrics) receive(s stanza.Stanza) {
	m.received.WithLabelValues(s.Kind().String()).Inc()
}

func (m *metrics) send(el *xmlnode.Element) {
	m.sent.WithLabelValues(stanza.KindOf(el.Name).String()).Inc()
}

func (m *metrics) setState(st xmpp.State) {
	m.state.Set(float64(st))
}

func (m *metrics) disconnect(d *xmpp.Disconnect) {
	if d == nil {
		return
	}
	m.disconnects.WithLabelValues(d.Reason.String()).Inc()
}
