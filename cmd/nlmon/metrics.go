//go:build linux

package main

import (
	"github.com/prometheus/client_golang/prometheus"
)

type metrics struct {
	Events *prometheus.CounterVec
	Links  prometheus.Gauge
}

func newMetrics() *metrics {
	return &metrics{
		Events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "nlmon_link_events_total",
			Help: "RTM_NEWLINK and RTM_DELLINK messages received",
		}, []string{"type"}),
		Links: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "nlmon_links",
			Help: "Links currently known",
		}),
	}
}

func (m *metrics) register(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{m.Events, m.Links} {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}
