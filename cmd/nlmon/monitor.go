//go:build linux

package main

import (
	"log/slog"

	"github.com/hkwi/nlmsg/rtlink"
)

// monitor keeps the set of known links in step with the event stream.
type monitor struct {
	m     *metrics
	links map[int32]string
}

func newMonitor(m *metrics) *monitor {
	return &monitor{
		m:     m,
		links: map[int32]string{},
	}
}

func (mon *monitor) handle(msg rtlink.Message) {
	switch msg.Header.Type {
	case rtlink.RTM_NEWLINK:
		mon.m.Events.WithLabelValues("new").Inc()
		if old, ok := mon.links[msg.Index]; ok && old != msg.Name {
			slog.Info("link renamed", "index", msg.Index, "from", old, "to", msg.Name)
		}
		mon.links[msg.Index] = msg.Name
		slog.Info("link",
			"index", msg.Index,
			"name", msg.Name,
			"flags", msg.Flags.String(),
			"change", msg.Change.String(),
			"mtu", msg.MTU,
			"operstate", msg.OperState,
			"kind", msg.Kind,
		)
	case rtlink.RTM_DELLINK:
		mon.m.Events.WithLabelValues("del").Inc()
		delete(mon.links, msg.Index)
		slog.Info("link removed", "index", msg.Index, "name", msg.Name)
	default:
		slog.Debug("unhandled msg", "type", msg.Header.Type)
	}
	mon.m.Links.Set(float64(len(mon.links)))
}
