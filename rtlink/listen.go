//go:build linux

package rtlink

import (
	"log/slog"
	"slices"

	"github.com/hkwi/nlmsg"
	"github.com/mdlayher/netlink"
	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

type Listener struct {
	conn   *nlmsg.Conn
	buf    []byte
	init   bool
	start  uint32
	logger *slog.Logger
}

// NewListener subscribes to RTNLGRP_LINK and requests a dump of the existing
// links, so that Recv reports the current state before any change. A nil cfg
// means nlmsg.DefaultConfig.
func NewListener(cfg *nlmsg.Config) (*Listener, error) {
	c := nlmsg.DefaultConfig
	if cfg != nil {
		c = *cfg
	}
	if !slices.Contains(c.Groups, unix.RTNLGRP_LINK) {
		c.Groups = append(slices.Clone(c.Groups), unix.RTNLGRP_LINK)
	}
	c.NoAutoAck = true

	conn, err := nlmsg.Dial(unix.NETLINK_ROUTE, &c)
	if err != nil {
		return nil, err
	}
	b := nlmsg.NewBuilder()
	if err := NewGetLink(b, 0, "", true); err != nil {
		conn.Close()
		return nil, err
	}
	conn.Complete(b)
	start := b.Header().Sequence
	if _, err := conn.Send(b.Bytes()); err != nil {
		conn.Close()
		return nil, err
	}
	return &Listener{
		conn:   conn,
		buf:    nlmsg.NewDumpBuffer(),
		start:  start,
		logger: slog.Default().With("t", "rtlink"),
	}, nil
}

type Message struct {
	Header netlink.Header
	Link
}

// Recv returns RTM_NEWLINK, RTM_DELLINK sequence in system call including initial dump.
func (self *Listener) Recv() ([]Message, error) {
	for {
		n, err := self.conn.Recv(self.buf)
		if err != nil {
			var errno unix.Errno
			if errors.As(err, &errno) && errno.Temporary() {
				continue
			}
			return nil, err
		}
		var ret []Message
		if _, err := nlmsg.Run(self.buf[:n], 0, self.conn.PortID(), func(m nlmsg.Msg) (nlmsg.Status, error) {
			if !self.init {
				if m.Seq() != self.start {
					return nlmsg.Continue, nil
				}
				self.init = true
			}
			switch m.Type() {
			case RTM_NEWLINK, RTM_DELLINK:
				if link, err := ParseLink(m); err != nil {
					return nlmsg.Stop, err
				} else {
					ret = append(ret, Message{
						Header: m.Header(),
						Link:   link,
					})
				}
			default:
				self.logger.Debug("unexpected message", "msg", m)
			}
			return nlmsg.Continue, nil
		}, nlmsg.ControlFuncs{
			nlmsg.NLMSG_DONE: func(m nlmsg.Msg) (nlmsg.Status, error) {
				self.logger.Debug("initial dump done", "seq", m.Seq())
				return nlmsg.Continue, nil
			},
		}); err != nil {
			return nil, err
		}
		if len(ret) > 0 {
			return ret, nil
		}
	}
}

func (self *Listener) Close() error {
	return self.conn.Close()
}
