//go:build linux

package nlmsg

import (
	"sync/atomic"
	"syscall"
	"time"

	"github.com/mdlayher/netlink"
	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

const (
	NL_NO_AUTO_ACK = 1 << iota
)

// Conn is a netlink socket that moves raw buffers. Socket setup comes from
// github.com/mdlayher/netlink; reads and writes go straight to the file
// descriptor so that every message, NLMSG_DONE and NLMSG_ERROR included,
// reaches Run untouched.
type Conn struct {
	Flags int

	c      *netlink.Conn
	rc     syscall.RawConn
	portid uint32
	seq    atomic.Uint32
}

// Dial opens a socket of the given protocol family, such as
// unix.NETLINK_ROUTE. A nil cfg means DefaultConfig.
func Dial(family int, cfg *Config) (*Conn, error) {
	if cfg == nil {
		cfg = &DefaultConfig
	}
	c, err := netlink.Dial(family, &netlink.Config{
		Strict: cfg.Strict,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "netlink family %d", family)
	}
	self := &Conn{c: c}
	if err := self.setup(cfg); err != nil {
		c.Close()
		return nil, err
	}
	self.seq.Store(uint32(time.Now().Unix()))
	if cfg.NoAutoAck {
		self.Flags |= NL_NO_AUTO_ACK
	}
	return self, nil
}

func (self *Conn) setup(cfg *Config) error {
	if rc, err := self.c.SyscallConn(); err != nil {
		return errors.Wrap(err, "raw conn")
	} else {
		self.rc = rc
	}
	var serr error
	if err := self.rc.Control(func(fd uintptr) {
		if sa, err := unix.Getsockname(int(fd)); err != nil {
			serr = err
		} else if nl, ok := sa.(*unix.SockaddrNetlink); ok {
			self.portid = nl.Pid
		}
	}); err != nil {
		return errors.Wrap(err, "getsockname")
	} else if serr != nil {
		return errors.Wrap(serr, "getsockname")
	}
	for _, g := range cfg.Groups {
		if err := self.c.JoinGroup(g); err != nil {
			return errors.Wrapf(err, "join group %d", g)
		}
	}
	if cfg.ReadBuffer > 0 {
		if err := self.c.SetReadBuffer(cfg.ReadBuffer); err != nil {
			return errors.Wrap(err, "read buffer")
		}
	}
	if cfg.WriteBuffer > 0 {
		if err := self.c.SetWriteBuffer(cfg.WriteBuffer); err != nil {
			return errors.Wrap(err, "write buffer")
		}
	}
	if err := self.SetBroadcastError(cfg.BroadcastError); err != nil {
		return err
	}
	if err := self.SetNoENOBUFS(cfg.NoENOBUFS); err != nil {
		return err
	}
	if cfg.ExtendedAck {
		if err := self.SetExtendedAck(true); err != nil {
			return err
		}
	}
	return nil
}

// PortID is the address the kernel assigned to the socket.
func (self *Conn) PortID() uint32 {
	return self.portid
}

func (self *Conn) SetBroadcastError(enable bool) error {
	return errors.Wrap(self.c.SetOption(netlink.BroadcastError, enable), "NETLINK_BROADCAST_ERROR")
}

func (self *Conn) SetNoENOBUFS(enable bool) error {
	return errors.Wrap(self.c.SetOption(netlink.NoENOBUFS, enable), "NETLINK_NO_ENOBUFS")
}

// SetExtendedAck fails with ENOPROTOOPT before linux 4.12.
func (self *Conn) SetExtendedAck(enable bool) error {
	return errors.Wrap(self.c.SetOption(netlink.ExtendedAcknowledge, enable), "NETLINK_EXT_ACK")
}

func (self *Conn) JoinGroup(group uint32) error {
	return errors.Wrapf(self.c.JoinGroup(group), "join group %d", group)
}

func (self *Conn) LeaveGroup(group uint32) error {
	return errors.Wrapf(self.c.LeaveGroup(group), "leave group %d", group)
}

func (self *Conn) SetReadDeadline(t time.Time) error {
	return self.c.SetReadDeadline(t)
}

// NextSeq hands out sequence numbers, starting from the time of Dial.
func (self *Conn) NextSeq() uint32 {
	return self.seq.Add(1)
}

// Complete fills in what the caller left zero in the current message header
// of b: the port id, a fresh sequence number and NLM_F_REQUEST, plus NLM_F_ACK
// unless NL_NO_AUTO_ACK is set.
func (self *Conn) Complete(b *Builder) {
	h := b.Header()
	if h.PID == 0 {
		b.SetPortID(self.portid)
	}
	if h.Sequence == 0 {
		b.SetSequence(self.NextSeq())
	}
	flags := uint16(h.Flags) | NLM_F_REQUEST
	if self.Flags&NL_NO_AUTO_ACK == 0 {
		flags |= NLM_F_ACK
	}
	b.SetFlags(flags)
}

// Send writes b as one datagram to the kernel.
func (self *Conn) Send(b []byte) (int, error) {
	var serr error
	if err := self.rc.Write(func(fd uintptr) bool {
		serr = unix.Sendto(int(fd), b, 0, &unix.SockaddrNetlink{Family: unix.AF_NETLINK})
		return serr != unix.EAGAIN
	}); err != nil {
		return 0, errors.Wrap(err, "sendto")
	}
	if serr != nil {
		return 0, errors.Wrap(serr, "sendto")
	}
	return len(b), nil
}

// Recv reads one datagram into b. A datagram larger than b fails with
// NLE_MSG_TRUNC, its tail being lost; use NewDumpBuffer for dumps.
func (self *Conn) Recv(b []byte) (int, error) {
	var n int
	var rerr error
	if err := self.rc.Read(func(fd uintptr) bool {
		n, _, rerr = unix.Recvfrom(int(fd), b, unix.MSG_DONTWAIT|unix.MSG_TRUNC)
		return rerr != unix.EAGAIN
	}); err != nil {
		return 0, errors.Wrap(err, "recvfrom")
	}
	if rerr != nil {
		return 0, errors.Wrap(rerr, "recvfrom")
	}
	if n > len(b) {
		return len(b), errors.Wrapf(NLE_MSG_TRUNC, "datagram of %d bytes, buffer of %d", n, len(b))
	}
	return n, nil
}

// Execute completes and sends the message of b, then receives and runs the
// replies through data until the exchange ends: NLMSG_DONE for a dump, the
// acknowledgement for a request, or data returning Stop. Without NLM_F_ACK a
// plain request only ends when data says so.
//
// When data stops a dump or an acknowledged request early, or fails, the rest
// of the exchange is still read off the socket without calling data, so the
// next exchange does not see stale replies. The error of data wins over a
// kernel error seen while draining.
func (self *Conn) Execute(b *Builder, data MsgFunc) error {
	self.Complete(b)
	hdr := b.Header()
	seq := hdr.Sequence
	if _, err := self.Send(b.Bytes()); err != nil {
		return err
	}

	fn := data
	var stopped bool
	var derr error
	if data != nil && uint16(hdr.Flags)&(NLM_F_DUMP|NLM_F_ACK) != 0 {
		fn = func(m Msg) (Status, error) {
			if stopped {
				return Continue, nil
			}
			if st, err := data(m); err != nil || st == Stop {
				stopped, derr = true, err
			}
			return Continue, nil
		}
	}
	buf := NewDumpBuffer()
	for {
		n, err := self.Recv(buf)
		if err != nil {
			return err
		}
		if st, err := Run(buf[:n], seq, self.portid, fn, nil); err != nil {
			if derr != nil {
				return derr
			}
			return err
		} else if st == Stop {
			return derr
		}
	}
}

func (self *Conn) Close() error {
	return self.c.Close()
}
