// Package nlmsg implements netlink message and attribute routines.
//
// Messages are built in place with Builder, or with Batch when several
// messages share one datagram. Received buffers are read through Msg and Attr,
// which are views over a byte slice owned by the caller and never copy it.
// Run walks a received buffer and dispatches every message it contains.
//
// The design follows libnl and libmnl. For the basic concept, please have a
// look at netlink(7) and http://www.infradead.org/~tgr/libnl/ .
//
package nlmsg

import (
	"github.com/mdlayher/netlink"
	"golang.org/x/sys/unix"
)

const (
	NLMSG_ALIGNTO = 4
	NLA_ALIGNTO   = 4
)

func align(size, tick int) int {
	return (size + tick - 1) &^ (tick - 1)
}

func NLMSG_ALIGN(size int) int {
	return align(size, NLMSG_ALIGNTO)
}

func NLA_ALIGN(size int) int {
	return align(size, NLA_ALIGNTO)
}

const (
	// #define NLMSG_HDRLEN ((int) NLMSG_ALIGN(sizeof(struct nlmsghdr)))
	NLMSG_HDRLEN = 16
	// #define NLA_HDRLEN ((int) NLA_ALIGN(sizeof(struct nlattr)))
	NLA_HDRLEN = 4

	// struct nlmsgerr: int error followed by the offending nlmsghdr
	SizeofNlMsgerr = 4 + NLMSG_HDRLEN
)

const (
	NLA_F_NESTED        = netlink.Nested
	NLA_F_NET_BYTEORDER = netlink.NetByteOrder
	NLA_TYPE_MASK       = ^(NLA_F_NESTED | NLA_F_NET_BYTEORDER)
)

// Control message types. Anything at or above NLMSG_MIN_TYPE belongs to the
// protocol family.
const (
	NLMSG_NOOP     = uint16(netlink.Noop)
	NLMSG_ERROR    = uint16(netlink.Error)
	NLMSG_DONE     = uint16(netlink.Done)
	NLMSG_OVERRUN  = uint16(netlink.Overrun)
	NLMSG_MIN_TYPE = 0x10
)

const (
	NLM_F_REQUEST       = uint16(netlink.Request)
	NLM_F_MULTI         = uint16(netlink.Multi)
	NLM_F_ACK           = uint16(netlink.Acknowledge)
	NLM_F_ECHO          = uint16(netlink.Echo)
	NLM_F_DUMP_INTR     = uint16(netlink.DumpInterrupted)
	NLM_F_DUMP_FILTERED = uint16(netlink.DumpFiltered)

	// GET requests
	NLM_F_ROOT   = uint16(netlink.Root)
	NLM_F_MATCH  = uint16(netlink.Match)
	NLM_F_ATOMIC = uint16(netlink.Atomic)
	NLM_F_DUMP   = uint16(netlink.Dump)

	// NEW requests
	NLM_F_REPLACE = uint16(netlink.Replace)
	NLM_F_EXCL    = uint16(netlink.Excl)
	NLM_F_CREATE  = uint16(netlink.Create)
	NLM_F_APPEND  = uint16(netlink.Append)
)

// DumpBufferSize is large enough for a multipart reply chunk; the kernel
// never puts more than 32KiB into one dump datagram.
const DumpBufferSize = 32768

// SocketBufferSize is the page size capped at 8KiB, which is what the kernel
// recommends for sockets that do not dump.
var SocketBufferSize = socketBufferSize()

func socketBufferSize() int {
	if n := unix.Getpagesize(); n < 8192 {
		return n
	}
	return 8192
}

// NewSocketBuffer returns a receive buffer for ordinary request/response use.
func NewSocketBuffer() []byte {
	return make([]byte, SocketBufferSize)
}

// NewDumpBuffer returns a receive buffer for NLM_F_DUMP replies.
func NewDumpBuffer() []byte {
	return make([]byte, DumpBufferSize)
}
