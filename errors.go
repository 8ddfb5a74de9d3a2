package nlmsg

import (
	"fmt"

	"github.com/mdlayher/netlink"
	"golang.org/x/sys/unix"
)

// NlError is the error code set of this package, numbered after libnl's
// error.h where a libnl equivalent exists. Errors returned by this package
// wrap one of these codes, so test them with errors.Is.
type NlError int

const (
	NLE_SUCCESS NlError = iota
	NLE_FAILURE
	NLE_BAD_SOCK
	NLE_INVAL
	NLE_RANGE
	NLE_MSGSIZE
	NLE_NOATTR
	NLE_SEQ_MISMATCH
	NLE_PORT_MISMATCH
	NLE_MSG_TRUNC
	NLE_MSG_TOOSHORT
	NLE_MSGTYPE_NOSUPPORT
	NLE_ATTRTYPE_NOSUPPORT
	NLE_ENCODING
	NLE_NESTING
	NLE_NODATA
	NLE_NOMSG
	NLE_DUMP_INTR
)

func (self NlError) Error() string {
	switch self {
	default:
		return "Unspecific failure"
	case NLE_SUCCESS:
		return "Success"
	case NLE_BAD_SOCK:
		return "Bad socket"
	case NLE_INVAL:
		return "Invalid input data or parameter"
	case NLE_RANGE:
		return "Input data out of range"
	case NLE_MSGSIZE:
		return "Message size not sufficient"
	case NLE_NOATTR:
		return "Attribute not available"
	case NLE_SEQ_MISMATCH:
		return "Message sequence number mismatch"
	case NLE_PORT_MISMATCH:
		return "Message port id mismatch"
	case NLE_MSG_TRUNC:
		return "Kernel reported truncated message"
	case NLE_MSG_TOOSHORT:
		return "Netlink message is too short"
	case NLE_MSGTYPE_NOSUPPORT:
		return "Netlink message type is not supported"
	case NLE_ATTRTYPE_NOSUPPORT:
		return "Netlink attribute type is not supported"
	case NLE_ENCODING:
		return "Attribute payload is not valid UTF-8"
	case NLE_NESTING:
		return "No open nested attribute"
	case NLE_NODATA:
		return "No attribute data"
	case NLE_NOMSG:
		return "No message started"
	case NLE_DUMP_INTR:
		return "Dump inconsistency detected, interrupted"
	}
}

// KernelError is a nonzero error code carried by an NLMSG_ERROR message.
// Header is the request header the kernel echoed back.
type KernelError struct {
	Errno  unix.Errno
	Header netlink.Header
}

func (self *KernelError) Error() string {
	return fmt.Sprintf("netlink: %s (type=%d seq=%d)", self.Errno.Error(), self.Header.Type, self.Header.Sequence)
}

func (self *KernelError) Unwrap() error {
	return self.Errno
}
