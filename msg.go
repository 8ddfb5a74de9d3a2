package nlmsg

import (
	"encoding/binary"
	"fmt"

	"github.com/josharian/native"
	"github.com/mdlayher/netlink"
	"github.com/mdlayher/netlink/nlenc"
	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// Msg is a view of one netlink message inside a receive buffer. The
// underlying slice runs from the message header to the end of the buffer, so
// Next can step to the following message.
type Msg struct {
	b []byte
}

func decodeHeader(b []byte) netlink.Header {
	return netlink.Header{
		Length:   nlenc.Uint32(b[0:4]),
		Type:     netlink.HeaderType(nlenc.Uint16(b[4:6])),
		Flags:    netlink.HeaderFlags(nlenc.Uint16(b[6:8])),
		Sequence: nlenc.Uint32(b[8:12]),
		PID:      nlenc.Uint32(b[12:16]),
	}
}

// MsgOK reports whether b starts with a complete message.
func MsgOK(b []byte) bool {
	if len(b) < NLMSG_HDRLEN {
		return false
	}
	n := nlenc.Uint32(b[0:4])
	return n >= NLMSG_HDRLEN && uint64(n) <= uint64(len(b))
}

// NewMsg returns a view of the first message of b.
func NewMsg(b []byte) (Msg, error) {
	if !MsgOK(b) {
		return Msg{}, errors.Wrapf(NLE_MSG_TOOSHORT, "buffer of %d bytes", len(b))
	}
	return Msg{b: b}, nil
}

func (self Msg) Header() netlink.Header {
	if len(self.b) < NLMSG_HDRLEN {
		return netlink.Header{}
	}
	return decodeHeader(self.b)
}

// Len is the nlmsg_len field.
func (self Msg) Len() int {
	if len(self.b) < NLMSG_HDRLEN {
		return 0
	}
	return int(nlenc.Uint32(self.b[0:4]))
}

func (self Msg) Type() uint16 {
	return uint16(self.Header().Type)
}

func (self Msg) Flags() uint16 {
	return uint16(self.Header().Flags)
}

func (self Msg) Seq() uint32 {
	return self.Header().Sequence
}

func (self Msg) PortID() uint32 {
	return self.Header().PID
}

// Bytes is the message itself, header included.
func (self Msg) Bytes() []byte {
	return self.b[:self.Len()]
}

// PayloadBytes is everything after the netlink header: the family header,
// if any, followed by attributes.
func (self Msg) PayloadBytes() []byte {
	if self.Len() < NLMSG_HDRLEN {
		return nil
	}
	return self.b[NLMSG_HDRLEN:self.Len()]
}

// Payload decodes the family header at the start of the payload into v, which
// must be a pointer to a fixed size value.
func (self Msg) Payload(v any) error {
	n := binary.Size(v)
	if n < 0 {
		return errors.Wrapf(NLE_INVAL, "%T has no fixed size", v)
	}
	if NLMSG_ALIGN(n)+NLMSG_HDRLEN > self.Len() {
		return errors.Wrapf(NLE_MSG_TOOSHORT, "%T needs %d bytes, message has %d", v, n, self.Len())
	}
	if _, err := binary.Decode(self.b[NLMSG_HDRLEN:NLMSG_HDRLEN+n], native.Endian, v); err != nil {
		return errors.Wrapf(NLE_INVAL, "%T: %v", v, err)
	}
	return nil
}

// attrStream returns the attributes that follow an extra header of offset
// bytes.
func (self Msg) attrStream(offset int) ([]byte, error) {
	start := NLMSG_HDRLEN + NLMSG_ALIGN(offset)
	if offset < 0 || start+NLA_HDRLEN > self.Len() {
		return nil, errors.Wrapf(NLE_MSGSIZE, "no room for attributes at offset %d of %d byte message", offset, self.Len())
	}
	return self.b[start:self.Len()], nil
}

// Attrs iterates over the attributes after an extra header of offset bytes.
// It fails when offset leaves no room for even one attribute header, which
// usually means the caller passed the wrong offset.
func (self Msg) Attrs(offset int) (*AttrIter, error) {
	if b, err := self.attrStream(offset); err != nil {
		return nil, err
	} else {
		return NewAttrIter(b), nil
	}
}

// Parse runs ParseAttrs over the attributes after an extra header of offset
// bytes.
func (self Msg) Parse(offset int, fn AttrFunc) (Status, error) {
	if b, err := self.attrStream(offset); err != nil {
		return Stop, err
	} else {
		return ParseAttrs(b, fn)
	}
}

// Next returns the message following this one in the same buffer. It returns
// false at the end of the buffer and when the rest does not hold a complete
// message.
func (self Msg) Next() (Msg, bool) {
	step := NLMSG_ALIGN(self.Len())
	if step == 0 || step >= len(self.b) {
		return Msg{}, false
	}
	rest := self.b[step:]
	if !MsgOK(rest) {
		return Msg{}, false
	}
	return Msg{b: rest}, true
}

// SeqOK compares the sequence number. Zero on either side always matches,
// as kernel notifications carry no sequence number.
func (self Msg) SeqOK(seq uint32) error {
	if got := self.Seq(); got != 0 && seq != 0 && got != seq {
		return errors.Wrapf(NLE_SEQ_MISMATCH, "got %d, want %d", got, seq)
	}
	return nil
}

// PortOK compares the port id with the same zero rule as SeqOK.
func (self Msg) PortOK(portid uint32) error {
	if got := self.PortID(); got != 0 && portid != 0 && got != portid {
		return errors.Wrapf(NLE_PORT_MISMATCH, "got %d, want %d", got, portid)
	}
	return nil
}

// Err decodes an NLMSG_ERROR message: nil for an acknowledgement, a
// *KernelError otherwise.
func (self Msg) Err() error {
	if self.Type() != NLMSG_ERROR {
		return errors.Wrapf(NLE_MSGTYPE_NOSUPPORT, "type %d is not NLMSG_ERROR", self.Type())
	}
	if self.Len() < NLMSG_HDRLEN+SizeofNlMsgerr {
		return errors.Wrapf(NLE_MSG_TOOSHORT, "error message of %d bytes", self.Len())
	}
	p := self.PayloadBytes()
	code := int32(nlenc.Uint32(p[0:4]))
	if code == 0 {
		return nil
	}
	if code < 0 {
		code = -code
	}
	return &KernelError{
		Errno:  unix.Errno(code),
		Header: decodeHeader(p[4:]),
	}
}

func (self Msg) String() string {
	return fmt.Sprintf("msg(len=%d type=%d flags=%#x seq=%d pid=%d)", self.Len(), self.Type(), self.Flags(), self.Seq(), self.PortID())
}
