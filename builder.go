package nlmsg

import (
	"encoding/binary"
	"math"
	"slices"

	"github.com/josharian/native"
	"github.com/mdlayher/netlink"
	"github.com/mdlayher/netlink/nlenc"
	"github.com/pkg/errors"
)

// Builder appends netlink messages to a growable buffer. Every append keeps
// the nlmsg_len field of the current message up to date, so Bytes is ready to
// send at any time. Open nested attributes are tracked by offset and closed
// in LIFO order.
//
// Slices returned by a Builder alias its buffer and are invalidated by the
// next append.
type Builder struct {
	buf   []byte
	msg   int // offset of the current message header, -1 before BeginMessage
	nests []int
	limit int // 0 when the buffer may grow without bound

	// set when an append to the current message hit limit
	overflow bool
}

func NewBuilder() *Builder {
	return NewBuilderSize(SocketBufferSize)
}

// NewBuilderSize preallocates hint bytes. The buffer still grows on demand.
func NewBuilderSize(hint int) *Builder {
	return &Builder{
		buf: make([]byte, 0, hint),
		msg: -1,
	}
}

func newFixedBuilder(capacity int) *Builder {
	return &Builder{
		buf:   make([]byte, 0, capacity),
		msg:   -1,
		limit: capacity,
	}
}

// grow appends n zero bytes to the current message and returns their offset.
// Nothing changes when it fails.
func (self *Builder) grow(n int) (int, error) {
	if self.msg < 0 {
		return 0, errors.WithStack(NLE_NOMSG)
	}
	off := len(self.buf)
	if msgLen := int64(off + n - self.msg); msgLen > math.MaxUint32 {
		return 0, errors.Wrapf(NLE_MSGSIZE, "message length %d", msgLen)
	}
	if self.limit > 0 && off+n > self.limit {
		self.overflow = true
		return 0, errors.Wrapf(NLE_MSGSIZE, "%d bytes left, need %d", self.limit-off, n)
	}
	self.buf = slices.Grow(self.buf, n)[:off+n]
	clear(self.buf[off:])
	self.syncLen()
	return off, nil
}

func (self *Builder) syncLen() {
	nlenc.PutUint32(self.buf[self.msg:self.msg+4], uint32(len(self.buf)-self.msg))
}

// BeginMessage starts a new message after whatever the buffer already holds.
func (self *Builder) BeginMessage(typ, flags uint16) error {
	if len(self.nests) > 0 {
		return errors.Wrapf(NLE_NESTING, "%d nested attributes still open", len(self.nests))
	}
	off := len(self.buf)
	if self.limit > 0 && off+NLMSG_HDRLEN > self.limit {
		return errors.Wrapf(NLE_MSGSIZE, "%d bytes left, need %d", self.limit-off, NLMSG_HDRLEN)
	}
	self.buf = slices.Grow(self.buf, NLMSG_HDRLEN)[:off+NLMSG_HDRLEN]
	clear(self.buf[off:])
	self.msg = off
	self.overflow = false
	self.syncLen()
	nlenc.PutUint16(self.buf[off+4:off+6], typ)
	nlenc.PutUint16(self.buf[off+6:off+8], flags)
	return nil
}

// The header setters do nothing before BeginMessage.

func (self *Builder) SetType(typ uint16) {
	if self.msg >= 0 {
		nlenc.PutUint16(self.buf[self.msg+4:self.msg+6], typ)
	}
}

func (self *Builder) SetFlags(flags uint16) {
	if self.msg >= 0 {
		nlenc.PutUint16(self.buf[self.msg+6:self.msg+8], flags)
	}
}

func (self *Builder) SetSequence(seq uint32) {
	if self.msg >= 0 {
		nlenc.PutUint32(self.buf[self.msg+8:self.msg+12], seq)
	}
}

func (self *Builder) SetPortID(pid uint32) {
	if self.msg >= 0 {
		nlenc.PutUint32(self.buf[self.msg+12:self.msg+16], pid)
	}
}

// Header returns a copy of the current message header.
func (self *Builder) Header() netlink.Header {
	if self.msg < 0 {
		return netlink.Header{}
	}
	return decodeHeader(self.buf[self.msg:])
}

// Msg returns a view of the current message.
func (self *Builder) Msg() (Msg, error) {
	if self.msg < 0 {
		return Msg{}, errors.WithStack(NLE_NOMSG)
	}
	return NewMsg(self.buf[self.msg:])
}

// PutExtraHeader appends the family specific header v, such as
// unix.IfInfomsg, padded to NLMSG_ALIGNTO. v must have a fixed size.
func (self *Builder) PutExtraHeader(v any) error {
	n := binary.Size(v)
	if n < 0 {
		return errors.Wrapf(NLE_INVAL, "%T has no fixed size", v)
	}
	if off, err := self.grow(NLMSG_ALIGN(n)); err != nil {
		return err
	} else if _, err := binary.Encode(self.buf[off:off+n], native.Endian, v); err != nil {
		return errors.Wrapf(NLE_INVAL, "%T: %v", v, err)
	}
	return nil
}

// ExtraHeader reserves n zeroed bytes, padded to NLMSG_ALIGNTO, and returns
// them for the caller to fill in.
func (self *Builder) ExtraHeader(n int) ([]byte, error) {
	if n < 0 {
		return nil, errors.Wrapf(NLE_INVAL, "extra header of %d bytes", n)
	}
	if off, err := self.grow(NLMSG_ALIGN(n)); err != nil {
		return nil, err
	} else {
		return self.buf[off : off+n], nil
	}
}

// attr appends an attribute header for plen payload bytes and returns the
// payload region.
func (self *Builder) attr(typ uint16, plen int) ([]byte, error) {
	alen := NLA_HDRLEN + plen
	if alen > math.MaxUint16 {
		return nil, errors.Wrapf(NLE_MSGSIZE, "attribute type %d: length %d", typ, alen)
	}
	off, err := self.grow(NLA_ALIGN(alen))
	if err != nil {
		return nil, err
	}
	nlenc.PutUint16(self.buf[off:off+2], uint16(alen))
	nlenc.PutUint16(self.buf[off+2:off+4], typ)
	return self.buf[off+NLA_HDRLEN : off+alen], nil
}

// PutAttr appends v, any fixed size value, in host byte order.
func (self *Builder) PutAttr(typ uint16, v any) error {
	n := binary.Size(v)
	if n < 0 {
		return errors.Wrapf(NLE_INVAL, "%T has no fixed size", v)
	}
	if p, err := self.attr(typ, n); err != nil {
		return err
	} else if _, err := binary.Encode(p, native.Endian, v); err != nil {
		return errors.Wrapf(NLE_INVAL, "%T: %v", v, err)
	}
	return nil
}

func (self *Builder) PutBytes(typ uint16, data []byte) error {
	if p, err := self.attr(typ, len(data)); err != nil {
		return err
	} else {
		copy(p, data)
	}
	return nil
}

func (self *Builder) PutString(typ uint16, s string) error {
	if p, err := self.attr(typ, len(s)); err != nil {
		return err
	} else {
		copy(p, s)
	}
	return nil
}

// PutNulString appends s with a NUL terminator, which the padding already
// provides as a zero byte.
func (self *Builder) PutNulString(typ uint16, s string) error {
	if p, err := self.attr(typ, len(s)+1); err != nil {
		return err
	} else {
		copy(p, s)
	}
	return nil
}

func (self *Builder) PutFlag(typ uint16) error {
	_, err := self.attr(typ, 0)
	return err
}

func (self *Builder) PutU8(typ uint16, v uint8) error {
	if p, err := self.attr(typ, 1); err != nil {
		return err
	} else {
		p[0] = v
	}
	return nil
}

func (self *Builder) PutU16(typ uint16, v uint16) error {
	if p, err := self.attr(typ, 2); err != nil {
		return err
	} else {
		native.Endian.PutUint16(p, v)
	}
	return nil
}

func (self *Builder) PutU32(typ uint16, v uint32) error {
	if p, err := self.attr(typ, 4); err != nil {
		return err
	} else {
		native.Endian.PutUint32(p, v)
	}
	return nil
}

func (self *Builder) PutU64(typ uint16, v uint64) error {
	if p, err := self.attr(typ, 8); err != nil {
		return err
	} else {
		native.Endian.PutUint64(p, v)
	}
	return nil
}

func (self *Builder) PutS32(typ uint16, v int32) error {
	return self.PutU32(typ, uint32(v))
}

func (self *Builder) PutS64(typ uint16, v int64) error {
	return self.PutU64(typ, uint64(v))
}

// PutBigEndian16 and PutBigEndian32 set NLA_F_NET_BYTEORDER on the type.
func (self *Builder) PutBigEndian16(typ uint16, v uint16) error {
	if p, err := self.attr(typ|NLA_F_NET_BYTEORDER, 2); err != nil {
		return err
	} else {
		binary.BigEndian.PutUint16(p, v)
	}
	return nil
}

func (self *Builder) PutBigEndian32(typ uint16, v uint32) error {
	if p, err := self.attr(typ|NLA_F_NET_BYTEORDER, 4); err != nil {
		return err
	} else {
		binary.BigEndian.PutUint32(p, v)
	}
	return nil
}

// Nest identifies an open nested attribute by the offset of its header.
type Nest struct {
	off int
}

func (self Nest) Offset() int {
	return self.off
}

// NestStart opens a nested attribute. Its length stays 0 until NestEnd.
func (self *Builder) NestStart(typ uint16) (Nest, error) {
	off, err := self.grow(NLA_HDRLEN)
	if err != nil {
		return Nest{}, err
	}
	nlenc.PutUint16(self.buf[off+2:off+4], typ|NLA_F_NESTED)
	self.nests = append(self.nests, off)
	return Nest{off: off}, nil
}

func (self *Builder) openNest() (int, error) {
	if len(self.nests) == 0 {
		return 0, errors.WithStack(NLE_NESTING)
	}
	off := self.nests[len(self.nests)-1]
	if off < self.msg || off+NLA_HDRLEN > len(self.buf) {
		return 0, errors.Wrapf(NLE_NESTING, "nest offset %d outside of buffer", off)
	}
	return off, nil
}

// NestEnd closes the most recently opened nest, patching its length with
// everything appended since NestStart.
func (self *Builder) NestEnd() error {
	off, err := self.openNest()
	if err != nil {
		return err
	}
	span := len(self.buf) - off
	if span > math.MaxUint16 {
		return errors.Wrapf(NLE_MSGSIZE, "nested attribute length %d", span)
	}
	nlenc.PutUint16(self.buf[off:off+2], uint16(span))
	self.nests = self.nests[:len(self.nests)-1]
	return nil
}

// NestEndAt is NestEnd which also checks that n is the innermost open nest.
func (self *Builder) NestEndAt(n Nest) error {
	if off, err := self.openNest(); err != nil {
		return err
	} else if off != n.off {
		return errors.Wrapf(NLE_NESTING, "closing nest at %d, innermost is at %d", n.off, off)
	}
	return self.NestEnd()
}

// NestCancel drops the most recently opened nest and everything appended
// inside it.
func (self *Builder) NestCancel() error {
	off, err := self.openNest()
	if err != nil {
		return err
	}
	self.buf = self.buf[:off]
	self.nests = self.nests[:len(self.nests)-1]
	self.syncLen()
	return nil
}

// Depth is the number of open nests.
func (self *Builder) Depth() int {
	return len(self.nests)
}

func (self *Builder) Reset() {
	self.buf = self.buf[:0]
	self.msg = -1
	self.nests = self.nests[:0]
	self.overflow = false
}

func (self *Builder) Bytes() []byte {
	return self.buf
}

func (self *Builder) Len() int {
	return len(self.buf)
}
