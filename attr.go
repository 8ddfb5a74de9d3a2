package nlmsg

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"unicode/utf8"

	"github.com/josharian/native"
	"github.com/mdlayher/netlink/nlenc"
	"github.com/pkg/errors"
)

// Attr is a view of a single netlink attribute. The underlying slice starts
// at the attribute header and runs to the end of the enclosing attribute
// stream, so an Attr stays valid only as long as the buffer it was taken from
// is not modified.
type Attr struct {
	b []byte
}

// AttrAt returns the attribute whose header starts at b[0].
func AttrAt(b []byte) Attr {
	return Attr{b: b}
}

// Len is the nla_len field: header plus payload, without padding.
func (self Attr) Len() uint16 {
	if len(self.b) < NLA_HDRLEN {
		return 0
	}
	return nlenc.Uint16(self.b[0:2])
}

// RawType is the nla_type field including the NLA_F_* flag bits.
func (self Attr) RawType() uint16 {
	if len(self.b) < NLA_HDRLEN {
		return 0
	}
	return nlenc.Uint16(self.b[2:4])
}

func (self Attr) Type() uint16 {
	return self.RawType() & NLA_TYPE_MASK
}

func (self Attr) Nested() bool {
	return self.RawType()&NLA_F_NESTED != 0
}

func (self Attr) NetByteOrder() bool {
	return self.RawType()&NLA_F_NET_BYTEORDER != 0
}

// PayloadLen is negative when Len is smaller than the header; call OK first.
func (self Attr) PayloadLen() int {
	return int(self.Len()) - NLA_HDRLEN
}

// OK reports whether the attribute is well-formed and fits into the remaining
// bytes of its stream. remaining is signed: while walking a damaged stream the
// running count may drop below zero before this check sees it.
//
// A header-only attribute that exactly fills the remaining bytes is accepted,
// as libmnl's mnl_attr_ok does, so a trailing flag or empty string is not
// lost. See DESIGN.md, "Open question decisions".
func (self Attr) OK(remaining int) bool {
	return remaining >= NLA_HDRLEN &&
		len(self.b) >= NLA_HDRLEN &&
		int(self.Len()) >= NLA_HDRLEN &&
		int(self.Len()) <= remaining &&
		int(self.Len()) <= len(self.b)
}

// Next steps over this attribute and its padding. It does not check that the
// current attribute is well-formed; that is the caller's job.
func (self Attr) Next() Attr {
	step := NLA_ALIGN(int(self.Len()))
	if step > len(self.b) {
		return Attr{}
	}
	return Attr{b: self.b[step:]}
}

// Payload returns the attribute payload without padding, aliasing the
// underlying buffer. It is nil if the header is malformed.
func (self Attr) Payload() []byte {
	n := int(self.Len())
	if n < NLA_HDRLEN || n > len(self.b) {
		return nil
	}
	return self.b[NLA_HDRLEN:n]
}

// Bytes returns the attribute including header, without trailing padding.
func (self Attr) Bytes() []byte {
	n := int(self.Len())
	if n < NLA_HDRLEN || n > len(self.b) {
		return nil
	}
	return self.b[:n]
}

// TypeWithin fails with NLE_ATTRTYPE_NOSUPPORT when the attribute type is
// above max, the largest type the caller knows. Newer kernels add types, so
// callers should skip such attributes rather than abort.
func (self Attr) TypeWithin(max uint16) error {
	if t := self.Type(); t > max {
		return errors.Wrapf(NLE_ATTRTYPE_NOSUPPORT, "attribute type %d, max %d", t, max)
	}
	return nil
}

// Validate checks the payload length against the expected kind. Fixed width
// kinds accept longer payloads, the extra bytes belonging to a newer kernel.
func (self Attr) Validate(kind Kind) error {
	payload := self.Payload()
	if payload == nil {
		return errors.Wrapf(NLE_INVAL, "attribute type %d: bad length %d", self.Type(), self.Len())
	}
	plen := len(payload)
	switch kind {
	case NLA_UNSPEC, NLA_BINARY:
	case NLA_FLAG:
		if plen != 0 {
			return errors.Wrapf(NLE_INVAL, "attribute type %d: flag with %d bytes payload", self.Type(), plen)
		}
	case NLA_NUL_STRING:
		if plen < 1 {
			return errors.Wrapf(NLE_INVAL, "attribute type %d: empty string", self.Type())
		}
		if payload[plen-1] != 0 {
			return errors.Wrapf(NLE_INVAL, "attribute type %d: string not NUL terminated", self.Type())
		}
	case NLA_STRING:
		if plen < 1 {
			return errors.Wrapf(NLE_INVAL, "attribute type %d: empty string", self.Type())
		}
	case NLA_NESTED, NLA_NESTED_COMPAT:
		if plen != 0 && plen < NLA_HDRLEN {
			return errors.Wrapf(NLE_INVAL, "attribute type %d: nested payload of %d bytes", self.Type(), plen)
		}
	default:
		want := kind.Size()
		if want == 0 {
			return errors.Wrapf(NLE_INVAL, "unknown attribute kind %d", kind)
		}
		if plen < want {
			return errors.Wrapf(NLE_INVAL, "attribute type %d: want %d bytes, have %d", self.Type(), want, plen)
		}
	}
	return nil
}

// AttrAs decodes the head of the payload into a fixed size value in host byte
// order. T must be a type encoding/binary can size, such as an integer or a
// struct of them.
func AttrAs[T any](a Attr) (T, error) {
	var v T
	n := binary.Size(v)
	if n < 0 {
		return v, errors.Wrapf(NLE_INVAL, "%T has no fixed size", v)
	}
	payload := a.Payload()
	if n > len(payload) {
		return v, errors.Wrapf(NLE_RANGE, "attribute type %d: %T needs %d bytes, payload has %d", a.Type(), v, n, len(payload))
	}
	if _, err := binary.Decode(payload[:n], native.Endian, &v); err != nil {
		return v, errors.Wrapf(NLE_RANGE, "attribute type %d: %v", a.Type(), err)
	}
	return v, nil
}

func (self Attr) U8() (uint8, error)   { return AttrAs[uint8](self) }
func (self Attr) U16() (uint16, error) { return AttrAs[uint16](self) }
func (self Attr) U32() (uint32, error) { return AttrAs[uint32](self) }
func (self Attr) U64() (uint64, error) { return AttrAs[uint64](self) }
func (self Attr) S8() (int8, error)    { return AttrAs[int8](self) }
func (self Attr) S16() (int16, error)  { return AttrAs[int16](self) }
func (self Attr) S32() (int32, error)  { return AttrAs[int32](self) }
func (self Attr) S64() (int64, error)  { return AttrAs[int64](self) }

// BigEndian16 and BigEndian32 read payloads flagged NLA_F_NET_BYTEORDER, or
// any other attribute the protocol defines in network order.
func (self Attr) BigEndian16() (uint16, error) {
	if p := self.Payload(); len(p) < 2 {
		return 0, errors.Wrapf(NLE_RANGE, "attribute type %d: want 2 bytes, have %d", self.Type(), len(p))
	} else {
		return binary.BigEndian.Uint16(p), nil
	}
}

func (self Attr) BigEndian32() (uint32, error) {
	if p := self.Payload(); len(p) < 4 {
		return 0, errors.Wrapf(NLE_RANGE, "attribute type %d: want 4 bytes, have %d", self.Type(), len(p))
	} else {
		return binary.BigEndian.Uint32(p), nil
	}
}

// Str returns the payload up to the first NUL byte.
func (self Attr) Str() (string, error) {
	p := self.Payload()
	if i := bytes.IndexByte(p, 0); i >= 0 {
		p = p[:i]
	}
	if !utf8.Valid(p) {
		return "", errors.Wrapf(NLE_ENCODING, "attribute type %d", self.Type())
	}
	return string(p), nil
}

// ParseNested walks the payload as an attribute stream. An empty nest is not
// an error.
func (self Attr) ParseNested(fn AttrFunc) (Status, error) {
	return walk(self.Payload(), fn)
}

func (self Attr) String() string {
	flags := ""
	if self.Nested() {
		flags += "N"
	}
	if self.NetByteOrder() {
		flags += "B"
	}
	return fmt.Sprintf("attr(type=%d%s len=%d)", self.Type(), flags, self.Len())
}

// Kind is the expected payload shape of an attribute.
type Kind uint16

const (
	NLA_UNSPEC Kind = iota
	NLA_U8
	NLA_U16
	NLA_U32
	NLA_U64
	NLA_STRING
	NLA_FLAG
	NLA_MSECS
	NLA_NESTED
	NLA_NESTED_COMPAT
	NLA_NUL_STRING
	NLA_BINARY
	NLA_S8
	NLA_S16
	NLA_S32
	NLA_S64
)

// Size is the payload width of fixed width kinds and 0 otherwise.
func (self Kind) Size() int {
	switch self {
	case NLA_U8, NLA_S8:
		return 1
	case NLA_U16, NLA_S16:
		return 2
	case NLA_U32, NLA_S32:
		return 4
	case NLA_U64, NLA_S64, NLA_MSECS:
		return 8
	}
	return 0
}
