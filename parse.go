package nlmsg

import (
	"github.com/pkg/errors"
)

// Status tells a walk whether to go on. Failures travel in the error result.
type Status int

const (
	Continue Status = iota
	Stop
)

func (self Status) String() string {
	switch self {
	case Continue:
		return "continue"
	case Stop:
		return "stop"
	}
	return "unknown"
}

// AttrFunc is called for each attribute of a stream. Returning Stop or a
// non-nil error ends the walk immediately.
type AttrFunc func(Attr) (Status, error)

// ParseAttrs calls fn for each well-formed attribute of b, in buffer order.
// The walk ends quietly at the first attribute that does not fit, so a
// truncated tail costs only the truncated attribute. A stream whose very
// first attribute is already bad fails with NLE_NODATA.
func ParseAttrs(b []byte, fn AttrFunc) (Status, error) {
	if !AttrAt(b).OK(len(b)) {
		return Stop, errors.Wrapf(NLE_NODATA, "attribute stream of %d bytes", len(b))
	}
	return walk(b, fn)
}

func walk(b []byte, fn AttrFunc) (Status, error) {
	remaining := len(b)
	for a := AttrAt(b); a.OK(remaining); a = a.Next() {
		if st, err := fn(a); err != nil {
			return Stop, err
		} else if st == Stop {
			return Stop, nil
		}
		remaining -= NLA_ALIGN(int(a.Len()))
	}
	return Continue, nil
}

// AttrIter walks an attribute stream lazily, for callers that prefer a loop
// over a callback:
//
//	for it.Next() {
//		a := it.Attr()
//	}
type AttrIter struct {
	cur       Attr
	next      Attr
	remaining int
}

func NewAttrIter(b []byte) *AttrIter {
	return &AttrIter{
		next:      AttrAt(b),
		remaining: len(b),
	}
}

func (self *AttrIter) Next() bool {
	if !self.next.OK(self.remaining) {
		return false
	}
	self.cur = self.next
	self.remaining -= NLA_ALIGN(int(self.cur.Len()))
	self.next = self.cur.Next()
	return true
}

// Attr is the attribute the last successful Next stopped at.
func (self *AttrIter) Attr() Attr {
	return self.cur
}

// Parse hands the rest of the stream to fn, as ParseAttrs does.
func (self *AttrIter) Parse(fn AttrFunc) (Status, error) {
	for self.Next() {
		if st, err := fn(self.cur); err != nil {
			return Stop, err
		} else if st == Stop {
			return Stop, nil
		}
	}
	return Continue, nil
}
