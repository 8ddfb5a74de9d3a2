package nlmsg

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// Value is a decoded attribute. Data holds uint8 ... int64 for integer
// kinds, string for string kinds, true for flags, []byte for binary and
// unknown attributes, and AttrList for nested ones. []byte values alias the
// receive buffer.
type Value struct {
	Type   uint16
	Nested bool
	Data   interface{}
}

type AttrList []Value

func (self AttrList) Get(typ uint16) interface{} {
	for _, v := range self {
		if v.Type == typ {
			return v.Data
		}
	}
	return nil
}

func (self AttrList) Has(typ uint16) bool {
	return self.Get(typ) != nil
}

func (self AttrList) U8(typ uint16) (uint8, bool) {
	v, ok := self.Get(typ).(uint8)
	return v, ok
}

func (self AttrList) U16(typ uint16) (uint16, bool) {
	v, ok := self.Get(typ).(uint16)
	return v, ok
}

func (self AttrList) U32(typ uint16) (uint32, bool) {
	v, ok := self.Get(typ).(uint32)
	return v, ok
}

func (self AttrList) U64(typ uint16) (uint64, bool) {
	v, ok := self.Get(typ).(uint64)
	return v, ok
}

func (self AttrList) Str(typ uint16) (string, bool) {
	v, ok := self.Get(typ).(string)
	return v, ok
}

func (self AttrList) Bytes(typ uint16) ([]byte, bool) {
	v, ok := self.Get(typ).([]byte)
	return v, ok
}

func (self AttrList) List(typ uint16) (AttrList, bool) {
	v, ok := self.Get(typ).(AttrList)
	return v, ok
}

// Policy decodes the payload of one attribute.
type Policy interface {
	Decode(Attr) (interface{}, error)
}

// Decode validates a against the kind and returns its typed value.
func (self Kind) Decode(a Attr) (interface{}, error) {
	if err := a.Validate(self); err != nil {
		return nil, err
	}
	switch self {
	case NLA_U8:
		return a.U8()
	case NLA_U16:
		return a.U16()
	case NLA_U32:
		return a.U32()
	case NLA_U64, NLA_MSECS:
		return a.U64()
	case NLA_S8:
		return a.S8()
	case NLA_S16:
		return a.S16()
	case NLA_S32:
		return a.S32()
	case NLA_S64:
		return a.S64()
	case NLA_STRING, NLA_NUL_STRING:
		return a.Str()
	case NLA_FLAG:
		return true, nil
	case NLA_NESTED, NLA_NESTED_COMPAT:
		return binList.Decode(a)
	default:
		return a.Payload(), nil
	}
}

// ListPolicy is a nested attribute whose children are array entries, each
// decoded by Nested. The child type is only an index.
type ListPolicy struct {
	Nested Policy
}

func (self ListPolicy) Decode(a Attr) (interface{}, error) {
	return self.Parse(a.Payload())
}

func (self ListPolicy) Parse(b []byte) (AttrList, error) {
	var ret AttrList
	if _, err := walk(b, func(a Attr) (Status, error) {
		if v, err := self.Nested.Decode(a); err != nil {
			return Stop, err
		} else {
			ret = append(ret, Value{
				Type:   a.Type(),
				Nested: a.Nested(),
				Data:   v,
			})
		}
		return Continue, nil
	}); err != nil {
		return nil, err
	}
	return ret, nil
}

func (self ListPolicy) Dump(attrs AttrList) string {
	var comps []string
	for _, attr := range attrs {
		comps = append(comps, fmt.Sprintf("%d: %s", attr.Type, dumpValue(self.Nested, attr.Data)))
	}
	return fmt.Sprintf("[%s]", strings.Join(comps, ", "))
}

var binList Policy = ListPolicy{Nested: NLA_BINARY}

// MapPolicy is the attribute table of one protocol family, keyed by type.
// Max is the largest type the table knows, the kernel's FOO_ATTR_MAX;
// anything above it comes from a newer kernel and is skipped. Types up to Max
// without a rule are kept as raw bytes.
type MapPolicy struct {
	Prefix string
	Names  map[uint16]string
	Rule   map[uint16]Policy
	Max    uint16
}

func (self MapPolicy) Decode(a Attr) (interface{}, error) {
	return self.Parse(a.Payload())
}

func (self MapPolicy) Parse(b []byte) (AttrList, error) {
	var ret AttrList
	if _, err := walk(b, func(a Attr) (Status, error) {
		if err := a.TypeWithin(self.Max); err != nil {
			return Continue, nil
		}
		v := Value{
			Type:   a.Type(),
			Nested: a.Nested(),
		}
		if p, ok := self.Rule[v.Type]; ok {
			if data, err := p.Decode(a); err != nil {
				return Stop, errors.Wrapf(err, "%s_%s", self.Prefix, self.name(v.Type))
			} else {
				v.Data = data
			}
		} else if !v.Nested {
			v.Data = a.Payload()
		} else if data, err := binList.Decode(a); err != nil {
			return Stop, err
		} else {
			v.Data = data
		}
		ret = append(ret, v)
		return Continue, nil
	}); err != nil {
		return nil, err
	}
	return ret, nil
}

// ParseMsg parses the attributes of m that follow a family header of offset
// bytes. A message without attributes yields an empty list.
func (self MapPolicy) ParseMsg(m Msg, offset int) (AttrList, error) {
	payload := m.PayloadBytes()
	if NLMSG_ALIGN(offset) > len(payload) {
		return nil, errors.Wrapf(NLE_MSG_TOOSHORT, "family header of %d bytes, payload of %d", offset, len(payload))
	}
	return self.Parse(payload[NLMSG_ALIGN(offset):])
}

func (self MapPolicy) name(typ uint16) string {
	if n, ok := self.Names[typ]; ok {
		return n
	}
	return fmt.Sprint(typ)
}

func (self MapPolicy) Dump(attrs AttrList) string {
	var comps []string
	for _, attr := range attrs {
		name := "?"
		if n, ok := self.Names[attr.Type]; ok {
			name = n
		}
		comps = append(comps, fmt.Sprintf("%s: %s", name, dumpValue(self.Rule[attr.Type], attr.Data)))
	}
	return fmt.Sprintf("%s(%s)", self.Prefix, strings.Join(comps, ", "))
}

func dumpValue(p Policy, data interface{}) string {
	switch policy := p.(type) {
	case MapPolicy:
		if list, ok := data.(AttrList); ok {
			return policy.Dump(list)
		}
	case ListPolicy:
		if list, ok := data.(AttrList); ok {
			return policy.Dump(list)
		}
	}
	if list, ok := data.(AttrList); ok {
		return binList.(ListPolicy).Dump(list)
	}
	return fmt.Sprintf("%#v", data)
}
