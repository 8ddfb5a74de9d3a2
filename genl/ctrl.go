package genl

import (
	"fmt"

	"github.com/hkwi/nlmsg"
	"github.com/pkg/errors"
)

type Family struct {
	ID      uint16
	Name    string
	Version uint32
	HdrSize uint32
	MaxAttr uint32
	Groups  []Group
}

type Group struct {
	ID   uint32
	Name string
}

func (self Family) String() string {
	return fmt.Sprintf("%s(id=%d version=%d groups=%d)", self.Name, self.ID, self.Version, len(self.Groups))
}

// Group looks up a multicast group id by name.
func (self Family) Group(name string) (uint32, bool) {
	for _, g := range self.Groups {
		if g.Name == name {
			return g.ID, true
		}
	}
	return 0, false
}

func (self *Family) FromAttrs(attrs nlmsg.AttrList) {
	if t, ok := attrs.U16(CTRL_ATTR_FAMILY_ID); ok {
		self.ID = t
	}
	if t, ok := attrs.Str(CTRL_ATTR_FAMILY_NAME); ok {
		self.Name = t
	}
	if t, ok := attrs.U32(CTRL_ATTR_VERSION); ok {
		self.Version = t
	}
	if t, ok := attrs.U32(CTRL_ATTR_HDRSIZE); ok {
		self.HdrSize = t
	}
	if t, ok := attrs.U32(CTRL_ATTR_MAXATTR); ok {
		self.MaxAttr = t
	}
	if grps, ok := attrs.List(CTRL_ATTR_MCAST_GROUPS); ok {
		for _, grp := range grps {
			if list, ok := grp.Data.(nlmsg.AttrList); ok {
				var g Group
				g.ID, _ = list.U32(CTRL_ATTR_MCAST_GRP_ID)
				g.Name, _ = list.Str(CTRL_ATTR_MCAST_GRP_NAME)
				self.Groups = append(self.Groups, g)
			}
		}
	}
}

// NewGetFamily starts a CTRL_CMD_GETFAMILY request for name in b. An empty
// name asks for a dump of all families.
func NewGetFamily(b *nlmsg.Builder, name string) error {
	flags := nlmsg.NLM_F_REQUEST
	if name == "" {
		flags |= nlmsg.NLM_F_DUMP
	}
	if err := b.BeginMessage(GENL_ID_CTRL, flags); err != nil {
		return err
	}
	if err := b.PutExtraHeader(Header{
		Cmd:     CTRL_CMD_GETFAMILY,
		Version: CTRL_VERSION,
	}); err != nil {
		return err
	}
	if name != "" {
		return b.PutNulString(CTRL_ATTR_FAMILY_NAME, name)
	}
	return nil
}

// ParseHeader returns the genlmsghdr of a generic netlink message.
func ParseHeader(m nlmsg.Msg) (Header, error) {
	var hdr Header
	err := m.Payload(&hdr)
	return hdr, err
}

// ParseFamily decodes a CTRL_CMD_NEWFAMILY message.
func ParseFamily(m nlmsg.Msg) (Family, error) {
	var ret Family
	if m.Type() != GENL_ID_CTRL {
		return ret, errors.Wrapf(nlmsg.NLE_MSGTYPE_NOSUPPORT, "type %d is not nlctrl", m.Type())
	}
	if hdr, err := ParseHeader(m); err != nil {
		return ret, err
	} else if hdr.Cmd != CTRL_CMD_NEWFAMILY {
		return ret, errors.Wrapf(nlmsg.NLE_MSGTYPE_NOSUPPORT, "nlctrl command %d", hdr.Cmd)
	}
	if attrs, err := CtrlPolicy.ParseMsg(m, GENL_HDRLEN); err != nil {
		return ret, err
	} else {
		ret.FromAttrs(attrs)
	}
	return ret, nil
}
