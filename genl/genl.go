// Package genl is the generic netlink dictionary: the genlmsghdr extra
// header and the nlctrl family used to resolve family names.
package genl

import (
	"github.com/hkwi/nlmsg"
)

type Header struct {
	Cmd      uint8
	Version  uint8
	Reserved uint16
}

const SizeofHeader = 0x04

var GENL_HDRLEN int = nlmsg.NLMSG_ALIGN(SizeofHeader)

const (
	GENL_ADMIN_PERM = 1 << iota
	GENL_CMD_CAP_DO
	GENL_CMD_CAP_DUMP
	GENL_CMD_CAP_HASPOL
)

const (
	GENL_ID_GENERATE = 0
	GENL_ID_CTRL     = 0x10
)

const CTRL_VERSION = 0x0001

const (
	CTRL_CMD_UNSPEC = iota
	CTRL_CMD_NEWFAMILY
	CTRL_CMD_DELFAMILY
	CTRL_CMD_GETFAMILY
	CTRL_CMD_NEWOPS
	CTRL_CMD_DELOPS
	CTRL_CMD_GETOPS
	CTRL_CMD_NEWMCAST_GRP
	CTRL_CMD_DELMCAST_GRP
	CTRL_CMD_GETMCAST_GRP
	CTRL_CMD_GETPOLICY
)

// CTRL

const (
	CTRL_ATTR_UNSPEC = iota
	CTRL_ATTR_FAMILY_ID
	CTRL_ATTR_FAMILY_NAME
	CTRL_ATTR_VERSION
	CTRL_ATTR_HDRSIZE
	CTRL_ATTR_MAXATTR
	CTRL_ATTR_OPS
	CTRL_ATTR_MCAST_GROUPS
	CTRL_ATTR_POLICY
	CTRL_ATTR_OP_POLICY
	CTRL_ATTR_OP
	CTRL_ATTR_MAX = CTRL_ATTR_OP
)

const (
	CTRL_ATTR_OP_UNSPEC = iota
	CTRL_ATTR_OP_ID
	CTRL_ATTR_OP_FLAGS // GENL_CMD_CAP_DUMP, etc.,
	CTRL_ATTR_OP_MAX = CTRL_ATTR_OP_FLAGS
)

const (
	CTRL_ATTR_MCAST_GRP_UNSPEC = iota
	CTRL_ATTR_MCAST_GRP_NAME
	CTRL_ATTR_MCAST_GRP_ID
	CTRL_ATTR_MCAST_GRP_MAX = CTRL_ATTR_MCAST_GRP_ID
)

var CTRL_ATTR_itoa = map[uint16]string{
	CTRL_ATTR_FAMILY_ID:    "FAMILY_ID",
	CTRL_ATTR_FAMILY_NAME:  "FAMILY_NAME",
	CTRL_ATTR_VERSION:      "VERSION",
	CTRL_ATTR_HDRSIZE:      "HDRSIZE",
	CTRL_ATTR_MAXATTR:      "MAXATTR",
	CTRL_ATTR_OPS:          "OPS",
	CTRL_ATTR_MCAST_GROUPS: "MCAST_GROUPS",
	CTRL_ATTR_POLICY:       "POLICY",
	CTRL_ATTR_OP_POLICY:    "OP_POLICY",
	CTRL_ATTR_OP:           "OP",
}

var CTRL_ATTR_OP_itoa = map[uint16]string{
	CTRL_ATTR_OP_ID:    "ID",
	CTRL_ATTR_OP_FLAGS: "FLAGS",
}

var CTRL_ATTR_MCAST_GRP_itoa = map[uint16]string{
	CTRL_ATTR_MCAST_GRP_NAME: "NAME",
	CTRL_ATTR_MCAST_GRP_ID:   "ID",
}

var CtrlPolicy nlmsg.MapPolicy = nlmsg.MapPolicy{
	Prefix: "CTRL_ATTR",
	Names:  CTRL_ATTR_itoa,
	Max:    CTRL_ATTR_MAX,
	Rule: map[uint16]nlmsg.Policy{
		CTRL_ATTR_FAMILY_ID:   nlmsg.NLA_U16,
		CTRL_ATTR_FAMILY_NAME: nlmsg.NLA_NUL_STRING,
		CTRL_ATTR_VERSION:     nlmsg.NLA_U32,
		CTRL_ATTR_HDRSIZE:     nlmsg.NLA_U32,
		CTRL_ATTR_MAXATTR:     nlmsg.NLA_U32,
		CTRL_ATTR_OPS: nlmsg.ListPolicy{
			Nested: nlmsg.MapPolicy{
				Prefix: "OP",
				Names:  CTRL_ATTR_OP_itoa,
				Max:    CTRL_ATTR_OP_MAX,
				Rule: map[uint16]nlmsg.Policy{
					CTRL_ATTR_OP_ID:    nlmsg.NLA_U32,
					CTRL_ATTR_OP_FLAGS: nlmsg.NLA_U32,
				},
			},
		},
		CTRL_ATTR_MCAST_GROUPS: nlmsg.ListPolicy{
			Nested: nlmsg.MapPolicy{
				Prefix: "MCAST_GRP",
				Names:  CTRL_ATTR_MCAST_GRP_itoa,
				Max:    CTRL_ATTR_MCAST_GRP_MAX,
				Rule: map[uint16]nlmsg.Policy{
					CTRL_ATTR_MCAST_GRP_NAME: nlmsg.NLA_NUL_STRING,
					CTRL_ATTR_MCAST_GRP_ID:   nlmsg.NLA_U32,
				},
			},
		},
	},
}
