// Package rtlink provides RTM_*LINK utilities on top of nlmsg.
package rtlink

import (
	"fmt"
	"net"

	"github.com/hkwi/nlmsg"
	"github.com/pkg/errors"
)

const (
	RTM_NEWLINK = 16 + iota
	RTM_DELLINK
	RTM_GETLINK
	RTM_SETLINK
)

type IfInfomsg struct {
	Family uint8
	_      uint8
	Type   uint16
	Index  int32
	Flags  uint32
	Change uint32
}

const SizeofIfInfomsg = 0x10

const (
	IFLA_UNSPEC = iota
	IFLA_ADDRESS
	IFLA_BROADCAST
	IFLA_IFNAME
	IFLA_MTU
	IFLA_LINK // used with 8021q, for example
	IFLA_QDISC
	IFLA_STATS
	IFLA_COST
	IFLA_PRIORITY
	IFLA_MASTER
	IFLA_WIRELESS
	IFLA_PROTINFO
	IFLA_TXQLEN
	IFLA_MAP
	IFLA_WEIGHT
	IFLA_OPERSTATE
	IFLA_LINKMODE
	IFLA_LINKINFO
	IFLA_NET_NS_PID
	IFLA_IFALIAS
	IFLA_NUM_VF
	IFLA_VFINFO_LIST
	IFLA_STATS64
	IFLA_VF_PORTS
	IFLA_PORT_SELF
	IFLA_AF_SPEC
	IFLA_GROUP
	IFLA_NET_NS_FD
	IFLA_EXT_MASK
	IFLA_PROMISCUITY
	IFLA_NUM_TX_QUEUES
	IFLA_NUM_RX_QUEUES
	IFLA_CARRIER
	IFLA_PHYS_PORT_ID
	IFLA_CARRIER_CHANGES
	IFLA_PHYS_SWITCH_ID
	IFLA_LINK_NETNSID
	IFLA_PHYS_PORT_NAME
	IFLA_PROTO_DOWN
	IFLA_GSO_MAX_SEGS
	IFLA_GSO_MAX_SIZE
	IFLA_PAD
	IFLA_XDP
	IFLA_EVENT
	IFLA_NEW_NETNSID
	IFLA_IF_NETNSID
	IFLA_CARRIER_UP_COUNT
	IFLA_CARRIER_DOWN_COUNT
	IFLA_NEW_IFINDEX
	IFLA_MIN_MTU
	IFLA_MAX_MTU
	IFLA_MAX = IFLA_MAX_MTU
)

const (
	IFLA_INFO_UNSPEC = iota
	IFLA_INFO_KIND
	IFLA_INFO_DATA
	IFLA_INFO_XSTATS
	IFLA_INFO_SLAVE_KIND
	IFLA_INFO_SLAVE_DATA
	IFLA_INFO_MAX = IFLA_INFO_SLAVE_DATA
)

const (
	IFLA_VF_UNSPEC = iota
	IFLA_VF_MAC
	IFLA_VF_VLAN
	IFLA_VF_TX_RATE
	IFLA_VF_SPOOFCHK
	IFLA_VF_LINK_STATE
	IFLA_VF_RATE
	IFLA_VF_MAX = IFLA_VF_RATE
)

const (
	IFLA_VF_PORT_UNSPEC = iota
	IFLA_VF_PORT
)

const (
	IFLA_PORT_UNSPEC = iota
	IFLA_PORT_VF
	IFLA_PORT_PROFILE
	IFLA_PORT_VSI_TYPE
	IFLA_PORT_INSTANCE_UUID
	IFLA_PORT_HOST_UUID
	IFLA_PORT_REQUEST
	IFLA_PORT_RESPONSE
	IFLA_PORT_MAX = IFLA_PORT_RESPONSE
)

// operstate, RFC 2863
const (
	IF_OPER_UNKNOWN = iota
	IF_OPER_NOTPRESENT
	IF_OPER_DOWN
	IF_OPER_LOWERLAYERDOWN
	IF_OPER_TESTING
	IF_OPER_DORMANT
	IF_OPER_UP
)

var IFLA_itoa = map[uint16]string{
	IFLA_ADDRESS:            "ADDRESS",
	IFLA_BROADCAST:          "BROADCAST",
	IFLA_IFNAME:             "IFNAME",
	IFLA_MTU:                "MTU",
	IFLA_LINK:               "LINK",
	IFLA_QDISC:              "QDISC",
	IFLA_STATS:              "STATS",
	IFLA_COST:               "COST",
	IFLA_PRIORITY:           "PRIORITY",
	IFLA_MASTER:             "MASTER",
	IFLA_WIRELESS:           "WIRELESS",
	IFLA_PROTINFO:           "PROTINFO",
	IFLA_TXQLEN:             "TXQLEN",
	IFLA_MAP:                "MAP",
	IFLA_WEIGHT:             "WEIGHT",
	IFLA_OPERSTATE:          "OPERSTATE",
	IFLA_LINKMODE:           "LINKMODE",
	IFLA_LINKINFO:           "LINKINFO",
	IFLA_NET_NS_PID:         "NET_NS_PID",
	IFLA_IFALIAS:            "IFALIAS",
	IFLA_NUM_VF:             "NUM_VF",
	IFLA_VFINFO_LIST:        "VFINFO_LIST",
	IFLA_STATS64:            "STATS64",
	IFLA_VF_PORTS:           "VF_PORTS",
	IFLA_PORT_SELF:          "PORT_SELF",
	IFLA_AF_SPEC:            "AF_SPEC",
	IFLA_GROUP:              "GROUP",
	IFLA_NET_NS_FD:          "NET_NS_FD",
	IFLA_EXT_MASK:           "EXT_MASK",
	IFLA_PROMISCUITY:        "PROMISCUITY",
	IFLA_NUM_TX_QUEUES:      "NUM_TX_QUEUES",
	IFLA_NUM_RX_QUEUES:      "NUM_RX_QUEUES",
	IFLA_CARRIER:            "CARRIER",
	IFLA_PHYS_PORT_ID:       "PHYS_PORT_ID",
	IFLA_CARRIER_CHANGES:    "CARRIER_CHANGES",
	IFLA_PHYS_SWITCH_ID:     "PHYS_SWITCH_ID",
	IFLA_LINK_NETNSID:       "LINK_NETNSID",
	IFLA_PHYS_PORT_NAME:     "PHYS_PORT_NAME",
	IFLA_PROTO_DOWN:         "PROTO_DOWN",
	IFLA_GSO_MAX_SEGS:       "GSO_MAX_SEGS",
	IFLA_GSO_MAX_SIZE:       "GSO_MAX_SIZE",
	IFLA_PAD:                "PAD",
	IFLA_XDP:                "XDP",
	IFLA_EVENT:              "EVENT",
	IFLA_NEW_NETNSID:        "NEW_NETNSID",
	IFLA_IF_NETNSID:         "IF_NETNSID",
	IFLA_CARRIER_UP_COUNT:   "CARRIER_UP_COUNT",
	IFLA_CARRIER_DOWN_COUNT: "CARRIER_DOWN_COUNT",
	IFLA_NEW_IFINDEX:        "NEW_IFINDEX",
	IFLA_MIN_MTU:            "MIN_MTU",
	IFLA_MAX_MTU:            "MAX_MTU",
}

var IFLA_INFO_itoa = map[uint16]string{
	IFLA_INFO_KIND:       "KIND",
	IFLA_INFO_DATA:       "DATA",
	IFLA_INFO_XSTATS:     "XSTATS",
	IFLA_INFO_SLAVE_KIND: "SLAVE_KIND",
	IFLA_INFO_SLAVE_DATA: "SLAVE_DATA",
}

var IFLA_VF_itoa = map[uint16]string{
	IFLA_VF_MAC:        "MAC",
	IFLA_VF_VLAN:       "VLAN",
	IFLA_VF_TX_RATE:    "TX_RATE",
	IFLA_VF_SPOOFCHK:   "SPOOFCHK",
	IFLA_VF_LINK_STATE: "LINK_STATE",
	IFLA_VF_RATE:       "RATE",
}

var IFLA_VF_PORT_itoa = map[uint16]string{
	IFLA_VF_PORT: "PORT",
}

var IFLA_PORT_itoa = map[uint16]string{
	IFLA_PORT_VF:            "VF",
	IFLA_PORT_PROFILE:       "PROFILE",
	IFLA_PORT_VSI_TYPE:      "VSI_TYPE",
	IFLA_PORT_INSTANCE_UUID: "INSTANCE_UUID",
	IFLA_PORT_HOST_UUID:     "HOST_UUID",
	IFLA_PORT_REQUEST:       "REQUEST",
	IFLA_PORT_RESPONSE:      "RESPONSE",
}

// RtnlLinkStats64 will be the contents for IFLA_STATS64.
type RtnlLinkStats64 struct {
	RxPackets  uint64
	TxPackets  uint64
	RxBytes    uint64
	TxBytes    uint64
	RxErrors   uint64
	TxErrors   uint64
	RxDropped  uint64
	TxDropped  uint64
	Multicast  uint64
	Collisions uint64
	// detailed rx_errors
	RxLengthErrors uint64
	RxOverErrors   uint64
	RxCrcErrors    uint64
	RxFrameErrors  uint64
	RxFifoErrors   uint64
	RxMissedErrors uint64
	// detailed tx_errors
	TxAbortedErrors   uint64
	TxCarrierErrors   uint64
	TxFifoErrors      uint64
	TxHeartbeatErrors uint64
	TxWindowErrors    uint64
	// cslip etc.
	RxCompressed uint64
	TxCompressed uint64
}

type stats64Policy struct{}

func (stats64Policy) Decode(a nlmsg.Attr) (interface{}, error) {
	return nlmsg.AttrAs[RtnlLinkStats64](a)
}

var portPolicy nlmsg.Policy = nlmsg.MapPolicy{
	Prefix: "IFLA_PORT",
	Names:  IFLA_PORT_itoa,
	Max:    IFLA_PORT_MAX,
	Rule: map[uint16]nlmsg.Policy{
		IFLA_PORT_VF:            nlmsg.NLA_U32,
		IFLA_PORT_PROFILE:       nlmsg.NLA_STRING,
		IFLA_PORT_VSI_TYPE:      nlmsg.NLA_BINARY,
		IFLA_PORT_INSTANCE_UUID: nlmsg.NLA_BINARY,
		IFLA_PORT_HOST_UUID:     nlmsg.NLA_BINARY,
		IFLA_PORT_REQUEST:       nlmsg.NLA_U8,
		IFLA_PORT_RESPONSE:      nlmsg.NLA_U16,
	},
}

var LinkPolicy nlmsg.MapPolicy = nlmsg.MapPolicy{
	Prefix: "IFLA",
	Names:  IFLA_itoa,
	Max:    IFLA_MAX,
	Rule: map[uint16]nlmsg.Policy{
		IFLA_IFNAME:    nlmsg.NLA_NUL_STRING,
		IFLA_ADDRESS:   nlmsg.NLA_BINARY,
		IFLA_BROADCAST: nlmsg.NLA_BINARY,
		IFLA_MAP:       nlmsg.NLA_BINARY,
		IFLA_MTU:       nlmsg.NLA_U32,
		IFLA_LINK:      nlmsg.NLA_U32,
		IFLA_MASTER:    nlmsg.NLA_U32,
		IFLA_CARRIER:   nlmsg.NLA_U8,
		IFLA_TXQLEN:    nlmsg.NLA_U32,
		IFLA_WEIGHT:    nlmsg.NLA_U32,
		IFLA_OPERSTATE: nlmsg.NLA_U8,
		IFLA_LINKMODE:  nlmsg.NLA_U8,
		IFLA_LINKINFO: nlmsg.MapPolicy{
			Prefix: "INFO",
			Names:  IFLA_INFO_itoa,
			Max:    IFLA_INFO_MAX,
			Rule: map[uint16]nlmsg.Policy{
				IFLA_INFO_KIND:       nlmsg.NLA_STRING,
				IFLA_INFO_DATA:       nlmsg.NLA_BINARY, // depends on the kind
				IFLA_INFO_SLAVE_KIND: nlmsg.NLA_STRING,
				IFLA_INFO_SLAVE_DATA: nlmsg.NLA_BINARY, // depends on the kind
			},
		},
		IFLA_NET_NS_PID: nlmsg.NLA_U32,
		IFLA_NET_NS_FD:  nlmsg.NLA_U32,
		IFLA_IFALIAS:    nlmsg.NLA_STRING,
		IFLA_VFINFO_LIST: nlmsg.ListPolicy{
			Nested: nlmsg.MapPolicy{
				Prefix: "VF",
				Names:  IFLA_VF_itoa,
				Max:    IFLA_VF_MAX,
				Rule: map[uint16]nlmsg.Policy{
					IFLA_VF_MAC:        nlmsg.NLA_BINARY,
					IFLA_VF_VLAN:       nlmsg.NLA_BINARY,
					IFLA_VF_TX_RATE:    nlmsg.NLA_BINARY,
					IFLA_VF_SPOOFCHK:   nlmsg.NLA_BINARY,
					IFLA_VF_LINK_STATE: nlmsg.NLA_BINARY,
					IFLA_VF_RATE:       nlmsg.NLA_BINARY,
				},
			},
		},
		IFLA_VF_PORTS: nlmsg.ListPolicy{
			Nested: nlmsg.MapPolicy{
				Prefix: "VF_PORT",
				Names:  IFLA_VF_PORT_itoa,
				Max:    IFLA_VF_PORT,
				Rule: map[uint16]nlmsg.Policy{
					IFLA_VF_PORT: portPolicy,
				},
			},
		},
		IFLA_PORT_SELF:          portPolicy,
		IFLA_AF_SPEC:            nlmsg.NLA_NESTED, // depends on the address family
		IFLA_EXT_MASK:           nlmsg.NLA_U32,
		IFLA_PROMISCUITY:        nlmsg.NLA_U32,
		IFLA_NUM_TX_QUEUES:      nlmsg.NLA_U32,
		IFLA_NUM_RX_QUEUES:      nlmsg.NLA_U32,
		IFLA_PHYS_PORT_ID:       nlmsg.NLA_BINARY,
		IFLA_CARRIER_CHANGES:    nlmsg.NLA_U32,
		IFLA_PHYS_SWITCH_ID:     nlmsg.NLA_BINARY,
		IFLA_LINK_NETNSID:       nlmsg.NLA_S32,
		IFLA_PHYS_PORT_NAME:     nlmsg.NLA_STRING,
		IFLA_PROTO_DOWN:         nlmsg.NLA_U8,
		IFLA_GSO_MAX_SEGS:       nlmsg.NLA_U32,
		IFLA_GSO_MAX_SIZE:       nlmsg.NLA_U32,
		IFLA_XDP:                nlmsg.NLA_NESTED,
		IFLA_EVENT:              nlmsg.NLA_U32,
		IFLA_NEW_NETNSID:        nlmsg.NLA_S32,
		IFLA_IF_NETNSID:         nlmsg.NLA_S32,
		IFLA_CARRIER_UP_COUNT:   nlmsg.NLA_U32,
		IFLA_CARRIER_DOWN_COUNT: nlmsg.NLA_U32,
		IFLA_NEW_IFINDEX:        nlmsg.NLA_S32,
		IFLA_MIN_MTU:            nlmsg.NLA_U32,
		IFLA_MAX_MTU:            nlmsg.NLA_U32,

		IFLA_QDISC:    nlmsg.NLA_NUL_STRING,
		IFLA_STATS:    nlmsg.NLA_BINARY, // struct rtnl_link_stats
		IFLA_STATS64:  stats64Policy{},
		IFLA_WIRELESS: nlmsg.NLA_BINARY,
		IFLA_PROTINFO: nlmsg.NLA_NESTED, // depends on prot
		IFLA_NUM_VF:   nlmsg.NLA_U32,
		IFLA_GROUP:    nlmsg.NLA_U32,
	},
}

// Link is an RTM_NEWLINK or RTM_DELLINK message. The commonly used attributes
// are lifted into fields; Attrs keeps all of them.
type Link struct {
	Family    uint8
	Type      uint16
	Index     int32
	Flags     IFF
	Change    IFF
	Name      string
	MTU       uint32
	Master    uint32
	OperState uint8
	Address   net.HardwareAddr
	Kind      string
	Stats     *RtnlLinkStats64
	Attrs     nlmsg.AttrList
}

func (self Link) String() string {
	return fmt.Sprintf("link(%d %s mtu=%d flags=%s)", self.Index, self.Name, self.MTU, self.Flags)
}

// ParseLink decodes the ifinfomsg and attributes of m.
func ParseLink(m nlmsg.Msg) (Link, error) {
	var ret Link
	switch m.Type() {
	case RTM_NEWLINK, RTM_DELLINK:
	default:
		return ret, errors.Wrapf(nlmsg.NLE_MSGTYPE_NOSUPPORT, "type %d is not a link message", m.Type())
	}
	var ifi IfInfomsg
	if err := m.Payload(&ifi); err != nil {
		return ret, err
	}
	ret.Family = ifi.Family
	ret.Type = ifi.Type
	ret.Index = ifi.Index
	ret.Flags = IFF(ifi.Flags)
	ret.Change = IFF(ifi.Change)

	attrs, err := LinkPolicy.ParseMsg(m, SizeofIfInfomsg)
	if err != nil {
		return ret, errors.Wrapf(err, "link %d", ifi.Index)
	}
	ret.Attrs = attrs
	ret.Name, _ = attrs.Str(IFLA_IFNAME)
	ret.MTU, _ = attrs.U32(IFLA_MTU)
	ret.Master, _ = attrs.U32(IFLA_MASTER)
	ret.OperState, _ = attrs.U8(IFLA_OPERSTATE)
	if addr, ok := attrs.Bytes(IFLA_ADDRESS); ok {
		ret.Address = net.HardwareAddr(append([]byte(nil), addr...))
	}
	if info, ok := attrs.List(IFLA_LINKINFO); ok {
		ret.Kind, _ = info.Str(IFLA_INFO_KIND)
	}
	if st, ok := attrs.Get(IFLA_STATS64).(RtnlLinkStats64); ok {
		ret.Stats = &st
	}
	return ret, nil
}

// NewGetLink starts an RTM_GETLINK request in b, either for one link by
// index or name, or for a dump of all links.
func NewGetLink(b *nlmsg.Builder, index int32, name string, dump bool) error {
	flags := nlmsg.NLM_F_REQUEST
	if dump {
		flags |= nlmsg.NLM_F_DUMP
	}
	if err := b.BeginMessage(RTM_GETLINK, flags); err != nil {
		return err
	}
	if err := b.PutExtraHeader(IfInfomsg{Index: index}); err != nil {
		return err
	}
	if name != "" {
		return b.PutNulString(IFLA_IFNAME, name)
	}
	return nil
}
