//go:build linux

package nlmsg

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/josharian/native"
	"github.com/vishvananda/netlink/nl"
	"golang.org/x/sys/unix"
)

// Builder produces the same bytes as github.com/vishvananda/netlink/nl.
func TestBuilderMatchesNetlinkRequest(t *testing.T) {
	req := nl.NewNetlinkRequest(unix.RTM_GETLINK, unix.NLM_F_ACK)
	req.AddData(nl.NewIfInfomsg(unix.AF_UNSPEC))
	req.AddData(nl.NewRtAttr(unix.IFLA_IFNAME, nl.ZeroTerminated("lo")))
	info := nl.NewRtAttr(unix.IFLA_LINKINFO, nil)
	info.AddRtAttr(unix.IFLA_INFO_KIND, nl.NonZeroTerminated("dummy"))
	req.AddData(info)
	req.AddData(nl.NewRtAttr(unix.IFLA_MTU, nl.Uint32Attr(1500)))
	want := req.Serialize()

	b := NewBuilder()
	if err := b.BeginMessage(unix.RTM_GETLINK, NLM_F_REQUEST|NLM_F_ACK); err != nil {
		t.Fatal(err)
	}
	b.SetSequence(req.Seq)
	if err := b.PutExtraHeader(unix.IfInfomsg{Family: unix.AF_UNSPEC}); err != nil {
		t.Fatal(err)
	}
	b.PutNulString(unix.IFLA_IFNAME, "lo")
	n, _ := b.NestStart(unix.IFLA_LINKINFO)
	b.PutString(unix.IFLA_INFO_KIND, "dummy")
	b.NestEndAt(n)
	b.PutU32(unix.IFLA_MTU, 1500)

	// nl does not flag nested attributes
	got := b.Bytes()
	off := NLMSG_HDRLEN + unix.SizeofIfInfomsg + 8
	native.Endian.PutUint16(got[off+2:off+4], AttrAt(got[off:]).Type())

	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
}

// nl.ParseRouteAttr reads what Builder writes.
func TestBuilderParseRouteAttr(t *testing.T) {
	b := NewBuilder()
	b.BeginMessage(unix.RTM_NEWLINK, 0)
	b.PutExtraHeader(unix.IfInfomsg{Index: 1})
	b.PutNulString(unix.IFLA_IFNAME, "lo")
	b.PutU32(unix.IFLA_MTU, 65536)
	b.PutFlag(unix.IFLA_PROTO_DOWN)

	m, _ := b.Msg()
	attrs, err := nl.ParseRouteAttr(m.PayloadBytes()[unix.SizeofIfInfomsg:])
	if err != nil {
		t.Fatal(err)
	}
	var types []uint16
	for _, a := range attrs {
		types = append(types, a.Attr.Type)
	}
	if diff := cmp.Diff([]uint16{unix.IFLA_IFNAME, unix.IFLA_MTU, unix.IFLA_PROTO_DOWN}, types); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
	if string(attrs[0].Value) != "lo\x00" {
		t.Errorf("ifname %q", attrs[0].Value)
	}
}
