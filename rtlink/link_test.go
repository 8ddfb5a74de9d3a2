package rtlink

import (
	"net"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/hkwi/nlmsg"
	"github.com/pkg/errors"
)

func buildLink(t *testing.T, typ uint16) nlmsg.Msg {
	t.Helper()
	b := nlmsg.NewBuilder()
	b.BeginMessage(typ, 0)
	b.PutExtraHeader(IfInfomsg{
		Type:  772, // ARPHRD_LOOPBACK
		Index: 1,
		Flags: uint32(IFF_UP | IFF_LOOPBACK | IFF_RUNNING),
	})
	b.PutNulString(IFLA_IFNAME, "lo")
	b.PutU32(IFLA_MTU, 65536)
	b.PutU8(IFLA_OPERSTATE, IF_OPER_UNKNOWN)
	b.PutBytes(IFLA_ADDRESS, make([]byte, 6))
	n, _ := b.NestStart(IFLA_LINKINFO)
	b.PutNulString(IFLA_INFO_KIND, "dummy")
	b.NestEndAt(n)
	b.PutAttr(IFLA_STATS64, RtnlLinkStats64{RxPackets: 10, TxBytes: 2048})
	// unknown to this package
	b.PutU32(IFLA_MAX+1, 1)
	m, err := b.Msg()
	if err != nil {
		t.Fatal(err)
	}
	return m
}

func TestParseLink(t *testing.T) {
	got, err := ParseLink(buildLink(t, RTM_NEWLINK))
	if err != nil {
		t.Fatal(err)
	}
	want := Link{
		Type:    772,
		Index:   1,
		Flags:   IFF_UP | IFF_LOOPBACK | IFF_RUNNING,
		Name:    "lo",
		MTU:     65536,
		Address: net.HardwareAddr{0, 0, 0, 0, 0, 0},
		Kind:    "dummy",
		Stats:   &RtnlLinkStats64{RxPackets: 10, TxBytes: 2048},
	}
	if diff := cmp.Diff(want, got, cmpopts.IgnoreFields(Link{}, "Attrs")); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
	if got.Attrs.Has(IFLA_MAX + 1) {
		t.Errorf("attribute above IFLA_MAX kept")
	}
	if got.String() != "link(1 lo mtu=65536 flags=IFF_UP,IFF_LOOPBACK,IFF_RUNNING)" {
		t.Errorf("got %s", got)
	}

	if _, err := ParseLink(buildLink(t, RTM_DELLINK)); err != nil {
		t.Errorf("RTM_DELLINK: %v", err)
	}
	if _, err := ParseLink(buildLink(t, RTM_GETLINK)); !errors.Is(err, nlmsg.NLE_MSGTYPE_NOSUPPORT) {
		t.Errorf("RTM_GETLINK: %v", err)
	}
}

func TestParseLinkBadAttr(t *testing.T) {
	b := nlmsg.NewBuilder()
	b.BeginMessage(RTM_NEWLINK, 0)
	b.PutExtraHeader(IfInfomsg{Index: 3})
	b.PutU16(IFLA_MTU, 1500)
	m, _ := b.Msg()
	if _, err := ParseLink(m); !errors.Is(err, nlmsg.NLE_INVAL) {
		t.Errorf("short IFLA_MTU: %v", err)
	}

	b.Reset()
	b.BeginMessage(RTM_NEWLINK, 0)
	b.PutU32(IFLA_MTU, 1500)
	m, _ = b.Msg()
	if _, err := ParseLink(m); !errors.Is(err, nlmsg.NLE_MSG_TOOSHORT) {
		t.Errorf("no ifinfomsg: %v", err)
	}
}

func TestNewGetLink(t *testing.T) {
	b := nlmsg.NewBuilder()
	if err := NewGetLink(b, 0, "eth0", false); err != nil {
		t.Fatal(err)
	}
	m, _ := b.Msg()
	if m.Type() != RTM_GETLINK || m.Flags() != nlmsg.NLM_F_REQUEST {
		t.Errorf("got %s", m)
	}
	if m.Len() != nlmsg.NLMSG_HDRLEN+SizeofIfInfomsg+12 {
		t.Errorf("length %d", m.Len())
	}
	attrs, err := LinkPolicy.ParseMsg(m, SizeofIfInfomsg)
	if err != nil {
		t.Fatal(err)
	}
	if name, ok := attrs.Str(IFLA_IFNAME); !ok || name != "eth0" {
		t.Errorf("IFLA_IFNAME = %q, %v", name, ok)
	}

	b.Reset()
	NewGetLink(b, 0, "", true)
	m, _ = b.Msg()
	if m.Flags() != nlmsg.NLM_F_REQUEST|nlmsg.NLM_F_DUMP || m.Len() != nlmsg.NLMSG_HDRLEN+SizeofIfInfomsg {
		t.Errorf("dump request %s", m)
	}
}
