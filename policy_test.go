package nlmsg

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/pkg/errors"
)

var testPolicy = MapPolicy{
	Prefix: "TEST",
	Names: map[uint16]string{
		1: "NAME",
		2: "MTU",
		3: "LIST",
		4: "RAW",
		5: "BLOB",
	},
	Rule: map[uint16]Policy{
		1: NLA_NUL_STRING,
		2: NLA_U32,
		3: ListPolicy{Nested: NLA_U16},
	},
	Max: 5,
}

func buildPolicyMsg(t *testing.T) Msg {
	t.Helper()
	b := NewBuilder()
	b.BeginMessage(0x20, 0)
	b.PutExtraHeader(uint32(0))
	b.PutNulString(1, "eth0")
	b.PutU32(2, 1500)
	n, _ := b.NestStart(3)
	b.PutU16(1, 10)
	b.PutU16(2, 20)
	b.NestEndAt(n)
	b.PutBytes(4, []byte{1, 2})
	n, _ = b.NestStart(5)
	b.PutU8(1, 7)
	b.NestEndAt(n)
	// from a newer kernel
	b.PutU8(6, 1)
	m, err := b.Msg()
	if err != nil {
		t.Fatal(err)
	}
	return m
}

func TestMapPolicy(t *testing.T) {
	got, err := testPolicy.ParseMsg(buildPolicyMsg(t), 4)
	if err != nil {
		t.Fatal(err)
	}
	want := AttrList{
		{Type: 1, Data: "eth0"},
		{Type: 2, Data: uint32(1500)},
		{Type: 3, Nested: true, Data: AttrList{
			{Type: 1, Data: uint16(10)},
			{Type: 2, Data: uint16(20)},
		}},
		{Type: 4, Data: []byte{1, 2}},
		{Type: 5, Nested: true, Data: AttrList{
			{Type: 1, Data: []byte{7}},
		}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}

	if v, ok := got.Str(1); !ok || v != "eth0" {
		t.Errorf("Str = %q, %v", v, ok)
	}
	if v, ok := got.U32(2); !ok || v != 1500 {
		t.Errorf("U32 = %d, %v", v, ok)
	}
	if _, ok := got.U16(2); ok {
		t.Errorf("U16 on a u32 attribute")
	}
	if l, ok := got.List(3); !ok || len(l) != 2 {
		t.Errorf("List = %v, %v", l, ok)
	}
	if got.Has(6) {
		t.Errorf("attribute above Max kept")
	}
}

func TestMapPolicyParseMsg(t *testing.T) {
	m := buildPolicyMsg(t)
	if _, err := testPolicy.ParseMsg(m, 1024); !errors.Is(err, NLE_MSG_TOOSHORT) {
		t.Errorf("oversized family header: %v", err)
	}

	b := NewBuilder()
	b.BeginMessage(0x20, 0)
	b.PutExtraHeader(uint32(0))
	empty, _ := b.Msg()
	if got, err := testPolicy.ParseMsg(empty, 4); err != nil || len(got) != 0 {
		t.Errorf("no attributes: %v, %v", got, err)
	}
}

func TestMapPolicyRuleError(t *testing.T) {
	b := NewBuilder()
	b.BeginMessage(0x20, 0)
	b.PutU16(2, 1500)
	m, _ := b.Msg()

	_, err := testPolicy.ParseMsg(m, 0)
	if !errors.Is(err, NLE_INVAL) {
		t.Fatalf("got %v; want NLE_INVAL", err)
	}
	if !strings.Contains(err.Error(), "TEST_MTU") {
		t.Errorf("error does not name the attribute: %v", err)
	}
}

func TestKindDecode(t *testing.T) {
	tests := []struct {
		kind    Kind
		payload []byte
		want    interface{}
	}{
		{NLA_FLAG, nil, true},
		{NLA_U8, []byte{9}, uint8(9)},
		{NLA_S32, u32Bytes(0xffffffff), int32(-1)},
		{NLA_STRING, []byte("lo"), "lo"},
		{NLA_BINARY, []byte{1, 2, 3}, []byte{1, 2, 3}},
		{NLA_NESTED, rawAttr(1, []byte{4}), AttrList{{Type: 1, Data: []byte{4}}}},
	}
	for _, tc := range tests {
		got, err := tc.kind.Decode(AttrAt(rawAttr(1, tc.payload)))
		if err != nil {
			t.Errorf("kind %d: %v", tc.kind, err)
			continue
		}
		if diff := cmp.Diff(tc.want, got); diff != "" {
			t.Errorf("kind %d (-want +got):\n%s", tc.kind, diff)
		}
	}
	if _, err := NLA_U64.Decode(AttrAt(rawAttr(1, u32Bytes(1)))); !errors.Is(err, NLE_INVAL) {
		t.Errorf("short u64: %v", err)
	}
}

func TestPolicyDump(t *testing.T) {
	got := testPolicy.Dump(AttrList{
		{Type: 1, Data: "eth0"},
		{Type: 2, Data: uint32(1500)},
		{Type: 3, Nested: true, Data: AttrList{
			{Type: 1, Data: uint16(10)},
			{Type: 2, Data: uint16(20)},
		}},
	})
	want := `TEST(NAME: "eth0", MTU: 0x5dc, LIST: [1: 0xa, 2: 0x14])`
	if got != want {
		t.Errorf("got %s; want %s", got, want)
	}
}
