package nlmsg

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/josharian/native"
	"github.com/mdlayher/netlink"
	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// appendMsg appends a message with a u32 attribute to b.
func appendMsg(b *Builder, typ, flags uint16, seq, pid uint32) {
	b.BeginMessage(typ, flags)
	b.SetSequence(seq)
	b.SetPortID(pid)
	b.PutU32(1, seq)
}

// appendErr appends an NLMSG_ERROR message answering a request of type
// reqType with errno, 0 being an acknowledgement.
func appendErr(b *Builder, seq, pid uint32, errno unix.Errno, reqType uint16) {
	b.BeginMessage(NLMSG_ERROR, 0)
	b.SetSequence(seq)
	b.SetPortID(pid)
	p, _ := b.ExtraHeader(SizeofNlMsgerr)
	native.Endian.PutUint32(p[0:4], uint32(-int32(errno)))
	native.Endian.PutUint32(p[4:8], NLMSG_HDRLEN)
	native.Endian.PutUint16(p[8:10], reqType)
	native.Endian.PutUint32(p[12:16], seq)
	native.Endian.PutUint32(p[16:20], pid)
}

func appendDone(b *Builder, seq, pid uint32) {
	b.BeginMessage(NLMSG_DONE, NLM_F_MULTI)
	b.SetSequence(seq)
	b.SetPortID(pid)
	b.PutExtraHeader(int32(0))
}

func TestNewMsg(t *testing.T) {
	b := NewBuilder()
	appendMsg(b, 0x20, 0, 1, 2)
	buf := b.Bytes()

	if _, err := NewMsg(buf); err != nil {
		t.Fatal(err)
	}
	tests := map[string][]byte{
		"empty":         nil,
		"short":         buf[:NLMSG_HDRLEN-1],
		"truncated":     buf[:len(buf)-1],
		"len below hdr": append([]byte{15, 0, 0, 0}, buf[4:]...),
	}
	for name, b := range tests {
		if MsgOK(b) {
			t.Errorf("%s: MsgOK", name)
		}
		if _, err := NewMsg(b); !errors.Is(err, NLE_MSG_TOOSHORT) {
			t.Errorf("%s: %v", name, err)
		}
	}
}

func TestMsgHeader(t *testing.T) {
	b := NewBuilder()
	appendMsg(b, 0x20, NLM_F_MULTI, 7, 9)
	m, _ := NewMsg(b.Bytes())

	want := netlink.Header{
		Length:   NLMSG_HDRLEN + 8,
		Type:     0x20,
		Flags:    netlink.Multi,
		Sequence: 7,
		PID:      9,
	}
	if diff := cmp.Diff(want, m.Header()); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
	if m.Type() != 0x20 || m.Flags() != NLM_F_MULTI || m.Seq() != 7 || m.PortID() != 9 {
		t.Errorf("got %s", m)
	}
	if len(m.Bytes()) != 24 || len(m.PayloadBytes()) != 8 {
		t.Errorf("bytes %d payload %d", len(m.Bytes()), len(m.PayloadBytes()))
	}
}

func TestMsgNext(t *testing.T) {
	b := NewBuilder()
	for seq := uint32(1); seq <= 3; seq++ {
		appendMsg(b, 0x20, 0, seq, 0)
	}
	first, _ := NewMsg(b.Bytes())

	// Next does not move the receiver
	a, ok1 := first.Next()
	c, ok2 := first.Next()
	if !ok1 || !ok2 || a.Seq() != 2 || c.Seq() != 2 {
		t.Fatalf("got %s, %s", a, c)
	}

	var seqs []uint32
	for m, ok := first, true; ok; m, ok = m.Next() {
		seqs = append(seqs, m.Seq())
	}
	if diff := cmp.Diff([]uint32{1, 2, 3}, seqs); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}

	// a truncated trailing message is not handed out
	short, _ := NewMsg(b.Bytes()[:b.Len()-4])
	seqs = nil
	for m, ok := short, true; ok; m, ok = m.Next() {
		seqs = append(seqs, m.Seq())
	}
	if diff := cmp.Diff([]uint32{1, 2}, seqs); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}

	// past the end stays past the end
	var end Msg
	for i := 0; i < 3; i++ {
		if m, ok := end.Next(); ok {
			t.Fatalf("Next on the zero Msg: %s", m)
		}
	}
}

func TestMsgNextUnalignedTail(t *testing.T) {
	b := NewBuilder()
	appendMsg(b, 0x20, 0, 1, 0)
	appendMsg(b, 0x20, 0, 2, 0)
	b.BeginMessage(0x20, 0)
	b.SetSequence(3)
	b.PutU8(1, 3)
	buf := b.Bytes()
	// nlmsg_len without the attribute padding
	native.Endian.PutUint32(buf[48:52], NLMSG_HDRLEN+NLA_HDRLEN+1)

	tests := []struct {
		n    int
		want []uint32
	}{
		{68, []uint32{1, 2}},
		{69, []uint32{1, 2, 3}},
		{70, []uint32{1, 2, 3}},
		{71, []uint32{1, 2, 3}},
		{72, []uint32{1, 2, 3}},
	}
	for _, tc := range tests {
		first, err := NewMsg(buf[:tc.n])
		if err != nil {
			t.Fatal(err)
		}
		var seqs []uint32
		last := first
		for m, ok := first, true; ok; m, ok = m.Next() {
			seqs = append(seqs, m.Seq())
			last = m
		}
		if diff := cmp.Diff(tc.want, seqs); diff != "" {
			t.Errorf("%d bytes (-want +got):\n%s", tc.n, diff)
		}
		for i := 0; i < 3; i++ {
			if m, ok := last.Next(); ok {
				t.Errorf("%d bytes: Next past the last message: %s", tc.n, m)
			}
		}
	}
}

func TestMsgSeqPort(t *testing.T) {
	tests := []struct {
		msg, want uint32
		ok        bool
	}{
		{0, 0, true},
		{0, 5, true},
		{5, 0, true},
		{5, 5, true},
		{5, 6, false},
	}
	for _, tc := range tests {
		b := NewBuilder()
		appendMsg(b, 0x20, 0, tc.msg, tc.msg)
		m, _ := NewMsg(b.Bytes())

		if err := m.SeqOK(tc.want); (err == nil) != tc.ok {
			t.Errorf("SeqOK(%d) on %d: %v", tc.want, tc.msg, err)
		} else if err != nil && !errors.Is(err, NLE_SEQ_MISMATCH) {
			t.Errorf("SeqOK: %v", err)
		}
		if err := m.PortOK(tc.want); (err == nil) != tc.ok {
			t.Errorf("PortOK(%d) on %d: %v", tc.want, tc.msg, err)
		} else if err != nil && !errors.Is(err, NLE_PORT_MISMATCH) {
			t.Errorf("PortOK: %v", err)
		}
	}
}

func TestMsgPayload(t *testing.T) {
	type family struct {
		Cmd     uint8
		Version uint8
		_       uint16
	}
	b := NewBuilder()
	b.BeginMessage(0x20, 0)
	b.PutExtraHeader(family{Cmd: 3, Version: 1})
	b.PutU16(1, 1)
	m, _ := b.Msg()

	var got family
	if err := m.Payload(&got); err != nil {
		t.Fatal(err)
	}
	if got.Cmd != 3 || got.Version != 1 {
		t.Errorf("got %+v", got)
	}
	var big [64]byte
	if err := m.Payload(&big); !errors.Is(err, NLE_MSG_TOOSHORT) {
		t.Errorf("oversized header: %v", err)
	}

	if _, err := m.Attrs(4); err != nil {
		t.Errorf("Attrs(4): %v", err)
	}
	if _, err := m.Attrs(12); !errors.Is(err, NLE_MSGSIZE) {
		t.Errorf("Attrs(12): %v", err)
	}
	if _, err := m.Attrs(-1); !errors.Is(err, NLE_MSGSIZE) {
		t.Errorf("Attrs(-1): %v", err)
	}
	it, _ := m.Attrs(4)
	if !it.Next() || it.Attr().Type() != 1 || it.Next() {
		t.Errorf("attribute iteration")
	}
}

func TestMsgErr(t *testing.T) {
	b := NewBuilder()
	appendErr(b, 5, 6, 0, 0x20)
	ack, _ := b.Msg()
	if err := ack.Err(); err != nil {
		t.Errorf("ack: %v", err)
	}

	b.Reset()
	appendErr(b, 5, 6, unix.EPERM, 0x20)
	nack, _ := b.Msg()
	err := nack.Err()
	if !errors.Is(err, unix.EPERM) {
		t.Fatalf("got %v; want EPERM", err)
	}
	var kerr *KernelError
	if !errors.As(err, &kerr) {
		t.Fatalf("got %T", err)
	}
	if kerr.Header.Sequence != 5 || kerr.Header.PID != 6 || kerr.Header.Type != 0x20 {
		t.Errorf("echoed header %+v", kerr.Header)
	}

	b.Reset()
	appendMsg(b, 0x20, 0, 1, 1)
	other, _ := b.Msg()
	if err := other.Err(); !errors.Is(err, NLE_MSGTYPE_NOSUPPORT) {
		t.Errorf("not an error message: %v", err)
	}

	b.Reset()
	b.BeginMessage(NLMSG_ERROR, 0)
	b.PutExtraHeader(int32(0))
	short, _ := b.Msg()
	if err := short.Err(); !errors.Is(err, NLE_MSG_TOOSHORT) {
		t.Errorf("short error message: %v", err)
	}
}
