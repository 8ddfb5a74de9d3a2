package nlmsg_test

import (
	"fmt"

	"github.com/hkwi/nlmsg"
)

// Messages are built in place and read back through views of the same bytes.
func ExampleBuilder() {
	b := nlmsg.NewBuilder()
	b.BeginMessage(0x20, nlmsg.NLM_F_REQUEST)
	b.PutU32(1, 1500)
	n, _ := b.NestStart(2)
	b.PutString(1, "eth0")
	b.NestEndAt(n)

	m, _ := b.Msg()
	fmt.Println(m)
	m.Parse(0, func(a nlmsg.Attr) (nlmsg.Status, error) {
		fmt.Println(a)
		return nlmsg.Continue, nil
	})
	// Output:
	// msg(len=36 type=32 flags=0x1 seq=0 pid=0)
	// attr(type=1 len=8)
	// attr(type=2N len=12)
}
