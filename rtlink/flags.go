package rtlink

import (
	"strconv"
	"strings"
)

type IFF uint32

const (
	IFF_UP IFF = 1 << iota
	IFF_BROADCAST
	IFF_DEBUG
	IFF_LOOPBACK
	IFF_POINTOPOINT
	IFF_NOTRAILERS
	IFF_RUNNING
	IFF_NOARP
	IFF_PROMISC
	IFF_ALLMULTI
	IFF_MASTER
	IFF_SLAVE
	IFF_MULTICAST
	IFF_PORTSEL
	IFF_AUTOMEDIA
	IFF_DYNAMIC
	IFF_LOWER_UP
	IFF_DORMANT
	IFF_ECHO
)

var names = []string{
	"IFF_UP",
	"IFF_BROADCAST",
	"IFF_DEBUG",
	"IFF_LOOPBACK",
	"IFF_POINTOPOINT",
	"IFF_NOTRAILERS",
	"IFF_RUNNING",
	"IFF_NOARP",
	"IFF_PROMISC",
	"IFF_ALLMULTI",
	"IFF_MASTER",
	"IFF_SLAVE",
	"IFF_MULTICAST",
	"IFF_PORTSEL",
	"IFF_AUTOMEDIA",
	"IFF_DYNAMIC",
	"IFF_LOWER_UP",
	"IFF_DORMANT",
	"IFF_ECHO",
}

// String joins the flag names with commas. Bits without a name are shown
// as hex.
func (self IFF) String() string {
	var ret []string
	var unknown IFF
	for i := uint8(0); i < 32; i++ {
		bit := IFF(1) << i
		if self&bit == 0 {
			continue
		}
		if int(i) < len(names) {
			ret = append(ret, names[i])
		} else {
			unknown |= bit
		}
	}
	if unknown != 0 {
		ret = append(ret, "0x"+strconv.FormatUint(uint64(unknown), 16))
	}
	return strings.Join(ret, ",")
}
