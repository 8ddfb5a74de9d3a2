package nlmsg

import (
	"github.com/pkg/errors"
)

// MsgFunc is called for each message handed out by Run.
type MsgFunc func(Msg) (Status, error)

// ControlFuncs replaces the default handling of control message types
// (NLMSG_NOOP, NLMSG_ERROR, NLMSG_DONE, NLMSG_OVERRUN) by type.
type ControlFuncs map[uint16]MsgFunc

func noopControl(Msg) (Status, error) {
	return Continue, nil
}

func errorControl(m Msg) (Status, error) {
	if err := m.Err(); err != nil {
		return Stop, err
	}
	return Stop, nil
}

func doneControl(Msg) (Status, error) {
	return Stop, nil
}

var defaultControl = map[uint16]MsgFunc{
	NLMSG_NOOP:    noopControl,
	NLMSG_ERROR:   errorControl,
	NLMSG_DONE:    doneControl,
	NLMSG_OVERRUN: noopControl,
}

// Run dispatches every message of a received buffer in wire order.
//
// Each message must match portid and seq (zero matches anything) and must not
// carry NLM_F_DUMP_INTR; a dump that was interrupted has to be requested
// again from scratch. Messages of type NLMSG_MIN_TYPE and above go to data,
// which may be nil. Control messages go to ctl when it has an entry for the
// type, otherwise to the defaults: an NLMSG_ERROR ends the run with the
// kernel's error, or with Stop when it is an acknowledgement; NLMSG_DONE ends
// the run with Stop; NLMSG_NOOP and NLMSG_OVERRUN are skipped.
//
// Continue means the buffer ran out before anything ended the exchange, so
// the caller should receive again.
func Run(b []byte, seq, portid uint32, data MsgFunc, ctl ControlFuncs) (Status, error) {
	m, err := NewMsg(b)
	if err != nil {
		return Stop, err
	}
	for ok := true; ok; m, ok = m.Next() {
		if err := m.PortOK(portid); err != nil {
			return Stop, err
		}
		if err := m.SeqOK(seq); err != nil {
			return Stop, err
		}
		if m.Flags()&NLM_F_DUMP_INTR != 0 {
			return Stop, errors.Wrapf(NLE_DUMP_INTR, "seq %d", m.Seq())
		}

		var fn MsgFunc
		if typ := m.Type(); typ >= NLMSG_MIN_TYPE {
			fn = data
		} else if f, ok := ctl[typ]; ok {
			fn = f
		} else {
			fn = defaultControl[typ]
		}
		if fn == nil {
			continue
		}
		if st, err := fn(m); err != nil {
			return Stop, err
		} else if st == Stop {
			return Stop, nil
		}
	}
	return Continue, nil
}
