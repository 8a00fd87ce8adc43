package debugger

import (
	"errors"
	"fmt"

	"github.com/go-faster/jx"
)

// Emulator and debugger communicate via a websocket connection, following
// this simple protocol.
//
// Every message is a JSON object with an "event" name and its "data". The
// first message is sent by the emulator with its current state. After which
// the emulator answers each debugger request with exactly one message, and
// sends a "state" event each time the CPU stops.
//
// Debugger -> emulator requests:
//
//	{"event": "get-state"}
//	{"event": "set-cpu-state", "data": "run"|"pause"|"step"}
//	{"event": "set-breakpoint", "data": {"addr": 1536, "enabled": true}}
//
// Emulator -> debugger events:
//
//	{"event": "state", "data": {"status": "paused", "pc": 1536, ...}}
//	{"event": "breakpoints", "data": [1536]}
//	{"event": "error", "data": "message"}

const (
	evState         = "state"
	evBreakpoints   = "breakpoints"
	evError         = "error"
	evGetState      = "get-state"
	evSetCPUState   = "set-cpu-state"
	evSetBreakpoint = "set-breakpoint"
)

// decodeMessage decodes the envelope common to all messages.
func decodeMessage(buf []byte) (event string, data jx.Raw, err error) {
	err = jx.DecodeBytes(buf).Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "event":
			event, err = d.Str()
		case "data":
			data, err = d.Raw()
		default:
			err = d.Skip()
		}
		return err
	})
	if err == nil && event == "" {
		err = errors.New("missing event")
	}
	return event, data, err
}

func encodeMessage(event string, data func(*jx.Encoder)) []byte {
	var e jx.Encoder
	e.Obj(func(e *jx.Encoder) {
		e.Field("event", func(e *jx.Encoder) { e.Str(event) })
		if data != nil {
			e.Field("data", data)
		}
	})
	return e.Bytes()
}

func encodeState(s State) []byte {
	return encodeMessage(evState, s.encode)
}

func encodeError(err error) []byte {
	return encodeMessage(evError, func(e *jx.Encoder) { e.Str(err.Error()) })
}

func encodeBreakpoints(bps []uint16) []byte {
	return encodeMessage(evBreakpoints, func(e *jx.Encoder) {
		e.Arr(func(e *jx.Encoder) {
			for _, addr := range bps {
				e.UInt16(addr)
			}
		})
	})
}

func (s State) encode(e *jx.Encoder) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("status", func(e *jx.Encoder) { e.Str(s.Status) })
		e.Field("reason", func(e *jx.Encoder) { e.Str(s.Reason) })
		e.Field("pc", func(e *jx.Encoder) { e.UInt16(s.PC) })
		e.Field("a", func(e *jx.Encoder) { e.UInt8(s.A) })
		e.Field("x", func(e *jx.Encoder) { e.UInt8(s.X) })
		e.Field("y", func(e *jx.Encoder) { e.UInt8(s.Y) })
		e.Field("sp", func(e *jx.Encoder) { e.UInt8(s.SP) })
		e.Field("p", func(e *jx.Encoder) { e.UInt8(s.P) })
		e.Field("cycles", func(e *jx.Encoder) { e.Int64(s.Cycles) })
		e.Field("disasm", func(e *jx.Encoder) { e.Str(s.Disasm) })
		e.Field("stack", func(e *jx.Encoder) {
			e.Arr(func(e *jx.Encoder) {
				for _, f := range s.Stack {
					e.Obj(func(e *jx.Encoder) {
						e.Field("entry", func(e *jx.Encoder) { e.Str(f[0]) })
						e.Field("pc", func(e *jx.Encoder) { e.Str(f[1]) })
					})
				}
			})
		})
	})
}

// data for the 'set-cpu-state' request.
func decodeCPUState(data jx.Raw) (string, error) {
	if data.Type() != jx.String {
		return "", fmt.Errorf("set-cpu-state: expected a string, got %s", data.Type())
	}
	return jx.DecodeBytes(data).Str()
}

// data for the 'set-breakpoint' request.
type setBreakpointData struct {
	Addr    uint16
	Enabled bool
}

func (bp *setBreakpointData) decode(data jx.Raw) error {
	if data.Type() != jx.Object {
		return fmt.Errorf("set-breakpoint: expected an object, got %s", data.Type())
	}
	hasAddr := false
	err := jx.DecodeBytes(data).Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "addr":
			hasAddr = true
			var addr int
			if addr, err = d.Int(); err == nil {
				if addr < 0 || addr > 0xFFFF {
					return fmt.Errorf("set-breakpoint: addr %d out of range", addr)
				}
				bp.Addr = uint16(addr)
			}
		case "enabled":
			bp.Enabled, err = d.Bool()
		default:
			err = d.Skip()
		}
		return err
	})
	if err == nil && !hasAddr {
		err = errors.New("set-breakpoint: missing addr")
	}
	return err
}
