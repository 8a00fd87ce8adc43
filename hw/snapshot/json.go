package snapshot

import (
	"fmt"

	"github.com/go-faster/jx"
)

// Encode returns the JSON encoding of m.
func (m *Machine) Encode() []byte {
	var e jx.Encoder
	e.SetIdent(2)
	e.Obj(func(e *jx.Encoder) {
		e.Field("version", func(e *jx.Encoder) { e.Int(m.Version) })
		e.Field("cpu", func(e *jx.Encoder) { m.CPU.encode(e) })
		e.Field("ram", func(e *jx.Encoder) { e.Base64(m.RAM) })
	})
	return e.Bytes()
}

// Decode decodes a JSON snapshot. Unknown fields are ignored.
func Decode(buf []byte) (*Machine, error) {
	var m Machine
	d := jx.DecodeBytes(buf)
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "version":
			m.Version, err = d.Int()
		case "cpu":
			err = m.CPU.decode(d)
		case "ram":
			m.RAM, err = d.Base64()
		default:
			err = d.Skip()
		}
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("snapshot: %w", err)
	}
	if m.Version != Version {
		return nil, fmt.Errorf("snapshot: unsupported version %d", m.Version)
	}
	return &m, nil
}

func (c *CPU) encode(e *jx.Encoder) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("pc", func(e *jx.Encoder) { e.UInt16(c.PC) })
		e.Field("sp", func(e *jx.Encoder) { e.UInt8(c.SP) })
		e.Field("p", func(e *jx.Encoder) { e.UInt8(c.P) })
		e.Field("a", func(e *jx.Encoder) { e.UInt8(c.A) })
		e.Field("x", func(e *jx.Encoder) { e.UInt8(c.X) })
		e.Field("y", func(e *jx.Encoder) { e.UInt8(c.Y) })
		e.Field("cycles", func(e *jx.Encoder) { e.Int64(c.Cycles) })
		e.Field("inst", func(e *jx.Encoder) { e.UInt8(c.Inst) })
		e.Field("mode", func(e *jx.Encoder) { e.UInt8(c.Mode) })
		e.Field("base_cycles", func(e *jx.Encoder) { e.UInt8(c.BaseCycle) })
		e.Field("live_mode", func(e *jx.Encoder) { e.UInt8(c.LiveMode) })
		e.Field("op_pc", func(e *jx.Encoder) { e.UInt16(c.OpPC) })
		e.Field("remaining", func(e *jx.Encoder) { e.UInt8(c.Remaining) })
		e.Field("pending", func(e *jx.Encoder) { e.Bool(c.Pending) })
		e.Field("extra", func(e *jx.Encoder) { e.UInt8(c.Extra) })
		e.Field("operand", func(e *jx.Encoder) { e.UInt8(c.Operand) })
		e.Field("addr", func(e *jx.Encoder) { e.UInt16(c.Addr) })
		e.Field("intr", func(e *jx.Encoder) { e.UInt16(c.Intr) })
		e.Field("irq_line", func(e *jx.Encoder) { e.Bool(c.IRQLine) })
		e.Field("nmi_edge", func(e *jx.Encoder) { e.Bool(c.NMIEdge) })
		e.Field("halted", func(e *jx.Encoder) { e.Bool(c.Halted) })
	})
}

func (c *CPU) decode(d *jx.Decoder) error {
	return d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "pc":
			c.PC, err = decodeUint[uint16](d)
		case "sp":
			c.SP, err = decodeUint[uint8](d)
		case "p":
			c.P, err = decodeUint[uint8](d)
		case "a":
			c.A, err = decodeUint[uint8](d)
		case "x":
			c.X, err = decodeUint[uint8](d)
		case "y":
			c.Y, err = decodeUint[uint8](d)
		case "cycles":
			c.Cycles, err = d.Int64()
		case "inst":
			c.Inst, err = decodeUint[uint8](d)
		case "mode":
			c.Mode, err = decodeUint[uint8](d)
		case "base_cycles":
			c.BaseCycle, err = decodeUint[uint8](d)
		case "live_mode":
			c.LiveMode, err = decodeUint[uint8](d)
		case "op_pc":
			c.OpPC, err = decodeUint[uint16](d)
		case "remaining":
			c.Remaining, err = decodeUint[uint8](d)
		case "pending":
			c.Pending, err = d.Bool()
		case "extra":
			c.Extra, err = decodeUint[uint8](d)
		case "operand":
			c.Operand, err = decodeUint[uint8](d)
		case "addr":
			c.Addr, err = decodeUint[uint16](d)
		case "intr":
			c.Intr, err = decodeUint[uint16](d)
		case "irq_line":
			c.IRQLine, err = d.Bool()
		case "nmi_edge":
			c.NMIEdge, err = d.Bool()
		case "halted":
			c.Halted, err = d.Bool()
		default:
			err = d.Skip()
		}
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		return nil
	})
}

// decodeUint decodes an unsigned integer, failing if it doesn't fit in T.
func decodeUint[T uint8 | uint16](d *jx.Decoder) (T, error) {
	v, err := d.Int64()
	if err != nil {
		return 0, err
	}
	if v < 0 || uint64(v) > uint64(^T(0)) {
		return 0, fmt.Errorf("value %d out of range", v)
	}
	return T(v), nil
}
