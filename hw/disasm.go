package hw

import "fmt"

// DisasmOp is a disassembled instruction.
type DisasmOp struct {
	Opcode string // mnemonic, prefixed with '*' for undocumented opcodes
	Oper   string // formatted operand
	Buf    []byte // instruction bytes
	PC     uint16
}

func (d DisasmOp) String() string {
	return string(d.Bytes())
}

// Disassemble disassembles the instruction at pc. Memory is only accessed
// through peek so it has no side effects.
func Disassemble(peek Peeker, pc uint16) DisasmOp {
	opcode := peek.Peek8(pc)
	d, ok := Lookup(opcode)
	if !ok {
		return DisasmOp{
			Opcode: "???",
			Buf:    []byte{opcode},
			PC:     pc,
		}
	}

	op := DisasmOp{
		Opcode: d.Inst.String(),
		Buf:    make([]byte, d.Bytes()),
		PC:     pc,
	}
	if Undocumented(opcode) {
		op.Opcode = "*" + op.Opcode
	}
	for i := range op.Buf {
		op.Buf[i] = peek.Peek8(pc + uint16(i))
	}

	var oper16 uint16
	if len(op.Buf) == 3 {
		oper16 = uint16(op.Buf[2])<<8 | uint16(op.Buf[1])
	}

	switch d.Mode {
	case Implicit:
	case Accumulator:
		op.Oper = "A"
	case Immediate:
		op.Oper = fmt.Sprintf("#$%02X", op.Buf[1])
	case Relative:
		dst := pc + 2 + uint16(int8(op.Buf[1]))
		op.Oper = fmt.Sprintf("$%04X", dst)
	case ZeroPage:
		op.Oper = fmt.Sprintf("$%02X", op.Buf[1])
	case ZeroPageX:
		op.Oper = fmt.Sprintf("$%02X,X", op.Buf[1])
	case ZeroPageY:
		op.Oper = fmt.Sprintf("$%02X,Y", op.Buf[1])
	case Absolute:
		op.Oper = fmt.Sprintf("$%04X", oper16)
	case AbsoluteX:
		op.Oper = fmt.Sprintf("$%04X,X", oper16)
	case AbsoluteY:
		op.Oper = fmt.Sprintf("$%04X,Y", oper16)
	case Indirect:
		op.Oper = fmt.Sprintf("($%04X)", oper16)
	case IndexedIndirect:
		op.Oper = fmt.Sprintf("($%02X,X)", op.Buf[1])
	case IndirectIndexed:
		op.Oper = fmt.Sprintf("($%02X),Y", op.Buf[1])
	}
	return op
}

// Bytes returns the string representation of a DisasmOp, this is optimized
// version, suitable for the execution tracer.
func (d DisasmOp) Bytes() []byte {
	const totalLen = 48
	buf := make([]byte, totalLen)

	hexEncode(buf[0:], byte(d.PC>>8))
	hexEncode(buf[2:], byte(d.PC))
	buf[4] = ' '
	buf[5] = ' '

	off := 6
	for i := range d.Buf {
		hexEncode(buf[off:], d.Buf[i])
		buf[off+2] = ' '
		off += 3
	}

	for ; off < 16; off++ {
		buf[off] = ' '
	}

	off += copy(buf[off:], d.Opcode)
	buf[off] = ' '
	off++

	buf = append(buf[:off], d.Oper...)
	off += len(d.Oper)
	if len(buf) > totalLen {
		buf = append(buf, ' ')
	} else {
		buf = buf[:totalLen]
		for i := off; i < totalLen; i++ {
			buf[i] = ' '
		}
	}

	return buf
}

func hexEncode(dst []byte, v byte) {
	const hextable = "0123456789ABCDEF"
	dst[0] = hextable[v>>4]
	dst[1] = hextable[v&0x0f]
}
