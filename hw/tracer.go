package hw

import (
	"fmt"
	"io"
)

// cpuState stores the CPU state for the execution trace.
type cpuState struct {
	A, X, Y uint8
	P       P
	SP      uint8
	PC      uint16

	Clock int64
}

type disasmer interface {
	Disasm(pc uint16) DisasmOp
}

type tracer struct {
	d disasmer
	w io.Writer
}

// write the execution trace for current instruction, as in:
//
//	C000  4C F5 C5  JMP $C5F5                       A:00 X:00 Y:00 P:24 SP:FD CYC:7
func (t *tracer) write(state cpuState) {
	buf := t.d.Disasm(state.PC).Bytes()
	buf = fmt.Appendf(buf, "A:%02X X:%02X Y:%02X P:%02X SP:%02X CYC:%d\n",
		state.A, state.X, state.Y, uint8(state.P|Reserved), state.SP, state.Clock)
	t.w.Write(buf)
}
