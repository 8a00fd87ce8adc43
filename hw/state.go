package hw

import (
	"fmt"

	"sixtyfive/hw/snapshot"
)

// State returns the CPU registers and the state of the instruction in flight.
func (c *CPU) State() *snapshot.CPU {
	return &snapshot.CPU{
		PC:        c.PC,
		SP:        c.SP,
		P:         uint8(c.P),
		A:         c.A,
		X:         c.X,
		Y:         c.Y,
		Cycles:    c.Cycles,
		Inst:      uint8(c.op.Inst),
		Mode:      uint8(c.op.Mode),
		BaseCycle: c.op.Cycles,
		LiveMode:  uint8(c.mode),
		OpPC:      c.opPC,
		Remaining: c.remaining,
		Pending:   c.pending,
		Extra:     c.extra,
		Operand:   c.operand,
		Addr:      c.addr,
		Intr:      c.intr,
		IRQLine:   c.irqLine,
		NMIEdge:   c.nmiEdge,
		Halted:    c.halted,
	}
}

// SetState restores a state previously returned by State.
func (c *CPU) SetState(state *snapshot.CPU) error {
	switch {
	case Instruction(state.Inst) >= numInstructions:
		return fmt.Errorf("cpu state: invalid instruction %d", state.Inst)
	case Mode(state.Mode) >= numModes || Mode(state.LiveMode) >= numModes:
		return fmt.Errorf("cpu state: invalid addressing mode %d/%d", state.Mode, state.LiveMode)
	case state.Pending && state.Remaining == 0:
		return fmt.Errorf("cpu state: pending instruction with no cycle left")
	case state.Pending && state.Intr == 0 && Instruction(state.Inst) == invalidInst:
		return fmt.Errorf("cpu state: pending instruction is invalid")
	}

	c.PC = state.PC
	c.SP = state.SP
	c.P = P(state.P) &^ (Break | Reserved)
	c.A = state.A
	c.X = state.X
	c.Y = state.Y
	c.Cycles = state.Cycles
	c.op = Descriptor{
		Inst:   Instruction(state.Inst),
		Mode:   Mode(state.Mode),
		Cycles: state.BaseCycle,
	}
	c.mode = Mode(state.LiveMode)
	c.opPC = state.OpPC
	c.remaining = state.Remaining
	c.pending = state.Pending
	c.extra = state.Extra
	c.operand = state.Operand
	c.addr = state.Addr
	c.intr = state.Intr
	c.irqLine = state.IRQLine
	c.nmiEdge = state.NMIEdge
	c.halted = state.Halted
	return nil
}
