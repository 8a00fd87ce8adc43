package hw

import "fmt"

// load returns the operand of the instruction in flight.
func (c *CPU) load() (uint8, error) {
	switch {
	case c.mode == Accumulator:
		return c.A, nil
	case c.op.Mode == Immediate:
		return c.operand, nil
	}
	return c.read8(c.addr)
}

// store writes v where the operand of the instruction in flight comes from.
func (c *CPU) store(v uint8) error {
	if c.mode == Accumulator {
		c.A = v
		return nil
	}
	return c.write8(c.addr, v)
}

// modify applies f to the operand and stores the result back, as
// read-modify-write instructions do.
func (c *CPU) modify(f func(uint8) uint8) (uint8, error) {
	v, err := c.load()
	if err != nil {
		return 0, err
	}
	v = f(v)
	return v, c.store(v)
}

// execute runs the instruction in flight, once its operand has been resolved.
func (c *CPU) execute() error {
	switch c.op.Inst {
	case ADC:
		return c.withOperand(c.adc)
	case SBC:
		return c.withOperand(c.sbc)
	case AND:
		return c.withOperand(func(v uint8) {
			c.A &= v
			c.P.checkNZ(c.A)
		})
	case ORA:
		return c.withOperand(func(v uint8) {
			c.A |= v
			c.P.checkNZ(c.A)
		})
	case EOR:
		return c.withOperand(func(v uint8) {
			c.A ^= v
			c.P.checkNZ(c.A)
		})
	case BIT:
		return c.withOperand(func(v uint8) {
			c.P.checkZ(c.A & v)
			c.P.checkN(v)
			c.P.writeFlag(Overflow, v&0x40 != 0)
		})
	case CMP:
		return c.withOperand(func(v uint8) { c.compare(c.A, v) })
	case CPX:
		return c.withOperand(func(v uint8) { c.compare(c.X, v) })
	case CPY:
		return c.withOperand(func(v uint8) { c.compare(c.Y, v) })

	case ASL:
		_, err := c.modify(c.asl)
		return err
	case LSR:
		_, err := c.modify(c.lsr)
		return err
	case ROL:
		_, err := c.modify(c.rol)
		return err
	case ROR:
		_, err := c.modify(c.ror)
		return err
	case INC:
		_, err := c.modify(c.inc)
		return err
	case DEC:
		_, err := c.modify(c.dec)
		return err

	case LDA:
		return c.withOperand(func(v uint8) {
			c.A = v
			c.P.checkNZ(v)
		})
	case LDX:
		return c.withOperand(func(v uint8) {
			c.X = v
			c.P.checkNZ(v)
		})
	case LDY:
		return c.withOperand(func(v uint8) {
			c.Y = v
			c.P.checkNZ(v)
		})
	case STA:
		return c.store(c.A)
	case STX:
		return c.store(c.X)
	case STY:
		return c.store(c.Y)

	case INX:
		c.X++
		c.P.checkNZ(c.X)
	case INY:
		c.Y++
		c.P.checkNZ(c.Y)
	case DEX:
		c.X--
		c.P.checkNZ(c.X)
	case DEY:
		c.Y--
		c.P.checkNZ(c.Y)
	case TAX:
		c.X = c.A
		c.P.checkNZ(c.X)
	case TAY:
		c.Y = c.A
		c.P.checkNZ(c.Y)
	case TSX:
		c.X = c.SP
		c.P.checkNZ(c.X)
	case TXA:
		c.A = c.X
		c.P.checkNZ(c.A)
	case TXS:
		c.SP = c.X
	case TYA:
		c.A = c.Y
		c.P.checkNZ(c.A)

	case CLC:
		c.P.clearFlags(Carry)
	case CLD:
		c.P.clearFlags(Decimal)
	case CLI:
		c.P.clearFlags(Interrupt)
	case CLV:
		c.P.clearFlags(Overflow)
	case SEC:
		c.P.setFlags(Carry)
	case SED:
		c.P.setFlags(Decimal)
	case SEI:
		c.P.setFlags(Interrupt)

	case BCC:
		c.branch(!c.P.Carry())
	case BCS:
		c.branch(c.P.Carry())
	case BNE:
		c.branch(!c.P.Zero())
	case BEQ:
		c.branch(c.P.Zero())
	case BPL:
		c.branch(!c.P.Negative())
	case BMI:
		c.branch(c.P.Negative())
	case BVC:
		c.branch(!c.P.Overflow())
	case BVS:
		c.branch(c.P.Overflow())

	case JMP:
		c.PC = c.addr
	case JSR:
		if err := c.push16(c.PC - 1); err != nil {
			return err
		}
		c.PC = c.addr
	case RTS:
		pc, err := c.pull16()
		if err != nil {
			return err
		}
		c.PC = pc + 1
	case BRK:
		return c.brk()
	case RTI:
		p, err := c.pull8()
		if err != nil {
			return err
		}
		c.P = P(p) &^ (Break | Reserved)
		pc, err := c.pull16()
		if err != nil {
			return err
		}
		c.PC = pc

	case PHA:
		return c.push8(c.A)
	case PHP:
		return c.push8(uint8(c.P | Break | Reserved))
	case PLA:
		v, err := c.pull8()
		if err != nil {
			return err
		}
		c.A = v
		c.P.checkNZ(c.A)
	case PLP:
		p, err := c.pull8()
		if err != nil {
			return err
		}
		c.P = P(p) &^ (Break | Reserved)

	case NOP:
		// Undocumented NOPs with a memory operand still read it.
		switch c.op.Mode {
		case Implicit, Immediate:
		default:
			_, err := c.load()
			return err
		}

	// undocumented opcodes
	case SLO:
		v, err := c.modify(c.asl)
		if err != nil {
			return err
		}
		c.A |= v
		c.P.checkNZ(c.A)
	case RLA:
		v, err := c.modify(c.rol)
		if err != nil {
			return err
		}
		c.A &= v
		c.P.checkNZ(c.A)
	case SRE:
		v, err := c.modify(c.lsr)
		if err != nil {
			return err
		}
		c.A ^= v
		c.P.checkNZ(c.A)
	case RRA:
		v, err := c.modify(c.ror)
		if err != nil {
			return err
		}
		c.adc(v)
	case DCP:
		v, err := c.modify(c.decNoFlags)
		if err != nil {
			return err
		}
		c.compare(c.A, v)
	case ISC:
		v, err := c.modify(c.incNoFlags)
		if err != nil {
			return err
		}
		c.sbc(v)
	case SAX:
		return c.store(c.A & c.X)
	case LAX:
		return c.withOperand(func(v uint8) {
			c.A = v
			c.X = v
			c.P.checkNZ(v)
		})
	case LAS:
		return c.withOperand(func(v uint8) {
			v &= c.SP
			c.A = v
			c.X = v
			c.SP = v
			c.P.checkNZ(v)
		})
	case ANC:
		return c.withOperand(func(v uint8) {
			c.A &= v
			c.P.checkNZ(c.A)
			c.P.writeFlag(Carry, c.P.Negative())
		})
	case ALR:
		return c.withOperand(func(v uint8) {
			c.A = c.lsr(c.A & v)
		})
	case ARR:
		return c.withOperand(c.arr)
	case SBX:
		return c.withOperand(func(v uint8) {
			t := c.A & c.X
			c.P.writeFlag(Carry, t >= v)
			c.X = t - v
			c.P.checkNZ(c.X)
		})
	case JAM:
		c.halt()
		return ErrHalted

	default:
		panic(fmt.Sprintf("no executor for %s at $%04X", c.op.Inst, c.opPC))
	}
	return nil
}

// withOperand loads the operand and passes it to f.
func (c *CPU) withOperand(f func(uint8)) error {
	v, err := c.load()
	if err != nil {
		return err
	}
	f(v)
	return nil
}

func (c *CPU) compare(reg, v uint8) {
	c.P.writeFlag(Carry, reg >= v)
	c.P.checkNZ(reg - v)
}

func (c *CPU) asl(v uint8) uint8 {
	c.P.writeFlag(Carry, v&0x80 != 0)
	v <<= 1
	c.P.checkNZ(v)
	return v
}

func (c *CPU) lsr(v uint8) uint8 {
	c.P.writeFlag(Carry, v&0x01 != 0)
	v >>= 1
	c.P.checkNZ(v)
	return v
}

func (c *CPU) rol(v uint8) uint8 {
	carry := c.P.carry()
	c.P.writeFlag(Carry, v&0x80 != 0)
	v = v<<1 | carry
	c.P.checkNZ(v)
	return v
}

func (c *CPU) ror(v uint8) uint8 {
	carry := c.P.carry()
	c.P.writeFlag(Carry, v&0x01 != 0)
	v = v>>1 | carry<<7
	c.P.checkNZ(v)
	return v
}

func (c *CPU) inc(v uint8) uint8 {
	v++
	c.P.checkNZ(v)
	return v
}

func (c *CPU) dec(v uint8) uint8 {
	v--
	c.P.checkNZ(v)
	return v
}

func (c *CPU) incNoFlags(v uint8) uint8 { return v + 1 }
func (c *CPU) decNoFlags(v uint8) uint8 { return v - 1 }

// branch adds the relative operand to PC if cond holds. A taken branch costs
// one more cycle, two if the destination is on another page.
func (c *CPU) branch(cond bool) {
	if !cond {
		return
	}
	dst := c.PC + uint16(int8(c.operand))
	c.extra++
	if pagecrossed(c.PC, dst) {
		c.extra++
	}
	c.PC = dst
}

// brk pushes the address following the padding byte and the status with B
// set, then jumps through the IRQ vector. B only exists in the pushed copy.
func (c *CPU) brk() error {
	// PC points past the opcode; BRK skips the padding byte that follows it.
	if err := c.push16(c.PC + 1); err != nil {
		return err
	}
	if err := c.push8(uint8(c.P | Break | Reserved)); err != nil {
		return err
	}
	c.P.setFlags(Interrupt)
	pc, err := c.read16(IRQVector)
	if err != nil {
		return err
	}
	c.PC = pc
	c.P.clearFlags(Break | Reserved)
	return nil
}
