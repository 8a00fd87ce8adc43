package hw

// resolve fetches the operand bytes of the instruction in flight and computes
// its effective address, according to the live addressing mode. The live
// mode is then downgraded to Implicit (Accumulator excepted) so that
// resolving again is a no-op.
func (c *CPU) resolve() error {
	var err error
	switch c.mode {
	case Implicit, Accumulator:
		return nil
	case Immediate, Relative:
		c.operand, err = c.fetch8()
	case ZeroPage:
		var lo uint8
		lo, err = c.fetch8()
		c.addr = uint16(lo)
	case ZeroPageX:
		var lo uint8
		lo, err = c.fetch8()
		c.addr = uint16(lo + c.X)
	case ZeroPageY:
		var lo uint8
		lo, err = c.fetch8()
		c.addr = uint16(lo + c.Y)
	case Absolute:
		c.addr, err = c.fetch16()
	case AbsoluteX:
		err = c.absIndexed(c.X)
	case AbsoluteY:
		err = c.absIndexed(c.Y)
	case Indirect:
		err = c.ind()
	case IndexedIndirect:
		var zp uint8
		if zp, err = c.fetch8(); err == nil {
			c.addr, err = c.zpr16(zp + c.X)
		}
	case IndirectIndexed:
		var zp uint8
		var base uint16
		if zp, err = c.fetch8(); err == nil {
			if base, err = c.zpr16(zp); err == nil {
				c.addr = base + uint16(c.Y)
				c.crossed(base, c.addr)
			}
		}
	}
	c.mode = Implicit
	return err
}

func (c *CPU) absIndexed(idx uint8) error {
	base, err := c.fetch16()
	if err != nil {
		return err
	}
	c.addr = base + uint16(idx)
	c.crossed(base, c.addr)
	return nil
}

// crossed adds a penalty cycle if a and b are on different pages, for the
// instructions paying it.
func (c *CPU) crossed(a, b uint16) {
	if pagecrossed(a, b) && c.op.crossPenalty() {
		c.extra++
	}
}

func pagecrossed(a, b uint16) bool {
	return a&0xFF00 != b&0xFF00
}

// ind reads the pointer for JMP (ind). The high byte of the target is not
// carried to the next page: JMP ($12FF) reads $12FF and $1200.
func (c *CPU) ind() error {
	ptr, err := c.fetch16()
	if err != nil {
		return err
	}
	lo, err := c.read8(ptr)
	if err != nil {
		return err
	}
	hi, err := c.read8(ptr&0xFF00 | uint16(uint8(ptr)+1))
	if err != nil {
		return err
	}
	c.addr = uint16(hi)<<8 | uint16(lo)
	return nil
}

// zpr16 reads a 16-bit pointer from the zero page, wrapping within it.
func (c *CPU) zpr16(zp uint8) (uint16, error) {
	lo, err := c.read8(uint16(zp))
	if err != nil {
		return 0, err
	}
	hi, err := c.read8(uint16(zp + 1))
	if err != nil {
		return 0, err
	}
	return uint16(hi)<<8 | uint16(lo), nil
}
