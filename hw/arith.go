package hw

// adc adds v and the carry to A.
func (c *CPU) adc(v uint8) {
	if c.decimal && c.P.Decimal() {
		c.adcDecimal(v)
		return
	}
	c.adcBinary(v)
}

// sbc subtracts v and the borrow from A. In binary mode it's an addition of
// the one's complement of v.
func (c *CPU) sbc(v uint8) {
	if c.decimal && c.P.Decimal() {
		c.sbcDecimal(v)
		return
	}
	c.adcBinary(^v)
}

func (c *CPU) adcBinary(v uint8) {
	sum := uint16(c.A) + uint16(v) + uint16(c.P.carry())
	c.P.checkCV(c.A, v, sum)
	c.A = uint8(sum)
	c.P.checkNZ(c.A)
}

// adcDecimal is the NMOS BCD addition. Z is taken from the binary sum, N and
// V from the intermediate result, before the high nibble gets adjusted.
func (c *CPU) adcDecimal(v uint8) {
	a := uint16(c.A)
	add := uint16(v)
	carry := uint16(c.P.carry())

	lo := a&0x0f + add&0x0f + carry
	if lo >= 0x0a {
		lo = (lo+0x06)&0x0f + 0x10
	}
	sum := a&0xf0 + add&0xf0 + lo

	c.P.checkZ(uint8(a + add + carry))
	c.P.checkN(uint8(sum))
	c.P.writeFlag(Overflow, (a^sum)&(add^sum)&0x80 != 0)

	if sum >= 0xa0 {
		sum += 0x60
	}
	c.P.writeFlag(Carry, sum >= 0x100)
	c.A = uint8(sum)
}

// sbcDecimal is the NMOS BCD subtraction. All flags are the ones of the
// binary subtraction, only A is decimal adjusted.
func (c *CPU) sbcDecimal(v uint8) {
	a := int(c.A)
	sub := int(v)
	borrow := 1 - int(c.P.carry())

	lo := a&0x0f - sub&0x0f - borrow
	if lo < 0 {
		lo = (lo-0x06)&0x0f - 0x10
	}
	res := a&0xf0 - sub&0xf0 + lo
	if res < 0 {
		res -= 0x60
	}

	c.adcBinary(^v)
	c.A = uint8(res)
}

// arr is AND then ROR A, with C and V taken from bits 6 and 5 of the result.
// Decimal mode is ignored.
func (c *CPU) arr(v uint8) {
	c.A &= v
	c.A = c.A>>1 | c.P.carry()<<7
	c.P.checkNZ(c.A)
	c.P.writeFlag(Carry, c.A&0x40 != 0)
	c.P.writeFlag(Overflow, (c.A>>6^c.A>>5)&1 != 0)
}
