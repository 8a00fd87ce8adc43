package hw

// P is the 6502 processor status register, laid out NV-BDIZC.
type P uint8

const (
	Carry = 1 << iota
	Zero
	Interrupt
	Decimal
	Break
	Reserved
	Overflow
	Negative
)

func (p P) String() string {
	const bits = "nvubdizcNVUBDIZC"

	s := make([]byte, 8)
	for i := 0; i < 8; i++ {
		ibit := (uint8(p) & (1 << (7 - i))) >> (7 - i)
		s[i] = bits[i+int(8*ibit)]
	}
	return string(s)
}

func (p *P) setFlags(flags uint8) {
	*p |= P(flags)
}

func (p *P) clearFlags(flags uint8) {
	*p &= ^P(flags)
}

func (p *P) writeFlag(flag uint8, v bool) {
	if v {
		p.setFlags(flag)
	} else {
		p.clearFlags(flag)
	}
}

func (p P) hasFlag(flag uint8) bool {
	return uint8(p)&flag == flag
}

func (p P) Carry() bool      { return p.hasFlag(Carry) }
func (p P) Zero() bool       { return p.hasFlag(Zero) }
func (p P) IntDisable() bool { return p.hasFlag(Interrupt) }
func (p P) Decimal() bool    { return p.hasFlag(Decimal) }
func (p P) Break() bool      { return p.hasFlag(Break) }
func (p P) Overflow() bool   { return p.hasFlag(Overflow) }
func (p P) Negative() bool   { return p.hasFlag(Negative) }

// carry returns the carry flag as 0 or 1.
func (p P) carry() uint8 {
	return uint8(p) & Carry
}

func (p *P) checkNZ(v uint8) {
	p.checkN(v)
	p.checkZ(v)
}

// sets N flag if bit 7 of v is set, clears it otherwise.
func (p *P) checkN(v uint8) {
	p.writeFlag(Negative, v&0x80 != 0)
}

// sets Z flag if v == 0, clears it otherwise.
func (p *P) checkZ(v uint8) {
	p.writeFlag(Zero, v == 0)
}

func (p *P) checkCV(x, y uint8, sum uint16) {
	// forward carry or unsigned overflow.
	p.writeFlag(Carry, sum > 0xFF)

	// signed overflow, can only happen if the sign of the sum differs
	// from that of both operands.
	v := (uint16(x) ^ sum) & (uint16(y) ^ sum) & 0x80
	p.writeFlag(Overflow, v != 0)
}
