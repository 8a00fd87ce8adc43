package hw

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"sixtyfive/hw/hwio"
)

func TestPflag(t *testing.T) {
	p := P(0)
	p.setFlags(Interrupt)
	if p != 0x04 {
		t.Errorf("got P = %q, want %q", p.String(), P(0x04))
	}

	p.setFlags(Break)
	if p != 0x14 {
		t.Errorf("got P = %q, want %q", p.String(), P(0x14))
	}

	// Negative flag
	p.checkN(0xff)
	if !p.Negative() {
		t.Error("N bit should be set")
	}
	p.checkN(0x7f)
	if p.Negative() {
		t.Error("N bit should not be set")
	}
	p.checkN(0x80)
	if !p.Negative() {
		t.Error("N bit should be set")
	}

	// Zero flag
	p.checkZ(0)
	if !p.Zero() {
		t.Error("Z bit should be set")
	}

	p.checkZ(1)
	if p.Zero() {
		t.Error("Z bit should not be set")
	}

	p.checkZ(0xff)
	if p.Zero() {
		t.Error("Z bit should not be set")
	}
}

func TestPString(t *testing.T) {
	p := P(0b00110100)
	if got := p.String(); got != "nvUBdIzc" {
		t.Errorf("got P = %s, want %s", got, "nvUBdIzc")
	}
	p = P(0b00000100)
	if p.String() != "nvubdIzc" {
		t.Errorf("got P = %s, want %s", p.String(), "nvubdIzc")
	}
}

func TestReset(t *testing.T) {
	sys := loadCPUWith(t, `
FFFC: 34 12`)
	checkState(t, sys,
		"PC", 0x1234,
		"SP", 0xFD,
		"A", 0x00,
		"X", 0x00,
		"Y", 0x00,
		"P", 0x04,
	)

	sys = loadCPUWith(t, `FFFC: 34 12`, withPC(0x0600))
	checkState(t, sys, "PC", 0x0600)
}

func TestLDAImmediate(t *testing.T) {
	// LDA #$42
	sys := loadCPUWith(t, `0600: a9 42`, withPC(0x0600))

	runAndCheckState(t, sys, 1, "A", 0x00)
	runAndCheckState(t, sys, 1,
		"A", 0x42,
		"PC", 0x0602,
		"Pz", 0,
		"Pn", 0,
	)
	if !sys.AtBoundary() {
		t.Errorf("LDA #imm should be completed after 2 cycles")
	}
}

func TestADC(t *testing.T) {
	tests := []struct {
		name  string
		a, op uint8
		carry bool
		want  uint8
		nvzc  [4]int
	}{
		{name: "signed overflow", a: 0x40, op: 0x40, want: 0x80, nvzc: [4]int{1, 1, 0, 0}},
		{name: "unsigned overflow", a: 0xFF, op: 0x01, want: 0x00, nvzc: [4]int{0, 0, 1, 1}},
		{name: "carry in", a: 0x10, op: 0x20, carry: true, want: 0x31, nvzc: [4]int{0, 0, 0, 0}},
		{name: "negative overflow", a: 0x80, op: 0xFF, want: 0x7F, nvzc: [4]int{0, 1, 0, 1}},
		{name: "carry in to zero", a: 0xFE, op: 0x01, carry: true, want: 0x00, nvzc: [4]int{0, 0, 1, 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// ADC #op
			sys := loadCPUWith(t, `0600: 69 00`, withPC(0x0600))
			sys.ram[0x0601] = tt.op
			sys.A = tt.a
			sys.P.writeFlag(Carry, tt.carry)
			runAndCheckState(t, sys, 2,
				"A", int(tt.want),
				"Pn", tt.nvzc[0],
				"Pv", tt.nvzc[1],
				"Pz", tt.nvzc[2],
				"Pc", tt.nvzc[3],
			)
		})
	}
}

func TestSBC(t *testing.T) {
	tests := []struct {
		name  string
		a, op uint8
		carry bool
		want  uint8
		nvzc  [4]int
	}{
		{name: "no borrow", a: 0x50, op: 0x10, carry: true, want: 0x40, nvzc: [4]int{0, 0, 0, 1}},
		{name: "borrow in", a: 0x50, op: 0x10, want: 0x3F, nvzc: [4]int{0, 0, 0, 1}},
		{name: "borrow out", a: 0x00, op: 0x01, carry: true, want: 0xFF, nvzc: [4]int{1, 0, 0, 0}},
		{name: "signed overflow", a: 0x80, op: 0x01, carry: true, want: 0x7F, nvzc: [4]int{0, 1, 0, 1}},
		{name: "zero", a: 0x42, op: 0x42, carry: true, want: 0x00, nvzc: [4]int{0, 0, 1, 1}},
	}
	for _, tt := range tests {
		for _, opcode := range []uint8{0xE9, 0xEB} {
			t.Run(tt.name, func(t *testing.T) {
				// SBC #op
				sys := loadCPUWith(t, `0600: e9 00`, withPC(0x0600))
				sys.ram[0x0600] = opcode
				sys.ram[0x0601] = tt.op
				sys.A = tt.a
				sys.P.writeFlag(Carry, tt.carry)
				runAndCheckState(t, sys, 2,
					"A", int(tt.want),
					"Pn", tt.nvzc[0],
					"Pv", tt.nvzc[1],
					"Pz", tt.nvzc[2],
					"Pc", tt.nvzc[3],
				)
			})
		}
	}
}

func TestDecimalMode(t *testing.T) {
	tests := []struct {
		name    string
		dump    string
		decimal bool
		a       int
		c       int
	}{
		{
			// SED; CLC; LDA #$09; ADC #$01
			name: "adc", dump: `0600: f8 18 a9 09 69 01`, decimal: true,
			a: 0x10, c: 0,
		},
		{
			// SED; CLC; LDA #$99; ADC #$01
			name: "adc carry", dump: `0600: f8 18 a9 99 69 01`, decimal: true,
			a: 0x00, c: 1,
		},
		{
			// SED; SEC; LDA #$10; SBC #$01
			name: "sbc", dump: `0600: f8 38 a9 10 e9 01`, decimal: true,
			a: 0x09, c: 1,
		},
		{
			// SED; SEC; LDA #$00; SBC #$01
			name: "sbc borrow", dump: `0600: f8 38 a9 00 e9 01`, decimal: true,
			a: 0x99, c: 0,
		},
		{
			// SED; CLC; LDA #$09; ADC #$01
			name: "ignored", dump: `0600: f8 18 a9 09 69 01`, decimal: false,
			a: 0x0A, c: 0,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := []cpuOption{withPC(0x0600)}
			if tt.decimal {
				opts = append(opts, withDecimal())
			}
			sys := loadCPUWith(t, tt.dump, opts...)
			runAndCheckState(t, sys, 8,
				"A", tt.a,
				"Pc", tt.c,
				"Pd", 1,
			)
		})
	}
}

func TestStack(t *testing.T) {
	t.Run("PHA/PLA", func(t *testing.T) {
		// PHA; LDA #$00; PLA
		sys := loadCPUWith(t, `0600: 48 a9 00 68`, withPC(0x0600))
		sys.A = 0x37
		runAndCheckState(t, sys, 3+2+4,
			"A", 0x37,
			"SP", 0xFD,
			"Pz", 0,
			"mem", `01FD: 37`,
		)
	})
	t.Run("PHP/PLP", func(t *testing.T) {
		// PHP; PLP
		sys := loadCPUWith(t, `0600: 08 28`, withPC(0x0600))
		sys.P = 0xCB
		runAndCheckState(t, sys, 3+4,
			"P", 0xCB,
			"SP", 0xFD,
			"mem", `01FD: FB`,
		)
	})
	t.Run("PLP masks B and U", func(t *testing.T) {
		// LDA #$FF; PHA; PLP
		sys := loadCPUWith(t, `0600: a9 ff 48 28`, withPC(0x0600))
		runAndCheckState(t, sys, 2+3+4,
			"P", 0xCF,
			"SP", 0xFD,
		)
	})
	t.Run("wraps", func(t *testing.T) {
		// PHA; PHA
		sys := loadCPUWith(t, `0600: 48 48`, withPC(0x0600))
		sys.SP = 0x00
		sys.A = 0x11
		runAndCheckState(t, sys, 6,
			"SP", 0xFE,
			"mem", `0100: 11`,
			"mem", `01FF: 11`,
		)
	})
}

func TestJSRRTS(t *testing.T) {
	// JSR $1234
	// 1234: RTS
	sys := loadCPUWith(t, `
0600: 20 34 12
1234: 60`, withPC(0x0600))

	runAndCheckState(t, sys, 6,
		"PC", 0x1234,
		"SP", 0xFB,
		"mem", `01FC: 02 06`,
	)
	runAndCheckState(t, sys, 6,
		"PC", 0x0603,
		"SP", 0xFD,
	)
}

func TestJMPIndirectPageWrap(t *testing.T) {
	// JMP ($12FF)
	sys := loadCPUWith(t, `
0600: 6c ff 12
12FF: 00
1200: 80
1300: 90`, withPC(0x0600))

	runAndCheckState(t, sys, 5, "PC", 0x8000)
}

func TestPageCross(t *testing.T) {
	tests := []struct {
		name   string
		dump   string
		x, y   uint8
		a      int
		cycles int64
	}{
		{
			// LDA $00FF,X
			name: "abx no cross", dump: "0600: bd ff 00\n00FF: 55\n0100: 77",
			x: 0, a: 0x55, cycles: 4,
		},
		{
			name: "abx cross", dump: "0600: bd ff 00\n00FF: 55\n0100: 77",
			x: 1, a: 0x77, cycles: 5,
		},
		{
			// LDA $12F0,Y
			name: "aby cross", dump: "0600: b9 f0 12\n1300: 66",
			y: 0x10, a: 0x66, cycles: 5,
		},
		{
			// STA $00FF,X: no penalty for writes, always 5.
			name: "sta abx cross", dump: "0600: 9d ff 00",
			x: 1, a: 0x00, cycles: 5,
		},
		{
			// NOP $00FF,X
			name: "nop abx cross", dump: "0600: 1c ff 00",
			x: 1, a: 0x00, cycles: 5,
		},
		{
			// ASL $00FF,X: read-modify-write never pay the penalty.
			name: "asl abx cross", dump: "0600: 1e ff 00",
			x: 1, a: 0x00, cycles: 7,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sys := loadCPUWith(t, tt.dump, withPC(0x0600))
			sys.X = tt.x
			sys.Y = tt.y
			if got := stepCycles(t, sys); got != tt.cycles {
				t.Errorf("got %d cycles, want %d", got, tt.cycles)
			}
			checkState(t, sys, "A", tt.a, "PC", 0x0603)
		})
	}
}

func TestIndirectAddressing(t *testing.T) {
	tests := []struct {
		name   string
		dump   string
		x, y   uint8
		a      int
		cycles int64
	}{
		{
			// LDA ($20,X)
			name: "izx", dump: "0600: a1 20\n0024: 34 12\n1234: 99",
			x: 4, a: 0x99, cycles: 6,
		},
		{
			// LDA ($FE,X), pointer at $FF, high byte at $00.
			name: "izx pointer wraps", dump: "0600: a1 fe\n00FF: 34\n0000: 12\n1234: 99",
			x: 1, a: 0x99, cycles: 6,
		},
		{
			// LDA ($FE,X), index wraps within zero page.
			name: "izx index wraps", dump: "0600: a1 fe\n000E: 78 56\n5678: 42",
			x: 0x10, a: 0x42, cycles: 6,
		},
		{
			// LDA ($20),Y
			name: "izy", dump: "0600: b1 20\n0020: 00 12\n1205: 88",
			y: 5, a: 0x88, cycles: 5,
		},
		{
			// LDA ($FF),Y, pointer wraps and the addition crosses a page.
			name: "izy pointer wraps", dump: "0600: b1 ff\n00FF: f8\n0000: 12\n1308: ab",
			y: 0x10, a: 0xAB, cycles: 6,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sys := loadCPUWith(t, tt.dump, withPC(0x0600))
			sys.X = tt.x
			sys.Y = tt.y
			if got := stepCycles(t, sys); got != tt.cycles {
				t.Errorf("got %d cycles, want %d", got, tt.cycles)
			}
			checkState(t, sys, "A", tt.a, "PC", 0x0602)
		})
	}

	t.Run("sta izy", func(t *testing.T) {
		// STA ($FF),Y
		sys := loadCPUWith(t, "0600: 91 ff\n00FF: f8\n0000: 12", withPC(0x0600))
		sys.A = 0x5A
		sys.Y = 0x10
		if got := stepCycles(t, sys); got != 6 {
			t.Errorf("got %d cycles, want 6", got)
		}
		checkState(t, sys, "mem", `1308: 5a`)
	})
}

func TestZeroPageIndexedWraps(t *testing.T) {
	// LDA $F0,X ; LDX $F0,Y
	sys := loadCPUWith(t, `
0600: b5 f0 b6 f0
0010: 3c
0020: 4d`, withPC(0x0600))
	sys.X = 0x20
	sys.Y = 0x30

	runAndCheckState(t, sys, 4, "A", 0x3c)
	runAndCheckState(t, sys, 4, "X", 0x4d)
}

func TestBranch(t *testing.T) {
	tests := []struct {
		name   string
		pc     uint16
		offset uint8
		zero   bool
		wantPC int
		cycles int64
	}{
		{name: "not taken", pc: 0x0600, offset: 0x02, zero: true, wantPC: 0x0602, cycles: 2},
		{name: "taken", pc: 0x0600, offset: 0x02, wantPC: 0x0604, cycles: 3},
		{name: "taken forward cross", pc: 0x06F0, offset: 0x7F, wantPC: 0x0771, cycles: 4},
		{name: "taken backward cross", pc: 0x0600, offset: 0xFC, wantPC: 0x05FE, cycles: 4},
		{name: "taken backward", pc: 0x0610, offset: 0xFE, wantPC: 0x0610, cycles: 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// BNE offset
			sys := loadCPUWith(t, ``, withPC(tt.pc))
			sys.ram[tt.pc] = 0xD0
			sys.ram[tt.pc+1] = tt.offset
			sys.P.writeFlag(Zero, tt.zero)
			if got := stepCycles(t, sys); got != tt.cycles {
				t.Errorf("got %d cycles, want %d", got, tt.cycles)
			}
			checkState(t, sys, "PC", tt.wantPC)
		})
	}
}

func TestAccumulatorMode(t *testing.T) {
	// SEC; ROL A; LSR A; ASL A; ROR A
	sys := loadCPUWith(t, `0600: 38 2a 4a 0a 6a`, withPC(0x0600))
	sys.A = 0x81

	runAndCheckState(t, sys, 4, "A", 0x03, "Pc", 1)
	if sys.mode != Accumulator {
		t.Errorf("live mode = %s, want %s", sys.mode, Accumulator)
	}
	runAndCheckState(t, sys, 2, "A", 0x01, "Pc", 1)
	runAndCheckState(t, sys, 2, "A", 0x02, "Pc", 0)
	runAndCheckState(t, sys, 2, "A", 0x01, "Pc", 0)
}

func TestBRKRTI(t *testing.T) {
	// BRK + signature byte
	// 8000: RTI
	sys := loadCPUWith(t, `
0600: 00 ea
8000: 40
FFFE: 00 80`, withPC(0x0600))
	sys.P.setFlags(Carry)

	runAndCheckState(t, sys, 7,
		"PC", 0x8000,
		"SP", 0xFA,
		"P", 0x05,
		"mem", `01FB: 35 02 06`,
	)
	runAndCheckState(t, sys, 6,
		"PC", 0x0602,
		"SP", 0xFD,
		"P", 0x05,
	)
}

func TestInterrupts(t *testing.T) {
	t.Run("IRQ", func(t *testing.T) {
		// CLI; NOP
		sys := loadCPUWith(t, `
0600: 58 ea
FFFE: 00 80`, withPC(0x0600))
		sys.SetIRQ(true)

		// I is set after reset: CLI runs first.
		runAndCheckState(t, sys, 2, "PC", 0x0601, "Pi", 0)
		runAndCheckState(t, sys, 7,
			"PC", 0x8000,
			"Pi", 1,
			"SP", 0xFA,
			"mem", `01FB: 20 01 06`,
		)
	})
	t.Run("IRQ masked", func(t *testing.T) {
		// NOP
		sys := loadCPUWith(t, `
0600: ea
FFFE: 00 80`, withPC(0x0600))
		sys.SetIRQ(true)
		runAndCheckState(t, sys, 2, "PC", 0x0601)
	})
	t.Run("NMI", func(t *testing.T) {
		// NOP
		sys := loadCPUWith(t, `
0600: ea
FFFA: 00 90`, withPC(0x0600))
		sys.NMI()
		runAndCheckState(t, sys, 7,
			"PC", 0x9000,
			"Pi", 1,
			"mem", `01FB: 24 00 06`,
		)

		// Edge triggered: only serviced once.
		sys.ram[0x9000] = 0xEA
		runAndCheckState(t, sys, 2, "PC", 0x9001)
	})
}

func TestUndocumented(t *testing.T) {
	tests := []struct {
		name   string
		dump   string
		a, x   uint8
		carry  bool
		cycles uint64
		states []any
	}{
		{
			name: "LAX zp", dump: "0600: a7 10\n0010: 81", cycles: 3,
			states: []any{"A", 0x81, "X", 0x81, "Pn", 1},
		},
		{
			name: "SAX zp", dump: "0600: 87 20", a: 0xF0, x: 0x3C, cycles: 3,
			states: []any{"mem", "0020: 30"},
		},
		{
			name: "DCP zp", dump: "0600: c7 30\n0030: 05", a: 0x04, cycles: 5,
			states: []any{"mem", "0030: 04", "Pz", 1, "Pc", 1},
		},
		{
			name: "ISC zp", dump: "0600: e7 40\n0040: 0f", a: 0x20, carry: true, cycles: 5,
			states: []any{"mem", "0040: 10", "A", 0x10, "Pc", 1},
		},
		{
			name: "SLO zp", dump: "0600: 07 50\n0050: 81", a: 0x01, cycles: 5,
			states: []any{"mem", "0050: 02", "A", 0x03, "Pc", 1},
		},
		{
			name: "RLA zp", dump: "0600: 27 50\n0050: 81", a: 0x0F, carry: true, cycles: 5,
			states: []any{"mem", "0050: 03", "A", 0x03, "Pc", 1},
		},
		{
			name: "SRE zp", dump: "0600: 47 50\n0050: 03", a: 0x0F, cycles: 5,
			states: []any{"mem", "0050: 01", "A", 0x0E, "Pc", 1},
		},
		{
			name: "RRA zp", dump: "0600: 67 50\n0050: 03", a: 0x10, cycles: 5,
			states: []any{"mem", "0050: 01", "A", 0x12, "Pc", 0},
		},
		{
			name: "ANC imm", dump: "0600: 0b 80", a: 0xFF, cycles: 2,
			states: []any{"A", 0x80, "Pn", 1, "Pc", 1},
		},
		{
			name: "ALR imm", dump: "0600: 4b 03", a: 0xFF, cycles: 2,
			states: []any{"A", 0x01, "Pc", 1, "Pz", 0},
		},
		{
			name: "ARR imm", dump: "0600: 6b ff", a: 0xC0, carry: true, cycles: 2,
			states: []any{"A", 0xE0, "Pc", 1, "Pv", 0, "Pn", 1},
		},
		{
			name: "SBX imm", dump: "0600: cb 02", a: 0x0F, x: 0xF3, cycles: 2,
			states: []any{"X", 0x01, "Pc", 1},
		},
		{
			name: "LAS aby", dump: "0600: bb 00 02\n0200: f0", cycles: 4,
			states: []any{"A", 0xF0, "X", 0xF0, "SP", 0xF0},
		},
		{
			name: "NOP zp", dump: "0600: 04 10", cycles: 3,
			states: []any{"PC", 0x0602},
		},
		{
			name: "NOP abs", dump: "0600: 0c 10 02", cycles: 4,
			states: []any{"PC", 0x0603},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sys := loadCPUWith(t, tt.dump, withPC(0x0600))
			sys.A = tt.a
			sys.X = tt.x
			sys.P.writeFlag(Carry, tt.carry)
			runAndCheckState(t, sys, tt.cycles, tt.states...)
			if !sys.AtBoundary() {
				t.Errorf("instruction not completed after %d cycles", tt.cycles)
			}
		})
	}
}

func TestJAM(t *testing.T) {
	sys := loadCPUWith(t, `0600: 02`, withPC(0x0600))

	if err := sys.Step(); !errors.Is(err, ErrHalted) {
		t.Fatalf("Step() = %v, want %v", err, ErrHalted)
	}
	if !sys.IsHalted() {
		t.Errorf("CPU should be halted")
	}
	if err := sys.OnTick(); !errors.Is(err, ErrHalted) {
		t.Errorf("OnTick() = %v, want %v", err, ErrHalted)
	}

	if err := sys.Reset(); err != nil {
		t.Fatal(err)
	}
	if sys.IsHalted() {
		t.Errorf("CPU should not be halted after reset")
	}
}

func TestDecodePolicy(t *testing.T) {
	t.Run("fallback", func(t *testing.T) {
		sys := loadCPUWith(t, `0600: 8b a9 01`, withPC(0x0600))
		runAndCheckState(t, sys, 2, "PC", 0x0601)
		runAndCheckState(t, sys, 2, "A", 0x01)
	})
	t.Run("strict", func(t *testing.T) {
		sys := loadCPUWith(t, `0600: 8b`, withPC(0x0600), withStrictDecode())

		err := sys.OnTick()
		var derr *DecodeError
		if !errors.As(err, &derr) {
			t.Fatalf("OnTick() = %v, want a DecodeError", err)
		}
		want := DecodeError{Opcode: 0x8B, PC: 0x0600}
		if diff := cmp.Diff(want, *derr); diff != "" {
			t.Errorf("DecodeError mismatch (-want +got):\n%s", diff)
		}
		checkState(t, sys, "PC", 0x0600)
	})
}

// newStrictSystem creates a CPU with RAM only mapped in [0x0000, 0x7FFF] and
// a strict memory table.
func newStrictSystem(tb testing.TB, pc *uint16) (*CPU, []byte, error) {
	tb.Helper()

	ram := make([]byte, 0x8000)
	mem := hwio.NewTable("strict")
	mem.Strict = true
	mem.MapMemorySlice(0x0000, 0x7FFF, ram, false)

	addr := hwio.NewBus("addr", 16)
	data := hwio.NewBus("data", 8)
	rw := &hwio.Line{}
	mem.Connect(addr, data, rw)

	cpu, err := NewCPU(CPUConfig{
		AddrBus: addr,
		DataBus: data,
		RW:      rw,
		PC:      pc,
	})
	return cpu, ram, err
}

func TestBusError(t *testing.T) {
	pc := uint16(0x0600)
	cpu, ram, err := newStrictSystem(t, &pc)
	if err != nil {
		t.Fatal(err)
	}

	// STA $9000
	copy(ram[0x0600:], []byte{0x8d, 0x00, 0x90})
	err = cpu.Step()

	var berr *BusError
	if !errors.As(err, &berr) {
		t.Fatalf("Step() = %v, want a BusError", err)
	}
	if berr.Op != "write" || berr.Addr != 0x9000 {
		t.Errorf("got %s at $%04X, want write at $9000", berr.Op, berr.Addr)
	}
	if !errors.Is(err, hwio.ErrUnmapped) {
		t.Errorf("BusError should wrap %v", hwio.ErrUnmapped)
	}
}

func TestResetError(t *testing.T) {
	_, _, err := newStrictSystem(t, nil)

	var rerr *ResetError
	if !errors.As(err, &rerr) {
		t.Fatalf("NewCPU() = %v, want a ResetError", err)
	}
	var berr *BusError
	if !errors.As(err, &berr) {
		t.Errorf("ResetError should wrap a BusError, got %v", rerr.Err)
	}
}

func TestNewCPUBusWidth(t *testing.T) {
	_, err := NewCPU(CPUConfig{
		AddrBus: hwio.NewBus("addr", 8),
		DataBus: hwio.NewBus("data", 8),
		RW:      &hwio.Line{},
	})
	if err == nil {
		t.Fatalf("NewCPU should fail with an 8-bit address bus")
	}
}

func TestStateRoundTrip(t *testing.T) {
	// LDA $1234,X
	sys := loadCPUWith(t, "0600: bd 34 12\n1235: 42", withPC(0x0600))
	sys.X = 1

	// Stop in the middle of the instruction.
	runAndCheckState(t, sys, 2)
	state := sys.State()

	sys2 := loadCPUWith(t, "0600: bd 34 12\n1235: 42", withPC(0x0000))
	if err := sys2.SetState(state); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(state, sys2.State()); diff != "" {
		t.Fatalf("state mismatch (-want +got):\n%s", diff)
	}

	runAndCheckState(t, sys2, 2, "A", 0x42, "PC", 0x0603)
	if !sys2.AtBoundary() {
		t.Errorf("instruction should be completed")
	}
}
