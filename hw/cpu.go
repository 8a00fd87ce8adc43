package hw

import (
	"errors"
	"fmt"
	"io"

	"sixtyfive/emu/log"
	"sixtyfive/hw/hwio"
)

// Locations reserved for vector pointers.
const (
	NMIVector   = uint16(0xFFFA) // Non-Maskable Interrupt
	ResetVector = uint16(0xFFFC) // Reset
	IRQVector   = uint16(0xFFFE) // Interrupt Request
)

// A Peeker reads memory without side effects.
type Peeker interface {
	Peek8(addr uint16) uint8
}

// CPUConfig holds what's needed to build a CPU.
type CPUConfig struct {
	Clock   *Clock     // if non-nil, the CPU attaches itself to it
	AddrBus *hwio.Bus  // 16-bit address bus
	DataBus *hwio.Bus  // 8-bit data bus
	RW      *hwio.Line // read/write line

	// Peeker is used by the disassembler and the execution tracer. It is
	// required when Trace is set.
	Peeker Peeker

	// Trace, if non-nil, receives one line per executed instruction.
	Trace io.Writer

	// PC, if non-nil, overrides the reset vector.
	PC *uint16

	// Decimal enables BCD arithmetic in ADC and SBC when the D flag is set.
	// The NES 2A03 lacks it so it's off by default.
	Decimal bool

	// DecodeFallback makes the CPU decode opcodes missing from the opcode
	// table as 2-cycle NOPs. When false, a DecodeError is returned.
	DecodeFallback bool
}

// CPU is a MOS 6502 driven by an external clock, one OnTick call per cycle.
//
// Emulation is cycle-count accurate, not bus-cycle accurate: the opcode is
// fetched on the first cycle of an instruction, addressing and execution both
// happen on the last one, cycles in between are idle.
type CPU struct {
	// cpu registers
	A, X, Y, SP uint8
	PC          uint16
	P           P

	Cycles int64 // cycles since last reset

	addrBus *hwio.Bus
	dataBus *hwio.Bus
	rw      *hwio.Line
	peek    Peeker

	// step state
	op        Descriptor // instruction in flight
	mode      Mode       // live addressing mode
	opPC      uint16     // address of the instruction in flight
	remaining uint8      // cycles left before the next fetch
	pending   bool       // op is not executed yet
	extra     uint8      // cycles to add after execution
	operand   uint8      // immediate or relative operand
	addr      uint16     // effective address
	intr      uint16     // vector of the interrupt sequence in flight, if any

	// interrupt lines
	irqLine bool
	nmiEdge bool

	decimal  bool
	fallback bool
	halted   bool
	resetPC  *uint16

	// Non-nil when execution tracing is enabled.
	tracer *tracer
	dbg    Debugger
}

// NewCPU creates a CPU connected to the buses of cfg and resets it.
func NewCPU(cfg CPUConfig) (*CPU, error) {
	switch {
	case cfg.AddrBus == nil || cfg.DataBus == nil || cfg.RW == nil:
		return nil, errors.New("cpu: address bus, data bus and rw line are required")
	case cfg.AddrBus.Width() != 16:
		return nil, fmt.Errorf("cpu: address bus must be 16-bit wide, got %d", cfg.AddrBus.Width())
	case cfg.DataBus.Width() != 8:
		return nil, fmt.Errorf("cpu: data bus must be 8-bit wide, got %d", cfg.DataBus.Width())
	case cfg.Trace != nil && cfg.Peeker == nil:
		return nil, errors.New("cpu: execution trace requires a peeker")
	}

	cpu := &CPU{
		addrBus:  cfg.AddrBus,
		dataBus:  cfg.DataBus,
		rw:       cfg.RW,
		peek:     cfg.Peeker,
		decimal:  cfg.Decimal,
		fallback: cfg.DecodeFallback,
		resetPC:  cfg.PC,
		dbg:      nopDebugger{},
	}
	if cfg.Trace != nil {
		cpu.SetTraceOutput(cfg.Trace)
	}
	if err := cpu.Reset(); err != nil {
		return nil, err
	}
	if cfg.Clock != nil {
		cfg.Clock.Attach(cpu)
	}
	return cpu, nil
}

// Reset puts the CPU in its power-up state and loads PC from the reset vector,
// unless it's been overridden at construction.
func (c *CPU) Reset() error {
	c.A = 0x00
	c.X = 0x00
	c.Y = 0x00
	c.SP = 0xFD
	c.P = Interrupt

	c.Cycles = 0
	c.op = Descriptor{}
	c.mode = Implicit
	c.remaining = 0
	c.pending = false
	c.extra = 0
	c.intr = 0
	c.irqLine = false
	c.nmiEdge = false
	c.halted = false

	if c.resetPC != nil {
		c.PC = *c.resetPC
	} else {
		pc, err := c.read16(ResetVector)
		if err != nil {
			return &ResetError{Err: err}
		}
		c.PC = pc
	}

	log.ModCPU.DebugZ("reset").Hex16("pc", c.PC).End()
	c.dbg.Reset()
	return nil
}

// OnTick runs a single cycle.
func (c *CPU) OnTick() error {
	if c.halted {
		return ErrHalted
	}

	var err error
	switch {
	case c.remaining == 0:
		err = c.fetch()
	case c.remaining == 1 && c.pending:
		err = c.addressAndExecute()
	default:
		c.remaining--
	}
	if err != nil {
		return err
	}
	c.Cycles++
	return nil
}

// Tick runs n cycles, stopping at the first error.
func (c *CPU) Tick(n int) error {
	for range n {
		if err := c.OnTick(); err != nil {
			return err
		}
	}
	return nil
}

// Step runs cycles until the instruction in flight completes, or the next one
// if the CPU sits at an instruction boundary.
func (c *CPU) Step() error {
	if err := c.OnTick(); err != nil {
		return err
	}
	for c.remaining != 0 {
		if err := c.OnTick(); err != nil {
			return err
		}
	}
	return nil
}

// AtBoundary reports whether the next cycle fetches a new instruction.
func (c *CPU) AtBoundary() bool {
	return c.remaining == 0
}

// Current returns the descriptor of the last decoded instruction and its
// address.
func (c *CPU) Current() (Descriptor, uint16) {
	return c.op, c.opPC
}

func (c *CPU) fetch() error {
	if c.nmiEdge || (c.irqLine && !c.P.IntDisable()) {
		c.beginInterrupt()
		return nil
	}

	c.opPC = c.PC
	c.traceOp()

	opcode, err := c.fetch8()
	if err != nil {
		return err
	}

	d, ok := Lookup(opcode)
	if !ok {
		if !c.fallback {
			c.PC = c.opPC
			return &DecodeError{Opcode: opcode, PC: c.opPC}
		}
		log.ModCPU.WarnZ("unmapped opcode decoded as NOP").
			Hex8("opcode", opcode).
			Hex16("pc", c.opPC).
			End()
		d = fallback
	}

	c.op = d
	c.mode = d.Mode
	c.remaining = d.Cycles - 1
	c.pending = true
	return nil
}

func (c *CPU) addressAndExecute() error {
	var err error
	if c.intr != 0 {
		err = c.interrupt()
	} else {
		if err = c.resolve(); err == nil {
			err = c.execute()
		}
	}
	if c.mode != Accumulator {
		c.mode = Implicit
	}
	if err != nil {
		return err
	}

	c.remaining = c.extra
	c.extra = 0
	c.pending = false
	return nil
}

func (c *CPU) halt() {
	c.halted = true
	log.ModCPU.WarnZ("CPU halted").
		Hex16("PC", c.opPC).
		End()
	c.dbg.Break(fmt.Sprintf("halted at $%04X", c.opPC))
}

// IsHalted reports whether the CPU executed a JAM opcode.
func (c *CPU) IsHalted() bool {
	return c.halted
}

/* bus access */

func (c *CPU) read8(addr uint16) (uint8, error) {
	c.rw.Set(true)
	if err := c.addrBus.Write(addr); err != nil {
		return 0, &BusError{Op: "read", Addr: addr, Err: err}
	}
	return uint8(c.dataBus.Read()), nil
}

func (c *CPU) write8(addr uint16, val uint8) error {
	c.rw.Set(false)
	if err := c.addrBus.Write(addr); err != nil {
		return &BusError{Op: "write", Addr: addr, Err: err}
	}
	if err := c.dataBus.Write(uint16(val)); err != nil {
		return &BusError{Op: "write", Addr: addr, Err: err}
	}
	return nil
}

func (c *CPU) read16(addr uint16) (uint16, error) {
	lo, err := c.read8(addr)
	if err != nil {
		return 0, err
	}
	hi, err := c.read8(addr + 1)
	if err != nil {
		return 0, err
	}
	return uint16(hi)<<8 | uint16(lo), nil
}

// fetch8 reads the byte at PC and increments PC.
func (c *CPU) fetch8() (uint8, error) {
	v, err := c.read8(c.PC)
	if err != nil {
		return 0, err
	}
	c.PC++
	return v, nil
}

func (c *CPU) fetch16() (uint16, error) {
	lo, err := c.fetch8()
	if err != nil {
		return 0, err
	}
	hi, err := c.fetch8()
	if err != nil {
		return 0, err
	}
	return uint16(hi)<<8 | uint16(lo), nil
}

/* stack operations */

func (c *CPU) push8(val uint8) error {
	top := uint16(c.SP) + 0x0100
	if err := c.write8(top, val); err != nil {
		return err
	}
	c.SP--
	return nil
}

func (c *CPU) push16(val uint16) error {
	if err := c.push8(uint8(val >> 8)); err != nil {
		return err
	}
	return c.push8(uint8(val & 0xff))
}

func (c *CPU) pull8() (uint8, error) {
	c.SP++
	top := uint16(c.SP) + 0x0100
	return c.read8(top)
}

func (c *CPU) pull16() (uint16, error) {
	lo, err := c.pull8()
	if err != nil {
		return 0, err
	}
	hi, err := c.pull8()
	if err != nil {
		return 0, err
	}
	return uint16(hi)<<8 | uint16(lo), nil
}

/* interrupt handling */

// SetIRQ sets the level of the IRQ line. While asserted, an interrupt
// sequence starts at each instruction boundary if I is clear.
func (c *CPU) SetIRQ(asserted bool) {
	c.irqLine = asserted
}

// NMI signals an edge on the NMI line. The interrupt sequence starts at the
// next instruction boundary.
func (c *CPU) NMI() {
	c.nmiEdge = true
}

func (c *CPU) beginInterrupt() {
	c.opPC = c.PC
	if c.nmiEdge {
		c.nmiEdge = false
		c.intr = NMIVector
	} else {
		c.intr = IRQVector
	}
	c.op = Descriptor{Mode: Implicit, Cycles: 7}
	c.mode = Implicit
	c.remaining = c.op.Cycles - 1
	c.pending = true
}

// interrupt runs the hardware interrupt sequence, the same as BRK except that
// PC is pushed as is and B is clear in the pushed status.
func (c *CPU) interrupt() error {
	vector := c.intr
	c.intr = 0

	prevpc := c.PC
	if err := c.push16(c.PC); err != nil {
		return err
	}
	if err := c.push8(uint8(c.P&^Break | Reserved)); err != nil {
		return err
	}
	c.P.setFlags(Interrupt)

	pc, err := c.read16(vector)
	if err != nil {
		return err
	}
	c.PC = pc
	c.dbg.Interrupt(prevpc, c.PC, vector == NMIVector)
	return nil
}

/* tracing / debugging */

// SetTraceOutput enables the execution trace, or disables it if w is nil. The
// CPU must have a Peeker.
func (c *CPU) SetTraceOutput(w io.Writer) {
	if w == nil || c.peek == nil {
		c.tracer = nil
		return
	}
	c.tracer = &tracer{w: w, d: c}
}

func (c *CPU) SetDebugger(dbg Debugger) {
	if dbg == nil {
		dbg = nopDebugger{}
	}
	c.dbg = dbg
}

func (c *CPU) traceOp() {
	if c.tracer != nil {
		c.tracer.write(cpuState{
			A:     c.A,
			X:     c.X,
			Y:     c.Y,
			P:     c.P,
			SP:    c.SP,
			PC:    c.PC,
			Clock: c.Cycles,
		})
	}

	c.dbg.Trace(c.PC)
}

// Disasm disassembles the instruction at pc. The CPU must have a Peeker.
func (c *CPU) Disasm(pc uint16) DisasmOp {
	return Disassemble(c.peek, pc)
}

// AddLogContext adds the CPU registers to log entries.
func (c *CPU) AddLogContext(e *log.EntryZ) {
	e.Hex16("PC", c.PC).
		Hex8("A", c.A).
		Hex8("X", c.X).
		Hex8("Y", c.Y).
		Hex8("SP", c.SP).
		Stringer("P", c.P)
}
