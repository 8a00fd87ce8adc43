// Package debugger implements a CPU debugger: breakpoints, pause, single
// step and call stack tracking. It can be driven locally or remotely over a
// websocket.
package debugger

import (
	"slices"
	"strings"
	"sync"

	"sixtyfive/emu/log"
	"sixtyfive/hw"
)

type status uint8

const (
	running status = iota
	paused
	stepping
)

func (s status) String() string {
	switch s {
	case running:
		return "running"
	case paused:
		return "paused"
	case stepping:
		return "stepping"
	}
	return "unknown"
}

// State is what the debugger shows of the CPU. Registers are only captured
// when the CPU stops.
type State struct {
	Status string
	Reason string // why the CPU stopped
	PC     uint16
	A      uint8
	X      uint8
	Y      uint8
	SP     uint8
	P      uint8
	Cycles int64
	Disasm string
	Stack  []frameInfo
}

// A Debugger holds the state of the CPU debugger. In order to be able to
// debug a program at any moment, the debugger has to keep track of the call
// stack, even when running.
type Debugger struct {
	cpu  *hw.CPU
	peek hw.Peeker

	mu          sync.Mutex
	status      status
	blocked     bool // the CPU waits on resume
	breakpoints map[uint16]struct{}
	last        State
	subs        map[chan State]struct{}

	resume chan struct{}

	// Only accessed from the CPU goroutine.
	prevPC     uint16
	prevOpcode uint8
	cstack     callStack
}

// New attaches a debugger to cpu. peek gives access to memory without side
// effects.
func New(cpu *hw.CPU, peek hw.Peeker) *Debugger {
	d := &Debugger{
		cpu:         cpu,
		peek:        peek,
		breakpoints: make(map[uint16]struct{}),
		subs:        make(map[chan State]struct{}),
		resume:      make(chan struct{}, 1),
	}
	d.last.Status = running.String()
	cpu.SetDebugger(d)
	return d
}

// Reset is called by the CPU on reset. It clears the call stack.
func (d *Debugger) Reset() {
	d.prevOpcode = 0
	d.cstack.reset()
}

// Trace blocks while the CPU is paused. It stops the CPU when a breakpoint is
// hit, or after a single step.
func (d *Debugger) Trace(pc uint16) {
	d.updateStack(pc)
	d.prevPC = pc
	d.prevOpcode = d.peek.Peek8(pc)

	d.mu.Lock()
	var reason string
	switch {
	case d.status == stepping:
		reason = "step"
	case d.status == paused:
		reason = "pause"
	default:
		if _, ok := d.breakpoints[pc]; ok {
			reason = "breakpoint"
		}
	}
	if reason == "" {
		d.mu.Unlock()
		return
	}

	d.status = paused
	d.blocked = true
	d.stop(pc, reason)
	d.mu.Unlock()

	<-d.resume
}

// stop captures the CPU state and notifies subscribers. d.mu must be held.
func (d *Debugger) stop(pc uint16, reason string) {
	op := hw.Disassemble(d.peek, pc)
	d.last = State{
		Status: d.status.String(),
		Reason: reason,
		PC:     pc,
		A:      d.cpu.A,
		X:      d.cpu.X,
		Y:      d.cpu.Y,
		SP:     d.cpu.SP,
		P:      uint8(d.cpu.P),
		Cycles: d.cpu.Cycles,
		Disasm: strings.TrimSpace(op.Opcode + " " + op.Oper),
		Stack:  d.cstack.build(pc),
	}

	log.ModDbg.DebugZ("cpu stopped").
		String("reason", reason).
		Hex16("pc", pc).
		End()

	for ch := range d.subs {
		select {
		case ch <- d.last:
		default:
			log.ModDbg.WarnZ("dropped debugger event, slow subscriber").End()
		}
	}
}

// updateStack accounts for the control flow of the previous instruction,
// which moved the CPU to pc.
func (d *Debugger) updateStack(pc uint16) {
	switch d.prevOpcode {
	case 0x20: // JSR
		d.cstack.push(d.prevPC, pc, d.prevPC+3, frameCall)
	case 0x40, 0x60: // RTI RTS
		if !d.cstack.unwind(pc) {
			log.ModDbg.DebugZ("return without matching call").
				Hex16("from", d.prevPC).
				Hex16("to", pc).
				End()
		}
	}
}

// Interrupt is called by the CPU when it services an interrupt: prevpc is the
// interrupted address, where RTI returns, and curpc the handler address.
func (d *Debugger) Interrupt(prevpc, curpc uint16, isNMI bool) {
	kind := frameIRQ
	if isNMI {
		kind = frameNMI
	}
	d.updateStack(prevpc)
	d.prevOpcode = 0xFF

	d.cstack.push(d.prevPC, curpc, prevpc, kind)
}

// Break can be called by the CPU core to force breaking into the debugger.
func (d *Debugger) Break(msg string) {
	log.ModDbg.WarnZ("break").String("msg", msg).End()

	d.mu.Lock()
	d.status = paused
	d.stop(d.prevPC, msg)
	d.mu.Unlock()
}

// Continue resumes execution until the next breakpoint.
func (d *Debugger) Continue() {
	d.mu.Lock()
	d.status = running
	d.release()
	d.mu.Unlock()
}

// Step executes one instruction then stops.
func (d *Debugger) Step() {
	d.mu.Lock()
	d.status = stepping
	d.release()
	d.mu.Unlock()
}

// Pause stops the CPU before the next instruction.
func (d *Debugger) Pause() {
	d.mu.Lock()
	if d.status == running {
		d.status = paused
	}
	d.mu.Unlock()
}

// release unblocks the CPU if it's waiting in Trace. d.mu must be held.
func (d *Debugger) release() {
	if d.blocked {
		d.blocked = false
		d.resume <- struct{}{}
	}
}

// SetBreakpoint adds or removes a breakpoint at addr.
func (d *Debugger) SetBreakpoint(addr uint16, enabled bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if enabled {
		d.breakpoints[addr] = struct{}{}
	} else {
		delete(d.breakpoints, addr)
	}
}

// Breakpoints returns the sorted breakpoint addresses.
func (d *Debugger) Breakpoints() []uint16 {
	d.mu.Lock()
	defer d.mu.Unlock()

	bps := make([]uint16, 0, len(d.breakpoints))
	for addr := range d.breakpoints {
		bps = append(bps, addr)
	}
	slices.Sort(bps)
	return bps
}

// State returns the state captured the last time the CPU stopped, along with
// the current status.
func (d *Debugger) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()

	st := d.last
	st.Status = d.status.String()
	return st
}

// Subscribe returns a channel receiving the CPU state each time it stops, and
// a function to unsubscribe.
func (d *Debugger) Subscribe() (<-chan State, func()) {
	ch := make(chan State, 16)

	d.mu.Lock()
	d.subs[ch] = struct{}{}
	d.mu.Unlock()

	return ch, func() {
		d.mu.Lock()
		delete(d.subs, ch)
		d.mu.Unlock()
	}
}

// Detach removes all breakpoints and lets the CPU run freely.
func (d *Debugger) Detach() {
	d.mu.Lock()
	clear(d.breakpoints)
	d.status = running
	d.release()
	d.mu.Unlock()
}
