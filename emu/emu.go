package emu

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"sixtyfive/emu/log"
	"sixtyfive/hw"
	"sixtyfive/hw/hwio"
	"sixtyfive/hw/snapshot"
)

// StopReason tells why Run returned.
type StopReason uint8

const (
	StopBudget  StopReason = iota // cycle budget spent
	StopContext                   // context done
	StopHalted                    // CPU jammed
	StopTrap                      // instruction jumping to itself
	StopQuit                      // Stop was called
	StopError                     // tick error
)

var stopNames = [...]string{"budget", "context", "halted", "trap", "quit", "error"}

func (r StopReason) String() string {
	if int(r) < len(stopNames) {
		return stopNames[r]
	}
	return fmt.Sprintf("StopReason(%d)", r)
}

// A Machine is a 6502 and its memory, on a shared clock.
type Machine struct {
	CPU     *hw.CPU
	Clock   *hw.Clock
	Mem     *hwio.Table
	RAM     []byte
	Console *Console // nil if disabled

	run RunConfig

	// These are accessed concurrently by the emulation loop and the remote
	// controls.
	quit   atomic.Bool
	paused atomic.Bool
	reset  atomic.Bool

	mu        sync.Mutex
	statePath string
}

// Launch builds the machine described by cfg: maps RAM, program images and
// the console, connects the buses and resets the CPU. It doesn't start the
// emulation loop, call Run for that. conout receives the console output.
func Launch(cfg Config, conout io.Writer) (*Machine, error) {
	if err := cfg.Check(); err != nil {
		return nil, err
	}

	segs := make([]segment, 0, len(cfg.Images))
	for _, img := range cfg.Images {
		seg, err := loadImage(img)
		if err != nil {
			return nil, fmt.Errorf("failed to load image: %w", err)
		}
		segs = append(segs, seg)
	}

	m := &Machine{
		Clock: hw.NewClock(),
		Mem:   hwio.NewTable("cpu"),
		RAM:   make([]byte, cfg.Memory.RAMSize),
		run:   cfg.Run,
	}
	m.Mem.Strict = cfg.Memory.Strict
	if cfg.Console.Enabled {
		m.Console = NewConsole(conout)
	}
	if err := m.mapMemory(cfg.Console.Addr, segs); err != nil {
		return nil, err
	}

	addr := hwio.NewBus("addr", 16)
	data := hwio.NewBus("data", 8)
	rw := &hwio.Line{}
	m.Mem.Connect(addr, data, rw)

	cpucfg := hw.CPUConfig{
		Clock:          m.Clock,
		AddrBus:        addr,
		DataBus:        data,
		RW:             rw,
		Peeker:         m.Mem,
		PC:             cfg.CPU.PC,
		Decimal:        cfg.CPU.Decimal,
		DecodeFallback: cfg.CPU.DecodeFallback,
	}
	// CPU execution trace setup.
	if cfg.TraceOut != nil {
		cpucfg.Trace = cfg.TraceOut
	}

	cpu, err := hw.NewCPU(cpucfg)
	if err != nil {
		return nil, fmt.Errorf("power up failed: %w", err)
	}
	m.CPU = cpu

	log.ModEmu.InfoZ("machine ready").
		Int("ram", len(m.RAM)).
		Int("images", len(segs)).
		Hex16("pc", cpu.PC).
		End()
	return m, nil
}

type region struct {
	name       string
	begin, end int
}

// mapMemory maps RAM over the whole address space it covers, then ROM
// segments and the console, which take precedence over the RAM they overlap.
// Images loaded into RAM must not be hidden by them.
func (m *Machine) mapMemory(conaddr uint16, segs []segment) error {
	var mapped []region
	claim := func(name string, begin, end int) error {
		if end > 0xFFFF {
			return fmt.Errorf("%s [$%04X-$%X] exceeds address space", name, begin, end)
		}
		for _, r := range mapped {
			if begin <= r.end && r.begin <= end {
				return fmt.Errorf("%s [$%04X-$%04X] overlaps %s [$%04X-$%04X]", name, begin, end, r.name, r.begin, r.end)
			}
		}
		mapped = append(mapped, region{name, begin, end})
		return nil
	}
	// shadow removes RAM from [begin, end].
	shadow := func(begin, end int) {
		if begin < len(m.RAM) {
			m.Mem.Unmap(uint16(begin), uint16(min(end, len(m.RAM)-1)))
		}
	}

	m.Mem.MapMemorySlice(0x0000, uint16(len(m.RAM)-1), m.RAM, false)

	for _, seg := range segs {
		if !seg.rom {
			continue
		}
		if err := claim(seg.name, int(seg.addr), seg.end()); err != nil {
			return err
		}
		flags := hwio.MemFlagReadOnly
		if !m.Mem.Strict {
			// ROM writes are expected and ignored.
			flags |= hwio.MemFlagNoROLog
		}
		shadow(int(seg.addr), seg.end())
		m.Mem.MapMem(seg.addr, &hwio.Mem{
			Name:  seg.name,
			Data:  pow2(seg.data),
			VSize: seg.vsize,
			Flags: flags,
		})
	}

	if m.Console != nil {
		end := int(conaddr) + consoleSize - 1
		if err := claim("console", int(conaddr), end); err != nil {
			return err
		}
		shadow(int(conaddr), end)
		for _, dev := range m.Console.devices(conaddr) {
			m.Mem.MapDevice(dev.addr, dev.Device)
		}
	}

	for _, seg := range segs {
		if seg.rom {
			continue
		}
		if seg.end() >= len(m.RAM) {
			return fmt.Errorf("image %s [$%04X-$%04X] doesn't fit in RAM", seg.name, seg.addr, seg.end())
		}
		for _, r := range mapped {
			if int(seg.addr) <= r.end && r.begin <= seg.end() {
				return fmt.Errorf("image %s [$%04X-$%04X] is hidden by %s [$%04X-$%04X]", seg.name, seg.addr, seg.end(), r.name, r.begin, r.end)
			}
		}
		copy(m.RAM[seg.addr:], seg.data)
	}
	return nil
}

// Run runs the machine until ncycles cycles have elapsed (0 means no limit),
// ctx is done, the CPU halts, a trap is detected or Stop is called.
func (m *Machine) Run(ctx context.Context, ncycles uint64) (StopReason, error) {
	reason, err := m.loop(ctx, ncycles)
	log.ModEmu.InfoZ("Emulation loop exited").
		Stringer("reason", reason).
		Uint("cycles", m.Clock.Cycles()).
		Hex16("pc", m.CPU.PC).
		End()

	if path := m.stateFile(); path != "" {
		m.save(path)
	}
	return reason, err
}

func (m *Machine) loop(ctx context.Context, ncycles uint64) (StopReason, error) {
	const ctxCheck = 1024

	var ran uint64
	for {
		if m.quit.Load() {
			return StopQuit, nil
		}
		// Handle pause.
		if m.paused.Load() {
			// Don't burn cpu while paused.
			select {
			case <-ctx.Done():
				return StopContext, nil
			case <-time.After(10 * time.Millisecond):
			}
			continue
		}
		if ran%ctxCheck == 0 && ctx.Err() != nil {
			return StopContext, nil
		}
		if err := m.handleReset(); err != nil {
			return StopError, err
		}
		if ncycles != 0 && ran >= ncycles {
			return StopBudget, nil
		}

		if err := m.Clock.Tick(); err != nil {
			if errors.Is(err, hw.ErrHalted) {
				return StopHalted, nil
			}
			return StopError, err
		}
		ran++

		if m.run.StopOnTrap {
			if pc, ok := m.Trap(); ok {
				log.ModEmu.InfoZ("trap detected").Hex16("pc", pc).End()
				return StopTrap, nil
			}
		}
	}
}

// Trap returns the address of the instruction the CPU just completed if that
// instruction jumped or branched to itself.
func (m *Machine) Trap() (uint16, bool) {
	if !m.CPU.AtBoundary() {
		return 0, false
	}
	d, pc := m.CPU.Current()
	if (d.Inst == hw.JMP || d.Mode == hw.Relative) && m.CPU.PC == pc {
		return pc, true
	}
	return 0, false
}

// SaveSnapshot serializes the CPU and RAM state.
func (m *Machine) SaveSnapshot() []byte {
	state := snapshot.Machine{
		Version: snapshot.Version,
		CPU:     *m.CPU.State(),
		RAM:     bytes.Clone(m.RAM),
	}
	return state.Encode()
}

// LoadSnapshot restores a state saved with SaveSnapshot. The machine must
// have the same RAM size. ROM images are not part of the snapshot.
func (m *Machine) LoadSnapshot(buf []byte) error {
	state, err := snapshot.Decode(buf)
	if err != nil {
		return err
	}
	if len(state.RAM) != len(m.RAM) {
		return fmt.Errorf("snapshot: RAM size mismatch: got %d bytes, want %d", len(state.RAM), len(m.RAM))
	}
	if err := m.CPU.SetState(&state.CPU); err != nil {
		return err
	}
	copy(m.RAM, state.RAM)
	return nil
}

func (m *Machine) save(path string) {
	state := m.SaveSnapshot()
	if err := os.WriteFile(path, state, 0644); err != nil {
		log.ModEmu.WarnZ("Failed to save state").String("path", path).Error("err", err).End()
		return
	}
	log.ModEmu.InfoZ("state saved").String("path", path).Int("size", len(state)).End()
}

// SetStatePath sets the file the machine state is saved to when Run returns.
func (m *Machine) SetStatePath(path string) {
	m.mu.Lock()
	m.statePath = path
	m.mu.Unlock()
}

func (m *Machine) stateFile() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.statePath
}

// SetPause, Stop and Reset allow to control the emulation loop in a
// concurrent-safe way.

func (m *Machine) SetPause(pause bool) { m.paused.CompareAndSwap(!pause, pause) }
func (m *Machine) Reset()              { m.reset.Store(true) }
func (m *Machine) Stop()               { m.quit.Store(true) }

func (m *Machine) handleReset() error {
	if !m.reset.CompareAndSwap(true, false) {
		return nil
	}
	log.ModEmu.InfoZ("Performing reset").End()
	return m.CPU.Reset()
}
