package hw

import (
	"bufio"
	"bytes"
	"encoding/hex"
	"strconv"
	"strings"
	"testing"

	"sixtyfive/hw/hwio"
)

type dumpline struct {
	off   uint16
	bytes []byte
}

// loadDump parses an hex memory dump, one line per memory block, as in:
//
//	0600: a9 42 8d 00 02
//	# comment
//	FFFC: 00 06
func loadDump(tb testing.TB, dump string) []dumpline {
	tb.Helper()

	var lines []dumpline
	scan := bufio.NewScanner(strings.NewReader(dump))
	for scan.Scan() {
		line := strings.TrimSpace(scan.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		off, octets, ok := strings.Cut(line, ":")
		if !ok {
			tb.Fatalf("malformed line: %s", line)
		}

		ioff, err := strconv.ParseUint(off, 16, 16)
		if err != nil {
			tb.Fatalf("malformed offset %s: %s", off, err)
		}
		buf, err := hex.DecodeString(strings.ReplaceAll(octets, " ", ""))
		if err != nil {
			tb.Fatalf("hex decode: %s", err)
		}
		lines = append(lines, dumpline{off: uint16(ioff), bytes: buf})
	}
	if scan.Err() != nil {
		tb.Fatalf("scan error: %s", scan.Err())
	}

	return lines
}

// testSystem is a CPU connected to 64KB of RAM.
type testSystem struct {
	*CPU
	clock *Clock
	mem   *hwio.Table
	ram   []byte
}

type cpuOption func(*CPUConfig)

func withPC(pc uint16) cpuOption {
	return func(cfg *CPUConfig) { cfg.PC = &pc }
}

func withDecimal() cpuOption {
	return func(cfg *CPUConfig) { cfg.Decimal = true }
}

func withStrictDecode() cpuOption {
	return func(cfg *CPUConfig) { cfg.DecodeFallback = false }
}

// loadCPUWith creates a CPU with a memory dump loaded into RAM. Without a PC
// override, the dump must contain the reset vector.
func loadCPUWith(tb testing.TB, dump string, opts ...cpuOption) *testSystem {
	tb.Helper()

	sys := &testSystem{
		clock: NewClock(),
		mem:   hwio.NewTable("ram"),
		ram:   make([]byte, 0x10000),
	}
	sys.mem.MapMemorySlice(0x0000, 0xFFFF, sys.ram, false)
	for _, line := range loadDump(tb, dump) {
		copy(sys.ram[line.off:], line.bytes)
	}

	addr := hwio.NewBus("addr", 16)
	data := hwio.NewBus("data", 8)
	rw := &hwio.Line{}
	sys.mem.Connect(addr, data, rw)

	cfg := CPUConfig{
		Clock:          sys.clock,
		AddrBus:        addr,
		DataBus:        data,
		RW:             rw,
		Peeker:         sys.mem,
		DecodeFallback: true,
	}
	if testing.Verbose() {
		cfg.Trace = tbwriter{tb}
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	cpu, err := NewCPU(cfg)
	if err != nil {
		tb.Fatalf("NewCPU: %v", err)
	}
	sys.CPU = cpu
	return sys
}

// runAndCheckState runs the CPU for ncycles then checks the given states,
// passed as name/value pairs.
func runAndCheckState(t *testing.T, sys *testSystem, ncycles uint64, states ...any) {
	t.Helper()

	if len(states)%2 != 0 {
		panic("odd number of states")
	}

	if err := sys.clock.TickN(ncycles); err != nil {
		t.Fatalf("after %d cycles: %v", sys.clock.Cycles(), err)
	}
	checkState(t, sys, states...)
}

func checkState(t *testing.T, sys *testSystem, states ...any) {
	t.Helper()

	checkbool := func(name string, got bool, want int) {
		t.Helper()
		if got != (want != 0) {
			t.Errorf("got %s=%t, want %d", name, got, want)
		}
	}
	checkuint8 := func(name string, got uint8, want int) {
		t.Helper()
		if got != uint8(want) {
			t.Errorf("got %s=$%02X, want $%02X", name, got, want)
		}
	}

	cpu := sys.CPU
	for i := 0; i < len(states); i += 2 {
		s := states[i].(string)
		switch {
		case s == "A":
			checkuint8("A", cpu.A, states[i+1].(int))
		case s == "X":
			checkuint8("X", cpu.X, states[i+1].(int))
		case s == "Y":
			checkuint8("Y", cpu.Y, states[i+1].(int))
		case s == "SP":
			checkuint8("SP", cpu.SP, states[i+1].(int))
		case s == "PC":
			if got, want := cpu.PC, uint16(states[i+1].(int)); got != want {
				t.Errorf("got PC=$%04X, want $%04X", got, want)
			}
		case s == "P":
			if got, want := uint8(cpu.P), uint8(states[i+1].(int)); got != want {
				t.Errorf("got P=$%02X(%s), want $%02X(%s)", got, P(got), want, P(want))
			}
		case len(s) > 1 && s[0] == 'P':
			bit := states[i+1].(int)
			for j := 1; j < len(s); j++ {
				switch s[j] {
				case 'n':
					checkbool("Pn", cpu.P.Negative(), bit)
				case 'v':
					checkbool("Pv", cpu.P.Overflow(), bit)
				case 'b':
					checkbool("Pb", cpu.P.Break(), bit)
				case 'd':
					checkbool("Pd", cpu.P.Decimal(), bit)
				case 'i':
					checkbool("Pi", cpu.P.IntDisable(), bit)
				case 'z':
					checkbool("Pz", cpu.P.Zero(), bit)
				case 'c':
					checkbool("Pc", cpu.P.Carry(), bit)
				default:
					panic("unknown P bit: " + string(s[j]))
				}
			}
		case s == "mem":
			for _, line := range loadDump(t, states[i+1].(string)) {
				got := sys.ram[int(line.off) : int(line.off)+len(line.bytes)]
				if !bytes.Equal(got, line.bytes) {
					t.Errorf("mem mismatch at $%04X\ngot:  % x\nwant: % x", line.off, got, line.bytes)
				}
			}

		default:
			panic("unknown state: " + s)
		}
	}

	if t.Failed() {
		t.FailNow()
	}
}

// stepCycles runs the next instruction and returns the number of cycles it
// took.
func stepCycles(t *testing.T, sys *testSystem) int64 {
	t.Helper()

	before := sys.Cycles
	if err := sys.Step(); err != nil {
		t.Fatalf("step at $%04X: %v", sys.PC, err)
	}
	return sys.Cycles - before
}

type tbwriter struct {
	testing.TB
}

func (t tbwriter) Write(p []byte) (int, error) {
	t.TB.Helper()
	t.TB.Log(string(bytes.TrimSpace((p))))
	return len(p), nil
}
