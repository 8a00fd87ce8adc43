package hw

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

type recTicker struct {
	name  string
	calls *[]string
	err   error
}

func (r recTicker) OnTick() error {
	*r.calls = append(*r.calls, r.name)
	return r.err
}

func TestClock(t *testing.T) {
	var calls []string
	clk := NewClock()
	clk.Attach(recTicker{name: "a", calls: &calls})
	clk.Attach(recTicker{name: "b", calls: &calls})

	if err := clk.TickN(2); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"a", "b", "a", "b"}, calls); diff != "" {
		t.Errorf("tick order mismatch (-want +got):\n%s", diff)
	}
	if clk.Cycles() != 2 {
		t.Errorf("got %d cycles, want 2", clk.Cycles())
	}
}

func TestClockStopsOnError(t *testing.T) {
	errBoom := errors.New("boom")

	var calls []string
	clk := NewClock()
	clk.Attach(recTicker{name: "a", calls: &calls, err: errBoom})
	clk.Attach(recTicker{name: "b", calls: &calls})

	if err := clk.TickN(10); !errors.Is(err, errBoom) {
		t.Fatalf("TickN() = %v, want %v", err, errBoom)
	}
	if diff := cmp.Diff([]string{"a"}, calls); diff != "" {
		t.Errorf("tick calls mismatch (-want +got):\n%s", diff)
	}
	if clk.Cycles() != 0 {
		t.Errorf("got %d cycles, want 0", clk.Cycles())
	}
}

// The CPU ticks n times for Tick(n), whatever the instruction boundaries.
func TestCPUTick(t *testing.T) {
	// LDA #$01; LDA $0200; NOP
	sys := loadCPUWith(t, `0600: a9 01 ad 00 02 ea`, withPC(0x0600))

	if err := sys.Tick(3); err != nil {
		t.Fatal(err)
	}
	if sys.Cycles != 3 {
		t.Errorf("got %d cycles, want 3", sys.Cycles)
	}
	if sys.AtBoundary() {
		t.Errorf("LDA abs should still be in flight")
	}
	d, pc := sys.Current()
	if d.Inst != LDA || d.Mode != Absolute || pc != 0x0602 {
		t.Errorf("current = %s %s at $%04X, want LDA absolute at $0602", d.Inst, d.Mode, pc)
	}
	if err := sys.Tick(3); err != nil {
		t.Fatal(err)
	}
	if !sys.AtBoundary() || sys.PC != 0x0605 {
		t.Errorf("got PC=$%04X, want $0605 at boundary", sys.PC)
	}
}

// A failed tick isn't counted, neither by the clock nor by the CPU.
func TestCyclesAfterError(t *testing.T) {
	// NOP; unmapped $8B
	sys := loadCPUWith(t, `0600: ea 8b`, withPC(0x0600), withStrictDecode())

	err := sys.clock.TickN(10)
	var derr *DecodeError
	if !errors.As(err, &derr) {
		t.Fatalf("TickN() = %v, want a DecodeError", err)
	}
	if sys.clock.Cycles() != 2 {
		t.Errorf("clock: got %d cycles, want 2", sys.clock.Cycles())
	}
	if sys.Cycles != int64(sys.clock.Cycles()) {
		t.Errorf("cpu: got %d cycles, want %d", sys.Cycles, sys.clock.Cycles())
	}
	if err := sys.OnTick(); err == nil {
		t.Fatal("decoding $8B again should fail")
	}
	if sys.Cycles != 2 {
		t.Errorf("cpu: got %d cycles after a second failure, want 2", sys.Cycles)
	}
}
