package debugger

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestCallStack(t *testing.T) {
	t.Run("simple", func(t *testing.T) {
		var cstack callStack
		cstack.push(0xC7C2, 0xC7E7, 0xC7C5, frameCall)
		cstack.push(0xC801, 0xCBAE, 0xC804, frameCall)

		fi := cstack.build(0xF099)
		want := []frameInfo{
			{"CBAE", "$F099"},
			{"C7E7", "$C801"},
			{"[bottom of stack]", "$C7C2"},
		}
		if diff := cmp.Diff(want, fi); diff != "" {
			t.Fatalf("callstack differs (-want +got):\n%s", diff)
		}
	})

	t.Run("empty", func(t *testing.T) {
		var cstack callStack
		fi := cstack.build(0xF099)
		want := []frameInfo{
			{"[bottom of stack]", "$F099"},
		}
		if diff := cmp.Diff(want, fi); diff != "" {
			t.Fatalf("callstack differs (-want +got):\n%s", diff)
		}
	})

	t.Run("interrupt", func(t *testing.T) {
		var cstack callStack
		cstack.push(0x0200, 0x0300, 0x0203, frameCall)
		cstack.push(0x0305, 0x8000, 0x0307, frameNMI)

		fi := cstack.build(0x8004)
		want := []frameInfo{
			{"[nmi] $8000", "$8004"},
			{"0300", "$0305"},
			{"[bottom of stack]", "$0200"},
		}
		if diff := cmp.Diff(want, fi); diff != "" {
			t.Fatalf("callstack differs (-want +got):\n%s", diff)
		}
	})
}

func TestCallStackUnwind(t *testing.T) {
	frames := func() callStack {
		var cstack callStack
		cstack.push(0x0200, 0x0300, 0x0203, frameCall)
		cstack.push(0x0310, 0x0400, 0x0313, frameCall)
		cstack.push(0x0410, 0x0500, 0x0413, frameCall)
		return cstack
	}

	tests := []struct {
		name    string
		pc      uint16
		want    []uint16 // entry points left, outermost first
		matched bool
	}{
		{name: "innermost", pc: 0x0413, want: []uint16{0x0300, 0x0400}, matched: true},
		{name: "discarded frames", pc: 0x0203, want: []uint16{}, matched: true},
		{name: "skip one frame", pc: 0x0313, want: []uint16{0x0300}, matched: true},
		{name: "indirect jump", pc: 0x1234, want: []uint16{0x0300, 0x0400, 0x0500}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cstack := frames()
			if got := cstack.unwind(tt.pc); got != tt.matched {
				t.Errorf("unwind($%04X) = %t, want %t", tt.pc, got, tt.matched)
			}
			got := []uint16{}
			for _, f := range cstack {
				got = append(got, f.entry)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("frames differ (-want +got):\n%s", diff)
			}
		})
	}
}
