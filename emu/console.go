package emu

import (
	"io"
	"sync"

	"sixtyfive/emu/log"
	"sixtyfive/hw/hwio"
)

// Console registers, relative to the console base address.
const (
	ConsoleOut    = 0 // write: output a character
	ConsoleIn     = 1 // read: pop an input character, 0 if none
	ConsoleStatus = 2 // read: 1 if input is pending
	consoleSize   = 3
)

// Console is a memory-mapped character device.
type Console struct {
	out io.Writer

	mu sync.Mutex
	in []byte
}

func NewConsole(out io.Writer) *Console {
	return &Console{out: out}
}

// Feed queues input characters. It's safe to call while the machine runs.
func (c *Console) Feed(p []byte) {
	c.mu.Lock()
	c.in = append(c.in, p...)
	c.mu.Unlock()
}

func (c *Console) pending() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.in) != 0
}

func (c *Console) pop(peek bool) uint8 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.in) == 0 {
		return 0
	}
	v := c.in[0]
	if !peek {
		c.in = c.in[1:]
	}
	return v
}

func (c *Console) read(reg uint16, peek bool) uint8 {
	switch reg {
	case ConsoleIn:
		return c.pop(peek)
	case ConsoleStatus:
		if c.pending() {
			return 1
		}
	}
	return 0
}

func (c *Console) write(val uint8) {
	if _, err := c.out.Write([]byte{val}); err != nil {
		log.ModEmu.WarnZ("console write failed").Error("err", err).End()
	}
}

type mappedDevice struct {
	addr uint16
	*hwio.Device
}

// devices returns the write-only output register and the read-only input
// registers, mapped from base.
func (c *Console) devices(base uint16) []mappedDevice {
	return []mappedDevice{
		{
			addr: base + ConsoleOut,
			Device: &hwio.Device{
				Name:    "console out",
				Size:    1,
				Flags:   hwio.WriteOnlyFlag,
				WriteCb: func(_ uint16, val uint8) { c.write(val) },
			},
		},
		{
			addr: base + ConsoleIn,
			Device: &hwio.Device{
				Name:   "console in",
				Size:   consoleSize - ConsoleIn,
				Flags:  hwio.ReadOnlyFlag,
				ReadCb: func(addr uint16) uint8 { return c.read(addr-base, false) },
				PeekCb: func(addr uint16) uint8 { return c.read(addr-base, true) },
			},
		},
	}
}
