package hwio

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidWidth = errors.New("value exceeds bus width")
	ErrUnmapped     = errors.New("unmapped address")
	ErrReadOnly     = errors.New("write to read-only memory")
)

// A WidthError is returned when a value written on a bus doesn't fit in the
// bus width.
type WidthError struct {
	Bus   string
	Width uint
	Value uint16
}

func (e *WidthError) Error() string {
	return fmt.Sprintf("%s bus: value 0x%x exceeds %d bits", e.Bus, e.Value, e.Width)
}

func (e *WidthError) Unwrap() error { return ErrInvalidWidth }

// Bus is a latch of a fixed width, 8 or 16 bits. Writing a value on the bus
// latches it and notifies the attached devices, which can in turn drive
// other buses.
type Bus struct {
	Name string

	width uint
	mask  uint16
	val   uint16
	wcbs  []func(val uint16) error
}

// NewBus returns a bus of the given width. It panics if width is neither 8
// nor 16.
func NewBus(name string, width uint) *Bus {
	var mask uint16
	switch width {
	case 8:
		mask = 0xFF
	case 16:
		mask = 0xFFFF
	default:
		panic(fmt.Sprintf("hwio: unsupported bus width %d", width))
	}
	return &Bus{Name: name, width: width, mask: mask}
}

func (b *Bus) Width() uint { return b.width }

// Attach registers a callback invoked after each write on the bus.
func (b *Bus) Attach(wcb func(val uint16) error) {
	b.wcbs = append(b.wcbs, wcb)
}

// Write latches val on the bus and notifies attached devices. The first
// device error is returned and stops the notification.
func (b *Bus) Write(val uint16) error {
	if val&^b.mask != 0 {
		return &WidthError{Bus: b.Name, Width: b.width, Value: val}
	}
	b.val = val
	for _, wcb := range b.wcbs {
		if err := wcb(val); err != nil {
			return err
		}
	}
	return nil
}

// Read returns the value currently latched on the bus.
func (b *Bus) Read() uint16 {
	return b.val
}
