package hw

import "sixtyfive/emu/log"

// A Ticker is a component driven by the Clock, one call per cycle.
type Ticker interface {
	OnTick() error
}

// Clock drives the attached tickers. It doesn't run by itself, time only
// advances when Tick is called.
type Clock struct {
	tickers []Ticker
	cycles  uint64
}

func NewClock() *Clock {
	return &Clock{}
}

// Attach adds t to the list of tickers. Tickers are called in the order they
// have been attached.
func (c *Clock) Attach(t Ticker) {
	c.tickers = append(c.tickers, t)
}

// Cycles returns the number of completed cycles.
func (c *Clock) Cycles() uint64 {
	return c.cycles
}

// Tick runs a single cycle. The first ticker error aborts the cycle, which is
// then not counted.
func (c *Clock) Tick() error {
	for _, t := range c.tickers {
		if err := t.OnTick(); err != nil {
			log.ModClock.DebugZ("tick aborted").
				Uint("cycle", c.cycles).
				Error("err", err).
				End()
			return err
		}
	}
	c.cycles++
	return nil
}

// TickN runs n cycles, stopping at the first error.
func (c *Clock) TickN(n uint64) error {
	for range n {
		if err := c.Tick(); err != nil {
			return err
		}
	}
	return nil
}
