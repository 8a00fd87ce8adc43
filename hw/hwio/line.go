package hwio

// Line is the read/write direction signal. The bus master sets it right
// before each transaction, memory devices sample it to know whether to drive
// or to latch the data bus.
type Line struct {
	read bool
}

func (l *Line) Set(isRead bool) { l.read = isRead }
func (l *Line) IsRead() bool    { return l.read }

func (l *Line) String() string {
	if l.read {
		return "R"
	}
	return "W"
}
