package bus

import "strings"

// Caps is the set of capabilities a device advertises to the bus.
// The bus never inspects the concrete type of a device; it asks.
type Caps uint8

const (
	CapRead       Caps = 1 << iota // Read8 serves normal CPU reads
	CapWrite                       // Write8 accepts normal CPU writes
	CapDebugRead                   // DebugRead8 reads without side effects
	CapDebugWrite                  // DebugWrite8 writes without side effects
	CapPeripheral                  // device is a peripheral interface chip
)

// Has reports whether all capabilities in want are present.
func (c Caps) Has(want Caps) bool {
	return c&want == want
}

func (c Caps) String() string {
	var sb strings.Builder
	for _, n := range []struct {
		cap  Caps
		name byte
	}{
		{CapRead, 'r'},
		{CapWrite, 'w'},
		{CapDebugRead, 'R'},
		{CapDebugWrite, 'W'},
		{CapPeripheral, 'p'},
	} {
		if c.Has(n.cap) {
			sb.WriteByte(n.name)
		} else {
			sb.WriteByte('-')
		}
	}
	return sb.String()
}

// Device is anything that can be mapped into the address space.
// Offsets passed to a device are local to its mapping.
type Device interface {
	Read8(offset uint16) (uint8, error)
	Reset() error
	Caps() Caps
}

// Writer is implemented by devices advertising CapWrite.
type Writer interface {
	Write8(offset uint16, data uint8) error
}

// DebugReader is implemented by devices advertising CapDebugRead.
type DebugReader interface {
	DebugRead8(offset uint16) (uint8, error)
}

// DebugWriter is implemented by devices advertising CapDebugWrite.
type DebugWriter interface {
	DebugWrite8(offset uint16, data uint8) error
}
