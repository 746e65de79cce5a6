package bus

import (
	"errors"
	"fmt"

	"golang.org/x/exp/slices"
)

var (
	ErrUnmappedAddress = errors.New("unmapped address")
	ErrNotWritable     = errors.New("device is not writable")
	ErrNotReadable     = errors.New("device is not readable")
	ErrOverlap         = errors.New("range overlaps an existing mapping")
	ErrInvalidRange    = errors.New("invalid range")
)

// Range is an inclusive span of the 16 bit address space.
type Range struct {
	Start uint16
	End   uint16
}

func (r Range) Contains(addr uint16) bool {
	return addr >= r.Start && addr <= r.End
}

func (r Range) Overlaps(o Range) bool {
	return r.Start <= o.End && o.Start <= r.End
}

// Size is the number of addresses covered by the range.
func (r Range) Size() int {
	return int(r.End) - int(r.Start) + 1
}

func (r Range) String() string {
	return fmt.Sprintf("$%04X-$%04X", r.Start, r.End)
}

type mapping struct {
	r   Range
	dev Device
}

// Bus routes CPU accesses to the device owning the address.
//
// A typical 6502 machine map:
//
//	$0000-$00FF: zero page (RAM)
//	$0100-$01FF: hardware stack (RAM)
//	$0200-$BFFF: general RAM and memory mapped peripherals
//	$C000-$FFFF: ROM, including the NMI/RESET/IRQ vectors at $FFFA-$FFFF
//
// Mappings are kept in registration order, which is also the reset order.
type Bus struct {
	mappings []mapping
}

func New() *Bus {
	return &Bus{}
}

// Register maps dev at r. Overlapping ranges are rejected immediately.
func (b *Bus) Register(r Range, dev Device) error {
	if r.End < r.Start {
		return fmt.Errorf("%w: %s", ErrInvalidRange, r)
	}
	if dev == nil {
		return fmt.Errorf("%w: nil device at %s", ErrInvalidRange, r)
	}
	if i := slices.IndexFunc(b.mappings, func(m mapping) bool { return m.r.Overlaps(r) }); i >= 0 {
		return fmt.Errorf("%w: %s and %s", ErrOverlap, r, b.mappings[i].r)
	}
	b.mappings = append(b.mappings, mapping{r: r, dev: dev})
	return nil
}

func (b *Bus) lookup(addr uint16) (mapping, uint16, error) {
	i := slices.IndexFunc(b.mappings, func(m mapping) bool { return m.r.Contains(addr) })
	if i < 0 {
		return mapping{}, 0, fmt.Errorf("%w: $%04X", ErrUnmappedAddress, addr)
	}
	m := b.mappings[i]
	return m, addr - m.r.Start, nil
}

func (b *Bus) Read8(addr uint16) (uint8, error) {
	m, offset, err := b.lookup(addr)
	if err != nil {
		return 0, err
	}
	if !m.dev.Caps().Has(CapRead) {
		return 0, fmt.Errorf("%w: $%04X", ErrNotReadable, addr)
	}
	return m.dev.Read8(offset)
}

func (b *Bus) Write8(addr uint16, data uint8) error {
	m, offset, err := b.lookup(addr)
	if err != nil {
		return err
	}
	w, ok := m.dev.(Writer)
	if !ok || !m.dev.Caps().Has(CapWrite) {
		return fmt.Errorf("%w: $%04X", ErrNotWritable, addr)
	}
	return w.Write8(offset, data)
}

// Read16 reads a little endian word. The high byte address wraps at $FFFF.
func (b *Bus) Read16(addr uint16) (uint16, error) {
	lo, err := b.Read8(addr)
	if err != nil {
		return 0, err
	}
	hi, err := b.Read8(addr + 1)
	if err != nil {
		return 0, err
	}
	return uint16(lo) | uint16(hi)<<8, nil
}

func (b *Bus) Write16(addr uint16, data uint16) error {
	if err := b.Write8(addr, uint8(data)); err != nil {
		return err
	}
	return b.Write8(addr+1, uint8(data>>8))
}

// DebugRead8 reads through the side effect free path when the device
// offers one, otherwise it falls back to a normal read.
func (b *Bus) DebugRead8(addr uint16) (uint8, error) {
	m, offset, err := b.lookup(addr)
	if err != nil {
		return 0, err
	}
	if r, ok := m.dev.(DebugReader); ok && m.dev.Caps().Has(CapDebugRead) {
		return r.DebugRead8(offset)
	}
	if !m.dev.Caps().Has(CapRead) {
		return 0, fmt.Errorf("%w: $%04X", ErrNotReadable, addr)
	}
	return m.dev.Read8(offset)
}

func debugWritable(dev Device) bool {
	if _, ok := dev.(DebugWriter); ok && dev.Caps().Has(CapDebugWrite) {
		return true
	}
	_, ok := dev.(Writer)
	return ok && dev.Caps().Has(CapWrite)
}

// DebugWrite8 is the write counterpart of DebugRead8.
func (b *Bus) DebugWrite8(addr uint16, data uint8) error {
	m, offset, err := b.lookup(addr)
	if err != nil {
		return err
	}
	if w, ok := m.dev.(DebugWriter); ok && m.dev.Caps().Has(CapDebugWrite) {
		return w.DebugWrite8(offset, data)
	}
	w, ok := m.dev.(Writer)
	if !ok || !m.dev.Caps().Has(CapWrite) {
		return fmt.Errorf("%w: $%04X", ErrNotWritable, addr)
	}
	return w.Write8(offset, data)
}

// Load copies data to addr through the debug path, so read-only
// devices can be filled before a run. The whole span is checked first:
// an image running past $FFFF or over an unwritable address leaves the
// bus untouched.
func (b *Bus) Load(addr uint16, data []uint8) error {
	if int(addr)+len(data) > 0x10000 {
		return fmt.Errorf("%w: %d bytes at $%04X", ErrInvalidRange, len(data), addr)
	}
	for i := range data {
		a := addr + uint16(i)
		m, _, err := b.lookup(a)
		if err != nil {
			return err
		}
		if !debugWritable(m.dev) {
			return fmt.Errorf("%w: $%04X", ErrNotWritable, a)
		}
	}
	for i, v := range data {
		if err := b.DebugWrite8(addr+uint16(i), v); err != nil {
			return err
		}
	}
	return nil
}

// Reset resets every device in registration order and stops at the
// first failure. The mapping table is left as is.
func (b *Bus) Reset() error {
	for _, m := range b.mappings {
		if err := m.dev.Reset(); err != nil {
			return fmt.Errorf("bus: reset %s: %w", m.r, err)
		}
	}
	return nil
}

// Devices returns the mapped devices advertising caps, in registration order.
func (b *Bus) Devices(caps Caps) []Device {
	var devs []Device
	for _, m := range b.mappings {
		if m.dev.Caps().Has(caps) {
			devs = append(devs, m.dev)
		}
	}
	return devs
}

// Ranges returns the mapped ranges in registration order.
func (b *Bus) Ranges() []Range {
	rs := make([]Range, 0, len(b.mappings))
	for _, m := range b.mappings {
		rs = append(rs, m.r)
	}
	return rs
}
