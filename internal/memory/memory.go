package memory

import (
	"errors"
	"fmt"

	"github.com/nevisdale/six502/internal/bus"
)

// Size64K covers the whole 6502 address space.
const Size64K = 0x10000

var (
	ErrAddressOutOfRange = errors.New("address out of range")
	ErrInvalidSize       = errors.New("invalid memory size")
	ErrReadOnly          = errors.New("memory is read-only")
)

type Option func(*Memory)

// WithWraparound makes addresses beyond the capacity wrap modulo the size
// instead of failing.
func WithWraparound() Option {
	return func(m *Memory) {
		m.wrap = true
	}
}

// Memory is a flat byte array. It can be used directly by the CPU or
// mapped into a bus.
type Memory struct {
	data []uint8
	fill uint8
	wrap bool
}

// New creates size bytes of memory with every cell set to fill.
func New(size int, fill uint8, opts ...Option) (*Memory, error) {
	if size < 1 || size > Size64K {
		return nil, fmt.Errorf("%w: %d", ErrInvalidSize, size)
	}
	m := &Memory{
		data: make([]uint8, size),
		fill: fill,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.Clear()
	return m, nil
}

func (m *Memory) Size() int {
	return len(m.data)
}

// Clear sets every cell back to the fill value.
func (m *Memory) Clear() {
	for i := range m.data {
		m.data[i] = m.fill
	}
}

// index checks addr against the capacity. addr is an int because the
// high byte of a word access may sit one past $FFFF.
func (m *Memory) index(addr int) (int, error) {
	if addr < len(m.data) {
		return addr, nil
	}
	if m.wrap {
		return addr % len(m.data), nil
	}
	return 0, fmt.Errorf("%w: $%04X (size $%X)", ErrAddressOutOfRange, addr, len(m.data))
}

func (m *Memory) Read8(addr uint16) (uint8, error) {
	i, err := m.index(int(addr))
	if err != nil {
		return 0, err
	}
	return m.data[i], nil
}

func (m *Memory) Write8(addr uint16, data uint8) error {
	i, err := m.index(int(addr))
	if err != nil {
		return err
	}
	m.data[i] = data
	return nil
}

// Read16 reads a little endian word: low byte at addr, high byte at addr+1.
func (m *Memory) Read16(addr uint16) (uint16, error) {
	lo, err := m.index(int(addr))
	if err != nil {
		return 0, err
	}
	hi, err := m.index(int(addr) + 1)
	if err != nil {
		return 0, err
	}
	return uint16(m.data[lo]) | uint16(m.data[hi])<<8, nil
}

func (m *Memory) Write16(addr uint16, data uint16) error {
	lo, err := m.index(int(addr))
	if err != nil {
		return err
	}
	hi, err := m.index(int(addr) + 1)
	if err != nil {
		return err
	}
	m.data[lo] = uint8(data)
	m.data[hi] = uint8(data >> 8)
	return nil
}

// Load copies an image to addr. Nothing is written if any byte would
// fall out of range.
func (m *Memory) Load(addr uint16, image []uint8) error {
	if len(image) == 0 {
		return nil
	}
	if _, err := m.index(int(addr) + len(image) - 1); err != nil {
		return err
	}
	for i, v := range image {
		j, _ := m.index(int(addr) + i)
		m.data[j] = v
	}
	return nil
}

func (m *Memory) DebugRead8(addr uint16) (uint8, error) {
	return m.Read8(addr)
}

func (m *Memory) DebugWrite8(addr uint16, data uint8) error {
	return m.Write8(addr, data)
}

// Reset leaves the contents alone; RAM survives a reset on real hardware.
func (m *Memory) Reset() error {
	return nil
}

func (m *Memory) Caps() bus.Caps {
	return bus.CapRead | bus.CapWrite | bus.CapDebugRead | bus.CapDebugWrite
}
