package memory

import (
	"fmt"

	"github.com/nevisdale/six502/internal/bus"
)

// ROM is read-only memory. The CPU can't write to it, a debugger can.
type ROM struct {
	mem *Memory
}

// NewROM creates a ROM holding a copy of image.
func NewROM(image []uint8) (*ROM, error) {
	mem, err := New(len(image), 0)
	if err != nil {
		return nil, err
	}
	copy(mem.data, image)
	return &ROM{mem: mem}, nil
}

func (r *ROM) Size() int {
	return r.mem.Size()
}

func (r *ROM) Read8(offset uint16) (uint8, error) {
	return r.mem.Read8(offset)
}

// Write8 always fails. ROM doesn't advertise bus.CapWrite, so the bus
// never calls it; it exists for direct users.
func (r *ROM) Write8(offset uint16, _ uint8) error {
	return fmt.Errorf("%w: $%04X", ErrReadOnly, offset)
}

func (r *ROM) DebugRead8(offset uint16) (uint8, error) {
	return r.mem.Read8(offset)
}

func (r *ROM) DebugWrite8(offset uint16, data uint8) error {
	return r.mem.Write8(offset, data)
}

func (r *ROM) Reset() error {
	return nil
}

func (r *ROM) Caps() bus.Caps {
	return bus.CapRead | bus.CapDebugRead | bus.CapDebugWrite
}
