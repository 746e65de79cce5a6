package cpu

import "fmt"

type Flag uint8

const (
	FlagC Flag = 1 << iota // Carry
	FlagZ                  // Zero
	FlagI                  // Interrupt Disable
	FlagD                  // Decimal Mode
	FlagB                  // Break Command
	FlagU                  // Unused
	FlagV                  // Overflow
	FlagN                  // Negative
)

// Status is the processor status register P.
type Status uint8

func (s Status) Has(flag Flag) bool {
	return uint8(s)&uint8(flag) > 0
}

func (s *Status) Set(flag Flag) {
	*s |= Status(flag)
}

func (s *Status) Clear(flag Flag) {
	*s &= ^Status(flag)
}

// SetTo sets flag if v is true and clears it otherwise.
func (s *Status) SetTo(flag Flag, v bool) {
	if v {
		s.Set(flag)
		return
	}
	s.Clear(flag)
}

// Value is P as seen on the data bus. Bit 5 always reads as 1.
func (s Status) Value() uint8 {
	return uint8(s) | uint8(FlagU)
}

// Load replaces every flag with the bits of v.
func (s *Status) Load(v uint8) {
	*s = Status(v | uint8(FlagU))
}

// String renders the flags in bit order C,Z,I,D,B,O,N. A clear flag
// is shown as '-'.
func (s Status) String() string {
	const letters = "CZIDBON"
	flags := [...]Flag{FlagC, FlagZ, FlagI, FlagD, FlagB, FlagV, FlagN}
	out := []byte("-------")
	for i, f := range flags {
		if s.Has(f) {
			out[i] = letters[i]
		}
	}
	return string(out)
}

// Registers is the programmer visible state of the 6502.
type Registers struct {
	A  uint8
	X  uint8
	Y  uint8
	SP uint8 // offset into the stack page $0100-$01FF
	PC uint16
	P  Status
}

// setZN sets Zero if v is zero and Negative if bit 7 of v is set.
func (r *Registers) setZN(v uint8) {
	r.P.SetTo(FlagZ, v == 0)
	r.P.SetTo(FlagN, v&0x80 > 0)
}

func (r Registers) String() string {
	return fmt.Sprintf("PC:%04X A:%02X X:%02X Y:%02X SP:%02X P:%02X [%s]",
		r.PC, r.A, r.X, r.Y, r.SP, r.P.Value(), r.P)
}
