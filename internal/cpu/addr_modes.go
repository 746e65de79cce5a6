package cpu

import "fmt"

type AddrMode string

const (
	// Immediate: IMM
	//
	// The operand is the byte following the opcode.
	// Example: LDA #$10 loads $10 into A.
	AddrModeIMM AddrMode = "IMM"

	// Zero Page: ZP
	//
	// The operand lives in the first 256 bytes of memory.
	// Example: LDA $10 loads A from $0010.
	AddrModeZP AddrMode = "ZP"

	// Zero Page, X: ZPX
	//
	// X is added to the zero page address. The sum wraps inside page zero,
	// so $FF,X with X=2 reads $0001.
	AddrModeZPX AddrMode = "ZPX"

	// Zero Page, Y: ZPY
	//
	// Like ZPX with Y. Only LDX and STX (and a few undocumented opcodes) use it.
	AddrModeZPY AddrMode = "ZPY"

	// Absolute: ABS
	//
	// A full 16 bit little endian address follows the opcode.
	// Example: LDA $1234.
	AddrModeABS AddrMode = "ABS"

	// Absolute, X: ABSX
	//
	// X is added to the 16 bit address. If the high byte changes the
	// access crossed a page, which costs read instructions one cycle.
	AddrModeABSX AddrMode = "ABSX"

	// Absolute, Y: ABSY
	//
	// Like ABSX with Y.
	AddrModeABSY AddrMode = "ABSY"

	// Indirect: IND
	//
	// Only JMP uses it. The 16 bit operand points at the target address.
	// The NMOS 6502 never carries into the high byte of the pointer:
	// JMP ($10FF) reads the low byte from $10FF and the high byte from $1000.
	AddrModeIND AddrMode = "IND"

	// Indexed Indirect: INDX
	//
	// Format: ($nn,X). X is added to $nn inside page zero and the target
	// address is read from there. The pointer's high byte wraps in page
	// zero too.
	AddrModeINDX AddrMode = "INDX"

	// Indirect Indexed: INDY
	//
	// Format: ($nn),Y. The base address is read from page zero at $nn and
	// Y is added to it. Crossing a page costs read instructions one cycle.
	AddrModeINDY AddrMode = "INDY"

	// Relative: REL
	//
	// Branches only. The operand is a signed offset from the address of
	// the instruction following the branch.
	AddrModeREL AddrMode = "REL"

	// Accumulator: ACC
	//
	// The instruction works on A itself, e.g. ASL A.
	AddrModeACC AddrMode = "ACC"

	// Implied: IMP
	//
	// No operand, e.g. CLC.
	AddrModeIMP AddrMode = "IMP"
)

func addrModeFromString(s string) (AddrMode, error) {
	switch mode := AddrMode(s); mode {
	case AddrModeIMM, AddrModeZP, AddrModeZPX, AddrModeZPY,
		AddrModeABS, AddrModeABSX, AddrModeABSY,
		AddrModeIND, AddrModeINDX, AddrModeINDY,
		AddrModeREL, AddrModeACC, AddrModeIMP:
		return mode, nil
	}
	return AddrMode("UNKNOWN"), fmt.Errorf("address mode couldn't be parsed from %s", s)
}

// OperandSize is the number of operand bytes following the opcode.
func (mode AddrMode) OperandSize() int {
	switch mode {
	case AddrModeIMM, AddrModeZP, AddrModeZPX, AddrModeZPY,
		AddrModeINDX, AddrModeINDY, AddrModeREL:
		return 1
	case AddrModeABS, AddrModeABSX, AddrModeABSY, AddrModeIND:
		return 2
	}
	return 0
}

// Context is the operand of one instruction, resolved before the
// handler runs. Handlers read and write through it and never need to
// know whether the operand is a memory cell, the accumulator or an
// immediate byte.
type Context struct {
	mode        AddrMode
	addr        uint16
	pageCrossed bool
	extra       uint8

	read  func() (uint8, error)
	write func(uint8) error
}

func (ctx *Context) Mode() AddrMode {
	return ctx.mode
}

// Addr is the effective address, or the branch target for REL.
func (ctx *Context) Addr() uint16 {
	return ctx.addr
}

// PageCrossed reports whether indexing or branching crossed a page.
func (ctx *Context) PageCrossed() bool {
	return ctx.pageCrossed
}

func (ctx *Context) Read() (uint8, error) {
	if ctx.read == nil {
		return 0, fmt.Errorf("%w: no operand for %s", ErrReadOnlyOperand, ctx.mode)
	}
	return ctx.read()
}

// Write commits v to the location the operand was read from.
func (ctx *Context) Write(v uint8) error {
	if ctx.write == nil {
		return fmt.Errorf("%w: %s", ErrReadOnlyOperand, ctx.mode)
	}
	return ctx.write(v)
}

// AddCycles charges n cycles on top of the instruction's base count.
func (ctx *Context) AddCycles(n uint8) {
	ctx.extra += n
}

func (ctx *Context) ExtraCycles() uint8 {
	return ctx.extra
}

func isDiffPage(a, b uint16) bool {
	return a&0xff00 != b&0xff00
}

func (c *CPU) bindMemory(ctx *Context, addr uint16) {
	ctx.addr = addr
	ctx.read = func() (uint8, error) {
		return c.mem.Read8(addr)
	}
	ctx.write = func(v uint8) error {
		return c.mem.Write8(addr, v)
	}
}

func (c *CPU) fetch8() (uint8, error) {
	v, err := c.mem.Read8(c.Reg.PC)
	if err != nil {
		return 0, err
	}
	c.Reg.PC++
	return v, nil
}

func (c *CPU) fetch16() (uint16, error) {
	lo, err := c.fetch8()
	if err != nil {
		return 0, err
	}
	hi, err := c.fetch8()
	if err != nil {
		return 0, err
	}
	return uint16(lo) | uint16(hi)<<8, nil
}

// readZP16 reads a pointer from page zero. The high byte wraps to $00.
func (c *CPU) readZP16(zp uint8) (uint16, error) {
	lo, err := c.mem.Read8(uint16(zp))
	if err != nil {
		return 0, err
	}
	hi, err := c.mem.Read8(uint16(zp + 1))
	if err != nil {
		return 0, err
	}
	return uint16(lo) | uint16(hi)<<8, nil
}

// resolve consumes the operand bytes of the current instruction and
// builds its Context. Operand bytes and pointers are read here; the
// operand itself is only read when the handler asks for it.
func (c *CPU) resolve(mode AddrMode) (*Context, error) {
	ctx := &Context{mode: mode}

	switch mode {
	case AddrModeIMP:

	case AddrModeACC:
		ctx.read = func() (uint8, error) {
			return c.Reg.A, nil
		}
		ctx.write = func(v uint8) error {
			c.Reg.A = v
			return nil
		}

	case AddrModeIMM:
		addr := c.Reg.PC
		if _, err := c.fetch8(); err != nil {
			return nil, err
		}
		ctx.addr = addr
		ctx.read = func() (uint8, error) {
			return c.mem.Read8(addr)
		}

	case AddrModeZP, AddrModeZPX, AddrModeZPY:
		zp, err := c.fetch8()
		if err != nil {
			return nil, err
		}
		switch mode {
		case AddrModeZPX:
			zp += c.Reg.X
		case AddrModeZPY:
			zp += c.Reg.Y
		}
		c.bindMemory(ctx, uint16(zp))

	case AddrModeABS, AddrModeABSX, AddrModeABSY:
		base, err := c.fetch16()
		if err != nil {
			return nil, err
		}
		addr := base
		switch mode {
		case AddrModeABSX:
			addr += uint16(c.Reg.X)
		case AddrModeABSY:
			addr += uint16(c.Reg.Y)
		}
		ctx.pageCrossed = isDiffPage(base, addr)
		c.bindMemory(ctx, addr)

	case AddrModeIND:
		ptr, err := c.fetch16()
		if err != nil {
			return nil, err
		}
		lo, err := c.mem.Read8(ptr)
		if err != nil {
			return nil, err
		}
		// simulate 6502 page boundary hardware bug
		hi, err := c.mem.Read8(ptr&0xff00 | uint16(uint8(ptr)+1))
		if err != nil {
			return nil, err
		}
		c.bindMemory(ctx, uint16(lo)|uint16(hi)<<8)

	case AddrModeINDX:
		zp, err := c.fetch8()
		if err != nil {
			return nil, err
		}
		addr, err := c.readZP16(zp + c.Reg.X)
		if err != nil {
			return nil, err
		}
		c.bindMemory(ctx, addr)

	case AddrModeINDY:
		zp, err := c.fetch8()
		if err != nil {
			return nil, err
		}
		base, err := c.readZP16(zp)
		if err != nil {
			return nil, err
		}
		addr := base + uint16(c.Reg.Y)
		ctx.pageCrossed = isDiffPage(base, addr)
		c.bindMemory(ctx, addr)

	case AddrModeREL:
		off, err := c.fetch8()
		if err != nil {
			return nil, err
		}
		// sign extend, PC already points past the operand
		ctx.addr = c.Reg.PC + uint16(int16(int8(off)))
		ctx.pageCrossed = isDiffPage(c.Reg.PC, ctx.addr)

	default:
		return nil, fmt.Errorf("unsupported addressing mode %q", mode)
	}

	return ctx, nil
}
