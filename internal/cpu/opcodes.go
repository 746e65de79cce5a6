package cpu

import (
	"fmt"
	"strings"
)

type opcodeFunc func(c *CPU, ctx *Context) error

func isSameSign(a, b uint8) bool {
	return (a^b)&0x80 == 0
}

func (c *CPU) carry() uint8 {
	if c.Reg.P.Has(FlagC) {
		return 1
	}
	return 0
}

// add is the ADC core, shared with SBC and RRA.
func (c *CPU) add(v uint8) {
	if c.decimal && c.Reg.P.Has(FlagD) {
		c.addDecimal(v)
		return
	}
	a := c.Reg.A
	r16 := uint16(a) + uint16(v) + uint16(c.carry())
	r8 := uint8(r16)
	c.Reg.P.SetTo(FlagC, r16 > 0xff)
	c.Reg.P.SetTo(FlagV, isSameSign(a, v) && !isSameSign(a, r8))
	c.Reg.setZN(r8)
	c.Reg.A = r8
}

// addDecimal follows the NMOS 6502: Z comes from the binary sum, N and
// V from the sum after the low nibble was adjusted.
func (c *CPU) addDecimal(v uint8) {
	a := c.Reg.A
	cin := c.carry()

	lo := uint16(a&0x0f) + uint16(v&0x0f) + uint16(cin)
	if lo > 0x09 {
		lo += 0x06
	}
	hi := uint16(a>>4) + uint16(v>>4)
	if lo > 0x0f {
		hi++
	}

	mid := uint8(hi<<4) | uint8(lo&0x0f)
	c.Reg.P.SetTo(FlagZ, a+v+cin == 0)
	c.Reg.P.SetTo(FlagN, mid&0x80 > 0)
	c.Reg.P.SetTo(FlagV, isSameSign(a, v) && !isSameSign(a, mid))

	if hi > 0x09 {
		hi += 0x06
	}
	c.Reg.P.SetTo(FlagC, hi > 0x0f)
	c.Reg.A = uint8(hi<<4) | uint8(lo&0x0f)
}

// sub is the SBC core. On the NMOS 6502 the flags of a decimal
// subtraction are those of the binary one.
func (c *CPU) sub(v uint8) {
	if !c.decimal || !c.Reg.P.Has(FlagD) {
		c.add(^v)
		return
	}
	a := c.Reg.A
	borrow := 1 - int(c.carry())

	lo := int(a&0x0f) - int(v&0x0f) - borrow
	hi := int(a>>4) - int(v>>4)
	if lo < 0 {
		lo -= 0x06
		hi--
	}
	if hi < 0 {
		hi -= 0x06
	}

	r16 := int(a) - int(v) - borrow
	r8 := uint8(r16)
	c.Reg.P.SetTo(FlagC, r16 >= 0)
	c.Reg.P.SetTo(FlagV, !isSameSign(a, v) && !isSameSign(a, r8))
	c.Reg.setZN(r8)
	c.Reg.A = uint8(hi<<4) | uint8(lo&0x0f)
}

func (c *CPU) compare(reg, v uint8) {
	c.Reg.P.SetTo(FlagC, reg >= v)
	c.Reg.setZN(reg - v)
}

func (c *CPU) branchIf(ctx *Context, condition bool) error {
	if !condition {
		return nil
	}
	ctx.AddCycles(1)
	if ctx.PageCrossed() {
		ctx.AddCycles(1)
	}
	c.Reg.PC = ctx.Addr()
	return nil
}

// modify reads the operand, applies fn and writes the result back.
// Flags are only touched by fn after the write succeeded.
func modify(ctx *Context, fn func(v uint8) (r uint8, flags func())) (uint8, error) {
	v, err := ctx.Read()
	if err != nil {
		return 0, err
	}
	r, flags := fn(v)
	if err := ctx.Write(r); err != nil {
		return 0, err
	}
	flags()
	return r, nil
}

func (c *CPU) shiftLeft(ctx *Context, in uint8) (uint8, error) {
	return modify(ctx, func(v uint8) (uint8, func()) {
		r := v<<1 | in
		return r, func() {
			c.Reg.P.SetTo(FlagC, v&0x80 > 0)
			c.Reg.setZN(r)
		}
	})
}

func (c *CPU) shiftRight(ctx *Context, in uint8) (uint8, error) {
	return modify(ctx, func(v uint8) (uint8, func()) {
		r := v>>1 | in<<7
		return r, func() {
			c.Reg.P.SetTo(FlagC, v&0x01 > 0)
			c.Reg.setZN(r)
		}
	})
}

// Add with Carry
func (c *CPU) adc(ctx *Context) error {
	v, err := ctx.Read()
	if err != nil {
		return err
	}
	c.add(v)
	return nil
}

// Logical AND
func (c *CPU) and(ctx *Context) error {
	v, err := ctx.Read()
	if err != nil {
		return err
	}
	c.Reg.A &= v
	c.Reg.setZN(c.Reg.A)
	return nil
}

// Arithmetic Shift Left
func (c *CPU) asl(ctx *Context) error {
	_, err := c.shiftLeft(ctx, 0)
	return err
}

// Branch if Carry Clear
func (c *CPU) bcc(ctx *Context) error {
	return c.branchIf(ctx, !c.Reg.P.Has(FlagC))
}

// Branch if Carry Set
func (c *CPU) bcs(ctx *Context) error {
	return c.branchIf(ctx, c.Reg.P.Has(FlagC))
}

// Branch if Equal
func (c *CPU) beq(ctx *Context) error {
	return c.branchIf(ctx, c.Reg.P.Has(FlagZ))
}

// Bit Test
func (c *CPU) bit(ctx *Context) error {
	v, err := ctx.Read()
	if err != nil {
		return err
	}
	c.Reg.P.SetTo(FlagZ, c.Reg.A&v == 0)
	c.Reg.P.SetTo(FlagV, v&uint8(FlagV) > 0)
	c.Reg.P.SetTo(FlagN, v&uint8(FlagN) > 0)
	return nil
}

// Branch if Minus
func (c *CPU) bmi(ctx *Context) error {
	return c.branchIf(ctx, c.Reg.P.Has(FlagN))
}

// Branch if Not Equal
func (c *CPU) bne(ctx *Context) error {
	return c.branchIf(ctx, !c.Reg.P.Has(FlagZ))
}

// Branch if Positive
func (c *CPU) bpl(ctx *Context) error {
	return c.branchIf(ctx, !c.Reg.P.Has(FlagN))
}

// Force Interrupt. The byte after BRK is skipped.
func (c *CPU) brk(_ *Context) error {
	c.Reg.PC++
	return c.interrupt(VectorIRQ, true)
}

// Branch if Overflow Clear
func (c *CPU) bvc(ctx *Context) error {
	return c.branchIf(ctx, !c.Reg.P.Has(FlagV))
}

// Branch if Overflow Set
func (c *CPU) bvs(ctx *Context) error {
	return c.branchIf(ctx, c.Reg.P.Has(FlagV))
}

// Clear Carry Flag
func (c *CPU) clc(_ *Context) error {
	c.Reg.P.Clear(FlagC)
	return nil
}

// Clear Decimal Mode
func (c *CPU) cld(_ *Context) error {
	c.Reg.P.Clear(FlagD)
	return nil
}

// Clear Interrupt Disable
func (c *CPU) cli(_ *Context) error {
	c.Reg.P.Clear(FlagI)
	return nil
}

// Clear Overflow Flag
func (c *CPU) clv(_ *Context) error {
	c.Reg.P.Clear(FlagV)
	return nil
}

// Compare
func (c *CPU) cmp(ctx *Context) error {
	v, err := ctx.Read()
	if err != nil {
		return err
	}
	c.compare(c.Reg.A, v)
	return nil
}

// Compare X Register
func (c *CPU) cpx(ctx *Context) error {
	v, err := ctx.Read()
	if err != nil {
		return err
	}
	c.compare(c.Reg.X, v)
	return nil
}

// Compare Y Register
func (c *CPU) cpy(ctx *Context) error {
	v, err := ctx.Read()
	if err != nil {
		return err
	}
	c.compare(c.Reg.Y, v)
	return nil
}

// Decrement Memory
func (c *CPU) dec(ctx *Context) error {
	_, err := modify(ctx, func(v uint8) (uint8, func()) {
		r := v - 1
		return r, func() { c.Reg.setZN(r) }
	})
	return err
}

// Decrement X Register
func (c *CPU) dex(_ *Context) error {
	c.Reg.X--
	c.Reg.setZN(c.Reg.X)
	return nil
}

// Decrement Y Register
func (c *CPU) dey(_ *Context) error {
	c.Reg.Y--
	c.Reg.setZN(c.Reg.Y)
	return nil
}

// Exclusive OR
func (c *CPU) eor(ctx *Context) error {
	v, err := ctx.Read()
	if err != nil {
		return err
	}
	c.Reg.A ^= v
	c.Reg.setZN(c.Reg.A)
	return nil
}

// Increment Memory
func (c *CPU) inc(ctx *Context) error {
	_, err := modify(ctx, func(v uint8) (uint8, func()) {
		r := v + 1
		return r, func() { c.Reg.setZN(r) }
	})
	return err
}

// Increment X Register
func (c *CPU) inx(_ *Context) error {
	c.Reg.X++
	c.Reg.setZN(c.Reg.X)
	return nil
}

// Increment Y Register
func (c *CPU) iny(_ *Context) error {
	c.Reg.Y++
	c.Reg.setZN(c.Reg.Y)
	return nil
}

// Jump
func (c *CPU) jmp(ctx *Context) error {
	c.Reg.PC = ctx.Addr()
	return nil
}

// Jump to Subroutine. The pushed return address is the last byte of
// the JSR instruction.
func (c *CPU) jsr(ctx *Context) error {
	if err := c.stackPush16(c.Reg.PC - 1); err != nil {
		return err
	}
	c.Reg.PC = ctx.Addr()
	return nil
}

// Load Accumulator
func (c *CPU) lda(ctx *Context) error {
	v, err := ctx.Read()
	if err != nil {
		return err
	}
	c.Reg.A = v
	c.Reg.setZN(c.Reg.A)
	return nil
}

// Load X Register
func (c *CPU) ldx(ctx *Context) error {
	v, err := ctx.Read()
	if err != nil {
		return err
	}
	c.Reg.X = v
	c.Reg.setZN(c.Reg.X)
	return nil
}

// Load Y Register. Z and N always follow the loaded Y, in every mode.
func (c *CPU) ldy(ctx *Context) error {
	v, err := ctx.Read()
	if err != nil {
		return err
	}
	c.Reg.Y = v
	c.Reg.setZN(c.Reg.Y)
	return nil
}

// Logical Shift Right
func (c *CPU) lsr(ctx *Context) error {
	_, err := c.shiftRight(ctx, 0)
	return err
}

// No Operation. The undocumented variants still read their operand.
func (c *CPU) nop(ctx *Context) error {
	if ctx.Mode() == AddrModeIMP {
		return nil
	}
	_, err := ctx.Read()
	return err
}

// Logical Inclusive OR
func (c *CPU) ora(ctx *Context) error {
	v, err := ctx.Read()
	if err != nil {
		return err
	}
	c.Reg.A |= v
	c.Reg.setZN(c.Reg.A)
	return nil
}

// Push Accumulator
func (c *CPU) pha(_ *Context) error {
	return c.stackPush8(c.Reg.A)
}

// Push Processor Status. The pushed copy has B set.
func (c *CPU) php(_ *Context) error {
	return c.stackPush8(c.Reg.P.Value() | uint8(FlagB))
}

// Pull Accumulator
func (c *CPU) pla(_ *Context) error {
	v, err := c.stackPop8()
	if err != nil {
		return err
	}
	c.Reg.A = v
	c.Reg.setZN(c.Reg.A)
	return nil
}

// Pull Processor Status
func (c *CPU) plp(_ *Context) error {
	v, err := c.stackPop8()
	if err != nil {
		return err
	}
	c.Reg.P.Load(v &^ uint8(FlagB))
	return nil
}

// Rotate Left
func (c *CPU) rol(ctx *Context) error {
	_, err := c.shiftLeft(ctx, c.carry())
	return err
}

// Rotate Right
func (c *CPU) ror(ctx *Context) error {
	_, err := c.shiftRight(ctx, c.carry())
	return err
}

// Return from Interrupt
func (c *CPU) rti(_ *Context) error {
	p, err := c.stackPop8()
	if err != nil {
		return err
	}
	pc, err := c.stackPop16()
	if err != nil {
		return err
	}
	c.Reg.P.Load(p &^ uint8(FlagB))
	c.Reg.PC = pc
	return nil
}

// Return from Subroutine
func (c *CPU) rts(_ *Context) error {
	pc, err := c.stackPop16()
	if err != nil {
		return err
	}
	c.Reg.PC = pc + 1
	return nil
}

// Subtract with Carry
func (c *CPU) sbc(ctx *Context) error {
	v, err := ctx.Read()
	if err != nil {
		return err
	}
	c.sub(v)
	return nil
}

// Set Carry Flag
func (c *CPU) sec(_ *Context) error {
	c.Reg.P.Set(FlagC)
	return nil
}

// Set Decimal Flag
func (c *CPU) sed(_ *Context) error {
	c.Reg.P.Set(FlagD)
	return nil
}

// Set Interrupt Disable
func (c *CPU) sei(_ *Context) error {
	c.Reg.P.Set(FlagI)
	return nil
}

// Store Accumulator
func (c *CPU) sta(ctx *Context) error {
	return ctx.Write(c.Reg.A)
}

// Store X Register
func (c *CPU) stx(ctx *Context) error {
	return ctx.Write(c.Reg.X)
}

// Store Y Register
func (c *CPU) sty(ctx *Context) error {
	return ctx.Write(c.Reg.Y)
}

// Transfer Accumulator to X
func (c *CPU) tax(_ *Context) error {
	c.Reg.X = c.Reg.A
	c.Reg.setZN(c.Reg.X)
	return nil
}

// Transfer Accumulator to Y
func (c *CPU) tay(_ *Context) error {
	c.Reg.Y = c.Reg.A
	c.Reg.setZN(c.Reg.Y)
	return nil
}

// Transfer Stack Pointer to X
func (c *CPU) tsx(_ *Context) error {
	c.Reg.X = c.Reg.SP
	c.Reg.setZN(c.Reg.X)
	return nil
}

// Transfer X to Accumulator
func (c *CPU) txa(_ *Context) error {
	c.Reg.A = c.Reg.X
	c.Reg.setZN(c.Reg.A)
	return nil
}

// Transfer X to Stack Pointer. Flags are not affected.
func (c *CPU) txs(_ *Context) error {
	c.Reg.SP = c.Reg.X
	return nil
}

// Transfer Y to Accumulator
func (c *CPU) tya(_ *Context) error {
	c.Reg.A = c.Reg.Y
	c.Reg.setZN(c.Reg.A)
	return nil
}

// undocumented opcodes

func (c *CPU) jam(_ *Context) error {
	return ErrJammed
}

func (c *CPU) lax(ctx *Context) error {
	v, err := ctx.Read()
	if err != nil {
		return err
	}
	c.Reg.A = v
	c.Reg.X = v
	c.Reg.setZN(v)
	return nil
}

func (c *CPU) sax(ctx *Context) error {
	return ctx.Write(c.Reg.A & c.Reg.X)
}

func (c *CPU) dcp(ctx *Context) error {
	v, err := ctx.Read()
	if err != nil {
		return err
	}
	v--
	if err := ctx.Write(v); err != nil {
		return err
	}
	c.compare(c.Reg.A, v)
	return nil
}

func (c *CPU) isc(ctx *Context) error {
	v, err := ctx.Read()
	if err != nil {
		return err
	}
	v++
	if err := ctx.Write(v); err != nil {
		return err
	}
	c.sub(v)
	return nil
}

func (c *CPU) slo(ctx *Context) error {
	r, err := c.shiftLeft(ctx, 0)
	if err != nil {
		return err
	}
	c.Reg.A |= r
	c.Reg.setZN(c.Reg.A)
	return nil
}

func (c *CPU) rla(ctx *Context) error {
	r, err := c.shiftLeft(ctx, c.carry())
	if err != nil {
		return err
	}
	c.Reg.A &= r
	c.Reg.setZN(c.Reg.A)
	return nil
}

func (c *CPU) sre(ctx *Context) error {
	r, err := c.shiftRight(ctx, 0)
	if err != nil {
		return err
	}
	c.Reg.A ^= r
	c.Reg.setZN(c.Reg.A)
	return nil
}

func (c *CPU) rra(ctx *Context) error {
	r, err := c.shiftRight(ctx, c.carry())
	if err != nil {
		return err
	}
	c.add(r)
	return nil
}

func (c *CPU) anc(ctx *Context) error {
	v, err := ctx.Read()
	if err != nil {
		return err
	}
	c.Reg.A &= v
	c.Reg.setZN(c.Reg.A)
	c.Reg.P.SetTo(FlagC, c.Reg.A&0x80 > 0)
	return nil
}

func (c *CPU) alr(ctx *Context) error {
	v, err := ctx.Read()
	if err != nil {
		return err
	}
	c.Reg.A &= v
	c.Reg.P.SetTo(FlagC, c.Reg.A&0x01 > 0)
	c.Reg.A >>= 1
	c.Reg.setZN(c.Reg.A)
	return nil
}

func (c *CPU) sbx(ctx *Context) error {
	v, err := ctx.Read()
	if err != nil {
		return err
	}
	ax := c.Reg.A & c.Reg.X
	c.Reg.P.SetTo(FlagC, ax >= v)
	c.Reg.X = ax - v
	c.Reg.setZN(c.Reg.X)
	return nil
}

func (c *CPU) las(ctx *Context) error {
	v, err := ctx.Read()
	if err != nil {
		return err
	}
	r := v & c.Reg.SP
	c.Reg.A = r
	c.Reg.X = r
	c.Reg.SP = r
	c.Reg.setZN(r)
	return nil
}

// opcodes that are known but unstable on real silicon; they are listed
// in the matrix without a handler
var notImplemented = map[string]bool{
	"ANE": true,
	"LXA": true,
	"ARR": true,
	"SHA": true,
	"SHX": true,
	"SHY": true,
	"TAS": true,
}

func opcodeFuncFromMnemonic(mnemonic string) (opcodeFunc, error) {
	mnemonic = strings.ToUpper(mnemonic)
	switch mnemonic {
	case "ADC":
		return (*CPU).adc, nil
	case "AND":
		return (*CPU).and, nil
	case "ASL":
		return (*CPU).asl, nil
	case "BCC":
		return (*CPU).bcc, nil
	case "BCS":
		return (*CPU).bcs, nil
	case "BEQ":
		return (*CPU).beq, nil
	case "BIT":
		return (*CPU).bit, nil
	case "BMI":
		return (*CPU).bmi, nil
	case "BNE":
		return (*CPU).bne, nil
	case "BPL":
		return (*CPU).bpl, nil
	case "BRK":
		return (*CPU).brk, nil
	case "BVC":
		return (*CPU).bvc, nil
	case "BVS":
		return (*CPU).bvs, nil
	case "CLC":
		return (*CPU).clc, nil
	case "CLD":
		return (*CPU).cld, nil
	case "CLI":
		return (*CPU).cli, nil
	case "CLV":
		return (*CPU).clv, nil
	case "CMP":
		return (*CPU).cmp, nil
	case "CPX":
		return (*CPU).cpx, nil
	case "CPY":
		return (*CPU).cpy, nil
	case "DEC":
		return (*CPU).dec, nil
	case "DEX":
		return (*CPU).dex, nil
	case "DEY":
		return (*CPU).dey, nil
	case "EOR":
		return (*CPU).eor, nil
	case "INC":
		return (*CPU).inc, nil
	case "INX":
		return (*CPU).inx, nil
	case "INY":
		return (*CPU).iny, nil
	case "JMP":
		return (*CPU).jmp, nil
	case "JSR":
		return (*CPU).jsr, nil
	case "LDA":
		return (*CPU).lda, nil
	case "LDX":
		return (*CPU).ldx, nil
	case "LDY":
		return (*CPU).ldy, nil
	case "LSR":
		return (*CPU).lsr, nil
	case "NOP":
		return (*CPU).nop, nil
	case "ORA":
		return (*CPU).ora, nil
	case "PHA":
		return (*CPU).pha, nil
	case "PHP":
		return (*CPU).php, nil
	case "PLA":
		return (*CPU).pla, nil
	case "PLP":
		return (*CPU).plp, nil
	case "ROL":
		return (*CPU).rol, nil
	case "ROR":
		return (*CPU).ror, nil
	case "RTI":
		return (*CPU).rti, nil
	case "RTS":
		return (*CPU).rts, nil
	case "SBC":
		return (*CPU).sbc, nil
	case "SEC":
		return (*CPU).sec, nil
	case "SED":
		return (*CPU).sed, nil
	case "SEI":
		return (*CPU).sei, nil
	case "STA":
		return (*CPU).sta, nil
	case "STX":
		return (*CPU).stx, nil
	case "STY":
		return (*CPU).sty, nil
	case "TAX":
		return (*CPU).tax, nil
	case "TAY":
		return (*CPU).tay, nil
	case "TSX":
		return (*CPU).tsx, nil
	case "TXA":
		return (*CPU).txa, nil
	case "TXS":
		return (*CPU).txs, nil
	case "TYA":
		return (*CPU).tya, nil
	case "JAM":
		return (*CPU).jam, nil
	case "LAX":
		return (*CPU).lax, nil
	case "SAX":
		return (*CPU).sax, nil
	case "DCP":
		return (*CPU).dcp, nil
	case "ISC":
		return (*CPU).isc, nil
	case "SLO":
		return (*CPU).slo, nil
	case "RLA":
		return (*CPU).rla, nil
	case "SRE":
		return (*CPU).sre, nil
	case "RRA":
		return (*CPU).rra, nil
	case "ANC":
		return (*CPU).anc, nil
	case "ALR":
		return (*CPU).alr, nil
	case "SBX":
		return (*CPU).sbx, nil
	case "LAS":
		return (*CPU).las, nil
	}
	if notImplemented[mnemonic] {
		return nil, nil
	}
	return nil, fmt.Errorf("unknown mnemonic: %s", mnemonic)
}
