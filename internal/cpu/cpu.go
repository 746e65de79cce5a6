package cpu

import (
	"fmt"
	"log"
	"sync/atomic"
)

// ReadWriter is the CPU's view of the address space. Both a flat
// memory.Memory and a bus.Bus satisfy it.
type ReadWriter interface {
	Read8(addr uint16) (uint8, error)
	Write8(addr uint16, data uint8) error
}

const (
	// The stack is located in the fixed memory page $0100 to $01FF.
	StackBase = uint16(0x0100)

	VectorNMI   = uint16(0xfffa)
	VectorReset = uint16(0xfffc)
	VectorIRQ   = uint16(0xfffe)

	// cycles spent pushing state and loading a vector for IRQ and NMI
	interruptCycles = 7

	powerOnSP = uint8(0xfd)
)

type State uint8

const (
	StateReset State = iota
	StateFetching
	StateExecuting
	StateHalted
)

func (s State) String() string {
	switch s {
	case StateReset:
		return "reset"
	case StateFetching:
		return "fetching"
	case StateExecuting:
		return "executing"
	case StateHalted:
		return "halted"
	}
	return "???"
}

// Hook is called between instructions on the goroutine running the CPU.
// Hooks have full access to the CPU and its memory.
type Hook func(c *CPU)

type CPU struct {
	Reg Registers

	mem   ReadWriter
	state State
	fault error

	cycles       uint64
	instructions uint64

	before []Hook
	after  []Hook

	irqPending     atomic.Bool
	nmiPending     atomic.Bool
	stopRequested  atomic.Bool
	resetRequested atomic.Bool

	decimal        bool
	undocumented   bool
	preserveCycles bool
	log            *log.Logger
}

// New creates a CPU wired to mem. Call Reset before running it, or set
// the registers by hand.
func New(mem ReadWriter, opts ...Option) *CPU {
	c := &CPU{
		mem:     mem,
		decimal: true,
		log:     log.Default(),
	}
	c.Reg.P.Load(uint8(FlagI))
	c.Reg.SP = powerOnSP
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *CPU) Memory() ReadWriter {
	return c.mem
}

func (c *CPU) State() State {
	return c.state
}

// Fault is the error that halted the CPU, if any.
func (c *CPU) Fault() error {
	return c.fault
}

// Cycles is the number of cycles consumed since the last reset.
func (c *CPU) Cycles() uint64 {
	return c.cycles
}

// Instructions is the number of instructions completed since the last reset.
func (c *CPU) Instructions() uint64 {
	return c.instructions
}

// AddBeforeHook registers h to run before every instruction. Hooks run
// in registration order.
func (c *CPU) AddBeforeHook(h Hook) {
	c.before = append(c.before, h)
}

// AddAfterHook registers h to run after every completed instruction.
func (c *CPU) AddAfterHook(h Hook) {
	c.after = append(c.after, h)
}

// Stop asks the run loop to return ErrStopped before the next fetch.
// It is safe to call from any goroutine.
func (c *CPU) Stop() {
	c.stopRequested.Store(true)
}

// RequestReset asks for a Reset before the next fetch. It is safe to
// call from any goroutine.
func (c *CPU) RequestReset() {
	c.resetRequested.Store(true)
}

// IRQ raises the interrupt request line. The request stays pending while
// interrupts are disabled.
func (c *CPU) IRQ() {
	c.irqPending.Store(true)
}

// NMI latches a non-maskable interrupt.
func (c *CPU) NMI() {
	c.nmiPending.Store(true)
}

func (c *CPU) read16(addr uint16) (uint16, error) {
	lo, err := c.mem.Read8(addr)
	if err != nil {
		return 0, err
	}
	hi, err := c.mem.Read8(addr + 1)
	if err != nil {
		return 0, err
	}
	return uint16(lo) | uint16(hi)<<8, nil
}

func (c *CPU) stackPush8(data uint8) error {
	if err := c.mem.Write8(StackBase|uint16(c.Reg.SP), data); err != nil {
		return err
	}
	c.Reg.SP--
	return nil
}

func (c *CPU) stackPush16(data uint16) error {
	if err := c.stackPush8(uint8(data >> 8)); err != nil {
		return err
	}
	return c.stackPush8(uint8(data))
}

func (c *CPU) stackPop8() (uint8, error) {
	c.Reg.SP++
	return c.mem.Read8(StackBase | uint16(c.Reg.SP))
}

func (c *CPU) stackPop16() (uint16, error) {
	lo, err := c.stackPop8()
	if err != nil {
		return 0, err
	}
	hi, err := c.stackPop8()
	if err != nil {
		return 0, err
	}
	return uint16(lo) | uint16(hi)<<8, nil
}

// interrupt pushes PC and P and jumps through vector. brk selects the B
// bit of the pushed status: set for BRK, clear for IRQ and NMI.
func (c *CPU) interrupt(vector uint16, brk bool) error {
	if err := c.stackPush16(c.Reg.PC); err != nil {
		return err
	}
	p := c.Reg.P.Value() &^ uint8(FlagB)
	if brk {
		p |= uint8(FlagB)
	}
	if err := c.stackPush8(p); err != nil {
		return err
	}
	pc, err := c.read16(vector)
	if err != nil {
		return err
	}
	c.Reg.P.Set(FlagI)
	c.Reg.PC = pc
	return nil
}

// Reset the CPU to its power-on state and load PC from the reset vector.
// A pending Stop survives and takes effect at the next Step.
func (c *CPU) Reset() error {
	c.resetRequested.Store(false)
	c.irqPending.Store(false)
	c.nmiPending.Store(false)

	pc, err := c.read16(VectorReset)
	if err != nil {
		c.halt(fmt.Errorf("reset vector: %w", err))
		return err
	}

	c.Reg = Registers{
		SP: powerOnSP,
		PC: pc,
	}
	c.Reg.P.Load(uint8(FlagI))
	if !c.preserveCycles {
		c.cycles = 0
		c.instructions = 0
	}
	c.fault = nil
	c.state = StateReset
	return nil
}

// ClearFault leaves the halted state without touching registers. The
// faulting instruction runs again on the next Step, so the caller
// should have fixed its cause, e.g. by mapping the missing address.
func (c *CPU) ClearFault() {
	if c.state == StateHalted {
		c.state = StateFetching
	}
	c.fault = nil
}

func (c *CPU) halt(err error) {
	c.fault = err
	c.state = StateHalted
	c.log.Printf("cpu: halted at PC %04X: %s", c.Reg.PC, err)
}

// pendingInterrupt picks the interrupt to service before the next
// fetch: NMI first, then IRQ when interrupts are enabled.
func (c *CPU) pendingInterrupt() (*atomic.Bool, uint16) {
	switch {
	case c.nmiPending.Load():
		return &c.nmiPending, VectorNMI
	case c.irqPending.Load() && !c.Reg.P.Has(FlagI):
		return &c.irqPending, VectorIRQ
	}
	return nil, 0
}

// execute fetches, decodes and runs one instruction.
func (c *CPU) execute() (uint8, error) {
	c.state = StateFetching
	opcodePC := c.Reg.PC
	opcode, err := c.fetch8()
	if err != nil {
		return 0, err
	}

	in := &instructions[opcode]
	if !in.Valid() || (in.Undocumented && !c.undocumented) {
		return 0, fmt.Errorf("%w: $%02X at $%04X", ErrUnknownOpcode, opcode, opcodePC)
	}
	if !in.Implemented() {
		return 0, fmt.Errorf("%w: %s ($%02X) at $%04X", ErrNotImplemented, in.Name, opcode, opcodePC)
	}

	c.state = StateExecuting
	ctx, err := c.resolve(in.Mode)
	if err != nil {
		return 0, err
	}
	if in.PageCost && ctx.PageCrossed() {
		ctx.AddCycles(1)
	}
	if err := in.operate(c, ctx); err != nil {
		return 0, fmt.Errorf("%s at $%04X: %w", in.Name, opcodePC, err)
	}
	return in.Cycles + ctx.ExtraCycles(), nil
}

// Step runs one instruction, servicing a pending interrupt first. It
// returns the number of cycles consumed.
//
// If anything fails the registers are restored to their values before
// the instruction, the cycle counter is left alone and the CPU halts.
func (c *CPU) Step() (uint8, error) {
	// a requested reset is the way out of the halted state
	if c.state == StateHalted && !c.resetRequested.Load() {
		return 0, fmt.Errorf("%w: %w", ErrHalted, c.fault)
	}

	for _, h := range c.before {
		h(c)
	}

	if c.resetRequested.Load() {
		if err := c.Reset(); err != nil {
			return 0, err
		}
	}
	if c.stopRequested.Swap(false) {
		return 0, ErrStopped
	}

	saved := c.Reg

	var (
		cycles uint8
		err    error
	)
	// consume the line before the handler runs; a new request raised
	// during this step stays pending
	line, vector := c.pendingInterrupt()
	if line != nil {
		line.Store(false)
		err = c.interrupt(vector, false)
		cycles = interruptCycles
	}
	if err == nil {
		var n uint8
		n, err = c.execute()
		cycles += n
	}
	if err != nil {
		if line != nil {
			line.Store(true)
		}
		c.Reg = saved
		c.halt(err)
		return 0, err
	}

	c.cycles += uint64(cycles)
	c.instructions++
	c.state = StateFetching

	for _, h := range c.after {
		h(c)
	}
	return cycles, nil
}

// RunCycles steps until at least n cycles have been consumed. An
// instruction is never split, so the total may overshoot n.
func (c *CPU) RunCycles(n uint64) (uint64, error) {
	var done uint64
	for done < n {
		cycles, err := c.Step()
		done += uint64(cycles)
		if err != nil {
			return done, err
		}
	}
	return done, nil
}

// RunInstructions steps n times and returns the cycles consumed.
func (c *CPU) RunInstructions(n int) (uint64, error) {
	var done uint64
	for i := 0; i < n; i++ {
		cycles, err := c.Step()
		done += uint64(cycles)
		if err != nil {
			return done, err
		}
	}
	return done, nil
}
