// Package script drives a CPU from Lua. A script can watch and change
// registers and memory between instructions, which is enough for
// breakpoints, traces and stop conditions.
//
// Exposed to Lua as the global table cpu:
//
//	cpu.reg(name)          A, X, Y, SP, PC or P
//	cpu.set_reg(name, v)
//	cpu.flag(letter)       C, Z, I, D, B, V (or O) and N
//	cpu.peek(addr)
//	cpu.poke(addr, v)
//	cpu.cycles()
//	cpu.stop()
//
// The global functions before_step and after_step, when defined, run
// before and after every instruction.
package script

import (
	"fmt"
	"strings"

	"github.com/nevisdale/six502/internal/cpu"
	lua "github.com/yuin/gopher-lua"
)

// Memory is the side effect free access a script gets. bus.Bus and
// memory.Memory both provide it.
type Memory interface {
	DebugRead8(addr uint16) (uint8, error)
	DebugWrite8(addr uint16, data uint8) error
}

type Script struct {
	state *lua.LState
	cpu   *cpu.CPU
	mem   Memory
	err   error
}

// Attach runs src and registers its step functions as hooks on c.
func Attach(c *cpu.CPU, mem Memory, src string) (*Script, error) {
	s := &Script{
		state: lua.NewState(),
		cpu:   c,
		mem:   mem,
	}

	tbl := s.state.NewTable()
	s.state.SetFuncs(tbl, map[string]lua.LGFunction{
		"reg":     s.reg,
		"set_reg": s.setReg,
		"flag":    s.flag,
		"peek":    s.peek,
		"poke":    s.poke,
		"cycles":  s.cycles,
		"stop":    s.stop,
	})
	s.state.SetGlobal("cpu", tbl)

	if err := s.state.DoString(src); err != nil {
		s.state.Close()
		return nil, fmt.Errorf("script: %w", err)
	}

	if fn, ok := s.state.GetGlobal("before_step").(*lua.LFunction); ok {
		c.AddBeforeHook(s.hook(fn))
	}
	if fn, ok := s.state.GetGlobal("after_step").(*lua.LFunction); ok {
		c.AddAfterHook(s.hook(fn))
	}
	return s, nil
}

// Err is the first runtime error raised by a step function.
func (s *Script) Err() error {
	return s.err
}

func (s *Script) Close() {
	s.state.Close()
}

func (s *Script) hook(fn *lua.LFunction) cpu.Hook {
	return func(c *cpu.CPU) {
		if s.err != nil {
			return
		}
		err := s.state.CallByParam(lua.P{
			Fn:      fn,
			NRet:    0,
			Protect: true,
		})
		if err != nil {
			s.err = fmt.Errorf("script: %w", err)
			c.Stop()
		}
	}
}

func (s *Script) reg(L *lua.LState) int {
	r := &s.cpu.Reg
	var v int
	switch name := strings.ToUpper(L.CheckString(1)); name {
	case "A":
		v = int(r.A)
	case "X":
		v = int(r.X)
	case "Y":
		v = int(r.Y)
	case "SP":
		v = int(r.SP)
	case "PC":
		v = int(r.PC)
	case "P":
		v = int(r.P.Value())
	default:
		L.ArgError(1, "unknown register "+name)
		return 0
	}
	L.Push(lua.LNumber(v))
	return 1
}

func (s *Script) setReg(L *lua.LState) int {
	r := &s.cpu.Reg
	name := strings.ToUpper(L.CheckString(1))
	v := L.CheckInt(2)
	switch name {
	case "A":
		r.A = uint8(v)
	case "X":
		r.X = uint8(v)
	case "Y":
		r.Y = uint8(v)
	case "SP":
		r.SP = uint8(v)
	case "PC":
		r.PC = uint16(v)
	case "P":
		r.P.Load(uint8(v))
	default:
		L.ArgError(1, "unknown register "+name)
	}
	return 0
}

var flagsByLetter = map[string]cpu.Flag{
	"C": cpu.FlagC,
	"Z": cpu.FlagZ,
	"I": cpu.FlagI,
	"D": cpu.FlagD,
	"B": cpu.FlagB,
	"V": cpu.FlagV,
	"O": cpu.FlagV,
	"N": cpu.FlagN,
}

func (s *Script) flag(L *lua.LState) int {
	letter := strings.ToUpper(L.CheckString(1))
	f, ok := flagsByLetter[letter]
	if !ok {
		L.ArgError(1, "unknown flag "+letter)
		return 0
	}
	L.Push(lua.LBool(s.cpu.Reg.P.Has(f)))
	return 1
}

func (s *Script) peek(L *lua.LState) int {
	addr := L.CheckInt(1)
	v, err := s.mem.DebugRead8(uint16(addr))
	if err != nil {
		L.RaiseError("peek $%04X: %s", addr, err)
		return 0
	}
	L.Push(lua.LNumber(v))
	return 1
}

func (s *Script) poke(L *lua.LState) int {
	addr := L.CheckInt(1)
	v := L.CheckInt(2)
	if err := s.mem.DebugWrite8(uint16(addr), uint8(v)); err != nil {
		L.RaiseError("poke $%04X: %s", addr, err)
	}
	return 0
}

func (s *Script) cycles(L *lua.LState) int {
	L.Push(lua.LNumber(s.cpu.Cycles()))
	return 1
}

func (s *Script) stop(L *lua.LState) int {
	s.cpu.Stop()
	return 0
}
