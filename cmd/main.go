package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"

	"github.com/nevisdale/six502/internal/bus"
	"github.com/nevisdale/six502/internal/cpu"
	"github.com/nevisdale/six502/internal/memory"
	"github.com/nevisdale/six502/internal/script"
	"github.com/nevisdale/six502/internal/statsview"
	"github.com/pkg/profile"
)

var (
	ramRange = bus.Range{Start: 0x0000, End: 0xbfff}
	romRange = bus.Range{Start: 0xc000, End: 0xffff}
)

// addrFlag parses 16 bit addresses written as $C000, 0xC000 or 49152.
type addrFlag struct {
	addr uint16
	set  bool
}

func (f *addrFlag) String() string {
	return fmt.Sprintf("$%04X", f.addr)
}

func (f *addrFlag) Set(s string) error {
	if strings.HasPrefix(s, "$") {
		s = "0x" + s[1:]
	}
	v, err := strconv.ParseUint(s, 0, 16)
	if err != nil {
		return err
	}
	f.addr = uint16(v)
	f.set = true
	return nil
}

func main() {
	os.Exit(runMain())
}

// runMain returns the exit status so deferred cleanup runs before exit.
func runMain() int {
	var (
		load         = addrFlag{addr: 0x0200}
		start        addrFlag
		cycles       = flag.Uint64("cycles", 0, "stop after this many cycles (0: run until the CPU stops or halts)")
		instructions = flag.Int("instructions", 0, "stop after this many instructions")
		decimal      = flag.Bool("decimal", true, "honour the D flag in ADC and SBC")
		undocumented = flag.Bool("undocumented", false, "enable undocumented NMOS opcodes")
		trace        = flag.Bool("trace", false, "print every executed instruction")
		scriptFile   = flag.String("script", "", "lua script with before_step/after_step hooks")
		profileMode  = flag.String("profile", "", "write a cpu or mem profile to the current directory")
		stats        = flag.Bool("statsview", false, "serve runtime stats on "+statsview.Address)
	)
	flag.Var(&load, "load", "address the image is loaded at")
	flag.Var(&start, "start", "patch the reset vector with this address")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [flags] image.bin\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		return 2
	}

	switch *profileMode {
	case "":
	case "cpu":
		defer profile.Start(profile.CPUProfile, profile.ProfilePath("."), profile.NoShutdownHook).Stop()
	case "mem":
		defer profile.Start(profile.MemProfile, profile.ProfilePath("."), profile.NoShutdownHook).Stop()
	default:
		log.Fatalf("unknown profile mode %q", *profileMode)
	}

	if *stats {
		if err := statsview.Launch(os.Stderr); err != nil {
			log.Fatalf("couldn't start stats server: %s", err)
		}
	}

	image, err := os.ReadFile(flag.Arg(0))
	if err != nil {
		log.Fatalf("couldn't read image: %s", err)
	}

	b, err := newMachine()
	if err != nil {
		log.Fatalf("couldn't build machine: %s", err)
	}
	if int(load.addr)+len(image) > 0x10000 {
		log.Fatalf("image of %d bytes doesn't fit at %s", len(image), load.String())
	}
	if err := b.Load(load.addr, image); err != nil {
		log.Fatalf("couldn't load image: %s", err)
	}
	if start.set {
		if err := b.Load(cpu.VectorReset, []uint8{uint8(start.addr), uint8(start.addr >> 8)}); err != nil {
			log.Fatalf("couldn't patch reset vector: %s", err)
		}
	}

	c := cpu.New(b,
		cpu.WithDecimalMode(*decimal),
		cpu.WithUndocumented(*undocumented),
	)

	if *trace {
		addTrace(c, b)
	}

	if *scriptFile != "" {
		src, err := os.ReadFile(*scriptFile)
		if err != nil {
			log.Fatalf("couldn't read script: %s", err)
		}
		s, err := script.Attach(c, b, string(src))
		if err != nil {
			log.Fatalf("couldn't load script: %s", err)
		}
		defer func() {
			if err := s.Err(); err != nil {
				log.Printf("%s", err)
			}
			s.Close()
		}()
	}

	if err := b.Reset(); err != nil {
		log.Fatalf("couldn't reset bus: %s", err)
	}
	if err := c.Reset(); err != nil {
		log.Fatalf("couldn't reset cpu: %s", err)
	}

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)
	go func() {
		<-interrupt
		c.Stop()
	}()

	err = run(c, *cycles, *instructions)
	fmt.Printf("%s cycles:%d instructions:%d\n", c.Reg, c.Cycles(), c.Instructions())
	if err != nil && !errors.Is(err, cpu.ErrStopped) {
		log.Printf("cpu: %s", err)
		return 1
	}
	return 0
}

// newMachine maps 48K of RAM and a 16K ROM holding the vectors.
func newMachine() (*bus.Bus, error) {
	ram, err := memory.New(ramRange.Size(), 0)
	if err != nil {
		return nil, err
	}
	rom, err := memory.NewROM(make([]uint8, romRange.Size()))
	if err != nil {
		return nil, err
	}

	b := bus.New()
	if err := b.Register(ramRange, ram); err != nil {
		return nil, err
	}
	if err := b.Register(romRange, rom); err != nil {
		return nil, err
	}
	return b, nil
}

func run(c *cpu.CPU, cycles uint64, instructions int) error {
	var err error
	switch {
	case cycles > 0:
		_, err = c.RunCycles(cycles)
	case instructions > 0:
		_, err = c.RunInstructions(instructions)
	default:
		for err == nil {
			_, err = c.Step()
		}
	}
	return err
}

func addTrace(c *cpu.CPU, b *bus.Bus) {
	var in cpu.Instruction
	c.AddBeforeHook(func(c *cpu.CPU) {
		opcode, err := b.DebugRead8(c.Reg.PC)
		if err != nil {
			return
		}
		in = cpu.Lookup(opcode)
	})
	c.AddAfterHook(func(c *cpu.CPU) {
		fmt.Printf("%-16s %s CYC:%d\n", in, c.Reg, c.Cycles())
	})
}
