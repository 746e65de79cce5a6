package cpu

import (
	"bytes"
	_ "embed"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
)

//go:embed opcode_matrix.csv
var opcodeMatrixFileData []byte

// Instruction describes one opcode. The table is built once from the
// opcode matrix and never changes afterwards.
type Instruction struct {
	Opcode       uint8
	Name         string
	Mode         AddrMode
	Cycles       uint8 // base cycle count
	PageCost     bool  // +1 cycle when indexing crosses a page
	Undocumented bool

	operate opcodeFunc
	valid   bool
}

// Valid is false for the "???" placeholder of an undefined opcode.
func (in Instruction) Valid() bool {
	return in.valid
}

// Implemented reports whether the instruction has a handler.
func (in Instruction) Implemented() bool {
	return in.operate != nil
}

func (in Instruction) String() string {
	return fmt.Sprintf("%02X %s {%s}", in.Opcode, in.Name, in.Mode)
}

var instructions = mustParseOpcodeMatrix(opcodeMatrixFileData)

// Lookup returns the descriptor of opcode.
func Lookup(opcode uint8) Instruction {
	return instructions[opcode]
}

func mustParseOpcodeMatrix(data []byte) [0x100]Instruction {
	table, err := parseOpcodeMatrix(data)
	if err != nil {
		panic(fmt.Sprintf("cpu: opcode matrix: %s", err))
	}
	return table
}

// parseOpcodeMatrix reads records of the form
//
//	opcode,mnemonic,mode,cycles,flags
//
// where flags is "-" or any of 'p' (page cross penalty) and
// 'u' (undocumented).
func parseOpcodeMatrix(data []byte) ([0x100]Instruction, error) {
	var table [0x100]Instruction
	for i := range table {
		table[i] = Instruction{Opcode: uint8(i), Name: "???", Mode: AddrModeIMP}
	}

	r := csv.NewReader(bytes.NewReader(data))
	_, _ = r.Read() // skip header
	r.ReuseRecord = true

	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return table, fmt.Errorf("couldn't read data from csv: %w", err)
		}
		if len(record) == 0 {
			continue
		}
		if len(record) != 5 {
			return table, fmt.Errorf("invalid format for the record: %s: must be 5 parts", strings.Join(record, string(r.Comma)))
		}

		opcodeByte, err := strconv.ParseUint(record[0], 0, 8)
		if err != nil {
			return table, fmt.Errorf("invalid format for opcode byte: %w", err)
		}
		if table[opcodeByte].valid {
			return table, fmt.Errorf("duplicate opcode %s", record[0])
		}

		name := strings.ToUpper(record[1])
		operate, err := opcodeFuncFromMnemonic(name)
		if err != nil {
			return table, fmt.Errorf("invalid format for mnemonic: %w", err)
		}

		mode, err := addrModeFromString(record[2])
		if err != nil {
			return table, fmt.Errorf("invalid format for address mode: %w", err)
		}

		cycles, err := strconv.ParseUint(record[3], 0, 8)
		if err != nil {
			return table, fmt.Errorf("invalid format for opcode cycles: %w", err)
		}

		in := Instruction{
			Opcode:  uint8(opcodeByte),
			Name:    name,
			Mode:    mode,
			Cycles:  uint8(cycles),
			operate: operate,
			valid:   true,
		}
		for _, f := range record[4] {
			switch f {
			case 'p':
				in.PageCost = true
			case 'u':
				in.Undocumented = true
			case '-':
			default:
				return table, fmt.Errorf("invalid flag %q for opcode %s", f, record[0])
			}
		}
		table[opcodeByte] = in
	}

	return table, nil
}
