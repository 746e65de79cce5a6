package cpu

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newBareCPU has no memory and every flag clear, so tests can compare
// P as a whole.
func newBareCPU() *CPU {
	cpu := New(nil, WithLogger(quietLogger))
	cpu.Reg.P = 0
	return cpu
}

func immediate(v uint8) *Context {
	return &Context{
		mode: AddrModeIMM,
		read: func() (uint8, error) { return v, nil },
	}
}

// cell is a writable operand backed by a single byte.
func cell(v *uint8) *Context {
	return &Context{
		mode:  AddrModeZP,
		read:  func() (uint8, error) { return *v, nil },
		write: func(n uint8) error { *v = n; return nil },
	}
}

func Test_ADC(t *testing.T) {
	type testArgs struct {
		initA        uint8
		operandValue uint8
		initP        Status
		expectedA    uint8
		expectedP    Status
	}

	testDo := func(t *testing.T, in testArgs) {
		cpu := newBareCPU()
		cpu.Reg.A = in.initA
		cpu.Reg.P = in.initP

		require.NoError(t, cpu.adc(immediate(in.operandValue)))

		assert.Equal(t, in.expectedA, cpu.Reg.A, "A register")
		assert.Equal(t, in.expectedP, cpu.Reg.P, "P register")
	}

	t.Run("zero result, no carry", func(t *testing.T) {
		testDo(t, testArgs{
			initA:        0,
			operandValue: 0,
			expectedA:    0,
			expectedP:    Status(FlagZ),
		})
	})

	t.Run("simple addition, no carry", func(t *testing.T) {
		testDo(t, testArgs{
			initA:        0x10,
			operandValue: 0x20,
			expectedA:    0x30,
		})
	})

	t.Run("overflow with carry set", func(t *testing.T) {
		testDo(t, testArgs{
			initA:        0xff,
			operandValue: 0x1,
			expectedA:    0,
			expectedP:    Status(FlagZ | FlagC),
		})
	})

	t.Run("negative result with overflow", func(t *testing.T) {
		testDo(t, testArgs{
			initA:        0x7f,
			operandValue: 0x1,
			expectedA:    0x80,
			expectedP:    Status(FlagN | FlagV),
		})
	})

	t.Run("simple addition with overflow, result is negative", func(t *testing.T) {
		testDo(t, testArgs{
			initA:        0x50,
			operandValue: 0x50,
			expectedA:    0xa0,
			expectedP:    Status(FlagN | FlagV),
		})
	})

	t.Run("addition with carry in, result is negative", func(t *testing.T) {
		testDo(t, testArgs{
			initA:        0x50,
			operandValue: 0x50,
			initP:        Status(FlagC),
			expectedA:    0xa1,
			expectedP:    Status(FlagN | FlagV),
		})
	})

	t.Run("overflow with carry in, result is positive", func(t *testing.T) {
		testDo(t, testArgs{
			initA:        0xff,
			operandValue: 0x1,
			initP:        Status(FlagC),
			expectedA:    0x01,
			expectedP:    Status(FlagC),
		})
	})

	t.Run("negative operands overflow to positive", func(t *testing.T) {
		testDo(t, testArgs{
			initA:        0x80,
			operandValue: 0x80,
			expectedA:    0x00,
			expectedP:    Status(FlagZ | FlagC | FlagV),
		})
	})

	t.Run("decimal flag ignored when decimal mode is disabled", func(t *testing.T) {
		cpu := New(nil, WithDecimalMode(false))
		cpu.Reg.A = 0x09
		cpu.Reg.P = Status(FlagD)

		require.NoError(t, cpu.adc(immediate(0x01)))
		assert.Equal(t, uint8(0x0a), cpu.Reg.A)
	})
}

func Test_ADC_Decimal(t *testing.T) {
	type testArgs struct {
		initA        uint8
		operandValue uint8
		carry        bool
		expectedA    uint8
		expectedC    bool
	}

	testDo := func(t *testing.T, in testArgs) {
		cpu := newBareCPU()
		cpu.Reg.A = in.initA
		cpu.Reg.P = Status(FlagD)
		cpu.Reg.P.SetTo(FlagC, in.carry)

		require.NoError(t, cpu.adc(immediate(in.operandValue)))

		assert.Equal(t, in.expectedA, cpu.Reg.A, "A register")
		assert.Equal(t, in.expectedC, cpu.Reg.P.Has(FlagC), "C flag")
	}

	t.Run("digit carry", func(t *testing.T) {
		testDo(t, testArgs{initA: 0x09, operandValue: 0x01, expectedA: 0x10})
	})

	t.Run("carry in", func(t *testing.T) {
		testDo(t, testArgs{initA: 0x58, operandValue: 0x46, carry: true, expectedA: 0x05, expectedC: true})
	})

	t.Run("wraps to zero", func(t *testing.T) {
		testDo(t, testArgs{initA: 0x99, operandValue: 0x01, expectedA: 0x00, expectedC: true})
	})

	t.Run("plain", func(t *testing.T) {
		testDo(t, testArgs{initA: 0x12, operandValue: 0x34, expectedA: 0x46})
	})

	t.Run("zero flag follows the binary sum", func(t *testing.T) {
		cpu := newBareCPU()
		cpu.Reg.A = 0x99
		cpu.Reg.P = Status(FlagD)

		require.NoError(t, cpu.adc(immediate(0x01)))
		assert.Equal(t, uint8(0x00), cpu.Reg.A)
		assert.False(t, cpu.Reg.P.Has(FlagZ))
	})
}

func Test_SBC(t *testing.T) {
	type testArgs struct {
		initA        uint8
		operandValue uint8
		initP        Status
		expectedA    uint8
		expectedP    Status
	}

	testDo := func(t *testing.T, in testArgs) {
		cpu := newBareCPU()
		cpu.Reg.A = in.initA
		cpu.Reg.P = in.initP

		require.NoError(t, cpu.sbc(immediate(in.operandValue)))

		assert.Equal(t, in.expectedA, cpu.Reg.A, "A register")
		assert.Equal(t, in.expectedP, cpu.Reg.P, "P register")
	}

	t.Run("no borrow", func(t *testing.T) {
		testDo(t, testArgs{
			initA:        0x50,
			operandValue: 0x10,
			initP:        Status(FlagC),
			expectedA:    0x40,
			expectedP:    Status(FlagC),
		})
	})

	t.Run("borrow in", func(t *testing.T) {
		testDo(t, testArgs{
			initA:        0x50,
			operandValue: 0x10,
			expectedA:    0x3f,
			expectedP:    Status(FlagC),
		})
	})

	t.Run("result below zero", func(t *testing.T) {
		testDo(t, testArgs{
			initA:        0x00,
			operandValue: 0x01,
			initP:        Status(FlagC),
			expectedA:    0xff,
			expectedP:    Status(FlagN),
		})
	})

	t.Run("signed overflow", func(t *testing.T) {
		testDo(t, testArgs{
			initA:        0x80,
			operandValue: 0x01,
			initP:        Status(FlagC),
			expectedA:    0x7f,
			expectedP:    Status(FlagC | FlagV),
		})
	})

	t.Run("decimal", func(t *testing.T) {
		testDo(t, testArgs{
			initA:        0x10,
			operandValue: 0x01,
			initP:        Status(FlagC | FlagD),
			expectedA:    0x09,
			expectedP:    Status(FlagC | FlagD),
		})
	})

	t.Run("decimal with borrow below zero", func(t *testing.T) {
		testDo(t, testArgs{
			initA:        0x00,
			operandValue: 0x01,
			initP:        Status(FlagC | FlagD),
			expectedA:    0x99,
			expectedP:    Status(FlagN | FlagD),
		})
	})
}

func Test_AND(t *testing.T) {
	type testArgs struct {
		initA        uint8
		operandValue uint8
		expectedA    uint8
		expectedP    Status
	}

	testDo := func(t *testing.T, in testArgs) {
		cpu := newBareCPU()
		cpu.Reg.A = in.initA

		require.NoError(t, cpu.and(immediate(in.operandValue)))

		assert.Equal(t, in.expectedA, cpu.Reg.A, "A register")
		assert.Equal(t, in.expectedP, cpu.Reg.P, "P register")
	}

	t.Run("zero result", func(t *testing.T) {
		testDo(t, testArgs{initA: 0x0f, operandValue: 0xf0, expectedA: 0, expectedP: Status(FlagZ)})
	})

	t.Run("negative result", func(t *testing.T) {
		testDo(t, testArgs{initA: 0xf0, operandValue: 0x80, expectedA: 0x80, expectedP: Status(FlagN)})
	})

	t.Run("plain", func(t *testing.T) {
		testDo(t, testArgs{initA: 0x3c, operandValue: 0x0f, expectedA: 0x0c})
	})
}

func Test_ASL(t *testing.T) {
	type testArgs struct {
		value         uint8
		expectedValue uint8
		expectedP     Status
	}

	testDo := func(t *testing.T, in testArgs) {
		cpu := newBareCPU()
		v := in.value

		require.NoError(t, cpu.asl(cell(&v)))

		assert.Equal(t, in.expectedValue, v, "value")
		assert.Equal(t, in.expectedP, cpu.Reg.P, "P register")
	}

	t.Run("bit 7 to carry", func(t *testing.T) {
		testDo(t, testArgs{value: 0x80, expectedValue: 0, expectedP: Status(FlagZ | FlagC)})
	})

	t.Run("into bit 7", func(t *testing.T) {
		testDo(t, testArgs{value: 0x40, expectedValue: 0x80, expectedP: Status(FlagN)})
	})

	t.Run("accumulator", func(t *testing.T) {
		cpu := newBareCPU()
		cpu.Reg.A = 0x21
		ctx, err := cpu.resolve(AddrModeACC)
		require.NoError(t, err)

		require.NoError(t, cpu.asl(ctx))
		assert.Equal(t, uint8(0x42), cpu.Reg.A)
	})
}

func Test_Rotate(t *testing.T) {
	t.Run("ROL takes carry in", func(t *testing.T) {
		cpu := newBareCPU()
		cpu.Reg.P = Status(FlagC)
		v := uint8(0x80)

		require.NoError(t, cpu.rol(cell(&v)))
		assert.Equal(t, uint8(0x01), v)
		assert.Equal(t, Status(FlagC), cpu.Reg.P)
	})

	t.Run("ROR takes carry in", func(t *testing.T) {
		cpu := newBareCPU()
		cpu.Reg.P = Status(FlagC)
		v := uint8(0x01)

		require.NoError(t, cpu.ror(cell(&v)))
		assert.Equal(t, uint8(0x80), v)
		assert.Equal(t, Status(FlagC|FlagN), cpu.Reg.P)
	})

	t.Run("LSR clears N", func(t *testing.T) {
		cpu := newBareCPU()
		cpu.Reg.P = Status(FlagN)
		v := uint8(0xff)

		require.NoError(t, cpu.lsr(cell(&v)))
		assert.Equal(t, uint8(0x7f), v)
		assert.Equal(t, Status(FlagC), cpu.Reg.P)
	})
}

func Test_ModifyWriteFailure(t *testing.T) {
	errWrite := errors.New("write failed")
	cpu := newBareCPU()
	ctx := &Context{
		mode:  AddrModeABS,
		read:  func() (uint8, error) { return 0x80, nil },
		write: func(uint8) error { return errWrite },
	}

	err := cpu.asl(ctx)
	assert.ErrorIs(t, err, errWrite)
	assert.Equal(t, Status(0), cpu.Reg.P)
}

func Test_Compare(t *testing.T) {
	type testArgs struct {
		reg          uint8
		operandValue uint8
		expectedP    Status
	}

	testDo := func(t *testing.T, in testArgs) {
		cpu := newBareCPU()
		cpu.Reg.A = in.reg
		require.NoError(t, cpu.cmp(immediate(in.operandValue)))
		assert.Equal(t, in.expectedP, cpu.Reg.P, "CMP")

		cpu = newBareCPU()
		cpu.Reg.X = in.reg
		require.NoError(t, cpu.cpx(immediate(in.operandValue)))
		assert.Equal(t, in.expectedP, cpu.Reg.P, "CPX")

		cpu = newBareCPU()
		cpu.Reg.Y = in.reg
		require.NoError(t, cpu.cpy(immediate(in.operandValue)))
		assert.Equal(t, in.expectedP, cpu.Reg.P, "CPY")
	}

	t.Run("equal", func(t *testing.T) {
		testDo(t, testArgs{reg: 0x40, operandValue: 0x40, expectedP: Status(FlagZ | FlagC)})
	})

	t.Run("greater", func(t *testing.T) {
		testDo(t, testArgs{reg: 0x41, operandValue: 0x40, expectedP: Status(FlagC)})
	})

	t.Run("less", func(t *testing.T) {
		testDo(t, testArgs{reg: 0x40, operandValue: 0x41, expectedP: Status(FlagN)})
	})
}

func Test_BIT(t *testing.T) {
	cpu := newBareCPU()
	cpu.Reg.A = 0x01

	require.NoError(t, cpu.bit(immediate(0xc0)))
	assert.Equal(t, Status(FlagZ|FlagV|FlagN), cpu.Reg.P)

	require.NoError(t, cpu.bit(immediate(0x01)))
	assert.Equal(t, Status(0), cpu.Reg.P)
	assert.Equal(t, uint8(0x01), cpu.Reg.A)
}

func Test_Loads(t *testing.T) {
	t.Run("LDA", func(t *testing.T) {
		cpu := newBareCPU()
		require.NoError(t, cpu.lda(immediate(0x00)))
		assert.Equal(t, Status(FlagZ), cpu.Reg.P)
	})

	t.Run("LDX", func(t *testing.T) {
		cpu := newBareCPU()
		require.NoError(t, cpu.ldx(immediate(0x80)))
		assert.Equal(t, uint8(0x80), cpu.Reg.X)
		assert.Equal(t, Status(FlagN), cpu.Reg.P)
	})

	t.Run("LDY sets flags from Y", func(t *testing.T) {
		cpu := newBareCPU()
		cpu.Reg.A = 0x80
		require.NoError(t, cpu.ldy(immediate(0x00)))
		assert.Equal(t, Status(FlagZ), cpu.Reg.P)

		require.NoError(t, cpu.ldy(immediate(0x90)))
		assert.Equal(t, Status(FlagN), cpu.Reg.P)
	})
}

func Test_Transfers(t *testing.T) {
	t.Run("TXS leaves flags alone", func(t *testing.T) {
		cpu := newBareCPU()
		cpu.Reg.P = 0
		cpu.Reg.X = 0x00
		require.NoError(t, cpu.txs(nil))
		assert.Equal(t, uint8(0x00), cpu.Reg.SP)
		assert.Equal(t, Status(0), cpu.Reg.P)
	})

	t.Run("TSX sets flags", func(t *testing.T) {
		cpu := newBareCPU()
		cpu.Reg.P = 0
		cpu.Reg.SP = 0xf0
		require.NoError(t, cpu.tsx(nil))
		assert.Equal(t, uint8(0xf0), cpu.Reg.X)
		assert.Equal(t, Status(FlagN), cpu.Reg.P)
	})
}

func Test_Undocumented(t *testing.T) {
	t.Run("DCP", func(t *testing.T) {
		cpu := newBareCPU()
		cpu.Reg.A = 0x10
		v := uint8(0x11)
		require.NoError(t, cpu.dcp(cell(&v)))
		assert.Equal(t, uint8(0x10), v)
		assert.Equal(t, Status(FlagZ|FlagC), cpu.Reg.P)
	})

	t.Run("ISC", func(t *testing.T) {
		cpu := newBareCPU()
		cpu.Reg.A = 0x10
		cpu.Reg.P = Status(FlagC)
		v := uint8(0x0f)
		require.NoError(t, cpu.isc(cell(&v)))
		assert.Equal(t, uint8(0x10), v)
		assert.Equal(t, uint8(0x00), cpu.Reg.A)
		assert.Equal(t, Status(FlagZ|FlagC), cpu.Reg.P)
	})

	t.Run("SLO", func(t *testing.T) {
		cpu := newBareCPU()
		cpu.Reg.A = 0x01
		v := uint8(0x81)
		require.NoError(t, cpu.slo(cell(&v)))
		assert.Equal(t, uint8(0x02), v)
		assert.Equal(t, uint8(0x03), cpu.Reg.A)
		assert.Equal(t, Status(FlagC), cpu.Reg.P)
	})

	t.Run("RLA", func(t *testing.T) {
		cpu := newBareCPU()
		cpu.Reg.A = 0xff
		cpu.Reg.P = Status(FlagC)
		v := uint8(0x40)
		require.NoError(t, cpu.rla(cell(&v)))
		assert.Equal(t, uint8(0x81), v)
		assert.Equal(t, uint8(0x81), cpu.Reg.A)
		assert.Equal(t, Status(FlagN), cpu.Reg.P)
	})

	t.Run("SRE", func(t *testing.T) {
		cpu := newBareCPU()
		cpu.Reg.A = 0x0f
		v := uint8(0x03)
		require.NoError(t, cpu.sre(cell(&v)))
		assert.Equal(t, uint8(0x01), v)
		assert.Equal(t, uint8(0x0e), cpu.Reg.A)
		assert.Equal(t, Status(FlagC), cpu.Reg.P)
	})

	t.Run("RRA", func(t *testing.T) {
		cpu := newBareCPU()
		cpu.Reg.A = 0x10
		v := uint8(0x03)
		require.NoError(t, cpu.rra(cell(&v)))
		assert.Equal(t, uint8(0x01), v)
		// the carry shifted out of the operand feeds the addition
		assert.Equal(t, uint8(0x12), cpu.Reg.A)
		assert.Equal(t, Status(0), cpu.Reg.P)
	})

	t.Run("SAX", func(t *testing.T) {
		cpu := newBareCPU()
		cpu.Reg.A = 0xf0
		cpu.Reg.X = 0x3c
		v := uint8(0)
		require.NoError(t, cpu.sax(cell(&v)))
		assert.Equal(t, uint8(0x30), v)
	})

	t.Run("ANC", func(t *testing.T) {
		cpu := newBareCPU()
		cpu.Reg.A = 0xff
		require.NoError(t, cpu.anc(immediate(0x80)))
		assert.Equal(t, Status(FlagN|FlagC), cpu.Reg.P)
	})

	t.Run("ALR", func(t *testing.T) {
		cpu := newBareCPU()
		cpu.Reg.A = 0xff
		require.NoError(t, cpu.alr(immediate(0x03)))
		assert.Equal(t, uint8(0x01), cpu.Reg.A)
		assert.Equal(t, Status(FlagC), cpu.Reg.P)
	})

	t.Run("SBX", func(t *testing.T) {
		cpu := newBareCPU()
		cpu.Reg.A = 0x0f
		cpu.Reg.X = 0xff
		require.NoError(t, cpu.sbx(immediate(0x10)))
		assert.Equal(t, uint8(0xff), cpu.Reg.X)
		assert.Equal(t, Status(FlagN), cpu.Reg.P)
	})

	t.Run("LAS", func(t *testing.T) {
		cpu := newBareCPU()
		cpu.Reg.SP = 0xf3
		require.NoError(t, cpu.las(immediate(0x3f)))
		assert.Equal(t, uint8(0x33), cpu.Reg.A)
		assert.Equal(t, uint8(0x33), cpu.Reg.X)
		assert.Equal(t, uint8(0x33), cpu.Reg.SP)
	})

	t.Run("JAM", func(t *testing.T) {
		cpu := newBareCPU()
		assert.ErrorIs(t, cpu.jam(nil), ErrJammed)
	})
}
