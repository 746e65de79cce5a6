package cpu

import "log"

type Option func(*CPU)

// WithDecimalMode controls whether ADC and SBC honour the D flag. The
// NES 2A03 is a 6502 with decimal mode removed.
func WithDecimalMode(enabled bool) Option {
	return func(c *CPU) {
		c.decimal = enabled
	}
}

// WithUndocumented enables the undocumented NMOS opcodes. When disabled
// they fail with ErrUnknownOpcode.
func WithUndocumented(enabled bool) Option {
	return func(c *CPU) {
		c.undocumented = enabled
	}
}

// WithPreserveCycles keeps the cycle counter running across Reset.
func WithPreserveCycles(enabled bool) Option {
	return func(c *CPU) {
		c.preserveCycles = enabled
	}
}

func WithLogger(logger *log.Logger) Option {
	return func(c *CPU) {
		c.log = logger
	}
}
