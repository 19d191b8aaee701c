// Package transport provides the byte-level serial link used by the session
// layer: real serial drivers and an in-memory simulator.
package transport

import (
	"fmt"
	"io"
	"strings"
	"time"
)

// Transport is one open connection to the device.
//
// Read blocks until at least one byte arrives or the read timeout expires;
// on timeout it returns 0, nil. Available reports how many bytes can be read
// without waiting longer than the read timeout.
type Transport interface {
	io.ReadWriter
	Available() (int, error)
	Flush() error
	Close() error
}

// Opener opens a fresh Transport for one transaction.
type Opener func() (Transport, error)

const (
	DriverBugst = "bugst"
	DriverTarm  = "tarm"
	DriverSim   = "sim"
)

// Config describes the serial line.
type Config struct {
	Port        string
	Driver      string
	BaudRate    int
	ReadTimeout time.Duration
}

func DefaultConfig() Config {
	return Config{
		Port:        "/dev/ttyAMA0",
		Driver:      DriverBugst,
		BaudRate:    57600,
		ReadTimeout: 3 * time.Second,
	}
}

func (c Config) Validate() error {
	switch c.Driver {
	case DriverBugst, DriverTarm, DriverSim:
	default:
		return fmt.Errorf("transport: unknown driver %q", c.Driver)
	}
	if c.Driver != DriverSim && strings.TrimSpace(c.Port) == "" {
		return fmt.Errorf("transport: port is required")
	}
	if c.BaudRate <= 0 {
		return fmt.Errorf("transport: invalid baud rate %d", c.BaudRate)
	}
	if c.ReadTimeout <= 0 {
		return fmt.Errorf("transport: read timeout must be positive")
	}
	return nil
}

// NewOpener returns an Opener for the configured driver. The simulator
// driver answers from DefaultRules.
func NewOpener(cfg Config) (Opener, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch cfg.Driver {
	case DriverTarm:
		return func() (Transport, error) { return OpenTarm(cfg) }, nil
	case DriverSim:
		sim := NewSimulator(DefaultRules()...)
		return sim.Opener(), nil
	default:
		return func() (Transport, error) { return OpenBugst(cfg) }, nil
	}
}
