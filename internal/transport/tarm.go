package transport

import (
	"fmt"

	"github.com/tarm/serial"
)

// OpenTarm opens the port with github.com/tarm/serial, 8N1.
func OpenTarm(cfg Config) (Transport, error) {
	port, err := serial.OpenPort(&serial.Config{
		Name:        cfg.Port,
		Baud:        cfg.BaudRate,
		Size:        8,
		Parity:      serial.ParityNone,
		StopBits:    serial.Stop1,
		ReadTimeout: cfg.ReadTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("transport: open %s: %w", cfg.Port, err)
	}
	return &portTransport{port: port, reset: port.Flush}, nil
}
