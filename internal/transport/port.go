package transport

import (
	"errors"
	"io"
)

var ErrClosed = errors.New("transport: closed")

// portTransport adapts a serial port whose Read returns 0 bytes on timeout.
// Bytes fetched by Available are kept in pending and served first by Read.
type portTransport struct {
	port    io.ReadWriteCloser
	reset   func() error
	pending []byte
	closed  bool
}

func (p *portTransport) Write(b []byte) (int, error) {
	if p.closed {
		return 0, ErrClosed
	}
	return p.port.Write(b)
}

func (p *portTransport) Read(b []byte) (int, error) {
	if p.closed {
		return 0, ErrClosed
	}
	if len(p.pending) > 0 {
		n := copy(b, p.pending)
		p.pending = p.pending[n:]
		return n, nil
	}
	n, err := p.port.Read(b)
	if n == 0 && errors.Is(err, io.EOF) {
		return 0, nil
	}
	return n, err
}

func (p *portTransport) Available() (int, error) {
	if p.closed {
		return 0, ErrClosed
	}
	if len(p.pending) > 0 {
		return len(p.pending), nil
	}
	buf := make([]byte, 256)
	n, err := p.port.Read(buf)
	if n > 0 {
		p.pending = append(p.pending, buf[:n]...)
	}
	if err != nil && !errors.Is(err, io.EOF) {
		return len(p.pending), err
	}
	return len(p.pending), nil
}

func (p *portTransport) Flush() error {
	if p.closed {
		return ErrClosed
	}
	p.pending = nil
	if p.reset == nil {
		return nil
	}
	return p.reset()
}

func (p *portTransport) Close() error {
	if p.closed {
		return nil
	}
	p.closed = true
	p.pending = nil
	return p.port.Close()
}
