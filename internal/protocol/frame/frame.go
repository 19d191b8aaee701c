package frame

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/danmuck/s3200ctl/internal/protocol"
	"github.com/danmuck/s3200ctl/internal/protocol/codec"
)

const (
	LengthLen   = 2
	ChecksumLen = 1
	// CommandLen is the size of every opcode in the device command set.
	CommandLen = 1
)

// StartMarker opens every frame and is never escaped.
var StartMarker = [2]byte{0x02, 0xFD}

var ErrEmptyCommand = errors.New("frame: command must not be empty")

// Frame is one complete protocol message. It is immutable once built.
type Frame struct {
	command []byte
	payload []byte
}

// New builds a frame, copying command and payload.
func New(command, payload []byte) (Frame, error) {
	if len(command) == 0 {
		return Frame{}, ErrEmptyCommand
	}
	return Frame{command: bytes.Clone(command), payload: bytes.Clone(payload)}, nil
}

// Command builds a frame for a single-byte opcode.
func Command(op byte, payload []byte) Frame {
	return Frame{command: []byte{op}, payload: bytes.Clone(payload)}
}

func (f Frame) Command() []byte {
	return bytes.Clone(f.command)
}

// Opcode returns the first command byte.
func (f Frame) Opcode() byte {
	if len(f.command) == 0 {
		return 0
	}
	return f.command[0]
}

func (f Frame) Payload() []byte {
	return bytes.Clone(f.payload)
}

// PayloadEquals reports whether the payload is exactly b.
func (f Frame) PayloadEquals(b []byte) bool {
	return bytes.Equal(f.payload, b)
}

func (f Frame) Equal(o Frame) bool {
	return bytes.Equal(f.command, o.command) && bytes.Equal(f.payload, o.payload)
}

func (f Frame) String() string {
	return fmt.Sprintf("cmd=%s payload=%s", codec.Hex(f.command), codec.Hex(f.payload))
}

// Encode serializes f: START | escape(LENGTH COMMAND PAYLOAD CHECKSUM).
func Encode(f Frame) ([]byte, error) {
	if len(f.command) == 0 {
		return nil, ErrEmptyCommand
	}
	bodyLen := len(f.command) + len(f.payload)
	length, err := codec.IntToShort(bodyLen)
	if err != nil {
		return nil, fmt.Errorf("frame: body too large: %w", err)
	}

	plain := make([]byte, 0, len(StartMarker)+LengthLen+bodyLen+ChecksumLen)
	plain = append(plain, StartMarker[:]...)
	plain = append(plain, length...)
	plain = append(plain, f.command...)
	plain = append(plain, f.payload...)
	plain = append(plain, codec.Checksum(plain))

	out := make([]byte, 0, len(plain)+8)
	out = append(out, StartMarker[:]...)
	out = append(out, codec.Escape(plain[len(StartMarker):])...)
	return out, nil
}

// Decode parses one raw (escaped) frame.
func Decode(raw []byte) (Frame, error) {
	if len(raw) < len(StartMarker) || raw[0] != StartMarker[0] || raw[1] != StartMarker[1] {
		return Frame{}, protocol.FramingError{Reason: "start marker mismatch", Raw: raw}
	}
	rest, err := codec.Unescape(raw[len(StartMarker):])
	if err != nil {
		return Frame{}, err
	}
	if len(rest) < LengthLen+CommandLen+ChecksumLen {
		return Frame{}, protocol.FramingError{Reason: "frame too short", Raw: raw}
	}
	length, err := codec.ShortToInt(rest[:LengthLen])
	if err != nil {
		return Frame{}, err
	}
	if length < CommandLen {
		return Frame{}, protocol.FramingError{Reason: "length leaves no room for a command", Raw: raw}
	}
	if len(rest) != LengthLen+length+ChecksumLen {
		return Frame{}, protocol.FramingError{
			Reason: fmt.Sprintf("length %d does not match body of %d bytes", length, len(rest)-LengthLen-ChecksumLen),
			Raw:    raw,
		}
	}

	bodyEnd := LengthLen + length
	plain := make([]byte, 0, len(StartMarker)+bodyEnd)
	plain = append(plain, StartMarker[:]...)
	plain = append(plain, rest[:bodyEnd]...)
	received := rest[bodyEnd]
	if computed := codec.Checksum(plain); computed != received {
		return Frame{}, protocol.ChecksumError{Received: received, Computed: computed, Raw: bytes.Clone(raw)}
	}

	return Frame{
		command: bytes.Clone(rest[LengthLen : LengthLen+CommandLen]),
		payload: bytes.Clone(rest[LengthLen+CommandLen : bodyEnd]),
	}, nil
}
