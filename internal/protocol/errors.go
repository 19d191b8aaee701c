package protocol

import (
	"errors"
	"fmt"
)

var (
	// ErrNothingToRead reports a silent device: no byte followed the start marker.
	ErrNothingToRead  = errors.New("protocol: nothing to read")
	ErrUnknownCommand = errors.New("protocol: unknown command")
	ErrUnknownValue   = errors.New("protocol: unknown value")
	ErrReadonly       = errors.New("protocol: device opened readonly")
)

// ChecksumError is returned when the received checksum differs from the one
// computed over the unescaped frame.
type ChecksumError struct {
	Received byte
	Computed byte
	Raw      []byte
}

func (e ChecksumError) Error() string {
	return fmt.Sprintf("protocol: checksum mismatch received=%02X computed=%02X raw=% X", e.Received, e.Computed, e.Raw)
}

// FramingError reports a start marker or structural mismatch.
type FramingError struct {
	Reason string
	Raw    []byte
}

func (e FramingError) Error() string {
	if len(e.Raw) == 0 {
		return "protocol: framing: " + e.Reason
	}
	return fmt.Sprintf("protocol: framing: %s raw=% X", e.Reason, e.Raw)
}

// WrongAnswerCountError is returned when a transaction could not collect the
// requested number of answer frames.
type WrongAnswerCountError struct {
	Expected int
	Got      int
	Err      error
}

func (e WrongAnswerCountError) Error() string {
	return fmt.Sprintf("protocol: expected %d answer frame(s), got %d: %v", e.Expected, e.Got, e.Err)
}

func (e WrongAnswerCountError) Unwrap() error {
	return e.Err
}

// ListOverflowError trips when a paginated list never reaches its sentinel.
type ListOverflowError struct {
	Max int
}

func (e ListOverflowError) Error() string {
	return fmt.Sprintf("protocol: list exceeded %d items without end marker", e.Max)
}

// DecodeError reports a malformed field value.
type DecodeError struct {
	Layout string
	Field  string
	Reason string
	Err    error
}

func (e DecodeError) Error() string {
	msg := fmt.Sprintf("protocol: decode %s.%s: %s", e.Layout, e.Field, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e DecodeError) Unwrap() error {
	return e.Err
}

// ReferenceError reports a decoded value missing from its lookup table.
type ReferenceError struct {
	Layout    string
	Field     string
	Reference string
	Key       string
}

func (e ReferenceError) Error() string {
	return fmt.Sprintf("protocol: %s.%s: key %s not in reference %q", e.Layout, e.Field, e.Key, e.Reference)
}

// RangeError is returned for integers outside the representable short range.
type RangeError struct {
	Value int
	Min   int
	Max   int
}

func (e RangeError) Error() string {
	return fmt.Sprintf("protocol: value %d outside [%d, %d]", e.Value, e.Min, e.Max)
}

// LengthError is returned when a short is unpacked from a buffer of the wrong size.
type LengthError struct {
	Got int
}

func (e LengthError) Error() string {
	return fmt.Sprintf("protocol: short needs 1 or 2 bytes, got %d", e.Got)
}
