package session

import (
	"fmt"

	"github.com/danmuck/s3200ctl/internal/protocol"
	"github.com/danmuck/s3200ctl/internal/protocol/codec"
	"github.com/danmuck/s3200ctl/internal/protocol/frame"
	"github.com/rs/zerolog/log"
)

// ByteSource is the read half of a transport. Read returns 0, nil when the
// line stays silent for the read timeout.
type ByteSource interface {
	Read(p []byte) (int, error)
	Available() (int, error)
}

type phase int

const (
	phaseStart phase = iota
	phaseLength
	phaseBody
	phaseDone
)

func (p phase) String() string {
	switch p {
	case phaseStart:
		return "receiving_start"
	case phaseLength:
		return "receiving_length"
	case phaseBody:
		return "receiving_body"
	case phaseDone:
		return "complete"
	default:
		return "unknown"
	}
}

// Reader pulls one raw frame at a time off a ByteSource without buffering
// past the frame end.
type Reader struct {
	src   ByteSource
	phase phase
	raw   []byte
	one   [1]byte
}

func NewReader(src ByteSource) *Reader {
	return &Reader{src: src}
}

// ReadFrame returns the still-escaped bytes of the next frame, start marker
// included, ready for frame.Decode.
func (r *Reader) ReadFrame() ([]byte, error) {
	r.raw = nil
	r.enter(phaseStart)
	for i := 0; i < len(frame.StartMarker); i++ {
		ok, err := r.readByte()
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
	}
	avail, err := r.src.Available()
	if err != nil {
		return nil, r.transportErr(err)
	}
	if avail == 0 {
		return nil, protocol.ErrNothingToRead
	}
	if len(r.raw) < len(frame.StartMarker) {
		return nil, r.truncated()
	}

	r.enter(phaseLength)
	mark := len(r.raw)
	if err := r.readLogical(frame.LengthLen); err != nil {
		return nil, err
	}
	lengthBytes, err := codec.Unescape(r.raw[mark:])
	if err != nil {
		return nil, err
	}
	length, err := codec.ShortToInt(lengthBytes)
	if err != nil {
		return nil, protocol.FramingError{Reason: err.Error(), Raw: r.copyRaw()}
	}

	r.enter(phaseBody)
	if err := r.readLogical(length + frame.ChecksumLen); err != nil {
		return nil, err
	}

	r.enter(phaseDone)
	return r.copyRaw(), nil
}

// readLogical reads n unescaped bytes worth of input; an escape identifier
// pulls its second byte along.
func (r *Reader) readLogical(n int) error {
	for i := 0; i < n; i++ {
		ok, err := r.readByte()
		if err != nil {
			return err
		}
		if !ok {
			return r.truncated()
		}
		if !codec.IsEscapeIdentifier(r.raw[len(r.raw)-1]) {
			continue
		}
		ok, err = r.readByte()
		if err != nil {
			return err
		}
		if !ok {
			return r.truncated()
		}
	}
	return nil
}

// readByte appends one byte to raw. It reports false on a read timeout.
func (r *Reader) readByte() (bool, error) {
	n, err := r.src.Read(r.one[:])
	if n == 1 {
		r.raw = append(r.raw, r.one[0])
		return true, nil
	}
	if err != nil {
		return false, r.transportErr(err)
	}
	return false, nil
}

func (r *Reader) enter(p phase) {
	r.phase = p
	log.Debug().Str("phase", p.String()).Int("read", len(r.raw)).Msg("session: reader")
}

func (r *Reader) truncated() error {
	return protocol.FramingError{
		Reason: fmt.Sprintf("truncated frame while %s", r.phase),
		Raw:    r.copyRaw(),
	}
}

func (r *Reader) transportErr(err error) error {
	return fmt.Errorf("session: read while %s: %w", r.phase, err)
}

func (r *Reader) copyRaw() []byte {
	out := make([]byte, len(r.raw))
	copy(out, r.raw)
	return out
}
