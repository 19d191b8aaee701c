package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/danmuck/s3200ctl/internal/observability"
	"github.com/danmuck/s3200ctl/internal/protocol"
	"github.com/danmuck/s3200ctl/internal/protocol/codec"
	"github.com/danmuck/s3200ctl/internal/protocol/frame"
	"github.com/danmuck/s3200ctl/internal/transport"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// ErrOpen wraps failures to open the transport.
var ErrOpen = errors.New("session: open transport")

// Client runs half-duplex transactions. Every transaction opens its own
// transport and closes it before returning; nothing is kept between calls.
type Client struct {
	open transport.Opener
	cfg  Config
}

func NewClient(open transport.Opener, cfg Config) *Client {
	return &Client{open: open, cfg: cfg.withDefaults()}
}

func (c *Client) Config() Config {
	return c.cfg
}

// Send builds a single-opcode frame and returns its one answer.
func (c *Client) Send(command byte, payload []byte) (frame.Frame, error) {
	return c.SendFrame(frame.Command(command, payload))
}

// SendFrame sends f and reads exactly one answer frame.
func (c *Client) SendFrame(f frame.Frame) (frame.Frame, error) {
	answers, err := c.SendFrameN(f, 1)
	if err != nil {
		return frame.Frame{}, err
	}
	return answers[0], nil
}

// SendFrameN sends f and reads n answer frames. A read that fails before n
// frames arrive flushes the line and returns WrongAnswerCountError; decode
// failures are returned as they are.
func (c *Client) SendFrameN(f frame.Frame, n int) (answers []frame.Frame, err error) {
	if n < 1 {
		return nil, fmt.Errorf("session: expected answer count must be positive, got %d", n)
	}
	raw, err := frame.Encode(f)
	if err != nil {
		return nil, err
	}

	started := time.Now()
	logger := log.With().Str("cmd", codec.Hex(f.Command())).Logger()
	defer func() {
		observability.RecordTransaction(f.Opcode(), outcome(err), time.Since(started))
	}()

	logTransition(logger, "idle", nil)
	tr, err := c.open()
	if err != nil {
		logTransition(logger, "failed", err)
		return nil, fmt.Errorf("%w: %w", ErrOpen, err)
	}
	defer func() {
		if cerr := tr.Close(); cerr != nil {
			logger.Warn().Err(cerr).Msg("session: close transport")
			if err == nil {
				err = fmt.Errorf("session: close transport: %w", cerr)
				answers = nil
			}
		}
	}()

	logTransition(logger, "sending", nil)
	logger.Debug().Str("raw", codec.Hex(raw)).Msg("session: write")
	if _, err := tr.Write(raw); err != nil {
		logTransition(logger, "failed", err)
		return nil, fmt.Errorf("session: write: %w", err)
	}

	reader := NewReader(tr)
	answers = make([]frame.Frame, 0, n)
	for i := 0; i < n; i++ {
		rawAnswer, rerr := reader.ReadFrame()
		if rerr != nil {
			if ferr := tr.Flush(); ferr != nil {
				logger.Warn().Err(ferr).Msg("session: flush input")
			}
			logTransition(logger, "failed", rerr)
			return nil, protocol.WrongAnswerCountError{Expected: n, Got: len(answers), Err: rerr}
		}
		answer, derr := frame.Decode(rawAnswer)
		if derr != nil {
			logger.Warn().Err(derr).Str("raw", codec.Hex(rawAnswer)).Msg("session: discard answer")
			logTransition(logger, "failed", derr)
			return nil, derr
		}
		logger.Debug().Stringer("answer", answer).Msg("session: read")
		answers = append(answers, answer)
	}
	logTransition(logger, "complete", nil)
	return answers, nil
}

func logTransition(logger zerolog.Logger, state string, err error) {
	event := logger.Debug().Str("state", state)
	if err != nil {
		event = event.Err(err)
	}
	event.Msg("session: transaction")
}

func outcome(err error) string {
	var (
		checksum protocol.ChecksumError
		framing  protocol.FramingError
	)
	switch {
	case err == nil:
		return observability.OutcomeOK
	case errors.As(err, &checksum):
		return observability.OutcomeChecksum
	case errors.Is(err, protocol.ErrNothingToRead):
		return observability.OutcomeNoAnswer
	case errors.As(err, &framing):
		return observability.OutcomeFraming
	case errors.Is(err, ErrOpen):
		return observability.OutcomeOpenFailure
	default:
		return observability.OutcomeTransport
	}
}
