package transport

import (
	"bytes"
	"fmt"
	"regexp"
	"sync"

	"github.com/danmuck/s3200ctl/internal/protocol/codec"
	"github.com/danmuck/s3200ctl/internal/protocol/frame"
)

// Rule answers a request whose decoded command and payload, rendered as hex
// ("30 00 62"), match Pattern. Matches walk through Replies in order and wrap around. Echo
// answers with the request bytes instead.
type Rule struct {
	Pattern *regexp.Regexp
	Replies [][]byte
	Echo    bool

	hits int
}

// Reply builds a rule answering with fixed raw replies.
func Reply(pattern string, replies ...[]byte) Rule {
	return Rule{Pattern: regexp.MustCompile(pattern), Replies: replies}
}

// Echo builds a rule that sends the request back.
func Echo(pattern string) Rule {
	return Rule{Pattern: regexp.MustCompile(pattern), Echo: true}
}

// Opcode matches any request frame carrying op.
func Opcode(op byte) string {
	return fmt.Sprintf("^%02X", op)
}

// MustFrame encodes a reply frame and panics on an empty command.
func MustFrame(op byte, payload []byte) []byte {
	raw, err := frame.Encode(frame.Command(op, payload))
	if err != nil {
		panic(err)
	}
	return raw
}

// Simulator is an in-memory device. Opening it resets the line buffers but
// keeps rule progress, like a real device that stays powered between
// connections.
type Simulator struct {
	mu      sync.Mutex
	rules   []*Rule
	in      []byte
	out     []byte
	written [][]byte
	opens   int
	closes  int
	flushes int
	open    bool
	openErr error
}

func NewSimulator(rules ...Rule) *Simulator {
	s := &Simulator{}
	for i := range rules {
		r := rules[i]
		s.rules = append(s.rules, &r)
	}
	return s
}

// FailOpen makes the next openings fail with err (nil clears it).
func (s *Simulator) FailOpen(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.openErr = err
}

// Opener returns an Opener that hands out this simulator.
func (s *Simulator) Opener() Opener {
	return func() (Transport, error) {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.openErr != nil {
			return nil, s.openErr
		}
		s.opens++
		s.open = true
		s.in = nil
		s.out = nil
		return s, nil
	}
}

func (s *Simulator) Write(b []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.open {
		return 0, ErrClosed
	}
	s.out = append(s.out, b...)
	s.written = append(s.written, bytes.Clone(b))
	s.process()
	return len(b), nil
}

func (s *Simulator) Read(b []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.open {
		return 0, ErrClosed
	}
	n := copy(b, s.in)
	s.in = s.in[n:]
	return n, nil
}

func (s *Simulator) Available() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.open {
		return 0, ErrClosed
	}
	return len(s.in), nil
}

func (s *Simulator) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flushes++
	s.in = nil
	return nil
}

func (s *Simulator) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closes++
	s.open = false
	s.in = nil
	s.out = nil
	return nil
}

func (s *Simulator) Opens() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.opens
}

func (s *Simulator) Closes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closes
}

func (s *Simulator) Flushes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flushes
}

// Written returns every buffer passed to Write, in order.
func (s *Simulator) Written() [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([][]byte, len(s.written))
	for i, w := range s.written {
		out[i] = bytes.Clone(w)
	}
	return out
}

// Pending returns the unread answer bytes.
func (s *Simulator) Pending() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return bytes.Clone(s.in)
}

// process answers once s.out holds a complete request frame. Rules see the
// unescaped view so escaped length bytes cannot shift the opcode.
func (s *Simulator) process() {
	f, err := frame.Decode(s.out)
	if err != nil {
		return
	}
	raw := s.out
	s.out = nil
	request := codec.Hex(append(f.Command(), f.Payload()...))
	for _, r := range s.rules {
		if !r.Pattern.MatchString(request) {
			continue
		}
		var answer []byte
		switch {
		case r.Echo:
			answer = raw
		case len(r.Replies) > 0:
			answer = r.Replies[r.hits%len(r.Replies)]
		}
		r.hits++
		s.in = append(s.in, answer...)
		return
	}
}
