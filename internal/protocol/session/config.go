package session

import "bytes"

// Config defines list retrieval limits.
type Config struct {
	// MaxListItems bounds collected items and consecutive placeholders.
	MaxListItems int
	// ContinuationPayload is sent with every "get next" request.
	ContinuationPayload []byte
}

// DefaultConfig returns the limits used by the controller firmware tools.
func DefaultConfig() Config {
	return Config{
		MaxListItems:        500,
		ContinuationPayload: []byte{0x01},
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.MaxListItems <= 0 {
		c.MaxListItems = def.MaxListItems
	}
	if len(c.ContinuationPayload) == 0 {
		c.ContinuationPayload = def.ContinuationPayload
	}
	c.ContinuationPayload = bytes.Clone(c.ContinuationPayload)
	return c
}
