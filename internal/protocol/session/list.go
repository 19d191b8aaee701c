package session

import (
	"fmt"

	"github.com/danmuck/s3200ctl/internal/observability"
	"github.com/danmuck/s3200ctl/internal/protocol"
	"github.com/danmuck/s3200ctl/internal/protocol/frame"
	"github.com/rs/zerolog/log"
)

var (
	// EndOfList is the answer payload that terminates a paginated list.
	EndOfList = []byte{0x00}
	// Placeholder answers carry no item but do not end the list.
	Placeholder = []byte{0x01}
)

// GetList collects a paginated list: start is sent with an empty payload,
// then next with the continuation payload until the device answers
// EndOfList. Placeholder answers are skipped.
func (c *Client) GetList(start, next byte) (items []frame.Frame, err error) {
	defer func() {
		observability.RecordList(start, len(items), err == nil)
	}()

	limit := c.cfg.MaxListItems
	answer, err := c.Send(start, nil)
	if err != nil {
		return nil, fmt.Errorf("session: list %02X first item: %w", start, err)
	}

	placeholders := 0
	for !answer.PayloadEquals(EndOfList) {
		if answer.PayloadEquals(Placeholder) {
			placeholders++
			log.Debug().Int("placeholders", placeholders).Msg("session: list placeholder skipped")
			if placeholders > limit {
				return nil, protocol.ListOverflowError{Max: limit}
			}
		} else {
			placeholders = 0
			items = append(items, answer)
			if len(items) > limit {
				return nil, protocol.ListOverflowError{Max: limit}
			}
		}

		answer, err = c.Send(next, c.cfg.ContinuationPayload)
		if err != nil {
			return nil, fmt.Errorf("session: list %02X item %d: %w", next, len(items), err)
		}
	}
	log.Debug().Int("items", len(items)).Msgf("session: list %02X complete", start)
	return items, nil
}
