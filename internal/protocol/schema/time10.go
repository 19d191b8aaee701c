package schema

import (
	"encoding/json"
	"fmt"
	"strconv"
)

const (
	time10Unset = 255
	time10Max   = 240
)

// Time10 is a time slot boundary stored as hours followed by one digit of
// tens of minutes: 150 is 15:00, 55 is 05:50.
type Time10 struct {
	Hour   int
	Minute int
}

func (t Time10) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

func (t Time10) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// ParseTime10 converts the raw value. 255 means unset and yields nil.
func ParseTime10(v int) (*Time10, error) {
	if v == time10Unset {
		return nil, nil
	}
	if v < 0 || v > time10Max {
		return nil, fmt.Errorf("time10 value %d outside [0, %d]", v, time10Max)
	}
	digits := strconv.Itoa(v)
	hour := 0
	if len(digits) > 1 {
		h, err := strconv.Atoi(digits[:len(digits)-1])
		if err != nil {
			return nil, err
		}
		hour = h
	}
	tens := int(digits[len(digits)-1] - '0')
	return &Time10{Hour: hour, Minute: tens * 10}, nil
}
