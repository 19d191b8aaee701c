package schema

import (
	"bytes"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/danmuck/s3200ctl/internal/observability"
	"github.com/danmuck/s3200ctl/internal/protocol"
	"github.com/danmuck/s3200ctl/internal/protocol/codec"
	"golang.org/x/text/encoding/charmap"
)

var codepages = map[string]*charmap.Charmap{
	"windows-1252": charmap.Windows1252,
	"cp1252":       charmap.Windows1252,
	"iso-8859-1":   charmap.ISO8859_1,
	"latin1":       charmap.ISO8859_1,
	"iso-8859-15":  charmap.ISO8859_15,
	"latin9":       charmap.ISO8859_15,
	"cp850":        charmap.CodePage850,
	"cp437":        charmap.CodePage437,
}

// Codepage resolves a code page name. An empty name selects DefaultCodepage.
func Codepage(name string) (*charmap.Charmap, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		key = DefaultCodepage
	}
	cm, ok := codepages[key]
	if !ok {
		return nil, fmt.Errorf("unknown code page %q", name)
	}
	return cm, nil
}

// Decode converts payload into a record following layout. The first failing
// field aborts decoding; no partial record is returned.
func Decode(payload []byte, layout Layout) (Record, error) {
	rec := newRecord(layout.name, len(layout.fields))
	for _, f := range layout.fields {
		v, err := decodeField(payload, layout.name, f)
		if err != nil {
			observability.RecordDecodeError(layout.name)
			return Record{}, err
		}
		rec.set(f.Name, v)
	}
	return rec, nil
}

func decodeField(payload []byte, layout string, f Field) (any, error) {
	start, end := bounds(f, len(payload))
	slice := payload[start:end]

	fail := func(reason string, err error) error {
		return protocol.DecodeError{Layout: layout, Field: f.Name, Reason: reason, Err: err}
	}

	var v any
	switch f.Kind {
	case KindShort:
		n, err := codec.ShortToInt(slice)
		if err != nil {
			return nil, fail("short", err)
		}
		v = n
	case KindBytes:
		v = bytes.Clone(slice)
	case KindString:
		s, err := decodeString(slice, f.Codepage)
		if err != nil {
			return nil, fail("string", err)
		}
		v = s
	case KindDateTime:
		t, err := decodeDateTime(slice)
		if err != nil {
			return nil, fail("datetime", err)
		}
		v = t
	case KindFlag:
		if f.Bit >= len(slice)*8 {
			return nil, fail(fmt.Sprintf("bit %d outside %d-byte slice", f.Bit, len(slice)), nil)
		}
		v = slice[f.Bit/8]&(0x80>>(f.Bit%8)) != 0
	case KindTime10:
		n, err := codec.ShortToInt(slice)
		if err != nil {
			return nil, fail("time10", err)
		}
		t, err := ParseTime10(n)
		if err != nil {
			return nil, fail("time10", err)
		}
		v = t
	default:
		return nil, fail(fmt.Sprintf("unsupported kind %s", f.Kind), nil)
	}

	if f.Reference == nil {
		return v, nil
	}
	name, key, ok := f.Reference.Lookup(v)
	if !ok {
		return nil, protocol.ReferenceError{Layout: layout, Field: f.Name, Reference: f.Reference.Name(), Key: key}
	}
	return name, nil
}

// bounds clamps the field to the payload the way slice expressions with
// negative and overlong indexes behave in the device tooling.
func bounds(f Field, n int) (int, int) {
	start := f.Start
	if start > n {
		start = n
	}
	end := n
	if !f.ToEnd {
		end = f.End
		if end < 0 {
			end += n
			if end < 0 {
				end = 0
			}
		}
		if end > n {
			end = n
		}
	}
	if end < start {
		end = start
	}
	return start, end
}

func decodeString(b []byte, codepage string) (string, error) {
	cm, err := Codepage(codepage)
	if err != nil {
		return "", err
	}
	out, err := cm.NewDecoder().Bytes(b)
	if err != nil {
		return "", err
	}
	if bytes.ContainsRune(out, utf8.RuneError) {
		return "", fmt.Errorf("byte sequence % X not representable in %s", b, cm)
	}
	return string(out), nil
}

// decodeDateTime reads s m h D M Y, or s m h D M W Y with a weekday that is
// parsed and dropped.
func decodeDateTime(b []byte) (time.Time, error) {
	var second, minute, hour, day, month, year int
	switch len(b) {
	case 6, 7:
		second, minute, hour, day, month = int(b[0]), int(b[1]), int(b[2]), int(b[3]), int(b[4])
		year = 2000 + int(b[len(b)-1])
	default:
		return time.Time{}, fmt.Errorf("need 6 or 7 bytes, got %d", len(b))
	}
	if month < 1 || month > 12 || day < 1 || hour > 23 || minute > 59 || second > 59 {
		return time.Time{}, fmt.Errorf("invalid date % X", b)
	}
	t := time.Date(year, time.Month(month), day, hour, minute, second, 0, time.UTC)
	if t.Day() != day {
		return time.Time{}, fmt.Errorf("invalid day %d for %04d-%02d", day, year, month)
	}
	return t, nil
}
