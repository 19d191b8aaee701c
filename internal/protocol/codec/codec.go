// Package codec holds the byte-level primitives of the maintenance protocol:
// checksum, byte stuffing and big-endian short conversion.
package codec

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/danmuck/s3200ctl/internal/protocol"
)

// MaxShort is the largest integer the device accepts in a two-byte field.
const MaxShort = 65025

// Substitution maps one raw byte to its escaped two-byte sequence.
type Substitution struct {
	Raw     byte
	Escaped [2]byte
}

// EscapeTable is the canonical, ordered substitution list.
var EscapeTable = []Substitution{
	{Raw: 0x2B, Escaped: [2]byte{0x2B, 0x00}},
	{Raw: 0xFE, Escaped: [2]byte{0xFE, 0x00}},
	{Raw: 0x02, Escaped: [2]byte{0x02, 0x00}},
	{Raw: 0x11, Escaped: [2]byte{0xFE, 0x12}},
	{Raw: 0x13, Escaped: [2]byte{0xFE, 0x14}},
}

// EscapeIdentifiers are the bytes that always open a two-byte escape sequence.
var EscapeIdentifiers = []byte{0x02, 0xFE, 0x2B}

var unescapeTable = buildUnescapeTable()

func buildUnescapeTable() map[[2]byte]byte {
	out := make(map[[2]byte]byte, len(EscapeTable))
	for _, sub := range EscapeTable {
		out[sub.Escaped] = sub.Raw
	}
	return out
}

// Checksum folds every byte as crc ^= b ^ (b<<1 & 0xFF), starting from zero.
func Checksum(data []byte) byte {
	var crc byte
	for _, b := range data {
		crc ^= b ^ (b << 1)
	}
	return crc
}

// Escape applies the escape table in order, each entry replacing all
// occurrences of its raw byte.
func Escape(data []byte) []byte {
	out := bytes.Clone(data)
	for _, sub := range EscapeTable {
		out = bytes.ReplaceAll(out, []byte{sub.Raw}, sub.Escaped[:])
	}
	return out
}

// Unescape reverses Escape. Every identifier byte starts a two-byte sequence
// that must be present in the swapped table.
func Unescape(data []byte) ([]byte, error) {
	out := make([]byte, 0, len(data))
	for i := 0; i < len(data); i++ {
		b := data[i]
		if !IsEscapeIdentifier(b) {
			out = append(out, b)
			continue
		}
		if i+1 >= len(data) {
			return nil, protocol.FramingError{Reason: "dangling escape byte", Raw: data}
		}
		raw, ok := unescapeTable[[2]byte{b, data[i+1]}]
		if !ok {
			return nil, protocol.FramingError{
				Reason: fmt.Sprintf("unknown escape sequence %02X %02X", b, data[i+1]),
				Raw:    data,
			}
		}
		out = append(out, raw)
		i++
	}
	return out, nil
}

// IsEscapeIdentifier reports whether b opens an escape sequence.
func IsEscapeIdentifier(b byte) bool {
	return bytes.IndexByte(EscapeIdentifiers, b) >= 0
}

// ShortToInt unpacks a big-endian unsigned short. A single byte is zero-extended.
func ShortToInt(b []byte) (int, error) {
	switch len(b) {
	case 1:
		return int(b[0]), nil
	case 2:
		return int(b[0])<<8 | int(b[1]), nil
	default:
		return 0, protocol.LengthError{Got: len(b)}
	}
}

// IntToShort packs v as a big-endian short.
func IntToShort(v int) ([]byte, error) {
	if v < 0 || v > MaxShort {
		return nil, protocol.RangeError{Value: v, Min: 0, Max: MaxShort}
	}
	return []byte{byte(v >> 8), byte(v)}, nil
}

// Hex renders b as upper-case space separated pairs, e.g. "02 FD 00 03".
func Hex(b []byte) string {
	if len(b) == 0 {
		return ""
	}
	var sb strings.Builder
	for i, v := range b {
		if i > 0 {
			sb.WriteByte(' ')
		}
		fmt.Fprintf(&sb, "%02X", v)
	}
	return sb.String()
}
