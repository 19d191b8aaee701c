package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// Record is the ordered result of decoding one payload.
type Record struct {
	layout string
	names  []string
	values map[string]any
}

func newRecord(layout string, size int) Record {
	return Record{layout: layout, names: make([]string, 0, size), values: make(map[string]any, size)}
}

func (r *Record) set(name string, v any) {
	if _, ok := r.values[name]; !ok {
		r.names = append(r.names, name)
	}
	r.values[name] = v
}

func (r Record) Layout() string {
	return r.layout
}

// Names returns field names in layout order.
func (r Record) Names() []string {
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}

func (r Record) Len() int {
	return len(r.names)
}

func (r Record) Get(name string) (any, bool) {
	v, ok := r.values[name]
	return v, ok
}

func (r Record) Int(name string) (int, bool) {
	v, ok := r.values[name].(int)
	return v, ok
}

func (r Record) String(name string) (string, bool) {
	v, ok := r.values[name].(string)
	return v, ok
}

func (r Record) Bool(name string) (bool, bool) {
	v, ok := r.values[name].(bool)
	return v, ok
}

func (r Record) Bytes(name string) ([]byte, bool) {
	v, ok := r.values[name].([]byte)
	return bytes.Clone(v), ok
}

func (r Record) Time(name string) (time.Time, bool) {
	v, ok := r.values[name].(time.Time)
	return v, ok
}

// Time10 returns the slot time; a nil result with ok=true means unset.
func (r Record) Time10(name string) (*Time10, bool) {
	v, ok := r.values[name].(*Time10)
	return v, ok
}

// Map copies the record into a plain map.
func (r Record) Map() map[string]any {
	out := make(map[string]any, len(r.values))
	for k, v := range r.values {
		out[k] = v
	}
	return out
}

// MarshalJSON keeps layout order. Byte fields render as upper-case hex.
func (r Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, name := range r.names {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(name)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')

		v := r.values[name]
		if b, ok := v.([]byte); ok {
			v = fmt.Sprintf("%X", b)
		}
		val, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("schema: marshal %s.%s: %w", r.layout, name, err)
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
