package schema

import (
	"fmt"
	"sort"
	"strings"
)

// Reference is a frozen lookup table from a decoded value to a name. Keys
// are canonical strings: decimal for shorts, upper-case hex for bytes.
type Reference struct {
	name    string
	entries map[string]string
}

func (r *Reference) Name() string {
	return r.name
}

// Lookup resolves a converted field value.
func (r *Reference) Lookup(v any) (string, string, bool) {
	key := referenceKey(v)
	name, ok := r.entries[key]
	return name, key, ok
}

// Keys returns the table keys in sorted order.
func (r *Reference) Keys() []string {
	keys := make([]string, 0, len(r.entries))
	for k := range r.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ReferenceBuilder collects entries until Build.
type ReferenceBuilder struct {
	name    string
	entries map[string]string
}

func NewReference(name string) *ReferenceBuilder {
	return &ReferenceBuilder{name: name, entries: make(map[string]string)}
}

func (b *ReferenceBuilder) Int(key int, value string) *ReferenceBuilder {
	b.entries[referenceKey(key)] = value
	return b
}

func (b *ReferenceBuilder) Bytes(key []byte, value string) *ReferenceBuilder {
	b.entries[referenceKey(key)] = value
	return b
}

// Key adds an entry whose key is already canonical, as read from a file.
// Hex keys are upper-cased.
func (b *ReferenceBuilder) Key(key, value string) *ReferenceBuilder {
	b.entries[strings.ToUpper(strings.TrimSpace(key))] = value
	return b
}

func (b *ReferenceBuilder) Build() *Reference {
	entries := make(map[string]string, len(b.entries))
	for k, v := range b.entries {
		entries[k] = v
	}
	return &Reference{name: b.name, entries: entries}
}

func referenceKey(v any) string {
	switch t := v.(type) {
	case int:
		return fmt.Sprintf("%d", t)
	case []byte:
		parts := make([]string, len(t))
		for i, b := range t {
			parts[i] = fmt.Sprintf("%02X", b)
		}
		return strings.Join(parts, "")
	case bool:
		return fmt.Sprintf("%t", t)
	case string:
		return t
	default:
		return fmt.Sprintf("%v", t)
	}
}
