// Package schema decodes device payloads through declarative field layouts.
package schema

import (
	"fmt"
	"strings"
)

// Kind is the primitive conversion applied to a field slice.
type Kind int

const (
	KindShort Kind = iota + 1
	KindBytes
	KindString
	KindDateTime
	KindFlag
	KindTime10
)

var kindNames = map[Kind]string{
	KindShort:    "short",
	KindBytes:    "bytes",
	KindString:   "string",
	KindDateTime: "datetime",
	KindFlag:     "flag",
	KindTime10:   "time10",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// ParseKind maps a catalog type name to a Kind.
func ParseKind(name string) (Kind, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	for k, n := range kindNames {
		if n == key {
			return k, nil
		}
	}
	return 0, fmt.Errorf("schema: unknown field type %q", name)
}

// DefaultCodepage is used by string fields that do not name one.
const DefaultCodepage = "windows-1252"

// Field locates one named value inside a payload. End may be negative to
// count from the end; ToEnd slices to the end of the payload.
type Field struct {
	Name      string
	Start     int
	End       int
	ToEnd     bool
	Kind      Kind
	Bit       int
	Codepage  string
	Reference *Reference
}

// Layout is an ordered, frozen set of fields.
type Layout struct {
	name   string
	fields []Field
}

func (l Layout) Name() string {
	return l.name
}

// Fields returns a copy of the field list.
func (l Layout) Fields() []Field {
	out := make([]Field, len(l.fields))
	copy(out, l.fields)
	return out
}

func (l Layout) Len() int {
	return len(l.fields)
}

// LayoutBuilder collects fields until Build freezes them.
type LayoutBuilder struct {
	name   string
	fields []Field
	seen   map[string]struct{}
	err    error
}

func NewLayout(name string) *LayoutBuilder {
	return &LayoutBuilder{name: name, seen: make(map[string]struct{})}
}

// Field appends f. The first invalid field is reported by Build.
func (b *LayoutBuilder) Field(f Field) *LayoutBuilder {
	if b.err != nil {
		return b
	}
	if err := validateField(f); err != nil {
		b.err = fmt.Errorf("schema: layout %s: %w", b.name, err)
		return b
	}
	if _, dup := b.seen[f.Name]; dup {
		b.err = fmt.Errorf("schema: layout %s: duplicate field %q", b.name, f.Name)
		return b
	}
	b.seen[f.Name] = struct{}{}
	b.fields = append(b.fields, f)
	return b
}

func (b *LayoutBuilder) Short(name string, start, end int) *LayoutBuilder {
	return b.Field(Field{Name: name, Start: start, End: end, Kind: KindShort})
}

func (b *LayoutBuilder) Bytes(name string, start, end int) *LayoutBuilder {
	return b.Field(Field{Name: name, Start: start, End: end, Kind: KindBytes})
}

func (b *LayoutBuilder) String(name string, start, end int) *LayoutBuilder {
	return b.Field(Field{Name: name, Start: start, End: end, Kind: KindString})
}

// StringToEnd adds a string field running to the end of the payload.
func (b *LayoutBuilder) StringToEnd(name string, start int) *LayoutBuilder {
	return b.Field(Field{Name: name, Start: start, ToEnd: true, Kind: KindString})
}

func (b *LayoutBuilder) DateTime(name string, start, end int) *LayoutBuilder {
	return b.Field(Field{Name: name, Start: start, End: end, Kind: KindDateTime})
}

func (b *LayoutBuilder) Flag(name string, start, end, bit int) *LayoutBuilder {
	return b.Field(Field{Name: name, Start: start, End: end, Kind: KindFlag, Bit: bit})
}

func (b *LayoutBuilder) Time10(name string, start, end int) *LayoutBuilder {
	return b.Field(Field{Name: name, Start: start, End: end, Kind: KindTime10})
}

// Build freezes the layout.
func (b *LayoutBuilder) Build() (Layout, error) {
	if b.err != nil {
		return Layout{}, b.err
	}
	fields := make([]Field, len(b.fields))
	copy(fields, b.fields)
	return Layout{name: b.name, fields: fields}, nil
}

// MustBuild is Build for package-level layouts.
func (b *LayoutBuilder) MustBuild() Layout {
	l, err := b.Build()
	if err != nil {
		panic(err)
	}
	return l
}

func validateField(f Field) error {
	if strings.TrimSpace(f.Name) == "" {
		return fmt.Errorf("field name is required")
	}
	if _, ok := kindNames[f.Kind]; !ok {
		return fmt.Errorf("field %s: unknown kind %d", f.Name, int(f.Kind))
	}
	if f.Start < 0 {
		return fmt.Errorf("field %s: negative start %d", f.Name, f.Start)
	}
	if f.Kind == KindFlag && f.Bit < 0 {
		return fmt.Errorf("field %s: negative bit %d", f.Name, f.Bit)
	}
	return nil
}
