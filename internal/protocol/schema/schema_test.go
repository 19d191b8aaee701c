package schema

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/danmuck/s3200ctl/internal/protocol"
	"github.com/danmuck/s3200ctl/internal/testutil/testlog"
)

// errorPayload is the unescaped payload of a captured error answer.
var errorPayload = append([]byte{
	0x01, 0x00, 0x6D, 0xA3, 0x01, 0x02, 0x11, 0x0C, 0x04, 0x02, 0x0C,
}, []byte("Z\xfcndversuch nicht gelungen von Hand Anheizen!")...)

func errorLayout(t *testing.T) Layout {
	t.Helper()
	states := NewReference("error_state").Int(1, "New").Int(2, "Quittiert").Int(4, "Gone").Build()
	l, err := NewLayout("error").
		Short("number", 2, 3).
		Flag("is_ongoing", 3, 4, 0).
		Flag("is_at_heating_boiler", 3, 4, 1).
		Flag("is_at_ash_outlet", 3, 4, 2).
		Flag("is_warning", 3, 4, 6).
		Flag("is_receipted", 3, 4, 7).
		Short("status", 4, 5).
		DateTime("datetime", 5, 11).
		StringToEnd("text", 11).
		Field(Field{Name: "status_name", Start: 4, End: 5, Kind: KindShort, Reference: states}).
		Build()
	if err != nil {
		t.Fatalf("build layout: %v", err)
	}
	return l
}

func TestDecodeCapturedError(t *testing.T) {
	testlog.Start(t)
	rec, err := Decode(errorPayload, errorLayout(t))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if n, _ := rec.Int("number"); n != 109 {
		t.Fatalf("number got=%d want=109", n)
	}
	flags := map[string]bool{
		"is_ongoing":           true,
		"is_at_heating_boiler": false,
		"is_at_ash_outlet":     true,
		"is_warning":           true,
		"is_receipted":         true,
	}
	for name, want := range flags {
		if got, ok := rec.Bool(name); !ok || got != want {
			t.Fatalf("%s got=%v want=%v", name, got, want)
		}
	}
	if s, _ := rec.Int("status"); s != 1 {
		t.Fatalf("status got=%d", s)
	}
	if name, _ := rec.String("status_name"); name != "New" {
		t.Fatalf("status_name got=%q", name)
	}
	want := time.Date(2012, time.February, 4, 12, 17, 2, 0, time.UTC)
	if ts, _ := rec.Time("datetime"); !ts.Equal(want) {
		t.Fatalf("datetime got=%v want=%v", ts, want)
	}
	if text, _ := rec.String("text"); text != "Zündversuch nicht gelungen von Hand Anheizen!" {
		t.Fatalf("text got=%q", text)
	}
	names := rec.Names()
	if len(names) != 10 || names[0] != "number" || names[9] != "status_name" {
		t.Fatalf("field order got=%v", names)
	}
}

func TestDecodeIsDeterministic(t *testing.T) {
	testlog.Start(t)
	l := errorLayout(t)
	a, err := Decode(errorPayload, l)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	b, _ := Decode(errorPayload, l)
	ja, _ := json.Marshal(a)
	jb, _ := json.Marshal(b)
	if string(ja) != string(jb) {
		t.Fatalf("records differ:\n%s\n%s", ja, jb)
	}
}

func TestFlagCountsFromTheLeft(t *testing.T) {
	testlog.Start(t)
	l := NewLayout("flags").
		Flag("first", 0, 1, 0).
		Flag("last", 0, 1, 7).
		Flag("second_byte_msb", 0, 2, 8).
		MustBuild()
	rec, err := Decode([]byte{0b10000000, 0b10000000}, l)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if v, _ := rec.Bool("first"); !v {
		t.Fatalf("bit 0 should be set")
	}
	if v, _ := rec.Bool("last"); v {
		t.Fatalf("bit 7 should be clear")
	}
	if v, _ := rec.Bool("second_byte_msb"); !v {
		t.Fatalf("bit 8 should be set")
	}

	_, err = Decode([]byte{0xFF}, NewLayout("flags").Flag("out", 0, 1, 8).MustBuild())
	var de protocol.DecodeError
	if !errors.As(err, &de) || de.Field != "out" || de.Layout != "flags" {
		t.Fatalf("expected DecodeError for out, got %v", err)
	}
}

func TestTime10(t *testing.T) {
	testlog.Start(t)
	cases := []struct {
		in   int
		want string
	}{
		{150, "15:00"},
		{55, "05:50"},
		{0, "00:00"},
		{240, "24:00"},
	}
	for _, tc := range cases {
		got, err := ParseTime10(tc.in)
		if err != nil || got == nil {
			t.Fatalf("time10(%d) got=%v err=%v", tc.in, got, err)
		}
		if got.String() != tc.want {
			t.Fatalf("time10(%d) got=%s want=%s", tc.in, got, tc.want)
		}
	}
	if got, err := ParseTime10(255); err != nil || got != nil {
		t.Fatalf("time10(255) got=%v err=%v", got, err)
	}

	l := NewLayout("slot").Time10("start", 0, 1).MustBuild()
	rec, err := Decode([]byte{150}, l)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if v, _ := rec.Time10("start"); v == nil || v.Hour != 15 || v.Minute != 0 {
		t.Fatalf("start got=%v", v)
	}
	rec, err = Decode([]byte{255}, l)
	if err != nil {
		t.Fatalf("decode unset: %v", err)
	}
	if v, ok := rec.Time10("start"); !ok || v != nil {
		t.Fatalf("unset start got=%v ok=%v", v, ok)
	}
	_, err = Decode([]byte{241}, l)
	var de protocol.DecodeError
	if !errors.As(err, &de) {
		t.Fatalf("time10 241: expected DecodeError, got %v", err)
	}
}

func TestReferenceMiss(t *testing.T) {
	testlog.Start(t)
	days := NewReference("time_slot").Bytes([]byte{0x00}, "monday").Build()
	l := NewLayout("slot").Field(Field{Name: "name", Start: 0, End: 1, Kind: KindBytes, Reference: days}).MustBuild()

	rec, err := Decode([]byte{0x00}, l)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if v, _ := rec.String("name"); v != "monday" {
		t.Fatalf("name got=%q", v)
	}

	_, err = Decode([]byte{0x09}, l)
	var re protocol.ReferenceError
	if !errors.As(err, &re) {
		t.Fatalf("expected ReferenceError, got %v", err)
	}
	if re.Key != "09" || re.Reference != "time_slot" {
		t.Fatalf("reference error got=%+v", re)
	}
}

func TestSliceClamping(t *testing.T) {
	testlog.Start(t)
	l := NewLayout("menu").
		Bytes("head", 0, 2).
		Bytes("all_but_last", 1, -1).
		Bytes("beyond", 3, 10).
		Field(Field{Name: "tail", Start: 2, ToEnd: true, Kind: KindBytes}).
		MustBuild()
	rec, err := Decode([]byte{1, 2, 3, 4}, l)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	want := map[string][]byte{
		"head":         {1, 2},
		"all_but_last": {2, 3},
		"beyond":       {4},
		"tail":         {3, 4},
	}
	for name, w := range want {
		got, _ := rec.Bytes(name)
		if string(got) != string(w) {
			t.Fatalf("%s got=% X want=% X", name, got, w)
		}
	}
}

func TestStringCodepages(t *testing.T) {
	testlog.Start(t)
	payload := []byte{0x02, 0x00, 0xDC, 'b', 'e', 'r', ';', 'S', 'T', 0xD6, 'R'}
	rec, err := Decode(payload, NewLayout("state").StringToEnd("text", 2).MustBuild())
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if v, _ := rec.String("text"); v != "Über;STÖR" {
		t.Fatalf("text got=%q", v)
	}

	bad := NewLayout("state").Field(Field{Name: "text", ToEnd: true, Kind: KindString, Codepage: "ebcdic"}).MustBuild()
	_, err = Decode(payload, bad)
	var de protocol.DecodeError
	if !errors.As(err, &de) {
		t.Fatalf("unknown code page: expected DecodeError, got %v", err)
	}
}

func TestDateTimeVariants(t *testing.T) {
	testlog.Start(t)
	l := NewLayout("clock").DateTime("now", 0, 7).MustBuild()
	rec, err := Decode([]byte{0x00, 0x1F, 0x12, 0x15, 0x0B, 0x07, 0x0A}, l)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	want := time.Date(2010, time.November, 21, 18, 31, 0, 0, time.UTC)
	if got, _ := rec.Time("now"); !got.Equal(want) {
		t.Fatalf("now got=%v want=%v", got, want)
	}

	for _, in := range [][]byte{
		{0x00, 0x1F, 0x12, 0x1F, 0x02, 0x07, 0x0A},
		{0x00, 0x3C, 0x12, 0x15, 0x0B, 0x07, 0x0A},
		{0x00, 0x1F, 0x12},
	} {
		_, err := Decode(in, l)
		var de protocol.DecodeError
		if !errors.As(err, &de) {
			t.Fatalf("date % X: expected DecodeError, got %v", in, err)
		}
	}
}

func TestShortFieldNeedsBytes(t *testing.T) {
	testlog.Start(t)
	_, err := Decode([]byte{0x01}, NewLayout("value").Short("v", 1, 3).MustBuild())
	var le protocol.LengthError
	if !errors.As(err, &le) {
		t.Fatalf("expected LengthError cause, got %v", err)
	}
}

func TestLayoutBuilderRejectsInvalidFields(t *testing.T) {
	testlog.Start(t)
	cases := []*LayoutBuilder{
		NewLayout("x").Short("", 0, 1),
		NewLayout("x").Short("a", -1, 1),
		NewLayout("x").Short("a", 0, 1).Short("a", 1, 2),
		NewLayout("x").Field(Field{Name: "a", Kind: Kind(99)}),
	}
	for i, b := range cases {
		if _, err := b.Build(); err == nil {
			t.Fatalf("case %d: expected build error", i)
		}
	}
}

func TestLayoutIsFrozen(t *testing.T) {
	testlog.Start(t)
	b := NewLayout("x").Short("a", 0, 2)
	l := b.MustBuild()
	b.Short("b", 2, 4)
	if l.Len() != 1 {
		t.Fatalf("built layout changed: %d fields", l.Len())
	}
	fields := l.Fields()
	fields[0].Name = "mutated"
	if l.Fields()[0].Name != "a" {
		t.Fatalf("layout fields exposed for mutation")
	}
}

func TestParseKind(t *testing.T) {
	testlog.Start(t)
	for _, name := range []string{"short", "bytes", "string", "datetime", "flag", "Time10"} {
		k, err := ParseKind(name)
		if err != nil {
			t.Fatalf("parse %q: %v", name, err)
		}
		if k.String() == "" {
			t.Fatalf("kind %q has no name", name)
		}
	}
	if _, err := ParseKind("float"); err == nil {
		t.Fatalf("expected error for unknown kind")
	}
}

func TestRecordJSONOrder(t *testing.T) {
	testlog.Start(t)
	l := NewLayout("setting").
		Bytes("address", 0, 2).
		Short("value", 2, 4).
		Time10("start", 4, 5).
		Time10("end", 5, 6).
		MustBuild()
	rec, err := Decode([]byte{0x00, 0x1C, 0x00, 0xA0, 60, 255}, l)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	got, err := json.Marshal(rec)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"address":"001C","value":160,"start":"06:00","end":null}`
	if string(got) != want {
		t.Fatalf("json got=%s want=%s", got, want)
	}
}
