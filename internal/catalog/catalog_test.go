package catalog

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/danmuck/s3200ctl/internal/protocol"
	"github.com/danmuck/s3200ctl/internal/protocol/schema"
	"github.com/danmuck/s3200ctl/internal/testutil/testlog"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

func mustDefault(t *testing.T) *Catalog {
	t.Helper()
	c, err := Default()
	if err != nil {
		t.Fatalf("default catalog: %v", err)
	}
	return c
}

func TestDefaultCatalogLookups(t *testing.T) {
	testlog.Start(t)
	c := mustDefault(t)

	op, err := c.Opcode(CmdGetValue)
	if err != nil || op != 0x30 {
		t.Fatalf("get_value opcode got=%02X err=%v want=30", op, err)
	}
	if op, _ := c.Opcode(CmdGetForce); op != 0x5E {
		t.Fatalf("get_force opcode got=%02X want=5E", op)
	}

	p, err := c.Value("residual_oxygen")
	if err != nil {
		t.Fatalf("value: %v", err)
	}
	if string(p.Address) != "\x00\x03" || p.Factor != 10 {
		t.Fatalf("residual_oxygen got=%+v", p)
	}

	group, err := c.Group("boiler_1")
	if err != nil {
		t.Fatalf("group: %v", err)
	}
	if len(group) != 2 || group[0].Name != "boiler_1_temperature" || group[1].Name != "boiler_1_pump" {
		t.Fatalf("boiler_1 group got=%+v", group)
	}
	if got := len(c.Values()); got != 18 {
		t.Fatalf("values got=%d want=18", got)
	}
	if names := c.GroupNames(); len(names) != 4 || names[0] != "boiler_1" {
		t.Fatalf("group names got=%v", names)
	}

	s, err := c.Setting("heating_boiler_should_temperature")
	if err != nil || s.Factor != 2 || string(s.Address) != "\x00\x1C" {
		t.Fatalf("setting got=%+v err=%v", s, err)
	}
	if slots := c.TimeSlots(); len(slots) != 7 || slots[6].Name != "boiler_1_sunday" {
		t.Fatalf("time slots got=%+v", slots)
	}
	cmds := c.Commands()
	if cmds[0].Name != CmdTestConnection || cmds[len(cmds)-1].Opcode != 0x7E {
		t.Fatalf("commands order got first=%s last=%02X", cmds[0].Name, cmds[len(cmds)-1].Opcode)
	}
}

func TestUnknownNamesAreTyped(t *testing.T) {
	testlog.Start(t)
	c := mustDefault(t)
	if _, err := c.Value("nope"); !errors.Is(err, protocol.ErrUnknownValue) {
		t.Fatalf("value err=%v", err)
	}
	if _, err := c.Group("nope"); !errors.Is(err, protocol.ErrUnknownValue) {
		t.Fatalf("group err=%v", err)
	}
	if _, err := c.DigitalOutput("nope"); !errors.Is(err, protocol.ErrUnknownValue) {
		t.Fatalf("digital output err=%v", err)
	}
	if _, err := c.Opcode("nope"); !errors.Is(err, protocol.ErrUnknownCommand) {
		t.Fatalf("command err=%v", err)
	}
	if _, err := c.Layout("nope"); err == nil {
		t.Fatalf("expected unknown layout error")
	}
}

func TestPointsAreCopies(t *testing.T) {
	testlog.Start(t)
	c := mustDefault(t)
	p, _ := c.Value("operating_hours")
	p.Address[1] = 0xFF
	again, _ := c.Value("operating_hours")
	if again.Address[1] != 0x62 {
		t.Fatalf("catalog address mutated: % X", again.Address)
	}
}

func TestErrorLayoutDecodesCapturedAnswer(t *testing.T) {
	testlog.Start(t)
	c := mustDefault(t)
	l, err := c.Layout(LayoutError)
	if err != nil {
		t.Fatalf("layout: %v", err)
	}
	payload := append([]byte{0x01, 0x00, 0x6D, 0xA3, 0x01, 0x02, 0x11, 0x0C, 0x04, 0x02, 0x0C},
		[]byte("Z\xfcndversuch nicht gelungen von Hand Anheizen!")...)
	rec, err := schema.Decode(payload, l)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if v, _ := rec.String("status_name"); v != "New" {
		t.Fatalf("status_name got=%q", v)
	}
	if v, _ := rec.String("status_name_local"); v != "Gekommen" {
		t.Fatalf("status_name_local got=%q", v)
	}
	if v, _ := rec.Bool("is_at_environment"); v {
		t.Fatalf("is_at_environment got=true")
	}
	want := time.Date(2012, time.February, 4, 12, 17, 2, 0, time.UTC)
	if ts, _ := rec.Time("datetime"); !ts.Equal(want) {
		t.Fatalf("datetime got=%v want=%v", ts, want)
	}
}

func TestTimeSlotReferenceFromSlots(t *testing.T) {
	testlog.Start(t)
	c := mustDefault(t)
	ref, ok := c.Reference(ReferenceTimeSlot)
	if !ok {
		t.Fatalf("time slot reference missing")
	}
	if name, _, ok := ref.Lookup([]byte{0x01}); !ok || name != "boiler_1_tuesday" {
		t.Fatalf("lookup 01 got=%q ok=%v", name, ok)
	}
	l, _ := c.Layout(LayoutTimeSlot)
	rec, err := schema.Decode([]byte{0x00, 0x00, 0x01, 55, 95, 150, 210, 255, 255, 255, 255}, l)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if v, _ := rec.String("name"); v != "boiler_1_tuesday" {
		t.Fatalf("name got=%q", v)
	}
	if v, _ := rec.Time10("time_slot_1_end"); v == nil || v.String() != "09:50" {
		t.Fatalf("slot 1 end got=%v", v)
	}
}

func TestYAMLCatalogMatchesTOML(t *testing.T) {
	testlog.Start(t)
	var raw fileCatalog
	if err := toml.Unmarshal(defaultCatalog, &raw); err != nil {
		t.Fatalf("toml: %v", err)
	}
	data, err := yaml.Marshal(raw)
	if err != nil {
		t.Fatalf("yaml marshal: %v", err)
	}
	path := filepath.Join(t.TempDir(), "catalog.yml")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	c, err := Load(path)
	if err != nil {
		t.Fatalf("load yaml: %v", err)
	}
	p, err := c.Value("operating_hours")
	if err != nil || string(p.Address) != "\x00\x62" {
		t.Fatalf("operating_hours got=%+v err=%v", p, err)
	}
	l, _ := c.Layout(LayoutMenuItem)
	if l.Len() != 2 {
		t.Fatalf("menu layout got=%+v", l.Fields())
	}
	if f := l.Fields()[1]; f.ToEnd || f.End != -1 {
		t.Fatalf("menu text field got=%+v", f)
	}
}

func TestLoadMissingFile(t *testing.T) {
	testlog.Start(t)
	if _, err := Load(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestParseRejectsInvalidCatalogs(t *testing.T) {
	testlog.Start(t)
	cases := map[string]string{
		"codepage":        `codepage = "ebcdic"`,
		"opcode width":    "[commands]\nx = { opcode = \"3030\" }",
		"opcode hex":      "[commands]\nx = { opcode = \"ZZ\" }",
		"duplicate value": "[[values]]\nname = \"a\"\naddress = \"0000\"\nfactor = 1\n[[values]]\nname = \"a\"\naddress = \"0001\"\nfactor = 1",
		"address width":   "[[values]]\nname = \"a\"\naddress = \"00\"\nfactor = 1",
		"factor":          "[[values]]\nname = \"a\"\naddress = \"0000\"\nfactor = 0",
		"group member":    "[groups]\ng = [\"missing\"]",
		"layout kind":     "[layouts]\nx = [{ name = \"a\", start = 0, type = \"float\" }]",
		"layout ref":      "[layouts]\nx = [{ name = \"a\", start = 0, type = \"short\", reference = \"none\" }]",
		"missing command": ``,
	}
	for name, data := range cases {
		if _, err := Parse([]byte(data), "toml"); err == nil {
			t.Fatalf("%s: expected parse error", name)
		}
	}
	if _, err := Parse(nil, "json"); err == nil || !strings.Contains(err.Error(), "unknown format") {
		t.Fatalf("json format err=%v", err)
	}
}

func TestOpenOverridesCodepage(t *testing.T) {
	testlog.Start(t)
	c, err := Open("", "cp850")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if c.Codepage != "cp850" {
		t.Fatalf("codepage got=%q want=cp850", c.Codepage)
	}
	l, _ := c.Layout(LayoutStateAndMode)
	if cp := l.Fields()[0].Codepage; cp != "cp850" {
		t.Fatalf("layout codepage got=%q", cp)
	}
	if _, err := Open("", "ebcdic"); err == nil {
		t.Fatalf("expected unknown code page error")
	}
}
