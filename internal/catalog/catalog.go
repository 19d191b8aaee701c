// Package catalog holds the device catalog: command opcodes, value and
// setting addresses, lookup tables and the payload layouts of every answer.
package catalog

import (
	_ "embed"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/danmuck/s3200ctl/internal/protocol"
	"github.com/danmuck/s3200ctl/internal/protocol/schema"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

//go:embed default.toml
var defaultCatalog []byte

// Command names used by the device facade.
const (
	CmdTestConnection        = "test_connection"
	CmdGetValue              = "get_value"
	CmdGetAvailableValue     = "get_available_value"
	CmdGetNextAvailableValue = "get_next_available_value"
	CmdGetMenuItem           = "get_menu_item"
	CmdGetNextMenuItem       = "get_next_menu_item"
	CmdSetSetting            = "set_setting"
	CmdGetConfiguration      = "get_configuration"
	CmdGetVersionAndDateTime = "get_version_and_datetime"
	CmdGetTimeSlot           = "get_time_slot"
	CmdGetNextTimeSlot       = "get_next_time_slot"
	CmdGetDigitalOutput      = "get_digital_output"
	CmdGetAnalogOutput       = "get_analog_output"
	CmdGetDigitalInput       = "get_digital_input"
	CmdGetError              = "get_error"
	CmdGetNextError          = "get_next_error"
	CmdGetHeaterStateAndMode = "get_heater_state_and_mode"
	CmdGetSetting            = "get_setting"
	CmdGetForce              = "get_force"
)

// Layout names.
const (
	LayoutConfiguration  = "configuration"
	LayoutMenuItem       = "menu_item"
	LayoutStateAndMode   = "state_and_mode"
	LayoutSetting        = "setting"
	LayoutDigitalInput   = "digital_input"
	LayoutDigitalOutput  = "digital_output"
	LayoutAnalogOutput   = "analog_output"
	LayoutTimeSlot       = "time_slot"
	LayoutError          = "error"
	LayoutAvailableValue = "available_value"
	LayoutForceMode      = "force_mode"
)

// ReferenceTimeSlot is derived from the time slot list.
const ReferenceTimeSlot = "time_slot"

var requiredCommands = []string{
	CmdTestConnection, CmdGetValue, CmdGetAvailableValue, CmdGetNextAvailableValue,
	CmdGetMenuItem, CmdGetNextMenuItem, CmdSetSetting, CmdGetConfiguration,
	CmdGetVersionAndDateTime, CmdGetTimeSlot, CmdGetNextTimeSlot, CmdGetDigitalOutput,
	CmdGetAnalogOutput, CmdGetDigitalInput, CmdGetError, CmdGetNextError,
	CmdGetHeaterStateAndMode, CmdGetSetting, CmdGetForce,
}

var requiredLayouts = []string{
	LayoutConfiguration, LayoutMenuItem, LayoutStateAndMode, LayoutSetting,
	LayoutDigitalInput, LayoutDigitalOutput, LayoutAnalogOutput, LayoutTimeSlot,
	LayoutError, LayoutAvailableValue, LayoutForceMode,
}

type Command struct {
	Name        string
	Opcode      byte
	Description string
}

// Point is an addressable value, setting, input, output or time slot.
type Point struct {
	Name      string
	Address   []byte
	Factor    int
	LocalName string
}

type Catalog struct {
	Codepage string

	commands       map[string]Command
	values         pointSet
	settings       pointSet
	digitalInputs  pointSet
	digitalOutputs pointSet
	analogOutputs  pointSet
	timeSlots      pointSet
	groups         map[string][]string
	references     map[string]*schema.Reference
	layouts        map[string]schema.Layout
}

type pointSet struct {
	list  []Point
	index map[string]int
}

func (s pointSet) get(name string) (Point, bool) {
	i, ok := s.index[name]
	if !ok {
		return Point{}, false
	}
	return clonePoint(s.list[i]), true
}

func (s pointSet) all() []Point {
	out := make([]Point, len(s.list))
	for i, p := range s.list {
		out[i] = clonePoint(p)
	}
	return out
}

func clonePoint(p Point) Point {
	p.Address = append([]byte(nil), p.Address...)
	return p
}

type fileCatalog struct {
	Codepage       string                       `toml:"codepage" yaml:"codepage"`
	Commands       map[string]fileCommand       `toml:"commands" yaml:"commands"`
	Values         []filePoint                  `toml:"values" yaml:"values"`
	Groups         map[string][]string          `toml:"groups" yaml:"groups"`
	Settings       []filePoint                  `toml:"settings" yaml:"settings"`
	DigitalInputs  []filePoint                  `toml:"digital_inputs" yaml:"digital_inputs"`
	DigitalOutputs []filePoint                  `toml:"digital_outputs" yaml:"digital_outputs"`
	AnalogOutputs  []filePoint                  `toml:"analog_outputs" yaml:"analog_outputs"`
	TimeSlots      []filePoint                  `toml:"time_slots" yaml:"time_slots"`
	References     map[string]map[string]string `toml:"references" yaml:"references"`
	Layouts        map[string][]fileField       `toml:"layouts" yaml:"layouts"`
}

type fileCommand struct {
	Opcode      string `toml:"opcode" yaml:"opcode"`
	Description string `toml:"description" yaml:"description"`
}

type filePoint struct {
	Name      string `toml:"name" yaml:"name"`
	Address   string `toml:"address" yaml:"address"`
	Factor    int    `toml:"factor" yaml:"factor"`
	LocalName string `toml:"local_name" yaml:"local_name"`
}

type fileField struct {
	Name      string `toml:"name" yaml:"name"`
	Start     int    `toml:"start" yaml:"start"`
	End       *int   `toml:"end" yaml:"end"`
	Type      string `toml:"type" yaml:"type"`
	Bit       int    `toml:"bit" yaml:"bit"`
	Codepage  string `toml:"codepage" yaml:"codepage"`
	Reference string `toml:"reference" yaml:"reference"`
}

// Default returns the embedded catalog.
func Default() (*Catalog, error) {
	return Parse(defaultCatalog, "toml")
}

// Load reads a catalog file; .yaml and .yml are YAML, anything else TOML.
func Load(path string) (*Catalog, error) {
	return Open(path, "")
}

// Open loads the catalog at path, or the embedded one when path is empty.
// A non-empty codepage replaces the catalog's own.
func Open(path, codepage string) (*Catalog, error) {
	data, format := defaultCatalog, "toml"
	if path != "" {
		var err error
		if data, err = os.ReadFile(path); err != nil {
			return nil, fmt.Errorf("catalog load failed (%s): %w", path, err)
		}
		switch strings.ToLower(filepath.Ext(path)) {
		case ".yaml", ".yml":
			format = "yaml"
		}
	}
	c, err := parse(data, format, codepage)
	if err != nil && path != "" {
		return nil, fmt.Errorf("catalog %s: %w", path, err)
	}
	return c, err
}

// Parse decodes and validates a catalog in the given format.
func Parse(data []byte, format string) (*Catalog, error) {
	return parse(data, format, "")
}

func parse(data []byte, format, codepage string) (*Catalog, error) {
	raw, err := decode(data, format)
	if err != nil {
		return nil, err
	}
	if codepage != "" {
		raw.Codepage = codepage
	}
	return build(raw)
}

func decode(data []byte, format string) (fileCatalog, error) {
	var raw fileCatalog
	switch format {
	case "toml":
		if err := toml.Unmarshal(data, &raw); err != nil {
			return fileCatalog{}, fmt.Errorf("catalog parse failed: %w", err)
		}
	case "yaml":
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return fileCatalog{}, fmt.Errorf("catalog parse failed: %w", err)
		}
	default:
		return fileCatalog{}, fmt.Errorf("catalog: unknown format %q", format)
	}
	return raw, nil
}

func build(raw fileCatalog) (*Catalog, error) {
	c := &Catalog{
		Codepage:   strings.TrimSpace(raw.Codepage),
		commands:   make(map[string]Command, len(raw.Commands)),
		groups:     make(map[string][]string, len(raw.Groups)),
		references: make(map[string]*schema.Reference),
		layouts:    make(map[string]schema.Layout, len(raw.Layouts)),
	}
	if c.Codepage == "" {
		c.Codepage = schema.DefaultCodepage
	}
	if _, err := schema.Codepage(c.Codepage); err != nil {
		return nil, err
	}

	for name, cmd := range raw.Commands {
		op, err := parseHex(cmd.Opcode, 1)
		if err != nil {
			return nil, fmt.Errorf("command %s: %w", name, err)
		}
		c.commands[name] = Command{Name: name, Opcode: op[0], Description: cmd.Description}
	}

	var err error
	if c.values, err = buildPoints("value", raw.Values, 2, true); err != nil {
		return nil, err
	}
	if c.settings, err = buildPoints("setting", raw.Settings, 2, true); err != nil {
		return nil, err
	}
	if c.digitalInputs, err = buildPoints("digital input", raw.DigitalInputs, 2, false); err != nil {
		return nil, err
	}
	if c.digitalOutputs, err = buildPoints("digital output", raw.DigitalOutputs, 2, false); err != nil {
		return nil, err
	}
	if c.analogOutputs, err = buildPoints("analog output", raw.AnalogOutputs, 2, false); err != nil {
		return nil, err
	}
	if c.timeSlots, err = buildPoints("time slot", raw.TimeSlots, 1, false); err != nil {
		return nil, err
	}

	for group, members := range raw.Groups {
		for _, m := range members {
			if _, ok := c.values.index[m]; !ok {
				return nil, fmt.Errorf("group %s: %w: %s", group, protocol.ErrUnknownValue, m)
			}
		}
		c.groups[group] = append([]string(nil), members...)
	}

	for name, entries := range raw.References {
		b := schema.NewReference(name)
		for k, v := range entries {
			b.Key(k, v)
		}
		c.references[name] = b.Build()
	}
	slots := schema.NewReference(ReferenceTimeSlot)
	for _, p := range c.timeSlots.list {
		slots.Bytes(p.Address, p.Name)
	}
	if _, taken := c.references[ReferenceTimeSlot]; !taken {
		c.references[ReferenceTimeSlot] = slots.Build()
	}

	for name, fields := range raw.Layouts {
		l, err := c.buildLayout(name, fields)
		if err != nil {
			return nil, err
		}
		c.layouts[name] = l
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Catalog) buildLayout(name string, fields []fileField) (schema.Layout, error) {
	b := schema.NewLayout(name)
	for _, ff := range fields {
		kind, err := schema.ParseKind(ff.Type)
		if err != nil {
			return schema.Layout{}, fmt.Errorf("layout %s field %s: %w", name, ff.Name, err)
		}
		f := schema.Field{
			Name:     ff.Name,
			Start:    ff.Start,
			Kind:     kind,
			Bit:      ff.Bit,
			Codepage: ff.Codepage,
		}
		if ff.End == nil {
			f.ToEnd = true
		} else {
			f.End = *ff.End
		}
		if kind == schema.KindString && f.Codepage == "" {
			f.Codepage = c.Codepage
		}
		if ff.Reference != "" {
			ref, ok := c.references[ff.Reference]
			if !ok {
				return schema.Layout{}, fmt.Errorf("layout %s field %s: unknown reference %q", name, ff.Name, ff.Reference)
			}
			f.Reference = ref
		}
		b.Field(f)
	}
	return b.Build()
}

func buildPoints(kind string, in []filePoint, addrLen int, needFactor bool) (pointSet, error) {
	set := pointSet{list: make([]Point, 0, len(in)), index: make(map[string]int, len(in))}
	for i, fp := range in {
		name := strings.TrimSpace(fp.Name)
		if name == "" {
			return pointSet{}, fmt.Errorf("%s[%d]: name is required", kind, i)
		}
		if _, dup := set.index[name]; dup {
			return pointSet{}, fmt.Errorf("%s %s: duplicate name", kind, name)
		}
		addr, err := parseHex(fp.Address, addrLen)
		if err != nil {
			return pointSet{}, fmt.Errorf("%s %s: %w", kind, name, err)
		}
		factor := fp.Factor
		if needFactor && factor <= 0 {
			return pointSet{}, fmt.Errorf("%s %s: factor must be positive", kind, name)
		}
		if factor <= 0 {
			factor = 1
		}
		set.index[name] = len(set.list)
		set.list = append(set.list, Point{Name: name, Address: addr, Factor: factor, LocalName: fp.LocalName})
	}
	return set, nil
}

func parseHex(s string, size int) ([]byte, error) {
	clean := strings.ReplaceAll(strings.TrimSpace(s), " ", "")
	clean = strings.TrimPrefix(strings.TrimPrefix(clean, "0x"), "0X")
	b, err := hex.DecodeString(clean)
	if err != nil {
		return nil, fmt.Errorf("invalid hex %q: %w", s, err)
	}
	if len(b) != size {
		return nil, fmt.Errorf("hex %q must be exactly %d byte(s)", s, size)
	}
	return b, nil
}

// Validate checks that every command and layout the device facade relies on
// is present.
func (c *Catalog) Validate() error {
	for _, name := range requiredCommands {
		if _, ok := c.commands[name]; !ok {
			return fmt.Errorf("catalog missing command %s", name)
		}
	}
	for _, name := range requiredLayouts {
		if _, ok := c.layouts[name]; !ok {
			return fmt.Errorf("catalog missing layout %s", name)
		}
	}
	return nil
}

func (c *Catalog) Command(name string) (Command, error) {
	cmd, ok := c.commands[name]
	if !ok {
		return Command{}, fmt.Errorf("%w: %s", protocol.ErrUnknownCommand, name)
	}
	return cmd, nil
}

// Opcode returns the opcode of a named command.
func (c *Catalog) Opcode(name string) (byte, error) {
	cmd, err := c.Command(name)
	if err != nil {
		return 0, err
	}
	return cmd.Opcode, nil
}

// Commands returns all commands ordered by opcode.
func (c *Catalog) Commands() []Command {
	out := make([]Command, 0, len(c.commands))
	for _, cmd := range c.commands {
		out = append(out, cmd)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Opcode < out[j].Opcode })
	return out
}

func (c *Catalog) Value(name string) (Point, error) {
	return lookup(c.values, "value", name)
}

// Values returns every value in catalog order.
func (c *Catalog) Values() []Point {
	return c.values.all()
}

// Group returns the values of a group in group order.
func (c *Catalog) Group(name string) ([]Point, error) {
	members, ok := c.groups[name]
	if !ok {
		return nil, fmt.Errorf("%w: group %s", protocol.ErrUnknownValue, name)
	}
	out := make([]Point, 0, len(members))
	for _, m := range members {
		p, _ := c.values.get(m)
		out = append(out, p)
	}
	return out, nil
}

func (c *Catalog) GroupNames() []string {
	names := make([]string, 0, len(c.groups))
	for name := range c.groups {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (c *Catalog) Setting(name string) (Point, error) {
	return lookup(c.settings, "setting", name)
}

func (c *Catalog) Settings() []Point {
	return c.settings.all()
}

func (c *Catalog) DigitalInput(name string) (Point, error) {
	return lookup(c.digitalInputs, "digital input", name)
}

func (c *Catalog) DigitalOutput(name string) (Point, error) {
	return lookup(c.digitalOutputs, "digital output", name)
}

func (c *Catalog) AnalogOutput(name string) (Point, error) {
	return lookup(c.analogOutputs, "analog output", name)
}

func (c *Catalog) TimeSlots() []Point {
	return c.timeSlots.all()
}

func (c *Catalog) Layout(name string) (schema.Layout, error) {
	l, ok := c.layouts[name]
	if !ok {
		return schema.Layout{}, fmt.Errorf("catalog: unknown layout %s", name)
	}
	return l, nil
}

func (c *Catalog) Reference(name string) (*schema.Reference, bool) {
	r, ok := c.references[name]
	return r, ok
}

func lookup(set pointSet, kind, name string) (Point, error) {
	p, ok := set.get(name)
	if !ok {
		return Point{}, fmt.Errorf("%w: %s %s", protocol.ErrUnknownValue, kind, name)
	}
	return p, nil
}
