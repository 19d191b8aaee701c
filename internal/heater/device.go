// Package heater exposes named heater operations on top of the transaction
// layer and the device catalog.
//
// Ownership boundary:
// - heater owns name resolution, scaling by factor and the readonly guard.
// - session owns framing, transactions and list pagination.
// - catalog owns opcodes, addresses and payload layouts.
package heater

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/danmuck/s3200ctl/internal/catalog"
	"github.com/danmuck/s3200ctl/internal/protocol"
	"github.com/danmuck/s3200ctl/internal/protocol/codec"
	"github.com/danmuck/s3200ctl/internal/protocol/frame"
	"github.com/danmuck/s3200ctl/internal/protocol/schema"
	"github.com/danmuck/s3200ctl/internal/protocol/session"
	"github.com/rs/zerolog/log"
)

// ErrNotAcknowledged is returned when a write is not echoed back unchanged.
var ErrNotAcknowledged = errors.New("heater: write not acknowledged")

const testStringLen = 15

const testAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// The version bytes decode on their own so an unset clock does not hide them.
var versionLayout = schema.NewLayout("version").
	Bytes("version", 0, 4).
	MustBuild()

var dateTimeLayout = schema.NewLayout("datetime").
	Field(schema.Field{Name: "datetime", Start: 4, ToEnd: true, Kind: schema.KindDateTime}).
	MustBuild()

type Options struct {
	// Readonly rejects every write with protocol.ErrReadonly.
	Readonly bool
	// Retry repeats read operations after garbled or missing answers.
	Retry session.RetryPolicy
}

func DefaultOptions() Options {
	return Options{Readonly: true, Retry: session.DefaultRetryPolicy()}
}

// Device serializes access to one controller. Methods are safe for
// concurrent use; transactions never overlap on the line.
type Device struct {
	mu       sync.Mutex
	client   *session.Client
	catalog  *catalog.Catalog
	readonly bool
	retry    session.RetryPolicy
	sleep    func(time.Duration)
	rng      *rand.Rand
}

func New(client *session.Client, cat *catalog.Catalog, opts Options) *Device {
	return &Device{
		client:   client,
		catalog:  cat,
		readonly: opts.Readonly,
		retry:    opts.Retry,
		sleep:    time.Sleep,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (d *Device) Catalog() *catalog.Catalog {
	return d.catalog
}

func (d *Device) Readonly() bool {
	return d.readonly
}

// NamedValue is a scaled value with its catalog names.
type NamedValue struct {
	Name      string  `json:"name"`
	LocalName string  `json:"local_name"`
	Value     float64 `json:"value"`
}

// Setting is a setting scaled by its factor.
type Setting struct {
	Name     string  `json:"name"`
	Unit     string  `json:"unit"`
	Value    float64 `json:"value"`
	Min      float64 `json:"min"`
	Max      float64 `json:"max"`
	Standard float64 `json:"standard"`
}

type StateAndMode struct {
	Mode  string `json:"mode"`
	State string `json:"state"`
}

// Value reads one value and divides it by its factor.
func (d *Device) Value(name string) (float64, error) {
	nv, err := d.ValueWithName(name)
	if err != nil {
		return 0, err
	}
	return nv.Value, nil
}

func (d *Device) ValueWithName(name string) (NamedValue, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	p, err := d.catalog.Value(name)
	if err != nil {
		return NamedValue{}, err
	}
	return d.readValue(p)
}

// Values reads a group in group order, or every value when group is empty.
func (d *Device) Values(group string) ([]NamedValue, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	points := d.catalog.Values()
	if group != "" {
		var err error
		if points, err = d.catalog.Group(group); err != nil {
			return nil, err
		}
	}
	out := make([]NamedValue, 0, len(points))
	for _, p := range points {
		nv, err := d.readValue(p)
		if err != nil {
			return nil, err
		}
		out = append(out, nv)
	}
	return out, nil
}

func (d *Device) readValue(p catalog.Point) (NamedValue, error) {
	answer, err := d.read(catalog.CmdGetValue, p.Address)
	if err != nil {
		return NamedValue{}, fmt.Errorf("heater: value %s: %w", p.Name, err)
	}
	raw, err := codec.ShortToInt(answer.Payload())
	if err != nil {
		return NamedValue{}, fmt.Errorf("heater: value %s: %w", p.Name, err)
	}
	return NamedValue{Name: p.Name, LocalName: p.LocalName, Value: float64(raw) / float64(p.Factor)}, nil
}

// TestConnection sends a random string and reports whether it comes back.
func (d *Device) TestConnection() (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	buf := make([]byte, testStringLen)
	for i := range buf {
		buf[i] = testAlphabet[d.rng.Intn(len(testAlphabet))]
	}
	answer, err := d.send(catalog.CmdTestConnection, buf)
	if err != nil {
		return false, err
	}
	ok := answer.PayloadEquals(buf)
	if !ok {
		log.Warn().Str("sent", string(buf)).Str("got", codec.Hex(answer.Payload())).Msg("heater: test connection mismatch")
	}
	return ok, nil
}

// Version renders the four version bytes as dotted hex, e.g. 50.04.04.14.
func (d *Device) Version() (string, error) {
	rec, err := d.versionRecord(versionLayout)
	if err != nil {
		return "", err
	}
	b, _ := rec.Bytes("version")
	parts := make([]string, len(b))
	for i, v := range b {
		parts[i] = fmt.Sprintf("%02x", v)
	}
	return strings.Join(parts, "."), nil
}

func (d *Device) DateTime() (time.Time, error) {
	rec, err := d.versionRecord(dateTimeLayout)
	if err != nil {
		return time.Time{}, err
	}
	t, _ := rec.Time("datetime")
	return t, nil
}

func (d *Device) versionRecord(layout schema.Layout) (schema.Record, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	answer, err := d.read(catalog.CmdGetVersionAndDateTime, nil)
	if err != nil {
		return schema.Record{}, err
	}
	return schema.Decode(answer.Payload(), layout)
}

func (d *Device) Errors() ([]schema.Record, error) {
	return d.list(catalog.CmdGetError, catalog.CmdGetNextError, catalog.LayoutError)
}

func (d *Device) Menu() ([]schema.Record, error) {
	return d.list(catalog.CmdGetMenuItem, catalog.CmdGetNextMenuItem, catalog.LayoutMenuItem)
}

func (d *Device) AvailableValues() ([]schema.Record, error) {
	return d.list(catalog.CmdGetAvailableValue, catalog.CmdGetNextAvailableValue, catalog.LayoutAvailableValue)
}

func (d *Device) TimeSlots() ([]schema.Record, error) {
	return d.list(catalog.CmdGetTimeSlot, catalog.CmdGetNextTimeSlot, catalog.LayoutTimeSlot)
}

// Configuration reports connected boilers, heating circuits and solar.
func (d *Device) Configuration() (schema.Record, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.readRecord(catalog.CmdGetConfiguration, nil, catalog.LayoutConfiguration)
}

// StateAndMode splits the "mode;state" text of the controller.
func (d *Device) StateAndMode() (StateAndMode, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	rec, err := d.readRecord(catalog.CmdGetHeaterStateAndMode, nil, catalog.LayoutStateAndMode)
	if err != nil {
		return StateAndMode{}, err
	}
	text, _ := rec.String("text")
	mode, state, _ := strings.Cut(text, ";")
	return StateAndMode{Mode: mode, State: state}, nil
}

// Setting reads the current, min, max and standard value of a setting.
// Values are truncated to integers when the device reports no decimals.
func (d *Device) Setting(name string) (Setting, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	p, err := d.catalog.Setting(name)
	if err != nil {
		return Setting{}, err
	}
	rec, err := d.readRecord(catalog.CmdGetSetting, p.Address, catalog.LayoutSetting)
	if err != nil {
		return Setting{}, fmt.Errorf("heater: setting %s: %w", name, err)
	}
	comma, _ := rec.Int("comma")
	scale := func(field string) float64 {
		raw, _ := rec.Int(field)
		v := float64(raw) / float64(p.Factor)
		if comma == 0 {
			v = math.Trunc(v)
		}
		return v
	}
	unit, _ := rec.String("unit")
	return Setting{
		Name:     name,
		Unit:     unit,
		Value:    scale("value"),
		Min:      scale("min_value"),
		Max:      scale("max_value"),
		Standard: scale("standard"),
	}, nil
}

// SetSetting writes value*factor to a setting. The device must echo the
// request payload.
func (d *Device) SetSetting(name string, value float64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.readonly {
		return fmt.Errorf("heater: set %s: %w", name, protocol.ErrReadonly)
	}
	p, err := d.catalog.Setting(name)
	if err != nil {
		return err
	}
	short, err := codec.IntToShort(int(math.Round(value * float64(p.Factor))))
	if err != nil {
		return fmt.Errorf("heater: set %s: %w", name, err)
	}
	payload := append(append([]byte(nil), p.Address...), short...)
	answer, err := d.send(catalog.CmdSetSetting, payload)
	if err != nil {
		return fmt.Errorf("heater: set %s: %w", name, err)
	}
	if !answer.PayloadEquals(payload) {
		return fmt.Errorf("%w: set %s answered %s", ErrNotAcknowledged, name, codec.Hex(answer.Payload()))
	}
	log.Info().Str("setting", name).Float64("value", value).Msg("heater: setting written")
	return nil
}

func (d *Device) DigitalInput(name string) (schema.Record, error) {
	return d.point(d.catalog.DigitalInput, name, catalog.CmdGetDigitalInput, catalog.LayoutDigitalInput)
}

func (d *Device) DigitalOutput(name string) (schema.Record, error) {
	return d.point(d.catalog.DigitalOutput, name, catalog.CmdGetDigitalOutput, catalog.LayoutDigitalOutput)
}

func (d *Device) AnalogOutput(name string) (schema.Record, error) {
	return d.point(d.catalog.AnalogOutput, name, catalog.CmdGetAnalogOutput, catalog.LayoutAnalogOutput)
}

// ForceMode reports whether manual overrides are active.
func (d *Device) ForceMode() (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	rec, err := d.readRecord(catalog.CmdGetForce, nil, catalog.LayoutForceMode)
	if err != nil {
		return false, err
	}
	active, _ := rec.Bool("is_force_active")
	return active, nil
}

func (d *Device) point(resolve func(string) (catalog.Point, error), name, cmd, layout string) (schema.Record, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	p, err := resolve(name)
	if err != nil {
		return schema.Record{}, err
	}
	rec, err := d.readRecord(cmd, p.Address, layout)
	if err != nil {
		return schema.Record{}, fmt.Errorf("heater: %s: %w", name, err)
	}
	return rec, nil
}

func (d *Device) list(startCmd, nextCmd, layoutName string) ([]schema.Record, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	start, err := d.catalog.Opcode(startCmd)
	if err != nil {
		return nil, err
	}
	next, err := d.catalog.Opcode(nextCmd)
	if err != nil {
		return nil, err
	}
	layout, err := d.catalog.Layout(layoutName)
	if err != nil {
		return nil, err
	}
	frames, err := session.WithRetry(d.retry, d.rng, d.sleep, func() ([]frame.Frame, error) {
		return d.client.GetList(start, next)
	})
	if err != nil {
		return nil, err
	}
	out := make([]schema.Record, 0, len(frames))
	for _, f := range frames {
		rec, err := schema.Decode(f.Payload(), layout)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

func (d *Device) readRecord(cmd string, payload []byte, layoutName string) (schema.Record, error) {
	layout, err := d.catalog.Layout(layoutName)
	if err != nil {
		return schema.Record{}, err
	}
	answer, err := d.read(cmd, payload)
	if err != nil {
		return schema.Record{}, err
	}
	return schema.Decode(answer.Payload(), layout)
}

// read is send with the read retry policy applied.
func (d *Device) read(cmd string, payload []byte) (frame.Frame, error) {
	return session.WithRetry(d.retry, d.rng, d.sleep, func() (frame.Frame, error) {
		return d.send(cmd, payload)
	})
}

func (d *Device) send(cmd string, payload []byte) (frame.Frame, error) {
	op, err := d.catalog.Opcode(cmd)
	if err != nil {
		return frame.Frame{}, err
	}
	return d.client.Send(op, payload)
}
