package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/danmuck/s3200ctl/internal/config"
	"github.com/danmuck/s3200ctl/internal/heater"
	"github.com/danmuck/s3200ctl/internal/testutil/testlog"
)

const exampleConfig = "ex.config.toml"

func runJSON(t *testing.T, out any, args ...string) {
	t.Helper()
	var buf bytes.Buffer
	if err := run(append([]string{"-config", exampleConfig}, args...), &buf); err != nil {
		t.Fatalf("run %v: %v", args, err)
	}
	if err := json.Unmarshal(buf.Bytes(), out); err != nil {
		t.Fatalf("decode %v output: %v\n%s", args, err, buf.String())
	}
}

func TestExampleConfig(t *testing.T) {
	testlog.Start(t)
	cfg, err := config.Load(exampleConfig)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Driver != "sim" || cfg.Readonly || cfg.RetryAttempts != 2 || cfg.PollInterval != 5*time.Second {
		t.Fatalf("config got=%+v", cfg)
	}
}

func TestRunValueCommands(t *testing.T) {
	testlog.Start(t)
	var nv heater.NamedValue
	runJSON(t, &nv, "value", "operating_hours")
	if nv.Value != 55 {
		t.Fatalf("operating_hours got=%v want=55", nv.Value)
	}

	var group []heater.NamedValue
	runJSON(t, &group, "values", "boiler_1")
	if len(group) != 2 || group[1].Value != 4322 {
		t.Fatalf("boiler_1 got=%+v", group)
	}

	var version map[string]string
	runJSON(t, &version, "version")
	if version["version"] != "50.04.04.14" {
		t.Fatalf("version got=%v", version)
	}

	var errs []map[string]any
	runJSON(t, &errs, "errors")
	if len(errs) != 1 || errs[0]["text"] != "Zündversuch nicht gelungen von Hand Anheizen!" {
		t.Fatalf("errors got=%v", errs)
	}

	var set map[string]any
	runJSON(t, &set, "set", "heating_boiler_should_temperature", "72.5")
	if set["value"] != 72.5 {
		t.Fatalf("set got=%v", set)
	}
}

func TestRunUsageErrors(t *testing.T) {
	testlog.Start(t)
	cases := [][]string{
		{},
		{"-config", exampleConfig, "value"},
		{"-config", exampleConfig, "values", "a", "b"},
		{"-config", exampleConfig, "set", "start_firing", "many"},
		{"-config", exampleConfig, "reboot"},
		{"-nope"},
	}
	for _, args := range cases {
		if err := run(args, &bytes.Buffer{}); !errors.Is(err, errUsage) {
			t.Fatalf("args %v: err=%v want usage error", args, err)
		}
	}
}

func TestRunInitWritesTemplate(t *testing.T) {
	testlog.Start(t)
	path := filepath.Join(t.TempDir(), "s3200ctl.toml")
	var buf bytes.Buffer
	if err := run([]string{"-config", path, "init"}, &buf); err != nil {
		t.Fatalf("init: %v", err)
	}
	if !strings.Contains(buf.String(), path) {
		t.Fatalf("init output got=%s", buf.String())
	}
	if _, err := config.Load(path); err != nil {
		t.Fatalf("load written template: %v", err)
	}
	if err := run([]string{"-config", path, "init"}, &buf); err == nil {
		t.Fatalf("expected init to refuse overwrite")
	}
}
