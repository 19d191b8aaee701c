package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/danmuck/s3200ctl/internal/testutil/testlog"
	"github.com/danmuck/s3200ctl/internal/transport"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), DefaultPath)
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestTemplateLoadsAsDefaults(t *testing.T) {
	testlog.Start(t)
	path := filepath.Join(t.TempDir(), DefaultPath)
	if err := WriteTemplate(path, false); err != nil {
		t.Fatalf("write template: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	def := Default()
	if cfg.Port != def.Port || cfg.Baud != def.Baud || cfg.ReadTimeout != def.ReadTimeout ||
		cfg.Readonly != def.Readonly || cfg.PollGroup != def.PollGroup || cfg.PollInterval != def.PollInterval {
		t.Fatalf("template config got=%+v want=%+v", cfg, def)
	}
	if err := WriteTemplate(path, false); err == nil {
		t.Fatalf("expected refusal to overwrite")
	}
	if err := WriteTemplate(path, true); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
}

func TestLoadOverridesOnlyDefinedKeys(t *testing.T) {
	testlog.Start(t)
	path := writeConfig(t, `
driver = "sim"
readonly = false
read_timeout = "500ms"
cors_origins = [" http://a ", ""]
poll_group = "heater"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Driver != transport.DriverSim || cfg.Readonly {
		t.Fatalf("driver/readonly got=%s/%v", cfg.Driver, cfg.Readonly)
	}
	if cfg.ReadTimeout != 500*time.Millisecond {
		t.Fatalf("read timeout got=%v", cfg.ReadTimeout)
	}
	if len(cfg.CORSOrigins) != 1 || cfg.CORSOrigins[0] != "http://a" {
		t.Fatalf("cors got=%v", cfg.CORSOrigins)
	}
	if cfg.Baud != 57600 || cfg.MaxListItems != 500 || cfg.Listen != ":9200" {
		t.Fatalf("defaults lost: %+v", cfg)
	}

	if tr := cfg.Transport(); tr.Driver != transport.DriverSim || tr.BaudRate != 57600 {
		t.Fatalf("transport got=%+v", tr)
	}
	if h := cfg.Heater(); h.Readonly || h.Retry.Attempts != 1 {
		t.Fatalf("heater got=%+v", h)
	}
	if s := cfg.Server(); s.PollGroup != "heater" || s.Addr != ":9200" {
		t.Fatalf("server got=%+v", s)
	}
	if s := cfg.Session(); s.MaxListItems != 500 || len(s.ContinuationPayload) != 1 {
		t.Fatalf("session got=%+v", s)
	}
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	testlog.Start(t)
	cases := map[string]string{
		"driver":       `driver = "usb"`,
		"timeout":      `read_timeout = "soon"`,
		"list":         `max_list_items = 0`,
		"retry":        `retry_attempts = 0`,
		"poll":         `poll_interval = "0s"`,
		"unknown key":  `baudrate = 9600`,
		"syntax":       `port = `,
		"empty listen": `listen = " "`,
	}
	for name, body := range cases {
		if _, err := Load(writeConfig(t, body)); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.toml")); err == nil || !strings.Contains(err.Error(), "load config") {
		t.Fatalf("missing file err=%v", err)
	}
}
