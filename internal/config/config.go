// Package config loads the s3200ctl configuration file and maps it onto the
// transport, session, heater and server settings.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/danmuck/s3200ctl/internal/transport"
)

const DefaultPath = "s3200ctl.toml"

type Config struct {
	Port          string
	Driver        string
	Baud          int
	ReadTimeout   time.Duration
	Readonly      bool
	MaxListItems  int
	RetryAttempts int
	Codepage      string
	Catalog       string
	Listen        string
	CORSOrigins   []string
	PollInterval  time.Duration
	PollGroup     string
	WriteToken    string
}

// fileConfig mirrors s3200ctl.toml keys.
type fileConfig struct {
	Port          string   `toml:"port"`
	Driver        string   `toml:"driver"`
	Baud          int      `toml:"baud"`
	ReadTimeout   string   `toml:"read_timeout"`
	Readonly      bool     `toml:"readonly"`
	MaxListItems  int      `toml:"max_list_items"`
	RetryAttempts int      `toml:"retry_attempts"`
	Codepage      string   `toml:"codepage"`
	Catalog       string   `toml:"catalog"`
	Listen        string   `toml:"listen"`
	CORSOrigins   []string `toml:"cors_origins"`
	PollInterval  string   `toml:"poll_interval"`
	PollGroup     string   `toml:"poll_group"`
	WriteToken    string   `toml:"write_token"`
}

func Default() Config {
	tr := transport.DefaultConfig()
	return Config{
		Port:          tr.Port,
		Driver:        tr.Driver,
		Baud:          tr.BaudRate,
		ReadTimeout:   tr.ReadTimeout,
		Readonly:      true,
		MaxListItems:  500,
		RetryAttempts: 1,
		Listen:        ":9200",
		CORSOrigins:   []string{"http://localhost:3000"},
		PollInterval:  10 * time.Second,
		PollGroup:     "important",
	}
}

// Load overlays the keys present in path onto Default.
func Load(path string) (Config, error) {
	cfg := Default()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}

	if meta.IsDefined("port") {
		cfg.Port = strings.TrimSpace(raw.Port)
	}
	if meta.IsDefined("driver") {
		cfg.Driver = strings.ToLower(strings.TrimSpace(raw.Driver))
	}
	if meta.IsDefined("baud") {
		cfg.Baud = raw.Baud
	}
	if meta.IsDefined("read_timeout") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.ReadTimeout))
		if err != nil {
			return Config{}, fmt.Errorf("parse read_timeout: %w", err)
		}
		cfg.ReadTimeout = d
	}
	if meta.IsDefined("readonly") {
		cfg.Readonly = raw.Readonly
	}
	if meta.IsDefined("max_list_items") {
		cfg.MaxListItems = raw.MaxListItems
	}
	if meta.IsDefined("retry_attempts") {
		cfg.RetryAttempts = raw.RetryAttempts
	}
	if meta.IsDefined("codepage") {
		cfg.Codepage = strings.TrimSpace(raw.Codepage)
	}
	if meta.IsDefined("catalog") {
		cfg.Catalog = strings.TrimSpace(raw.Catalog)
	}
	if meta.IsDefined("listen") {
		cfg.Listen = strings.TrimSpace(raw.Listen)
	}
	if meta.IsDefined("cors_origins") {
		cfg.CORSOrigins = normalizeOrigins(raw.CORSOrigins)
	}
	if meta.IsDefined("poll_interval") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.PollInterval))
		if err != nil {
			return Config{}, fmt.Errorf("parse poll_interval: %w", err)
		}
		cfg.PollInterval = d
	}
	if meta.IsDefined("poll_group") {
		cfg.PollGroup = strings.TrimSpace(raw.PollGroup)
	}

	if meta.IsDefined("write_token") {
		cfg.WriteToken = strings.TrimSpace(raw.WriteToken)
	}

	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return Config{}, fmt.Errorf("config %s: unknown key %q", path, undecoded[0].String())
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if err := c.Transport().Validate(); err != nil {
		return err
	}
	if c.MaxListItems <= 0 {
		return fmt.Errorf("max_list_items must be positive")
	}
	if c.RetryAttempts < 1 {
		return fmt.Errorf("retry_attempts must be at least 1")
	}
	if strings.TrimSpace(c.Listen) == "" {
		return fmt.Errorf("listen is required")
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("poll_interval must be positive")
	}
	return nil
}

func normalizeOrigins(in []string) []string {
	out := make([]string, 0, len(in))
	for _, origin := range in {
		v := strings.TrimSpace(origin)
		if v == "" {
			continue
		}
		out = append(out, v)
	}
	return out
}
