package config

import (
	"github.com/danmuck/s3200ctl/internal/heater"
	"github.com/danmuck/s3200ctl/internal/protocol/session"
	"github.com/danmuck/s3200ctl/internal/server"
	"github.com/danmuck/s3200ctl/internal/transport"
)

func (c Config) Transport() transport.Config {
	return transport.Config{
		Port:        c.Port,
		Driver:      c.Driver,
		BaudRate:    c.Baud,
		ReadTimeout: c.ReadTimeout,
	}
}

func (c Config) Session() session.Config {
	cfg := session.DefaultConfig()
	cfg.MaxListItems = c.MaxListItems
	return cfg
}

func (c Config) Heater() heater.Options {
	opts := heater.DefaultOptions()
	opts.Readonly = c.Readonly
	opts.Retry.Attempts = c.RetryAttempts
	return opts
}

func (c Config) Server() server.Config {
	cfg := server.DefaultConfig()
	cfg.Addr = c.Listen
	cfg.CORSOrigins = c.CORSOrigins
	cfg.PollInterval = c.PollInterval
	cfg.PollGroup = c.PollGroup
	cfg.WriteToken = c.WriteToken
	return cfg
}
