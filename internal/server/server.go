// Package server exposes a heater over HTTP: JSON reads, setting writes,
// Prometheus metrics and a websocket feed of live values.
package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/danmuck/s3200ctl/internal/auth"
	"github.com/danmuck/s3200ctl/internal/heater"
	"github.com/danmuck/s3200ctl/internal/observability"
	"github.com/danmuck/s3200ctl/internal/protocol"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

const version = "0.1.0"

type Config struct {
	ID           string
	Addr         string
	CORSOrigins  []string
	PollInterval time.Duration
	PollGroup    string
	// WriteToken, when set, must be sent as a bearer token on setting writes.
	WriteToken string
}

func DefaultConfig() Config {
	return Config{
		ID:           "s3200ctl",
		Addr:         ":9200",
		CORSOrigins:  []string{"http://localhost:3000"},
		PollInterval: 10 * time.Second,
		PollGroup:    "important",
	}
}

type Server struct {
	cfg      Config
	device   *heater.Device
	writes   auth.Validator
	upgrader websocket.Upgrader
	router   *gin.Engine
	started  time.Time
}

func New(device *heater.Device, cfg Config) *Server {
	observability.RegisterMetrics()
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultConfig().PollInterval
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(observability.RequestLogger(log.Logger))
	r.Use(observability.RequestMetricsMiddleware(cfg.ID))
	r.Use(cors.New(cors.Config{
		AllowOrigins: normalizeOrigins(cfg.CORSOrigins),
		AllowMethods: []string{"GET", "PUT"},
		AllowHeaders: []string{"Origin", "Content-Type", "Authorization"},
		MaxAge:       12 * time.Hour,
	}))
	_ = r.SetTrustedProxies([]string{"127.0.0.1", "::1"})

	s := &Server{
		cfg:      cfg,
		device:   device,
		writes:   auth.ForToken(cfg.WriteToken),
		upgrader: newUpgrader(normalizeOrigins(cfg.CORSOrigins)),
		router:   r,
		started:  time.Now(),
	}
	s.registerRoutes()
	return s
}

func (s *Server) HTTPRouter() *gin.Engine {
	return s.router
}

func (s *Server) Serve() error {
	log.Info().Str("addr", s.cfg.Addr).Bool("readonly", s.device.Readonly()).Msg("server: listening")
	return s.router.Run(s.cfg.Addr)
}

func (s *Server) registerRoutes() {
	r := s.router
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":   "ok",
			"uptime":   time.Since(s.started).String(),
			"id":       s.cfg.ID,
			"readonly": s.device.Readonly(),
			"version":  version,
		})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.GET("/values", func(c *gin.Context) {
		respond(c, func() (any, error) { return s.device.Values(c.Query("group")) })
	})
	r.GET("/values/:name", func(c *gin.Context) {
		respond(c, func() (any, error) { return s.device.ValueWithName(c.Param("name")) })
	})
	r.GET("/groups/:group", func(c *gin.Context) {
		respond(c, func() (any, error) { return s.device.Values(c.Param("group")) })
	})
	r.GET("/errors", func(c *gin.Context) {
		respond(c, func() (any, error) { return s.device.Errors() })
	})
	r.GET("/menu", func(c *gin.Context) {
		respond(c, func() (any, error) { return s.device.Menu() })
	})
	r.GET("/configuration", func(c *gin.Context) {
		respond(c, func() (any, error) { return s.device.Configuration() })
	})
	r.GET("/state", func(c *gin.Context) {
		respond(c, func() (any, error) { return s.device.StateAndMode() })
	})
	r.GET("/version", func(c *gin.Context) {
		respond(c, func() (any, error) {
			v, err := s.device.Version()
			if err != nil {
				return nil, err
			}
			return gin.H{"version": v}, nil
		})
	})
	r.GET("/settings/:name", func(c *gin.Context) {
		respond(c, func() (any, error) { return s.device.Setting(c.Param("name")) })
	})
	r.PUT("/settings/:name", s.requireWriteToken, s.putSetting)
	r.GET("/ws/values", s.streamValues)
}

func (s *Server) requireWriteToken(c *gin.Context) {
	token, _ := auth.BearerToken(c.GetHeader("Authorization"))
	if err := s.writes.Validate(token); err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}
	c.Next()
}

type settingRequest struct {
	Value *float64 `json:"value" binding:"required"`
}

func (s *Server) putSetting(c *gin.Context) {
	var req settingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	name := c.Param("name")
	if err := s.device.SetSetting(name, *req.Value); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "setting": name, "value": *req.Value})
}

func respond(c *gin.Context, fn func() (any, error)) {
	out, err := fn()
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func fail(c *gin.Context, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Str("path", c.FullPath()).Msg("server: device request failed")
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func statusFor(err error) int {
	var (
		checksum protocol.ChecksumError
		framing  protocol.FramingError
		count    protocol.WrongAnswerCountError
		decode   protocol.DecodeError
		ref      protocol.ReferenceError
		overflow protocol.ListOverflowError
		rng      protocol.RangeError
	)
	switch {
	case errors.Is(err, protocol.ErrUnknownValue), errors.Is(err, protocol.ErrUnknownCommand):
		return http.StatusNotFound
	case errors.Is(err, protocol.ErrReadonly):
		return http.StatusForbidden
	case errors.As(err, &rng):
		return http.StatusBadRequest
	case errors.Is(err, heater.ErrNotAcknowledged),
		errors.As(err, &checksum), errors.As(err, &framing), errors.As(err, &count),
		errors.As(err, &decode), errors.As(err, &ref), errors.As(err, &overflow):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func normalizeOrigins(origins []string) []string {
	if len(origins) == 0 {
		return []string{"http://localhost:3000"}
	}
	return origins
}
