package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const writeWait = 5 * time.Second

// newUpgrader accepts clients without an Origin header and browsers from the
// configured CORS origins.
func newUpgrader(origins []string) websocket.Upgrader {
	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		allowed[o] = true
	}
	return websocket.Upgrader{CheckOrigin: func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || allowed["*"] || allowed[origin]
	}}
}

type valuesMessage struct {
	Group  string `json:"group"`
	Time   string `json:"time"`
	Values any    `json:"values,omitempty"`
	Error  string `json:"error,omitempty"`
}

// streamValues pushes the poll group (or ?group=) once on connect and then
// every poll interval until the client goes away.
func (s *Server) streamValues(c *gin.Context) {
	group := c.DefaultQuery("group", s.cfg.PollGroup)
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Warn().Err(err).Msg("server: websocket upgrade")
		return
	}
	defer func() {
		if err := conn.Close(); err != nil {
			log.Debug().Err(err).Msg("server: close websocket")
		}
	}()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()
	for {
		msg := valuesMessage{Group: group, Time: time.Now().UTC().Format(time.RFC3339)}
		values, err := s.device.Values(group)
		if err != nil {
			msg.Error = err.Error()
		} else {
			msg.Values = values
		}
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(msg); err != nil {
			log.Debug().Err(err).Str("group", group).Msg("server: websocket write")
			return
		}
		select {
		case <-done:
			return
		case <-ticker.C:
		}
	}
}
