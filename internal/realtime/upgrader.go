package realtime

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/websocket"

	"github.com/Softvence-Omega-Cyber-Monk/fahad-pervej-backend/pkg/config"
)

// NewUpgrader builds the websocket upgrader for cfg. Origins are checked
// against cfg.AllowedOrigins; with no list configured only same-host
// browsers are accepted.
func NewUpgrader(cfg config.RealtimeConfig) *websocket.Upgrader {
	allowed := make(map[string]struct{}, len(cfg.AllowedOrigins))
	wildcard := false
	for _, origin := range cfg.AllowedOrigins {
		origin = strings.ToLower(strings.TrimRight(strings.TrimSpace(origin), "/"))
		if origin == "" {
			continue
		}
		if origin == "*" {
			wildcard = true
			continue
		}
		allowed[origin] = struct{}{}
	}

	return &websocket.Upgrader{
		HandshakeTimeout: cfg.WriteWait,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" || wildcard {
				return true
			}
			if len(allowed) == 0 {
				u, err := url.Parse(origin)
				return err == nil && strings.EqualFold(u.Host, r.Host)
			}
			_, ok := allowed[strings.ToLower(strings.TrimRight(origin, "/"))]
			return ok
		},
	}
}
