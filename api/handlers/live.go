package handlers

import (
	"net/http"

	"github.com/linesmerrill/traffic-portal-api/api"
	"github.com/linesmerrill/traffic-portal-api/events"
)

// Live streams lifecycle events to dashboard clients
type Live struct {
	Hub *events.Hub
}

// LiveHandler upgrades to a WebSocket fed by the hub
func (l Live) LiveHandler(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	l.Hub.ServeWS(w, r, a.ID)
}

// LiveStatusHandler reports the number of connected live clients
func (l Live) LiveStatusHandler(w http.ResponseWriter, r *http.Request) {
	api.WriteJSON(w, http.StatusOK, map[string]int{"clients": l.Hub.Clients()})
}
