package api

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/linesmerrill/traffic-portal-api/models"
)

// HealthCheckHandler reports that the process is serving
func HealthCheckHandler(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, models.HealthCheckResponse{Alive: true})
}

// WriteJSON writes v as the JSON response body with the given status
func WriteJSON(w http.ResponseWriter, status int, v interface{}) {
	b, err := json.Marshal(v)
	if err != nil {
		zap.S().Errorw("failed to marshal response", "error", err)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"Response":{"Message":"failed to marshal response","Error":""}}`))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(b)
}
