package httpserver

import (
	"context"
	"encoding/json"
	"net/http"
)

// HealthCheckHandler returns a handler that runs the provided probes and
// reports 200 when all pass, 503 otherwise. Suitable for liveness and
// readiness endpoints.
func HealthCheckHandler(probes ...func(context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		for _, probe := range probes {
			if err := probe(r.Context()); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				_ = json.NewEncoder(w).Encode(map[string]string{"status": "unavailable"})
				return
			}
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	}
}
