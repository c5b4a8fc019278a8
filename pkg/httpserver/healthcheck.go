package httpserver

import (
	"context"
	"encoding/json"
	"log/slog"
	"maps"
	"net/http"

	"github.com/dmitrymomot/storytime/pkg/logger"
)

// Check reports a dependency's health; nil means healthy.
type Check func(context.Context) error

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// LivenessHandler always answers 200 while the process is serving.
func LivenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, healthResponse{Status: "alive"})
	}
}

// ReadinessHandler runs every check with the request context and answers
// 503 when any of them fails.
func ReadinessHandler(log *slog.Logger, checks map[string]Check) http.HandlerFunc {
	checks = maps.Clone(checks)
	return func(w http.ResponseWriter, r *http.Request) {
		res := healthResponse{Status: "ready", Checks: make(map[string]string, len(checks))}
		status := http.StatusOK

		for name, check := range checks {
			if err := check(r.Context()); err != nil {
				log.WarnContext(r.Context(), "readiness check failed", slog.String("check", name), logger.Error(err))
				res.Checks[name] = "down: " + err.Error()
				res.Status = "not_ready"
				status = http.StatusServiceUnavailable
				continue
			}
			res.Checks[name] = "up"
		}

		writeJSON(w, status, res)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
