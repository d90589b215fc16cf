package observability

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

const (
	healthStatusOK          = "ok"
	healthStatusUnavailable = "unavailable"
)

// processStart anchors the uptime reported by the liveness endpoint.
var processStart = time.Now()

// ReadyCheck reports whether a subsystem is ready. Nil means the check
// passed; the error describes the failure.
type ReadyCheck func(ctx context.Context) error

// healthPayload is the JSON body served by the health endpoints.
type healthPayload struct {
	Status string `json:"status"`
	Uptime string `json:"uptime,omitempty"`
	Reason string `json:"reason,omitempty"`
}

// HealthHandler returns an [http.Handler] for liveness checks at /healthz.
// It always answers HTTP 200 with the process uptime.
func HealthHandler() http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, _ *http.Request) {
		writeHealth(rw, http.StatusOK, healthPayload{
			Status: healthStatusOK,
			Uptime: time.Since(processStart).Round(time.Second).String(),
		})
	})
}

// ReadyHandler returns an [http.Handler] for readiness checks at /readyz.
// It runs the checks in order; the first failure answers HTTP 503 with the
// failure reason. No checks, or all passing, answers HTTP 200.
func ReadyHandler(checks ...ReadyCheck) http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, hr *http.Request) {
		for _, check := range checks {
			err := check(hr.Context())
			if err != nil {
				writeHealth(rw, http.StatusServiceUnavailable, healthPayload{
					Status: healthStatusUnavailable,
					Reason: err.Error(),
				})

				return
			}
		}

		writeHealth(rw, http.StatusOK, healthPayload{Status: healthStatusOK})
	})
}

func writeHealth(rw http.ResponseWriter, code int, payload healthPayload) {
	data, err := json.Marshal(payload)
	if err != nil {
		http.Error(rw, "encode health payload", http.StatusInternalServerError)

		return
	}

	rw.Header().Set("Content-Type", "application/json")
	rw.WriteHeader(code)
	_, _ = rw.Write(data)
}
