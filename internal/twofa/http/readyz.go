package http

import (
	"context"
	"net/http"
	"time"

	"github.com/aussiebroadwan/sentinel/pkg/httpx"
	"github.com/aussiebroadwan/sentinel/pkg/twofasdk"
)

// Pinger is anything readiness can probe.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ReadyzHandler godoc
//
//	@Summary		Readiness Check Endpoint
//	@Description	Readiness probe endpoint returning service health status and checks for critical dependencies
//	@Description	Includes uptime, version, and status of the durable store and the verification session backend
//	@Tags			Health
//	@Produce		json
//	@Success		200	{object}	twofasdk.HealthResponse	"status, uptime, version, checks"
//	@Failure		503	{object}	twofasdk.HealthResponse	"status, uptime, version, checks - service not ready"
//	@Router			/readyz [get].
func ReadyzHandler(startTime time.Time, version string, db, sessions Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		checks := &twofasdk.HealthChecks{
			Database:     "ok",
			Verification: "ok",
		}
		overallStatus := "ok"
		statusCode := http.StatusOK

		// Check database connectivity
		if err := db.Ping(r.Context()); err != nil {
			checks.Database = "error: " + err.Error()
			overallStatus = "degraded"
			statusCode = http.StatusServiceUnavailable
		}

		// A lost verification backend breaks every setup and challenge
		if err := sessions.Ping(r.Context()); err != nil {
			checks.Verification = "error: " + err.Error()
			overallStatus = "degraded"
			statusCode = http.StatusServiceUnavailable
		}

		response := twofasdk.HealthResponse{
			Status:  overallStatus,
			Uptime:  time.Since(startTime).String(),
			Version: version,
			Checks:  checks,
		}
		httpx.WriteJSON(w, statusCode, response)
	}
}
