package handlers

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"event-storefront/utils"
)

// Pinger checks a dependency. A nil Pinger is reported as "disabled".
type Pinger func(ctx context.Context) error

type SessionCounter interface {
	Len() int
}

type HealthHandler struct {
	startTime time.Time
	sessions  SessionCounter
	redis     Pinger
}

func NewHealthHandler(sessions SessionCounter, redis Pinger) *HealthHandler {
	return &HealthHandler{startTime: time.Now(), sessions: sessions, redis: redis}
}

type healthResponse struct {
	Status    string `json:"status"`
	Time      string `json:"time"`
	Redis     string `json:"redis"`
	Sessions  int    `json:"sessions"`
	Uptime    string `json:"uptime"`
	GoVersion string `json:"go_version"`
}

func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	health := healthResponse{
		Status:    "ok",
		Time:      time.Now().Format(time.RFC3339),
		Redis:     "disabled",
		Sessions:  h.sessions.Len(),
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
		GoVersion: runtime.Version(),
	}

	if h.redis != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 500*time.Millisecond)
		defer cancel()
		if err := h.redis(ctx); err != nil {
			health.Status = "degraded"
			health.Redis = "error"
		} else {
			health.Redis = "connected"
		}
	}

	utils.SendJSON(w, http.StatusOK, health)
}
