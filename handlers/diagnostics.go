package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"event-storefront/diagnostics"
	"event-storefront/middleware"
	"event-storefront/models"
	"event-storefront/utils"
)

const defaultFailureLimit = 50

// FailureLog is the read side of the payment-failure store.
type FailureLog interface {
	Recent(ctx context.Context, n int64) ([]diagnostics.Failure, error)
}

// DiagnosticsHandler lets operators read recorded payment failures.
type DiagnosticsHandler struct {
	failures FailureLog
	logger   *zap.Logger
}

func NewDiagnosticsHandler(failures FailureLog, logger *zap.Logger) *DiagnosticsHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DiagnosticsHandler{failures: failures, logger: logger}
}

// RegisterRoutes mounts the admin routes on api behind the bearer token.
func (h *DiagnosticsHandler) RegisterRoutes(api *mux.Router, token string) {
	admin := api.PathPrefix("/admin/diagnostics").Subrouter()
	admin.Use(middleware.RequireAdminToken(token, h.logger))
	admin.HandleFunc("/payment-failures", h.PaymentFailures).Methods(http.MethodGet)
}

// PaymentFailures lists the newest failures, oldest first. ?limit caps the
// count at the retained maximum.
func (h *DiagnosticsHandler) PaymentFailures(w http.ResponseWriter, r *http.Request) {
	limit := int64(defaultFailureLimit)
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || n <= 0 {
			utils.SendErrorResponse(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, diagnostics.DefaultMaxEntries)
	}

	failures, err := h.failures.Recent(r.Context(), limit)
	if err != nil {
		h.logger.Error("error listing payment failures", zap.Error(err))
		utils.SendErrorResponse(w, http.StatusServiceUnavailable, "Could not read payment failures")
		return
	}
	utils.SendSuccessResponse(w, models.APIResponse{Data: failures})
}
