package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"event-storefront/middleware"
	"event-storefront/models"
	"event-storefront/services/payment"
	"event-storefront/storefront"
	"event-storefront/store"
	"event-storefront/utils"
)

// StateResponse is the state snapshot plus the session's reload flag.
type StateResponse struct {
	SessionID      string      `json:"session_id"`
	ReloadRequired bool        `json:"reload_required"`
	ReloadReason   string      `json:"reload_reason,omitempty"`
	EventLoaded    bool        `json:"event_loaded"`
	State          store.State `json:"state"`
}

type SubmissionResponse struct {
	storefront.Submission
	State store.State `json:"state"`
}

type SelectionRequest struct {
	Key    string        `json:"key"`
	Choice models.Choice `json:"choice"`
}

type SelectionResponse struct {
	Found bool        `json:"found"`
	State store.State `json:"state"`
}

type CheckoutResponse struct {
	Handle    string                `json:"handle"`
	AttemptID string                `json:"attempt_id"`
	Widget    payment.WidgetOptions `json:"widget"`
}

type TokenRequest struct {
	Handle string              `json:"handle"`
	Token  models.PaymentToken `json:"token"`
}

type StorefrontHandler struct {
	manager *storefront.Manager
	cookies *middleware.SessionCookies
	logger  *zap.Logger
}

func NewStorefrontHandler(manager *storefront.Manager, cookies *middleware.SessionCookies, logger *zap.Logger) *StorefrontHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StorefrontHandler{manager: manager, cookies: cookies, logger: logger}
}

// RegisterRoutes mounts the storefront API on api, which is expected to be
// the /api subrouter.
func (h *StorefrontHandler) RegisterRoutes(api *mux.Router) {
	api.HandleFunc("/session", h.CreateSession).Methods(http.MethodPost, http.MethodOptions)
	api.Handle("/session", middleware.RequireSession(h.cookies, h.manager, h.logger)(http.HandlerFunc(h.EndSession))).
		Methods(http.MethodDelete)

	sess := api.NewRoute().Subrouter()
	sess.Use(middleware.RequireSession(h.cookies, h.manager, h.logger))

	sess.HandleFunc("/state", h.GetState).Methods(http.MethodGet)
	sess.HandleFunc("/event/init", h.InitEvent).Methods(http.MethodPost)
	sess.HandleFunc("/selection", h.SetSelection).Methods(http.MethodPut)
	sess.HandleFunc("/registration", h.UpdateRegistration).Methods(http.MethodPatch)
	sess.HandleFunc("/price", h.RequestPrice).Methods(http.MethodPost)
	sess.HandleFunc("/checkout", h.RequestCheckout).Methods(http.MethodPost)
	sess.HandleFunc("/prior-registrations", h.RequestPriorRegistrations).Methods(http.MethodPost)
	sess.HandleFunc("/payment/checkout", h.InitiateCheckout).Methods(http.MethodPost)
	sess.HandleFunc("/payment/token", h.DeliverToken).Methods(http.MethodPost)
	sess.HandleFunc("/payment/checkout/{handle}", h.CancelCheckout).Methods(http.MethodDelete)
	sess.HandleFunc("/admin/event-info", h.AdminEventInfo).Methods(http.MethodGet)
	sess.HandleFunc("/order-info/{token}", h.OrderInfo).Methods(http.MethodGet)
}

func (h *StorefrontHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var page models.PageContext
	if err := utils.DecodeJSON(r, &page); err != nil {
		utils.SendErrorResponse(w, http.StatusBadRequest, "Invalid page context")
		return
	}

	sess, err := h.manager.Create(r.Context(), page)
	if err != nil {
		if errors.Is(err, storefront.ErrMissingEventKey) {
			utils.SendErrorResponse(w, http.StatusBadRequest, "event_key is required")
			return
		}
		h.logger.Error("error creating session", zap.Error(err))
		utils.SendErrorResponse(w, http.StatusInternalServerError, "Could not create session")
		return
	}

	if err := h.cookies.Save(w, r, sess.ID()); err != nil {
		h.manager.Remove(sess.ID())
		h.logger.Error("error saving session cookie", zap.Error(err))
		utils.SendErrorResponse(w, http.StatusInternalServerError, "Could not create session")
		return
	}

	utils.SendJSON(w, http.StatusCreated, models.APIResponse{
		Status: "success",
		Data:   stateOf(sess),
	})
}

// EndSession drops the storefront session and expires its cookie.
func (h *StorefrontHandler) EndSession(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromContext(r.Context())
	h.manager.Remove(sess.ID())
	if err := h.cookies.Clear(w, r); err != nil {
		h.logger.Warn("error clearing session cookie", zap.Error(err))
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *StorefrontHandler) GetState(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromContext(r.Context())
	utils.SendSuccessResponse(w, models.APIResponse{Data: stateOf(sess)})
}

func (h *StorefrontHandler) InitEvent(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromContext(r.Context())
	if err := sess.InitEvent(r.Context()); err != nil {
		h.sendError(w, sess, err)
		return
	}
	utils.SendSuccessResponse(w, models.APIResponse{Data: stateOf(sess)})
}

func (h *StorefrontHandler) SetSelection(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromContext(r.Context())

	var req SelectionRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.SendErrorResponse(w, http.StatusBadRequest, "Invalid selection")
		return
	}

	found, err := sess.Store().SetSelection(req.Key, req.Choice)
	if err != nil {
		utils.SendErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}
	utils.SendSuccessResponse(w, models.APIResponse{Data: SelectionResponse{
		Found: found,
		State: sess.Store().Snapshot(),
	}})
}

func (h *StorefrontHandler) UpdateRegistration(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromContext(r.Context())

	var patch models.RegistrationPatch
	if err := utils.DecodeJSON(r, &patch); err != nil {
		utils.SendErrorResponse(w, http.StatusBadRequest, "Invalid registration update")
		return
	}

	sess.Store().UpdateRegistration(patch)
	utils.SendSuccessResponse(w, models.APIResponse{Data: stateOf(sess)})
}

func (h *StorefrontHandler) RequestPrice(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromContext(r.Context())
	h.sendSubmission(w, sess)(sess.RequestPrice(r.Context()))
}

func (h *StorefrontHandler) RequestCheckout(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromContext(r.Context())
	h.sendSubmission(w, sess)(sess.RequestCheckout(r.Context()))
}

func (h *StorefrontHandler) RequestPriorRegistrations(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromContext(r.Context())
	h.sendSubmission(w, sess)(sess.RequestPriorRegistrations(r.Context()))
}

func (h *StorefrontHandler) sendSubmission(w http.ResponseWriter, sess *storefront.Session) func(storefront.Submission, error) {
	return func(sub storefront.Submission, err error) {
		if err != nil {
			h.sendError(w, sess, err)
			return
		}
		status := http.StatusOK
		if sub.Superseded {
			status = http.StatusAccepted
		}
		utils.SendJSON(w, status, models.APIResponse{
			Status: "success",
			Data: SubmissionResponse{
				Submission: sub,
				State:      sess.Store().Snapshot(),
			},
		})
	}
}

func (h *StorefrontHandler) InitiateCheckout(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromContext(r.Context())

	checkout, err := sess.Payments().InitiateCheckout(r.Context())
	if err != nil {
		h.sendError(w, sess, err)
		return
	}
	utils.SendSuccessResponse(w, models.APIResponse{Data: CheckoutResponse{
		Handle:    checkout.Handle(),
		AttemptID: checkout.ID(),
		Widget:    checkout.Options(),
	}})
}

func (h *StorefrontHandler) DeliverToken(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromContext(r.Context())

	var req TokenRequest
	if err := utils.DecodeJSON(r, &req); err != nil || req.Handle == "" || req.Token.ID == "" {
		utils.SendErrorResponse(w, http.StatusBadRequest, "Invalid payment token")
		return
	}

	result, err := sess.Payments().DeliverToken(r.Context(), req.Handle, req.Token)
	if err != nil {
		h.sendError(w, sess, err)
		return
	}
	utils.SendSuccessResponse(w, models.APIResponse{Data: result})
}

func (h *StorefrontHandler) CancelCheckout(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromContext(r.Context())

	if err := sess.Payments().CancelHandle(mux.Vars(r)["handle"]); err != nil {
		h.sendError(w, sess, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *StorefrontHandler) AdminEventInfo(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromContext(r.Context())

	info, err := sess.LoadAdminEventInfo(r.Context())
	if err != nil {
		h.sendError(w, sess, err)
		return
	}
	utils.SendSuccessResponse(w, models.APIResponse{Data: info})
}

func (h *StorefrontHandler) OrderInfo(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromContext(r.Context())

	info, err := sess.LoadOrderInfo(r.Context(), mux.Vars(r)["token"])
	if err != nil {
		h.sendError(w, sess, err)
		return
	}
	utils.SendSuccessResponse(w, models.APIResponse{Data: info})
}

func (h *StorefrontHandler) sendError(w http.ResponseWriter, sess *storefront.Session, err error) {
	switch {
	case errors.Is(err, storefront.ErrReloadRequired):
		_, reason := sess.ReloadRequired()
		utils.SendJSON(w, http.StatusConflict, models.APIResponse{
			Status:  "error",
			Message: "Page session expired, please reload",
			Data:    map[string]any{"reload_required": true, "reason": reason},
		})
	case errors.Is(err, storefront.ErrEventNotLoaded):
		utils.SendErrorResponse(w, http.StatusConflict, "Event not loaded")
	case errors.Is(err, payment.ErrNoPaymentSetup):
		utils.SendErrorResponse(w, http.StatusConflict, "Nothing to pay for yet")
	case errors.Is(err, payment.ErrAttemptClosed):
		utils.SendErrorResponse(w, http.StatusConflict, "Checkout attempt already closed")
	case errors.Is(err, payment.ErrInvalidHandle):
		utils.SendErrorResponse(w, http.StatusForbidden, "Invalid checkout handle")
	case errors.Is(err, context.Canceled):
		utils.SendErrorResponse(w, http.StatusServiceUnavailable, "Request cancelled")
	default:
		h.logger.Warn("upstream call failed", zap.String("session_id", sess.ID()), zap.Error(err))
		utils.SendErrorResponse(w, http.StatusBadGateway, "Pricing service unavailable")
	}
}

func stateOf(sess *storefront.Session) StateResponse {
	reload, reason := sess.ReloadRequired()
	return StateResponse{
		SessionID:      sess.ID(),
		ReloadRequired: reload,
		ReloadReason:   reason,
		EventLoaded:    sess.EventLoaded(),
		State:          sess.Store().Snapshot(),
	}
}
