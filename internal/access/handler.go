package access

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/keystone-iam/keystone/internal/platform/httpx"
	"github.com/keystone-iam/keystone/internal/shared"
)

// Handler exposes the self-permission query and the simulation service.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	mw        Middleware
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, mw Middleware) *Handler {
	return &Handler{
		logger:    logger,
		service:   service,
		mw:        mw,
		validator: validator.New(),
	}
}

// MountRoutes registers access routes. Both endpoints require authentication
// but no specific grant: any principal may inspect or simulate for themselves.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.mw.RequireAuthenticated)
		r.Get("/me/permissions", h.myPermissions)
		r.Post("/simulate", h.simulate)
	})
}

type permissionsResponse struct {
	Permissions []Grant `json:"permissions"`
}

// myPermissions returns the caller's full resolved grant set. The list is
// advisory, for client-side feature visibility; the gate stays authoritative.
func (h *Handler) myPermissions(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	userID, _ := sess.PrincipalID()
	grants, err := h.service.ResolvePermissions(r.Context(), userID)
	if err != nil {
		h.logger.Error("resolve permissions", slog.Int64("user_id", userID), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, permissionsResponse{Permissions: grants})
}

type simulateRequest struct {
	Module string `json:"module" validate:"required"`
	Action string `json:"action" validate:"required"`
}

type simulateResponse struct {
	Allowed bool `json:"allowed"`
}

// simulate answers whether the caller would be allowed the supplied pair.
// The pair is not checked against the modules or permissions tables; an
// unknown pair is simply not granted.
func (h *Handler) simulate(w http.ResponseWriter, r *http.Request) {
	var req simulateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Input", "malformed request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Input", "module and action are required")
		return
	}
	sess := shared.SessionFromContext(r.Context())
	userID, _ := sess.PrincipalID()
	allowed, err := h.service.Simulate(r.Context(), userID, req.Module, req.Action)
	if err != nil {
		h.logger.Error("simulate action", slog.Int64("user_id", userID), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, simulateResponse{Allowed: allowed})
}
