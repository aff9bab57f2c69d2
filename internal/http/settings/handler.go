package settings

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/MrJamesThe3rd/budget/internal/budget"
	"github.com/MrJamesThe3rd/budget/internal/http/respond"
)

type Handler struct {
	svc *budget.Service
}

func NewHandler(svc *budget.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.get)
	r.Put("/", h.update)
}

type settingsResponse struct {
	ResetDay      int        `json:"resetDay"`
	LastResetDate *time.Time `json:"lastResetDate"`
}

type updateRequest struct {
	ResetDay *int `json:"resetDay"`
}

func toResponse(s *budget.Settings) settingsResponse {
	return settingsResponse{ResetDay: s.ResetDay, LastResetDate: s.LastResetDate}
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	userID, ok := respond.UserID(w, r)
	if !ok {
		return
	}

	s, err := h.svc.GetSettings(r.Context(), userID)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusOK, toResponse(s))
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	userID, ok := respond.UserID(w, r)
	if !ok {
		return
	}

	var req updateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Message(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	if req.ResetDay == nil {
		respond.Error(w, r, &budget.ValidationError{Field: "resetDay", Message: "resetDay is required"})
		return
	}

	s, err := h.svc.UpdateSettings(r.Context(), userID, budget.UpdateSettingsParams{ResetDay: *req.ResetDay})
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusOK, toResponse(s))
}
