package matching

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/budget/internal/http/respond"
	"github.com/MrJamesThe3rd/budget/internal/matching"
)

type Handler struct {
	svc *matching.Service
}

func NewHandler(svc *matching.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Routes(r chi.Router) {
	r.Get("/suggest", h.suggest)
	r.Post("/", h.learn)
}

type suggestResponse struct {
	RawDescription string     `json:"rawDescription"`
	Description    string     `json:"description,omitempty"`
	CategoryID     *uuid.UUID `json:"categoryId,omitempty"`
	Matched        bool       `json:"matched"`
}

func (h *Handler) suggest(w http.ResponseWriter, r *http.Request) {
	userID, ok := respond.UserID(w, r)
	if !ok {
		return
	}

	raw := r.URL.Query().Get("rawDescription")
	if raw == "" {
		respond.Message(w, http.StatusBadRequest, "rawDescription query parameter is required")
		return
	}

	sug, err := h.svc.Suggest(r.Context(), userID, raw)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	resp := suggestResponse{RawDescription: raw}
	if sug != nil {
		resp.Description = sug.Description
		resp.CategoryID = sug.CategoryID
		resp.Matched = true
	}

	respond.JSON(w, http.StatusOK, resp)
}

type learnRequest struct {
	RawPattern  string     `json:"rawPattern"`
	Description string     `json:"description"`
	CategoryID  *uuid.UUID `json:"categoryId"`
}

func (h *Handler) learn(w http.ResponseWriter, r *http.Request) {
	userID, ok := respond.UserID(w, r)
	if !ok {
		return
	}

	var req learnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Message(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	err := h.svc.Learn(r.Context(), userID, req.RawPattern, matching.Suggestion{
		Description: req.Description,
		CategoryID:  req.CategoryID,
	})
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	w.WriteHeader(http.StatusCreated)
}
