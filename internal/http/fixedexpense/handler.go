package fixedexpense

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

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
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Delete("/{id}", h.delete)
}

type createRequest struct {
	Name       string          `json:"name"`
	Amount     decimal.Decimal `json:"amount"`
	CategoryID *uuid.UUID      `json:"categoryId"`
}

type fixedExpenseResponse struct {
	ID         uuid.UUID       `json:"id"`
	Name       string          `json:"name"`
	Amount     decimal.Decimal `json:"amount"`
	CategoryID *uuid.UUID      `json:"categoryId"`
	CreatedAt  time.Time       `json:"createdAt"`
}

func toResponse(fe *budget.FixedExpense) fixedExpenseResponse {
	return fixedExpenseResponse{
		ID:         fe.ID,
		Name:       fe.Name,
		Amount:     fe.Amount,
		CategoryID: fe.CategoryID,
		CreatedAt:  fe.CreatedAt,
	}
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	userID, ok := respond.UserID(w, r)
	if !ok {
		return
	}

	fixed, err := h.svc.ListFixedExpenses(r.Context(), userID)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	resp := make([]fixedExpenseResponse, len(fixed))
	for i, fe := range fixed {
		resp[i] = toResponse(fe)
	}

	respond.JSON(w, http.StatusOK, resp)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	userID, ok := respond.UserID(w, r)
	if !ok {
		return
	}

	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Message(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	fe, err := h.svc.CreateFixedExpense(r.Context(), userID, budget.CreateFixedExpenseParams{
		Name:       req.Name,
		Amount:     req.Amount,
		CategoryID: req.CategoryID,
	})
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusCreated, toResponse(fe))
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := respond.UserID(w, r)
	if !ok {
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respond.Message(w, http.StatusBadRequest, "invalid id")
		return
	}

	if err := h.svc.DeleteFixedExpense(r.Context(), userID, id); err != nil {
		respond.Error(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
