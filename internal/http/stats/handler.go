package stats

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/budget/internal/budget"
	"github.com/MrJamesThe3rd/budget/internal/cycle"
	"github.com/MrJamesThe3rd/budget/internal/http/respond"
)

type Handler struct {
	svc *budget.Service
}

func NewHandler(svc *budget.Service) *Handler {
	return &Handler{svc: svc}
}

// Routes mounts the cycle statistics.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/monthly", h.monthly)
	r.Get("/rollover", h.rollover)
}

// HistoryRoutes mounts the archived cycles.
func (h *Handler) HistoryRoutes(r chi.Router) {
	r.Get("/", h.history)
}

type categoryStats struct {
	respond.Category
	Spent        decimal.Decimal `json:"spent"`
	Remaining    decimal.Decimal `json:"remaining"`
	IsOverBudget bool            `json:"isOverBudget"`
}

type monthlyResponse struct {
	Month         cycle.Month     `json:"month"`
	PeriodStart   time.Time       `json:"periodStart"`
	PeriodEnd     time.Time       `json:"periodEnd"`
	TotalBudget   decimal.Decimal `json:"totalBudget"`
	TotalSpent    decimal.Decimal `json:"totalSpent"`
	Remaining     decimal.Decimal `json:"remaining"`
	Uncategorized decimal.Decimal `json:"uncategorized"`
	Categories    []categoryStats `json:"categories"`
}

type rolloverResponse struct {
	State budget.State `json:"state"`
}

type historyResponse struct {
	ID          uuid.UUID       `json:"id"`
	Month       cycle.Month     `json:"month"`
	TotalBudget decimal.Decimal `json:"totalBudget"`
	TotalSpent  decimal.Decimal `json:"totalSpent"`
	CreatedAt   time.Time       `json:"createdAt"`
}

func (h *Handler) monthly(w http.ResponseWriter, r *http.Request) {
	userID, ok := respond.UserID(w, r)
	if !ok {
		return
	}

	var month *cycle.Month

	if s := r.URL.Query().Get("month"); s != "" {
		m, err := cycle.ParseMonth(s)
		if err != nil {
			respond.Error(w, r, &budget.ValidationError{Field: "month", Message: err.Error()})
			return
		}

		month = &m
	}

	stats, err := h.svc.MonthlyStats(r.Context(), userID, month)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	resp := monthlyResponse{
		Month:         stats.Period.Month(),
		PeriodStart:   stats.Period.Start,
		PeriodEnd:     stats.Period.End,
		TotalBudget:   stats.TotalBudget,
		TotalSpent:    stats.TotalSpent,
		Remaining:     stats.Remaining,
		Uncategorized: stats.Uncategorized,
		Categories:    make([]categoryStats, len(stats.Categories)),
	}

	for i, c := range stats.Categories {
		resp.Categories[i] = categoryStats{
			Category:     respond.ToCategory(c.Category),
			Spent:        c.Spent,
			Remaining:    c.Remaining,
			IsOverBudget: c.OverBudget(),
		}
	}

	respond.JSON(w, http.StatusOK, resp)
}

func (h *Handler) rollover(w http.ResponseWriter, r *http.Request) {
	userID, ok := respond.UserID(w, r)
	if !ok {
		return
	}

	state, err := h.svc.Engine().Status(r.Context(), userID)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusOK, rolloverResponse{State: state})
}

func (h *Handler) history(w http.ResponseWriter, r *http.Request) {
	userID, ok := respond.UserID(w, r)
	if !ok {
		return
	}

	entries, err := h.svc.ListHistory(r.Context(), userID)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	resp := make([]historyResponse, len(entries))
	for i, e := range entries {
		resp[i] = historyResponse{
			ID:          e.ID,
			Month:       e.Month,
			TotalBudget: e.TotalBudget,
			TotalSpent:  e.TotalSpent,
			CreatedAt:   e.CreatedAt,
		}
	}

	respond.JSON(w, http.StatusOK, resp)
}
