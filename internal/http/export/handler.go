package export

import (
	"bytes"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/MrJamesThe3rd/budget/internal/budget"
	"github.com/MrJamesThe3rd/budget/internal/cycle"
	"github.com/MrJamesThe3rd/budget/internal/export"
	"github.com/MrJamesThe3rd/budget/internal/http/respond"
)

type Handler struct {
	svc *export.Service
}

func NewHandler(svc *export.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.download)
	r.Get("/summary", h.summary)
}

func (h *Handler) load(w http.ResponseWriter, r *http.Request) (*export.Cycle, bool) {
	userID, ok := respond.UserID(w, r)
	if !ok {
		return nil, false
	}

	var month *cycle.Month

	if s := r.URL.Query().Get("month"); s != "" {
		m, err := cycle.ParseMonth(s)
		if err != nil {
			respond.Error(w, r, &budget.ValidationError{Field: "month", Message: err.Error()})
			return nil, false
		}

		month = &m
	}

	c, err := h.svc.Export(r.Context(), userID, month)
	if err != nil {
		respond.Error(w, r, err)
		return nil, false
	}

	return c, true
}

// download streams the cycle as a zip of expenses.csv and summary.txt.
func (h *Handler) download(w http.ResponseWriter, r *http.Request) {
	c, ok := h.load(w, r)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := h.svc.WriteZip(&buf, c); err != nil {
		respond.Error(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", c.Filename()))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)

	if _, err := buf.WriteTo(w); err != nil {
		slog.ErrorContext(r.Context(), "failed to write export", "error", err)
	}
}

func (h *Handler) summary(w http.ResponseWriter, r *http.Request) {
	c, ok := h.load(w, r)
	if !ok {
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")

	if _, err := w.Write([]byte(export.GenerateSummary(c.Stats))); err != nil {
		slog.ErrorContext(r.Context(), "failed to write summary", "error", err)
	}
}
