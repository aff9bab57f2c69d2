package export_test

import (
	"archive/zip"
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/budget/internal/auth"
	"github.com/MrJamesThe3rd/budget/internal/budget"
	"github.com/MrJamesThe3rd/budget/internal/budget/memory"
	"github.com/MrJamesThe3rd/budget/internal/export"
	exporthttp "github.com/MrJamesThe3rd/budget/internal/http/export"
)

const user = "user-1"

func newServer(t *testing.T) http.Handler {
	t.Helper()

	now := time.Date(2025, 9, 15, 10, 0, 0, 0, time.UTC)
	svc := budget.NewService(memory.New(), budget.WithClock(func() time.Time { return now }))

	_, err := svc.CreateExpense(t.Context(), user, budget.CreateExpenseParams{
		Amount:      decimal.NewFromInt(12),
		Description: "Bakery",
		Date:        time.Date(2025, 9, 4, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	r := chi.NewRouter()
	r.Use(auth.Fixed(user))
	r.Route("/export", exporthttp.NewHandler(export.NewService(svc)).Routes)

	return r
}

func get(h http.Handler, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))

	return rec
}

func TestHandler_Download(t *testing.T) {
	rec := get(newServer(t), "/export?month=2025-09")
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, "application/zip", rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="budget_2025-09.zip"`, rec.Header().Get("Content-Disposition"))

	zr, err := zip.NewReader(bytes.NewReader(rec.Body.Bytes()), int64(rec.Body.Len()))
	require.NoError(t, err)

	names := make([]string, 0, len(zr.File))
	for _, f := range zr.File {
		names = append(names, f.Name)
	}

	assert.ElementsMatch(t, []string{"expenses.csv", "summary.txt"}, names)
}

func TestHandler_Summary(t *testing.T) {
	rec := get(newServer(t), "/export/summary")
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Contains(t, rec.Body.String(), "Cycle 2025-09")
	assert.Contains(t, rec.Body.String(), "* Uncategorized | 12.00")
}

func TestHandler_BadMonth(t *testing.T) {
	rec := get(newServer(t), "/export?month=2025-13")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), `"field":"month"`)
}
