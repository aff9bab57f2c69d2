package stats_test

import (
	"encoding/json"
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
	"github.com/MrJamesThe3rd/budget/internal/http/stats"
)

const user = "user-1"

type categoryBody struct {
	Name         string `json:"name"`
	BudgetLimit  string `json:"budgetLimit"`
	Spent        string `json:"spent"`
	Remaining    string `json:"remaining"`
	IsOverBudget bool   `json:"isOverBudget"`
}

type monthlyBody struct {
	Month         string         `json:"month"`
	PeriodStart   time.Time      `json:"periodStart"`
	TotalBudget   string         `json:"totalBudget"`
	TotalSpent    string         `json:"totalSpent"`
	Remaining     string         `json:"remaining"`
	Uncategorized string         `json:"uncategorized"`
	Categories    []categoryBody `json:"categories"`
}

type fixture struct {
	router http.Handler
	repo   *memory.Repository
	svc    *budget.Service
}

func newFixture(t *testing.T) fixture {
	t.Helper()

	now := time.Date(2025, 9, 15, 10, 0, 0, 0, time.UTC)
	repo := memory.New()
	svc := budget.NewService(repo, budget.WithClock(func() time.Time { return now }))
	h := stats.NewHandler(svc)

	r := chi.NewRouter()
	r.Use(auth.Fixed(user))
	r.Route("/stats", h.Routes)
	r.Route("/history", h.HistoryRoutes)

	return fixture{router: r, repo: repo, svc: svc}
}

func (f fixture) get(t *testing.T, path string, v any) int {
	t.Helper()

	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))

	if v != nil && rec.Code == http.StatusOK {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v))
	}

	return rec.Code
}

func TestHandler_MonthlyOverBudget(t *testing.T) {
	f := newFixture(t)
	ctx := t.Context()

	groceries, err := f.svc.CreateCategory(ctx, user, budget.CreateCategoryParams{Name: "Groceries", BudgetLimit: decimal.NewFromInt(500)})
	require.NoError(t, err)

	for _, p := range []budget.CreateExpenseParams{
		{Amount: decimal.NewFromInt(600), Description: "Big shop", Date: time.Date(2025, 9, 2, 0, 0, 0, 0, time.UTC), CategoryID: &groceries.ID},
		{Amount: decimal.NewFromInt(20), Description: "Loose", Date: time.Date(2025, 9, 3, 0, 0, 0, 0, time.UTC)},
	} {
		_, err := f.svc.CreateExpense(ctx, user, p)
		require.NoError(t, err)
	}

	var body monthlyBody
	require.Equal(t, http.StatusOK, f.get(t, "/stats/monthly", &body))

	assert.Equal(t, "2025-09", body.Month)
	assert.Equal(t, "500", body.TotalBudget)
	assert.Equal(t, "620", body.TotalSpent)
	assert.Equal(t, "-120", body.Remaining)
	assert.Equal(t, "20", body.Uncategorized)

	require.Len(t, body.Categories, 1)
	assert.Equal(t, categoryBody{
		Name:         "Groceries",
		BudgetLimit:  "500",
		Spent:        "600",
		Remaining:    "-100",
		IsOverBudget: true,
	}, body.Categories[0])

	require.Equal(t, http.StatusOK, f.get(t, "/stats/monthly?month=2025-08", &body))
	assert.Equal(t, "0", body.TotalSpent)

	assert.Equal(t, http.StatusBadRequest, f.get(t, "/stats/monthly?month=sept", nil))
}

func TestHandler_RolloverAndHistory(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.UpdateSettings(t.Context(), user, budget.UpdateSettingsParams{ResetDay: 1})
	require.NoError(t, err)

	f.repo.SetWatermark(user, new(time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC)))

	var state map[string]string
	require.Equal(t, http.StatusOK, f.get(t, "/stats/rollover", &state))
	assert.Equal(t, string(budget.StateRolloverDue), state["state"])

	require.Equal(t, http.StatusOK, f.get(t, "/stats/monthly", &monthlyBody{}))

	require.Equal(t, http.StatusOK, f.get(t, "/stats/rollover", &state))
	assert.Equal(t, string(budget.StateUpToDate), state["state"])

	var history []map[string]any
	require.Equal(t, http.StatusOK, f.get(t, "/history", &history))
	require.Len(t, history, 1)
	assert.Equal(t, "2025-08", history[0]["month"])
}
