package expense_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/budget/internal/auth"
	"github.com/MrJamesThe3rd/budget/internal/budget"
	"github.com/MrJamesThe3rd/budget/internal/budget/memory"
	"github.com/MrJamesThe3rd/budget/internal/http/expense"
)

const user = "user-1"

type expenseBody struct {
	ID           uuid.UUID  `json:"id"`
	Amount       string     `json:"amount"`
	Description  string     `json:"description"`
	Date         time.Time  `json:"date"`
	CategoryID   *uuid.UUID `json:"categoryId"`
	CategoryName *string    `json:"categoryName"`
}

type server struct {
	http.Handler
	svc *budget.Service
}

func newServer(t *testing.T) server {
	t.Helper()

	now := time.Date(2025, 9, 15, 10, 0, 0, 0, time.UTC)
	svc := budget.NewService(memory.New(), budget.WithClock(func() time.Time { return now }))

	r := chi.NewRouter()
	r.Use(auth.Fixed(user))
	r.Route("/expenses", expense.NewHandler(svc).Routes)

	return server{Handler: r, svc: svc}
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, path, strings.NewReader(body)))

	return rec
}

func TestHandler_CreateAndList(t *testing.T) {
	srv := newServer(t)

	cat, err := srv.svc.CreateCategory(t.Context(), user, budget.CreateCategoryParams{Name: "Groceries", BudgetLimit: decimal.NewFromInt(500)})
	require.NoError(t, err)

	body := `{"amount":"42.10","description":"Market","date":"2025-09-03T12:00:00Z","categoryId":"` + cat.ID.String() + `"}`
	rec := do(t, srv, http.MethodPost, "/expenses", body)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = do(t, srv, http.MethodPost, "/expenses", `{"amount":"5","description":"August","date":"2025-08-20T12:00:00Z"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	type testCase struct {
		name     string
		query    string
		wantDesc []string
	}

	tests := []testCase{
		{name: "All", query: "", wantDesc: []string{"Market", "August"}},
		{name: "Month", query: "?month=2025-09", wantDesc: []string{"Market"}},
		{name: "PastMonth", query: "?month=2025-08", wantDesc: []string{"August"}},
		{name: "Category", query: "?categoryId=" + cat.ID.String(), wantDesc: []string{"Market"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, srv, http.MethodGet, "/expenses"+tt.query, "")
			require.Equal(t, http.StatusOK, rec.Code)

			var got []expenseBody
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))

			descs := make([]string, len(got))
			for i, e := range got {
				descs[i] = e.Description
			}

			assert.Equal(t, tt.wantDesc, descs)
		})
	}

	rec = do(t, srv, http.MethodGet, "/expenses?month=2025-09", "")

	var got []expenseBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, "42.1", got[0].Amount)
	require.NotNil(t, got[0].CategoryName)
	assert.Equal(t, "Groceries", *got[0].CategoryName)
}

func TestHandler_Validation(t *testing.T) {
	type testCase struct {
		name       string
		method     string
		path       string
		body       string
		wantStatus int
		wantField  string
	}

	tests := []testCase{
		{name: "MissingDescription", method: http.MethodPost, path: "/expenses", body: `{"amount":"3"}`, wantStatus: http.StatusBadRequest, wantField: "description"},
		{name: "TooManyDecimals", method: http.MethodPost, path: "/expenses", body: `{"amount":"3.001","description":"x"}`, wantStatus: http.StatusBadRequest, wantField: "amount"},
		{name: "NonNumericAmount", method: http.MethodPost, path: "/expenses", body: `{"amount":"abc","description":"x"}`, wantStatus: http.StatusBadRequest},
		{name: "UnknownCategory", method: http.MethodPost, path: "/expenses", body: `{"amount":"3","description":"x","categoryId":"` + uuid.NewString() + `"}`, wantStatus: http.StatusBadRequest, wantField: "categoryId"},
		{name: "BadMonth", method: http.MethodGet, path: "/expenses?month=2025-13", wantStatus: http.StatusBadRequest, wantField: "month"},
		{name: "BadCategoryID", method: http.MethodGet, path: "/expenses?categoryId=x", wantStatus: http.StatusBadRequest},
		{name: "DeleteMissing", method: http.MethodDelete, path: "/expenses/" + uuid.NewString(), wantStatus: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, newServer(t), tt.method, tt.path, tt.body)
			assert.Equal(t, tt.wantStatus, rec.Code)

			if tt.wantField != "" {
				var body map[string]string
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
				assert.Equal(t, tt.wantField, body["field"])
			}
		})
	}
}

func TestHandler_Delete(t *testing.T) {
	srv := newServer(t)

	e, err := srv.svc.CreateExpense(t.Context(), user, budget.CreateExpenseParams{Amount: decimal.NewFromInt(1), Description: "x"})
	require.NoError(t, err)

	assert.Equal(t, http.StatusNoContent, do(t, srv, http.MethodDelete, "/expenses/"+e.ID.String(), "").Code)
	assert.Equal(t, http.StatusNotFound, do(t, srv, http.MethodDelete, "/expenses/"+e.ID.String(), "").Code)
}
