package category_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/budget/internal/auth"
	"github.com/MrJamesThe3rd/budget/internal/budget"
	"github.com/MrJamesThe3rd/budget/internal/budget/memory"
	"github.com/MrJamesThe3rd/budget/internal/http/category"
)

func newServer(t *testing.T) http.Handler {
	t.Helper()

	now := time.Date(2025, 9, 15, 10, 0, 0, 0, time.UTC)
	svc := budget.NewService(memory.New(), budget.WithClock(func() time.Time { return now }))

	r := chi.NewRouter()
	r.Use(auth.Fixed("user-1"))
	r.Route("/categories", category.NewHandler(svc).Routes)

	return r
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	return rec
}

type categoryBody struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	BudgetLimit string    `json:"budgetLimit"`
	Color       string    `json:"color"`
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()

	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))

	return v
}

func TestHandler_ListSeedsDefaults(t *testing.T) {
	srv := newServer(t)

	rec := do(t, srv, http.MethodGet, "/categories", "")
	require.Equal(t, http.StatusOK, rec.Code)

	cats := decode[[]categoryBody](t, rec)
	require.Len(t, cats, 5)
	assert.Equal(t, "Rent", cats[0].Name)
	assert.Equal(t, "4000", cats[0].BudgetLimit)
}

func TestHandler_Create(t *testing.T) {
	type testCase struct {
		name       string
		body       string
		wantStatus int
		wantField  string
	}

	tests := []testCase{
		{name: "Success", body: `{"name":"Pets","budgetLimit":"150.50","color":"#123abc"}`, wantStatus: http.StatusCreated},
		{name: "NumericLimit", body: `{"name":"Gifts","budgetLimit":80}`, wantStatus: http.StatusCreated},
		{name: "MissingName", body: `{"budgetLimit":"10"}`, wantStatus: http.StatusBadRequest, wantField: "name"},
		{name: "NegativeLimit", body: `{"name":"X","budgetLimit":"-1"}`, wantStatus: http.StatusBadRequest, wantField: "budgetLimit"},
		{name: "MalformedJSON", body: `{`, wantStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, newServer(t), http.MethodPost, "/categories", tt.body)
			assert.Equal(t, tt.wantStatus, rec.Code)

			if tt.wantField != "" {
				assert.Equal(t, tt.wantField, decode[map[string]string](t, rec)["field"])
			}
		})
	}
}

func TestHandler_MoveBudget(t *testing.T) {
	srv := newServer(t)

	cats := decode[[]categoryBody](t, do(t, srv, http.MethodGet, "/categories", ""))
	rent, groceries := cats[0], cats[1]

	move := func(amount string) *httptest.ResponseRecorder {
		body := `{"fromCategoryId":"` + rent.ID.String() + `","toCategoryId":"` + groceries.ID.String() + `","amount":` + amount + `}`
		return do(t, srv, http.MethodPost, "/categories/move-budget", body)
	}

	rec := move(`"250.25"`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decode[map[string]any](t, rec)["success"])

	rec = move(`100000`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	cats = decode[[]categoryBody](t, do(t, srv, http.MethodGet, "/categories", ""))
	assert.Equal(t, "3749.75", cats[0].BudgetLimit)
	assert.Equal(t, "2750.25", cats[1].BudgetLimit)
}

func TestHandler_UpdateAndDelete(t *testing.T) {
	srv := newServer(t)

	cats := decode[[]categoryBody](t, do(t, srv, http.MethodGet, "/categories", ""))
	path := "/categories/" + cats[4].ID.String()

	rec := do(t, srv, http.MethodPut, path, `{"name":"Fun"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Fun", decode[categoryBody](t, rec).Name)
	assert.Equal(t, "500", decode[categoryBody](t, rec).BudgetLimit)

	assert.Equal(t, http.StatusNoContent, do(t, srv, http.MethodDelete, path, "").Code)
	assert.Equal(t, http.StatusNotFound, do(t, srv, http.MethodPut, path, `{"name":"Again"}`).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, srv, http.MethodDelete, "/categories/nope", "").Code)
}
