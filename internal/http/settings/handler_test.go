package settings_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/budget/internal/auth"
	"github.com/MrJamesThe3rd/budget/internal/budget"
	"github.com/MrJamesThe3rd/budget/internal/budget/memory"
	"github.com/MrJamesThe3rd/budget/internal/http/settings"
)

func TestHandler(t *testing.T) {
	r := chi.NewRouter()
	r.Use(auth.Fixed("user-1"))
	r.Route("/settings", settings.NewHandler(budget.NewService(memory.New())).Routes)

	do := func(method, body string) (int, map[string]any) {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(method, "/settings", strings.NewReader(body)))

		var out map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))

		return rec.Code, out
	}

	code, body := do(http.MethodGet, "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(1), body["resetDay"])
	assert.Nil(t, body["lastResetDate"])

	code, body = do(http.MethodPut, `{"resetDay":25}`)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(25), body["resetDay"])

	code, body = do(http.MethodGet, "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(25), body["resetDay"])

	for _, bad := range []string{`{"resetDay":0}`, `{"resetDay":32}`, `{}`} {
		code, body = do(http.MethodPut, bad)
		assert.Equal(t, http.StatusBadRequest, code, bad)
		assert.Equal(t, "resetDay", body["field"], bad)
	}
}
