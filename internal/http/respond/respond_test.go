package respond_test

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/budget/internal/budget"
	"github.com/MrJamesThe3rd/budget/internal/http/respond"
	"github.com/MrJamesThe3rd/budget/internal/shopping"
)

func TestError(t *testing.T) {
	type testCase struct {
		name       string
		err        error
		wantStatus int
		wantField  string
	}

	tests := []testCase{
		{name: "Validation", err: fmt.Errorf("row 1: %w", &budget.ValidationError{Field: "amount", Message: "bad"}), wantStatus: http.StatusBadRequest, wantField: "amount"},
		{name: "InsufficientFunds", err: budget.ErrInsufficientFunds, wantStatus: http.StatusBadRequest},
		{name: "NotFound", err: fmt.Errorf("get: %w", budget.ErrNotFound), wantStatus: http.StatusNotFound},
		{name: "ShoppingNotFound", err: shopping.ErrNotFound, wantStatus: http.StatusNotFound},
		{name: "Conflict", err: budget.ErrConflict, wantStatus: http.StatusServiceUnavailable},
		{name: "Unavailable", err: budget.ErrStorageUnavailable, wantStatus: http.StatusServiceUnavailable},
		{name: "Other", err: errors.New("boom"), wantStatus: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			respond.Error(rec, httptest.NewRequest(http.MethodGet, "/", nil), tt.err)

			assert.Equal(t, tt.wantStatus, rec.Code)

			var body map[string]string
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.NotEmpty(t, body["message"])
			assert.Equal(t, tt.wantField, body["field"])
		})
	}
}

func TestUserID_Missing(t *testing.T) {
	rec := httptest.NewRecorder()

	_, ok := respond.UserID(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.False(t, ok)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
