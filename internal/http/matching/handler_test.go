package matching_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/MrJamesThe3rd/budget/internal/auth"
	matchhttp "github.com/MrJamesThe3rd/budget/internal/http/matching"
	"github.com/MrJamesThe3rd/budget/internal/matching"
)

const user = "user-1"

func TestHandler(t *testing.T) {
	catID := uuid.New()

	type testCase struct {
		name      string
		method    string
		path      string
		body      string
		setupMock func(m *matching.MockRepository)
		wantCode  int
		wantBody  string
	}

	tests := []testCase{
		{
			name:   "SuggestMatch",
			method: http.MethodGet,
			path:   "/mappings/suggest?rawDescription=SHUFERSAL+DEAL+123",
			setupMock: func(m *matching.MockRepository) {
				m.EXPECT().FindMatch(gomock.Any(), user, "SHUFERSAL DEAL 123").
					Return(&matching.Suggestion{Description: "Supermarket", CategoryID: &catID}, nil)
			},
			wantCode: http.StatusOK,
			wantBody: `{"rawDescription":"SHUFERSAL DEAL 123","description":"Supermarket","categoryId":"` + catID.String() + `","matched":true}`,
		},
		{
			name:   "SuggestNoMatch",
			method: http.MethodGet,
			path:   "/mappings/suggest?rawDescription=UNKNOWN",
			setupMock: func(m *matching.MockRepository) {
				m.EXPECT().FindMatch(gomock.Any(), user, "UNKNOWN").Return(nil, nil)
			},
			wantCode: http.StatusOK,
			wantBody: `{"rawDescription":"UNKNOWN","matched":false}`,
		},
		{
			name:     "SuggestMissingParam",
			method:   http.MethodGet,
			path:     "/mappings/suggest",
			wantCode: http.StatusBadRequest,
		},
		{
			name:   "SuggestRepoError",
			method: http.MethodGet,
			path:   "/mappings/suggest?rawDescription=X",
			setupMock: func(m *matching.MockRepository) {
				m.EXPECT().FindMatch(gomock.Any(), user, "X").Return(nil, errors.New("db error"))
			},
			wantCode: http.StatusInternalServerError,
		},
		{
			name:   "Learn",
			method: http.MethodPost,
			path:   "/mappings",
			body:   `{"rawPattern":"SHUFERSAL","description":"Supermarket","categoryId":"` + catID.String() + `"}`,
			setupMock: func(m *matching.MockRepository) {
				m.EXPECT().UpsertMapping(gomock.Any(), user, "SHUFERSAL",
					matching.Suggestion{Description: "Supermarket", CategoryID: &catID}).Return(nil)
			},
			wantCode: http.StatusCreated,
		},
		{
			name:     "LearnMissingFields",
			method:   http.MethodPost,
			path:     "/mappings",
			body:     `{"rawPattern":"SHUFERSAL"}`,
			wantCode: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			repo := matching.NewMockRepository(ctrl)

			if tt.setupMock != nil {
				tt.setupMock(repo)
			}

			r := chi.NewRouter()
			r.Use(auth.Fixed(user))
			r.Route("/mappings", matchhttp.NewHandler(matching.NewService(repo)).Routes)

			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body)))

			require.Equal(t, tt.wantCode, rec.Code)

			if tt.wantBody != "" {
				assert.JSONEq(t, tt.wantBody, rec.Body.String())
			}

			if tt.wantCode >= http.StatusBadRequest {
				var body map[string]any
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
				assert.NotEmpty(t, body["message"])
			}
		})
	}
}
