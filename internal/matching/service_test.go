package matching_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/MrJamesThe3rd/budget/internal/budget"
	"github.com/MrJamesThe3rd/budget/internal/matching"
)

const user = "user-1"

func TestService_Suggest(t *testing.T) {
	catID := uuid.New()

	type testCase struct {
		name      string
		raw       string
		setupMock func(m *matching.MockRepository)
		want      *matching.Suggestion
		wantErr   bool
	}

	tests := []testCase{
		{
			name: "Match",
			raw:  "COMPRA CONTINENTE 1234 ",
			setupMock: func(m *matching.MockRepository) {
				m.EXPECT().FindMatch(gomock.Any(), user, "COMPRA CONTINENTE 1234").
					Return(&matching.Suggestion{Description: "Groceries run", CategoryID: &catID}, nil)
			},
			want: &matching.Suggestion{Description: "Groceries run", CategoryID: &catID},
		},
		{
			name: "NoMatch",
			raw:  "UNKNOWN",
			setupMock: func(m *matching.MockRepository) {
				m.EXPECT().FindMatch(gomock.Any(), user, "UNKNOWN").Return(nil, nil)
			},
		},
		{
			name: "Blank",
			raw:  "   ",
		},
		{
			name: "RepoError",
			raw:  "X",
			setupMock: func(m *matching.MockRepository) {
				m.EXPECT().FindMatch(gomock.Any(), user, "X").Return(nil, errors.New("db error"))
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			repo := matching.NewMockRepository(ctrl)
			if tt.setupMock != nil {
				tt.setupMock(repo)
			}

			got, err := matching.NewService(repo).Suggest(context.Background(), user, tt.raw)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestService_Learn(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		repo := matching.NewMockRepository(ctrl)
		repo.EXPECT().UpsertMapping(gomock.Any(), user, "CONTINENTE", matching.Suggestion{Description: "Groceries"}).Return(nil)

		err := matching.NewService(repo).Learn(context.Background(), user, " CONTINENTE ",
			matching.Suggestion{Description: "Groceries "})
		require.NoError(t, err)
	})

	t.Run("MissingFields", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		svc := matching.NewService(matching.NewMockRepository(ctrl))

		assert.ErrorIs(t, svc.Learn(context.Background(), user, "", matching.Suggestion{Description: "x"}), matching.ErrInvalid)
		assert.ErrorIs(t, svc.Learn(context.Background(), user, "x", matching.Suggestion{}), matching.ErrInvalid)
	})
}

func TestService_Apply(t *testing.T) {
	known := uuid.New()
	deleted := uuid.New()

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := matching.NewMockRepository(ctrl)
	repo.EXPECT().FindMatch(gomock.Any(), user, "SUPERMARKET 12").
		Return(&matching.Suggestion{Description: "Groceries", CategoryID: &known}, nil)
	repo.EXPECT().FindMatch(gomock.Any(), user, "OLD GYM").
		Return(&matching.Suggestion{Description: "Gym", CategoryID: &deleted}, nil)
	repo.EXPECT().FindMatch(gomock.Any(), user, "BROKEN").Return(nil, errors.New("db error"))
	repo.EXPECT().FindMatch(gomock.Any(), user, "NOTHING").Return(nil, nil)

	params := []budget.CreateExpenseParams{
		{Description: "SUPERMARKET 12", RawDescription: "SUPERMARKET 12"},
		{Description: "OLD GYM", RawDescription: "OLD GYM"},
		{Description: "BROKEN", RawDescription: "BROKEN"},
		{Description: "NOTHING", RawDescription: "NOTHING"},
	}

	matched := matching.NewService(repo).Apply(context.Background(), user, params,
		func(id uuid.UUID) bool { return id == known })

	assert.Equal(t, 2, matched)
	assert.Equal(t, "Groceries", params[0].Description)
	assert.Equal(t, &known, params[0].CategoryID)
	assert.Equal(t, "Gym", params[1].Description)
	assert.Nil(t, params[1].CategoryID)
	assert.Equal(t, "BROKEN", params[2].Description)
	assert.Equal(t, "NOTHING", params[3].Description)
}
