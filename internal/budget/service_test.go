package budget_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/MrJamesThe3rd/budget/internal/budget"
	"github.com/MrJamesThe3rd/budget/internal/budget/memory"
	"github.com/MrJamesThe3rd/budget/internal/cycle"
)

// upToDate returns settings whose watermark covers the cycle of now, so the
// rollover check is a no-op.
func upToDate(now time.Time) *budget.Settings {
	return &budget.Settings{UserID: testUser, ResetDay: 1, LastResetDate: &now}
}

func TestService_ListCategories(t *testing.T) {
	now := date(2026, time.October, 10, 9)

	type testCase struct {
		name      string
		setupMock func(m *budget.MockRepository)
		wantLen   int
		wantErr   bool
	}

	tests := []testCase{
		{
			name: "Existing",
			setupMock: func(m *budget.MockRepository) {
				m.EXPECT().GetSettings(gomock.Any(), testUser).Return(upToDate(now), nil)
				m.EXPECT().ListCategories(gomock.Any(), testUser).Return([]*budget.Category{{Name: "Food"}}, nil)
			},
			wantLen: 1,
		},
		{
			name: "SeedsDefaultsForNewUser",
			setupMock: func(m *budget.MockRepository) {
				m.EXPECT().GetSettings(gomock.Any(), testUser).Return(nil, budget.ErrNotFound)

				gomock.InOrder(
					m.EXPECT().ListCategories(gomock.Any(), testUser).Return(nil, nil),
					m.EXPECT().SeedCategories(gomock.Any(), testUser, gomock.Len(5)).Return(true, nil),
					m.EXPECT().ListCategories(gomock.Any(), testUser).Return(budget.DefaultCategories(testUser), nil),
				)
			},
			wantLen: 5,
		},
		{
			name: "SeedError",
			setupMock: func(m *budget.MockRepository) {
				m.EXPECT().GetSettings(gomock.Any(), testUser).Return(upToDate(now), nil)
				m.EXPECT().ListCategories(gomock.Any(), testUser).Return(nil, nil)
				m.EXPECT().SeedCategories(gomock.Any(), testUser, gomock.Any()).Return(false, errors.New("db error"))
			},
			wantErr: true,
		},
		{
			name: "RolloverCheckError",
			setupMock: func(m *budget.MockRepository) {
				m.EXPECT().GetSettings(gomock.Any(), testUser).Return(nil, budget.ErrStorageUnavailable)
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			repo := budget.NewMockRepository(ctrl)
			tt.setupMock(repo)

			svc := budget.NewService(repo, budget.WithClock(func() time.Time { return now }))

			got, err := svc.ListCategories(context.Background(), testUser)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}

			require.NoError(t, err)
			assert.Len(t, got, tt.wantLen)
		})
	}
}

func TestService_CreateCategory(t *testing.T) {
	type testCase struct {
		name      string
		params    budget.CreateCategoryParams
		setupMock func(m *budget.MockRepository)
		wantField string
		wantColor string
	}

	tests := []testCase{
		{
			name:   "DefaultColor",
			params: budget.CreateCategoryParams{Name: "  Pets ", BudgetLimit: dec("120")},
			setupMock: func(m *budget.MockRepository) {
				m.EXPECT().CreateCategory(gomock.Any(), gomock.Any()).
					DoAndReturn(func(_ context.Context, c *budget.Category) error {
						c.ID = uuid.New()
						return nil
					})
			},
			wantColor: budget.DefaultColor,
		},
		{
			name:      "MissingName",
			params:    budget.CreateCategoryParams{Name: " ", BudgetLimit: dec("1")},
			wantField: "name",
		},
		{
			name:      "NegativeLimit",
			params:    budget.CreateCategoryParams{Name: "Pets", BudgetLimit: dec("-1")},
			wantField: "budgetLimit",
		},
		{
			name:      "SubCentLimit",
			params:    budget.CreateCategoryParams{Name: "Pets", BudgetLimit: dec("1.001")},
			wantField: "budgetLimit",
		},
		{
			name:      "BadColor",
			params:    budget.CreateCategoryParams{Name: "Pets", BudgetLimit: dec("1"), Color: "red"},
			wantField: "color",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			repo := budget.NewMockRepository(ctrl)
			if tt.setupMock != nil {
				tt.setupMock(repo)
			}

			got, err := budget.NewService(repo).CreateCategory(context.Background(), testUser, tt.params)

			if tt.wantField != "" {
				var verr *budget.ValidationError
				require.ErrorAs(t, err, &verr)
				assert.Equal(t, tt.wantField, verr.Field)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, "Pets", got.Name)
			assert.Equal(t, tt.wantColor, got.Color)
			assert.Equal(t, testUser, got.UserID)
		})
	}
}

func TestService_UpdateCategory(t *testing.T) {
	id := uuid.New()

	type testCase struct {
		name      string
		params    budget.UpdateCategoryParams
		setupMock func(m *budget.MockRepository)
		wantField string
		wantErr   error
	}

	tests := []testCase{
		{
			name:   "LimitOnly",
			params: budget.UpdateCategoryParams{BudgetLimit: new(dec("250"))},
			setupMock: func(m *budget.MockRepository) {
				m.EXPECT().UpdateCategory(gomock.Any(), testUser, id, budget.UpdateCategoryParams{BudgetLimit: new(dec("250"))}).
					Return(&budget.Category{ID: id, UserID: testUser, Name: "Food", BudgetLimit: dec("250")}, nil)
			},
		},
		{
			name:   "NameTrimmed",
			params: budget.UpdateCategoryParams{Name: new("  Food  ")},
			setupMock: func(m *budget.MockRepository) {
				m.EXPECT().UpdateCategory(gomock.Any(), testUser, id, budget.UpdateCategoryParams{Name: new("Food")}).
					Return(&budget.Category{ID: id, UserID: testUser, Name: "Food"}, nil)
			},
		},
		{
			name:      "EmptyName",
			params:    budget.UpdateCategoryParams{Name: new("  ")},
			setupMock: func(m *budget.MockRepository) {},
			wantField: "name",
		},
		{
			name:      "BadColor",
			params:    budget.UpdateCategoryParams{Color: new("red")},
			setupMock: func(m *budget.MockRepository) {},
			wantField: "color",
		},
		{
			name:   "Missing",
			params: budget.UpdateCategoryParams{Color: new("#000000")},
			setupMock: func(m *budget.MockRepository) {
				m.EXPECT().UpdateCategory(gomock.Any(), testUser, id, gomock.Any()).Return(nil, budget.ErrNotFound)
			},
			wantErr: budget.ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			repo := budget.NewMockRepository(ctrl)
			tt.setupMock(repo)

			got, err := budget.NewService(repo).UpdateCategory(context.Background(), testUser, id, tt.params)

			if tt.wantField != "" {
				var verr *budget.ValidationError
				require.ErrorAs(t, err, &verr)
				assert.Equal(t, tt.wantField, verr.Field)

				return
			}

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, id, got.ID)
		})
	}
}

// transferDuringUpdate runs a budget move right before the category update
// reaches storage.
type transferDuringUpdate struct {
	*memory.Repository
	move func()
}

func (r *transferDuringUpdate) UpdateCategory(ctx context.Context, userID string, id uuid.UUID, params budget.UpdateCategoryParams) (*budget.Category, error) {
	if r.move != nil {
		r.move()
		r.move = nil
	}

	return r.Repository.UpdateCategory(ctx, userID, id, params)
}

func TestService_UpdateCategoryKeepsConcurrentTransfer(t *testing.T) {
	ctx := context.Background()
	repo := &transferDuringUpdate{Repository: memory.New()}
	svc := budget.NewService(repo)

	food := &budget.Category{UserID: testUser, Name: "Food", BudgetLimit: dec("500"), Color: budget.DefaultColor}
	fun := &budget.Category{UserID: testUser, Name: "Fun", BudgetLimit: dec("100"), Color: budget.DefaultColor}
	require.NoError(t, repo.CreateCategory(ctx, food))
	require.NoError(t, repo.CreateCategory(ctx, fun))

	repo.move = func() {
		require.NoError(t, svc.MoveBudget(ctx, testUser, budget.MoveParams{
			FromCategoryID: food.ID,
			ToCategoryID:   fun.ID,
			Amount:         dec("200"),
		}))
	}

	renamed, err := svc.UpdateCategory(ctx, testUser, food.ID, budget.UpdateCategoryParams{Name: new("Groceries")})
	require.NoError(t, err)
	assert.Equal(t, "Groceries", renamed.Name)
	assert.True(t, dec("300").Equal(renamed.BudgetLimit), "limit %s", renamed.BudgetLimit)

	cats, err := repo.ListCategories(ctx, testUser)
	require.NoError(t, err)

	total := dec("0")
	for _, c := range cats {
		total = total.Add(c.BudgetLimit)
	}

	assert.True(t, dec("600").Equal(total), "total %s", total)
}

func TestService_CreateExpense(t *testing.T) {
	now := date(2026, time.October, 10, 9)
	catID := uuid.New()

	type testCase struct {
		name      string
		params    budget.CreateExpenseParams
		setupMock func(m *budget.MockRepository)
		wantField string
		wantErr   error
		wantDate  time.Time
	}

	tests := []testCase{
		{
			name:   "DefaultsDateToNow",
			params: budget.CreateExpenseParams{Amount: dec("12.30"), Description: "Coffee"},
			setupMock: func(m *budget.MockRepository) {
				m.EXPECT().CreateExpense(gomock.Any(), gomock.Any()).Return(nil)
			},
			wantDate: now,
		},
		{
			name: "WithCategory",
			params: budget.CreateExpenseParams{
				Amount:      dec("-5"),
				Description: "Refund",
				Date:        date(2026, time.October, 2, 0),
				CategoryID:  &catID,
			},
			setupMock: func(m *budget.MockRepository) {
				m.EXPECT().GetCategory(gomock.Any(), testUser, catID).Return(&budget.Category{ID: catID}, nil)
				m.EXPECT().CreateExpense(gomock.Any(), gomock.Any()).Return(nil)
			},
			wantDate: date(2026, time.October, 2, 0),
		},
		{
			name:   "UnknownCategory",
			params: budget.CreateExpenseParams{Amount: dec("1"), Description: "x", CategoryID: &catID},
			setupMock: func(m *budget.MockRepository) {
				m.EXPECT().GetCategory(gomock.Any(), testUser, catID).Return(nil, budget.ErrNotFound)
			},
			wantField: "categoryId",
		},
		{
			name:      "MissingDescription",
			params:    budget.CreateExpenseParams{Amount: dec("1")},
			wantField: "description",
		},
		{
			name:      "SubCentAmount",
			params:    budget.CreateExpenseParams{Amount: dec("0.001"), Description: "x"},
			wantField: "amount",
		},
		{
			name:   "RepoError",
			params: budget.CreateExpenseParams{Amount: dec("1"), Description: "x"},
			setupMock: func(m *budget.MockRepository) {
				m.EXPECT().CreateExpense(gomock.Any(), gomock.Any()).Return(budget.ErrStorageUnavailable)
			},
			wantErr: budget.ErrStorageUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			repo := budget.NewMockRepository(ctrl)
			if tt.setupMock != nil {
				tt.setupMock(repo)
			}

			svc := budget.NewService(repo, budget.WithClock(func() time.Time { return now }))

			got, err := svc.CreateExpense(context.Background(), testUser, tt.params)

			switch {
			case tt.wantField != "":
				var verr *budget.ValidationError
				require.ErrorAs(t, err, &verr)
				assert.Equal(t, tt.wantField, verr.Field)
			case tt.wantErr != nil:
				require.ErrorIs(t, err, tt.wantErr)
			default:
				require.NoError(t, err)
				assert.True(t, tt.wantDate.Equal(got.Date))
				assert.False(t, got.Recurring)
			}
		})
	}
}

func TestService_ListExpenses_ResolvesMonthToCycle(t *testing.T) {
	now := date(2026, time.October, 10, 9)

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := budget.NewMockRepository(ctrl)
	repo.EXPECT().GetSettings(gomock.Any(), testUser).
		Return(&budget.Settings{UserID: testUser, ResetDay: 25}, nil)
	repo.EXPECT().ListExpenses(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, f budget.ListFilter) ([]*budget.Expense, error) {
			require.NotNil(t, f.Period)
			assert.Equal(t, date(2026, time.March, 25, 0), f.Period.Start)
			assert.Equal(t, date(2026, time.April, 25, 0), f.Period.End)
			assert.Equal(t, testUser, f.UserID)

			return nil, nil
		})

	svc := budget.NewService(repo, budget.WithClock(func() time.Time { return now }))

	_, err := svc.ListExpenses(context.Background(), testUser,
		budget.ExpenseFilter{Month: &cycle.Month{Year: 2026, Month: time.March}})
	require.NoError(t, err)
}

func TestService_ListExpenses_AllCyclesSkipsSettings(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := budget.NewMockRepository(ctrl)
	repo.EXPECT().ListExpenses(gomock.Any(), budget.ListFilter{UserID: testUser}).Return(nil, nil)

	_, err := budget.NewService(repo).ListExpenses(context.Background(), testUser, budget.ExpenseFilter{})
	require.NoError(t, err)
}

func TestService_Settings(t *testing.T) {
	t.Run("DefaultsWhenAbsent", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		repo := budget.NewMockRepository(ctrl)
		repo.EXPECT().GetSettings(gomock.Any(), testUser).Return(nil, budget.ErrNotFound)

		got, err := budget.NewService(repo).GetSettings(context.Background(), testUser)
		require.NoError(t, err)
		assert.Equal(t, budget.DefaultResetDay, got.ResetDay)
		assert.Nil(t, got.LastResetDate)
	})

	t.Run("InvalidResetDay", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		repo := budget.NewMockRepository(ctrl)

		for _, day := range []int{0, 32, -1} {
			_, err := budget.NewService(repo).UpdateSettings(context.Background(), testUser,
				budget.UpdateSettingsParams{ResetDay: day})

			var verr *budget.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, "resetDay", verr.Field)
		}
	})

	t.Run("UpdatePreservesWatermark", func(t *testing.T) {
		f := newFixture(t, date(2026, time.October, 10, 9))
		watermark := date(2026, time.October, 1, 8)
		f.settings(t, 1, &watermark)

		_, err := f.svc.UpdateSettings(context.Background(), testUser, budget.UpdateSettingsParams{ResetDay: 20})
		require.NoError(t, err)

		got, err := f.svc.GetSettings(context.Background(), testUser)
		require.NoError(t, err)
		assert.Equal(t, 20, got.ResetDay)
		require.NotNil(t, got.LastResetDate)
		assert.True(t, watermark.Equal(*got.LastResetDate))
	})
}

func TestService_MonthlyStats(t *testing.T) {
	f := newFixture(t, date(2026, time.October, 10, 9))
	f.settings(t, 1, new(date(2026, time.October, 1, 0)))

	groceries := f.category(t, "Groceries", "500")
	f.expense(t, "350", date(2026, time.October, 3, 10), groceries)
	f.expense(t, "250", date(2026, time.October, 8, 10), groceries)
	f.expense(t, "80", date(2026, time.September, 8, 10), groceries)

	stats, err := f.svc.MonthlyStats(context.Background(), testUser, nil)
	require.NoError(t, err)

	require.Len(t, stats.Categories, 1)
	assert.True(t, dec("600").Equal(stats.Categories[0].Spent))
	assert.True(t, dec("-100").Equal(stats.Categories[0].Remaining))
	assert.True(t, stats.Categories[0].OverBudget())

	past, err := f.svc.MonthlyStats(context.Background(), testUser, &cycle.Month{Year: 2026, Month: time.September})
	require.NoError(t, err)
	assert.True(t, dec("80").Equal(past.TotalSpent))
	assert.Equal(t, date(2026, time.September, 1, 0), past.Period.Start)
}

func TestService_DeleteCategoryKeepsExpenses(t *testing.T) {
	f := newFixture(t, date(2026, time.October, 10, 9))
	f.settings(t, 1, new(date(2026, time.October, 1, 0)))

	doomed := f.category(t, "Hobbies", "300")
	kept := f.category(t, "Food", "500")

	for _, amount := range []string{"10", "20", "30"} {
		f.expense(t, amount, date(2026, time.October, 5, 10), doomed)
	}

	f.expense(t, "40", date(2026, time.October, 6, 10), kept)

	require.NoError(t, f.svc.DeleteCategory(context.Background(), testUser, doomed.ID))

	expenses, err := f.svc.ListExpenses(context.Background(), testUser, budget.ExpenseFilter{})
	require.NoError(t, err)
	require.Len(t, expenses, 4)

	orphaned := 0

	for _, e := range expenses {
		if e.CategoryID == nil {
			orphaned++
		}
	}

	assert.Equal(t, 3, orphaned)

	stats, err := f.svc.MonthlyStats(context.Background(), testUser, nil)
	require.NoError(t, err)

	assert.True(t, dec("100").Equal(stats.TotalSpent))
	assert.True(t, dec("60").Equal(stats.Uncategorized))
	require.Len(t, stats.Categories, 1)
	assert.True(t, dec("40").Equal(stats.Categories[0].Spent))

	err = f.svc.DeleteCategory(context.Background(), testUser, doomed.ID)
	assert.ErrorIs(t, err, budget.ErrNotFound)
}

func TestService_FixedExpenses(t *testing.T) {
	f := newFixture(t, date(2026, time.October, 10, 9))
	housing := f.category(t, "Housing", "3000")

	_, err := f.svc.CreateFixedExpense(context.Background(), testUser,
		budget.CreateFixedExpenseParams{Name: "Rent", Amount: dec("-1")})

	var verr *budget.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "amount", verr.Field)

	_, err = f.svc.CreateFixedExpense(context.Background(), testUser,
		budget.CreateFixedExpenseParams{Name: "Rent", Amount: dec("1"), CategoryID: new(uuid.New())})
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "categoryId", verr.Field)

	fe, err := f.svc.CreateFixedExpense(context.Background(), testUser,
		budget.CreateFixedExpenseParams{Name: "Rent", Amount: dec("3000"), CategoryID: &housing.ID})
	require.NoError(t, err)

	list, err := f.svc.ListFixedExpenses(context.Background(), testUser)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, fe.ID, list[0].ID)

	require.NoError(t, f.svc.DeleteFixedExpense(context.Background(), testUser, fe.ID))
	assert.ErrorIs(t, f.svc.DeleteFixedExpense(context.Background(), testUser, fe.ID), budget.ErrNotFound)
}
