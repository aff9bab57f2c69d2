package budget_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/MrJamesThe3rd/budget/internal/budget"
)

func TestService_ImportBatch_NoConflicts(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := budget.NewMockRepository(ctrl)
	itx := budget.NewMockImportTx(ctrl)
	svc := budget.NewService(repo)

	day := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)
	params := []budget.CreateExpenseParams{
		{
			Amount:         dec("10"),
			Description:    "Coffee",
			RawDescription: "COFFEE SHOP",
			Date:           day,
		},
	}

	repo.EXPECT().BeginImport(gomock.Any(), testUser).Return(itx, nil)
	itx.EXPECT().FindDuplicates(gomock.Any(), params).Return(nil, nil)
	itx.EXPECT().CreateExpenses(gomock.Any(), gomock.Len(1)).Return(nil)
	itx.EXPECT().Commit().Return(nil)
	itx.EXPECT().Rollback().Return(nil)

	result, err := svc.ImportBatch(context.Background(), testUser, params)
	require.NoError(t, err)
	assert.Len(t, result.Imported, 1)
	assert.Equal(t, testUser, result.Imported[0].UserID)
	assert.Empty(t, result.Conflicts)
	assert.Empty(t, result.New)
}

func TestService_ImportBatch_WithConflicts(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := budget.NewMockRepository(ctrl)
	itx := budget.NewMockImportTx(ctrl)
	svc := budget.NewService(repo)

	day := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)
	params := []budget.CreateExpenseParams{
		{
			Amount:         dec("10"),
			Description:    "Coffee",
			RawDescription: "COFFEE SHOP",
			Date:           day,
		},
		{
			Amount:         dec("20"),
			Description:    "Lunch",
			RawDescription: "LUNCH PLACE",
			Date:           day,
		},
	}

	existing := &budget.Expense{
		ID:             uuid.New(),
		Amount:         dec("10.00"),
		RawDescription: "COFFEE SHOP",
		Date:           day.Add(14 * time.Hour),
	}

	repo.EXPECT().BeginImport(gomock.Any(), testUser).Return(itx, nil)
	itx.EXPECT().FindDuplicates(gomock.Any(), params).Return([]*budget.Expense{existing}, nil)
	itx.EXPECT().Rollback().Return(nil)

	result, err := svc.ImportBatch(context.Background(), testUser, params)
	require.NoError(t, err)
	assert.Empty(t, result.Imported)
	assert.Len(t, result.New, 1)
	require.Len(t, result.Conflicts, 1)
	assert.Equal(t, params[0], result.Conflicts[0].Incoming)
	assert.Equal(t, existing, result.Conflicts[0].Existing)
}

func TestService_ImportBatch_Empty(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := budget.NewMockRepository(ctrl)
	svc := budget.NewService(repo)

	result, err := svc.ImportBatch(context.Background(), testUser, []budget.CreateExpenseParams{})
	require.NoError(t, err)
	assert.Empty(t, result.Imported)
	assert.Empty(t, result.Conflicts)
	assert.Empty(t, result.New)
}

func TestService_ImportBatch_InvalidRow(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := budget.NewMockRepository(ctrl)
	svc := budget.NewService(repo)

	_, err := svc.ImportBatch(context.Background(), testUser, []budget.CreateExpenseParams{
		{Amount: dec("1"), Description: "ok"},
		{Amount: dec("1")},
	})

	var verr *budget.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "description", verr.Field)
	assert.Contains(t, err.Error(), "row 2")
}

func TestService_CreateBatch(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := budget.NewMockRepository(ctrl)
	itx := budget.NewMockImportTx(ctrl)
	svc := budget.NewService(repo)

	day := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)
	catID := uuid.New()
	params := []budget.CreateExpenseParams{
		{
			Amount:         dec("10"),
			Description:    "Coffee",
			RawDescription: "COFFEE SHOP",
			Date:           day,
			CategoryID:     &catID,
		},
		{
			Amount:         dec("4.5"),
			Description:    "Coffee again",
			RawDescription: "COFFEE SHOP",
			Date:           day.AddDate(0, 0, 1),
			CategoryID:     &catID,
		},
	}

	repo.EXPECT().GetCategory(gomock.Any(), testUser, catID).Return(&budget.Category{ID: catID}, nil)
	repo.EXPECT().BeginImport(gomock.Any(), testUser).Return(itx, nil)
	itx.EXPECT().CreateExpenses(gomock.Any(), gomock.Any()).Return(nil)
	itx.EXPECT().Commit().Return(nil)
	itx.EXPECT().Rollback().Return(nil)

	es, err := svc.CreateBatch(context.Background(), testUser, params)
	require.NoError(t, err)
	require.Len(t, es, 2)
	assert.True(t, dec("10").Equal(es[0].Amount))
	assert.Equal(t, &catID, es[1].CategoryID)
}

func TestService_ImportBatch_DetectsStoredDuplicates(t *testing.T) {
	f := newFixture(t, date(2026, time.October, 10, 9))
	day := date(2026, time.October, 3, 0)

	row := budget.CreateExpenseParams{
		Amount:         dec("42.10"),
		Description:    "Market",
		RawDescription: "COMPRA MARKET 123",
		Date:           day,
	}

	first, err := f.svc.ImportBatch(context.Background(), testUser, []budget.CreateExpenseParams{row})
	require.NoError(t, err)
	require.Len(t, first.Imported, 1)

	other := row
	other.RawDescription = "COMPRA BAKERY"

	second, err := f.svc.ImportBatch(context.Background(), testUser, []budget.CreateExpenseParams{row, other})
	require.NoError(t, err)
	assert.Empty(t, second.Imported)
	require.Len(t, second.Conflicts, 1)
	require.Len(t, second.New, 1)
	assert.Equal(t, "COMPRA BAKERY", second.New[0].RawDescription)

	all, err := f.svc.ListExpenses(context.Background(), testUser, budget.ExpenseFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 1)

	created, err := f.svc.CreateBatch(context.Background(), testUser, second.New)
	require.NoError(t, err)
	assert.Len(t, created, 1)

	all, err = f.svc.ListExpenses(context.Background(), testUser, budget.ExpenseFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)
}
