package budget

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/MrJamesThe3rd/budget/internal/cycle"
)

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=budget
type Repository interface {
	ListCategories(ctx context.Context, userID string) ([]*Category, error)
	GetCategory(ctx context.Context, userID string, id uuid.UUID) (*Category, error)
	CreateCategory(ctx context.Context, c *Category) error
	UpdateCategory(ctx context.Context, userID string, id uuid.UUID, params UpdateCategoryParams) (*Category, error)
	DeleteCategory(ctx context.Context, userID string, id uuid.UUID) error
	SeedCategories(ctx context.Context, userID string, defaults []*Category) (bool, error)

	ListExpenses(ctx context.Context, filter ListFilter) ([]*Expense, error)
	CreateExpense(ctx context.Context, e *Expense) error
	DeleteExpense(ctx context.Context, userID string, id uuid.UUID) error

	GetSettings(ctx context.Context, userID string) (*Settings, error)
	UpsertSettings(ctx context.Context, s *Settings) error

	ListFixedExpenses(ctx context.Context, userID string) ([]*FixedExpense, error)
	CreateFixedExpense(ctx context.Context, fe *FixedExpense) error
	DeleteFixedExpense(ctx context.Context, userID string, id uuid.UUID) error

	ListHistory(ctx context.Context, userID string) ([]*HistoryEntry, error)

	BeginTransfer(ctx context.Context, userID string) (TransferTx, error)
	BeginRollover(ctx context.Context, userID string) (RolloverTx, error)
	BeginImport(ctx context.Context, userID string) (ImportTx, error)
}

// TransferTx is a transaction that moves budget between categories.
type TransferTx interface {
	// LockCategories returns the user's categories among ids, locked for
	// update. Missing ids are absent from the result.
	LockCategories(ctx context.Context, ids ...uuid.UUID) ([]*Category, error)
	SetBudgetLimit(ctx context.Context, id uuid.UUID, limit decimal.Decimal) error
	Commit() error
	Rollback() error
}

// ImportTx is a transaction holding the user's lock, so concurrent imports
// see each other's rows when looking for duplicates.
type ImportTx interface {
	// FindDuplicates returns stored expenses sharing date, amount and raw
	// description with any of params.
	FindDuplicates(ctx context.Context, params []CreateExpenseParams) ([]*Expense, error)
	CreateExpenses(ctx context.Context, es []*Expense) error
	Commit() error
	Rollback() error
}

// RolloverTx is a transaction holding the user's rollover lock.
type RolloverTx interface {
	// LockSettings re-reads the settings row under the lock. Returns
	// ErrNotFound when the user has no settings.
	LockSettings(ctx context.Context) (*Settings, error)
	ListCategories(ctx context.Context) ([]*Category, error)
	ListExpenses(ctx context.Context, period cycle.Period) ([]*Expense, error)
	ListFixedExpenses(ctx context.Context) ([]*FixedExpense, error)
	// GetHistory returns the user's entry for month, or ErrNotFound.
	GetHistory(ctx context.Context, month cycle.Month) (*HistoryEntry, error)
	InsertHistory(ctx context.Context, h *HistoryEntry) error
	CreateExpenses(ctx context.Context, es []*Expense) error
	SetLastReset(ctx context.Context, at time.Time) error
	Commit() error
	Rollback() error
}

type Service struct {
	repo   Repository
	engine *Engine
	now    func() time.Time
	retry  RetryOptions
}

type Option func(*Service)

// WithClock sets the time source. Cycle boundaries use the location of the
// returned times.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithRetry(opts RetryOptions) Option {
	return func(s *Service) { s.retry = opts }
}

func WithPublisher(p Publisher) Option {
	return func(s *Service) { s.engine.publisher = p }
}

func NewService(repo Repository, opts ...Option) *Service {
	s := &Service{
		repo:  repo,
		now:   time.Now,
		retry: DefaultRetryOptions(),
	}
	s.engine = &Engine{repo: repo, publisher: noopPublisher{}}

	for _, opt := range opts {
		opt(s)
	}

	s.engine.now = s.now
	s.engine.retry = s.retry

	return s
}

// Engine returns the rollover engine used by the read paths.
func (s *Service) Engine() *Engine {
	return s.engine
}

// ListCategories runs the rollover check, then returns the user's
// categories, seeding the defaults for a user that has none.
func (s *Service) ListCategories(ctx context.Context, userID string) ([]*Category, error) {
	if _, err := s.engine.Check(ctx, userID); err != nil {
		return nil, fmt.Errorf("rollover check: %w", err)
	}

	cats, err := s.repo.ListCategories(ctx, userID)
	if err != nil {
		return nil, err
	}

	if len(cats) > 0 {
		return cats, nil
	}

	if _, err := s.repo.SeedCategories(ctx, userID, DefaultCategories(userID)); err != nil {
		return nil, fmt.Errorf("seed categories: %w", err)
	}

	return s.repo.ListCategories(ctx, userID)
}

func (s *Service) CreateCategory(ctx context.Context, userID string, params CreateCategoryParams) (*Category, error) {
	if err := params.validate(); err != nil {
		return nil, err
	}

	c := &Category{
		UserID:      userID,
		Name:        params.Name,
		BudgetLimit: params.BudgetLimit,
		Color:       params.Color,
	}
	if err := s.repo.CreateCategory(ctx, c); err != nil {
		return nil, err
	}

	return c, nil
}

func (s *Service) UpdateCategory(ctx context.Context, userID string, id uuid.UUID, params UpdateCategoryParams) (*Category, error) {
	if err := params.normalize(); err != nil {
		return nil, err
	}

	return s.repo.UpdateCategory(ctx, userID, id, params)
}

// DeleteCategory removes a category. Its expenses and fixed expenses are
// kept and become uncategorized.
func (s *Service) DeleteCategory(ctx context.Context, userID string, id uuid.UUID) error {
	return s.repo.DeleteCategory(ctx, userID, id)
}

// ListExpenses returns the user's expenses, newest first.
func (s *Service) ListExpenses(ctx context.Context, userID string, filter ExpenseFilter) ([]*Expense, error) {
	lf := ListFilter{UserID: userID, CategoryID: filter.CategoryID}

	if filter.Month != nil {
		settings, err := s.GetSettings(ctx, userID)
		if err != nil {
			return nil, err
		}

		lf.Period = new(cycle.Resolve(s.now(), settings.ResetDay, filter.Month))
	}

	return s.repo.ListExpenses(ctx, lf)
}

func (s *Service) CreateExpense(ctx context.Context, userID string, params CreateExpenseParams) (*Expense, error) {
	if err := params.validate(); err != nil {
		return nil, err
	}

	if err := s.checkCategory(ctx, userID, params.CategoryID); err != nil {
		return nil, err
	}

	date := params.Date
	if date.IsZero() {
		date = s.now()
	}

	e := &Expense{
		UserID:         userID,
		Amount:         params.Amount,
		Description:    params.Description,
		RawDescription: params.RawDescription,
		Date:           date,
		CategoryID:     params.CategoryID,
	}
	if err := s.repo.CreateExpense(ctx, e); err != nil {
		return nil, err
	}

	return e, nil
}

func (s *Service) DeleteExpense(ctx context.Context, userID string, id uuid.UUID) error {
	return s.repo.DeleteExpense(ctx, userID, id)
}

// GetSettings returns the stored settings or the defaults when the user has
// none.
func (s *Service) GetSettings(ctx context.Context, userID string) (*Settings, error) {
	settings, err := s.repo.GetSettings(ctx, userID)
	if errors.Is(err, ErrNotFound) {
		return DefaultSettings(userID), nil
	}

	if err != nil {
		return nil, err
	}

	return settings, nil
}

// UpdateSettings upserts the user's settings. The rollover watermark is
// preserved.
func (s *Service) UpdateSettings(ctx context.Context, userID string, params UpdateSettingsParams) (*Settings, error) {
	if err := params.validate(); err != nil {
		return nil, err
	}

	settings := &Settings{UserID: userID, ResetDay: params.ResetDay}
	if err := s.repo.UpsertSettings(ctx, settings); err != nil {
		return nil, err
	}

	return settings, nil
}

// MonthlyStats runs the rollover check and summarizes the requested cycle,
// or the current one when month is nil.
func (s *Service) MonthlyStats(ctx context.Context, userID string, month *cycle.Month) (*Stats, error) {
	if _, err := s.engine.Check(ctx, userID); err != nil {
		return nil, fmt.Errorf("rollover check: %w", err)
	}

	settings, err := s.GetSettings(ctx, userID)
	if err != nil {
		return nil, err
	}

	period := cycle.Resolve(s.now(), settings.ResetDay, month)

	var (
		cats     []*Category
		expenses []*Expense
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		var err error
		cats, err = s.repo.ListCategories(gctx, userID)

		return err
	})

	g.Go(func() error {
		var err error
		expenses, err = s.repo.ListExpenses(gctx, ListFilter{UserID: userID, Period: &period})

		return err
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &Stats{Period: period, Summary: Summarize(cats, expenses)}, nil
}

// Stats is a cycle summary together with the cycle it covers.
type Stats struct {
	Period cycle.Period
	Summary
}

func (s *Service) ListFixedExpenses(ctx context.Context, userID string) ([]*FixedExpense, error) {
	return s.repo.ListFixedExpenses(ctx, userID)
}

func (s *Service) CreateFixedExpense(ctx context.Context, userID string, params CreateFixedExpenseParams) (*FixedExpense, error) {
	if err := params.validate(); err != nil {
		return nil, err
	}

	if err := s.checkCategory(ctx, userID, params.CategoryID); err != nil {
		return nil, err
	}

	fe := &FixedExpense{
		UserID:     userID,
		Name:       params.Name,
		Amount:     params.Amount,
		CategoryID: params.CategoryID,
	}
	if err := s.repo.CreateFixedExpense(ctx, fe); err != nil {
		return nil, err
	}

	return fe, nil
}

func (s *Service) DeleteFixedExpense(ctx context.Context, userID string, id uuid.UUID) error {
	return s.repo.DeleteFixedExpense(ctx, userID, id)
}

// ListHistory returns the archived cycles, newest first.
func (s *Service) ListHistory(ctx context.Context, userID string) ([]*HistoryEntry, error) {
	return s.repo.ListHistory(ctx, userID)
}

// checkCategory verifies that an optional category reference belongs to the
// user.
func (s *Service) checkCategory(ctx context.Context, userID string, id *uuid.UUID) error {
	if id == nil {
		return nil
	}

	_, err := s.repo.GetCategory(ctx, userID, *id)
	if errors.Is(err, ErrNotFound) {
		return invalid("categoryId", "category %s does not exist", id)
	}

	return err
}
