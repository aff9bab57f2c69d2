// Package memory is an in-process implementation of budget.Repository.
//
// Transactions hold a per-user lock for their whole lifetime, which plays the
// role of the advisory lock and row locks of the Postgres store, and stage
// their writes until Commit. It backs the terminal demo mode and the service
// tests.
package memory

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/budget/internal/budget"
	"github.com/MrJamesThe3rd/budget/internal/cycle"
)

type Repository struct {
	mu sync.Mutex

	categories map[uuid.UUID]budget.Category
	expenses   map[uuid.UUID]budget.Expense
	settings   map[string]budget.Settings
	fixed      map[uuid.UUID]budget.FixedExpense
	history    map[uuid.UUID]budget.HistoryEntry

	locksMu   sync.Mutex
	userLocks map[string]*sync.Mutex

	faults map[string]error
	clock  time.Time
}

func New() *Repository {
	return &Repository{
		categories: make(map[uuid.UUID]budget.Category),
		expenses:   make(map[uuid.UUID]budget.Expense),
		settings:   make(map[string]budget.Settings),
		fixed:      make(map[uuid.UUID]budget.FixedExpense),
		history:    make(map[uuid.UUID]budget.HistoryEntry),
		userLocks:  make(map[string]*sync.Mutex),
		faults:     make(map[string]error),
	}
}

// Fail makes the next call of the named transaction step return err.
// Steps are named after the budget.TransferTx and budget.RolloverTx methods.
func (r *Repository) Fail(step string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.faults[step] = err
}

func (r *Repository) fault(step string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	err := r.faults[step]
	delete(r.faults, step)

	return err
}

// stamp returns a strictly increasing creation time so listings keep
// insertion order. Callers hold r.mu.
func (r *Repository) stamp() time.Time {
	now := time.Now()
	if !now.After(r.clock) {
		now = r.clock.Add(time.Nanosecond)
	}

	r.clock = now

	return now
}

func (r *Repository) userLock(userID string) *sync.Mutex {
	r.locksMu.Lock()
	defer r.locksMu.Unlock()

	l, ok := r.userLocks[userID]
	if !ok {
		l = &sync.Mutex{}
		r.userLocks[userID] = l
	}

	return l
}

func (r *Repository) ListCategories(_ context.Context, userID string) ([]*budget.Category, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.listCategories(userID), nil
}

func (r *Repository) listCategories(userID string) []*budget.Category {
	var cats []*budget.Category

	for _, c := range r.categories {
		if c.UserID == userID {
			cats = append(cats, new(c))
		}
	}

	slices.SortFunc(cats, func(a, b *budget.Category) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}

		return strings.Compare(a.ID.String(), b.ID.String())
	})

	return cats
}

func (r *Repository) GetCategory(_ context.Context, userID string, id uuid.UUID) (*budget.Category, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.categories[id]
	if !ok || c.UserID != userID {
		return nil, budget.ErrNotFound
	}

	return &c, nil
}

func (r *Repository) CreateCategory(_ context.Context, c *budget.Category) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.insertCategory(c)

	return nil
}

func (r *Repository) insertCategory(c *budget.Category) {
	c.ID = uuid.New()
	c.CreatedAt = r.stamp()
	r.categories[c.ID] = *c
}

func (r *Repository) UpdateCategory(_ context.Context, userID string, id uuid.UUID, params budget.UpdateCategoryParams) (*budget.Category, error) {
	l := r.userLock(userID)
	l.Lock()
	defer l.Unlock()

	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.categories[id]
	if !ok || c.UserID != userID {
		return nil, budget.ErrNotFound
	}

	params.Apply(&c)
	r.categories[id] = c

	return &c, nil
}

func (r *Repository) DeleteCategory(_ context.Context, userID string, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.categories[id]
	if !ok || c.UserID != userID {
		return budget.ErrNotFound
	}

	for eid, e := range r.expenses {
		if e.CategoryID != nil && *e.CategoryID == id {
			e.CategoryID = nil
			r.expenses[eid] = e
		}
	}

	for fid, fe := range r.fixed {
		if fe.CategoryID != nil && *fe.CategoryID == id {
			fe.CategoryID = nil
			r.fixed[fid] = fe
		}
	}

	delete(r.categories, id)

	return nil
}

func (r *Repository) SeedCategories(_ context.Context, userID string, defaults []*budget.Category) (bool, error) {
	l := r.userLock(userID)
	l.Lock()
	defer l.Unlock()

	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.listCategories(userID)) > 0 {
		return false, nil
	}

	for _, c := range defaults {
		c.UserID = userID
		r.insertCategory(c)
	}

	return true, nil
}

func (r *Repository) ListExpenses(_ context.Context, filter budget.ListFilter) ([]*budget.Expense, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.listExpenses(filter), nil
}

func (r *Repository) listExpenses(filter budget.ListFilter) []*budget.Expense {
	var out []*budget.Expense

	for _, e := range r.expenses {
		if e.UserID != filter.UserID {
			continue
		}

		if filter.Period != nil && !filter.Period.Contains(e.Date) {
			continue
		}

		if filter.CategoryID != nil && (e.CategoryID == nil || *e.CategoryID != *filter.CategoryID) {
			continue
		}

		if e.CategoryID != nil {
			if c, ok := r.categories[*e.CategoryID]; ok {
				e.CategoryName = new(c.Name)
			}
		}

		out = append(out, new(e))
	}

	slices.SortFunc(out, func(a, b *budget.Expense) int {
		return b.Date.Compare(a.Date)
	})

	return out
}

func (r *Repository) CreateExpense(_ context.Context, e *budget.Expense) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.insertExpense(e)

	return nil
}

func (r *Repository) insertExpense(e *budget.Expense) {
	e.ID = uuid.New()
	e.CreatedAt = r.stamp()
	r.expenses[e.ID] = *e
}

func (r *Repository) DeleteExpense(_ context.Context, userID string, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.expenses[id]
	if !ok || e.UserID != userID {
		return budget.ErrNotFound
	}

	delete(r.expenses, id)

	return nil
}

func (r *Repository) GetSettings(_ context.Context, userID string) (*budget.Settings, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.settings[userID]
	if !ok {
		return nil, budget.ErrNotFound
	}

	return &s, nil
}

func (r *Repository) UpsertSettings(_ context.Context, s *budget.Settings) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.settings[s.UserID]; ok {
		s.LastResetDate = existing.LastResetDate
	}

	r.settings[s.UserID] = *s

	return nil
}

// SetWatermark overwrites the rollover watermark, for seeding test state.
func (r *Repository) SetWatermark(userID string, at *time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.settings[userID]
	if !ok {
		s = *budget.DefaultSettings(userID)
	}

	s.LastResetDate = at
	r.settings[userID] = s
}

func (r *Repository) ListFixedExpenses(_ context.Context, userID string) ([]*budget.FixedExpense, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.listFixed(userID), nil
}

func (r *Repository) listFixed(userID string) []*budget.FixedExpense {
	var out []*budget.FixedExpense

	for _, fe := range r.fixed {
		if fe.UserID == userID {
			out = append(out, new(fe))
		}
	}

	slices.SortFunc(out, func(a, b *budget.FixedExpense) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})

	return out
}

func (r *Repository) CreateFixedExpense(_ context.Context, fe *budget.FixedExpense) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	fe.ID = uuid.New()
	fe.CreatedAt = r.stamp()
	r.fixed[fe.ID] = *fe

	return nil
}

func (r *Repository) DeleteFixedExpense(_ context.Context, userID string, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	fe, ok := r.fixed[id]
	if !ok || fe.UserID != userID {
		return budget.ErrNotFound
	}

	delete(r.fixed, id)

	return nil
}

func (r *Repository) ListHistory(_ context.Context, userID string) ([]*budget.HistoryEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*budget.HistoryEntry

	for _, h := range r.history {
		if h.UserID == userID {
			out = append(out, new(h))
		}
	}

	slices.SortFunc(out, func(a, b *budget.HistoryEntry) int {
		return strings.Compare(b.Month.String(), a.Month.String())
	})

	return out, nil
}

// tx stages writes and applies them on Commit. It holds the user's lock
// until Commit or Rollback.
type tx struct {
	repo   *Repository
	userID string
	lock   *sync.Mutex
	staged []func()
	done   bool
}

func (r *Repository) begin(userID string) *tx {
	l := r.userLock(userID)
	l.Lock()

	return &tx{repo: r, userID: userID, lock: l}
}

func (t *tx) stage(fn func()) {
	t.staged = append(t.staged, fn)
}

func (t *tx) Commit() error {
	if t.done {
		return fmt.Errorf("transaction already finished")
	}

	if err := t.repo.fault("Commit"); err != nil {
		return err
	}

	t.repo.mu.Lock()
	for _, fn := range t.staged {
		fn()
	}
	t.repo.mu.Unlock()

	t.finish()

	return nil
}

func (t *tx) Rollback() error {
	if t.done {
		return nil
	}

	t.finish()

	return nil
}

func (t *tx) finish() {
	t.done = true
	t.staged = nil
	t.lock.Unlock()
}

func (r *Repository) BeginTransfer(_ context.Context, userID string) (budget.TransferTx, error) {
	return &transferTx{tx: r.begin(userID)}, nil
}

type transferTx struct {
	*tx
}

func (t *transferTx) LockCategories(_ context.Context, ids ...uuid.UUID) ([]*budget.Category, error) {
	if err := t.repo.fault("LockCategories"); err != nil {
		return nil, err
	}

	t.repo.mu.Lock()
	defer t.repo.mu.Unlock()

	var out []*budget.Category

	for _, id := range ids {
		if c, ok := t.repo.categories[id]; ok && c.UserID == t.userID {
			out = append(out, new(c))
		}
	}

	return out, nil
}

func (t *transferTx) SetBudgetLimit(_ context.Context, id uuid.UUID, limit decimal.Decimal) error {
	if err := t.repo.fault("SetBudgetLimit"); err != nil {
		return err
	}

	t.stage(func() {
		c := t.repo.categories[id]
		c.BudgetLimit = limit
		t.repo.categories[id] = c
	})

	return nil
}

func (r *Repository) BeginRollover(_ context.Context, userID string) (budget.RolloverTx, error) {
	return &rolloverTx{tx: r.begin(userID)}, nil
}

type rolloverTx struct {
	*tx
}

func (t *rolloverTx) LockSettings(_ context.Context) (*budget.Settings, error) {
	if err := t.repo.fault("LockSettings"); err != nil {
		return nil, err
	}

	return t.repo.GetSettings(context.Background(), t.userID)
}

func (t *rolloverTx) ListCategories(_ context.Context) ([]*budget.Category, error) {
	if err := t.repo.fault("ListCategories"); err != nil {
		return nil, err
	}

	return t.repo.ListCategories(context.Background(), t.userID)
}

func (t *rolloverTx) ListExpenses(_ context.Context, period cycle.Period) ([]*budget.Expense, error) {
	if err := t.repo.fault("ListExpenses"); err != nil {
		return nil, err
	}

	return t.repo.ListExpenses(context.Background(), budget.ListFilter{UserID: t.userID, Period: &period})
}

func (t *rolloverTx) ListFixedExpenses(_ context.Context) ([]*budget.FixedExpense, error) {
	if err := t.repo.fault("ListFixedExpenses"); err != nil {
		return nil, err
	}

	return t.repo.ListFixedExpenses(context.Background(), t.userID)
}

func (t *rolloverTx) GetHistory(_ context.Context, month cycle.Month) (*budget.HistoryEntry, error) {
	if err := t.repo.fault("GetHistory"); err != nil {
		return nil, err
	}

	t.repo.mu.Lock()
	defer t.repo.mu.Unlock()

	for _, h := range t.repo.history {
		if h.UserID == t.userID && h.Month == month {
			return &h, nil
		}
	}

	return nil, budget.ErrNotFound
}

func (t *rolloverTx) InsertHistory(_ context.Context, h *budget.HistoryEntry) error {
	if err := t.repo.fault("InsertHistory"); err != nil {
		return err
	}

	t.repo.mu.Lock()
	defer t.repo.mu.Unlock()

	for _, existing := range t.repo.history {
		if existing.UserID == h.UserID && existing.Month == h.Month {
			return fmt.Errorf("history for %s already archived: %w", h.Month, budget.ErrConflict)
		}
	}

	h.ID = uuid.New()
	h.CreatedAt = time.Now()
	entry := *h

	t.stage(func() { t.repo.history[entry.ID] = entry })

	return nil
}

func (t *rolloverTx) CreateExpenses(_ context.Context, es []*budget.Expense) error {
	if err := t.repo.fault("CreateExpenses"); err != nil {
		return err
	}

	for _, e := range es {
		e.ID = uuid.New()
		e.CreatedAt = time.Now()
		entry := *e

		t.stage(func() { t.repo.expenses[entry.ID] = entry })
	}

	return nil
}

func (t *rolloverTx) SetLastReset(_ context.Context, at time.Time) error {
	if err := t.repo.fault("SetLastReset"); err != nil {
		return err
	}

	t.stage(func() {
		s := t.repo.settings[t.userID]
		s.LastResetDate = &at
		t.repo.settings[t.userID] = s
	})

	return nil
}

func (r *Repository) BeginImport(_ context.Context, userID string) (budget.ImportTx, error) {
	return &importTx{tx: r.begin(userID)}, nil
}

type importTx struct {
	*tx
}

func (t *importTx) FindDuplicates(_ context.Context, params []budget.CreateExpenseParams) ([]*budget.Expense, error) {
	keys := make(map[budget.DuplicateKey]struct{}, len(params))
	for _, p := range params {
		keys[budget.KeyOf(p.Date, p.Amount, p.RawDescription)] = struct{}{}
	}

	t.repo.mu.Lock()
	defer t.repo.mu.Unlock()

	var out []*budget.Expense

	for _, e := range t.repo.listExpenses(budget.ListFilter{UserID: t.userID}) {
		if _, ok := keys[budget.KeyOf(e.Date, e.Amount, e.RawDescription)]; ok {
			out = append(out, e)
		}
	}

	return out, nil
}

func (t *importTx) CreateExpenses(_ context.Context, es []*budget.Expense) error {
	if err := t.repo.fault("CreateExpenses"); err != nil {
		return err
	}

	t.stage(func() {
		for _, e := range es {
			t.repo.insertExpense(e)
		}
	})

	return nil
}
