package store

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"hash/fnv"
	"net"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/budget/internal/budget"
	"github.com/MrJamesThe3rd/budget/internal/cycle"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// mapError translates driver failures into the budget sentinel errors.
// Serialization failures and deadlocks are retryable conflicts; connection
// failures mean the store is unavailable.
func mapError(err error) error {
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "40001", "40P01":
			return fmt.Errorf("%w: %w", budget.ErrConflict, err)
		}

		return err
	}

	var (
		connErr *pgconn.ConnectError
		netErr  net.Error
	)

	if errors.As(err, &connErr) || errors.As(err, &netErr) || errors.Is(err, driver.ErrBadConn) {
		return fmt.Errorf("%w: %w", budget.ErrStorageUnavailable, err)
	}

	return err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// userLockKey derives the advisory lock key serializing a user's rollover,
// seeding and imports.
func userLockKey(userID string) int64 {
	h := fnv.New64a()
	h.Write([]byte("budget-user"))
	h.Write([]byte{0})
	h.Write([]byte(userID))

	return int64(h.Sum64())
}

func (s *Store) begin(ctx context.Context, lockKey int64) (*sql.Tx, error) {
	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", mapError(err))
	}

	if _, err := dbTx.ExecContext(ctx, "SELECT pg_advisory_xact_lock($1)", lockKey); err != nil {
		dbTx.Rollback()
		return nil, fmt.Errorf("acquiring advisory lock: %w", mapError(err))
	}

	return dbTx, nil
}

// Categories

const selectCategoryColumns = `id, user_id, name, budget_limit, color, created_at`

func scanCategory(s scanner) (*budget.Category, error) {
	var c budget.Category
	if err := s.Scan(&c.ID, &c.UserID, &c.Name, &c.BudgetLimit, &c.Color, &c.CreatedAt); err != nil {
		return nil, err
	}

	return &c, nil
}

func listCategories(ctx context.Context, q querier, userID string) ([]*budget.Category, error) {
	query := `SELECT ` + selectCategoryColumns + `
		FROM categories
		WHERE user_id = $1
		ORDER BY created_at ASC, id ASC`

	rows, err := q.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("listing categories: %w", mapError(err))
	}
	defer rows.Close()

	var cats []*budget.Category

	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning category: %w", err)
		}

		cats = append(cats, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating category rows: %w", mapError(err))
	}

	return cats, nil
}

func (s *Store) ListCategories(ctx context.Context, userID string) ([]*budget.Category, error) {
	return listCategories(ctx, s.db, userID)
}

func (s *Store) GetCategory(ctx context.Context, userID string, id uuid.UUID) (*budget.Category, error) {
	query := `SELECT ` + selectCategoryColumns + `
		FROM categories
		WHERE id = $1 AND user_id = $2`

	c, err := scanCategory(s.db.QueryRowContext(ctx, query, id, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, budget.ErrNotFound
		}

		return nil, fmt.Errorf("getting category: %w", mapError(err))
	}

	return c, nil
}

func insertCategory(ctx context.Context, q querier, c *budget.Category) error {
	query := `
		INSERT INTO categories (user_id, name, budget_limit, color, created_at)
		VALUES ($1, $2, $3, $4, clock_timestamp())
		RETURNING id, created_at
	`

	if err := q.QueryRowContext(ctx, query, c.UserID, c.Name, c.BudgetLimit, c.Color).Scan(&c.ID, &c.CreatedAt); err != nil {
		return fmt.Errorf("creating category: %w", mapError(err))
	}

	return nil
}

func (s *Store) CreateCategory(ctx context.Context, c *budget.Category) error {
	return insertCategory(ctx, s.db, c)
}

// UpdateCategory writes only the set fields in a single statement.
func (s *Store) UpdateCategory(ctx context.Context, userID string, id uuid.UUID, params budget.UpdateCategoryParams) (*budget.Category, error) {
	query := `
		UPDATE categories
		SET name = COALESCE($1, name),
			budget_limit = COALESCE($2::numeric, budget_limit),
			color = COALESCE($3, color)
		WHERE id = $4 AND user_id = $5
		RETURNING ` + selectCategoryColumns

	var limit *string
	if params.BudgetLimit != nil {
		limit = new(params.BudgetLimit.String())
	}

	c, err := scanCategory(s.db.QueryRowContext(ctx, query, params.Name, limit, params.Color, id, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, budget.ErrNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("updating category: %w", mapError(err))
	}

	return c, nil
}

// DeleteCategory removes the category. The foreign keys null category_id on
// the user's expenses and fixed expenses.
func (s *Store) DeleteCategory(ctx context.Context, userID string, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM categories WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("deleting category: %w", mapError(err))
	}

	return expectRow(res)
}

// SeedCategories inserts defaults under the user's lock when the user has no
// categories yet. It reports whether anything was inserted.
func (s *Store) SeedCategories(ctx context.Context, userID string, defaults []*budget.Category) (bool, error) {
	dbTx, err := s.begin(ctx, userLockKey(userID))
	if err != nil {
		return false, err
	}
	defer dbTx.Rollback()

	var exists bool
	if err := dbTx.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM categories WHERE user_id = $1)`, userID).Scan(&exists); err != nil {
		return false, fmt.Errorf("checking categories: %w", mapError(err))
	}

	if exists {
		return false, nil
	}

	for _, c := range defaults {
		c.UserID = userID
		if err := insertCategory(ctx, dbTx, c); err != nil {
			return false, err
		}
	}

	if err := dbTx.Commit(); err != nil {
		return false, fmt.Errorf("committing seed: %w", mapError(err))
	}

	return true, nil
}

// Expenses

const selectExpenseColumns = `
	e.id, e.user_id, e.amount, e.description, e.raw_description, e.date,
	e.category_id, c.name AS category_name, e.recurring, e.created_at
`

// scanExpense expects the selectExpenseColumns order.
func scanExpense(s scanner) (*budget.Expense, error) {
	var (
		e       budget.Expense
		rawDesc sql.NullString
		catName sql.NullString
	)

	if err := s.Scan(
		&e.ID, &e.UserID, &e.Amount, &e.Description, &rawDesc, &e.Date,
		&e.CategoryID, &catName, &e.Recurring, &e.CreatedAt,
	); err != nil {
		return nil, err
	}

	e.RawDescription = rawDesc.String
	if catName.Valid {
		e.CategoryName = &catName.String
	}

	return &e, nil
}

func listExpenses(ctx context.Context, q querier, filter budget.ListFilter) ([]*budget.Expense, error) {
	query := `SELECT ` + selectExpenseColumns + `
		FROM expenses e
		LEFT JOIN categories c ON e.category_id = c.id
		WHERE e.user_id = $1`

	args := []any{filter.UserID}
	argIdx := 2

	if filter.Period != nil {
		query += fmt.Sprintf(" AND e.date >= $%d AND e.date < $%d", argIdx, argIdx+1)

		args = append(args, filter.Period.Start, filter.Period.End)
		argIdx += 2
	}

	if filter.CategoryID != nil {
		query += fmt.Sprintf(" AND e.category_id = $%d", argIdx)

		args = append(args, *filter.CategoryID)
	}

	query += " ORDER BY e.date DESC, e.created_at DESC"

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing expenses: %w", mapError(err))
	}
	defer rows.Close()

	var es []*budget.Expense

	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning expense: %w", err)
		}

		es = append(es, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating expense rows: %w", mapError(err))
	}

	return es, nil
}

func (s *Store) ListExpenses(ctx context.Context, filter budget.ListFilter) ([]*budget.Expense, error) {
	return listExpenses(ctx, s.db, filter)
}

func insertExpense(ctx context.Context, q querier, e *budget.Expense) error {
	query := `
		INSERT INTO expenses (user_id, amount, description, raw_description, date, category_id, recurring, created_at)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6, $7, NOW())
		RETURNING id, created_at
	`

	err := q.QueryRowContext(ctx, query,
		e.UserID,
		e.Amount,
		e.Description,
		e.RawDescription,
		e.Date,
		e.CategoryID,
		e.Recurring,
	).Scan(&e.ID, &e.CreatedAt)
	if err != nil {
		return fmt.Errorf("creating expense: %w", mapError(err))
	}

	return nil
}

func (s *Store) CreateExpense(ctx context.Context, e *budget.Expense) error {
	return insertExpense(ctx, s.db, e)
}

func (s *Store) DeleteExpense(ctx context.Context, userID string, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM expenses WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("deleting expense: %w", mapError(err))
	}

	return expectRow(res)
}

// Settings

func (s *Store) GetSettings(ctx context.Context, userID string) (*budget.Settings, error) {
	return getSettings(ctx, s.db, userID, false)
}

func getSettings(ctx context.Context, q querier, userID string, forUpdate bool) (*budget.Settings, error) {
	query := `SELECT user_id, reset_day, last_reset_date FROM settings WHERE user_id = $1`
	if forUpdate {
		query += " FOR UPDATE"
	}

	var st budget.Settings
	if err := q.QueryRowContext(ctx, query, userID).Scan(&st.UserID, &st.ResetDay, &st.LastResetDate); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, budget.ErrNotFound
		}

		return nil, fmt.Errorf("getting settings: %w", mapError(err))
	}

	return &st, nil
}

// UpsertSettings writes the reset day. The watermark is never touched here
// and is read back into s.
func (s *Store) UpsertSettings(ctx context.Context, st *budget.Settings) error {
	query := `
		INSERT INTO settings (user_id, reset_day)
		VALUES ($1, $2)
		ON CONFLICT (user_id) DO UPDATE SET reset_day = EXCLUDED.reset_day
		RETURNING last_reset_date
	`

	if err := s.db.QueryRowContext(ctx, query, st.UserID, st.ResetDay).Scan(&st.LastResetDate); err != nil {
		return fmt.Errorf("upserting settings: %w", mapError(err))
	}

	return nil
}

// Fixed expenses

func scanFixedExpense(s scanner) (*budget.FixedExpense, error) {
	var fe budget.FixedExpense
	if err := s.Scan(&fe.ID, &fe.UserID, &fe.Name, &fe.Amount, &fe.CategoryID, &fe.CreatedAt); err != nil {
		return nil, err
	}

	return &fe, nil
}

func listFixedExpenses(ctx context.Context, q querier, userID string) ([]*budget.FixedExpense, error) {
	query := `
		SELECT id, user_id, name, amount, category_id, created_at
		FROM fixed_expenses
		WHERE user_id = $1
		ORDER BY created_at ASC, id ASC
	`

	rows, err := q.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("listing fixed expenses: %w", mapError(err))
	}
	defer rows.Close()

	var out []*budget.FixedExpense

	for rows.Next() {
		fe, err := scanFixedExpense(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning fixed expense: %w", err)
		}

		out = append(out, fe)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating fixed expense rows: %w", mapError(err))
	}

	return out, nil
}

func (s *Store) ListFixedExpenses(ctx context.Context, userID string) ([]*budget.FixedExpense, error) {
	return listFixedExpenses(ctx, s.db, userID)
}

func (s *Store) CreateFixedExpense(ctx context.Context, fe *budget.FixedExpense) error {
	query := `
		INSERT INTO fixed_expenses (user_id, name, amount, category_id, created_at)
		VALUES ($1, $2, $3, $4, NOW())
		RETURNING id, created_at
	`

	if err := s.db.QueryRowContext(ctx, query, fe.UserID, fe.Name, fe.Amount, fe.CategoryID).Scan(&fe.ID, &fe.CreatedAt); err != nil {
		return fmt.Errorf("creating fixed expense: %w", mapError(err))
	}

	return nil
}

func (s *Store) DeleteFixedExpense(ctx context.Context, userID string, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM fixed_expenses WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("deleting fixed expense: %w", mapError(err))
	}

	return expectRow(res)
}

// History

const selectHistoryColumns = `id, user_id, month, total_budget, total_spent, created_at`

func scanHistory(s scanner) (*budget.HistoryEntry, error) {
	var (
		h     budget.HistoryEntry
		month string
	)

	if err := s.Scan(&h.ID, &h.UserID, &month, &h.TotalBudget, &h.TotalSpent, &h.CreatedAt); err != nil {
		return nil, err
	}

	m, err := cycle.ParseMonth(month)
	if err != nil {
		return nil, fmt.Errorf("parsing history month: %w", err)
	}

	h.Month = m

	return &h, nil
}

func (s *Store) ListHistory(ctx context.Context, userID string) ([]*budget.HistoryEntry, error) {
	query := `
		SELECT ` + selectHistoryColumns + `
		FROM budget_history
		WHERE user_id = $1
		ORDER BY month DESC
	`

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("listing history: %w", mapError(err))
	}
	defer rows.Close()

	var out []*budget.HistoryEntry

	for rows.Next() {
		h, err := scanHistory(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning history: %w", err)
		}

		out = append(out, h)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating history rows: %w", mapError(err))
	}

	return out, nil
}

func expectRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("reading rows affected: %w", err)
	}

	if n == 0 {
		return budget.ErrNotFound
	}

	return nil
}

// Transactions

type txBase struct {
	tx *sql.Tx
}

func (t *txBase) Commit() error {
	if err := t.tx.Commit(); err != nil {
		return mapError(err)
	}

	return nil
}

func (t *txBase) Rollback() error {
	err := t.tx.Rollback()
	if errors.Is(err, sql.ErrTxDone) {
		return nil
	}

	return err
}

type transferTx struct {
	txBase
	userID string
}

func (s *Store) BeginTransfer(ctx context.Context, userID string) (budget.TransferTx, error) {
	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transfer tx: %w", mapError(err))
	}

	return &transferTx{txBase: txBase{tx: dbTx}, userID: userID}, nil
}

// LockCategories locks the rows in id order so two opposite transfers
// cannot deadlock.
func (t *transferTx) LockCategories(ctx context.Context, ids ...uuid.UUID) ([]*budget.Category, error) {
	query := `SELECT ` + selectCategoryColumns + `
		FROM categories
		WHERE user_id = $1 AND id = ANY($2::uuid[])
		ORDER BY id
		FOR UPDATE`

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = id.String()
	}

	rows, err := t.tx.QueryContext(ctx, query, t.userID, keys)
	if err != nil {
		return nil, fmt.Errorf("locking categories: %w", mapError(err))
	}
	defer rows.Close()

	var cats []*budget.Category

	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning category: %w", err)
		}

		cats = append(cats, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating locked categories: %w", mapError(err))
	}

	return cats, nil
}

func (t *transferTx) SetBudgetLimit(ctx context.Context, id uuid.UUID, limit decimal.Decimal) error {
	res, err := t.tx.ExecContext(ctx,
		`UPDATE categories SET budget_limit = $1 WHERE id = $2 AND user_id = $3`,
		limit, id, t.userID)
	if err != nil {
		return fmt.Errorf("setting budget limit: %w", mapError(err))
	}

	return expectRow(res)
}

type rolloverTx struct {
	txBase
	userID string
}

func (s *Store) BeginRollover(ctx context.Context, userID string) (budget.RolloverTx, error) {
	dbTx, err := s.begin(ctx, userLockKey(userID))
	if err != nil {
		return nil, err
	}

	return &rolloverTx{txBase: txBase{tx: dbTx}, userID: userID}, nil
}

func (t *rolloverTx) LockSettings(ctx context.Context) (*budget.Settings, error) {
	return getSettings(ctx, t.tx, t.userID, true)
}

func (t *rolloverTx) ListCategories(ctx context.Context) ([]*budget.Category, error) {
	return listCategories(ctx, t.tx, t.userID)
}

func (t *rolloverTx) ListExpenses(ctx context.Context, period cycle.Period) ([]*budget.Expense, error) {
	return listExpenses(ctx, t.tx, budget.ListFilter{UserID: t.userID, Period: &period})
}

func (t *rolloverTx) ListFixedExpenses(ctx context.Context) ([]*budget.FixedExpense, error) {
	return listFixedExpenses(ctx, t.tx, t.userID)
}

func (t *rolloverTx) GetHistory(ctx context.Context, month cycle.Month) (*budget.HistoryEntry, error) {
	query := `
		SELECT ` + selectHistoryColumns + `
		FROM budget_history
		WHERE user_id = $1 AND month = $2
	`

	h, err := scanHistory(t.tx.QueryRowContext(ctx, query, t.userID, month.String()))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, budget.ErrNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("getting history: %w", mapError(err))
	}

	return h, nil
}

func (t *rolloverTx) InsertHistory(ctx context.Context, h *budget.HistoryEntry) error {
	query := `
		INSERT INTO budget_history (user_id, month, total_budget, total_spent, created_at)
		VALUES ($1, $2, $3, $4, NOW())
		RETURNING id, created_at
	`

	err := t.tx.QueryRowContext(ctx, query, h.UserID, h.Month.String(), h.TotalBudget, h.TotalSpent).
		Scan(&h.ID, &h.CreatedAt)
	if isUniqueViolation(err) {
		// Another writer archived the month; the retry finds its entry.
		return fmt.Errorf("history for %s already archived: %w: %w", h.Month, budget.ErrConflict, err)
	}

	if err != nil {
		return fmt.Errorf("inserting history: %w", mapError(err))
	}

	return nil
}

func (t *rolloverTx) CreateExpenses(ctx context.Context, es []*budget.Expense) error {
	for _, e := range es {
		if err := insertExpense(ctx, t.tx, e); err != nil {
			return err
		}
	}

	return nil
}

func (t *rolloverTx) SetLastReset(ctx context.Context, at time.Time) error {
	res, err := t.tx.ExecContext(ctx, `UPDATE settings SET last_reset_date = $1 WHERE user_id = $2`, at, t.userID)
	if err != nil {
		return fmt.Errorf("setting last reset: %w", mapError(err))
	}

	return expectRow(res)
}

type importTx struct {
	txBase
	userID string
}

func (s *Store) BeginImport(ctx context.Context, userID string) (budget.ImportTx, error) {
	dbTx, err := s.begin(ctx, userLockKey(userID))
	if err != nil {
		return nil, fmt.Errorf("beginning import tx: %w", err)
	}

	return &importTx{txBase: txBase{tx: dbTx}, userID: userID}, nil
}

func (t *importTx) FindDuplicates(ctx context.Context, params []budget.CreateExpenseParams) ([]*budget.Expense, error) {
	if len(params) == 0 {
		return nil, nil
	}

	minDate := params[0].Date
	maxDate := params[0].Date
	keySet := make(map[budget.DuplicateKey]struct{}, len(params))

	for _, p := range params {
		if p.Date.Before(minDate) {
			minDate = p.Date
		}

		if p.Date.After(maxDate) {
			maxDate = p.Date
		}

		keySet[budget.KeyOf(p.Date, p.Amount, p.RawDescription)] = struct{}{}
	}

	// Dates compare by calendar day, so widen the range to whole days.
	period := cycle.Period{
		Start: truncateDay(minDate),
		End:   truncateDay(maxDate).AddDate(0, 0, 1),
	}

	candidates, err := listExpenses(ctx, t.tx, budget.ListFilter{UserID: t.userID, Period: &period})
	if err != nil {
		return nil, fmt.Errorf("finding duplicates: %w", err)
	}

	var duplicates []*budget.Expense

	for _, e := range candidates {
		if _, found := keySet[budget.KeyOf(e.Date, e.Amount, e.RawDescription)]; found {
			duplicates = append(duplicates, e)
		}
	}

	return duplicates, nil
}

func (t *importTx) CreateExpenses(ctx context.Context, es []*budget.Expense) error {
	for _, e := range es {
		if err := insertExpense(ctx, t.tx, e); err != nil {
			return err
		}
	}

	return nil
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
