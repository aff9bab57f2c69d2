package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/budget/internal/shopping"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// ListLists loads the lists and all their items in two queries.
func (s *Store) ListLists(ctx context.Context, userID string) ([]*shopping.List, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, name, is_recurring, created_at
		FROM shopping_lists
		WHERE user_id = $1
		ORDER BY created_at ASC, id ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("listing shopping lists: %w", err)
	}
	defer rows.Close()

	var lists []*shopping.List

	byID := make(map[uuid.UUID]*shopping.List)

	for rows.Next() {
		l := &shopping.List{Items: []*shopping.Item{}}
		if err := rows.Scan(&l.ID, &l.UserID, &l.Name, &l.IsRecurring, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning shopping list: %w", err)
		}

		lists = append(lists, l)
		byID[l.ID] = l
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating shopping lists: %w", err)
	}

	if len(lists) == 0 {
		return lists, nil
	}

	itemRows, err := s.db.QueryContext(ctx, `
		SELECT i.id, i.list_id, i.name, i.quantity, i.is_completed, i.created_at
		FROM shopping_list_items i
		JOIN shopping_lists l ON l.id = i.list_id
		WHERE l.user_id = $1
		ORDER BY i.created_at ASC, i.id ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("listing shopping items: %w", err)
	}
	defer itemRows.Close()

	for itemRows.Next() {
		item, err := scanItem(itemRows)
		if err != nil {
			return nil, fmt.Errorf("scanning shopping item: %w", err)
		}

		if l, ok := byID[item.ListID]; ok {
			l.Items = append(l.Items, item)
		}
	}

	if err := itemRows.Err(); err != nil {
		return nil, fmt.Errorf("iterating shopping items: %w", err)
	}

	return lists, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanItem(s scanner) (*shopping.Item, error) {
	var (
		item     shopping.Item
		quantity sql.NullString
	)

	if err := s.Scan(&item.ID, &item.ListID, &item.Name, &quantity, &item.IsCompleted, &item.CreatedAt); err != nil {
		return nil, err
	}

	item.Quantity = quantity.String

	return &item, nil
}

func (s *Store) CreateList(ctx context.Context, l *shopping.List) error {
	query := `
		INSERT INTO shopping_lists (user_id, name, is_recurring, created_at)
		VALUES ($1, $2, $3, NOW())
		RETURNING id, created_at
	`

	if err := s.db.QueryRowContext(ctx, query, l.UserID, l.Name, l.IsRecurring).Scan(&l.ID, &l.CreatedAt); err != nil {
		return fmt.Errorf("creating shopping list: %w", err)
	}

	return nil
}

// DeleteList relies on ON DELETE CASCADE to remove the items.
func (s *Store) DeleteList(ctx context.Context, userID string, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM shopping_lists WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("deleting shopping list: %w", err)
	}

	return expectRow(res)
}

// CreateItem inserts the item only when its list belongs to the user.
func (s *Store) CreateItem(ctx context.Context, userID string, item *shopping.Item) error {
	query := `
		INSERT INTO shopping_list_items (list_id, name, quantity, is_completed, created_at)
		SELECT l.id, $3, NULLIF($4, ''), $5, NOW()
		FROM shopping_lists l
		WHERE l.id = $1 AND l.user_id = $2
		RETURNING id, created_at
	`

	err := s.db.QueryRowContext(ctx, query, item.ListID, userID, item.Name, item.Quantity, item.IsCompleted).
		Scan(&item.ID, &item.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return shopping.ErrNotFound
		}

		return fmt.Errorf("creating shopping item: %w", err)
	}

	return nil
}

func (s *Store) GetItem(ctx context.Context, userID string, id uuid.UUID) (*shopping.Item, error) {
	query := `
		SELECT i.id, i.list_id, i.name, i.quantity, i.is_completed, i.created_at
		FROM shopping_list_items i
		JOIN shopping_lists l ON l.id = i.list_id
		WHERE i.id = $1 AND l.user_id = $2
	`

	item, err := scanItem(s.db.QueryRowContext(ctx, query, id, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, shopping.ErrNotFound
		}

		return nil, fmt.Errorf("getting shopping item: %w", err)
	}

	return item, nil
}

func (s *Store) UpdateItem(ctx context.Context, userID string, item *shopping.Item) error {
	query := `
		UPDATE shopping_list_items i
		SET name = $1, quantity = NULLIF($2, ''), is_completed = $3
		FROM shopping_lists l
		WHERE i.id = $4 AND l.id = i.list_id AND l.user_id = $5
	`

	res, err := s.db.ExecContext(ctx, query, item.Name, item.Quantity, item.IsCompleted, item.ID, userID)
	if err != nil {
		return fmt.Errorf("updating shopping item: %w", err)
	}

	return expectRow(res)
}

func (s *Store) DeleteItem(ctx context.Context, userID string, id uuid.UUID) error {
	query := `
		DELETE FROM shopping_list_items i
		USING shopping_lists l
		WHERE i.id = $1 AND l.id = i.list_id AND l.user_id = $2
	`

	res, err := s.db.ExecContext(ctx, query, id, userID)
	if err != nil {
		return fmt.Errorf("deleting shopping item: %w", err)
	}

	return expectRow(res)
}

func expectRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("reading rows affected: %w", err)
	}

	if n == 0 {
		return shopping.ErrNotFound
	}

	return nil
}
