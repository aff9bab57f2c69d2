package shopping

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=shopping
type Repository interface {
	ListLists(ctx context.Context, userID string) ([]*List, error)
	CreateList(ctx context.Context, l *List) error
	DeleteList(ctx context.Context, userID string, id uuid.UUID) error

	CreateItem(ctx context.Context, userID string, item *Item) error
	GetItem(ctx context.Context, userID string, id uuid.UUID) (*Item, error)
	UpdateItem(ctx context.Context, userID string, item *Item) error
	DeleteItem(ctx context.Context, userID string, id uuid.UUID) error
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

type CreateListParams struct {
	Name        string
	IsRecurring bool
}

type CreateItemParams struct {
	Name     string
	Quantity string
}

// UpdateItemParams carries a partial update; nil fields are left as is.
type UpdateItemParams struct {
	Name        *string
	Quantity    *string
	IsCompleted *bool
}

// Lists returns the user's lists with their items.
func (s *Service) Lists(ctx context.Context, userID string) ([]*List, error) {
	return s.repo.ListLists(ctx, userID)
}

func (s *Service) CreateList(ctx context.Context, userID string, params CreateListParams) (*List, error) {
	name := strings.TrimSpace(params.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalid)
	}

	l := &List{UserID: userID, Name: name, IsRecurring: params.IsRecurring, Items: []*Item{}}
	if err := s.repo.CreateList(ctx, l); err != nil {
		return nil, err
	}

	return l, nil
}

// DeleteList removes a list together with its items.
func (s *Service) DeleteList(ctx context.Context, userID string, id uuid.UUID) error {
	return s.repo.DeleteList(ctx, userID, id)
}

func (s *Service) AddItem(ctx context.Context, userID string, listID uuid.UUID, params CreateItemParams) (*Item, error) {
	name := strings.TrimSpace(params.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalid)
	}

	item := &Item{ListID: listID, Name: name, Quantity: strings.TrimSpace(params.Quantity)}
	if err := s.repo.CreateItem(ctx, userID, item); err != nil {
		return nil, err
	}

	return item, nil
}

func (s *Service) UpdateItem(ctx context.Context, userID string, id uuid.UUID, params UpdateItemParams) (*Item, error) {
	item, err := s.repo.GetItem(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	if params.Name != nil {
		name := strings.TrimSpace(*params.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: name cannot be empty", ErrInvalid)
		}

		item.Name = name
	}

	if params.Quantity != nil {
		item.Quantity = strings.TrimSpace(*params.Quantity)
	}

	if params.IsCompleted != nil {
		item.IsCompleted = *params.IsCompleted
	}

	if err := s.repo.UpdateItem(ctx, userID, item); err != nil {
		return nil, err
	}

	return item, nil
}

func (s *Service) DeleteItem(ctx context.Context, userID string, id uuid.UUID) error {
	return s.repo.DeleteItem(ctx, userID, id)
}
