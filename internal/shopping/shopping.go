package shopping

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound = errors.New("not found")
	ErrInvalid  = errors.New("invalid input")
)

// List is a named shopping list. Recurring lists are meant to be reused
// every cycle.
type List struct {
	ID          uuid.UUID
	UserID      string
	Name        string
	IsRecurring bool
	Items       []*Item // Loaded with the list
	CreatedAt   time.Time
}

type Item struct {
	ID          uuid.UUID
	ListID      uuid.UUID
	Name        string
	Quantity    string // Free text, e.g. "2 kg"
	IsCompleted bool
	CreatedAt   time.Time
}
