package storage

import (
	"context"
	"time"

	"github.com/poiesic/tariff/core"
)

// Repository provides common storage operations shared across all repositories.
// Implementations must be thread-safe and support concurrent access.
type Repository interface {
	// WithTransaction executes a function within a transaction.
	// If fn returns an error, the transaction is rolled back.
	// If fn returns nil, the transaction is committed.
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error

	// Close closes the storage backend and releases resources.
	Close() error
}

// PrecedentRepository provides operations for archiving and retrieving
// finalized classifications.
type PrecedentRepository interface {
	Repository

	// AddPrecedents archives one or more precedents.
	// For precedents with Id=0, derives the content-based ID.
	// Sets CreatedAt if not already set.
	// Returns the precedents with IDs and timestamps populated.
	AddPrecedents(ctx context.Context, precedents ...*core.Precedent) ([]*core.Precedent, error)

	// GetPrecedent retrieves a single precedent by ID.
	// Returns ErrNotFound if the precedent doesn't exist.
	GetPrecedent(ctx context.Context, id core.ID) (*core.Precedent, error)

	// GetPrecedents retrieves multiple precedents by their IDs.
	// Returns only the precedents that exist (no error for missing ones).
	GetPrecedents(ctx context.Context, ids ...core.ID) ([]*core.Precedent, error)

	// FindByCode retrieves all precedents committed to the given tariff code.
	FindByCode(ctx context.Context, code string) ([]*core.Precedent, error)

	// GetRecentPrecedents retrieves the N most recent precedents, newest first.
	GetRecentPrecedents(ctx context.Context, limit int) ([]*core.Precedent, error)

	// GetPrecedentsByDateRange retrieves precedents within a time range.
	// Returns precedents where start <= CreatedAt < end, ordered by creation time.
	GetPrecedentsByDateRange(ctx context.Context, start, end time.Time) ([]*core.Precedent, error)

	// DeletePrecedents removes precedents by their IDs.
	// Also removes associated indices.
	// Returns ErrNotFound if any precedent doesn't exist.
	DeletePrecedents(ctx context.Context, ids ...core.ID) error
}
