package store

import (
	"context"
	"errors"

	"github.com/aussiebroadwan/splitsub/internal/splitsub/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface. Concrete drivers (sqlite,
// postgres) implement it and expose sub-repositories.
type Store interface {
	Users() Users

	ApplyMigrations() error

	// Close releases the underlying connection pool.
	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

type Users interface {
	// FindByID returns ErrNotFound when no user has id.
	FindByID(ctx context.Context, id string) (domain.User, error)

	// FindByEmail matches the already normalized email exactly.
	FindByEmail(ctx context.Context, email string) (domain.User, error)

	// List returns a page ordered by creation date, newest first.
	List(ctx context.Context, offset, limit int) ([]domain.User, error)

	Count(ctx context.Context) (int, error)

	// Create inserts u. A duplicate email returns ErrAlreadyExists.
	Create(ctx context.Context, u domain.User) error

	// Update writes name, phone, password hash, role and updated_at.
	Update(ctx context.Context, u domain.User) error

	Delete(ctx context.Context, id string) error
}
