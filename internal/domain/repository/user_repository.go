package repository

import (
	"context"
	"errors"

	"github.com/oksasatya/go-users-api/internal/domain/entity"
)

var (
	// ErrNotFound is returned when the referenced row does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicateEmail is returned when the store's unique constraint on email rejects a write.
	ErrDuplicateEmail = errors.New("email already exists")
)

// UserRepository defines the interface for user-related database operations.
// Implementations are bound to a single unit of work.
type UserRepository interface {
	Create(ctx context.Context, u *entity.User) error
	GetByID(ctx context.Context, id int64) (*entity.User, error)
	GetByEmail(ctx context.Context, email string) (*entity.User, error)
	List(ctx context.Context) ([]entity.User, error)
	Update(ctx context.Context, u *entity.User) error
	Delete(ctx context.Context, id int64) error
}

// Store hands out units of work. fn runs inside a transaction on a dedicated
// connection; a nil return commits, anything else rolls back. The connection
// is released on every path.
type Store interface {
	WithinUnitOfWork(ctx context.Context, fn func(repo UserRepository) error) error
	Ping(ctx context.Context) error
}
