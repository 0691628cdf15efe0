package application

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-users-api/internal/domain/entity"
	repo "github.com/oksasatya/go-users-api/internal/domain/repository"
)

var (
	ErrUserNotFound = errors.New("user not found")
	ErrEmailTaken   = errors.New("email already registered")
)

const (
	defaultSearchSize = 10
	maxSearchSize     = 50
)

// EventPublisher delivers user lifecycle events. *helpers.RabbitPublisher implements it.
type EventPublisher interface {
	PublishJSON(ctx context.Context, msgType string, body any) error
}

// UserIndex mirrors users into a search backend. *search.UserIndex implements it.
type UserIndex interface {
	Put(ctx context.Context, u entity.User) error
	Remove(ctx context.Context, id int64) error
	Search(ctx context.Context, q string, size int) ([]entity.User, error)
}

type Service struct {
	Store  repo.Store
	Events EventPublisher
	Index  UserIndex
	Logger *logrus.Logger
}

func NewService(store repo.Store, events EventPublisher, index UserIndex, logger *logrus.Logger) *Service {
	return &Service{
		Store:  store,
		Events: events,
		Index:  index,
		Logger: logger,
	}
}

type CreateUserInput struct {
	Name  string
	Email string
	Role  string
}

// UpdateUserInput carries a partial update. A nil field was not supplied by
// the client and keeps its stored value; a non-nil field overwrites it, even
// when it points at an empty string.
type UpdateUserInput struct {
	Name  *string
	Email *string
	Role  *string
}

// apply merges the supplied fields into u and reports whether the email changed.
func (in UpdateUserInput) apply(u *entity.User) (emailChanged bool) {
	if in.Name != nil {
		u.Name = *in.Name
	}
	if in.Email != nil {
		emailChanged = *in.Email != u.Email
		u.Email = *in.Email
	}
	if in.Role != nil {
		u.Role = *in.Role
	}
	return emailChanged
}

func (s *Service) CreateUser(ctx context.Context, in CreateUserInput) (*entity.User, error) {
	u := &entity.User{Name: in.Name, Email: in.Email, Role: in.Role}

	err := s.Store.WithinUnitOfWork(ctx, func(r repo.UserRepository) error {
		if err := ensureEmailFree(ctx, r, u.Email, 0); err != nil {
			return err
		}
		return r.Create(ctx, u)
	})
	if err != nil {
		return nil, translate(err, "create user")
	}

	s.afterWrite(ctx, eventUserCreated, *u)
	return u, nil
}

func (s *Service) GetUser(ctx context.Context, id int64) (*entity.User, error) {
	var u *entity.User
	err := s.Store.WithinUnitOfWork(ctx, func(r repo.UserRepository) error {
		var err error
		u, err = r.GetByID(ctx, id)
		return err
	})
	if err != nil {
		return nil, translate(err, "get user")
	}
	return u, nil
}

func (s *Service) ListUsers(ctx context.Context) ([]entity.User, error) {
	var users []entity.User
	err := s.Store.WithinUnitOfWork(ctx, func(r repo.UserRepository) error {
		var err error
		users, err = r.List(ctx)
		return err
	})
	if err != nil {
		return nil, translate(err, "list users")
	}
	if users == nil {
		users = []entity.User{}
	}
	return users, nil
}

func (s *Service) UpdateUser(ctx context.Context, id int64, in UpdateUserInput) (*entity.User, error) {
	var u *entity.User
	err := s.Store.WithinUnitOfWork(ctx, func(r repo.UserRepository) error {
		var err error
		u, err = r.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if in.apply(u) {
			if err := ensureEmailFree(ctx, r, u.Email, u.ID); err != nil {
				return err
			}
		}
		return r.Update(ctx, u)
	})
	if err != nil {
		return nil, translate(err, "update user")
	}

	s.afterWrite(ctx, eventUserUpdated, *u)
	return u, nil
}

func (s *Service) DeleteUser(ctx context.Context, id int64) error {
	var u *entity.User
	err := s.Store.WithinUnitOfWork(ctx, func(r repo.UserRepository) error {
		var err error
		if u, err = r.GetByID(ctx, id); err != nil {
			return err
		}
		return r.Delete(ctx, id)
	})
	if err != nil {
		return translate(err, "delete user")
	}

	s.afterDelete(ctx, *u)
	return nil
}

// SearchUsers queries the search index. Without a configured index it returns an empty list.
func (s *Service) SearchUsers(ctx context.Context, q string, size int) ([]entity.User, error) {
	if s.Index == nil {
		return []entity.User{}, nil
	}
	if size <= 0 {
		size = defaultSearchSize
	}
	if size > maxSearchSize {
		size = maxSearchSize
	}
	users, err := s.Index.Search(ctx, q, size)
	if err != nil {
		return nil, fmt.Errorf("search users: %w", err)
	}
	return users, nil
}

// ensureEmailFree fails with ErrEmailTaken when email belongs to a user other than selfID.
func ensureEmailFree(ctx context.Context, r repo.UserRepository, email string, selfID int64) error {
	existing, err := r.GetByEmail(ctx, email)
	switch {
	case errors.Is(err, repo.ErrNotFound):
		return nil
	case err != nil:
		return err
	case existing.ID != selfID:
		return ErrEmailTaken
	}
	return nil
}

// translate maps store errors to service errors. The unique constraint is the
// last line of defence when two writers race past ensureEmailFree.
func translate(err error, op string) error {
	switch {
	case errors.Is(err, ErrEmailTaken), errors.Is(err, repo.ErrDuplicateEmail):
		return ErrEmailTaken
	case errors.Is(err, repo.ErrNotFound):
		return ErrUserNotFound
	}
	return fmt.Errorf("%s: %w", op, err)
}
