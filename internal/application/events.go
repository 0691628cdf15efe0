package application

import (
	"context"
	"time"

	"github.com/oksasatya/go-users-api/internal/domain/entity"
)

const (
	eventUserCreated = "user.created"
	eventUserUpdated = "user.updated"
	eventUserDeleted = "user.deleted"
)

// UserEvent is the message published after a committed write.
type UserEvent struct {
	Type       string    `json:"type"`
	UserID     int64     `json:"user_id"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	Role       string    `json:"role"`
	OccurredAt time.Time `json:"occurred_at"`
}

func newUserEvent(typ string, u entity.User) UserEvent {
	return UserEvent{
		Type:       typ,
		UserID:     u.ID,
		Name:       u.Name,
		Email:      u.Email,
		Role:       u.Role,
		OccurredAt: time.Now().UTC(),
	}
}

// Side effects run after commit and never fail the request.

func (s *Service) afterWrite(ctx context.Context, typ string, u entity.User) {
	s.publish(ctx, newUserEvent(typ, u))
	if s.Index == nil {
		return
	}
	if err := s.Index.Put(ctx, u); err != nil {
		s.warn(err, "search index failed", u.ID)
	}
}

func (s *Service) afterDelete(ctx context.Context, u entity.User) {
	s.publish(ctx, newUserEvent(eventUserDeleted, u))
	if s.Index == nil {
		return
	}
	if err := s.Index.Remove(ctx, u.ID); err != nil {
		s.warn(err, "search delete failed", u.ID)
	}
}

func (s *Service) publish(ctx context.Context, ev UserEvent) {
	if s.Events == nil {
		return
	}
	if err := s.Events.PublishJSON(ctx, ev.Type, ev); err != nil {
		s.warn(err, "publish user event failed", ev.UserID)
	}
}

func (s *Service) warn(err error, msg string, userID int64) {
	if s.Logger == nil {
		return
	}
	s.Logger.WithError(err).WithField("user_id", userID).Warn(msg)
}
