package repository

import (
	"context"

	"nocturne/internal/domain/entity"
)

type UserRepository interface {
	GetByID(ctx context.Context, id string) (*entity.User, error)
	Update(ctx context.Context, user *entity.User) error

	// WatchProfile streams a user document so display name and avatar
	// changes propagate into open conversations. exists=false reports a
	// deleted profile.
	WatchProfile(ctx context.Context, userID string, onChange func(user *entity.User, exists bool), onError func(error)) CancelFunc
}
