package repository

import (
	"context"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"nocturne/internal/domain/entity"
	"nocturne/internal/domain/repository"
	"nocturne/pkg/errors"
	"nocturne/pkg/logger"
)

type firestoreUserRepository struct {
	client *firestore.Client
}

func NewFirestoreUserRepository(client *firestore.Client) repository.UserRepository {
	return &firestoreUserRepository{
		client: client,
	}
}

func (r *firestoreUserRepository) userRef(id string) *firestore.DocumentRef {
	return r.client.Collection("users").Doc(id)
}

func (r *firestoreUserRepository) GetByID(ctx context.Context, id string) (*entity.User, error) {
	doc, err := r.userRef(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, errors.NotFound("User", err)
		}
		return nil, errors.Internal("Failed to get user", err)
	}

	var user entity.User
	if err := doc.DataTo(&user); err != nil {
		return nil, errors.Internal("Failed to parse user data", err)
	}
	user.UserID = doc.Ref.ID

	return &user, nil
}

func (r *firestoreUserRepository) Update(ctx context.Context, user *entity.User) error {
	updateData := map[string]interface{}{
		"name":            user.Name,
		"gender":          user.Gender,
		"dateOfBirth":     user.DateOfBirth,
		"profileImageUrl": user.ProfileImageURL,
	}

	// Empty fields are dropped so a partial update never clears stored data.
	cleanUpdateData := make(map[string]interface{})
	for key, value := range updateData {
		if strVal, ok := value.(string); ok && strVal == "" {
			continue
		}
		cleanUpdateData[key] = value
	}

	if len(cleanUpdateData) == 0 {
		return nil
	}

	_, err := r.userRef(user.UserID).Set(ctx, cleanUpdateData, firestore.MergeAll)
	if err != nil {
		return errors.Internal("Failed to update user", err)
	}

	return nil
}

func (r *firestoreUserRepository) WatchProfile(ctx context.Context, userID string, onChange func(user *entity.User, exists bool), onError func(error)) repository.CancelFunc {
	watchCtx, cancel := context.WithCancel(ctx)
	iter := r.userRef(userID).Snapshots(watchCtx)

	go func() {
		defer iter.Stop()
		for {
			snap, err := iter.Next()
			if err != nil {
				if status.Code(err) == codes.Canceled {
					return
				}
				dispatchError(onError, err)
				return
			}
			if !snap.Exists() {
				dispatch(onError, func() { onChange(nil, false) })
				continue
			}

			var user entity.User
			if err := snap.DataTo(&user); err != nil {
				logger.Warn("Skipping malformed user document %s: %v", userID, err)
				continue
			}
			user.UserID = snap.Ref.ID
			dispatch(onError, func() { onChange(&user, true) })
		}
	}()

	return cancelOnce(cancel)
}
