package usecase

import (
	"context"
	"io"

	"nocturne/internal/domain/entity"
	"nocturne/internal/domain/repository"
	"nocturne/pkg/errors"
	"nocturne/pkg/logger"
)

type UserUseCase struct {
	userRepo repository.UserRepository
	uploader MediaUploader
}

func NewUserUseCase(userRepo repository.UserRepository, uploader MediaUploader) *UserUseCase {
	return &UserUseCase{
		userRepo: userRepo,
		uploader: uploader,
	}
}

func (uc *UserUseCase) GetProfile(ctx context.Context, userID string) (*entity.User, error) {
	return uc.userRepo.GetByID(ctx, userID)
}

type UpdateProfileInput struct {
	Name              string
	Gender            string
	DateOfBirth       string
	Avatar            io.Reader
	AvatarContentType string
}

// UpdateProfile merges the provided fields into the user's document,
// uploading a new avatar first when one is attached. Profile watchers pick
// the change up and refresh any open conversations.
func (uc *UserUseCase) UpdateProfile(ctx context.Context, userID string, input UpdateProfileInput) (*entity.User, error) {
	user := &entity.User{
		UserID:      userID,
		Name:        input.Name,
		Gender:      input.Gender,
		DateOfBirth: input.DateOfBirth,
	}

	if input.Avatar != nil {
		url, err := uc.uploader.UploadProfileImage(ctx, userID, input.Avatar, input.AvatarContentType)
		if err != nil {
			logger.Error("Avatar upload failed for user %s: %v", userID, err)
			return nil, errors.Internal("Failed to upload profile image", err)
		}
		user.ProfileImageURL = url
	}

	if err := uc.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}

	return uc.userRepo.GetByID(ctx, userID)
}
