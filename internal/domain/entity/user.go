package entity

import "time"

type User struct {
	UserID          string    `json:"user_id" firestore:"userId"`
	Email           string    `json:"email" firestore:"email"`
	Name            string    `json:"name" firestore:"name"`
	Gender          string    `json:"gender" firestore:"gender"`
	DateOfBirth     string    `json:"date_of_birth,omitempty" firestore:"dateOfBirth,omitempty"`
	ProfileImageURL string    `json:"profile_image_url,omitempty" firestore:"profileImageUrl,omitempty"`
	CreationDate    time.Time `json:"creation_date" firestore:"creationDate"`
}

// UserSnapshot is the subset of a profile embedded in a conversation summary.
type UserSnapshot struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	ProfileImageURL string `json:"profile_image_url"`
	Gender          string `json:"gender"`
}

// DeletedUserSnapshot is the placeholder used when the other participant's
// profile document no longer exists.
func DeletedUserSnapshot(userID string) UserSnapshot {
	return UserSnapshot{
		ID:     userID,
		Name:   "User Deleted",
		Gender: "other",
	}
}

func (u *User) Snapshot() UserSnapshot {
	gender := u.Gender
	if gender == "" {
		gender = "other"
	}
	return UserSnapshot{
		ID:              u.UserID,
		Name:            u.Name,
		ProfileImageURL: u.ProfileImageURL,
		Gender:          gender,
	}
}
