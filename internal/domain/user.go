package domain

import "time"

// User represents an application user. Password holds a bcrypt hash; for
// OAuth-provisioned accounts it is a random opaque placeholder and is never
// used for credential verification.
type User struct {
	ID         int64     `json:"id"`
	Username   string    `json:"username"`
	Email      string    `json:"email"`
	Password   string    `json:"-"`
	PictureURL string    `json:"pictureUrl,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}
