package models

import "github.com/google/uuid"

// Profile holds the public identity shown on boards. Its id matches the auth
// provider's user id.
type Profile struct {
	ID        uuid.UUID `json:"id"`
	FullName  *string   `json:"full_name,omitempty"`
	AvatarURL *string   `json:"avatar_url,omitempty"`
}
