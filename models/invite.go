package models

import (
	"time"

	"github.com/google/uuid"
)

// BoardInvite is a shareable token that grants board membership on redemption.
type BoardInvite struct {
	Token     string     `json:"token"`
	BoardID   uuid.UUID  `json:"board_id"`
	CreatedBy uuid.UUID  `json:"created_by"`
	CreatedAt time.Time  `json:"created_at"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"` // Nil means the invite never expires
}
