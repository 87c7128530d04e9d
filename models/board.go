package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Board represents the structure of a board in the database.
type Board struct {
	ID          uuid.UUID  `json:"id,omitempty"`
	CreatorID   uuid.UUID  `json:"creator_id"`
	Title       string     `json:"title"`
	Slug        string     `json:"slug"`
	Description *string    `json:"description,omitempty"` // Use a pointer for nullable TEXT fields
	IsPublic    bool       `json:"is_public"`
	DeletedAt   *time.Time `json:"deleted_at,omitempty"` // Soft delete marker
	CreatedAt   time.Time  `json:"created_at"`

	// Atelier columns. The view mode is nullable for boards created before
	// the canvas existed; groups and connectors are opaque JSONB arrays.
	AtelierViewMode   *string         `json:"atelier_view_mode,omitempty"`
	AtelierGroups     json.RawMessage `json:"atelier_groups,omitempty"`     // Nullable JSONB
	AtelierConnectors json.RawMessage `json:"atelier_connectors,omitempty"` // Nullable JSONB
}

// BoardMember grants a non-owner read access to a private board.
type BoardMember struct {
	BoardID uuid.UUID `json:"board_id"`
	UserID  uuid.UUID `json:"user_id"`
}
