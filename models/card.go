package models

import (
	"time"

	"github.com/google/uuid"
)

// Card source types.
const (
	CardSourceWeb     = "web"
	CardSourceYouTube = "youtube"
)

// Card represents a saved link belonging to a board.
type Card struct {
	ID             uuid.UUID  `json:"id,omitempty"`
	BoardID        uuid.UUID  `json:"board_id"`
	URL            string     `json:"url"`
	Title          *string    `json:"title,omitempty"`
	CreatorNote    *string    `json:"creator_note,omitempty"`
	ThumbnailURL   *string    `json:"thumbnail_url,omitempty"`
	SourceType     string     `json:"source_type"` // "web" | "youtube"
	YouTubeVideoID *string    `json:"youtube_video_id,omitempty"`
	YouTubeOffset  *int       `json:"youtube_timestamp,omitempty"` // Start offset in seconds
	AtelierX       *float64   `json:"atelier_x,omitempty"`         // Nullable canvas placement
	AtelierY       *float64   `json:"atelier_y,omitempty"`
	AtelierZ       *int       `json:"atelier_z,omitempty"`
	DeletedAt      *time.Time `json:"deleted_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}
