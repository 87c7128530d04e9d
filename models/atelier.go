package models

// Atelier view modes accepted by the layout endpoint.
const (
	AtelierViewModeMinimal = "minimal"
	AtelierViewModeDense   = "dense"
)

// AtelierGroup is an informational clustering of cards on the canvas. Group
// membership carries no placement invariant.
type AtelierGroup struct {
	ID      string                 `json:"id"`
	CardIDs []string               `json:"cardIds"`
	Label   *string                `json:"label"`
	Color   *string                `json:"color"`
	Meta    map[string]interface{} `json:"meta"`
}

// AtelierConnector is a directed visual link between two cards.
type AtelierConnector struct {
	ID         string                 `json:"id"`
	FromCardID string                 `json:"fromCardId"`
	ToCardID   string                 `json:"toCardId"`
	Label      *string                `json:"label"`
	Style      *string                `json:"style"`
	Meta       map[string]interface{} `json:"meta"`
}

// AtelierCardLayout is the stored placement of one card.
type AtelierCardLayout struct {
	CardID string  `json:"cardId"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	ZIndex int     `json:"zIndex"`
}

// AtelierCardLayoutPatch is a partial placement update; nil fields are left
// untouched.
type AtelierCardLayoutPatch struct {
	CardID string   `json:"cardId"`
	X      *float64 `json:"x,omitempty"`
	Y      *float64 `json:"y,omitempty"`
	ZIndex *int     `json:"zIndex,omitempty"`
}

// AtelierLayoutPayload is the snapshot combining a board's view mode, groups,
// connectors and the placement of each non-deleted card. It is materialized on
// read, never stored as one row.
type AtelierLayoutPayload struct {
	BoardID    string              `json:"boardId"`
	ViewMode   string              `json:"viewMode"`
	Groups     []AtelierGroup      `json:"groups"`
	Connectors []AtelierConnector  `json:"connectors"`
	Cards      []AtelierCardLayout `json:"cards"`
}
