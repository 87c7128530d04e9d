package handlers

import (
	"encoding/json"
	"fmt"

	"linkatelier/api-gateway/internal/atelier"
	"linkatelier/api-gateway/models"
)

// cardLayoutRow is the projection used when materializing a layout snapshot.
// The z column is decoded as float so stored junk can be normalized instead of
// failing the unmarshal.
type cardLayoutRow struct {
	ID       string   `json:"id"`
	AtelierX *float64 `json:"atelier_x"`
	AtelierY *float64 `json:"atelier_y"`
	AtelierZ *float64 `json:"atelier_z"`
}

// fetchBoard loads one board row by id. A nil board with nil error means the
// board does not exist.
func (h *ApplicationHandler) fetchBoard(boardID string) (*models.Board, error) {
	body, _, err := h.DB.From("boards").
		Select("*", "", false).
		Eq("id", boardID).
		Execute()
	if err != nil {
		return nil, err
	}

	var boards []models.Board
	if err := json.Unmarshal(body, &boards); err != nil {
		return nil, fmt.Errorf("decoding board row: %w", err)
	}
	if len(boards) == 0 {
		return nil, nil
	}
	return &boards[0], nil
}

// canReadBoard implements the read-access rule: public board, creator, or
// recorded member.
func (h *ApplicationHandler) canReadBoard(board *models.Board, userID string) (bool, error) {
	if board.IsPublic {
		return true, nil
	}
	if userID == "" {
		return false, nil
	}
	if board.CreatorID.String() == userID {
		return true, nil
	}

	body, _, err := h.DB.From("board_members").
		Select("board_id", "", false).
		Eq("board_id", board.ID.String()).
		Eq("user_id", userID).
		Execute()
	if err != nil {
		return false, err
	}

	var memberships []models.BoardMember
	if err := json.Unmarshal(body, &memberships); err != nil {
		return false, fmt.Errorf("decoding membership rows: %w", err)
	}
	return len(memberships) > 0, nil
}

func (h *ApplicationHandler) isCreator(board *models.Board, userID string) bool {
	return userID != "" && board.CreatorID.String() == userID
}

// layoutSnapshot materializes the board's layout: normalized view mode,
// sanitized groups and connectors, and one placement entry per non-deleted
// card with missing or non-finite values defaulted.
func (h *ApplicationHandler) layoutSnapshot(board *models.Board) (*models.AtelierLayoutPayload, error) {
	body, _, err := h.DB.From("cards").
		Select("id,atelier_x,atelier_y,atelier_z", "", false).
		Eq("board_id", board.ID.String()).
		Is("deleted_at", "null").
		Execute()
	if err != nil {
		return nil, err
	}

	var rows []cardLayoutRow
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("decoding card layout rows: %w", err)
	}

	viewMode := ""
	if board.AtelierViewMode != nil {
		viewMode = *board.AtelierViewMode
	}

	layout := &models.AtelierLayoutPayload{
		BoardID:    board.ID.String(),
		ViewMode:   atelier.NormalizeViewMode(viewMode),
		Groups:     atelier.SanitizeGroups(decodeRaw(board.AtelierGroups)),
		Connectors: atelier.SanitizeConnectors(decodeRaw(board.AtelierConnectors)),
		Cards:      make([]models.AtelierCardLayout, 0, len(rows)),
	}

	for _, row := range rows {
		layout.Cards = append(layout.Cards, models.AtelierCardLayout{
			CardID: row.ID,
			X:      finiteOrZero(row.AtelierX),
			Y:      finiteOrZero(row.AtelierY),
			ZIndex: finiteIntOrZero(row.AtelierZ),
		})
	}

	return layout, nil
}

func decodeRaw(raw json.RawMessage) interface{} {
	if len(raw) == 0 {
		return nil
	}
	var value interface{}
	if err := json.Unmarshal(raw, &value); err != nil {
		return nil
	}
	return value
}

func finiteOrZero(p *float64) float64 {
	if p == nil {
		return 0
	}
	return atelier.FiniteNumber(*p, 0)
}

func finiteIntOrZero(p *float64) int {
	if p == nil {
		return 0
	}
	return atelier.FiniteInt(*p, 0)
}
