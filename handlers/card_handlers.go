package handlers

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/supabase-community/postgrest-go"

	"linkatelier/api-gateway/internal/youtube"
	"linkatelier/api-gateway/middleware"
	"linkatelier/api-gateway/models"
	"linkatelier/api-gateway/utils"
)

// CreateCardRequest is the payload for saving a link to a board.
type CreateCardRequest struct {
	URL          string `json:"url" validate:"required,url"`
	Title        string `json:"title" validate:"max=500"`
	CreatorNote  string `json:"creatorNote" validate:"max=4000"`
	ThumbnailURL string `json:"thumbnailUrl" validate:"omitempty,url"`
}

// CardSuccessResponse wraps a single card.
type CardSuccessResponse struct {
	Status  string      `json:"status"`
	Message string      `json:"message"`
	Data    models.Card `json:"data"`
}

// canEditCards reports whether the user may add or change cards on the board.
// Members get card write access; layout writes stay creator only.
func (h *ApplicationHandler) canEditCards(board *models.Board, userID string) (bool, error) {
	if userID == "" {
		return false, nil
	}
	if h.isCreator(board, userID) {
		return true, nil
	}
	return h.isMember(board.ID.String(), userID)
}

// ListCards godoc
// @Summary List a board's cards
// @Description Returns the board's live cards, newest first. Follows the board's read-access rule.
// @Tags cards
// @Produce json
// @Param boardId path string true "Board ID"
// @Success 200 {object} map[string]interface{}
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /boards/{boardId}/cards [get]
func (h *ApplicationHandler) ListCards(c *fiber.Ctx) error {
	boardID := c.Params("boardId")
	userID := middleware.CurrentUserID(c)

	board, err := h.fetchBoard(boardID)
	if err != nil {
		h.Logger.Errorf("Error fetching board %s: %v", boardID, err)
		return utils.RespondWithError(c, fiber.StatusInternalServerError, err.Error())
	}
	if board == nil || board.DeletedAt != nil {
		return utils.RespondWithError(c, fiber.StatusNotFound, "Board not found")
	}

	canRead, err := h.canReadBoard(board, userID)
	if err != nil {
		h.Logger.Errorf("Error checking access to board %s: %v", boardID, err)
		return utils.RespondWithError(c, fiber.StatusInternalServerError, err.Error())
	}
	if !canRead {
		return utils.RespondWithError(c, fiber.StatusForbidden, "Forbidden")
	}

	body, _, err := h.DB.From("cards").
		Select("*", "", false).
		Eq("board_id", board.ID.String()).
		Is("deleted_at", "null").
		Order("created_at", &postgrest.OrderOpts{Ascending: false}).
		Execute()
	if err != nil {
		h.Logger.Errorf("Error listing cards of board %s: %v", boardID, err)
		return utils.RespondWithError(c, fiber.StatusInternalServerError, err.Error())
	}

	cards := []models.Card{}
	if err := json.Unmarshal(body, &cards); err != nil {
		h.Logger.Errorf("Error decoding card rows: %v", err)
		return utils.RespondWithError(c, fiber.StatusInternalServerError, err.Error())
	}

	return utils.RespondWithJSON(c, fiber.StatusOK, cards)
}

// CreateCard godoc
// @Summary Save a link to a board
// @Description Stores the URL as a card. YouTube links get their video id, start offset and thumbnail extracted server side.
// @Tags cards
// @Accept json
// @Produce json
// @Param boardId path string true "Board ID"
// @Param card body CreateCardRequest true "Card to create"
// @Success 201 {object} CardSuccessResponse
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /boards/{boardId}/cards [post]
func (h *ApplicationHandler) CreateCard(c *fiber.Ctx) error {
	boardID := c.Params("boardId")
	userID := middleware.CurrentUserID(c)

	board, err := h.fetchBoard(boardID)
	if err != nil {
		h.Logger.Errorf("Error fetching board %s: %v", boardID, err)
		return utils.RespondWithError(c, fiber.StatusInternalServerError, err.Error())
	}
	if board == nil || board.DeletedAt != nil {
		return utils.RespondWithError(c, fiber.StatusNotFound, "Board not found")
	}

	canEdit, err := h.canEditCards(board, userID)
	if err != nil {
		h.Logger.Errorf("Error checking edit access to board %s: %v", boardID, err)
		return utils.RespondWithError(c, fiber.StatusInternalServerError, err.Error())
	}
	if !canEdit {
		return utils.RespondWithError(c, fiber.StatusForbidden, "Forbidden")
	}

	req := new(CreateCardRequest)
	if err := c.BodyParser(req); err != nil {
		h.Logger.Warnf("Error parsing card payload: %v", err)
		return utils.RespondWithError(c, fiber.StatusBadRequest, fmt.Sprintf("Cannot parse card JSON: %v", err))
	}

	if err := h.Validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"status":  "error",
			"message": "Validation failed",
			"errors":  utils.FormatValidationErrors(err),
		})
	}

	insertData := h.buildCardInsert(board.ID.String(), req)

	body, _, err := h.DB.From("cards").
		Insert(insertData, false, "", "representation", "").
		Execute()
	if err != nil {
		h.Logger.Errorf("Error inserting card on board %s: %v", boardID, err)
		return utils.RespondWithError(c, fiber.StatusInternalServerError, err.Error())
	}

	var created []models.Card
	if err := json.Unmarshal(body, &created); err != nil || len(created) == 0 {
		h.Logger.Errorf("Error decoding inserted card: %v", err)
		return utils.RespondWithError(c, fiber.StatusInternalServerError, "Failed to decode created card")
	}

	h.Logger.Infof("Card %s created on board %s by user %s", created[0].ID, boardID, userID)
	return utils.RespondWithJSON(c, fiber.StatusCreated, created[0])
}

// buildCardInsert assembles the card row, classifying the URL as a plain web
// link or a YouTube video.
func (h *ApplicationHandler) buildCardInsert(boardID string, req *CreateCardRequest) map[string]interface{} {
	insertData := map[string]interface{}{
		"board_id":    boardID,
		"url":         req.URL,
		"source_type": models.CardSourceWeb,
	}
	if title := utils.TrimmedOrNil(req.Title); title != nil {
		insertData["title"] = *title
	}
	if note := utils.TrimmedOrNil(req.CreatorNote); note != nil {
		insertData["creator_note"] = *note
	}
	if thumb := utils.TrimmedOrNil(req.ThumbnailURL); thumb != nil {
		insertData["thumbnail_url"] = *thumb
	}

	videoID := youtube.VideoID(req.URL)
	if videoID == "" {
		return insertData
	}

	insertData["source_type"] = models.CardSourceYouTube
	insertData["youtube_video_id"] = videoID
	if seconds, ok := youtube.StartSeconds(req.URL); ok {
		insertData["youtube_timestamp"] = seconds
	}
	if _, has := insertData["thumbnail_url"]; !has {
		insertData["thumbnail_url"] = youtube.ThumbnailURL(videoID)
	}
	return insertData
}

// UpdateCard godoc
// @Summary Update a card
// @Description Updates only the supplied fields of the card.
// @Tags cards
// @Accept json
// @Produce json
// @Param boardId path string true "Board ID"
// @Param cardId path string true "Card ID"
// @Success 200 {object} CardSuccessResponse
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /boards/{boardId}/cards/{cardId} [patch]
func (h *ApplicationHandler) UpdateCard(c *fiber.Ctx) error {
	boardID := c.Params("boardId")
	cardID := c.Params("cardId")
	userID := middleware.CurrentUserID(c)

	board, card, errStatus, errMsg := h.fetchBoardCard(boardID, cardID, userID)
	if errStatus != 0 {
		return utils.RespondWithError(c, errStatus, errMsg)
	}

	var payload map[string]interface{}
	if err := c.BodyParser(&payload); err != nil || payload == nil {
		return utils.RespondWithError(c, fiber.StatusBadRequest, "Invalid JSON body")
	}

	updateData := make(map[string]interface{})
	if raw, ok := payload["title"]; ok {
		if err := assignNullableString(updateData, "title", raw); err != nil {
			return utils.RespondWithError(c, fiber.StatusBadRequest, err.Error())
		}
	}
	if raw, ok := payload["creatorNote"]; ok {
		if err := assignNullableString(updateData, "creator_note", raw); err != nil {
			return utils.RespondWithError(c, fiber.StatusBadRequest, err.Error())
		}
	}
	if raw, ok := payload["thumbnailUrl"]; ok {
		if err := assignNullableString(updateData, "thumbnail_url", raw); err != nil {
			return utils.RespondWithError(c, fiber.StatusBadRequest, err.Error())
		}
	}

	if len(updateData) == 0 {
		return utils.RespondWithError(c, fiber.StatusBadRequest, "No valid fields to update")
	}

	body, _, err := h.DB.From("cards").
		Update(updateData, "representation", "").
		Eq("id", card.ID.String()).
		Eq("board_id", board.ID.String()).
		Execute()
	if err != nil {
		h.Logger.Errorf("Error updating card %s: %v", cardID, err)
		return utils.RespondWithError(c, fiber.StatusInternalServerError, err.Error())
	}

	var updated []models.Card
	if err := json.Unmarshal(body, &updated); err != nil || len(updated) == 0 {
		return utils.RespondWithError(c, fiber.StatusInternalServerError, "Failed to decode updated card")
	}

	return utils.RespondWithJSON(c, fiber.StatusOK, updated[0])
}

// DeleteCard godoc
// @Summary Soft-delete a card
// @Tags cards
// @Produce json
// @Param boardId path string true "Board ID"
// @Param cardId path string true "Card ID"
// @Success 200 {object} map[string]interface{}
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /boards/{boardId}/cards/{cardId} [delete]
func (h *ApplicationHandler) DeleteCard(c *fiber.Ctx) error {
	boardID := c.Params("boardId")
	cardID := c.Params("cardId")
	userID := middleware.CurrentUserID(c)

	board, card, errStatus, errMsg := h.fetchBoardCard(boardID, cardID, userID)
	if errStatus != 0 {
		return utils.RespondWithError(c, errStatus, errMsg)
	}

	now := time.Now().UTC().Format(time.RFC3339)
	if _, _, err := h.DB.From("cards").
		Update(map[string]interface{}{"deleted_at": now}, "", "").
		Eq("id", card.ID.String()).
		Eq("board_id", board.ID.String()).
		Execute(); err != nil {
		h.Logger.Errorf("Error soft-deleting card %s: %v", cardID, err)
		return utils.RespondWithError(c, fiber.StatusInternalServerError, err.Error())
	}

	h.Logger.Infof("Card %s soft-deleted on board %s by user %s", cardID, boardID, userID)
	return utils.RespondWithJSON(c, fiber.StatusOK, fiber.Map{"id": card.ID.String(), "deleted": true})
}

// RestoreCard godoc
// @Summary Restore a soft-deleted card
// @Tags cards
// @Produce json
// @Param boardId path string true "Board ID"
// @Param cardId path string true "Card ID"
// @Success 200 {object} CardSuccessResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /boards/{boardId}/cards/{cardId}/restore [post]
func (h *ApplicationHandler) RestoreCard(c *fiber.Ctx) error {
	boardID := c.Params("boardId")
	cardID := c.Params("cardId")
	userID := middleware.CurrentUserID(c)

	board, card, errStatus, errMsg := h.fetchBoardCard(boardID, cardID, userID)
	if errStatus != 0 {
		return utils.RespondWithError(c, errStatus, errMsg)
	}
	if card.DeletedAt == nil {
		return utils.RespondWithJSON(c, fiber.StatusOK, card)
	}

	body, _, err := h.DB.From("cards").
		Update(map[string]interface{}{"deleted_at": nil}, "representation", "").
		Eq("id", card.ID.String()).
		Eq("board_id", board.ID.String()).
		Execute()
	if err != nil {
		h.Logger.Errorf("Error restoring card %s: %v", cardID, err)
		return utils.RespondWithError(c, fiber.StatusInternalServerError, err.Error())
	}

	var restored []models.Card
	if err := json.Unmarshal(body, &restored); err != nil || len(restored) == 0 {
		return utils.RespondWithError(c, fiber.StatusInternalServerError, "Failed to decode restored card")
	}

	return utils.RespondWithJSON(c, fiber.StatusOK, restored[0])
}

// fetchBoardCard loads the board and card and applies the card edit rule. A
// zero status means both were found and the caller may edit. Deleted cards
// are returned so restore can see them; deleted boards are not.
func (h *ApplicationHandler) fetchBoardCard(boardID, cardID, userID string) (*models.Board, *models.Card, int, string) {
	board, err := h.fetchBoard(boardID)
	if err != nil {
		h.Logger.Errorf("Error fetching board %s: %v", boardID, err)
		return nil, nil, fiber.StatusInternalServerError, err.Error()
	}
	if board == nil || board.DeletedAt != nil {
		return nil, nil, fiber.StatusNotFound, "Board not found"
	}

	canEdit, err := h.canEditCards(board, userID)
	if err != nil {
		h.Logger.Errorf("Error checking edit access to board %s: %v", boardID, err)
		return nil, nil, fiber.StatusInternalServerError, err.Error()
	}
	if !canEdit {
		return nil, nil, fiber.StatusForbidden, "Forbidden"
	}

	body, _, err := h.DB.From("cards").
		Select("*", "", false).
		Eq("id", cardID).
		Eq("board_id", board.ID.String()).
		Execute()
	if err != nil {
		h.Logger.Errorf("Error fetching card %s: %v", cardID, err)
		return nil, nil, fiber.StatusInternalServerError, err.Error()
	}

	var cards []models.Card
	if err := json.Unmarshal(body, &cards); err != nil {
		return nil, nil, fiber.StatusInternalServerError, err.Error()
	}
	if len(cards) == 0 {
		return nil, nil, fiber.StatusNotFound, "Card not found"
	}

	return board, &cards[0], 0, ""
}

// assignNullableString copies raw into data[column] when it is a string or
// null, rejecting other JSON types.
func assignNullableString(data map[string]interface{}, column string, raw interface{}) error {
	switch value := raw.(type) {
	case string:
		data[column] = value
	case nil:
		data[column] = nil
	default:
		return fmt.Errorf("%s must be a string or null", column)
	}
	return nil
}
