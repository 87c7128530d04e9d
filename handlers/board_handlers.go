package handlers

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/supabase-community/postgrest-go"

	"linkatelier/api-gateway/internal/slugify"
	"linkatelier/api-gateway/middleware"
	"linkatelier/api-gateway/models"
	"linkatelier/api-gateway/utils"
)

// CreateBoardRequest is the payload for creating a board.
type CreateBoardRequest struct {
	Title       string `json:"title" validate:"required,min=1,max=200"`
	Description string `json:"description" validate:"max=2000"`
	IsPublic    bool   `json:"isPublic"`
}

// BoardSuccessResponse wraps a single board.
type BoardSuccessResponse struct {
	Status  string       `json:"status"`
	Message string       `json:"message"`
	Data    models.Board `json:"data"`
}

// ListBoards godoc
// @Summary List the caller's boards
// @Description Returns boards created by the caller plus boards shared with them, newest first.
// @Tags boards
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 401 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /boards [get]
func (h *ApplicationHandler) ListBoards(c *fiber.Ctx) error {
	userID := middleware.CurrentUserID(c)

	body, _, err := h.DB.From("boards").
		Select("*", "", false).
		Eq("creator_id", userID).
		Is("deleted_at", "null").
		Order("created_at", &postgrest.OrderOpts{Ascending: false}).
		Execute()
	if err != nil {
		h.Logger.Errorf("Error listing boards for user %s: %v", userID, err)
		return utils.RespondWithError(c, fiber.StatusInternalServerError, err.Error())
	}

	var owned []models.Board
	if err := json.Unmarshal(body, &owned); err != nil {
		h.Logger.Errorf("Error decoding board rows: %v", err)
		return utils.RespondWithError(c, fiber.StatusInternalServerError, err.Error())
	}

	shared, err := h.sharedBoards(userID)
	if err != nil {
		h.Logger.Errorf("Error listing shared boards for user %s: %v", userID, err)
		return utils.RespondWithError(c, fiber.StatusInternalServerError, err.Error())
	}

	return utils.RespondWithJSON(c, fiber.StatusOK, fiber.Map{
		"owned":  owned,
		"shared": shared,
	})
}

// sharedBoards resolves membership rows into their live boards.
func (h *ApplicationHandler) sharedBoards(userID string) ([]models.Board, error) {
	body, _, err := h.DB.From("board_members").
		Select("board_id", "", false).
		Eq("user_id", userID).
		Execute()
	if err != nil {
		return nil, err
	}

	var memberships []models.BoardMember
	if err := json.Unmarshal(body, &memberships); err != nil {
		return nil, fmt.Errorf("decoding membership rows: %w", err)
	}
	if len(memberships) == 0 {
		return []models.Board{}, nil
	}

	boardIDs := make([]string, 0, len(memberships))
	for _, m := range memberships {
		boardIDs = append(boardIDs, m.BoardID.String())
	}

	body, _, err = h.DB.From("boards").
		Select("*", "", false).
		In("id", boardIDs).
		Is("deleted_at", "null").
		Order("created_at", &postgrest.OrderOpts{Ascending: false}).
		Execute()
	if err != nil {
		return nil, err
	}

	boards := []models.Board{}
	if err := json.Unmarshal(body, &boards); err != nil {
		return nil, fmt.Errorf("decoding shared board rows: %w", err)
	}
	return boards, nil
}

// CreateBoard godoc
// @Summary Create a board
// @Description Creates a board owned by the caller. The slug is derived from the title and made unique.
// @Tags boards
// @Accept json
// @Produce json
// @Param board body CreateBoardRequest true "Board to create"
// @Success 201 {object} BoardSuccessResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /boards [post]
func (h *ApplicationHandler) CreateBoard(c *fiber.Ctx) error {
	userID := middleware.CurrentUserID(c)

	req := new(CreateBoardRequest)
	if err := c.BodyParser(req); err != nil {
		h.Logger.Warnf("Error parsing board payload: %v", err)
		return utils.RespondWithError(c, fiber.StatusBadRequest, fmt.Sprintf("Cannot parse board JSON: %v", err))
	}

	if err := h.Validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"status":  "error",
			"message": "Validation failed",
			"errors":  utils.FormatValidationErrors(err),
		})
	}

	slug, err := slugify.Unique(req.Title, func(candidate string) (bool, error) {
		return h.slugExists(userID, candidate)
	})
	if err != nil {
		h.Logger.Errorf("Error allocating slug for %q: %v", req.Title, err)
		return utils.RespondWithError(c, fiber.StatusInternalServerError, err.Error())
	}

	insertData := map[string]interface{}{
		"creator_id": userID,
		"title":      req.Title,
		"slug":       slug,
		"is_public":  req.IsPublic,
	}
	if desc := utils.TrimmedOrNil(req.Description); desc != nil {
		insertData["description"] = *desc
	}

	body, _, err := h.DB.From("boards").
		Insert(insertData, false, "", "representation", "").
		Execute()
	if err != nil {
		h.Logger.Errorf("Error inserting board for user %s: %v", userID, err)
		return utils.RespondWithError(c, fiber.StatusInternalServerError, err.Error())
	}

	var created []models.Board
	if err := json.Unmarshal(body, &created); err != nil || len(created) == 0 {
		h.Logger.Errorf("Error decoding inserted board: %v", err)
		return utils.RespondWithError(c, fiber.StatusInternalServerError, "Failed to decode created board")
	}

	h.Logger.Infof("Board %s created by user %s", created[0].ID, userID)
	return utils.RespondWithJSON(c, fiber.StatusCreated, created[0])
}

// slugExists checks slug uniqueness within one creator's boards. Slugs are
// scoped per user so every account can own an "inbox" board.
func (h *ApplicationHandler) slugExists(userID, slug string) (bool, error) {
	body, _, err := h.DB.From("boards").
		Select("id", "", false).
		Eq("creator_id", userID).
		Eq("slug", slug).
		Execute()
	if err != nil {
		return false, err
	}
	var rows []struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(body, &rows); err != nil {
		return false, err
	}
	return len(rows) > 0, nil
}

// GetBoard godoc
// @Summary Fetch one board
// @Description Returns the board if it is public or the caller is its creator or a member.
// @Tags boards
// @Produce json
// @Param boardId path string true "Board ID"
// @Success 200 {object} BoardSuccessResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /boards/{boardId} [get]
func (h *ApplicationHandler) GetBoard(c *fiber.Ctx) error {
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

	return utils.RespondWithJSON(c, fiber.StatusOK, board)
}

// UpdateBoard godoc
// @Summary Update a board
// @Description Updates only the supplied fields. Creator only.
// @Tags boards
// @Accept json
// @Produce json
// @Param boardId path string true "Board ID"
// @Success 200 {object} BoardSuccessResponse
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /boards/{boardId} [patch]
func (h *ApplicationHandler) UpdateBoard(c *fiber.Ctx) error {
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
	if !h.isCreator(board, userID) {
		return utils.RespondWithError(c, fiber.StatusForbidden, "Only the board creator can update it.")
	}

	var payload map[string]interface{}
	if err := c.BodyParser(&payload); err != nil || payload == nil {
		return utils.RespondWithError(c, fiber.StatusBadRequest, "Invalid JSON body")
	}

	updateData := make(map[string]interface{})
	if raw, ok := payload["title"]; ok {
		title, isString := raw.(string)
		if !isString || utils.TrimmedOrNil(title) == nil {
			return utils.RespondWithError(c, fiber.StatusBadRequest, "title must be a non-empty string")
		}
		updateData["title"] = title
	}
	if raw, ok := payload["description"]; ok {
		switch value := raw.(type) {
		case string:
			updateData["description"] = value
		case nil:
			updateData["description"] = nil
		default:
			return utils.RespondWithError(c, fiber.StatusBadRequest, "description must be a string or null")
		}
	}
	if raw, ok := payload["isPublic"]; ok {
		isPublic, isBool := raw.(bool)
		if !isBool {
			return utils.RespondWithError(c, fiber.StatusBadRequest, "isPublic must be a boolean")
		}
		updateData["is_public"] = isPublic
	}

	if len(updateData) == 0 {
		return utils.RespondWithError(c, fiber.StatusBadRequest, "No valid fields to update")
	}

	body, _, err := h.DB.From("boards").
		Update(updateData, "representation", "").
		Eq("id", board.ID.String()).
		Execute()
	if err != nil {
		h.Logger.Errorf("Error updating board %s: %v", boardID, err)
		return utils.RespondWithError(c, fiber.StatusInternalServerError, err.Error())
	}

	var updated []models.Board
	if err := json.Unmarshal(body, &updated); err != nil || len(updated) == 0 {
		return utils.RespondWithError(c, fiber.StatusInternalServerError, "Failed to decode updated board")
	}

	return utils.RespondWithJSON(c, fiber.StatusOK, updated[0])
}

// DeleteBoard godoc
// @Summary Soft-delete a board
// @Description Marks the board and all of its cards deleted. Creator only.
// @Tags boards
// @Produce json
// @Param boardId path string true "Board ID"
// @Success 200 {object} map[string]interface{}
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /boards/{boardId} [delete]
func (h *ApplicationHandler) DeleteBoard(c *fiber.Ctx) error {
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
	if !h.isCreator(board, userID) {
		return utils.RespondWithError(c, fiber.StatusForbidden, "Only the board creator can delete it.")
	}

	now := time.Now().UTC().Format(time.RFC3339)

	// Cards first so a half-finished delete still hides the content.
	if _, _, err := h.DB.From("cards").
		Update(map[string]interface{}{"deleted_at": now}, "", "").
		Eq("board_id", board.ID.String()).
		Is("deleted_at", "null").
		Execute(); err != nil {
		h.Logger.Errorf("Error soft-deleting cards of board %s: %v", boardID, err)
		return utils.RespondWithError(c, fiber.StatusInternalServerError, err.Error())
	}

	if _, _, err := h.DB.From("boards").
		Update(map[string]interface{}{"deleted_at": now}, "", "").
		Eq("id", board.ID.String()).
		Execute(); err != nil {
		h.Logger.Errorf("Error soft-deleting board %s: %v", boardID, err)
		return utils.RespondWithError(c, fiber.StatusInternalServerError, err.Error())
	}

	h.Logger.Infof("Board %s soft-deleted by user %s", boardID, userID)
	return utils.RespondWithJSON(c, fiber.StatusOK, fiber.Map{"id": board.ID.String(), "deleted": true})
}

// RestoreBoard godoc
// @Summary Restore a soft-deleted board
// @Description Clears the deletion mark on the board and its cards. Creator only.
// @Tags boards
// @Produce json
// @Param boardId path string true "Board ID"
// @Success 200 {object} BoardSuccessResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /boards/{boardId}/restore [post]
func (h *ApplicationHandler) RestoreBoard(c *fiber.Ctx) error {
	boardID := c.Params("boardId")
	userID := middleware.CurrentUserID(c)

	board, err := h.fetchBoard(boardID)
	if err != nil {
		h.Logger.Errorf("Error fetching board %s: %v", boardID, err)
		return utils.RespondWithError(c, fiber.StatusInternalServerError, err.Error())
	}
	if board == nil {
		return utils.RespondWithError(c, fiber.StatusNotFound, "Board not found")
	}
	if !h.isCreator(board, userID) {
		return utils.RespondWithError(c, fiber.StatusForbidden, "Only the board creator can restore it.")
	}
	if board.DeletedAt == nil {
		return utils.RespondWithJSON(c, fiber.StatusOK, board)
	}

	deletedAt := board.DeletedAt.UTC().Format(time.RFC3339)

	body, _, err := h.DB.From("boards").
		Update(map[string]interface{}{"deleted_at": nil}, "representation", "").
		Eq("id", board.ID.String()).
		Execute()
	if err != nil {
		h.Logger.Errorf("Error restoring board %s: %v", boardID, err)
		return utils.RespondWithError(c, fiber.StatusInternalServerError, err.Error())
	}

	// Only revive cards that went down with the board, not ones the user
	// deleted individually beforehand.
	if _, _, err := h.DB.From("cards").
		Update(map[string]interface{}{"deleted_at": nil}, "", "").
		Eq("board_id", board.ID.String()).
		Eq("deleted_at", deletedAt).
		Execute(); err != nil {
		h.Logger.Errorf("Error restoring cards of board %s: %v", boardID, err)
		return utils.RespondWithError(c, fiber.StatusInternalServerError, err.Error())
	}

	var restored []models.Board
	if err := json.Unmarshal(body, &restored); err != nil || len(restored) == 0 {
		return utils.RespondWithError(c, fiber.StatusInternalServerError, "Failed to decode restored board")
	}

	h.Logger.Infof("Board %s restored by user %s", boardID, userID)
	return utils.RespondWithJSON(c, fiber.StatusOK, restored[0])
}
