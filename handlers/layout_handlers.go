package handlers

import (
	"encoding/json"

	"github.com/gofiber/fiber/v2"

	"linkatelier/api-gateway/internal/atelier"
	"linkatelier/api-gateway/middleware"
	"linkatelier/api-gateway/models"
	"linkatelier/api-gateway/utils"
)

// GetAtelierLayout godoc
// @Summary Fetch a board's Atelier layout snapshot
// @Description Returns the board's view mode, groups, connectors and per-card placement.
// @Tags atelier
// @Produce json
// @Param boardId path string true "Board ID"
// @Success 200 {object} models.AtelierLayoutPayload
// @Failure 403 {object} ErrorResponse "No read access to this board"
// @Failure 404 {object} ErrorResponse "Board missing or deleted"
// @Failure 500 {object} ErrorResponse "Storage error"
// @Router /boards/{boardId}/atelier-layout [get]
func (h *ApplicationHandler) GetAtelierLayout(c *fiber.Ctx) error {
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

	layout, err := h.layoutSnapshot(board)
	if err != nil {
		h.Logger.Errorf("Error building layout for board %s: %v", boardID, err)
		return utils.RespondWithError(c, fiber.StatusInternalServerError, err.Error())
	}

	return utils.RespondWithJSON(c, fiber.StatusOK, layout)
}

// PatchAtelierLayout godoc
// @Summary Partially update a board's Atelier layout
// @Description Applies only the supplied fields: viewMode, groups, connectors and card placement patches. Creator only.
// @Tags atelier
// @Accept json
// @Produce json
// @Param boardId path string true "Board ID"
// @Success 200 {object} models.AtelierLayoutPayload
// @Failure 400 {object} ErrorResponse "Invalid view mode, non-array field, empty update or unknown card ids"
// @Failure 401 {object} ErrorResponse "Unauthenticated"
// @Failure 403 {object} ErrorResponse "Caller is not the board creator"
// @Failure 404 {object} ErrorResponse "Board missing or deleted"
// @Failure 500 {object} ErrorResponse "Storage error"
// @Router /boards/{boardId}/atelier-layout [patch]
func (h *ApplicationHandler) PatchAtelierLayout(c *fiber.Ctx) error {
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

	// Members can read the layout but only the creator may write it.
	if !h.isCreator(board, userID) {
		return utils.RespondWithError(c, fiber.StatusForbidden, "Only the board creator can update layout.")
	}

	var payload map[string]interface{}
	if err := c.BodyParser(&payload); err != nil || payload == nil {
		return utils.RespondWithError(c, fiber.StatusBadRequest, "Invalid JSON body")
	}

	boardUpdate, cardPatches, errResp := buildLayoutUpdate(payload)
	if errResp != "" {
		return utils.RespondWithError(c, fiber.StatusBadRequest, errResp)
	}

	_, hasCards := payload["cards"]
	if len(boardUpdate) == 0 && (!hasCards || len(cardPatches) == 0) {
		return utils.RespondWithError(c, fiber.StatusBadRequest, "No valid layout fields to update")
	}

	if len(boardUpdate) > 0 {
		if _, _, err := h.DB.From("boards").
			Update(boardUpdate, "", "").
			Eq("id", board.ID.String()).
			Execute(); err != nil {
			h.Logger.Errorf("Error updating board %s layout columns: %v", boardID, err)
			return utils.RespondWithError(c, fiber.StatusInternalServerError, err.Error())
		}
	}

	if len(cardPatches) > 0 {
		if status, msg, missing := h.applyCardPatches(board, cardPatches); status != 0 {
			if missing != nil {
				return c.Status(status).JSON(fiber.Map{
					"status":  "error",
					"message": msg,
					"missing": missing,
				})
			}
			return utils.RespondWithError(c, status, msg)
		}
	}

	// Return server-confirmed truth rather than echoing the patch.
	updated, err := h.fetchBoard(board.ID.String())
	if err != nil || updated == nil {
		h.Logger.Errorf("Error re-fetching board %s after layout patch: %v", boardID, err)
		return utils.RespondWithError(c, fiber.StatusInternalServerError, "Failed to load updated board layout")
	}

	layout, err := h.layoutSnapshot(updated)
	if err != nil {
		h.Logger.Errorf("Error building updated layout for board %s: %v", boardID, err)
		return utils.RespondWithError(c, fiber.StatusInternalServerError, err.Error())
	}

	return utils.RespondWithJSON(c, fiber.StatusOK, layout)
}

// buildLayoutUpdate validates the board-level fields and sanitizes the card
// patches. It returns a non-empty error string for a 400 response.
func buildLayoutUpdate(payload map[string]interface{}) (map[string]interface{}, []models.AtelierCardLayoutPatch, string) {
	boardUpdate := make(map[string]interface{})

	if raw, ok := payload["viewMode"]; ok {
		mode, valid := atelier.ParseViewMode(raw)
		if !valid {
			return nil, nil, "viewMode must be 'minimal' or 'dense'"
		}
		boardUpdate["atelier_view_mode"] = mode
	}

	if raw, ok := payload["groups"]; ok {
		if _, isArray := raw.([]interface{}); !isArray {
			return nil, nil, "groups must be an array"
		}
		boardUpdate["atelier_groups"] = atelier.SanitizeGroups(raw)
	}

	if raw, ok := payload["connectors"]; ok {
		if _, isArray := raw.([]interface{}); !isArray {
			return nil, nil, "connectors must be an array"
		}
		boardUpdate["atelier_connectors"] = atelier.SanitizeConnectors(raw)
	}

	var cardPatches []models.AtelierCardLayoutPatch
	if raw, ok := payload["cards"]; ok {
		if _, isArray := raw.([]interface{}); !isArray {
			return nil, nil, "cards must be an array"
		}
		cardPatches = atelier.DedupeCardPatches(atelier.SanitizeCardPatches(raw))
	}

	return boardUpdate, cardPatches, ""
}

// applyCardPatches verifies every patched card belongs to the board and is
// not deleted, then writes the patches one by one. A zero status means
// success. The write loop is not transactional; a mid-loop failure leaves
// earlier writes in place and is reported as a storage error.
func (h *ApplicationHandler) applyCardPatches(board *models.Board, patches []models.AtelierCardLayoutPatch) (int, string, []string) {
	cardIDs := make([]string, 0, len(patches))
	for _, patch := range patches {
		cardIDs = append(cardIDs, patch.CardID)
	}

	body, _, err := h.DB.From("cards").
		Select("id", "", false).
		Eq("board_id", board.ID.String()).
		Is("deleted_at", "null").
		In("id", cardIDs).
		Execute()
	if err != nil {
		return fiber.StatusInternalServerError, err.Error(), nil
	}

	var rows []cardLayoutRow
	if err := json.Unmarshal(body, &rows); err != nil {
		return fiber.StatusInternalServerError, err.Error(), nil
	}

	existing := make(map[string]bool, len(rows))
	for _, row := range rows {
		existing[row.ID] = true
	}

	if missing := atelier.MissingCardIDs(patches, existing); len(missing) > 0 {
		return fiber.StatusBadRequest, "Some cards are missing or not part of this board", missing
	}

	for _, patch := range patches {
		updateData := make(map[string]interface{})
		if patch.X != nil {
			updateData["atelier_x"] = *patch.X
		}
		if patch.Y != nil {
			updateData["atelier_y"] = *patch.Y
		}
		if patch.ZIndex != nil {
			updateData["atelier_z"] = *patch.ZIndex
		}
		if len(updateData) == 0 {
			continue
		}

		if _, _, err := h.DB.From("cards").
			Update(updateData, "", "").
			Eq("id", patch.CardID).
			Eq("board_id", board.ID.String()).
			Is("deleted_at", "null").
			Execute(); err != nil {
			return fiber.StatusInternalServerError, err.Error(), nil
		}
	}

	return 0, "", nil
}
