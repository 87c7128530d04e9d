package handlers

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/supabase-community/postgrest-go"

	"linkatelier/api-gateway/middleware"
	"linkatelier/api-gateway/models"
	"linkatelier/api-gateway/utils"
)

// ExtensionSaveRequest is the payload the browser extension sends to capture
// the current page.
type ExtensionSaveRequest struct {
	URL          string `json:"url" validate:"required,url"`
	Title        string `json:"title" validate:"max=500"`
	Note         string `json:"note" validate:"max=4000"`
	ThumbnailURL string `json:"thumbnail" validate:"omitempty,url"`
	BoardID      string `json:"boardId" validate:"omitempty,uuid"`
	UseInbox     bool   `json:"useInbox"`
}

const inboxSlug = "inbox"

// extensionCORS writes credentialed CORS headers for chrome-extension
// origins. The global CORS middleware cannot serve these because a
// wildcard origin is invalid with credentials.
func extensionCORS(c *fiber.Ctx) {
	origin := c.Get(fiber.HeaderOrigin)
	if !strings.HasPrefix(origin, "chrome-extension://") {
		return
	}
	c.Set(fiber.HeaderAccessControlAllowOrigin, origin)
	c.Set(fiber.HeaderAccessControlAllowCredentials, "true")
	c.Set(fiber.HeaderAccessControlAllowMethods, "GET,POST,OPTIONS")
	c.Set(fiber.HeaderAccessControlAllowHeaders, "Content-Type")
	c.Set(fiber.HeaderVary, fiber.HeaderOrigin)
}

// ExtensionPreflight answers CORS preflight requests from the extension.
func (h *ApplicationHandler) ExtensionPreflight(c *fiber.Ctx) error {
	extensionCORS(c)
	return c.SendStatus(fiber.StatusNoContent)
}

// ExtensionBoards godoc
// @Summary List boards for the extension's save popup
// @Description Returns the caller's own live boards as id, title and slug.
// @Tags extension
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 401 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /extension/boards [get]
func (h *ApplicationHandler) ExtensionBoards(c *fiber.Ctx) error {
	extensionCORS(c)
	userID := middleware.CurrentUserID(c)

	body, _, err := h.DB.From("boards").
		Select("id,title,slug,is_public", "", false).
		Eq("creator_id", userID).
		Is("deleted_at", "null").
		Order("created_at", &postgrest.OrderOpts{Ascending: false}).
		Execute()
	if err != nil {
		h.Logger.Errorf("Error listing extension boards for user %s: %v", userID, err)
		return utils.RespondWithError(c, fiber.StatusInternalServerError, err.Error())
	}

	boards := []map[string]interface{}{}
	if err := json.Unmarshal(body, &boards); err != nil {
		return utils.RespondWithError(c, fiber.StatusInternalServerError, err.Error())
	}

	return utils.RespondWithJSON(c, fiber.StatusOK, boards)
}

// ExtensionSave godoc
// @Summary Save the current page from the extension
// @Description Captures the URL as a card. Without a boardId the card lands on the caller's Inbox board, which is created or revived on demand.
// @Tags extension
// @Accept json
// @Produce json
// @Param capture body ExtensionSaveRequest true "Page to save"
// @Success 201 {object} map[string]interface{}
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /extension/save [post]
func (h *ApplicationHandler) ExtensionSave(c *fiber.Ctx) error {
	extensionCORS(c)
	userID := middleware.CurrentUserID(c)

	req := new(ExtensionSaveRequest)
	if err := c.BodyParser(req); err != nil {
		return utils.RespondWithError(c, fiber.StatusBadRequest, fmt.Sprintf("Cannot parse capture JSON: %v", err))
	}
	if err := h.Validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"status":  "error",
			"message": "Validation failed",
			"errors":  utils.FormatValidationErrors(err),
		})
	}

	var board *models.Board
	var err error
	if req.BoardID != "" && !req.UseInbox {
		board, err = h.fetchBoard(req.BoardID)
		if err != nil {
			h.Logger.Errorf("Error fetching board %s: %v", req.BoardID, err)
			return utils.RespondWithError(c, fiber.StatusInternalServerError, err.Error())
		}
		if board == nil || board.DeletedAt != nil {
			return utils.RespondWithError(c, fiber.StatusNotFound, "Board not found")
		}
		canEdit, err := h.canEditCards(board, userID)
		if err != nil {
			return utils.RespondWithError(c, fiber.StatusInternalServerError, err.Error())
		}
		if !canEdit {
			return utils.RespondWithError(c, fiber.StatusForbidden, "Forbidden")
		}
	} else {
		board, err = h.getOrCreateInboxBoard(userID)
		if err != nil {
			h.Logger.Errorf("Error resolving inbox board for user %s: %v", userID, err)
			return utils.RespondWithError(c, fiber.StatusInternalServerError, err.Error())
		}
	}

	cardReq := &CreateCardRequest{
		URL:          req.URL,
		Title:        req.Title,
		CreatorNote:  req.Note,
		ThumbnailURL: req.ThumbnailURL,
	}
	insertData := h.buildCardInsert(board.ID.String(), cardReq)

	body, _, err := h.DB.From("cards").
		Insert(insertData, false, "", "representation", "").
		Execute()
	if err != nil {
		h.Logger.Errorf("Error inserting captured card: %v", err)
		return utils.RespondWithError(c, fiber.StatusInternalServerError, err.Error())
	}

	var created []models.Card
	if err := json.Unmarshal(body, &created); err != nil || len(created) == 0 {
		return utils.RespondWithError(c, fiber.StatusInternalServerError, "Failed to decode captured card")
	}

	h.Logger.Infof("Extension capture saved to board %s by user %s", board.ID, userID)
	return utils.RespondWithJSON(c, fiber.StatusCreated, fiber.Map{
		"ok":        true,
		"boardSlug": board.Slug,
		"cardId":    created[0].ID.String(),
	})
}

// getOrCreateInboxBoard finds the caller's inbox board, reviving a
// soft-deleted one rather than creating a duplicate slug.
func (h *ApplicationHandler) getOrCreateInboxBoard(userID string) (*models.Board, error) {
	body, _, err := h.DB.From("boards").
		Select("*", "", false).
		Eq("creator_id", userID).
		Eq("slug", inboxSlug).
		Execute()
	if err != nil {
		return nil, err
	}

	var boards []models.Board
	if err := json.Unmarshal(body, &boards); err != nil {
		return nil, fmt.Errorf("decoding inbox board row: %w", err)
	}

	if len(boards) > 0 {
		board := &boards[0]
		if board.DeletedAt == nil {
			return board, nil
		}
		restored, _, err := h.DB.From("boards").
			Update(map[string]interface{}{"deleted_at": nil}, "representation", "").
			Eq("id", board.ID.String()).
			Execute()
		if err != nil {
			return nil, err
		}
		var revived []models.Board
		if err := json.Unmarshal(restored, &revived); err != nil || len(revived) == 0 {
			return nil, fmt.Errorf("decoding revived inbox board: %w", err)
		}
		return &revived[0], nil
	}

	created, _, err := h.DB.From("boards").
		Insert(map[string]interface{}{
			"creator_id": userID,
			"title":      "Inbox",
			"slug":       inboxSlug,
			"is_public":  false,
		}, false, "", "representation", "").
		Execute()
	if err != nil {
		return nil, err
	}
	var inserted []models.Board
	if err := json.Unmarshal(created, &inserted); err != nil || len(inserted) == 0 {
		return nil, fmt.Errorf("decoding created inbox board: %w", err)
	}
	return &inserted[0], nil
}
