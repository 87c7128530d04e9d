package handlers

import (
	"encoding/json"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"linkatelier/api-gateway/middleware"
	"linkatelier/api-gateway/models"
	"linkatelier/api-gateway/utils"
)

const inviteTTL = 7 * 24 * time.Hour

// CreateInviteRequest names the board an invite is issued for.
type CreateInviteRequest struct {
	BoardID string `json:"boardId" validate:"required,uuid"`
}

// CreateInvite godoc
// @Summary Create a share invite for a board
// @Description Issues a one-week invite token the creator can send to collaborators.
// @Tags invites
// @Accept json
// @Produce json
// @Param invite body CreateInviteRequest true "Board to share"
// @Success 201 {object} map[string]interface{}
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /boards/invite [post]
func (h *ApplicationHandler) CreateInvite(c *fiber.Ctx) error {
	userID := middleware.CurrentUserID(c)

	req := new(CreateInviteRequest)
	if err := c.BodyParser(req); err != nil {
		return utils.RespondWithError(c, fiber.StatusBadRequest, "Invalid JSON body")
	}
	if err := h.Validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"status":  "error",
			"message": "Validation failed",
			"errors":  utils.FormatValidationErrors(err),
		})
	}
	boardID := req.BoardID

	board, err := h.fetchBoard(boardID)
	if err != nil {
		h.Logger.Errorf("Error fetching board %s: %v", boardID, err)
		return utils.RespondWithError(c, fiber.StatusInternalServerError, err.Error())
	}
	if board == nil || board.DeletedAt != nil {
		return utils.RespondWithError(c, fiber.StatusNotFound, "Board not found")
	}
	if !h.isCreator(board, userID) {
		return utils.RespondWithError(c, fiber.StatusForbidden, "Only the board creator can invite members.")
	}

	token := uuid.New().String()
	expiresAt := time.Now().UTC().Add(inviteTTL)

	if _, _, err := h.DB.From("board_invites").
		Insert(map[string]interface{}{
			"token":      token,
			"board_id":   board.ID.String(),
			"created_by": userID,
			"expires_at": expiresAt.Format(time.RFC3339),
		}, false, "", "", "").
		Execute(); err != nil {
		h.Logger.Errorf("Error creating invite for board %s: %v", boardID, err)
		return utils.RespondWithError(c, fiber.StatusInternalServerError, err.Error())
	}

	h.Logger.Infof("Invite created for board %s by user %s", boardID, userID)
	return utils.RespondWithJSON(c, fiber.StatusCreated, fiber.Map{
		"token":     token,
		"expiresAt": expiresAt.Format(time.RFC3339),
	})
}

// RedeemInvite godoc
// @Summary Join a board with an invite token
// @Description Records the caller as a board member. Redeeming twice is a no-op.
// @Tags invites
// @Produce json
// @Param token path string true "Invite token"
// @Success 200 {object} map[string]interface{}
// @Failure 401 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse "Unknown or expired token"
// @Failure 500 {object} ErrorResponse
// @Router /invites/{token}/redeem [post]
func (h *ApplicationHandler) RedeemInvite(c *fiber.Ctx) error {
	token := c.Params("token")
	userID := middleware.CurrentUserID(c)

	body, _, err := h.DB.From("board_invites").
		Select("*", "", false).
		Eq("token", token).
		Execute()
	if err != nil {
		h.Logger.Errorf("Error fetching invite %s: %v", token, err)
		return utils.RespondWithError(c, fiber.StatusInternalServerError, err.Error())
	}

	var invites []models.BoardInvite
	if err := json.Unmarshal(body, &invites); err != nil {
		return utils.RespondWithError(c, fiber.StatusInternalServerError, err.Error())
	}
	if len(invites) == 0 {
		return utils.RespondWithError(c, fiber.StatusNotFound, "Invite not found")
	}

	invite := invites[0]
	if invite.ExpiresAt != nil && invite.ExpiresAt.Before(time.Now()) {
		return utils.RespondWithError(c, fiber.StatusNotFound, "Invite has expired")
	}

	board, err := h.fetchBoard(invite.BoardID.String())
	if err != nil {
		return utils.RespondWithError(c, fiber.StatusInternalServerError, err.Error())
	}
	if board == nil || board.DeletedAt != nil {
		return utils.RespondWithError(c, fiber.StatusNotFound, "Board not found")
	}

	// The creator redeeming their own invite should not become a member row.
	if !h.isCreator(board, userID) {
		member, err := h.isMember(board.ID.String(), userID)
		if err != nil {
			return utils.RespondWithError(c, fiber.StatusInternalServerError, err.Error())
		}
		if !member {
			if _, _, err := h.DB.From("board_members").
				Insert(map[string]interface{}{
					"board_id": board.ID.String(),
					"user_id":  userID,
				}, false, "", "", "").
				Execute(); err != nil {
				h.Logger.Errorf("Error adding member to board %s: %v", board.ID, err)
				return utils.RespondWithError(c, fiber.StatusInternalServerError, err.Error())
			}
		}
	}

	h.Logger.Infof("Invite %s redeemed for board %s by user %s", token, board.ID, userID)
	return utils.RespondWithJSON(c, fiber.StatusOK, fiber.Map{
		"boardId":   board.ID.String(),
		"boardSlug": board.Slug,
	})
}

func (h *ApplicationHandler) isMember(boardID, userID string) (bool, error) {
	body, _, err := h.DB.From("board_members").
		Select("board_id", "", false).
		Eq("board_id", boardID).
		Eq("user_id", userID).
		Execute()
	if err != nil {
		return false, err
	}
	var memberships []models.BoardMember
	if err := json.Unmarshal(body, &memberships); err != nil {
		return false, err
	}
	return len(memberships) > 0, nil
}
