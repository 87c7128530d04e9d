package handlers

import (
	"encoding/json"
	"fmt"

	"github.com/gofiber/fiber/v2"

	"linkatelier/api-gateway/middleware"
	"linkatelier/api-gateway/models"
	"linkatelier/api-gateway/utils"
)

// UpsertProfileRequest is the payload for updating the caller's profile.
type UpsertProfileRequest struct {
	FullName  string `json:"fullName" validate:"max=200"`
	AvatarURL string `json:"avatarUrl" validate:"omitempty,url"`
}

// GetProfile godoc
// @Summary Fetch the caller's profile
// @Tags profile
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 401 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /profile [get]
func (h *ApplicationHandler) GetProfile(c *fiber.Ctx) error {
	userID := middleware.CurrentUserID(c)

	body, _, err := h.DB.From("profiles").
		Select("*", "", false).
		Eq("id", userID).
		Execute()
	if err != nil {
		h.Logger.Errorf("Error fetching profile %s: %v", userID, err)
		return utils.RespondWithError(c, fiber.StatusInternalServerError, err.Error())
	}

	var profiles []models.Profile
	if err := json.Unmarshal(body, &profiles); err != nil {
		return utils.RespondWithError(c, fiber.StatusInternalServerError, err.Error())
	}
	if len(profiles) == 0 {
		return utils.RespondWithError(c, fiber.StatusNotFound, "Profile not found")
	}

	return utils.RespondWithJSON(c, fiber.StatusOK, profiles[0])
}

// UpsertProfile godoc
// @Summary Create or update the caller's profile
// @Tags profile
// @Accept json
// @Produce json
// @Param profile body UpsertProfileRequest true "Profile fields"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /profile [put]
func (h *ApplicationHandler) UpsertProfile(c *fiber.Ctx) error {
	userID := middleware.CurrentUserID(c)

	req := new(UpsertProfileRequest)
	if err := c.BodyParser(req); err != nil {
		return utils.RespondWithError(c, fiber.StatusBadRequest, fmt.Sprintf("Cannot parse profile JSON: %v", err))
	}
	if err := h.Validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"status":  "error",
			"message": "Validation failed",
			"errors":  utils.FormatValidationErrors(err),
		})
	}

	upsertData := map[string]interface{}{"id": userID}
	if name := utils.TrimmedOrNil(req.FullName); name != nil {
		upsertData["full_name"] = *name
	}
	if avatar := utils.TrimmedOrNil(req.AvatarURL); avatar != nil {
		upsertData["avatar_url"] = *avatar
	}

	body, _, err := h.DB.From("profiles").
		Insert(upsertData, true, "id", "representation", "").
		Execute()
	if err != nil {
		h.Logger.Errorf("Error upserting profile %s: %v", userID, err)
		return utils.RespondWithError(c, fiber.StatusInternalServerError, err.Error())
	}

	var profiles []models.Profile
	if err := json.Unmarshal(body, &profiles); err != nil || len(profiles) == 0 {
		return utils.RespondWithError(c, fiber.StatusInternalServerError, "Failed to decode profile")
	}

	return utils.RespondWithJSON(c, fiber.StatusOK, profiles[0])
}
