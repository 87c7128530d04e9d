package handlers

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/supabase-community/gotrue-go/types"

	"linkatelier/api-gateway/config"
	"linkatelier/api-gateway/middleware"
	"linkatelier/api-gateway/utils"
)

// CredentialsRequest is the payload for signup and login.
type CredentialsRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

// Signup godoc
// @Summary Register a new account
// @Description Creates the account with the auth provider. When the project requires email confirmation no session is issued yet.
// @Tags auth
// @Accept json
// @Produce json
// @Param credentials body CredentialsRequest true "Email and password"
// @Success 201 {object} map[string]interface{}
// @Failure 400 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /auth/signup [post]
func (h *ApplicationHandler) Signup(c *fiber.Ctx) error {
	req := new(CredentialsRequest)
	if err := c.BodyParser(req); err != nil {
		return utils.RespondWithError(c, fiber.StatusBadRequest, fmt.Sprintf("Cannot parse credentials JSON: %v", err))
	}
	if err := h.Validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"status":  "error",
			"message": "Validation failed",
			"errors":  utils.FormatValidationErrors(err),
		})
	}

	if _, err := h.DB.Auth.Signup(types.SignupRequest{
		Email:    req.Email,
		Password: req.Password,
	}); err != nil {
		h.Logger.Warnf("Signup failed for %s: %v", req.Email, err)
		return utils.RespondWithError(c, fiber.StatusBadRequest, "Signup failed")
	}

	// Projects with email confirmation enabled will reject this sign-in
	// until the address is verified.
	session, err := h.DB.SignInWithEmailPassword(req.Email, req.Password)
	if err != nil {
		return utils.RespondWithJSON(c, fiber.StatusCreated, fiber.Map{
			"requiresEmailConfirmation": true,
		})
	}

	setSessionCookie(c, session.AccessToken, session.ExpiresIn)
	h.Logger.Infof("User %s signed up", req.Email)
	return utils.RespondWithJSON(c, fiber.StatusCreated, fiber.Map{
		"requiresEmailConfirmation": false,
	})
}

// Login godoc
// @Summary Sign in with email and password
// @Description On success the access token is stored in an HTTP-only cookie.
// @Tags auth
// @Accept json
// @Produce json
// @Param credentials body CredentialsRequest true "Email and password"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Router /auth/login [post]
func (h *ApplicationHandler) Login(c *fiber.Ctx) error {
	req := new(CredentialsRequest)
	if err := c.BodyParser(req); err != nil {
		return utils.RespondWithError(c, fiber.StatusBadRequest, fmt.Sprintf("Cannot parse credentials JSON: %v", err))
	}
	if err := h.Validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"status":  "error",
			"message": "Validation failed",
			"errors":  utils.FormatValidationErrors(err),
		})
	}

	session, err := h.DB.SignInWithEmailPassword(req.Email, req.Password)
	if err != nil {
		h.Logger.Warnf("Login failed for %s: %v", req.Email, err)
		return utils.RespondWithError(c, fiber.StatusUnauthorized, "Invalid email or password")
	}

	setSessionCookie(c, session.AccessToken, session.ExpiresIn)
	h.Logger.Infof("User %s logged in", req.Email)
	return utils.RespondWithJSON(c, fiber.StatusOK, fiber.Map{"loggedIn": true})
}

// Logout godoc
// @Summary Sign out
// @Description Clears the session cookie.
// @Tags auth
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /auth/logout [post]
func (h *ApplicationHandler) Logout(c *fiber.Ctx) error {
	c.Cookie(&fiber.Cookie{
		Name:     config.SessionCookieName(),
		Value:    "",
		Expires:  time.Now().Add(-time.Hour),
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
		Path:     "/",
	})
	return utils.RespondWithJSON(c, fiber.StatusOK, fiber.Map{"loggedOut": true})
}

// Me godoc
// @Summary Identify the caller
// @Tags auth
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 401 {object} ErrorResponse
// @Router /auth/me [get]
func (h *ApplicationHandler) Me(c *fiber.Ctx) error {
	return utils.RespondWithJSON(c, fiber.StatusOK, fiber.Map{
		"userId": middleware.CurrentUserID(c),
	})
}

func setSessionCookie(c *fiber.Ctx, token string, expiresIn int) {
	c.Cookie(&fiber.Cookie{
		Name:     config.SessionCookieName(),
		Value:    token,
		Expires:  time.Now().Add(time.Duration(expiresIn) * time.Second),
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
		Path:     "/",
	})
}
