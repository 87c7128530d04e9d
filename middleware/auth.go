package middleware

import (
	"github.com/gofiber/fiber/v2"

	"linkatelier/api-gateway/config"
)

// Locals keys set by the auth middleware.
const (
	UserIDKey      = "userID"
	AccessTokenKey = "accessToken"
)

// RequireAuth resolves the session cookie to a Supabase user and rejects the
// request with 401 when that fails.
func RequireAuth() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, token, ok := resolveSession(c)
		if !ok {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"status":  "error",
				"message": "Unauthorized",
			})
		}
		c.Locals(UserIDKey, userID)
		c.Locals(AccessTokenKey, token)
		return c.Next()
	}
}

// OptionalAuth resolves the session when a cookie is present but lets
// anonymous requests through; handlers decide based on board visibility.
func OptionalAuth() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if userID, token, ok := resolveSession(c); ok {
			c.Locals(UserIDKey, userID)
			c.Locals(AccessTokenKey, token)
		}
		return c.Next()
	}
}

func resolveSession(c *fiber.Ctx) (userID, token string, ok bool) {
	token = c.Cookies(config.SessionCookieName())
	if token == "" {
		return "", "", false
	}

	client := config.GetSupabaseClient()
	if client == nil {
		return "", "", false
	}

	user, err := client.Auth.WithToken(token).GetUser()
	if err != nil {
		config.Log.WithField("error", err.Error()).Debug("Session token rejected by auth provider")
		return "", "", false
	}

	return user.ID.String(), token, true
}

// CurrentUserID returns the authenticated user id set by the middleware, or
// "" for anonymous requests.
func CurrentUserID(c *fiber.Ctx) string {
	if id, ok := c.Locals(UserIDKey).(string); ok {
		return id
	}
	return ""
}
