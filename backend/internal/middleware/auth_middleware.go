package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/rawlink/marketplace/backend/internal/auth"
)

// Locals keys set by Protected for downstream handlers.
const (
	LocalUserID   = "userID"
	LocalUsername = "username"
	LocalRole     = "role"
)

// Protected verifies the Authorization bearer token and stores the caller's
// identity in the request locals.
func Protected() fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Missing authorization header"})
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid authorization header format"})
		}

		claims, err := auth.ValidateJWT(parts[1])
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid or expired token"})
		}

		c.Locals(LocalUserID, claims.UserID)
		c.Locals(LocalUsername, claims.Username)
		c.Locals(LocalRole, claims.Role)

		return c.Next()
	}
}

// UserID extracts the authenticated user ID placed by Protected.
func UserID(c *fiber.Ctx) (int64, bool) {
	id, ok := c.Locals(LocalUserID).(int64)
	return id, ok
}
