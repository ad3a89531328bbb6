package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/rawlink/marketplace/backend/internal/chat"
	"github.com/rawlink/marketplace/backend/internal/database"
	"github.com/rawlink/marketplace/backend/internal/middleware"
)

// GetMessages lists every message the caller sent or received, oldest first.
func GetMessages(c *fiber.Ctx) error {
	userID, ok := middleware.UserID(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid user ID in token"})
	}

	messages, err := database.GetUserMessages(c.Context(), userID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(messages)
}

// ChatHistory returns the conversation between the caller and another user,
// oldest first for replay.
func ChatHistory(c *fiber.Ctx) error {
	userID, ok := middleware.UserID(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid user ID in token"})
	}

	otherID, err := strconv.ParseInt(c.Params("user_id"), 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid user ID"})
	}

	messages, err := chat.GlobalRelay.History(c.Context(), userID, otherID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(messages)
}
