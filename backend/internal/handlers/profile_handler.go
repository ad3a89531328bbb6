package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/rawlink/marketplace/backend/internal/apperr"
	"github.com/rawlink/marketplace/backend/internal/database"
	"github.com/rawlink/marketplace/backend/internal/middleware"
)

// ProfileRequest is the expected JSON body for a profile update.
type ProfileRequest struct {
	Name     string `json:"name" validate:"max=255"`
	Phone    string `json:"phone" validate:"max=20"`
	Location string `json:"location" validate:"max=255"`
}

// GetMyProfile returns the caller's profile.
func GetMyProfile(c *fiber.Ctx) error {
	userID, ok := middleware.UserID(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid user ID in token"})
	}

	profile, err := database.GetProfile(c.Context(), userID)
	if err != nil {
		return respondError(c, err)
	}
	if profile == nil {
		return respondError(c, apperr.New(apperr.NotFound, apperr.CodeUserNotFound, "profile not found"))
	}
	return c.JSON(profile)
}

// UpdateMyProfile overwrites the caller's profile fields.
func UpdateMyProfile(c *fiber.Ctx) error {
	userID, ok := middleware.UserID(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid user ID in token"})
	}

	req := new(ProfileRequest)
	if err := c.BodyParser(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse request body"})
	}
	if err := validate.Struct(req); err != nil {
		return validationErrors(c, err)
	}

	profile, err := database.GetProfile(c.Context(), userID)
	if err != nil {
		return respondError(c, err)
	}
	if profile == nil {
		return respondError(c, apperr.New(apperr.NotFound, apperr.CodeUserNotFound, "profile not found"))
	}

	profile.Name = req.Name
	profile.Phone = req.Phone
	profile.Location = req.Location
	if err := database.UpdateProfile(c.Context(), profile); err != nil {
		return respondError(c, err)
	}
	return c.JSON(profile)
}
