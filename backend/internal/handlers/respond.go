package handlers

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/rawlink/marketplace/backend/internal/apperr"
)

var validate = validator.New()

// respondError maps the business error taxonomy onto HTTP statuses.
// Anything unclassified is treated as an internal error and logged without
// leaking details to the client.
func respondError(c *fiber.Ctx, err error) error {
	if e := apperr.As(err); e != nil {
		status := fiber.StatusInternalServerError
		switch e.Kind {
		case apperr.Validation:
			status = fiber.StatusBadRequest
		case apperr.NotFound:
			status = fiber.StatusNotFound
		case apperr.Conflict:
			status = fiber.StatusConflict
		case apperr.Authorization:
			status = fiber.StatusForbidden
		}
		return c.Status(status).JSON(fiber.Map{"error": e.Message, "code": e.Code})
	}

	log.Error().Err(err).Str("path", c.Path()).Msg("request failed")
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Internal server error"})
}

// validationErrors renders validator failures as a 400 with field details.
func validationErrors(c *fiber.Ctx, err error) error {
	details := make([]fiber.Map, 0)
	if errs, ok := err.(validator.ValidationErrors); ok {
		for _, fe := range errs {
			details = append(details, fiber.Map{"field": fe.Field(), "tag": fe.Tag()})
		}
	}
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Validation failed", "details": details})
}
