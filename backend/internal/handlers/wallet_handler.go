package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"github.com/rawlink/marketplace/backend/internal/apperr"
	"github.com/rawlink/marketplace/backend/internal/database"
	"github.com/rawlink/marketplace/backend/internal/metrics"
	"github.com/rawlink/marketplace/backend/internal/middleware"
	"github.com/rawlink/marketplace/backend/internal/settlement"
)

// GetMyWallet returns the caller's wallet with its transaction history,
// newest first.
func GetMyWallet(c *fiber.Ctx) error {
	userID, ok := middleware.UserID(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid user ID in token"})
	}

	wallet, err := database.GetWalletStatement(c.Context(), userID)
	if err != nil {
		return respondError(c, err)
	}
	if wallet == nil {
		return respondError(c, apperr.New(apperr.NotFound, apperr.CodeWalletNotFound, "wallet not found"))
	}
	return c.JSON(wallet)
}

// AddCredit credits the caller's wallet.
func AddCredit(c *fiber.Ctx) error {
	userID, ok := middleware.UserID(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid user ID in token"})
	}

	var req struct {
		Amount decimal.Decimal `json:"amount"`
	}
	if err := c.BodyParser(&req); err != nil {
		return respondError(c, apperr.New(apperr.Validation, apperr.CodeInvalidAmount, "amount must be a positive number"))
	}

	wallet, err := settlement.GlobalEngine.AddCredit(c.Context(), userID, req.Amount)
	if err != nil {
		return respondError(c, err)
	}

	metrics.RecordWalletCredit()
	return c.JSON(wallet)
}
