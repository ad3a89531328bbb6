package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/rawlink/marketplace/backend/internal/apperr"
	"github.com/rawlink/marketplace/backend/internal/database"
	"github.com/rawlink/marketplace/backend/internal/metrics"
	"github.com/rawlink/marketplace/backend/internal/middleware"
	"github.com/rawlink/marketplace/backend/internal/settlement"
)

// PlaceOrderRequest is the expected JSON body for creating an order.
// quantity_bought accepts a JSON number or a numeric string.
type PlaceOrderRequest struct {
	ListingID      int64           `json:"listing_id"`
	QuantityBought decimal.Decimal `json:"quantity_bought"`
	PaymentMethod  string          `json:"payment_method"`
}

// TransitionRequest is the expected JSON body for an order status change.
type TransitionRequest struct {
	Status string `json:"status" validate:"required,oneof=shipped completed"`
}

// PlaceOrder runs the purchase settlement for the authenticated buyer.
func PlaceOrder(c *fiber.Ctx) error {
	buyerID, ok := middleware.UserID(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid user ID in token"})
	}

	req := new(PlaceOrderRequest)
	if err := c.BodyParser(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse request body"})
	}

	order, err := settlement.GlobalEngine.PlaceOrder(c.Context(), buyerID, req.ListingID, req.QuantityBought, req.PaymentMethod)
	if err != nil {
		if e := apperr.As(err); e != nil {
			metrics.RecordSettlementFailure(e.Code)
		} else {
			log.Error().Err(err).Int64("buyer_id", buyerID).Int64("listing_id", req.ListingID).Msg("settlement failed")
		}
		return respondError(c, err)
	}

	method := req.PaymentMethod
	if method == "" {
		method = settlement.PaymentWallet
	}
	metrics.RecordSettlement(method)

	return c.Status(fiber.StatusCreated).JSON(order)
}

// GetOrders lists orders where the caller is buyer or vendor.
func GetOrders(c *fiber.Ctx) error {
	userID, ok := middleware.UserID(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid user ID in token"})
	}

	orders, err := database.GetUserOrders(c.Context(), userID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(orders)
}

// GetOrderByID returns one order, visible only to its buyer or vendor.
func GetOrderByID(c *fiber.Ctx) error {
	userID, ok := middleware.UserID(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid user ID in token"})
	}

	orderID, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid order ID"})
	}

	order, err := database.GetOrderByID(c.Context(), orderID)
	if err != nil {
		return respondError(c, err)
	}
	if order == nil || (order.BuyerID != userID && order.VendorID != userID) {
		// hide existence from strangers
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Order not found"})
	}
	return c.JSON(order)
}

// UpdateOrderStatus runs the role-gated lifecycle transition.
func UpdateOrderStatus(c *fiber.Ctx) error {
	actorID, ok := middleware.UserID(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid user ID in token"})
	}

	orderID, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid order ID"})
	}

	req := new(TransitionRequest)
	if err := c.BodyParser(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse request body"})
	}
	if err := validate.Struct(req); err != nil {
		return validationErrors(c, err)
	}

	order, err := settlement.GlobalEngine.TransitionOrder(c.Context(), actorID, orderID, req.Status)
	if err != nil {
		return respondError(c, err)
	}

	metrics.RecordOrderTransition(req.Status)
	return c.JSON(order)
}
