package settlement

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/rawlink/marketplace/backend/internal/apperr"
	"github.com/rawlink/marketplace/backend/internal/models"
)

// TransitionOrder moves an order through its lifecycle:
//
//	confirmed -> shipped    (vendor of the order)
//	shipped   -> completed  (buyer of the order)
//
// Callers who are neither buyer nor vendor on the order are rejected before
// the transition shape is examined. When the buyer completes an order whose
// listing has no inventory left, the listing is flipped to completed as well;
// that flip is idempotent.
func (e *Engine) TransitionOrder(ctx context.Context, actorID, orderID int64, target string) (*models.Order, error) {
	tx, err := e.store.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transition: %w", err)
	}
	defer tx.Rollback(ctx)

	order, err := tx.GetOrderForUpdate(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("lock order %d: %w", orderID, err)
	}
	if order == nil {
		return nil, apperr.New(apperr.NotFound, apperr.CodeOrderNotFound, "order not found")
	}

	if actorID != order.BuyerID && actorID != order.VendorID {
		return nil, apperr.New(apperr.Authorization, apperr.CodeNotAuthorized,
			"only the buyer or vendor of an order may update it")
	}

	switch {
	case order.Status == models.OrderConfirmed && target == models.OrderShipped:
		if actorID != order.VendorID {
			return nil, apperr.New(apperr.Authorization, apperr.CodeNotAuthorized,
				"only the vendor can mark an order shipped")
		}
	case order.Status == models.OrderShipped && target == models.OrderCompleted:
		if actorID != order.BuyerID {
			return nil, apperr.New(apperr.Authorization, apperr.CodeNotAuthorized,
				"only the buyer can mark an order completed")
		}
	default:
		return nil, apperr.New(apperr.Conflict, apperr.CodeInvalidTransition,
			"cannot transition order from %s to %s", order.Status, target)
	}

	if err := tx.UpdateOrderStatus(ctx, orderID, target); err != nil {
		return nil, fmt.Errorf("update order %d status: %w", orderID, err)
	}

	if target == models.OrderCompleted && order.ListingID != nil {
		listing, err := tx.GetListingForUpdate(ctx, *order.ListingID)
		if err != nil {
			return nil, fmt.Errorf("lock listing %d: %w", *order.ListingID, err)
		}
		if listing != nil && listing.Quantity.Sign() <= 0 && listing.Status != models.ListingCompleted {
			if err := tx.UpdateListingInventory(ctx, listing.ID, listing.Quantity, models.ListingCompleted); err != nil {
				return nil, fmt.Errorf("complete listing %d: %w", listing.ID, err)
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit transition: %w", err)
	}

	log.Info().
		Int64("order_id", orderID).
		Int64("actor_id", actorID).
		Str("from", order.Status).
		Str("to", target).
		Msg("order transitioned")

	order.Status = target
	return order, nil
}
