package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/rawlink/marketplace/backend/internal/models"
)

// GetUserOrders returns orders where the user is buyer or vendor, newest first.
func GetUserOrders(ctx context.Context, userID int64) ([]*models.Order, error) {
	rows, err := DB.Query(ctx,
		`SELECT id, reference, buyer_id, vendor_id, listing_id, listing_title, quantity_bought, total_price, status, created_at
		 FROM orders
		 WHERE buyer_id = $1 OR vendor_id = $1
		 ORDER BY created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("query orders for user %d: %w", userID, err)
	}
	defer rows.Close()

	orders := make([]*models.Order, 0)
	for rows.Next() {
		order := &models.Order{}
		err := rows.Scan(
			&order.ID, &order.Reference, &order.BuyerID, &order.VendorID, &order.ListingID,
			&order.ListingTitle, &order.QuantityBought, &order.TotalPrice, &order.Status, &order.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan order row for user %d: %w", userID, err)
		}
		orders = append(orders, order)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate order rows for user %d: %w", userID, rows.Err())
	}

	return orders, nil
}

// GetOrderByID retrieves one order. Returns nil, nil when missing.
func GetOrderByID(ctx context.Context, orderID int64) (*models.Order, error) {
	order := &models.Order{}
	err := DB.QueryRow(ctx,
		`SELECT id, reference, buyer_id, vendor_id, listing_id, listing_title, quantity_bought, total_price, status, created_at
		 FROM orders WHERE id = $1`,
		orderID,
	).Scan(
		&order.ID, &order.Reference, &order.BuyerID, &order.VendorID, &order.ListingID,
		&order.ListingTitle, &order.QuantityBought, &order.TotalPrice, &order.Status, &order.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get order %d: %w", orderID, err)
	}
	return order, nil
}
