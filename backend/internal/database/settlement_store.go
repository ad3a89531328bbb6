package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/rawlink/marketplace/backend/internal/models"
	"github.com/rawlink/marketplace/backend/internal/settlement"
)

// SettlementStore adapts the pgx pool to the settlement engine's Store
// contract. Every getter issued through a settlementTx uses FOR UPDATE so the
// engine's lock-then-mutate discipline maps onto Postgres row locks.
type SettlementStore struct{}

// NewSettlementStore returns a store bound to the global pool.
func NewSettlementStore() *SettlementStore {
	return &SettlementStore{}
}

func (s *SettlementStore) Begin(ctx context.Context) (settlement.Tx, error) {
	tx, err := DB.Begin(ctx)
	if err != nil {
		return nil, err
	}
	return &settlementTx{tx: tx}, nil
}

type settlementTx struct {
	tx pgx.Tx
}

func (t *settlementTx) GetListingForUpdate(ctx context.Context, listingID int64) (*models.Listing, error) {
	listing := &models.Listing{}
	err := t.tx.QueryRow(ctx,
		`SELECT id, vendor_id, title, description, category, quantity, unit, price_per_unit,
		        country, city, postal_code, location, status, created_at, updated_at
		 FROM listings WHERE id = $1 FOR UPDATE`,
		listingID,
	).Scan(
		&listing.ID, &listing.VendorID, &listing.Title, &listing.Description, &listing.Category,
		&listing.Quantity, &listing.Unit, &listing.PricePerUnit,
		&listing.Country, &listing.City, &listing.PostalCode, &listing.Location,
		&listing.Status, &listing.CreatedAt, &listing.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("lock listing %d: %w", listingID, err)
	}
	return listing, nil
}

func (t *settlementTx) GetWalletForUpdate(ctx context.Context, userID int64) (*models.Wallet, error) {
	wallet := &models.Wallet{}
	err := t.tx.QueryRow(ctx,
		`SELECT id, user_id, balance, updated_at FROM wallets WHERE user_id = $1 FOR UPDATE`,
		userID,
	).Scan(&wallet.ID, &wallet.UserID, &wallet.Balance, &wallet.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("lock wallet of user %d: %w", userID, err)
	}
	return wallet, nil
}

func (t *settlementTx) UpdateWalletBalance(ctx context.Context, walletID int64, balance decimal.Decimal) error {
	cmdTag, err := t.tx.Exec(ctx,
		`UPDATE wallets SET balance = $1, updated_at = NOW() WHERE id = $2`,
		balance, walletID,
	)
	if err != nil {
		return fmt.Errorf("update balance of wallet %d: %w", walletID, err)
	}
	if cmdTag.RowsAffected() != 1 {
		return fmt.Errorf("wallet %d not found during balance update", walletID)
	}
	return nil
}

func (t *settlementTx) InsertTransaction(ctx context.Context, walletID int64, amount decimal.Decimal, kind string) error {
	_, err := t.tx.Exec(ctx,
		`INSERT INTO transactions (wallet_id, reference, amount, type) VALUES ($1, $2, $3, $4)`,
		walletID, uuid.New(), amount, kind,
	)
	if err != nil {
		return fmt.Errorf("insert %s transaction for wallet %d: %w", kind, walletID, err)
	}
	return nil
}

func (t *settlementTx) CreateOrder(ctx context.Context, order *models.Order) error {
	order.Reference = uuid.New()
	err := t.tx.QueryRow(ctx,
		`INSERT INTO orders (reference, buyer_id, vendor_id, listing_id, listing_title, quantity_bought, total_price, status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING id, created_at`,
		order.Reference, order.BuyerID, order.VendorID, order.ListingID, order.ListingTitle,
		order.QuantityBought, order.TotalPrice, order.Status,
	).Scan(&order.ID, &order.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert order for buyer %d: %w", order.BuyerID, err)
	}
	return nil
}

func (t *settlementTx) UpdateListingInventory(ctx context.Context, listingID int64, quantity decimal.Decimal, status string) error {
	cmdTag, err := t.tx.Exec(ctx,
		`UPDATE listings SET quantity = $1, status = $2, updated_at = NOW() WHERE id = $3`,
		quantity, status, listingID,
	)
	if err != nil {
		return fmt.Errorf("update inventory of listing %d: %w", listingID, err)
	}
	if cmdTag.RowsAffected() != 1 {
		return fmt.Errorf("listing %d not found during inventory update", listingID)
	}
	return nil
}

func (t *settlementTx) GetOrderForUpdate(ctx context.Context, orderID int64) (*models.Order, error) {
	order := &models.Order{}
	err := t.tx.QueryRow(ctx,
		`SELECT id, reference, buyer_id, vendor_id, listing_id, listing_title, quantity_bought, total_price, status, created_at
		 FROM orders WHERE id = $1 FOR UPDATE`,
		orderID,
	).Scan(
		&order.ID, &order.Reference, &order.BuyerID, &order.VendorID, &order.ListingID,
		&order.ListingTitle, &order.QuantityBought, &order.TotalPrice, &order.Status, &order.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("lock order %d: %w", orderID, err)
	}
	return order, nil
}

func (t *settlementTx) UpdateOrderStatus(ctx context.Context, orderID int64, status string) error {
	cmdTag, err := t.tx.Exec(ctx,
		`UPDATE orders SET status = $1 WHERE id = $2`,
		status, orderID,
	)
	if err != nil {
		return fmt.Errorf("update status of order %d: %w", orderID, err)
	}
	if cmdTag.RowsAffected() != 1 {
		return fmt.Errorf("order %d not found during status update", orderID)
	}
	return nil
}

func (t *settlementTx) Commit(ctx context.Context) error {
	return t.tx.Commit(ctx)
}

func (t *settlementTx) Rollback(ctx context.Context) error {
	err := t.tx.Rollback(ctx)
	if err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return err
	}
	return nil
}
