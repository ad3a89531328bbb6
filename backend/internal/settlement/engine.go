// Package settlement implements the atomic purchase transaction, the wallet
// credit operation and the order lifecycle state machine. All wallet and
// listing mutation in the system goes through this package so the
// lock-then-mutate discipline holds everywhere.
package settlement

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/rawlink/marketplace/backend/internal/apperr"
	"github.com/rawlink/marketplace/backend/internal/models"
)

// PaymentWallet is the payment method that moves funds between wallets.
// Any other method models off-platform settlement: the order is still
// created and inventory still decremented, but no funds move.
const PaymentWallet = "wallet"

// Tx is one atomic unit of settlement work. Row-returning getters take
// row-level locks held until Commit or Rollback.
type Tx interface {
	GetListingForUpdate(ctx context.Context, listingID int64) (*models.Listing, error)
	GetWalletForUpdate(ctx context.Context, userID int64) (*models.Wallet, error)
	UpdateWalletBalance(ctx context.Context, walletID int64, balance decimal.Decimal) error
	InsertTransaction(ctx context.Context, walletID int64, amount decimal.Decimal, kind string) error
	CreateOrder(ctx context.Context, order *models.Order) error
	UpdateListingInventory(ctx context.Context, listingID int64, quantity decimal.Decimal, status string) error
	GetOrderForUpdate(ctx context.Context, orderID int64) (*models.Order, error)
	UpdateOrderStatus(ctx context.Context, orderID int64, status string) error
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// Store begins settlement transactions against durable storage.
type Store interface {
	Begin(ctx context.Context) (Tx, error)
}

// Engine orchestrates settlements. Safe for concurrent use; serialization of
// conflicting operations is delegated to the store's row locks.
type Engine struct {
	store Store
}

// GlobalEngine is the process-wide engine instance wired at startup.
var GlobalEngine *Engine

// NewEngine builds an engine on top of the given store.
func NewEngine(store Store) *Engine {
	return &Engine{store: store}
}

// InitEngine creates and installs the global engine.
func InitEngine(store Store) {
	GlobalEngine = NewEngine(store)
}

// PlaceOrder runs the full purchase settlement for buyerID against listingID.
//
// Inside one transaction it locks the listing row first, then both wallet
// rows in ascending owner-ID order (so two users trading with each other
// concurrently cannot deadlock), validates every precondition, transfers
// funds, appends the transaction records, creates the confirmed order and
// decrements inventory. Any failure aborts the whole unit.
func (e *Engine) PlaceOrder(ctx context.Context, buyerID, listingID int64, quantity decimal.Decimal, paymentMethod string) (*models.Order, error) {
	if quantity.Sign() <= 0 {
		return nil, apperr.New(apperr.Validation, apperr.CodeInvalidQuantity, "quantity must be positive")
	}
	if paymentMethod == "" {
		paymentMethod = PaymentWallet
	}

	tx, err := e.store.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin settlement: %w", err)
	}
	defer tx.Rollback(ctx)

	listing, err := tx.GetListingForUpdate(ctx, listingID)
	if err != nil {
		return nil, fmt.Errorf("lock listing %d: %w", listingID, err)
	}
	if listing == nil || listing.Status != models.ListingAvailable {
		return nil, apperr.New(apperr.NotFound, apperr.CodeListingUnavailable,
			"this listing is not available or does not exist")
	}

	if buyerID == listing.VendorID {
		return nil, apperr.New(apperr.Conflict, apperr.CodeSelfPurchase, "you cannot buy your own listing")
	}

	if quantity.GreaterThan(listing.Quantity) {
		return nil, apperr.New(apperr.Conflict, apperr.CodeInsufficientStock,
			"only %s %s available", listing.Quantity.StringFixed(2), listing.Unit)
	}

	totalPrice := listing.PricePerUnit.Mul(quantity)

	if paymentMethod == PaymentWallet {
		buyerWallet, vendorWallet, err := e.lockWallets(ctx, tx, buyerID, listing.VendorID)
		if err != nil {
			return nil, err
		}
		if buyerWallet == nil {
			return nil, apperr.New(apperr.NotFound, apperr.CodeWalletNotFound, "buyer wallet not found")
		}
		if buyerWallet.Balance.LessThan(totalPrice) {
			return nil, apperr.New(apperr.Conflict, apperr.CodeInsufficientFunds,
				"insufficient funds. balance: %s, required: %s",
				buyerWallet.Balance.StringFixed(2), totalPrice.StringFixed(2))
		}
		if vendorWallet == nil {
			return nil, apperr.New(apperr.NotFound, apperr.CodeWalletNotFound, "vendor wallet not found")
		}

		if err := tx.UpdateWalletBalance(ctx, buyerWallet.ID, buyerWallet.Balance.Sub(totalPrice)); err != nil {
			return nil, fmt.Errorf("debit buyer wallet %d: %w", buyerWallet.ID, err)
		}
		if err := tx.UpdateWalletBalance(ctx, vendorWallet.ID, vendorWallet.Balance.Add(totalPrice)); err != nil {
			return nil, fmt.Errorf("credit vendor wallet %d: %w", vendorWallet.ID, err)
		}
		if err := tx.InsertTransaction(ctx, buyerWallet.ID, totalPrice.Neg(), models.TxPurchase); err != nil {
			return nil, fmt.Errorf("record purchase transaction: %w", err)
		}
		if err := tx.InsertTransaction(ctx, vendorWallet.ID, totalPrice, models.TxSale); err != nil {
			return nil, fmt.Errorf("record sale transaction: %w", err)
		}
	}

	order := &models.Order{
		BuyerID:        buyerID,
		VendorID:       listing.VendorID,
		ListingID:      &listing.ID,
		ListingTitle:   listing.Title,
		QuantityBought: quantity,
		TotalPrice:     totalPrice,
		Status:         models.OrderConfirmed,
	}
	if err := tx.CreateOrder(ctx, order); err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	remaining := listing.Quantity.Sub(quantity)
	status := listing.Status
	if remaining.Sign() <= 0 {
		status = models.ListingCompleted
	}
	if err := tx.UpdateListingInventory(ctx, listing.ID, remaining, status); err != nil {
		return nil, fmt.Errorf("update listing %d inventory: %w", listing.ID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit settlement: %w", err)
	}

	log.Info().
		Int64("order_id", order.ID).
		Int64("buyer_id", buyerID).
		Int64("listing_id", listingID).
		Str("total_price", totalPrice.StringFixed(2)).
		Str("payment_method", paymentMethod).
		Msg("settlement committed")

	return order, nil
}

// lockWallets acquires both wallet rows in ascending owner-ID order and
// returns them as (buyer, vendor). A missing wallet is returned as nil so the
// caller can report the precondition failures in the documented order.
func (e *Engine) lockWallets(ctx context.Context, tx Tx, buyerID, vendorID int64) (*models.Wallet, *models.Wallet, error) {
	first, second := buyerID, vendorID
	if second < first {
		first, second = second, first
	}

	firstWallet, err := tx.GetWalletForUpdate(ctx, first)
	if err != nil {
		return nil, nil, fmt.Errorf("lock wallet of user %d: %w", first, err)
	}
	secondWallet, err := tx.GetWalletForUpdate(ctx, second)
	if err != nil {
		return nil, nil, fmt.Errorf("lock wallet of user %d: %w", second, err)
	}

	if first == buyerID {
		return firstWallet, secondWallet, nil
	}
	return secondWallet, firstWallet, nil
}

// AddCredit atomically credits amount to the user's wallet and appends the
// credit transaction record.
func (e *Engine) AddCredit(ctx context.Context, userID int64, amount decimal.Decimal) (*models.Wallet, error) {
	if amount.Sign() <= 0 {
		return nil, apperr.New(apperr.Validation, apperr.CodeInvalidAmount, "amount must be a positive number")
	}

	tx, err := e.store.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin credit: %w", err)
	}
	defer tx.Rollback(ctx)

	wallet, err := tx.GetWalletForUpdate(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("lock wallet of user %d: %w", userID, err)
	}
	if wallet == nil {
		return nil, apperr.New(apperr.NotFound, apperr.CodeWalletNotFound, "wallet not found")
	}

	newBalance := wallet.Balance.Add(amount)
	if err := tx.UpdateWalletBalance(ctx, wallet.ID, newBalance); err != nil {
		return nil, fmt.Errorf("credit wallet %d: %w", wallet.ID, err)
	}
	if err := tx.InsertTransaction(ctx, wallet.ID, amount, models.TxCredit); err != nil {
		return nil, fmt.Errorf("record credit transaction: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit credit: %w", err)
	}

	wallet.Balance = newBalance
	return wallet, nil
}
