package settlement

import (
	"context"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rawlink/marketplace/backend/internal/apperr"
	"github.com/rawlink/marketplace/backend/internal/models"
)

const (
	vendorID = int64(1)
	buyerID  = int64(2)
)

func seedMarket(t *testing.T, buyerBalance, listingQty, pricePerUnit string) (*fakeStore, *Engine) {
	t.Helper()
	store := newFakeStore()
	store.addWallet(vendorID, dec("0.00"))
	store.addWallet(buyerID, dec(buyerBalance))
	store.addListing(&models.Listing{
		ID:           10,
		VendorID:     vendorID,
		Title:        "Sorted PET bottles",
		Category:     "plastic",
		Quantity:     dec(listingQty),
		Unit:         "kg",
		PricePerUnit: dec(pricePerUnit),
		Status:       models.ListingAvailable,
	})
	return store, NewEngine(store)
}

func TestPlaceOrderFullPurchase(t *testing.T) {
	// Listing 10kg @ 5.00/kg, buyer holds 100.00: buying everything leaves
	// the buyer at 50.00, pays the vendor 50.00 and completes the listing.
	store, engine := seedMarket(t, "100.00", "10", "5.00")

	order, err := engine.PlaceOrder(context.Background(), buyerID, 10, dec("10"), PaymentWallet)
	require.NoError(t, err)

	assert.Equal(t, models.OrderConfirmed, order.Status)
	assert.True(t, order.TotalPrice.Equal(dec("50.00")), "total price %s", order.TotalPrice)
	assert.Equal(t, "Sorted PET bottles", order.ListingTitle)
	assert.Equal(t, vendorID, order.VendorID)
	require.NotNil(t, order.ListingID)
	assert.Equal(t, int64(10), *order.ListingID)

	buyerWallet := store.wallets[buyerID]
	vendorWallet := store.wallets[vendorID]
	assert.True(t, buyerWallet.Balance.Equal(dec("50.00")))
	assert.True(t, vendorWallet.Balance.Equal(dec("50.00")))

	listing := store.listings[10]
	assert.True(t, listing.Quantity.IsZero())
	assert.Equal(t, models.ListingCompleted, listing.Status)

	// ledger invariant: sum of transaction amounts equals the balance
	assert.True(t, store.ledgerSum(buyerWallet.ID).Equal(dec("-50.00")))
	assert.True(t, store.ledgerSum(vendorWallet.ID).Equal(vendorWallet.Balance))

	require.Len(t, store.ledger[buyerWallet.ID], 1)
	assert.Equal(t, models.TxPurchase, store.ledger[buyerWallet.ID][0].Type)
	require.Len(t, store.ledger[vendorWallet.ID], 1)
	assert.Equal(t, models.TxSale, store.ledger[vendorWallet.ID][0].Type)
}

func TestPlaceOrderPartialPurchaseKeepsListingAvailable(t *testing.T) {
	store, engine := seedMarket(t, "100.00", "10", "5.00")

	_, err := engine.PlaceOrder(context.Background(), buyerID, 10, dec("4"), PaymentWallet)
	require.NoError(t, err)

	listing := store.listings[10]
	assert.True(t, listing.Quantity.Equal(dec("6")))
	assert.Equal(t, models.ListingAvailable, listing.Status)
}

func TestPlaceOrderInsufficientFunds(t *testing.T) {
	// Buyer holds 10.00 but the purchase costs 50.00: nothing may change.
	store, engine := seedMarket(t, "10.00", "10", "5.00")

	_, err := engine.PlaceOrder(context.Background(), buyerID, 10, dec("10"), PaymentWallet)
	require.Error(t, err)
	assert.True(t, apperr.IsCode(err, apperr.CodeInsufficientFunds))
	assert.Contains(t, err.Error(), "10.00")
	assert.Contains(t, err.Error(), "50.00")

	assert.True(t, store.wallets[buyerID].Balance.Equal(dec("10.00")))
	assert.True(t, store.wallets[vendorID].Balance.IsZero())
	assert.True(t, store.listings[10].Quantity.Equal(dec("10")))
	assert.Empty(t, store.orders)
	assert.Empty(t, store.ledger[store.wallets[buyerID].ID])
}

func TestPlaceOrderSelfPurchaseForbidden(t *testing.T) {
	_, engine := seedMarket(t, "100.00", "10", "5.00")

	_, err := engine.PlaceOrder(context.Background(), vendorID, 10, dec("1"), PaymentWallet)
	require.Error(t, err)
	assert.True(t, apperr.IsCode(err, apperr.CodeSelfPurchase))
	assert.True(t, apperr.IsKind(err, apperr.Conflict))
}

func TestPlaceOrderListingUnavailable(t *testing.T) {
	store, engine := seedMarket(t, "100.00", "10", "5.00")

	_, err := engine.PlaceOrder(context.Background(), buyerID, 999, dec("1"), PaymentWallet)
	require.Error(t, err)
	assert.True(t, apperr.IsCode(err, apperr.CodeListingUnavailable))

	store.listings[10].Status = models.ListingCompleted
	_, err = engine.PlaceOrder(context.Background(), buyerID, 10, dec("1"), PaymentWallet)
	require.Error(t, err)
	assert.True(t, apperr.IsCode(err, apperr.CodeListingUnavailable))
}

func TestPlaceOrderInsufficientInventoryMessage(t *testing.T) {
	_, engine := seedMarket(t, "1000.00", "3.50", "5.00")

	_, err := engine.PlaceOrder(context.Background(), buyerID, 10, dec("4"), PaymentWallet)
	require.Error(t, err)
	assert.True(t, apperr.IsCode(err, apperr.CodeInsufficientStock))
	assert.Contains(t, err.Error(), "3.50")
	assert.Contains(t, err.Error(), "kg")
}

func TestPlaceOrderWalletNotFound(t *testing.T) {
	store, engine := seedMarket(t, "100.00", "10", "5.00")

	delete(store.wallets, buyerID)
	_, err := engine.PlaceOrder(context.Background(), buyerID, 10, dec("1"), PaymentWallet)
	require.Error(t, err)
	assert.True(t, apperr.IsCode(err, apperr.CodeWalletNotFound))
	assert.Contains(t, err.Error(), "buyer wallet")

	store2, engine2 := seedMarket(t, "100.00", "10", "5.00")
	delete(store2.wallets, vendorID)
	_, err = engine2.PlaceOrder(context.Background(), buyerID, 10, dec("1"), PaymentWallet)
	require.Error(t, err)
	assert.True(t, apperr.IsCode(err, apperr.CodeWalletNotFound))
	assert.Contains(t, err.Error(), "vendor wallet")
}

func TestPlaceOrderInvalidQuantity(t *testing.T) {
	_, engine := seedMarket(t, "100.00", "10", "5.00")

	for _, q := range []string{"0", "-1"} {
		_, err := engine.PlaceOrder(context.Background(), buyerID, 10, dec(q), PaymentWallet)
		require.Error(t, err)
		assert.True(t, apperr.IsKind(err, apperr.Validation))
	}
}

func TestPlaceOrderOffPlatformPaymentSkipsWallets(t *testing.T) {
	// Non-wallet payment still creates the order and mutates inventory but
	// moves no funds and writes no ledger records.
	store, engine := seedMarket(t, "0.00", "10", "5.00")

	order, err := engine.PlaceOrder(context.Background(), buyerID, 10, dec("10"), "cash")
	require.NoError(t, err)
	assert.Equal(t, models.OrderConfirmed, order.Status)

	assert.True(t, store.wallets[buyerID].Balance.IsZero())
	assert.True(t, store.wallets[vendorID].Balance.IsZero())
	assert.Empty(t, store.ledger[store.wallets[buyerID].ID])
	assert.True(t, store.listings[10].Quantity.IsZero())
	assert.Equal(t, models.ListingCompleted, store.listings[10].Status)
}

func TestPlaceOrderConcurrentOversellPrevented(t *testing.T) {
	// N parallel buyers against inventory sufficient for exactly one: one
	// settlement succeeds, the rest fail, the listing never goes negative.
	const attempts = 8

	store := newFakeStore()
	store.addWallet(vendorID, dec("0.00"))
	store.addListing(&models.Listing{
		ID:           10,
		VendorID:     vendorID,
		Title:        "Copper scrap",
		Quantity:     dec("1"),
		Unit:         "kg",
		PricePerUnit: dec("7.00"),
		Status:       models.ListingAvailable,
	})
	for i := 0; i < attempts; i++ {
		store.addWallet(buyerID+int64(i), dec("100.00"))
	}
	engine := NewEngine(store)

	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = engine.PlaceOrder(context.Background(), buyerID+int64(i), 10, dec("1"), PaymentWallet)
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		ok := apperr.IsCode(err, apperr.CodeInsufficientStock) ||
			apperr.IsCode(err, apperr.CodeListingUnavailable)
		assert.True(t, ok, "unexpected failure: %v", err)
	}
	assert.Equal(t, 1, succeeded)

	listing := store.listings[10]
	assert.True(t, listing.Quantity.Sign() >= 0)
	assert.True(t, listing.Quantity.IsZero())
	assert.Equal(t, models.ListingCompleted, listing.Status)
	assert.True(t, store.wallets[vendorID].Balance.Equal(dec("7.00")))
	assert.Len(t, store.orders, 1)
}

func TestAddCredit(t *testing.T) {
	store, engine := seedMarket(t, "10.00", "10", "5.00")

	wallet, err := engine.AddCredit(context.Background(), buyerID, dec("25.50"))
	require.NoError(t, err)
	assert.True(t, wallet.Balance.Equal(dec("35.50")))

	require.Len(t, store.ledger[wallet.ID], 1)
	assert.Equal(t, models.TxCredit, store.ledger[wallet.ID][0].Type)
	assert.True(t, store.ledger[wallet.ID][0].Amount.Equal(dec("25.50")))
}

func TestAddCreditRejectsNonPositiveAmounts(t *testing.T) {
	_, engine := seedMarket(t, "10.00", "10", "5.00")

	for _, amount := range []string{"0", "-5.00"} {
		_, err := engine.AddCredit(context.Background(), buyerID, dec(amount))
		require.Error(t, err)
		assert.True(t, apperr.IsCode(err, apperr.CodeInvalidAmount))
	}
}

func TestAddCreditWalletNotFound(t *testing.T) {
	_, engine := seedMarket(t, "10.00", "10", "5.00")

	_, err := engine.AddCredit(context.Background(), 999, dec("5.00"))
	require.Error(t, err)
	assert.True(t, apperr.IsCode(err, apperr.CodeWalletNotFound))
}

func TestLedgerInvariantAcrossOperations(t *testing.T) {
	// After any sequence of committed settlements and credits, each wallet's
	// transaction amounts must sum to its balance (given a zero start).
	store := newFakeStore()
	store.addWallet(vendorID, decimal.Zero)
	store.addWallet(buyerID, decimal.Zero)
	store.addListing(&models.Listing{
		ID:           10,
		VendorID:     vendorID,
		Title:        "Mixed paper",
		Quantity:     dec("100"),
		Unit:         "kg",
		PricePerUnit: dec("0.80"),
		Status:       models.ListingAvailable,
	})
	engine := NewEngine(store)
	ctx := context.Background()

	_, err := engine.AddCredit(ctx, buyerID, dec("40.00"))
	require.NoError(t, err)
	_, err = engine.PlaceOrder(ctx, buyerID, 10, dec("25"), PaymentWallet)
	require.NoError(t, err)
	_, err = engine.PlaceOrder(ctx, buyerID, 10, dec("10"), PaymentWallet)
	require.NoError(t, err)

	for _, userID := range []int64{buyerID, vendorID} {
		w := store.wallets[userID]
		assert.True(t, store.ledgerSum(w.ID).Equal(w.Balance),
			"wallet %d: ledger %s vs balance %s", w.ID, store.ledgerSum(w.ID), w.Balance)
	}
}
