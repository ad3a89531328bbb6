package settlement

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/rawlink/marketplace/backend/internal/models"
)

// fakeStore is an in-memory Store whose transactions hold one global lock
// from Begin to Commit/Rollback, mirroring the serialization the real store
// gets from row-level locks. Mutations are staged per transaction and only
// applied on Commit.
type fakeStore struct {
	mu          sync.Mutex
	listings    map[int64]*models.Listing
	wallets     map[int64]*models.Wallet // keyed by owner user ID
	ledger      map[int64][]*models.Transaction
	orders      map[int64]*models.Order
	nextOrderID int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		listings:    make(map[int64]*models.Listing),
		wallets:     make(map[int64]*models.Wallet),
		ledger:      make(map[int64][]*models.Transaction),
		orders:      make(map[int64]*models.Order),
		nextOrderID: 1,
	}
}

func (s *fakeStore) addWallet(userID int64, balance decimal.Decimal) *models.Wallet {
	w := &models.Wallet{ID: userID + 1000, UserID: userID, Balance: balance}
	s.wallets[userID] = w
	return w
}

func (s *fakeStore) addListing(l *models.Listing) *models.Listing {
	s.listings[l.ID] = l
	return l
}

func (s *fakeStore) walletByID(walletID int64) *models.Wallet {
	for _, w := range s.wallets {
		if w.ID == walletID {
			return w
		}
	}
	return nil
}

// ledgerSum returns the sum of all transaction amounts for a wallet.
func (s *fakeStore) ledgerSum(walletID int64) decimal.Decimal {
	sum := decimal.Zero
	for _, t := range s.ledger[walletID] {
		sum = sum.Add(t.Amount)
	}
	return sum
}

func (s *fakeStore) Begin(ctx context.Context) (Tx, error) {
	s.mu.Lock()
	return &fakeTx{
		s:              s,
		walletBalances: make(map[int64]decimal.Decimal),
		listingState:   make(map[int64]listingState),
		orderStatus:    make(map[int64]string),
	}, nil
}

type listingState struct {
	quantity decimal.Decimal
	status   string
}

type stagedTx struct {
	walletID int64
	amount   decimal.Decimal
	kind     string
}

type fakeTx struct {
	s              *fakeStore
	done           bool
	walletBalances map[int64]decimal.Decimal
	listingState   map[int64]listingState
	orderStatus    map[int64]string
	inserted       []stagedTx
	created        []*models.Order
}

func (t *fakeTx) GetListingForUpdate(ctx context.Context, listingID int64) (*models.Listing, error) {
	l, ok := t.s.listings[listingID]
	if !ok {
		return nil, nil
	}
	cp := *l
	if st, ok := t.listingState[listingID]; ok {
		cp.Quantity = st.quantity
		cp.Status = st.status
	}
	return &cp, nil
}

func (t *fakeTx) GetWalletForUpdate(ctx context.Context, userID int64) (*models.Wallet, error) {
	w, ok := t.s.wallets[userID]
	if !ok {
		return nil, nil
	}
	cp := *w
	if b, ok := t.walletBalances[w.ID]; ok {
		cp.Balance = b
	}
	return &cp, nil
}

func (t *fakeTx) UpdateWalletBalance(ctx context.Context, walletID int64, balance decimal.Decimal) error {
	t.walletBalances[walletID] = balance
	return nil
}

func (t *fakeTx) InsertTransaction(ctx context.Context, walletID int64, amount decimal.Decimal, kind string) error {
	t.inserted = append(t.inserted, stagedTx{walletID: walletID, amount: amount, kind: kind})
	return nil
}

func (t *fakeTx) CreateOrder(ctx context.Context, order *models.Order) error {
	order.ID = t.s.nextOrderID
	t.s.nextOrderID++
	t.created = append(t.created, order)
	return nil
}

func (t *fakeTx) UpdateListingInventory(ctx context.Context, listingID int64, quantity decimal.Decimal, status string) error {
	t.listingState[listingID] = listingState{quantity: quantity, status: status}
	return nil
}

func (t *fakeTx) GetOrderForUpdate(ctx context.Context, orderID int64) (*models.Order, error) {
	o, ok := t.s.orders[orderID]
	if !ok {
		return nil, nil
	}
	cp := *o
	if st, ok := t.orderStatus[orderID]; ok {
		cp.Status = st
	}
	return &cp, nil
}

func (t *fakeTx) UpdateOrderStatus(ctx context.Context, orderID int64, status string) error {
	t.orderStatus[orderID] = status
	return nil
}

func (t *fakeTx) Commit(ctx context.Context) error {
	for walletID, balance := range t.walletBalances {
		if w := t.s.walletByID(walletID); w != nil {
			w.Balance = balance
		}
	}
	for _, st := range t.inserted {
		t.s.ledger[st.walletID] = append(t.s.ledger[st.walletID], &models.Transaction{
			WalletID: st.walletID,
			Amount:   st.amount,
			Type:     st.kind,
		})
	}
	for _, o := range t.created {
		t.s.orders[o.ID] = o
	}
	for id, st := range t.listingState {
		if l, ok := t.s.listings[id]; ok {
			l.Quantity = st.quantity
			l.Status = st.status
		}
	}
	for id, status := range t.orderStatus {
		if o, ok := t.s.orders[id]; ok {
			o.Status = status
		}
	}
	t.done = true
	t.s.mu.Unlock()
	return nil
}

func (t *fakeTx) Rollback(ctx context.Context) error {
	if t.done {
		return nil
	}
	t.done = true
	t.s.mu.Unlock()
	return nil
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}
