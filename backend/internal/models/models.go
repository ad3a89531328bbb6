package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// User roles. Role is assigned at registration and never changes afterwards.
const (
	RoleVendor = "vendor"
	RoleBuyer  = "buyer"
	RoleAdmin  = "admin"
)

// Listing lifecycle statuses.
const (
	ListingAvailable = "available"
	ListingInTransit = "in-transit"
	ListingCompleted = "completed"
)

// Order lifecycle statuses.
const (
	OrderPending   = "pending"
	OrderConfirmed = "confirmed"
	OrderShipped   = "shipped"
	OrderCompleted = "completed"
	OrderCancelled = "cancelled"
)

// Transaction kinds recorded against a wallet.
const (
	TxSale       = "sale"
	TxPurchase   = "purchase"
	TxWithdrawal = "withdrawal"
	TxCredit     = "credit"
)

// Listing categories and quantity units.
var (
	Categories = []string{"plastic", "metal", "paper", "e-waste", "glass", "other"}
	Units      = []string{"kg", "tons"}
)

// Owned is implemented by entities whose mutation is gated to a single owner.
type Owned interface {
	OwnerID() int64
}

// User represents a marketplace account. Email is the unique login identifier.
type User struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	Password  string    `json:"-"` // bcrypt hash, never serialized
	CreatedAt time.Time `json:"created_at"`
}

// Profile holds contact details for a user, created together with the account.
type Profile struct {
	UserID   int64  `json:"user_id"`
	Name     string `json:"name"`
	Phone    string `json:"phone"`
	Location string `json:"location"`
}

func (p *Profile) OwnerID() int64 { return p.UserID }

// Wallet holds a user's balance. Balance is mutated only through the
// settlement engine and the credit operation.
type Wallet struct {
	ID           int64           `json:"id"`
	UserID       int64           `json:"user_id"`
	Balance      decimal.Decimal `json:"balance"`
	Transactions []*Transaction  `json:"transactions,omitempty"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

func (w *Wallet) OwnerID() int64 { return w.UserID }

// Transaction is an immutable, append-only record of one balance mutation.
// The invariant is that the sum of a wallet's transaction amounts equals its
// current balance after every committed settlement.
type Transaction struct {
	ID        int64           `json:"id"`
	WalletID  int64           `json:"-"`
	Reference uuid.UUID       `json:"reference"`
	Amount    decimal.Decimal `json:"amount"`
	Type      string          `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
}

// Listing is a vendor's offer of recyclable material.
type Listing struct {
	ID             int64           `json:"id"`
	VendorID       int64           `json:"vendor_id"`
	VendorUsername string          `json:"vendor_username,omitempty"`
	Title          string          `json:"title"`
	Description    string          `json:"description"`
	Category       string          `json:"category"`
	Quantity       decimal.Decimal `json:"quantity"`
	Unit           string          `json:"unit"`
	PricePerUnit   decimal.Decimal `json:"price_per_unit"`
	Country        string          `json:"country"`
	City           string          `json:"city"`
	PostalCode     string          `json:"postal_code"`
	Location       string          `json:"location"`
	Status         string          `json:"status"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

func (l *Listing) OwnerID() int64 { return l.VendorID }

// Order is created exactly once per completed settlement. ListingID is
// nullable so history survives listing deletion; ListingTitle is the
// denormalized snapshot taken at creation time.
type Order struct {
	ID             int64           `json:"id"`
	Reference      uuid.UUID       `json:"reference"`
	BuyerID        int64           `json:"buyer_id"`
	VendorID       int64           `json:"vendor_id"`
	ListingID      *int64          `json:"listing_id"`
	ListingTitle   string          `json:"listing_title"`
	QuantityBought decimal.Decimal `json:"quantity_bought"`
	TotalPrice     decimal.Decimal `json:"total_price"`
	Status         string          `json:"status"`
	CreatedAt      time.Time       `json:"created_at"`
}

// Message is an immutable chat record, ordered oldest-first for history replay.
type Message struct {
	ID         int64     `json:"id"`
	SenderID   int64     `json:"sender_id"`
	ReceiverID int64     `json:"receiver_id"`
	Content    string    `json:"content"`
	Timestamp  time.Time `json:"timestamp"`
}

// ValidCategory reports whether c is an accepted listing category.
func ValidCategory(c string) bool {
	for _, v := range Categories {
		if v == c {
			return true
		}
	}
	return false
}

// ValidUnit reports whether u is an accepted quantity unit.
func ValidUnit(u string) bool {
	for _, v := range Units {
		if v == u {
			return true
		}
	}
	return false
}
