// Package apperr defines the error taxonomy shared by the settlement engine,
// the chat relay and the HTTP handlers. Every business failure carries a Kind
// (mapped to an HTTP status at the edge) and a stable machine-readable code.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies a business error.
type Kind int

const (
	// Validation means the input shape or value was bad.
	Validation Kind = iota
	// NotFound means a referenced entity does not exist.
	NotFound
	// Conflict means a business rule was violated given valid entities.
	Conflict
	// Authorization means the caller is not allowed to perform the action.
	Authorization
)

func (k Kind) String() string {
	switch k {
	case Validation:
		return "validation"
	case NotFound:
		return "not_found"
	case Conflict:
		return "conflict"
	case Authorization:
		return "authorization"
	}
	return "unknown"
}

// Stable error codes surfaced to clients.
const (
	CodeInvalidAmount      = "invalid_amount"
	CodeInvalidQuantity    = "invalid_quantity"
	CodeInvalidMessage     = "invalid_message"
	CodeListingUnavailable = "listing_unavailable"
	CodeWalletNotFound     = "wallet_not_found"
	CodeOrderNotFound      = "order_not_found"
	CodeUserNotFound       = "user_not_found"
	CodeReceiverNotFound   = "receiver_not_found"
	CodeInsufficientFunds  = "insufficient_funds"
	CodeInsufficientStock  = "insufficient_inventory"
	CodeSelfPurchase       = "self_purchase_forbidden"
	CodeInvalidTransition  = "invalid_transition"
	CodeNotAuthorized      = "not_authorized"
)

// Error is a classified business error.
type Error struct {
	Kind    Kind
	Code    string
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s (%s): %s", e.Code, e.Kind, e.Message)
}

// New builds a classified error with a formatted message.
func New(kind Kind, code, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Code: code, Message: fmt.Sprintf(format, args...)}
}

// As unwraps err into an *Error, or nil if it is not one.
func As(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return nil
}

// IsKind reports whether err is an *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	e := As(err)
	return e != nil && e.Kind == kind
}

// IsCode reports whether err is an *Error carrying the given code.
func IsCode(err error, code string) bool {
	e := As(err)
	return e != nil && e.Code == code
}
