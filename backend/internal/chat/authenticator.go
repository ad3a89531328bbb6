package chat

import (
	"context"
	"strings"

	"github.com/rawlink/marketplace/backend/internal/apperr"
	"github.com/rawlink/marketplace/backend/internal/auth"
	"github.com/rawlink/marketplace/backend/internal/models"
)

// UserLookup resolves a token subject to a user identity.
type UserLookup interface {
	GetUserByID(ctx context.Context, userID int64) (*models.User, error)
}

// Authenticator gates incoming chat connections. Unlike stateless request
// auth there is no anonymous fallback: every failure denies the connection.
type Authenticator struct {
	lookup UserLookup
}

// NewAuthenticator builds an authenticator over the given registry.
func NewAuthenticator(lookup UserLookup) *Authenticator {
	return &Authenticator{lookup: lookup}
}

// Authenticate validates the bearer credential presented with a connection
// attempt. The token is taken from the `token` query parameter when present,
// falling back to the Authorization header. Absent, malformed, expired and
// unknown-subject tokens all yield the same rejection.
func (a *Authenticator) Authenticate(ctx context.Context, queryToken, authHeader string) (*models.User, error) {
	token := strings.TrimSpace(queryToken)
	if token == "" {
		parts := strings.Split(authHeader, " ")
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			token = parts[1]
		}
	}
	if token == "" {
		return nil, apperr.New(apperr.Authorization, apperr.CodeNotAuthorized, "connection rejected")
	}

	claims, err := auth.ValidateJWT(token)
	if err != nil {
		return nil, apperr.New(apperr.Authorization, apperr.CodeNotAuthorized, "connection rejected")
	}

	user, err := a.lookup.GetUserByID(ctx, claims.UserID)
	if err != nil || user == nil {
		return nil, apperr.New(apperr.Authorization, apperr.CodeNotAuthorized, "connection rejected")
	}

	return user, nil
}
