package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/rawlink/marketplace/backend/internal/models"
)

// GetWalletByUserID retrieves a user's wallet without its transactions.
// Returns nil, nil when the wallet does not exist.
func GetWalletByUserID(ctx context.Context, userID int64) (*models.Wallet, error) {
	wallet := &models.Wallet{}
	err := DB.QueryRow(ctx,
		`SELECT id, user_id, balance, updated_at FROM wallets WHERE user_id = $1`,
		userID,
	).Scan(&wallet.ID, &wallet.UserID, &wallet.Balance, &wallet.UpdatedAt)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get wallet for user %d: %w", userID, err)
	}
	return wallet, nil
}

// GetWalletStatement retrieves a wallet together with its transaction
// records, newest first for display.
func GetWalletStatement(ctx context.Context, userID int64) (*models.Wallet, error) {
	wallet, err := GetWalletByUserID(ctx, userID)
	if err != nil || wallet == nil {
		return wallet, err
	}

	rows, err := DB.Query(ctx,
		`SELECT id, wallet_id, reference, amount, type, timestamp
		 FROM transactions WHERE wallet_id = $1
		 ORDER BY timestamp DESC, id DESC`,
		wallet.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("query transactions for wallet %d: %w", wallet.ID, err)
	}
	defer rows.Close()

	for rows.Next() {
		t := &models.Transaction{}
		if err := rows.Scan(&t.ID, &t.WalletID, &t.Reference, &t.Amount, &t.Type, &t.Timestamp); err != nil {
			return nil, fmt.Errorf("scan transaction row for wallet %d: %w", wallet.ID, err)
		}
		wallet.Transactions = append(wallet.Transactions, t)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate transaction rows for wallet %d: %w", wallet.ID, rows.Err())
	}

	return wallet, nil
}
