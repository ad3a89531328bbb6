package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/rawlink/marketplace/backend/internal/models"
)

// CreateUser inserts a user together with their profile and wallet in one
// transaction. There is no hidden hook wiring: an account either exists with
// all three rows or not at all.
func CreateUser(ctx context.Context, username, email, role, passwordHash string) (*models.User, error) {
	tx, err := DB.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin create user: %w", err)
	}
	defer tx.Rollback(ctx)

	user := &models.User{
		Username: username,
		Email:    email,
		Role:     role,
		Password: passwordHash,
	}

	err = tx.QueryRow(ctx,
		`INSERT INTO users (username, email, role, password_hash) VALUES ($1, $2, $3, $4)
		 RETURNING id, created_at`,
		username, email, role, passwordHash,
	).Scan(&user.ID, &user.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert user %s: %w", email, err)
	}

	if _, err := tx.Exec(ctx, `INSERT INTO profiles (user_id) VALUES ($1)`, user.ID); err != nil {
		return nil, fmt.Errorf("insert profile for user %d: %w", user.ID, err)
	}
	if _, err := tx.Exec(ctx, `INSERT INTO wallets (user_id) VALUES ($1)`, user.ID); err != nil {
		return nil, fmt.Errorf("insert wallet for user %d: %w", user.ID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit create user: %w", err)
	}
	return user, nil
}

// GetUserByEmail retrieves a user by their login email.
// Returns nil, nil when no such user exists.
func GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	user := &models.User{}
	err := DB.QueryRow(ctx,
		`SELECT id, username, email, role, password_hash, created_at FROM users WHERE email = $1`,
		email,
	).Scan(&user.ID, &user.Username, &user.Email, &user.Role, &user.Password, &user.CreatedAt)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return user, nil
}

// GetUserByID retrieves a user by ID. Returns nil, nil when missing.
func GetUserByID(ctx context.Context, userID int64) (*models.User, error) {
	user := &models.User{}
	err := DB.QueryRow(ctx,
		`SELECT id, username, email, role, password_hash, created_at FROM users WHERE id = $1`,
		userID,
	).Scan(&user.ID, &user.Username, &user.Email, &user.Role, &user.Password, &user.CreatedAt)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return user, nil
}

// GetProfile retrieves the profile owned by userID.
func GetProfile(ctx context.Context, userID int64) (*models.Profile, error) {
	profile := &models.Profile{}
	err := DB.QueryRow(ctx,
		`SELECT user_id, name, phone, location FROM profiles WHERE user_id = $1`,
		userID,
	).Scan(&profile.UserID, &profile.Name, &profile.Phone, &profile.Location)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return profile, nil
}

// UpdateProfile overwrites the caller's profile fields.
func UpdateProfile(ctx context.Context, profile *models.Profile) error {
	cmdTag, err := DB.Exec(ctx,
		`UPDATE profiles SET name = $1, phone = $2, location = $3 WHERE user_id = $4`,
		profile.Name, profile.Phone, profile.Location, profile.UserID,
	)
	if err != nil {
		return fmt.Errorf("update profile for user %d: %w", profile.UserID, err)
	}
	if cmdTag.RowsAffected() != 1 {
		return fmt.Errorf("profile for user %d not found", profile.UserID)
	}
	return nil
}
