package database

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/rawlink/marketplace/backend/internal/models"
)

const listingColumns = `l.id, l.vendor_id, u.username, l.title, l.description, l.category,
	l.quantity, l.unit, l.price_per_unit, l.country, l.city, l.postal_code, l.location,
	l.status, l.created_at, l.updated_at`

func scanListing(row pgx.Row) (*models.Listing, error) {
	l := &models.Listing{}
	err := row.Scan(
		&l.ID, &l.VendorID, &l.VendorUsername, &l.Title, &l.Description, &l.Category,
		&l.Quantity, &l.Unit, &l.PricePerUnit, &l.Country, &l.City, &l.PostalCode, &l.Location,
		&l.Status, &l.CreatedAt, &l.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return l, nil
}

// CreateListing inserts a listing for the given vendor.
func CreateListing(ctx context.Context, listing *models.Listing) error {
	err := DB.QueryRow(ctx,
		`INSERT INTO listings (vendor_id, title, description, category, quantity, unit, price_per_unit,
		                       country, city, postal_code, location, status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		 RETURNING id, created_at, updated_at`,
		listing.VendorID, listing.Title, listing.Description, listing.Category,
		listing.Quantity, listing.Unit, listing.PricePerUnit,
		listing.Country, listing.City, listing.PostalCode, listing.Location, listing.Status,
	).Scan(&listing.ID, &listing.CreatedAt, &listing.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert listing for vendor %d: %w", listing.VendorID, err)
	}
	return nil
}

// GetListingByID retrieves one listing. Returns nil, nil when missing.
func GetListingByID(ctx context.Context, listingID int64) (*models.Listing, error) {
	query := `SELECT ` + listingColumns + ` FROM listings l JOIN users u ON u.id = l.vendor_id WHERE l.id = $1`
	listing, err := scanListing(DB.QueryRow(ctx, query, listingID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get listing %d: %w", listingID, err)
	}
	return listing, nil
}

// BrowseListings returns available listings, optionally narrowed by exact
// category and partial case-insensitive location match.
func BrowseListings(ctx context.Context, category, location string) ([]*models.Listing, error) {
	query := `SELECT ` + listingColumns + ` FROM listings l JOIN users u ON u.id = l.vendor_id
		 WHERE l.status = 'available'`
	args := []interface{}{}

	if category != "" {
		args = append(args, category)
		query += fmt.Sprintf(" AND l.category = $%d", len(args))
	}
	if location != "" {
		args = append(args, "%"+strings.TrimSpace(location)+"%")
		query += fmt.Sprintf(" AND l.location ILIKE $%d", len(args))
	}
	query += " ORDER BY l.created_at DESC"

	return queryListings(ctx, query, args...)
}

// GetVendorListings returns every listing owned by the vendor, any status.
func GetVendorListings(ctx context.Context, vendorID int64) ([]*models.Listing, error) {
	query := `SELECT ` + listingColumns + ` FROM listings l JOIN users u ON u.id = l.vendor_id
		 WHERE l.vendor_id = $1 ORDER BY l.created_at DESC`
	return queryListings(ctx, query, vendorID)
}

func queryListings(ctx context.Context, query string, args ...interface{}) ([]*models.Listing, error) {
	rows, err := DB.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query listings: %w", err)
	}
	defer rows.Close()

	listings := make([]*models.Listing, 0)
	for rows.Next() {
		l, err := scanListing(rows)
		if err != nil {
			return nil, fmt.Errorf("scan listing row: %w", err)
		}
		listings = append(listings, l)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate listing rows: %w", rows.Err())
	}
	return listings, nil
}

// UpdateListing overwrites the vendor-editable fields of a listing.
// Inventory and status changes driven by settlement never go through here.
func UpdateListing(ctx context.Context, listing *models.Listing) error {
	cmdTag, err := DB.Exec(ctx,
		`UPDATE listings
		 SET title = $1, description = $2, category = $3, quantity = $4, unit = $5,
		     price_per_unit = $6, country = $7, city = $8, postal_code = $9, location = $10,
		     updated_at = NOW()
		 WHERE id = $11`,
		listing.Title, listing.Description, listing.Category, listing.Quantity, listing.Unit,
		listing.PricePerUnit, listing.Country, listing.City, listing.PostalCode, listing.Location,
		listing.ID,
	)
	if err != nil {
		return fmt.Errorf("update listing %d: %w", listing.ID, err)
	}
	if cmdTag.RowsAffected() != 1 {
		return fmt.Errorf("listing %d not found", listing.ID)
	}
	return nil
}

// DeleteListing removes a listing. Orders referencing it keep their
// denormalized title; their listing_id becomes NULL via the FK.
func DeleteListing(ctx context.Context, listingID int64) error {
	cmdTag, err := DB.Exec(ctx, `DELETE FROM listings WHERE id = $1`, listingID)
	if err != nil {
		return fmt.Errorf("delete listing %d: %w", listingID, err)
	}
	if cmdTag.RowsAffected() != 1 {
		return fmt.Errorf("listing %d not found", listingID)
	}
	return nil
}
