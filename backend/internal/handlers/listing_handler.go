package handlers

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"github.com/rawlink/marketplace/backend/internal/database"
	"github.com/rawlink/marketplace/backend/internal/middleware"
	"github.com/rawlink/marketplace/backend/internal/models"
)

// ListingRequest is the expected JSON body for creating or updating a listing.
type ListingRequest struct {
	Title        string          `json:"title" validate:"required,max=255"`
	Description  string          `json:"description"`
	Category     string          `json:"category" validate:"required"`
	Quantity     decimal.Decimal `json:"quantity"`
	Unit         string          `json:"unit" validate:"required"`
	PricePerUnit decimal.Decimal `json:"price_per_unit"`
	Country      string          `json:"country"`
	City         string          `json:"city"`
	PostalCode   string          `json:"postal_code"`
	Location     string          `json:"location"`
}

// check validates and normalizes the request. On failure it writes the 400
// response and returns false; the caller must stop without touching storage.
func (r *ListingRequest) check(c *fiber.Ctx) bool {
	r.Title = strings.TrimSpace(r.Title)
	r.Category = strings.ToLower(strings.TrimSpace(r.Category))
	r.Unit = strings.ToLower(strings.TrimSpace(r.Unit))
	if err := validate.Struct(r); err != nil {
		validationErrors(c, err)
		return false
	}
	if !models.ValidCategory(r.Category) {
		c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid category"})
		return false
	}
	if !models.ValidUnit(r.Unit) {
		c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid unit, must be kg or tons"})
		return false
	}
	if r.Quantity.Sign() <= 0 || r.PricePerUnit.Sign() <= 0 {
		c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Quantity and price_per_unit must be positive"})
		return false
	}
	return true
}

// CreateListing creates a listing owned by the authenticated user.
func CreateListing(c *fiber.Ctx) error {
	vendorID, ok := middleware.UserID(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid user ID in token"})
	}

	req := new(ListingRequest)
	if err := c.BodyParser(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse request body"})
	}
	if !req.check(c) {
		return nil
	}

	listing := &models.Listing{
		VendorID:     vendorID,
		Title:        req.Title,
		Description:  req.Description,
		Category:     req.Category,
		Quantity:     req.Quantity,
		Unit:         req.Unit,
		PricePerUnit: req.PricePerUnit,
		Country:      req.Country,
		City:         req.City,
		PostalCode:   req.PostalCode,
		Location:     req.Location,
		Status:       models.ListingAvailable,
	}
	if listing.Country == "" {
		listing.Country = "MY"
	}
	if err := database.CreateListing(c.Context(), listing); err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(listing)
}

// BrowseListings lists available listings, with optional category and
// partial location filters. Public.
func BrowseListings(c *fiber.Ctx) error {
	listings, err := database.BrowseListings(c.Context(), c.Query("category"), c.Query("location"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(listings)
}

// GetListing returns one listing. Public.
func GetListing(c *fiber.Ctx) error {
	listingID, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid listing ID"})
	}

	listing, err := database.GetListingByID(c.Context(), listingID)
	if err != nil {
		return respondError(c, err)
	}
	if listing == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Listing not found"})
	}
	return c.JSON(listing)
}

// GetMyListings lists everything the authenticated vendor has posted.
func GetMyListings(c *fiber.Ctx) error {
	vendorID, ok := middleware.UserID(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid user ID in token"})
	}

	listings, err := database.GetVendorListings(c.Context(), vendorID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(listings)
}

// UpdateListing replaces the vendor-editable fields of an owned listing.
func UpdateListing(c *fiber.Ctx) error {
	listing, err := ownedListing(c)
	if err != nil || listing == nil {
		return err
	}

	req := new(ListingRequest)
	if err := c.BodyParser(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse request body"})
	}
	if !req.check(c) {
		return nil
	}

	listing.Title = req.Title
	listing.Description = req.Description
	listing.Category = req.Category
	listing.Quantity = req.Quantity
	listing.Unit = req.Unit
	listing.PricePerUnit = req.PricePerUnit
	listing.Country = req.Country
	listing.City = req.City
	listing.PostalCode = req.PostalCode
	listing.Location = req.Location

	if err := database.UpdateListing(c.Context(), listing); err != nil {
		return respondError(c, err)
	}
	return c.JSON(listing)
}

// DeleteListing removes an owned listing. Orders keep their denormalized
// listing title.
func DeleteListing(c *fiber.Ctx) error {
	listing, err := ownedListing(c)
	if err != nil || listing == nil {
		return err
	}

	if err := database.DeleteListing(c.Context(), listing.ID); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// ownedListing loads the listing from the path and enforces the Owned
// capability: only the owner may mutate it. On failure it writes the
// response and returns a nil listing.
func ownedListing(c *fiber.Ctx) (*models.Listing, error) {
	userID, ok := middleware.UserID(c)
	if !ok {
		return nil, c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid user ID in token"})
	}

	listingID, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return nil, c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid listing ID"})
	}

	listing, err := database.GetListingByID(c.Context(), listingID)
	if err != nil {
		return nil, respondError(c, err)
	}
	if listing == nil {
		return nil, c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Listing not found"})
	}

	var owned models.Owned = listing
	if owned.OwnerID() != userID {
		return nil, c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "You do not own this listing"})
	}
	return listing, nil
}
