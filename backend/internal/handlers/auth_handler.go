package handlers

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/rawlink/marketplace/backend/internal/auth"
	"github.com/rawlink/marketplace/backend/internal/database"
	"github.com/rawlink/marketplace/backend/internal/models"
)

// SignupRequest is the expected JSON body for registration.
type SignupRequest struct {
	Username string `json:"username" validate:"required,min=3,max=64"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	Role     string `json:"role" validate:"required,oneof=vendor buyer"`
}

// LoginRequest is the expected JSON body for login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// AuthResponse is returned on successful signup or login.
type AuthResponse struct {
	Token    string       `json:"token"`
	User     *models.User `json:"user"`
	IssuedAt time.Time    `json:"issued_at"`
}

// Signup registers a new account. The user, their profile and their wallet
// are created as one transactional unit.
func Signup(c *fiber.Ctx) error {
	req := new(SignupRequest)
	if err := c.BodyParser(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse request body"})
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Username = strings.TrimSpace(req.Username)
	if err := validate.Struct(req); err != nil {
		return validationErrors(c, err)
	}

	existing, err := database.GetUserByEmail(c.Context(), req.Email)
	if err != nil {
		log.Error().Err(err).Str("email", req.Email).Msg("check existing email")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Database error checking email"})
	}
	if existing != nil {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Email already registered"})
	}

	hashed, err := auth.HashPassword(req.Password)
	if err != nil {
		log.Error().Err(err).Msg("hash password")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to process password"})
	}

	user, err := database.CreateUser(c.Context(), req.Username, req.Email, req.Role, hashed)
	if err != nil {
		log.Error().Err(err).Str("email", req.Email).Msg("create user")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create user"})
	}

	token, err := auth.GenerateJWT(user.ID, user.Username, user.Role)
	if err != nil {
		log.Error().Err(err).Int64("user_id", user.ID).Msg("issue token after signup")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "User created, but failed to generate token"})
	}

	return c.Status(fiber.StatusCreated).JSON(AuthResponse{Token: token, User: user, IssuedAt: time.Now()})
}

// Login authenticates against the stored password hash and issues a token.
func Login(c *fiber.Ctx) error {
	req := new(LoginRequest)
	if err := c.BodyParser(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse request body"})
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if err := validate.Struct(req); err != nil {
		return validationErrors(c, err)
	}

	user, err := database.GetUserByEmail(c.Context(), req.Email)
	if err != nil {
		log.Error().Err(err).Str("email", req.Email).Msg("look up user for login")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Database error during login"})
	}
	if user == nil || !auth.CheckPasswordHash(req.Password, user.Password) {
		// same response for unknown email and wrong password
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid email or password"})
	}

	token, err := auth.GenerateJWT(user.ID, user.Username, user.Role)
	if err != nil {
		log.Error().Err(err).Int64("user_id", user.ID).Msg("issue token on login")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to generate token"})
	}

	return c.JSON(AuthResponse{Token: token, User: user, IssuedAt: time.Now()})
}
