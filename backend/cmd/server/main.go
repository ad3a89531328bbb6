package main

import (
	"context"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/rawlink/marketplace/backend/internal/auth"
	"github.com/rawlink/marketplace/backend/internal/chat"
	"github.com/rawlink/marketplace/backend/internal/config"
	"github.com/rawlink/marketplace/backend/internal/database"
	"github.com/rawlink/marketplace/backend/internal/handlers"
	"github.com/rawlink/marketplace/backend/internal/logger"
	"github.com/rawlink/marketplace/backend/internal/middleware"
	"github.com/rawlink/marketplace/backend/internal/settlement"
)

func main() {
	logger.Init()
	cfg := config.Load()
	auth.Configure(cfg.JWTSecret, cfg.TokenTTL)

	if err := database.RunMigrations(cfg.DatabaseURL, cfg.MigrationsPath); err != nil {
		log.Fatal().Err(err).Msg("migrations failed")
	}
	if err := database.InitDB(context.Background(), cfg.DatabaseURL); err != nil {
		log.Fatal().Err(err).Msg("database init failed")
	}
	defer database.CloseDB()

	// Core components
	settlement.InitEngine(database.NewSettlementStore())
	chat.InitChat(database.ChatStore{})
	authenticator := chat.NewAuthenticator(database.ChatStore{})

	app := fiber.New()
	app.Use(cors.New())

	// --- WebSocket route ---
	// Authentication happens before the upgrade; a rejected connection never
	// joins a delivery group.
	app.Get("/ws/chat", handlers.ChatUpgrade(authenticator), websocket.New(handlers.ChatWSEndpoint))

	// --- API routes ---
	api := app.Group("/api")

	api.Get("/health", func(c *fiber.Ctx) error {
		return c.SendString("RawLink API is healthy!")
	})
	api.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	// Listing reads are public; my-listings carries its own auth and must be
	// registered before the :id route
	api.Get("/listings", handlers.BrowseListings)
	api.Get("/listings/my-listings", middleware.Protected(), handlers.GetMyListings)
	api.Get("/listings/:id", handlers.GetListing)

	// Auth routes (public, rate limited)
	authLimiter := middleware.NewRateLimiter(5, 10, 10*time.Minute)
	authGroup := api.Group("/auth", authLimiter.Handler())
	authGroup.Post("/signup", handlers.Signup)
	authGroup.Post("/login", handlers.Login)

	// Everything below requires a bearer token
	api.Use(middleware.Protected())

	// Listing mutation, owner gated
	api.Post("/listings", handlers.CreateListing)
	api.Put("/listings/:id", handlers.UpdateListing)
	api.Delete("/listings/:id", handlers.DeleteListing)

	// Profile
	api.Get("/profiles/me", handlers.GetMyProfile)
	api.Put("/profiles/me", handlers.UpdateMyProfile)

	// Wallet
	api.Get("/wallets/me", handlers.GetMyWallet)
	api.Post("/wallets/credit", handlers.AddCredit)

	// Orders
	api.Post("/orders", handlers.PlaceOrder)
	api.Get("/orders", handlers.GetOrders)
	api.Get("/orders/:id", handlers.GetOrderByID)
	api.Patch("/orders/:id/status", handlers.UpdateOrderStatus)

	// Messages
	api.Get("/messages", handlers.GetMessages)
	api.Get("/messages/chat-history/:user_id", handlers.ChatHistory)

	log.Info().Str("port", cfg.Port).Msg("starting server")
	log.Fatal().Err(app.Listen(":" + cfg.Port)).Msg("server stopped")
}
