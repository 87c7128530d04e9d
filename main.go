package main

import (
	"log"
	"os"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberSwagger "github.com/swaggo/fiber-swagger"

	"linkatelier/api-gateway/config"
	_ "linkatelier/api-gateway/docs"
	"linkatelier/api-gateway/handlers"
	"linkatelier/api-gateway/middleware"
)

// @title LinkAtelier API
// @version 1.0
// @description Board and card curation API with the Atelier spatial layout.
// @BasePath /api/v1
func main() {
	config.InitLogger()

	if err := config.InitSupabase(); err != nil {
		log.Fatalf("Failed to initialize Supabase: %v", err)
	}

	app := fiber.New()

	// Extension routes set their own credentialed CORS headers; the global
	// wildcard policy must not touch them.
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept",
		Next: func(c *fiber.Ctx) bool {
			return strings.HasPrefix(c.Path(), "/api/v1/extension")
		},
	}))
	app.Use(middleware.RequestLogger())

	h := handlers.NewApplicationHandler(config.Log, config.GetSupabaseClient())

	// Health check route
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"status":  "ok",
			"message": "API Gateway is healthy",
		})
	})

	app.Get("/swagger/*", fiberSwagger.WrapHandler)

	apiV1 := app.Group("/api/v1")

	// Auth routes
	auth := apiV1.Group("/auth")
	auth.Post("/signup", h.Signup)
	auth.Post("/login", h.Login)
	auth.Post("/logout", h.Logout)
	auth.Get("/me", middleware.RequireAuth(), h.Me)

	// Board routes
	boards := apiV1.Group("/boards")
	boards.Get("", middleware.RequireAuth(), h.ListBoards)
	boards.Post("", middleware.RequireAuth(), h.CreateBoard)
	boards.Post("/invite", middleware.RequireAuth(), h.CreateInvite)
	boards.Get("/:boardId", middleware.OptionalAuth(), h.GetBoard)
	boards.Patch("/:boardId", middleware.RequireAuth(), h.UpdateBoard)
	boards.Delete("/:boardId", middleware.RequireAuth(), h.DeleteBoard)
	boards.Post("/:boardId/restore", middleware.RequireAuth(), h.RestoreBoard)

	// Atelier layout routes
	boards.Get("/:boardId/atelier-layout", middleware.OptionalAuth(), h.GetAtelierLayout)
	boards.Patch("/:boardId/atelier-layout", middleware.RequireAuth(), h.PatchAtelierLayout)

	// Card routes within a board
	boardCards := boards.Group("/:boardId/cards")
	boardCards.Get("", middleware.OptionalAuth(), h.ListCards)
	boardCards.Post("", middleware.RequireAuth(), h.CreateCard)
	boardCards.Patch("/:cardId", middleware.RequireAuth(), h.UpdateCard)
	boardCards.Delete("/:cardId", middleware.RequireAuth(), h.DeleteCard)
	boardCards.Post("/:cardId/restore", middleware.RequireAuth(), h.RestoreCard)

	// Invite redemption
	apiV1.Post("/invites/:token/redeem", middleware.RequireAuth(), h.RedeemInvite)

	// Profile routes
	apiV1.Get("/profile", middleware.RequireAuth(), h.GetProfile)
	apiV1.Put("/profile", middleware.RequireAuth(), h.UpsertProfile)

	// Browser extension routes
	extension := apiV1.Group("/extension")
	extension.Options("/*", h.ExtensionPreflight)
	extension.Get("/boards", middleware.RequireAuth(), h.ExtensionBoards)
	extension.Post("/save", middleware.RequireAuth(), h.ExtensionSave)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	config.Log.Infof("Starting API Gateway on port %s...", port)
	log.Fatal(app.Listen(":" + port))
}
