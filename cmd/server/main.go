package main

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"objectstore/internal/apperr"
	"objectstore/internal/config"
	"objectstore/internal/httpapi"
	"objectstore/internal/instrument"
	"objectstore/internal/objectstore"
)

func main() {
	ctx := context.Background()

	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	log.Printf("Config loaded (port: %d, metadata table: %s)", cfg.Server.Port, cfg.MetadataTable)

	// 2. Build the store: opens the pool, ensures the metadata and event
	// tables exist, and starts the ambient event buffer.
	store, err := objectstore.New(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to build object store: %v", err)
	}
	defer store.Close()
	log.Println("Object store ready")

	// 3. Create Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler: errorHandler,
	})
	app.Use(recover.New(recover.Config{
		EnableStackTrace: true,
	}))
	app.Use(logger.New(logger.Config{
		Format: "${time} ${status} ${method} ${path} ${latency}\n",
	}))

	// 4. Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	// 5. Register schema/instance routes
	apiHandler := httpapi.NewHandler(store)
	httpapi.RegisterRoutes(app, apiHandler)

	// 6. Register event inspection routes
	eventHandler := instrument.NewEventHandler(store.Pool().Pool)
	app.Post("/_events", eventHandler.Emit)
	app.Get("/_events", eventHandler.List)
	app.Get("/_events/trace/:traceId", eventHandler.GetTrace)
	app.Get("/_events/stats", eventHandler.GetStats)

	// 7. Start server
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	log.Printf("Starting server on %s", addr)
	log.Fatal(app.Listen(addr))
}

func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		code = fiberErr.Code
	}

	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		return c.Status(appErr.Status).JSON(fiber.Map{"error": appErr})
	}

	log.Printf("ERROR: %v", err)
	return c.Status(code).JSON(fiber.Map{
		"error": &apperr.Error{Code: "INTERNAL_ERROR", Message: "Internal server error"},
	})
}
