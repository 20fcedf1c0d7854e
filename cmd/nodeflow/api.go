package main

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/logger"

	"github.com/dukex/nodeflow/pkg/web"
)

type API struct {
	logger   *slog.Logger
	handlers *web.APIHandlers
}

func NewAPI(logger *slog.Logger, handlers *web.APIHandlers) *API {
	return &API{logger: logger, handlers: handlers}
}

func (a *API) App() *fiber.App {
	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("Nodeflow API")
	})

	a.handlers.Register(app)

	return app
}

// Start serves until ctx is canceled.
func (a *API) Start(ctx context.Context, port int) error {
	app := a.App()

	go func() {
		<-ctx.Done()

		if err := app.Shutdown(); err != nil {
			a.logger.Error("Failed to shut down API", "error", err)
		}
	}()

	return app.Listen(":" + strconv.Itoa(port))
}
