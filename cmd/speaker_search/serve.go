package main

import (
	"fmt"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/spf13/cobra"

	"speaker-events-finder/internal/api"
	"speaker-events-finder/internal/services"
)

const shutdownTimeout = 10 * time.Second

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the speaker search over HTTP",
	Long: `Start an HTTP server exposing:

  GET /events/search?name=<speaker>&filter=<in-person|online>
  GET /healthz
  GET /metrics`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}

		metrics := services.NewMetrics()
		finder, err := newFinder(cmd.Context(), cfg, metrics)
		if err != nil {
			return fmt.Errorf("building pipeline: %w", err)
		}

		addr := serveAddr
		if addr == "" {
			addr = cfg.HTTPAddr
		}

		app := newServer(finder, metrics)

		errCh := make(chan error, 1)
		go func() {
			log.Printf("[SERVER] Listening on %s", addr)
			errCh <- app.Listen(addr)
		}()

		select {
		case err := <-errCh:
			return err
		case <-cmd.Context().Done():
			log.Printf("[SERVER] Shutting down")
			return app.ShutdownWithTimeout(shutdownTimeout)
		}
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default $HTTP_ADDR or :8080)")
	rootCmd.AddCommand(serveCmd)
}

// newServer builds the fiber app serving the search endpoint, health check and metrics
func newServer(finder api.Finder, metrics *services.Metrics) *fiber.App {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
	})

	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,OPTIONS",
	}))

	app.Get(api.SearchPath, func(c *fiber.Ctx) error {
		body, status := api.HandleSearch(c.UserContext(), finder, map[string]string{
			"name":   c.Query("name"),
			"filter": c.Query("filter"),
		})
		return c.Status(status).JSON(body)
	})

	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	if metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))
	}

	app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(api.ErrorBody{Error: "Not found"})
	})

	return app
}
