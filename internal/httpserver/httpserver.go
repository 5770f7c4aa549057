// Package httpserver builds the fiber application shared by the API and its
// handler tests.
package httpserver

import (
	"errors"

	"github.com/TryAwesome/CVibe-sub002/pkg/errx"
	"github.com/TryAwesome/CVibe-sub002/pkg/logx"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

type Options struct {
	AppName       string
	AccessLog     bool
	AllowedOrigin string
}

// New creates the app with the global error handler and common middleware
func New(opts Options) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               opts.AppName,
		DisableStartupMessage: true,
		ErrorHandler:          ErrorHandler,
	})

	app.Use(recover.New())

	origin := opts.AllowedOrigin
	if origin == "" {
		origin = "*"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins: origin,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-API-Key",
		AllowMethods: "GET, POST, PUT, DELETE, PATCH, HEAD",
	}))

	if opts.AccessLog {
		app.Use(logger.New(logger.Config{
			Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
		}))
	}
	return app
}

// ErrorHandler converts internal errors to standard HTTP responses
func ErrorHandler(c *fiber.Ctx, err error) error {
	// Fiber errors (e.g. 404 route not found)
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return c.Status(fe.Code).JSON(fiber.Map{
			"error": fe.Message,
			"code":  fe.Code,
		})
	}

	if e, ok := errx.As(err); ok {
		if e.HTTPStatus >= fiber.StatusInternalServerError {
			logx.Errorf("Request %s %s failed: %v", c.Method(), c.Path(), err)
		}
		return c.Status(e.HTTPStatus).JSON(e.ToHTTPResponse())
	}

	logx.Errorf("Internal Server Error: %v", err)
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error":   "Internal Server Error",
		"type":    "INTERNAL",
		"code":    "INTERNAL_ERROR",
		"message": "An unexpected error occurred",
	})
}
