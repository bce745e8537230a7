package server

import (
	"github.com/Anvoria/walletauth/internal/domain/account"
	"github.com/Anvoria/walletauth/internal/domain/auth"
	"github.com/Anvoria/walletauth/internal/domain/device"
	"github.com/Anvoria/walletauth/internal/domain/session"
	"github.com/gofiber/fiber/v2"
)

// SetupRoutes sets up the routes for the application
func SetupRoutes(app *fiber.App, deps *Dependencies) {
	sessionHandler := session.NewHandler(deps.Sessions)
	accountHandler := account.NewHandler(deps.Accounts)
	deviceHandler := device.NewHandler(deps.Trust, deps.Storage.Devices, deps.Storage.Executor, deps.RedirectURL)

	requireSession := auth.RequireSession(deps.Checker)
	requireDevice := device.RequireChallenge(deps.Verifier)

	app.Get("/metrics", deps.Metrics.Handler())
	app.Get("/wallet/register_device/:token<guid>", deviceHandler.ConfirmFromLink)

	api := app.Group("/v1")

	api.Get("/health", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"status": "ok",
		})
	})

	sessions := api.Group("/sessions")
	sessions.Post("/", sessionHandler.Issue)
	sessions.Post("/refresh", requireSession, sessionHandler.Refresh)
	sessions.Post("/revoke", requireSession, sessionHandler.Revoke)

	users := api.Group("/users")
	users.Post("/", accountHandler.SignUp)
	users.Get("/me", requireSession, accountHandler.Me)
	users.Post("/add_device", requireSession, deviceHandler.AddDevice)
	users.Post("/confirm_add_device", deviceHandler.ConfirmAddDevice)

	api.Get("/devices", requireSession, requireDevice, deviceHandler.List)
}
