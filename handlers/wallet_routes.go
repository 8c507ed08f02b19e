// handlers/wallet_routes.go
package handlers

import (
	"github.com/Serhat17/bonkback-sub000/middleware"
	"github.com/Serhat17/bonkback-sub000/services"

	"github.com/gofiber/fiber/v2"
)

// SetupWalletRoutes wires the read-side wallet endpoints plus the admin
// risk-hold endpoints.
func SetupWalletRoutes(app *fiber.App, balances *services.BalanceService, locks *services.LockService, statements *services.StatementService) {
	secured := app.Group("/s/wallet", middleware.UserContextMiddleware())
	secured.Get("/balances", balances.GetWalletBalancesHandler)
	secured.Get("/payout-eligibility", balances.PayoutEligibilityHandler)
	secured.Get("/statements/latest", statements.LatestStatementHandler)

	admin := app.Group("/admin/locks")
	admin.Post("/", locks.CreateLockHandler)
	admin.Delete("/:id", locks.ReleaseLockHandler)
}
