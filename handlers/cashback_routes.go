// handlers/cashback_routes.go
package handlers

import (
	"github.com/Serhat17/bonkback-sub000/middleware"
	"github.com/Serhat17/bonkback-sub000/services"

	"github.com/gofiber/fiber/v2"
)

// SetupCashbackRoutes wires the transaction lifecycle endpoints.
// The gateway forwards paths like /api/v1/bonkback/s/cashback/... -> /s/cashback/...
func SetupCashbackRoutes(app *fiber.App, ledger *services.LedgerService) {
	// 🔐 Secured routes — require user context from the Gateway
	secured := app.Group("/s/cashback", middleware.UserContextMiddleware())
	secured.Post("/purchases", ledger.CreatePurchaseCashbackHandler)
	secured.Post("/demo", ledger.CreateDemoCashbackHandler)
	secured.Get("/available", ledger.AvailableCashbackHandler)

	// Admin/merchant-event routes — gateway token only (no user context)
	admin := app.Group("/admin/cashback")
	admin.Post("/transactions/:id/approve", ledger.ApproveTransactionHandler)
	admin.Post("/transactions/:id/return", ledger.MarkReturnedHandler)
}
