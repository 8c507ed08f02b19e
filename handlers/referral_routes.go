// handlers/referral_routes.go
package handlers

import (
	"github.com/Serhat17/bonkback-sub000/middleware"
	"github.com/Serhat17/bonkback-sub000/services"

	"github.com/gofiber/fiber/v2"
)

// SetupReferralRoutes wires referral claiming and the user-facing unlock
// sweep entry point.
func SetupReferralRoutes(app *fiber.App, referrals *services.ReferralService) {
	secured := app.Group("/s/referrals", middleware.UserContextMiddleware())
	secured.Post("/claim", referrals.ClaimReferralHandler)
	secured.Post("/unlock", referrals.UnlockPayoutsHandler)
}
