package http

import (
	"github.com/gin-gonic/gin"
)

// RegisterRoutes registers property-related routes.
func RegisterRoutes(g *gin.RouterGroup, h *Handler, authMiddleware gin.HandlerFunc) {
	group := g.Group("/properties")

	// === Public Routes ===
	group.GET("", h.List)
	group.GET("/:id", h.Get)

	// === Authenticated Routes ===
	authed := group.Group("", authMiddleware)
	{
		authed.POST("", h.Create)                                 // Create listing as host
		authed.PATCH("/:id", h.Update)                            // Update listing
		authed.PUT("/:id/custom-prices", h.SetCustomPrices)       // Override nightly prices
		authed.DELETE("/:id/custom-prices", h.RemoveCustomPrices) // Reset to default prices
		authed.POST("/:id/blocked-dates", h.BlockDates)           // Close nights
		authed.DELETE("/:id/blocked-dates", h.UnblockDates)       // Reopen nights
	}
}
