package http

import (
	"github.com/gin-gonic/gin"
)

// RegisterRoutes registers booking routes and the booking views nested under properties.
func RegisterRoutes(g *gin.RouterGroup, h *Handler, authMiddleware gin.HandlerFunc) {
	group := g.Group("/bookings")

	// === Authenticated Routes ===
	group.Use(authMiddleware)
	{
		group.GET("", h.List)                      // List my bookings as guest or host
		group.POST("", h.Create)                   // Request a stay
		group.GET("/:id", h.Get)                   // Booking details for guest or host
		group.PATCH("/:id/status", h.UpdateStatus) // Confirm or cancel
	}

	props := g.Group("/properties")
	props.POST("/:id/quote", h.Quote)
	props.GET("/:id/availability", h.Availability)

	authed := props.Group("", authMiddleware)
	{
		authed.GET("/:id/active-booking", h.ActiveBooking) // Caller's upcoming stay
		authed.GET("/:id/bookings", h.ListForProperty)     // Host view
	}
}
