package http

import "github.com/gin-gonic/gin"

// RegisterRoutes registers property photo routes.
func RegisterRoutes(g *gin.RouterGroup, h *Handler, authMiddleware gin.HandlerFunc) {
	properties := g.Group("/properties")
	photos := g.Group("/photos")

	// === Public Routes ===
	properties.GET("/:id/photos", h.List)
	photos.GET("/:id", h.Serve)
	photos.GET("/:id/thumbnail", h.ServeThumbnail)

	// === Authenticated Routes ===
	properties.POST("/:id/photos", authMiddleware, h.Upload) // Host uploads an image
	photos.DELETE("/:id", authMiddleware, h.Delete)          // Host removes an image
}
