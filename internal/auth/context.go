package auth

import "github.com/gin-gonic/gin"

// Gin context keys populated by AuthRequired.
const (
	ContextUserID = "userID"
	ContextEmail  = "userEmail"
)

// GetUserID returns the authenticated user's ID or empty string.
// Handlers pass it straight to services as the acting user.
func GetUserID(c *gin.Context) string {
	return c.GetString(ContextUserID)
}

// GetUserEmail returns the authenticated user's email or empty string.
func GetUserEmail(c *gin.Context) string {
	return c.GetString(ContextEmail)
}

// SetUser stores the acting user on the context.
func SetUser(c *gin.Context, userID, email string) {
	c.Set(ContextUserID, userID)
	c.Set(ContextEmail, email)
}
