package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nekogravitycat/stay-booking-backend/internal/auth"
	"github.com/nekogravitycat/stay-booking-backend/internal/pkg/metrics"
	"github.com/nekogravitycat/stay-booking-backend/internal/user"
)

const activeID = "5e6f7a8b-0000-4a5b-8c7d-000000000001"

type stubUsers struct {
	user.Service
	users map[string]*user.User
}

func (s stubUsers) GetByID(_ context.Context, id string) (*user.User, error) {
	u, ok := s.users[id]
	if !ok {
		return nil, user.ErrNotFound
	}
	return u, nil
}

func TestRequireActiveUser(t *testing.T) {
	gin.SetMode(gin.TestMode)
	jwt := auth.NewJWTManager("secret", time.Hour)
	users := stubUsers{users: map[string]*user.User{
		activeID:   {ID: activeID, IsActive: true},
		"inactive": {ID: "inactive", IsActive: false},
	}}

	r := gin.New()
	reached := false
	r.GET("/private", chain(auth.AuthRequired(jwt), RequireActiveUser(users)), func(c *gin.Context) {
		reached = true
		c.Status(http.StatusOK)
	})

	tests := []struct {
		name   string
		userID string
		code   int
	}{
		{"active", activeID, http.StatusOK},
		{"deactivated", "inactive", http.StatusForbidden},
		{"deleted", "ghost", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reached = false
			token, err := jwt.GenerateAccessToken(tt.userID, "")
			require.NoError(t, err)

			req := httptest.NewRequest(http.MethodGet, "/private", nil)
			req.Header.Set("Authorization", "Bearer "+token)
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Equal(t, tt.code, w.Code)
			assert.Equal(t, tt.code == http.StatusOK, reached)
		})
	}

	t.Run("no token stops before lookup", func(t *testing.T) {
		reached = false
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/private", nil))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.False(t, reached)
	})
}

func TestNewRouter_HealthAndMetrics(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := NewRouter(Config{
		UserService: stubUsers{},
		JWTManager:  auth.NewJWTManager("secret", time.Hour),
		Metrics:     metrics.New("stay_test"),
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), `stay_test_http_requests_total{method="GET",route="/healthz",status="200"} 1`))
}

func TestCorsConfig(t *testing.T) {
	prod := corsConfig(Config{IsProduction: true, ProdOrigins: "https://a.example, https://b.example,"})
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, prod.AllowOrigins)

	dev := corsConfig(Config{})
	assert.Contains(t, dev.AllowOrigins, "http://localhost:3000")
	assert.Contains(t, dev.AllowHeaders, "Idempotency-Key")
}
