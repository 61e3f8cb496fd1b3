package api

import (
	"net/http"
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/nekogravitycat/stay-booking-backend/internal/auth"
	"github.com/nekogravitycat/stay-booking-backend/internal/booking"
	bookingHttp "github.com/nekogravitycat/stay-booking-backend/internal/booking/http"
	"github.com/nekogravitycat/stay-booking-backend/internal/photo"
	photoHttp "github.com/nekogravitycat/stay-booking-backend/internal/photo/http"
	"github.com/nekogravitycat/stay-booking-backend/internal/pkg/metrics"
	"github.com/nekogravitycat/stay-booking-backend/internal/property"
	propertyHttp "github.com/nekogravitycat/stay-booking-backend/internal/property/http"
	"github.com/nekogravitycat/stay-booking-backend/internal/user"
	userHttp "github.com/nekogravitycat/stay-booking-backend/internal/user/http"
)

// Config holds everything the router needs to assemble middleware and module routes.
type Config struct {
	IsProduction bool
	ProdOrigins  string

	UserService     user.Service
	PropertyService property.Service
	BookingService  booking.Service
	PhotoService    photo.Service
	JWTManager      *auth.JWTManager

	// Metrics is optional; nil disables request metrics and /metrics.
	Metrics *metrics.Metrics
	// MaxUploadBytes caps multipart memory for photo uploads.
	MaxUploadBytes int64
}

// NewRouter initializes the HTTP router engine.
// It is responsible for assembling middleware (CORS, Logger, Auth) and registering routes for various modules.
func NewRouter(cfg Config) *gin.Engine {
	if cfg.IsProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Global Middleware:
	// - Logger: Logs request information to the console.
	// - Recovery: Captures panics to prevent server crashes and returns a 500 error.
	r.Use(gin.Logger(), gin.Recovery())
	if cfg.MaxUploadBytes > 0 {
		r.MaxMultipartMemory = cfg.MaxUploadBytes
	}

	r.Use(cors.New(corsConfig(cfg)))

	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware())
		r.GET("/metrics", gin.WrapH(cfg.Metrics.Handler()))
	}

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// authMiddleware: valid JWT whose user still exists and is active.
	authMiddleware := chain(
		auth.AuthRequired(cfg.JWTManager),
		RequireActiveUser(cfg.UserService),
	)

	// Initialize HTTP Handlers for each module (injecting Service dependencies).
	userHandler := userHttp.NewHandler(cfg.UserService, cfg.JWTManager)
	propertyHandler := propertyHttp.NewHandler(cfg.PropertyService)
	bookingHandler := bookingHttp.NewHandler(cfg.BookingService)
	photoHandler := photoHttp.NewHandler(cfg.PhotoService)

	// Register API routes under /v1
	v1 := r.Group("/v1")
	{
		userHttp.RegisterRoutes(v1, userHandler, authMiddleware)
		propertyHttp.RegisterRoutes(v1, propertyHandler, authMiddleware)
		bookingHttp.RegisterRoutes(v1, bookingHandler, authMiddleware)
		photoHttp.RegisterRoutes(v1, photoHandler, authMiddleware)
	}

	return r
}

func corsConfig(cfg Config) cors.Config {
	config := cors.DefaultConfig()
	if cfg.IsProduction && cfg.ProdOrigins != "" {
		var origins []string
		for _, o := range strings.Split(cfg.ProdOrigins, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
		config.AllowOrigins = origins
	} else {
		config.AllowOrigins = []string{
			"http://localhost:3000",
			"http://localhost:8081", // Swagger
		}
	}
	config.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	config.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "Idempotency-Key"}
	config.ExposeHeaders = []string{"Retry-After"}
	return config
}
