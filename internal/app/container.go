package app

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/nekogravitycat/stay-booking-backend/internal/api"
	"github.com/nekogravitycat/stay-booking-backend/internal/auth"
	"github.com/nekogravitycat/stay-booking-backend/internal/booking"
	"github.com/nekogravitycat/stay-booking-backend/internal/photo"
	"github.com/nekogravitycat/stay-booking-backend/internal/pkg/events"
	"github.com/nekogravitycat/stay-booking-backend/internal/pkg/metrics"
	"github.com/nekogravitycat/stay-booking-backend/internal/pkg/retry"
	"github.com/nekogravitycat/stay-booking-backend/internal/pkg/storage"
	"github.com/nekogravitycat/stay-booking-backend/internal/pricing"
	"github.com/nekogravitycat/stay-booking-backend/internal/property"
	"github.com/nekogravitycat/stay-booking-backend/internal/user"
)

// Config holds the dependencies and settings required to start the application.
type Config struct {
	IsProduction bool
	ProdOrigins  string
	DBPool       *pgxpool.Pool
	JWTSecret    string
	JWTTTL       time.Duration
	BcryptCost   int

	ServiceFeeRate decimal.Decimal
	TaxRate        decimal.Decimal
	RetryPolicy    retry.Policy

	// Publisher receives booking events; nil drops them.
	Publisher      events.Publisher
	StoragePath    string
	MaxUploadBytes int64
	MetricsEnabled bool
}

// Container holds the initialized components that are needed externally.
type Container struct {
	Router         *gin.Engine
	JWTManager     *auth.JWTManager
	Metrics        *metrics.Metrics
	BookingService booking.Service
}

// NewContainer initializes all modules and returns the container.
func NewContainer(cfg Config) (*Container, error) {
	// Init Components
	passwordHasher := auth.NewBcryptPasswordHasher(cfg.BcryptCost)
	jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.JWTTTL)
	engine := pricing.NewEngine(cfg.ServiceFeeRate, cfg.TaxRate)

	var m *metrics.Metrics
	if cfg.MetricsEnabled {
		m = metrics.New("stay_booking")
	}

	publisher := cfg.Publisher
	if publisher == nil {
		publisher = events.NopPublisher{}
	}

	store, err := storage.NewLocalStorage(cfg.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("init photo storage: %w", err)
	}

	// User Module
	userRepo := user.NewPgxRepository(cfg.DBPool, cfg.RetryPolicy)
	userService := user.NewService(userRepo, passwordHasher, user.Options{})

	// Property Module
	propertyRepo := property.NewPgxRepository(cfg.DBPool, cfg.RetryPolicy)
	propertyService := property.NewService(propertyRepo)

	// Booking Module
	bookingOpts := booking.Options{Publisher: publisher}
	if m != nil {
		bookingOpts.Recorder = m
	}
	bookingRepo := booking.NewPgxRepository(cfg.DBPool, cfg.RetryPolicy)
	bookingService := booking.NewService(bookingRepo, propertyService, engine, bookingOpts)

	// Photo Module
	photoRepo := photo.NewPgxRepository(cfg.DBPool, cfg.RetryPolicy)
	photoService := photo.NewService(photoRepo, propertyService, store, cfg.MaxUploadBytes)

	// Router
	router := api.NewRouter(api.Config{
		IsProduction:    cfg.IsProduction,
		ProdOrigins:     cfg.ProdOrigins,
		UserService:     userService,
		PropertyService: propertyService,
		BookingService:  bookingService,
		PhotoService:    photoService,
		JWTManager:      jwtManager,
		Metrics:         m,
		MaxUploadBytes:  cfg.MaxUploadBytes,
	})

	return &Container{
		Router:         router,
		JWTManager:     jwtManager,
		Metrics:        m,
		BookingService: bookingService,
	}, nil
}
