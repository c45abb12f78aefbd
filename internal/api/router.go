package api

import (
	"log/slog"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/welldanyogia/brandocs-backend/internal/api/handlers"
	"github.com/welldanyogia/brandocs-backend/internal/api/middleware"
	"github.com/welldanyogia/brandocs-backend/internal/logger"
	"github.com/welldanyogia/brandocs-backend/internal/repository"
	"github.com/welldanyogia/brandocs-backend/internal/storage"
	"github.com/welldanyogia/brandocs-backend/internal/websocket"
	"gorm.io/gorm"
)

// MailboxService probes the mail server and reports the poller state
type MailboxService interface {
	handlers.ConnectionTester
	handlers.StateReporter
}

// RouterConfig holds dependencies for the router
type RouterConfig struct {
	DB          *gorm.DB
	FileStorage storage.FileStorage
	Checker     handlers.LatestChecker
	Mailbox     MailboxService
	Hub         *websocket.Hub
	Logger      *slog.Logger

	// Rendering
	Location *time.Location
	PerPage  int

	// Security configuration
	BasicAuthUsername string
	BasicAuthPassword string
	AllowedOrigins    []string
	Production        bool
	RateLimiter       *middleware.IPRateLimiter // nil disables rate limiting
}

// NewRouter creates and configures the Echo router with all routes
func NewRouter(cfg *RouterConfig) *echo.Echo {
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	sec := logger.NewSecurityLoggerFrom(log)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.SecureHeaders())
	e.Use(middleware.SecureCORS(cfg.AllowedOrigins, cfg.Production))
	if cfg.RateLimiter != nil {
		e.Use(middleware.RateLimiter(cfg.RateLimiter, sec))
	}
	e.Use(middleware.RequestLogger(log))
	e.Use(middleware.BasicAuth(cfg.BasicAuthUsername, cfg.BasicAuthPassword, sec, log))

	companyRepo := repository.NewCompanyRepository(cfg.DB)
	emailRepo := repository.NewEmailRepository(cfg.DB)

	healthHandler := handlers.NewHealthHandler(cfg.DB, cfg.Mailbox)
	companyHandler := handlers.NewCompanyHandler(companyRepo)
	emailHandler := handlers.NewEmailHandler(emailRepo, cfg.FileStorage, cfg.Location, cfg.PerPage, sec, log)

	// Health routes (no auth required)
	e.GET("/health", healthHandler.Health)
	e.GET("/ready", healthHandler.Ready)

	api := e.Group("/api")

	if cfg.Checker != nil {
		checkHandler := handlers.NewCheckHandler(cfg.Checker)
		e.GET("/check-latest", checkHandler.CheckLatest)
		api.POST("/check", checkHandler.CheckLatest)
	}
	if cfg.Mailbox != nil {
		mailboxHandler := handlers.NewMailboxHandler(cfg.Mailbox, log)
		api.GET("/mailbox/test", mailboxHandler.TestConnection)
	}
	if cfg.Hub != nil {
		wsHandler := handlers.NewWebSocketHandler(cfg.Hub, companyRepo, cfg.AllowedOrigins, log)
		e.GET("/ws", wsHandler.Handle)
	}

	// Company routes
	companies := api.Group("/companies")
	companies.GET("", companyHandler.List)
	companies.POST("", companyHandler.Create)
	companies.GET("/:id", companyHandler.Get)
	companies.PUT("/:id", companyHandler.Update)
	companies.DELETE("/:id", companyHandler.Delete)

	// Email routes
	emails := api.Group("/emails")
	emails.GET("", emailHandler.List)
	emails.GET("/:id", emailHandler.Get)
	emails.DELETE("/:id", emailHandler.Delete)
	emails.GET("/:id/pdf", emailHandler.DownloadPDF)

	api.GET("/stats", emailHandler.Stats)

	return e
}
