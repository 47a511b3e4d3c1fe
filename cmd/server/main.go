package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/eswatinicommerce/msme-registry-backend/internal/config"
	"github.com/eswatinicommerce/msme-registry-backend/internal/database"
	"github.com/eswatinicommerce/msme-registry-backend/internal/handlers"
	"github.com/eswatinicommerce/msme-registry-backend/internal/middleware"
	"github.com/eswatinicommerce/msme-registry-backend/internal/services"
	"github.com/eswatinicommerce/msme-registry-backend/pkg/jwt"
	"github.com/eswatinicommerce/msme-registry-backend/pkg/mailer"
	"github.com/eswatinicommerce/msme-registry-backend/pkg/validator"
)

var (
	version   = "1.0.0"
	buildTime = "unknown"
)

func main() {
	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)

	logger.Info("Starting MSME Business Registry Backend")
	logger.Infof("Version: %s, Build Time: %s", version, buildTime)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}

	// Set log level
	logLevel, err := logrus.ParseLevel(cfg.Server.LogLevel)
	if err != nil {
		logger.Warn("Invalid log level, using INFO")
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	// Set Gin mode
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	// Initialize database connection
	logger.Info("Connecting to database...")
	db, err := database.NewConnection(cfg.Database)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	logger.Info("Database connection established")

	if err := db.Ping(); err != nil {
		logger.Fatalf("Failed to ping database: %v", err)
	}

	// Initialize repositories
	businessRepository := database.NewBusinessRepository(db)
	counterRepository := database.NewCounterRepository(db)
	snapshotRepository := database.NewSnapshotRepository(db)
	accountRepository := database.NewAccountRepository(db)

	// Initialize mail gateway
	var mailGateway mailer.Mailer
	if cfg.Mail.Mode == "production" {
		logger.Info("Initializing mail gateway in production mode...")
		mailGateway = mailer.NewHTTPGateway(mailer.HTTPGatewayConfig{
			APIURL:    cfg.Mail.APIURL,
			APIKey:    cfg.Mail.APIKey,
			FromName:  cfg.Mail.FromName,
			FromEmail: cfg.Mail.FromEmail,
		})
	} else {
		logger.Info("Mail gateway in development mode (no actual mail will be sent)")
		mailGateway = mailer.NewDevMailer()
	}

	// Initialize services
	logger.Info("Initializing services...")
	jwtService := jwt.NewService(
		cfg.JWT.Secret,
		cfg.JWT.RefreshSecret,
		cfg.JWT.AccessTokenExpiry,
		cfg.JWT.RefreshTokenExpiry,
	)
	ownershipValidator := validator.NewOwnershipValidator()
	counterEventHandler := services.NewCounterEventHandler(counterRepository)
	businessService := services.NewBusinessService(
		businessRepository,
		ownershipValidator,
		counterEventHandler,
		mailGateway,
	)
	rateLimitService := services.NewRateLimitService(db)
	recoveryService := services.NewRecoveryService(
		accountRepository,
		rateLimitService,
		mailGateway,
		cfg.Security.BcryptCost,
	)
	authService := services.NewAuthService(accountRepository, jwtService)
	analyticsService := services.NewAnalyticsService(
		businessRepository,
		counterRepository,
		snapshotRepository,
	)
	reconciliationService := services.NewReconciliationService(
		businessRepository,
		counterRepository,
	)

	// Initialize and start cron service
	cronService := services.NewCronService(
		analyticsService,
		recoveryService,
		rateLimitService,
		reconciliationService,
	)
	if err := cronService.Start(); err != nil {
		logger.Fatalf("Failed to start cron service: %v", err)
	}
	logger.Info("Cron service started")

	logger.Info("Services initialized")

	// Initialize handlers
	businessHandler := handlers.NewBusinessHandler(businessService)
	authHandler := handlers.NewAuthHandler(authService, recoveryService)
	dashboardHandler := handlers.NewDashboardHandler(snapshotRepository)
	adminHandler := handlers.NewAdminHandler(cronService)

	// Initialize Gin router
	router := gin.New()

	// Middleware
	router.Use(gin.Recovery())
	router.Use(requestLogger(logger))

	// CORS configuration
	corsConfig := cors.Config{
		AllowOrigins:     cfg.CORS.AllowedOrigins,
		AllowMethods:     cfg.CORS.AllowedMethods,
		AllowHeaders:     cfg.CORS.AllowedHeaders,
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	router.Use(cors.New(corsConfig))

	// Health check endpoint
	router.GET("/health", healthCheckHandler(db))

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		// Authentication routes (public)
		auth := v1.Group("/auth")
		{
			auth.POST("/login", authHandler.Login)

			forgot := auth.Group("/forgot-password")
			{
				forgot.POST("/request-otp", authHandler.RequestOTP)
				forgot.POST("/verify-otp", authHandler.VerifyOTP)
				forgot.POST("/reset", authHandler.ResetPassword)
			}
		}

		// Business registration routes
		business := v1.Group("/business")
		{
			// Applicant submission is public
			business.POST("", businessHandler.Create)

			// Review and mutation require an authenticated admin
			businessProtected := business.Group("")
			businessProtected.Use(middleware.AuthMiddleware(jwtService))
			businessProtected.Use(middleware.RequireAdmin())
			{
				businessProtected.GET("/:id", businessHandler.Get)
				businessProtected.PUT("/:id/verify", businessHandler.Verify)
				businessProtected.PUT("/:id/category", businessHandler.ReassignCategory)
				businessProtected.DELETE("/:id", businessHandler.Delete)
				businessProtected.DELETE("/:id/purge", businessHandler.Purge)
			}
		}

		// Dashboard routes (protected)
		dashboard := v1.Group("/dashboard")
		dashboard.Use(middleware.AuthMiddleware(jwtService))
		{
			dashboard.GET("/stats", dashboardHandler.GetStats)
			dashboard.GET("/stats/:period", dashboardHandler.GetStatsByPeriod)
		}

		// Admin job management routes
		admin := v1.Group("/admin")
		admin.Use(middleware.AuthMiddleware(jwtService))
		admin.Use(middleware.RequireAdmin())
		{
			admin.GET("/jobs", adminHandler.JobStatus)
			admin.POST("/jobs/daily", adminHandler.TriggerDaily)
			admin.POST("/jobs/monthly", adminHandler.TriggerMonthly)
			admin.POST("/jobs/reconcile", adminHandler.TriggerReconcile)
		}
	}

	// Create HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Infof("Server starting on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	// Stop cron service
	cronService.Stop()

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Errorf("Server forced to shutdown: %v", err)
	}

	logger.Info("Server exited successfully")
}

// requestLogger middleware for logging HTTP requests
func requestLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)

		fields := logrus.Fields{
			"status":     c.Writer.Status(),
			"method":     c.Request.Method,
			"path":       path,
			"query":      query,
			"ip":         c.ClientIP(),
			"latency_ms": latency.Milliseconds(),
			"user_agent": c.Request.UserAgent(),
		}

		entry := logger.WithFields(fields)

		if len(c.Errors) > 0 {
			for i, err := range c.Errors {
				entry = entry.WithField(fmt.Sprintf("error_%d", i), err.Error())
			}
			entry.Error("Request failed with errors")
		} else {
			status := c.Writer.Status()
			if status >= 500 {
				entry.Error("Request completed with server error")
			} else if status >= 400 {
				entry.Warn("Request completed with client error")
			} else {
				entry.Info("Request completed successfully")
			}
		}
	}
}

// healthCheckHandler returns a health check endpoint
func healthCheckHandler(db database.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		dbStatus := "healthy"
		if err := db.Ping(); err != nil {
			dbStatus = "unhealthy"
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":   "unhealthy",
				"database": dbStatus,
				"error":    err.Error(),
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"database":  dbStatus,
			"version":   version,
			"timestamp": time.Now().Unix(),
		})
	}
}
