// Package main provides the main entry point for the ScreenFleet coordination service
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/innoad/screenfleet/app/handlers"
	"github.com/innoad/screenfleet/app/middleware"
	"github.com/innoad/screenfleet/app/router"
	"github.com/innoad/screenfleet/app/scheduler"
	"github.com/innoad/screenfleet/app/services"
	businessflow "github.com/innoad/screenfleet/business_flow"
	"github.com/innoad/screenfleet/config"
	"github.com/innoad/screenfleet/fleet"
	"github.com/innoad/screenfleet/logging"
	"github.com/innoad/screenfleet/repository"
)

// Application represents the main application structure
type Application struct {
	router    *router.FiberRouter
	config    *config.ProductionConfig
	server    *fiber.App
	stopFuncs []func()
}

func main() {
	log.Println("Starting ScreenFleet application...")

	// Load production configuration
	cfg, err := config.LoadProductionConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize application
	app, err := initializeApplication(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}

	// Setup routes
	app.router.SetupRoutes()

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// Start server in goroutine
	go func() {
		address := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		log.Printf("Server starting on %s", address)

		if err := app.server.Listen(address); err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for shutdown signal
	<-sigChan
	log.Println("Shutting down gracefully...")

	// Stop background workers
	for _, fn := range app.stopFuncs {
		fn()
	}

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := app.server.ShutdownWithContext(shutdownCtx); err != nil {
		log.Printf("Error during shutdown: %v", err)
	}

	log.Println("Server stopped")
}

// initializeDatabase initializes the database connection with connection pooling
func initializeDatabase(cfg config.DatabaseConfig) (*gorm.DB, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Name, cfg.SSLMode)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Get underlying sql.DB for connection pooling configuration
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	// Configure connection pooling
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	// Test the connection
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Printf("Database connection established with %d max open connections, %d max idle connections",
		cfg.MaxOpenConns, cfg.MaxIdleConns)

	return db, nil
}

// initializeCache initializes the Redis client and verifies connectivity
func initializeCache(cfg config.CacheConfig) (*redis.Client, error) {
	if !cfg.Enabled || cfg.Provider != "redis" {
		return nil, nil
	}

	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	// Override DB if provided in config
	opt.DB = cfg.RedisDB

	rc := redis.NewClient(opt)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rc.Ping(ctx).Err(); err != nil {
		_ = rc.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	log.Printf("Redis connection established to %s (db=%d)", cfg.RedisURL, cfg.RedisDB)
	return rc, nil
}

// loadProjection hydrates the in-memory store from the database: every
// non-finished campaign plus all screens and contents. Finished campaigns
// stay behind; they can never transition again and the resolver ignores them.
func loadProjection(
	ctx context.Context,
	store *fleet.Store,
	campaignRepo repository.CampaignRepository,
	screenRepo repository.ScreenRepository,
	contentRepo repository.ContentRepository,
) error {
	screens, err := screenRepo.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to load screens: %w", err)
	}
	for _, s := range screens {
		store.PutScreen(*s)
	}

	contents, err := contentRepo.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to load contents: %w", err)
	}
	for _, c := range contents {
		store.PutContent(*c)
	}

	campaigns, err := campaignRepo.ListUnfinished(ctx)
	if err != nil {
		return fmt.Errorf("failed to load campaigns: %w", err)
	}
	for _, c := range campaigns {
		store.PutCampaign(*c)
	}

	log.Printf("Projection loaded: %d screens, %d contents, %d campaigns",
		len(screens), len(contents), len(campaigns))
	return nil
}

// initializeApplication initializes the main application components
func initializeApplication(cfg *config.ProductionConfig) (*Application, error) {
	var stopFuncs []func()

	logger := logging.New(cfg.Logging)

	// Initialize database
	db, err := initializeDatabase(cfg.Database)
	if err != nil {
		return nil, err
	}

	rc, err := initializeCache(cfg.Cache)
	if err != nil {
		return nil, err
	}

	// Initialize repositories
	campaignRepo := repository.NewCampaignRepository(db)
	screenRepo := repository.NewScreenRepository(db)
	contentRepo := repository.NewContentRepository(db)
	auditRepo := repository.NewAuditLogRepository(db)

	// Initialize the in-memory coordination core
	store := fleet.NewStore()
	if err := loadProjection(context.Background(), store, campaignRepo, screenRepo, contentRepo); err != nil {
		return nil, err
	}

	admission := fleet.NewAdmissionController(cfg.Fleet.MaxConnections, cfg.Fleet.AdmissionRetryAfter)
	tracker := fleet.NewConnectivityTracker(admission, cfg.Fleet.HeartbeatWindow, logger)
	resolver := fleet.NewResolver(store, cfg.Fleet.ResolverRefreshInterval, logger)
	bus := newBroadcaster(rc, cfg.Cache, logger)

	// Initialize token service
	tokenService, err := services.NewTokenService(
		cfg.JWT.AccessTokenTTL,
		cfg.JWT.RefreshTokenTTL,
		cfg.JWT.ScreenTokenTTL,
		cfg.JWT.Issuer,
		cfg.JWT.Audience,
		cfg.JWT.UseRSAKeys,
		cfg.JWT.PrivateKey,
		cfg.JWT.PublicKey,
		cfg.JWT.SecretKey,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize token service: %w", err)
	}

	log.Printf("Token service initialized with issuer: %s, audience: %s", cfg.JWT.Issuer, cfg.JWT.Audience)

	// Initialize flows
	screenFlow := businessflow.NewScreenFlow(screenRepo, auditRepo, store, tracker, resolver, bus, tokenService, db)
	campaignFlow := businessflow.NewCampaignFlow(campaignRepo, screenRepo, contentRepo, auditRepo, store, resolver, bus, db)
	contentFlow := businessflow.NewContentFlow(contentRepo, screenRepo, auditRepo, store, resolver, bus, db)
	monitoringFlow := businessflow.NewMonitoringFlow(store, tracker, bus)

	// Initialize handlers
	screenHandler := handlers.NewScreenHandler(screenFlow)
	campaignHandler := handlers.NewCampaignHandler(campaignFlow)
	contentHandler := handlers.NewContentHandler(contentFlow)
	monitoringHandler := handlers.NewMonitoringHandler(monitoringFlow)

	// Initialize auth middleware
	authMiddleware := middleware.NewAuthMiddleware(tokenService)

	// Initialize router
	appRouter := router.NewFiberRouter(
		screenHandler,
		campaignHandler,
		contentHandler,
		monitoringHandler,
		authMiddleware,
	)

	// Start the background sweeps
	campaignSweeper := scheduler.NewCampaignSweeper(store, campaignRepo, screenRepo, resolver, bus, cfg.Fleet.CampaignSweepInterval, logger)
	stopFuncs = append(stopFuncs, campaignSweeper.Start(context.Background()))

	connectivitySweeper := scheduler.NewConnectivitySweeper(store, tracker, screenRepo, bus, cfg.Fleet.ConnectivitySweep, logger)
	stopFuncs = append(stopFuncs, connectivitySweeper.Start(context.Background()))

	stopFuncs = append(stopFuncs, bus.Close)

	// Create application struct from FiberRouter
	fiberRouter := appRouter.(*router.FiberRouter)
	application := &Application{
		router:    fiberRouter,
		config:    cfg,
		server:    fiberRouter.GetApp(),
		stopFuncs: stopFuncs,
	}

	return application, nil
}

// newBroadcaster builds the event bus, mirrored onto Redis pub/sub when the
// cache is enabled so other replicas and edge gateways see the same feed.
func newBroadcaster(rc *redis.Client, cfg config.CacheConfig, logger zerolog.Logger) fleet.Broadcaster {
	bus := fleet.NewBus(logger)
	if rc == nil {
		return bus
	}
	return fleet.NewRedisBus(bus, rc, cfg.RedisPrefix, logger)
}
