package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/aerosky-ops/backend/config"
	"github.com/aerosky-ops/backend/internal/auth"
	"github.com/aerosky-ops/backend/internal/batteries"
	"github.com/aerosky-ops/backend/internal/drones"
	"github.com/aerosky-ops/backend/internal/events"
	"github.com/aerosky-ops/backend/internal/flightlogs"
	"github.com/aerosky-ops/backend/internal/inventory"
	"github.com/aerosky-ops/backend/internal/members"
	"github.com/aerosky-ops/backend/internal/middleware"
	"github.com/aerosky-ops/backend/internal/orders"
	"github.com/aerosky-ops/backend/internal/organizations"
	"github.com/aerosky-ops/backend/internal/reimbursements"
	"github.com/aerosky-ops/backend/internal/subcontractors"
	"github.com/aerosky-ops/backend/internal/tickets"
	"github.com/aerosky-ops/backend/pkg/database"
	"github.com/aerosky-ops/backend/pkg/redis"
	"github.com/aerosky-ops/backend/pkg/response"
	"github.com/aerosky-ops/backend/pkg/storage"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), logger)
	if err != nil {
		logger.Fatal("connect postgres", zap.Error(err))
	}
	defer pool.Close()

	if err := database.Migrate(ctx, pool); err != nil {
		logger.Fatal("run migrations", zap.Error(err))
	}

	redisClient, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
	if err != nil {
		logger.Fatal("connect redis", zap.Error(err))
	}
	defer redisClient.Close()

	var s3 *storage.S3
	if cfg.AWS.Region != "" {
		s3, err = storage.NewS3(ctx, storage.S3Config{
			Region:               cfg.AWS.Region,
			AccessKeyID:          cfg.AWS.AccessKeyID,
			SecretAccessKey:      cfg.AWS.SecretAccessKey,
			AttachmentsBucket:    cfg.AWS.AttachmentsBucket,
			PresignExpireMinutes: cfg.AWS.PresignExpireMinutes,
		}, logger)
		if err != nil {
			logger.Fatal("init s3", zap.Error(err))
		}
	} else {
		logger.Warn("AWS_REGION not set, attachment endpoints disabled")
	}

	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpireHours)
	sessionStore := auth.NewSessionStore(redisClient.Client, time.Duration(cfg.Session.TTLHours)*time.Hour)
	identityRepo := auth.NewRepository(pool)
	resolver := auth.NewResolver(identityRepo, sessionStore, jwtService)

	hub := events.NewHub(logger, events.NewRedisPubSub(redisClient.Client, logger))

	authHandler := auth.NewHandler(identityRepo, sessionStore, jwtService, cfg.Session.CookieSecure, logger)
	orgHandler := organizations.NewHandler(organizations.NewRepository(pool), logger)
	memberHandler := members.NewHandler(identityRepo, logger)
	droneRepo := drones.NewRepository(pool)
	droneHandler := drones.NewHandler(droneRepo, logger)
	batteryHandler := batteries.NewHandler(batteries.NewRepository(pool), droneRepo, logger)
	subcontractorRepo := subcontractors.NewRepository(pool)
	subcontractorHandler := subcontractors.NewHandler(subcontractorRepo, logger)
	orderRepo := orders.NewRepository(pool)
	orderHandler := orders.NewHandler(orderRepo, subcontractorRepo, logger)
	var flAttachments flightlogs.AttachmentStore
	var rbReceipts reimbursements.ReceiptStore
	if s3 != nil {
		flAttachments = s3
		rbReceipts = s3
	}
	flightLogHandler := flightlogs.NewHandler(flightlogs.NewRepository(pool), droneRepo, orderRepo, identityRepo, flAttachments, hub, logger)
	inventoryHandler := inventory.NewHandler(inventory.NewRepository(pool), hub, logger)
	reimbursementHandler := reimbursements.NewHandler(reimbursements.NewRepository(pool), identityRepo, rbReceipts, logger)
	ticketHandler := tickets.NewHandler(tickets.NewRepository(pool), hub, logger)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.Logger(logger))
	router.Use(middleware.CORS(cfg.Server.CORSAllowedOrigins))

	router.GET("/health", func(c *gin.Context) {
		response.OK(c, gin.H{"status": "ok"})
	})

	// Public auth endpoints for both path families.
	router.POST("/auth/login", authHandler.Login)
	router.POST("/auth/logout", authHandler.Logout)
	router.POST("/mobile/auth/login", authHandler.MobileLogin)

	authenticate := middleware.Authenticate(resolver)

	// The dashboard (session) and mobile (bearer) families expose the same
	// resource surface under different roots.
	registerAPI := func(rg *gin.RouterGroup) {
		rg.GET("/auth/me", authHandler.Me)
		organizations.RegisterRoutes(rg, orgHandler)
		members.RegisterRoutes(rg, memberHandler)
		drones.RegisterRoutes(rg, droneHandler)
		batteries.RegisterRoutes(rg, batteryHandler)
		subcontractors.RegisterRoutes(rg, subcontractorHandler)
		orders.RegisterRoutes(rg, orderHandler)
		flightlogs.RegisterRoutes(rg, flightLogHandler)
		inventory.RegisterRoutes(rg, inventoryHandler)
		reimbursements.RegisterRoutes(rg, reimbursementHandler)
		tickets.RegisterRoutes(rg, ticketHandler)
	}
	registerAPI(router.Group("/api", authenticate))
	registerAPI(router.Group("/mobile", authenticate))

	router.GET("/ws", events.ServeWs(hub, resolver, logger))

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Info("server listening", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("listen", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown", zap.Error(err))
	}
}
