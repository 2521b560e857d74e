package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dimitrije/teamroom-api/internal/clock"
	"github.com/dimitrije/teamroom-api/internal/config"
	"github.com/dimitrije/teamroom-api/internal/database"
	"github.com/dimitrije/teamroom-api/internal/handlers"
	"github.com/dimitrije/teamroom-api/internal/logging"
	authmw "github.com/dimitrije/teamroom-api/internal/middleware"
	"github.com/dimitrije/teamroom-api/internal/services"
	"github.com/dimitrije/teamroom-api/internal/sse"
	"github.com/dimitrije/teamroom-api/internal/workers"
	"github.com/google/uuid"
	"github.com/m1z23r/drift/pkg/drift"
	"github.com/m1z23r/drift/pkg/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/automaxprocs/maxprocs"
	"go.uber.org/zap"
)

const sweeperLeaseName = "confirmation-sweeper"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.New(cfg.IsProduction(), cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if _, err := maxprocs.Set(maxprocs.Logger(logger.Sugar().Infof)); err != nil {
		logger.Warn("failed to set GOMAXPROCS", zap.Error(err))
	}

	ctx := context.Background()

	db, err := database.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	if err := db.Migrate(ctx); err != nil {
		logger.Fatal("failed to run migrations", zap.Error(err))
	}

	clk := clock.Real()

	jwtService := services.NewJWTService(cfg.JWTSecret, cfg.JWTAccessExpiry, cfg.JWTRefreshExpiry)
	userService := services.NewUserService(db)
	tokenService := services.NewTokenService(db)
	roomService := services.NewTeamRoomService(db)
	emailService := services.NewEmailService(cfg.SMTP)

	gate := services.NewWorkflowGate(db, emailService, logger)
	setupService := services.NewSetupService(db, gate, clk, cfg.Setup.Duration)
	ledger := services.NewVoteLedger(db)
	outcomes := services.NewOutcomeStore(db, clk)

	toolTrack := services.NewToolTrack(db, ledger, outcomes, roomService, clk)
	ruleTrack := services.NewRuleTrack(db, ledger, outcomes, roomService, clk)
	meetingTrack := services.NewMeetingTrack(ledger, outcomes, roomService, clk, cfg.Setup.MeetingDuration)

	coordinator := services.NewCoordinator(setupService, gate, outcomes, logger, toolTrack, ruleTrack, meetingTrack)

	hub := sse.NewHub()
	go hub.Run()
	coordinator.PublishProgress(hub)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	lease := services.NewLease(db, sweeperLeaseName, leaseHolder(), 2*cfg.Setup.SweepInterval)
	sweeper := workers.NewSweeper(coordinator, lease, clk, logger, registry, cfg.Setup.SweepInterval, cfg.Setup.SweepTimeout)
	sweeper.Start()

	authHandler := handlers.NewAuthHandler(cfg, userService, tokenService, jwtService)
	userHandler := handlers.NewUserHandler(userService)
	roomHandler := handlers.NewTeamRoomHandler(roomService, userService, setupService, emailService)
	setupHandler := handlers.NewSetupHandler(roomService, coordinator, toolTrack, ruleTrack, clk)
	eventsHandler := handlers.NewEventsHandler(hub, roomService)

	app := drift.New()

	if cfg.IsProduction() {
		app.SetMode(drift.ReleaseMode)
	} else {
		app.SetMode(drift.DebugMode)
	}

	app.Use(middleware.Recovery())
	app.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", "Authorization"},
		MaxAge:       86400,
	}))
	app.Use(middleware.BodyParser())

	api := app.Group("/api/v1")

	auth := api.Group("/auth")
	auth.Get("/:provider/consent", authHandler.GetConsentURL)
	auth.Get("/:provider/callback", authHandler.Callback)
	auth.Post("/exchange", authHandler.ExchangeCode)
	auth.Post("/refresh", authHandler.RefreshToken)
	auth.Post("/logout", authHandler.Logout)

	protected := api.Group("")
	protected.Use(authmw.Auth(jwtService))

	protected.Get("/users/me", userHandler.GetMe)
	protected.Patch("/users/me", userHandler.UpdateMe)

	protected.Get("/team-rooms", roomHandler.List)
	protected.Post("/team-rooms", roomHandler.Create)
	protected.Get("/team-rooms/:id", roomHandler.Get)
	protected.Get("/team-rooms/:id/members", roomHandler.GetMembers)
	protected.Post("/team-rooms/:id/members", roomHandler.AddMember)
	protected.Post("/team-rooms/:id/setup", roomHandler.StartSetup)

	protected.Get("/team-rooms/:id/events", eventsHandler.Stream)

	protected.Get("/team-rooms/:id/setup", setupHandler.Get)
	protected.Post("/team-rooms/:id/setup/:subject/votes", setupHandler.SubmitVote)
	protected.Get("/team-rooms/:id/setup/:subject/participation", setupHandler.Participation)
	protected.Get("/team-rooms/:id/setup/:subject/outcome", setupHandler.Outcome)

	protected.Get("/team-rooms/:id/tool-proposals", setupHandler.ListProposals)
	protected.Post("/team-rooms/:id/tool-proposals", setupHandler.CreateProposal)
	protected.Post("/team-rooms/:id/tool-proposals/:proposalId/decision", setupHandler.DecideProposal)

	protected.Get("/team-rooms/:id/rules", setupHandler.ListRules)
	protected.Post("/team-rooms/:id/rules", setupHandler.CreateRule)

	api.Get("/health", func(c *drift.Context) {
		_ = c.JSON(200, map[string]string{"status": "ok"})
	})

	cleanupDone := make(chan struct{})
	go func() {
		ticker := time.NewTicker(1 * time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-cleanupDone:
				return
			case <-ticker.C:
				removed, err := tokenService.CleanupExpired(context.Background())
				if err != nil {
					logger.Warn("refresh token cleanup failed", zap.Error(err))
					continue
				}
				logger.Debug("refresh token cleanup", zap.Int64("removed", removed))
			}
		}
	}()

	metricsServer := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.MetricsPort),
		Handler:           promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info("metrics listener starting", zap.String("addr", metricsServer.Addr))
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics listener failed", zap.Error(err))
		}
	}()

	go func() {
		addr := fmt.Sprintf(":%s", cfg.Port)
		logger.Info("server starting", zap.String("addr", addr))
		if err := app.Run(addr); err != nil {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")

	close(cleanupDone)
	sweeper.Stop()
	hub.Stop()
	authHandler.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := lease.Release(shutdownCtx); err != nil {
		logger.Warn("failed to release sweeper lease", zap.Error(err))
	}
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("failed to stop metrics listener", zap.Error(err))
	}
}

// leaseHolder identifies this process among replicas competing for the sweeper lease.
func leaseHolder() string {
	host, err := os.Hostname()
	if err != nil {
		host = "unknown"
	}
	return host + "-" + uuid.NewString()
}
