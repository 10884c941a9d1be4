package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/llevisouza/gestao-cobrancas/config"
	automationHandler "github.com/llevisouza/gestao-cobrancas/internal/handler/automation"
	clientHandler "github.com/llevisouza/gestao-cobrancas/internal/handler/client"
	healthHandler "github.com/llevisouza/gestao-cobrancas/internal/handler/health"
	invoiceHandler "github.com/llevisouza/gestao-cobrancas/internal/handler/invoice"
	subscriptionHandler "github.com/llevisouza/gestao-cobrancas/internal/handler/subscription"
	"github.com/llevisouza/gestao-cobrancas/internal/messenger/email"
	"github.com/llevisouza/gestao-cobrancas/internal/messenger/whatsapp"
	"github.com/llevisouza/gestao-cobrancas/internal/middleware"
	"github.com/llevisouza/gestao-cobrancas/internal/model"
	"github.com/llevisouza/gestao-cobrancas/internal/repository/postgres"
	"github.com/llevisouza/gestao-cobrancas/internal/router"
	"github.com/llevisouza/gestao-cobrancas/internal/service/automation"
	clientService "github.com/llevisouza/gestao-cobrancas/internal/service/client"
	invoiceService "github.com/llevisouza/gestao-cobrancas/internal/service/invoice"
	subscriptionService "github.com/llevisouza/gestao-cobrancas/internal/service/subscription"
	"github.com/llevisouza/gestao-cobrancas/pkg/logger"
	redisbroker "github.com/llevisouza/gestao-cobrancas/pkg/messaging/redis"
	"github.com/llevisouza/gestao-cobrancas/pkg/metrics"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	appLogger := logger.NewLogger(nil)

	// Initialize database
	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	// Initialize repositories
	clientRepo := postgres.NewClientRepository(db)
	subscriptionRepo := postgres.NewSubscriptionRepository(db)
	invoiceRepo := postgres.NewInvoiceRepository(db)
	deliveryRepo := postgres.NewDeliveryLogRepository(db)
	runLogRepo := postgres.NewRunLogRepository(db)
	stateRepo := postgres.NewAutomationStateRepository(db)

	// Initialize Redis message broker for status streaming
	brokerLogger := zerolog.New(os.Stdout).With().Timestamp().Str("component", "broker").Logger()
	broker, err := redisbroker.NewRedisBroker(cfg.Redis.ToBrokerConfig(), &brokerLogger)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to Redis")
	}
	defer broker.Close()

	// Initialize message channels
	whatsappClient := whatsapp.NewClient(cfg.WhatsApp)
	emailSender := email.NewSender(cfg.Email)

	appMetrics := metrics.NewMetrics("cobrancas", "automation")

	// Initialize the notification engine
	ledger := automation.NewLedger(deliveryRepo)
	dispatcher := automation.NewDispatcher(
		whatsappClient,
		emailSender,
		ledger,
		automation.RenderMessage,
		appLogger,
		appMetrics,
	)
	source := automation.NewRepositorySource(clientRepo, invoiceRepo, subscriptionRepo)
	runner := automation.NewRunner(
		source,
		ledger,
		dispatcher,
		whatsappClient,
		stateRepo,
		runLogRepo,
		deliveryRepo,
		broker,
		appLogger,
		appMetrics,
		model.DefaultAutomationConfig(),
	)

	// Resume the automation if it was running before the last shutdown
	if err := runner.Restore(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("failed to restore automation state")
	}

	// Initialize services
	clientSvc := clientService.NewService(clientRepo)
	subscriptionSvc := subscriptionService.NewService(subscriptionRepo, clientRepo)
	invoiceSvc := invoiceService.NewService(invoiceRepo, subscriptionRepo, clientRepo, dispatcher, appLogger)

	// Initialize handlers
	brokerPinger, _ := broker.(healthHandler.Pinger)
	healthH := healthHandler.NewHandler(db, brokerPinger, whatsappClient)
	clientH := clientHandler.NewHandler(clientSvc)
	subscriptionH := subscriptionHandler.NewHandler(subscriptionSvc)
	invoiceH := invoiceHandler.NewHandler(invoiceSvc)
	automationH := automationHandler.NewHandler(runner, runLogRepo, deliveryRepo, broker)

	// Setup router
	r := router.NewRouter(
		healthH,
		clientH,
		subscriptionH,
		invoiceH,
		automationH,
		router.RouterConfig{
			RateLimit:     rate.Limit(cfg.RateLimit.RequestsPerSecond),
			RateBurst:     cfg.RateLimit.Burst,
			CORSConfig:    corsConfig(cfg),
			MetricsPrefix: "cobrancas_http",
		},
	)
	r.Setup()

	// Create server
	srv := &http.Server{
		Addr:           fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:        r.Engine(),
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		MaxHeaderBytes: cfg.Server.MaxHeaderBytes,
	}

	// Start server
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}

	// Stop the run loop without flipping the persisted state so the
	// automation resumes on the next boot.
	runner.Shutdown(ctx)

	log.Info().Msg("server exited properly")
}

func corsConfig(cfg *config.Config) middleware.CORSConfig {
	corsCfg := middleware.DefaultCORSConfig()
	if len(cfg.CORS.AllowedOrigins) > 0 {
		corsCfg.AllowOrigins = cfg.CORS.AllowedOrigins
	}
	if len(cfg.CORS.AllowedMethods) > 0 {
		corsCfg.AllowMethods = cfg.CORS.AllowedMethods
	}
	if len(cfg.CORS.AllowedHeaders) > 0 {
		corsCfg.AllowHeaders = cfg.CORS.AllowedHeaders
	}
	return corsCfg
}
