package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/sirupsen/logrus"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/elentis/reconcile/docs"
	"github.com/elentis/reconcile/internal/assetrail"
	"github.com/elentis/reconcile/internal/audit"
	"github.com/elentis/reconcile/internal/cardrail"
	"github.com/elentis/reconcile/internal/config"
	"github.com/elentis/reconcile/internal/database"
	"github.com/elentis/reconcile/internal/handlers"
	mW "github.com/elentis/reconcile/internal/middleware"
	"github.com/elentis/reconcile/internal/services"
	"github.com/elentis/reconcile/internal/webhook"
)

// @title Reconciliation API
// @version 1.0
// @description Deposits, withdrawals and balances across the asset and card rails
// @host localhost:8080
// @BasePath /api/v1
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

const bindingCacheTTL = 24 * time.Hour

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("invalid configuration")
	}
	config.SetupLogging(cfg.LogLevel)
	log := logrus.WithField("component", "server")

	docs.SwaggerInfo.Host = "localhost:" + cfg.Server.Port

	db := database.InitDatabase()
	defer db.Close()

	redisClient := database.InitRedis()
	if redisClient != nil {
		defer redisClient.Close()
	}

	fees, err := services.NewFeeCalculator(cfg.Fees)
	if err != nil {
		log.WithError(err).Fatal("invalid fee configuration")
	}

	ledger := services.NewLedgerStore(db)
	reconciliation := services.NewReconciliationService(services.Dependencies{
		UnitOfWork: services.NewPostgresUnitOfWork(db),
		Ledger:     ledger,
		Balances:   services.NewBalanceEngine(db),
		Bindings:   services.NewBindingStore(db),
		Asset:      assetrail.NewClient(cfg.AssetRail),
		Card:       cardrail.NewClient(cfg.CardRail),
		AssetAuth:  webhook.NewAssetAuthenticator(cfg.AssetRail.AppID, cfg.AssetRail.AppSecret),
		CardAuth:   webhook.NewCardAuthenticator(cfg.CardRail.WebhookSecret),
		Fees:       fees,
		Cache:      services.NewRedisBindingCache(redisClient, bindingCacheTTL),
		Events:     services.NewRedisEventPublisher(redisClient),
		Audit:      audit.NewLogger(logrus.StandardLogger()),
		AssetChain: cfg.AssetRail.Chain,
	})
	reconciliationHandler := handlers.NewReconciliationHandler(reconciliation)
	webhookHandler := handlers.NewWebhookHandler(reconciliation)

	// Setup router
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	// CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		status, code := "healthy", http.StatusOK
		if err := db.PingContext(r.Context()); err != nil {
			status, code = "degraded", http.StatusServiceUnavailable
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		json.NewEncoder(w).Encode(map[string]string{"status": status})
	})

	// Swagger documentation
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		// Rails authenticate with their own signatures
		r.Post("/webhooks/{rail}", webhookHandler.Receive)

		r.Group(func(r chi.Router) {
			r.Use(mW.NewAuthMiddleware(cfg.JWTSecret))

			r.Post("/deposit-targets", reconciliationHandler.IssueDepositTarget)
			r.Post("/card-deposits", reconciliationHandler.CreateCardDeposit)
			r.Post("/withdrawals", reconciliationHandler.RequestWithdrawal)
			r.Get("/history", reconciliationHandler.GetHistory)
			r.Get("/balance", reconciliationHandler.GetBalance)
		})
	})

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Graceful shutdown
	go func() {
		log.WithField("addr", server.Addr).Info("server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("server shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.WithError(err).Fatal("server forced to shutdown")
	}

	log.Info("server stopped")
}
