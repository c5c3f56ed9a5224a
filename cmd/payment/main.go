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

	"github.com/rentorama/rental-api/internal/config"
	"github.com/rentorama/rental-api/internal/gateway/paypal"
	authhandler "github.com/rentorama/rental-api/internal/handler/auth"
	orderhandler "github.com/rentorama/rental-api/internal/handler/order"
	"github.com/rentorama/rental-api/internal/middleware"
	"github.com/rentorama/rental-api/internal/repository/postgres"
	"github.com/rentorama/rental-api/internal/router"
	paymentsvc "github.com/rentorama/rental-api/internal/service/payment"
	"github.com/rentorama/rental-api/pkg/auth"
	"github.com/rentorama/rental-api/pkg/logger"
	"github.com/rentorama/rental-api/pkg/metrics"
	"github.com/rentorama/rental-api/pkg/security"
)

func main() {
	cfg, err := config.LoadConfig("payment")
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
	appLogger := &logger.Logger{ZL: log.Logger}

	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		appLogger.Fatal(err, "failed to connect to database")
	}
	defer db.Close()

	gatewayClient := paypal.NewClient(paypal.Config{
		BaseURL:      cfg.Gateway.BaseURL,
		ClientID:     cfg.Gateway.ClientID,
		ClientSecret: cfg.Gateway.ClientSecret,
		Timeout:      cfg.Gateway.Timeout,
	}, &log.Logger)

	baseRepo := postgres.NewBaseRepository(db)
	paymentRepo := postgres.NewPaymentRepository(baseRepo)
	outboxRepo := postgres.NewOutboxRepository(baseRepo)

	appMetrics := metrics.New("payment_service")

	service := paymentsvc.NewService(
		paymentRepo,
		outboxRepo,
		gatewayClient,
		cfg.Outbox.CDC,
		appLogger,
		appMetrics,
	)

	jwtService := auth.NewJWTService(cfg.Auth.JWTSecret, cfg.Auth.TokenExpiry)
	hasher := security.NewBcryptHasher(0)

	orders := orderhandler.NewHandler(service, cfg.RedirectURL.Processing, cfg.RedirectURL.Cancelled)
	tokens := authhandler.NewHandler(jwtService, hasher, cfg.Auth.ClientID, cfg.Auth.ClientSecretHash, cfg.Auth.TokenExpiry)
	authMW := middleware.NewAuthMiddleware(jwtService)

	engine := router.NewPaymentRouter(cfg, db, orders, tokens, authMW)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      engine,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		appLogger.Info("payment service listening", "port", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Fatal(err, "server failed")
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	appLogger.Info("shutting down payment service")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		appLogger.Error(err, "graceful shutdown failed")
	}
}
