package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/rentorama/rental-api/internal/client/paymentsvc"
	"github.com/rentorama/rental-api/internal/config"
	"github.com/rentorama/rental-api/internal/consumer"
	reservationhandler "github.com/rentorama/rental-api/internal/handler/reservation"
	"github.com/rentorama/rental-api/internal/repository/postgres"
	"github.com/rentorama/rental-api/internal/router"
	"github.com/rentorama/rental-api/internal/service/availability"
	reservationsvc "github.com/rentorama/rental-api/internal/service/reservation"
	"github.com/rentorama/rental-api/pkg/auth"
	"github.com/rentorama/rental-api/pkg/logger"
	"github.com/rentorama/rental-api/pkg/messaging/rabbitmq"
	"github.com/rentorama/rental-api/pkg/metrics"
)

func main() {
	cfg, err := config.LoadConfig("reservation")
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

	redisOpts, err := redis.ParseURL(cfg.Redis.URL)
	if err != nil {
		appLogger.Fatal(err, "failed to parse redis URL")
	}
	redisClient := redis.NewClient(redisOpts)
	defer redisClient.Close()

	broker, err := rabbitmq.NewBroker(rabbitmq.Config{
		URL:      cfg.RabbitMQ.URL,
		Exchange: cfg.RabbitMQ.Exchange,
	}, &log.Logger)
	if err != nil {
		appLogger.Fatal(err, "failed to connect to broker")
	}
	defer broker.Close()

	baseRepo := postgres.NewBaseRepository(db)
	reservationRepo := postgres.NewReservationRepository(baseRepo)
	vehicleRepo := postgres.NewVehicleRepository(baseRepo)

	appMetrics := metrics.New("reservation_service")

	calendar := availability.NewService(vehicleRepo, reservationRepo, redisClient, cfg.Redis.CacheTTL, appLogger)
	reservations := reservationsvc.NewService(reservationRepo, vehicleRepo, calendar, cfg.Consumer.CASAttempts, appLogger)

	credentials := auth.NewClientCredentialsProvider(auth.ClientCredentialsConfig{
		TokenURL:     cfg.PaymentAPI.TokenURL,
		ClientID:     cfg.PaymentAPI.ClientID,
		ClientSecret: cfg.PaymentAPI.ClientSecret,
		Timeout:      cfg.PaymentAPI.Timeout,
	})
	orderLookup := paymentsvc.NewClient(paymentsvc.Config{
		BaseURL: cfg.PaymentAPI.BaseURL,
		Timeout: cfg.PaymentAPI.Timeout,
	}, credentials)

	reconciler := consumer.NewReconciler(
		broker,
		orderLookup,
		reservations,
		consumer.Config{
			Group:      cfg.RabbitMQ.Group,
			RetryDelay: cfg.Consumer.RetryDelay,
		},
		appLogger,
		appMetrics,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	consumerDone := make(chan struct{})
	go func() {
		defer close(consumerDone)
		if err := reconciler.Start(ctx); err != nil {
			appLogger.Error(err, "reconciliation consumer stopped")
		}
	}()

	handler := reservationhandler.NewHandler(reservations, calendar)
	engine := router.NewReservationRouter(cfg, db, handler)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      engine,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		appLogger.Info("reservation service listening", "port", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Fatal(err, "server failed")
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	appLogger.Info("shutting down reservation service")
	cancel()
	<-consumerDone

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		appLogger.Error(err, "graceful shutdown failed")
	}
}
