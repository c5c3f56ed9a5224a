package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/rentorama/rental-api/internal/config"
	"github.com/rentorama/rental-api/internal/repository/postgres"
	"github.com/rentorama/rental-api/pkg/logger"
	"github.com/rentorama/rental-api/pkg/messaging/rabbitmq"
	"github.com/rentorama/rental-api/pkg/metrics"
	"github.com/rentorama/rental-api/pkg/relay"
)

// relayConfig is everything the relay binary needs, taken from the
// environment: it runs as a sidecar without a config file.
type relayConfig struct {
	DBHost       string        `envconfig:"DB_HOST" default:"localhost"`
	DBPort       int           `envconfig:"DB_PORT" default:"5432"`
	DBUser       string        `envconfig:"DB_USER" required:"true"`
	DBPassword   string        `envconfig:"DB_PASSWORD" required:"true"`
	DBName       string        `envconfig:"DB_NAME" required:"true"`
	DBSSLMode    string        `envconfig:"DB_SSLMODE" default:"disable"`
	RabbitMQURL  string        `envconfig:"RABBITMQ_URL" required:"true"`
	Exchange     string        `envconfig:"RABBITMQ_EXCHANGE" default:"rental.events"`
	BatchSize    int           `envconfig:"BATCH_SIZE" default:"100"`
	PollInterval time.Duration `envconfig:"POLL_INTERVAL" default:"1s"`
}

func main() {
	var cfg relayConfig
	if err := envconfig.Process("RELAY", &cfg); err != nil {
		fmt.Fprintf(os.Stderr, "failed to load relay config: %v\n", err)
		os.Exit(1)
	}

	log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
	appLogger := &logger.Logger{ZL: log.Logger}

	db, err := postgres.NewDB(config.DatabaseConfig{
		Host:     cfg.DBHost,
		Port:     cfg.DBPort,
		User:     cfg.DBUser,
		Password: cfg.DBPassword,
		Name:     cfg.DBName,
		SSLMode:  cfg.DBSSLMode,
	})
	if err != nil {
		appLogger.Fatal(err, "failed to connect to database")
	}
	defer db.Close()

	broker, err := rabbitmq.NewBroker(rabbitmq.Config{
		URL:      cfg.RabbitMQURL,
		Exchange: cfg.Exchange,
	}, &log.Logger)
	if err != nil {
		appLogger.Fatal(err, "failed to connect to broker")
	}
	defer broker.Close()

	outboxRepo := postgres.NewOutboxRepository(postgres.NewBaseRepository(db))

	worker := relay.NewRelay(
		outboxRepo,
		broker,
		relay.Config{
			BatchSize:    cfg.BatchSize,
			PollInterval: cfg.PollInterval,
		},
		appLogger,
		metrics.New("outbox_relay"),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		appLogger.Info("shutting down relay")
		cancel()
	}()

	worker.Start(ctx)
}
