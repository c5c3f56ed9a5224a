package relay

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/rentorama/rental-api/internal/model"
	"github.com/rentorama/rental-api/internal/repository"
	"github.com/rentorama/rental-api/pkg/logger"
	"github.com/rentorama/rental-api/pkg/messaging"
	"github.com/rentorama/rental-api/pkg/metrics"
)

type Config struct {
	BatchSize    int
	PollInterval time.Duration
}

// Relay tails the outbox table and republishes each row on the payments
// topic. It stands in for a change-data-capture engine: rows are claimed
// with a row lock so concurrent relays never double-publish, and a row is
// deleted only after the broker confirmed the publish. A failed publish
// leaves the row in place for the next poll.
type Relay struct {
	outbox  repository.OutboxRepository
	broker  messaging.Broker
	config  Config
	logger  *logger.Logger
	metrics *metrics.Metrics
}

func NewRelay(
	outbox repository.OutboxRepository,
	broker messaging.Broker,
	config Config,
	logger *logger.Logger,
	metrics *metrics.Metrics,
) *Relay {
	if config.BatchSize <= 0 {
		config.BatchSize = 100
	}
	if config.PollInterval <= 0 {
		config.PollInterval = time.Second
	}
	return &Relay{
		outbox:  outbox,
		broker:  broker,
		config:  config,
		logger:  logger,
		metrics: metrics,
	}
}

func (r *Relay) Start(ctx context.Context) {
	ticker := time.NewTicker(r.config.PollInterval)
	defer ticker.Stop()

	r.logger.Info("outbox relay started")

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("outbox relay shutting down")
			return
		case <-ticker.C:
			if err := r.relayBatch(ctx); err != nil {
				r.logger.Error(err, "failed to relay outbox batch")
			}
		}
	}
}

func (r *Relay) relayBatch(ctx context.Context) error {
	timer := prometheus.NewTimer(r.metrics.OutboxRelayLatency)
	defer timer.ObserveDuration()

	return r.outbox.WithTx(ctx, func(tx *sqlx.Tx) error {
		events, err := r.outbox.ClaimPendingTx(ctx, tx, r.config.BatchSize)
		if err != nil {
			return fmt.Errorf("failed to claim outbox events: %w", err)
		}

		for _, event := range events {
			msg := model.OutboxMessage{PaypalToken: event.ExternalOrderID}
			if err := r.broker.Publish(ctx, model.PaymentsTopic, msg); err != nil {
				r.metrics.OutboxEventsFailed.Inc()
				r.logger.Error(err, "failed to publish outbox event",
					"event_id", event.ID.String())
				// Stop the batch: the unclaimed remainder is retried on
				// the next poll together with this row.
				return err
			}

			if err := r.outbox.DeleteTx(ctx, tx, event.ID); err != nil {
				return err
			}
			r.metrics.OutboxEventsPublished.Inc()
		}
		return nil
	})
}
