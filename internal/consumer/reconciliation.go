package consumer

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/rentorama/rental-api/internal/client/paymentsvc"
	"github.com/rentorama/rental-api/internal/gateway"
	"github.com/rentorama/rental-api/internal/model"
	"github.com/rentorama/rental-api/pkg/errors"
	"github.com/rentorama/rental-api/pkg/logger"
	"github.com/rentorama/rental-api/pkg/messaging"
	"github.com/rentorama/rental-api/pkg/metrics"
)

// ReservationUpdater folds a reconciled payment outcome into reservation
// state. Satisfied by the reservation service.
type ReservationUpdater interface {
	ApplyPaymentOutcome(ctx context.Context, reservationID uuid.UUID, status model.ReservationStatus) error
}

type Config struct {
	Group      string
	RetryDelay time.Duration
}

// Reconciler consumes outbox notifications and reconciles reservations with
// the authoritative payment status. Handling is synchronous per message: a
// message is acked only after the reservation update committed, and any
// retryable failure is negatively acknowledged after a fixed delay. There is
// no dead-letter routing; a permanently failing message retries indefinitely.
type Reconciler struct {
	broker       messaging.Broker
	lookup       paymentsvc.OrderLookup
	reservations ReservationUpdater
	cfg          Config
	logger       *logger.Logger
	metrics      *metrics.Metrics
}

func NewReconciler(
	broker messaging.Broker,
	lookup paymentsvc.OrderLookup,
	reservations ReservationUpdater,
	cfg Config,
	logger *logger.Logger,
	metrics *metrics.Metrics,
) *Reconciler {
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 10 * time.Second
	}
	if cfg.Group == "" {
		cfg.Group = "reservation-service"
	}
	return &Reconciler{
		broker:       broker,
		lookup:       lookup,
		reservations: reservations,
		cfg:          cfg,
		logger:       logger,
		metrics:      metrics,
	}
}

// Start blocks consuming the payments topic until ctx is cancelled.
func (r *Reconciler) Start(ctx context.Context) error {
	deliveries, err := r.broker.Subscribe(ctx, model.PaymentsTopic, r.cfg.Group)
	if err != nil {
		return err
	}

	r.logger.Info("reconciliation consumer started", "group", r.cfg.Group)

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("reconciliation consumer shutting down")
			return nil
		case d, ok := <-deliveries:
			if !ok {
				return nil
			}
			r.Handle(ctx, d)
		}
	}
}

// Handle processes one delivery and decides its acknowledgment from the
// error kind: non-retryable errors drop the message, retryable ones nack it
// back after the configured delay.
func (r *Reconciler) Handle(ctx context.Context, d messaging.Delivery) {
	timer := prometheus.NewTimer(r.metrics.ReconcileLatency)
	defer timer.ObserveDuration()

	err := r.process(ctx, d.Body)
	if err == nil {
		if ackErr := d.Ack(); ackErr != nil {
			r.logger.Error(ackErr, "failed to ack message")
		}
		r.metrics.EventsReconciled.WithLabelValues("applied").Inc()
		return
	}

	kind := errors.KindOf(err)
	if !kind.Retryable() {
		r.logger.Error(err, "dropping unprocessable message", "kind", kind.String())
		r.metrics.EventsReconciled.WithLabelValues("dropped").Inc()
		if nackErr := d.Nack(false); nackErr != nil {
			r.logger.Error(nackErr, "failed to nack message")
		}
		return
	}

	r.logger.Error(err, "reconciliation failed, retrying after delay",
		"kind", kind.String(),
		"delay", r.cfg.RetryDelay.String())
	r.metrics.EventsRetried.Inc()

	// Bounded backoff: block the subscriber, then requeue. Offset
	// advancement for this partition is intentionally delayed.
	select {
	case <-ctx.Done():
	case <-time.After(r.cfg.RetryDelay):
	}
	if nackErr := d.Nack(true); nackErr != nil {
		r.logger.Error(nackErr, "failed to nack message")
	}
}

func (r *Reconciler) process(ctx context.Context, body []byte) error {
	var msg model.OutboxMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		return errors.Validation("malformed outbox message")
	}
	if msg.PaypalToken == "" {
		return errors.Validation("outbox message missing token")
	}

	// The authoritative status comes from the payment service, not the
	// locally observed redirect.
	result, err := r.lookup.LookupOrder(ctx, msg.PaypalToken)
	if err != nil {
		return err
	}

	var target model.ReservationStatus
	switch result.Status {
	case gateway.StatusCompleted:
		target = model.ReservationStatusPayed
	case gateway.StatusCancelled:
		target = model.ReservationStatusPaymentRefused
	default:
		return errors.Gateway("payment status not yet actionable: "+string(result.Status), nil)
	}

	return r.reservations.ApplyPaymentOutcome(ctx, result.ReservationID, target)
}
