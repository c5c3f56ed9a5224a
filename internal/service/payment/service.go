package payment

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/rentorama/rental-api/internal/gateway"
	"github.com/rentorama/rental-api/internal/model"
	"github.com/rentorama/rental-api/internal/repository"
	"github.com/rentorama/rental-api/pkg/errors"
	"github.com/rentorama/rental-api/pkg/logger"
	"github.com/rentorama/rental-api/pkg/metrics"
)

// Service owns the payment lifecycle: it transitions payment rows through
// the state machine and writes the outbox notification in the same local
// transaction as the transition it externalizes.
type Service struct {
	payments repository.PaymentRepository
	outbox   repository.OutboxRepository
	gw       gateway.PaymentGateway
	// cdc true keeps the outbox table a write-only commit log: rows are
	// deleted in the inserting transaction and a change-data-capture engine
	// relays the committed history. False leaves rows for the polling relay.
	cdc     bool
	logger  *logger.Logger
	metrics *metrics.Metrics
}

func NewService(
	payments repository.PaymentRepository,
	outbox repository.OutboxRepository,
	gw gateway.PaymentGateway,
	cdc bool,
	logger *logger.Logger,
	metrics *metrics.Metrics,
) *Service {
	return &Service{
		payments: payments,
		outbox:   outbox,
		gw:       gw,
		cdc:      cdc,
		logger:   logger,
		metrics:  metrics,
	}
}

// OrderStatus is the authoritative view of a payment returned by the
// order-lookup endpoint: the local row plus the gateway's terminal verdict.
type OrderStatus struct {
	ReservationID uuid.UUID      `json:"reservation_id"`
	Status        gateway.Status `json:"status"`
}

// CreateOrder inserts a payment in CREATED, creates the gateway order and,
// on success, binds the token and moves the payment to PENDING. The approval
// redirect link is returned to the caller. A gateway failure leaves the row
// in CREATED and surfaces as a gateway error.
func (s *Service) CreateOrder(ctx context.Context, reservationID uuid.UUID, amount float64) (string, error) {
	if amount <= 0 {
		return "", errors.Validation("payment amount must be greater than zero")
	}
	if reservationID == uuid.Nil {
		return "", errors.Validation("reservation id is required")
	}

	existing, err := s.payments.ListByReservation(ctx, reservationID)
	if err != nil {
		return "", err
	}
	for _, p := range existing {
		if p.Status == model.PaymentStatusCompleted {
			return "", errors.Duplicate("reservation already has a completed payment")
		}
	}

	payment := &model.Payment{
		ReservationID: reservationID,
		Amount:        amount,
	}
	if err := s.payments.Create(ctx, payment); err != nil {
		return "", err
	}

	order, err := s.gw.CreateOrder(ctx, amount)
	if err != nil {
		s.metrics.GatewayRequests.WithLabelValues("create", "error").Inc()
		s.logger.Error(err, "gateway order creation failed",
			"payment_id", payment.ID.String(),
			"reservation_id", reservationID.String())
		return "", err
	}
	s.metrics.GatewayRequests.WithLabelValues("create", "success").Inc()

	if err := s.payments.SetExternalOrder(ctx, payment.ID, order.ExternalID); err != nil {
		return "", err
	}

	s.logger.Info("payment order created",
		"payment_id", payment.ID.String(),
		"external_order_id", order.ExternalID)

	return order.ApprovalLink, nil
}

// CaptureOrder handles the gateway's client-redirect callback: it marks the
// payment PAYED and enqueues the outbox notification in one transaction.
// Capture confirmation with the gateway happens later, through the
// reconciliation pipeline.
func (s *Service) CaptureOrder(ctx context.Context, token string) error {
	if token == "" {
		return errors.Validation("order token is required")
	}

	payment, err := s.payments.GetByExternalOrderID(ctx, token)
	if err != nil {
		return err
	}

	return s.payments.WithTx(ctx, func(tx *sqlx.Tx) error {
		if payment.Status.CanTransitionTo(model.PaymentStatusPayed) {
			if payment.Status != model.PaymentStatusPayed {
				if err := s.payments.UpdateStatusTx(ctx, tx, payment.ID, model.PaymentStatusPayed); err != nil {
					return err
				}
			}
		} else {
			// No forward transition to PAYED from here; the notification
			// still goes out so downstream state converges.
			s.logger.Warn("capture callback without PAYED transition",
				"payment_id", payment.ID.String(),
				"status", string(payment.Status))
		}
		return s.writeOutbox(ctx, tx, token)
	})
}

// CancelOrder handles the gateway's cancel callback. The payment row is left
// untouched; only the outbox notification is enqueued so reconciliation can
// mark the reservation PAYMENT_REFUSED.
func (s *Service) CancelOrder(ctx context.Context, token string) error {
	if token == "" {
		return errors.Validation("order token is required")
	}

	if _, err := s.payments.GetByExternalOrderID(ctx, token); err != nil {
		return err
	}

	return s.outbox.WithTx(ctx, func(tx *sqlx.Tx) error {
		return s.writeOutbox(ctx, tx, token)
	})
}

// writeOutbox appends the notification row inside tx. In CDC mode the row is
// deleted again immediately: the relay reads committed row history, not row
// presence, so insert+delete in one commit is exactly one notification.
func (s *Service) writeOutbox(ctx context.Context, tx *sqlx.Tx, token string) error {
	event := &model.OutboxEvent{ExternalOrderID: token}
	if err := s.outbox.CreateTx(ctx, tx, event); err != nil {
		return err
	}
	if s.cdc {
		return s.outbox.DeleteTx(ctx, tx, event.ID)
	}
	return nil
}

// CaptureWithGateway queries the gateway for the order's terminal status and
// folds it into the local payment row. Gateway errors propagate to the
// caller: a failed capture must never read as success.
func (s *Service) CaptureWithGateway(ctx context.Context, token string) (*OrderStatus, error) {
	payment, err := s.payments.GetByExternalOrderID(ctx, token)
	if err != nil {
		return nil, err
	}

	status, err := s.gw.CaptureOrder(ctx, token)
	if err != nil {
		s.metrics.GatewayRequests.WithLabelValues("capture", "error").Inc()
		return nil, err
	}
	s.metrics.GatewayRequests.WithLabelValues("capture", "success").Inc()

	switch status {
	case gateway.StatusCompleted:
		if payment.Status != model.PaymentStatusCompleted &&
			payment.Status.CanTransitionTo(model.PaymentStatusCompleted) {
			if err := s.payments.UpdateStatus(ctx, payment.ID, model.PaymentStatusCompleted); err != nil {
				return nil, err
			}
		}
	case gateway.StatusCancelled:
		if payment.Status != model.PaymentStatusCancelled &&
			payment.Status.CanTransitionTo(model.PaymentStatusCancelled) {
			if err := s.payments.UpdateStatus(ctx, payment.ID, model.PaymentStatusCancelled); err != nil {
				return nil, err
			}
		}
	}

	return &OrderStatus{
		ReservationID: payment.ReservationID,
		Status:        status,
	}, nil
}

// GetOrder returns the local payment row for a token.
func (s *Service) GetOrder(ctx context.Context, token string) (*model.Payment, error) {
	return s.payments.GetByExternalOrderID(ctx, token)
}
