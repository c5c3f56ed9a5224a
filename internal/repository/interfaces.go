package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/rentorama/rental-api/internal/model"
)

// Tx runs fn inside one database transaction. It is how a payment-status
// change and its outbox row are committed atomically.
type Tx interface {
	WithTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error
}

type PaymentRepository interface {
	Tx
	Create(ctx context.Context, p *model.Payment) error
	Get(ctx context.Context, id uuid.UUID) (*model.Payment, error)
	GetByExternalOrderID(ctx context.Context, token string) (*model.Payment, error)
	ListByReservation(ctx context.Context, reservationID uuid.UUID) ([]*model.Payment, error)
	// SetExternalOrder records the gateway token and moves the payment to
	// PENDING; the token is written exactly once.
	SetExternalOrder(ctx context.Context, id uuid.UUID, token string) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status model.PaymentStatus) error
	UpdateStatusTx(ctx context.Context, tx *sqlx.Tx, id uuid.UUID, status model.PaymentStatus) error
}

type OutboxRepository interface {
	Tx
	CreateTx(ctx context.Context, tx *sqlx.Tx, event *model.OutboxEvent) error
	DeleteTx(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) error
	// ClaimPendingTx locks up to limit rows for the polling relay, skipping
	// rows another relay already holds.
	ClaimPendingTx(ctx context.Context, tx *sqlx.Tx, limit int) ([]*model.OutboxEvent, error)
}

type ReservationRepository interface {
	Tx
	Get(ctx context.Context, id uuid.UUID) (*model.Reservation, error)
	// UpdateStatusVersioned applies the status change only if the stored
	// version still equals version; it reports a conflict otherwise.
	UpdateStatusVersioned(ctx context.Context, tx *sqlx.Tx, id uuid.UUID, status model.ReservationStatus, version int64) error
	ListIntervalsByModel(ctx context.Context, modelID uuid.UUID) ([]*model.ReservationInterval, error)
}

type VehicleRepository interface {
	Get(ctx context.Context, id uuid.UUID) (*model.Vehicle, error)
	ListAvailableByModel(ctx context.Context, modelID uuid.UUID) ([]*model.Vehicle, error)
	UpdateAvailabilityTx(ctx context.Context, tx *sqlx.Tx, id uuid.UUID, availability model.Availability) error
}
