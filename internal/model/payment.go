package model

import (
	"time"

	"github.com/google/uuid"
)

// PaymentStatus is the closed set of payment lifecycle states.
type PaymentStatus string

const (
	PaymentStatusCreated   PaymentStatus = "CREATED"
	PaymentStatusPending   PaymentStatus = "PENDING"
	PaymentStatusPayed     PaymentStatus = "PAYED"
	PaymentStatusCompleted PaymentStatus = "COMPLETED"
	PaymentStatusCancelled PaymentStatus = "CANCELLED"
)

func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentStatusCreated, PaymentStatusPending, PaymentStatusPayed,
		PaymentStatusCompleted, PaymentStatusCancelled:
		return true
	}
	return false
}

// IsTerminal reports whether no further transition is allowed from s.
func (s PaymentStatus) IsTerminal() bool {
	return s == PaymentStatusCompleted || s == PaymentStatusCancelled
}

// CanTransitionTo encodes the forward-only lifecycle:
// CREATED → PENDING → PAYED → COMPLETED, with PENDING → CANCELLED.
// A transition to the current status is allowed so that redelivered
// notifications converge instead of failing.
func (s PaymentStatus) CanTransitionTo(target PaymentStatus) bool {
	if s == target {
		return true
	}
	switch s {
	case PaymentStatusCreated:
		return target == PaymentStatusPending
	case PaymentStatusPending:
		return target == PaymentStatusPayed || target == PaymentStatusCancelled
	case PaymentStatusPayed:
		return target == PaymentStatusCompleted || target == PaymentStatusCancelled
	default:
		return false
	}
}

// Payment is one payment attempt for a reservation. ExternalOrderID is the
// gateway-assigned token, set exactly once when the gateway order is created
// and immutable afterwards.
type Payment struct {
	ID              uuid.UUID     `db:"id" json:"id"`
	ReservationID   uuid.UUID     `db:"reservation_id" json:"reservation_id"`
	Status          PaymentStatus `db:"status" json:"status"`
	Amount          float64       `db:"amount" json:"amount"`
	ExternalOrderID *string       `db:"external_order_id" json:"external_order_id,omitempty"`
	CreatedAt       time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time     `db:"updated_at" json:"updated_at"`
}
