package model

import (
	"time"

	"github.com/google/uuid"
)

// PaymentsTopic is the broker topic carrying outbox notifications.
const PaymentsTopic = "payments.orders"

// OutboxEvent is the relay record written in the same local transaction as
// the payment-status change it externalizes. Its payload is just the gateway
// token; the consumer resolves everything else through an authoritative
// lookup.
type OutboxEvent struct {
	ID              uuid.UUID `db:"id" json:"id"`
	ExternalOrderID string    `db:"external_order_id" json:"external_order_id"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
}

// OutboxMessage is the wire shape published on PaymentsTopic.
type OutboxMessage struct {
	PaypalToken string `json:"paypalToken"`
}
