package gateway

import (
	"context"
)

// Status is the order status reported by the external payment gateway.
// Anything other than Completed or Cancelled is treated as not yet
// actionable by reconciliation.
type Status string

const (
	StatusCreated   Status = "CREATED"
	StatusApproved  Status = "APPROVED"
	StatusCompleted Status = "COMPLETED"
	StatusCancelled Status = "CANCELLED"
)

// Order is the gateway's view of a created order.
type Order struct {
	ExternalID   string
	ApprovalLink string
}

// PaymentGateway creates and captures orders with the external payment
// provider. Errors from it are gateway errors: final for the synchronous
// creation path, retryable for reconciliation.
type PaymentGateway interface {
	CreateOrder(ctx context.Context, amount float64) (*Order, error)
	CaptureOrder(ctx context.Context, externalID string) (Status, error)
}
