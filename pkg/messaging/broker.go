package messaging

import (
	"context"
)

// Broker defines the interface for message brokers. Delivery is at-least-once:
// a message stays owned by the subscriber until it is acked, and a nack puts
// it back for redelivery.
type Broker interface {
	Publish(ctx context.Context, topic string, message interface{}) error
	// Subscribe binds a consumer group to a topic. Each delivery must be
	// acked or nacked explicitly.
	Subscribe(ctx context.Context, topic, group string) (<-chan Delivery, error)
	Close() error
}

// Delivery is one message handed to a subscriber with manual-acknowledgment
// controls.
type Delivery struct {
	Body []byte

	ack  func() error
	nack func(requeue bool) error
}

func NewDelivery(body []byte, ack func() error, nack func(requeue bool) error) Delivery {
	return Delivery{Body: body, ack: ack, nack: nack}
}

func (d Delivery) Ack() error {
	if d.ack == nil {
		return nil
	}
	return d.ack()
}

// Nack returns the message to the broker. With requeue false the message is
// dropped.
func (d Delivery) Nack(requeue bool) error {
	if d.nack == nil {
		return nil
	}
	return d.nack(requeue)
}
