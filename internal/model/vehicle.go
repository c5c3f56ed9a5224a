package model

import (
	"time"

	"github.com/google/uuid"
)

// Availability is the derived vehicle flag kept consistent with reservation
// status by the reservation service's own transactions.
type Availability string

const (
	AvailabilityAvailable Availability = "available"
	AvailabilityRented    Availability = "rented"
)

func (a Availability) Valid() bool {
	return a == AvailabilityAvailable || a == AvailabilityRented
}

type Vehicle struct {
	ID           uuid.UUID    `db:"id" json:"id"`
	ModelID      uuid.UUID    `db:"model_id" json:"model_id"`
	Plate        string       `db:"plate" json:"plate"`
	Availability Availability `db:"availability" json:"availability"`
	CreatedAt    time.Time    `db:"created_at" json:"created_at"`
}

type CarModel struct {
	ID    uuid.UUID `db:"id" json:"id"`
	Brand string    `db:"brand" json:"brand"`
	Name  string    `db:"name" json:"name"`
}
