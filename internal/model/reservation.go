package model

import (
	"time"

	"github.com/google/uuid"
)

// ReservationStatus is the closed set of reservation lifecycle states.
type ReservationStatus string

const (
	ReservationStatusCreated        ReservationStatus = "CREATED"
	ReservationStatusPending        ReservationStatus = "PENDING"
	ReservationStatusApproved       ReservationStatus = "APPROVED"
	ReservationStatusRejected       ReservationStatus = "REJECTED"
	ReservationStatusPayed          ReservationStatus = "PAYED"
	ReservationStatusOnCourse       ReservationStatus = "ON_COURSE"
	ReservationStatusTerminated     ReservationStatus = "TERMINATED"
	ReservationStatusPaymentRefused ReservationStatus = "PAYMENT_REFUSED"
)

func (s ReservationStatus) Valid() bool {
	switch s {
	case ReservationStatusCreated, ReservationStatusPending,
		ReservationStatusApproved, ReservationStatusRejected,
		ReservationStatusPayed, ReservationStatusOnCourse,
		ReservationStatusTerminated, ReservationStatusPaymentRefused:
		return true
	}
	return false
}

// IsTerminal reports whether the reservation has reached a final outcome.
func (s ReservationStatus) IsTerminal() bool {
	switch s {
	case ReservationStatusRejected, ReservationStatusTerminated,
		ReservationStatusPaymentRefused:
		return true
	}
	return false
}

// Reservation is one booking. Version is the optimistic-concurrency counter:
// every update must carry the version it read, and a stale version aborts the
// update instead of overwriting.
type Reservation struct {
	ID              uuid.UUID         `db:"id" json:"id"`
	CustomerID      uuid.UUID         `db:"customer_id" json:"customer_id"`
	EmployeeID      *uuid.UUID        `db:"employee_id" json:"employee_id,omitempty"`
	VehicleID       uuid.UUID         `db:"vehicle_id" json:"vehicle_id"`
	Status          ReservationStatus `db:"status" json:"status"`
	StartDate       time.Time         `db:"start_date" json:"start_date"`
	EndDate         time.Time         `db:"end_date" json:"end_date"`
	ReservationDate time.Time         `db:"reservation_date" json:"reservation_date"`
	PaymentAmount   float64           `db:"payment_amount" json:"payment_amount"`
	Version         int64             `db:"version" json:"version"`
}

// ReservationInterval is the slice of a reservation the calendar calculator
// needs: which vehicle is taken between which dates (both inclusive).
type ReservationInterval struct {
	VehicleID uuid.UUID `db:"vehicle_id" json:"vehicle_id"`
	StartDate time.Time `db:"start_date" json:"start_date"`
	EndDate   time.Time `db:"end_date" json:"end_date"`
}
