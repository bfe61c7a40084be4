package domain

import "time"

type ConsumerType string

const (
	ConsumerEvent   ConsumerType = "event"
	ConsumerProduct ConsumerType = "product"
	ConsumerManual  ConsumerType = "manual"
)

func (c ConsumerType) Valid() bool {
	switch c {
	case ConsumerEvent, ConsumerProduct, ConsumerManual:
		return true
	}
	return false
}

type TargetType string

const (
	TargetItem TargetType = "item"
	TargetKit  TargetType = "kit"
)

func (t TargetType) Valid() bool {
	return t == TargetItem || t == TargetKit
}

type ReservationStatus string

const (
	ReservationStatusActive    ReservationStatus = "active"
	ReservationStatusCancelled ReservationStatus = "cancelled"
)

// ReservationLine is one expanded (item, quantity) allocation under a
// reservation. Kit reservations carry one line per component so the kit
// relationship can be re-materialized for display and cancellation.
type ReservationLine struct {
	ItemID   string
	Quantity int
}

// Reservation commits a quantity of an item or kit to a consumer over an
// interval. Tentative reservations are pencil bookings: they may oversubscribe
// and are excluded from availability sums until confirmed as firm ones.
type Reservation struct {
	ID           string
	ConsumerType ConsumerType
	ConsumerID   string
	TargetType   TargetType
	TargetID     string
	Quantity     int
	Interval     Interval
	IsOptional   bool
	Tentative    bool
	Status       ReservationStatus
	Notes        string
	Lines        []ReservationLine
	CreatedAt    time.Time
	CancelledAt  *time.Time
}
