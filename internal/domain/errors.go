package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidQuantity     = errors.New("invalid quantity")
	ErrInvalidInterval     = errors.New("invalid interval")
	ErrInvalidConsumer     = errors.New("invalid consumer")
	ErrInvalidTarget       = errors.New("invalid target")
	ErrUnknownKit          = errors.New("unknown kit")
	ErrEmptyKit            = errors.New("kit has no components")
	ErrInactiveTarget      = errors.New("target is inactive")
	ErrItemNotFound        = errors.New("item not found")
	ErrKitNotFound         = errors.New("kit not found")
	ErrReservationNotFound = errors.New("reservation not found")
	ErrAttachmentNotFound  = errors.New("attachment not found")
	ErrAttachmentReleased  = errors.New("attachment already released")
	ErrDuplicateComponent  = errors.New("duplicate kit component")
	ErrNameRequired        = errors.New("name required")
	ErrBusy                = errors.New("resource busy, retry")
	ErrInvalidID           = errors.New("invalid id")
)

// ItemShortfall reports how many units of one item are missing for a request.
type ItemShortfall struct {
	ItemID  string `json:"item_id"`
	Missing int    `json:"missing"`
}

// OverbookingError rejects a reservation whose demand exceeds free stock.
// It always carries the complete per-item shortfall so callers can present
// every conflicting item at once.
type OverbookingError struct {
	Shortfall []ItemShortfall
}

func (e *OverbookingError) Error() string {
	if len(e.Shortfall) == 0 {
		return "overbooking"
	}
	parts := make([]string, 0, len(e.Shortfall))
	for _, s := range e.Shortfall {
		parts = append(parts, fmt.Sprintf("%s short by %d", s.ItemID, s.Missing))
	}
	return "overbooking: " + strings.Join(parts, ", ")
}
