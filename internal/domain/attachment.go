package domain

import "time"

type AttachmentStatus string

const (
	AttachmentStatusUnscheduled AttachmentStatus = "unscheduled"
	AttachmentStatusReserved    AttachmentStatus = "reserved"
	AttachmentStatusReleased    AttachmentStatus = "released"
)

// ProductEquipmentAttachment is a template: it states what a product requires
// when sold, without committing stock to any date. A dated Reservation is
// materialized only when the owning product lands on a scheduled event.
// Released attachments never return to reserved; a fresh reservation is made
// instead so the history stays auditable.
type ProductEquipmentAttachment struct {
	ID            string
	ProductID     string
	ItemID        string // exactly one of ItemID / KitID is set
	KitID         string
	Quantity      int
	IsOptional    bool
	Notes         string
	Status        AttachmentStatus
	ReservationID string // set while reserved
	CreatedAt     time.Time
	ReleasedAt    *time.Time
}

// TargetType returns the catalog target the attachment points at.
func (a ProductEquipmentAttachment) TargetType() TargetType {
	if a.KitID != "" {
		return TargetKit
	}
	return TargetItem
}

// TargetID returns the id of the referenced item or kit.
func (a ProductEquipmentAttachment) TargetID() string {
	if a.KitID != "" {
		return a.KitID
	}
	return a.ItemID
}
