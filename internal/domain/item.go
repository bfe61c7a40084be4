package domain

import "time"

// EquipmentItem is a single type of physical stock with a total owned count.
// Identity is immutable once any reservation references the item; retiring
// stock is done by deactivating, never by deleting.
type EquipmentItem struct {
	ID            string
	Name          string
	Brand         string
	Model         string
	TotalQuantity int
	IsCable       bool
	IsActive      bool
	CreatedAt     time.Time
}
