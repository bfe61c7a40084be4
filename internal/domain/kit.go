package domain

import "time"

// KitComponent binds a quantity of one item into a kit.
type KitComponent struct {
	ItemID   string
	Quantity int
}

// EquipmentKit is a named bundle of items reserved as one unit but consuming
// stock from each component. Kits never nest inside other kits.
type EquipmentKit struct {
	ID          string
	Name        string
	Description string
	IsActive    bool
	Components  []KitComponent
	CreatedAt   time.Time
}

// ItemRequirement is a flattened demand for a quantity of one item.
type ItemRequirement struct {
	ItemID   string
	Quantity int
}

// Expand flattens the kit into per-item requirements for the requested number
// of kit units. It is pure and shared by the availability check and the
// reserve path so the two cannot diverge.
func (k EquipmentKit) Expand(requested int) ([]ItemRequirement, error) {
	if requested < 1 {
		return nil, ErrInvalidQuantity
	}
	if len(k.Components) == 0 {
		return nil, ErrEmptyKit
	}
	reqs := make([]ItemRequirement, 0, len(k.Components))
	for _, c := range k.Components {
		reqs = append(reqs, ItemRequirement{
			ItemID:   c.ItemID,
			Quantity: c.Quantity * requested,
		})
	}
	return reqs, nil
}
