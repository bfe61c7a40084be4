package app

import (
	"context"

	"github.com/MatYouKy/mavinci-reserve/internal/clock"
	"github.com/MatYouKy/mavinci-reserve/internal/domain"
)

type ItemFilter struct {
	IncludeCables   bool
	IncludeInactive bool
}

type CatalogRepository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	CreateItem(ctx context.Context, item domain.EquipmentItem) error
	GetItem(ctx context.Context, itemID string) (domain.EquipmentItem, error)
	GetItems(ctx context.Context, itemIDs []string) ([]domain.EquipmentItem, error)
	GetItemsForUpdate(ctx context.Context, itemIDs []string) ([]domain.EquipmentItem, error)
	UpdateItemStock(ctx context.Context, itemID string, totalQuantity int) error
	SetItemActive(ctx context.Context, itemID string, active bool) error
	ListItems(ctx context.Context, filter ItemFilter) ([]domain.EquipmentItem, error)
	CreateKit(ctx context.Context, kit domain.EquipmentKit) error
	GetKit(ctx context.Context, kitID string) (domain.EquipmentKit, error)
	SetKitActive(ctx context.Context, kitID string, active bool) error
	ListKits(ctx context.Context, includeInactive bool) ([]domain.EquipmentKit, error)
}

// CatalogService administers the equipment catalog. Stock changes take the
// same per-item lock as reservations so a quantity edit cannot race an
// in-flight availability check.
type CatalogService struct {
	repo  CatalogRepository
	clock clock.Clock
}

func NewCatalogService(repo CatalogRepository, clk clock.Clock) *CatalogService {
	return &CatalogService{repo: repo, clock: clk}
}

type CreateItemInput struct {
	Name          string
	Brand         string
	Model         string
	TotalQuantity int
	IsCable       bool
}

func (s *CatalogService) CreateItem(ctx context.Context, in CreateItemInput) (domain.EquipmentItem, error) {
	if in.Name == "" {
		return domain.EquipmentItem{}, domain.ErrNameRequired
	}
	if in.TotalQuantity < 0 {
		return domain.EquipmentItem{}, domain.ErrInvalidQuantity
	}

	item := domain.EquipmentItem{
		ID:            newID(),
		Name:          in.Name,
		Brand:         in.Brand,
		Model:         in.Model,
		TotalQuantity: in.TotalQuantity,
		IsCable:       in.IsCable,
		IsActive:      true,
		CreatedAt:     s.clock.Now(),
	}
	if err := s.repo.CreateItem(ctx, item); err != nil {
		return domain.EquipmentItem{}, err
	}
	return item, nil
}

func (s *CatalogService) GetItem(ctx context.Context, itemID string) (domain.EquipmentItem, error) {
	if itemID == "" {
		return domain.EquipmentItem{}, domain.ErrInvalidID
	}
	return s.repo.GetItem(ctx, itemID)
}

func (s *CatalogService) ListItems(ctx context.Context, filter ItemFilter) ([]domain.EquipmentItem, error) {
	return s.repo.ListItems(ctx, filter)
}

// SetItemStock changes total owned stock under the item's row lock.
func (s *CatalogService) SetItemStock(ctx context.Context, itemID string, totalQuantity int) (domain.EquipmentItem, error) {
	if itemID == "" {
		return domain.EquipmentItem{}, domain.ErrInvalidID
	}
	if totalQuantity < 0 {
		return domain.EquipmentItem{}, domain.ErrInvalidQuantity
	}

	var updated domain.EquipmentItem
	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		items, err := s.repo.GetItemsForUpdate(txCtx, []string{itemID})
		if err != nil {
			return err
		}
		if len(items) != 1 {
			return domain.ErrItemNotFound
		}
		if err := s.repo.UpdateItemStock(txCtx, itemID, totalQuantity); err != nil {
			return err
		}
		updated = items[0]
		updated.TotalQuantity = totalQuantity
		return nil
	})
	if err != nil {
		return domain.EquipmentItem{}, err
	}
	return updated, nil
}

// SetItemActive toggles selectability for new reservations. Existing
// reservations against a deactivated item remain valid.
func (s *CatalogService) SetItemActive(ctx context.Context, itemID string, active bool) error {
	if itemID == "" {
		return domain.ErrInvalidID
	}
	return s.repo.SetItemActive(ctx, itemID, active)
}

type KitComponentInput struct {
	ItemID   string
	Quantity int
}

type CreateKitInput struct {
	Name        string
	Description string
	Components  []KitComponentInput
}

func (s *CatalogService) CreateKit(ctx context.Context, in CreateKitInput) (domain.EquipmentKit, error) {
	if in.Name == "" {
		return domain.EquipmentKit{}, domain.ErrNameRequired
	}
	if len(in.Components) == 0 {
		return domain.EquipmentKit{}, domain.ErrEmptyKit
	}

	seen := make(map[string]struct{}, len(in.Components))
	components := make([]domain.KitComponent, 0, len(in.Components))
	ids := make([]string, 0, len(in.Components))
	for _, c := range in.Components {
		if c.ItemID == "" {
			return domain.EquipmentKit{}, domain.ErrInvalidID
		}
		if c.Quantity < 1 {
			return domain.EquipmentKit{}, domain.ErrInvalidQuantity
		}
		if _, dup := seen[c.ItemID]; dup {
			return domain.EquipmentKit{}, domain.ErrDuplicateComponent
		}
		seen[c.ItemID] = struct{}{}
		components = append(components, domain.KitComponent{ItemID: c.ItemID, Quantity: c.Quantity})
		ids = append(ids, c.ItemID)
	}

	items, err := s.repo.GetItems(ctx, ids)
	if err != nil {
		return domain.EquipmentKit{}, err
	}
	if len(items) != len(ids) {
		return domain.EquipmentKit{}, domain.ErrItemNotFound
	}
	for _, item := range items {
		if !item.IsActive {
			return domain.EquipmentKit{}, domain.ErrInactiveTarget
		}
	}

	kit := domain.EquipmentKit{
		ID:          newID(),
		Name:        in.Name,
		Description: in.Description,
		IsActive:    true,
		Components:  components,
		CreatedAt:   s.clock.Now(),
	}
	if err := s.repo.CreateKit(ctx, kit); err != nil {
		return domain.EquipmentKit{}, err
	}
	return kit, nil
}

func (s *CatalogService) GetKit(ctx context.Context, kitID string) (domain.EquipmentKit, error) {
	if kitID == "" {
		return domain.EquipmentKit{}, domain.ErrInvalidID
	}
	return s.repo.GetKit(ctx, kitID)
}

func (s *CatalogService) ListKits(ctx context.Context, includeInactive bool) ([]domain.EquipmentKit, error) {
	return s.repo.ListKits(ctx, includeInactive)
}

func (s *CatalogService) SetKitActive(ctx context.Context, kitID string, active bool) error {
	if kitID == "" {
		return domain.ErrInvalidID
	}
	return s.repo.SetKitActive(ctx, kitID, active)
}
