package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/MatYouKy/mavinci-reserve/internal/clock"
	"github.com/MatYouKy/mavinci-reserve/internal/domain"
)

func TestCatalogService_CreateItem(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	t.Run("creates active item", func(t *testing.T) {
		repo := newFakeCatalogRepo(nil, nil)
		svc := NewCatalogService(repo, clock.NewFixed(now))

		item, err := svc.CreateItem(context.Background(), CreateItemInput{
			Name:          "Speaker A",
			Brand:         "Acme",
			TotalQuantity: 10,
		})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if item.ID == "" {
			t.Fatalf("expected item ID to be set")
		}
		if !item.IsActive {
			t.Fatalf("expected new item active")
		}
		if item.CreatedAt != now {
			t.Fatalf("expected created_at %v, got %v", now, item.CreatedAt)
		}
	})

	t.Run("name required", func(t *testing.T) {
		repo := newFakeCatalogRepo(nil, nil)
		svc := NewCatalogService(repo, clock.NewFixed(now))

		if _, err := svc.CreateItem(context.Background(), CreateItemInput{TotalQuantity: 1}); !errors.Is(err, domain.ErrNameRequired) {
			t.Fatalf("expected ErrNameRequired, got %v", err)
		}
	})

	t.Run("negative stock rejected", func(t *testing.T) {
		repo := newFakeCatalogRepo(nil, nil)
		svc := NewCatalogService(repo, clock.NewFixed(now))

		if _, err := svc.CreateItem(context.Background(), CreateItemInput{Name: "x", TotalQuantity: -1}); !errors.Is(err, domain.ErrInvalidQuantity) {
			t.Fatalf("expected ErrInvalidQuantity, got %v", err)
		}
	})

	t.Run("zero stock allowed", func(t *testing.T) {
		repo := newFakeCatalogRepo(nil, nil)
		svc := NewCatalogService(repo, clock.NewFixed(now))

		item, err := svc.CreateItem(context.Background(), CreateItemInput{Name: "Spare", TotalQuantity: 0})
		if err != nil {
			t.Fatalf("expected zero stock to be valid, got %v", err)
		}
		if item.TotalQuantity != 0 {
			t.Fatalf("expected 0 stock, got %d", item.TotalQuantity)
		}
	})
}

func TestCatalogService_SetItemStock(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	speaker := domain.EquipmentItem{ID: "item-speaker", Name: "Speaker A", TotalQuantity: 10, IsActive: true}

	t.Run("updates under lock", func(t *testing.T) {
		repo := newFakeCatalogRepo([]domain.EquipmentItem{speaker}, nil)
		svc := NewCatalogService(repo, clock.NewFixed(now))

		item, err := svc.SetItemStock(context.Background(), "item-speaker", 4)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if item.TotalQuantity != 4 {
			t.Fatalf("expected stock 4, got %d", item.TotalQuantity)
		}
		if repo.items["item-speaker"].TotalQuantity != 4 {
			t.Fatalf("expected repo stock 4, got %d", repo.items["item-speaker"].TotalQuantity)
		}
	})

	t.Run("unknown item fails", func(t *testing.T) {
		repo := newFakeCatalogRepo(nil, nil)
		svc := NewCatalogService(repo, clock.NewFixed(now))

		if _, err := svc.SetItemStock(context.Background(), "item-missing", 4); !errors.Is(err, domain.ErrItemNotFound) {
			t.Fatalf("expected ErrItemNotFound, got %v", err)
		}
	})

	t.Run("negative stock rejected", func(t *testing.T) {
		repo := newFakeCatalogRepo([]domain.EquipmentItem{speaker}, nil)
		svc := NewCatalogService(repo, clock.NewFixed(now))

		if _, err := svc.SetItemStock(context.Background(), "item-speaker", -2); !errors.Is(err, domain.ErrInvalidQuantity) {
			t.Fatalf("expected ErrInvalidQuantity, got %v", err)
		}
	})
}

func TestCatalogService_CreateKit(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	speaker := domain.EquipmentItem{ID: "item-speaker", Name: "Speaker A", TotalQuantity: 10, IsActive: true}
	mixer := domain.EquipmentItem{ID: "item-mixer", Name: "Mixer", TotalQuantity: 3, IsActive: true}

	t.Run("creates kit over existing items", func(t *testing.T) {
		repo := newFakeCatalogRepo([]domain.EquipmentItem{speaker, mixer}, nil)
		svc := NewCatalogService(repo, clock.NewFixed(now))

		kit, err := svc.CreateKit(context.Background(), CreateKitInput{
			Name: "Stage Basic",
			Components: []KitComponentInput{
				{ItemID: "item-speaker", Quantity: 2},
				{ItemID: "item-mixer", Quantity: 1},
			},
		})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(kit.Components) != 2 {
			t.Fatalf("expected 2 components, got %d", len(kit.Components))
		}
		if !kit.IsActive {
			t.Fatalf("expected new kit active")
		}
	})

	t.Run("duplicate component rejected", func(t *testing.T) {
		repo := newFakeCatalogRepo([]domain.EquipmentItem{speaker}, nil)
		svc := NewCatalogService(repo, clock.NewFixed(now))

		_, err := svc.CreateKit(context.Background(), CreateKitInput{
			Name: "Doubled",
			Components: []KitComponentInput{
				{ItemID: "item-speaker", Quantity: 1},
				{ItemID: "item-speaker", Quantity: 2},
			},
		})
		if !errors.Is(err, domain.ErrDuplicateComponent) {
			t.Fatalf("expected ErrDuplicateComponent, got %v", err)
		}
	})

	t.Run("missing component item rejected", func(t *testing.T) {
		repo := newFakeCatalogRepo([]domain.EquipmentItem{speaker}, nil)
		svc := NewCatalogService(repo, clock.NewFixed(now))

		_, err := svc.CreateKit(context.Background(), CreateKitInput{
			Name:       "Ghost",
			Components: []KitComponentInput{{ItemID: "item-missing", Quantity: 1}},
		})
		if !errors.Is(err, domain.ErrItemNotFound) {
			t.Fatalf("expected ErrItemNotFound, got %v", err)
		}
	})

	t.Run("inactive component rejected", func(t *testing.T) {
		retired := domain.EquipmentItem{ID: "item-old", Name: "Retired", TotalQuantity: 1, IsActive: false}
		repo := newFakeCatalogRepo([]domain.EquipmentItem{retired}, nil)
		svc := NewCatalogService(repo, clock.NewFixed(now))

		_, err := svc.CreateKit(context.Background(), CreateKitInput{
			Name:       "Stale",
			Components: []KitComponentInput{{ItemID: "item-old", Quantity: 1}},
		})
		if !errors.Is(err, domain.ErrInactiveTarget) {
			t.Fatalf("expected ErrInactiveTarget, got %v", err)
		}
	})

	t.Run("empty kit rejected", func(t *testing.T) {
		repo := newFakeCatalogRepo(nil, nil)
		svc := NewCatalogService(repo, clock.NewFixed(now))

		if _, err := svc.CreateKit(context.Background(), CreateKitInput{Name: "Empty"}); !errors.Is(err, domain.ErrEmptyKit) {
			t.Fatalf("expected ErrEmptyKit, got %v", err)
		}
	})

	t.Run("zero component quantity rejected", func(t *testing.T) {
		repo := newFakeCatalogRepo([]domain.EquipmentItem{speaker}, nil)
		svc := NewCatalogService(repo, clock.NewFixed(now))

		_, err := svc.CreateKit(context.Background(), CreateKitInput{
			Name:       "Zeroed",
			Components: []KitComponentInput{{ItemID: "item-speaker", Quantity: 0}},
		})
		if !errors.Is(err, domain.ErrInvalidQuantity) {
			t.Fatalf("expected ErrInvalidQuantity, got %v", err)
		}
	})
}

type fakeCatalogRepo struct {
	items map[string]domain.EquipmentItem
	kits  map[string]domain.EquipmentKit
}

func newFakeCatalogRepo(items []domain.EquipmentItem, kits []domain.EquipmentKit) *fakeCatalogRepo {
	f := &fakeCatalogRepo{
		items: make(map[string]domain.EquipmentItem),
		kits:  make(map[string]domain.EquipmentKit),
	}
	for _, item := range items {
		f.items[item.ID] = item
	}
	for _, kit := range kits {
		f.kits[kit.ID] = kit
	}
	return f
}

func (f *fakeCatalogRepo) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func (f *fakeCatalogRepo) CreateItem(_ context.Context, item domain.EquipmentItem) error {
	f.items[item.ID] = item
	return nil
}

func (f *fakeCatalogRepo) GetItem(_ context.Context, itemID string) (domain.EquipmentItem, error) {
	item, ok := f.items[itemID]
	if !ok {
		return domain.EquipmentItem{}, domain.ErrItemNotFound
	}
	return item, nil
}

func (f *fakeCatalogRepo) GetItems(_ context.Context, itemIDs []string) ([]domain.EquipmentItem, error) {
	out := make([]domain.EquipmentItem, 0, len(itemIDs))
	for _, id := range itemIDs {
		if item, ok := f.items[id]; ok {
			out = append(out, item)
		}
	}
	return out, nil
}

func (f *fakeCatalogRepo) GetItemsForUpdate(ctx context.Context, itemIDs []string) ([]domain.EquipmentItem, error) {
	return f.GetItems(ctx, itemIDs)
}

func (f *fakeCatalogRepo) UpdateItemStock(_ context.Context, itemID string, totalQuantity int) error {
	item, ok := f.items[itemID]
	if !ok {
		return domain.ErrItemNotFound
	}
	item.TotalQuantity = totalQuantity
	f.items[itemID] = item
	return nil
}

func (f *fakeCatalogRepo) SetItemActive(_ context.Context, itemID string, active bool) error {
	item, ok := f.items[itemID]
	if !ok {
		return domain.ErrItemNotFound
	}
	item.IsActive = active
	f.items[itemID] = item
	return nil
}

func (f *fakeCatalogRepo) ListItems(_ context.Context, filter ItemFilter) ([]domain.EquipmentItem, error) {
	var out []domain.EquipmentItem
	for _, item := range f.items {
		if item.IsCable && !filter.IncludeCables {
			continue
		}
		if !item.IsActive && !filter.IncludeInactive {
			continue
		}
		out = append(out, item)
	}
	return out, nil
}

func (f *fakeCatalogRepo) CreateKit(_ context.Context, kit domain.EquipmentKit) error {
	f.kits[kit.ID] = kit
	return nil
}

func (f *fakeCatalogRepo) GetKit(_ context.Context, kitID string) (domain.EquipmentKit, error) {
	kit, ok := f.kits[kitID]
	if !ok {
		return domain.EquipmentKit{}, domain.ErrKitNotFound
	}
	return kit, nil
}

func (f *fakeCatalogRepo) SetKitActive(_ context.Context, kitID string, active bool) error {
	kit, ok := f.kits[kitID]
	if !ok {
		return domain.ErrKitNotFound
	}
	kit.IsActive = active
	f.kits[kitID] = kit
	return nil
}

func (f *fakeCatalogRepo) ListKits(_ context.Context, includeInactive bool) ([]domain.EquipmentKit, error) {
	var out []domain.EquipmentKit
	for _, kit := range f.kits {
		if !kit.IsActive && !includeInactive {
			continue
		}
		out = append(out, kit)
	}
	return out, nil
}
