package http

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/MatYouKy/mavinci-reserve/internal/app"
	"github.com/MatYouKy/mavinci-reserve/internal/domain"
)

type stubCatalogService struct {
	item       domain.EquipmentItem
	items      []domain.EquipmentItem
	kit        domain.EquipmentKit
	kits       []domain.EquipmentKit
	err        error
	lastFilter app.ItemFilter
}

func (s *stubCatalogService) CreateItem(_ context.Context, _ app.CreateItemInput) (domain.EquipmentItem, error) {
	return s.item, s.err
}

func (s *stubCatalogService) ListItems(_ context.Context, filter app.ItemFilter) ([]domain.EquipmentItem, error) {
	s.lastFilter = filter
	return s.items, s.err
}

func (s *stubCatalogService) SetItemStock(_ context.Context, _ string, _ int) (domain.EquipmentItem, error) {
	return s.item, s.err
}

func (s *stubCatalogService) SetItemActive(_ context.Context, _ string, _ bool) error {
	return s.err
}

func (s *stubCatalogService) CreateKit(_ context.Context, _ app.CreateKitInput) (domain.EquipmentKit, error) {
	return s.kit, s.err
}

func (s *stubCatalogService) ListKits(_ context.Context, _ bool) ([]domain.EquipmentKit, error) {
	return s.kits, s.err
}

func (s *stubCatalogService) SetKitActive(_ context.Context, _ string, _ bool) error {
	return s.err
}

func TestHandleCatalogItems(t *testing.T) {
	t.Parallel()

	t.Run("create item", func(t *testing.T) {
		t.Parallel()
		svc := &stubCatalogService{item: domain.EquipmentItem{ID: "item-1", Name: "Speaker A", TotalQuantity: 10, IsActive: true}}
		body := `{"name":"Speaker A","total_quantity":10}`
		req := httptest.NewRequest(http.MethodPost, "/catalog/items", bytes.NewBufferString(body))
		rec := httptest.NewRecorder()

		HandleCatalogItems(svc).ServeHTTP(rec, req)

		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
		if !strings.Contains(rec.Body.String(), `"id":"item-1"`) {
			t.Fatalf("expected item in body, got %s", rec.Body.String())
		}
	})

	t.Run("create without name", func(t *testing.T) {
		t.Parallel()
		svc := &stubCatalogService{err: domain.ErrNameRequired}
		req := httptest.NewRequest(http.MethodPost, "/catalog/items", bytes.NewBufferString(`{"total_quantity":1}`))
		rec := httptest.NewRecorder()

		HandleCatalogItems(svc).ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("list passes filter flags", func(t *testing.T) {
		t.Parallel()
		svc := &stubCatalogService{items: []domain.EquipmentItem{{ID: "item-1"}}}
		req := httptest.NewRequest(http.MethodGet, "/catalog/items?include_cables=true&include_inactive=true", nil)
		rec := httptest.NewRecorder()

		HandleCatalogItems(svc).ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if !svc.lastFilter.IncludeCables || !svc.lastFilter.IncludeInactive {
			t.Fatalf("expected both filter flags set, got %+v", svc.lastFilter)
		}
	})

	t.Run("cables excluded by default", func(t *testing.T) {
		t.Parallel()
		svc := &stubCatalogService{}
		req := httptest.NewRequest(http.MethodGet, "/catalog/items", nil)
		rec := httptest.NewRecorder()

		HandleCatalogItems(svc).ServeHTTP(rec, req)

		if svc.lastFilter.IncludeCables {
			t.Fatalf("expected cables excluded by default")
		}
	})
}

func TestHandleCatalogItemActions(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name           string
		path           string
		body           string
		serviceErr     error
		expectedStatus int
	}{
		{
			name:           "set stock",
			path:           "/catalog/items/item-1/stock",
			body:           `{"total_quantity":4}`,
			expectedStatus: http.StatusOK,
		},
		{
			name:           "set stock unknown item",
			path:           "/catalog/items/item-x/stock",
			body:           `{"total_quantity":4}`,
			serviceErr:     domain.ErrItemNotFound,
			expectedStatus: http.StatusNotFound,
		},
		{
			name:           "set stock busy",
			path:           "/catalog/items/item-1/stock",
			body:           `{"total_quantity":4}`,
			serviceErr:     domain.ErrBusy,
			expectedStatus: http.StatusServiceUnavailable,
		},
		{
			name:           "deactivate",
			path:           "/catalog/items/item-1/active",
			body:           `{"active":false}`,
			expectedStatus: http.StatusNoContent,
		},
		{
			name:           "unknown action",
			path:           "/catalog/items/item-1/rename",
			body:           `{}`,
			expectedStatus: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			svc := &stubCatalogService{item: domain.EquipmentItem{ID: "item-1"}, err: tt.serviceErr}
			req := httptest.NewRequest(http.MethodPost, tt.path, bytes.NewBufferString(tt.body))
			rec := httptest.NewRecorder()

			HandleCatalogItemActions(svc).ServeHTTP(rec, req)

			if rec.Code != tt.expectedStatus {
				t.Fatalf("expected status %d, got %d: %s", tt.expectedStatus, rec.Code, rec.Body.String())
			}
		})
	}
}

func TestHandleCatalogKits(t *testing.T) {
	t.Parallel()

	t.Run("create kit", func(t *testing.T) {
		t.Parallel()
		svc := &stubCatalogService{kit: domain.EquipmentKit{
			ID:         "kit-1",
			Name:       "Stage Basic",
			IsActive:   true,
			Components: []domain.KitComponent{{ItemID: "item-1", Quantity: 2}},
		}}
		body := `{"name":"Stage Basic","components":[{"item_id":"item-1","quantity":2}]}`
		req := httptest.NewRequest(http.MethodPost, "/catalog/kits", bytes.NewBufferString(body))
		rec := httptest.NewRecorder()

		HandleCatalogKits(svc).ServeHTTP(rec, req)

		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
		if !strings.Contains(rec.Body.String(), `"item_id":"item-1"`) {
			t.Fatalf("expected components in body, got %s", rec.Body.String())
		}
	})

	t.Run("duplicate component", func(t *testing.T) {
		t.Parallel()
		svc := &stubCatalogService{err: domain.ErrDuplicateComponent}
		body := `{"name":"Doubled","components":[{"item_id":"item-1","quantity":1},{"item_id":"item-1","quantity":2}]}`
		req := httptest.NewRequest(http.MethodPost, "/catalog/kits", bytes.NewBufferString(body))
		rec := httptest.NewRecorder()

		HandleCatalogKits(svc).ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("kit activation toggle", func(t *testing.T) {
		t.Parallel()
		svc := &stubCatalogService{}
		req := httptest.NewRequest(http.MethodPost, "/catalog/kits/kit-1/active", bytes.NewBufferString(`{"active":false}`))
		rec := httptest.NewRecorder()

		HandleCatalogKitActions(svc).ServeHTTP(rec, req)

		if rec.Code != http.StatusNoContent {
			t.Fatalf("expected 204, got %d", rec.Code)
		}
	})
}
