package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/MatYouKy/mavinci-reserve/internal/app"
	"github.com/MatYouKy/mavinci-reserve/internal/domain"
)

// CatalogAdmin is the minimal catalog administration surface.
type CatalogAdmin interface {
	CreateItem(ctx context.Context, in app.CreateItemInput) (domain.EquipmentItem, error)
	ListItems(ctx context.Context, filter app.ItemFilter) ([]domain.EquipmentItem, error)
	SetItemStock(ctx context.Context, itemID string, totalQuantity int) (domain.EquipmentItem, error)
	SetItemActive(ctx context.Context, itemID string, active bool) error
	CreateKit(ctx context.Context, in app.CreateKitInput) (domain.EquipmentKit, error)
	ListKits(ctx context.Context, includeInactive bool) ([]domain.EquipmentKit, error)
	SetKitActive(ctx context.Context, kitID string, active bool) error
}

// HandleCatalogItems serves POST /catalog/items and GET /catalog/items.
// Cables are excluded from listings unless explicitly requested; they follow
// identical reservation rules otherwise.
func HandleCatalogItems(svc CatalogAdmin) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			var req createItemRequest
			dec := json.NewDecoder(r.Body)
			dec.DisallowUnknownFields()
			if err := dec.Decode(&req); err != nil {
				writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
				return
			}

			item, err := svc.CreateItem(r.Context(), app.CreateItemInput{
				Name:          req.Name,
				Brand:         req.Brand,
				Model:         req.Model,
				TotalQuantity: req.TotalQuantity,
				IsCable:       req.IsCable,
			})
			if err != nil {
				writeServiceError(w, err)
				return
			}

			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusCreated)
			_ = json.NewEncoder(w).Encode(toItemResponse(item))

		case http.MethodGet:
			filter := app.ItemFilter{
				IncludeCables:   r.URL.Query().Get("include_cables") == "true",
				IncludeInactive: r.URL.Query().Get("include_inactive") == "true",
			}
			items, err := svc.ListItems(r.Context(), filter)
			if err != nil {
				writeServiceError(w, err)
				return
			}

			out := make([]itemResponse, 0, len(items))
			for _, item := range items {
				out = append(out, toItemResponse(item))
			}
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			_ = json.NewEncoder(w).Encode(out)

		default:
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
		}
	}
}

// HandleCatalogItemActions serves POST /catalog/items/{id}/stock and
// POST /catalog/items/{id}/active.
func HandleCatalogItemActions(svc CatalogAdmin) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}

		id, action, ok := parseCatalogActionPath(r.URL.Path, "items")
		if !ok {
			writeError(w, http.StatusNotFound, codeNotFound, "not found")
			return
		}

		switch action {
		case "stock":
			var req setStockRequest
			dec := json.NewDecoder(r.Body)
			dec.DisallowUnknownFields()
			if err := dec.Decode(&req); err != nil {
				writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
				return
			}
			item, err := svc.SetItemStock(r.Context(), id, req.TotalQuantity)
			if err != nil {
				writeServiceError(w, err)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			_ = json.NewEncoder(w).Encode(toItemResponse(item))

		case "active":
			var req setActiveRequest
			dec := json.NewDecoder(r.Body)
			dec.DisallowUnknownFields()
			if err := dec.Decode(&req); err != nil {
				writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
				return
			}
			if err := svc.SetItemActive(r.Context(), id, req.Active); err != nil {
				writeServiceError(w, err)
				return
			}
			w.WriteHeader(http.StatusNoContent)

		default:
			writeError(w, http.StatusNotFound, codeNotFound, "not found")
		}
	}
}

// HandleCatalogKits serves POST /catalog/kits and GET /catalog/kits.
func HandleCatalogKits(svc CatalogAdmin) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			var req createKitRequest
			dec := json.NewDecoder(r.Body)
			dec.DisallowUnknownFields()
			if err := dec.Decode(&req); err != nil {
				writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
				return
			}

			components := make([]app.KitComponentInput, 0, len(req.Components))
			for _, c := range req.Components {
				components = append(components, app.KitComponentInput{ItemID: c.ItemID, Quantity: c.Quantity})
			}

			kit, err := svc.CreateKit(r.Context(), app.CreateKitInput{
				Name:        req.Name,
				Description: req.Description,
				Components:  components,
			})
			if err != nil {
				writeServiceError(w, err)
				return
			}

			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusCreated)
			_ = json.NewEncoder(w).Encode(toKitResponse(kit))

		case http.MethodGet:
			kits, err := svc.ListKits(r.Context(), r.URL.Query().Get("include_inactive") == "true")
			if err != nil {
				writeServiceError(w, err)
				return
			}
			out := make([]kitResponse, 0, len(kits))
			for _, kit := range kits {
				out = append(out, toKitResponse(kit))
			}
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			_ = json.NewEncoder(w).Encode(out)

		default:
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
		}
	}
}

// HandleCatalogKitActions serves POST /catalog/kits/{id}/active.
func HandleCatalogKitActions(svc CatalogAdmin) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}

		id, action, ok := parseCatalogActionPath(r.URL.Path, "kits")
		if !ok || action != "active" {
			writeError(w, http.StatusNotFound, codeNotFound, "not found")
			return
		}

		var req setActiveRequest
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}
		if err := svc.SetKitActive(r.Context(), id, req.Active); err != nil {
			writeServiceError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func parseCatalogActionPath(path, kind string) (id, action string, ok bool) {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) != 4 || parts[0] != "catalog" || parts[1] != kind || parts[2] == "" {
		return "", "", false
	}
	return parts[2], parts[3], true
}

type createItemRequest struct {
	Name          string `json:"name"`
	Brand         string `json:"brand"`
	Model         string `json:"model"`
	TotalQuantity int    `json:"total_quantity"`
	IsCable       bool   `json:"is_cable"`
}

type setStockRequest struct {
	TotalQuantity int `json:"total_quantity"`
}

type setActiveRequest struct {
	Active bool `json:"active"`
}

type itemResponse struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Brand         string    `json:"brand,omitempty"`
	Model         string    `json:"model,omitempty"`
	TotalQuantity int       `json:"total_quantity"`
	IsCable       bool      `json:"is_cable"`
	IsActive      bool      `json:"is_active"`
	CreatedAt     time.Time `json:"created_at"`
}

func toItemResponse(item domain.EquipmentItem) itemResponse {
	return itemResponse{
		ID:            item.ID,
		Name:          item.Name,
		Brand:         item.Brand,
		Model:         item.Model,
		TotalQuantity: item.TotalQuantity,
		IsCable:       item.IsCable,
		IsActive:      item.IsActive,
		CreatedAt:     item.CreatedAt,
	}
}

type kitComponentPayload struct {
	ItemID   string `json:"item_id"`
	Quantity int    `json:"quantity"`
}

type createKitRequest struct {
	Name        string                `json:"name"`
	Description string                `json:"description"`
	Components  []kitComponentPayload `json:"components"`
}

type kitResponse struct {
	ID          string                `json:"id"`
	Name        string                `json:"name"`
	Description string                `json:"description,omitempty"`
	IsActive    bool                  `json:"is_active"`
	Components  []kitComponentPayload `json:"components"`
	CreatedAt   time.Time             `json:"created_at"`
}

func toKitResponse(kit domain.EquipmentKit) kitResponse {
	components := make([]kitComponentPayload, 0, len(kit.Components))
	for _, c := range kit.Components {
		components = append(components, kitComponentPayload{ItemID: c.ItemID, Quantity: c.Quantity})
	}
	return kitResponse{
		ID:          kit.ID,
		Name:        kit.Name,
		Description: kit.Description,
		IsActive:    kit.IsActive,
		Components:  components,
		CreatedAt:   kit.CreatedAt,
	}
}
