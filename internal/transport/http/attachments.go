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

// AttachmentManager is the minimal attachment-layer surface.
type AttachmentManager interface {
	Attach(ctx context.Context, in app.AttachInput) (domain.ProductEquipmentAttachment, error)
	Detach(ctx context.Context, attachmentID string) error
	ListAttachments(ctx context.Context, productID string) ([]domain.ProductEquipmentAttachment, error)
	MaterializeProduct(ctx context.Context, in app.MaterializeInput) (app.MaterializeResult, error)
	ReleaseProduct(ctx context.Context, productID string) error
}

// HandleAttachments serves POST /attachments.
func HandleAttachments(svc AttachmentManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}

		var req attachRequest
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}

		att, err := svc.Attach(r.Context(), app.AttachInput{
			ProductID:  req.ProductID,
			TargetType: domain.TargetType(req.TargetType),
			TargetID:   req.TargetID,
			Quantity:   req.Quantity,
			IsOptional: req.IsOptional,
			Notes:      req.Notes,
		})
		if err != nil {
			writeServiceError(w, err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(toAttachmentResponse(att))
	}
}

// HandleAttachmentActions serves POST /attachments/{id}/detach.
func HandleAttachmentActions(svc AttachmentManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}

		parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
		if len(parts) != 3 || parts[0] != "attachments" || parts[1] == "" || parts[2] != "detach" {
			writeError(w, http.StatusNotFound, codeNotFound, "not found")
			return
		}

		if err := svc.Detach(r.Context(), parts[1]); err != nil {
			writeServiceError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// HandleProducts serves GET /products/{id}/attachments,
// POST /products/{id}/materialize and POST /products/{id}/release.
func HandleProducts(svc AttachmentManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
		if len(parts) != 3 || parts[0] != "products" || parts[1] == "" {
			writeError(w, http.StatusNotFound, codeNotFound, "not found")
			return
		}
		productID, action := parts[1], parts[2]

		switch {
		case action == "attachments" && r.Method == http.MethodGet:
			attachments, err := svc.ListAttachments(r.Context(), productID)
			if err != nil {
				writeServiceError(w, err)
				return
			}
			out := make([]attachmentResponse, 0, len(attachments))
			for _, att := range attachments {
				out = append(out, toAttachmentResponse(att))
			}
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			_ = json.NewEncoder(w).Encode(out)

		case action == "materialize" && r.Method == http.MethodPost:
			var req materializeRequest
			dec := json.NewDecoder(r.Body)
			dec.DisallowUnknownFields()
			if err := dec.Decode(&req); err != nil {
				writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
				return
			}

			result, err := svc.MaterializeProduct(r.Context(), app.MaterializeInput{
				ProductID: productID,
				EventID:   req.EventID,
				Interval:  domain.Interval{Start: req.StartsAt, End: req.EndsAt},
			})
			if err != nil {
				writeServiceError(w, err)
				return
			}

			status := http.StatusOK
			if result.Blocked {
				// Mandatory conflicts block the placement; nothing committed.
				status = http.StatusConflict
			}
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(status)
			_ = json.NewEncoder(w).Encode(toMaterializeResponse(result))

		case action == "release" && r.Method == http.MethodPost:
			if err := svc.ReleaseProduct(r.Context(), productID); err != nil {
				writeServiceError(w, err)
				return
			}
			w.WriteHeader(http.StatusNoContent)

		default:
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
		}
	}
}

type attachRequest struct {
	ProductID  string `json:"product_id"`
	TargetType string `json:"target_type"`
	TargetID   string `json:"target_id"`
	Quantity   int    `json:"quantity"`
	IsOptional bool   `json:"is_optional"`
	Notes      string `json:"notes"`
}

type materializeRequest struct {
	EventID  string     `json:"event_id"`
	StartsAt time.Time  `json:"starts_at"`
	EndsAt   *time.Time `json:"ends_at"`
}

type attachmentResponse struct {
	ID            string     `json:"id"`
	ProductID     string     `json:"product_id"`
	ItemID        string     `json:"item_id,omitempty"`
	KitID         string     `json:"kit_id,omitempty"`
	Quantity      int        `json:"quantity"`
	IsOptional    bool       `json:"is_optional"`
	Notes         string     `json:"notes,omitempty"`
	Status        string     `json:"status"`
	ReservationID string     `json:"reservation_id,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	ReleasedAt    *time.Time `json:"released_at,omitempty"`
}

func toAttachmentResponse(att domain.ProductEquipmentAttachment) attachmentResponse {
	return attachmentResponse{
		ID:            att.ID,
		ProductID:     att.ProductID,
		ItemID:        att.ItemID,
		KitID:         att.KitID,
		Quantity:      att.Quantity,
		IsOptional:    att.IsOptional,
		Notes:         att.Notes,
		Status:        string(att.Status),
		ReservationID: att.ReservationID,
		CreatedAt:     att.CreatedAt,
		ReleasedAt:    att.ReleasedAt,
	}
}

type attachmentOutcomeResponse struct {
	AttachmentID  string                 `json:"attachment_id"`
	ReservationID string                 `json:"reservation_id,omitempty"`
	Reserved      bool                   `json:"reserved"`
	Mandatory     bool                   `json:"mandatory"`
	Conflicts     []domain.ItemShortfall `json:"conflicts,omitempty"`
	Failure       string                 `json:"failure,omitempty"`
}

type materializeResponse struct {
	Outcomes []attachmentOutcomeResponse `json:"outcomes"`
	Blocked  bool                        `json:"blocked"`
}

func toMaterializeResponse(result app.MaterializeResult) materializeResponse {
	out := materializeResponse{Blocked: result.Blocked}
	for _, o := range result.Outcomes {
		out.Outcomes = append(out.Outcomes, attachmentOutcomeResponse{
			AttachmentID:  o.AttachmentID,
			ReservationID: o.ReservationID,
			Reserved:      o.Reserved,
			Mandatory:     o.Mandatory,
			Conflicts:     o.Conflicts,
			Failure:       o.Failure,
		})
	}
	return out
}
