package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/MatYouKy/mavinci-reserve/internal/app"
	"github.com/MatYouKy/mavinci-reserve/internal/domain"
)

// AvailabilityChecker answers availability questions without side effects.
type AvailabilityChecker interface {
	CheckAvailability(ctx context.Context, in app.CheckAvailabilityInput) (app.AvailabilityReport, error)
}

// HandleCheckAvailability serves POST /availability/check. It is the sole
// source of truth for the quantity numbers any UI shows.
func HandleCheckAvailability(svc AvailabilityChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}

		var req checkAvailabilityRequest
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}

		report, err := svc.CheckAvailability(r.Context(), app.CheckAvailabilityInput{
			TargetType: domain.TargetType(req.TargetType),
			TargetID:   req.TargetID,
			Quantity:   req.Quantity,
			Interval:   domain.Interval{Start: req.StartsAt, End: req.EndsAt},
		})
		if err != nil {
			writeServiceError(w, err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(checkAvailabilityResponse{
			Available:      report.Available,
			Shortfall:      report.Shortfall,
			FitsWholeUnits: report.FitsWholeUnits,
		})
	}
}

type checkAvailabilityRequest struct {
	TargetType string     `json:"target_type"`
	TargetID   string     `json:"target_id"`
	Quantity   int        `json:"quantity"`
	StartsAt   time.Time  `json:"starts_at"`
	EndsAt     *time.Time `json:"ends_at"`
}

type checkAvailabilityResponse struct {
	Available      bool                   `json:"available"`
	Shortfall      []domain.ItemShortfall `json:"per_item_shortfall,omitempty"`
	FitsWholeUnits int                    `json:"fits_whole_units"`
}
