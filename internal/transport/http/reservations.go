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

// ReservationCoordinator is the minimal service surface for reservation routes.
type ReservationCoordinator interface {
	Reserve(ctx context.Context, in app.ReserveInput) (app.ReserveResult, error)
	Resize(ctx context.Context, in app.ResizeInput) (domain.Reservation, error)
	Cancel(ctx context.Context, reservationID string) error
	ListReservations(ctx context.Context, ct domain.ConsumerType, consumerID string) ([]domain.Reservation, error)
}

// HandleReservations serves POST /reservations and GET /reservations.
func HandleReservations(svc ReservationCoordinator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			createReservation(w, r, svc)
		case http.MethodGet:
			listReservations(w, r, svc)
		default:
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
		}
	}
}

// HandleReservationActions serves POST /reservations/{id}/cancel and
// POST /reservations/{id}/resize.
func HandleReservationActions(svc ReservationCoordinator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}

		id, action, ok := parseReservationActionPath(r.URL.Path)
		if !ok {
			writeError(w, http.StatusNotFound, codeNotFound, "not found")
			return
		}

		switch action {
		case "cancel":
			if err := svc.Cancel(r.Context(), id); err != nil {
				writeServiceError(w, err)
				return
			}
			w.WriteHeader(http.StatusNoContent)
		case "resize":
			resizeReservation(w, r, svc, id)
		default:
			writeError(w, http.StatusNotFound, codeNotFound, "not found")
		}
	}
}

func createReservation(w http.ResponseWriter, r *http.Request, svc ReservationCoordinator) {
	var req reservationRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
		return
	}

	res, err := svc.Reserve(r.Context(), app.ReserveInput{
		ConsumerType: domain.ConsumerType(req.ConsumerType),
		ConsumerID:   req.ConsumerID,
		TargetType:   domain.TargetType(req.TargetType),
		TargetID:     req.TargetID,
		Quantity:     req.Quantity,
		Interval:     domain.Interval{Start: req.StartsAt, End: req.EndsAt},
		IsOptional:   req.IsOptional,
		Tentative:    req.Tentative,
		Notes:        req.Notes,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(reserveResponse{
		Reservation:    toReservationResponse(res.Reservation),
		Oversubscribed: res.Oversubscribed,
	})
}

func resizeReservation(w http.ResponseWriter, r *http.Request, svc ReservationCoordinator, id string) {
	var req resizeRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
		return
	}

	res, err := svc.Resize(r.Context(), app.ResizeInput{
		ReservationID: id,
		Quantity:      req.Quantity,
		Interval:      domain.Interval{Start: req.StartsAt, End: req.EndsAt},
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(toReservationResponse(res))
}

func listReservations(w http.ResponseWriter, r *http.Request, svc ReservationCoordinator) {
	ct := r.URL.Query().Get("consumer_type")
	consumerID := r.URL.Query().Get("consumer_id")

	reservations, err := svc.ListReservations(r.Context(), domain.ConsumerType(ct), consumerID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	out := make([]reservationResponse, 0, len(reservations))
	for _, res := range reservations {
		out = append(out, toReservationResponse(res))
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(out)
}

func parseReservationActionPath(path string) (id, action string, ok bool) {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) != 3 || parts[0] != "reservations" || parts[1] == "" {
		return "", "", false
	}
	return parts[1], parts[2], true
}

type reservationRequest struct {
	ConsumerType string     `json:"consumer_type"`
	ConsumerID   string     `json:"consumer_id"`
	TargetType   string     `json:"target_type"`
	TargetID     string     `json:"target_id"`
	Quantity     int        `json:"quantity"`
	StartsAt     time.Time  `json:"starts_at"`
	EndsAt       *time.Time `json:"ends_at"`
	IsOptional   bool       `json:"is_optional"`
	Tentative    bool       `json:"tentative"`
	Notes        string     `json:"notes"`
}

type resizeRequest struct {
	Quantity int        `json:"quantity"`
	StartsAt time.Time  `json:"starts_at"`
	EndsAt   *time.Time `json:"ends_at"`
}

type reservationLineResponse struct {
	ItemID   string `json:"item_id"`
	Quantity int    `json:"quantity"`
}

type reservationResponse struct {
	ID           string                    `json:"id"`
	ConsumerType string                    `json:"consumer_type"`
	ConsumerID   string                    `json:"consumer_id"`
	TargetType   string                    `json:"target_type"`
	TargetID     string                    `json:"target_id"`
	Quantity     int                       `json:"quantity"`
	StartsAt     time.Time                 `json:"starts_at"`
	EndsAt       *time.Time                `json:"ends_at,omitempty"`
	IsOptional   bool                      `json:"is_optional"`
	Tentative    bool                      `json:"tentative"`
	Status       string                    `json:"status"`
	Notes        string                    `json:"notes,omitempty"`
	Lines        []reservationLineResponse `json:"lines"`
	CreatedAt    time.Time                 `json:"created_at"`
}

type reserveResponse struct {
	Reservation    reservationResponse    `json:"reservation"`
	Oversubscribed []domain.ItemShortfall `json:"oversubscribed,omitempty"`
}

func toReservationResponse(res domain.Reservation) reservationResponse {
	lines := make([]reservationLineResponse, 0, len(res.Lines))
	for _, line := range res.Lines {
		lines = append(lines, reservationLineResponse{ItemID: line.ItemID, Quantity: line.Quantity})
	}
	return reservationResponse{
		ID:           res.ID,
		ConsumerType: string(res.ConsumerType),
		ConsumerID:   res.ConsumerID,
		TargetType:   string(res.TargetType),
		TargetID:     res.TargetID,
		Quantity:     res.Quantity,
		StartsAt:     res.Interval.Start,
		EndsAt:       res.Interval.End,
		IsOptional:   res.IsOptional,
		Tentative:    res.Tentative,
		Status:       string(res.Status),
		Notes:        res.Notes,
		Lines:        lines,
		CreatedAt:    res.CreatedAt,
	}
}
