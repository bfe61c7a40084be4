package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/MatYouKy/mavinci-reserve/internal/domain"
)

const (
	codeMethodNotAllowed    = "method_not_allowed"
	codeNotFound            = "not_found"
	codeInvalidRequestBody  = "invalid_request_body"
	codeInvalidQuantity     = "invalid_quantity"
	codeInvalidInterval     = "invalid_interval"
	codeInvalidConsumer     = "invalid_consumer"
	codeInvalidTarget       = "invalid_target"
	codeInvalidID           = "invalid_id"
	codeNameRequired        = "name_required"
	codeEmptyKit            = "empty_kit"
	codeDuplicateComponent  = "duplicate_component"
	codeUnknownKit          = "unknown_kit"
	codeItemNotFound        = "item_not_found"
	codeKitNotFound         = "kit_not_found"
	codeReservationNotFound = "reservation_not_found"
	codeAttachmentNotFound  = "attachment_not_found"
	codeInactiveTarget      = "inactive_target"
	codeAttachmentReleased  = "attachment_released"
	codeOverbooking         = "overbooking"
	codeBusy                = "busy"
	codeRateLimited         = "rate_limited"
	codeForbidden           = "forbidden"
	codeInternalError       = "internal_error"
)

type errorResponse struct {
	Error     string                 `json:"error"`
	Code      string                 `json:"code"`
	Shortfall []domain.ItemShortfall `json:"per_item_shortfall,omitempty"`
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeErrorResponse(w, status, errorResponse{Error: msg, Code: code})
}

func writeErrorResponse(w http.ResponseWriter, status int, resp errorResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	payload, err := json.Marshal(resp)
	if err != nil {
		_, _ = w.Write([]byte(`{"error":"internal error","code":"internal_error"}`))
		return
	}
	_, _ = w.Write(payload)
}

// writeServiceError maps domain errors onto the HTTP error envelope.
// Validation errors are 400, missing entities 404, conflicts 409 and lock
// contention 503 with a retry hint.
func writeServiceError(w http.ResponseWriter, err error) {
	var ob *domain.OverbookingError
	if errors.As(err, &ob) {
		writeErrorResponse(w, http.StatusConflict, errorResponse{
			Error:     ob.Error(),
			Code:      codeOverbooking,
			Shortfall: ob.Shortfall,
		})
		return
	}

	switch {
	case errors.Is(err, domain.ErrInvalidQuantity):
		writeError(w, http.StatusBadRequest, codeInvalidQuantity, err.Error())
	case errors.Is(err, domain.ErrInvalidInterval):
		writeError(w, http.StatusBadRequest, codeInvalidInterval, err.Error())
	case errors.Is(err, domain.ErrInvalidConsumer):
		writeError(w, http.StatusBadRequest, codeInvalidConsumer, err.Error())
	case errors.Is(err, domain.ErrInvalidTarget):
		writeError(w, http.StatusBadRequest, codeInvalidTarget, err.Error())
	case errors.Is(err, domain.ErrInvalidID):
		writeError(w, http.StatusBadRequest, codeInvalidID, err.Error())
	case errors.Is(err, domain.ErrNameRequired):
		writeError(w, http.StatusBadRequest, codeNameRequired, err.Error())
	case errors.Is(err, domain.ErrEmptyKit):
		writeError(w, http.StatusBadRequest, codeEmptyKit, err.Error())
	case errors.Is(err, domain.ErrDuplicateComponent):
		writeError(w, http.StatusBadRequest, codeDuplicateComponent, err.Error())
	case errors.Is(err, domain.ErrUnknownKit):
		writeError(w, http.StatusNotFound, codeUnknownKit, err.Error())
	case errors.Is(err, domain.ErrItemNotFound):
		writeError(w, http.StatusNotFound, codeItemNotFound, err.Error())
	case errors.Is(err, domain.ErrKitNotFound):
		writeError(w, http.StatusNotFound, codeKitNotFound, err.Error())
	case errors.Is(err, domain.ErrReservationNotFound):
		writeError(w, http.StatusNotFound, codeReservationNotFound, err.Error())
	case errors.Is(err, domain.ErrAttachmentNotFound):
		writeError(w, http.StatusNotFound, codeAttachmentNotFound, err.Error())
	case errors.Is(err, domain.ErrInactiveTarget):
		writeError(w, http.StatusConflict, codeInactiveTarget, err.Error())
	case errors.Is(err, domain.ErrAttachmentReleased):
		writeError(w, http.StatusConflict, codeAttachmentReleased, err.Error())
	case errors.Is(err, domain.ErrBusy):
		w.Header().Set("Retry-After", "1")
		writeError(w, http.StatusServiceUnavailable, codeBusy, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
	}
}
