package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/fjod/go_pizza/internal/domain"
	"github.com/fjod/go_pizza/internal/locator"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

// ValidationErrorResponse lists what a rejected order was missing.
type ValidationErrorResponse struct {
	ErrorResponse
	Missing  []string `json:"missing"`
	Required []string `json:"required"`
}

// TransitionErrorResponse tells the client where the order is and where it may go.
type TransitionErrorResponse struct {
	ErrorResponse
	CurrentStatus      domain.OrderStatus   `json:"currentStatus"`
	AllowedTransitions []domain.OrderStatus `json:"allowedTransitions"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}

// handleError maps service errors to HTTP responses. Anything it does not
// recognise is logged and answered with an opaque 500.
func handleError(w http.ResponseWriter, r *http.Request, log *slog.Logger, err error) {
	var ve *domain.ValidationError
	var te *domain.TransitionError

	switch {
	case errors.As(err, &ve):
		respondJSON(w, http.StatusBadRequest, ValidationErrorResponse{
			ErrorResponse: ErrorResponse{Error: "invalid order data", Code: "validation_failed"},
			Missing:       ve.Fields,
			Required:      domain.RequiredOrderFields,
		})
	case errors.As(err, &te):
		allowed := te.Allowed
		if allowed == nil {
			allowed = []domain.OrderStatus{}
		}
		respondJSON(w, http.StatusBadRequest, TransitionErrorResponse{
			ErrorResponse:      ErrorResponse{Error: te.Error(), Code: "illegal_transition"},
			CurrentStatus:      te.Current,
			AllowedTransitions: allowed,
		})
	case errors.Is(err, domain.ErrUnknownState):
		respondError(w, http.StatusBadRequest, "unknown_status", err.Error())
	case errors.Is(err, locator.ErrInvalidCoordinate):
		respondError(w, http.StatusBadRequest, "invalid_coordinates", err.Error())
	case errors.Is(err, domain.ErrNotFound):
		respondError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, domain.ErrEmptyCatalog), errors.Is(err, locator.ErrNoStores):
		respondError(w, http.StatusNotFound, "not_found", err.Error())
	default:
		log.ErrorContext(r.Context(), "request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}
