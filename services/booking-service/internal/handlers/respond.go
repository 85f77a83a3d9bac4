package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/md-rashed-zaman/sellerbook/libs/httpx"
	"github.com/md-rashed-zaman/sellerbook/services/booking-service/internal/model"
)

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErrorCode(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, errorResponse{Error: msg, Code: code})
}

// writeError maps core error kinds onto HTTP statuses. Anything unclassified
// is logged and reported as a bare 500.
func writeError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	switch {
	case errors.Is(err, model.ErrValidation):
		writeErrorCode(w, http.StatusBadRequest, "validation", err.Error())
	case errors.Is(err, model.ErrNotFound):
		writeErrorCode(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, model.ErrForbidden):
		writeErrorCode(w, http.StatusForbidden, "forbidden", err.Error())
	case errors.Is(err, model.ErrSlotUnavailable):
		writeErrorCode(w, http.StatusConflict, "slot_unavailable", err.Error())
	case errors.Is(err, model.ErrAlreadyCancelled):
		writeErrorCode(w, http.StatusConflict, "already_cancelled", err.Error())
	default:
		logger.Error("request failed",
			"request_id", httpx.RequestIDFromContext(r.Context()),
			"path", r.URL.Path,
			"err", err,
		)
		writeErrorCode(w, http.StatusInternalServerError, "internal", "internal error")
	}
}

// decodeJSON reads a single JSON object and rejects unknown fields.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: invalid json body: %v", model.ErrValidation, err)
	}
	if dec.More() {
		return fmt.Errorf("%w: invalid json body: trailing data", model.ErrValidation)
	}
	return nil
}
