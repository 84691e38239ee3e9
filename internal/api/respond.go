// Package api implements the REST surface: gorilla/mux routing, one
// handler file per resource group, and a shared JSON response envelope.
package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/swarmdeck/core/internal/apierr"
	"github.com/swarmdeck/core/internal/logging"
)

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logging.WithComponent("api").Error().Err(err).Msg("failed to encode response body")
	}
}

func writeNoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

type errorBody struct {
	Error   string            `json:"error"`
	Code    string            `json:"code,omitempty"`
	Details map[string]string `json:"details,omitempty"`
}

// writeError maps err to its HTTP status and body. apierr.Error values
// are mapped by Kind; anything else is treated as an unexpected 500.
func writeError(w http.ResponseWriter, err error) {
	var apiErr *apierr.Error
	if errors.As(err, &apiErr) {
		writeJSON(w, apiErr.Kind.StatusCode(), errorBody{
			Error:   apiErr.Message,
			Code:    apiErr.Code,
			Details: apiErr.Details,
		})
		return
	}
	logging.WithComponent("api").Error().Err(err).Msg("unhandled error")
	writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal error"})
}

func decodeJSON(r *http.Request, dst any) error {
	if r.Body == nil {
		return apierr.Validation("request body is required", nil)
	}
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return apierr.Validation("malformed request body", map[string]string{"error": err.Error()})
	}
	return nil
}

// validator is implemented by request DTOs that need shape/range checks
// beyond what json.Unmarshal enforces.
type validator interface {
	Validate() error
}

func decodeAndValidate(r *http.Request, dst validator) error {
	if err := decodeJSON(r, dst); err != nil {
		return err
	}
	return dst.Validate()
}
