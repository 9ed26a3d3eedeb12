// browsekit/utils/http/httputils.go
package httputils

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"browsekit/browsekit/utils/apperrors"
	"browsekit/browsekit/utils/types"
)

// MaxBodyBytes bounds every JSON request body.
const MaxBodyBytes = 1 << 20

// WriteJSON writes v with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError writes the standard failure envelope.
func WriteError(w http.ResponseWriter, status int, summary string, err error) {
	resp := types.ErrorResponse{Success: false, Error: summary}
	if err != nil {
		resp.Message = err.Error()
	}
	WriteJSON(w, status, resp)
}

// StatusFor maps the error taxonomy onto HTTP status codes.
func StatusFor(err error) int {
	if apperrors.IsValidation(err) {
		return http.StatusBadRequest
	}
	if exec, ok := apperrors.AsExecution(err); ok {
		if exec.Timeout() {
			return http.StatusGatewayTimeout
		}
		return http.StatusBadGateway
	}
	var cfgErr *apperrors.ConfigurationError
	if errors.As(err, &cfgErr) {
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// DecodeJSON reads a single JSON document from r into v. Unknown fields are
// ignored; trailing data and oversized bodies are not.
func DecodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return apperrors.Invalid("body", "request body is empty")
		}
		return apperrors.Invalid("body", "%v", err)
	}
	if dec.More() {
		return apperrors.Invalid("body", "unexpected data after JSON document")
	}
	return nil
}
