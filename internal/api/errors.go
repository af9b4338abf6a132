package api

import (
	"encoding/json"
	"net/http"

	errs "pickup-address-matcher/pkg/errors"
	"pickup-address-matcher/pkg/logging"
)

type errorBody struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

// statusFor maps error kinds onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errs.Is(err, errs.ErrValidation):
		return http.StatusBadRequest
	case errs.Is(err, errs.ErrNotFound):
		return http.StatusNotFound
	case errs.Is(err, errs.ErrExternal):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := statusFor(err)
	msg := err.Error()
	if code == http.StatusInternalServerError {
		h.log.Ctx(r.Context()).Error("request failed", err, logging.String("path", r.URL.Path))
		msg = "internal error"
	}
	writeJSON(w, code, errorBody{Error: msg, RequestID: RequestIDFrom(r.Context())})
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
