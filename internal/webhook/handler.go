package webhook

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"platformauth/internal/api"
)

// HTTPHandler is the HTTP entry point for platform webhook deliveries.
type HTTPHandler struct {
	Processor *Processor
}

// ServeHTTP reads the raw body before anything else touches it, since the
// signature covers the exact wire bytes, then runs the processor. The
// platform expects a quick 2xx; handler-level failures never turn into
// retries, only pre-parse failures do.
func (h HTTPHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		api.WriteError(w, http.StatusBadRequest, "VALIDATION_FAILED", "invalid body")
		return
	}

	headers := make(map[string]string, len(r.Header))
	for k := range r.Header {
		headers[k] = r.Header.Get(k)
	}

	_, err = h.Processor.Process(r.Context(), body, headers)
	switch {
	case errors.Is(err, ErrSignature):
		api.WriteError(w, http.StatusUnauthorized, "UNAUTHORIZED", "invalid webhook signature")
	case errors.Is(err, ErrPayload):
		api.WriteError(w, http.StatusBadRequest, "VALIDATION_FAILED", "malformed webhook payload")
	case err != nil:
		api.WriteError(w, http.StatusInternalServerError, "INTERNAL", "webhook processing failed")
	default:
		w.WriteHeader(http.StatusOK)
	}
}

// StatsHandler exposes the processor's counters.
type StatsHandler struct {
	Processor *Processor
}

func (h StatsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(h.Processor.Stats())
}
