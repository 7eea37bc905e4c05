// internal/api/respond.go
//
// JSON response helpers and the fault → HTTP status mapping.  Every
// handler funnels errors through writeError so the wire contract stays in
// one place.

package api

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/yanizio/forge/internal/fault"
)

type errBody struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

func writeError(w http.ResponseWriter, err error) {
	kind := fault.KindOf(err)

	var status int
	switch kind {
	case fault.InvalidInput:
		status = http.StatusBadRequest
	case fault.NotFound:
		status = http.StatusNotFound
	case fault.Conflict, fault.InvalidTransition:
		status = http.StatusConflict
	case fault.Provider, fault.Exhausted:
		status = http.StatusBadGateway
	default:
		status = http.StatusInternalServerError
	}

	msg := err.Error()
	if status == http.StatusInternalServerError {
		// Internal details stay in the log, not on the wire.
		zap.S().Errorw("internal error", "err", err)
		msg = "internal error"
	}
	writeJSON(w, status, errBody{Error: msg, Kind: string(kind)})
}

func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fault.New(fault.InvalidInput, "api.decode", "malformed request body")
	}
	return nil
}
