package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/oapi-codegen/nullable"
	"github.com/rs/zerolog"
)

// Every response body is one of:
//
//	{"code": 200, "data": ...}
//	{"code": 404, "error": {"message": "..."}}
//
// where code mirrors the HTTP status.

type dataEnvelope struct {
	Code int `json:"code"`
	Data any `json:"data"`
}

type errorBody struct {
	Message   string                            `json:"message"`
	Code      nullable.Nullable[string]         `json:"code,omitempty"`
	Details   nullable.Nullable[map[string]any] `json:"details,omitempty"`
	RequestID nullable.Nullable[string]         `json:"requestId,omitempty"`
}

type errorEnvelope struct {
	Code  int       `json:"code"`
	Error errorBody `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeData(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, dataEnvelope{Code: status, Data: data})
}

// writeError writes the failure envelope. code is an optional machine-readable
// error code (e.g. VALIDATION_ERROR); details are optional per-field messages.
func writeError(w http.ResponseWriter, r *http.Request, status int, code string, message string, details map[string]any) {
	writeJSON(w, status, errorEnvelopeFor(r, status, code, message, details))
}

func errorEnvelopeFor(r *http.Request, status int, code string, message string, details map[string]any) errorEnvelope {
	var eb errorBody
	eb.Message = message
	if code != "" {
		eb.Code = nullable.NewNullableWithValue(code)
	}
	if details != nil {
		eb.Details = nullable.NewNullableWithValue(details)
	}
	if rid := middleware.GetReqID(r.Context()); rid != "" {
		eb.RequestID = nullable.NewNullableWithValue(rid)
	}
	return errorEnvelope{Code: status, Error: eb}
}

// writeUnexpected maps an unhandled error to 500. The error text is returned
// to the client.
func writeUnexpected(w http.ResponseWriter, r *http.Request, err error) {
	zerolog.Ctx(r.Context()).Error().Err(err).Msg("request failed")
	writeError(w, r, http.StatusInternalServerError, "", err.Error(), nil)
}
