package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/matiasleandrokruk/smartdraw/internal/domain/generate"
	"github.com/matiasleandrokruk/smartdraw/internal/domain/history"
	"github.com/matiasleandrokruk/smartdraw/internal/domain/mindmap"
	"github.com/matiasleandrokruk/smartdraw/internal/domain/profile"
	"github.com/matiasleandrokruk/smartdraw/internal/infra/llm"
)

const (
	headerContentType = "Content-Type"
	contentTypeJSON   = "application/json"

	// maxBodyBytes leaves room for a 5 MiB image after base64 expansion.
	maxBodyBytes = 8 << 20
)

// paginationParams holds parsed limit and offset values.
type paginationParams struct {
	Limit  int
	Offset int
}

// parsePaginationParams reads limit/offset from the query. Out-of-range values
// are left to the service, which clamps them.
func parsePaginationParams(r *http.Request) paginationParams {
	var p paginationParams
	if lim, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && lim > 0 {
		p.Limit = lim
	}
	if off, err := strconv.Atoi(r.URL.Query().Get("offset")); err == nil && off >= 0 {
		p.Offset = off
	}
	return p
}

// decodeJSON reads a size-limited JSON body into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
		case errors.Is(err, io.EOF):
			writeError(w, http.StatusBadRequest, "request body is empty")
		default:
			writeError(w, http.StatusBadRequest, "invalid request body")
		}
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set(headerContentType, contentTypeJSON)
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error":"failed to encode response"}`, http.StatusInternalServerError)
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{"error": message})
}

// transportErrorResponse is the 502 body for a failed provider call.
type transportErrorResponse struct {
	Error  string `json:"error"`
	Status int    `json:"status,omitempty"`
	Detail string `json:"detail,omitempty"`
}

// writeDomainError maps service errors onto HTTP statuses. Transport
// failures and unparseable model output get distinct messages.
func writeDomainError(w http.ResponseWriter, err error) {
	var (
		te   *llm.TransportError
		verr *profile.ValidationError
	)
	switch {
	case errors.As(err, &te):
		detail := te.Body
		if te.StatusCode == 0 && te.Err != nil {
			detail = te.Err.Error()
		}
		writeJSON(w, http.StatusBadGateway, transportErrorResponse{
			Error:  "provider request failed",
			Status: te.StatusCode,
			Detail: detail,
		})
	case errors.Is(err, llm.ErrProviderUnavailable):
		writeError(w, http.StatusServiceUnavailable, "provider temporarily unavailable")
	case errors.Is(err, llm.ErrNoProvider):
		writeError(w, http.StatusBadRequest, "no provider configured")
	case errors.Is(err, generate.ErrUnparseableOutput):
		writeError(w, http.StatusUnprocessableEntity, generate.ErrUnparseableOutput.Error())
	case errors.Is(err, mindmap.ErrTooDeep):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, mindmap.ErrInvalidMindmap):
		writeError(w, http.StatusUnprocessableEntity, mindmap.ErrInvalidMindmap.Error())
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "validation failed", "fields": verr.Fields})
	case errors.Is(err, generate.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, profile.ErrNotFound), errors.Is(err, history.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, profile.ErrNoActive):
		writeError(w, http.StatusNotFound, "no active profile")
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func isTransportFailure(err error) bool {
	var te *llm.TransportError
	return errors.As(err, &te) || errors.Is(err, llm.ErrProviderUnavailable)
}

// coalesce returns val if non-empty, otherwise fallback.
func coalesce(val, fallback string) string {
	if val == "" {
		return fallback
	}
	return val
}
