package http

import (
	"encoding/json"
	"errors"
	"net/http"

	dierrors "github.com/km-arc/go-dibridge/framework/errors"
)

// ── Response ─────────────────────────────────────────────────────────────────

// Response wraps http.ResponseWriter with JSON helpers.
type Response struct {
	w http.ResponseWriter
}

// NewResponse wraps a ResponseWriter.
func NewResponse(w http.ResponseWriter) *Response {
	return &Response{w: w}
}

// Raw returns the underlying ResponseWriter.
func (res *Response) Raw() http.ResponseWriter { return res.w }

// ── JSON responses ────────────────────────────────────────────────────────────

// JSON sends a JSON response.
//
//	res.JSON(http.StatusOK, map[string]any{"message": "ok"})
func (res *Response) JSON(status int, data any) {
	res.w.Header().Set("Content-Type", "application/json")
	res.w.WriteHeader(status)
	_ = json.NewEncoder(res.w).Encode(data)
}

// Success sends 200 JSON: {"data": v}
func (res *Response) Success(v any) {
	res.JSON(http.StatusOK, envelope{"data": v})
}

// Error sends a JSON error response.
//
//	res.Error(http.StatusNotFound, "Resource not found")
func (res *Response) Error(status int, message string) {
	res.JSON(status, envelope{"message": message})
}

// NotFound sends 404.
func (res *Response) NotFound(message ...string) {
	msg := first(message, "Not found.")
	res.JSON(http.StatusNotFound, envelope{"message": msg})
}

// MethodNotAllowed sends 405.
func (res *Response) MethodNotAllowed(message ...string) {
	msg := first(message, "Method not allowed.")
	res.JSON(http.StatusMethodNotAllowed, envelope{"message": msg})
}

// ServerError sends 500.
func (res *Response) ServerError(message ...string) {
	msg := first(message, "Server Error.")
	res.JSON(http.StatusInternalServerError, envelope{"message": msg})
}

// Fail sends err with the status its error code maps to:
//
//	SERVICE_NOT_FOUND, PARAMETER_NOT_FOUND → 404
//	UNSUPPORTED_MUTATION                   → 405
//	AMBIGUOUS_AUTOWIRE                     → 409
//	anything else                          → 500
//
// The body is {"message": ..., "code": ..., "service": ...}.
func (res *Response) Fail(err error) {
	var e *dierrors.Error
	if !errors.As(err, &e) {
		res.ServerError(err.Error())
		return
	}
	body := envelope{"message": e.Error(), "code": e.Code.String()}
	if e.Service != "" {
		body["service"] = e.Service
	}
	res.JSON(StatusFor(err), body)
}

// StatusFor maps an error to the HTTP status Fail sends.
func StatusFor(err error) int {
	switch {
	case dierrors.IsNotFound(err):
		return http.StatusNotFound
	case dierrors.IsUnsupportedMutation(err):
		return http.StatusMethodNotAllowed
	case dierrors.IsAmbiguousAutowire(err):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// ── Helpers ──────────────────────────────────────────────────────────────────

type envelope map[string]any

func first(ss []string, fallback string) string {
	if len(ss) > 0 && ss[0] != "" {
		return ss[0]
	}
	return fallback
}
