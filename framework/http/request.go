package http

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
)

const maxBody = 64 << 10 // 64 KB

// Request wraps *http.Request with the helpers the inspector reads input
// through.
type Request struct {
	raw *http.Request
}

// NewRequest wraps a standard *http.Request.
func NewRequest(r *http.Request) *Request {
	return &Request{raw: r}
}

// Raw returns the underlying *http.Request.
func (req *Request) Raw() *http.Request { return req.raw }

// ── Body ─────────────────────────────────────────────────────────────────────

// Payload returns the request body as a value: decoded JSON when the
// content type says so, the form field "value" for form posts, the raw text
// otherwise. An empty body yields nil.
func (req *Request) Payload() (any, error) {
	ct := req.ContentType()
	if strings.Contains(ct, "application/x-www-form-urlencoded") {
		if err := req.raw.ParseForm(); err != nil {
			return nil, err
		}
		return req.raw.PostForm.Get("value"), nil
	}

	defer req.raw.Body.Close()
	body, err := io.ReadAll(io.LimitReader(req.raw.Body, maxBody))
	if err != nil {
		return nil, err
	}
	if len(body) == 0 {
		return nil, nil
	}
	if !strings.Contains(ct, "application/json") {
		return string(body), nil
	}
	var v any
	if err := json.Unmarshal(body, &v); err != nil {
		return nil, err
	}
	return v, nil
}

// ── Input helpers ────────────────────────────────────────────────────────────

// Query returns a query-string value.
func (req *Request) Query(key string, fallback ...string) string {
	v := req.raw.URL.Query().Get(key)
	if v == "" && len(fallback) > 0 {
		return fallback[0]
	}
	return v
}

// QueryBool parses a query-string flag. A present key without a value is
// true; anything unparsable is false.
func (req *Request) QueryBool(key string) bool {
	q := req.raw.URL.Query()
	if !q.Has(key) {
		return false
	}
	v := q.Get(key)
	if v == "" {
		return true
	}
	b, _ := strconv.ParseBool(v)
	return b
}

// RouteParam returns a URL route parameter (chi).
func (req *Request) RouteParam(key string) string {
	return chi.URLParam(req.raw, key)
}

// Header returns a request header value.
func (req *Request) Header(key string) string {
	return req.raw.Header.Get(key)
}

// Method returns the HTTP method.
func (req *Request) Method() string { return req.raw.Method }

// Path returns the URL path.
func (req *Request) Path() string { return req.raw.URL.Path }

// ContentType returns the Content-Type header value.
func (req *Request) ContentType() string {
	return req.raw.Header.Get("Content-Type")
}
