package http_test

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"reflect"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	gohttp "github.com/km-arc/go-dibridge/framework/http"
)

// ── helpers ──────────────────────────────────────────────────────────────────

func newBodyRequest(t *testing.T, contentType, body string) *gohttp.Request {
	t.Helper()
	req := httptest.NewRequest(http.MethodPut, "/", strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	return gohttp.NewRequest(req)
}

func newGetRequest(t *testing.T, rawQuery string) *gohttp.Request {
	t.Helper()
	return gohttp.NewRequest(httptest.NewRequest(http.MethodGet, "/?"+rawQuery, nil))
}

// ── Payload ──────────────────────────────────────────────────────────────────

func TestRequest_Payload(t *testing.T) {
	form := url.Values{"value": {"smtp"}}.Encode()

	tests := []struct {
		name        string
		contentType string
		body        string
		want        any
	}{
		{"json object", "application/json", `{"port":25}`, map[string]any{"port": float64(25)}},
		{"json string", "application/json; charset=utf-8", `"smtp"`, "smtp"},
		{"plain text", "text/plain", "smtp", "smtp"},
		{"no content type", "", "smtp", "smtp"},
		{"form value", "application/x-www-form-urlencoded", form, "smtp"},
		{"empty body", "application/json", "", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := newBodyRequest(t, tt.contentType, tt.body).Payload()
			if err != nil {
				t.Fatalf("Payload error: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Payload: got %#v want %#v", got, tt.want)
			}
		})
	}
}

func TestRequest_Payload_MalformedJSON(t *testing.T) {
	if _, err := newBodyRequest(t, "application/json", `{"port":`).Payload(); err == nil {
		t.Error("expected error for malformed JSON")
	}
}

// ── Query ────────────────────────────────────────────────────────────────────

func TestRequest_Query(t *testing.T) {
	req := newGetRequest(t, "env=prod")
	if got := req.Query("env"); got != "prod" {
		t.Errorf("Query: got %q want %q", got, "prod")
	}
	if got := req.Query("missing", "local"); got != "local" {
		t.Errorf("Query fallback: got %q want %q", got, "local")
	}
}

func TestRequest_QueryBool(t *testing.T) {
	tests := map[string]bool{
		"exists":       true,
		"exists=1":     true,
		"exists=true":  true,
		"exists=false": false,
		"exists=maybe": false,
		"other=1":      false,
	}
	for query, want := range tests {
		if got := newGetRequest(t, query).QueryBool("exists"); got != want {
			t.Errorf("QueryBool(%q): got %v want %v", query, got, want)
		}
	}
}

// ── Route params ─────────────────────────────────────────────────────────────

func TestRequest_RouteParam(t *testing.T) {
	var got string
	r := chi.NewRouter()
	r.Get("/services/{id}", func(w http.ResponseWriter, req *http.Request) {
		got = gohttp.NewRequest(req).RouteParam("id")
	})
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/services/mailer", nil))

	if got != "mailer" {
		t.Errorf("RouteParam: got %q want %q", got, "mailer")
	}
}

func TestRequest_Accessors(t *testing.T) {
	raw := httptest.NewRequest(http.MethodDelete, "/parameters/db.host", nil)
	raw.Header.Set("X-Trace", "abc")
	req := gohttp.NewRequest(raw)

	if req.Method() != http.MethodDelete {
		t.Errorf("Method: got %q", req.Method())
	}
	if req.Path() != "/parameters/db.host" {
		t.Errorf("Path: got %q", req.Path())
	}
	if req.Header("X-Trace") != "abc" {
		t.Errorf("Header: got %q", req.Header("X-Trace"))
	}
	if req.Raw() != raw {
		t.Error("Raw should return the wrapped request")
	}
}
