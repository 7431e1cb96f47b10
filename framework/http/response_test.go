package http_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	dierrors "github.com/km-arc/go-dibridge/framework/errors"
	gohttp "github.com/km-arc/go-dibridge/framework/http"
)

// ── helpers ──────────────────────────────────────────────────────────────────

func newResponse(t *testing.T) (*gohttp.Response, *httptest.ResponseRecorder) {
	t.Helper()
	rr := httptest.NewRecorder()
	return gohttp.NewResponse(rr), rr
}

func decodeJSON(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.NewDecoder(rr.Body).Decode(&m); err != nil {
		t.Fatalf("decodeJSON: %v", err)
	}
	return m
}

// ── JSON ──────────────────────────────────────────────────────────────────────

func TestResponse_JSON(t *testing.T) {
	res, rr := newResponse(t)
	res.JSON(http.StatusOK, map[string]any{"key": "val"})

	if rr.Code != http.StatusOK {
		t.Errorf("status: got %d want 200", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type: got %q want application/json", ct)
	}
	m := decodeJSON(t, rr)
	if m["key"] != "val" {
		t.Errorf("body key: got %v want val", m["key"])
	}
}

func TestResponse_Success(t *testing.T) {
	res, rr := newResponse(t)
	res.Success(map[string]any{"id": "mailer"})

	if rr.Code != http.StatusOK {
		t.Errorf("status: got %d want 200", rr.Code)
	}
	m := decodeJSON(t, rr)
	data, ok := m["data"].(map[string]any)
	if !ok {
		t.Fatalf("expected data envelope, got %T", m["data"])
	}
	if data["id"] != "mailer" {
		t.Errorf("data.id: got %v want mailer", data["id"])
	}
}

// ── Errors ────────────────────────────────────────────────────────────────────

func TestResponse_ErrorHelpers(t *testing.T) {
	tests := []struct {
		name    string
		call    func(*gohttp.Response)
		status  int
		message string
	}{
		{"Error", func(r *gohttp.Response) { r.Error(http.StatusBadRequest, "bad input") }, 400, "bad input"},
		{"NotFound", func(r *gohttp.Response) { r.NotFound() }, 404, "Not found."},
		{"NotFound custom", func(r *gohttp.Response) { r.NotFound("no such service") }, 404, "no such service"},
		{"MethodNotAllowed", func(r *gohttp.Response) { r.MethodNotAllowed() }, 405, "Method not allowed."},
		{"ServerError", func(r *gohttp.Response) { r.ServerError() }, 500, "Server Error."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, rr := newResponse(t)
			tt.call(res)
			if rr.Code != tt.status {
				t.Errorf("status: got %d want %d", rr.Code, tt.status)
			}
			if m := decodeJSON(t, rr); m["message"] != tt.message {
				t.Errorf("message: got %v want %q", m["message"], tt.message)
			}
		})
	}
}

func TestResponse_Fail(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		code    string
		service string
	}{
		{"service not found", dierrors.ServiceNotFound("mailer"), 404, "SERVICE_NOT_FOUND", "mailer"},
		{"parameter not found", dierrors.ParameterNotFound("db.host"), 404, "PARAMETER_NOT_FOUND", "db.host"},
		{"mutation", dierrors.UnsupportedMutation("Set").WithService("mailer"), 405, "UNSUPPORTED_MUTATION", "mailer"},
		{"ambiguous", dierrors.AmbiguousAutowire("app.Logger", []string{"a", "b"}), 409, "AMBIGUOUS_AUTOWIRE", "app.Logger"},
		{"plain error", errors.New("boom"), 500, "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, rr := newResponse(t)
			res.Fail(tt.err)

			if rr.Code != tt.status {
				t.Errorf("status: got %d want %d", rr.Code, tt.status)
			}
			m := decodeJSON(t, rr)
			if tt.code == "" {
				if m["message"] != "boom" {
					t.Errorf("message: got %v want boom", m["message"])
				}
				return
			}
			if m["code"] != tt.code {
				t.Errorf("code: got %v want %s", m["code"], tt.code)
			}
			if m["service"] != tt.service {
				t.Errorf("service: got %v want %s", m["service"], tt.service)
			}
		})
	}
}
