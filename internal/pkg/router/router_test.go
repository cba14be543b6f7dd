package router

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shandysiswandi/otpreset/internal/pkg/config"
	"github.com/shandysiswandi/otpreset/internal/pkg/goerror"
)

type fixedID string

func (f fixedID) Generate() string { return string(f) }

type sentResponse struct {
	ExpiresInMinutes int `json:"expiresInMinutes"`
}

func (sentResponse) Message() string { return "OTP has been sent to your email" }

func newTestRouter(t *testing.T, yaml string, checks map[string]HealthCheck) *Router {
	t.Helper()

	cfg, err := config.NewViperFromBytes("yaml", []byte(yaml), nil)
	if err != nil {
		t.Fatalf("config: %v", err)
	}

	return NewRouter(Config{Config: cfg, UUID: fixedID("cid-1"), HealthChecks: checks})
}

func do(t *testing.T, h http.Handler, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	out := map[string]any{}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("response is not json: %q", rec.Body.String())
	}
	return rec, out
}

func TestRouter_SuccessEnvelope(t *testing.T) {
	// Arrange
	r := newTestRouter(t, "app: {}", nil)
	r.POST("/otp", func(*Request) (any, error) {
		return sentResponse{ExpiresInMinutes: 10}, nil
	})

	// Act
	rec, out := do(t, r, http.MethodPost, "/otp", `{}`)

	// Assert
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if out["success"] != true || out["message"] != "OTP has been sent to your email" {
		t.Fatalf("unexpected envelope: %v", out)
	}
	if out["expiresInMinutes"] != float64(10) {
		t.Fatalf("payload not merged: %v", out)
	}
	if got := rec.Header().Get(HeaderCorrelationID); got != "cid-1" {
		t.Fatalf("correlation id = %q", got)
	}
}

func TestRouter_ErrorEnvelope(t *testing.T) {
	r := newTestRouter(t, "app: {}", nil)
	r.POST("/decode", func(req *Request) (any, error) {
		var in struct {
			Email string `json:"email"`
		}
		if err := req.DecodeBody(&in); err != nil {
			return nil, err
		}
		return nil, goerror.NewBusiness("User not found", goerror.CodeNotFound)
	})
	r.GET("/plain", func(*Request) (any, error) {
		return nil, errors.New("db: connection reset")
	})

	tests := []struct {
		name       string
		method     string
		path       string
		body       string
		wantStatus int
		wantMsg    string
	}{
		{name: "malformed body", method: http.MethodPost, path: "/decode", body: `{"email":`, wantStatus: http.StatusBadRequest, wantMsg: "Invalid request body"},
		{name: "trailing data", method: http.MethodPost, path: "/decode", body: `{} {}`, wantStatus: http.StatusBadRequest, wantMsg: "Invalid request body"},
		{name: "business error", method: http.MethodPost, path: "/decode", body: `{"email":"a@b.co"}`, wantStatus: http.StatusNotFound, wantMsg: "User not found"},
		{name: "unclassified error hides detail", method: http.MethodGet, path: "/plain", wantStatus: http.StatusInternalServerError, wantMsg: "Internal server error"},
		{name: "unknown route", method: http.MethodGet, path: "/nope", wantStatus: http.StatusNotFound, wantMsg: "Endpoint not found"},
		{name: "wrong method", method: http.MethodGet, path: "/decode", wantStatus: http.StatusMethodNotAllowed, wantMsg: "Method not allowed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, out := do(t, r, tt.method, tt.path, tt.body)

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if out["success"] != false || out["message"] != tt.wantMsg {
				t.Fatalf("unexpected envelope: %v", out)
			}
		})
	}
}

func TestRouter_Recover(t *testing.T) {
	r := newTestRouter(t, "app: {}", nil)
	r.GET("/panic", func(*Request) (any, error) {
		panic("boom")
	})

	rec, out := do(t, r, http.MethodGet, "/panic", "")

	if rec.Code != http.StatusInternalServerError || out["message"] != "Internal server error" {
		t.Fatalf("status=%d body=%v", rec.Code, out)
	}
}

func TestRouter_Maintenance(t *testing.T) {
	r := newTestRouter(t, "app:\n  maintenance:\n    endpoints: \"/otp\"\n", nil)
	r.POST("/otp", func(*Request) (any, error) { return nil, nil })
	r.POST("/other", func(*Request) (any, error) { return nil, nil })

	rec, out := do(t, r, http.MethodPost, "/otp", `{}`)
	if rec.Code != http.StatusServiceUnavailable || out["message"] != "Service is under maintenance" {
		t.Fatalf("status=%d body=%v", rec.Code, out)
	}

	rec, _ = do(t, r, http.MethodPost, "/other", `{}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("non-maintenance route status = %d", rec.Code)
	}
}

func TestRouter_MaintenanceAll(t *testing.T) {
	r := newTestRouter(t, "app:\n  maintenance:\n    endpoints: \"*\"\n", nil)
	r.POST("/other", func(*Request) (any, error) { return nil, nil })

	rec, _ := do(t, r, http.MethodPost, "/other", `{}`)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
}

func TestInboundCorrelationID(t *testing.T) {
	long := strings.Repeat("a", maxCorrelationIDLen+10)

	headers := func(kv ...string) http.Header {
		h := http.Header{}
		for i := 0; i+1 < len(kv); i += 2 {
			h.Set(kv[i], kv[i+1])
		}
		return h
	}

	tests := []struct {
		name   string
		header http.Header
		want   string
	}{
		{name: "none", header: headers(), want: ""},
		{name: "correlation id", header: headers(HeaderCorrelationID, " abc "), want: "abc"},
		{name: "request id fallback", header: headers(HeaderRequestID, "req-1"), want: "req-1"},
		{name: "line break skipped", header: headers(HeaderCorrelationID, "a\r\nb", HeaderRequestID, "req-2"), want: "req-2"},
		{name: "truncated", header: headers(HeaderCorrelationID, long), want: long[:maxCorrelationIDLen]},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := inboundCorrelationID(tt.header); got != tt.want {
				t.Fatalf("inboundCorrelationID() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRouter_Health(t *testing.T) {
	healthy := newTestRouter(t, "app: {}", map[string]HealthCheck{
		"store": func(context.Context) error { return nil },
	})
	rec, out := do(t, healthy, http.MethodGet, "/health", "")
	if rec.Code != http.StatusOK || out["message"] != "OK" {
		t.Fatalf("status=%d body=%v", rec.Code, out)
	}

	down := newTestRouter(t, "app: {}", map[string]HealthCheck{
		"store": func(context.Context) error { return errors.New("refused") },
	})
	rec, out = do(t, down, http.MethodGet, "/health", "")
	if rec.Code != http.StatusInternalServerError || out["message"] != "Service unhealthy" {
		t.Fatalf("status=%d body=%v", rec.Code, out)
	}
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{name: "forwarded chain", headers: map[string]string{"X-Forwarded-For": "203.0.113.7, 10.0.0.1"}, remote: "10.0.0.1:1234", want: "203.0.113.7"},
		{name: "real ip", headers: map[string]string{"X-Real-IP": "198.51.100.2"}, remote: "10.0.0.1:1234", want: "198.51.100.2"},
		{name: "garbage header falls back", headers: map[string]string{"X-Real-IP": "nope"}, remote: "192.0.2.9:80", want: "192.0.2.9"},
		{name: "nothing usable", remote: "pipe", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}

			if got := clientIP(req); got != tt.want {
				t.Fatalf("clientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}
