package httpserver

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestRequestID(t *testing.T) {
	handler := RequestID()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if GetRequestIDFromContext(r.Context()) == "" {
			t.Error("expected request ID in context")
		}
		w.WriteHeader(http.StatusOK)
	}))

	t.Run("generates request ID when not provided", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest("GET", "/test", nil))

		requestID := rec.Header().Get("X-Request-ID")
		if !strings.HasPrefix(requestID, "req-") || len(requestID) != 4+26 {
			t.Errorf("request ID = %q, want req-<ulid>", requestID)
		}
	})

	t.Run("preserves existing request ID", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/test", nil)
		req.Header.Set("X-Request-ID", "existing-id-123")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if got := rec.Header().Get("X-Request-ID"); got != "existing-id-123" {
			t.Errorf("expected 'existing-id-123', got %s", got)
		}
	})

	t.Run("replaces oversized request ID", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/test", nil)
		req.Header.Set("X-Request-ID", strings.Repeat("x", 500))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if got := rec.Header().Get("X-Request-ID"); !strings.HasPrefix(got, "req-") {
			t.Errorf("oversized ID kept: %d bytes", len(got))
		}
	})
}

func TestChain(t *testing.T) {
	var order []int
	mark := func(n int) Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, n)
				next.ServeHTTP(w, r)
			})
		}
	}

	handler := Chain(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		order = append(order, 4)
	}), mark(1), mark(2), mark(3))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/test", nil))

	expected := []int{1, 2, 3, 4}
	if len(order) != len(expected) {
		t.Fatalf("expected %d calls, got %d", len(expected), len(order))
	}
	for i, v := range expected {
		if order[i] != v {
			t.Errorf("expected order[%d] = %d, got %d", i, v, order[i])
		}
	}
}

func TestNetworkACL(t *testing.T) {
	tests := []struct {
		name       string
		allowList  []string
		remoteAddr string
		wantStatus int
	}{
		{"empty allowlist allows all", nil, "192.168.1.100:12345", http.StatusOK},
		{"single IP match", []string{"192.168.1.100"}, "192.168.1.100:12345", http.StatusOK},
		{"CIDR match", []string{"10.0.0.0/8"}, "10.1.2.3:12345", http.StatusOK},
		{"no match", []string{"192.168.1.0/24"}, "10.0.0.1:12345", http.StatusForbidden},
		{"IPv6 CIDR", []string{"2001:db8::/32"}, "[2001:db8::1]:12345", http.StatusOK},
		{"invalid entries skipped", []string{"not-an-ip", "10.0.0.0/99", "127.0.0.1"}, "127.0.0.1:1", http.StatusOK},
		{"unparseable peer", []string{"127.0.0.1"}, "pipe", http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NetworkACL(&NetworkACLConfig{
				AllowList: tt.allowList,
				Logger:    quietLogger(),
			})(okHandler())

			req := httptest.NewRequest("GET", "/test", nil)
			req.RemoteAddr = tt.remoteAddr
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
		})
	}
}

func TestNetworkACL_IgnoresForwardedFor(t *testing.T) {
	handler := NetworkACL(&NetworkACLConfig{AllowList: []string{"10.0.0.1"}})(okHandler())

	req := httptest.NewRequest("GET", "/test", nil)
	req.RemoteAddr = "192.168.1.1:12345"
	req.Header.Set("X-Forwarded-For", "10.0.0.1")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", rec.Code)
	}
	if code := rec.Header().Get("X-Error-Code"); code != CodeForbiddenIP {
		t.Errorf("X-Error-Code = %q, want %q", code, CodeForbiddenIP)
	}
}

func TestRecover(t *testing.T) {
	t.Run("recovers from panic", func(t *testing.T) {
		handler := Recover(quietLogger())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
			panic("test panic")
		}))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest("GET", "/test", nil))

		if rec.Code != http.StatusInternalServerError {
			t.Errorf("expected status 500, got %d", rec.Code)
		}
		if !strings.Contains(rec.Body.String(), CodeInternal) {
			t.Errorf("body = %s, want code %s", rec.Body.String(), CodeInternal)
		}
	})

	t.Run("passes through normal requests", func(t *testing.T) {
		rec := httptest.NewRecorder()
		Recover(quietLogger())(okHandler()).ServeHTTP(rec, httptest.NewRequest("GET", "/test", nil))

		if rec.Code != http.StatusOK {
			t.Errorf("expected status 200, got %d", rec.Code)
		}
	})
}

func TestAccessLog(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		wantMsg string
	}{
		{"success at debug", http.StatusOK, "request completed"},
		{"client error", http.StatusBadRequest, "client error"},
		{"server error", http.StatusInternalServerError, "completed with error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf strings.Builder
			logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

			handler := AccessLog(logger)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
			}))
			req := httptest.NewRequest("GET", "/test", nil)
			req = req.WithContext(context.WithValue(req.Context(), ContextKeyRequestID, "test-req-123"))
			req = req.WithContext(context.WithValue(req.Context(), ContextKeyStartTime, time.Now()))
			handler.ServeHTTP(httptest.NewRecorder(), req)

			out := buf.String()
			if !strings.Contains(out, tt.wantMsg) {
				t.Errorf("log = %q, want %q", out, tt.wantMsg)
			}
			if !strings.Contains(out, "request_id=test-req-123") {
				t.Errorf("log missing request id: %q", out)
			}
		})
	}
}

func TestResponseWriter(t *testing.T) {
	rec := httptest.NewRecorder()
	wrapped := &responseWriter{ResponseWriter: rec, statusCode: http.StatusOK}
	if wrapped.statusCode != http.StatusOK {
		t.Errorf("expected default status 200, got %d", wrapped.statusCode)
	}

	wrapped.WriteHeader(http.StatusCreated)
	if wrapped.statusCode != http.StatusCreated || rec.Code != http.StatusCreated {
		t.Errorf("status = %d/%d, want 201", wrapped.statusCode, rec.Code)
	}
}

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		remote string
		want   string
	}{
		{"192.168.1.1:12345", "192.168.1.1"},
		{"[::1]:8080", "::1"},
		{"10.0.0.5", "10.0.0.5"},
	}
	for _, tt := range tests {
		req := httptest.NewRequest("GET", "/test", nil)
		req.RemoteAddr = tt.remote
		if got := getClientIP(req); got != tt.want {
			t.Errorf("getClientIP(%q) = %q, want %q", tt.remote, got, tt.want)
		}
	}
}
