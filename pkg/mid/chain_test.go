package mid

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("ok"))
	})
}

func TestStatus(t *testing.T) {
	ww := middleware.NewWrapResponseWriter(httptest.NewRecorder(), 1)
	if Status(ww) != http.StatusOK {
		t.Fatalf("untouched writer should report 200, got %d", Status(ww))
	}
	ww.WriteHeader(http.StatusTeapot)
	ww.WriteHeader(http.StatusOK)
	if Status(ww) != http.StatusTeapot {
		t.Fatalf("first status should stick, got %d", Status(ww))
	}
}

func TestLogger(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewJSONHandler(&buf, nil))

	h := chi.Chain(middleware.RequestID, Logger(log)).Handler(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/qa", nil))

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log line not JSON: %v: %s", err, buf.String())
	}
	if entry["path"] != "/qa" || entry["method"] != "POST" {
		t.Fatalf("unexpected entry %v", entry)
	}
	if entry["status"] != float64(http.StatusBadGateway) || entry["level"] != "WARN" {
		t.Fatalf("unexpected status/level %v/%v", entry["status"], entry["level"])
	}
	if id, _ := entry["request_id"].(string); id == "" {
		t.Fatal("request id not logged")
	}
}

func TestRecover(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, nil))

	h := Recover(log)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("kaboom")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body["detail"] != "An error occurred: kaboom" {
		t.Fatalf("detail = %q", body["detail"])
	}
	if !strings.Contains(buf.String(), "panic recovered") {
		t.Fatal("panic not logged")
	}
}

func TestCORS(t *testing.T) {
	h := CORS("http://localhost:3000, https://app.example")(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://app.example")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://app.example" {
		t.Fatalf("allowed origin header = %q", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://evil.example")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Fatalf("disallowed origin got header %q", got)
	}
}

func TestCORSPreflight(t *testing.T) {
	called := false
	h := CORS("*")(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { called = true }))

	req := httptest.NewRequest(http.MethodOptions, "/qa", nil)
	req.Header.Set("Origin", "https://any.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if called {
		t.Fatal("preflight should not reach the handler")
	}
	if rec.Code >= 300 {
		t.Fatalf("preflight status = %d", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") == "" {
		t.Fatal("preflight missing allow-origin")
	}
}

func TestOTel(t *testing.T) {
	h := OTel("test")(okHandler())
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Body.String() != "ok" {
		t.Fatalf("body = %q", rec.Body.String())
	}
}
