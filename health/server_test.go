package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

type stubPinger struct{ err error }

func (p stubPinger) PingContext(context.Context) error { return p.err }

func probe(t *testing.T, s *Server) (int, map[string]any) {
	t.Helper()
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body %q: %v", rec.Body.String(), err)
	}
	return rec.Code, body
}

func TestHealthOKWithDetails(t *testing.T) {
	s := NewServer(Options{
		DB:      stubPinger{},
		Details: func() map[string]any { return map[string]any{"categories": 3, "status": "ignored"} },
	})
	code, body := probe(t, s)
	if code != http.StatusOK {
		t.Fatalf("code = %d", code)
	}
	if body["status"] != "ok" || body["db"] != "ok" || body["categories"] != float64(3) {
		t.Fatalf("unexpected body %v", body)
	}
}

func TestHealthDegradedWhenDatabaseDown(t *testing.T) {
	code, body := probe(t, NewServer(Options{DB: stubPinger{err: errors.New("down")}}))
	if code != http.StatusServiceUnavailable || body["status"] != "degraded" || body["db"] != "error" {
		t.Fatalf("code = %d body = %v", code, body)
	}
}

func TestHealthWithoutDatabase(t *testing.T) {
	code, body := probe(t, NewServer(Options{}))
	if code != http.StatusOK {
		t.Fatalf("code = %d", code)
	}
	if _, ok := body["db"]; ok {
		t.Fatalf("db field should be absent: %v", body)
	}
}

func TestStartAndShutdown(t *testing.T) {
	s := NewServer(Options{Listen: "127.0.0.1:0"})
	if err := s.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.Shutdown(ctx); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	if err := NewServer(Options{}).Shutdown(ctx); err != nil {
		t.Fatalf("shutdown of unstarted server: %v", err)
	}
}

func TestUnknownRoute(t *testing.T) {
	rec := httptest.NewRecorder()
	NewServer(Options{}).Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("code = %d", rec.Code)
	}
}
