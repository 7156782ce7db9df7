package extractor

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"
)

// handlerTransport serves every outbound request from h, keeping the
// original scheme and host visible to the handler and to host validation
type handlerTransport struct {
	h http.Handler
}

func (t handlerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	rec := httptest.NewRecorder()
	t.h.ServeHTTP(rec, req)
	if err := req.Context().Err(); err != nil {
		return nil, err
	}
	res := rec.Result()
	res.Request = req
	return res, nil
}

func newTestClient(t *testing.T, h http.Handler) *Client {
	t.Helper()
	c, err := NewClient(ClientConfig{
		Timeout:   2 * time.Second,
		Transport: handlerTransport{h: h},
	})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	return c
}

// hostMux routes by host then path
type hostMux map[string]http.HandlerFunc

func (m hostMux) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h, ok := m[r.URL.Host+r.URL.Path]; ok {
		h(w, r)
		return
	}
	if h, ok := m[r.URL.Host]; ok {
		h(w, r)
		return
	}
	http.NotFound(w, r)
}

func htmlHandler(body string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(body))
	}
}

func jsonHandler(body string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}
}

func statusHandler(code int) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(code)
	}
}

func testLogger() *zap.Logger {
	return zap.NewNop()
}
