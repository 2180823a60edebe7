package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/vyrodovalexey/items-api/internal/model"
)

// statusHandler replies with the given status code.
func statusHandler(code int) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(code)
	})
}

func TestResponseWriter_CapturesFirstStatus(t *testing.T) {
	tests := []struct {
		name   string
		write  func(rw *responseWriter)
		status int
	}{
		{
			name:   "default is 200",
			write:  func(*responseWriter) {},
			status: http.StatusOK,
		},
		{
			name:   "explicit header",
			write:  func(rw *responseWriter) { rw.WriteHeader(http.StatusCreated) },
			status: http.StatusCreated,
		},
		{
			name: "second header ignored",
			write: func(rw *responseWriter) {
				rw.WriteHeader(http.StatusUnprocessableEntity)
				rw.WriteHeader(http.StatusOK)
			},
			status: http.StatusUnprocessableEntity,
		},
		{
			name:   "body implies 200",
			write:  func(rw *responseWriter) { _, _ = rw.Write([]byte("[]")) },
			status: http.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			rr := httptest.NewRecorder()
			rw := newResponseWriter(rr)

			// Act
			tt.write(rw)

			// Assert
			if rw.statusCode != tt.status {
				t.Errorf("statusCode = %d, want %d", rw.statusCode, tt.status)
			}
			if rr.Code != tt.status {
				t.Errorf("recorded status = %d, want %d", rr.Code, tt.status)
			}
		})
	}
}

func TestResponseWriter_HijackNotSupported(t *testing.T) {
	rw := newResponseWriter(httptest.NewRecorder())

	if _, _, err := rw.Hijack(); err != http.ErrNotSupported {
		t.Errorf("Hijack() error = %v, want %v", err, http.ErrNotSupported)
	}
}

func TestChain(t *testing.T) {
	// Arrange
	var order []string
	trace := func(name string) Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name+"-before")
				next.ServeHTTP(w, r)
				order = append(order, name+"-after")
			})
		}
	}
	final := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		order = append(order, "handler")
		w.WriteHeader(http.StatusOK)
	})

	// Act
	Chain(trace("m1"), trace("m2"))(final).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	// Assert
	want := []string{"m1-before", "m2-before", "handler", "m2-after", "m1-after"}
	if strings.Join(order, ",") != strings.Join(want, ",") {
		t.Errorf("order = %v, want %v", order, want)
	}
}

func TestChain_Empty(t *testing.T) {
	rr := httptest.NewRecorder()

	Chain()(statusHandler(http.StatusNoContent)).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	if rr.Code != http.StatusNoContent {
		t.Errorf("status = %d, want %d", rr.Code, http.StatusNoContent)
	}
}

func TestLogging_Levels(t *testing.T) {
	tests := []struct {
		name      string
		path      string
		status    int
		wantLevel zapcore.Level
	}{
		{"success", "/api/list", http.StatusOK, zapcore.InfoLevel},
		{"not found", "/api/get/9", http.StatusNotFound, zapcore.InfoLevel},
		{"validation", "/api/create", http.StatusUnprocessableEntity, zapcore.InfoLevel},
		{"server error", "/api/list", http.StatusInternalServerError, zapcore.ErrorLevel},
		{"health probe", "/health", http.StatusOK, zapcore.DebugLevel},
		{"metrics scrape", "/metrics", http.StatusOK, zapcore.DebugLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			core, logs := observer.New(zapcore.DebugLevel)
			wrapped := Logging(zap.New(core))(statusHandler(tt.status))

			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			req = req.WithContext(context.WithValue(req.Context(), RequestIDKey, "req-1"))

			// Act
			wrapped.ServeHTTP(httptest.NewRecorder(), req)

			// Assert
			entries := logs.All()
			if len(entries) != 1 {
				t.Fatalf("log entries = %d, want 1", len(entries))
			}
			entry := entries[0]
			if entry.Level != tt.wantLevel {
				t.Errorf("level = %s, want %s", entry.Level, tt.wantLevel)
			}
			fields := entry.ContextMap()
			if fields["status"] != int64(tt.status) {
				t.Errorf("status field = %v, want %d", fields["status"], tt.status)
			}
			if fields["path"] != tt.path {
				t.Errorf("path field = %v, want %s", fields["path"], tt.path)
			}
			if fields["request_id"] != "req-1" {
				t.Errorf("request_id field = %v, want req-1", fields["request_id"])
			}
		})
	}
}

func TestRecovery_PassesThrough(t *testing.T) {
	rr := httptest.NewRecorder()

	Recovery(zap.NewNop())(statusHandler(http.StatusCreated)).ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/create", nil))

	if rr.Code != http.StatusCreated {
		t.Errorf("status = %d, want %d", rr.Code, http.StatusCreated)
	}
}

func TestRecovery_WritesJSON(t *testing.T) {
	tests := []struct {
		name  string
		value any
	}{
		{"string panic", "boom"},
		{"error panic", http.ErrAbortHandler},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			core, logs := observer.New(zapcore.ErrorLevel)
			panicking := http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
				panic(tt.value)
			})
			rr := httptest.NewRecorder()

			// Act
			Recovery(zap.New(core))(panicking).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/list", nil))

			// Assert
			if rr.Code != http.StatusInternalServerError {
				t.Errorf("status = %d, want %d", rr.Code, http.StatusInternalServerError)
			}
			if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
				t.Errorf("Content-Type = %s, want application/json", ct)
			}
			var resp model.ErrorResponse
			if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
				t.Fatalf("failed to decode body %q: %v", rr.Body.String(), err)
			}
			if resp.Code != http.StatusInternalServerError {
				t.Errorf("code = %d, want %d", resp.Code, http.StatusInternalServerError)
			}
			if logs.FilterMessage("panic recovered").Len() != 1 {
				t.Error("expected one panic log entry")
			}
		})
	}
}

func TestRequestID(t *testing.T) {
	tests := []struct {
		name     string
		incoming string
	}{
		{"generated", ""},
		{"propagated", "client-supplied-id"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			var seen string
			inner := http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
				seen = RequestIDFromContext(r.Context())
			})
			req := httptest.NewRequest(http.MethodGet, "/api/list", nil)
			if tt.incoming != "" {
				req.Header.Set(RequestIDHeader, tt.incoming)
			}
			rr := httptest.NewRecorder()

			// Act
			RequestID()(inner).ServeHTTP(rr, req)

			// Assert
			got := rr.Header().Get(RequestIDHeader)
			if got == "" {
				t.Fatal("response is missing the request id header")
			}
			if tt.incoming != "" && got != tt.incoming {
				t.Errorf("request id = %s, want %s", got, tt.incoming)
			}
			if seen != got {
				t.Errorf("context id = %s, header id = %s", seen, got)
			}
		})
	}
}

func TestRequestID_GeneratesUniqueIDs(t *testing.T) {
	wrapped := RequestID()(statusHandler(http.StatusOK))
	ids := make(map[string]bool)

	for i := 0; i < 100; i++ {
		rr := httptest.NewRecorder()
		wrapped.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
		id := rr.Header().Get(RequestIDHeader)
		if ids[id] {
			t.Fatalf("duplicate request id %s", id)
		}
		ids[id] = true
	}
}

func TestRequestIDFromContext_Missing(t *testing.T) {
	if id := RequestIDFromContext(context.Background()); id != "" {
		t.Errorf("RequestIDFromContext() = %q, want empty", id)
	}
}

func TestHTTPMetrics_UsesRouteTemplate(t *testing.T) {
	// Arrange
	metrics, err := NewHTTPMetrics(prometheus.NewRegistry())
	if err != nil {
		t.Fatalf("NewHTTPMetrics() error = %v", err)
	}

	router := mux.NewRouter()
	router.Use(mux.MiddlewareFunc(metrics.Middleware()))
	router.Handle("/api/get/{id}", statusHandler(http.StatusNotFound))

	// Act
	for _, id := range []string{"1", "2", "3"} {
		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/get/"+id, nil))
	}

	// Assert
	got := testutil.ToFloat64(metrics.requestsTotal.WithLabelValues(http.MethodGet, "/api/get/{id}", "404"))
	if got != 3 {
		t.Errorf("requests for route template = %v, want 3", got)
	}
	if n := testutil.CollectAndCount(metrics.requestsTotal); n != 1 {
		t.Errorf("label combinations = %d, want 1", n)
	}
	if n := testutil.CollectAndCount(metrics.requestDuration); n != 1 {
		t.Errorf("duration series = %d, want 1", n)
	}
	if v := testutil.ToFloat64(metrics.requestsInFlight); v != 0 {
		t.Errorf("in flight = %v, want 0 after requests complete", v)
	}
}

func TestHTTPMetrics_UnmatchedRoute(t *testing.T) {
	metrics, err := NewHTTPMetrics(prometheus.NewRegistry())
	if err != nil {
		t.Fatalf("NewHTTPMetrics() error = %v", err)
	}

	// Outside a router there is no current route.
	metrics.Middleware()(statusHandler(http.StatusNotFound)).
		ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nowhere/42", nil))

	if got := testutil.ToFloat64(metrics.requestsTotal.WithLabelValues(http.MethodGet, "unmatched", "404")); got != 1 {
		t.Errorf("unmatched requests = %v, want 1", got)
	}
}

func TestNewHTTPMetrics_DuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	if _, err := NewHTTPMetrics(reg); err != nil {
		t.Fatalf("first NewHTTPMetrics() error = %v", err)
	}

	if _, err := NewHTTPMetrics(reg); err == nil {
		t.Error("second registration on the same registry should fail")
	}
}

func TestCORS(t *testing.T) {
	methods := []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete}
	headers := []string{"Content-Type", RequestIDHeader}

	tests := []struct {
		name            string
		allowed         []string
		method          string
		origin          string
		wantOrigin      string
		wantCredentials string
		wantStatus      int
	}{
		{
			name:            "listed origin",
			allowed:         []string{"http://localhost:3000", "http://example.com"},
			method:          http.MethodGet,
			origin:          "http://localhost:3000",
			wantOrigin:      "http://localhost:3000",
			wantCredentials: "true",
			wantStatus:      http.StatusOK,
		},
		{
			name:       "wildcard echoes origin",
			allowed:    []string{"*"},
			method:     http.MethodGet,
			origin:     "http://any-origin.com",
			wantOrigin: "http://any-origin.com",
			wantStatus: http.StatusOK,
		},
		{
			name:       "wildcard without origin",
			allowed:    []string{"*"},
			method:     http.MethodGet,
			wantStatus: http.StatusOK,
		},
		{
			name:       "disallowed origin",
			allowed:    []string{"http://localhost:3000"},
			method:     http.MethodGet,
			origin:     "http://disallowed.com",
			wantStatus: http.StatusOK,
		},
		{
			name:            "preflight short circuits",
			allowed:         []string{"http://localhost:3000"},
			method:          http.MethodOptions,
			origin:          "http://localhost:3000",
			wantOrigin:      "http://localhost:3000",
			wantCredentials: "true",
			wantStatus:      http.StatusNoContent,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			called := false
			inner := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				called = true
				w.WriteHeader(http.StatusOK)
			})
			req := httptest.NewRequest(tt.method, "/api/create", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			rr := httptest.NewRecorder()

			// Act
			CORS(tt.allowed, methods, headers)(inner).ServeHTTP(rr, req)

			// Assert
			if rr.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rr.Code, tt.wantStatus)
			}
			if got := rr.Header().Get("Access-Control-Allow-Origin"); got != tt.wantOrigin {
				t.Errorf("Access-Control-Allow-Origin = %q, want %q", got, tt.wantOrigin)
			}
			if got := rr.Header().Get("Access-Control-Allow-Credentials"); got != tt.wantCredentials {
				t.Errorf("Access-Control-Allow-Credentials = %q, want %q", got, tt.wantCredentials)
			}
			if got := rr.Header().Get("Access-Control-Allow-Methods"); got != "GET, POST, PUT, DELETE" {
				t.Errorf("Access-Control-Allow-Methods = %q", got)
			}
			if got := rr.Header().Get("Access-Control-Max-Age"); got != "86400" {
				t.Errorf("Access-Control-Max-Age = %q, want 86400", got)
			}
			if called == (tt.method == http.MethodOptions) {
				t.Errorf("inner handler called = %v for %s", called, tt.method)
			}
		})
	}
}

func TestMiddlewareChainIntegration(t *testing.T) {
	// Arrange
	metrics, err := NewHTTPMetrics(prometheus.NewRegistry())
	if err != nil {
		t.Fatalf("NewHTTPMetrics() error = %v", err)
	}
	chain := Chain(
		Recovery(zap.NewNop()),
		RequestID(),
		metrics.Middleware(),
		Logging(zap.NewNop()),
		CORS([]string{"*"}, []string{http.MethodGet}, []string{"Content-Type"}),
	)
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/list", nil)
	req.Header.Set("Origin", "http://ui.example")

	// Act
	chain(statusHandler(http.StatusOK)).ServeHTTP(rr, req)

	// Assert
	if rr.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rr.Code, http.StatusOK)
	}
	if rr.Header().Get(RequestIDHeader) == "" {
		t.Error("request id header missing")
	}
	if rr.Header().Get("Access-Control-Allow-Origin") != "http://ui.example" {
		t.Error("CORS header missing")
	}
}
