package middleware

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func newCapturingLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func TestLoggingCapturesRequestFields(t *testing.T) {
	var buf bytes.Buffer
	logger := newCapturingLogger(&buf)

	handler := Logging(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"results":[]}`))
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/marketplace/search?q=phone", nil))

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("unparseable log output %q: %v", buf.String(), err)
	}
	if entry["method"] != "GET" {
		t.Errorf("method = %v", entry["method"])
	}
	if entry["path"] != "/marketplace/search" {
		t.Errorf("path = %v", entry["path"])
	}
	if entry["status"] != float64(200) {
		t.Errorf("status = %v", entry["status"])
	}
	if entry["size"] != float64(len(`{"results":[]}`)) {
		t.Errorf("size = %v", entry["size"])
	}
}

func TestLoggingRecordsErrorCode(t *testing.T) {
	var buf bytes.Buffer
	logger := newCapturingLogger(&buf)

	handler := Logging(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := SetErrorCode(r.Context(), "not_found")
		UpdateResponseContext(w, ctx)
		w.WriteHeader(http.StatusNotFound)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/marketplace/business/missing", nil))

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("unparseable log output: %v", err)
	}
	if entry["error_code"] != "not_found" {
		t.Errorf("error_code = %v, want not_found", entry["error_code"])
	}
	if entry["level"] != "WARN" {
		t.Errorf("level = %v, want WARN for 4xx", entry["level"])
	}
}

func TestUpdateResponseContextUnwraps(t *testing.T) {
	var buf bytes.Buffer
	logger := newCapturingLogger(&buf)

	// Stack the metrics wrapper between logging and the handler, as the
	// real middleware chain does.
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := SetErrorCode(r.Context(), "validation_error")
		UpdateResponseContext(w, ctx)
		w.WriteHeader(http.StatusBadRequest)
	})
	wrapped := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		inner.ServeHTTP(newMetricsResponseWriter(w), r)
	})

	handler := Logging(logger)(wrapped)
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/marketplace/search", nil))

	if !strings.Contains(buf.String(), "validation_error") {
		t.Errorf("error code did not survive wrapper: %s", buf.String())
	}
}

func TestLoggingServerErrorLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := newCapturingLogger(&buf)

	handler := Logging(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/marketplace/search", nil))

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("unparseable log output: %v", err)
	}
	if entry["level"] != "ERROR" {
		t.Errorf("level = %v, want ERROR for 5xx", entry["level"])
	}
}

func TestNewLoggerHandlerSelection(t *testing.T) {
	if NewLogger("production") == nil {
		t.Fatal("nil production logger")
	}
	if NewLogger("development") == nil {
		t.Fatal("nil development logger")
	}
}

func TestResponseWriterDoubleWriteHeader(t *testing.T) {
	rec := httptest.NewRecorder()
	rw := newResponseWriter(rec)

	rw.WriteHeader(http.StatusNotFound)
	rw.WriteHeader(http.StatusOK) // ignored

	if rw.statusCode != http.StatusNotFound {
		t.Errorf("statusCode = %d, want 404", rw.statusCode)
	}
}
