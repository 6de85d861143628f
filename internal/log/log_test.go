package log

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"debug", slog.LevelDebug, false},
		{"", slog.LevelInfo, false},
		{"INFO", slog.LevelInfo, false},
		{"warning", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"loud", slog.LevelInfo, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseLevel(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestLoggerAddsComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: slog.LevelDebug, Component: ComponentLedger, Format: "json", Output: &buf})

	logger.InfoContext(context.Background(), "Statement projected", FieldPeriod, "2025-06")
	out := buf.String()
	if !strings.Contains(out, `"component":"ledger"`) || !strings.Contains(out, `"period":"2025-06"`) {
		t.Errorf("unexpected log line: %s", out)
	}

	buf.Reset()
	logger.WithComponent(ComponentStorage).WarnContext(context.Background(), "Capacity low")
	if !strings.Contains(buf.String(), `"component":"storage"`) {
		t.Errorf("component not switched: %s", buf.String())
	}
}

func TestFields(t *testing.T) {
	f := NewFields().
		WithComponent(ComponentHTTP).
		WithRequestID("").
		WithError(errors.New("boom")).
		WithStatement("2025-06", "ALL").
		WithRevision(7)

	if _, ok := f[FieldRequestID]; ok {
		t.Error("empty request id should be omitted")
	}
	if f[FieldError] != "boom" || f[FieldRevision] != uint64(7) || f[FieldFilter] != "ALL" {
		t.Errorf("unexpected fields: %v", f)
	}
	if got := len(f.ToSlice()); got != 2*len(f) {
		t.Errorf("ToSlice() len = %d, want %d", got, 2*len(f))
	}
}

func TestMiddlewareAndRequestID(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Component: ComponentHTTP, Format: "json", Output: &buf})

	type key struct{}
	handler := Middleware(logger)(RequestIDMiddleware(func(ctx context.Context) string {
		id, _ := ctx.Value(key{}).(string)
		return id
	})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		FromContext(r.Context()).InfoContext(r.Context(), "handled")
	})))

	req := httptest.NewRequest(http.MethodGet, "/statements", nil)
	req = req.WithContext(context.WithValue(req.Context(), key{}, "req_1"))
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if !strings.Contains(buf.String(), `"request_id":"req_1"`) {
		t.Errorf("request id missing: %s", buf.String())
	}
}

func TestStatusLevel(t *testing.T) {
	if StatusLevel(200) != slog.LevelInfo || StatusLevel(404) != slog.LevelWarn || StatusLevel(503) != slog.LevelError {
		t.Error("unexpected status levels")
	}
}

func TestFromContextDefault(t *testing.T) {
	if FromContext(context.Background()).Component() != ComponentApp {
		t.Error("default logger should use the app component")
	}
}
