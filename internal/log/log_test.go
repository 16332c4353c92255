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
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		" INFO ":  slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"chatty":  slog.LevelInfo,
		"":        slog.LevelInfo,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestLoggerAddsComponentAndRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := New(ConfigFor(&buf, "warn", ComponentReport))

	logger.Info("hidden")
	logger.Warn("shown", FieldPeriodID, "2025_January")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info message should be filtered at warn level: %s", out)
	}
	if !strings.Contains(out, "component=report") || !strings.Contains(out, "period_id=2025_January") {
		t.Errorf("missing fields in output: %s", out)
	}
}

func TestMiddlewareCarriesLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := New(ConfigFor(&buf, "info", ComponentHTTP))

	handler := Middleware(logger)(RequestIDMiddleware(func(*http.Request) string { return "req-1" })(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			FromContext(r.Context()).InfoContext(r.Context(), "inside")
		})))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	if !strings.Contains(buf.String(), "request_id=req-1") {
		t.Errorf("request id not propagated: %s", buf.String())
	}
}

func TestFromContextDefaults(t *testing.T) {
	l := FromContext(context.Background())
	if l == nil || l.Component() != "unknown" {
		t.Fatalf("expected fallback logger, got %+v", l)
	}
}

func TestStructuredLogger(t *testing.T) {
	var buf bytes.Buffer
	sl := NewStructuredLogger(New(ConfigFor(&buf, "debug", ComponentApp)))
	ctx := context.Background()

	sl.LogPeriodSaved(ctx, "2025_March", "1000", "600")
	sl.LogConversionFallback(ctx, "2025_March", "USD", errors.New("timeout"))
	sl.LogError(ctx, "boom", errors.New("disk full"), ComponentStorage, OpUpsert, nil)

	out := buf.String()
	for _, want := range []string{"Period saved", "income=1000", "currency=USD", "error=timeout", "operation=upsert", "error=\"disk full\""} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestLogFieldsBuilder(t *testing.T) {
	f := NewFields().WithPeriod("2025_May").WithError(nil).WithErrorType(ErrorTypeNotFound)

	if _, ok := f[FieldError]; ok {
		t.Error("nil error should not add a field")
	}
	if f[FieldErrorType] != ErrorTypeNotFound || f[FieldPeriodID] != "2025_May" {
		t.Errorf("unexpected fields: %v", f)
	}
	if len(f.ToSlice()) != 4 {
		t.Errorf("expected 4 slice entries, got %d", len(f.ToSlice()))
	}
}
