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
		{"", slog.LevelInfo, false},
		{"INFO", slog.LevelInfo, false},
		{"debug", slog.LevelDebug, false},
		{" warning ", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"verbose", slog.LevelInfo, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseLevel(%q) err = %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestLoggerAddsComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := NewText(&buf, slog.LevelInfo, ComponentApp).WithComponent(ComponentBudget)

	logger.Info("hello", FieldUserID, "u1")

	out := buf.String()
	if !strings.Contains(out, "component=budget") || !strings.Contains(out, "user_id=u1") {
		t.Errorf("log output = %q", out)
	}
}

func TestMiddlewareStoresLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewText(&buf, slog.LevelDebug, ComponentHTTP)

	var got *Logger
	h := Middleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = FromContext(r.Context())
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	if got != logger {
		t.Error("FromContext() did not return the middleware logger")
	}
	if FromContext(context.Background()).Component() != "unknown" {
		t.Error("FromContext() without logger should fall back to default")
	}
}

func TestStructuredLogger(t *testing.T) {
	var buf bytes.Buffer
	sl := NewStructuredLogger(NewText(&buf, slog.LevelInfo, ComponentApp))
	ctx := context.Background()

	sl.LogRecordWritten(ctx, "u1", OpCreate, "vendor", "v1")
	sl.LogOrphansRemoved(ctx, "u1", 2)
	sl.LogError(ctx, "boom", errors.New("disk full"), ComponentStorage, OpUpdate, NewFields().WithUser("u1"))

	out := buf.String()
	for _, want := range []string{"record_kind=vendor", "record_id=v1", "removed=2", `error="disk full"`, "operation=update"} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %q:\n%s", want, out)
		}
	}
}

func TestComponentLoggedOnce(t *testing.T) {
	tests := []struct {
		name  string
		write func(*Logger)
		want  string
	}{
		{
			name:  "record written",
			write: func(l *Logger) { NewStructuredLogger(l).LogRecordWritten(context.Background(), "u1", OpCreate, "vendor", "v1") },
			want:  "component=budget",
		},
		{
			name: "http end",
			write: func(l *Logger) {
				NewStructuredLogger(l).LogHTTPEnd(context.Background(), httptest.NewRequest(http.MethodGet, "/", nil), 500, 3, "10.0.0.1")
			},
			want: "component=budget",
		},
		{
			name: "error with other component",
			write: func(l *Logger) {
				NewStructuredLogger(l).LogError(context.Background(), "boom", errors.New("x"), ComponentStorage, OpRead, NewFields())
			},
			want: "component=storage",
		},
		{
			name:  "plain info",
			write: func(l *Logger) { l.With(FieldUserID, "u1").Info("hello") },
			want:  "component=budget",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := NewText(&buf, slog.LevelInfo, ComponentApp).WithComponent(ComponentBudget)
			tt.write(logger)

			out := buf.String()
			if n := strings.Count(out, "component="); n != 1 {
				t.Errorf("component logged %d times: %q", n, out)
			}
			if !strings.Contains(out, tt.want) {
				t.Errorf("log output missing %q: %q", tt.want, out)
			}
		})
	}
}

func TestSlogCarriesComponent(t *testing.T) {
	var buf bytes.Buffer
	NewText(&buf, slog.LevelInfo, ComponentApp).WithComponent(ComponentBackend).Slog().Info("ready")
	if n := strings.Count(buf.String(), "component=backend"); n != 1 {
		t.Errorf("output = %q", buf.String())
	}
}

func TestWithExpense(t *testing.T) {
	f := NewFields().WithExpense("e1", "v1", 1250)
	if f[FieldExpenseID] != "e1" || f[FieldVendorID] != "v1" || f[FieldAmountCents] != int64(1250) {
		t.Errorf("fields = %v", f)
	}
}
