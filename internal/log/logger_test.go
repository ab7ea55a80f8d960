package log

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
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
		{"INFO", slog.LevelInfo, false},
		{"", slog.LevelInfo, false},
		{"warn", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"verbose", slog.LevelInfo, true},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, %v; want %v, wantErr %v", tt.in, got, err, tt.want, tt.wantErr)
		}
	}
}

func TestLogger_JSONCarriesComponentOnce(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: slog.LevelInfo, Format: "json", Component: ComponentApp, Writer: &buf})

	logger.WithComponent(ComponentScanner).Info("Scan complete", FieldMessageID, "m1")
	logger.Debug("hidden")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected one line, got %q", buf.String())
	}
	var rec map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &rec); err != nil {
		t.Fatal(err)
	}
	if rec[FieldComponent] != ComponentScanner || rec[FieldMessageID] != "m1" {
		t.Errorf("unexpected record %v", rec)
	}
	if strings.Count(lines[0], `"component"`) != 1 {
		t.Errorf("component repeated: %s", lines[0])
	}
}

func TestLogger_Slog(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: slog.LevelDebug, Component: ComponentGmail, Writer: &buf})
	logger.Slog().Debug("query done")
	if !strings.Contains(buf.String(), "component=gmail") {
		t.Errorf("expected component in %q", buf.String())
	}
}

func TestFromContext(t *testing.T) {
	if got := FromContext(context.Background()).Component(); got != "unknown" {
		t.Errorf("default component = %q", got)
	}
	logger := New(DefaultConfig()).WithComponent(ComponentAMQP)
	if got := FromContext(WithContext(context.Background(), logger)); got != logger {
		t.Error("expected stored logger")
	}
}

func TestLogFields(t *testing.T) {
	f := NewFields().
		WithScanID("s1").
		WithOperation(OpFetch).
		WithErrorType(ErrorTypeFetch).
		WithMessageID("m1").
		WithCharge("Acme", 999, "monthly").
		WithError(errors.New("boom")).
		WithError(nil)

	if f[FieldMerchant] != "Acme" || f[FieldAmountCents] != int64(999) || f[FieldError] != "boom" ||
		f[FieldScanID] != "s1" || f[FieldOperation] != OpFetch || f[FieldErrorType] != ErrorTypeFetch {
		t.Errorf("unexpected fields %v", f)
	}
	if got := len(f.ToSlice()); got != len(f)*2 {
		t.Errorf("ToSlice() length = %d, want %d", got, len(f)*2)
	}
}
