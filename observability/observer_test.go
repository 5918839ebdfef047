package observability_test

import (
	"bytes"
	"context"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/tailored-agentic-units/tickstore/observability"
)

func TestLevel_String(t *testing.T) {
	tests := []struct {
		name  string
		level observability.Level
		want  string
	}{
		{name: "trace range", level: 1, want: "TRACE"},
		{name: "verbose maps to DEBUG", level: observability.LevelVerbose, want: "DEBUG"},
		{name: "info maps to INFO", level: observability.LevelInfo, want: "INFO"},
		{name: "warning maps to WARN", level: observability.LevelWarning, want: "WARN"},
		{name: "error maps to ERROR", level: observability.LevelError, want: "ERROR"},
		{name: "fatal range", level: 21, want: "FATAL"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.level.String(); got != tt.want {
				t.Errorf("Level(%d).String() = %q, want %q", tt.level, got, tt.want)
			}
		})
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		name    string
		want    observability.Level
		wantErr bool
	}{
		{name: "debug", want: observability.LevelVerbose},
		{name: "INFO", want: observability.LevelInfo},
		{name: "Warn", want: observability.LevelWarning},
		{name: "error", want: observability.LevelError},
		{name: "trace", wantErr: true},
		{name: "fatal", wantErr: true},
		{name: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := observability.ParseLevel(tt.name)
			if tt.wantErr {
				if err == nil {
					t.Errorf("ParseLevel(%q) = %v, want error", tt.name, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseLevel(%q) error = %v", tt.name, err)
			}
			if got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.name, got, tt.want)
			}
		})
	}
}

func TestLevel_SlogLevel(t *testing.T) {
	tests := []struct {
		name  string
		level observability.Level
		want  slog.Level
	}{
		{name: "verbose maps to Debug", level: observability.LevelVerbose, want: slog.LevelDebug},
		{name: "info maps to Info", level: observability.LevelInfo, want: slog.LevelInfo},
		{name: "warning maps to Warn", level: observability.LevelWarning, want: slog.LevelWarn},
		{name: "error maps to Error", level: observability.LevelError, want: slog.LevelError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.level.SlogLevel(); got != tt.want {
				t.Errorf("Level(%d).SlogLevel() = %v, want %v", tt.level, got, tt.want)
			}
		})
	}
}

func TestNoOpObserver(t *testing.T) {
	obs := observability.NoOpObserver{}
	obs.OnEvent(context.Background(), observability.Event{
		Type:      "store.cycle.start",
		Level:     observability.LevelInfo,
		Timestamp: time.Now(),
		Source:    "test",
	})
}

func TestMultiObserver(t *testing.T) {
	first := observability.NewCountingObserver()
	second := observability.NewCountingObserver()

	multi := observability.NewMultiObserver(first, nil)
	multi.Add(second)
	multi.Add(nil)

	multi.OnEvent(context.Background(), observability.Event{Type: "store.op.complete"})

	if got := first.Count("store.op.complete"); got != 1 {
		t.Errorf("first observer count = %d, want 1", got)
	}
	if got := second.Count("store.op.complete"); got != 1 {
		t.Errorf("second observer count = %d, want 1", got)
	}
}

func TestSlogObserver_LevelMapping(t *testing.T) {
	tests := []struct {
		name      string
		level     observability.Level
		minLevel  slog.Level
		expectLog bool
	}{
		{name: "verbose at debug handler", level: observability.LevelVerbose, minLevel: slog.LevelDebug, expectLog: true},
		{name: "verbose at info handler", level: observability.LevelVerbose, minLevel: slog.LevelInfo, expectLog: false},
		{name: "info at info handler", level: observability.LevelInfo, minLevel: slog.LevelInfo, expectLog: true},
		{name: "info at warn handler", level: observability.LevelInfo, minLevel: slog.LevelWarn, expectLog: false},
		{name: "warning at warn handler", level: observability.LevelWarning, minLevel: slog.LevelWarn, expectLog: true},
		{name: "error at error handler", level: observability.LevelError, minLevel: slog.LevelError, expectLog: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: tt.minLevel}))

			observability.NewSlogObserver(logger).OnEvent(context.Background(), observability.Event{
				Type:   "store.cycle.complete",
				Level:  tt.level,
				Source: "test",
			})

			if hasOutput := buf.Len() > 0; hasOutput != tt.expectLog {
				t.Errorf("log output = %v, want %v (buf: %q)", hasOutput, tt.expectLog, buf.String())
			}
		})
	}
}

func TestSlogObserver_AttributesInKeyOrder(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	observability.NewSlogObserver(logger).OnEvent(context.Background(), observability.Event{
		Type:   "store.cycle.complete",
		Level:  observability.LevelInfo,
		Source: "store.Tick",
		Data: map[string]any{
			"used":   7,
			"budget": 33,
			"cycle":  2,
		},
	})

	output := buf.String()
	if !strings.Contains(output, "store.cycle.complete") {
		t.Errorf("expected event type as log message, got: %s", output)
	}
	if !strings.Contains(output, "source=store.Tick budget=33 cycle=2 used=7") {
		t.Errorf("expected sorted attributes after source, got: %s", output)
	}
}

func TestRegistry_GetObserver(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		wantErr bool
	}{
		{name: "noop exists", key: "noop"},
		{name: "slog exists", key: "slog"},
		{name: "empty resolves to slog", key: ""},
		{name: "unknown fails", key: "nonexistent", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			obs, err := observability.GetObserver(tt.key)
			if (err != nil) != tt.wantErr {
				t.Errorf("GetObserver(%q) error = %v, wantErr %v", tt.key, err, tt.wantErr)
			}
			if !tt.wantErr && obs == nil {
				t.Errorf("GetObserver(%q) returned nil observer", tt.key)
			}
		})
	}
}

func TestRegistry_RegisterAndGet(t *testing.T) {
	custom := observability.NewCountingObserver()
	observability.RegisterObserver("test-counting", custom)

	obs, err := observability.GetObserver("test-counting")
	if err != nil {
		t.Fatalf("GetObserver failed: %v", err)
	}
	obs.OnEvent(context.Background(), observability.Event{Type: "host.start"})

	if got := custom.Count("host.start"); got != 1 {
		t.Errorf("count = %d, want 1", got)
	}
	if !slices.Contains(observability.Names(), "test-counting") {
		t.Errorf("Names() = %v, missing test-counting", observability.Names())
	}
}

func TestCountingObserver_Concurrent(t *testing.T) {
	c := observability.NewCountingObserver()
	const n = 100

	var wg sync.WaitGroup
	wg.Add(2 * n)
	for range n {
		go func() {
			defer wg.Done()
			c.OnEvent(context.Background(), observability.Event{Type: "store.op.enqueue"})
		}()
		go func() {
			defer wg.Done()
			_ = c.Snapshot()
		}()
	}
	wg.Wait()

	if got := c.Snapshot()["store.op.enqueue"]; got != n {
		t.Errorf("count = %d, want %d", got, n)
	}
}
