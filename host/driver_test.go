package host_test

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/tailored-agentic-units/tickstore/host"
	"github.com/tailored-agentic-units/tickstore/medium"
	"github.com/tailored-agentic-units/tickstore/observability"
	"github.com/tailored-agentic-units/tickstore/store"
)

// --- Test helpers ---

func newStore(t *testing.T) *store.Store {
	t.Helper()

	cfg := store.DefaultConfig()
	cfg.Observer = "noop"
	s, err := store.New(&cfg, medium.NewMemoryMedium())
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	return s
}

func testConfig(t *testing.T) *host.Config {
	t.Helper()

	cfg := host.DefaultConfig()
	cfg.TickInterval = host.Duration(time.Millisecond)
	cfg.Observer = "noop"
	cfg.Store.Observer = "noop"
	return &cfg
}

// --- Step ---

func TestStep_RunsSubmissionsBeforeTick(t *testing.T) {
	d := host.New(newStore(t))
	ctx := context.Background()

	var got store.Result
	err := d.Submit(ctx, func(s *store.Store) {
		s.Set("k", "v", nil)
		s.Get("k", func(res store.Result, err error) { got = res })
	})
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	report := d.Step(ctx)

	if report.Completed != 2 {
		t.Errorf("got Completed %d, want 2", report.Completed)
	}
	if got.Value != "v" {
		t.Errorf("got %q, want v", got.Value)
	}
}

func TestStep_RunsHooksInOrder(t *testing.T) {
	var calls []string
	d := host.New(newStore(t),
		host.WithHook(func(_ context.Context, r store.Report) { calls = append(calls, "first") }),
		host.WithHook(func(_ context.Context, r store.Report) { calls = append(calls, "second") }),
	)

	d.Step(context.Background())

	if len(calls) != 2 || calls[0] != "first" || calls[1] != "second" {
		t.Errorf("got hook calls %v, want [first second]", calls)
	}
}

func TestStep_SubmissionPanicIsContained(t *testing.T) {
	counter := observability.NewCountingObserver()
	d := host.New(newStore(t), host.WithObserver(counter))
	ctx := context.Background()

	d.Submit(ctx, func(*store.Store) { panic("bad submission") })
	d.Submit(ctx, func(s *store.Store) { s.Set("k", "v", nil) })

	report := d.Step(ctx)

	if report.Completed != 1 {
		t.Errorf("got Completed %d, want 1", report.Completed)
	}
	if got := counter.Count(host.EventSubmitPanic); got != 1 {
		t.Errorf("got %d panic events, want 1", got)
	}
}

// --- Run ---

func TestRun_DoRoundTrip(t *testing.T) {
	d, err := host.Open(testConfig(t))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer d.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := d.Run(ctx); err != nil {
			t.Errorf("Run() error = %v", err)
		}
	}()

	if _, err := d.Set(ctx, "greeting", "hello", store.Slot(2)); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	res, err := d.Get(ctx, "greeting", store.Slot(2))
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if !res.Found || res.Value != "hello" {
		t.Errorf("got %+v, want hello", res)
	}

	cancel()
	wg.Wait()
}

func TestRun_Twice(t *testing.T) {
	d := host.New(newStore(t), host.WithInterval(time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	finished := make(chan error, 1)
	go func() { finished <- d.Run(ctx) }()

	// A completed round trip proves the first Run owns the driver.
	if _, err := d.Get(ctx, "k"); err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if err := d.Run(ctx); !errors.Is(err, host.ErrRunning) {
		t.Errorf("concurrent Run() error = %v, want ErrRunning", err)
	}

	cancel()
	if err := <-finished; err != nil {
		t.Errorf("Run() error = %v", err)
	}
	if err := d.Run(context.Background()); !errors.Is(err, host.ErrStopped) {
		t.Errorf("Run() after stop error = %v, want ErrStopped", err)
	}
}

func TestSubmit_AfterStop(t *testing.T) {
	counter := observability.NewCountingObserver()
	d := host.New(newStore(t), host.WithObserver(counter), host.WithInterval(time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := d.Run(ctx); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	err := d.Submit(context.Background(), func(*store.Store) {})
	if !errors.Is(err, host.ErrStopped) {
		t.Errorf("Submit() error = %v, want ErrStopped", err)
	}
	if _, err := d.Get(context.Background(), "k"); !errors.Is(err, host.ErrStopped) {
		t.Errorf("Get() error = %v, want ErrStopped", err)
	}
	if got := counter.Count(host.EventSubmitDrop); got != 2 {
		t.Errorf("got %d drop events, want 2", got)
	}
	if counter.Count(host.EventStart) != 1 || counter.Count(host.EventStop) != 1 {
		t.Errorf("lifecycle events = %v", counter.Snapshot())
	}
}

func TestDo_ContextCancelled(t *testing.T) {
	d := host.New(newStore(t))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// Nothing drains the queue, so only the context can end the wait.
	if _, err := d.Get(ctx, "k"); !errors.Is(err, context.Canceled) {
		t.Errorf("Get() error = %v, want context.Canceled", err)
	}
}

// --- Serve ---

func TestServe_StopsWhenClientsReturn(t *testing.T) {
	d, err := host.Open(testConfig(t))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer d.Close()

	keys := []string{"a", "b", "c"}
	clients := make([]func(context.Context) error, len(keys))
	for i, k := range keys {
		clients[i] = func(ctx context.Context) error {
			_, err := d.Set(ctx, k, "v-"+k)
			return err
		}
	}

	if err := d.Serve(context.Background(), clients...); err != nil {
		t.Fatalf("Serve() error = %v", err)
	}
	if snap := d.Metrics(); snap.Completed != 3 {
		t.Errorf("got Completed %d, want 3", snap.Completed)
	}
}

func TestServe_ClientError(t *testing.T) {
	d, err := host.Open(testConfig(t))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer d.Close()

	err = d.Serve(context.Background(), func(ctx context.Context) error {
		_, err := d.Get(ctx, "k", store.Slot(-1))
		return err
	})
	if !errors.Is(err, store.ErrInvalidSlot) {
		t.Errorf("Serve() error = %v, want ErrInvalidSlot", err)
	}
}

// --- Open ---

func TestOpen_BoltPersistsAcrossRestarts(t *testing.T) {
	cfg := testConfig(t)
	cfg.Medium = medium.Config{Kind: medium.KindBolt, Path: filepath.Join(t.TempDir(), "records.db")}

	d, err := host.Open(cfg)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	err = d.Serve(context.Background(), func(ctx context.Context) error {
		_, err := d.Set(ctx, "durable", "yes")
		return err
	})
	if err != nil {
		t.Fatalf("Serve() error = %v", err)
	}
	if err := d.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	d, err = host.Open(cfg)
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	defer d.Close()

	var res store.Result
	err = d.Serve(context.Background(), func(ctx context.Context) error {
		var err error
		res, err = d.Get(ctx, "durable")
		return err
	})
	if err != nil {
		t.Fatalf("Serve() error = %v", err)
	}
	if res.Value != "yes" {
		t.Errorf("got %q after reopen, want yes", res.Value)
	}
}

func TestOpen_Errors(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*host.Config)
		wantErr error
	}{
		{
			name:    "zero interval",
			mutate:  func(c *host.Config) { c.TickInterval = 0 },
			wantErr: host.ErrInvalidInterval,
		},
		{
			name:    "unknown medium",
			mutate:  func(c *host.Config) { c.Medium.Kind = "tape" },
			wantErr: medium.ErrUnknownKind,
		},
		{
			name:    "invalid store config",
			mutate:  func(c *host.Config) { c.Store.PerAgentLimit = store.RateCeiling },
			wantErr: store.ErrInvalidConfig,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(t)
			tt.mutate(cfg)

			if _, err := host.Open(cfg); !errors.Is(err, tt.wantErr) {
				t.Errorf("Open() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestOpen_StoreOptions(t *testing.T) {
	cfg := testConfig(t)
	d, err := host.Open(cfg, host.WithStoreOptions(store.WithAgents(func() int { return 0 })))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer d.Close()

	d.Submit(context.Background(), func(s *store.Store) { s.Set("k", "v", nil) })
	report := d.Step(context.Background())

	if report.Budget != 0 || report.Pending != 1 {
		t.Errorf("report = %+v, want idle cycle", report)
	}
}
