package candidate

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/talentdex/internal/db"
)

func newTestBootstrapper(t *testing.T, mgr *mockIndexManager, cfg BootstrapConfig) (*Bootstrapper, *[]time.Duration) {
	t.Helper()
	def, err := Schema(IndexName)
	if err != nil {
		t.Fatalf("schema: %v", err)
	}
	syn := map[string][]string{
		"v1_golang": {"go", "golang"},
		"v1_js":     {"js", "javascript"},
	}
	b := NewBootstrapper(mgr, def, syn, cfg, zap.NewNop())
	var slept []time.Duration
	b.sleep = func(_ context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}
	return b, &slept
}

func TestBootstrap_FirstTry(t *testing.T) {
	mgr := &mockIndexManager{}
	b, slept := newTestBootstrapper(t, mgr, BootstrapConfig{})

	if err := b.Run(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !b.Ready() {
		t.Fatal("expected ready")
	}
	if mgr.creates != 1 || len(*slept) != 0 {
		t.Errorf("creates=%d sleeps=%v", mgr.creates, *slept)
	}
	if len(mgr.groups) != 2 || mgr.groups[0] != "v1_golang" || mgr.groups[1] != "v1_js" {
		t.Errorf("synonym groups = %v", mgr.groups)
	}
}

func TestBootstrap_ExistingIndexIsReady(t *testing.T) {
	mgr := &mockIndexManager{createFn: func(context.Context, *db.IndexDefinition) error {
		return db.ErrIndexExists
	}}
	b, _ := newTestBootstrapper(t, mgr, BootstrapConfig{})
	if err := b.Run(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !b.Ready() || len(mgr.groups) != 2 {
		t.Error("existing index must still receive synonym groups")
	}
}

func TestBootstrap_RetriesWithBackoff(t *testing.T) {
	calls := 0
	mgr := &mockIndexManager{createFn: func(context.Context, *db.IndexDefinition) error {
		calls++
		if calls < 3 {
			return errors.New("connection refused")
		}
		return nil
	}}
	b, slept := newTestBootstrapper(t, mgr, BootstrapConfig{
		Attempts: 5, Backoff: time.Second, MaxBackoff: 90 * time.Second,
	})

	if err := b.Run(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []time.Duration{time.Second, 2 * time.Second}
	if len(*slept) != len(want) || (*slept)[0] != want[0] || (*slept)[1] != want[1] {
		t.Errorf("backoff = %v, want %v", *slept, want)
	}
}

func TestBootstrap_GivesUp(t *testing.T) {
	mgr := &mockIndexManager{createFn: func(context.Context, *db.IndexDefinition) error {
		return errors.New("connection refused")
	}}
	b, slept := newTestBootstrapper(t, mgr, BootstrapConfig{
		Attempts: 3, Backoff: time.Second, MaxBackoff: 1500 * time.Millisecond,
	})

	if err := b.Run(context.Background()); err == nil {
		t.Fatal("expected error after exhausting attempts")
	}
	if b.Ready() {
		t.Error("must not be ready")
	}
	if mgr.creates != 3 {
		t.Errorf("creates = %d, want 3", mgr.creates)
	}
	if len(*slept) != 2 || (*slept)[1] != 1500*time.Millisecond {
		t.Errorf("backoff must be capped: %v", *slept)
	}
}

func TestBootstrap_EnsureRetriesLazily(t *testing.T) {
	fail := true
	mgr := &mockIndexManager{createFn: func(context.Context, *db.IndexDefinition) error {
		if fail {
			return errors.New("down")
		}
		return nil
	}}
	b, _ := newTestBootstrapper(t, mgr, BootstrapConfig{Attempts: 1})
	if err := b.Run(context.Background()); err == nil {
		t.Fatal("expected failure")
	}

	fail = false
	if err := b.Ensure(context.Background()); err != nil {
		t.Fatalf("lazy bootstrap: %v", err)
	}
	if err := b.Ensure(context.Background()); err != nil {
		t.Fatalf("second ensure: %v", err)
	}
	if mgr.creates != 2 {
		t.Errorf("creates = %d, want 2 (no work once ready)", mgr.creates)
	}
}

func TestBootstrap_EnsureConcurrent(t *testing.T) {
	mgr := &mockIndexManager{}
	b, _ := newTestBootstrapper(t, mgr, BootstrapConfig{})

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = b.Ensure(context.Background())
		}()
	}
	wg.Wait()
	if mgr.creates != 1 {
		t.Errorf("creates = %d, want 1", mgr.creates)
	}
}

func TestBootstrap_RecreateDropsOnce(t *testing.T) {
	calls := 0
	mgr := &mockIndexManager{
		dropFn: func(context.Context, string) error { return db.ErrIndexNotFound },
		createFn: func(context.Context, *db.IndexDefinition) error {
			calls++
			if calls == 1 {
				return errors.New("busy")
			}
			return nil
		},
	}
	b, _ := newTestBootstrapper(t, mgr, BootstrapConfig{Attempts: 2, Recreate: true})
	if err := b.Run(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if mgr.drops != 1 {
		t.Errorf("drops = %d, want 1", mgr.drops)
	}
}

func TestBootstrap_SynonymFailure(t *testing.T) {
	mgr := &mockIndexManager{synFn: func(context.Context, string, string, []string) error {
		return errors.New("syntax")
	}}
	b, _ := newTestBootstrapper(t, mgr, BootstrapConfig{Attempts: 1})
	if err := b.Run(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if b.Ready() {
		t.Error("synonym failure must keep the index not ready")
	}
}

func TestBootstrap_ContextCancelledDuringBackoff(t *testing.T) {
	mgr := &mockIndexManager{createFn: func(context.Context, *db.IndexDefinition) error {
		return errors.New("down")
	}}
	b, _ := newTestBootstrapper(t, mgr, BootstrapConfig{Attempts: 3})
	b.sleep = sleepCtx

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := b.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
