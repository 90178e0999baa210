package candidate

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/talentdex/internal/db"
	"github.com/kailas-cloud/talentdex/internal/metrics"
)

// indexManager is the consumer interface for index lifecycle (ISP).
type indexManager interface {
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	DropIndex(ctx context.Context, name string) error
	SynUpdate(ctx context.Context, index, groupID string, terms []string) error
}

// BootstrapConfig bounds index bootstrap retries.
type BootstrapConfig struct {
	Attempts   int
	Backoff    time.Duration
	MaxBackoff time.Duration
	// Recreate drops the index before the first attempt. Documents are kept.
	Recreate bool
}

func (c *BootstrapConfig) applyDefaults() {
	if c.Attempts <= 0 {
		c.Attempts = 5
	}
	if c.Backoff <= 0 {
		c.Backoff = 500 * time.Millisecond
	}
	if c.MaxBackoff < c.Backoff {
		c.MaxBackoff = 30 * time.Second
	}
}

// Bootstrapper creates the candidate index and pushes synonym groups, retrying on failure.
type Bootstrapper struct {
	mgr      indexManager
	def      *db.IndexDefinition
	synonyms map[string][]string
	cfg      BootstrapConfig
	logger   *zap.Logger

	ready   atomic.Bool
	dropped bool
	mu      sync.Mutex
	sleep   func(ctx context.Context, d time.Duration) error
}

// NewBootstrapper creates a bootstrapper. synonyms maps engine group ids to terms.
func NewBootstrapper(
	mgr indexManager, def *db.IndexDefinition, synonyms map[string][]string,
	cfg BootstrapConfig, logger *zap.Logger,
) *Bootstrapper {
	cfg.applyDefaults()
	return &Bootstrapper{
		mgr:      mgr,
		def:      def,
		synonyms: synonyms,
		cfg:      cfg,
		logger:   logger,
		sleep:    sleepCtx,
	}
}

// Ready reports whether the index has been bootstrapped.
func (b *Bootstrapper) Ready() bool { return b.ready.Load() }

// Run attempts bootstrap up to the configured number of times with exponential backoff.
// It returns the last error when every attempt failed; the service keeps running
// and Ensure retries lazily.
func (b *Bootstrapper) Run(ctx context.Context) error {
	delay := b.cfg.Backoff
	var lastErr error
	for attempt := 1; attempt <= b.cfg.Attempts; attempt++ {
		if lastErr = b.Ensure(ctx); lastErr == nil {
			return nil
		}
		b.logger.Warn("Index bootstrap failed",
			zap.String("index", b.def.Name),
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", b.cfg.Attempts),
			zap.Error(lastErr),
		)
		if attempt == b.cfg.Attempts {
			break
		}
		if err := b.sleep(ctx, delay); err != nil {
			return fmt.Errorf("bootstrap %s: %w", b.def.Name, err)
		}
		delay = min(delay*2, b.cfg.MaxBackoff)
	}
	return fmt.Errorf("bootstrap %s after %d attempts: %w", b.def.Name, b.cfg.Attempts, lastErr)
}

// Ensure bootstraps the index once. It is a no-op once bootstrap succeeded.
func (b *Bootstrapper) Ensure(ctx context.Context) error {
	if b.ready.Load() {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.ready.Load() {
		return nil
	}

	if err := b.attempt(ctx); err != nil {
		metrics.BootstrapAttemptsTotal.WithLabelValues("error").Inc()
		return err
	}
	metrics.BootstrapAttemptsTotal.WithLabelValues("ok").Inc()
	b.ready.Store(true)
	b.logger.Info("Index ready",
		zap.String("index", b.def.Name),
		zap.Int("synonym_groups", len(b.synonyms)),
	)
	return nil
}

func (b *Bootstrapper) attempt(ctx context.Context) error {
	if b.cfg.Recreate && !b.dropped {
		if err := b.mgr.DropIndex(ctx, b.def.Name); err != nil && !errors.Is(err, db.ErrIndexNotFound) {
			return fmt.Errorf("drop index: %w", err)
		}
		b.dropped = true
	}

	if err := b.mgr.CreateIndex(ctx, b.def); err != nil && !errors.Is(err, db.ErrIndexExists) {
		return fmt.Errorf("create index: %w", err)
	}

	ids := make([]string, 0, len(b.synonyms))
	for id := range b.synonyms {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		if err := b.mgr.SynUpdate(ctx, b.def.Name, id, b.synonyms[id]); err != nil {
			return fmt.Errorf("synonym group %s: %w", id, err)
		}
	}
	return nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
