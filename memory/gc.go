package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/memflow/memflow/log"
)

// GCStats summarises a garbage collection run. A fresh value is produced
// per run.
type GCStats struct {
	// ExpiredPruned counts entries removed because they were expired.
	ExpiredPruned int

	// DecayedPruned counts entries removed because their retention fell
	// below the threshold.
	DecayedPruned int

	// TotalRemaining is the store's entry count after the run. Under a
	// dry run it equals the pre-run count.
	TotalRemaining int

	// DryRun reports whether any deletion was actually performed.
	DryRun bool
}

// TotalPruned is the total number of entries pruned in both phases.
func (s GCStats) TotalPruned() int {
	return s.ExpiredPruned + s.DecayedPruned
}

// GCConfig configures a GarbageCollector.
type GCConfig struct {
	// Store must be able to list all entries including expired ones.
	// Required.
	Store EntryStore

	// Decay scores retention for the decay phase. Optional; without it
	// only the expiry phase runs.
	Decay Decay

	// Callbacks observe pruning.
	Callbacks []Callback
}

// GarbageCollector prunes a persistent store in two phases: expired
// entries first, then entries whose retention has decayed below a
// threshold.
//
// The collector serializes its own runs but does not coordinate with
// concurrent mutators of the same store; callers must serialize GC against
// other writers if the store is not independently concurrency-safe.
type GarbageCollector struct {
	mu        sync.Mutex
	store     EntryStore
	decay     Decay
	callbacks []Callback
}

// NewGarbageCollector creates a collector. A missing store is a
// configuration error.
func NewGarbageCollector(cfg *GCConfig) (*GarbageCollector, error) {
	if cfg == nil || cfg.Store == nil {
		return nil, fmt.Errorf("garbage collector requires a store")
	}
	return &GarbageCollector{
		store:     cfg.Store,
		decay:     cfg.Decay,
		callbacks: cfg.Callbacks,
	}, nil
}

// Collect runs both phases: expiry, then (when a decay function is
// configured) decay against retentionThreshold. Under dryRun entries that
// would be pruned are identified and reported via callbacks but never
// deleted.
func (gc *GarbageCollector) Collect(ctx context.Context, retentionThreshold float64, dryRun bool) (GCStats, error) {
	gc.mu.Lock()
	defer gc.mu.Unlock()

	all, err := gc.store.ListAllUnfiltered(ctx)
	if err != nil {
		return GCStats{}, fmt.Errorf("list entries: %w", err)
	}

	expired, err := gc.collectExpired(ctx, all, dryRun)
	if err != nil {
		return GCStats{}, err
	}

	var decayed []MemoryEntry
	if gc.decay != nil {
		decayed, err = gc.collectDecayed(ctx, all, retentionThreshold, dryRun)
		if err != nil {
			return GCStats{}, err
		}
	}

	remaining, err := gc.store.ListAllUnfiltered(ctx)
	if err != nil {
		return GCStats{}, fmt.Errorf("count remaining entries: %w", err)
	}

	stats := GCStats{
		ExpiredPruned:  len(expired),
		DecayedPruned:  len(decayed),
		TotalRemaining: len(remaining),
		DryRun:         dryRun,
	}
	if stats.TotalPruned() > 0 {
		log.Debug("memory gc: %d expired, %d decayed, %d remaining (dry run: %v)",
			stats.ExpiredPruned, stats.DecayedPruned, stats.TotalRemaining, dryRun)
	}
	return stats, nil
}

// CollectExpired runs only the expiry phase and returns the entries that
// were (or, under dryRun, would be) pruned.
func (gc *GarbageCollector) CollectExpired(ctx context.Context, dryRun bool) ([]MemoryEntry, error) {
	gc.mu.Lock()
	defer gc.mu.Unlock()

	all, err := gc.store.ListAllUnfiltered(ctx)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	return gc.collectExpired(ctx, all, dryRun)
}

// CollectDecayed runs only the decay phase. It fails when no decay
// function was configured.
func (gc *GarbageCollector) CollectDecayed(ctx context.Context, retentionThreshold float64, dryRun bool) ([]MemoryEntry, error) {
	gc.mu.Lock()
	defer gc.mu.Unlock()

	if gc.decay == nil {
		return nil, ErrNoDecay
	}
	all, err := gc.store.ListAllUnfiltered(ctx)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	return gc.collectDecayed(ctx, all, retentionThreshold, dryRun)
}

func (gc *GarbageCollector) collectExpired(ctx context.Context, all []MemoryEntry, dryRun bool) ([]MemoryEntry, error) {
	var expired []MemoryEntry
	for _, entry := range all {
		if entry.IsExpired() {
			expired = append(expired, entry)
		}
	}

	if !dryRun {
		for _, entry := range expired {
			if _, err := gc.store.Delete(ctx, entry.ID); err != nil {
				return nil, fmt.Errorf("delete expired entry %s: %w", entry.ID, err)
			}
		}
	}

	if len(expired) > 0 {
		fireCallbacks(gc.callbacks, "OnExpiryPrune", func(cb Callback) {
			cb.OnExpiryPrune(expired)
		})
	}
	return expired, nil
}

// collectDecayed scores every non-expired entry. A decay function that
// panics is a programming error and propagates -- collection cannot safely
// continue without a retention score.
func (gc *GarbageCollector) collectDecayed(ctx context.Context, all []MemoryEntry, retentionThreshold float64, dryRun bool) ([]MemoryEntry, error) {
	var decayed []MemoryEntry
	for _, entry := range all {
		if entry.IsExpired() {
			continue
		}
		if gc.decay.ComputeRetention(entry) < retentionThreshold {
			decayed = append(decayed, entry)
		}
	}

	if !dryRun {
		for _, entry := range decayed {
			if _, err := gc.store.Delete(ctx, entry.ID); err != nil {
				return nil, fmt.Errorf("delete decayed entry %s: %w", entry.ID, err)
			}
		}
	}

	if len(decayed) > 0 {
		fireCallbacks(gc.callbacks, "OnDecayPrune", func(cb Callback) {
			cb.OnDecayPrune(decayed, retentionThreshold)
		})
	}
	return decayed, nil
}
