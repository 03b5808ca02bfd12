// Package maintenance schedules background memory upkeep: periodic fact
// extraction from recent conversation turns and periodic garbage
// collection of the persistent store.
package maintenance

import (
	"context"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"

	"github.com/memflow/memflow/log"
	"github.com/memflow/memflow/memory"
)

// TurnSource supplies the conversation turns to mine for facts, typically
// a snapshot of the live window.
type TurnSource func(ctx context.Context) ([]memory.ConversationTurn, error)

// ExtractionStats summarises one extraction run.
type ExtractionStats struct {
	// Extracted is the number of candidate entries the extractor produced.
	Extracted int

	// Added and Updated count entries written to the store.
	Added   int
	Updated int

	// Skipped counts exact duplicates the consolidator dropped.
	Skipped int
}

// Config configures a Runner.
type Config struct {
	// Store receives extracted entries and is the GC target. Required.
	Store memory.EntryStore

	// Turns and Extractor drive extraction runs. Both are required when
	// ExtractionSchedule is set.
	Turns     TurnSource
	Extractor memory.Extractor

	// Consolidator deduplicates extracted entries against the store.
	// Optional; without it every extracted entry is added directly.
	Consolidator *memory.SimilarityConsolidator

	// GC prunes the store. Required when GCSchedule is set.
	GC *memory.GarbageCollector

	// RetentionThreshold is passed to GC runs. Defaults to 0.2.
	RetentionThreshold float64

	// ExtractionSchedule and GCSchedule are cron expressions; empty means
	// the corresponding job is not scheduled. Both jobs can also be run
	// manually regardless of scheduling.
	ExtractionSchedule string
	GCSchedule         string
}

// Runner executes memory upkeep jobs, either on a cron schedule or on
// demand. Runs are serialized so extraction and GC never race each other
// over the store.
type Runner struct {
	cfg  Config
	cron *cron.Cron

	runMu sync.Mutex
}

// NewRunner validates the config and creates a runner. Scheduling does not
// start until Start is called.
func NewRunner(cfg Config) (*Runner, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("maintenance runner requires a store")
	}
	if cfg.ExtractionSchedule != "" && (cfg.Turns == nil || cfg.Extractor == nil) {
		return nil, fmt.Errorf("extraction schedule requires a turn source and an extractor")
	}
	if cfg.GCSchedule != "" && cfg.GC == nil {
		return nil, fmt.Errorf("gc schedule requires a garbage collector")
	}
	if cfg.RetentionThreshold == 0 {
		cfg.RetentionThreshold = 0.2
	}
	return &Runner{cfg: cfg}, nil
}

// Start registers the configured schedules and starts the cron loop. It
// fails if a cron expression is invalid.
func (r *Runner) Start() error {
	if r.cron != nil {
		return fmt.Errorf("maintenance runner already started")
	}
	c := cron.New()

	if r.cfg.ExtractionSchedule != "" {
		_, err := c.AddFunc(r.cfg.ExtractionSchedule, func() {
			if _, err := r.RunExtraction(context.Background()); err != nil {
				log.Error("scheduled extraction failed: %v", err)
			}
		})
		if err != nil {
			return fmt.Errorf("invalid extraction schedule: %w", err)
		}
	}

	if r.cfg.GCSchedule != "" {
		_, err := c.AddFunc(r.cfg.GCSchedule, func() {
			if _, err := r.RunGC(context.Background()); err != nil {
				log.Error("scheduled gc failed: %v", err)
			}
		})
		if err != nil {
			return fmt.Errorf("invalid gc schedule: %w", err)
		}
	}

	c.Start()
	r.cron = c
	return nil
}

// Stop halts the cron loop. Jobs already running complete; no new runs
// start.
func (r *Runner) Stop() {
	if r.cron != nil {
		r.cron.Stop()
		r.cron = nil
	}
}

// RunExtraction mines the current turns for facts, consolidates them
// against the store, and writes the additions and merges.
func (r *Runner) RunExtraction(ctx context.Context) (ExtractionStats, error) {
	r.runMu.Lock()
	defer r.runMu.Unlock()

	if r.cfg.Turns == nil || r.cfg.Extractor == nil {
		return ExtractionStats{}, fmt.Errorf("extraction requires a turn source and an extractor")
	}

	turns, err := r.cfg.Turns(ctx)
	if err != nil {
		return ExtractionStats{}, fmt.Errorf("fetch turns: %w", err)
	}
	if len(turns) == 0 {
		return ExtractionStats{}, nil
	}

	entries, err := r.cfg.Extractor.Extract(ctx, turns)
	if err != nil {
		return ExtractionStats{}, fmt.Errorf("extract facts: %w", err)
	}
	stats := ExtractionStats{Extracted: len(entries)}
	if len(entries) == 0 {
		return stats, nil
	}

	if r.cfg.Consolidator == nil {
		for _, entry := range entries {
			if err := r.cfg.Store.Add(ctx, entry); err != nil {
				return stats, fmt.Errorf("store entry %s: %w", entry.ID, err)
			}
			stats.Added++
		}
		return stats, nil
	}

	existing, err := r.cfg.Store.ListAll(ctx)
	if err != nil {
		return stats, fmt.Errorf("list existing entries: %w", err)
	}

	results, err := r.cfg.Consolidator.Consolidate(ctx, entries, existing)
	if err != nil {
		return stats, fmt.Errorf("consolidate entries: %w", err)
	}

	for _, result := range results {
		switch result.Op {
		case memory.OpAdd:
			if err := r.cfg.Store.Add(ctx, *result.Entry); err != nil {
				return stats, fmt.Errorf("store new entry %s: %w", result.Entry.ID, err)
			}
			stats.Added++
		case memory.OpUpdate:
			if err := r.cfg.Store.Add(ctx, *result.Entry); err != nil {
				return stats, fmt.Errorf("store merged entry %s: %w", result.Entry.ID, err)
			}
			stats.Updated++
		case memory.OpNone:
			stats.Skipped++
		}
	}
	return stats, nil
}

// RunGC prunes the store using the configured garbage collector and
// retention threshold.
func (r *Runner) RunGC(ctx context.Context) (memory.GCStats, error) {
	r.runMu.Lock()
	defer r.runMu.Unlock()

	if r.cfg.GC == nil {
		return memory.GCStats{}, fmt.Errorf("gc run requires a garbage collector")
	}
	return r.cfg.GC.Collect(ctx, r.cfg.RetentionThreshold, false)
}
