package memory

import (
	"github.com/memflow/memflow/log"
)

// Callback observes memory operations. All methods are no-ops on
// BaseCallback; embed it and override only what you need.
//
// A callback failure never aborts the operation that triggered it: panics
// are recovered, logged, and suppressed at every call site, one callback at
// a time, in registration order.
type Callback interface {
	// OnEviction fires when turns are evicted from a sliding window,
	// with the token count remaining in the window afterwards.
	OnEviction(turns []ConversationTurn, remainingTokens int)

	// OnCompaction fires when evicted turns are folded into a summary.
	// previousSummary is empty on the first compaction.
	OnCompaction(evicted []ConversationTurn, summary, previousSummary string)

	// OnExtraction fires when memory entries are extracted from turns.
	OnExtraction(turns []ConversationTurn, entries []MemoryEntry)

	// OnConsolidation fires for each consolidation decision. newEntry
	// and existing may be nil depending on the operation.
	OnConsolidation(op Operation, newEntry, existing *MemoryEntry)

	// OnDecayPrune fires when entries are pruned for low retention.
	OnDecayPrune(pruned []MemoryEntry, threshold float64)

	// OnExpiryPrune fires when expired entries are removed.
	OnExpiryPrune(pruned []MemoryEntry)
}

// BaseCallback is a no-op Callback implementation for embedding.
type BaseCallback struct{}

func (BaseCallback) OnEviction([]ConversationTurn, int)                 {}
func (BaseCallback) OnCompaction([]ConversationTurn, string, string)    {}
func (BaseCallback) OnExtraction([]ConversationTurn, []MemoryEntry)     {}
func (BaseCallback) OnConsolidation(Operation, *MemoryEntry, *MemoryEntry) {}
func (BaseCallback) OnDecayPrune([]MemoryEntry, float64)                {}
func (BaseCallback) OnExpiryPrune([]MemoryEntry)                        {}

var _ Callback = BaseCallback{}

// fireCallbacks invokes fn for every callback in registration order,
// recovering and logging panics so a buggy observer cannot crash a memory
// operation.
func fireCallbacks(callbacks []Callback, hook string, fn func(Callback)) {
	for _, cb := range callbacks {
		invokeCallback(cb, hook, fn)
	}
}

func invokeCallback(cb Callback, hook string, fn func(Callback)) {
	defer func() {
		if r := recover(); r != nil {
			log.Warn("memory callback %s panicked: %v", hook, r)
		}
	}()
	fn(cb)
}
