package memory

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/memflow/memflow/log"
)

// CompactFunc produces a summary of newly evicted turns. It replaces the
// running summary wholesale on every eviction.
type CompactFunc func(ctx context.Context, evicted []ConversationTurn) (string, error)

// ProgressiveCompactFunc refines the running summary with newly evicted
// turns. previousSummary is empty on the first eviction.
type ProgressiveCompactFunc func(ctx context.Context, evicted []ConversationTurn, previousSummary string) (string, error)

// SummaryBufferConfig configures a SummaryBufferMemory. Exactly one of
// Compact or ProgressiveCompact must be set.
type SummaryBufferConfig struct {
	// MaxTokens is the inner window's token budget. Must be positive.
	MaxTokens int

	// Compact is the simple compaction function.
	Compact CompactFunc

	// ProgressiveCompact is the progressive compaction function.
	ProgressiveCompact ProgressiveCompactFunc

	// SummaryPriority is the priority of the summary context item.
	// Defaults to 6, one level below the conventional conversation
	// priority of 7.
	SummaryPriority int

	// Tokenizer, Policy, Scorer and Callbacks configure the inner window.
	Tokenizer Tokenizer
	Policy    EvictionPolicy
	Scorer    RecencyScorer
	Callbacks []Callback
}

// SummaryBufferMemory is a two-tier memory: recent turns verbatim in a
// sliding window, plus a running summary of everything that was evicted.
// Evicted information is never silently lost -- if the compaction function
// fails, the raw evicted contents are concatenated into the summary
// instead.
type SummaryBufferMemory struct {
	window *SlidingWindowMemory

	compact         CompactFunc
	progressive     ProgressiveCompactFunc
	summaryPriority int
	tokenizer       Tokenizer
	callbacks       []Callback

	// addMu serializes AddTurn so the hook's context matches the caller
	// that triggered the eviction.
	addMu sync.Mutex
	hook  *summaryEvictionHook

	mu            sync.Mutex
	summary       string
	summaryTokens int
	hasSummary    bool
}

// summaryEvictionHook routes inner-window evictions into the summary. It
// runs before user callbacks so observers see the post-compaction state.
type summaryEvictionHook struct {
	BaseCallback
	owner *SummaryBufferMemory
	// ctx carries the caller's context across the eviction callback for
	// the duration of a single AddTurn call.
	ctx context.Context
}

func (h *summaryEvictionHook) OnEviction(turns []ConversationTurn, remainingTokens int) {
	h.owner.handleEviction(h.ctx, turns)
}

// NewSummaryBufferMemory creates a summary buffer memory. Supplying zero or
// both compaction functions is a configuration error, as is a non-positive
// MaxTokens.
func NewSummaryBufferMemory(cfg *SummaryBufferConfig) (*SummaryBufferMemory, error) {
	if cfg == nil {
		return nil, fmt.Errorf("summary buffer config is required")
	}
	if (cfg.Compact == nil) == (cfg.ProgressiveCompact == nil) {
		return nil, fmt.Errorf("exactly one of Compact or ProgressiveCompact must be set")
	}

	tokenizer := cfg.Tokenizer
	if tokenizer == nil {
		tokenizer = NewHeuristicTokenizer()
	}
	summaryPriority := cfg.SummaryPriority
	if summaryPriority == 0 {
		summaryPriority = 6
	}

	m := &SummaryBufferMemory{
		compact:         cfg.Compact,
		progressive:     cfg.ProgressiveCompact,
		summaryPriority: summaryPriority,
		tokenizer:       tokenizer,
		callbacks:       cfg.Callbacks,
	}

	hook := &summaryEvictionHook{owner: m, ctx: context.Background()}
	m.hook = hook
	window, err := NewSlidingWindowMemory(&SlidingWindowConfig{
		MaxTokens: cfg.MaxTokens,
		Tokenizer: tokenizer,
		Policy:    cfg.Policy,
		Scorer:    cfg.Scorer,
		Callbacks: append([]Callback{hook}, cfg.Callbacks...),
	})
	if err != nil {
		return nil, err
	}
	m.window = window
	return m, nil
}

// AddTurn appends a turn to the inner window. If the window evicts turns to
// stay within budget, the compaction function folds them into the running
// summary before AddTurn returns.
func (m *SummaryBufferMemory) AddTurn(ctx context.Context, role Role, content string, metadata map[string]any) (ConversationTurn, error) {
	m.addMu.Lock()
	defer m.addMu.Unlock()
	m.hook.ctx = ctx
	defer func() { m.hook.ctx = context.Background() }()
	return m.window.AddTurn(ctx, role, content, metadata)
}

// handleEviction updates the running summary from a batch of evicted
// turns. Compaction failures (errors or panics) fall back to concatenating
// the raw evicted contents so nothing is lost.
func (m *SummaryBufferMemory) handleEviction(ctx context.Context, evicted []ConversationTurn) {
	m.mu.Lock()
	previous := m.summary
	hadPrevious := m.hasSummary
	m.mu.Unlock()

	summary, err := m.runCompaction(ctx, evicted, previous, hadPrevious)
	if err != nil {
		log.Warn("compaction failed, falling back to raw contents: %v", err)
		summary = m.fallbackSummary(evicted, previous, hadPrevious)
	}

	tokens := m.tokenizer.CountTokens(summary)

	m.mu.Lock()
	m.summary = summary
	m.summaryTokens = tokens
	m.hasSummary = true
	m.mu.Unlock()

	fireCallbacks(m.callbacks, "OnCompaction", func(cb Callback) {
		cb.OnCompaction(evicted, summary, previous)
	})
}

// runCompaction invokes the configured compaction function, converting a
// panic into an error so the fallback path can take over.
func (m *SummaryBufferMemory) runCompaction(ctx context.Context, evicted []ConversationTurn, previous string, hadPrevious bool) (summary string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("compaction panicked: %v", r)
		}
	}()
	if m.progressive != nil {
		prev := ""
		if hadPrevious {
			prev = previous
		}
		return m.progressive(ctx, evicted, prev)
	}
	return m.compact(ctx, evicted)
}

// fallbackSummary concatenates raw evicted contents. In progressive mode
// the fragment is appended to the previous summary; in simple mode it
// replaces it, matching the replacement semantics of CompactFunc.
func (m *SummaryBufferMemory) fallbackSummary(evicted []ConversationTurn, previous string, hadPrevious bool) string {
	contents := make([]string, 0, len(evicted))
	for _, turn := range evicted {
		contents = append(contents, turn.Content)
	}
	fragment := strings.Join(contents, "\n")
	if m.progressive != nil && hadPrevious && previous != "" {
		return previous + "\n" + fragment
	}
	return fragment
}

// Summary returns the running summary and whether one exists. The summary
// is absent until the first eviction.
func (m *SummaryBufferMemory) Summary() (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.summary, m.hasSummary
}

// SummaryTokens returns the token count of the current summary.
func (m *SummaryBufferMemory) SummaryTokens() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.summaryTokens
}

// ToContextItems returns the summary (if present) as a single item at the
// summary priority, followed by the live window's items at the given
// priority.
func (m *SummaryBufferMemory) ToContextItems(priority int) []ContextItem {
	m.mu.Lock()
	summary := m.summary
	summaryTokens := m.summaryTokens
	hasSummary := m.hasSummary
	m.mu.Unlock()

	var items []ContextItem
	if hasSummary {
		items = append(items, newContextItem(summary, SourceConversation, 0.5, m.summaryPriority, summaryTokens, map[string]any{
			"role":    string(RoleSystem),
			"summary": true,
		}))
	}
	return append(items, m.window.ToContextItems(priority)...)
}

// Turns returns the live turns still in the sliding window.
func (m *SummaryBufferMemory) Turns() []ConversationTurn {
	return m.window.Turns()
}

// TotalTokens returns the window's token total, excluding the summary.
func (m *SummaryBufferMemory) TotalTokens() int {
	return m.window.TotalTokens()
}

// Clear empties both the sliding window and the running summary.
func (m *SummaryBufferMemory) Clear() {
	m.window.Clear()
	m.mu.Lock()
	m.summary = ""
	m.summaryTokens = 0
	m.hasSummary = false
	m.mu.Unlock()
}
