// Package memory implements bounded conversational memory for LLM
// applications: a token-budgeted window of recent dialogue turns, optional
// compaction of evicted turns into a running summary, and a long-lived
// store of extracted facts with decay-based garbage collection and
// similarity-based consolidation.
//
// # Conversation tier
//
// SlidingWindowMemory keeps an ordered sequence of turns within a fixed
// token budget. When the budget is exceeded an EvictionPolicy (FIFO,
// importance-based, or paired) selects turns to remove, and eviction
// callbacks receive the removed turns -- evicted content is handed off,
// never silently dropped:
//
//	window, _ := memory.NewSlidingWindowMemory(&memory.SlidingWindowConfig{
//		MaxTokens: 4096,
//	})
//	window.AddTurn(ctx, memory.RoleUser, "Hello!", nil)
//	items := window.ToContextItems(7)
//
// SummaryBufferMemory wraps a sliding window and folds evicted turns into
// a running summary via a caller-supplied compaction function (simple or
// progressive). If compaction fails, the raw evicted contents are
// concatenated instead:
//
//	buf, _ := memory.NewSummaryBufferMemory(&memory.SummaryBufferConfig{
//		MaxTokens: 2048,
//		Compact: func(ctx context.Context, evicted []memory.ConversationTurn) (string, error) {
//			return summarize(ctx, evicted) // e.g. an LLM call
//		},
//	})
//
// # Persistent tier
//
// MemoryEntry values live in an EntryStore (see store/ for backends).
// SimilarityConsolidator routes new entries through exact-hash
// deduplication and embedding cosine similarity, deciding per entry
// whether to add it, merge it into an existing entry, or drop it as a
// duplicate. GarbageCollector prunes the store in two phases -- expired
// entries, then entries whose Decay retention (Ebbinghaus or linear) falls
// below a threshold -- with a dry-run mode for previews.
//
// Manager composes both tiers behind a single facade:
//
//	mgr, _ := memory.NewManager(&memory.ManagerConfig{
//		Conversation: window,
//		Store:        store,
//	})
//	mgr.AddUserMessage(ctx, "I prefer dark mode")
//	mgr.AddFact(ctx, "User prefers dark mode", &memory.FactOptions{Tags: []string{"preference"}})
//	items, _ := mgr.GetContextItems(ctx, 7)
//
// # Extension points
//
// Tokenization, embeddings, compaction, extraction, and storage are all
// injected capabilities: the library never calls an LLM or embedding
// model itself. Callbacks observe evictions, compactions, extractions,
// consolidation decisions, and pruning; a failing callback is logged and
// suppressed, never allowed to abort the operation that triggered it.
package memory
