// Memflow - Bounded Conversational Memory for LLM Applications in Go
//
// Memflow keeps an LLM application's conversational state inside a token
// budget without silently losing information. It layers a live
// conversation window over a persistent fact store, with explicit
// policies for what gets evicted, summarized, extracted, consolidated,
// and eventually forgotten.
//
// # Quick Start
//
// Install the package:
//
//	go get github.com/memflow/memflow
//
// Basic example:
//
//	package main
//
//	import (
//		"context"
//		"fmt"
//
//		"github.com/memflow/memflow/memory"
//		memorystore "github.com/memflow/memflow/store/memory"
//	)
//
//	func main() {
//		ctx := context.Background()
//
//		mgr, _ := memory.NewManager(&memory.ManagerConfig{
//			Store: memorystore.NewEntryStore(),
//		})
//
//		mgr.AddUserMessage(ctx, "Hi, I'm Dana. I prefer short answers.")
//		mgr.AddAssistantMessage(ctx, "Noted, Dana.")
//		mgr.AddFact(ctx, "Dana prefers short answers", &memory.FactOptions{
//			Tags: []string{"preference"},
//		})
//
//		items, _ := mgr.GetContextItems(ctx, 7)
//		for _, item := range items {
//			fmt.Printf("[p%d %.2f] %s\n", item.Priority, item.Score, item.Content)
//		}
//	}
//
// # Packages
//
//   - memory: the core subsystem. Sliding window with eviction policies,
//     summary buffer with pluggable compaction, recency scorers, memory
//     decay curves, similarity consolidation, two-phase garbage
//     collection, and the Manager facade composing it all.
//   - store: persistence backends for memory entries. In-memory, JSON
//     file, SQLite, Redis, and PostgreSQL, all behind one interface.
//   - embed: adapters turning OpenAI or LangChain Go embedders into the
//     EmbedFunc the consolidator consumes.
//   - compact: compaction functions for the summary buffer, from a
//     deterministic concatenator to LLM-backed progressive summarizers.
//   - maintenance: cron-scheduled background extraction and garbage
//     collection.
//   - log: the logging abstraction, with a golog adapter.
//
// # Design
//
// Memory components own their data until they evict it; evicted turns are
// handed to callbacks and compactors, never dropped on the floor. All
// model access (LLMs, embedders, tokenizers) is injected by the caller,
// so the core has no provider dependencies and behaves deterministically
// under test.
package memflow
