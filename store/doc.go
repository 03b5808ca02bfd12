// Package store provides persistence backends for memory entries.
//
// Every backend satisfies the memory.EntryStore interface, so memory
// components (the manager, the garbage collector, the maintenance runner)
// work against any of them interchangeably:
//
//	type EntryStore interface {
//	    Add(ctx context.Context, entry memory.MemoryEntry) error
//	    Get(ctx context.Context, id string) (memory.MemoryEntry, bool, error)
//	    Search(ctx context.Context, query string, topK int) ([]memory.MemoryEntry, error)
//	    ListAll(ctx context.Context) ([]memory.MemoryEntry, error)
//	    ListAllUnfiltered(ctx context.Context) ([]memory.MemoryEntry, error)
//	    Delete(ctx context.Context, id string) (bool, error)
//	    Clear(ctx context.Context) error
//	}
//
// Add is an upsert: writing an entry whose ID already exists replaces it
// wholesale. Search and ListAll exclude expired entries; ListAllUnfiltered
// includes them so the garbage collector can see what to prune.
//
// # Available backends
//
// In-memory (store/memory) keeps entries in a map. Best for tests,
// prototypes, and single-process applications that do not need entries to
// survive a restart.
//
//	st := memorystore.NewEntryStore()
//
// File (store/file) persists entries as a single JSON document, rewritten
// atomically on every mutation. Best for CLIs and desktop applications
// with modest entry counts.
//
//	st, err := file.NewEntryStore("./memories.json")
//
// SQLite (store/sqlite) stores entries in a serverless, file-based
// database with indexed lookups. Best for single-machine applications
// that outgrow the JSON file.
//
//	st, err := sqlite.NewEntryStore(sqlite.Options{Path: "./memories.db"})
//
// Redis (store/redis) keeps entries as JSON values under a configurable
// key prefix. Best for shared memory across processes and deployments
// that want TTL-based expiry at the storage layer.
//
//	st := redis.NewEntryStore(redis.Options{Addr: "localhost:6379"})
//
// Postgres (store/postgres) stores entries in a relational table with
// JSONB payloads. Best for production deployments with concurrent
// writers and existing Postgres infrastructure.
//
//	st, err := postgres.NewEntryStore(ctx, postgres.Options{ConnString: connString})
//
// # Filtering
//
// Backends additionally expose filtered listings through the shared
// Filter type, which narrows results by user, session, memory type, and
// tags:
//
//	entries, err := st.ListFiltered(ctx, store.Filter{
//	    UserID: "alice",
//	    Types:  []memory.MemoryType{memory.TypeSemantic},
//	})
//
// Search matching is case-insensitive substring on entry content, ordered
// by relevance score descending. Backends with richer query engines still
// implement exactly these semantics so results are portable between them.
package store
