package memory

import "context"

// EntryStore is the persistence capability the memory subsystem consumes.
// Backends (in-memory, JSON file, SQLite, Redis, Postgres) live under
// store/ and satisfy this interface structurally; the memory package never
// depends on a concrete backend.
type EntryStore interface {
	// Add inserts or overwrites an entry by ID.
	Add(ctx context.Context, entry MemoryEntry) error

	// Get retrieves a single entry by ID. The second return is false when
	// no entry with that ID exists.
	Get(ctx context.Context, id string) (MemoryEntry, bool, error)

	// Search returns up to topK non-expired entries matching the query,
	// most relevant first.
	Search(ctx context.Context, query string, topK int) ([]MemoryEntry, error)

	// ListAll returns all non-expired entries.
	ListAll(ctx context.Context) ([]MemoryEntry, error)

	// ListAllUnfiltered returns every entry including expired ones. The
	// garbage collector requires this to identify expired entries.
	ListAllUnfiltered(ctx context.Context) ([]MemoryEntry, error)

	// Delete removes an entry by ID, reporting whether it existed.
	Delete(ctx context.Context, id string) (bool, error)

	// Clear removes all entries.
	Clear(ctx context.Context) error
}
