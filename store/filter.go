package store

import "github.com/memflow/memflow/memory"

// Filter narrows a listing or search to entries matching every set field.
// Zero-value fields match everything.
type Filter struct {
	// UserID matches entries owned by the given user.
	UserID string

	// SessionID matches entries from the given session.
	SessionID string

	// Types matches entries of any of the given memory types.
	Types []memory.MemoryType

	// Tags matches entries carrying all of the given tags.
	Tags []string
}

// Matches reports whether the entry satisfies every set field.
func (f Filter) Matches(entry memory.MemoryEntry) bool {
	if f.UserID != "" && entry.UserID != f.UserID {
		return false
	}
	if f.SessionID != "" && entry.SessionID != f.SessionID {
		return false
	}
	if len(f.Types) > 0 {
		found := false
		for _, t := range f.Types {
			if entry.Type == t {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	for _, want := range f.Tags {
		found := false
		for _, tag := range entry.Tags {
			if tag == want {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
