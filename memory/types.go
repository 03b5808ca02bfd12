package memory

import (
	"crypto/md5"
	"encoding/hex"
	"time"

	"github.com/google/uuid"
)

// Role identifies the speaker of a conversation turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
	RoleTool      Role = "tool"
)

// MemoryType classifies persistent memory entries by cognitive type.
type MemoryType string

const (
	TypeSemantic     MemoryType = "semantic"
	TypeEpisodic     MemoryType = "episodic"
	TypeProcedural   MemoryType = "procedural"
	TypeConversation MemoryType = "conversation"
)

// SourceType is the origin of a ContextItem.
type SourceType string

const (
	SourceRetrieval    SourceType = "retrieval"
	SourceMemory       SourceType = "memory"
	SourceSystem       SourceType = "system"
	SourceUser         SourceType = "user"
	SourceTool         SourceType = "tool"
	SourceConversation SourceType = "conversation"
)

// ConversationTurn is a single message in a conversation. Turns are value
// types and are treated as immutable once created: a memory component owns
// its turns until it evicts them, at which point ownership passes to
// whatever consumes the eviction (summary, extractor, archive).
type ConversationTurn struct {
	Role       Role           `json:"role"`
	Content    string         `json:"content"`
	TokenCount int            `json:"token_count"`
	Timestamp  time.Time      `json:"timestamp"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// NewTurn creates a conversation turn with the current timestamp. The token
// count is left at zero; memory components fill it in via their tokenizer.
func NewTurn(role Role, content string) ConversationTurn {
	return ConversationTurn{
		Role:      role,
		Content:   content,
		Timestamp: time.Now().UTC(),
		Metadata:  map[string]any{},
	}
}

// MemoryEntry is a persistent memory entry with relevance tracking.
//
// Entries are value types. Any "mutation" (Touch, consolidation merges,
// fact updates) produces a new value; stores hold entries by ID and replace
// them wholesale on update. ContentHash is always the digest of Content --
// whenever content changes the hash is recomputed, never stored stale.
type MemoryEntry struct {
	ID             string         `json:"id"`
	Content        string         `json:"content"`
	RelevanceScore float64        `json:"relevance_score"`
	AccessCount    int            `json:"access_count"`
	LastAccessed   time.Time      `json:"last_accessed"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	Tags           []string       `json:"tags,omitempty"`
	Metadata       map[string]any `json:"metadata,omitempty"`
	Type           MemoryType     `json:"memory_type"`
	UserID         string         `json:"user_id,omitempty"`
	SessionID      string         `json:"session_id,omitempty"`

	// ExpiresAt is the optional expiry timestamp. The zero value means the
	// entry never expires.
	ExpiresAt time.Time `json:"expires_at,omitzero"`

	ContentHash string   `json:"content_hash"`
	SourceTurns []string `json:"source_turns,omitempty"`
	Links       []string `json:"links,omitempty"`
}

// NewEntry creates a memory entry with a fresh UUID, current timestamps,
// a computed content hash, and a default relevance score of 0.5.
func NewEntry(content string, memoryType MemoryType) MemoryEntry {
	now := time.Now().UTC()
	return MemoryEntry{
		ID:             uuid.NewString(),
		Content:        content,
		RelevanceScore: 0.5,
		LastAccessed:   now,
		CreatedAt:      now,
		UpdatedAt:      now,
		Type:           memoryType,
		ContentHash:    HashContent(content),
	}
}

// HashContent computes the deterministic content digest used for exact
// duplicate detection.
func HashContent(content string) string {
	sum := md5.Sum([]byte(content))
	return hex.EncodeToString(sum[:])
}

// IsExpired reports whether the entry has an expiry timestamp in the past.
func (e MemoryEntry) IsExpired() bool {
	if e.ExpiresAt.IsZero() {
		return false
	}
	return !time.Now().UTC().Before(e.ExpiresAt)
}

// Touch returns a copy with the access count incremented and the
// last-accessed timestamp refreshed.
func (e MemoryEntry) Touch() MemoryEntry {
	e.AccessCount++
	e.LastAccessed = time.Now().UTC()
	return e
}

// ContextItem is a single unit of context produced for the external
// pipeline. Items are immutable once created.
type ContextItem struct {
	ID         string         `json:"id"`
	Content    string         `json:"content"`
	Source     SourceType     `json:"source"`
	Score      float64        `json:"score"`
	Priority   int            `json:"priority"`
	TokenCount int            `json:"token_count"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
}

func newContextItem(content string, source SourceType, score float64, priority, tokenCount int, metadata map[string]any) ContextItem {
	return ContextItem{
		ID:         uuid.NewString(),
		Content:    content,
		Source:     source,
		Score:      score,
		Priority:   priority,
		TokenCount: tokenCount,
		Metadata:   metadata,
		CreatedAt:  time.Now().UTC(),
	}
}
