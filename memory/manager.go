package memory

import (
	"context"
	"fmt"
	"time"
)

// ConversationMemory is the live-conversation tier the Manager composes:
// either a SlidingWindowMemory or a SummaryBufferMemory (or any caller
// implementation with the same contract).
type ConversationMemory interface {
	AddTurn(ctx context.Context, role Role, content string, metadata map[string]any) (ConversationTurn, error)
	ToContextItems(priority int) []ContextItem
	Clear()
}

// FactOptions carries the optional attributes of a fact added through
// Manager.AddFact.
type FactOptions struct {
	Tags     []string
	Type     MemoryType // defaults to semantic
	Metadata map[string]any
	UserID    string
	SessionID string
	// ExpiresAt sets an expiry timestamp; zero means never.
	ExpiresAt time.Time
}

// ManagerConfig configures a Manager.
type ManagerConfig struct {
	// Conversation is the live memory tier. Defaults to a sliding window
	// with a 4096-token budget.
	Conversation ConversationMemory

	// Store is the optional persistent fact store. Fact mutations fail
	// with ErrNoPersistentStore when it is absent.
	Store EntryStore

	// Tokenizer counts tokens for fact context items. Defaults to the
	// heuristic tokenizer.
	Tokenizer Tokenizer
}

// Manager is the facade composing a conversation memory with an optional
// persistent fact store. It exposes message operations on the live tier,
// fact operations on the store, and a combined context-item view for the
// external pipeline.
type Manager struct {
	conversation ConversationMemory
	store        EntryStore
	tokenizer    Tokenizer
}

// NewManager creates a manager from the given config. A nil config uses
// defaults throughout.
func NewManager(cfg *ManagerConfig) (*Manager, error) {
	if cfg == nil {
		cfg = &ManagerConfig{}
	}

	conversation := cfg.Conversation
	if conversation == nil {
		window, err := NewSlidingWindowMemory(&SlidingWindowConfig{MaxTokens: 4096, Tokenizer: cfg.Tokenizer})
		if err != nil {
			return nil, err
		}
		conversation = window
	}

	tokenizer := cfg.Tokenizer
	if tokenizer == nil {
		tokenizer = NewHeuristicTokenizer()
	}

	return &Manager{
		conversation: conversation,
		store:        cfg.Store,
		tokenizer:    tokenizer,
	}, nil
}

// Conversation exposes the underlying conversation memory.
func (m *Manager) Conversation() ConversationMemory {
	return m.conversation
}

// AddUserMessage appends a user turn to the conversation.
func (m *Manager) AddUserMessage(ctx context.Context, content string) error {
	_, err := m.conversation.AddTurn(ctx, RoleUser, content, nil)
	return err
}

// AddAssistantMessage appends an assistant turn to the conversation.
func (m *Manager) AddAssistantMessage(ctx context.Context, content string) error {
	_, err := m.conversation.AddTurn(ctx, RoleAssistant, content, nil)
	return err
}

// AddSystemMessage appends a system turn to the conversation.
func (m *Manager) AddSystemMessage(ctx context.Context, content string) error {
	_, err := m.conversation.AddTurn(ctx, RoleSystem, content, nil)
	return err
}

// AddToolMessage appends a tool turn to the conversation.
func (m *Manager) AddToolMessage(ctx context.Context, content string) error {
	_, err := m.conversation.AddTurn(ctx, RoleTool, content, nil)
	return err
}

// AddFact persists a fact. When the store already holds an entry with the
// same content hash, that entry is returned unchanged instead of creating
// a duplicate.
func (m *Manager) AddFact(ctx context.Context, content string, opts *FactOptions) (MemoryEntry, error) {
	if m.store == nil {
		return MemoryEntry{}, ErrNoPersistentStore
	}
	if opts == nil {
		opts = &FactOptions{}
	}

	hash := HashContent(content)
	existing, err := m.store.ListAllUnfiltered(ctx)
	if err != nil {
		return MemoryEntry{}, fmt.Errorf("check for duplicate fact: %w", err)
	}
	for _, entry := range existing {
		if entry.ContentHash == hash {
			return entry, nil
		}
	}

	memoryType := opts.Type
	if memoryType == "" {
		memoryType = TypeSemantic
	}
	entry := NewEntry(content, memoryType)
	entry.Tags = opts.Tags
	entry.Metadata = opts.Metadata
	entry.UserID = opts.UserID
	entry.SessionID = opts.SessionID
	entry.ExpiresAt = opts.ExpiresAt

	if err := m.store.Add(ctx, entry); err != nil {
		return MemoryEntry{}, fmt.Errorf("persist fact: %w", err)
	}
	return entry, nil
}

// GetRelevantFacts searches the persistent store. Without a store it
// returns no facts rather than failing, so read paths degrade gracefully.
func (m *Manager) GetRelevantFacts(ctx context.Context, query string, topK int) ([]MemoryEntry, error) {
	if m.store == nil {
		return nil, nil
	}
	return m.store.Search(ctx, query, topK)
}

// GetAllFacts lists every non-expired fact. Without a store it returns
// nothing.
func (m *Manager) GetAllFacts(ctx context.Context) ([]MemoryEntry, error) {
	if m.store == nil {
		return nil, nil
	}
	return m.store.ListAll(ctx)
}

// UpdateFact replaces a stored fact wholesale. The content hash and
// updated-at timestamp are refreshed so the hash is never stale.
func (m *Manager) UpdateFact(ctx context.Context, entry MemoryEntry) (MemoryEntry, error) {
	if m.store == nil {
		return MemoryEntry{}, ErrNoPersistentStore
	}
	entry.ContentHash = HashContent(entry.Content)
	entry.UpdatedAt = time.Now().UTC()
	if err := m.store.Add(ctx, entry); err != nil {
		return MemoryEntry{}, fmt.Errorf("update fact: %w", err)
	}
	return entry, nil
}

// DeleteFact removes a fact by ID, reporting whether it existed.
func (m *Manager) DeleteFact(ctx context.Context, id string) (bool, error) {
	if m.store == nil {
		return false, ErrNoPersistentStore
	}
	return m.store.Delete(ctx, id)
}

// Clear empties both the conversation memory and the persistent store.
func (m *Manager) Clear(ctx context.Context) error {
	m.conversation.Clear()
	if m.store != nil {
		if err := m.store.Clear(ctx); err != nil {
			return fmt.Errorf("clear store: %w", err)
		}
	}
	return nil
}

// GetContextItems combines persistent facts with the conversation's items
// for pipeline assembly. Facts come first at one priority level above the
// conversation priority, scored by their relevance; conversation items
// follow at the given priority.
func (m *Manager) GetContextItems(ctx context.Context, priority int) ([]ContextItem, error) {
	var items []ContextItem

	if m.store != nil {
		facts, err := m.store.ListAll(ctx)
		if err != nil {
			return nil, fmt.Errorf("list facts: %w", err)
		}
		factPriority := priority + 1
		for _, fact := range facts {
			metadata := map[string]any{
				"memory_type": string(fact.Type),
				"fact":        true,
			}
			if len(fact.Tags) > 0 {
				metadata["tags"] = fact.Tags
			}
			item := newContextItem(fact.Content, SourceMemory, fact.RelevanceScore, factPriority, m.tokenizer.CountTokens(fact.Content), metadata)
			item.CreatedAt = fact.CreatedAt
			items = append(items, item)
		}
	}

	return append(items, m.conversation.ToContextItems(priority)...), nil
}
