package memory

import "sort"

// EvictionPolicy selects which turns to remove when a sliding window
// exceeds its token budget. Implementations return zero-based indices into
// turns; the window removes exactly those turns.
type EvictionPolicy interface {
	// SelectForEviction picks turns to evict from turns (oldest first)
	// until at least tokensToFree tokens are reclaimed.
	SelectForEviction(turns []ConversationTurn, tokensToFree int) []int
}

// FIFOEviction evicts the oldest turns first. It always selects a prefix of
// the window and never evicts more turns than needed to satisfy the
// request, though a single oversized turn may free more than asked.
type FIFOEviction struct{}

// SelectForEviction returns the shortest prefix freeing tokensToFree tokens.
func (FIFOEviction) SelectForEviction(turns []ConversationTurn, tokensToFree int) []int {
	var indices []int
	freed := 0
	for i, turn := range turns {
		if freed >= tokensToFree {
			break
		}
		indices = append(indices, i)
		freed += turn.TokenCount
	}
	return indices
}

// ImportanceFunc assigns an importance value to a turn. Higher values are
// kept longer.
type ImportanceFunc func(turn ConversationTurn) float64

// ImportanceEviction evicts the least important turns first, as judged by a
// caller-supplied scoring function. Ties break by original (oldest-first)
// order.
type ImportanceEviction struct {
	importance ImportanceFunc
}

// NewImportanceEviction creates an importance-based policy.
func NewImportanceEviction(importance ImportanceFunc) *ImportanceEviction {
	return &ImportanceEviction{importance: importance}
}

// SelectForEviction removes turns in ascending importance order until
// tokensToFree tokens are reclaimed.
func (p *ImportanceEviction) SelectForEviction(turns []ConversationTurn, tokensToFree int) []int {
	order := make([]int, len(turns))
	scores := make([]float64, len(turns))
	for i, turn := range turns {
		order[i] = i
		scores[i] = p.importance(turn)
	}
	sort.SliceStable(order, func(a, b int) bool {
		return scores[order[a]] < scores[order[b]]
	})

	var indices []int
	freed := 0
	for _, idx := range order {
		if freed >= tokensToFree {
			break
		}
		indices = append(indices, idx)
		freed += turns[idx].TokenCount
	}
	return indices
}

// PairedEviction evicts user+assistant turn pairs together so the window
// never keeps an answer without its question. Pairs form by scanning from
// the start: a user turn immediately followed by an assistant turn is one
// pair; any other turn is a group of one. Groups are evicted oldest first.
type PairedEviction struct{}

// SelectForEviction returns indices of whole pairs (plus possibly a lone
// unmatched turn) until tokensToFree tokens are reclaimed.
func (PairedEviction) SelectForEviction(turns []ConversationTurn, tokensToFree int) []int {
	type group struct {
		indices []int
		tokens  int
	}
	var groups []group
	for i := 0; i < len(turns); {
		if turns[i].Role == RoleUser && i+1 < len(turns) && turns[i+1].Role == RoleAssistant {
			groups = append(groups, group{
				indices: []int{i, i + 1},
				tokens:  turns[i].TokenCount + turns[i+1].TokenCount,
			})
			i += 2
			continue
		}
		groups = append(groups, group{indices: []int{i}, tokens: turns[i].TokenCount})
		i++
	}

	var indices []int
	freed := 0
	for _, g := range groups {
		if freed >= tokensToFree {
			break
		}
		indices = append(indices, g.indices...)
		freed += g.tokens
	}
	return indices
}
