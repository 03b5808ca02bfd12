// Package compact provides compaction functions for summary buffer
// memories: a deterministic concatenator and LLM-backed summarizers built
// on langchaingo models.
package compact

import (
	"context"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"

	"github.com/memflow/memflow/memory"
)

const summaryPrompt = `Summarize the following conversation turns concisely, preserving names, facts, decisions, and preferences. Respond with the summary only.

%s`

const progressivePrompt = `You maintain a running summary of a conversation.

Current summary:
%s

New conversation turns:
%s

Produce an updated summary that folds the new turns into the current one. Preserve names, facts, decisions, and preferences. Respond with the summary only.`

// Concat returns a compaction function that joins evicted turn contents
// with the separator. It never fails, so the summary buffer's fallback
// path is unreachable with it.
func Concat(separator string) memory.CompactFunc {
	if separator == "" {
		separator = "\n"
	}
	return func(ctx context.Context, evicted []memory.ConversationTurn) (string, error) {
		return renderTurns(evicted, separator), nil
	}
}

// LLM returns a compaction function that asks the model for a fresh
// summary of each evicted batch.
func LLM(model llms.Model) memory.CompactFunc {
	return func(ctx context.Context, evicted []memory.ConversationTurn) (string, error) {
		prompt := fmt.Sprintf(summaryPrompt, renderTurns(evicted, "\n"))
		summary, err := llms.GenerateFromSinglePrompt(ctx, model, prompt)
		if err != nil {
			return "", fmt.Errorf("summary generation: %w", err)
		}
		return strings.TrimSpace(summary), nil
	}
}

// ProgressiveLLM returns a progressive compaction function that asks the
// model to fold each evicted batch into the running summary.
func ProgressiveLLM(model llms.Model) memory.ProgressiveCompactFunc {
	return func(ctx context.Context, evicted []memory.ConversationTurn, previousSummary string) (string, error) {
		current := previousSummary
		if current == "" {
			current = "(none yet)"
		}
		prompt := fmt.Sprintf(progressivePrompt, current, renderTurns(evicted, "\n"))
		summary, err := llms.GenerateFromSinglePrompt(ctx, model, prompt)
		if err != nil {
			return "", fmt.Errorf("progressive summary generation: %w", err)
		}
		return strings.TrimSpace(summary), nil
	}
}

// renderTurns formats turns one per line as "role: content".
func renderTurns(turns []memory.ConversationTurn, separator string) string {
	lines := make([]string, 0, len(turns))
	for _, turn := range turns {
		lines = append(lines, fmt.Sprintf("%s: %s", turn.Role, turn.Content))
	}
	return strings.Join(lines, separator)
}
