package memory

// Tokenizer counts and truncates tokens. Every component that needs token
// counting takes a Tokenizer in its constructor; there is no ambient global
// tokenizer. Implementations wrapping real tokenizers (tiktoken,
// sentencepiece) satisfy this interface structurally.
type Tokenizer interface {
	// CountTokens returns the number of tokens in text.
	CountTokens(text string) int

	// TruncateToTokens returns a prefix of text containing at most
	// maxTokens tokens. Text already within the limit is returned unchanged.
	TruncateToTokens(text string, maxTokens int) string
}

// HeuristicTokenizer estimates tokens from character count, roughly four
// characters per token. It is deterministic and model-agnostic, good enough
// for budgeting when no real tokenizer is injected.
type HeuristicTokenizer struct {
	// CharsPerToken defaults to 4 when zero or negative.
	CharsPerToken int
}

// NewHeuristicTokenizer returns the default heuristic tokenizer.
func NewHeuristicTokenizer() *HeuristicTokenizer {
	return &HeuristicTokenizer{CharsPerToken: 4}
}

func (t *HeuristicTokenizer) charsPerToken() int {
	if t.CharsPerToken <= 0 {
		return 4
	}
	return t.CharsPerToken
}

// CountTokens estimates the token count of text.
func (t *HeuristicTokenizer) CountTokens(text string) int {
	if text == "" {
		return 0
	}
	cpt := t.charsPerToken()
	runes := len([]rune(text))
	return (runes + cpt - 1) / cpt
}

// TruncateToTokens keeps a prefix of text that fits in maxTokens.
func (t *HeuristicTokenizer) TruncateToTokens(text string, maxTokens int) string {
	if maxTokens <= 0 {
		return ""
	}
	if t.CountTokens(text) <= maxTokens {
		return text
	}
	runes := []rune(text)
	limit := maxTokens * t.charsPerToken()
	if limit > len(runes) {
		limit = len(runes)
	}
	return string(runes[:limit])
}
