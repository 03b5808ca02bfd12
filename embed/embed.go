// Package embed adapts external embedding providers to memory.EmbedFunc.
//
// The memory package never calls an embedding model itself; the
// consolidator takes an EmbedFunc supplied by the caller. This package
// provides adapters for the OpenAI API and for any LangChain Go embedder.
package embed

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
	"github.com/tmc/langchaingo/embeddings"

	"github.com/memflow/memflow/memory"
)

// OpenAI returns an EmbedFunc backed by the OpenAI embeddings API. An
// empty model defaults to text-embedding-3-small.
func OpenAI(client *openai.Client, model openai.EmbeddingModel) memory.EmbedFunc {
	if model == "" {
		model = openai.SmallEmbedding3
	}
	return func(ctx context.Context, text string) ([]float64, error) {
		resp, err := client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
			Input: []string{text},
			Model: model,
		})
		if err != nil {
			return nil, fmt.Errorf("openai embedding request: %w", err)
		}
		if len(resp.Data) == 0 {
			return nil, fmt.Errorf("openai embedding response contained no data")
		}
		return toFloat64(resp.Data[0].Embedding), nil
	}
}

// LangChain returns an EmbedFunc backed by a LangChain Go embedder, which
// covers every provider langchaingo supports.
func LangChain(embedder embeddings.Embedder) memory.EmbedFunc {
	return func(ctx context.Context, text string) ([]float64, error) {
		vec, err := embedder.EmbedQuery(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("langchain embedding request: %w", err)
		}
		return toFloat64(vec), nil
	}
}

func toFloat64(vec []float32) []float64 {
	out := make([]float64, len(vec))
	for i, v := range vec {
		out[i] = float64(v)
	}
	return out
}
