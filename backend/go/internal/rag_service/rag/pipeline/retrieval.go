package pipeline

import (
	"DocQA/backend/go/internal/models"
	"DocQA/backend/go/internal/rag_service/rag/interfaces"
	"DocQA/backend/go/internal/rag_service/rag/schema"
	"DocQA/backend/go/pkg/logger"
	"context"
	"fmt"
	"strings"
)

// RetrievalPipeline orchestrates the process of retrieving relevant chunks for a given query.
type RetrievalPipeline struct {
	embedder    interfaces.EmbeddingModel
	vectorStore interfaces.VectorStore
	log         *logger.Logger
}

// NewRetrievalPipeline creates a new RetrievalPipeline.
func NewRetrievalPipeline(embedder interfaces.EmbeddingModel, vectorStore interfaces.VectorStore, log *logger.Logger) *RetrievalPipeline {
	return &RetrievalPipeline{
		embedder:    embedder,
		vectorStore: vectorStore,
		log:         log,
	}
}

// Run embeds the query and returns at most topK matches from index, best first.
func (p *RetrievalPipeline) Run(ctx context.Context, query, index string, topK int) ([]*schema.Match, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("%w: query is empty", models.ErrInvalidInput)
	}
	if topK <= 0 {
		return nil, fmt.Errorf("%w: top_k must be positive, got %d", models.ErrInvalidInput, topK)
	}
	p.log.Info(fmt.Sprintf("Starting retrieval for query: '%s' in index: %s", query, index))

	// 1. Embed the query
	queryEmbedding, err := p.embedder.EmbedQuery(ctx, query)
	if err != nil {
		p.log.Error(fmt.Sprintf("Failed to embed query: %v", err))
		return nil, err
	}

	// 2. Query the VectorStore
	matches, err := p.vectorStore.Query(ctx, index, queryEmbedding, topK)
	if err != nil {
		p.log.Error(fmt.Sprintf("Failed to query vector store: %v", err))
		return nil, err
	}
	if len(matches) == 0 {
		p.log.Info("No documents found in vector store for the given query.")
		return []*schema.Match{}, nil
	}

	p.log.Debug(fmt.Sprintf("Retrieved %d chunks, best score %.4f", len(matches), matches[0].Score))
	return matches, nil
}
