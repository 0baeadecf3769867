package pipeline

import (
	"DocQA/backend/go/internal/models"
	"DocQA/backend/go/internal/rag_service/rag/schema"
	"DocQA/backend/go/pkg/logger"
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetrievalRun(t *testing.T) {
	store := newRecordingStore()
	store.matches = []*schema.Match{
		{Record: schema.Record{ID: "a", Text: "Cats sleep"}, Score: 0.9},
		{Record: schema.Record{ID: "b", Text: "Dogs walk"}, Score: 0.4},
	}
	embedder := &letterEmbedder{}
	p := NewRetrievalPipeline(embedder, store, logger.New("test"))

	matches, err := p.Run(context.Background(), "Where do cats sleep?", "animals", 5)
	require.NoError(t, err)
	assert.Len(t, matches, 2)
	assert.Equal(t, 5, store.lastTopK)
	assert.Equal(t, []string{"Where do cats sleep?"}, embedder.queries)
	assert.Equal(t, embedder.vector("Where do cats sleep?"), store.lastVector)
}

func TestRetrievalRunNoMatches(t *testing.T) {
	p := NewRetrievalPipeline(&letterEmbedder{}, newRecordingStore(), logger.New("test"))

	matches, err := p.Run(context.Background(), "anything", "empty", 3)
	require.NoError(t, err)
	assert.NotNil(t, matches)
	assert.Empty(t, matches)
}

func TestRetrievalRunErrors(t *testing.T) {
	ctx := context.Background()
	store := newRecordingStore()
	embedder := &letterEmbedder{}
	p := NewRetrievalPipeline(embedder, store, logger.New("test"))

	_, err := p.Run(ctx, "   ", "idx", 5)
	assert.ErrorIs(t, err, models.ErrInvalidInput)
	assert.Empty(t, embedder.queries)

	_, err = p.Run(ctx, "question", "idx", 0)
	assert.ErrorIs(t, err, models.ErrInvalidInput)

	store.queryErr = fmt.Errorf("%w: unavailable", models.ErrVectorStore)
	_, err = p.Run(ctx, "question", "idx", 5)
	assert.ErrorIs(t, err, models.ErrServiceUnavailable)

	embedder.err = fmt.Errorf("%w: 503", models.ErrEmbeddingService)
	_, err = p.Run(ctx, "question", "idx", 5)
	assert.ErrorIs(t, err, models.ErrEmbeddingService)
}
