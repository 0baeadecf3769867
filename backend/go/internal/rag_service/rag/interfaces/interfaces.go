package interfaces

import (
	"DocQA/backend/go/internal/rag_service/rag/schema"
	"context"
)

// Loader is the interface for turning the raw bytes of an uploaded file
// into a list of Document objects.
type Loader interface {
	Load(ctx context.Context, name string, content []byte) ([]*schema.Document, error)
}

// Splitter is the interface for splitting a list of Documents into smaller chunks.
type Splitter interface {
	Split(ctx context.Context, docs []*schema.Document) ([]*schema.Document, error)
}

// VectorStore is the interface for storing and querying document vectors.
// Each index is an independent namespace of records with a fixed dimension.
type VectorStore interface {
	// EnsureIndex creates the index when it does not exist yet.
	EnsureIndex(ctx context.Context, index string, dimension int) error
	// Upsert inserts records, replacing any record with the same ID.
	Upsert(ctx context.Context, index string, records []schema.Record) error
	// Query returns at most topK records ranked by descending similarity.
	Query(ctx context.Context, index string, vector []float32, topK int) ([]*schema.Match, error)
	// ListIndexes returns the names of the available indexes.
	ListIndexes(ctx context.Context) ([]string, error)
}

// EmbeddingModel is the interface for a text embedding model.
type EmbeddingModel interface {
	EmbedDocument(ctx context.Context, text string) ([]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// LLM is the interface for a large language model that can generate text.
type LLM interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// StreamingLLM is an LLM that can deliver the completion incrementally.
// fn is called once per fragment; a non-nil error from fn stops the generation.
type StreamingLLM interface {
	LLM
	GenerateStream(ctx context.Context, prompt string, fn func(token string) error) error
}
