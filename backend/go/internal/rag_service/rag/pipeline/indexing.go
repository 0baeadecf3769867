package pipeline

import (
	"DocQA/backend/go/internal/models"
	"DocQA/backend/go/internal/rag_service/rag/interfaces"
	"DocQA/backend/go/internal/rag_service/rag/schema"
	"DocQA/backend/go/pkg/logger"
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// Progress is one step reported by the indexing pipeline.
type Progress struct {
	Message  string
	Progress int // 0-100
}

// IndexResult summarizes a finished indexing run.
type IndexResult struct {
	Index     string
	Chunks    int
	Dimension int
	Batches   int
}

// IndexingPipeline orchestrates the process of loading, splitting, embedding, and storing documents.
type IndexingPipeline struct {
	splitter    interfaces.Splitter
	embedder    interfaces.EmbeddingModel
	vectorStore interfaces.VectorStore
	batchSize   int
	concurrency int
	log         *logger.Logger
}

// NewIndexingPipeline creates a new IndexingPipeline.
// batchSize is the number of records per Upsert call, concurrency the number of
// embedding requests in flight. Values below 1 are treated as 1.
func NewIndexingPipeline(
	splitter interfaces.Splitter,
	embedder interfaces.EmbeddingModel,
	vectorStore interfaces.VectorStore,
	batchSize, concurrency int,
	log *logger.Logger,
) *IndexingPipeline {
	if batchSize < 1 {
		batchSize = 1
	}
	if concurrency < 1 {
		concurrency = 1
	}
	return &IndexingPipeline{
		splitter:    splitter,
		embedder:    embedder,
		vectorStore: vectorStore,
		batchSize:   batchSize,
		concurrency: concurrency,
		log:         log,
	}
}

// Run executes the entire indexing pipeline for one uploaded file and reports progress through report.
// report may be nil. The first failing step aborts the run with its error.
func (p *IndexingPipeline) Run(ctx context.Context, loader interfaces.Loader, name string, content []byte, index string, report func(Progress)) (*IndexResult, error) {
	if report == nil {
		report = func(Progress) {}
	}
	if index == "" {
		return nil, fmt.Errorf("%w: index name is empty", models.ErrInvalidInput)
	}

	p.log.Info(fmt.Sprintf("Starting indexing for file: %s, index: %s", name, index))
	report(Progress{Message: fmt.Sprintf("Starting indexing for: %s", name)})

	// 1. Load the data
	docs, err := loader.Load(ctx, name, content)
	if err != nil {
		p.log.Error(fmt.Sprintf("Failed to load data: %v", err))
		return nil, err
	}
	report(Progress{Message: fmt.Sprintf("Loaded %d documents", len(docs)), Progress: 10})

	// 2. Split documents into chunks
	chunks, err := p.splitter.Split(ctx, docs)
	if err != nil {
		p.log.Error(fmt.Sprintf("Failed to split documents: %v", err))
		return nil, err
	}
	if len(chunks) == 0 {
		return nil, fmt.Errorf("%w: %s produced no chunks", models.ErrInvalidInput, name)
	}
	report(Progress{Message: fmt.Sprintf("Split into %d chunks", len(chunks)), Progress: 25})

	// 3. Embed the chunks
	dim, err := p.embed(ctx, chunks)
	if err != nil {
		p.log.Error(fmt.Sprintf("Failed to embed chunks: %v", err))
		return nil, err
	}
	report(Progress{Message: "Successfully embedded all chunks", Progress: 60})

	// 4. Store the chunks
	if err := p.vectorStore.EnsureIndex(ctx, index, dim); err != nil {
		p.log.Error(fmt.Sprintf("Failed to prepare index %s: %v", index, err))
		return nil, err
	}
	batches := 0
	for start := 0; start < len(chunks); start += p.batchSize {
		end := start + p.batchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		records := make([]schema.Record, 0, end-start)
		for _, chunk := range chunks[start:end] {
			records = append(records, schema.RecordFromDocument(chunk))
		}
		if err := p.vectorStore.Upsert(ctx, index, records); err != nil {
			p.log.Error(fmt.Sprintf("Failed to upsert chunks %d-%d: %v", start, end-1, err))
			return nil, err
		}
		batches++
		report(Progress{Message: fmt.Sprintf("Stored %d/%d chunks", end, len(chunks)), Progress: 60 + 35*end/len(chunks)})
	}

	p.log.Info(fmt.Sprintf("Successfully finished indexing for: %s (%d chunks, %d batches)", name, len(chunks), batches))
	report(Progress{Message: fmt.Sprintf("Successfully finished indexing for: %s", name), Progress: 100})
	return &IndexResult{Index: index, Chunks: len(chunks), Dimension: dim, Batches: batches}, nil
}

// embed fills chunk.Embedding for every chunk and returns the common dimension.
func (p *IndexingPipeline) embed(ctx context.Context, chunks []*schema.Document) (int, error) {
	eg, gCtx := errgroup.WithContext(ctx)
	eg.SetLimit(p.concurrency)
	for _, chunk := range chunks {
		chunk := chunk
		eg.Go(func() error {
			vec, err := p.embedder.EmbedDocument(gCtx, chunk.Text)
			if err != nil {
				return err
			}
			chunk.Embedding = vec
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return 0, err
	}

	dim := len(chunks[0].Embedding)
	if dim == 0 {
		return 0, fmt.Errorf("%w: embedding model returned an empty vector", models.ErrEmbeddingService)
	}
	for _, chunk := range chunks {
		if len(chunk.Embedding) != dim {
			return 0, fmt.Errorf("%w: embedding dimension changed from %d to %d", models.ErrEmbeddingService, dim, len(chunk.Embedding))
		}
	}
	return dim, nil
}
