package vectorstore

import (
	"DocQA/backend/go/internal/database/milvus"
	"DocQA/backend/go/internal/models"
	"DocQA/backend/go/internal/rag_service/rag/interfaces"
	"DocQA/backend/go/internal/rag_service/rag/schema"
	"DocQA/backend/go/pkg/logger"
	"context"
	"fmt"
	"sort"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"
)

// MilvusStore is an adapter for the Milvus client to implement the VectorStore interface.
// Each index name maps to its own collection.
type MilvusStore struct {
	log    *logger.Logger
	client *milvus.MilvusClient
}

// NewMilvusStore creates a new MilvusStore adapter.
func NewMilvusStore(milvusClient *milvus.MilvusClient, log *logger.Logger) (*MilvusStore, error) {
	if milvusClient == nil || milvusClient.Client == nil {
		return nil, fmt.Errorf("%w: milvus client is not initialized", models.ErrInvalidConfiguration)
	}
	return &MilvusStore{log: log, client: milvusClient}, nil
}

// EnsureIndex creates and loads the collection backing index.
func (s *MilvusStore) EnsureIndex(ctx context.Context, index string, dimension int) error {
	if index == "" {
		return fmt.Errorf("%w: index name is empty", models.ErrInvalidInput)
	}
	if dimension <= 0 {
		return fmt.Errorf("%w: dimension must be positive, got %d", models.ErrInvalidInput, dimension)
	}
	return s.client.EnsureCollection(ctx, milvus.CollectionName(index), dimension)
}

// Upsert writes the records as one column batch. Records with an existing id are replaced.
func (s *MilvusStore) Upsert(ctx context.Context, index string, records []schema.Record) error {
	if len(records) == 0 {
		return nil
	}
	collName := milvus.CollectionName(index)

	ids := make([]string, len(records))
	texts := make([]string, len(records))
	sources := make([]string, len(records))
	chunkIndexes := make([]int64, len(records))
	embeddings := make([][]float32, len(records))

	dim := len(records[0].Vector)
	for i, r := range records {
		if len(r.Vector) != dim {
			return fmt.Errorf("%w: record %q has dimension %d, expected %d", models.ErrInvalidInput, r.ID, len(r.Vector), dim)
		}
		ids[i] = r.ID
		texts[i] = r.Text
		embeddings[i] = r.Vector
		if src, ok := r.Metadata[schema.MetadataKeyFileName].(string); ok {
			sources[i] = src
		}
		chunkIndexes[i] = int64(toInt(r.Metadata[schema.MetadataKeyChunkIndex]))
	}

	s.log.Debug(fmt.Sprintf("Upserting %d records into Milvus collection: %s", len(records), collName))
	_, err := s.client.Client.Upsert(ctx, collName, "", /* default partition */
		entity.NewColumnVarChar(milvus.FieldID, ids),
		entity.NewColumnVarChar(milvus.FieldText, texts),
		entity.NewColumnVarChar(milvus.FieldSourceFile, sources),
		entity.NewColumnInt64(milvus.FieldChunkIndex, chunkIndexes),
		entity.NewColumnFloatVector(milvus.FieldEmbedding, dim, embeddings),
	)
	if err != nil {
		return fmt.Errorf("%w: failed to upsert into Milvus collection %q: %v", models.ErrVectorStore, collName, err)
	}
	return nil
}

// Query performs a cosine similarity search with strong consistency.
func (s *MilvusStore) Query(ctx context.Context, index string, vector []float32, topK int) ([]*schema.Match, error) {
	if topK <= 0 {
		return nil, fmt.Errorf("%w: top_k must be positive, got %d", models.ErrInvalidInput, topK)
	}
	collName := milvus.CollectionName(index)

	exists, err := s.client.Client.HasCollection(ctx, collName)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to check Milvus collection %q: %v", models.ErrVectorStore, collName, err)
	}
	if !exists {
		return []*schema.Match{}, nil
	}

	sp, _ := entity.NewIndexAUTOINDEXSearchParam(1)
	outputFields := []string{milvus.FieldID, milvus.FieldText, milvus.FieldSourceFile, milvus.FieldChunkIndex}

	searchResults, err := s.client.Client.Search(
		ctx, collName, []string{}, "", outputFields,
		[]entity.Vector{entity.FloatVector(vector)},
		milvus.FieldEmbedding, entity.COSINE, topK, sp,
		client.WithSearchQueryConsistencyLevel(entity.ClStrong),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to search Milvus collection %q: %v", models.ErrVectorStore, collName, err)
	}

	matches := make([]*schema.Match, 0, topK)
	for _, res := range searchResults {
		findColumn := func(name string) entity.Column {
			for _, field := range res.Fields {
				if field.Name() == name {
					return field
				}
			}
			return nil
		}

		idCol, ok := findColumn(milvus.FieldID).(*entity.ColumnVarChar)
		if !ok {
			s.log.Warn("Search result is missing ID field or has wrong type, skipping.")
			continue
		}
		var texts, sources []string
		var chunkIndexes []int64
		if col, ok := findColumn(milvus.FieldText).(*entity.ColumnVarChar); ok {
			texts = col.Data()
		}
		if col, ok := findColumn(milvus.FieldSourceFile).(*entity.ColumnVarChar); ok {
			sources = col.Data()
		}
		if col, ok := findColumn(milvus.FieldChunkIndex).(*entity.ColumnInt64); ok {
			chunkIndexes = col.Data()
		}

		ids := idCol.Data()
		for i := 0; i < res.ResultCount && i < len(ids); i++ {
			r := schema.Record{ID: ids[i], Metadata: map[string]interface{}{}}
			if i < len(texts) {
				r.Text = texts[i]
				r.Metadata[schema.MetadataKeyText] = texts[i]
			}
			if i < len(sources) {
				r.Metadata[schema.MetadataKeyFileName] = sources[i]
			}
			if i < len(chunkIndexes) {
				r.Metadata[schema.MetadataKeyChunkIndex] = int(chunkIndexes[i])
			}
			var score float32
			if i < len(res.Scores) {
				score = res.Scores[i]
			}
			matches = append(matches, &schema.Match{Record: r, Score: score})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool { return matches[i].Score > matches[j].Score })
	if len(matches) > topK {
		matches = matches[:topK]
	}
	return matches, nil
}

// ListIndexes returns the sorted collection names.
func (s *MilvusStore) ListIndexes(ctx context.Context) ([]string, error) {
	colls, err := s.client.Client.ListCollections(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to list Milvus collections: %v", models.ErrVectorStore, err)
	}
	names := make([]string, 0, len(colls))
	for _, c := range colls {
		names = append(names, c.Name)
	}
	sort.Strings(names)
	return names, nil
}

func toInt(v interface{}) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	case float32:
		return int(n)
	default:
		return 0
	}
}

// compile-time check to ensure MilvusStore implements the VectorStore interface
var _ interfaces.VectorStore = (*MilvusStore)(nil)
