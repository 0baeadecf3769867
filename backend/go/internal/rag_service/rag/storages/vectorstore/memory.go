package vectorstore

import (
	"DocQA/backend/go/internal/models"
	"DocQA/backend/go/internal/rag_service/rag/interfaces"
	"DocQA/backend/go/internal/rag_service/rag/schema"
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
)

// MemoryStore is a thread-safe, in-memory implementation of the VectorStore interface.
//
// One MemoryStore is created at process start and shared by all requests; its
// contents are lost when the process exits. A single RWMutex guards every index:
// queries take the read lock, EnsureIndex/Upsert/Reset take the write lock.
type MemoryStore struct {
	mu      sync.RWMutex
	indexes map[string]*memoryIndex
}

type memoryIndex struct {
	dimension int
	records   []schema.Record
	positions map[string]int // record ID -> position in records
}

// NewMemoryStore creates a new, empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		indexes: make(map[string]*memoryIndex),
	}
}

// EnsureIndex creates the index if it does not exist. An existing index must have the same dimension.
func (s *MemoryStore) EnsureIndex(ctx context.Context, index string, dimension int) error {
	if index == "" {
		return fmt.Errorf("%w: index name is empty", models.ErrInvalidInput)
	}
	if dimension <= 0 {
		return fmt.Errorf("%w: dimension must be positive, got %d", models.ErrInvalidInput, dimension)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.ensureLocked(index, dimension)
	if len(idx.records) == 0 {
		idx.dimension = dimension
	}
	if idx.dimension != dimension {
		return fmt.Errorf("%w: index %q has dimension %d, got %d", models.ErrInvalidInput, index, idx.dimension, dimension)
	}
	return nil
}

func (s *MemoryStore) ensureLocked(index string, dimension int) *memoryIndex {
	idx, ok := s.indexes[index]
	if !ok {
		idx = &memoryIndex{dimension: dimension, positions: make(map[string]int)}
		s.indexes[index] = idx
	}
	return idx
}

// Upsert stores the records. A record whose ID already exists replaces the old one
// and keeps its original position; new records are appended. The whole batch is
// validated before anything is written.
func (s *MemoryStore) Upsert(ctx context.Context, index string, records []schema.Record) error {
	if index == "" {
		return fmt.Errorf("%w: index name is empty", models.ErrInvalidInput)
	}
	if len(records) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	dimension := len(records[0].Vector)
	if idx, ok := s.indexes[index]; ok {
		dimension = idx.dimension
	}
	for _, r := range records {
		if r.ID == "" {
			return fmt.Errorf("%w: record id is empty", models.ErrInvalidInput)
		}
		if len(r.Vector) == 0 || len(r.Vector) != dimension {
			return fmt.Errorf("%w: record %q has dimension %d, index %q expects %d", models.ErrInvalidInput, r.ID, len(r.Vector), index, dimension)
		}
	}

	idx := s.ensureLocked(index, dimension)
	for _, r := range records {
		r = cloneRecord(r)
		if pos, ok := idx.positions[r.ID]; ok {
			idx.records[pos] = r
			continue
		}
		idx.positions[r.ID] = len(idx.records)
		idx.records = append(idx.records, r)
	}
	return nil
}

// Query returns the topK records most similar to vector by cosine similarity.
// Ties keep insertion order. An unknown or empty index yields an empty result.
func (s *MemoryStore) Query(ctx context.Context, index string, vector []float32, topK int) ([]*schema.Match, error) {
	if topK <= 0 {
		return nil, fmt.Errorf("%w: top_k must be positive, got %d", models.ErrInvalidInput, topK)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	idx, ok := s.indexes[index]
	if !ok || len(idx.records) == 0 {
		return []*schema.Match{}, nil
	}
	if len(vector) != idx.dimension {
		return nil, fmt.Errorf("%w: query has dimension %d, index %q expects %d", models.ErrInvalidInput, len(vector), index, idx.dimension)
	}

	matches := make([]*schema.Match, 0, len(idx.records))
	for _, r := range idx.records {
		matches = append(matches, &schema.Match{Record: cloneRecord(r), Score: cosine(vector, r.Vector)})
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
	if len(matches) > topK {
		matches = matches[:topK]
	}
	return matches, nil
}

// ListIndexes returns the sorted names of indexes that hold at least one record.
func (s *MemoryStore) ListIndexes(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.indexes))
	for name, idx := range s.indexes {
		if len(idx.records) > 0 {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}

// Reset drops every index.
func (s *MemoryStore) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.indexes = make(map[string]*memoryIndex)
}

// cosine returns the cosine similarity of a and b; a zero vector scores 0.
func cosine(a, b []float32) float32 {
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(na) * math.Sqrt(nb)))
}

func cloneRecord(r schema.Record) schema.Record {
	out := r
	out.Vector = append([]float32(nil), r.Vector...)
	if r.Metadata != nil {
		out.Metadata = make(map[string]interface{}, len(r.Metadata))
		for k, v := range r.Metadata {
			out.Metadata[k] = v
		}
	}
	return out
}

// compile-time check to ensure MemoryStore implements the VectorStore interface
var _ interfaces.VectorStore = (*MemoryStore)(nil)
