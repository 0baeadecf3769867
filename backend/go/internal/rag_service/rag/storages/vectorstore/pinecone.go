package vectorstore

import (
	"DocQA/backend/go/internal/models"
	"DocQA/backend/go/internal/rag_service/rag/interfaces"
	"DocQA/backend/go/internal/rag_service/rag/schema"
	"DocQA/backend/go/pkg/logger"
	"context"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/pinecone-io/go-pinecone/pinecone"
	"google.golang.org/protobuf/types/known/structpb"
)

// pineconeControl is the part of the Pinecone control plane used by the store.
// *pinecone.Client implements it.
type pineconeControl interface {
	ListIndexes(ctx context.Context) ([]*pinecone.Index, error)
	DescribeIndex(ctx context.Context, idxName string) (*pinecone.Index, error)
	CreateServerlessIndex(ctx context.Context, in *pinecone.CreateServerlessIndexRequest) (*pinecone.Index, error)
}

// pineconeData is the part of an index connection used by the store.
// *pinecone.IndexConnection implements it.
type pineconeData interface {
	UpsertVectors(ctx context.Context, in []*pinecone.Vector) (uint32, error)
	QueryByVectorValues(ctx context.Context, in *pinecone.QueryByVectorValuesRequest) (*pinecone.QueryVectorsResponse, error)
}

// PineconeStore stores records in Pinecone serverless indexes, one Pinecone index per index name.
type PineconeStore struct {
	log     *logger.Logger
	control pineconeControl
	connect func(host string) (pineconeData, error)
	cloud   string
	region  string

	// readyPoll is the interval used while waiting for a new index to become ready.
	readyPoll time.Duration

	mu    sync.Mutex
	conns map[string]pineconeData // index name -> data plane connection
}

// NewPineconeStore creates a PineconeStore on top of an existing client.
// cloud and region select where missing indexes are created (e.g. "aws", "us-east-1").
func NewPineconeStore(client *pinecone.Client, cloud, region string, log *logger.Logger) *PineconeStore {
	connect := func(host string) (pineconeData, error) {
		return client.Index(pinecone.NewIndexConnParams{Host: host})
	}
	return newPineconeStore(client, connect, cloud, region, log)
}

func newPineconeStore(control pineconeControl, connect func(host string) (pineconeData, error), cloud, region string, log *logger.Logger) *PineconeStore {
	return &PineconeStore{
		log:       log,
		control:   control,
		connect:   connect,
		cloud:     cloud,
		region:    region,
		readyPoll: 2 * time.Second,
		conns:     make(map[string]pineconeData),
	}
}

// EnsureIndex creates a cosine serverless index when it does not exist and waits until it is ready.
func (s *PineconeStore) EnsureIndex(ctx context.Context, index string, dimension int) error {
	if index == "" {
		return fmt.Errorf("%w: index name is empty", models.ErrInvalidInput)
	}
	existing, err := s.control.ListIndexes(ctx)
	if err != nil {
		return fmt.Errorf("%w: failed to list pinecone indexes: %v", models.ErrVectorStore, err)
	}
	for _, idx := range existing {
		if idx.Name != index {
			continue
		}
		if int(idx.Dimension) != dimension {
			return fmt.Errorf("%w: pinecone index %q has dimension %d, embeddings have %d", models.ErrInvalidInput, index, idx.Dimension, dimension)
		}
		return nil
	}

	s.log.Info(fmt.Sprintf("Creating pinecone index '%s' (dimension %d, %s/%s)", index, dimension, s.cloud, s.region))
	metric := pinecone.Cosine
	_, err = s.control.CreateServerlessIndex(ctx, &pinecone.CreateServerlessIndexRequest{
		Name:      index,
		Dimension: int32(dimension),
		Metric:    metric,
		Cloud:     pinecone.Cloud(s.cloud),
		Region:    s.region,
	})
	if err != nil {
		return fmt.Errorf("%w: failed to create pinecone index %q: %v", models.ErrVectorStore, index, err)
	}
	return s.waitReady(ctx, index)
}

func (s *PineconeStore) waitReady(ctx context.Context, index string) error {
	ticker := time.NewTicker(s.readyPoll)
	defer ticker.Stop()
	for {
		idx, err := s.control.DescribeIndex(ctx, index)
		if err != nil {
			return fmt.Errorf("%w: failed to describe pinecone index %q: %v", models.ErrVectorStore, index, err)
		}
		if idx.Status != nil && idx.Status.Ready {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: pinecone index %q not ready: %v", models.ErrVectorStore, index, ctx.Err())
		case <-ticker.C:
		}
	}
}

// Upsert writes the records in one request.
func (s *PineconeStore) Upsert(ctx context.Context, index string, records []schema.Record) error {
	if len(records) == 0 {
		return nil
	}
	conn, err := s.conn(ctx, index)
	if err != nil {
		return err
	}

	vectors := make([]*pinecone.Vector, 0, len(records))
	for _, r := range records {
		md, err := toStruct(r)
		if err != nil {
			return fmt.Errorf("%w: record %q: %v", models.ErrInvalidInput, r.ID, err)
		}
		vectors = append(vectors, &pinecone.Vector{
			Id:       r.ID,
			Values:   r.Vector,
			Metadata: md,
		})
	}

	if _, err := conn.UpsertVectors(ctx, vectors); err != nil {
		return fmt.Errorf("%w: failed to upsert into pinecone index %q: %v", models.ErrVectorStore, index, err)
	}
	return nil
}

// Query runs a similarity query with metadata included.
func (s *PineconeStore) Query(ctx context.Context, index string, vector []float32, topK int) ([]*schema.Match, error) {
	if topK <= 0 {
		return nil, fmt.Errorf("%w: top_k must be positive, got %d", models.ErrInvalidInput, topK)
	}
	conn, err := s.conn(ctx, index)
	if err != nil {
		return nil, err
	}

	resp, err := conn.QueryByVectorValues(ctx, &pinecone.QueryByVectorValuesRequest{
		Vector:          vector,
		TopK:            uint32(topK),
		IncludeMetadata: true,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to query pinecone index %q: %v", models.ErrVectorStore, index, err)
	}

	matches := make([]*schema.Match, 0, len(resp.Matches))
	for _, m := range resp.Matches {
		if m == nil || m.Vector == nil {
			continue
		}
		matches = append(matches, &schema.Match{Record: fromVector(m.Vector), Score: m.Score})
	}
	// Pinecone 已按分数排序，这里再做一次稳定排序以保证约定。
	sort.SliceStable(matches, func(i, j int) bool { return matches[i].Score > matches[j].Score })
	return matches, nil
}

// ListIndexes returns the sorted names of all indexes in the project.
func (s *PineconeStore) ListIndexes(ctx context.Context) ([]string, error) {
	indexes, err := s.control.ListIndexes(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to list pinecone indexes: %v", models.ErrVectorStore, err)
	}
	names := make([]string, 0, len(indexes))
	for _, idx := range indexes {
		names = append(names, idx.Name)
	}
	sort.Strings(names)
	return names, nil
}

// conn returns a cached data plane connection for index.
func (s *PineconeStore) conn(ctx context.Context, index string) (pineconeData, error) {
	if index == "" {
		return nil, fmt.Errorf("%w: index name is empty", models.ErrInvalidInput)
	}
	s.mu.Lock()
	c, ok := s.conns[index]
	s.mu.Unlock()
	if ok {
		return c, nil
	}

	// Describe 是一次网络调用，不持有锁，避免阻塞其他索引的请求。
	idx, err := s.control.DescribeIndex(ctx, index)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to describe pinecone index %q: %v", models.ErrVectorStore, index, err)
	}
	c, err = s.connect(idx.Host)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to connect to pinecone index %q: %v", models.ErrVectorStore, index, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.conns[index]; ok {
		// 并发的首次请求已经建好了连接，使用先存入的那个。
		if closer, ok := c.(io.Closer); ok && c != existing {
			_ = closer.Close()
		}
		return existing, nil
	}
	s.conns[index] = c
	return c, nil
}

func toStruct(r schema.Record) (*structpb.Struct, error) {
	md := make(map[string]interface{}, len(r.Metadata)+1)
	for k, v := range r.Metadata {
		md[k] = v
	}
	md[schema.MetadataKeyText] = r.Text
	return structpb.NewStruct(md)
}

func fromVector(v *pinecone.Vector) schema.Record {
	r := schema.Record{ID: v.Id, Vector: v.Values}
	if v.Metadata != nil {
		r.Metadata = v.Metadata.AsMap()
		if text, ok := r.Metadata[schema.MetadataKeyText].(string); ok {
			r.Text = text
		}
	}
	return r
}

// compile-time check to ensure PineconeStore implements the VectorStore interface
var _ interfaces.VectorStore = (*PineconeStore)(nil)
