package service

import (
	"DocQA/backend/go/internal/config"
	"DocQA/backend/go/internal/models"
	"DocQA/backend/go/internal/rag_service/rag/interfaces"
	"DocQA/backend/go/internal/rag_service/rag/loaders"
	"DocQA/backend/go/internal/rag_service/rag/pipeline"
	"DocQA/backend/go/internal/rag_service/rag/schema"
	"DocQA/backend/go/pkg/logger"
	"context"
	"fmt"
	"strings"
	"sync"
)

const (
	// DefaultTopK 是请求未指定 top_k 时使用的检索数量。
	DefaultTopK = 5

	// NoRelevantInformation 是检索结果为空时的固定回答，此时不会调用 LLM。
	NoRelevantInformation = "No relevant information found in the document to answer your query. Please try a different question."
)

// IngestRequest 是一次文档上传。
type IngestRequest struct {
	FileName  string
	Content   []byte
	IndexName string // 为空时使用配置中的默认索引
}

// IngestResult 是上传处理完成后的结果。
type IngestResult struct {
	Message string
	Index   string
	Chunks  int
}

// AskRequest 是一次提问。
type AskRequest struct {
	Query     string
	TopK      int
	IndexName string // 为空时使用最近一次上传的索引
}

// Answer 是生成的回答以及用作上下文的检索结果。
type Answer struct {
	Text    string
	Sources []*schema.Match
}

// Service 串联上传、检索与问答流程。
// 除了当前活跃索引外不保存任何请求间状态。
type Service struct {
	log       *logger.Logger
	provider  string
	store     interfaces.VectorStore
	loaderFor func(name string) (interfaces.Loader, error)
	indexing  *pipeline.IndexingPipeline
	retrieval *pipeline.RetrievalPipeline
	qa        *pipeline.QAPipeline

	defaultIndex string

	mu          sync.RWMutex
	activeIndex string
}

// New 创建 Service。store、embedder、llm 与 splitter 由调用方根据配置构造。
func New(
	cfg config.VectorStoreConfig,
	embeddingCfg config.EmbeddingConfig,
	store interfaces.VectorStore,
	splitter interfaces.Splitter,
	embedder interfaces.EmbeddingModel,
	llm interfaces.StreamingLLM,
	log *logger.Logger,
) *Service {
	return &Service{
		log:          log,
		provider:     cfg.Provider,
		store:        store,
		loaderFor:    loaders.ForFile,
		indexing:     pipeline.NewIndexingPipeline(splitter, embedder, store, cfg.UpsertBatchSize, embeddingCfg.Concurrency, log),
		retrieval:    pipeline.NewRetrievalPipeline(embedder, store, log),
		qa:           pipeline.NewQAPipeline(llm, log),
		defaultIndex: cfg.DefaultIndex,
	}
}

// Ingest 提取、切块、向量化并写入向量库，成功后把该索引设为活跃索引。
func (s *Service) Ingest(ctx context.Context, req IngestRequest) (*IngestResult, error) {
	if strings.TrimSpace(req.FileName) == "" {
		return nil, fmt.Errorf("%w: file name is empty", models.ErrInvalidInput)
	}
	loader, err := s.loaderFor(req.FileName)
	if err != nil {
		return nil, err
	}

	index := strings.TrimSpace(req.IndexName)
	if index == "" {
		index = s.defaultIndex
	}

	log := s.log.WithField("file_name", req.FileName).WithField("index", index)
	res, err := s.indexing.Run(ctx, loader, req.FileName, req.Content, index, func(p pipeline.Progress) {
		log.Debug(fmt.Sprintf("[%d%%] %s", p.Progress, p.Message))
	})
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.activeIndex = index
	s.mu.Unlock()

	return &IngestResult{
		Message: s.successMessage(index),
		Index:   index,
		Chunks:  res.Chunks,
	}, nil
}

func (s *Service) successMessage(index string) string {
	switch s.provider {
	case config.ProviderPinecone:
		return fmt.Sprintf("Pipeline completed successfully. Embeddings stored in Pinecone index '%s'.", index)
	case config.ProviderMilvus:
		return fmt.Sprintf("Pipeline completed successfully. Embeddings stored in Milvus collection '%s'.", index)
	default:
		return "Pipeline completed successfully. Embeddings will be kept in-memory."
	}
}

// Ask 检索与问题最相关的块并生成回答。检索为空时返回固定回答。
func (s *Service) Ask(ctx context.Context, req AskRequest) (*Answer, error) {
	matches, err := s.retrieve(ctx, req)
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return &Answer{Text: NoRelevantInformation, Sources: matches}, nil
	}

	text, err := s.qa.Run(ctx, req.Query, matches)
	if err != nil {
		return nil, err
	}
	return &Answer{Text: text, Sources: matches}, nil
}

// AskStream 与 Ask 相同，但把回答逐段交给 fn。
// 检索失败时 fn 不会被调用。
func (s *Service) AskStream(ctx context.Context, req AskRequest, fn func(token string) error) ([]*schema.Match, error) {
	matches, err := s.retrieve(ctx, req)
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return matches, fn(NoRelevantInformation)
	}
	return matches, s.qa.RunStream(ctx, req.Query, matches, fn)
}

// ListIndexes 返回向量库中可用的索引。
func (s *Service) ListIndexes(ctx context.Context) ([]string, error) {
	return s.store.ListIndexes(ctx)
}

// ActiveIndex 返回最近一次成功上传的索引，没有时为空字符串。
func (s *Service) ActiveIndex() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.activeIndex
}

func (s *Service) retrieve(ctx context.Context, req AskRequest) ([]*schema.Match, error) {
	if strings.TrimSpace(req.Query) == "" {
		return nil, fmt.Errorf("%w: query is empty", models.ErrInvalidInput)
	}
	topK := req.TopK
	if topK == 0 {
		topK = DefaultTopK
	}
	if topK < 0 {
		return nil, fmt.Errorf("%w: top_k must be positive, got %d", models.ErrInvalidInput, topK)
	}
	index, err := s.resolveIndex(req.IndexName)
	if err != nil {
		return nil, err
	}
	return s.retrieval.Run(ctx, req.Query, index, topK)
}

// resolveIndex 依次使用请求中的索引、活跃索引；持久化的向量库再回退到默认索引。
func (s *Service) resolveIndex(requested string) (string, error) {
	if idx := strings.TrimSpace(requested); idx != "" {
		return idx, nil
	}
	if idx := s.ActiveIndex(); idx != "" {
		return idx, nil
	}
	if s.provider != "" && s.provider != config.ProviderMemory && s.defaultIndex != "" {
		return s.defaultIndex, nil
	}
	return "", fmt.Errorf("%w: No document processed yet. Please upload a DOCX first.", models.ErrInvalidInput)
}
