package vectorstore

import (
	"DocQA/backend/go/internal/config"
	"DocQA/backend/go/internal/database/milvus"
	"DocQA/backend/go/internal/database/pinecone"
	"DocQA/backend/go/internal/models"
	"DocQA/backend/go/internal/rag_service/rag/interfaces"
	"DocQA/backend/go/pkg/logger"
	"context"
	"fmt"
)

// New 根据配置创建向量库实现。
func New(ctx context.Context, cfg config.VectorStoreConfig, log *logger.Logger) (interfaces.VectorStore, error) {
	switch cfg.Provider {
	case "", config.ProviderMemory:
		return NewMemoryStore(), nil
	case config.ProviderPinecone:
		client, err := pinecone.GetClient(&cfg.Pinecone)
		if err != nil {
			return nil, err
		}
		return NewPineconeStore(client, cfg.Pinecone.Cloud, cfg.Pinecone.Region, log), nil
	case config.ProviderMilvus:
		client, err := milvus.GetClient(ctx, &cfg.Milvus)
		if err != nil {
			return nil, err
		}
		return NewMilvusStore(client, log)
	default:
		return nil, fmt.Errorf("%w: unsupported vector store provider %q", models.ErrInvalidConfiguration, cfg.Provider)
	}
}
