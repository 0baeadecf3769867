package pinecone

import (
	"DocQA/backend/go/internal/config"
	"DocQA/backend/go/internal/models"
	"fmt"
	"sync"

	"github.com/pinecone-io/go-pinecone/pinecone"
)

var (
	instance *pinecone.Client
	once     sync.Once
	initErr  error
)

// GetClient 使用单例模式创建并返回一个 Pinecone 客户端实例，向量库和 Embedding 共用同一个客户端。
func GetClient(cfg *config.PineconeConfig) (*pinecone.Client, error) {
	once.Do(func() {
		if cfg.APIKey == "" {
			initErr = fmt.Errorf("%w: PINECONE_API_KEY is not set", models.ErrInvalidConfiguration)
			return
		}
		c, err := pinecone.NewClient(pinecone.NewClientParams{ApiKey: cfg.APIKey})
		if err != nil {
			initErr = fmt.Errorf("%w: 无法创建 Pinecone 客户端: %v", models.ErrInvalidConfiguration, err)
			return
		}
		instance = c
	})
	return instance, initErr
}
