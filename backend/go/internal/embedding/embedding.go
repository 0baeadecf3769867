package embedding

import (
	"DocQA/backend/go/internal/config"
	"DocQA/backend/go/internal/database/pinecone"
	"DocQA/backend/go/internal/models"
	"context"
	"fmt"
	"strings"
)

// NewEmdModel 根据配置创建并返回一个新的 Embedding 模型实例。
//
// 参数:
//
//	cfg: Embedding 配置，Provider 决定使用哪个厂商。
//	pc: Pinecone 连接配置，仅在 Provider 为 "pinecone" 时使用。
//
// 返回值:
//
//	Embedding: 新创建的 Embedding 模型实例。
//	error: 如果提供商不支持或模型初始化失败，则返回错误。
func NewEmdModel(ctx context.Context, cfg config.EmbeddingConfig, pc config.PineconeConfig) (Embedding, error) {
	// 根据提供商类型创建相应的 Embedding 模型实例。
	switch ModelType(cfg.Provider) {
	case Pinecone:
		client, err := pinecone.GetClient(&pc)
		if err != nil {
			return nil, err
		}
		return NewPineconeModel(inferenceEmbed(client.Inference), cfg.Model), nil
	case Google:
		return NewGoogleModel(ctx, cfg.Gemini.APIKey, cfg.Model)
	case OpenAI:
		return NewOpenAIModel(cfg.OpenAI.APIKey, cfg.OpenAI.BaseURL, cfg.Model)
	case Ollama:
		return NewOllamaModel(cfg.Model, cfg.Ollama.BaseURL)
	default:
		return nil, fmt.Errorf("%w: unsupported embedding provider: %s", models.ErrInvalidConfiguration, cfg.Provider) // 如果提供商不支持，返回错误。
	}
}

// checkText 拒绝空白输入。
func checkText(text string) error {
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("%w: text to embed is empty", models.ErrInvalidInput)
	}
	return nil
}

// serviceError 把上游错误包装为 ErrEmbeddingService，保留原始信息。
func serviceError(provider string, err error) error {
	return fmt.Errorf("%w: %s: %v", models.ErrEmbeddingService, provider, err)
}
