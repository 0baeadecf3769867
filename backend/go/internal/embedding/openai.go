package embedding

import (
	"context"
	"fmt"

	openai "github.com/meguminnnnnnnnn/go-openai"
)

// OpenAIModel 是一个用于 OpenAI (及兼容) API 的 Embedding 模型客户端。
type OpenAIModel struct {
	client *openai.Client // OpenAI 客户端实例。
	model  string         // 要使用的模型名称。
}

// NewOpenAIModel 创建一个新的 OpenAIModel 客户端。
//
// 参数:
//
//	apiKey: OpenAI 的 API 密钥。
//	baseURL: 兼容接口的地址，为空时使用官方地址。
//	modelName: 要使用的模型名称。
func NewOpenAIModel(apiKey, baseURL, modelName string) (*OpenAIModel, error) {
	// 使用 API 密钥创建默认配置。
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	return &OpenAIModel{client: openai.NewClientWithConfig(config), model: modelName}, nil
}

// EmbedDocument 使用 OpenAI API 为单个文本块生成嵌入向量。
func (m *OpenAIModel) EmbedDocument(ctx context.Context, text string) ([]float32, error) {
	return m.embed(ctx, text)
}

// EmbedQuery 使用 OpenAI API 为问题生成嵌入向量。
func (m *OpenAIModel) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	return m.embed(ctx, text)
}

func (m *OpenAIModel) embed(ctx context.Context, text string) ([]float32, error) {
	if err := checkText(text); err != nil {
		return nil, err
	}
	// 构建 OpenAI Embedding 请求。
	resp, err := m.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{text},
		Model: openai.EmbeddingModel(m.model),
	})
	if err != nil {
		return nil, serviceError("openai", err)
	}

	// 检查是否返回了嵌入向量。
	if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
		return nil, serviceError("openai", fmt.Errorf("no embeddings returned"))
	}
	return resp.Data[0].Embedding, nil
}

var _ Embedding = (*OpenAIModel)(nil)
