package embedding

import (
	"context"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// GoogleModel 是一个用于 Google GenAI Embedding API 的客户端。
type GoogleModel struct {
	document *genai.EmbeddingModel
	query    *genai.EmbeddingModel
}

// NewGoogleModel 创建并返回一个新的 GoogleModel 客户端实例。
//
// 参数:
//
//	apiKey: Google GenAI 的 API 密钥。
//	modelName: 要使用的 Embedding 模型名称。
//
// 返回值:
//
//	*GoogleModel: 新创建的 GoogleModel 客户端实例。
//	error: 如果无法创建 GenAI 客户端，则返回错误。
func NewGoogleModel(ctx context.Context, apiKey string, modelName string, opts ...option.ClientOption) (*GoogleModel, error) {
	opts = append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)
	client, err := genai.NewClient(ctx, opts...)
	if err != nil {
		return nil, err
	}

	// 文档和查询使用不同的 TaskType。
	document := client.EmbeddingModel(modelName)
	document.TaskType = genai.TaskTypeRetrievalDocument
	query := client.EmbeddingModel(modelName)
	query.TaskType = genai.TaskTypeRetrievalQuery

	return &GoogleModel{document: document, query: query}, nil
}

// EmbedDocument 为单个文本块生成嵌入向量。
func (m *GoogleModel) EmbedDocument(ctx context.Context, text string) ([]float32, error) {
	return embedWith(ctx, m.document, text)
}

// EmbedQuery 为问题生成嵌入向量。
func (m *GoogleModel) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	return embedWith(ctx, m.query, text)
}

func embedWith(ctx context.Context, model *genai.EmbeddingModel, text string) ([]float32, error) {
	if err := checkText(text); err != nil {
		return nil, err
	}
	res, err := model.EmbedContent(ctx, genai.Text(text))
	if err != nil {
		return nil, serviceError("gemini", err)
	}
	if res == nil || res.Embedding == nil || len(res.Embedding.Values) == 0 {
		return nil, serviceError("gemini", fmt.Errorf("no embeddings returned"))
	}
	return res.Embedding.Values, nil
}

var _ Embedding = (*GoogleModel)(nil)
