package embedding

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	ollama "github.com/ollama/ollama/api"
)

// OllamaModel 是一个用于 Ollama API 的 Embedding 模型客户端。
type OllamaModel struct {
	client *ollama.Client // Ollama 客户端实例。
	model  string         // 要使用的模型名称。
}

// NewOllamaModel 创建一个新的 OllamaModel 客户端。
//
// 参数:
//
//	model: 要使用的模型名称。
//	baseURL: Ollama 服务的基准 URL。如果为空，则默认为 "http://localhost:11434"。
//
// 返回值:
//
//	*OllamaModel: 新创建的 OllamaModel 客户端实例。
//	error: 如果基准 URL 无效，则返回错误。
func NewOllamaModel(model, baseURL string) (*OllamaModel, error) {
	// 如果 baseURL 为空，则使用默认地址。
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}

	// 将字符串 URL 转换为 *url.URL。
	parsedURL, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}

	// 创建一个带有超时设置的 HTTP 客户端。
	hc := &http.Client{
		Timeout: 120 * time.Second,
	}

	return &OllamaModel{client: ollama.NewClient(parsedURL, hc), model: model}, nil
}

// EmbedDocument 为单个文本块生成嵌入向量。
func (m *OllamaModel) EmbedDocument(ctx context.Context, text string) ([]float32, error) {
	return m.embed(ctx, text)
}

// EmbedQuery 为问题生成嵌入向量，Ollama 不区分文档和查询。
func (m *OllamaModel) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	return m.embed(ctx, text)
}

func (m *OllamaModel) embed(ctx context.Context, text string) ([]float32, error) {
	if err := checkText(text); err != nil {
		return nil, err
	}
	// 调用 Ollama 客户端的 Embed 方法生成嵌入向量。
	resp, err := m.client.Embed(ctx, &ollama.EmbedRequest{
		Model: m.model,
		Input: text,
	})
	if err != nil {
		return nil, serviceError("ollama", err)
	}

	// 返回第一个嵌入向量（单个文本输入）。
	if len(resp.Embeddings) == 0 || len(resp.Embeddings[0]) == 0 {
		return nil, serviceError("ollama", fmt.Errorf("no embeddings returned"))
	}
	return resp.Embeddings[0], nil
}

var _ Embedding = (*OllamaModel)(nil)
