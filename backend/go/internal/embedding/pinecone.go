package embedding

import (
	"context"
	"errors"

	"github.com/pinecone-io/go-pinecone/pinecone"
)

var errNoEmbeddings = errors.New("no embeddings returned")

// embedFunc 对一个请求返回第一条输入的向量。
type embedFunc func(ctx context.Context, in *pinecone.EmbedRequest) ([]float32, error)

// PineconeModel 使用 Pinecone 托管的 embedding 模型 (默认 multilingual-e5-large)。
type PineconeModel struct {
	embed embedFunc
	model string
}

// NewPineconeModel 创建一个新的 PineconeModel，embed 通常来自 inferenceEmbed。
func NewPineconeModel(embed embedFunc, model string) *PineconeModel {
	if model == "" {
		model = "multilingual-e5-large"
	}
	return &PineconeModel{embed: embed, model: model}
}

// inferenceEmbed 把 Inference 服务的返回值转换为向量。
// 返回值的类型位于 SDK 的 internal 包中，这里只通过字段访问它。
func inferenceEmbed(svc *pinecone.InferenceService) embedFunc {
	return func(ctx context.Context, in *pinecone.EmbedRequest) ([]float32, error) {
		resp, err := svc.Embed(ctx, in)
		if err != nil {
			return nil, err
		}
		if resp == nil || resp.Data == nil || len(*resp.Data) == 0 {
			return nil, errNoEmbeddings
		}
		values := (*resp.Data)[0].Values
		if values == nil {
			return nil, errNoEmbeddings
		}
		return *values, nil
	}
}

// EmbedDocument 以 passage 输入类型生成嵌入向量。
func (m *PineconeModel) EmbedDocument(ctx context.Context, text string) ([]float32, error) {
	return m.run(ctx, text, "passage")
}

// EmbedQuery 以 query 输入类型生成嵌入向量。
func (m *PineconeModel) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	return m.run(ctx, text, "query")
}

func (m *PineconeModel) run(ctx context.Context, text, inputType string) ([]float32, error) {
	if err := checkText(text); err != nil {
		return nil, err
	}
	vec, err := m.embed(ctx, &pinecone.EmbedRequest{
		Model:      m.model,
		TextInputs: []string{text},
		Parameters: pinecone.EmbedParameters{
			InputType: inputType,
			Truncate:  "END",
		},
	})
	if err != nil {
		return nil, serviceError("pinecone", err)
	}
	if len(vec) == 0 {
		return nil, serviceError("pinecone", errNoEmbeddings)
	}
	return vec, nil
}

var _ Embedding = (*PineconeModel)(nil)
