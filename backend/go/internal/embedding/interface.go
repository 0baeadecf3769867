package embedding

import "context"

// Embedding 定义了所有 embedding 模型需要实现的接口。
// 文档和查询分开编码，部分模型 (例如 e5 系列) 会对两者使用不同的输入类型。
type Embedding interface {
	// EmbedDocument 为一个待入库的文本块生成嵌入向量。
	//
	// 参数:
	//   ctx: 上下文，用于控制操作的生命周期。
	//   text: 要生成嵌入向量的文本，不能为空。
	//
	// 返回值:
	//   []float32: 生成的嵌入向量。
	//   error: 文本为空时返回 ErrInvalidInput，服务调用失败时返回 ErrEmbeddingService。
	EmbedDocument(ctx context.Context, text string) ([]float32, error)

	// EmbedQuery 为用户问题生成嵌入向量，错误约定与 EmbedDocument 相同。
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// ModelType 是一个枚举类型，用于表示不同的模型厂商。
type ModelType string

const (
	Pinecone ModelType = "pinecone" // Pinecone Inference 模型类型。
	OpenAI   ModelType = "openai"   // OpenAI 模型类型。
	Google   ModelType = "gemini"   // Google 模型类型。
	Ollama   ModelType = "ollama"   // Ollama 模型类型。
)
