package llm

import (
	"context"
	"errors"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// Gemini 是一个实现了 LLM 接口的结构体，用于与 Gemini API 交互。
// 每次调用都是独立的单轮请求，不保留聊天会话。
type Gemini struct {
	model *genai.GenerativeModel // Gemini 生成模型实例。
}

// NewGemini 创建一个新的 Gemini 客户端。
//
// 参数:
//
//	ctx: 上下文，用于控制客户端的生命周期。
//	model: 要使用的 Gemini 模型名称。
//	apiKey: Gemini API 密钥。
func NewGemini(ctx context.Context, model, apiKey string, opts ...option.ClientOption) (*Gemini, error) {
	// 使用 API 密钥创建 GenAI 客户端。
	opts = append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)
	client, err := genai.NewClient(ctx, opts...)
	if err != nil {
		return nil, err
	}
	return &Gemini{model: client.GenerativeModel(model)}, nil
}

// Generate 生成完整回答。
func (g *Gemini) Generate(ctx context.Context, prompt string) (string, error) {
	return collect(ctx, "gemini", g, prompt)
}

// GenerateStream 以流式方式生成回答。
func (g *Gemini) GenerateStream(ctx context.Context, prompt string, fn func(token string) error) error {
	if err := checkPrompt(prompt); err != nil {
		return err
	}

	iter := g.model.GenerateContentStream(ctx, genai.Text(prompt))
	for {
		resp, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			return nil
		}
		if err != nil {
			return generationError("gemini", err)
		}
		for _, cand := range resp.Candidates {
			if cand.Content == nil {
				continue
			}
			for _, part := range cand.Content.Parts {
				text, ok := part.(genai.Text)
				if !ok || text == "" {
					continue
				}
				if err := fn(string(text)); err != nil {
					return err
				}
			}
		}
	}
}

var _ LLM = (*Gemini)(nil)
