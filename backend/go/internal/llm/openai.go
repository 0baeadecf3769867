package llm

import (
	"context"
	"errors"
	"io"

	openai "github.com/meguminnnnnnnnn/go-openai"
)

// OpenAI 是一个用于 OpenAI (及兼容) API 的 LLM 客户端。
type OpenAI struct {
	client *openai.Client // OpenAI 客户端实例。
	model  string         // 要使用的模型名称。
}

// NewOpenAI 创建一个新的 OpenAI 客户端。baseURL 为空时使用官方地址。
func NewOpenAI(model, apiKey, baseURL string) (*OpenAI, error) {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	return &OpenAI{
		client: openai.NewClientWithConfig(config),
		model:  model,
	}, nil
}

// Generate 使用 Chat Completion 接口生成完整回答。
func (o *OpenAI) Generate(ctx context.Context, prompt string) (string, error) {
	return collect(ctx, "openai", o, prompt)
}

// GenerateStream 使用流式 Chat Completion 接口生成回答。
func (o *OpenAI) GenerateStream(ctx context.Context, prompt string, fn func(token string) error) error {
	if err := checkPrompt(prompt); err != nil {
		return err
	}

	stream, err := o.client.CreateChatCompletionStream(ctx, openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Stream: true,
	})
	if err != nil {
		return generationError("openai", err)
	}
	defer stream.Close()

	for {
		resp, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return generationError("openai", err)
		}
		for _, choice := range resp.Choices {
			if choice.Delta.Content == "" {
				continue
			}
			if err := fn(choice.Delta.Content); err != nil {
				return err
			}
		}
	}
}

var _ LLM = (*OpenAI)(nil)
