package llm

import (
	"DocQA/backend/go/internal/config"
	"DocQA/backend/go/internal/models"
	"context"
	"fmt"
	"strings"
)

// LLM 定义了所有大型语言模型客户端必须实现的通用接口。
type LLM interface {
	// Generate 返回完整的回答文本。
	Generate(ctx context.Context, prompt string) (string, error)
	// GenerateStream 逐段返回回答，每段调用一次 fn；fn 返回错误时停止生成。
	GenerateStream(ctx context.Context, prompt string, fn func(token string) error) error
}

// NewClient 是一个工厂函数，根据提供的配置创建并返回一个实现了 LLM 接口的客户端。
func NewClient(ctx context.Context, cfg config.LLMConfig) (LLM, error) {
	switch cfg.Provider {
	case config.ProviderOllama:
		return NewOllama(cfg.Ollama.Model, cfg.Ollama.BaseURL, cfg.Ollama.Timeout)
	case config.ProviderOpenAI:
		return NewOpenAI(cfg.OpenAI.Model, cfg.OpenAI.APIKey, cfg.OpenAI.BaseURL)
	case config.ProviderGemini:
		return NewGemini(ctx, cfg.Gemini.Model, cfg.Gemini.APIKey)
	default:
		return nil, fmt.Errorf("%w: unsupported LLM provider: %s", models.ErrInvalidConfiguration, cfg.Provider)
	}
}

// generationError 把上游错误包装为 ErrGenerationService，保留原始信息。
func generationError(provider string, err error) error {
	return fmt.Errorf("%w: %s: %v", models.ErrGenerationService, provider, err)
}

// collect 用 GenerateStream 拼出完整回答，空回答视为生成失败。
func collect(ctx context.Context, provider string, l LLM, prompt string) (string, error) {
	var sb strings.Builder
	if err := l.GenerateStream(ctx, prompt, func(token string) error {
		sb.WriteString(token)
		return nil
	}); err != nil {
		return "", err
	}
	answer := strings.TrimSpace(sb.String())
	if answer == "" {
		return "", generationError(provider, fmt.Errorf("model returned an empty completion"))
	}
	return answer, nil
}

func checkPrompt(prompt string) error {
	if strings.TrimSpace(prompt) == "" {
		return fmt.Errorf("%w: prompt is empty", models.ErrInvalidInput)
	}
	return nil
}
