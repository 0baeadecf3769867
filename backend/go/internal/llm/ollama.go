package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	olla "github.com/ollama/ollama/api"
)

// Ollama 是一个用于 Ollama API 的 LLM 客户端，调用 /api/generate。
type Ollama struct {
	client *olla.Client // Ollama 客户端实例。
	model  string       // 要使用的模型名称。
}

// NewOllama 创建一个新的 Ollama 客户端。
//
// 参数:
//
//	model: 要使用的模型名称。
//	baseURL: Ollama 服务的基准 URL。如果为空，则默认为 "http://localhost:11434"。
//	timeout: 单次生成的超时时间，为 0 时使用 300 秒。
//
// 返回值:
//
//	*Ollama: 新创建的 Ollama 客户端实例。
//	error: 如果基准 URL 无效，则返回错误。
func NewOllama(model, baseURL string, timeout time.Duration) (*Ollama, error) {
	// 如果 baseURL 为空，则使用默认地址。
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	if timeout <= 0 {
		timeout = 300 * time.Second
	}

	// 将字符串 URL 转换为 *url.URL。
	parsedURL, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}

	// 创建一个带有超时设置的 HTTP 客户端。
	hc := &http.Client{
		Timeout: timeout,
	}

	return &Ollama{client: olla.NewClient(parsedURL, hc), model: model}, nil
}

// Generate 以流式方式调用 Ollama，并把所有片段拼接为完整回答。
func (o *Ollama) Generate(ctx context.Context, prompt string) (string, error) {
	return collect(ctx, "ollama", o, prompt)
}

// GenerateStream 调用 Ollama 的流式生成接口，每收到一个片段调用一次 fn。
func (o *Ollama) GenerateStream(ctx context.Context, prompt string, fn func(token string) error) error {
	if err := checkPrompt(prompt); err != nil {
		return err
	}

	var fnErr error
	stream := true
	err := o.client.Generate(ctx, &olla.GenerateRequest{
		Model:  o.model,
		Prompt: prompt,
		Stream: &stream,
	}, func(resp olla.GenerateResponse) error {
		if resp.Response == "" {
			return nil
		}
		if err := fn(resp.Response); err != nil {
			fnErr = err
			return err
		}
		return nil
	})
	if fnErr != nil {
		return fnErr
	}
	if err != nil {
		var statusErr olla.StatusError
		if errors.As(err, &statusErr) {
			return generationError("ollama", fmt.Errorf("status %d: %s", statusErr.StatusCode, statusErr.ErrorMessage))
		}
		return generationError("ollama", err)
	}
	return nil
}

var _ LLM = (*Ollama)(nil)
