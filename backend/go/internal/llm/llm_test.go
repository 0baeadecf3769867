package llm

import (
	"DocQA/backend/go/internal/config"
	"DocQA/backend/go/internal/models"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newGenerateServer 模拟 Ollama 的 /api/generate 接口，按 NDJSON 逐行返回 tokens。
func newGenerateServer(t *testing.T, tokens ...string) (*httptest.Server, *string) {
	t.Helper()
	var gotPrompt string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			http.NotFound(w, r)
			return
		}
		var req struct {
			Model  string `json:"model"`
			Prompt string `json:"prompt"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		gotPrompt = req.Prompt

		w.Header().Set("Content-Type", "application/x-ndjson")
		enc := json.NewEncoder(w)
		for _, tok := range tokens {
			enc.Encode(map[string]interface{}{"model": req.Model, "response": tok, "done": false})
		}
		enc.Encode(map[string]interface{}{"model": req.Model, "response": "", "done": true})
	}))
	return srv, &gotPrompt
}

func TestOllama_Generate(t *testing.T) {
	srv, prompt := newGenerateServer(t, "Paris", " is", " the capital.")
	defer srv.Close()

	o, err := NewOllama("tinyllama:latest", srv.URL, time.Second)
	require.NoError(t, err)

	answer, err := o.Generate(context.Background(), "What is the capital of France?")
	require.NoError(t, err)
	assert.Equal(t, "Paris is the capital.", answer)
	assert.Equal(t, "What is the capital of France?", *prompt)
}

func TestOllama_GenerateStream(t *testing.T) {
	srv, _ := newGenerateServer(t, "a", "b", "c")
	defer srv.Close()

	o, err := NewOllama("tinyllama:latest", srv.URL, time.Second)
	require.NoError(t, err)

	var got []string
	err = o.GenerateStream(context.Background(), "q", func(token string) error {
		got = append(got, token)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, got)

	// fn 返回错误时停止生成并原样返回。
	stop := errors.New("client went away")
	err = o.GenerateStream(context.Background(), "q", func(token string) error { return stop })
	assert.ErrorIs(t, err, stop)
}

func TestOllama_EmptyCompletion(t *testing.T) {
	srv, _ := newGenerateServer(t, "  ")
	defer srv.Close()

	o, err := NewOllama("tinyllama:latest", srv.URL, time.Second)
	require.NoError(t, err)

	_, err = o.Generate(context.Background(), "q")
	assert.ErrorIs(t, err, models.ErrGenerationService)
}

func TestOllama_Errors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":"model 'tinyllama:latest' not found"}`))
	}))
	defer srv.Close()

	o, err := NewOllama("tinyllama:latest", srv.URL, time.Second)
	require.NoError(t, err)

	_, err = o.Generate(context.Background(), "q")
	assert.ErrorIs(t, err, models.ErrGenerationService)
	assert.ErrorIs(t, err, models.ErrServiceUnavailable)
	assert.Contains(t, err.Error(), "not found")

	_, err = o.Generate(context.Background(), "  ")
	assert.ErrorIs(t, err, models.ErrInvalidInput)

	url := srv.URL
	srv.Close()
	o, err = NewOllama("tinyllama:latest", url, time.Second)
	require.NoError(t, err)
	_, err = o.Generate(context.Background(), "q")
	assert.ErrorIs(t, err, models.ErrGenerationService)
}

func TestOpenAI_GenerateStream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		w.Header().Set("Content-Type", "text/event-stream")
		for _, tok := range []string{"Hello", ", world"} {
			chunk := fmt.Sprintf(`{"id":"c1","object":"chat.completion.chunk","model":"gpt-4o-mini","choices":[{"index":0,"delta":{"content":%q}}]}`, tok)
			fmt.Fprintf(w, "data: %s\n\n", chunk)
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer srv.Close()

	o, err := NewOpenAI("gpt-4o-mini", "sk-test", srv.URL+"/v1")
	require.NoError(t, err)

	answer, err := o.Generate(context.Background(), "say hello")
	require.NoError(t, err)
	assert.Equal(t, "Hello, world", answer)
}

func TestNewClient(t *testing.T) {
	l, err := NewClient(context.Background(), config.LLMConfig{
		Provider: config.ProviderOllama,
		Ollama:   config.OllamaConfig{Model: "tinyllama:latest"},
	})
	require.NoError(t, err)
	assert.IsType(t, &Ollama{}, l)

	_, err = NewClient(context.Background(), config.LLMConfig{Provider: "bard"})
	assert.ErrorIs(t, err, models.ErrInvalidConfiguration)
	assert.True(t, strings.Contains(err.Error(), "bard"))
}
