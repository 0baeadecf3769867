package config

import (
	"DocQA/backend/go/internal/models"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv 清空会影响配置的环境变量，测试结束后由 t.Setenv 自动恢复。
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"PINECONE_API_KEY", "PINECONE_ENVIRONMENT", "PINECONE_CLOUD", "PINECONE_INDEX_NAME",
		"OLLAMA_BASE_URL", "OLLAMA_MODEL", "CHUNK_SIZE", "CHUNK_OVERLAP", "MAX_FILE_SIZE",
		"DEBUG", "RAG_BACKEND_URL", "VECTOR_STORE", "EMBEDDING_PROVIDER", "EMBEDDING_MODEL", "EMBEDDING_CONCURRENCY",
		"MILVUS_ADDRESS", "OPENAI_API_KEY", "OPENAI_BASE_URL", "GEMINI_API_KEY",
		"LLM_PROVIDER", "SERVER_ADDRESS", "LOG_LEVEL",
	} {
		t.Setenv(key, "")
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, ":8000", cfg.Server.Address)
	assert.Equal(t, StrategySentence, cfg.Chunking.Strategy)
	assert.Equal(t, 200, cfg.Chunking.ChunkSize)
	assert.Equal(t, 20, cfg.Chunking.ChunkOverlap)
	assert.Equal(t, ProviderMemory, cfg.VectorStore.Provider)
	assert.Equal(t, 100, cfg.VectorStore.UpsertBatchSize)
	assert.Equal(t, ProviderPinecone, cfg.Embedding.Provider)
	assert.Equal(t, "multilingual-e5-large", cfg.Embedding.Model)
	assert.Equal(t, 1, cfg.Embedding.Concurrency)
	assert.Equal(t, "tinyllama:latest", cfg.LLM.Ollama.Model)
	assert.Equal(t, 300*time.Second, cfg.LLM.Ollama.Timeout)
	assert.Equal(t, "aws", cfg.VectorStore.Pinecone.Cloud)
	assert.Equal(t, "us-east-1", cfg.VectorStore.Pinecone.Region)
}

func TestLoadConfigFromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("PINECONE_API_KEY", "pc-key")
	t.Setenv("PINECONE_INDEX_NAME", "handbook")
	t.Setenv("CHUNK_SIZE", "100")
	t.Setenv("CHUNK_OVERLAP", "0")
	t.Setenv("OLLAMA_MODEL", "llama3")
	t.Setenv("DEBUG", "true")

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, "pc-key", cfg.VectorStore.Pinecone.APIKey)
	assert.Equal(t, "handbook", cfg.VectorStore.DefaultIndex)
	assert.Equal(t, 100, cfg.Chunking.ChunkSize)
	assert.Equal(t, 0, cfg.Chunking.ChunkOverlap)
	assert.Equal(t, "llama3", cfg.LLM.Ollama.Model)
	assert.True(t, cfg.App.Debug)
}

func TestLoadConfigFromYAML(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
chunking:
  chunkSize: 300
  chunkOverlap: 30
embedding:
  provider: ollama
vectorStore:
  provider: milvus
  milvus:
    address: milvus:19530
llm:
  ollama:
    timeout: 90s
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 300, cfg.Chunking.ChunkSize)
	assert.Equal(t, 30, cfg.Chunking.ChunkOverlap)
	assert.Equal(t, ProviderOllama, cfg.Embedding.Provider)
	assert.Equal(t, "nomic-embed-text", cfg.Embedding.Model)
	assert.Equal(t, "milvus:19530", cfg.VectorStore.Milvus.Address)
	assert.Equal(t, 90*time.Second, cfg.LLM.Ollama.Timeout)
}

func TestLoadConfigEnvProviderResetsYAMLModel(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
embedding:
  provider: pinecone
  model: multilingual-e5-large
vectorStore:
  pinecone:
    apiKey: pc-key
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	t.Setenv("EMBEDDING_PROVIDER", "ollama")
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, ProviderOllama, cfg.Embedding.Provider)
	assert.Equal(t, "nomic-embed-text", cfg.Embedding.Model)

	t.Setenv("EMBEDDING_MODEL", "mxbai-embed-large")
	cfg, err = LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "mxbai-embed-large", cfg.Embedding.Model)

	// 提供商没有变化时保留 YAML 中的模型。
	t.Setenv("EMBEDDING_PROVIDER", "pinecone")
	t.Setenv("EMBEDDING_MODEL", "")
	cfg, err = LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "multilingual-e5-large", cfg.Embedding.Model)
}

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("EMBEDDING_PROVIDER", "ollama")

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 200, cfg.Chunking.ChunkSize)
}

func TestLoadConfigRejectsBadNumbers(t *testing.T) {
	clearEnv(t)
	t.Setenv("CHUNK_SIZE", "abc")

	_, err := LoadConfig("")
	assert.ErrorIs(t, err, models.ErrInvalidConfiguration)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *AppConfig)
	}{
		{"overlap equals size", func(c *AppConfig) { c.Chunking.ChunkOverlap = c.Chunking.ChunkSize }},
		{"overlap larger than size", func(c *AppConfig) { c.Chunking.ChunkOverlap = c.Chunking.ChunkSize + 1 }},
		{"negative overlap", func(c *AppConfig) { c.Chunking.ChunkOverlap = -1 }},
		{"zero size", func(c *AppConfig) { c.Chunking.ChunkSize = 0 }},
		{"unknown strategy", func(c *AppConfig) { c.Chunking.Strategy = "paragraph" }},
		{"unknown store", func(c *AppConfig) { c.VectorStore.Provider = "qdrant" }},
		{"pinecone store without key", func(c *AppConfig) { c.VectorStore.Provider = ProviderPinecone }},
		{"openai llm without key", func(c *AppConfig) { c.LLM.Provider = ProviderOpenAI }},
		{"gemini embedding without key", func(c *AppConfig) { c.Embedding.Provider = ProviderGemini }},
		{"unknown llm", func(c *AppConfig) { c.LLM.Provider = "bard" }},
		{"negative embedding concurrency", func(c *AppConfig) { c.Embedding.Concurrency = -1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.Embedding.Provider = ProviderOllama
			tt.mutate(cfg)
			assert.ErrorIs(t, cfg.Validate(), models.ErrInvalidConfiguration)
		})
	}

	cfg := Default()
	cfg.Embedding.Provider = ProviderOllama
	assert.NoError(t, cfg.Validate())
}
