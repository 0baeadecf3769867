package config

import (
	"DocQA/backend/go/internal/models"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// 支持的组件提供商。
const (
	ProviderMemory   = "memory"
	ProviderPinecone = "pinecone"
	ProviderMilvus   = "milvus"
	ProviderOllama   = "ollama"
	ProviderOpenAI   = "openai"
	ProviderGemini   = "gemini"

	StrategySentence = "sentence"
	StrategyToken    = "token"
)

// AppInfo 对应 'app' 部分，包含应用程序的基本信息。
type AppInfo struct {
	Name  string `yaml:"name"`  // 应用程序名称
	Debug bool   `yaml:"debug"` // 调试模式，开启后日志级别强制为 debug
}

// LoggerConfig 定义了日志记录器的配置。
type LoggerConfig struct {
	Level string `yaml:"level"` // 日志级别 (例如: "info", "debug", "warn", "error")
}

// RateLimitConfig 定义了按客户端限流的配置。
type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled"`
	Rate    float64 `yaml:"rate"`  // 每秒允许的请求数
	Burst   int     `yaml:"burst"` // 令牌桶容量
}

// ServerConfig 定义了 HTTP 服务的配置。
type ServerConfig struct {
	Address        string          `yaml:"address"`        // 监听地址, 例如 ":8000"
	MaxUploadBytes int64           `yaml:"maxUploadBytes"` // 上传文件大小上限
	ReadTimeout    time.Duration   `yaml:"readTimeout"`
	WriteTimeout   time.Duration   `yaml:"writeTimeout"`
	RateLimit      RateLimitConfig `yaml:"rateLimit"`
}

// ChunkingConfig 定义了文本切分的配置。
type ChunkingConfig struct {
	Strategy     string `yaml:"strategy"`     // "sentence" (按字符计数) 或 "token"
	ChunkSize    int    `yaml:"chunkSize"`    // 每个块的最大长度
	ChunkOverlap int    `yaml:"chunkOverlap"` // 相邻块的重叠长度
	Encoding     string `yaml:"encoding"`     // token 策略使用的 tiktoken 编码
}

// PineconeConfig 包含 Pinecone 的连接配置，向量库和 Embedding 共用。
type PineconeConfig struct {
	APIKey string `yaml:"apiKey"`
	Cloud  string `yaml:"cloud"`  // serverless 云厂商, 例如 "aws"
	Region string `yaml:"region"` // serverless 区域, 例如 "us-east-1"
}

// OllamaConfig 包含 Ollama 服务的配置。
type OllamaConfig struct {
	BaseURL string        `yaml:"baseURL"`
	Model   string        `yaml:"model"`
	Timeout time.Duration `yaml:"timeout"`
}

// OpenAIConfig 包含 OpenAI 兼容接口的配置。
type OpenAIConfig struct {
	APIKey  string `yaml:"apiKey"`
	BaseURL string `yaml:"baseURL"`
	Model   string `yaml:"model"`
}

// GeminiConfig 包含了 Gemini 模型的配置。
type GeminiConfig struct {
	APIKey string `yaml:"apiKey"` // Gemini API 密钥
	Model  string `yaml:"model"`  // Gemini 模型名称
}

// EmbeddingConfig 包含了不同Embedding提供商的配置。
type EmbeddingConfig struct {
	Provider string `yaml:"provider"` // "pinecone", "ollama", "openai", "gemini"
	Model    string `yaml:"model"`    // 所选提供商使用的模型
	// Concurrency 是一次上传中同时进行的 Embedding 请求数，1 表示逐块顺序调用。
	Concurrency int          `yaml:"concurrency"`
	Ollama      OllamaConfig `yaml:"ollama"`
	OpenAI      OpenAIConfig `yaml:"openai"`
	Gemini      GeminiConfig `yaml:"gemini"`
}

// MilvusConfig 定义了 Milvus 数据库的连接配置。
type MilvusConfig struct {
	Address string `yaml:"address"` // Milvus 服务地址
}

// VectorStoreConfig 定义了向量库的配置。
type VectorStoreConfig struct {
	Provider        string         `yaml:"provider"`        // "memory", "pinecone", "milvus"
	DefaultIndex    string         `yaml:"defaultIndex"`    // 未指定索引时使用的索引名
	UpsertBatchSize int            `yaml:"upsertBatchSize"` // 每批写入的记录数
	Pinecone        PineconeConfig `yaml:"pinecone"`
	Milvus          MilvusConfig   `yaml:"milvus"`
}

// LLMConfig 包含了不同LLM提供商的配置。
type LLMConfig struct {
	Provider string       `yaml:"provider"` // "ollama", "openai" 或 "gemini"
	Ollama   OllamaConfig `yaml:"ollama"`
	OpenAI   OpenAIConfig `yaml:"openai"`
	Gemini   GeminiConfig `yaml:"gemini"`
}

// ClientConfig 是聊天客户端的配置。
type ClientConfig struct {
	BackendURL string `yaml:"backendURL"`
}

// AppConfig 是整个 YAML 文件的根结构，包含了应用程序的所有配置。
type AppConfig struct {
	App         AppInfo           `yaml:"app"`
	Logger      LoggerConfig      `yaml:"logger"`
	Server      ServerConfig      `yaml:"server"`
	Chunking    ChunkingConfig    `yaml:"chunking"`
	Embedding   EmbeddingConfig   `yaml:"embedding"`
	VectorStore VectorStoreConfig `yaml:"vectorStore"`
	LLM         LLMConfig         `yaml:"llm"`
	Client      ClientConfig      `yaml:"client"`
}

// Default 返回所有字段都使用默认值的配置。
func Default() *AppConfig {
	cfg := &AppConfig{}
	cfg.applyDefaults()
	return cfg
}

// LoadConfig 按以下顺序加载配置：YAML 文件 (可选)、.env 文件、环境变量、默认值，
// 最后做一次校验。
//
// 参数:
//
//	path: YAML 配置文件的路径。为空或文件不存在时跳过。
func LoadConfig(path string) (*AppConfig, error) {
	var cfg AppConfig
	if path != "" {
		yamlFile, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(yamlFile, &cfg); err != nil {
				return nil, fmt.Errorf("%w: 解析 YAML 文件失败: %v", models.ErrInvalidConfiguration, err)
			}
		case errors.Is(err, os.ErrNotExist):
		default:
			return nil, fmt.Errorf("无法读取 YAML 文件 '%s': %w", path, err)
		}
	}

	// .env 不存在不是错误。
	_ = godotenv.Load()

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *AppConfig) applyEnv() error {
	setString(&c.VectorStore.Pinecone.APIKey, "PINECONE_API_KEY")
	setString(&c.VectorStore.Pinecone.Region, "PINECONE_ENVIRONMENT")
	setString(&c.VectorStore.Pinecone.Cloud, "PINECONE_CLOUD")
	setString(&c.VectorStore.DefaultIndex, "PINECONE_INDEX_NAME")
	setString(&c.VectorStore.Provider, "VECTOR_STORE")
	setString(&c.VectorStore.Milvus.Address, "MILVUS_ADDRESS")

	setString(&c.LLM.Provider, "LLM_PROVIDER")
	setString(&c.LLM.Ollama.BaseURL, "OLLAMA_BASE_URL")
	setString(&c.LLM.Ollama.Model, "OLLAMA_MODEL")
	setString(&c.LLM.OpenAI.APIKey, "OPENAI_API_KEY")
	setString(&c.LLM.OpenAI.BaseURL, "OPENAI_BASE_URL")
	setString(&c.LLM.Gemini.APIKey, "GEMINI_API_KEY")

	yamlProvider := c.Embedding.Provider
	setString(&c.Embedding.Provider, "EMBEDDING_PROVIDER")
	setString(&c.Embedding.Model, "EMBEDDING_MODEL")
	// 环境变量换了提供商但没有指定模型时，YAML 里的模型属于原提供商，改用新提供商的默认模型。
	if _, ok := lookup("EMBEDDING_MODEL"); !ok && c.Embedding.Provider != yamlProvider {
		c.Embedding.Model = ""
	}
	setString(&c.Embedding.Ollama.BaseURL, "OLLAMA_BASE_URL")
	setString(&c.Embedding.OpenAI.APIKey, "OPENAI_API_KEY")
	setString(&c.Embedding.OpenAI.BaseURL, "OPENAI_BASE_URL")
	setString(&c.Embedding.Gemini.APIKey, "GEMINI_API_KEY")

	setString(&c.Server.Address, "SERVER_ADDRESS")
	setString(&c.Logger.Level, "LOG_LEVEL")
	setString(&c.Client.BackendURL, "RAG_BACKEND_URL")

	if err := setInt(&c.Chunking.ChunkSize, "CHUNK_SIZE"); err != nil {
		return err
	}
	if err := setInt(&c.Chunking.ChunkOverlap, "CHUNK_OVERLAP"); err != nil {
		return err
	}
	if err := setInt(&c.Embedding.Concurrency, "EMBEDDING_CONCURRENCY"); err != nil {
		return err
	}
	if v, ok := lookup("MAX_FILE_SIZE"); ok {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("%w: MAX_FILE_SIZE=%q: %v", models.ErrInvalidConfiguration, v, err)
		}
		c.Server.MaxUploadBytes = n
	}
	if v, ok := lookup("DEBUG"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%w: DEBUG=%q: %v", models.ErrInvalidConfiguration, v, err)
		}
		c.App.Debug = b
	}
	return nil
}

func (c *AppConfig) applyDefaults() {
	defaultString(&c.App.Name, "docqa")
	defaultString(&c.Logger.Level, "info")

	defaultString(&c.Server.Address, ":8000")
	if c.Server.MaxUploadBytes == 0 {
		c.Server.MaxUploadBytes = 10 << 20
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 60 * time.Second
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 10 * time.Minute
	}
	if c.Server.RateLimit.Rate == 0 {
		c.Server.RateLimit.Rate = 5
	}
	if c.Server.RateLimit.Burst == 0 {
		c.Server.RateLimit.Burst = 10
	}

	defaultString(&c.Chunking.Strategy, StrategySentence)
	// 只在块大小也未设置时使用默认重叠，允许显式配置 overlap=0。
	if c.Chunking.ChunkSize == 0 {
		c.Chunking.ChunkSize = 200
		if c.Chunking.ChunkOverlap == 0 {
			c.Chunking.ChunkOverlap = 20
		}
	}
	defaultString(&c.Chunking.Encoding, "cl100k_base")

	defaultString(&c.Embedding.Provider, ProviderPinecone)
	if c.Embedding.Model == "" {
		switch c.Embedding.Provider {
		case ProviderOllama:
			c.Embedding.Model = "nomic-embed-text"
		case ProviderOpenAI:
			c.Embedding.Model = "text-embedding-3-small"
		case ProviderGemini:
			c.Embedding.Model = "text-embedding-004"
		default:
			c.Embedding.Model = "multilingual-e5-large"
		}
	}
	defaultString(&c.Embedding.Ollama.BaseURL, "http://localhost:11434")
	if c.Embedding.Concurrency == 0 {
		c.Embedding.Concurrency = 1
	}

	defaultString(&c.VectorStore.Provider, ProviderMemory)
	defaultString(&c.VectorStore.DefaultIndex, "docqa")
	if c.VectorStore.UpsertBatchSize == 0 {
		c.VectorStore.UpsertBatchSize = 100
	}
	defaultString(&c.VectorStore.Pinecone.Cloud, "aws")
	defaultString(&c.VectorStore.Pinecone.Region, "us-east-1")
	defaultString(&c.VectorStore.Milvus.Address, "localhost:19530")

	defaultString(&c.LLM.Provider, ProviderOllama)
	defaultString(&c.LLM.Ollama.BaseURL, "http://localhost:11434")
	defaultString(&c.LLM.Ollama.Model, "tinyllama:latest")
	if c.LLM.Ollama.Timeout == 0 {
		c.LLM.Ollama.Timeout = 300 * time.Second
	}
	defaultString(&c.LLM.OpenAI.Model, "gpt-4o-mini")
	defaultString(&c.LLM.Gemini.Model, "gemini-1.5-flash")

	defaultString(&c.Client.BackendURL, "http://localhost:8000")
}

// Validate 检查配置是否自洽，失败时返回 ErrInvalidConfiguration。
func (c *AppConfig) Validate() error {
	ch := c.Chunking
	switch {
	case ch.ChunkSize <= 0:
		return invalid("chunk size must be positive, got %d", ch.ChunkSize)
	case ch.ChunkOverlap < 0:
		return invalid("chunk overlap must not be negative, got %d", ch.ChunkOverlap)
	case ch.ChunkOverlap >= ch.ChunkSize:
		return invalid("chunk overlap (%d) must be smaller than chunk size (%d)", ch.ChunkOverlap, ch.ChunkSize)
	}
	if ch.Strategy != StrategySentence && ch.Strategy != StrategyToken {
		return invalid("unknown chunking strategy %q", ch.Strategy)
	}
	if c.Server.MaxUploadBytes <= 0 {
		return invalid("max upload bytes must be positive")
	}
	if c.VectorStore.UpsertBatchSize <= 0 {
		return invalid("upsert batch size must be positive")
	}

	switch c.VectorStore.Provider {
	case ProviderMemory, ProviderMilvus:
	case ProviderPinecone:
		if c.VectorStore.Pinecone.APIKey == "" {
			return invalid("PINECONE_API_KEY is required for the pinecone vector store")
		}
	default:
		return invalid("unknown vector store provider %q", c.VectorStore.Provider)
	}

	if c.Embedding.Concurrency < 0 {
		return invalid("embedding concurrency must not be negative, got %d", c.Embedding.Concurrency)
	}
	switch c.Embedding.Provider {
	case ProviderOllama:
	case ProviderPinecone:
		if c.VectorStore.Pinecone.APIKey == "" {
			return invalid("PINECONE_API_KEY is required for pinecone embeddings")
		}
	case ProviderOpenAI:
		if c.Embedding.OpenAI.APIKey == "" {
			return invalid("OPENAI_API_KEY is required for openai embeddings")
		}
	case ProviderGemini:
		if c.Embedding.Gemini.APIKey == "" {
			return invalid("GEMINI_API_KEY is required for gemini embeddings")
		}
	default:
		return invalid("unknown embedding provider %q", c.Embedding.Provider)
	}

	switch c.LLM.Provider {
	case ProviderOllama:
	case ProviderOpenAI:
		if c.LLM.OpenAI.APIKey == "" {
			return invalid("OPENAI_API_KEY is required for the openai llm")
		}
	case ProviderGemini:
		if c.LLM.Gemini.APIKey == "" {
			return invalid("GEMINI_API_KEY is required for the gemini llm")
		}
	default:
		return invalid("unknown llm provider %q", c.LLM.Provider)
	}
	return nil
}

func invalid(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", models.ErrInvalidConfiguration, fmt.Sprintf(format, args...))
}

func lookup(key string) (string, bool) {
	v, ok := os.LookupEnv(key)
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	return v, v != ""
}

func setString(dst *string, key string) {
	if v, ok := lookup(key); ok {
		*dst = v
	}
}

func setInt(dst *int, key string) error {
	v, ok := lookup(key)
	if !ok {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%w: %s=%q: %v", models.ErrInvalidConfiguration, key, v, err)
	}
	*dst = n
	return nil
}

func defaultString(dst *string, def string) {
	if *dst == "" {
		*dst = def
	}
}
