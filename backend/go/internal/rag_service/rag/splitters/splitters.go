package splitters

import (
	"DocQA/backend/go/internal/config"
	"DocQA/backend/go/internal/models"
	"DocQA/backend/go/internal/rag_service/rag/interfaces"
	"DocQA/backend/go/internal/rag_service/rag/schema"
	"fmt"
	"strconv"

	"github.com/google/uuid"
)

const previewLength = 100

// New 根据切分配置创建 Splitter。overlap >= chunkSize 时返回 ErrInvalidConfiguration。
func New(cfg config.ChunkingConfig) (interfaces.Splitter, error) {
	switch cfg.Strategy {
	case "", config.StrategySentence:
		return NewSentenceSplitter(cfg.ChunkSize, cfg.ChunkOverlap)
	case config.StrategyToken:
		return NewTokenSplitter(cfg.ChunkSize, cfg.ChunkOverlap, cfg.Encoding)
	default:
		return nil, fmt.Errorf("%w: unknown chunking strategy %q", models.ErrInvalidConfiguration, cfg.Strategy)
	}
}

func validateWindow(chunkSize, chunkOverlap int) error {
	switch {
	case chunkSize <= 0:
		return fmt.Errorf("%w: chunk size must be positive, got %d", models.ErrInvalidConfiguration, chunkSize)
	case chunkOverlap < 0:
		return fmt.Errorf("%w: chunk overlap must not be negative, got %d", models.ErrInvalidConfiguration, chunkOverlap)
	case chunkOverlap >= chunkSize:
		return fmt.Errorf("%w: chunk overlap (%d) must be smaller than chunk size (%d)", models.ErrInvalidConfiguration, chunkOverlap, chunkSize)
	}
	return nil
}

// newChunk 构造一个切块，ID 由来源文件、序号和文本决定，重复导入同一文档会得到相同的 ID。
func newChunk(doc *schema.Document, index, offset int, text string) *schema.Document {
	md := copyMetadata(doc.Metadata)
	source, _ := md[schema.MetadataKeyFileName].(string)
	id := uuid.NewSHA1(uuid.NameSpaceOID, []byte(source+"\x00"+strconv.Itoa(index)+"\x00"+text)).String()

	runes := []rune(text)
	preview := text
	if len(runes) > previewLength {
		preview = string(runes[:previewLength]) + "..."
	}

	md[schema.MetadataKeyChunkID] = id
	md[schema.MetadataKeyChunkIndex] = index
	md[schema.MetadataKeyStartOffset] = offset
	md[schema.MetadataKeyChunkSize] = len(runes)
	md[schema.MetadataKeyChunkPreview] = preview
	md[schema.MetadataKeyOriginalDocID] = doc.ID

	return &schema.Document{
		ID:       id,
		Text:     text,
		Metadata: md,
	}
}

func copyMetadata(md map[string]interface{}) map[string]interface{} {
	newMd := make(map[string]interface{}, len(md)+6)
	for k, v := range md {
		newMd[k] = v
	}
	return newMd
}
