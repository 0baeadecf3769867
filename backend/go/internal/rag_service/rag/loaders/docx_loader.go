package loaders

import (
	"DocQA/backend/go/internal/models"
	"DocQA/backend/go/internal/rag_service/rag/interfaces"
	"DocQA/backend/go/internal/rag_service/rag/schema"
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"baliance.com/gooxml/document"
	"github.com/gabriel-vasile/mimetype"
)

// DocxLoader 实现了用于读取 Word (.docx) 文件的 Loader 接口。
type DocxLoader struct{}

// NewDocxLoader 创建一个新的 DocxLoader。
func NewDocxLoader() *DocxLoader {
	return &DocxLoader{}
}

// Load 解析 .docx 文件内容，按文档顺序提取段落文本，并返回一个 Document。
// 每个段落去掉首尾空白，空段落被跳过，段落之间用空行分隔。
func (l *DocxLoader) Load(ctx context.Context, name string, content []byte) ([]*schema.Document, error) {
	if len(content) == 0 {
		return nil, fmt.Errorf("%w: file %q is empty", models.ErrInvalidInput, name)
	}
	// docx 本质上是一个 zip 容器，先做一次内容嗅探，避免把任意字节交给解析器。
	if !isZipContainer(content) {
		return nil, fmt.Errorf("%w: file %q is not a valid docx document", models.ErrInvalidInput, name)
	}

	doc, err := document.Read(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to parse docx %q: %v", models.ErrInvalidInput, name, err)
	}

	// 提取所有段落的文本内容
	var paragraphs []string
	for _, p := range doc.Paragraphs() {
		var sb strings.Builder
		for _, r := range p.Runs() {
			sb.WriteString(r.Text())
		}
		if text := strings.TrimSpace(sb.String()); text != "" {
			paragraphs = append(paragraphs, text)
		}
	}
	if len(paragraphs) == 0 {
		return nil, fmt.Errorf("%w: no text could be extracted from %q", models.ErrInvalidInput, name)
	}

	return []*schema.Document{newDocument(name, strings.Join(paragraphs, "\n\n"))}, nil
}

// isZipContainer 判断内容是否为 zip 容器 (包括 docx 等 OOXML 格式)。
func isZipContainer(content []byte) bool {
	for m := mimetype.Detect(content); m != nil; m = m.Parent() {
		if m.Is("application/zip") {
			return true
		}
	}
	return false
}

func newDocument(name, text string) *schema.Document {
	base := filepath.Base(name)
	return &schema.Document{
		ID:   documentID(base),
		Text: text,
		Metadata: map[string]interface{}{
			schema.MetadataKeyFileName: base,
		},
	}
}

// 编译时检查，确保 DocxLoader 实现了 Loader 接口
var _ interfaces.Loader = (*DocxLoader)(nil)
