package loaders

import (
	"DocQA/backend/go/internal/models"
	"DocQA/backend/go/internal/rag_service/rag/interfaces"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// ForFile 根据文件扩展名选择 Loader。
func ForFile(name string) (interfaces.Loader, error) {
	switch ext := strings.ToLower(filepath.Ext(name)); ext {
	case ".docx":
		return NewDocxLoader(), nil
	case ".txt", ".md":
		return NewTxtLoader(), nil
	default:
		return nil, fmt.Errorf("%w: unsupported file type %q, only .docx, .txt and .md are accepted", models.ErrInvalidInput, ext)
	}
}

// documentID 为同名文件生成稳定的 ID，切块通过 original_doc_id 指回它。
// 切块 ID 还包含切块文本：内容不变的重复上传会覆盖原有记录，
// 内容变化后旧的切块仍留在索引中，不会被删除。
func documentID(name string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("docqa:"+name)).String()
}
