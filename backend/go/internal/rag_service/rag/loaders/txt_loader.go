package loaders

import (
	"DocQA/backend/go/internal/models"
	"DocQA/backend/go/internal/rag_service/rag/interfaces"
	"DocQA/backend/go/internal/rag_service/rag/schema"
	"context"
	"fmt"
	"strings"
	"unicode/utf8"
)

// TxtLoader implements the Loader interface for plain text and markdown uploads.
type TxtLoader struct{}

// NewTxtLoader creates a new TxtLoader.
func NewTxtLoader() *TxtLoader {
	return &TxtLoader{}
}

// Load returns the content as a single Document. Content must be valid UTF-8 and not blank.
func (l *TxtLoader) Load(ctx context.Context, name string, content []byte) ([]*schema.Document, error) {
	if !utf8.Valid(content) {
		return nil, fmt.Errorf("%w: file %q is not valid UTF-8 text", models.ErrInvalidInput, name)
	}
	text := strings.TrimSpace(string(content))
	if text == "" {
		return nil, fmt.Errorf("%w: no text could be extracted from %q", models.ErrInvalidInput, name)
	}
	return []*schema.Document{newDocument(name, text)}, nil
}

// compile-time check to ensure TxtLoader implements the Loader interface
var _ interfaces.Loader = (*TxtLoader)(nil)
