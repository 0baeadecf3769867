package splitters

import (
	"DocQA/backend/go/internal/models"
	"DocQA/backend/go/internal/rag_service/rag/interfaces"
	"DocQA/backend/go/internal/rag_service/rag/schema"
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/neurosnap/sentences"
	"github.com/neurosnap/sentences/english"
)

// SentenceSplitter 按字符 (rune) 计数切分文本，并尽量让块在句子边界处结束。
//
// 每个窗口最长 ChunkSize 个字符；若窗口内 (start+overlap, start+size] 范围中存在句子边界，
// 则在最后一个边界处截断。下一个窗口从 end-overlap 开始，因此相邻块恰好共享 overlap 个字符，
// 并且 chunk0 + chunk1[overlap:] + ... 等于原文。
type SentenceSplitter struct {
	ChunkSize    int
	ChunkOverlap int
	tokenizer    *sentences.DefaultSentenceTokenizer
}

// NewSentenceSplitter creates a new SentenceSplitter using the English punkt model.
func NewSentenceSplitter(chunkSize, chunkOverlap int) (*SentenceSplitter, error) {
	if err := validateWindow(chunkSize, chunkOverlap); err != nil {
		return nil, err
	}
	tokenizer, err := english.NewSentenceTokenizer(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to load sentence tokenizer: %w", err)
	}
	return &SentenceSplitter{
		ChunkSize:    chunkSize,
		ChunkOverlap: chunkOverlap,
		tokenizer:    tokenizer,
	}, nil
}

// Split splits every document into overlapping chunks. A blank document is an error.
func (s *SentenceSplitter) Split(ctx context.Context, docs []*schema.Document) ([]*schema.Document, error) {
	var chunks []*schema.Document
	for _, doc := range docs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		texts, offsets, err := s.SplitText(doc.Text)
		if err != nil {
			return nil, err
		}
		for i, text := range texts {
			chunks = append(chunks, newChunk(doc, i, offsets[i], text))
		}
	}
	if len(chunks) == 0 {
		return nil, fmt.Errorf("%w: no text to split", models.ErrInvalidInput)
	}
	return chunks, nil
}

// SplitText 返回切块文本以及每个块在原文中的起始字符偏移。
func (s *SentenceSplitter) SplitText(text string) ([]string, []int, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil, fmt.Errorf("%w: text is empty", models.ErrInvalidInput)
	}
	runes := []rune(text)
	n := len(runes)
	if n <= s.ChunkSize {
		return []string{text}, []int{0}, nil
	}

	boundaries := s.boundaries(text)

	var (
		texts   []string
		offsets []int
		start   int
		bi      int
	)
	for {
		end := start + s.ChunkSize
		if end >= n {
			texts = append(texts, string(runes[start:]))
			offsets = append(offsets, start)
			break
		}
		// 寻找 (start+overlap, end] 内最后一个句子边界。
		for bi < len(boundaries) && boundaries[bi] <= start+s.ChunkOverlap {
			bi++
		}
		best := -1
		for j := bi; j < len(boundaries) && boundaries[j] <= end; j++ {
			best = boundaries[j]
		}
		if best > 0 {
			end = best
		}
		texts = append(texts, string(runes[start:end]))
		offsets = append(offsets, start)
		start = end - s.ChunkOverlap
	}
	return texts, offsets, nil
}

// boundaries 返回所有句子结束位置 (以 rune 计) 的升序列表，不包含文本末尾。
func (s *SentenceSplitter) boundaries(text string) []int {
	var (
		result    []int
		byteIdx   int
		runeIdx   int
		textRunes = utf8.RuneCountInString(text)
	)
	for _, sent := range s.tokenizer.Tokenize(text) {
		needle := strings.TrimSpace(sent.Text)
		if needle == "" {
			continue
		}
		pos := strings.Index(text[byteIdx:], needle)
		if pos < 0 {
			continue
		}
		endByte := byteIdx + pos + len(needle)
		runeIdx += utf8.RuneCountInString(text[byteIdx:endByte])
		byteIdx = endByte
		if runeIdx < textRunes {
			result = append(result, runeIdx)
		}
	}
	return result
}

// compile-time check to ensure SentenceSplitter implements the Splitter interface
var _ interfaces.Splitter = (*SentenceSplitter)(nil)
