package splitters

import (
	"DocQA/backend/go/internal/models"
	"DocQA/backend/go/internal/rag_service/rag/interfaces"
	"DocQA/backend/go/internal/rag_service/rag/schema"
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"
)

// tokenCodec is the part of *tiktoken.Tiktoken the splitter needs.
type tokenCodec interface {
	Encode(text string, allowedSpecial []string, disallowedSpecial []string) []int
	Decode(tokens []int) string
}

// TokenSplitter implements the Splitter interface to split documents based on token count.
//
// cl100k_base 是字节级 BPE，一个多字节字符可能被拆到两个 token 中。
// 窗口只在解码后落在完整字符边界的 token 下标处切开，所以每个块都是合法的 UTF-8；
// 相邻块共享 [next start, end) 这段 token，通常恰好是 ChunkOverlap 个。
type TokenSplitter struct {
	ChunkSize    int
	ChunkOverlap int
	tokenizer    tokenCodec
}

// NewTokenSplitter creates a new TokenSplitter.
// encoding defaults to "cl100k_base", the tokenizer of gpt-4 and text-embedding-ada-002.
func NewTokenSplitter(chunkSize, chunkOverlap int, encoding string) (*TokenSplitter, error) {
	if err := validateWindow(chunkSize, chunkOverlap); err != nil {
		return nil, err
	}
	if encoding == "" {
		encoding = "cl100k_base"
	}
	tke, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return nil, fmt.Errorf("failed to get tiktoken encoding: %w", err)
	}
	return newTokenSplitter(chunkSize, chunkOverlap, tke), nil
}

func newTokenSplitter(chunkSize, chunkOverlap int, codec tokenCodec) *TokenSplitter {
	return &TokenSplitter{
		ChunkSize:    chunkSize,
		ChunkOverlap: chunkOverlap,
		tokenizer:    codec,
	}
}

// Split splits a list of documents into smaller chunks based on the token size.
func (s *TokenSplitter) Split(ctx context.Context, docs []*schema.Document) ([]*schema.Document, error) {
	var chunks []*schema.Document

	for _, doc := range docs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if strings.TrimSpace(doc.Text) == "" {
			return nil, fmt.Errorf("%w: text is empty", models.ErrInvalidInput)
		}
		tokens := s.tokenizer.Encode(doc.Text, nil, nil)
		for i, w := range s.windows(s.cutPoints(tokens)) {
			// Decode the chunk of tokens back to text
			chunkText := s.tokenizer.Decode(tokens[w[0]:w[1]])
			chunks = append(chunks, newChunk(doc, i, w[0], chunkText))
		}
	}
	if len(chunks) == 0 {
		return nil, fmt.Errorf("%w: no text to split", models.ErrInvalidInput)
	}
	return chunks, nil
}

// cutPoints 返回长度为 len(tokens)+1 的切片，safe[i] 表示 tokens[:i] 解码后结束在完整字符上。
func (s *TokenSplitter) cutPoints(tokens []int) []bool {
	pieces := make([]string, len(tokens))
	for i, tok := range tokens {
		pieces[i] = s.tokenizer.Decode([]int{tok})
	}
	decoded := strings.Join(pieces, "")

	safe := make([]bool, len(tokens)+1)
	offset := 0
	for i, p := range pieces {
		safe[i] = offset >= len(decoded) || utf8.RuneStart(decoded[offset])
		offset += len(p)
	}
	safe[len(tokens)] = true
	return safe
}

// windows returns the [start, end) token ranges; both ends are safe cut points.
func (s *TokenSplitter) windows(safe []bool) [][2]int {
	n := len(safe) - 1
	var out [][2]int
	for start := 0; start < n; {
		end := start + s.ChunkSize
		if end >= n {
			out = append(out, [2]int{start, n})
			break
		}
		end = snapCut(safe, end, start+1, n)
		out = append(out, [2]int{start, end})
		if end == n {
			break
		}
		start = snapCut(safe, end-s.ChunkOverlap, start+1, end)
	}
	return out
}

// snapCut 返回 [lo, hi] 中离 i 最近的安全切点，先向小的方向找。hi 必须是安全切点。
func snapCut(safe []bool, i, lo, hi int) int {
	if i < lo {
		i = lo
	}
	for j := i; j >= lo; j-- {
		if safe[j] {
			return j
		}
	}
	for j := i + 1; j <= hi; j++ {
		if safe[j] {
			return j
		}
	}
	return hi
}

// compile-time check to ensure TokenSplitter implements the Splitter interface
var _ interfaces.Splitter = (*TokenSplitter)(nil)
var _ tokenCodec = (*tiktoken.Tiktoken)(nil)
