package pipeline

import (
	"DocQA/backend/go/internal/rag_service/rag/schema"
	"context"
	"strings"
	"sync"
	"unicode"
)

// letterEmbedder 把文本映射为 26 维字母频率向量，相同文本得到相同向量。
type letterEmbedder struct {
	mu      sync.Mutex
	calls   int
	err     error
	queries []string
}

func (e *letterEmbedder) vector(text string) []float32 {
	v := make([]float32, 26)
	for _, r := range strings.ToLower(text) {
		if r >= 'a' && r <= 'z' {
			v[r-'a']++
		}
	}
	return v
}

func (e *letterEmbedder) EmbedDocument(ctx context.Context, text string) ([]float32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls++
	if e.err != nil {
		return nil, e.err
	}
	return e.vector(text), nil
}

func (e *letterEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.queries = append(e.queries, text)
	if e.err != nil {
		return nil, e.err
	}
	return e.vector(text), nil
}

// recordingStore 记录调用并把数据保存在内存里。
type recordingStore struct {
	ensured    map[string]int
	upserts    [][]schema.Record
	records    map[string][]schema.Record
	matches    []*schema.Match
	ensureErr  error
	upsertErr  error
	queryErr   error
	lastTopK   int
	lastVector []float32
}

func newRecordingStore() *recordingStore {
	return &recordingStore{ensured: map[string]int{}, records: map[string][]schema.Record{}}
}

func (s *recordingStore) EnsureIndex(ctx context.Context, index string, dimension int) error {
	if s.ensureErr != nil {
		return s.ensureErr
	}
	s.ensured[index] = dimension
	return nil
}

func (s *recordingStore) Upsert(ctx context.Context, index string, records []schema.Record) error {
	if s.upsertErr != nil {
		return s.upsertErr
	}
	s.upserts = append(s.upserts, records)
	s.records[index] = append(s.records[index], records...)
	return nil
}

func (s *recordingStore) Query(ctx context.Context, index string, vector []float32, topK int) ([]*schema.Match, error) {
	s.lastTopK = topK
	s.lastVector = vector
	if s.queryErr != nil {
		return nil, s.queryErr
	}
	return s.matches, nil
}

func (s *recordingStore) ListIndexes(ctx context.Context) ([]string, error) {
	names := make([]string, 0, len(s.records))
	for name := range s.records {
		names = append(names, name)
	}
	return names, nil
}

// echoLLM 按空格切分固定回答逐段输出，并记住收到的 prompt。
type echoLLM struct {
	answer  string
	err     error
	prompts []string
}

func (l *echoLLM) Generate(ctx context.Context, prompt string) (string, error) {
	l.prompts = append(l.prompts, prompt)
	if l.err != nil {
		return "", l.err
	}
	return l.answer, nil
}

func (l *echoLLM) GenerateStream(ctx context.Context, prompt string, fn func(token string) error) error {
	l.prompts = append(l.prompts, prompt)
	if l.err != nil {
		return l.err
	}
	for i, word := range strings.FieldsFunc(l.answer, unicode.IsSpace) {
		if i > 0 {
			word = " " + word
		}
		if err := fn(word); err != nil {
			return err
		}
	}
	return nil
}
