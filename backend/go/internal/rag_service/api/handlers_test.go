package api

import (
	"DocQA/backend/go/internal/models"
	"DocQA/backend/go/internal/rag_service/rag/schema"
	"DocQA/backend/go/internal/rag_service/service"
	"DocQA/backend/go/pkg/logger"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
	logger.SetOutput(io.Discard)
}

type fakeService struct {
	ingested  []service.IngestRequest
	asked     []service.AskRequest
	err       error
	answer    string
	tokens    []string
	streamErr error
	indexes   []string
}

func (f *fakeService) Ingest(ctx context.Context, req service.IngestRequest) (*service.IngestResult, error) {
	f.ingested = append(f.ingested, req)
	if f.err != nil {
		return nil, f.err
	}
	return &service.IngestResult{Message: "Pipeline completed successfully. Embeddings will be kept in-memory.", Index: req.IndexName}, nil
}

func (f *fakeService) Ask(ctx context.Context, req service.AskRequest) (*service.Answer, error) {
	f.asked = append(f.asked, req)
	if f.err != nil {
		return nil, f.err
	}
	return &service.Answer{Text: f.answer}, nil
}

func (f *fakeService) AskStream(ctx context.Context, req service.AskRequest, fn func(string) error) ([]*schema.Match, error) {
	f.asked = append(f.asked, req)
	if f.err != nil {
		return nil, f.err
	}
	for _, tok := range f.tokens {
		if err := fn(tok); err != nil {
			return nil, err
		}
	}
	return nil, f.streamErr
}

func (f *fakeService) ListIndexes(ctx context.Context) ([]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.indexes, nil
}

func newTestRouter(svc DocService, maxUpload int64) *gin.Engine {
	router := gin.New()
	RegisterRoutes(router, NewAPI(svc, logger.New("test"), maxUpload))
	return router
}

func multipartUpload(t *testing.T, url, fileName string, content []byte, fields map[string]string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	if fileName != "" {
		part, err := w.CreateFormFile("file", fileName)
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	}
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	require.NoError(t, w.Close())
	req := httptest.NewRequest(http.MethodPost, url, &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestUploadHandler(t *testing.T) {
	svc := &fakeService{}
	router := newTestRouter(svc, 1024)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, multipartUpload(t, "/upload_and_process_docx/", "notes.docx", []byte("docx bytes"), map[string]string{"index_name": "notes"}))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Pipeline completed successfully. Embeddings will be kept in-memory.", decode(t, rec)["message"])
	require.Len(t, svc.ingested, 1)
	assert.Equal(t, "notes.docx", svc.ingested[0].FileName)
	assert.Equal(t, "notes", svc.ingested[0].IndexName)
	assert.Equal(t, []byte("docx bytes"), svc.ingested[0].Content)
}

func TestUploadHandlerIndexFromQuery(t *testing.T) {
	svc := &fakeService{}
	router := newTestRouter(svc, 1024)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, multipartUpload(t, "/upload_and_process_docx/?index_name=handbook", "a.docx", []byte("x"), nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "handbook", svc.ingested[0].IndexName)
}

func TestUploadHandlerErrors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		rec := httptest.NewRecorder()
		newTestRouter(&fakeService{}, 1024).ServeHTTP(rec, multipartUpload(t, "/upload_and_process_docx/", "", nil, map[string]string{"index_name": "x"}))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, decode(t, rec)["detail"], "file")
	})

	t.Run("too large", func(t *testing.T) {
		svc := &fakeService{}
		rec := httptest.NewRecorder()
		newTestRouter(svc, 10).ServeHTTP(rec, multipartUpload(t, "/upload_and_process_docx/", "big.docx", bytes.Repeat([]byte("a"), 11), nil))
		assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
		assert.Empty(t, svc.ingested)
	})

	t.Run("corrupt document", func(t *testing.T) {
		svc := &fakeService{err: fmt.Errorf("%w: failed to extract text from DOCX", models.ErrInvalidInput)}
		rec := httptest.NewRecorder()
		newTestRouter(svc, 1024).ServeHTTP(rec, multipartUpload(t, "/upload_and_process_docx/", "bad.docx", []byte("x"), nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, decode(t, rec)["detail"], "failed to extract text from DOCX")
	})

	t.Run("store unavailable", func(t *testing.T) {
		svc := &fakeService{err: fmt.Errorf("%w: pinecone: 503", models.ErrVectorStore)}
		rec := httptest.NewRecorder()
		newTestRouter(svc, 1024).ServeHTTP(rec, multipartUpload(t, "/upload_and_process_docx/", "a.docx", []byte("x"), nil))
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		assert.Contains(t, decode(t, rec)["detail"], "pinecone: 503")
	})
}

func TestAskHandler(t *testing.T) {
	svc := &fakeService{answer: "Nine o'clock."}
	router := newTestRouter(svc, 1024)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/ask_document/", strings.NewReader(`{"query":"When?"}`)))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]interface{}{"answer": "Nine o'clock."}, decode(t, rec))
	require.Len(t, svc.asked, 1)
	assert.Equal(t, service.DefaultTopK, svc.asked[0].TopK)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/ask_document/", strings.NewReader(`{"query":"When?","top_k":2,"index_name":"lib"}`)))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2, svc.asked[1].TopK)
	assert.Equal(t, "lib", svc.asked[1].IndexName)
}

func TestAskHandlerErrors(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		err    error
		status int
	}{
		{"malformed json", `{"query":`, nil, http.StatusBadRequest},
		{"zero top_k", `{"query":"q","top_k":0}`, nil, http.StatusBadRequest},
		{"empty query", `{"query":""}`, fmt.Errorf("%w: query is empty", models.ErrInvalidInput), http.StatusBadRequest},
		{"store down", `{"query":"q"}`, fmt.Errorf("%w: timeout", models.ErrVectorStore), http.StatusServiceUnavailable},
		{"llm down", `{"query":"q"}`, fmt.Errorf("%w: ollama", models.ErrGenerationService), http.StatusServiceUnavailable},
		{"bad config", `{"query":"q"}`, fmt.Errorf("%w: no key", models.ErrInvalidConfiguration), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			newTestRouter(&fakeService{err: tt.err}, 1024).ServeHTTP(rec,
				httptest.NewRequest(http.MethodPost, "/ask_document/", strings.NewReader(tt.body)))
			assert.Equal(t, tt.status, rec.Code)
			assert.NotEmpty(t, decode(t, rec)["detail"])
		})
	}
}

func TestAskStreamHandler(t *testing.T) {
	svc := &fakeService{tokens: []string{"Nine", " o'clock."}}
	router := newTestRouter(svc, 1024)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/ask_document/stream/", strings.NewReader(`{"query":"When?"}`)))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	body := rec.Body.String()
	assert.Contains(t, body, "event:token\ndata:Nine\n")
	assert.Contains(t, body, "event:token\ndata: o'clock.\n")
	assert.Contains(t, body, "event:done")
	assert.Less(t, strings.Index(body, "Nine"), strings.Index(body, "event:done"))
}

func TestAskStreamHandlerErrors(t *testing.T) {
	// 尚未输出任何内容时返回普通 JSON 错误
	svc := &fakeService{err: fmt.Errorf("%w: timeout", models.ErrVectorStore)}
	rec := httptest.NewRecorder()
	newTestRouter(svc, 1024).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/ask_document/stream/", strings.NewReader(`{"query":"q"}`)))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	// 输出过程中失败时发送 error 事件
	svc = &fakeService{tokens: []string{"Half"}, streamErr: fmt.Errorf("%w: stream closed", models.ErrGenerationService)}
	rec = httptest.NewRecorder()
	newTestRouter(svc, 1024).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/ask_document/stream/", strings.NewReader(`{"query":"q"}`)))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "event:error")
	assert.NotContains(t, rec.Body.String(), "event:done")
}

func TestListIndexesHandler(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestRouter(&fakeService{indexes: []string{"a", "b"}}, 1024).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/list_indexes/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]interface{}{"available_indexes": []interface{}{"a", "b"}}, decode(t, rec))

	rec = httptest.NewRecorder()
	newTestRouter(&fakeService{err: fmt.Errorf("%w: unauthorized", models.ErrVectorStore)}, 1024).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/list_indexes/", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestHealthHandler(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestRouter(&fakeService{}, 1024).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHealthHandler_DependencyDown(t *testing.T) {
	calls := 0
	healthy := HealthCheck{Name: "milvus", Check: func(ctx context.Context) error {
		calls++
		return nil
	}}
	down := HealthCheck{Name: "milvus", Check: func(ctx context.Context) error {
		return fmt.Errorf("%w: connection refused", models.ErrVectorStore)
	}}

	router := gin.New()
	RegisterRoutes(router, NewAPI(&fakeService{}, logger.New("test"), 1024, healthy))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, calls)

	router = gin.New()
	RegisterRoutes(router, NewAPI(&fakeService{}, logger.New("test"), 1024, down))
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "milvus")
	assert.Contains(t, rec.Body.String(), "connection refused")
}
