package api

import (
	"DocQA/backend/go/internal/models"
	"DocQA/backend/go/internal/rag_service/rag/schema"
	"DocQA/backend/go/internal/rag_service/service"
	"DocQA/backend/go/pkg/logger"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
)

// multipartOverhead 是 multipart 编码本身允许占用的额外字节数。
const multipartOverhead = 1 << 20

// DocService 是 API 依赖的业务接口，由 *service.Service 实现。
type DocService interface {
	Ingest(ctx context.Context, req service.IngestRequest) (*service.IngestResult, error)
	Ask(ctx context.Context, req service.AskRequest) (*service.Answer, error)
	AskStream(ctx context.Context, req service.AskRequest, fn func(token string) error) ([]*schema.Match, error)
	ListIndexes(ctx context.Context) ([]string, error)
}

// HealthCheck 检查一个外部依赖，任何一个失败时 /healthz 返回 503。
type HealthCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// API provides handlers for the document QA service.
type API struct {
	service        DocService
	logger         *logger.Logger
	maxUploadBytes int64
	checks         []HealthCheck
}

// NewAPI creates a new API handler.
func NewAPI(svc DocService, logger *logger.Logger, maxUploadBytes int64, checks ...HealthCheck) *API {
	return &API{
		service:        svc,
		logger:         logger,
		maxUploadBytes: maxUploadBytes,
		checks:         checks,
	}
}

type askPayload struct {
	Query     string `json:"query"`
	TopK      *int   `json:"top_k"`
	IndexName string `json:"index_name"`
}

// UploadHandler handles a multipart DOCX upload and runs the indexing pipeline on it.
func (a *API) UploadHandler(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, a.maxUploadBytes+multipartOverhead)

	header, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			a.abort(c, http.StatusRequestEntityTooLarge, fmt.Errorf("%w: file exceeds the %d byte upload limit", models.ErrInvalidInput, a.maxUploadBytes))
			return
		}
		a.abort(c, http.StatusBadRequest, fmt.Errorf("%w: multipart field 'file' is required", models.ErrInvalidInput))
		return
	}
	if header.Size > a.maxUploadBytes {
		a.abort(c, http.StatusRequestEntityTooLarge, fmt.Errorf("%w: file exceeds the %d byte upload limit", models.ErrInvalidInput, a.maxUploadBytes))
		return
	}

	f, err := header.Open()
	if err != nil {
		a.abort(c, http.StatusBadRequest, fmt.Errorf("%w: cannot open uploaded file: %v", models.ErrInvalidInput, err))
		return
	}
	defer f.Close()
	content, err := io.ReadAll(f)
	if err != nil {
		a.abort(c, http.StatusBadRequest, fmt.Errorf("%w: cannot read uploaded file: %v", models.ErrInvalidInput, err))
		return
	}

	indexName := c.PostForm("index_name")
	if indexName == "" {
		indexName = c.Query("index_name")
	}

	a.logger.WithPayload(map[string]interface{}{
		"file_name":  header.Filename,
		"size":       len(content),
		"index_name": indexName,
	}).Info("Processing upload")

	res, err := a.service.Ingest(c.Request.Context(), service.IngestRequest{
		FileName:  header.Filename,
		Content:   content,
		IndexName: indexName,
	})
	if err != nil {
		a.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": res.Message})
}

// AskHandler answers a question against the indexed document.
func (a *API) AskHandler(c *gin.Context) {
	req, ok := a.bindAsk(c)
	if !ok {
		return
	}

	answer, err := a.service.Ask(c.Request.Context(), req)
	if err != nil {
		a.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"answer": answer.Text})
}

// AskStreamHandler answers a question and streams the answer as Server-Sent Events:
// one "token" event per fragment followed by "done", or an "error" event.
func (a *API) AskStreamHandler(c *gin.Context) {
	req, ok := a.bindAsk(c)
	if !ok {
		return
	}

	started := false
	_, err := a.service.AskStream(c.Request.Context(), req, func(token string) error {
		if !started {
			c.Header("Content-Type", "text/event-stream")
			c.Header("Cache-Control", "no-cache")
			c.Header("Connection", "keep-alive")
			started = true
		}
		c.SSEvent("token", token)
		c.Writer.Flush()
		return c.Request.Context().Err()
	})
	if err != nil {
		if !started {
			a.fail(c, err)
			return
		}
		_ = c.Error(err)
		a.logger.WithError(models.NewErrorInfo(err)).Warn("Answer stream aborted")
		c.SSEvent("error", err.Error())
		c.Writer.Flush()
		return
	}
	c.SSEvent("done", "")
	c.Writer.Flush()
}

// ListIndexesHandler lists the indexes of the configured vector store.
func (a *API) ListIndexesHandler(c *gin.Context) {
	names, err := a.service.ListIndexes(c.Request.Context())
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"available_indexes": names})
}

// HealthHandler reports whether the process and its configured dependencies are reachable.
func (a *API) HealthHandler(c *gin.Context) {
	for _, hc := range a.checks {
		if err := hc.Check(c.Request.Context()); err != nil {
			a.logger.WithField("dependency", hc.Name).WithError(models.NewErrorInfo(err)).Warn("Health check failed")
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "detail": fmt.Sprintf("%s: %v", hc.Name, err)})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (a *API) bindAsk(c *gin.Context) (service.AskRequest, bool) {
	var payload askPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		a.abort(c, http.StatusBadRequest, fmt.Errorf("%w: invalid request payload: %v", models.ErrInvalidInput, err))
		return service.AskRequest{}, false
	}
	topK := service.DefaultTopK
	if payload.TopK != nil {
		if *payload.TopK <= 0 {
			a.abort(c, http.StatusBadRequest, fmt.Errorf("%w: top_k must be positive, got %d", models.ErrInvalidInput, *payload.TopK))
			return service.AskRequest{}, false
		}
		topK = *payload.TopK
	}
	return service.AskRequest{Query: payload.Query, TopK: topK, IndexName: payload.IndexName}, true
}

// fail 根据错误分类选择状态码。
func (a *API) fail(c *gin.Context, err error) {
	a.abort(c, models.HTTPStatus(err), err)
}

// abort 记录错误并返回 {"detail": ...}，RequestLogger 会把 c.Errors 写入日志。
func (a *API) abort(c *gin.Context, status int, err error) {
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, gin.H{"detail": err.Error()})
}
