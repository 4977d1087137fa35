package handlers

import (
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feichai0017/rag-tuner/internal/models"
	"github.com/feichai0017/rag-tuner/internal/repository"
	"github.com/feichai0017/rag-tuner/internal/schema"
	"github.com/feichai0017/rag-tuner/internal/service"
	"github.com/feichai0017/rag-tuner/pkg/logger"
	"github.com/feichai0017/rag-tuner/pkg/queue"
)

// stubService 按预设行为响应, 只覆盖测试用到的方法
type stubService struct {
	doc    *models.Document
	params *schema.ConfigParams
	result *models.StageResult
	err    error
}

func (s *stubService) Upload(ctx context.Context, file *multipart.FileHeader) (*models.Document, error) {
	return s.doc, s.err
}

func (s *stubService) List(ctx context.Context, filter repository.ListFilter) ([]*models.Document, int, error) {
	if s.err != nil {
		return nil, 0, s.err
	}
	return []*models.Document{s.doc}, 1, nil
}

func (s *stubService) Get(ctx context.Context, id int64) (*models.Document, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.doc, nil
}

func (s *stubService) Delete(ctx context.Context, id int64) error { return s.err }

func (s *stubService) StageConfig(ctx context.Context, id int64, stage models.Stage) (*schema.ConfigParams, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.params, nil
}

func (s *stubService) RunStage(ctx context.Context, id int64, stage models.Stage, values schema.FormValues) (*models.StageResult, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

func (s *stubService) StageResult(ctx context.Context, id int64, stage models.Stage) (*models.StageResult, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

func (s *stubService) Reprocess(ctx context.Context, id int64, stages []string, config map[string]interface{}) (string, error) {
	return "task-1", s.err
}

func (s *stubService) TaskStatus(ctx context.Context, taskID string) (*queue.TaskStatus, error) {
	return &queue.TaskStatus{TaskID: taskID, Status: "pending"}, s.err
}

func (s *stubService) RunTask(ctx context.Context, task *queue.Task, progress func(string, int, int)) error {
	return s.err
}

func (s *stubService) CleanupStorage(ctx context.Context) error { return s.err }

func newTestRouter(svc service.DocumentService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	log := logger.NewTestLogger()
	h := NewStageHandler(svc, log)
	r.GET("/documents/:id/chunk-config", h.Config(models.StageChunk))
	r.POST("/documents/:id/chunks", h.Run(models.StageChunk))
	r.GET("/documents/:id/results/:stage", h.Result)
	return r
}

func doRequest(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestStageConfigEnvelope(t *testing.T) {
	svc := &stubService{params: schema.ChunkConfig()}
	w := doRequest(newTestRouter(svc), http.MethodGet, "/documents/7/chunk-config", "")

	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Code    int                 `json:"code"`
		Message string              `json:"message"`
		Data    schema.ConfigParams `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 200, resp.Code)
	assert.Equal(t, "success", resp.Message)
	assert.NotEmpty(t, resp.Data.Fields)
	assert.NotEmpty(t, resp.Data.GroupOrder)
}

func TestStageRunNotFound(t *testing.T) {
	svc := &stubService{err: service.ErrNotFound}
	w := doRequest(newTestRouter(svc), http.MethodPost, "/documents/99/chunks", `{"chunk_method":"by_page"}`)

	require.Equal(t, http.StatusNotFound, w.Code)

	var resp Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 404, resp.Code)
	assert.Contains(t, resp.Message, "not found")
}

func TestStageRunValidationError(t *testing.T) {
	svc := &stubService{err: &service.ValidationFailed{
		Errors: []schema.ValidationError{{Field: "token_size", Message: "token_size 不能小于 64"}},
	}}
	w := doRequest(newTestRouter(svc), http.MethodPost, "/documents/7/chunks", `{"token_size":1}`)

	require.Equal(t, http.StatusBadRequest, w.Code)

	var resp struct {
		Code int `json:"code"`
		Data struct {
			Errors []schema.ValidationError `json:"errors"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 400, resp.Code)
	require.Len(t, resp.Data.Errors, 1)
	assert.Equal(t, "token_size", resp.Data.Errors[0].Field)
}

func TestStageRunConflict(t *testing.T) {
	svc := &stubService{err: service.ErrStageNotAllowed}
	w := doRequest(newTestRouter(svc), http.MethodPost, "/documents/7/chunks", "")
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestStageRunInvalidID(t *testing.T) {
	svc := &stubService{}
	w := doRequest(newTestRouter(svc), http.MethodPost, "/documents/abc/chunks", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestStageResultSuccess(t *testing.T) {
	svc := &stubService{result: &models.StageResult{
		Stage: models.StageChunk,
		Items: []models.ResultItem{{PageContent: "hello", Metadata: map[string]interface{}{"page": 1}}},
	}}
	w := doRequest(newTestRouter(svc), http.MethodGet, "/documents/7/results/chunk", "")

	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data models.StageResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, models.StageChunk, resp.Data.Stage)
	require.Len(t, resp.Data.Items, 1)
	assert.Equal(t, "hello", resp.Data.Items[0].PageContent)
}
