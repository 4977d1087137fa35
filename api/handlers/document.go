package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/feichai0017/rag-tuner/internal/models"
	"github.com/feichai0017/rag-tuner/internal/repository"
	"github.com/feichai0017/rag-tuner/internal/service"
	"github.com/feichai0017/rag-tuner/pkg/logger"
)

type DocumentHandler struct {
	service service.DocumentService
	logger  logger.Logger
}

func NewDocumentHandler(svc service.DocumentService, log logger.Logger) *DocumentHandler {
	return &DocumentHandler{service: svc, logger: log}
}

// Upload 上传文档
func (h *DocumentHandler) Upload(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		fail(c, http.StatusBadRequest, "invalid file upload")
		return
	}

	doc, err := h.service.Upload(c.Request.Context(), file)
	if err != nil {
		h.logger.Error("Upload failed",
			logger.String("filename", file.Filename),
			logger.Error(err),
		)
		failWith(c, err)
		return
	}
	ok(c, doc)
}

// List 文档列表, 支持关键字与状态过滤
func (h *DocumentHandler) List(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	filter := repository.ListFilter{
		Search: c.Query("search"),
		Status: models.DocumentStatus(c.Query("status")),
		Limit:  pageSize,
		Offset: (page - 1) * pageSize,
	}

	docs, total, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		failWith(c, err)
		return
	}
	ok(c, gin.H{
		"items":     docs,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

// Get 文档详情
func (h *DocumentHandler) Get(c *gin.Context) {
	id, err := docID(c)
	if err != nil {
		fail(c, http.StatusBadRequest, "invalid document id")
		return
	}

	doc, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		failWith(c, err)
		return
	}
	ok(c, doc)
}

// Delete 删除文档及其全部产物
func (h *DocumentHandler) Delete(c *gin.Context) {
	id, err := docID(c)
	if err != nil {
		fail(c, http.StatusBadRequest, "invalid document id")
		return
	}

	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		failWith(c, err)
		return
	}
	ok(c, gin.H{"id": id})
}

// Reprocess 异步重跑流水线
func (h *DocumentHandler) Reprocess(c *gin.Context) {
	id, err := docID(c)
	if err != nil {
		fail(c, http.StatusBadRequest, "invalid document id")
		return
	}

	var req struct {
		Stages []string               `json:"stages"`
		Config map[string]interface{} `json:"config"`
	}
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			fail(c, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	taskID, err := h.service.Reprocess(c.Request.Context(), id, req.Stages, req.Config)
	if err != nil {
		failWith(c, err)
		return
	}
	ok(c, gin.H{"task_id": taskID})
}

// TaskStatus 查询后台任务状态
func (h *DocumentHandler) TaskStatus(c *gin.Context) {
	status, err := h.service.TaskStatus(c.Request.Context(), c.Param("taskId"))
	if err != nil {
		fail(c, http.StatusNotFound, "task not found")
		return
	}
	ok(c, status)
}

func docID(c *gin.Context) (int64, error) {
	return strconv.ParseInt(c.Param("id"), 10, 64)
}
