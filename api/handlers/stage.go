package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/feichai0017/rag-tuner/internal/models"
	"github.com/feichai0017/rag-tuner/internal/schema"
	"github.com/feichai0017/rag-tuner/internal/service"
	"github.com/feichai0017/rag-tuner/pkg/logger"
)

// StageHandler 流水线阶段的配置查询与执行
type StageHandler struct {
	service service.DocumentService
	logger  logger.Logger
}

func NewStageHandler(svc service.DocumentService, log logger.Logger) *StageHandler {
	return &StageHandler{service: svc, logger: log}
}

// Config 返回某阶段的表单描述
func (h *StageHandler) Config(stage models.Stage) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := docID(c)
		if err != nil {
			fail(c, http.StatusBadRequest, "invalid document id")
			return
		}

		params, err := h.service.StageConfig(c.Request.Context(), id, stage)
		if err != nil {
			failWith(c, err)
			return
		}
		ok(c, params)
	}
}

// Run 执行某阶段, 请求体为表单值
func (h *StageHandler) Run(stage models.Stage) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := docID(c)
		if err != nil {
			fail(c, http.StatusBadRequest, "invalid document id")
			return
		}

		values := schema.FormValues{}
		if c.Request.ContentLength > 0 {
			if err := c.ShouldBindJSON(&values); err != nil {
				fail(c, http.StatusBadRequest, "invalid request body")
				return
			}
		}

		result, err := h.service.RunStage(c.Request.Context(), id, stage, values)
		if err != nil {
			h.logger.Error("Stage run failed",
				logger.Int64("documentId", id),
				logger.String("stage", string(stage)),
				logger.Error(err),
			)
			failWith(c, err)
			return
		}
		ok(c, result)
	}
}

// Result 读取某阶段的历史结果快照
func (h *StageHandler) Result(c *gin.Context) {
	id, err := docID(c)
	if err != nil {
		fail(c, http.StatusBadRequest, "invalid document id")
		return
	}

	stage := models.Stage(c.Param("stage"))
	result, err := h.service.StageResult(c.Request.Context(), id, stage)
	if err != nil {
		failWith(c, err)
		return
	}
	ok(c, result)
}
