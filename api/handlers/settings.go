package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/feichai0017/rag-tuner/internal/service"
	"github.com/feichai0017/rag-tuner/pkg/logger"
)

type SettingsHandler struct {
	service service.SettingsService
	logger  logger.Logger
}

func NewSettingsHandler(svc service.SettingsService, log logger.Logger) *SettingsHandler {
	return &SettingsHandler{service: svc, logger: log}
}

// Categories 可用设置分类
func (h *SettingsHandler) Categories(c *gin.Context) {
	ok(c, gin.H{"categories": h.service.Categories()})
}

// Get 读取某分类的设置
func (h *SettingsHandler) Get(c *gin.Context) {
	values, err := h.service.Get(c.Request.Context(), c.Param("category"))
	if err != nil {
		failWith(c, err)
		return
	}
	ok(c, values)
}

// Save 保存某分类的设置, 增量合并
func (h *SettingsHandler) Save(c *gin.Context) {
	var values map[string]interface{}
	if err := c.ShouldBindJSON(&values); err != nil {
		fail(c, http.StatusBadRequest, "invalid request body")
		return
	}

	saved, err := h.service.Save(c.Request.Context(), c.Param("category"), values)
	if err != nil {
		failWith(c, err)
		return
	}
	ok(c, saved)
}
