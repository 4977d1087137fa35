package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/feichai0017/rag-tuner/api/handlers"
	"github.com/feichai0017/rag-tuner/api/middleware"
	"github.com/feichai0017/rag-tuner/internal/models"
)

// SetupRoutes 配置所有路由
func SetupRoutes(r *gin.Engine, h *handlers.Handlers) {
	// 全局中间件
	r.Use(middleware.CORS())

	// API 版本组
	v1 := r.Group("/api/v1")

	// 文档与流水线路由组
	docs := v1.Group("/documents")
	{
		docs.POST("/upload", h.Document.Upload)
		docs.GET("", h.Document.List)
		docs.GET("/:id", h.Document.Get)
		docs.DELETE("/:id", h.Document.Delete)

		docs.GET("/:id/load-config", h.Stage.Config(models.StageLoad))
		docs.POST("/:id/parse", h.Stage.Run(models.StageLoad))

		docs.GET("/:id/chunk-config", h.Stage.Config(models.StageChunk))
		docs.POST("/:id/chunks", h.Stage.Run(models.StageChunk))

		docs.GET("/:id/embed-config", h.Stage.Config(models.StageEmbed))
		docs.POST("/:id/embeddings", h.Stage.Run(models.StageEmbed))

		docs.GET("/:id/store-config", h.Stage.Config(models.StageStore))
		docs.POST("/:id/vec-store", h.Stage.Run(models.StageStore))

		search := docs.Group("/:id/search")
		{
			search.GET("/pre-config", h.Stage.Config(models.StageSearchPre))
			search.GET("/post-config", h.Stage.Config(models.StageSearchPost))
			search.GET("/parse-config", h.Stage.Config(models.StageSearch))
			search.POST("/pre", h.Stage.Run(models.StageSearchPre))
			search.POST("/post", h.Stage.Run(models.StageSearchPost))
			search.POST("/parse", h.Stage.Run(models.StageSearch))
		}

		docs.GET("/:id/generate-config", h.Stage.Config(models.StageGenerate))
		docs.POST("/:id/generate", h.Stage.Run(models.StageGenerate))

		docs.GET("/:id/results/:stage", h.Stage.Result)
		docs.POST("/:id/reprocess", h.Document.Reprocess)
	}

	// 后台任务状态
	v1.GET("/tasks/:taskId", h.Document.TaskStatus)

	// 服务端设置
	config := v1.Group("/config")
	{
		config.GET("/settings", h.Settings.Categories)
		config.GET("/settings/:category", h.Settings.Get)
		config.PUT("/settings/:category", h.Settings.Save)
	}
}
