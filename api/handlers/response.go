package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/feichai0017/rag-tuner/internal/service"
)

// Response 统一响应信封
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func ok(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    http.StatusOK,
		Message: "success",
		Data:    data,
	})
}

func fail(c *gin.Context, status int, message string) {
	c.JSON(status, Response{
		Code:    status,
		Message: message,
	})
}

// failWith 将 service 层错误映射为响应状态
func failWith(c *gin.Context, err error) {
	var vf *service.ValidationFailed
	var ur *service.UploadRejected

	switch {
	case errors.Is(err, service.ErrNotFound), errors.Is(err, service.ErrNoResult):
		fail(c, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrUnknownStage):
		fail(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrStageNotAllowed):
		fail(c, http.StatusConflict, err.Error())
	case errors.Is(err, service.ErrUnknownCategory):
		fail(c, http.StatusNotFound, err.Error())
	case errors.As(err, &vf):
		c.JSON(http.StatusBadRequest, Response{
			Code:    http.StatusBadRequest,
			Message: vf.Error(),
			Data:    gin.H{"errors": vf.Errors},
		})
	case errors.As(err, &ur):
		c.JSON(http.StatusBadRequest, Response{
			Code:    http.StatusBadRequest,
			Message: ur.Error(),
			Data:    gin.H{"validation": ur.Result},
		})
	default:
		fail(c, http.StatusInternalServerError, err.Error())
	}
}
