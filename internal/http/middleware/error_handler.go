package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/taskbridge-backend/internal/dto"
	"github.com/ignatzorin/taskbridge-backend/internal/logger"
	"github.com/ignatzorin/taskbridge-backend/internal/pkg/apperror"
)

// ErrorHandler обрабатывает ошибки централизованно. Типизированные
// ошибки apperror переводятся в их статус и сообщение, всё остальное
// маскируется как внутренняя ошибка: детали видны только в логе.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() || len(c.Errors) == 0 {
			return
		}

		err := c.Errors.Last().Err

		if appErr, ok := apperror.AsAppError(err); ok {
			if appErr.Code == apperror.ErrCodeInternal {
				logInternal(c, err)
			}
			c.JSON(appErr.HTTPStatus, dto.ErrorResponse{
				Error: appErr.Message,
				Code:  string(appErr.Code),
			})
			return
		}

		logInternal(c, err)
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{
			Error: "внутренняя ошибка сервера",
			Code:  string(apperror.ErrCodeInternal),
		})
	}
}

func logInternal(c *gin.Context, err error) {
	logger.WithComponent("http").WithFields(logrus.Fields{
		"error":  err.Error(),
		"path":   c.Request.URL.Path,
		"method": c.Request.Method,
	}).Error("ошибка обработки запроса")
}
