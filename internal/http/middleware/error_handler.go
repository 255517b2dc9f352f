package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/research-review/internal/interface/http/response"
	"github.com/ignatzorin/research-review/internal/logger"
	"github.com/ignatzorin/research-review/internal/pkg/apperror"
)

// ErrorHandler обрабатывает ошибки, добавленные через c.Error, централизованно.
// Внутренние ошибки маскируются в response.Error.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}
		err := c.Errors.Last().Err

		entry := logger.Component("http").WithFields(logrus.Fields{
			"error":  err.Error(),
			"path":   c.Request.URL.Path,
			"method": c.Request.Method,
			"code":   apperror.CodeOf(err),
		})
		if apperror.CodeOf(err) == apperror.ErrCodeInternal || apperror.CodeOf(err) == apperror.ErrCodeDatabaseError {
			entry.Error("Request error")
		} else {
			entry.Debug("Request rejected")
		}

		// ответ уже мог быть отправлен обработчиком
		if c.Writer.Written() {
			return
		}
		response.Error(c, err)
	}
}
