package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ignatzorin/research-review/internal/domain/entity"
	"github.com/ignatzorin/research-review/internal/http/middleware"
	"github.com/ignatzorin/research-review/internal/interface/http/response"
	"github.com/ignatzorin/research-review/internal/pkg/apperror"
)

// currentActor отвечает 401, если AuthMiddleware не сохранил участника.
func currentActor(c *gin.Context) (entity.Actor, bool) {
	actor, ok := middleware.CurrentActor(c)
	if !ok {
		response.Unauthorized(c, "требуется авторизация")
		return entity.Actor{}, false
	}
	return actor, true
}

func pathUUID(c *gin.Context, name, message string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		response.BadRequest(c, message)
		return uuid.Nil, false
	}
	return id, true
}

func bindJSON(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		response.BadRequest(c, "некорректные данные запроса")
		return false
	}
	return true
}

func validationError(err error) error {
	return apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
}

func parseIntQuery(c *gin.Context, key string, defaultValue int) int {
	valueStr := c.Query(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func parseUUIDQuery(c *gin.Context, key string) (*uuid.UUID, error) {
	valueStr := c.Query(key)
	if valueStr == "" {
		return nil, nil
	}
	id, err := uuid.Parse(valueStr)
	if err != nil {
		return nil, apperror.Newf(apperror.ErrCodeBadRequest, "параметр %s должен быть валидным UUID", key)
	}
	return &id, nil
}
