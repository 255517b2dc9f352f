package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ignatzorin/research-review/internal/domain/entity"
	"github.com/ignatzorin/research-review/internal/domain/valueobject"
	"github.com/ignatzorin/research-review/internal/interface/http/response"
	"github.com/ignatzorin/research-review/internal/service"
)

// Context ключи для gin.Context.
const (
	ContextUserIDKey = "userID"
	ContextRoleKey   = "role"
)

// AccessParser разбирает access токен в участника процесса.
type AccessParser interface {
	ParseAccess(token string) (entity.Actor, error)
}

var _ AccessParser = (*service.TokenManager)(nil)

// AuthMiddleware проверяет JWT access токен.
func AuthMiddleware(tokens AccessParser) gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")
		if auth == "" || !strings.HasPrefix(auth, "Bearer ") {
			response.Unauthorized(c, "требуется авторизация")
			c.Abort()
			return
		}

		actor, err := tokens.ParseAccess(strings.TrimPrefix(auth, "Bearer "))
		if err != nil {
			response.Unauthorized(c, "токен невалиден")
			c.Abort()
			return
		}

		c.Set(ContextUserIDKey, actor.ID)
		c.Set(ContextRoleKey, actor.Role)
		c.Next()
	}
}

// RequireRoles пропускает только указанные роли.
func RequireRoles(roles ...valueobject.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := CurrentActor(c)
		if !ok {
			response.Unauthorized(c, "требуется авторизация")
			c.Abort()
			return
		}
		for _, role := range roles {
			if actor.Role == role {
				c.Next()
				return
			}
		}
		response.Forbidden(c, "недостаточно прав")
		c.Abort()
	}
}

// CurrentActor достаёт участника, сохранённого AuthMiddleware.
func CurrentActor(c *gin.Context) (entity.Actor, bool) {
	id, ok := c.Get(ContextUserIDKey)
	if !ok {
		return entity.Actor{}, false
	}
	role, ok := c.Get(ContextRoleKey)
	if !ok {
		return entity.Actor{}, false
	}
	actor := entity.Actor{}
	if actor.ID, ok = id.(uuid.UUID); !ok {
		return entity.Actor{}, false
	}
	if actor.Role, ok = role.(valueobject.Role); !ok {
		return entity.Actor{}, false
	}
	return actor, true
}
