package entity

import (
	"github.com/google/uuid"
	"github.com/ignatzorin/research-review/internal/domain/valueobject"
)

// Actor: тот, кто выполняет действие над заявкой. Передаётся явно в каждую операцию.
type Actor struct {
	ID   uuid.UUID
	Role valueobject.Role
}

// SystemActor используется фоновыми задачами (просрочка доработок и назначений).
func SystemActor() Actor {
	return Actor{ID: uuid.Nil, Role: valueobject.RoleSystem}
}

func (a Actor) Is(role valueobject.Role) bool {
	return a.Role == role
}
