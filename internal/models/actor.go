package models

import "github.com/ignatzorin/escrow-backend/internal/pkg/objectid"

// ActorType различает, кто выполнил действие: пользователь или система.
type ActorType string

const (
	ActorTypeUser   ActorType = "user"
	ActorTypeSystem ActorType = "system"
)

// Actor представляет размеченное объединение вместо слабо типизированного поля
// "userId | 'system'": UserID заполнен только для типа user.
type Actor struct {
	Type   ActorType   `json:"type"`
	UserID objectid.ID `json:"user_id,omitempty"`
}

// UserActor создаёт актёра-пользователя.
func UserActor(id objectid.ID) Actor {
	return Actor{Type: ActorTypeUser, UserID: id}
}

// SystemActor создаёт системного актёра (авто-release, планировщик).
func SystemActor() Actor {
	return Actor{Type: ActorTypeSystem}
}

// IsSystem сообщает, выполнено ли действие системой.
func (a Actor) IsSystem() bool {
	return a.Type == ActorTypeSystem
}
