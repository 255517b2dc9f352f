package service

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/ignatzorin/research-review/internal/domain/entity"
	"github.com/ignatzorin/research-review/internal/domain/valueobject"
)

// AccessClaims хранит клеймы access токена. sub содержит ID участника, role его роль.
type AccessClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// TokenManager выпускает и проверяет access токены участников процесса.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenManager(secret string, ttl time.Duration) *TokenManager {
	return &TokenManager{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

// GenerateAccess выпускает токен для участника. Роль system токеном не выдаётся.
func (m *TokenManager) GenerateAccess(actor entity.Actor) (string, time.Time, error) {
	if actor.ID == uuid.Nil {
		return "", time.Time{}, fmt.Errorf("token: пустой идентификатор участника")
	}
	if !actor.Role.IsValid() || actor.Role == valueobject.RoleSystem {
		return "", time.Time{}, fmt.Errorf("token: недопустимая роль %q", actor.Role)
	}

	now := m.now()
	exp := now.Add(m.ttl)
	claims := AccessClaims{
		Role: string(actor.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   actor.ID.String(),
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("token: не удалось подписать: %w", err)
	}
	return signed, exp, nil
}

// ParseAccess проверяет подпись и срок токена и возвращает участника.
func (m *TokenManager) ParseAccess(token string) (entity.Actor, error) {
	claims := &AccessClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return m.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(m.now))
	if err != nil {
		return entity.Actor{}, err
	}
	if !parsed.Valid {
		return entity.Actor{}, jwt.ErrTokenInvalidClaims
	}

	id, err := uuid.Parse(claims.Subject)
	if err != nil {
		return entity.Actor{}, jwt.ErrTokenInvalidClaims
	}
	role, err := valueobject.NewRole(claims.Role)
	if err != nil || role == valueobject.RoleSystem {
		return entity.Actor{}, jwt.ErrTokenInvalidClaims
	}
	return entity.Actor{ID: id, Role: role}, nil
}
