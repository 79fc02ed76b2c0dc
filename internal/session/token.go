package session

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims данные, извлекаемые из токена портала.
type Claims struct {
	SessionID string
	UserID    string
	Role      string
}

// TokenManager отвечает за выпуск и проверку JWT, которые браузер отправляет порталу.
// Токен бэкенда в JWT не попадает, в нем только идентификатор сессии.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenManager создаёт менеджер токенов.
func NewTokenManager(secret string, ttl time.Duration) *TokenManager {
	return &TokenManager{secret: []byte(secret), ttl: ttl}
}

// Issue выпускает токен для сессии.
func (m *TokenManager) Issue(s *Session) (string, time.Time, error) {
	now := time.Now()
	exp := now.Add(m.ttl)
	claims := jwt.MapClaims{
		"sub":  s.User.ID,
		"sid":  s.ID,
		"role": string(s.User.Role),
		"iat":  now.Unix(),
		"exp":  exp.Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

// Parse проверяет подпись и срок действия токена.
func (m *TokenManager) Parse(token string) (*Claims, error) {
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
		return m.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !parsed.Valid {
		if err == nil {
			err = jwt.ErrTokenInvalidClaims
		}
		return nil, err
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil, jwt.ErrTokenInvalidClaims
	}

	sid, ok := claims["sid"].(string)
	if !ok || sid == "" {
		return nil, jwt.ErrTokenInvalidClaims
	}
	sub, _ := claims["sub"].(string)
	role, _ := claims["role"].(string)

	return &Claims{SessionID: sid, UserID: sub, Role: role}, nil
}
