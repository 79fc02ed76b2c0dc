package models

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Role роль пользователя маркетплейса.
type Role string

const (
	RoleClient   Role = "cliente"
	RoleProvider Role = "prestador"
)

func (r Role) IsValid() bool {
	return r == RoleClient || r == RoleProvider
}

// HomeRoute стартовая страница для роли после входа.
func (r Role) HomeRoute() string {
	if r == RoleProvider {
		return "/home-prestador"
	}
	return "/"
}

// RequestsRoute страница со списком заявок пользователя.
func (r Role) RequestsRoute() string {
	if r == RoleProvider {
		return "/solicitacoes-prestador"
	}
	return "/solicitacoes-cliente"
}

// User проекция аутентифицированного пользователя, хранимая в сессии.
type User struct {
	ID    string `json:"id" db:"user_id"`
	Email string `json:"email" db:"user_email"`
	Name  string `json:"nome" db:"user_name"`
	Role  Role   `json:"tipo" db:"user_role"`
}

// backendUser поля пользователя, которые встречаются в ответах бэкенда.
type backendUser struct {
	ID          json.RawMessage `json:"id"`
	Email       string          `json:"email"`
	Nome        string          `json:"nome"`
	Username    string          `json:"username"`
	FullName    string          `json:"full_name"`
	Tipo        string          `json:"tipo"`
	IsProvider  bool            `json:"is_provider"`
	IsPrestador bool            `json:"is_prestador"`
	UserType    string          `json:"user_type"`
	Role        string          `json:"role"`
}

// UserFromBackend нормализует объект user из ответа на вход.
// Роль исполнителя определяется по любому из известных признаков.
func UserFromBackend(raw json.RawMessage) (User, error) {
	var bu backendUser
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &bu); err != nil {
			return User{}, err
		}
	}

	isProvider := bu.Tipo == string(RoleProvider) ||
		bu.IsProvider ||
		bu.IsPrestador ||
		bu.UserType == "provider" || bu.UserType == string(RoleProvider) ||
		bu.Role == "provider" || bu.Role == string(RoleProvider)

	u := User{
		ID:    rawID(bu.ID),
		Email: bu.Email,
		Role:  RoleClient,
	}
	if isProvider {
		u.Role = RoleProvider
	}

	switch {
	case bu.Nome != "":
		u.Name = bu.Nome
	case bu.Username != "":
		u.Name = bu.Username
	case bu.FullName != "":
		u.Name = bu.FullName
	case bu.Email != "":
		u.Name = strings.SplitN(bu.Email, "@", 2)[0]
	}
	return u, nil
}

// rawID принимает id как число или строку.
func rawID(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		if _, err := strconv.ParseFloat(n.String(), 64); err == nil {
			return n.String()
		}
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return strings.Trim(string(raw), `"`)
}
