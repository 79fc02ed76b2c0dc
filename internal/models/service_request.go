package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Party участник заявки (клиент или исполнитель) в том виде, в каком его отдает бэкенд.
// Бэкенд присылает либо объект, либо только числовой идентификатор.
type Party struct {
	ID       int64  `json:"id"`
	Username string `json:"username,omitempty"`
	Email    string `json:"email,omitempty"`
	FullName string `json:"full_name,omitempty"`
}

func (p *Party) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] != '{' {
		var id int64
		if err := json.Unmarshal(data, &id); err != nil {
			return fmt.Errorf("party: неожиданный формат %s: %w", string(data), err)
		}
		*p = Party{ID: id}
		return nil
	}

	var raw struct {
		ID       *int64 `json:"id"`
		PK       *int64 `json:"pk"`
		Username string `json:"username"`
		Email    string `json:"email"`
		FullName string `json:"full_name"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*p = Party{Username: raw.Username, Email: raw.Email, FullName: raw.FullName}
	switch {
	case raw.ID != nil:
		p.ID = *raw.ID
	case raw.PK != nil:
		p.ID = *raw.PK
	}
	return nil
}

// DisplayName имя участника для списков заявок.
func (p *Party) DisplayName(fallback string) string {
	if p == nil {
		return fallback
	}
	switch {
	case p.Username != "":
		return p.Username
	case p.Email != "":
		return p.Email
	case p.FullName != "":
		return p.FullName
	}
	return fallback
}

// Amount денежная сумма. Бэкенд отдает decimal строкой ("150.00"), числом или null.
type Amount struct {
	Value float64
	Valid bool
}

func NewAmount(v float64) Amount {
	return Amount{Value: v, Valid: true}
}

func (a *Amount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) || len(data) == 0 {
		*a = Amount{}
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(strings.ReplaceAll(s, ",", "."))
		if s == "" {
			*a = Amount{}
			return nil
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fmt.Errorf("amount: некорректное значение %q: %w", s, err)
		}
		*a = NewAmount(v)
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*a = NewAmount(v)
	return nil
}

func (a Amount) MarshalJSON() ([]byte, error) {
	if !a.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(a.Value)
}

// Label форматирует сумму как "R$ 150.00" или "N/A".
func (a Amount) Label() string {
	if !a.Valid {
		return "N/A"
	}
	return fmt.Sprintf("R$ %.2f", a.Value)
}

// ServiceRequest заявка клиента к исполнителю.
type ServiceRequest struct {
	ID              int64         `json:"id"`
	Client          *Party        `json:"client,omitempty"`
	Provider        *Party        `json:"provider,omitempty"`
	Description     string        `json:"description"`
	DesiredDatetime string        `json:"desired_datetime,omitempty"`
	ProposedValue   Amount        `json:"proposed_value"`
	Status          RequestStatus `json:"status"`
	CreatedAt       string        `json:"created_at,omitempty"`

	ClientHasReviewed   bool    `json:"client_has_reviewed,omitempty"`
	ProviderHasReviewed bool    `json:"provider_has_reviewed,omitempty"`
	ClientRating        *int    `json:"client_rating,omitempty"`
	ClientComment       *string `json:"client_comment,omitempty"`
	ProviderRating      *int    `json:"provider_rating,omitempty"`
	ProviderComment     *string `json:"provider_comment,omitempty"`
}

// HasReviewed возвращает флаг отзыва стороны, который прислал сервер.
func (r *ServiceRequest) HasReviewed(role Role) bool {
	if role == RoleProvider {
		return r.ProviderHasReviewed
	}
	return r.ClientHasReviewed
}

// Counterpart возвращает вторую сторону заявки для указанной роли.
func (r *ServiceRequest) Counterpart(role Role) *Party {
	if role == RoleProvider {
		return r.Client
	}
	return r.Provider
}

// NewServiceRequest тело запроса на создание заявки.
type NewServiceRequest struct {
	Description     string  `json:"description"`
	DesiredDatetime string  `json:"desired_datetime"`
	ProposedValue   float64 `json:"proposed_value"`
}

// TransitionResult ответ бэкенда на accept/reject/complete.
type TransitionResult struct {
	Status  RequestStatus `json:"status"`
	Message string        `json:"message,omitempty"`
}
