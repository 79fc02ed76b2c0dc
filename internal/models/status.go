package models

import (
	"encoding/json"
	"strings"

	"github.com/fazpramim/portal/internal/pkg/apperror"
)

// RequestStatus статус заявки на услугу, как его видит портал.
type RequestStatus string

const (
	StatusPending   RequestStatus = "pending"
	StatusAccepted  RequestStatus = "accepted"
	StatusRejected  RequestStatus = "rejected"
	StatusCompleted RequestStatus = "completed"
)

// statusAliases синонимы, которые встречаются в ответах бэкенда.
var statusAliases = map[string]RequestStatus{
	"pending":      StatusPending,
	"pendente":     StatusPending,
	"awaiting":     StatusPending,
	"waiting":      StatusPending,
	"created":      StatusPending,
	"accepted":     StatusAccepted,
	"aceito":       StatusAccepted,
	"in_progress":  StatusAccepted,
	"inprogress":   StatusAccepted,
	"em andamento": StatusAccepted,
	"completed":    StatusCompleted,
	"done":         StatusCompleted,
	"concluido":    StatusCompleted,
	"concluído":    StatusCompleted,
	"finished":     StatusCompleted,
	"rejected":     StatusRejected,
	"declined":     StatusRejected,
	"rejeitado":    StatusRejected,
}

var requestTransitions = map[RequestStatus][]RequestStatus{
	StatusPending:   {StatusAccepted, StatusRejected},
	StatusAccepted:  {StatusCompleted},
	StatusRejected:  {},
	StatusCompleted: {},
}

func (s RequestStatus) IsValid() bool {
	switch s {
	case StatusPending, StatusAccepted, StatusRejected, StatusCompleted:
		return true
	}
	return false
}

// IsTerminal true для rejected и completed.
func (s RequestStatus) IsTerminal() bool {
	return s == StatusRejected || s == StatusCompleted
}

// ChatEnabled сообщает, доступен ли чат по заявке.
func (s RequestStatus) ChatEnabled() bool {
	return s == StatusAccepted || s == StatusCompleted
}

func (s RequestStatus) CanTransitionTo(newStatus RequestStatus) bool {
	allowed, ok := requestTransitions[s]
	if !ok {
		return false
	}

	for _, status := range allowed {
		if status == newStatus {
			return true
		}
	}
	return false
}

// NormalizeStatus приводит произвольную строку статуса к одному из четырех значений.
func NormalizeStatus(raw string) (RequestStatus, bool) {
	key := strings.ToLower(strings.TrimSpace(raw))
	s, ok := statusAliases[key]
	return s, ok
}

func NewRequestStatus(status string) (RequestStatus, error) {
	s, ok := NormalizeStatus(status)
	if !ok {
		return "", apperror.New(apperror.ErrCodeValidation, "Status de solicitação inválido.")
	}
	return s, nil
}

// UnmarshalJSON нормализует синонимы. Неизвестное значение сохраняется как есть,
// IsValid для него вернет false.
func (s *RequestStatus) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if normalized, ok := NormalizeStatus(raw); ok {
		*s = normalized
		return nil
	}
	*s = RequestStatus(strings.ToLower(strings.TrimSpace(raw)))
	return nil
}
