package backend

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/fazpramim/portal/internal/pkg/apperror"
)

// plainKeys поля, сообщение из которых показывается без префикса поля.
var plainKeys = map[string]bool{
	"detail":           true,
	"message":          true,
	"error":            true,
	"non_field_errors": true,
}

// mapError переводит ответ бэкенда с ошибкой в таксономию портала.
func mapError(status int, body []byte, kind callKind) error {
	key, msg, isJSON := firstMessage(body)
	display := msg
	if key != "" && !plainKeys[key] {
		display = strings.ToUpper(key) + ": " + msg
	}
	cause := fmt.Errorf("backend: код ответа %d", status)

	switch status {
	case http.StatusUnauthorized:
		return apperror.Wrap(cause, apperror.ErrCodeUnauthorized, apperror.ErrUnauthorized.Message)
	case http.StatusForbidden:
		return apperror.Wrap(cause, apperror.ErrCodeForbidden, orDefault(display, apperror.ErrForbidden.Message))
	}

	if kind == kindTransition {
		if status == http.StatusNotFound {
			return apperror.Wrap(cause, apperror.ErrCodeNotFound, apperror.ErrRequestNotFound.Message)
		}
		if status < 500 {
			return apperror.Wrap(cause, apperror.ErrCodeForbidden, orDefault(display, "Ação não permitida para esta solicitação."))
		}
	}

	switch {
	case status == http.StatusNotFound:
		return apperror.Wrap(cause, apperror.ErrCodeNotFound, orDefault(display, "Recurso não encontrado."))
	case status >= 500:
		return apperror.Wrap(cause, apperror.ErrCodeNetwork, fmt.Sprintf("Erro Servidor (%d). Tente novamente mais tarde.", status))
	case !isJSON:
		return apperror.Wrap(cause, apperror.ErrCodeNetwork, fmt.Sprintf("Erro Servidor (%d): resposta inesperada.", status))
	case (status == http.StatusBadRequest || status == http.StatusUnprocessableEntity) && msg != "":
		return apperror.Wrap(cause, apperror.ErrCodeServerValidation, display)
	default:
		return apperror.Wrap(cause, apperror.ErrCodeBadRequest, orDefault(display, "Erro na requisição."))
	}
}

func orDefault(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

// firstMessage возвращает первое поле объекта ошибки (в порядке документа)
// и его первое сообщение. Ключи detail и non_field_errors имеют приоритет.
func firstMessage(body []byte) (key, msg string, isJSON bool) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 || !json.Valid(body) {
		return "", "", false
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	tok, err := dec.Token()
	if err != nil {
		return "", "", false
	}

	switch t := tok.(type) {
	case string:
		return "", t, true
	case json.Delim:
		if t == '[' {
			var items []json.RawMessage
			if err := json.Unmarshal(body, &items); err == nil && len(items) > 0 {
				return "", messageOf(items[0]), true
			}
			return "", "", true
		}
	default:
		return "", "", true
	}

	var firstKey, firstMsg string
	for dec.More() {
		kt, err := dec.Token()
		if err != nil {
			break
		}
		k, _ := kt.(string)
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			break
		}
		m := messageOf(raw)
		if m == "" {
			continue
		}
		if k == "non_field_errors" || k == "detail" {
			return k, m, true
		}
		if firstKey == "" {
			firstKey, firstMsg = k, m
		}
	}
	return firstKey, firstMsg, true
}

// messageOf извлекает первое текстовое сообщение из значения поля.
func messageOf(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return ""
	}
	switch raw[0] {
	case '"':
		var s string
		_ = json.Unmarshal(raw, &s)
		return s
	case '[':
		var items []json.RawMessage
		if err := json.Unmarshal(raw, &items); err != nil {
			return ""
		}
		for _, item := range items {
			if m := messageOf(item); m != "" {
				return m
			}
		}
		return ""
	case '{':
		_, m, _ := firstMessage(raw)
		return m
	case 'n':
		return ""
	default:
		return string(raw)
	}
}
