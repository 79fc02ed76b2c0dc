package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

type ErrorCode string

const (
	ErrCodeNotFound         ErrorCode = "NOT_FOUND"
	ErrCodeUnauthorized     ErrorCode = "UNAUTHORIZED"
	ErrCodeForbidden        ErrorCode = "FORBIDDEN"
	ErrCodeBadRequest       ErrorCode = "BAD_REQUEST"
	ErrCodeConflict         ErrorCode = "CONFLICT"
	ErrCodeInternal         ErrorCode = "INTERNAL_ERROR"
	ErrCodeValidation       ErrorCode = "VALIDATION_ERROR"
	ErrCodeServerValidation ErrorCode = "SERVER_VALIDATION_ERROR"
	ErrCodeNetwork          ErrorCode = "NETWORK_ERROR"
	ErrCodeDatabaseError    ErrorCode = "DATABASE_ERROR"
)

type AppError struct {
	Code       ErrorCode
	Message    string
	HTTPStatus int
	Cause      error
	// Fields ошибки по полям формы (локальная валидация).
	Fields map[string]string
	// Redirect маршрут, на который клиент должен перейти.
	Redirect string
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: codeToHTTPStatus(code),
	}
}

func Wrap(err error, code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: codeToHTTPStatus(code),
		Cause:      err,
	}
}

// Validation создает ошибку валидации с картой полей.
func Validation(message string, fields map[string]string) *AppError {
	e := New(ErrCodeValidation, message)
	e.Fields = fields
	return e
}

// WithRedirect возвращает копию ошибки с маршрутом перехода.
func (e *AppError) WithRedirect(route string) *AppError {
	cp := *e
	cp.Redirect = route
	return &cp
}

func codeToHTTPStatus(code ErrorCode) int {
	switch code {
	case ErrCodeNotFound:
		return http.StatusNotFound
	case ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case ErrCodeForbidden:
		return http.StatusForbidden
	case ErrCodeBadRequest, ErrCodeValidation:
		return http.StatusBadRequest
	case ErrCodeServerValidation:
		return http.StatusUnprocessableEntity
	case ErrCodeConflict:
		return http.StatusConflict
	case ErrCodeNetwork:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// CodeOf возвращает код ошибки или INTERNAL_ERROR для посторонних ошибок.
func CodeOf(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ErrCodeInternal
}

func is(err error, code ErrorCode) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == code
}

func IsNotFound(err error) bool {
	return is(err, ErrCodeNotFound)
}

func IsForbidden(err error) bool {
	return is(err, ErrCodeForbidden)
}

func IsValidation(err error) bool {
	return is(err, ErrCodeValidation)
}

func IsUnauthorized(err error) bool {
	return is(err, ErrCodeUnauthorized)
}

func IsNetwork(err error) bool {
	return is(err, ErrCodeNetwork)
}

func IsConflict(err error) bool {
	return is(err, ErrCodeConflict)
}

func IsServerValidation(err error) bool {
	return is(err, ErrCodeServerValidation)
}

var (
	ErrRequestNotFound    = New(ErrCodeNotFound, "Solicitação não encontrada.")
	ErrProviderNotFound   = New(ErrCodeNotFound, "Prestador não encontrado.")
	ErrUnauthorized       = New(ErrCodeUnauthorized, "Sessão expirada. Faça login novamente.")
	ErrForbidden          = New(ErrCodeForbidden, "Você não tem permissão para esta ação.")
	ErrInvalidCredentials = New(ErrCodeUnauthorized, "E-mail ou senha inválidos.")
	ErrAlreadyReviewed    = New(ErrCodeConflict, "Você já avaliou este serviço.")
	ErrAlreadyFinalized   = New(ErrCodeConflict, "Você já confirmou a finalização deste serviço.")
)
