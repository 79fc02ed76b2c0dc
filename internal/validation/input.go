package validation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// Константы валидации
const (
	MinNameLength           = 3
	MaxNameLength           = 100
	MaxEmailLength          = 255
	MinCPFLength            = 11
	MaxCPFLength            = 14
	MinPhoneLength          = 10
	MaxPhoneLength          = 15
	MaxProfilePhoneLength   = 20
	MinAddressLength        = 10
	MaxAddressLength        = 500
	MinProfileAddressLength = 5
	MaxProfileAddressLength = 200
	MinQualificationLength  = 20
	MaxQualificationLength  = 1000
	MinCityLength           = 2
	MaxCityLength           = 100
	StateLength             = 2
	MinRequestDescription   = 10
	MaxPortfolioTitleLength = 200
	MaxPortfolioDescription = 2000
	MaxReviewCommentLength  = 2000
	MinRating               = 1
	MaxRating               = 5
	MinMessageLength        = 1
	MaxMessageLength        = 5000
)

var (
	nameRegex        = regexp.MustCompile(`^[a-zA-ZÀ-ÿ\s]+$`)
	cpfRegex         = regexp.MustCompile(`^\d{3}\.?\d{3}\.?\d{3}-?\d{2}$`)
	phoneRegex       = regexp.MustCompile(`^\(\d{2}\)\s?\d{4,5}-?\d{4}$`)
	emailLocalRegex  = regexp.MustCompile(`^[a-z0-9._+-]+$`)
	emailDomainRegex = regexp.MustCompile(`^[a-z0-9.-]+\.[a-z]{2,}$`)
)

// ValidateLength проверяет длину строки.
func ValidateLength(fieldName, value string, min, max int) error {
	length := utf8.RuneCountInString(value)
	if min > 0 && length < min {
		return fmt.Errorf("%s deve ter pelo menos %d caracteres", fieldName, min)
	}
	if max > 0 && length > max {
		return fmt.Errorf("%s deve ter no máximo %d caracteres", fieldName, max)
	}
	return nil
}

// ValidateEmail проверяет формат email.
func ValidateEmail(email string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return fmt.Errorf("Email inválido")
	}
	if utf8.RuneCountInString(email) > MaxEmailLength {
		return fmt.Errorf("Email deve ter no máximo %d caracteres", MaxEmailLength)
	}

	parts := strings.Split(email, "@")
	if len(parts) != 2 {
		return fmt.Errorf("Email inválido")
	}

	localPart, domainPart := parts[0], parts[1]
	if len(localPart) == 0 || len(localPart) > 64 || !emailLocalRegex.MatchString(localPart) {
		return fmt.Errorf("Email inválido")
	}
	if !emailDomainRegex.MatchString(domainPart) {
		return fmt.Errorf("Email inválido")
	}

	return nil
}

// ValidateFullName проверяет полное имя (только буквы и пробелы).
func ValidateFullName(name string) error {
	name = strings.TrimSpace(name)
	if utf8.RuneCountInString(name) < MinNameLength {
		return fmt.Errorf("Nome deve ter pelo menos %d caracteres", MinNameLength)
	}
	if utf8.RuneCountInString(name) > MaxNameLength {
		return fmt.Errorf("Nome deve ter no máximo %d caracteres", MaxNameLength)
	}
	if !nameRegex.MatchString(name) {
		return fmt.Errorf("Nome deve conter apenas letras")
	}
	return nil
}

// ValidateCPF проверяет формат CPF (с маской или без).
func ValidateCPF(cpf string) error {
	cpf = strings.TrimSpace(cpf)
	if len(cpf) < MinCPFLength || len(cpf) > MaxCPFLength {
		return fmt.Errorf("CPF inválido")
	}
	if !cpfRegex.MatchString(cpf) {
		return fmt.Errorf("CPF deve ter formato válido")
	}
	return nil
}

// ValidatePhone проверяет телефон в формате маски "(DD) NNNNN-NNNN".
func ValidatePhone(phone string) error {
	phone = strings.TrimSpace(phone)
	if len(phone) < MinPhoneLength || len(phone) > MaxPhoneLength {
		return fmt.Errorf("Telefone inválido")
	}
	if !phoneRegex.MatchString(phone) {
		return fmt.Errorf("Telefone deve ter formato válido")
	}
	return nil
}

// ValidateMessageContent проверяет содержимое сообщения.
func ValidateMessageContent(content string) error {
	content = strings.TrimSpace(content)
	if content == "" {
		return fmt.Errorf("A mensagem não pode estar vazia")
	}

	if err := ValidateLength("A mensagem", content, MinMessageLength, MaxMessageLength); err != nil {
		return err
	}

	return nil
}

// ValidateRating проверяет, что оценка целая и в диапазоне 1..5.
func ValidateRating(rating int) error {
	if rating < MinRating || rating > MaxRating {
		return fmt.Errorf("A avaliação deve ser entre %d e %d estrelas", MinRating, MaxRating)
	}
	return nil
}
