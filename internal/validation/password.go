package validation

import (
	"fmt"
)

// ValidatePassword проверяет пароль на соответствие требованиям безопасности.
// Требования:
// - Минимум 8 символов
// - Должен содержать заглавные буквы
// - Должен содержать строчные буквы
// - Должен содержать цифры
func ValidatePassword(password string) error {
	if len([]rune(password)) < 8 {
		return fmt.Errorf("Senha deve ter pelo menos 8 caracteres")
	}

	hasUpper, hasLower, hasNumber, _ := passwordClasses(password)
	if !hasUpper || !hasLower || !hasNumber {
		return fmt.Errorf("Senha deve conter ao menos: 1 minúscula, 1 maiúscula, 1 número")
	}

	return nil
}

// PasswordStrength оценка надежности пароля для индикатора на форме регистрации.
type PasswordStrength struct {
	Score int    `json:"score"`
	Label string `json:"label"`
}

// MeasurePassword считает очки: длина, строчные, заглавные, цифры, спецсимволы.
func MeasurePassword(password string) PasswordStrength {
	if password == "" {
		return PasswordStrength{}
	}

	score := 0
	if len([]rune(password)) >= 8 {
		score++
	}
	hasUpper, hasLower, hasNumber, hasSpecial := passwordClasses(password)
	for _, ok := range []bool{hasLower, hasUpper, hasNumber, hasSpecial} {
		if ok {
			score++
		}
	}

	switch {
	case score <= 2:
		return PasswordStrength{Score: score, Label: "Fraca"}
	case score <= 3:
		return PasswordStrength{Score: score, Label: "Média"}
	default:
		return PasswordStrength{Score: score, Label: "Forte"}
	}
}

// passwordClasses учитывает только ASCII классы, как и правило на форме.
func passwordClasses(password string) (hasUpper, hasLower, hasNumber, hasSpecial bool) {
	for _, char := range password {
		switch {
		case char >= 'A' && char <= 'Z':
			hasUpper = true
		case char >= 'a' && char <= 'z':
			hasLower = true
		case char >= '0' && char <= '9':
			hasNumber = true
		default:
			hasSpecial = true
		}
	}
	return
}
