package validation

import "strings"

// MaxPhoneDigits DDD + 9 цифр номера.
const MaxPhoneDigits = 11

// Digits оставляет в строке только цифры.
func Digits(value string) string {
	var b strings.Builder
	b.Grow(len(value))
	for _, r := range value {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// FormatPhone применяет маску "(DD) NNNNN-NNNN" к первым 11 цифрам значения.
// Неполный ввод форматируется частично: "(11) ", "(11) 987".
func FormatPhone(value string) string {
	digits := Digits(value)
	if len(digits) > MaxPhoneDigits {
		digits = digits[:MaxPhoneDigits]
	}
	if digits == "" {
		return ""
	}

	ddd := digits[:min(2, len(digits))]
	rest := digits[len(ddd):]
	switch {
	case rest == "":
		return "(" + ddd + ") "
	case len(rest) <= 4:
		return "(" + ddd + ") " + rest
	}

	split := len(rest) - 4
	return "(" + ddd + ") " + rest[:split] + "-" + rest[split:]
}
