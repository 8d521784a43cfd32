// Package validate содержит проверки полей формы победителя и маску телефона.
// Все функции тотальные: на любой ввод возвращают результат, а не ошибку.
package validate

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

const phoneDigits = 11

var (
	// DDD (две цифры 1-9) + мобильный префикс 9 + 8 цифр, например 11987654321
	mobileRegex = regexp.MustCompile(`^[1-9]{2}9[0-9]{8}$`)
	emailRegex  = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
)

// оставляет только ASCII цифры
func digitsOf(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if c := s[i]; c >= '0' && c <= '9' {
			b.WriteByte(c)
		}
	}
	return b.String()
}

// FormatPhoneDisplay накладывает маску (DD) DDDDD-DDDD по мере ввода.
// Цифры сверх одиннадцатой отбрасываются, пустой ввод дает пустую строку.
func FormatPhoneDisplay(raw string) string {
	d := digitsOf(raw)
	if len(d) > phoneDigits {
		d = d[:phoneDigits]
	}
	switch {
	case len(d) == 0:
		return ""
	case len(d) <= 2:
		return "(" + d
	case len(d) <= 7:
		return "(" + d[:2] + ") " + d[2:]
	default:
		return "(" + d[:2] + ") " + d[2:7] + "-" + d[7:]
	}
}

// IsValidMobilePhone проверяет бразильский мобильный номер: 11 цифр, третья - 9
func IsValidMobilePhone(raw string) bool {
	d := digitsOf(raw)
	return len(d) == phoneDigits && mobileRegex.MatchString(d)
}

// IsValidEmail проверяет адрес по упрощенной схеме local@domain.tld
func IsValidEmail(raw string) bool {
	return emailRegex.MatchString(raw)
}

// IsValidName требует хотя бы два символа после обрезки пробелов
func IsValidName(raw string) bool {
	return utf8.RuneCountInString(strings.TrimSpace(raw)) >= 2
}
