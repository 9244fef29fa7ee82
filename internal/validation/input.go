package validation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// Константы валидации
const (
	MinPhoneLength    = 6
	MaxPhoneLength    = 20
	MaxActionTypeLen  = 100
	MaxEmailLocalPart = 64
	MaxEmailDomain    = 255
)

var (
	emailLocalRegex  = regexp.MustCompile(`^[a-z0-9._+-]+$`)
	emailDomainRegex = regexp.MustCompile(`^[a-z0-9.-]+\.[a-z]{2,}$`)
	phoneRegex       = regexp.MustCompile(`^\+?[0-9]+$`)
)

// ValidateLength проверяет длину строки.
func ValidateLength(fieldName, value string, min, max int) error {
	length := utf8.RuneCountInString(value)
	if min > 0 && length < min {
		return fmt.Errorf("%s должен быть не менее %d символов", fieldName, min)
	}
	if max > 0 && length > max {
		return fmt.Errorf("%s должен быть не более %d символов", fieldName, max)
	}
	return nil
}

// NormalizeEmail приводит email к каноничному виду, в котором он хранится.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// NormalizePhone убирает пробелы, дефисы и скобки.
func NormalizePhone(phone string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '-', '(', ')':
			return -1
		}
		return r
	}, strings.TrimSpace(phone))
}

// ValidateEmail проверяет формат уже нормализованного email.
func ValidateEmail(email string) error {
	if email == "" {
		return fmt.Errorf("email обязателен")
	}

	parts := strings.Split(email, "@")
	if len(parts) != 2 {
		return fmt.Errorf("некорректный формат email")
	}

	localPart := parts[0]
	domainPart := parts[1]

	if len(localPart) == 0 || len(localPart) > MaxEmailLocalPart {
		return fmt.Errorf("локальная часть email должна быть от 1 до %d символов", MaxEmailLocalPart)
	}
	if len(domainPart) == 0 || len(domainPart) > MaxEmailDomain {
		return fmt.Errorf("доменная часть email должна быть от 1 до %d символов", MaxEmailDomain)
	}
	if !emailLocalRegex.MatchString(localPart) {
		return fmt.Errorf("локальная часть email содержит недопустимые символы")
	}
	if !emailDomainRegex.MatchString(domainPart) {
		return fmt.Errorf("доменная часть email имеет некорректный формат")
	}

	return nil
}

// ValidatePhone проверяет уже нормализованный телефон.
func ValidatePhone(phone string) error {
	if phone == "" {
		return fmt.Errorf("телефон обязателен")
	}
	if err := ValidateLength("телефон", phone, MinPhoneLength, MaxPhoneLength); err != nil {
		return err
	}
	if !phoneRegex.MatchString(phone) {
		return fmt.Errorf("телефон может содержать только цифры и ведущий +")
	}
	return nil
}

// ValidateCode проверяет, что код состоит ровно из length цифр.
func ValidateCode(code string, length int) error {
	if len(code) != length {
		return fmt.Errorf("код должен состоять из %d цифр", length)
	}
	for _, r := range code {
		if r < '0' || r > '9' {
			return fmt.Errorf("код должен состоять из %d цифр", length)
		}
	}
	return nil
}
