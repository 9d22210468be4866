package validation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Константы валидации
const (
	MinUsernameLength           = 3
	MaxUsernameLength           = 30
	MinDisplayNameLength        = 2
	MaxDisplayNameLength        = 100
	MinProjectTitleLength       = 3
	MaxProjectTitleLength       = 200
	MinProjectDescriptionLength = 10
	MaxProjectDescriptionLength = 5000
	MinCoverLetterLength        = 10
	MaxCoverLetterLength        = 2000
	MinRejectionReasonLength    = 10
	MaxRejectionReasonLength    = 1000
	MaxCommentLength            = 2000
	MaxBioLength                = 1000
	MaxSkillLength              = 50
	MaxSkillsCount              = 50
	MinBudget                   = 0.0
	MaxBudget                   = 100000000.0 // 100 миллионов
)

var (
	emailLocalRegex  = regexp.MustCompile(`^[a-z0-9._+-]+$`)
	emailDomainRegex = regexp.MustCompile(`^[a-z0-9.-]+\.[a-z]{2,}$`)
	usernameRegex    = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)
)

// ValidateLength проверяет длину строки в рунах.
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

// ValidateEmail проверяет формат email.
func ValidateEmail(email string) error {
	if email == "" {
		return fmt.Errorf("email обязателен")
	}

	email = strings.ToLower(strings.TrimSpace(email))

	parts := strings.Split(email, "@")
	if len(parts) != 2 {
		return fmt.Errorf("некорректный формат email")
	}

	localPart, domainPart := parts[0], parts[1]

	if len(localPart) == 0 || len(localPart) > 64 {
		return fmt.Errorf("локальная часть email должна быть от 1 до 64 символов")
	}
	if !emailLocalRegex.MatchString(localPart) {
		return fmt.Errorf("локальная часть email содержит недопустимые символы")
	}
	if !emailDomainRegex.MatchString(domainPart) {
		return fmt.Errorf("доменная часть email имеет некорректный формат")
	}

	return nil
}

// ValidateUsername проверяет имя пользователя.
func ValidateUsername(username string) error {
	if username == "" {
		return fmt.Errorf("имя пользователя обязательно")
	}

	username = strings.TrimSpace(username)

	if err := ValidateLength("имя пользователя", username, MinUsernameLength, MaxUsernameLength); err != nil {
		return err
	}
	if !usernameRegex.MatchString(username) {
		return fmt.Errorf("имя пользователя может содержать только буквы, цифры и подчеркивание")
	}
	if unicode.IsDigit(rune(username[0])) {
		return fmt.Errorf("имя пользователя не может начинаться с цифры")
	}

	return nil
}

// ValidateProjectTitle проверяет заголовок проекта.
func ValidateProjectTitle(title string) error {
	if strings.TrimSpace(title) == "" {
		return fmt.Errorf("название проекта обязательно")
	}
	return ValidateLength("название проекта", strings.TrimSpace(title), MinProjectTitleLength, MaxProjectTitleLength)
}

// ValidateProjectDescription проверяет описание проекта.
func ValidateProjectDescription(description string) error {
	if strings.TrimSpace(description) == "" {
		return fmt.Errorf("описание проекта обязательно")
	}
	return ValidateLength("описание проекта", strings.TrimSpace(description), MinProjectDescriptionLength, MaxProjectDescriptionLength)
}

// ValidateCoverLetter проверяет сопроводительное письмо отклика.
func ValidateCoverLetter(coverLetter string) error {
	if strings.TrimSpace(coverLetter) == "" {
		return fmt.Errorf("сопроводительное письмо обязательно")
	}
	return ValidateLength("сопроводительное письмо", strings.TrimSpace(coverLetter), MinCoverLetterLength, MaxCoverLetterLength)
}

// ValidateBudget проверяет диапазон бюджета.
func ValidateBudget(budgetMin, budgetMax *float64) error {
	if budgetMin != nil && (*budgetMin < MinBudget || *budgetMin > MaxBudget) {
		return fmt.Errorf("минимальный бюджет вне допустимого диапазона")
	}
	if budgetMax != nil && (*budgetMax < MinBudget || *budgetMax > MaxBudget) {
		return fmt.Errorf("максимальный бюджет вне допустимого диапазона")
	}
	if budgetMin != nil && budgetMax != nil && *budgetMin > *budgetMax {
		return fmt.Errorf("минимальный бюджет не может превышать максимальный")
	}
	return nil
}

// ValidateSkills проверяет список навыков.
func ValidateSkills(skills []string) error {
	if len(skills) > MaxSkillsCount {
		return fmt.Errorf("слишком много навыков, максимум %d", MaxSkillsCount)
	}
	for _, skill := range skills {
		if strings.TrimSpace(skill) == "" {
			return fmt.Errorf("навык не может быть пустым")
		}
		if utf8.RuneCountInString(skill) > MaxSkillLength {
			return fmt.Errorf("навык должен быть не более %d символов", MaxSkillLength)
		}
	}
	return nil
}

// ValidateBio проверяет текст о себе.
func ValidateBio(bio *string) error {
	if bio == nil {
		return nil
	}
	return ValidateLength("о себе", *bio, 0, MaxBioLength)
}
