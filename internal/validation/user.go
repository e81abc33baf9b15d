package validation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	minPasswordLen = 8
	maxPasswordLen = 128
	maxNicknameLen = 20
)

var (
	emailRegex     = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	studentIDRegex = regexp.MustCompile(`^[0-9]{6,12}$`)
)

// Registration is the sign-up form.
type Registration struct {
	Email      string
	Password   string
	Nickname   string
	StudentID  string
	Department string
}

// ValidateRegistration checks required fields and their formats.
func ValidateRegistration(r Registration) error {
	if strings.TrimSpace(r.Email) == "" || r.Password == "" ||
		strings.TrimSpace(r.Nickname) == "" || strings.TrimSpace(r.StudentID) == "" {
		return fmt.Errorf("email, password, nickname and studentId are required")
	}
	if err := ValidateEmail(r.Email); err != nil {
		return err
	}
	if err := ValidateStudentID(r.StudentID); err != nil {
		return err
	}
	if err := ValidatePassword(r.Password); err != nil {
		return err
	}
	return ValidateNickname(r.Nickname)
}

// ValidateEmail checks the address shape.
func ValidateEmail(email string) error {
	if !emailRegex.MatchString(strings.TrimSpace(email)) {
		return fmt.Errorf("invalid email format")
	}
	return nil
}

// ValidateStudentID accepts 6 to 12 digits.
func ValidateStudentID(id string) error {
	if !studentIDRegex.MatchString(strings.TrimSpace(id)) {
		return fmt.Errorf("studentId must be 6-12 digits")
	}
	return nil
}

// ValidatePassword checks length bounds.
func ValidatePassword(password string) error {
	if len(password) < minPasswordLen {
		return fmt.Errorf("password must be at least %d characters long", minPasswordLen)
	}
	if len(password) > maxPasswordLen {
		return fmt.Errorf("password must not exceed %d characters", maxPasswordLen)
	}
	return nil
}

// ValidateNickname checks the display name length.
func ValidateNickname(nickname string) error {
	n := utf8.RuneCountInString(strings.TrimSpace(nickname))
	if n == 0 {
		return fmt.Errorf("nickname is required")
	}
	if n > maxNicknameLen {
		return fmt.Errorf("nickname must not exceed %d characters", maxNicknameLen)
	}
	return nil
}
