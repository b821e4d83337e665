// Package validation holds the field rules shared by registration, profiles and reports.
// Every failure is a models.AppError with CodeValidation and the offending field set.
package validation

import (
	"net/mail"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"purpaws/internal/models"
)

const (
	MaxUsernameLength = 150
	MaxEmailLength    = 254
	MinPasswordLength = 8
	MaxPasswordLength = 128
	MaxCityLength     = 100
	MaxPhoneLength    = 20
)

var (
	usernameRegex = regexp.MustCompile(`^[\w.@+-]+$`)
	phoneRegex    = regexp.MustCompile(`^\+?[0-9 ()-]+$`)
)

// ValidateUsername requires 1-150 characters of letters, digits and @.+-_
func ValidateUsername(username string) error {
	if strings.TrimSpace(username) == "" {
		return models.NewFieldError("username", "Username is required")
	}
	if utf8.RuneCountInString(username) > MaxUsernameLength {
		return models.NewFieldError("username", "Username must be 150 characters or fewer")
	}
	if !usernameRegex.MatchString(username) {
		return models.NewFieldError("username", "Username may contain only letters, digits and @/./+/-/_")
	}
	return nil
}

// ValidateEmail checks the address parses as a bare mailbox with a dotted domain.
func ValidateEmail(email string) error {
	if email == "" {
		return models.NewFieldError("email", "Email is required")
	}
	if len(email) > MaxEmailLength {
		return models.NewFieldError("email", "Email must not exceed 254 characters")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return models.NewFieldError("email", "Enter a valid email address")
	}
	_, domain, _ := strings.Cut(email, "@")
	if !strings.Contains(domain, ".") || strings.HasPrefix(domain, ".") || strings.HasSuffix(domain, ".") {
		return models.NewFieldError("email", "Enter a valid email address")
	}
	return nil
}

// ValidatePassword requires 8-128 characters with a lowercase letter, an uppercase letter,
// a digit and a special character.
func ValidatePassword(password string) error {
	n := utf8.RuneCountInString(password)
	if n < MinPasswordLength {
		return models.NewFieldError("password", "Password must be at least 8 characters long")
	}
	if n > MaxPasswordLength {
		return models.NewFieldError("password", "Password must not exceed 128 characters")
	}

	var hasUpper, hasLower, hasDigit, hasSpecial bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			hasSpecial = true
		}
	}
	switch {
	case !hasLower:
		return models.NewFieldError("password", "Password must contain at least one lowercase letter")
	case !hasUpper:
		return models.NewFieldError("password", "Password must contain at least one uppercase letter")
	case !hasDigit:
		return models.NewFieldError("password", "Password must contain at least one digit")
	case !hasSpecial:
		return models.NewFieldError("password", "Password must contain at least one special character")
	}
	return nil
}

// ValidatePasswordConfirmation checks the repeated password matches.
func ValidatePasswordConfirmation(password, confirm string) error {
	if password != confirm {
		return models.NewFieldError("password_confirm", "Passwords do not match")
	}
	return nil
}

// ValidateProfileFields checks the optional profile attributes.
func ValidateProfileFields(age *int, city, phone string) error {
	if age != nil && *age < 0 {
		return models.NewFieldError("age", "Age must be zero or greater")
	}
	if utf8.RuneCountInString(city) > MaxCityLength {
		return models.NewFieldError("city", "City must be 100 characters or fewer")
	}
	if phone != "" {
		if utf8.RuneCountInString(phone) > MaxPhoneLength {
			return models.NewFieldError("phone_number", "Phone number must be 20 characters or fewer")
		}
		if !phoneRegex.MatchString(phone) {
			return models.NewFieldError("phone_number", "Enter a valid phone number")
		}
	}
	return nil
}
