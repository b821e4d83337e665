package validation

import (
	"strings"
	"unicode/utf8"

	"purpaws/internal/models"
)

// Required fails when value is blank.
func Required(field, label, value string) error {
	if strings.TrimSpace(value) == "" {
		return models.NewFieldError(field, label+" is required")
	}
	return nil
}

// MaxLength fails when value has more than max characters.
func MaxLength(field, label, value string, max int) error {
	if utf8.RuneCountInString(value) > max {
		return models.NewFieldError(field, label+" is too long")
	}
	return nil
}

// NonNegative fails when an optional number is below zero.
func NonNegative(field, label string, v *int) error {
	if v != nil && *v < 0 {
		return models.NewFieldError(field, label+" must be zero or greater")
	}
	return nil
}

// Gender accepts Male, Female or Unknown; empty means Unknown.
func Gender(g models.PetGender) (models.PetGender, error) {
	if g == "" {
		return models.GenderUnknown, nil
	}
	if !g.Valid() {
		return "", models.NewFieldError("gender", "Gender must be Male, Female or Unknown")
	}
	return g, nil
}

// First returns the first non-nil error, so callers can list checks in form order.
func First(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
