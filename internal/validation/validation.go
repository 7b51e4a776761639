// Package validation holds the stateless request checks shared by the handlers and repositories.
package validation

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	ozzo "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/thinkful-ei23/DavidF-noteful-v3/internal/apperr"
)

const (
	FieldUsername = "username"
	FieldPassword = "password"
	FieldFullname = "fullname"

	identifierLength = 36
)

// stringBounds is the accepted length of a registration field in characters.
// maxBytes caps the encoded size independently.
type stringBounds struct {
	min      int
	max      int
	maxBytes int
}

var (
	registrationRequired = []string{FieldUsername, FieldPassword}
	registrationStrings  = []string{FieldUsername, FieldPassword, FieldFullname}
	registrationTrimmed  = []string{FieldUsername, FieldPassword}
	registrationSized    = []struct {
		field  string
		bounds stringBounds
	}{
		{field: FieldUsername, bounds: stringBounds{min: 1}},
		// bcrypt rejects passwords longer than 72 bytes
		{field: FieldPassword, bounds: stringBounds{min: 8, max: 72, maxBytes: 72}},
	}
)

// RequireField fails with MissingFieldError when value is absent or blank.
func RequireField(field string, value *string) error {
	if value == nil || strings.TrimSpace(*value) == "" {
		return &apperr.MissingFieldError{Field: field}
	}
	return nil
}

// IsValidIdentifier reports whether value is a canonical lowercase UUID string.
func IsValidIdentifier(value string) bool {
	if len(value) != identifierLength {
		return false
	}
	parsed, err := uuid.Parse(value)
	if err != nil {
		return false
	}
	return parsed.String() == value
}

// ValidateRegistration applies the registration field rules in order:
// presence, type, whitespace, then length.
func ValidateRegistration(fields map[string]any) error {
	for _, field := range registrationRequired {
		if _, ok := fields[field]; !ok {
			return &apperr.ValidationError{
				Field:   field,
				Message: fmt.Sprintf("Missing '%s' in request body", field),
			}
		}
	}

	for _, field := range registrationStrings {
		value, ok := fields[field]
		if !ok {
			continue
		}
		if _, isString := value.(string); !isString {
			return &apperr.ValidationError{
				Field:   field,
				Message: fmt.Sprintf("Field: '%s' must be type String", field),
			}
		}
	}

	for _, field := range registrationTrimmed {
		value := fields[field].(string)
		if err := ozzo.Validate(value, ozzo.By(trimmed(field))); err != nil {
			return &apperr.ValidationError{Field: field, Message: err.Error()}
		}
	}

	for _, sized := range registrationSized {
		value := fields[sized.field].(string)
		if err := ozzo.Validate(value, lengthRules(sized.field, sized.bounds)...); err != nil {
			return &apperr.ValidationError{Field: sized.field, Message: err.Error()}
		}
	}

	return nil
}

func trimmed(field string) ozzo.RuleFunc {
	return func(value interface{}) error {
		text, _ := value.(string)
		if strings.TrimSpace(text) != text {
			return fmt.Errorf("Field: '%s' cannot start or end with whitespace", field)
		}
		return nil
	}
}

func lengthRules(field string, bounds stringBounds) []ozzo.Rule {
	rules := make([]ozzo.Rule, 0, 4)
	if bounds.min > 0 {
		minMessage := fmt.Sprintf("Field: '%s' must be at least %d characters long", field, bounds.min)
		// RuneLength treats the empty string as valid.
		rules = append(rules,
			ozzo.Required.Error(minMessage),
			ozzo.RuneLength(bounds.min, 0).Error(minMessage),
		)
	}
	if bounds.max > 0 {
		rules = append(rules,
			ozzo.RuneLength(0, bounds.max).Error(fmt.Sprintf("Field: '%s' must be at most %d characters long", field, bounds.max)),
		)
	}
	if bounds.maxBytes > 0 {
		rules = append(rules,
			ozzo.Length(0, bounds.maxBytes).Error(fmt.Sprintf("Field: '%s' must be at most %d bytes long", field, bounds.maxBytes)),
		)
	}
	return rules
}
