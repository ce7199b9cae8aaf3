package utils

import (
	"fmt"
	"html"
	"regexp"
	"strings"
)

// FieldValidationError represents a validation error for a specific field
type FieldValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// FieldValidationErrors represents multiple field validation errors
type FieldValidationErrors []FieldValidationError

// Error implements the error interface
func (e FieldValidationErrors) Error() string {
	var messages []string
	for _, err := range e {
		messages = append(messages, fmt.Sprintf("%s: %s", err.Field, err.Message))
	}
	return strings.Join(messages, "; ")
}

var (
	phoneRegex   = regexp.MustCompile(`^\+?[0-9]{7,13}$`)
	htmlTagRegex = regexp.MustCompile(`<[^>]*>`)
	jsEventRegex = regexp.MustCompile(`on\w+="[^"]*"`)
)

// SanitizeString strips tags and event handlers, then escapes what remains.
func SanitizeString(input string) string {
	sanitized := htmlTagRegex.ReplaceAllString(input, "")
	sanitized = jsEventRegex.ReplaceAllString(sanitized, "")
	return html.EscapeString(strings.TrimSpace(sanitized))
}

// NormalizePhone removes spaces and dashes from a phone number.
func NormalizePhone(phone string) string {
	return strings.Map(func(r rune) rune {
		if r == ' ' || r == '-' || r == '(' || r == ')' {
			return -1
		}
		return r
	}, strings.TrimSpace(phone))
}

// ValidatePhone checks a normalized phone number.
func ValidatePhone(phone string) (bool, string) {
	if len(phone) > MaxPhoneLength+1 || !phoneRegex.MatchString(phone) {
		return false, "Phone number must be 7 to 13 digits, optionally prefixed with +"
	}
	return true, ""
}

// ValidateContact checks the phone and address supplied at checkout or on an
// order edit. Blank values are reported separately so callers can map them
// to a missing-information error.
func ValidateContact(phone, address string) FieldValidationErrors {
	var errs FieldValidationErrors
	if phone == "" {
		errs = append(errs, FieldValidationError{Field: "phone", Message: "Phone is required"})
	} else if ok, msg := ValidatePhone(phone); !ok {
		errs = append(errs, FieldValidationError{Field: "phone", Message: msg})
	}
	if address == "" {
		errs = append(errs, FieldValidationError{Field: "address", Message: "Address is required"})
	}
	return errs
}
