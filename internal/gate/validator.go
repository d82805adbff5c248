package gate

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// MinMessageLength is the minimum trimmed message length in characters.
const MinMessageLength = 10

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// ValidateEmail reports whether the trimmed candidate has the shape local@domain.tld.
func ValidateEmail(candidate string) bool {
	return emailPattern.MatchString(strings.TrimSpace(candidate))
}

// ValidateMessage reports whether the trimmed candidate has at least MinMessageLength characters.
func ValidateMessage(candidate string) bool {
	return utf8.RuneCountInString(strings.TrimSpace(candidate)) >= MinMessageLength
}

// NormalizeEmail trims and lower-cases an address.
func NormalizeEmail(candidate string) string {
	return strings.ToLower(strings.TrimSpace(candidate))
}

type FieldState string

const (
	FieldEmpty   FieldState = "empty"
	FieldInvalid FieldState = "invalid"
	FieldValid   FieldState = "valid"
)

// FormState is the live state of the submission form.
type FormState struct {
	Email     FieldState
	Message   FieldState
	CanSubmit bool
}

func fieldState(value string, valid func(string) bool) FieldState {
	switch {
	case strings.TrimSpace(value) == "":
		return FieldEmpty
	case valid(value):
		return FieldValid
	default:
		return FieldInvalid
	}
}

// EvaluateForm computes field states; submit is enabled only when both are valid.
func EvaluateForm(email, message string) FormState {
	s := FormState{
		Email:   fieldState(email, ValidateEmail),
		Message: fieldState(message, ValidateMessage),
	}
	s.CanSubmit = s.Email == FieldValid && s.Message == FieldValid
	return s
}
