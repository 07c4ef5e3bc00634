// Package validation checks request payloads and query strings before they reach the services.
package validation

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"fruitmap/internal/models"

	"github.com/google/uuid"
)

var (
	emailRegex    = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
	usernameRegex = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)
)

// fieldErrors collects per-field messages, keeping only the first one for each field.
type fieldErrors struct {
	list []models.FieldError
	seen map[string]bool
}

func (f *fieldErrors) add(field, message string) {
	if f.seen == nil {
		f.seen = map[string]bool{}
	}
	if f.seen[field] {
		return
	}
	f.seen[field] = true
	f.list = append(f.list, models.FieldError{Field: field, Message: message})
}

func (f *fieldErrors) err() error {
	if len(f.list) == 0 {
		return nil
	}
	return models.NewFieldValidationError(f.list)
}

func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}

// ValidateEmail checks basic email format.
func ValidateEmail(email string) bool {
	return len(email) <= 254 && emailRegex.MatchString(email)
}

// ValidateUsername checks length (3-30) and the allowed alphabet.
func ValidateUsername(username string) string {
	if n := runeLen(username); n < 3 || n > 30 {
		return "Username must be between 3 and 30 characters"
	}
	if !usernameRegex.MatchString(username) {
		return "Username can only contain letters, numbers, and underscores"
	}
	return ""
}

// IsUUID reports whether s is a canonical UUID.
func IsUUID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil && len(s) == 36
}

func oneOf(v string, allowed []string) bool {
	for _, a := range allowed {
		if v == a {
			return true
		}
	}
	return false
}

func parseOptionalFloat(raw string) (*float64, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, true
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil, false
	}
	return &v, true
}

func parseOptionalInt(raw string) (*int, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return nil, false
	}
	return &v, true
}
