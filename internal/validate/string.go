// Package validate provides centralized input validation and sanitization
// utilities for the marketd API: length and character constraints on
// user-supplied text and SSRF-safe URL checks for profile links.
package validate

import (
	"errors"
	"fmt"
	"html"
	"strings"
	"unicode/utf8"
)

// String validation errors
var (
	ErrStringTooShort    = errors.New("string is too short")
	ErrStringTooLong     = errors.New("string is too long")
	ErrInvalidCharacters = errors.New("string contains invalid characters")
	ErrEmpty             = errors.New("string is empty")
)

// StringConstraints defines validation constraints for a string.
type StringConstraints struct {
	MinLength  int  // Minimum length (0 = no minimum)
	MaxLength  int  // Maximum length (0 = no maximum)
	AllowEmpty bool // Whether empty strings are allowed
	TrimSpace  bool // Whether to trim whitespace before validation
}

// String validates a string against the given constraints.
// Returns the validated (and optionally trimmed) string and an error if
// validation fails. Lengths are counted in runes, not bytes.
func (c StringConstraints) String(s string) (string, error) {
	if c.TrimSpace {
		s = strings.TrimSpace(s)
	}

	if s == "" {
		if !c.AllowEmpty {
			return "", ErrEmpty
		}
		return s, nil
	}

	length := utf8.RuneCountInString(s)

	if c.MinLength > 0 && length < c.MinLength {
		return "", fmt.Errorf("%w: got %d chars, need at least %d", ErrStringTooShort, length, c.MinLength)
	}
	if c.MaxLength > 0 && length > c.MaxLength {
		return "", fmt.Errorf("%w: got %d chars, maximum is %d", ErrStringTooLong, length, c.MaxLength)
	}

	return s, nil
}

// SanitizeHTML escapes HTML special characters. Called on all user-generated
// text that ends up displayed in a browser.
func SanitizeHTML(s string) string {
	return html.EscapeString(s)
}

// SanitizeString performs both validation and HTML sanitization.
func SanitizeString(s string, constraints StringConstraints) (string, error) {
	validated, err := constraints.String(s)
	if err != nil {
		return "", err
	}
	return SanitizeHTML(validated), nil
}

// SearchText validates a free-text search query:
// - Optional (empty matches everything)
// - Max 200 characters
func SearchText(q string) (string, error) {
	return StringConstraints{
		MaxLength:  200,
		AllowEmpty: true,
		TrimSpace:  true,
	}.String(q)
}

// Tagline validates a business tagline:
// - Optional
// - Max 200 characters
func Tagline(tagline string) (string, error) {
	return SanitizeString(tagline, StringConstraints{
		MaxLength:  200,
		AllowEmpty: true,
		TrimSpace:  true,
	})
}

// Description validates a business description:
// - Optional
// - Max 5000 characters
func Description(desc string) (string, error) {
	return SanitizeString(desc, StringConstraints{
		MaxLength:  5000,
		AllowEmpty: true,
		TrimSpace:  true,
	})
}
