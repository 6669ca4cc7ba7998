package middleware

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Input validation and sanitization utilities

const (
	// MaxPINLength bounds the PIN accepted by the session endpoint.
	MaxPINLength = 128
	// MaxContextRunes bounds the assignment context string.
	MaxContextRunes = 500
	// MaxModelLength bounds the model identifier a client may send.
	MaxModelLength = 128
)

// ValidatePIN checks presence and length only; the PIN itself is opaque.
func ValidatePIN(pin string) error {
	if strings.TrimSpace(pin) == "" {
		return fmt.Errorf("PIN is required")
	}
	if len(pin) > MaxPINLength {
		return fmt.Errorf("PIN is too long")
	}
	return nil
}

// ValidateModel rejects oversized or control-character model strings. Whether
// the model is allowed is decided later by the allow-list.
func ValidateModel(model string) error {
	if len(model) > MaxModelLength {
		return fmt.Errorf("model identifier is too long")
	}
	for _, r := range model {
		if r < 32 || r == 127 {
			return fmt.Errorf("invalid characters in model identifier")
		}
	}
	return nil
}

// SanitizeString removes dangerous characters from strings
func SanitizeString(input string) string {
	input = strings.ReplaceAll(input, "\x00", "")

	var result strings.Builder
	for _, r := range input {
		if r >= 32 || r == '\t' || r == '\n' {
			result.WriteRune(r)
		}
	}
	return strings.TrimSpace(result.String())
}

// SanitizeContext cleans the assignment context and caps its length.
func SanitizeContext(s string) string {
	s = SanitizeString(strings.ReplaceAll(s, "\n", " "))
	if utf8.RuneCountInString(s) <= MaxContextRunes {
		return s
	}
	runes := []rune(s)
	return strings.TrimSpace(string(runes[:MaxContextRunes]))
}
