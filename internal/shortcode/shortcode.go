// Package shortcode generates and validates the short identifiers that map
// to original URLs.
package shortcode

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

const (
	// Alphabet is the fixed 62-character set short codes are drawn from.
	Alphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

	// DefaultLength is the length of generated short codes.
	DefaultLength = 6

	// MinCustomLength and MaxCustomLength bound caller-supplied short codes.
	MinCustomLength = 3
	MaxCustomLength = 20

	base36Alphabet = "0123456789abcdefghijklmnopqrstuvwxyz"
)

// reservedCodes cannot be used as custom short codes because they collide
// with route prefixes.
var reservedCodes = map[string]struct{}{
	"api":       {},
	"admin":     {},
	"www":       {},
	"shorturls": {},
	"stats":     {},
	"health":    {},
}

// Generate returns a short code of the given length, drawn uniformly from
// the alphanumeric alphabet.
func Generate(length int) (string, error) {
	const op = "shortcode.Generate"

	code, err := gonanoid.Generate(Alphabet, length)
	if err != nil {
		return "", fmt.Errorf("%s: failed to generate short code: %w", op, err)
	}

	return code, nil
}

// GenerateUnique returns a short code for which exists reports false. It
// tries maxAttempts codes of the default length, then one code two
// characters longer. If that also collides it falls back to a
// timestamp-derived code and returns it without a further existence check;
// the collision window there is accepted as negligible.
func GenerateUnique(exists func(string) bool, maxAttempts int) (string, error) {
	const op = "shortcode.GenerateUnique"

	for i := 0; i < maxAttempts; i++ {
		code, err := Generate(DefaultLength)
		if err != nil {
			return "", fmt.Errorf("%s: %w", op, err)
		}

		if !exists(code) {
			return code, nil
		}
	}

	code, err := Generate(DefaultLength + 2)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	if !exists(code) {
		return code, nil
	}

	code, err = generateTimestamp()
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return code, nil
}

// generateTimestamp builds the terminal fallback code: the current Unix
// millisecond timestamp in base 36 followed by 3 random base-36 characters.
func generateTimestamp() (string, error) {
	suffix, err := gonanoid.Generate(base36Alphabet, 3)
	if err != nil {
		return "", err
	}

	return strconv.FormatInt(time.Now().UnixMilli(), 36) + suffix, nil
}

// ValidateCustom checks a caller-supplied short code and returns every rule
// it violates, not just the first. An empty slice means the code is valid.
func ValidateCustom(code string) []string {
	var violations []string

	if len(code) < MinCustomLength {
		violations = append(violations, fmt.Sprintf("Shortcode must be at least %d characters long", MinCustomLength))
	}
	if len(code) > MaxCustomLength {
		violations = append(violations, fmt.Sprintf("Shortcode must be at most %d characters long", MaxCustomLength))
	}
	if !isAlphanumeric(code) {
		violations = append(violations, "Shortcode must contain only alphanumeric characters")
	}
	if _, ok := reservedCodes[strings.ToLower(code)]; ok {
		violations = append(violations, "Shortcode cannot be a reserved word")
	}

	return violations
}

// Normalize strips surrounding whitespace so padded short codes in requests
// still resolve.
func Normalize(code string) string {
	return strings.TrimSpace(code)
}

func isAlphanumeric(s string) bool {
	if s == "" {
		return false
	}

	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
		default:
			return false
		}
	}

	return true
}
