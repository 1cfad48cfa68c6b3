package service

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/mbocharov/shortlink/internal/models"
)

// MaxURLLength bounds accepted original URLs.
const MaxURLLength = 2048

// MaxValidityMinutes is one year.
const MaxValidityMinutes = 525600

var protocolRegexp = regexp.MustCompile(`^https?://`)

// unsafeSchemes are rejected anywhere in the URL, not only as its scheme.
var unsafeSchemes = []string{"javascript:", "data:", "vbscript:", "file:", "ftp:"}

// privateHostPatterns match loopback and private-range hosts, which are
// rejected when running in the prod environment.
var privateHostPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)localhost`),
	regexp.MustCompile(`127\.0\.0\.1`),
	regexp.MustCompile(`0\.0\.0\.0`),
	regexp.MustCompile(`::1`),
	regexp.MustCompile(`10\.\d+\.\d+\.\d+`),
	regexp.MustCompile(`192\.168\.\d+\.\d+`),
	regexp.MustCompile(`172\.(1[6-9]|2\d|3[01])\.\d+\.\d+`),
}

// validateURL normalizes and validates an original URL, collecting every
// violated rule. The protocol defaults to https when omitted. rejectPrivate
// enables the loopback/private-host rules.
func validateURL(raw string, rejectPrivate bool) (string, []string) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", []string{"URL cannot be empty"}
	}

	var violations []string

	if len(trimmed) > MaxURLLength {
		violations = append(violations, fmt.Sprintf("URL must be less than %d characters", MaxURLLength))
	}

	normalized := trimmed
	if !protocolRegexp.MatchString(normalized) {
		normalized = "https://" + normalized
	}

	if !isValidHTTPURL(normalized) {
		violations = append(violations, "Invalid URL format")
	}

	if rejectPrivate {
		for _, pattern := range privateHostPatterns {
			if pattern.MatchString(normalized) {
				violations = append(violations, "Localhost and internal URLs are not allowed in production")
				break
			}
		}
	}

	lowered := strings.ToLower(normalized)
	for _, scheme := range unsafeSchemes {
		if strings.Contains(lowered, scheme) {
			violations = append(violations, "URL contains potentially unsafe protocol")
			break
		}
	}

	if len(violations) > 0 {
		return "", violations
	}

	return normalized, nil
}

func isValidHTTPURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	if u.Host == "" || strings.HasSuffix(u.Host, ":") {
		return false
	}

	host := u.Hostname()
	if host == "" || strings.HasSuffix(host, ".") {
		return false
	}

	return true
}

// validateValidity resolves the validity window in minutes. A nil value
// falls back to the default; out-of-range values collect every violated rule.
func validateValidity(validity *int) (int, []string) {
	if validity == nil {
		return models.DefaultValidityMinutes, nil
	}

	var violations []string

	if *validity <= 0 {
		violations = append(violations, "Validity must be greater than 0 minutes")
	}
	if *validity > MaxValidityMinutes {
		violations = append(violations, fmt.Sprintf("Validity cannot exceed %d minutes (1 year)", MaxValidityMinutes))
	}

	if len(violations) > 0 {
		return 0, violations
	}

	return *validity, nil
}
