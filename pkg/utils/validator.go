package utils

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

var (
	emailRegex   = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
	controlChars = regexp.MustCompile(`[\x00-\x1f\x7f]`)
)

// ValidateEmail validates an email address
func ValidateEmail(email string) error {
	if !emailRegex.MatchString(email) {
		return fmt.Errorf("invalid email format: %s", email)
	}
	return nil
}

// ValidateHTTPURL checks that raw is an absolute http or https URL
func ValidateHTTPURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid url %q: %w", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("url must use http or https: %s", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("url has no host: %s", raw)
	}
	return nil
}

// SanitizeString removes control characters and surrounding whitespace
func SanitizeString(s string) string {
	return strings.TrimSpace(controlChars.ReplaceAllString(s, ""))
}

// SplitList splits a comma separated flag value, dropping empty entries
func SplitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if v := SanitizeString(part); v != "" {
			out = append(out, v)
		}
	}
	return out
}
