package validation

import (
	"fmt"
	"net/url"
	"strings"
	"unicode/utf8"
)

// ValidateDisplayName validates a set_name payload before truncation.
// Truncation to 32 code points happens downstream; this only rejects
// obviously malformed input.
func ValidateDisplayName(name string) error {
	if !utf8.ValidString(name) {
		return fmt.Errorf("display name contains invalid UTF-8")
	}
	return nil
}

// ValidateAgentID validates that a slot id falls within the fixed pool.
func ValidateAgentID(id, maxSlots int) error {
	if id < 1 || id > maxSlots {
		return fmt.Errorf("agent id %d out of range [1,%d]", id, maxSlots)
	}
	return nil
}

// ValidateURL validates URL format
func ValidateURL(urlStr string) error {
	if urlStr == "" {
		return fmt.Errorf("URL is required")
	}
	u, err := url.Parse(urlStr)
	if err != nil {
		return fmt.Errorf("invalid URL format: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid URL scheme (must be http or https)")
	}
	if u.Host == "" {
		return fmt.Errorf("URL must have a host")
	}
	return nil
}

// ValidateNonEmptyString validates that string is not empty after trimming
func ValidateNonEmptyString(s, fieldName string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return fmt.Errorf("%s is required", fieldName)
	}
	return nil
}

// ValidateStringLength validates string length in Unicode code points
func ValidateStringLength(s string, min, max int, fieldName string) error {
	length := utf8.RuneCountInString(s)
	if length < min {
		return fmt.Errorf("%s must be at least %d characters", fieldName, min)
	}
	if length > max {
		return fmt.Errorf("%s is too long (max %d characters)", fieldName, max)
	}
	return nil
}
