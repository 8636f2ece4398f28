// Package validation checks and normalizes request input.
package validation

import (
	"fmt"
	"regexp"
	"strings"
)

const (
	maxNameLength     = 120
	maxLocationLength = 255
	maxInterests      = 30
	maxInterestLength = 48
)

var emailRegex = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

var postcodeRegex = regexp.MustCompile(`^[A-Za-z0-9 -]{2,12}$`)

// ValidateName requires a non-blank display name of reasonable length.
func ValidateName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("name is required")
	}
	if len([]rune(name)) > maxNameLength {
		return fmt.Errorf("name must be at most %d characters", maxNameLength)
	}
	return nil
}

// ValidateEmail accepts an empty email; otherwise it must look like an address.
func ValidateEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil
	}
	if len(email) > 255 || !emailRegex.MatchString(email) {
		return fmt.Errorf("email is not a valid address")
	}
	return nil
}

// ValidatePostcode accepts an empty postcode or a short alphanumeric code.
func ValidatePostcode(postcode string) error {
	postcode = strings.TrimSpace(postcode)
	if postcode == "" {
		return nil
	}
	if !postcodeRegex.MatchString(postcode) {
		return fmt.Errorf("postcode must be 2-12 letters, digits, spaces or hyphens")
	}
	return nil
}

// ValidateLocation bounds the free-text location.
func ValidateLocation(location string) error {
	if len([]rune(strings.TrimSpace(location))) > maxLocationLength {
		return fmt.Errorf("location must be at most %d characters", maxLocationLength)
	}
	return nil
}

// NormalizeInterests trims tags, drops blanks and case-insensitive
// duplicates (keeping the first spelling), and enforces limits.
func NormalizeInterests(raw []string) ([]string, error) {
	seen := make(map[string]struct{}, len(raw))
	out := make([]string, 0, len(raw))
	for _, tag := range raw {
		tag = strings.Join(strings.Fields(tag), " ")
		if tag == "" {
			continue
		}
		if len([]rune(tag)) > maxInterestLength {
			return nil, fmt.Errorf("interest %q exceeds %d characters", tag, maxInterestLength)
		}
		key := strings.ToLower(tag)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, tag)
	}
	if len(out) > maxInterests {
		return nil, fmt.Errorf("at most %d interests are allowed", maxInterests)
	}
	return out, nil
}

// SplitInterests accepts the comma-separated form some sign-up forms submit.
func SplitInterests(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	return strings.Split(raw, ",")
}
