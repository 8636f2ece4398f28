package validation

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var publicIDRegex = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.:-]{0,95}$`)

// occurrenceKeyRegex captures the event id prefix of EVENTID-YYYY-MM-DDTHH:MM.
var occurrenceKeyRegex = regexp.MustCompile(`^(.+?)-\d{4}-\d{2}-\d{2}T\d{2}:\d{2}`)

// ValidatePublicID checks an event or occurrence identifier.
func ValidatePublicID(id string) error {
	if !publicIDRegex.MatchString(id) {
		return fmt.Errorf("identifier %q is not valid", id)
	}
	return nil
}

// EventIDFromOccurrenceKey extracts EVENTID from an occurrence key.
func EventIDFromOccurrenceKey(key string) (string, bool) {
	m := occurrenceKeyRegex.FindStringSubmatch(strings.TrimSpace(key))
	if m == nil || m[1] == "" {
		return "", false
	}
	return m[1], true
}

// NumericID parses a positive record id, reporting false for anything else.
func NumericID(raw string) (uint, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, false
	}
	n, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || n == 0 {
		return 0, false
	}
	return uint(n), true
}
