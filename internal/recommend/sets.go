// Package recommend ranks users a requester may want to connect with.
package recommend

import "strings"

// Set is a set of normalized tags or ids.
type Set map[string]struct{}

// NormalizeSet trims and lower-cases values and drops empties.
func NormalizeSet(values []string) Set {
	s := make(Set, len(values))
	for _, v := range values {
		v = strings.ToLower(strings.TrimSpace(v))
		if v == "" {
			continue
		}
		s[v] = struct{}{}
	}
	return s
}

// Add inserts a normalized value.
func (s Set) Add(v string) {
	v = strings.ToLower(strings.TrimSpace(v))
	if v != "" {
		s[v] = struct{}{}
	}
}

// Jaccard returns |a∩b| / |a∪b|, or 0 when either set is empty.
func Jaccard(a, b Set) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	small, large := a, b
	if len(small) > len(large) {
		small, large = large, small
	}
	inter := 0
	for v := range small {
		if _, ok := large[v]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	if union <= 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

// NormalizeLocation trims and lower-cases a free-text location.
func NormalizeLocation(loc string) string {
	return strings.ToLower(strings.TrimSpace(loc))
}

// SameArea reports whether two locations are both set and equal, or one
// contains the other ("brisbane" and "south brisbane").
func SameArea(a, b string) bool {
	a, b = NormalizeLocation(a), NormalizeLocation(b)
	if a == "" || b == "" {
		return false
	}
	return a == b || strings.Contains(a, b) || strings.Contains(b, a)
}
