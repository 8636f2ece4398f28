// Package featureflags evaluates rollout flags from FEATURE_FLAGS.
package featureflags

import (
	"fmt"
	"hash/fnv"
	"strconv"
	"strings"
)

// Flags consulted by the API.
const (
	Recommendations = "recommendations"
	ConnectionsFeed = "connections_feed"
	Realtime        = "realtime"
)

// Features lists the flags the API gates on, in display order.
var Features = []string{Recommendations, ConnectionsFeed, Realtime}

// rule is one parsed flag value: a percentage in [0, 100].
type rule struct {
	raw     string
	percent int
}

// Manager evaluates feature flags defined in a simple key=value list.
// Example: "recommendations=on,connections_feed=25%,realtime=off"
type Manager struct {
	flags map[string]rule
}

// NewManager creates a feature-flag manager from a comma-separated config string.
// Entries with unrecognized values are ignored.
func NewManager(raw string) *Manager {
	out := make(map[string]rule)

	for _, pair := range strings.Split(raw, ",") {
		key, value, ok := strings.Cut(pair, "=")
		if !ok {
			continue
		}
		key, value = normalize(key), normalize(value)
		if key == "" || value == "" {
			continue
		}
		pct, ok := parsePercent(value)
		if !ok {
			continue
		}
		out[key] = rule{raw: value, percent: pct}
	}

	return &Manager{flags: out}
}

func parsePercent(value string) (int, bool) {
	switch value {
	case "on", "true", "1":
		return 100, true
	case "off", "false", "0":
		return 0, true
	}
	if !strings.HasSuffix(value, "%") {
		return 0, false
	}
	pct, err := strconv.Atoi(strings.TrimSuffix(value, "%"))
	if err != nil {
		return 0, false
	}
	return max(0, min(100, pct)), true
}

// Configured reports whether name has a rule.
func (m *Manager) Configured(name string) bool {
	if m == nil {
		return false
	}
	_, ok := m.flags[normalize(name)]
	return ok
}

// Enabled returns whether a flag is enabled for a given user. Unknown flags
// are off. Partial rollouts bucket users deterministically and exclude userID 0.
func (m *Manager) Enabled(name string, userID uint) bool {
	if m == nil {
		return false
	}
	r, ok := m.flags[normalize(name)]
	if !ok {
		return false
	}
	switch {
	case r.percent <= 0:
		return false
	case r.percent >= 100:
		return true
	case userID == 0:
		return false
	default:
		return rolloutBucket(name, userID) < r.percent
	}
}

// Allowed is Enabled for flags that default on: a flag that was never
// configured does not gate its feature.
func (m *Manager) Allowed(name string, userID uint) bool {
	if !m.Configured(name) {
		return true
	}
	return m.Enabled(name, userID)
}

// Raw returns a copy of configured flags.
func (m *Manager) Raw() map[string]string {
	if m == nil {
		return map[string]string{}
	}
	out := make(map[string]string, len(m.flags))
	for k, r := range m.flags {
		out[k] = r.raw
	}
	return out
}

// Snapshot returns evaluated flag status for one user.
func (m *Manager) Snapshot(userID uint) map[string]bool {
	if m == nil {
		return map[string]bool{}
	}
	out := make(map[string]bool, len(m.flags))
	for name := range m.flags {
		out[name] = m.Enabled(name, userID)
	}
	return out
}

// FeatureStates reports every gated feature for one user, applying the
// default-on rule for flags that are not configured.
func (m *Manager) FeatureStates(userID uint) map[string]bool {
	out := make(map[string]bool, len(Features))
	for _, name := range Features {
		out[name] = m.Allowed(name, userID)
	}
	return out
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func rolloutBucket(name string, userID uint) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(fmt.Sprintf("%s:%d", normalize(name), userID)))
	return int(h.Sum32() % 100)
}
