package review

import (
	"fmt"
	"strings"
)

// Policy decides whether a refresh response may replace the displayed list.
type Policy string

const (
	// PolicyLastArrival applies every response as it arrives, whatever order the
	// requests were sent in. A refresh sent before an optimistic removal can
	// therefore bring the removed item back.
	PolicyLastArrival Policy = "last_arrival"
	// PolicyLatestVersion drops a response when a newer refresh has already been
	// applied or the list changed locally after the request was sent.
	PolicyLatestVersion Policy = "latest_version"
)

// ParsePolicy maps a configuration value onto a Policy. Empty selects PolicyLastArrival.
func ParsePolicy(raw string) (Policy, error) {
	switch p := Policy(strings.ToLower(strings.TrimSpace(raw))); p {
	case "":
		return PolicyLastArrival, nil
	case PolicyLastArrival, PolicyLatestVersion:
		return p, nil
	}
	return "", fmt.Errorf("unknown review consistency policy %q", raw)
}
