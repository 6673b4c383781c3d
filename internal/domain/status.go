package domain

import "fmt"

// IndicatorNone is the status-feed indicator reported when there is no
// ongoing incident.
const IndicatorNone = "none"

// Status is the inner object of a status-feed response.
type Status struct {
	Description string `json:"description"`
	Indicator   string `json:"indicator"`
}

// StatusEnvelope is the decoded body of the status feed:
// {"status":{"description":"...","indicator":"..."}}.
type StatusEnvelope struct {
	Status Status `json:"status"`
}

// Description returns the human readable status line.
func (e StatusEnvelope) Description() string {
	return e.Status.Description
}

// Indicator returns the raw severity code (none, minor, major, critical).
func (e StatusEnvelope) Indicator() string {
	return e.Status.Indicator
}

// IsOK reports whether the feed currently reports no incident.
func (e StatusEnvelope) IsOK() bool {
	return e.Status.Indicator == IndicatorNone
}

// IncidentType is the incident class a target contract is tied to.
type IncidentType string

const (
	// IncidentAny covers minor and major incidents.
	IncidentAny IncidentType = "any"
	// IncidentRed covers critical incidents.
	IncidentRed IncidentType = "red"
)

// ParseIncidentType maps a status-feed indicator onto an IncidentType.
// "none" is not an incident and is rejected like any other unknown value;
// callers are expected to check StatusEnvelope.IsOK first.
func ParseIncidentType(indicator string) (IncidentType, error) {
	switch indicator {
	case "minor", "major":
		return IncidentAny, nil
	case "critical":
		return IncidentRed, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownIndicator, indicator)
	}
}

func (t IncidentType) String() string {
	return string(t)
}
