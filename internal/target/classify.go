package target

import (
	"errors"
	"fmt"
	"strings"

	"github.com/alanyoungcy/calabi/internal/domain"
)

// ErrUnparsableTarget is returned when a market matches a target rule but
// its question carries no recognisable month or day.
var ErrUnparsableTarget = errors.New("target question has no parsable date")

// Default classification rules.
var (
	DefaultTrustedCreators = []string{
		"HBlWMFF8XkcatdnIfNt0RPoCrXy1",
		"fwGK5b9peFQbclczNeQdgCtjlYT2",
	}
	DefaultAnyPhrases = []string{"Will GitHub have any incident"}
	DefaultRedPhrases = []string{"Will GitHub have a red incident"}
)

// Rules decide which venue markets are targets.
type Rules struct {
	TrustedCreators []string
	AnyPhrases      []string
	RedPhrases      []string
}

// DefaultRules returns the built-in creator and phrase lists.
func DefaultRules() Rules {
	return Rules{
		TrustedCreators: append([]string(nil), DefaultTrustedCreators...),
		AnyPhrases:      append([]string(nil), DefaultAnyPhrases...),
		RedPhrases:      append([]string(nil), DefaultRedPhrases...),
	}
}

// Classifier turns venue markets into TargetIncidents.
type Classifier struct {
	trusted    map[string]struct{}
	anyPhrases []string
	redPhrases []string
}

// NewClassifier builds a Classifier from rules. Phrase matching is a
// case-sensitive substring test.
func NewClassifier(rules Rules) *Classifier {
	trusted := make(map[string]struct{}, len(rules.TrustedCreators))
	for _, id := range rules.TrustedCreators {
		trusted[id] = struct{}{}
	}
	return &Classifier{
		trusted:    trusted,
		anyPhrases: rules.AnyPhrases,
		redPhrases: rules.RedPhrases,
	}
}

// Classify reports whether m is a target. The "any incident" rule is tried
// before the "red incident" rule. A market that matches a rule but whose
// date cannot be extracted yields ErrUnparsableTarget.
func (c *Classifier) Classify(m domain.Market) (domain.TargetIncident, bool, error) {
	if _, ok := c.trusted[m.CreatorID]; !ok {
		return domain.TargetIncident{}, false, nil
	}

	var incidentType domain.IncidentType
	switch {
	case containsAny(m.Question, c.anyPhrases):
		incidentType = domain.IncidentAny
	case containsAny(m.Question, c.redPhrases):
		incidentType = domain.IncidentRed
	default:
		return domain.TargetIncident{}, false, nil
	}

	day, ok := DayFromQuestion(m.Question)
	if !ok {
		return domain.TargetIncident{}, false, fmt.Errorf("%w: day missing in market %s: %q", ErrUnparsableTarget, m.ID, m.Question)
	}
	month, ok := MonthFromQuestion(m.Question)
	if !ok {
		return domain.TargetIncident{}, false, fmt.Errorf("%w: month missing in market %s: %q", ErrUnparsableTarget, m.ID, m.Question)
	}

	return domain.TargetIncident{
		ContractID:   m.ID,
		Month:        month,
		Day:          day,
		IncidentType: incidentType,
	}, true, nil
}

func containsAny(s string, phrases []string) bool {
	for _, p := range phrases {
		if p != "" && strings.Contains(s, p) {
			return true
		}
	}
	return false
}
