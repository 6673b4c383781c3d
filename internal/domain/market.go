package domain

import (
	"fmt"
	"strings"
	"time"
)

// Market is one row of the venue's market listing.
type Market struct {
	ID        string `json:"id"`
	CreatorID string `json:"creatorId"`
	Question  string `json:"question"`
}

// Outcome is the side of a binary contract a bet is placed on.
type Outcome string

const (
	OutcomeYes Outcome = "YES"
	OutcomeNo  Outcome = "NO"
)

// ParseOutcome accepts "yes"/"no" in any case.
func ParseOutcome(s string) (Outcome, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case string(OutcomeYes):
		return OutcomeYes, nil
	case string(OutcomeNo):
		return OutcomeNo, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownOutcome, s)
	}
}

// BetRequest is a single wager to submit to the venue.
type BetRequest struct {
	ContractID string  `json:"contract_id"`
	Outcome    Outcome `json:"outcome"`
	Amount     int     `json:"amount"`
}

// BetBatch records one successful dispatch episode: every bet placed for the
// targets that matched an incident on a given poll cycle.
type BetBatch struct {
	ID           string       `json:"id"`
	Indicator    string       `json:"indicator"`
	Description  string       `json:"description"`
	IncidentType IncidentType `json:"incident_type"`
	Date         MonthDay     `json:"date"`
	Bets         []BetRequest `json:"bets"`
	PlacedAt     time.Time    `json:"placed_at"`
}

// ContractIDs returns the distinct contracts in the batch, in first-seen
// order.
func (b BetBatch) ContractIDs() []string {
	seen := make(map[string]bool, len(b.Bets))
	var ids []string
	for _, bet := range b.Bets {
		if seen[bet.ContractID] {
			continue
		}
		seen[bet.ContractID] = true
		ids = append(ids, bet.ContractID)
	}
	return ids
}

// TotalAmount sums the amounts of every bet in the batch.
func (b BetBatch) TotalAmount() int {
	total := 0
	for _, bet := range b.Bets {
		total += bet.Amount
	}
	return total
}
