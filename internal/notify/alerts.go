package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/alanyoungcy/calabi/internal/domain"
)

// BetAlerter implements domain.BetRecorder by announcing each placed batch
// as a bets_placed event.
type BetAlerter struct {
	notifier *Notifier
}

// NewBetAlerter creates a BetAlerter.
func NewBetAlerter(n *Notifier) *BetAlerter {
	return &BetAlerter{notifier: n}
}

// RecordBets sends the batch summary.
func (a *BetAlerter) RecordBets(ctx context.Context, batch domain.BetBatch) error {
	return a.notifier.Notify(ctx, EventBetsPlaced, BetsPlacedTitle(batch), BetsPlacedMessage(batch))
}

// BetsPlacedTitle is the alert title for batch.
func BetsPlacedTitle(batch domain.BetBatch) string {
	return fmt.Sprintf("Bets placed on %s incident", batch.IncidentType)
}

// BetsPlacedMessage renders the alert body for batch.
func BetsPlacedMessage(batch domain.BetBatch) string {
	var b strings.Builder
	fmt.Fprintf(&b, "GitHub status: %s (%s)\n", batch.Description, batch.Indicator)
	fmt.Fprintf(&b, "Date: %s\n", batch.Date)

	perContract := make(map[string]int)
	for _, bet := range batch.Bets {
		perContract[bet.ContractID] += bet.Amount
	}
	for _, id := range batch.ContractIDs() {
		fmt.Fprintf(&b, "- %s: %d\n", id, perContract[id])
	}
	fmt.Fprintf(&b, "Total: %d over %d bets", batch.TotalAmount(), len(batch.Bets))
	return b.String()
}

// Compile-time interface check.
var _ domain.BetRecorder = (*BetAlerter)(nil)
