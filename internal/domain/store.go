package domain

import "context"

// BetRecorder receives every successfully dispatched BetBatch. Recorders are
// observers only: the wagers are already placed when they are called.
type BetRecorder interface {
	RecordBets(ctx context.Context, batch BetBatch) error
}
