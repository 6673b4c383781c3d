package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/calabi/internal/domain"
)

// BetStore implements domain.BetRecorder. One batch becomes one bet_batches
// row plus one bets row per wager, written in a single transaction.
type BetStore struct {
	pool *pgxpool.Pool
}

// NewBetStore creates a new BetStore backed by the given connection pool.
func NewBetStore(pool *pgxpool.Pool) *BetStore {
	return &BetStore{pool: pool}
}

// RecordBets persists batch. Recording the same batch id twice is a no-op.
func (s *BetStore) RecordBets(ctx context.Context, batch domain.BetBatch) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres: record bets: begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	const insertBatch = `
		INSERT INTO bet_batches (id, indicator, description, incident_type, target_date, total_amount, placed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO NOTHING`
	tag, err := tx.Exec(ctx, insertBatch,
		batch.ID,
		batch.Indicator,
		batch.Description,
		string(batch.IncidentType),
		batch.Date.String(),
		batch.TotalAmount(),
		batch.PlacedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: insert bet batch %s: %w", batch.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return nil
	}

	rows := make([][]any, 0, len(batch.Bets))
	for _, bet := range batch.Bets {
		rows = append(rows, []any{batch.ID, bet.ContractID, string(bet.Outcome), bet.Amount})
	}
	if _, err := tx.CopyFrom(ctx,
		pgx.Identifier{"bets"},
		[]string{"batch_id", "contract_id", "outcome", "amount"},
		pgx.CopyFromRows(rows),
	); err != nil {
		return fmt.Errorf("postgres: insert bets for batch %s: %w", batch.ID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres: record bets: commit: %w", err)
	}
	return nil
}

// Compile-time interface check.
var _ domain.BetRecorder = (*BetStore)(nil)
