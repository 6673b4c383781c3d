package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path"
	"strings"

	"github.com/alanyoungcy/calabi/internal/domain"
)

// Journal implements domain.BetRecorder by writing each batch as one JSON
// object under <prefix>/YYYY/MM/DD/<batch id>.json, dated by PlacedAt in
// UTC.
type Journal struct {
	writer domain.BlobWriter
	prefix string
}

// NewJournal creates a Journal writing through w. prefix may be empty.
func NewJournal(w domain.BlobWriter, prefix string) *Journal {
	return &Journal{writer: w, prefix: strings.Trim(prefix, "/")}
}

// ObjectKey returns the key a batch is stored under.
func (j *Journal) ObjectKey(batch domain.BetBatch) string {
	placed := batch.PlacedAt.UTC()
	key := path.Join(placed.Format("2006/01/02"), batch.ID+".json")
	if j.prefix == "" {
		return key
	}
	return path.Join(j.prefix, key)
}

// RecordBets uploads batch.
func (j *Journal) RecordBets(ctx context.Context, batch domain.BetBatch) error {
	body, err := json.MarshalIndent(batch, "", "  ")
	if err != nil {
		return fmt.Errorf("s3blob: marshal bet batch %s: %w", batch.ID, err)
	}

	if err := j.writer.Put(ctx, j.ObjectKey(batch), bytes.NewReader(body), "application/json"); err != nil {
		return fmt.Errorf("s3blob: journal bet batch %s: %w", batch.ID, err)
	}
	return nil
}

// Compile-time interface check.
var _ domain.BetRecorder = (*Journal)(nil)
