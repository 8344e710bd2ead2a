// Package store abstracts the document collections backing the portfolio:
// enumerate, create, update, delete, chunked batch delete, and live
// snapshot subscriptions. Implementations: an in-memory store for tests
// and single-process use, and a Postgres JSONB adapter.
package store

import (
	"context"
	"time"

	"cartera-reconciler/internal/models"
)

// DeleteChunkSize bounds one atomic multi-delete. Document stores cap
// batched writes around 500 operations; staying under leaves headroom.
const DeleteChunkSize = 450

// ChunkPause is the delay between delete chunks, easing rate limits.
const ChunkPause = 25 * time.Millisecond

// Store is the portfolio record collection.
type Store interface {
	// ListAll returns a snapshot of every record.
	ListAll(ctx context.Context) ([]*models.PolicyRecord, error)

	// Create persists a new record and returns its assigned id.
	Create(ctx context.Context, rec *models.PolicyRecord) (string, error)

	// Update replaces the fields of the record with the given id.
	Update(ctx context.Context, id string, rec *models.PolicyRecord) error

	// Delete removes one record. Deleting a missing id is not an error.
	Delete(ctx context.Context, id string) error

	// BatchDelete removes many records, chunked internally to respect
	// batch-size limits.
	BatchDelete(ctx context.Context, ids []string) error

	// Subscribe yields a full snapshot on every backing change. The
	// first snapshot arrives promptly after subscribing. The returned
	// stop function releases the subscription and closes the channel.
	Subscribe(ctx context.Context) (<-chan []*models.PolicyRecord, func(), error)
}

// FinancedStore is the financed-policy workflow collection.
type FinancedStore interface {
	ListAll(ctx context.Context) ([]*models.FinancedPolicy, error)
	Create(ctx context.Context, p *models.FinancedPolicy) (string, error)
	Update(ctx context.Context, id string, p *models.FinancedPolicy) error
	Delete(ctx context.Context, id string) error
}

// Chunk splits ids into DeleteChunkSize groups preserving order.
func Chunk(ids []string) [][]string {
	if len(ids) == 0 {
		return nil
	}
	chunks := make([][]string, 0, len(ids)/DeleteChunkSize+1)
	for start := 0; start < len(ids); start += DeleteChunkSize {
		end := start + DeleteChunkSize
		if end > len(ids) {
			end = len(ids)
		}
		chunks = append(chunks, ids[start:end])
	}
	return chunks
}
