package storage

import (
	"context"
	"errors"

	"retail-pipeline/models"
)

// ErrStoreWrite wraps any failure while applying a write plan. A run that
// returns it has failed as a whole and may be retried in full.
var ErrStoreWrite = errors.New("store write failed")

// ApplyResult reports what a plan changed. A summary whose run key is
// already stored is skipped and listed in DuplicateRunKeys.
type ApplyResult struct {
	Upserts           int
	SummariesInserted int
	DuplicateRunKeys  []string
}

// Store applies write plans in the order given.
type Store interface {
	Apply(ctx context.Context, ops []models.WriteOp) (ApplyResult, error)
	Close() error
}

// TransactionLogWriter persists the canonical transaction log.
type TransactionLogWriter interface {
	WriteTransactions(ctx context.Context, txns []*models.Transaction) error
}

// SummaryHistory reads back stored batch summaries, newest first.
type SummaryHistory interface {
	FetchSummaries(ctx context.Context, limit int) ([]*models.BatchSummary, error)
}

// RawRecordReader is the interface for extracting unprocessed records.
type RawRecordReader interface {
	ReadAll() ([]models.RawRecord, error)
	Close() error
}
