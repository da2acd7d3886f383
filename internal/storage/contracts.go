package storage

import "context"

// Repository is the optional attempt journal. The CSV ledger stays the source
// of truth; journal writes are best effort.
type Repository interface {
	EnsureSchema(ctx context.Context) error

	StartRun(ctx context.Context, run RunRecord) error
	AddAttempt(ctx context.Context, a AttemptRecord) error
	FinishRun(ctx context.Context, runID string, totals RunTotals) error

	// ListUnsettled returns failed attempts against contract that carry a
	// transaction hash and were not followed by a success for the same
	// recipient, newest first.
	ListUnsettled(ctx context.Context, contract string) ([]AttemptRecord, error)
}
