package storage

import "context"

// Nop is used when no journal database is configured.
type Nop struct{}

func (Nop) EnsureSchema(ctx context.Context) error                              { return nil }
func (Nop) StartRun(ctx context.Context, run RunRecord) error                   { return nil }
func (Nop) AddAttempt(ctx context.Context, a AttemptRecord) error               { return nil }
func (Nop) FinishRun(ctx context.Context, runID string, totals RunTotals) error { return nil }
func (Nop) ListUnsettled(ctx context.Context, contract string) ([]AttemptRecord, error) {
	return nil, nil
}
