//go:build integration

package pg_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/pvzzle/airdrop/internal/storage"
	"github.com/pvzzle/airdrop/internal/storage/pg"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

func TestRepo_RunAndAttempts(t *testing.T) {
	dsn := os.Getenv("TEST_PG_DSN")
	if dsn == "" {
		dsn = os.Getenv("POSTGRES_URL")
	}
	if dsn == "" {
		t.Skip("TEST_PG_DSN/POSTGRES_URL is not set")
	}

	ctx := context.Background()

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("pool: %v", err)
	}
	t.Cleanup(pool.Close)

	repo := pg.New(pool)
	if err := repo.EnsureSchema(ctx); err != nil {
		t.Fatalf("EnsureSchema: %v", err)
	}

	_, _ = pool.Exec(ctx, "TRUNCATE distribution_attempts, distribution_runs RESTART IDENTITY CASCADE")

	now := time.Now().UTC()
	runID := uuid.NewString()

	if err := repo.StartRun(ctx, storage.RunRecord{
		ID:         runID,
		ChainID:    "8453",
		Contract:   "0xcccccccccccccccccccccccccccccccccccccccc",
		Operator:   "0xdddddddddddddddddddddddddddddddddddddddd",
		LedgerPath: "airdrop.csv",
		Pending:    2,
		StartedAt:  now,
	}); err != nil {
		t.Fatalf("StartRun: %v", err)
	}

	wei := "10000000000000000000"
	hash := "0x" + repeat("1", 64)
	lostHash := "0x" + repeat("2", 64)
	link := "https://basescan.org/tx/" + hash
	bn := uint64(123)
	subKind, subMsg := "submission", "insufficient funds"
	toKind, toMsg := "timeout", "await: context deadline exceeded"

	attempts := []storage.AttemptRecord{
		{
			RunID: runID, Position: 0,
			Recipient: "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa", Amount: "10", AmountWei: &wei,
			TxHash: &hash, BlockNum: &bn, Status: storage.AttemptSuccess, Link: &link,
			Duration: 1500 * time.Millisecond, At: now,
		},
		{
			RunID: runID, Position: 1,
			Recipient: "0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb", Amount: "5",
			Status: storage.AttemptFailed, ErrorKind: &subKind, Error: &subMsg,
			At: now,
		},
		{
			RunID: runID, Position: 2,
			Recipient: "0xCcCCccccCCCCcCCCCCCcCcCccCcCCCcCcccccccC", Amount: "7", AmountWei: &wei,
			TxHash: &lostHash, Status: storage.AttemptFailed, ErrorKind: &toKind, Error: &toMsg,
			Duration: 5 * time.Minute, At: now,
		},
	}
	for _, a := range attempts {
		if err := repo.AddAttempt(ctx, a); err != nil {
			t.Fatalf("AddAttempt: %v", err)
		}
	}

	if err := repo.FinishRun(ctx, runID, storage.RunTotals{Succeeded: 1, Failed: 2, Total: 3, FinishedAt: now}); err != nil {
		t.Fatalf("FinishRun: %v", err)
	}

	got, err := repo.ListUnsettled(ctx, "0xCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCC")
	if err != nil {
		t.Fatalf("ListUnsettled: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 unsettled attempt, got=%d", len(got))
	}
	if got[0].TxHash == nil || *got[0].TxHash != lostHash || got[0].AmountWei == nil || *got[0].AmountWei != wei {
		t.Fatalf("unexpected unsettled attempt: %+v", got[0])
	}
	if got[0].ErrorKind == nil || *got[0].ErrorKind != toKind || got[0].Duration != 5*time.Minute {
		t.Fatalf("unexpected unsettled attempt: %+v", got[0])
	}

	// a later success for the same recipient clears it
	runID2 := uuid.NewString()
	if err := repo.StartRun(ctx, storage.RunRecord{
		ID: runID2, ChainID: "8453", Contract: "0xcccccccccccccccccccccccccccccccccccccccc",
		Operator: "0xdddddddddddddddddddddddddddddddddddddddd", LedgerPath: "airdrop.csv",
		Pending: 2, Settled: 1, StartedAt: now,
	}); err != nil {
		t.Fatalf("StartRun: %v", err)
	}
	if err := repo.AddAttempt(ctx, storage.AttemptRecord{
		RunID: runID2, Position: 2,
		Recipient: "0xcccccccccccccccccccccccccccccccccccccccc", Amount: "7",
		Status: storage.AttemptSuccess, At: now,
	}); err != nil {
		t.Fatalf("AddAttempt: %v", err)
	}

	got, err = repo.ListUnsettled(ctx, "0xcccccccccccccccccccccccccccccccccccccccc")
	if err != nil {
		t.Fatalf("ListUnsettled: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected nothing unsettled, got=%+v", got)
	}

	other, err := repo.ListUnsettled(ctx, "0xeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeee")
	if err != nil || len(other) != 0 {
		t.Fatalf("expected nothing for another contract, got=%v err=%v", other, err)
	}
}

func repeat(s string, n int) string {
	out := ""
	for i := 0; i < n; i++ {
		out += s
	}
	return out
}
