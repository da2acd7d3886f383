package pg

import (
	"context"
	"time"

	"github.com/pvzzle/airdrop/internal/storage"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Postgres struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Postgres { return &Postgres{pool: pool} }

func (r *Postgres) EnsureSchema(ctx context.Context) error {
	ddl := `
CREATE TABLE IF NOT EXISTS distribution_runs (
  run_id UUID PRIMARY KEY,
  chain_id TEXT NOT NULL,
  contract TEXT NOT NULL,
  operator TEXT NOT NULL,
  ledger_path TEXT NOT NULL,

  pending INT NOT NULL,
  settled INT NOT NULL,

  succeeded INT NULL,
  failed    INT NULL,
  total     INT NULL,

  started_at  TIMESTAMPTZ NOT NULL,
  finished_at TIMESTAMPTZ NULL -- NULL: interrupted or still running
);

CREATE TABLE IF NOT EXISTS distribution_attempts (
  id BIGSERIAL PRIMARY KEY,
  run_id UUID NOT NULL REFERENCES distribution_runs(run_id) ON DELETE CASCADE,
  position INT NOT NULL,

  recipient TEXT NOT NULL,
  amount    TEXT NOT NULL,
  amount_wei NUMERIC(78,0) NULL,

  tx_hash TEXT NULL,
  block_number BIGINT NULL,

  status TEXT NOT NULL, -- success|failed
  error_kind TEXT NULL,
  error TEXT NULL,
  explorer_link TEXT NULL,

  duration_ms BIGINT NOT NULL,
  created_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS distribution_attempts_run_idx ON distribution_attempts(run_id, position);
CREATE INDEX IF NOT EXISTS distribution_attempts_recipient_idx ON distribution_attempts(lower(recipient));
`
	_, err := r.pool.Exec(ctx, ddl)
	return err
}

func (r *Postgres) StartRun(ctx context.Context, run storage.RunRecord) error {
	cctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	_, err := r.pool.Exec(cctx, `
INSERT INTO distribution_runs(run_id, chain_id, contract, operator, ledger_path, pending, settled, started_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (run_id) DO NOTHING`,
		run.ID, run.ChainID, run.Contract, run.Operator, run.LedgerPath,
		run.Pending, run.Settled, run.StartedAt,
	)
	return err
}

func (r *Postgres) AddAttempt(ctx context.Context, a storage.AttemptRecord) error {
	cctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	var (
		amountWei any = nil
		blockNum  any = nil
	)
	if a.AmountWei != nil {
		amountWei = *a.AmountWei // будет каститься в numeric
	}
	if a.BlockNum != nil {
		blockNum = int64(*a.BlockNum)
	}

	q := `
INSERT INTO distribution_attempts(
  run_id, position, recipient, amount, amount_wei,
  tx_hash, block_number, status, error_kind, error, explorer_link,
  duration_ms, created_at
) VALUES (
  $1, $2, $3, $4, $5::numeric,
  $6, $7, $8, $9, $10, $11,
  $12, $13
)`
	_, err := r.pool.Exec(cctx, q,
		a.RunID, a.Position, a.Recipient, a.Amount, amountWei,
		a.TxHash, blockNum, string(a.Status), a.ErrorKind, a.Error, a.Link,
		a.Duration.Milliseconds(), a.At,
	)
	return err
}

func (r *Postgres) FinishRun(ctx context.Context, runID string, totals storage.RunTotals) error {
	cctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	_, err := r.pool.Exec(cctx, `
UPDATE distribution_runs
SET succeeded = $2, failed = $3, total = $4, finished_at = $5
WHERE run_id = $1`,
		runID, totals.Succeeded, totals.Failed, totals.Total, totals.FinishedAt,
	)
	return err
}

func (r *Postgres) ListUnsettled(ctx context.Context, contract string) ([]storage.AttemptRecord, error) {
	cctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	q := `
SELECT
  a.run_id::text, a.position, a.recipient, a.amount, a.amount_wei::text,
  a.tx_hash, a.block_number, a.status, a.error_kind, a.error, a.explorer_link,
  a.duration_ms, a.created_at
FROM distribution_attempts a
JOIN distribution_runs r ON r.run_id = a.run_id
WHERE lower(r.contract) = lower($1)
  AND a.status = 'failed'
  AND a.tx_hash IS NOT NULL
  AND NOT EXISTS (
    SELECT 1
    FROM distribution_attempts s
    JOIN distribution_runs sr ON sr.run_id = s.run_id
    WHERE lower(sr.contract) = lower($1)
      AND lower(s.recipient) = lower(a.recipient)
      AND s.status = 'success'
      AND s.id > a.id
  )
ORDER BY a.id DESC
`
	rows, err := r.pool.Query(cctx, q, contract)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []storage.AttemptRecord
	for rows.Next() {
		var (
			a        storage.AttemptRecord
			status   string
			blockNum *int64
			ms       int64
		)

		if err := rows.Scan(
			&a.RunID, &a.Position, &a.Recipient, &a.Amount, &a.AmountWei,
			&a.TxHash, &blockNum, &status, &a.ErrorKind, &a.Error, &a.Link,
			&ms, &a.At,
		); err != nil {
			return nil, err
		}

		if blockNum != nil {
			u := uint64(*blockNum)
			a.BlockNum = &u
		}
		a.Status = storage.AttemptStatus(status)
		a.Duration = time.Duration(ms) * time.Millisecond

		out = append(out, a)
	}

	if rows.Err() != nil {
		return nil, rows.Err()
	}

	return out, nil
}
