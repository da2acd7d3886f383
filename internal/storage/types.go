package storage

import "time"

type RunRecord struct {
	ID         string
	ChainID    string
	Contract   string
	Operator   string
	LedgerPath string
	Pending    int
	Settled    int
	StartedAt  time.Time
}

type AttemptStatus string

const (
	AttemptSuccess AttemptStatus = "success"
	AttemptFailed  AttemptStatus = "failed"
)

type AttemptRecord struct {
	RunID     string
	Position  int // index of the record in the ledger file
	Recipient string
	Amount    string
	AmountWei *string // nil when the amount did not parse
	TxHash    *string // nil when nothing was submitted
	BlockNum  *uint64
	Status    AttemptStatus
	ErrorKind *string
	Error     *string
	Link      *string
	Duration  time.Duration
	At        time.Time
}

type RunTotals struct {
	Succeeded  int
	Failed     int
	Total      int
	FinishedAt time.Time
}
