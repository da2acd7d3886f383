package distribute

import "errors"

// Fatal conditions. Per-record problems never surface as errors; they end up
// in the record as a *ledger.Failure.
var (
	ErrLoad         = errors.New("ledger load failed")
	ErrUnauthorized = errors.New("operator is not the contract owner")
	ErrPersist      = errors.New("ledger save failed")
)
