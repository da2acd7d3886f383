package ledger

import "fmt"

type Status string

const (
	StatusPending Status = "pending"
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
)

type FailureKind string

const (
	KindAmount     FailureKind = "amount_parse"
	KindSubmission FailureKind = "submission"
	KindSettlement FailureKind = "settlement"
	KindTimeout    FailureKind = "timeout"
)

// Failure is the reason a record ended up failed in the current run.
type Failure struct {
	Kind    FailureKind
	Message string
}

func (f *Failure) Error() string {
	return fmt.Sprintf("%s: %s", f.Kind, f.Message)
}

// Record is one recipient's entry in the ledger.
// Recipient and Amount are never changed after load.
type Record struct {
	Recipient       string
	Amount          string
	ConfirmationRef string // explorer link, presence means settled
	Status          Status
	Failure         *Failure
}

func (r Record) Settled() bool { return r.ConfirmationRef != "" }

// ErrorText returns the human readable failure reason or "".
func (r Record) ErrorText() string {
	if r.Failure == nil {
		return ""
	}
	return r.Failure.Message
}

func (r *Record) MarkSuccess(ref string) {
	r.ConfirmationRef = ref
	r.Status = StatusSuccess
	r.Failure = nil
}

func (r *Record) MarkFailed(kind FailureKind, msg string) {
	r.Status = StatusFailed
	r.Failure = &Failure{Kind: kind, Message: msg}
}

// Pending returns the indexes of records that still lack a confirmation, in order.
func Pending(records []Record) []int {
	var out []int
	for i := range records {
		if !records[i].Settled() {
			out = append(out, i)
		}
	}
	return out
}
