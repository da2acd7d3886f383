package distribute

import (
	"fmt"

	"github.com/pvzzle/airdrop/internal/chain"
	"github.com/pvzzle/airdrop/internal/ledger"
)

func FormatFailure(rec ledger.Record, n, total int) string {
	kind := ledger.FailureKind("unknown")
	msg := ""
	if rec.Failure != nil {
		kind, msg = rec.Failure.Kind, rec.Failure.Message
	}
	return fmt.Sprintf(
		"❌ Transfer failed (%d/%d)\n\nTo: %s\nAmount: %s\nKind: %s\nError: %s",
		n, total,
		rec.Recipient,
		rec.Amount,
		kind,
		msg,
	)
}

func FormatSummary(sum Summary, network chain.Network) string {
	icon := "✅"
	if sum.Failed > 0 || sum.Unsettled > 0 {
		icon = "⚠️"
	}
	text := fmt.Sprintf(
		"%s Airdrop run finished on %s\n\nRun: %s\nSucceeded: %d\nFailed: %d\nProcessed: %d\nAlready settled: %d",
		icon,
		network,
		sum.RunID,
		sum.Succeeded,
		sum.Failed,
		sum.Total,
		sum.Skipped,
	)
	if sum.Unsettled > 0 {
		text += fmt.Sprintf("\nSubmitted earlier without outcome: %d", sum.Unsettled)
	}
	return text
}
