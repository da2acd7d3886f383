package distribute

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/big"
	"strings"
	"time"

	"github.com/pvzzle/airdrop/internal/bus"
	"github.com/pvzzle/airdrop/internal/chain"
	"github.com/pvzzle/airdrop/internal/ledger"
	"github.com/pvzzle/airdrop/internal/metrics"
	"github.com/pvzzle/airdrop/internal/storage"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
)

// Ledger is the remote token contract the engine distributes through.
type Ledger interface {
	OwnerReader
	SubmitTransfer(ctx context.Context, to common.Address, amount *big.Int) (common.Hash, error)
	AwaitSettlement(ctx context.Context, hash common.Hash, minConfirmations uint64) (chain.Settlement, error)
}

type Config struct {
	Operator common.Address
	Contract common.Address
	Network  chain.Network

	LedgerPath string
	// Decimals scales human amounts to atomic units, normally chain.DefaultDecimals.
	Decimals         int32
	MinConfirmations uint64

	// Pacer runs between attempts; nil means FixedDelay(DefaultDelay).
	Pacer Pacer
}

type Summary struct {
	RunID     string
	Succeeded int
	Failed    int
	Total     int // attempts made in this run
	Skipped   int // records already settled before the run
	// Unsettled counts pending records the journal saw submitted without a
	// confirmed outcome; they may already have been paid.
	Unsettled int
}

type Engine struct {
	client Ledger
	store  ledger.Store

	repo     storage.Repository
	notifyCh chan<- bus.Notification
	sink     metrics.Sink

	cfg Config

	now   func() time.Time
	newID func() string
}

// NewEngine wires the engine. repo, notifyCh and sink are optional.
func NewEngine(
	client Ledger,
	store ledger.Store,
	repo storage.Repository,
	notifyCh chan<- bus.Notification,
	sink metrics.Sink,
	cfg Config,
) *Engine {

	if cfg.Pacer == nil {
		cfg.Pacer = FixedDelay(DefaultDelay)
	}
	if cfg.MinConfirmations == 0 {
		cfg.MinConfirmations = 1
	}
	if repo == nil {
		repo = storage.Nop{}
	}
	if sink == nil {
		sink = metrics.NewNoopSink()
	}

	return &Engine{
		client:   client,
		store:    store,
		repo:     repo,
		notifyCh: notifyCh,
		sink:     sink,
		cfg:      cfg,
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

// Run authorizes the operator, loads the ledger and processes every pending
// record once, in file order. The ledger is saved after every outcome.
func (e *Engine) Run(ctx context.Context) (Summary, error) {
	ok, err := VerifyAuthorized(ctx, e.cfg.Operator, e.client)
	if err != nil {
		return Summary{}, err
	}
	if !ok {
		return Summary{}, fmt.Errorf("%w: %s", ErrUnauthorized, e.cfg.Operator.Hex())
	}

	records, err := e.store.Load(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("%w: %w", ErrLoad, err)
	}

	pending := ledger.Pending(records)
	sum := Summary{
		RunID:   e.newID(),
		Skipped: len(records) - len(pending),
	}

	log.Printf("[ENGINE] run %s: %d records, %d settled, %d pending", sum.RunID, len(records), sum.Skipped, len(pending))
	if len(pending) == 0 {
		log.Printf("[ENGINE] nothing to distribute, all records settled")
		return sum, nil
	}
	e.logPendingTotal(records, pending)
	sum.Unsettled = e.warnUnsettled(ctx, records, pending)

	e.sink.RunStarted(len(pending), sum.Skipped)
	if err := e.repo.StartRun(ctx, storage.RunRecord{
		ID:         sum.RunID,
		ChainID:    chainIDString(e.cfg.Network),
		Contract:   e.cfg.Contract.Hex(),
		Operator:   e.cfg.Operator.Hex(),
		LedgerPath: e.cfg.LedgerPath,
		Pending:    len(pending),
		Settled:    sum.Skipped,
		StartedAt:  e.now().UTC(),
	}); err != nil {
		log.Printf("[journal] start run error: %v", err)
	}

	for n, idx := range pending {
		if err := ctx.Err(); err != nil {
			log.Printf("[ENGINE] stopped before record %d/%d: %v", n+1, len(pending), err)
			return sum, err
		}

		rec := &records[idx]
		started := e.now()
		// a submitted transfer is always awaited to its outcome, cancellation
		// is only observed between records
		att := e.process(context.WithoutCancel(ctx), rec)

		// the save must land even if we are shutting down
		if err := e.store.Save(context.WithoutCancel(ctx), records); err != nil {
			return sum, fmt.Errorf("%w: after %s: %w", ErrPersist, rec.Recipient, err)
		}

		sum.Total++
		if rec.Status == ledger.StatusSuccess {
			sum.Succeeded++
		} else {
			sum.Failed++
		}

		elapsed := e.now().Sub(started)
		e.report(ctx, sum.RunID, idx, n, len(pending), rec, att, elapsed)

		if n < len(pending)-1 {
			if err := e.cfg.Pacer.Pause(ctx); err != nil {
				log.Printf("[ENGINE] stopped after record %d/%d: %v", n+1, len(pending), err)
				return sum, err
			}
		}
	}

	log.Printf("[ENGINE] run %s done: %d succeeded, %d failed, %d processed", sum.RunID, sum.Succeeded, sum.Failed, sum.Total)

	e.sink.RunFinished(sum.Succeeded, sum.Failed)
	if err := e.repo.FinishRun(ctx, sum.RunID, storage.RunTotals{
		Succeeded:  sum.Succeeded,
		Failed:     sum.Failed,
		Total:      sum.Total,
		FinishedAt: e.now().UTC(),
	}); err != nil {
		log.Printf("[journal] finish run error: %v", err)
	}
	e.notify(FormatSummary(sum, e.cfg.Network))

	return sum, nil
}

type attempt struct {
	amountWei  *big.Int
	hash       *common.Hash
	settlement *chain.Settlement
}

// process makes the single attempt for rec and records the outcome on it.
func (e *Engine) process(ctx context.Context, rec *ledger.Record) attempt {
	var att attempt

	wei, err := chain.ParseUnits(rec.Amount, e.cfg.Decimals)
	if err != nil {
		rec.MarkFailed(ledger.KindAmount, err.Error())
		return att
	}
	att.amountWei = wei

	if !common.IsHexAddress(rec.Recipient) {
		rec.MarkFailed(ledger.KindSubmission, fmt.Sprintf("invalid recipient address %q", rec.Recipient))
		return att
	}

	hash, err := e.client.SubmitTransfer(ctx, common.HexToAddress(rec.Recipient), wei)
	if err != nil {
		rec.MarkFailed(ledger.KindSubmission, err.Error())
		return att
	}
	att.hash = &hash

	st, err := e.client.AwaitSettlement(ctx, hash, e.cfg.MinConfirmations)
	if err != nil {
		kind := ledger.KindSettlement
		if errors.Is(err, context.DeadlineExceeded) {
			kind = ledger.KindTimeout
		}
		rec.MarkFailed(kind, err.Error())
		return att
	}
	att.settlement = &st

	if !st.Success {
		rec.MarkFailed(ledger.KindSettlement, fmt.Sprintf("transaction %s reverted in block %d", hash.Hex(), st.BlockNumber))
		return att
	}

	rec.MarkSuccess(e.cfg.Network.TxLink(hash))
	return att
}

func (e *Engine) report(ctx context.Context, runID string, idx, n, total int, rec *ledger.Record, att attempt, elapsed time.Duration) {
	outcome := metrics.OutcomeSuccess
	kind := ""
	if rec.Failure != nil {
		outcome = metrics.OutcomeFailed
		kind = string(rec.Failure.Kind)
	}

	if rec.Status == ledger.StatusSuccess {
		log.Printf("[ENGINE] %d/%d %s %s -> success %s (block %d, gas %d)",
			n+1, total, rec.Recipient, rec.Amount, rec.ConfirmationRef, att.settlement.BlockNumber, att.settlement.GasUsed)
	} else {
		log.Printf("[ENGINE] %d/%d %s %s -> failed (%s): %s", n+1, total, rec.Recipient, rec.Amount, kind, rec.ErrorText())
		e.notify(FormatFailure(*rec, n+1, total))
	}

	e.sink.AttemptCompleted(outcome, kind, elapsed)

	a := storage.AttemptRecord{
		RunID:     runID,
		Position:  idx,
		Recipient: rec.Recipient,
		Amount:    rec.Amount,
		Status:    storage.AttemptStatus(outcome),
		Duration:  elapsed,
		At:        e.now().UTC(),
	}
	if att.amountWei != nil {
		s := att.amountWei.String()
		a.AmountWei = &s
	}
	if att.hash != nil {
		s := att.hash.Hex()
		a.TxHash = &s
	}
	if att.settlement != nil {
		bn := att.settlement.BlockNumber
		a.BlockNum = &bn
	}
	if rec.ConfirmationRef != "" {
		link := rec.ConfirmationRef
		a.Link = &link
	}
	if rec.Failure != nil {
		k, msg := kind, rec.Failure.Message
		a.ErrorKind = &k
		a.Error = &msg
	}

	if err := e.repo.AddAttempt(ctx, a); err != nil {
		log.Printf("[journal] add attempt error: %v", err)
	}
}

func (e *Engine) notify(text string) {
	if e.notifyCh == nil {
		return
	}
	select {
	case e.notifyCh <- bus.Notification{Text: text}:
	default:
		log.Printf("[ENGINE] notification dropped, queue full")
	}
}

func (e *Engine) logPendingTotal(records []ledger.Record, pending []int) {
	total := new(big.Int)
	invalid := 0
	for _, idx := range pending {
		wei, err := chain.ParseUnits(records[idx].Amount, e.cfg.Decimals)
		if err != nil {
			invalid++
			continue
		}
		total.Add(total, wei)
	}
	msg := fmt.Sprintf("[ENGINE] to distribute: %s tokens via %s on %s",
		chain.FormatUnits(total, e.cfg.Decimals), e.cfg.Contract.Hex(), e.cfg.Network)
	if invalid > 0 {
		msg += fmt.Sprintf(" (%d amounts unparsable)", invalid)
	}
	log.Print(msg)
}

// warnUnsettled looks up earlier submissions of pending recipients that never
// reached a confirmed outcome, usually a settlement timeout. Such a transfer
// can still be mined, so the operator is told before it is sent again.
func (e *Engine) warnUnsettled(ctx context.Context, records []ledger.Record, pending []int) int {
	prior, err := e.repo.ListUnsettled(ctx, e.cfg.Contract.Hex())
	if err != nil {
		log.Printf("[journal] list unsettled error: %v", err)
		return 0
	}
	if len(prior) == 0 {
		return 0
	}

	byRecipient := make(map[string]storage.AttemptRecord, len(prior))
	for _, a := range prior {
		if a.TxHash == nil {
			continue
		}
		byRecipient[strings.ToLower(a.Recipient)] = a
	}

	n := 0
	for _, idx := range pending {
		a, ok := byRecipient[strings.ToLower(records[idx].Recipient)]
		if !ok {
			continue
		}
		n++
		log.Printf("[ENGINE] warning: %s was already submitted in run %s as %s without a confirmed outcome, check it before it is paid again",
			records[idx].Recipient, a.RunID, *a.TxHash)
	}
	return n
}

func chainIDString(n chain.Network) string {
	if n.ChainID == nil {
		return ""
	}
	return n.ChainID.String()
}
