package invest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/gethsun1/project-mocha-demo/internal/domain"
	"github.com/gethsun1/project-mocha-demo/internal/ports"
)

// Orchestrator drives one investment session at a time through the
// approve-then-purchase protocol: pre-flight validation, funds resolution,
// conditional approval, off-chain simulation, tiered purchase submission,
// receipt watching. The session object is owned here exclusively; the
// presentation layer only observes phase changes through the notifier.
type Orchestrator struct {
	snapshots  ports.SnapshotProvider
	ledger     ports.LedgerReader
	submitter  ports.Submitter
	watcher    receiptWatcher
	store      ports.InvestmentStore
	notifier   ports.Notifier
	reconciler *Reconciler
	cfg        Config

	mu      sync.Mutex
	current *session
}

// session is the mutable state of one in-flight request. Destroyed (left to
// the GC) once the record reaches a terminal phase.
type session struct {
	rec      domain.SessionRecord
	snapshot domain.FarmSnapshot
	funds    domain.Funds
}

// New wires an orchestrator. store, notifier and reconciler may be nil.
func New(
	snapshots ports.SnapshotProvider,
	ledger ports.LedgerReader,
	submitter ports.Submitter,
	receipts ports.ReceiptSource,
	store ports.InvestmentStore,
	notifier ports.Notifier,
	reconciler *Reconciler,
	cfg Config,
) *Orchestrator {
	if len(cfg.PurchaseGasTiers) == 0 {
		cfg.PurchaseGasTiers = DefaultConfig().PurchaseGasTiers
	}
	if cfg.ApprovalGasLimit == 0 {
		cfg.ApprovalGasLimit = approvalGasLimit
	}
	if cfg.ReceiptTimeout <= 0 {
		cfg.ReceiptTimeout = defaultReceiptTTL
	}
	if cfg.Pricing.TreePriceWei == nil {
		cfg.Pricing = domain.DefaultPricing()
	}

	return &Orchestrator{
		snapshots:  snapshots,
		ledger:     ledger,
		submitter:  submitter,
		watcher:    receiptWatcher{receipts: receipts, timeout: cfg.ReceiptTimeout},
		store:      store,
		notifier:   notifier,
		reconciler: reconciler,
		cfg:        cfg,
	}
}

// Run accepts one InvestRequest and drives it to a terminal phase. The
// returned record is terminal; err is the *domain.Failure when the session
// failed, nil when it succeeded. A second request while one is in flight
// fails with SESSION_BUSY without touching the active session.
func (o *Orchestrator) Run(ctx context.Context, req domain.InvestRequest) (domain.SessionRecord, error) {
	// Malformed requests are rejected before any read happens.
	if f := validateRequest(req); f != nil {
		return domain.SessionRecord{Phase: domain.PhaseFailed, FailureKind: f.Kind}, f
	}

	s, err := o.accept(req)
	if err != nil {
		return domain.SessionRecord{Phase: domain.PhaseFailed, FailureKind: domain.FailSessionBusy}, err
	}

	slog.Info("invest: session accepted",
		"session", s.rec.ID,
		"farm", req.FarmID,
		"trees", req.TreeCount,
		"actor", req.Actor,
		"cost", s.rec.CostWei,
	)
	o.saveSession(ctx, s)

	// Validating
	o.setPhase(s, domain.PhaseValidating)
	snap, err := o.snapshots.FarmSnapshot(ctx, req.FarmID)
	if err != nil {
		return o.fail(ctx, s, &domain.Failure{Kind: domain.FailReadFailure, Detail: fmt.Sprintf("farm snapshot: %v", err)})
	}
	if !snap.Source.Trusted() {
		// Degraded-mode data must never authorize a purchase.
		return o.fail(ctx, s, &domain.Failure{Kind: domain.FailReadFailure, Detail: "snapshot from degraded source " + string(snap.Source)})
	}
	s.snapshot = snap

	deps, err := o.ledger.LedgerDeps(ctx)
	if err != nil {
		return o.fail(ctx, s, &domain.Failure{Kind: domain.FailReadFailure, Detail: fmt.Sprintf("ledger deps: %v", err)})
	}
	if f := Validate(snap, deps, req); f != nil {
		return o.fail(ctx, s, f)
	}

	// Funds resolution, looping back here after each approval receipt. The
	// re-read is deliberate: the allowance read is the only source of truth
	// and a race with an out-of-band approval cannot be ruled out.
	for round := 0; ; round++ {
		if round >= maxFundingRounds {
			return o.fail(ctx, s, &domain.Failure{
				Kind:   domain.FailApprovalRejected,
				Detail: "allowance still insufficient after approval receipt",
			})
		}

		o.setPhase(s, domain.PhaseResolvingFunds)
		if f := o.resolveFunds(ctx, s); f != nil {
			return o.fail(ctx, s, f)
		}

		if s.funds.Allowance.Cmp(s.rec.CostWei) >= 0 {
			o.setPhase(s, domain.PhaseReadyToPurchase)
			break
		}

		o.setPhase(s, domain.PhaseNeedsApproval)
		if f := o.runApprovalLeg(ctx, s); f != nil {
			return o.fail(ctx, s, f)
		}
	}

	if f := o.runPurchaseLeg(ctx, s); f != nil {
		return o.fail(ctx, s, f)
	}

	return o.succeed(ctx, s), nil
}

// Session returns a copy of the current session record, or false when the
// orchestrator is idle.
func (o *Orchestrator) Session() (domain.SessionRecord, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.current == nil {
		return domain.SessionRecord{}, false
	}
	return o.current.rec, true
}

// accept installs a new session unless one is already in flight.
func (o *Orchestrator) accept(req domain.InvestRequest) (*session, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.current != nil && !o.current.rec.Phase.Terminal() {
		return nil, &domain.Failure{Kind: domain.FailSessionBusy}
	}

	s := &session{
		rec: domain.SessionRecord{
			ID:        uuid.New().String(),
			FarmID:    req.FarmID,
			Actor:     req.Actor,
			TreeCount: req.TreeCount,
			CostWei:   o.cfg.Pricing.Cost(req.TreeCount),
			Phase:     domain.PhaseIdle,
			StartedAt: time.Now().UTC(),
		},
	}
	o.current = s
	return s, nil
}

// resolveFunds reads balance and allowance and enforces balance sufficiency
// before anything is ever submitted. A doomed transaction wastes the actor's
// execution fee; insufficiency must surface here, not as an on-chain revert.
func (o *Orchestrator) resolveFunds(ctx context.Context, s *session) *domain.Failure {
	balance, err := o.ledger.Balance(ctx, s.rec.Actor)
	if err != nil {
		return &domain.Failure{Kind: domain.FailReadFailure, Detail: fmt.Sprintf("balance: %v", err)}
	}
	allowance, err := o.ledger.Allowance(ctx, s.rec.Actor, o.cfg.Contracts.FarmManager)
	if err != nil {
		return &domain.Failure{Kind: domain.FailReadFailure, Detail: fmt.Sprintf("allowance: %v", err)}
	}
	s.funds = domain.Funds{Balance: balance, Allowance: allowance}

	if balance.Cmp(s.rec.CostWei) < 0 {
		return &domain.Failure{
			Kind:     domain.FailInsufficientBalance,
			Required: s.rec.CostWei,
			Held:     balance,
		}
	}
	return nil
}

// runApprovalLeg submits one approval for cost plus the configured buffer
// and waits for its receipt. On success the caller loops back to
// ResolvingFunds; the just-approved amount is never assumed.
func (o *Orchestrator) runApprovalLeg(ctx context.Context, s *session) *domain.Failure {
	amount := o.cfg.approvalAmount(s.rec.CostWei)
	spec := ports.CallSpec{
		Target:   o.cfg.Contracts.BeanToken,
		Method:   "approve",
		Args:     []any{o.cfg.Contracts.FarmManager, amount},
		GasLimit: o.cfg.ApprovalGasLimit,
	}

	o.setPhase(s, domain.PhaseApproving)
	att := o.appendAttempt(s, domain.AttemptApproval, 0, o.cfg.ApprovalGasLimit, amount)
	o.saveAttempt(ctx, s, att)

	txHash, err := o.submitter.Submit(ctx, spec)
	if err != nil {
		return &domain.Failure{Kind: domain.FailApprovalRejected, Detail: err.Error()}
	}
	att.TxHash = txHash
	o.saveAttempt(ctx, s, att)
	slog.Info("invest: approval submitted", "session", s.rec.ID, "tx", txHash, "amount", amount)

	o.setPhase(s, domain.PhaseAwaitingApproval)
	status, err := o.watcher.await(ctx, domain.AttemptApproval, txHash)
	if err != nil {
		return waitFailure(domain.AttemptApproval, err)
	}
	att.Status = status
	o.saveAttempt(ctx, s, att)

	switch status {
	case domain.StatusReverted:
		return &domain.Failure{Kind: domain.FailApprovalReverted}
	case domain.StatusTimedOut:
		// The approval may still land later. Only this session stops waiting;
		// nothing is assumed about on-ledger state.
		return &domain.Failure{Kind: domain.FailApprovalTimedOut, Detail: "approval not confirmed within timeout; allowance state unknown"}
	}
	return nil
}

// runPurchaseLeg simulates the purchase, then walks the gas tier table.
// Only estimation-class submission errors escalate tiers; everything else
// is terminal on the first occurrence.
func (o *Orchestrator) runPurchaseLeg(ctx context.Context, s *session) *domain.Failure {
	spec := ports.CallSpec{
		Target: o.cfg.Contracts.FarmManager,
		Method: "purchaseTrees",
		Args:   []any{s.rec.FarmID, s.rec.TreeCount},
	}

	// Off-chain simulation first: a classified revert aborts the session
	// without spending an execution fee.
	if err := o.submitter.Simulate(ctx, spec); err != nil {
		var revert *ports.RevertError
		if errors.As(err, &revert) {
			return &domain.Failure{
				Kind:   domain.FailSimulationFailed,
				Revert: domain.ClassifyRevert(revert.Raw),
				Detail: revert.Raw,
			}
		}
		return &domain.Failure{Kind: domain.FailReadFailure, Detail: fmt.Sprintf("simulate purchase: %v", err)}
	}

	for tier, gasLimit := range o.cfg.PurchaseGasTiers {
		spec.GasLimit = gasLimit

		o.setPhase(s, domain.PhasePurchasing)
		att := o.appendAttempt(s, domain.AttemptPurchase, tier, gasLimit, s.rec.CostWei)
		o.saveAttempt(ctx, s, att)

		txHash, err := o.submitter.Submit(ctx, spec)
		if err != nil {
			if domain.IsGasEstimationError(err) {
				if tier+1 < len(o.cfg.PurchaseGasTiers) {
					slog.Warn("invest: purchase submission hit gas limit, escalating tier",
						"session", s.rec.ID, "tier", tier, "gas", gasLimit, "err", err)
					continue
				}
				return &domain.Failure{Kind: domain.FailGasEstimationExhausted, Detail: err.Error()}
			}
			return &domain.Failure{Kind: domain.FailPurchaseRejected, Detail: err.Error()}
		}
		att.TxHash = txHash
		o.saveAttempt(ctx, s, att)
		slog.Info("invest: purchase submitted",
			"session", s.rec.ID, "tx", txHash, "tier", tier, "gas", gasLimit)

		o.setPhase(s, domain.PhaseAwaitingPurchase)
		status, err := o.watcher.await(ctx, domain.AttemptPurchase, txHash)
		if err != nil {
			return waitFailure(domain.AttemptPurchase, err)
		}
		att.Status = status
		o.saveAttempt(ctx, s, att)

		switch status {
		case domain.StatusSuccess:
			return nil
		case domain.StatusReverted:
			return &domain.Failure{Kind: domain.FailPurchaseReverted}
		default:
			return &domain.Failure{Kind: domain.FailPurchaseTimedOut, Detail: "purchase not confirmed within timeout; on-ledger state unknown"}
		}
	}

	return &domain.Failure{Kind: domain.FailGasEstimationExhausted}
}

// waitFailure maps an aborted receipt wait to the leg's failure kind. A
// cancelled or expired context means the caller stopped waiting on an
// in-flight transaction, which is the timeout situation (state unknown,
// not retriable), not a watcher outage.
func waitFailure(kind domain.AttemptKind, err error) *domain.Failure {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		if kind == domain.AttemptApproval {
			return &domain.Failure{Kind: domain.FailApprovalTimedOut, Detail: "receipt wait cancelled; allowance state unknown"}
		}
		return &domain.Failure{Kind: domain.FailPurchaseTimedOut, Detail: "receipt wait cancelled; on-ledger state unknown"}
	}
	return &domain.Failure{Kind: domain.FailWatcherUnavailable, Detail: err.Error()}
}

// setPhase records a transition, notifies observers and logs it.
func (o *Orchestrator) setPhase(s *session, to domain.Phase) {
	from := s.rec.Phase
	s.rec.Phase = to
	slog.Debug("invest: phase", "session", s.rec.ID, "from", from, "to", to)
	if o.notifier != nil {
		o.notifier.PhaseChanged(s.rec.ID, from, to)
	}
}

// appendAttempt creates a new append-only attempt record. Failed submissions
// keep their record (empty tx hash) so the tier history stays auditable.
func (o *Orchestrator) appendAttempt(s *session, kind domain.AttemptKind, tier int, gasLimit uint64, amount *big.Int) *domain.TransactionAttempt {
	att := domain.TransactionAttempt{
		ID:          uuid.New().String(),
		Kind:        kind,
		GasTier:     tier,
		GasLimit:    gasLimit,
		Amount:      amount,
		SubmittedAt: time.Now().UTC(),
	}
	s.rec.Attempts = append(s.rec.Attempts, att)
	return &s.rec.Attempts[len(s.rec.Attempts)-1]
}

func (o *Orchestrator) fail(ctx context.Context, s *session, f *domain.Failure) (domain.SessionRecord, error) {
	o.setPhase(s, domain.PhaseFailed)
	s.rec.FailureKind = f.Kind
	now := time.Now().UTC()
	s.rec.FinishedAt = &now

	slog.Warn("invest: session failed", "session", s.rec.ID, "kind", f.Kind, "detail", f.Detail)
	o.saveSession(ctx, s)
	o.notifyResult(ctx, s)
	return s.rec, f
}

func (o *Orchestrator) succeed(ctx context.Context, s *session) domain.SessionRecord {
	o.setPhase(s, domain.PhaseSucceeded)
	now := time.Now().UTC()
	s.rec.FinishedAt = &now

	slog.Info("invest: session succeeded",
		"session", s.rec.ID,
		"farm", s.rec.FarmID,
		"trees", s.rec.TreeCount,
		"attempts", len(s.rec.Attempts),
	)
	o.saveSession(ctx, s)
	o.notifyResult(ctx, s)

	if o.reconciler != nil {
		// Side effect of SUCCEEDED, decoupled from the state machine. The
		// background context keeps the refresh alive past Run's caller.
		go o.reconciler.OnSuccess(context.WithoutCancel(ctx), s.rec.FarmID)
	}
	return s.rec
}

func (o *Orchestrator) saveSession(ctx context.Context, s *session) {
	if o.store == nil {
		return
	}
	if err := o.store.SaveSession(ctx, s.rec); err != nil {
		slog.Warn("invest: save session", "session", s.rec.ID, "err", err)
	}
}

func (o *Orchestrator) saveAttempt(ctx context.Context, s *session, att *domain.TransactionAttempt) {
	if o.store == nil {
		return
	}
	if err := o.store.SaveAttempt(ctx, s.rec.ID, *att); err != nil {
		slog.Warn("invest: save attempt", "session", s.rec.ID, "attempt", att.ID, "err", err)
	}
}

func (o *Orchestrator) notifyResult(ctx context.Context, s *session) {
	if o.notifier == nil {
		return
	}
	if err := o.notifier.SessionResult(ctx, s.rec); err != nil {
		slog.Warn("invest: notify result", "session", s.rec.ID, "err", err)
	}
}
