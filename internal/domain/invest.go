package domain

import (
	"fmt"
	"math/big"
	"time"
)

// Phase is the orchestrator state for one investment session.
type Phase string

const (
	PhaseIdle             Phase = "IDLE"
	PhaseValidating       Phase = "VALIDATING"
	PhaseResolvingFunds   Phase = "RESOLVING_FUNDS"
	PhaseNeedsApproval    Phase = "NEEDS_APPROVAL"
	PhaseApproving        Phase = "APPROVING"
	PhaseAwaitingApproval Phase = "AWAITING_APPROVAL_RECEIPT"
	PhaseReadyToPurchase  Phase = "READY_TO_PURCHASE"
	PhasePurchasing       Phase = "PURCHASING"
	PhaseAwaitingPurchase Phase = "AWAITING_PURCHASE_RECEIPT"
	PhaseSucceeded        Phase = "SUCCEEDED"
	PhaseFailed           Phase = "FAILED"
)

// Terminal reports whether no further transition can happen.
func (p Phase) Terminal() bool {
	return p == PhaseSucceeded || p == PhaseFailed
}

// AttemptKind distinguishes the two transaction legs.
type AttemptKind string

const (
	AttemptApproval AttemptKind = "APPROVAL"
	AttemptPurchase AttemptKind = "PURCHASE"
)

// TerminalStatus is the final on-ledger outcome of one attempt.
type TerminalStatus string

const (
	StatusSuccess  TerminalStatus = "SUCCESS"
	StatusReverted TerminalStatus = "REVERTED"
	StatusTimedOut TerminalStatus = "TIMED_OUT"
)

// TransactionAttempt is one submitted transaction and its lifecycle.
// Attempts are append-only: a retried leg gets a new record with an
// escalated gas tier, the old one is never mutated after its terminal
// status is set.
type TransactionAttempt struct {
	ID          string // UUID (local tracking)
	Kind        AttemptKind
	TxHash      string // 0x... handle from the submitter
	GasTier     int    // index into the tier table, 0-based
	GasLimit    uint64
	Amount      *big.Int // approval amount or purchase cost, MBT wei
	SubmittedAt time.Time
	Status      TerminalStatus // empty while in flight
}

// FailureKind is the closed error taxonomy surfaced to callers.
type FailureKind string

const (
	FailFarmNotFound           FailureKind = "FARM_NOT_FOUND"
	FailFarmInactive           FailureKind = "FARM_INACTIVE"
	FailCapacityExceeded       FailureKind = "CAPACITY_EXCEEDED"
	FailLedgerPaused           FailureKind = "LEDGER_PAUSED"
	FailCallerUnauthorized     FailureKind = "CALLER_UNAUTHORIZED"
	FailInsufficientBalance    FailureKind = "INSUFFICIENT_BALANCE"
	FailReadFailure            FailureKind = "READ_FAILURE"
	FailApprovalRejected       FailureKind = "APPROVAL_REJECTED"
	FailApprovalReverted       FailureKind = "APPROVAL_REVERTED"
	FailApprovalTimedOut       FailureKind = "APPROVAL_TIMED_OUT"
	FailPurchaseRejected       FailureKind = "PURCHASE_REJECTED"
	FailPurchaseReverted       FailureKind = "PURCHASE_REVERTED"
	FailPurchaseTimedOut       FailureKind = "PURCHASE_TIMED_OUT"
	FailGasEstimationExhausted FailureKind = "GAS_ESTIMATION_EXHAUSTED"
	FailSimulationFailed       FailureKind = "SIMULATION_FAILED"
	FailWatcherUnavailable     FailureKind = "WATCHER_UNAVAILABLE"
	FailSessionBusy            FailureKind = "SESSION_BUSY"
	FailBadRequest             FailureKind = "BAD_REQUEST"
)

// Failure is a terminal session failure with enough structured context to
// render an actionable message without parsing ledger error strings.
type Failure struct {
	Kind FailureKind
	// Which contract tripped a pause/authorization check, when relevant.
	Contract string
	// Available capacity for CAPACITY_EXCEEDED.
	Available uint64
	// Required and held amounts for INSUFFICIENT_BALANCE, MBT wei.
	Required *big.Int
	Held     *big.Int
	// Classified simulation revert, for SIMULATION_FAILED.
	Revert RevertReason
	// Underlying error text, informational only.
	Detail string
}

func (f *Failure) Error() string {
	if f == nil {
		return "<nil>"
	}
	switch f.Kind {
	case FailCapacityExceeded:
		return fmt.Sprintf("invest: %s (available=%d)", f.Kind, f.Available)
	case FailInsufficientBalance:
		return fmt.Sprintf("invest: %s (required=%s held=%s)", f.Kind, f.Required, f.Held)
	case FailLedgerPaused, FailCallerUnauthorized:
		return fmt.Sprintf("invest: %s (%s)", f.Kind, f.Contract)
	case FailSimulationFailed:
		return fmt.Sprintf("invest: %s (%s)", f.Kind, f.Revert)
	}
	if f.Detail != "" {
		return fmt.Sprintf("invest: %s: %s", f.Kind, f.Detail)
	}
	return fmt.Sprintf("invest: %s", f.Kind)
}

// Retriable reports whether a fresh session could plausibly succeed without
// the user changing anything first. Timeouts leave on-ledger state unknown:
// the caller must re-check before retrying.
func (f *Failure) Retriable() bool {
	switch f.Kind {
	case FailReadFailure, FailWatcherUnavailable, FailSessionBusy:
		return true
	}
	return false
}

// SessionRecord is the persisted view of one orchestrator session.
type SessionRecord struct {
	ID          string
	FarmID      uint64
	Actor       string
	TreeCount   uint64
	CostWei     *big.Int
	Phase       Phase
	FailureKind FailureKind // empty unless Phase == FAILED
	StartedAt   time.Time
	FinishedAt  *time.Time
	Attempts    []TransactionAttempt
}
