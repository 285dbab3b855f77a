package ports

import (
	"context"
	"math/big"
	"time"

	"github.com/gethsun1/project-mocha-demo/internal/domain"
)

// CallSpec describes one contract call for submission or simulation.
// GasLimit 0 lets the node estimate; the orchestrator always pins a tier
// for the purchase leg so behavior stays deterministic.
type CallSpec struct {
	Target   string // hex contract address
	Method   string // ABI method name
	Args     []any
	GasLimit uint64
}

// RevertError is returned by Simulate when the call would revert on-chain.
// Raw carries the node's revert message for classification.
type RevertError struct {
	Raw string
}

func (e *RevertError) Error() string { return "simulation reverted: " + e.Raw }

// LedgerReader reads contract state. All reads are fresh RPC calls; nothing
// here caches capacity or allowance data.
type LedgerReader interface {
	// FarmSnapshot reads getFarmData from the land token.
	FarmSnapshot(ctx context.Context, farmID uint64) (domain.FarmSnapshot, error)

	// FarmStats reads aggregate investment figures from the farm manager.
	FarmStats(ctx context.Context, farmID uint64) (domain.FarmStats, error)

	// AllFarms returns every farm ID known to the farm manager.
	AllFarms(ctx context.Context) ([]uint64, error)

	// Balance returns the actor's MBT balance in wei.
	Balance(ctx context.Context, owner string) (*big.Int, error)

	// Allowance returns the actor's current approval for the farm manager.
	Allowance(ctx context.Context, owner, spender string) (*big.Int, error)

	// LedgerDeps reads the pause flag and authorized-caller pointer the
	// validator checks before anything is signed.
	LedgerDeps(ctx context.Context) (domain.LedgerDeps, error)
}

// Submitter signs and broadcasts transactions. The orchestrator never sees
// key material; it only hands over call specs.
type Submitter interface {
	// Submit broadcasts the call and returns its tx hash. An error here
	// means the transaction never reached the mempool.
	Submit(ctx context.Context, spec CallSpec) (string, error)

	// Simulate runs the call off-chain. Returns nil if it would succeed,
	// *RevertError if it would revert, other errors for RPC failure.
	Simulate(ctx context.Context, spec CallSpec) error
}

// ReceiptSource waits for a submitted transaction to reach a terminal
// on-ledger status. Non-finality within the timeout is StatusTimedOut, not
// an error; errors mean the ledger itself was unreachable.
type ReceiptSource interface {
	WaitForReceipt(ctx context.Context, txHash string, timeout time.Duration) (domain.TerminalStatus, error)
}
