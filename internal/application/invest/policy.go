package invest

import (
	"math/big"
	"time"

	"github.com/gethsun1/project-mocha-demo/internal/domain"
)

// Gas policy for the two legs. The purchase tiers are fixed constants, not
// node estimates: estimation against the farm manager has been flaky on
// Scroll Sepolia, and fixed tiers keep the fallback deterministic. Exactly
// two tiers are ever tried; escalation happens only for estimation-class
// submission errors.
const (
	approvalGasLimit  = uint64(80_000)
	purchaseGasTier1  = uint64(300_000)
	purchaseGasTier2  = uint64(650_000)
	defaultReceiptTTL = 90 * time.Second
	defaultSettle     = 3 * time.Second

	// Allowance re-reads after an approval receipt should find the new
	// amount in effect; more rounds than this means something out-of-band
	// is draining the allowance and the session gives up.
	maxFundingRounds = 3
)

// ContractSet holds the deployed contract addresses the orchestrator talks to.
type ContractSet struct {
	BeanToken   string // MBT ERC20
	LandToken   string // farm registry (snapshots, pause pointer)
	FarmManager string // spender: purchaseTrees lives here
}

// Config tunes one orchestrator instance.
type Config struct {
	Contracts ContractSet
	Pricing   domain.PricingRule

	// ApprovalBufferWei is added on top of the purchase cost when approving,
	// to reduce re-approvals on subsequent purchases. Protocol parameter,
	// zero disables it.
	ApprovalBufferWei *big.Int

	// PurchaseGasTiers is the ordered fallback table for the purchase leg.
	PurchaseGasTiers []uint64
	ApprovalGasLimit uint64

	ReceiptTimeout time.Duration
	SettleDelay    time.Duration
}

// DefaultConfig returns the protocol defaults (4 MBT per tree, two-tier
// purchase gas fallback, 90s receipt timeout).
func DefaultConfig() Config {
	return Config{
		Pricing:           domain.DefaultPricing(),
		ApprovalBufferWei: new(big.Int).Mul(big.NewInt(20), big.NewInt(1e18)),
		PurchaseGasTiers:  []uint64{purchaseGasTier1, purchaseGasTier2},
		ApprovalGasLimit:  approvalGasLimit,
		ReceiptTimeout:    defaultReceiptTTL,
		SettleDelay:       defaultSettle,
	}
}

// approvalAmount is cost plus the configured buffer.
func (c Config) approvalAmount(cost *big.Int) *big.Int {
	amount := new(big.Int).Set(cost)
	if c.ApprovalBufferWei != nil {
		amount.Add(amount, c.ApprovalBufferWei)
	}
	return amount
}
