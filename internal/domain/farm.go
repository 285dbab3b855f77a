package domain

import (
	"math/big"
	"time"
)

// MaxTreesPerPurchase is the protocol cap on a single investment request.
const MaxTreesPerPurchase = 500

// SnapshotSource says where a FarmSnapshot came from. Only ledger-backed
// snapshots (direct RPC or the no-cache HTTP layer) may authorize a purchase;
// fallback data is a degraded mode and must stay visibly distinct.
type SnapshotSource string

const (
	SourceLedger   SnapshotSource = "ledger"
	SourceCache    SnapshotSource = "cache"
	SourceFallback SnapshotSource = "fallback"
)

// Trusted reports whether the snapshot may back an investment decision.
func (s SnapshotSource) Trusted() bool {
	return s == SourceLedger || s == SourceCache
}

// FarmSnapshot is the on-chain state of a farm as read from the land token
// contract. Never mutated locally; re-fetched before every request.
type FarmSnapshot struct {
	FarmID         uint64
	Name           string
	Location       string
	GPSCoordinates string
	TotalArea      uint64
	TreeCapacity   uint64
	CurrentTrees   uint64
	CreationTime   time.Time
	Farmer         string // hex address
	Active         bool
	MetadataURI    string
	Source         SnapshotSource
	FetchedAt      time.Time
}

// AvailableCapacity returns how many trees the farm can still take.
func (fs FarmSnapshot) AvailableCapacity() uint64 {
	if fs.CurrentTrees >= fs.TreeCapacity {
		return 0
	}
	return fs.TreeCapacity - fs.CurrentTrees
}

// FarmStats are the aggregate investment figures from the farm manager.
type FarmStats struct {
	TotalInvestment *big.Int // MBT wei
	TotalTrees      uint64
	InvestorCount   uint64
}

// LedgerDeps is the contract dependency graph a purchase runs through:
// pause flags and the authorized-caller pointer on the land token. The
// validator checks these before anything is signed.
type LedgerDeps struct {
	TokenPaused   bool
	FarmManager   string // manager address registered on the land token
	ExpectManager string // manager address we will actually call
}

// PricingRule is the fixed per-tree price in MBT wei. Pure, no state.
type PricingRule struct {
	TreePriceWei *big.Int
}

// DefaultPricing is the protocol price of 4 MBT per tree (18 decimals).
func DefaultPricing() PricingRule {
	price := new(big.Int).Mul(big.NewInt(4), big.NewInt(1e18))
	return PricingRule{TreePriceWei: price}
}

// Cost returns treeCount * TreePriceWei.
func (p PricingRule) Cost(treeCount uint64) *big.Int {
	return new(big.Int).Mul(new(big.Int).SetUint64(treeCount), p.TreePriceWei)
}

// InvestRequest is one user request to buy trees on a farm. Immutable once
// accepted by a session.
type InvestRequest struct {
	FarmID    uint64
	TreeCount uint64
	Actor     string // hex address of the investor
}

// Funds is the actor's spendable balance and current allowance for the
// farm manager, as most recently read from the token contract.
type Funds struct {
	Balance   *big.Int
	Allowance *big.Int
}
