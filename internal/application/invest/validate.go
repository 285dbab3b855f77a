package invest

import (
	"strings"

	"github.com/gethsun1/project-mocha-demo/internal/domain"
)

// Validate runs the pre-flight checks against a fresh snapshot and the
// contract dependency graph. Pure: it reads nothing itself and has no side
// effects. Returns nil when the request may proceed to funds resolution.
//
// A snapshot with a zero capacity or a mismatched farm ID is treated as
// farm-not-found rather than defaulted: approving against corrupt registry
// data is worse than refusing.
func Validate(snap domain.FarmSnapshot, deps domain.LedgerDeps, req domain.InvestRequest) *domain.Failure {
	if snap.FarmID != req.FarmID || snap.TreeCapacity == 0 {
		return &domain.Failure{Kind: domain.FailFarmNotFound}
	}
	if snap.CurrentTrees > snap.TreeCapacity {
		// currentTrees above capacity is a registry inconsistency, not a
		// full farm. Refuse rather than trust either number.
		return &domain.Failure{Kind: domain.FailFarmNotFound, Detail: "snapshot inconsistent: currentTrees > treeCapacity"}
	}
	if !snap.Active {
		return &domain.Failure{Kind: domain.FailFarmInactive}
	}
	if snap.CurrentTrees+req.TreeCount > snap.TreeCapacity {
		return &domain.Failure{
			Kind:      domain.FailCapacityExceeded,
			Available: snap.AvailableCapacity(),
		}
	}
	if deps.TokenPaused {
		return &domain.Failure{Kind: domain.FailLedgerPaused, Contract: "bean_token"}
	}
	if !strings.EqualFold(deps.FarmManager, deps.ExpectManager) {
		return &domain.Failure{Kind: domain.FailCallerUnauthorized, Contract: "land_token"}
	}
	return nil
}

// validateRequest rejects malformed requests before any external read.
func validateRequest(req domain.InvestRequest) *domain.Failure {
	if req.TreeCount == 0 {
		return &domain.Failure{Kind: domain.FailBadRequest, Detail: "tree count must be positive"}
	}
	if req.TreeCount > domain.MaxTreesPerPurchase {
		return &domain.Failure{Kind: domain.FailBadRequest, Detail: "tree count above per-request cap"}
	}
	if req.Actor == "" {
		return &domain.Failure{Kind: domain.FailBadRequest, Detail: "actor address required"}
	}
	return nil
}
