package domain

import "strings"

// RevertReason is the classified cause of an off-chain simulation revert.
type RevertReason string

const (
	RevertBalance      RevertReason = "BALANCE"
	RevertAllowance    RevertReason = "ALLOWANCE"
	RevertCapacity     RevertReason = "CAPACITY"
	RevertPaused       RevertReason = "PAUSED"
	RevertUnauthorized RevertReason = "UNAUTHORIZED"
	RevertUnknown      RevertReason = "UNKNOWN"
)

// revertMatcher maps substrings of known contract revert strings to a
// classified reason. Matching is ordered and best-effort: the contracts
// we call are not under our control, so new reasons are additive entries
// here rather than structural changes.
type revertMatcher struct {
	contains []string
	reason   RevertReason
}

var revertMatchers = []revertMatcher{
	{[]string{"insufficient allowance", "transfer amount exceeds allowance"}, RevertAllowance},
	{[]string{"insufficient balance", "transfer amount exceeds balance", "insufficient funds"}, RevertBalance},
	{[]string{"exceeds capacity", "capacity", "farm is full"}, RevertCapacity},
	{[]string{"paused"}, RevertPaused},
	{[]string{"not authorized", "caller is not", "unauthorized", "ownable:"}, RevertUnauthorized},
}

// ClassifyRevert maps a raw revert message to a RevertReason. Unrecognized
// messages come back as RevertUnknown with the raw text preserved by the
// caller.
func ClassifyRevert(raw string) RevertReason {
	msg := strings.ToLower(raw)
	for _, m := range revertMatchers {
		for _, sub := range m.contains {
			if strings.Contains(msg, sub) {
				return m.reason
			}
		}
	}
	return RevertUnknown
}

// gas-estimation class submission errors, from node error strings seen on
// Scroll Sepolia and geth. These trigger the tier escalation, nothing else does.
var gasEstimationMarkers = []string{
	"gas required exceeds allowance",
	"intrinsic gas too low",
	"out of gas",
	"gas limit reached",
	"cannot estimate gas",
	"execution reverted: gas",
}

// IsGasEstimationError reports whether a submitter error is in the
// limit/estimation class that the purchase-leg tier fallback covers.
func IsGasEstimationError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range gasEstimationMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
