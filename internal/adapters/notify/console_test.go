package notify

import (
	"bytes"
	"context"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gethsun1/project-mocha-demo/internal/domain"
)

func mbt(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), big.NewInt(1e18))
}

func TestConsole_SessionResult_Success(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsoleWriter(&buf)

	err := c.SessionResult(context.Background(), domain.SessionRecord{
		ID:        "sess-1",
		FarmID:    7,
		TreeCount: 100,
		CostWei:   mbt(400),
		Phase:     domain.PhaseSucceeded,
		Attempts: []domain.TransactionAttempt{
			{Kind: domain.AttemptApproval, GasLimit: 80_000, Amount: mbt(420), TxHash: "0xapprove1234567890", Status: domain.StatusSuccess},
			{Kind: domain.AttemptPurchase, GasLimit: 300_000, Amount: mbt(400), TxHash: "0xbuy1234567890abcd", Status: domain.StatusSuccess},
		},
	})

	require.NoError(t, err)
	out := buf.String()
	assert.Contains(t, out, "Purchased 100 tree(s) on farm #7")
	assert.Contains(t, out, "400.00 MBT")
	assert.Contains(t, out, "APPROVAL")
	assert.Contains(t, out, "PURCHASE")
	assert.Contains(t, out, "SUCCESS")
}

func TestConsole_SessionResult_FailureWithoutBroadcast(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsoleWriter(&buf)

	err := c.SessionResult(context.Background(), domain.SessionRecord{
		ID:          "sess-2",
		Phase:       domain.PhaseFailed,
		FailureKind: domain.FailGasEstimationExhausted,
		Attempts: []domain.TransactionAttempt{
			{Kind: domain.AttemptPurchase, GasTier: 0, GasLimit: 300_000, Amount: mbt(4)},
			{Kind: domain.AttemptPurchase, GasTier: 1, GasLimit: 650_000, Amount: mbt(4)},
		},
	})

	require.NoError(t, err)
	out := buf.String()
	assert.Contains(t, out, "Investment failed: GAS_ESTIMATION_EXHAUSTED")
	assert.Contains(t, out, "NOT_BROADCAST")
}

func TestConsole_SessionResult_NoAttempts(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsoleWriter(&buf)

	err := c.SessionResult(context.Background(), domain.SessionRecord{
		Phase:       domain.PhaseFailed,
		FailureKind: domain.FailInsufficientBalance,
	})

	require.NoError(t, err)
	assert.Contains(t, buf.String(), "No transactions were submitted.")
}

func TestConsole_PhaseChanged(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsoleWriter(&buf)

	c.PhaseChanged("sess-1", domain.PhaseValidating, domain.PhaseResolvingFunds)
	assert.Contains(t, buf.String(), string(domain.PhaseValidating))
	assert.Contains(t, buf.String(), string(domain.PhaseResolvingFunds))
}

func TestConsole_FarmTable(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsoleWriter(&buf)

	farms := []domain.FarmSnapshot{
		{FarmID: 1, Name: "Kirinyaga Estate", Location: "Kirinyaga", CurrentTrees: 250, TreeCapacity: 1000, Active: true},
		{FarmID: 2, Name: "Dormant Grove", Location: "Nyeri", Active: false},
	}
	stats := map[uint64]domain.FarmStats{
		1: {TotalInvestment: mbt(1000), TotalTrees: 250, InvestorCount: 12},
	}

	err := c.FarmTable(context.Background(), farms, stats)

	require.NoError(t, err)
	out := buf.String()
	assert.Contains(t, out, "Kirinyaga Estate")
	assert.Contains(t, out, "1000.00")
	assert.Contains(t, out, "yes")
	assert.Contains(t, out, "no")
}

func TestConsole_FarmTable_Empty(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsoleWriter(&buf)

	require.NoError(t, c.FarmTable(context.Background(), nil, nil))
	assert.Contains(t, buf.String(), "No farms registered.")
}

func TestFormatMBT(t *testing.T) {
	assert.Equal(t, "4.00", formatMBT(mbt(4)))
	assert.Equal(t, "0.00", formatMBT(nil))
	half := new(big.Int).Div(mbt(1), big.NewInt(2))
	assert.Equal(t, "0.50", formatMBT(half))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 10))
	assert.Len(t, truncate("0x1234567890abcdef", 10), 10)
}
