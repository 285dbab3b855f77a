package notify

import (
	"context"
	"fmt"
	"io"
	"math/big"
	"os"

	"github.com/olekukonko/tablewriter"

	"github.com/gethsun1/project-mocha-demo/internal/domain"
)

// Console implements ports.Notifier on stdout.
type Console struct {
	out      io.Writer
	progress bool // print each phase transition as it happens
}

// NewConsole creates a console notifier. progress enables per-transition
// output, useful while a session blocks on receipts.
func NewConsole(progress bool) *Console {
	return &Console{out: os.Stdout, progress: progress}
}

// NewConsoleWriter creates a notifier writing to the given writer (tests).
func NewConsoleWriter(w io.Writer) *Console {
	return &Console{out: w, progress: true}
}

// PhaseChanged prints one line per transition when progress is on.
func (c *Console) PhaseChanged(sessionID string, from, to domain.Phase) {
	if !c.progress {
		return
	}
	fmt.Fprintf(c.out, "  %s → %s\n", from, to)
}

// SessionResult renders the terminal session and its attempt history.
func (c *Console) SessionResult(_ context.Context, rec domain.SessionRecord) error {
	fmt.Fprintln(c.out)
	switch rec.Phase {
	case domain.PhaseSucceeded:
		fmt.Fprintf(c.out, "✅ Purchased %d tree(s) on farm #%d for %s MBT\n",
			rec.TreeCount, rec.FarmID, formatMBT(rec.CostWei))
	case domain.PhaseFailed:
		fmt.Fprintf(c.out, "❌ Investment failed: %s\n", rec.FailureKind)
	default:
		fmt.Fprintf(c.out, "Session %s in phase %s\n", rec.ID, rec.Phase)
	}

	if len(rec.Attempts) == 0 {
		fmt.Fprintln(c.out, "No transactions were submitted.")
		return nil
	}

	table := tablewriter.NewWriter(c.out)
	table.Header("#", "Kind", "Tier", "Gas", "Amount MBT", "Tx", "Status")
	for i, att := range rec.Attempts {
		status := string(att.Status)
		if status == "" {
			status = "NOT_BROADCAST"
		}
		table.Append(
			fmt.Sprintf("%d", i+1),
			string(att.Kind),
			fmt.Sprintf("%d", att.GasTier+1),
			fmt.Sprintf("%d", att.GasLimit),
			formatMBT(att.Amount),
			truncate(att.TxHash, 14),
			status,
		)
	}
	table.Render()
	return nil
}

// FarmTable renders the farm catalogue.
func (c *Console) FarmTable(_ context.Context, farms []domain.FarmSnapshot, stats map[uint64]domain.FarmStats) error {
	if len(farms) == 0 {
		fmt.Fprintln(c.out, "No farms registered.")
		return nil
	}

	table := tablewriter.NewWriter(c.out)
	table.Header("ID", "Name", "Location", "Trees", "Capacity", "Invested MBT", "Investors", "Active")
	for _, farm := range farms {
		st := stats[farm.FarmID]
		active := "yes"
		if !farm.Active {
			active = "no"
		}
		table.Append(
			fmt.Sprintf("%d", farm.FarmID),
			truncate(farm.Name, 24),
			truncate(farm.Location, 20),
			fmt.Sprintf("%d", farm.CurrentTrees),
			fmt.Sprintf("%d", farm.TreeCapacity),
			formatMBT(st.TotalInvestment),
			fmt.Sprintf("%d", st.InvestorCount),
			active,
		)
	}
	table.Render()
	return nil
}

// formatMBT renders wei as whole MBT with two decimals.
func formatMBT(wei *big.Int) string {
	if wei == nil {
		return "0.00"
	}
	f := new(big.Float).SetInt(wei)
	f.Quo(f, big.NewFloat(1e18))
	v, _ := f.Float64()
	return fmt.Sprintf("%.2f", v)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	if n <= 3 {
		return s[:n]
	}
	return s[:n-3] + "..."
}
