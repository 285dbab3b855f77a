package invest

import (
	"context"
	"log/slog"
	"time"

	"github.com/gethsun1/project-mocha-demo/internal/domain"
	"github.com/gethsun1/project-mocha-demo/internal/ports"
)

// receiptWatcher blocks a session (cooperatively) until a submitted attempt
// reaches a terminal status or the bounded timeout elapses. It never turns
// ordinary non-finality into an error; only genuine I/O failure talking to
// the ledger comes back as err, which the orchestrator maps to
// WATCHER_UNAVAILABLE.
type receiptWatcher struct {
	receipts ports.ReceiptSource
	timeout  time.Duration
}

func (w receiptWatcher) await(ctx context.Context, kind domain.AttemptKind, txHash string) (domain.TerminalStatus, error) {
	started := time.Now()
	status, err := w.receipts.WaitForReceipt(ctx, txHash, w.timeout)
	if err != nil {
		return "", err
	}

	slog.Debug("invest: receipt observed",
		"kind", kind,
		"tx", txHash,
		"status", status,
		"waited", time.Since(started).Round(time.Millisecond),
	)
	return status, nil
}
