package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/gethsun1/project-mocha-demo/internal/adapters/notify"
	"github.com/gethsun1/project-mocha-demo/internal/adapters/onchain"
	"github.com/gethsun1/project-mocha-demo/internal/domain"
)

// runFarmList prints the farm catalogue with per-farm stats.
func runFarmList(ctx context.Context, client *onchain.Client, notifier *notify.Console) {
	ids, err := client.AllFarms(ctx)
	if err != nil {
		slog.Error("failed to list farms", "err", err)
		os.Exit(1)
	}

	farms := make([]domain.FarmSnapshot, 0, len(ids))
	stats := make(map[uint64]domain.FarmStats, len(ids))
	for _, id := range ids {
		snap, err := client.FarmSnapshot(ctx, id)
		if err != nil {
			slog.Warn("skipping farm", "farm", id, "err", err)
			continue
		}
		farms = append(farms, snap)

		st, err := client.FarmStats(ctx, id)
		if err != nil {
			slog.Warn("stats unavailable", "farm", id, "err", err)
			continue
		}
		stats[id] = st
	}

	if err := notifier.FarmTable(ctx, farms, stats); err != nil {
		slog.Error("failed to render farm table", "err", err)
		os.Exit(1)
	}
}
