package main

import (
	"context"
	"flag"
	"log/slog"
	"math/big"
	"os"
	"os/signal"
	"syscall"

	"github.com/gethsun1/project-mocha-demo/config"
	"github.com/gethsun1/project-mocha-demo/internal/adapters/farmapi"
	"github.com/gethsun1/project-mocha-demo/internal/adapters/notify"
	"github.com/gethsun1/project-mocha-demo/internal/adapters/onchain"
	"github.com/gethsun1/project-mocha-demo/internal/adapters/storage"
	"github.com/gethsun1/project-mocha-demo/internal/application/invest"
	"github.com/gethsun1/project-mocha-demo/internal/domain"
	"github.com/gethsun1/project-mocha-demo/internal/ports"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	farms := flag.Bool("farms", false, "list all farms and exit")
	serve := flag.Bool("serve", false, "run the HTTP snapshot endpoint")
	farmID := flag.Uint64("farm", 0, "farm id to invest in")
	trees := flag.Uint64("trees", 0, "number of trees to purchase")
	verbose := flag.Bool("verbose", false, "set log level to debug")
	logFormat := flag.String("format", "", "log format: text|json (overrides config)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err, "path", *configPath)
		os.Exit(1)
	}

	if *verbose {
		cfg.Log.Level = "debug"
	}
	if *logFormat != "" {
		cfg.Log.Format = *logFormat
	}
	setupLogger(cfg.Log)

	slog.Info("mocha starting",
		"config", *configPath,
		"rpc", cfg.Chain.RPCURL,
		"chain_id", cfg.Chain.ChainID,
		"farms", *farms,
		"serve", *serve,
	)

	client, err := onchain.NewClient(cfg.Chain.RPCURL, cfg.Chain.ChainID, onchain.Addresses{
		BeanToken:   cfg.Chain.BeanToken,
		LandToken:   cfg.Chain.LandToken,
		FarmManager: cfg.Chain.FarmManager,
	}, cfg.Chain.PrivateKey)
	if err != nil {
		slog.Error("failed to connect to ledger", "err", err)
		os.Exit(1)
	}
	defer client.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	notifier := notify.NewConsole(*verbose)

	switch {
	case *serve:
		runServe(ctx, cfg, client)
	case *farms:
		runFarmList(ctx, client, notifier)
	default:
		runInvest(ctx, cfg, client, notifier, *farmID, *trees)
	}
}

func runInvest(ctx context.Context, cfg *config.Config, client *onchain.Client, notifier *notify.Console, farmID, trees uint64) {
	if farmID == 0 || trees == 0 {
		slog.Error("both -farm and -trees are required to invest")
		os.Exit(1)
	}
	actor := client.Sender()
	if actor == "" {
		slog.Error("MOCHA_PRIVATE_KEY is required to invest")
		os.Exit(1)
	}

	store, err := storage.NewSQLiteStore(cfg.Storage.DSN)
	if err != nil {
		slog.Error("failed to open storage", "err", err, "dsn", cfg.Storage.DSN)
		os.Exit(1)
	}
	defer store.Close()

	var snapshots ports.SnapshotProvider = client
	if cfg.API.SnapshotBase != "" {
		snapshots = farmapi.NewClient(cfg.API.SnapshotBase)
	}

	icfg := invest.DefaultConfig()
	icfg.Contracts = invest.ContractSet{
		BeanToken:   cfg.Chain.BeanToken,
		LandToken:   cfg.Chain.LandToken,
		FarmManager: cfg.Chain.FarmManager,
	}
	icfg.ApprovalBufferWei = new(big.Int).Mul(
		big.NewInt(cfg.Invest.ApprovalBufferMBT), big.NewInt(1e18))
	icfg.PurchaseGasTiers = cfg.Invest.PurchaseGasTiers
	icfg.ApprovalGasLimit = cfg.Invest.ApprovalGasLimit
	icfg.ReceiptTimeout = cfg.ReceiptTimeout()
	icfg.SettleDelay = cfg.SettleDelay()

	reconciler := invest.NewReconciler(snapshots, cfg.SettleDelay(), nil)
	orch := invest.New(snapshots, client, client, client, store, notifier, reconciler, icfg)

	rec, err := orch.Run(ctx, domain.InvestRequest{
		FarmID:    farmID,
		TreeCount: trees,
		Actor:     actor,
	})
	if err != nil {
		slog.Error("investment failed", "kind", rec.FailureKind, "err", err)
		os.Exit(1)
	}

	slog.Info("investment complete", "session", rec.ID, "attempts", len(rec.Attempts))
}

func setupLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
}
