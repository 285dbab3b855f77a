package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the full application configuration.
type Config struct {
	Chain   ChainConfig   `yaml:"chain"`
	Invest  InvestConfig  `yaml:"invest"`
	API     APIConfig     `yaml:"api"`
	Storage StorageConfig `yaml:"storage"`
	Log     LogConfig     `yaml:"log"`
}

// ChainConfig points the client at the ledger and its contracts.
type ChainConfig struct {
	RPCURL      string `yaml:"rpc_url"`
	ChainID     int64  `yaml:"chain_id"`
	BeanToken   string `yaml:"bean_token"`
	LandToken   string `yaml:"land_token"`
	FarmManager string `yaml:"farm_manager"`

	// Never read from YAML; MOCHA_PRIVATE_KEY only.
	PrivateKey string `yaml:"-"`
}

// InvestConfig tunes the orchestrator.
type InvestConfig struct {
	ApprovalBufferMBT     int64    `yaml:"approval_buffer_mbt"`
	PurchaseGasTiers      []uint64 `yaml:"purchase_gas_tiers"`
	ApprovalGasLimit      uint64   `yaml:"approval_gas_limit"`
	ReceiptTimeoutSeconds int      `yaml:"receipt_timeout_seconds"`
	SettleDelaySeconds    int      `yaml:"settle_delay_seconds"`
}

// APIConfig is the optional HTTP snapshot layer.
type APIConfig struct {
	// Base URL of a running snapshot endpoint. Empty means read the
	// ledger directly.
	SnapshotBase string `yaml:"snapshot_base"`
	// Listen address for `-serve`.
	ListenAddr string `yaml:"listen_addr"`
}

// StorageConfig controls where sessions are persisted.
type StorageConfig struct {
	DSN string `yaml:"dsn"` // SQLite file path, or ":memory:"
}

// LogConfig controls log format and level.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // text | json
}

// Load reads the YAML file and the .env file if present. Env values
// override YAML for the keys that map to them.
func Load(path string) (*Config, error) {
	// Load .env if present (silence the error when there is none)
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config.Load: read %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config.Load: parse YAML: %w", err)
	}

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)
	return &cfg, nil
}

// ReceiptTimeout returns the receipt wait bound as a time.Duration.
func (c *Config) ReceiptTimeout() time.Duration {
	return time.Duration(c.Invest.ReceiptTimeoutSeconds) * time.Second
}

// SettleDelay returns the post-success settling delay.
func (c *Config) SettleDelay() time.Duration {
	return time.Duration(c.Invest.SettleDelaySeconds) * time.Second
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("MOCHA_RPC_URL"); v != "" {
		cfg.Chain.RPCURL = v
	}
	if v := os.Getenv("MOCHA_PRIVATE_KEY"); v != "" {
		cfg.Chain.PrivateKey = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
}

func setDefaults(cfg *Config) {
	if cfg.Chain.RPCURL == "" {
		cfg.Chain.RPCURL = "https://sepolia-rpc.scroll.io"
	}
	if cfg.Chain.ChainID == 0 {
		cfg.Chain.ChainID = 534351 // Scroll Sepolia
	}
	if cfg.Chain.BeanToken == "" {
		cfg.Chain.BeanToken = "0x868BE05289CC245be73e8A461597893f6cb55b70"
	}
	if cfg.Chain.LandToken == "" {
		cfg.Chain.LandToken = "0x289FdEE84aF11DD000Be62C55bC44B1e754681DB"
	}
	if cfg.Chain.FarmManager == "" {
		cfg.Chain.FarmManager = "0x8123E32f4b5240B4B77355c3E5D08EA9253bf51B"
	}
	if cfg.Invest.ApprovalBufferMBT <= 0 {
		cfg.Invest.ApprovalBufferMBT = 20
	}
	if len(cfg.Invest.PurchaseGasTiers) == 0 {
		cfg.Invest.PurchaseGasTiers = []uint64{300_000, 650_000}
	}
	if cfg.Invest.ApprovalGasLimit == 0 {
		cfg.Invest.ApprovalGasLimit = 80_000
	}
	if cfg.Invest.ReceiptTimeoutSeconds <= 0 {
		cfg.Invest.ReceiptTimeoutSeconds = 90
	}
	if cfg.Invest.SettleDelaySeconds <= 0 {
		cfg.Invest.SettleDelaySeconds = 3
	}
	if cfg.API.ListenAddr == "" {
		cfg.API.ListenAddr = ":8790"
	}
	if cfg.Storage.DSN == "" {
		cfg.Storage.DSN = "mocha.db"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
}
