package config

import (
	"flag"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

const (
	DefaultChainID  = "pulsar-3"
	DefaultLCDURL   = "https://lcd.testnet.secretsaturn.net"
	DefaultGas      = 200000
	DefaultGasPrice = 0.25

	DefaultOllamaBaseURL = "http://localhost:11434"
	DefaultOllamaModel   = "llama2"
)

type Config struct {
	// Ledger settings
	ChainID         string        `env:"CHAIN_ID"`
	LCDURL          string        `env:"LCD_URL"`
	Mnemonic        string        `env:"MNEMONIC"`
	ContractAddress string        `env:"CONTRACT_ADDRESS"`
	ContractHash    string        `env:"CONTRACT_CODE_HASH"`
	DevMode         bool          `env:"DEV_MODE"`
	Gas             uint64        `env:"GAS"`
	GasPrice        float64       `env:"GAS_PRICE"`
	LedgerTimeout   time.Duration `env:"LEDGER_TIMEOUT"`

	// Completion backend
	OllamaBaseURL string `env:"OLLAMA_BASE_URL"`
	OllamaModel   string `env:"OLLAMA_MODEL"`

	// Local storage
	CacheDir     string `env:"CACHE_DIR"`
	ClientDBPath string `env:"CLIENT_DB_PATH"`
	DatabaseDSN  string `env:"DATABASE_URI"`

	// HTTP API
	BaseURL    string `env:"BASE_URL"`
	AuthSecret string `env:"AUTH_SECRET"`

	Version bool `env:"-"` // show version and exit (flag only)
}

func NewConfig() *Config {
	_ = godotenv.Load()

	cfg := &Config{}
	_ = env.Parse(cfg)

	// флаги перекрывают значения из env
	flag.StringVar(&cfg.ChainID, "chain-id", cfg.ChainID, "chain id of the ledger network")
	flag.StringVar(&cfg.LCDURL, "lcd-url", cfg.LCDURL, "LCD (REST) endpoint of the ledger")
	flag.StringVar(&cfg.ContractAddress, "contract", cfg.ContractAddress, "address of the drafts contract")
	flag.BoolVar(&cfg.DevMode, "dev", cfg.DevMode, "force simulated mode")
	flag.StringVar(&cfg.CacheDir, "cache-dir", cfg.CacheDir, "directory of the result cache")
	flag.StringVar(&cfg.DatabaseDSN, "d", cfg.DatabaseDSN, "строка подключения к БД журнала черновиков")
	flag.StringVar(&cfg.BaseURL, "base-url", cfg.BaseURL, "listen address of the HTTP API (host:port)")
	flag.StringVar(&cfg.AuthSecret, "auth-secret", cfg.AuthSecret, "секрет для подписи JWT")
	flag.BoolVar(&cfg.Version, "version", cfg.Version, "Show version and exit")

	flag.Parse()

	cfg.applyDefaults()
	return cfg
}

var hostPortRe = regexp.MustCompile(`^[A-Za-z0-9\.\-]*:\d{1,5}$`)

func (cfg *Config) applyDefaults() {
	if cfg.ChainID == "" {
		cfg.ChainID = DefaultChainID
	}
	if cfg.LCDURL == "" {
		cfg.LCDURL = DefaultLCDURL
	}
	cfg.LCDURL = strings.TrimRight(cfg.LCDURL, "/")
	if cfg.Gas == 0 {
		cfg.Gas = DefaultGas
	}
	if cfg.GasPrice <= 0 {
		cfg.GasPrice = DefaultGasPrice
	}
	if cfg.LedgerTimeout <= 0 {
		cfg.LedgerTimeout = 30 * time.Second
	}
	if cfg.OllamaBaseURL == "" {
		cfg.OllamaBaseURL = DefaultOllamaBaseURL
	}
	if cfg.OllamaModel == "" {
		cfg.OllamaModel = DefaultOllamaModel
	}
	if cfg.AuthSecret == "" {
		cfg.AuthSecret = "dev-secret-key"
	}
	if !hostPortRe.MatchString(cfg.BaseURL) {
		cfg.BaseURL = "localhost:5001"
	}

	// локальные каталоги по умолчанию
	if cfg.CacheDir == "" {
		if dir, err := os.UserCacheDir(); err == nil {
			cfg.CacheDir = filepath.Join(dir, "secret-ai-writer", "cache")
		} else {
			cfg.CacheDir = filepath.Join(os.TempDir(), "secret-ai-writer-cache")
		}
	}
	if cfg.ClientDBPath == "" {
		if dir, err := os.UserConfigDir(); err == nil {
			cfg.ClientDBPath = filepath.Join(dir, "secret-ai-writer")
		} else {
			cfg.ClientDBPath = filepath.Join(os.TempDir(), "secret-ai-writer")
		}
	}
	if cfg.DatabaseDSN == "" {
		cfg.DatabaseDSN = filepath.Join(cfg.ClientDBPath, "journal.sqlite")
	}
}

// MissingLive lists the settings that keep the client out of live mode.
// MNEMONIC is not among them: without it the client stays live for queries
// and degrades only the calls that need a signature.
func (cfg *Config) MissingLive() []string {
	var missing []string
	if cfg.DevMode {
		missing = append(missing, "DEV_MODE")
	}
	if strings.TrimSpace(cfg.ContractAddress) == "" {
		missing = append(missing, "CONTRACT_ADDRESS")
	}
	if strings.TrimSpace(cfg.LCDURL) == "" {
		missing = append(missing, "LCD_URL")
	}
	return missing
}

// HasCredential reports whether a mnemonic is configured.
func (cfg *Config) HasCredential() bool {
	return strings.TrimSpace(cfg.Mnemonic) != ""
}
