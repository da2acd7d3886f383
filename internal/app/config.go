package app

import (
	"fmt"
	"net/url"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"
)

type Config struct {
	LedgerPath      string `env:"LEDGER_PATH"`
	RPCURL          string `env:"RPC_URL,required,notEmpty"`
	PrivateKey      string `env:"PRIVATE_KEY,required,notEmpty,unset"`
	ContractAddress string `env:"CONTRACT_ADDRESS,required,notEmpty"`
	ExplorerURL     string `env:"EXPLORER_URL,required,notEmpty"`

	ChainName       string `env:"CHAIN_NAME"`
	ExpectedChainID uint64 `env:"EXPECTED_CHAIN_ID"`

	TransferMethod   string `env:"TRANSFER_METHOD"`
	TokenDecimals    int32  `env:"TOKEN_DECIMALS"`
	MinConfirmations uint64 `env:"MIN_CONFIRMATIONS"`

	SettlementTimeout   time.Duration `env:"SETTLEMENT_TIMEOUT"`
	ReceiptPollInterval time.Duration `env:"RECEIPT_POLL_INTERVAL"`
	PacingDelay         time.Duration `env:"PACING_DELAY"`
	RPCRateLimit        float64       `env:"RPC_RATE_LIMIT"`

	PostgresURL    string `env:"POSTGRES_URL"`
	TelegramToken  string `env:"TELEGRAM_TOKEN"`
	TelegramChatID int64  `env:"TELEGRAM_CHAT_ID"`
	NotifyBuffer   int    `env:"NOTIFY_BUFFER"`
	MetricsAddr    string `env:"METRICS_ADDR"`
}

func LoadConfig() (Config, error) {
	err := godotenv.Load()
	if err != nil {
		fmt.Println("Warning: .env file not found, relying on environment variables")
	}

	config := defaultConfig()
	if err := env.Parse(&config); err != nil {
		return Config{}, err
	}
	if err := config.Validate(); err != nil {
		return Config{}, err
	}

	return config, nil
}

func defaultConfig() Config {
	return Config{
		LedgerPath:          "airdrop.csv",
		TransferMethod:      "mint",
		TokenDecimals:       18,
		MinConfirmations:    1,
		SettlementTimeout:   5 * time.Minute,
		ReceiptPollInterval: 2 * time.Second,
		PacingDelay:         2 * time.Second,
		NotifyBuffer:        256,
	}
}

type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 1 {
		return e[0].Error()
	}
	msg := fmt.Sprintf("%d validation errors:", len(e))
	for _, err := range e {
		msg += "\n  - " + err.Error()
	}
	return msg
}

func (c Config) Validate() error {
	var errs ValidationErrors
	add := func(field, msg string) {
		errs = append(errs, ValidationError{Field: field, Message: msg})
	}

	if c.LedgerPath == "" {
		add("LEDGER_PATH", "must not be empty")
	}
	if !common.IsHexAddress(c.ContractAddress) {
		add("CONTRACT_ADDRESS", fmt.Sprintf("not a hex address: %q", c.ContractAddress))
	}
	if u, err := url.Parse(c.ExplorerURL); err != nil || u.Scheme == "" || u.Host == "" {
		add("EXPLORER_URL", fmt.Sprintf("not an absolute url: %q", c.ExplorerURL))
	}
	if c.TokenDecimals < 0 || c.TokenDecimals > 36 {
		add("TOKEN_DECIMALS", "must be between 0 and 36")
	}
	if c.MinConfirmations == 0 {
		add("MIN_CONFIRMATIONS", "must be at least 1")
	}
	if c.SettlementTimeout <= 0 {
		add("SETTLEMENT_TIMEOUT", "must be positive")
	}
	if c.ReceiptPollInterval <= 0 {
		add("RECEIPT_POLL_INTERVAL", "must be positive")
	}
	if c.PacingDelay < 0 {
		add("PACING_DELAY", "must not be negative")
	}
	if c.RPCRateLimit < 0 {
		add("RPC_RATE_LIMIT", "must not be negative")
	}
	if c.TelegramToken != "" && c.TelegramChatID == 0 {
		add("TELEGRAM_CHAT_ID", "required when TELEGRAM_TOKEN is set")
	}
	if c.NotifyBuffer <= 0 {
		add("NOTIFY_BUFFER", "must be positive")
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}
