package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"taxflow/internal/wallet"
)

// Config aggregates application configuration values.
type Config struct {
	HTTP    HTTPConfig
	Ledger  LedgerConfig
	Logging LoggingConfig
	Wallets []wallet.Credential
}

// HTTPConfig governs HTTP server behaviour.
type HTTPConfig struct {
	Host              string
	Port              int
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	ShutdownTimeout   time.Duration
	AllowedOriginsCSV string
}

// LedgerConfig describes connectivity to the XRPL JSON-RPC endpoint.
type LedgerConfig struct {
	URL            string
	RequestTimeout time.Duration
	PartyTimeout   time.Duration
	TxFetchLimit   int
	FetchWorkers   int
}

// LoggingConfig controls structured logging settings.
type LoggingConfig struct {
	Level         string
	Format        string // text|json
	IncludeCaller bool
}

const (
	defaultHost            = "0.0.0.0"
	defaultPort            = 8080
	defaultReadTimeout     = 10 * time.Second
	defaultWriteTimeout    = 15 * time.Second
	defaultIdleTimeout     = 60 * time.Second
	defaultShutdownTimeout = 10 * time.Second
	defaultLoggingLevel    = "info"
	defaultLoggingFormat   = "text"

	// The devnet JSON-RPC endpoint the original deployment targeted.
	defaultLedgerURL      = "https://s.devnet.rippletest.net:51234"
	defaultRequestTimeout = 15 * time.Second
	defaultPartyTimeout   = 10 * time.Second
	defaultTxFetchLimit   = 200
	defaultFetchWorkers   = 4
)

// Load reads configuration from environment variables, applying defaults.
// Every system party must have a WALLET_<ID>_ADDRESS entry; seeds
// (WALLET_<ID>_SEED) are optional and only needed for submission.
func Load() (Config, error) {
	cfg := Config{
		HTTP: HTTPConfig{
			Host:              valueOrDefault("SERVER_HOST", defaultHost),
			ReadTimeout:       defaultReadTimeout,
			WriteTimeout:      defaultWriteTimeout,
			IdleTimeout:       defaultIdleTimeout,
			ShutdownTimeout:   defaultShutdownTimeout,
			AllowedOriginsCSV: os.Getenv("SERVER_ALLOWED_ORIGINS"),
		},
		Ledger: LedgerConfig{
			URL:            valueOrDefault("LEDGER_URL", defaultLedgerURL),
			RequestTimeout: defaultRequestTimeout,
			PartyTimeout:   defaultPartyTimeout,
			TxFetchLimit:   parseIntWithDefault("LEDGER_TX_LIMIT", defaultTxFetchLimit),
			FetchWorkers:   parseIntWithDefault("LEDGER_FETCH_WORKERS", defaultFetchWorkers),
		},
		Logging: LoggingConfig{
			Level:         valueOrDefault("LOG_LEVEL", defaultLoggingLevel),
			Format:        valueOrDefault("LOG_FORMAT", defaultLoggingFormat),
			IncludeCaller: parseBoolWithDefault("LOG_INCLUDE_CALLER", false),
		},
	}

	port, err := parsePort("SERVER_PORT", defaultPort)
	if err != nil {
		return Config{}, err
	}
	cfg.HTTP.Port = port

	durations := []struct {
		key    string
		target *time.Duration
	}{
		{"SERVER_READ_TIMEOUT", &cfg.HTTP.ReadTimeout},
		{"SERVER_WRITE_TIMEOUT", &cfg.HTTP.WriteTimeout},
		{"SERVER_IDLE_TIMEOUT", &cfg.HTTP.IdleTimeout},
		{"SERVER_SHUTDOWN_TIMEOUT", &cfg.HTTP.ShutdownTimeout},
		{"LEDGER_REQUEST_TIMEOUT", &cfg.Ledger.RequestTimeout},
		{"LEDGER_PARTY_TIMEOUT", &cfg.Ledger.PartyTimeout},
	}
	for _, d := range durations {
		if v := os.Getenv(d.key); v != "" {
			parsed, err := time.ParseDuration(v)
			if err != nil {
				return Config{}, fmt.Errorf("invalid %s: %w", d.key, err)
			}
			*d.target = parsed
		}
	}

	wallets, err := loadWallets()
	if err != nil {
		return Config{}, err
	}
	cfg.Wallets = wallets

	return cfg, nil
}

func loadWallets() ([]wallet.Credential, error) {
	var creds []wallet.Credential
	var missing []string

	for _, party := range wallet.SystemParties() {
		address := os.Getenv(AddressKey(string(party)))
		if address == "" {
			missing = append(missing, AddressKey(string(party)))
			continue
		}
		creds = append(creds, wallet.Credential{
			Party:   party,
			Address: address,
			Seed:    os.Getenv(SeedKey(string(party))),
		})
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("missing wallet configuration: %s", strings.Join(missing, ", "))
	}
	return creds, nil
}

// AddressKey is the environment key holding a party's ledger address.
func AddressKey(party string) string {
	return "WALLET_" + strings.ToUpper(party) + "_ADDRESS"
}

// SeedKey is the environment key holding a party's signing seed.
func SeedKey(party string) string {
	return "WALLET_" + strings.ToUpper(party) + "_SEED"
}

func valueOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func parseBoolWithDefault(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		val, err := strconv.ParseBool(v)
		if err != nil {
			return fallback
		}
		return val
	}
	return fallback
}

func parseIntWithDefault(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if val, err := strconv.Atoi(v); err == nil {
			return val
		}
	}
	return fallback
}

func parsePort(key string, fallback int) (int, error) {
	if v := os.Getenv(key); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return 0, fmt.Errorf("invalid %s value %q: %w", key, v, err)
		}
		if port <= 0 || port > 65535 {
			return 0, fmt.Errorf("port %d is out of range", port)
		}
		return port, nil
	}
	return fallback, nil
}
