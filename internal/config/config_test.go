package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taxflow/internal/wallet"
)

func setWalletEnv(t *testing.T) {
	t.Helper()
	for _, party := range wallet.SystemParties() {
		t.Setenv(AddressKey(string(party)), "r"+string(party))
	}
}

func TestLoadDefaults(t *testing.T) {
	setWalletEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.HTTP.Host)
	assert.Equal(t, 8080, cfg.HTTP.Port)
	assert.Equal(t, "https://s.devnet.rippletest.net:51234", cfg.Ledger.URL)
	assert.Equal(t, 200, cfg.Ledger.TxFetchLimit)
	assert.Equal(t, 4, cfg.Ledger.FetchWorkers)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "text", cfg.Logging.Format)
	assert.Len(t, cfg.Wallets, len(wallet.SystemParties()))
}

func TestLoadOverrides(t *testing.T) {
	setWalletEnv(t)
	t.Setenv("SERVER_HOST", "127.0.0.1")
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("SERVER_READ_TIMEOUT", "5s")
	t.Setenv("LEDGER_URL", "http://localhost:5005")
	t.Setenv("LEDGER_TX_LIMIT", "50")
	t.Setenv("LEDGER_PARTY_TIMEOUT", "3s")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "json")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1", cfg.HTTP.Host)
	assert.Equal(t, 9090, cfg.HTTP.Port)
	assert.Equal(t, "5s", cfg.HTTP.ReadTimeout.String())
	assert.Equal(t, "http://localhost:5005", cfg.Ledger.URL)
	assert.Equal(t, 50, cfg.Ledger.TxFetchLimit)
	assert.Equal(t, "3s", cfg.Ledger.PartyTimeout.String())
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestLoadWalletSeeds(t *testing.T) {
	setWalletEnv(t)
	t.Setenv(SeedKey("tax_pool"), "sPOOLSEED")

	cfg, err := Load()
	require.NoError(t, err)

	var poolSeed string
	for _, cred := range cfg.Wallets {
		if cred.Party == "tax_pool" {
			poolSeed = cred.Seed
		}
	}
	assert.Equal(t, "sPOOLSEED", poolSeed)
}

func TestLoadMissingWalletAddress(t *testing.T) {
	setWalletEnv(t)
	t.Setenv(AddressKey("government"), "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "WALLET_GOVERNMENT_ADDRESS")
}

func TestLoadInvalidPort(t *testing.T) {
	setWalletEnv(t)
	t.Setenv("SERVER_PORT", "70000")

	_, err := Load()
	require.Error(t, err)
}

func TestLoadInvalidDuration(t *testing.T) {
	setWalletEnv(t)
	t.Setenv("SERVER_READ_TIMEOUT", "soon")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SERVER_READ_TIMEOUT")
}
