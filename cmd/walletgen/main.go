// Command walletgen bootstraps the system wallets: any party without a
// configured ledger address gets a fresh faucet-funded devnet account, and
// the resulting credentials are appended to the .env file the server reads.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"

	"taxflow/internal/config"
	"taxflow/internal/wallet"
)

func main() {
	var (
		faucetURL  = flag.String("faucet-url", "https://faucet.devnet.rippletest.net/accounts", "faucet endpoint used to create and fund accounts")
		envFile    = flag.String("env-file", ".env", "env file to read and append wallet credentials to")
		credsFile  = flag.String("credentials", "wallet_credentials.json", "JSON file to write the full credential set to (empty to skip)")
		timeout    = flag.Duration("timeout", 30*time.Second, "per-request faucet timeout")
		regenerate = flag.Bool("force", false, "request new accounts even for parties already configured")
	)
	flag.Parse()

	// Best effort: a missing env file just means every wallet is new.
	_ = godotenv.Load(*envFile)

	client := &http.Client{Timeout: *timeout}
	credentials := make(map[string]walletCredential)
	var envLines []string

	for _, party := range wallet.SystemParties() {
		id := string(party)
		address := os.Getenv(config.AddressKey(id))
		seed := os.Getenv(config.SeedKey(id))

		if address != "" && !*regenerate {
			fmt.Printf("%s: already configured (%s)\n", id, address)
			credentials[id] = walletCredential{Address: address, Seed: seed}
			continue
		}

		fmt.Printf("%s: requesting faucet account...\n", id)
		account, err := requestFaucetAccount(context.Background(), client, *faucetURL)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: faucet request failed: %v\n", id, err)
			os.Exit(1)
		}

		fmt.Printf("%s: funded %s\n", id, account.Address)
		credentials[id] = account
		envLines = append(envLines,
			fmt.Sprintf("%s=%s", config.AddressKey(id), account.Address),
			fmt.Sprintf("%s=%s", config.SeedKey(id), account.Seed),
		)
	}

	if len(envLines) > 0 {
		if err := appendEnvFile(*envFile, envLines); err != nil {
			fmt.Fprintf(os.Stderr, "failed to update %s: %v\n", *envFile, err)
			os.Exit(1)
		}
		fmt.Printf("wrote %d new credentials to %s\n", len(envLines)/2, *envFile)
	}

	if *credsFile != "" {
		if err := writeCredentials(*credsFile, credentials); err != nil {
			fmt.Fprintf(os.Stderr, "failed to write %s: %v\n", *credsFile, err)
			os.Exit(1)
		}
		fmt.Printf("credential summary written to %s\n", *credsFile)
	}
}

type walletCredential struct {
	Address string `json:"classic_address"`
	Seed    string `json:"seed"`
}

type faucetResponse struct {
	Account struct {
		ClassicAddress string `json:"classicAddress"`
		Address        string `json:"address"`
	} `json:"account"`
	Seed string `json:"seed"`
}

func requestFaucetAccount(ctx context.Context, client *http.Client, url string) (walletCredential, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader([]byte("{}")))
	if err != nil {
		return walletCredential{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return walletCredential{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return walletCredential{}, fmt.Errorf("unexpected faucet status %d", resp.StatusCode)
	}

	var payload faucetResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return walletCredential{}, fmt.Errorf("decode faucet response: %w", err)
	}

	address := payload.Account.ClassicAddress
	if address == "" {
		address = payload.Account.Address
	}
	if address == "" || payload.Seed == "" {
		return walletCredential{}, fmt.Errorf("faucet response missing address or seed")
	}
	return walletCredential{Address: address, Seed: payload.Seed}, nil
}

func appendEnvFile(path string, lines []string) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	defer f.Close()

	for _, line := range lines {
		if _, err := fmt.Fprintln(f, line); err != nil {
			return err
		}
	}
	return nil
}

func writeCredentials(path string, credentials map[string]walletCredential) error {
	data, err := json.MarshalIndent(credentials, "", "    ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}
