package xrpl

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// Client is the minimal contract the service layer needs from the XRP
// Ledger JSON-RPC API. Implementations must be safe for concurrent use.
type Client interface {
	// AccountInfo returns the validated-ledger state of an account.
	AccountInfo(ctx context.Context, address string) (AccountData, error)
	// AccountTransactions returns up to limit raw history entries for an
	// account. Entries are returned as decoded JSON objects; callers own
	// interpretation of the several payload shapes the API can produce.
	AccountTransactions(ctx context.Context, address string, limit int) ([]TransactionRecord, error)
	// SubmitPayment signs and submits a payment through the ledger's
	// sign-and-submit RPC form. Key material never touches this process
	// beyond being forwarded to the endpoint.
	SubmitPayment(ctx context.Context, p Payment) (SubmitResult, error)
	// Ping verifies the endpoint is reachable.
	Ping(ctx context.Context) error
	Close() error
}

// TransactionRecord is one undecoded account_tx entry.
type TransactionRecord map[string]any

// AccountData is the subset of account_info this system consumes.
type AccountData struct {
	Address  string
	Balance  decimal.Decimal // XRP major units
	Sequence uint32
}

// Payment describes one XRP payment to submit.
type Payment struct {
	Account     string
	Destination string
	Amount      decimal.Decimal // XRP major units
	SourceTag   uint32          // 0 means no tag
	Seed        string          // signing secret forwarded to the endpoint
}

// SubmitResult reports the provisional outcome of a submission.
type SubmitResult struct {
	Hash          string
	EngineResult  string
	EngineMessage string
	Accepted      bool
}

// Options configures a client implementation.
type Options struct {
	// URL of the JSON-RPC endpoint, e.g. https://s.devnet.rippletest.net:51234.
	URL string
	// Timeout applied per RPC call when the caller's context has no
	// earlier deadline. Zero means no client-side timeout.
	Timeout time.Duration
}

var (
	// ErrMissingURL indicates no JSON-RPC endpoint was provided.
	ErrMissingURL = errors.New("ledger URL is required")
	// ErrAccountNotFound indicates the ledger does not know the account
	// (typically an unfunded address).
	ErrAccountNotFound = errors.New("account not found")
)

// dropsPerXRP is the ledger's minor-unit divisor.
var dropsPerXRP = decimal.New(1, 6)

// DropsToXRP converts a drops figure (string form) to XRP.
func DropsToXRP(drops string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(drops)
	if err != nil {
		return decimal.Decimal{}, err
	}
	return d.Shift(-6), nil
}

// XRPToDrops converts an XRP amount to the integral drops string the wire
// format expects. Sub-drop precision is truncated.
func XRPToDrops(amount decimal.Decimal) string {
	return amount.Mul(dropsPerXRP).Truncate(0).String()
}
