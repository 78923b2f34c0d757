// Package service orchestrates the tax-distribution operations: read-side
// aggregation over fresh ledger queries and write-side payment submission.
// Nothing is cached between requests; every call re-derives its result.
package service

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"log/slog"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"taxflow/internal/domain"
	"taxflow/internal/flow"
	"taxflow/internal/wallet"
	"taxflow/internal/xrpl"
)

var (
	// ErrUnknownParty indicates a party id outside the configured registry.
	ErrUnknownParty = errors.New("unknown party")
	// ErrSameParty indicates a transfer with identical sender and receiver.
	ErrSameParty = errors.New("sender and receiver cannot be the same")
	// ErrInsufficientBalance indicates the sender cannot cover the amount.
	ErrInsufficientBalance = errors.New("insufficient balance")
	// ErrMissingSeed indicates the sending wallet has no signing seed
	// configured.
	ErrMissingSeed = errors.New("wallet has no signing seed configured")
	// ErrInvalidAmount indicates a zero or negative payment amount.
	ErrInvalidAmount = errors.New("amount must be positive")
)

// Options tunes the per-request ledger scans.
type Options struct {
	// TxFetchLimit caps account_tx entries fetched per party.
	TxFetchLimit int
	// FetchWorkers bounds the fan-out over parties.
	FetchWorkers int
	// PartyTimeout caps each per-party ledger call.
	PartyTimeout time.Duration
}

func (o Options) withDefaults() Options {
	if o.TxFetchLimit <= 0 {
		o.TxFetchLimit = 200
	}
	if o.FetchWorkers <= 0 {
		o.FetchWorkers = 4
	}
	if o.PartyTimeout <= 0 {
		o.PartyTimeout = 10 * time.Second
	}
	return o
}

// TaxService exposes the system's operations over an injected registry and
// ledger client. Safe for concurrent use; it holds no mutable state.
type TaxService struct {
	registry *wallet.Registry
	client   xrpl.Client
	logger   *slog.Logger
	opts     Options
}

// NewTaxService constructs a TaxService.
func NewTaxService(registry *wallet.Registry, client xrpl.Client, logger *slog.Logger, opts Options) *TaxService {
	return &TaxService{
		registry: registry,
		client:   client,
		logger:   logger,
		opts:     opts.withDefaults(),
	}
}

// BalanceSet maps every registered party to its current balance. Parties
// whose lookup failed are reported at zero and listed in Degraded.
type BalanceSet struct {
	Balances map[domain.Party]decimal.Decimal
	Degraded []domain.Party
}

// TransactionFeed is the flat, newest-first canonical transaction list.
type TransactionFeed struct {
	Transactions []domain.Transaction
	Rejected     flow.RejectReport
	Degraded     []domain.Party
}

// WalletFeed is the single-party transaction view.
type WalletFeed struct {
	Party        domain.Party
	Address      string
	Balance      decimal.Decimal
	Transactions []domain.Transaction
	Rejected     flow.RejectReport
}

// HierarchyView bundles the rooted hierarchy with the normalization and
// fetch degradation reports for the run that produced it.
type HierarchyView struct {
	Hierarchy domain.Hierarchy
	Rejected  flow.RejectReport
	Degraded  []domain.Party
}

// Receipt reports a submitted payment.
type Receipt struct {
	Hash      string
	Sender    domain.Party
	Receiver  domain.Party
	Amount    decimal.Decimal
	SourceTag uint32
	PayerID   string
}

// Balances queries the current balance of every registered party.
func (s *TaxService) Balances(ctx context.Context) BalanceSet {
	parties := s.registry.Parties()
	balances := make([]decimal.Decimal, len(parties))

	degraded := s.fanOut(ctx, parties, func(ctx context.Context, idx int, party domain.Party) error {
		address, _ := s.registry.AddressOf(party)
		info, err := s.client.AccountInfo(ctx, address)
		if err != nil {
			s.logger.Warn("balance lookup failed", "party", party, "error", err)
			return err
		}
		balances[idx] = info.Balance
		return nil
	})

	set := BalanceSet{
		Balances: make(map[domain.Party]decimal.Decimal, len(parties)),
		Degraded: degraded,
	}
	for idx, party := range parties {
		set.Balances[party] = balances[idx]
	}
	return set
}

// Transactions scans every registered party's history and returns the
// deduplicated canonical list, newest first.
func (s *TaxService) Transactions(ctx context.Context) TransactionFeed {
	records, degraded := s.fetchRecords(ctx, s.registry.Parties())

	txs, report := flow.Normalize(records, s.registry.ResolveParty)
	sortNewestFirst(txs)

	return TransactionFeed{
		Transactions: txs,
		Rejected:     report,
		Degraded:     degraded,
	}
}

// WalletTransactions returns the canonical history and balance of a single
// party.
func (s *TaxService) WalletTransactions(ctx context.Context, party domain.Party) (WalletFeed, error) {
	address, ok := s.registry.AddressOf(party)
	if !ok {
		return WalletFeed{}, fmt.Errorf("%w: %s", ErrUnknownParty, party)
	}

	records, err := s.client.AccountTransactions(ctx, address, s.opts.TxFetchLimit)
	if err != nil {
		return WalletFeed{}, fmt.Errorf("fetch history for %s: %w", party, err)
	}

	txs, report := flow.Normalize(records, s.registry.ResolveParty)
	sortNewestFirst(txs)

	feed := WalletFeed{
		Party:        party,
		Address:      address,
		Transactions: txs,
		Rejected:     report,
	}

	info, err := s.client.AccountInfo(ctx, address)
	if err != nil {
		s.logger.Warn("balance lookup failed", "party", party, "error", err)
	} else {
		feed.Balance = info.Balance
	}
	return feed, nil
}

// Hierarchy builds the rooted flow hierarchy: full scan, normalize,
// aggregate, then level assignment and per-party metrics.
func (s *TaxService) Hierarchy(ctx context.Context, root domain.Party) (HierarchyView, error) {
	if !s.registry.Has(root) {
		return HierarchyView{}, fmt.Errorf("%w: %s", ErrUnknownParty, root)
	}

	parties := s.registry.Parties()
	records, degraded := s.fetchRecords(ctx, parties)

	txs, report := flow.Normalize(records, s.registry.ResolveParty)
	// Oldest first, so edge members and edge order follow the actual flow.
	sort.SliceStable(txs, func(i, j int) bool {
		return txs[i].Timestamp < txs[j].Timestamp
	})

	edges := flow.Aggregate(txs)

	hierarchy, err := flow.BuildHierarchy(root, parties, edges, txs, func(party domain.Party) (decimal.Decimal, error) {
		address, _ := s.registry.AddressOf(party)
		info, err := s.client.AccountInfo(ctx, address)
		if err != nil {
			return decimal.Decimal{}, err
		}
		return info.Balance, nil
	})
	if err != nil {
		return HierarchyView{}, err
	}
	for _, party := range hierarchy.FailedBalances {
		s.logger.Warn("hierarchy balance lookup failed", "party", party)
	}

	return HierarchyView{
		Hierarchy: hierarchy,
		Rejected:  report,
		Degraded:  degraded,
	}, nil
}

// TransactionTree returns the system-wide nodes-plus-links payload: every
// party with balance and totals, and one link per canonical transaction.
func (s *TaxService) TransactionTree(ctx context.Context) domain.TransactionTree {
	balances := s.Balances(ctx)
	feed := s.Transactions(ctx)

	totalsSent := make(map[domain.Party]decimal.Decimal)
	totalsReceived := make(map[domain.Party]decimal.Decimal)
	links := make([]domain.TreeLink, 0, len(feed.Transactions))
	for _, tx := range feed.Transactions {
		totalsSent[tx.Sender] = totalsSent[tx.Sender].Add(tx.Amount)
		totalsReceived[tx.Receiver] = totalsReceived[tx.Receiver].Add(tx.Amount)
		links = append(links, domain.TreeLink{
			Source:    tx.Sender,
			Target:    tx.Receiver,
			Amount:    tx.Amount,
			Timestamp: tx.Timestamp,
			Hash:      tx.Hash,
		})
	}

	parties := s.registry.Parties()
	nodes := make([]domain.TreeNode, 0, len(parties))
	for _, party := range parties {
		nodes = append(nodes, domain.TreeNode{
			Party:         party,
			Balance:       balances.Balances[party],
			TotalSent:     totalsSent[party],
			TotalReceived: totalsReceived[party],
		})
	}

	return domain.TransactionTree{Nodes: nodes, Links: links}
}

// PayTax moves amount from the tax pool to the government wallet, tagging
// the payment with a 32-bit digest of the payer id so the flow view can
// classify it later.
func (s *TaxService) PayTax(ctx context.Context, amount decimal.Decimal, payerID string) (Receipt, error) {
	if !amount.IsPositive() {
		return Receipt{}, ErrInvalidAmount
	}
	if payerID == "" {
		return Receipt{}, fmt.Errorf("tax payer id is required")
	}

	tag := PayerTag(payerID)
	receipt, err := s.submit(ctx, domain.PartyTaxPool, domain.PartyGovernment, amount, tag)
	if err != nil {
		return Receipt{}, err
	}
	receipt.PayerID = payerID
	return receipt, nil
}

// Transfer moves amount between any two distinct registered parties.
func (s *TaxService) Transfer(ctx context.Context, sender, receiver domain.Party, amount decimal.Decimal) (Receipt, error) {
	if !amount.IsPositive() {
		return Receipt{}, ErrInvalidAmount
	}
	if !s.registry.Has(sender) {
		return Receipt{}, fmt.Errorf("%w: invalid sender %s", ErrUnknownParty, sender)
	}
	if !s.registry.Has(receiver) {
		return Receipt{}, fmt.Errorf("%w: invalid receiver %s", ErrUnknownParty, receiver)
	}
	if sender == receiver {
		return Receipt{}, ErrSameParty
	}
	return s.submit(ctx, sender, receiver, amount, 0)
}

func (s *TaxService) submit(ctx context.Context, sender, receiver domain.Party, amount decimal.Decimal, tag uint32) (Receipt, error) {
	senderAddr, ok := s.registry.AddressOf(sender)
	if !ok {
		return Receipt{}, fmt.Errorf("%w: %s", ErrUnknownParty, sender)
	}
	receiverAddr, ok := s.registry.AddressOf(receiver)
	if !ok {
		return Receipt{}, fmt.Errorf("%w: %s", ErrUnknownParty, receiver)
	}

	info, err := s.client.AccountInfo(ctx, senderAddr)
	if err != nil {
		return Receipt{}, fmt.Errorf("check balance of %s: %w", sender, err)
	}
	if info.Balance.LessThan(amount) {
		return Receipt{}, fmt.Errorf("%w: %s has %s XRP", ErrInsufficientBalance, sender, info.Balance)
	}

	seed, ok := s.registry.SeedOf(sender)
	if !ok {
		return Receipt{}, fmt.Errorf("%w: %s", ErrMissingSeed, sender)
	}

	result, err := s.client.SubmitPayment(ctx, xrpl.Payment{
		Account:     senderAddr,
		Destination: receiverAddr,
		Amount:      amount,
		SourceTag:   tag,
		Seed:        seed,
	})
	if err != nil {
		return Receipt{}, fmt.Errorf("submit payment %s -> %s: %w", sender, receiver, err)
	}
	if !result.Accepted {
		msg := result.EngineMessage
		if msg == "" {
			msg = result.EngineResult
		}
		return Receipt{}, fmt.Errorf("payment %s -> %s rejected: %s", sender, receiver, msg)
	}
	if result.Hash == "" {
		return Receipt{}, fmt.Errorf("payment %s -> %s accepted but no hash returned", sender, receiver)
	}

	s.logger.Info("payment submitted",
		"sender", sender,
		"receiver", receiver,
		"amount", amount.String(),
		"hash", result.Hash,
	)

	return Receipt{
		Hash:      result.Hash,
		Sender:    sender,
		Receiver:  receiver,
		Amount:    amount,
		SourceTag: tag,
	}, nil
}

// fetchRecords fans out account_tx over the given parties. Failed parties
// contribute an empty set and are returned as degraded.
func (s *TaxService) fetchRecords(ctx context.Context, parties []domain.Party) ([]xrpl.TransactionRecord, []domain.Party) {
	perParty := make([][]xrpl.TransactionRecord, len(parties))

	degraded := s.fanOut(ctx, parties, func(ctx context.Context, idx int, party domain.Party) error {
		address, _ := s.registry.AddressOf(party)
		records, err := s.client.AccountTransactions(ctx, address, s.opts.TxFetchLimit)
		if err != nil {
			s.logger.Warn("history fetch failed", "party", party, "error", err)
			return err
		}
		perParty[idx] = records
		return nil
	})

	var flattened []xrpl.TransactionRecord
	for _, records := range perParty {
		flattened = append(flattened, records...)
	}
	return flattened, degraded
}

func (s *TaxService) fanOut(ctx context.Context, parties []domain.Party, fn func(ctx context.Context, idx int, party domain.Party) error) []domain.Party {
	timeout := func(ctx context.Context) (context.Context, context.CancelFunc) {
		return context.WithTimeout(ctx, s.opts.PartyTimeout)
	}
	return forEachParty(ctx, parties, s.opts.FetchWorkers, timeout, fn)
}

// PayerTag derives the 32-bit source tag for a payer id. FNV-1a is not
// collision-free; the tag classifies flows, it does not identify payers.
func PayerTag(payerID string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(payerID))
	return h.Sum32()
}

func sortNewestFirst(txs []domain.Transaction) {
	sort.SliceStable(txs, func(i, j int) bool {
		return txs[i].Timestamp > txs[j].Timestamp
	})
}
