package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/shopspring/decimal"

	"taxflow/internal/domain"
	"taxflow/internal/wallet"
	"taxflow/internal/xrpl"
)

func newTestService(t *testing.T) (*TaxService, *xrpl.MemoryClient) {
	t.Helper()

	registry, err := wallet.NewRegistry([]wallet.Credential{
		{Party: domain.PartyTaxPool, Address: "rPOOL", Seed: "sPOOL"},
		{Party: domain.PartyGovernment, Address: "rGOV", Seed: "sGOV"},
		{Party: "dept_labor", Address: "rLABOR"},
		{Party: "dept_transport", Address: "rTRANS", Seed: "sTRANS"},
	})
	if err != nil {
		t.Fatalf("build registry: %v", err)
	}

	client := xrpl.NewMemoryClient()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewTaxService(registry, client, logger, Options{}), client
}

func paymentRecord(hash, sender, receiver, drops string, date float64) xrpl.TransactionRecord {
	return xrpl.TransactionRecord{
		"tx_json": map[string]any{
			"hash":            hash,
			"TransactionType": "Payment",
			"Account":         sender,
			"Destination":     receiver,
			"Amount":          drops,
			"date":            date,
		},
		"meta": map[string]any{
			"TransactionResult": "tesSUCCESS",
		},
	}
}

func mustDecimal(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("bad decimal %q: %v", s, err)
	}
	return d
}

func TestBalancesDegradesFailedLookups(t *testing.T) {
	svc, client := newTestService(t)
	client.SetBalance("rPOOL", mustDecimal(t, "1000"))
	client.SetBalance("rGOV", mustDecimal(t, "250.5"))
	client.SetBalance("rTRANS", mustDecimal(t, "10"))
	client.FailBalance("rLABOR", errors.New("upstream unavailable"))

	set := svc.Balances(context.Background())

	if got := set.Balances[domain.PartyTaxPool]; !got.Equal(mustDecimal(t, "1000")) {
		t.Fatalf("tax pool balance = %s, want 1000", got)
	}
	if got := set.Balances["dept_labor"]; !got.IsZero() {
		t.Fatalf("failed lookup should report zero, got %s", got)
	}
	if len(set.Degraded) != 1 || set.Degraded[0] != "dept_labor" {
		t.Fatalf("degraded = %v, want [dept_labor]", set.Degraded)
	}
}

func TestTransactionsDedupAndOrder(t *testing.T) {
	svc, client := newTestService(t)
	shared := paymentRecord("H1", "rPOOL", "rGOV", "100000000", 100)
	client.SetRecords("rPOOL", []xrpl.TransactionRecord{shared})
	client.SetRecords("rGOV", []xrpl.TransactionRecord{
		shared, // same transaction seen from the other side
		paymentRecord("H2", "rGOV", "rLABOR", "40000000", 300),
		paymentRecord("H3", "rGOV", "rTRANS", "60000000", 200),
	})

	feed := svc.Transactions(context.Background())

	if len(feed.Transactions) != 3 {
		t.Fatalf("got %d transactions, want 3", len(feed.Transactions))
	}
	if feed.Rejected.Duplicate != 1 {
		t.Fatalf("duplicate count = %d, want 1", feed.Rejected.Duplicate)
	}
	// Newest first.
	if feed.Transactions[0].Hash != "H2" || feed.Transactions[1].Hash != "H3" || feed.Transactions[2].Hash != "H1" {
		t.Fatalf("unexpected order: %s %s %s",
			feed.Transactions[0].Hash, feed.Transactions[1].Hash, feed.Transactions[2].Hash)
	}
	if len(feed.Degraded) != 0 {
		t.Fatalf("unexpected degraded parties: %v", feed.Degraded)
	}
}

func TestTransactionsDegradedParty(t *testing.T) {
	svc, client := newTestService(t)
	client.SetRecords("rPOOL", []xrpl.TransactionRecord{
		paymentRecord("H1", "rPOOL", "rGOV", "100000000", 100),
	})
	client.FailRecords("rLABOR", errors.New("timeout"))

	feed := svc.Transactions(context.Background())

	if len(feed.Transactions) != 1 {
		t.Fatalf("got %d transactions, want 1", len(feed.Transactions))
	}
	if len(feed.Degraded) != 1 || feed.Degraded[0] != "dept_labor" {
		t.Fatalf("degraded = %v, want [dept_labor]", feed.Degraded)
	}
}

func TestWalletTransactionsUnknownParty(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.WalletTransactions(context.Background(), "nobody")
	if !errors.Is(err, ErrUnknownParty) {
		t.Fatalf("err = %v, want ErrUnknownParty", err)
	}
}

func TestWalletTransactions(t *testing.T) {
	svc, client := newTestService(t)
	client.SetBalance("rGOV", mustDecimal(t, "500"))
	client.SetRecords("rGOV", []xrpl.TransactionRecord{
		paymentRecord("H1", "rPOOL", "rGOV", "100000000", 100),
	})

	feed, err := svc.WalletTransactions(context.Background(), domain.PartyGovernment)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if feed.Address != "rGOV" {
		t.Fatalf("address = %s, want rGOV", feed.Address)
	}
	if !feed.Balance.Equal(mustDecimal(t, "500")) {
		t.Fatalf("balance = %s, want 500", feed.Balance)
	}
	if len(feed.Transactions) != 1 || feed.Transactions[0].Hash != "H1" {
		t.Fatalf("unexpected feed: %+v", feed.Transactions)
	}
}

func TestHierarchyLevelsAndMetrics(t *testing.T) {
	svc, client := newTestService(t)
	client.SetRecords("rPOOL", []xrpl.TransactionRecord{
		paymentRecord("H1", "rPOOL", "rGOV", "100000000", 1),
	})
	client.SetRecords("rGOV", []xrpl.TransactionRecord{
		paymentRecord("H2", "rGOV", "rLABOR", "40000000", 2),
		paymentRecord("H3", "rGOV", "rTRANS", "60000000", 3),
	})
	for _, addr := range []string{"rPOOL", "rGOV", "rLABOR", "rTRANS"} {
		client.SetBalance(addr, mustDecimal(t, "10"))
	}

	view, err := svc.Hierarchy(context.Background(), domain.PartyGovernment)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	levels := make(map[domain.Party]int)
	for _, node := range view.Hierarchy.Nodes {
		levels[node.Party] = node.Level
	}
	want := map[domain.Party]int{
		domain.PartyGovernment: 0,
		"dept_labor":           1,
		"dept_transport":       1,
		domain.PartyTaxPool:    domain.LevelUnreached,
	}
	for party, level := range want {
		if levels[party] != level {
			t.Fatalf("level(%s) = %d, want %d", party, levels[party], level)
		}
	}

	gov := view.Hierarchy.Metrics[domain.PartyGovernment]
	if !gov.TotalSent.Equal(mustDecimal(t, "100")) || !gov.TotalReceived.Equal(mustDecimal(t, "100")) {
		t.Fatalf("government metrics: sent %s received %s, want 100/100", gov.TotalSent, gov.TotalReceived)
	}
	if !gov.Balance.Equal(mustDecimal(t, "10")) {
		t.Fatalf("government balance = %s, want 10", gov.Balance)
	}
}

func TestHierarchyUnknownRoot(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.Hierarchy(context.Background(), "nobody")
	if !errors.Is(err, ErrUnknownParty) {
		t.Fatalf("err = %v, want ErrUnknownParty", err)
	}
}

func TestPayTaxInsufficientBalance(t *testing.T) {
	svc, client := newTestService(t)
	client.SetBalance("rPOOL", mustDecimal(t, "10"))

	_, err := svc.PayTax(context.Background(), mustDecimal(t, "50"), "payer-1")
	if !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("err = %v, want ErrInsufficientBalance", err)
	}
	if len(client.Submitted()) != 0 {
		t.Fatal("no payment should have been submitted")
	}
}

func TestPayTaxSubmitsTaggedPayment(t *testing.T) {
	svc, client := newTestService(t)
	client.SetBalance("rPOOL", mustDecimal(t, "1000"))

	receipt, err := svc.PayTax(context.Background(), mustDecimal(t, "50"), "payer-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if receipt.Hash == "" {
		t.Fatal("receipt is missing the transaction hash")
	}
	if receipt.SourceTag != PayerTag("payer-1") {
		t.Fatalf("source tag = %d, want %d", receipt.SourceTag, PayerTag("payer-1"))
	}

	submitted := client.Submitted()
	if len(submitted) != 1 {
		t.Fatalf("submitted %d payments, want 1", len(submitted))
	}
	p := submitted[0]
	if p.Account != "rPOOL" || p.Destination != "rGOV" {
		t.Fatalf("payment route %s -> %s, want rPOOL -> rGOV", p.Account, p.Destination)
	}
	if p.SourceTag == 0 {
		t.Fatal("tax payment must carry a source tag")
	}
	if !p.Amount.Equal(mustDecimal(t, "50")) {
		t.Fatalf("payment amount = %s, want 50", p.Amount)
	}
}

func TestPayTaxValidation(t *testing.T) {
	svc, _ := newTestService(t)

	if _, err := svc.PayTax(context.Background(), mustDecimal(t, "0"), "payer-1"); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("zero amount: err = %v, want ErrInvalidAmount", err)
	}
	if _, err := svc.PayTax(context.Background(), mustDecimal(t, "5"), ""); err == nil {
		t.Fatal("empty payer id should be rejected")
	}
}

func TestTransferValidation(t *testing.T) {
	svc, client := newTestService(t)
	client.SetBalance("rGOV", mustDecimal(t, "100"))

	ctx := context.Background()
	amount := mustDecimal(t, "5")

	if _, err := svc.Transfer(ctx, "nobody", domain.PartyGovernment, amount); !errors.Is(err, ErrUnknownParty) {
		t.Fatalf("unknown sender: err = %v", err)
	}
	if _, err := svc.Transfer(ctx, domain.PartyGovernment, "nobody", amount); !errors.Is(err, ErrUnknownParty) {
		t.Fatalf("unknown receiver: err = %v", err)
	}
	if _, err := svc.Transfer(ctx, domain.PartyGovernment, domain.PartyGovernment, amount); !errors.Is(err, ErrSameParty) {
		t.Fatalf("same party: err = %v", err)
	}
	if _, err := svc.Transfer(ctx, domain.PartyGovernment, "dept_labor", mustDecimal(t, "-1")); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("negative amount: err = %v", err)
	}
}

func TestTransferMissingSeed(t *testing.T) {
	svc, client := newTestService(t)
	client.SetBalance("rLABOR", mustDecimal(t, "100"))

	_, err := svc.Transfer(context.Background(), "dept_labor", domain.PartyGovernment, mustDecimal(t, "5"))
	if !errors.Is(err, ErrMissingSeed) {
		t.Fatalf("err = %v, want ErrMissingSeed", err)
	}
}

func TestTransferSuccess(t *testing.T) {
	svc, client := newTestService(t)
	client.SetBalance("rGOV", mustDecimal(t, "100"))

	receipt, err := svc.Transfer(context.Background(), domain.PartyGovernment, "dept_labor", mustDecimal(t, "25"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if receipt.Sender != domain.PartyGovernment || receipt.Receiver != "dept_labor" {
		t.Fatalf("unexpected receipt: %+v", receipt)
	}
	if receipt.SourceTag != 0 {
		t.Fatal("plain transfers must not carry a source tag")
	}

	submitted := client.Submitted()
	if len(submitted) != 1 || submitted[0].Seed != "sGOV" {
		t.Fatalf("expected one payment signed with sGOV, got %+v", submitted)
	}
}

func TestTransferRejectedByEngine(t *testing.T) {
	svc, client := newTestService(t)
	client.SetBalance("rGOV", mustDecimal(t, "100"))
	client.PushSubmitResult(xrpl.SubmitResult{
		EngineResult:  "tecUNFUNDED_PAYMENT",
		EngineMessage: "Insufficient XRP balance to send.",
		Accepted:      false,
	})

	_, err := svc.Transfer(context.Background(), domain.PartyGovernment, "dept_labor", mustDecimal(t, "25"))
	if err == nil {
		t.Fatal("engine rejection should surface as an error")
	}
}

func TestTransactionTreeTotals(t *testing.T) {
	svc, client := newTestService(t)
	client.SetRecords("rPOOL", []xrpl.TransactionRecord{
		paymentRecord("H1", "rPOOL", "rGOV", "100000000", 1),
	})
	client.SetRecords("rGOV", []xrpl.TransactionRecord{
		paymentRecord("H2", "rGOV", "rLABOR", "40000000", 2),
	})
	for _, addr := range []string{"rPOOL", "rGOV", "rLABOR", "rTRANS"} {
		client.SetBalance(addr, mustDecimal(t, "1"))
	}

	tree := svc.TransactionTree(context.Background())

	if len(tree.Nodes) != 4 {
		t.Fatalf("got %d nodes, want 4", len(tree.Nodes))
	}
	if len(tree.Links) != 2 {
		t.Fatalf("got %d links, want 2", len(tree.Links))
	}

	byParty := make(map[domain.Party]domain.TreeNode)
	for _, node := range tree.Nodes {
		byParty[node.Party] = node
	}
	gov := byParty[domain.PartyGovernment]
	if !gov.TotalSent.Equal(mustDecimal(t, "40")) || !gov.TotalReceived.Equal(mustDecimal(t, "100")) {
		t.Fatalf("government totals: sent %s received %s", gov.TotalSent, gov.TotalReceived)
	}
}

func TestPayerTagDeterministic(t *testing.T) {
	if PayerTag("acme") != PayerTag("acme") {
		t.Fatal("tag must be deterministic")
	}
	if PayerTag("acme") == PayerTag("acme-2") {
		t.Fatal("distinct payers should normally get distinct tags")
	}
	if PayerTag("acme") == 0 {
		t.Fatal("tag must be non-zero so the payment classifies as a tax payment")
	}
}
