package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"taxflow/internal/domain"
	"taxflow/internal/service"
)

// APIHandlers exposes HTTP handlers for the REST API.
type APIHandlers struct {
	logger  *slog.Logger
	service *service.TaxService
}

// NewAPIHandlers constructs an APIHandlers instance.
func NewAPIHandlers(logger *slog.Logger, svc *service.TaxService) *APIHandlers {
	return &APIHandlers{
		logger:  logger,
		service: svc,
	}
}

func (h *APIHandlers) handleBalances(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}

	set := h.service.Balances(r.Context())
	response := make(map[string]float64, len(set.Balances))
	for party, balance := range set.Balances {
		response[party.String()] = balance.InexactFloat64()
	}
	respondJSON(w, http.StatusOK, response)
}

func (h *APIHandlers) handlePayTax(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}

	var payload payTaxRequest
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	receipt, err := h.service.PayTax(r.Context(), decimal.NewFromFloat(payload.Amount), payload.TaxPayerID)
	if err != nil {
		// Business failures keep the original API's 200 + success:false
		// contract so existing frontends can render the message.
		h.logger.Warn("tax payment failed", "error", err, "taxPayerId", payload.TaxPayerID)
		respondJSON(w, http.StatusOK, errorResponse{Success: false, Error: err.Error()})
		return
	}

	respondJSON(w, http.StatusOK, payTaxResponse{
		Success:    true,
		Message:    "Tax payment processed successfully",
		TaxPayerID: receipt.PayerID,
		Amount:     receipt.Amount.InexactFloat64(),
		TxHash:     receipt.Hash,
		SourceTag:  receipt.SourceTag,
	})
}

func (h *APIHandlers) handleTransfer(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}

	var payload transferRequest
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	receipt, err := h.service.Transfer(
		r.Context(),
		domain.Party(payload.Sender),
		domain.Party(payload.Receiver),
		decimal.NewFromFloat(payload.Amount),
	)
	if err != nil {
		h.logger.Warn("transfer failed", "error", err, "sender", payload.Sender, "receiver", payload.Receiver)
		respondJSON(w, http.StatusOK, errorResponse{Success: false, Error: err.Error()})
		return
	}

	respondJSON(w, http.StatusOK, transferResponse{
		Success:  true,
		Message:  "Transaction successful",
		TxHash:   receipt.Hash,
		Sender:   receipt.Sender.String(),
		Receiver: receipt.Receiver.String(),
		Amount:   receipt.Amount.InexactFloat64(),
	})
}

func (h *APIHandlers) handleTransactions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}

	feed := h.service.Transactions(r.Context())
	respondJSON(w, http.StatusOK, transactionsResponse{
		Success:         true,
		Transactions:    toTransactionResponses(feed.Transactions),
		RejectedRecords: feed.Rejected.Total(),
		DegradedParties: toPartyStrings(feed.Degraded),
	})
}

func (h *APIHandlers) handleWalletTransactions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}

	walletID := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/transactions/"), "/")
	if walletID == "" {
		writeError(w, http.StatusBadRequest, "wallet ID is required")
		return
	}

	feed, err := h.service.WalletTransactions(r.Context(), domain.Party(walletID))
	if err != nil {
		if errors.Is(err, service.ErrUnknownParty) {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid wallet ID: %s", walletID))
			return
		}
		h.logger.Error("failed to fetch wallet transactions", "error", err, "walletId", walletID)
		writeError(w, http.StatusInternalServerError, "failed to fetch wallet transactions")
		return
	}

	respondJSON(w, http.StatusOK, walletTransactionsResponse{
		Success:       true,
		WalletID:      walletID,
		WalletAddress: feed.Address,
		WalletBalance: feed.Balance.InexactFloat64(),
		Transactions:  toTransactionResponses(feed.Transactions),
	})
}

func (h *APIHandlers) handleHierarchy(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}

	deptID := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/department-hierarchy/"), "/")
	if deptID == "" {
		writeError(w, http.StatusBadRequest, "department ID is required")
		return
	}

	view, err := h.service.Hierarchy(r.Context(), domain.Party(deptID))
	if err != nil {
		if errors.Is(err, service.ErrUnknownParty) {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid department ID: %s", deptID))
			return
		}
		h.logger.Error("failed to build hierarchy", "error", err, "deptId", deptID)
		writeError(w, http.StatusInternalServerError, "could not build hierarchy")
		return
	}

	data := hierarchyData{
		Nodes:           make([]hierarchyNode, 0, len(view.Hierarchy.Nodes)),
		Links:           make([]hierarchyLink, 0, len(view.Hierarchy.Edges)),
		Transactions:    make(map[string]partyMetrics, len(view.Hierarchy.Metrics)),
		DegradedParties: toPartyStrings(view.Degraded),
	}
	for _, node := range view.Hierarchy.Nodes {
		data.Nodes = append(data.Nodes, hierarchyNode{
			ID:    node.Party.String(),
			Name:  displayName(node.Party),
			Level: node.Level,
		})
	}
	for _, edge := range view.Hierarchy.Edges {
		data.Links = append(data.Links, hierarchyLink{
			Source:       edge.Source.String(),
			Target:       edge.Target.String(),
			Value:        edge.TotalAmount.InexactFloat64(),
			Transactions: toTransactionResponses(edge.Transactions),
		})
	}
	for party, m := range view.Hierarchy.Metrics {
		data.Transactions[party.String()] = partyMetrics{
			TotalSent:            m.TotalSent.InexactFloat64(),
			TotalReceived:        m.TotalReceived.InexactFloat64(),
			Balance:              m.Balance.InexactFloat64(),
			TransactionCount:     m.TransactionCount,
			SentTransactions:     toTransactionResponses(m.Sent),
			ReceivedTransactions: toTransactionResponses(m.Received),
		}
	}

	respondJSON(w, http.StatusOK, hierarchyResponse{Success: true, Data: data})
}

func (h *APIHandlers) handleTransactionTree(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}

	tree := h.service.TransactionTree(r.Context())

	data := treeData{
		Root:  treeRoot{Name: "Transaction System"},
		Links: make([]treeLink, 0, len(tree.Links)),
	}
	for _, node := range tree.Nodes {
		data.Root.Children = append(data.Root.Children, treeNode{
			ID:            node.Party.String(),
			Name:          displayName(node.Party),
			Balance:       node.Balance.InexactFloat64(),
			TotalSent:     node.TotalSent.InexactFloat64(),
			TotalReceived: node.TotalReceived.InexactFloat64(),
		})
	}
	for _, link := range tree.Links {
		data.Links = append(data.Links, treeLink{
			Source:    link.Source.String(),
			Target:    link.Target.String(),
			Value:     link.Amount.InexactFloat64(),
			Timestamp: link.Timestamp,
			TxHash:    link.Hash,
		})
	}

	respondJSON(w, http.StatusOK, treeResponse{Success: true, Data: data})
}

// ---- request/response DTOs ----

type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

type payTaxRequest struct {
	Amount     float64 `json:"amount"`
	TaxPayerID string  `json:"tax_payer_id"`
}

type payTaxResponse struct {
	Success    bool    `json:"success"`
	Message    string  `json:"message"`
	TaxPayerID string  `json:"tax_payer_id"`
	Amount     float64 `json:"amount"`
	TxHash     string  `json:"tx_hash"`
	SourceTag  uint32  `json:"source_tag"`
}

type transferRequest struct {
	Sender   string  `json:"sender"`
	Receiver string  `json:"receiver"`
	Amount   float64 `json:"amount"`
}

type transferResponse struct {
	Success  bool    `json:"success"`
	Message  string  `json:"message"`
	TxHash   string  `json:"tx_hash"`
	Sender   string  `json:"sender"`
	Receiver string  `json:"receiver"`
	Amount   float64 `json:"amount"`
}

type transactionResponse struct {
	Type      string  `json:"type"`
	Sender    string  `json:"sender"`
	Receiver  string  `json:"receiver"`
	AmountXRP float64 `json:"amount_xrp"`
	Timestamp int64   `json:"timestamp"`
	TxHash    string  `json:"tx_hash"`
	Success   bool    `json:"success"`
}

type transactionsResponse struct {
	Success         bool                  `json:"success"`
	Transactions    []transactionResponse `json:"transactions"`
	RejectedRecords int                   `json:"rejected_records"`
	DegradedParties []string              `json:"degraded_parties,omitempty"`
}

type walletTransactionsResponse struct {
	Success       bool                  `json:"success"`
	WalletID      string                `json:"wallet_id"`
	WalletAddress string                `json:"wallet_address"`
	WalletBalance float64               `json:"wallet_balance"`
	Transactions  []transactionResponse `json:"transactions"`
}

type hierarchyNode struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Level int    `json:"level"` // -1 when unreached from the root
}

type hierarchyLink struct {
	Source       string                `json:"source"`
	Target       string                `json:"target"`
	Value        float64               `json:"value"`
	Transactions []transactionResponse `json:"transactions"`
}

type partyMetrics struct {
	TotalSent            float64               `json:"total_sent"`
	TotalReceived        float64               `json:"total_received"`
	Balance              float64               `json:"balance"`
	TransactionCount     int                   `json:"transaction_count"`
	SentTransactions     []transactionResponse `json:"sent_transactions"`
	ReceivedTransactions []transactionResponse `json:"received_transactions"`
}

type hierarchyData struct {
	Nodes           []hierarchyNode         `json:"nodes"`
	Links           []hierarchyLink         `json:"links"`
	Transactions    map[string]partyMetrics `json:"transactions"`
	DegradedParties []string                `json:"degraded_parties,omitempty"`
}

type hierarchyResponse struct {
	Success bool          `json:"success"`
	Data    hierarchyData `json:"data"`
}

type treeNode struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	Balance       float64 `json:"balance"`
	TotalSent     float64 `json:"totalSent"`
	TotalReceived float64 `json:"totalReceived"`
}

type treeRoot struct {
	Name     string     `json:"name"`
	Children []treeNode `json:"children"`
}

type treeLink struct {
	Source    string  `json:"source"`
	Target    string  `json:"target"`
	Value     float64 `json:"value"`
	Timestamp int64   `json:"timestamp"`
	TxHash    string  `json:"tx_hash"`
}

type treeData struct {
	Root  treeRoot   `json:"root"`
	Links []treeLink `json:"links"`
}

type treeResponse struct {
	Success bool     `json:"success"`
	Data    treeData `json:"data"`
}

// ---- helpers ----

func toTransactionResponses(txs []domain.Transaction) []transactionResponse {
	out := make([]transactionResponse, 0, len(txs))
	for _, tx := range txs {
		out = append(out, transactionResponse{
			Type:      string(tx.Kind),
			Sender:    tx.Sender.String(),
			Receiver:  tx.Receiver.String(),
			AmountXRP: tx.Amount.InexactFloat64(),
			Timestamp: tx.Timestamp,
			TxHash:    tx.Hash,
			Success:   tx.Success,
		})
	}
	return out
}

func toPartyStrings(parties []domain.Party) []string {
	if len(parties) == 0 {
		return nil
	}
	out := make([]string, 0, len(parties))
	for _, p := range parties {
		out = append(out, p.String())
	}
	return out
}

// displayName renders "penn_dept_labor" as "Penn Dept Labor".
func displayName(party domain.Party) string {
	words := strings.Split(party.String(), "_")
	for i, word := range words {
		if word == "" {
			continue
		}
		words[i] = strings.ToUpper(word[:1]) + word[1:]
	}
	return strings.Join(words, " ")
}

func decodeJSON(r *http.Request, out any) error {
	defer r.Body.Close()
	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(out); err != nil {
		return fmt.Errorf("invalid request payload: %w", err)
	}
	return nil
}

func writeError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, errorResponse{Success: false, Error: message})
}

func methodNotAllowed(w http.ResponseWriter, allowed ...string) {
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}
