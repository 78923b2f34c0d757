package xrpl

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// NewHTTPClient builds a Client speaking the XRPL JSON-RPC protocol: one
// POST per call with a {"method", "params": [{...}]} body.
func NewHTTPClient(opts Options) (Client, error) {
	if opts.URL == "" {
		return nil, ErrMissingURL
	}
	return &httpClient{
		url:  opts.URL,
		http: &http.Client{Timeout: opts.Timeout},
	}, nil
}

type httpClient struct {
	url  string
	http *http.Client
}

type rpcRequest struct {
	Method string `json:"method"`
	Params []any  `json:"params,omitempty"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
}

type rpcStatus struct {
	Status       string `json:"status"`
	Error        string `json:"error"`
	ErrorMessage string `json:"error_message"`
}

func (c *httpClient) call(ctx context.Context, method string, params any, out any) error {
	var body rpcRequest
	body.Method = method
	if params != nil {
		body.Params = []any{params}
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode %s request: %w", method, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build %s request: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("call %s: %w", method, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("call %s: unexpected status %d", method, resp.StatusCode)
	}

	var envelope rpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return fmt.Errorf("decode %s response: %w", method, err)
	}
	if len(envelope.Result) == 0 {
		return fmt.Errorf("call %s: empty result", method)
	}

	var status rpcStatus
	if err := json.Unmarshal(envelope.Result, &status); err != nil {
		return fmt.Errorf("decode %s status: %w", method, err)
	}
	if status.Status == "error" || status.Error != "" {
		if status.Error == "actNotFound" {
			return ErrAccountNotFound
		}
		msg := status.ErrorMessage
		if msg == "" {
			msg = status.Error
		}
		return fmt.Errorf("%s failed: %s", method, msg)
	}

	if out != nil {
		if err := json.Unmarshal(envelope.Result, out); err != nil {
			return fmt.Errorf("decode %s result: %w", method, err)
		}
	}
	return nil
}

func (c *httpClient) AccountInfo(ctx context.Context, address string) (AccountData, error) {
	params := map[string]any{
		"account":      address,
		"ledger_index": "validated",
	}

	var result struct {
		AccountData struct {
			Account  string `json:"Account"`
			Balance  string `json:"Balance"`
			Sequence uint32 `json:"Sequence"`
		} `json:"account_data"`
	}
	if err := c.call(ctx, "account_info", params, &result); err != nil {
		return AccountData{}, err
	}
	if result.AccountData.Account == "" {
		return AccountData{}, fmt.Errorf("account_info for %s: missing account_data", address)
	}

	balance, err := DropsToXRP(result.AccountData.Balance)
	if err != nil {
		return AccountData{}, fmt.Errorf("account_info for %s: bad balance %q: %w", address, result.AccountData.Balance, err)
	}

	return AccountData{
		Address:  result.AccountData.Account,
		Balance:  balance,
		Sequence: result.AccountData.Sequence,
	}, nil
}

func (c *httpClient) AccountTransactions(ctx context.Context, address string, limit int) ([]TransactionRecord, error) {
	params := map[string]any{
		"account":          address,
		"ledger_index_min": -1,
		"ledger_index_max": -1,
	}
	if limit > 0 {
		params["limit"] = limit
	}

	var result struct {
		Transactions []TransactionRecord `json:"transactions"`
	}
	if err := c.call(ctx, "account_tx", params, &result); err != nil {
		return nil, err
	}
	return result.Transactions, nil
}

func (c *httpClient) SubmitPayment(ctx context.Context, p Payment) (SubmitResult, error) {
	if p.Seed == "" {
		return SubmitResult{}, fmt.Errorf("submit payment: missing signing seed for %s", p.Account)
	}

	txJSON := map[string]any{
		"TransactionType": "Payment",
		"Account":         p.Account,
		"Destination":     p.Destination,
		"Amount":          XRPToDrops(p.Amount),
	}
	if p.SourceTag != 0 {
		txJSON["SourceTag"] = p.SourceTag
	}
	params := map[string]any{
		"secret":  p.Seed,
		"tx_json": txJSON,
	}

	var result struct {
		EngineResult        string `json:"engine_result"`
		EngineResultMessage string `json:"engine_result_message"`
		Accepted            bool   `json:"accepted"`
		Applied             bool   `json:"applied"`
		TxJSON              struct {
			Hash string `json:"hash"`
		} `json:"tx_json"`
	}
	if err := c.call(ctx, "submit", params, &result); err != nil {
		return SubmitResult{}, err
	}

	return SubmitResult{
		Hash:          result.TxJSON.Hash,
		EngineResult:  result.EngineResult,
		EngineMessage: result.EngineResultMessage,
		Accepted:      result.EngineResult == "tesSUCCESS" && (result.Accepted || result.Applied),
	}, nil
}

func (c *httpClient) Ping(ctx context.Context) error {
	return c.call(ctx, "ping", nil, nil)
}

func (c *httpClient) Close() error {
	c.http.CloseIdleConnections()
	return nil
}
