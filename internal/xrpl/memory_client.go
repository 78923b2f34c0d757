package xrpl

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"
)

// MemoryClient is an in-memory Client used to test the layers above the
// ledger without a running endpoint. Results are canned per address; calls
// are recorded for assertions.
type MemoryClient struct {
	mu           sync.Mutex
	balances     map[string]decimal.Decimal
	records      map[string][]TransactionRecord
	balanceErrs  map[string]error
	recordErrs   map[string]error
	submitted    []Payment
	submitQueue  []SubmitResult
	submitErr    error
	pingErr      error
	infoCalls    []string
	historyCalls []string
}

// NewMemoryClient instantiates an empty in-memory client.
func NewMemoryClient() *MemoryClient {
	return &MemoryClient{
		balances:    map[string]decimal.Decimal{},
		records:     map[string][]TransactionRecord{},
		balanceErrs: map[string]error{},
		recordErrs:  map[string]error{},
	}
}

// SetBalance cans the validated balance for an address.
func (m *MemoryClient) SetBalance(address string, balance decimal.Decimal) *MemoryClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.balances[address] = balance
	return m
}

// SetRecords cans the account_tx history for an address.
func (m *MemoryClient) SetRecords(address string, records []TransactionRecord) *MemoryClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[address] = records
	return m
}

// FailBalance forces AccountInfo for the address to return err.
func (m *MemoryClient) FailBalance(address string, err error) *MemoryClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.balanceErrs[address] = err
	return m
}

// FailRecords forces AccountTransactions for the address to return err.
func (m *MemoryClient) FailRecords(address string, err error) *MemoryClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recordErrs[address] = err
	return m
}

// PushSubmitResult appends a result returned by the next SubmitPayment call.
func (m *MemoryClient) PushSubmitResult(res SubmitResult) *MemoryClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.submitQueue = append(m.submitQueue, res)
	return m
}

// WithSubmitError forces SubmitPayment to return err.
func (m *MemoryClient) WithSubmitError(err error) *MemoryClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.submitErr = err
	return m
}

// WithPingError forces Ping to return err.
func (m *MemoryClient) WithPingError(err error) *MemoryClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pingErr = err
	return m
}

// Submitted returns a copy of every payment passed to SubmitPayment.
func (m *MemoryClient) Submitted() []Payment {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Payment, len(m.submitted))
	copy(out, m.submitted)
	return out
}

// HistoryCalls returns the addresses AccountTransactions was called with.
func (m *MemoryClient) HistoryCalls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.historyCalls))
	copy(out, m.historyCalls)
	return out
}

func (m *MemoryClient) AccountInfo(_ context.Context, address string) (AccountData, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.infoCalls = append(m.infoCalls, address)
	if err := m.balanceErrs[address]; err != nil {
		return AccountData{}, err
	}
	balance, ok := m.balances[address]
	if !ok {
		return AccountData{}, ErrAccountNotFound
	}
	return AccountData{Address: address, Balance: balance}, nil
}

func (m *MemoryClient) AccountTransactions(_ context.Context, address string, _ int) ([]TransactionRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.historyCalls = append(m.historyCalls, address)
	if err := m.recordErrs[address]; err != nil {
		return nil, err
	}
	return m.records[address], nil
}

func (m *MemoryClient) SubmitPayment(_ context.Context, p Payment) (SubmitResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.submitErr != nil {
		return SubmitResult{}, m.submitErr
	}
	m.submitted = append(m.submitted, p)

	if len(m.submitQueue) == 0 {
		return SubmitResult{Hash: "MEMHASH", EngineResult: "tesSUCCESS", Accepted: true}, nil
	}
	res := m.submitQueue[0]
	m.submitQueue = m.submitQueue[1:]
	return res, nil
}

func (m *MemoryClient) Ping(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pingErr
}

func (m *MemoryClient) Close() error { return nil }
