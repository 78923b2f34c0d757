package xrpl

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// rpcServer records the last JSON-RPC call and replies with canned results
// keyed by method.
func rpcServer(t *testing.T, results map[string]any, lastCall *rpcRequest) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)

		var req rpcRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		if lastCall != nil {
			*lastCall = req
		}

		result, ok := results[req.Method]
		require.True(t, ok, "unexpected method %q", req.Method)
		require.NoError(t, json.NewEncoder(w).Encode(map[string]any{"result": result}))
	}))
}

func TestNewHTTPClientRequiresURL(t *testing.T) {
	_, err := NewHTTPClient(Options{})
	assert.ErrorIs(t, err, ErrMissingURL)
}

func TestAccountInfo(t *testing.T) {
	var last rpcRequest
	srv := rpcServer(t, map[string]any{
		"account_info": map[string]any{
			"status": "success",
			"account_data": map[string]any{
				"Account":  "rADDR",
				"Balance":  "2500000",
				"Sequence": 7,
			},
		},
	}, &last)
	defer srv.Close()

	client, err := NewHTTPClient(Options{URL: srv.URL})
	require.NoError(t, err)

	info, err := client.AccountInfo(context.Background(), "rADDR")
	require.NoError(t, err)
	assert.Equal(t, "rADDR", info.Address)
	assert.True(t, info.Balance.Equal(decimal.RequireFromString("2.5")), "got %s", info.Balance)
	assert.Equal(t, uint32(7), info.Sequence)

	require.Len(t, last.Params, 1)
	params := last.Params[0].(map[string]any)
	assert.Equal(t, "rADDR", params["account"])
	assert.Equal(t, "validated", params["ledger_index"])
}

func TestAccountInfoNotFound(t *testing.T) {
	srv := rpcServer(t, map[string]any{
		"account_info": map[string]any{
			"status":        "error",
			"error":         "actNotFound",
			"error_message": "Account not found.",
		},
	}, nil)
	defer srv.Close()

	client, err := NewHTTPClient(Options{URL: srv.URL})
	require.NoError(t, err)

	_, err = client.AccountInfo(context.Background(), "rNOBODY")
	assert.ErrorIs(t, err, ErrAccountNotFound)
}

func TestAccountTransactions(t *testing.T) {
	var last rpcRequest
	srv := rpcServer(t, map[string]any{
		"account_tx": map[string]any{
			"status": "success",
			"transactions": []map[string]any{
				{"hash": "H1", "tx_json": map[string]any{"TransactionType": "Payment"}},
				{"hash": "H2"},
			},
		},
	}, &last)
	defer srv.Close()

	client, err := NewHTTPClient(Options{URL: srv.URL})
	require.NoError(t, err)

	records, err := client.AccountTransactions(context.Background(), "rADDR", 200)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "H1", records[0]["hash"])

	params := last.Params[0].(map[string]any)
	assert.Equal(t, float64(200), params["limit"])
	assert.Equal(t, float64(-1), params["ledger_index_min"])
	assert.Equal(t, float64(-1), params["ledger_index_max"])
}

func TestSubmitPayment(t *testing.T) {
	var last rpcRequest
	srv := rpcServer(t, map[string]any{
		"submit": map[string]any{
			"status":                "success",
			"engine_result":         "tesSUCCESS",
			"engine_result_message": "The transaction was applied.",
			"accepted":              true,
			"tx_json":               map[string]any{"hash": "ABCDEF"},
		},
	}, &last)
	defer srv.Close()

	client, err := NewHTTPClient(Options{URL: srv.URL})
	require.NoError(t, err)

	result, err := client.SubmitPayment(context.Background(), Payment{
		Account:     "rFROM",
		Destination: "rTO",
		Amount:      decimal.RequireFromString("12.5"),
		SourceTag:   99,
		Seed:        "sSEED",
	})
	require.NoError(t, err)
	assert.True(t, result.Accepted)
	assert.Equal(t, "ABCDEF", result.Hash)

	params := last.Params[0].(map[string]any)
	assert.Equal(t, "sSEED", params["secret"])
	txJSON := params["tx_json"].(map[string]any)
	assert.Equal(t, "Payment", txJSON["TransactionType"])
	assert.Equal(t, "rFROM", txJSON["Account"])
	assert.Equal(t, "rTO", txJSON["Destination"])
	assert.Equal(t, "12500000", txJSON["Amount"])
	assert.Equal(t, float64(99), txJSON["SourceTag"])
}

func TestSubmitPaymentRequiresSeed(t *testing.T) {
	client, err := NewHTTPClient(Options{URL: "http://localhost:1"})
	require.NoError(t, err)

	_, err = client.SubmitPayment(context.Background(), Payment{Account: "rFROM"})
	assert.Error(t, err)
}

func TestSubmitPaymentEngineFailure(t *testing.T) {
	srv := rpcServer(t, map[string]any{
		"submit": map[string]any{
			"status":                "success",
			"engine_result":         "tecUNFUNDED_PAYMENT",
			"engine_result_message": "Insufficient XRP balance to send.",
			"accepted":              true,
			"tx_json":               map[string]any{"hash": "ABCDEF"},
		},
	}, nil)
	defer srv.Close()

	client, err := NewHTTPClient(Options{URL: srv.URL})
	require.NoError(t, err)

	result, err := client.SubmitPayment(context.Background(), Payment{
		Account: "rFROM", Destination: "rTO",
		Amount: decimal.RequireFromString("1"), Seed: "sSEED",
	})
	require.NoError(t, err)
	assert.False(t, result.Accepted)
	assert.Equal(t, "tecUNFUNDED_PAYMENT", result.EngineResult)
}

func TestPing(t *testing.T) {
	srv := rpcServer(t, map[string]any{
		"ping": map[string]any{"status": "success"},
	}, nil)
	defer srv.Close()

	client, err := NewHTTPClient(Options{URL: srv.URL})
	require.NoError(t, err)
	assert.NoError(t, client.Ping(context.Background()))
}

func TestDropsConversions(t *testing.T) {
	xrp, err := DropsToXRP("1500000")
	require.NoError(t, err)
	assert.True(t, xrp.Equal(decimal.RequireFromString("1.5")))

	assert.Equal(t, "1500000", XRPToDrops(decimal.RequireFromString("1.5")))
	assert.Equal(t, "0", XRPToDrops(decimal.Decimal{}))

	_, err = DropsToXRP("not-a-number")
	assert.Error(t, err)
}
