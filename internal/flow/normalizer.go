// Package flow implements the read-side pipeline over raw ledger history:
// normalization into canonical transactions, aggregation into a weighted
// flow graph, and rooted level assignment with per-party metrics. All three
// stages are pure and perform no I/O of their own.
package flow

import (
	"github.com/shopspring/decimal"

	"taxflow/internal/domain"
	"taxflow/internal/xrpl"
)

const (
	// rippleEpochOffset shifts the ledger's close-time epoch (2000-01-01)
	// to unix time.
	rippleEpochOffset = 946684800

	resultSuccess = "tesSUCCESS"
	typePayment   = "Payment"
)

// payloadKeys are the nested locations the JSON-RPC API has used for the
// transaction body, tried in order.
var payloadKeys = []string{"tx_json", "tx", "transaction"}

// metaKeys are the locations of the settlement metadata object.
var metaKeys = []string{"meta", "metaData"}

// amountKeys are the candidate amount fields, in priority order. Each is
// looked up in the transaction body first, then in the metadata.
var amountKeys = []string{"Amount", "DeliverMax", "delivered_amount"}

// ResolveFunc maps a ledger address to a registered party.
type ResolveFunc func(address string) (domain.Party, bool)

// RejectReport counts records dropped during one normalization run, keyed by
// the first failed check. Normalization never fails outright; the report
// makes the drops observable.
type RejectReport struct {
	MissingPayload int
	MissingHash    int
	Duplicate      int
	NonPayment     int
	UnknownParty   int
	MissingAmount  int
	BadAmount      int
	Unsuccessful   int
}

// Total is the number of records dropped for any reason.
func (r RejectReport) Total() int {
	return r.MissingPayload + r.MissingHash + r.Duplicate + r.NonPayment +
		r.UnknownParty + r.MissingAmount + r.BadAmount + r.Unsuccessful
}

// Normalize converts raw account_tx entries into canonical transactions.
// Records are processed in input order; a record is dropped at the first
// failed check and the corresponding report counter incremented. Hashes are
// deduplicated within the call, first acceptance wins.
func Normalize(records []xrpl.TransactionRecord, resolve ResolveFunc) ([]domain.Transaction, RejectReport) {
	var report RejectReport
	seen := make(map[string]struct{}, len(records))
	txs := make([]domain.Transaction, 0, len(records))

	for _, record := range records {
		payload := firstMap(record, payloadKeys)
		if payload == nil {
			report.MissingPayload++
			continue
		}

		hash := stringField(payload, "hash")
		if hash == "" {
			hash = stringField(record, "hash")
		}
		if hash == "" {
			report.MissingHash++
			continue
		}
		if _, dup := seen[hash]; dup {
			report.Duplicate++
			continue
		}

		if stringField(payload, "TransactionType") != typePayment {
			report.NonPayment++
			continue
		}

		senderAddr := stringField(payload, "Account")
		receiverAddr := stringField(payload, "Destination")
		if senderAddr == "" || receiverAddr == "" {
			report.UnknownParty++
			continue
		}
		sender, ok := resolve(senderAddr)
		if !ok {
			report.UnknownParty++
			continue
		}
		receiver, ok := resolve(receiverAddr)
		if !ok {
			report.UnknownParty++
			continue
		}

		meta := firstMap(record, metaKeys)

		raw, found := firstAmount(payload, meta)
		if !found {
			report.MissingAmount++
			continue
		}
		drops, ok := parseDrops(raw)
		if !ok {
			report.BadAmount++
			continue
		}
		amount := drops.Shift(-6)

		timestamp := int64(0)
		if date, ok := numericField(payload, "date"); ok && date != 0 {
			timestamp = int64(date) + rippleEpochOffset
		}

		if stringField(meta, "TransactionResult") != resultSuccess {
			report.Unsuccessful++
			continue
		}

		kind := domain.KindTransfer
		if tag, ok := numericField(payload, "SourceTag"); ok && tag != 0 {
			kind = domain.KindTaxPayment
		}

		seen[hash] = struct{}{}
		txs = append(txs, domain.Transaction{
			Hash:      hash,
			Sender:    sender,
			Receiver:  receiver,
			Amount:    amount,
			Timestamp: timestamp,
			Kind:      kind,
			Success:   true,
		})
	}

	return txs, report
}

// firstMap returns the first of keys present in record as an object.
func firstMap(record map[string]any, keys []string) map[string]any {
	for _, key := range keys {
		if value, ok := record[key].(map[string]any); ok {
			return value
		}
	}
	return nil
}

// firstAmount scans the candidate amount fields, checking the transaction
// body before the metadata for each field name.
func firstAmount(payload, meta map[string]any) (any, bool) {
	for _, key := range amountKeys {
		if value, ok := payload[key]; ok {
			return value, true
		}
		if meta != nil {
			if value, ok := meta[key]; ok {
				return value, true
			}
		}
	}
	return nil, false
}

// parseDrops accepts a drops amount as a decimal string or JSON number.
// Issued-currency amounts (objects) and negative values are rejected.
func parseDrops(raw any) (decimal.Decimal, bool) {
	var drops decimal.Decimal
	switch value := raw.(type) {
	case string:
		parsed, err := decimal.NewFromString(value)
		if err != nil {
			return decimal.Decimal{}, false
		}
		drops = parsed
	case float64:
		drops = decimal.NewFromFloat(value)
	case int:
		drops = decimal.NewFromInt(int64(value))
	case int64:
		drops = decimal.NewFromInt(value)
	default:
		return decimal.Decimal{}, false
	}
	if drops.IsNegative() {
		return decimal.Decimal{}, false
	}
	return drops, true
}

func stringField(record map[string]any, key string) string {
	if record == nil {
		return ""
	}
	value, _ := record[key].(string)
	return value
}

func numericField(record map[string]any, key string) (float64, bool) {
	if record == nil {
		return 0, false
	}
	switch value := record[key].(type) {
	case float64:
		return value, true
	case int:
		return float64(value), true
	case int64:
		return float64(value), true
	default:
		return 0, false
	}
}
