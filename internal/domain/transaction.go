package domain

import "github.com/shopspring/decimal"

// TxKind classifies a canonical transaction. TaxPayment is inferred from the
// presence of a non-zero source tag on the ledger record; the tag is a
// truncated non-cryptographic hash of a payer identifier, so the kind is a
// hint rather than a verified payer identity.
type TxKind string

const (
	KindTaxPayment TxKind = "Tax Payment"
	KindTransfer   TxKind = "Payment"
)

// Transaction is a canonical payment record: deduplicated by hash, settled
// successfully, with both endpoints resolved to registered parties. Amounts
// are XRP major units. Immutable once produced by normalization.
type Transaction struct {
	Hash      string
	Sender    Party
	Receiver  Party
	Amount    decimal.Decimal
	Timestamp int64 // unix seconds; 0 when the record carried no close time
	Kind      TxKind
	Success   bool
}
