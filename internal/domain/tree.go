package domain

import "github.com/shopspring/decimal"

// TreeNode is a party entry in the system-wide transaction tree.
type TreeNode struct {
	Party         Party
	Balance       decimal.Decimal
	TotalSent     decimal.Decimal
	TotalReceived decimal.Decimal
}

// TreeLink is a single transaction rendered as a directed link.
type TreeLink struct {
	Source    Party
	Target    Party
	Amount    decimal.Decimal
	Timestamp int64
	Hash      string
}

// TransactionTree is the flat nodes-plus-links payload backing the full
// system visualization.
type TransactionTree struct {
	Nodes []TreeNode
	Links []TreeLink
}
