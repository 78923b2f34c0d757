package domain

import "github.com/shopspring/decimal"

// FlowEdge aggregates every canonical transaction flowing from Source to
// Target: TotalAmount is the exact sum over Transactions, which are kept in
// encounter order. At most one edge exists per ordered pair within one
// aggregation run.
type FlowEdge struct {
	Source       Party
	Target       Party
	TotalAmount  decimal.Decimal
	Transactions []Transaction
}

// LevelUnreached marks a party with no outgoing-edge path from the chosen
// hierarchy root.
const LevelUnreached = -1

// HierarchyNode carries the traversal level assigned to a party relative to
// the hierarchy root (root itself is level 0).
type HierarchyNode struct {
	Party Party
	Level int
}

// Reached reports whether the node was visited by the rooted traversal.
func (n HierarchyNode) Reached() bool {
	return n.Level != LevelUnreached
}

// PartyMetrics are per-party aggregates over the canonical transaction set
// plus the party's live ledger balance.
type PartyMetrics struct {
	TotalSent        decimal.Decimal
	TotalReceived    decimal.Decimal
	TransactionCount int
	Balance          decimal.Decimal
	Sent             []Transaction
	Received         []Transaction
}

// Hierarchy is the rooted flow view: one node per registered party, the
// aggregated edge set, and metrics for every party whether reached or not.
// FailedBalances lists parties whose balance lookup failed and was reported
// as zero.
type Hierarchy struct {
	Root           Party
	Nodes          []HierarchyNode
	Edges          []FlowEdge
	Metrics        map[Party]PartyMetrics
	FailedBalances []Party
}
