package flow

import (
	"errors"

	"github.com/shopspring/decimal"

	"taxflow/internal/domain"
)

// ErrUnknownRoot indicates the requested hierarchy root is not a registered
// party. This is the one hard failure of the read pipeline.
var ErrUnknownRoot = errors.New("hierarchy root is not a registered party")

// BalanceFunc returns the current ledger balance of a party. It may be
// network-bound; failures degrade that party's balance to zero rather than
// failing the build.
type BalanceFunc func(party domain.Party) (decimal.Decimal, error)

// BuildHierarchy assigns breadth-first levels over the outgoing-edge graph
// rooted at root and computes metrics for every party in parties, reached or
// not. Edges are walked in input order, so level ties resolve to the first
// edge processed. Cycles are never re-descended. Parties without a path from
// root keep LevelUnreached.
func BuildHierarchy(
	root domain.Party,
	parties []domain.Party,
	edges []domain.FlowEdge,
	txs []domain.Transaction,
	balanceOf BalanceFunc,
) (domain.Hierarchy, error) {
	known := make(map[domain.Party]struct{}, len(parties))
	for _, p := range parties {
		known[p] = struct{}{}
	}
	if _, ok := known[root]; !ok {
		return domain.Hierarchy{}, ErrUnknownRoot
	}

	levels := assignLevels(root, edges)

	nodes := make([]domain.HierarchyNode, 0, len(parties))
	for _, p := range parties {
		level, reached := levels[p]
		if !reached {
			level = domain.LevelUnreached
		}
		nodes = append(nodes, domain.HierarchyNode{Party: p, Level: level})
	}

	metrics, failed := buildMetrics(parties, txs, balanceOf)

	return domain.Hierarchy{
		Root:           root,
		Nodes:          nodes,
		Edges:          edges,
		Metrics:        metrics,
		FailedBalances: failed,
	}, nil
}

// assignLevels is an explicit-queue BFS from root following outgoing edges.
// First visit fixes a party's level.
func assignLevels(root domain.Party, edges []domain.FlowEdge) map[domain.Party]int {
	levels := map[domain.Party]int{root: 0}
	queue := []domain.Party{root}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		for _, edge := range edges {
			if edge.Source != current {
				continue
			}
			if _, visited := levels[edge.Target]; visited {
				continue
			}
			levels[edge.Target] = levels[current] + 1
			queue = append(queue, edge.Target)
		}
	}

	return levels
}

// buildMetrics scans the canonical transaction list once per direction and
// resolves the live balance of every party. A failed balance lookup reports
// zero and the party is listed in the second return value.
func buildMetrics(
	parties []domain.Party,
	txs []domain.Transaction,
	balanceOf BalanceFunc,
) (map[domain.Party]domain.PartyMetrics, []domain.Party) {
	sent := make(map[domain.Party][]domain.Transaction)
	received := make(map[domain.Party][]domain.Transaction)
	selfCount := make(map[domain.Party]int)
	for _, tx := range txs {
		sent[tx.Sender] = append(sent[tx.Sender], tx)
		received[tx.Receiver] = append(received[tx.Receiver], tx)
		if tx.Sender == tx.Receiver {
			selfCount[tx.Sender]++
		}
	}

	metrics := make(map[domain.Party]domain.PartyMetrics, len(parties))
	var failed []domain.Party

	for _, p := range parties {
		m := domain.PartyMetrics{
			Sent:     sent[p],
			Received: received[p],
		}
		for _, tx := range m.Sent {
			m.TotalSent = m.TotalSent.Add(tx.Amount)
		}
		for _, tx := range m.Received {
			m.TotalReceived = m.TotalReceived.Add(tx.Amount)
		}
		// A party sending to itself appears in both lists but is one
		// transaction.
		m.TransactionCount = len(m.Sent) + len(m.Received) - selfCount[p]

		if balanceOf != nil {
			balance, err := balanceOf(p)
			if err != nil {
				failed = append(failed, p)
			} else {
				m.Balance = balance
			}
		}

		metrics[p] = m
	}

	return metrics, failed
}
