package flow

import "taxflow/internal/domain"

// Aggregate folds canonical transactions into one weighted edge per ordered
// (sender, receiver) pair. Edge order follows first encounter; member
// transactions keep encounter order within each edge. Input is expected to
// be deduplicated already, but transactions with a hash already folded are
// skipped so a careless caller cannot double-count totals.
func Aggregate(txs []domain.Transaction) []domain.FlowEdge {
	type pair struct {
		source domain.Party
		target domain.Party
	}

	index := make(map[pair]int, len(txs))
	seen := make(map[string]struct{}, len(txs))
	var edges []domain.FlowEdge

	for _, tx := range txs {
		if tx.Hash != "" {
			if _, dup := seen[tx.Hash]; dup {
				continue
			}
			seen[tx.Hash] = struct{}{}
		}

		key := pair{source: tx.Sender, target: tx.Receiver}
		i, ok := index[key]
		if !ok {
			i = len(edges)
			index[key] = i
			edges = append(edges, domain.FlowEdge{
				Source: tx.Sender,
				Target: tx.Receiver,
			})
		}
		edges[i].TotalAmount = edges[i].TotalAmount.Add(tx.Amount)
		edges[i].Transactions = append(edges[i].Transactions, tx)
	}

	return edges
}
