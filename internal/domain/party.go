package domain

// Party is the stable logical identifier of a system wallet, distinct from
// the ledger address it maps to. The mapping is fixed at configuration time.
type Party string

// The three non-department system wallets.
const (
	PartyTaxPool    Party = "tax_pool"
	PartyExitPool   Party = "exit_pool"
	PartyGovernment Party = "government"
)

func (p Party) String() string {
	return string(p)
}
